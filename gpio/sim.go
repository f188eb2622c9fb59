package gpio

import (
	"fmt"
	"sync"
)

// SimConfig configures the simulated backend.
type SimConfig struct {
	// HardwarePWMPins lists the physical pins reported as PWM capable.
	// Defaults to pin 12 when empty.
	HardwarePWMPins []int `json:"hardwarePwmPins,omitempty" yaml:"hardware_pwm_pins,omitempty"`
}

// Sim is an in-memory backend for development and tests. It lays out pins
// like the 40 pin header and enforces the claim-before-drive discipline a
// real line has.
type Sim struct {
	mu      sync.Mutex
	closed  bool
	claimed map[int]bool
	levels  map[int]Level
	pwmPins map[int]bool
	pwmFreq map[int]int
	pwmDuty map[int]float64
}

var (
	_ GPIO        = &Sim{}
	_ HardwarePWM = &Sim{}
)

// NewSim builds a simulated backend.
func NewSim(config SimConfig) *Sim {
	pins := config.HardwarePWMPins
	if len(pins) == 0 {
		pins = []int{12}
	}

	pwmPins := make(map[int]bool, len(pins))
	for _, pin := range pins {
		pwmPins[pin] = true
	}

	return &Sim{
		claimed: map[int]bool{},
		levels:  map[int]Level{},
		pwmPins: pwmPins,
		pwmFreq: map[int]int{},
		pwmDuty: map[int]float64{},
	}
}

func (s *Sim) Claim(pin int) error {
	if _, err := BCM(pin); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("simulated gpio is closed")
	}

	s.claimed[pin] = true
	return nil
}

func (s *Sim) Drive(pin int, level Level) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.claimed[pin] {
		return fmt.Errorf("pin %d is not claimed", pin)
	}

	s.levels[pin] = level
	return nil
}

func (s *Sim) Release(pin int, reset Reset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.claimed[pin] {
		return fmt.Errorf("pin %d is not claimed", pin)
	}

	delete(s.claimed, pin)
	if reset == Float {
		delete(s.levels, pin)
	}

	return nil
}

func (s *Sim) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

func (s *Sim) SupportsHardwarePWM(pin int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.pwmPins[pin]
}

func (s *Sim) ConfigurePWM(pin int, frequency int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("simulated gpio is closed")
	}

	if !s.pwmPins[pin] {
		return fmt.Errorf("pin %d has no PWM peripheral", pin)
	}

	s.pwmFreq[pin] = frequency
	s.pwmDuty[pin] = 0
	return nil
}

func (s *Sim) SetDuty(pin int, duty float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pwmFreq[pin]; !ok {
		return fmt.Errorf("pin %d PWM is not configured", pin)
	}

	if duty < 0 || duty > 1 {
		return fmt.Errorf("duty cycle %v is out of range 0 to 1", duty)
	}

	s.pwmDuty[pin] = duty
	return nil
}

// Level reports the level last driven on a pin and whether the pin is
// currently claimed. A pin released with Float reads LOW and unclaimed; one
// released with Preserve keeps its level.
func (s *Sim) Level(pin int) (Level, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.levels[pin], s.claimed[pin]
}

// Duty reports the hardware PWM duty cycle last set on a pin.
func (s *Sim) Duty(pin int) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.pwmDuty[pin]
}
