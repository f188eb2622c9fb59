package gpio

import (
	"fmt"
	"sync"

	pgpio "periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

// Periph drives pins through the periph.io host drivers.
type Periph struct {
	mu   sync.Mutex
	pins map[int]pgpio.PinIO // line handles keyed by BCM number
	freq map[int]physic.Frequency
}

var (
	_ GPIO        = &Periph{}
	_ HardwarePWM = &Periph{}
)

// NewPeriph initializes the periph.io host drivers and returns a backend on
// top of them.
func NewPeriph() (*Periph, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("unable to initialize periph host: %w", err)
	}

	return &Periph{
		pins: map[int]pgpio.PinIO{},
		freq: map[int]physic.Frequency{},
	}, nil
}

// resolve looks a line up by BCM number, caching the handle.
func (b *Periph) resolve(pin int) (pgpio.PinIO, int, error) {
	bcm, err := BCM(pin)
	if err != nil {
		return nil, 0, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if p, ok := b.pins[bcm]; ok {
		return p, bcm, nil
	}

	name := fmt.Sprintf("GPIO%d", bcm)
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, 0, fmt.Errorf("pin %d (%s) not found in hardware", pin, name)
	}

	b.pins[bcm] = p
	return p, bcm, nil
}

func (b *Periph) Claim(pin int) error {
	p, _, err := b.resolve(pin)
	if err != nil {
		return err
	}

	if err := p.Out(pgpio.Low); err != nil {
		return fmt.Errorf("unable to set pin %d to output: %w", pin, err)
	}

	return nil
}

func (b *Periph) Drive(pin int, level Level) error {
	p, _, err := b.resolve(pin)
	if err != nil {
		return err
	}

	out := pgpio.Low
	if level {
		out = pgpio.High
	}

	if err := p.Out(out); err != nil {
		return fmt.Errorf("unable to write pin %d: %w", pin, err)
	}

	return nil
}

func (b *Periph) Release(pin int, reset Reset) error {
	if reset == Preserve {
		return nil
	}

	p, _, err := b.resolve(pin)
	if err != nil {
		return err
	}

	if err := p.In(pgpio.PullNoChange, pgpio.NoEdge); err != nil {
		return fmt.Errorf("unable to set pin %d to input: %w", pin, err)
	}

	return nil
}

// Close is a no-op; periph keeps no per-process resources worth tearing down.
func (b *Periph) Close() error {
	return nil
}

func (b *Periph) SupportsHardwarePWM(pin int) bool {
	bcm, err := BCM(pin)
	if err != nil {
		return false
	}

	return pwmCapable(bcm)
}

func (b *Periph) ConfigurePWM(pin int, frequency int) error {
	p, bcm, err := b.resolve(pin)
	if err != nil {
		return err
	}

	if !pwmCapable(bcm) {
		return fmt.Errorf("pin %d has no PWM peripheral", pin)
	}

	f := physic.Frequency(frequency) * physic.Hertz

	b.mu.Lock()
	b.freq[bcm] = f
	b.mu.Unlock()

	if err := p.PWM(0, f); err != nil {
		return fmt.Errorf("unable to configure pwm on pin %d: %w", pin, err)
	}

	return nil
}

func (b *Periph) SetDuty(pin int, duty float64) error {
	p, bcm, err := b.resolve(pin)
	if err != nil {
		return err
	}

	b.mu.Lock()
	f, ok := b.freq[bcm]
	b.mu.Unlock()
	if !ok {
		return fmt.Errorf("pin %d PWM is not configured", pin)
	}

	if duty < 0 || duty > 1 {
		return fmt.Errorf("duty cycle %v is out of range 0 to 1", duty)
	}

	if err := p.PWM(pgpio.Duty(duty*float64(pgpio.DutyMax)), f); err != nil {
		return fmt.Errorf("unable to set pwm duty cycle on pin %d: %w", pin, err)
	}

	return nil
}
