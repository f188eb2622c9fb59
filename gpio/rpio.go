//go:build linux

package gpio

import (
	"fmt"
	"sync"

	"github.com/stianeikeland/go-rpio/v4"
)

// rpioConn drives pins through memory mapped BCM283x registers (/dev/gpiomem).
type rpioConn struct {
	mu  sync.Mutex
	pwm map[int]bool // BCM pins placed in PWM mode
}

// rpioPWMRange is the fixed cycle length for hardware PWM. The source
// frequency handed to the chip is the carrier multiplied by this, so duty
// resolves in 1/1024 steps.
const rpioPWMRange = 1024

// NewRpio memory-maps the GPIO registers and returns a backend on top of
// them. It needs /dev/gpiomem access or root.
func NewRpio() (GPIO, error) {
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("unable to map gpio memory range: %w", err)
	}

	return &rpioConn{pwm: map[int]bool{}}, nil
}

func (r *rpioConn) Claim(pin int) error {
	bcm, err := BCM(pin)
	if err != nil {
		return err
	}

	rpio.Pin(bcm).Output()
	return nil
}

func (r *rpioConn) Drive(pin int, level Level) error {
	bcm, err := BCM(pin)
	if err != nil {
		return err
	}

	if level {
		rpio.Pin(bcm).High()
	} else {
		rpio.Pin(bcm).Low()
	}

	return nil
}

func (r *rpioConn) Release(pin int, reset Reset) error {
	bcm, err := BCM(pin)
	if err != nil {
		return err
	}

	if reset == Float {
		rpio.Pin(bcm).Input()
	}

	return nil
}

func (r *rpioConn) Close() error {
	return rpio.Close()
}

func (r *rpioConn) SupportsHardwarePWM(pin int) bool {
	bcm, err := BCM(pin)
	if err != nil {
		return false
	}

	return pwmCapable(bcm)
}

func (r *rpioConn) ConfigurePWM(pin int, frequency int) error {
	bcm, err := BCM(pin)
	if err != nil {
		return err
	}

	if !pwmCapable(bcm) {
		return fmt.Errorf("pin %d has no PWM peripheral", pin)
	}

	p := rpio.Pin(bcm)
	p.Mode(rpio.Pwm)
	p.Freq(frequency * rpioPWMRange)
	p.DutyCycleWithPwmMode(0, rpioPWMRange, rpio.Balanced)

	r.mu.Lock()
	r.pwm[bcm] = true
	r.mu.Unlock()

	return nil
}

func (r *rpioConn) SetDuty(pin int, duty float64) error {
	bcm, err := BCM(pin)
	if err != nil {
		return err
	}

	r.mu.Lock()
	configured := r.pwm[bcm]
	r.mu.Unlock()
	if !configured {
		return fmt.Errorf("pin %d PWM is not configured", pin)
	}

	if duty < 0 || duty > 1 {
		return fmt.Errorf("duty cycle %v is out of range 0 to 1", duty)
	}

	rpio.Pin(bcm).DutyCycleWithPwmMode(uint32(duty*rpioPWMRange), rpioPWMRange, rpio.Balanced)
	return nil
}
