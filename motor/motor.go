// Package motor drives hobby servos with a continuous software PWM signal.
package motor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/perfuselab/pindrive/gpio"
	"github.com/perfuselab/pindrive/pin"
)

// Config describes one servo.
type Config struct {
	// Name identifies the motor on the control surface.
	Name string `json:"name" yaml:"name"`

	// Pin is the physical pin the signal line is on.
	Pin int `json:"pin" yaml:"pin"`

	// Period is the time between signal pulses, normally 20ms.
	Period time.Duration `json:"period,omitempty" yaml:"period,omitempty"`

	// MinPulse is the pulse width commanding 0 degrees, normally 1ms.
	MinPulse time.Duration `json:"minPulse,omitempty" yaml:"min_pulse,omitempty"`

	// MaxPulse is the pulse width commanding 180 degrees, normally 2ms.
	MaxPulse time.Duration `json:"maxPulse,omitempty" yaml:"max_pulse,omitempty"`
}

// Motor holds a servo at a commanded angle by repeating its pulse every
// period. The angle maps linearly onto the pulse width between MinPulse and
// MaxPulse over 0 to 180 degrees, and starts at 0.
type Motor struct {
	cfg Config
	pin *pin.Pin

	mu    sync.Mutex
	pulse time.Duration
	angle float64
}

// New validates cfg and returns a motor handle. Nothing touches the hardware
// until Run.
func New(conn gpio.GPIO, cfg Config) (*Motor, error) {
	if cfg.Pin <= 0 {
		return nil, fmt.Errorf("motor %q: %d is not a valid pin number", cfg.Name, cfg.Pin)
	}
	if cfg.Period <= 0 {
		cfg.Period = 20 * time.Millisecond
	}
	if cfg.MinPulse <= 0 || cfg.MaxPulse <= cfg.MinPulse {
		return nil, fmt.Errorf("motor %q: pulse range %v to %v is not ascending and positive", cfg.Name, cfg.MinPulse, cfg.MaxPulse)
	}
	if cfg.MaxPulse >= cfg.Period {
		return nil, fmt.Errorf("motor %q: max pulse %v leaves no low time in a %v period", cfg.Name, cfg.MaxPulse, cfg.Period)
	}

	return &Motor{
		cfg:   cfg,
		pin:   pin.New(conn, cfg.Pin),
		pulse: cfg.MinPulse,
	}, nil
}

// Name reports the configured motor name.
func (m *Motor) Name() string { return m.cfg.Name }

// SetAngle commands the motor to deg, between 0 and 180. The running signal
// loop picks the new pulse width up on its next period.
func (m *Motor) SetAngle(deg float64) error {
	if deg < 0 || deg > 180 {
		return fmt.Errorf("motor %q: angle %v is out of range 0 to 180", m.cfg.Name, deg)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.pulse = m.cfg.MinPulse + time.Duration(deg/180*float64(m.cfg.MaxPulse-m.cfg.MinPulse))
	m.angle = deg
	return nil
}

// Angle reports the last commanded angle in degrees.
func (m *Motor) Angle() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.angle
}

// PulseWidth reports the pulse width the signal loop is holding.
func (m *Motor) PulseWidth() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.pulse
}

// Run opens the signal pin and pulses it every period until ctx is
// cancelled, then releases the pin. It blocks for its whole lifetime; run it
// on its own goroutine.
func (m *Motor) Run(ctx context.Context) error {
	if err := m.pin.Open(false); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return m.pin.Close(gpio.Float, false)
		default:
		}

		pulse := m.PulseWidth()
		if err := m.pin.Pulse(pulse, m.cfg.Period-pulse); err != nil {
			_ = m.pin.Close(gpio.Float, false)
			return fmt.Errorf("motor %q: %w", m.cfg.Name, err)
		}
	}
}
