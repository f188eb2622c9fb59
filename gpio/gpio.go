package gpio

import "io"

// Level describes the binary state of a GPIO pin: either LOW or HIGH.
type Level bool

const (
	Low  Level = false
	High Level = true
)

func (l Level) String() string {
	if l == High {
		return "high"
	}
	return "low"
}

// Reset describes what happens to a pin's line when it is released.
type Reset int

const (
	// Preserve keeps the last driven level on the line after release.
	Preserve Reset = iota

	// Float returns the line to its power-on input state.
	Float
)

// GPIO describes a connection that can drive digital output pins. Pins are
// identified by their physical position on the 40 pin header, not by BCM
// number; see BCM for the translation.
type GPIO interface {
	// Claim configures a pin as a digital output and takes ownership of it.
	Claim(pin int) error

	// Drive sets a claimed pin to LOW or HIGH.
	Drive(pin int, level Level) error

	// Release gives up ownership of a pin with the given reset behavior.
	Release(pin int, reset Reset) error

	io.Closer
}

// HardwarePWM describes connections that can generate PWM with a dedicated
// peripheral instead of a software toggle loop. Not every backend can, and
// on those that can only a few pins are wired for it, so callers assert for
// this like any other capability and then ask about the pin.
type HardwarePWM interface {
	// SupportsHardwarePWM reports whether the pin is wired to a PWM peripheral.
	SupportsHardwarePWM(pin int) bool

	// ConfigurePWM claims the pin for PWM at the given carrier frequency,
	// starting with a duty cycle of zero.
	ConfigurePWM(pin int, frequency int) error

	// SetDuty sets the duty cycle (0 to 1) of a configured pin.
	SetDuty(pin int, duty float64) error
}
