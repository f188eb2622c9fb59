package pin

import (
	"fmt"

	"github.com/perfuselab/pindrive/gpio"
	"github.com/perfuselab/pindrive/wave"
)

// pwmCarrierHz is the carrier frequency hardware PWM pins are configured
// with. The waveform itself comes from toggling the duty cycle between full
// and zero, so the carrier only needs to be far above the toggle rate.
const pwmCarrierHz = 8000

// SoftPWM generates the waveform described by w by toggling the pin in
// software, then releases the pin to its power-on state. It blocks the
// calling goroutine for the whole actual duration, so run it on its own
// goroutine when that matters. A waveform whose pulse width leaves no low
// time fails with a wave.ConfigError before the hardware is touched.
func (p *Pin) SoftPWM(w wave.Spec) error {
	plan, err := wave.Compute(w)
	if err != nil {
		return err
	}

	if err := p.Open(false); err != nil {
		return err
	}

	for i := 0; i < plan.Cycles; i++ {
		if err := p.Pulse(w.PulseWidth, plan.LowWidth); err != nil {
			return err
		}
	}

	return p.Close(gpio.Float, false)
}

// PWM generates the waveform described by w with the pin's PWM peripheral:
// the duty cycle is held at full scale for the pulse width and at zero for
// the rest of each cycle. Only backends with hardware PWM support, and only
// the pins they report as wired for it, can do this; everything else fails
// with an UnsupportedPinError before the hardware is touched. Like SoftPWM
// it blocks for the whole actual duration.
//
// The line is left in PWM mode rather than released, so the pin's state is
// Unknown afterwards. A Close(force) settles it.
func (p *Pin) PWM(w wave.Spec) error {
	hw, ok := p.conn.(gpio.HardwarePWM)
	if !ok {
		return UnsupportedPinError{fmt.Errorf("pin %d: connection has no PWM peripheral support", p.Number)}
	}
	if !hw.SupportsHardwarePWM(p.Number) {
		return UnsupportedPinError{fmt.Errorf("pin %d is not wired for hardware PWM", p.Number)}
	}

	plan, err := wave.Compute(w)
	if err != nil {
		return err
	}

	err = hw.ConfigurePWM(p.Number, pwmCarrierHz)
	p.setState(Unknown)
	if err != nil {
		return OpenError{fmt.Errorf("unable to configure pwm on pin %d: %w", p.Number, err)}
	}

	for i := 0; i < plan.Cycles; i++ {
		if err := hw.SetDuty(p.Number, 1); err != nil {
			return fmt.Errorf("unable to raise pin %d duty cycle: %w", p.Number, err)
		}
		wave.Wait(w.PulseWidth)

		if err := hw.SetDuty(p.Number, 0); err != nil {
			return fmt.Errorf("unable to drop pin %d duty cycle: %w", p.Number, err)
		}
		wave.Wait(plan.LowWidth)
	}

	return nil
}
