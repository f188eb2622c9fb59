// Package pin models single digital output pins on top of a gpio connection.
// A Pin tracks whether it holds its line's hardware resource and refuses to
// guess when a claim or release fails: the state goes to Unknown and stays
// there until a forced open or close settles it.
package pin

import (
	"fmt"
	"sync"
	"time"

	"github.com/perfuselab/pindrive/gpio"
	"github.com/perfuselab/pindrive/wave"
)

// State is what the model knows about a pin's hardware resource.
type State int

const (
	// Unknown means the last claim or release failed, so the hardware can't
	// be trusted to match the model.
	Unknown State = iota

	// Closed means the pin's resource is released.
	Closed

	// Open means the pin is claimed and can be driven.
	Open
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	default:
		return "unknown"
	}
}

// Pin is a handle to one physical output line. Handles are cheap and touch
// no hardware until the first operation. Two handles on the same line are
// not synchronized against each other.
type Pin struct {
	// Number is the physical header position of the line.
	Number int

	conn gpio.GPIO

	mu    sync.Mutex
	state State
}

// New returns a handle for the given physical pin number.
func New(conn gpio.GPIO, number int) *Pin {
	return &Pin{Number: number, conn: conn, state: Closed}
}

// State reports the pin's lifecycle state.
func (p *Pin) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.state
}

func (p *Pin) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// Open claims the pin's line as a digital output. Opening an open pin does
// nothing unless force is set. After a failure the state is Unknown and the
// next Open retries the claim.
func (p *Pin) Open(force bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == Open && !force {
		return nil
	}

	if err := p.conn.Claim(p.Number); err != nil {
		p.state = Unknown
		return OpenError{fmt.Errorf("unable to claim pin %d: %w", p.Number, err)}
	}

	p.state = Open
	return nil
}

// Close releases the pin's line. Preserve keeps the last driven level on the
// line, Float resets it to its power-on input state. Closing a closed pin
// does nothing unless force is set. After a failure the state is Unknown and
// the next Close retries the release.
func (p *Pin) Close(reset gpio.Reset, force bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == Closed && !force {
		return nil
	}

	if err := p.conn.Release(p.Number, reset); err != nil {
		p.state = Unknown
		return CloseError{fmt.Errorf("unable to release pin %d: %w", p.Number, err)}
	}

	p.state = Closed
	return nil
}

// Write opens the pin, drives it to level, and closes it with the level
// preserved, so the line holds level after the call. A drive failure leaves
// the pin open for the caller to settle.
func (p *Pin) Write(level gpio.Level) error {
	if err := p.Open(false); err != nil {
		return err
	}

	if err := p.conn.Drive(p.Number, level); err != nil {
		return fmt.Errorf("unable to drive pin %d: %w", p.Number, err)
	}

	return p.Close(gpio.Preserve, false)
}

var afterFunc = time.AfterFunc

// HighFor opens the pin, drives it high, and closes it with a reset once d
// has elapsed. The wait runs on a timer rather than blocking, so the pin
// reads Open while the level holds. The returned channel delivers the result
// of the whole operation, including the delayed close, and never blocks the
// timer goroutine.
func (p *Pin) HighFor(d time.Duration) <-chan error {
	done := make(chan error, 1)

	if err := p.Open(false); err != nil {
		done <- err
		return done
	}

	if err := p.conn.Drive(p.Number, gpio.High); err != nil {
		done <- fmt.Errorf("unable to drive pin %d high: %w", p.Number, err)
		return done
	}

	afterFunc(d, func() {
		done <- p.Close(gpio.Float, false)
	})

	return done
}

// Pulse drives an open pin high for the high width and low for the low
// width, blocking for the whole cycle.
func (p *Pin) Pulse(high, low time.Duration) error {
	if p.State() != Open {
		return fmt.Errorf("unable to pulse pin %d: pin is not open", p.Number)
	}

	if err := p.conn.Drive(p.Number, gpio.High); err != nil {
		return fmt.Errorf("unable to drive pin %d high: %w", p.Number, err)
	}
	wave.Wait(high)

	if err := p.conn.Drive(p.Number, gpio.Low); err != nil {
		return fmt.Errorf("unable to drive pin %d low: %w", p.Number, err)
	}
	wave.Wait(low)

	return nil
}

// Write drives level on the numbered pin with a one-off handle.
func Write(conn gpio.GPIO, number int, level gpio.Level) error {
	return New(conn, number).Write(level)
}

// HighFor drives the numbered pin high for d with a one-off handle.
func HighFor(conn gpio.GPIO, number int, d time.Duration) <-chan error {
	return New(conn, number).HighFor(d)
}

// SoftPWM generates w on the numbered pin with a one-off handle.
func SoftPWM(conn gpio.GPIO, number int, w wave.Spec) error {
	return New(conn, number).SoftPWM(w)
}
