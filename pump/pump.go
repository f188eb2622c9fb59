// Package pump drives peristaltic pumps through an H-bridge of four GPIO
// switched transistors.
package pump

import (
	"fmt"
	"sync"
	"time"

	"github.com/perfuselab/pindrive/gpio"
	"github.com/perfuselab/pindrive/pin"
	"github.com/perfuselab/pindrive/wave"
)

// Direction is the pump's commanded flow direction.
type Direction int

const (
	Stopped Direction = iota
	Forward
	Backward
)

func (d Direction) String() string {
	switch d {
	case Forward:
		return "forward"
	case Backward:
		return "backward"
	default:
		return "stopped"
	}
}

// directionGuard is how long the bridge rests with every switch open between
// direction changes, so the supply is never shorted through both sides.
const directionGuard = 20 * time.Millisecond

// Config describes one pump.
type Config struct {
	// Name identifies the pump on the control surface.
	Name string `json:"name" yaml:"name"`

	// Pins are the physical pins of the four bridge switches, in the order
	// top-left, top-right, bottom-left, bottom-right.
	Pins [4]int `json:"pins" yaml:"pins"`
}

// Pump drives a motor through an H-bridge. Forward closes the top-left and
// bottom-right switches, backward the opposite diagonal.
type Pump struct {
	cfg  Config
	conn gpio.GPIO

	mu        sync.Mutex
	direction Direction
}

// New validates cfg and returns a pump handle.
func New(conn gpio.GPIO, cfg Config) (*Pump, error) {
	for i, number := range cfg.Pins {
		if number <= 0 {
			return nil, fmt.Errorf("pump %q: %d (switch %d) is not a valid pin number", cfg.Name, number, i)
		}
	}

	return &Pump{cfg: cfg, conn: conn}, nil
}

// Name reports the configured pump name.
func (p *Pump) Name() string { return p.cfg.Name }

// Direction reports the commanded direction.
func (p *Pump) Direction() Direction {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.direction
}

// Perfuse runs the pump forward, toward the sample.
func (p *Pump) Perfuse() error { return p.set(Forward) }

// Drain runs the pump backward, toward waste.
func (p *Pump) Drain() error { return p.set(Backward) }

// Stop opens every switch in the bridge.
func (p *Pump) Stop() error { return p.set(Stopped) }

func (p *Pump) set(d Direction) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.direction == d {
		return nil
	}

	// A running bridge is stopped and rested before the opposite diagonal
	// closes.
	if p.direction != Stopped {
		if err := p.allLow(); err != nil {
			return err
		}
		p.direction = Stopped

		if d == Stopped {
			return nil
		}

		wave.Wait(directionGuard)
	}

	a, b := p.cfg.Pins[0], p.cfg.Pins[3]
	if d == Backward {
		a, b = p.cfg.Pins[1], p.cfg.Pins[2]
	}

	if err := pin.Write(p.conn, a, gpio.High); err != nil {
		return fmt.Errorf("pump %q: %w", p.cfg.Name, err)
	}
	if err := pin.Write(p.conn, b, gpio.High); err != nil {
		return fmt.Errorf("pump %q: %w", p.cfg.Name, err)
	}

	p.direction = d
	return nil
}

func (p *Pump) allLow() error {
	for _, number := range p.cfg.Pins {
		if err := pin.Write(p.conn, number, gpio.Low); err != nil {
			return fmt.Errorf("pump %q: %w", p.cfg.Name, err)
		}
	}

	return nil
}
