package gpio

import "fmt"

// PigpioConfig configures the pigpio daemon backend.
type PigpioConfig struct {
	// Addr is the pigpiod socket address, normally localhost:8888.
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty"`
}

// GpiocdevConfig configures the Linux GPIO character device backend.
type GpiocdevConfig struct {
	// Consumer is the label shown against claimed lines.
	Consumer string `json:"consumer,omitempty" yaml:"consumer,omitempty"`
}

// RpioConfig configures the memory mapped register backend.
type RpioConfig struct{}

// PeriphConfig configures the periph.io backend.
type PeriphConfig struct{}

// Config selects exactly one backend to drive pins with. The simulated
// backend is selected the same way as the real ones; nothing falls back to
// it on its own.
type Config struct {
	Pigpio   *PigpioConfig   `json:"pigpio,omitempty" yaml:"pigpio,omitempty"`
	Gpiocdev *GpiocdevConfig `json:"gpiocdev,omitempty" yaml:"gpiocdev,omitempty"`
	Rpio     *RpioConfig     `json:"rpio,omitempty" yaml:"rpio,omitempty"`
	Periph   *PeriphConfig   `json:"periph,omitempty" yaml:"periph,omitempty"`
	Sim      *SimConfig      `json:"sim,omitempty" yaml:"sim,omitempty"`
}

// Kind names the selected backend.
func (c Config) Kind() string {
	switch {
	case c.Pigpio != nil:
		return "pigpio"
	case c.Gpiocdev != nil:
		return "gpiocdev"
	case c.Rpio != nil:
		return "rpio"
	case c.Periph != nil:
		return "periph"
	case c.Sim != nil:
		return "sim"
	default:
		return "none"
	}
}

// New builds the backend the config selects.
func New(config Config) (GPIO, error) {
	selected := 0
	for _, set := range []bool{
		config.Pigpio != nil,
		config.Gpiocdev != nil,
		config.Rpio != nil,
		config.Periph != nil,
		config.Sim != nil,
	} {
		if set {
			selected++
		}
	}
	if selected == 0 {
		return nil, fmt.Errorf("no gpio backend configured")
	}
	if selected > 1 {
		return nil, fmt.Errorf("%d gpio backends configured, want exactly one", selected)
	}

	switch {
	case config.Pigpio != nil:
		addr := config.Pigpio.Addr
		if addr == "" {
			addr = "localhost:8888"
		}
		return DialPigpio(addr)
	case config.Gpiocdev != nil:
		return NewGpiocdev(config.Gpiocdev.Consumer)
	case config.Rpio != nil:
		return NewRpio()
	case config.Periph != nil:
		return NewPeriph()
	default:
		return NewSim(*config.Sim), nil
	}
}
