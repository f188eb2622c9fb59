// Package config loads the daemon configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/perfuselab/pindrive/gpio"
	"github.com/perfuselab/pindrive/motor"
	"github.com/perfuselab/pindrive/pump"
)

// Config is the top of the YAML configuration file.
type Config struct {
	// ListenAddr is the HTTP listen address, defaults to :8080.
	ListenAddr string `yaml:"listen_addr"`

	// StorePath is the bbolt database holding presets and the backend
	// config, defaults to pindrive.db.
	StorePath string `yaml:"store_path"`

	// RunlogPath is the badger directory holding the run history, defaults
	// to runlog.
	RunlogPath string `yaml:"runlog_path"`

	// Backend selects which GPIO backend drives the pins. Required.
	Backend gpio.Config `yaml:"backend"`

	Motors []motor.Config `yaml:"motors"`
	Pumps  []pump.Config  `yaml:"pumps"`
}

// Load reads the config file at path, validates it, and fills defaults.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("unable to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("unable to parse config: %w", err)
	}

	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.StorePath == "" {
		cfg.StorePath = "pindrive.db"
	}
	if cfg.RunlogPath == "" {
		cfg.RunlogPath = "runlog"
	}

	if cfg.Backend == (gpio.Config{}) {
		return Config{}, fmt.Errorf("backend is required: select one of pigpio, gpiocdev, rpio, periph, or sim")
	}

	names := map[string]bool{}
	for i, m := range cfg.Motors {
		if m.Name == "" {
			return Config{}, fmt.Errorf("motors[%d]: name is required", i)
		}
		if names[m.Name] {
			return Config{}, fmt.Errorf("motor name %q is used twice", m.Name)
		}
		names[m.Name] = true

		if m.Pin <= 0 {
			return Config{}, fmt.Errorf("motor %q: pin is required", m.Name)
		}
		if m.Period == 0 {
			cfg.Motors[i].Period = 20 * time.Millisecond
		}
		if m.MinPulse == 0 {
			cfg.Motors[i].MinPulse = time.Millisecond
		}
		if m.MaxPulse == 0 {
			cfg.Motors[i].MaxPulse = 2 * time.Millisecond
		}
	}

	names = map[string]bool{}
	for i, p := range cfg.Pumps {
		if p.Name == "" {
			return Config{}, fmt.Errorf("pumps[%d]: name is required", i)
		}
		if names[p.Name] {
			return Config{}, fmt.Errorf("pump name %q is used twice", p.Name)
		}
		names[p.Name] = true
	}

	return cfg, nil
}
