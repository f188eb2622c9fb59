package store

import (
	"io"

	"github.com/perfuselab/pindrive/gpio"
)

// Preset is a named waveform request that can be dispatched on demand.
type Preset struct {
	Pin          int     `json:"pin"`
	PulseWidthMs float64 `json:"pulseWidthMs"`
	Frequency    float64 `json:"frequency"`
	DurationMs   float64 `json:"durationMs"`

	// Hardware selects the PWM peripheral path instead of software toggling.
	Hardware bool `json:"hardware,omitempty"`
}

// Store describes a persistent storage engine for pindrive information.
type Store interface {
	Preset(name string) (Preset, error)
	ListPresets() ([]string, error)
	PutPreset(name string, p Preset) error

	DefaultPreset() (string, error)
	PutDefaultPreset(name string) error

	BackendConfig() (gpio.Config, error)
	PutBackendConfig(c gpio.Config) error

	io.Closer
}
