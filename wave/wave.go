package wave

import (
	"fmt"
	"math"
	"time"
)

// Spec describes one PWM request: hold the line high for PulseWidth out of
// every 1/Frequency seconds, for Duration overall.
type Spec struct {
	PulseWidth time.Duration
	Frequency  float64 // cycles per second
	Duration   time.Duration
}

// Plan is the derived cycle timing for a Spec. The requested duration is
// rounded up to a whole number of cycles.
type Plan struct {
	// Cycles is how many high/low periods fit in the rounded duration.
	Cycles int

	// ActualDuration is Cycles whole periods, always at least the requested
	// duration.
	ActualDuration time.Duration

	// LowWidth is the time per cycle spent low after PulseWidth high.
	LowWidth time.Duration
}

// ConfigError indicates a pulse width that leaves no low time within a cycle.
type ConfigError struct {
	error
}

func (err ConfigError) Is(target error) bool {
	_, ok := target.(ConfigError)
	return ok
}

func (err ConfigError) Unwrap() error { return err.error }

// Compute derives the cycle plan for s. A non-positive frequency or duration
// yields the zero Plan: a degenerate waveform with nothing to do, not an
// error. A pulse width that fills or overfills the whole period is a
// ConfigError, never clamped.
func Compute(s Spec) (Plan, error) {
	if s.Frequency <= 0 || s.Duration <= 0 {
		return Plan{}, nil
	}

	durationMs := float64(s.Duration) / float64(time.Millisecond)
	pulseMs := float64(s.PulseWidth) / float64(time.Millisecond)

	cycles := int(math.Ceil(s.Frequency * durationMs / 1000))
	actualMs := float64(cycles) / s.Frequency * 1000
	lowMs := (actualMs - float64(cycles)*pulseMs) / float64(cycles)

	if lowMs <= 0 {
		return Plan{}, ConfigError{fmt.Errorf(
			"pulse width %v leaves no low time at %g Hz",
			s.PulseWidth, s.Frequency,
		)}
	}

	return Plan{
		Cycles:         cycles,
		ActualDuration: duration(actualMs),
		LowWidth:       duration(lowMs),
	}, nil
}

// duration converts fractional milliseconds to a time.Duration.
func duration(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}

var sleep = time.Sleep

// Wait blocks for d. Both the high and the low half of every software-timed
// cycle wait through here, so a different timing source only needs to replace
// this one seam.
func Wait(d time.Duration) {
	sleep(d)
}
