package motor

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/perfuselab/pindrive/gpio"
)

// fakeConn counts drives per level and tracks claims.
type fakeConn struct {
	mu       sync.Mutex
	claimed  map[int]bool
	highs    int
	lows     int
	released int
}

func newFakeConn() *fakeConn {
	return &fakeConn{claimed: map[int]bool{}}
}

func (f *fakeConn) Claim(pin int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.claimed[pin] = true
	return nil
}

func (f *fakeConn) Drive(pin int, level gpio.Level) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if level {
		f.highs++
	} else {
		f.lows++
	}
	return nil
}

func (f *fakeConn) Release(pin int, reset gpio.Reset) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.claimed, pin)
	f.released++
	return nil
}

func (f *fakeConn) Close() error { return nil }

func (f *fakeConn) snapshot() (highs, lows, released int, claimed bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.highs, f.lows, f.released, len(f.claimed) > 0
}

func TestNewValidation(t *testing.T) {
	conn := newFakeConn()

	for name, cfg := range map[string]Config{
		"no pin":          {Name: "valve", MinPulse: time.Millisecond, MaxPulse: 2 * time.Millisecond},
		"inverted range":  {Name: "valve", Pin: 7, MinPulse: 2 * time.Millisecond, MaxPulse: time.Millisecond},
		"zero min":        {Name: "valve", Pin: 7, MaxPulse: 2 * time.Millisecond},
		"pulse vs period": {Name: "valve", Pin: 7, Period: time.Millisecond, MinPulse: time.Millisecond, MaxPulse: 2 * time.Millisecond},
	} {
		if _, err := New(conn, cfg); err == nil {
			t.Errorf("%s: config %+v should not validate", name, cfg)
		}
	}
}

func TestAngleMapping(t *testing.T) {
	conn := newFakeConn()

	m, err := New(conn, Config{
		Name:     "valve",
		Pin:      7,
		Period:   20 * time.Millisecond,
		MinPulse: time.Millisecond,
		MaxPulse: 2 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("New: %s", err)
	}

	// A fresh motor sits at 0 degrees.
	if got := m.PulseWidth(); got != time.Millisecond {
		t.Fatalf("initial pulse width %v, want 1ms", got)
	}

	for angle, want := range map[float64]time.Duration{
		0:   time.Millisecond,
		90:  1500 * time.Microsecond,
		180: 2 * time.Millisecond,
	} {
		if err := m.SetAngle(angle); err != nil {
			t.Fatalf("SetAngle(%v): %s", angle, err)
		}
		if got := m.PulseWidth(); got != want {
			t.Errorf("pulse width at %v degrees is %v, want %v", angle, got, want)
		}
		if got := m.Angle(); got != angle {
			t.Errorf("angle reads %v, want %v", got, angle)
		}
	}

	for _, angle := range []float64{-1, 181} {
		if err := m.SetAngle(angle); err == nil || !strings.Contains(err.Error(), "out of range") {
			t.Errorf("SetAngle(%v) = %v, want an out of range error", angle, err)
		}
	}
}

func TestRun(t *testing.T) {
	conn := newFakeConn()

	m, err := New(conn, Config{
		Name:     "valve",
		Pin:      7,
		Period:   4 * time.Millisecond,
		MinPulse: time.Millisecond,
		MaxPulse: 2 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("New: %s", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	if err := m.SetAngle(90); err != nil {
		t.Fatalf("SetAngle: %s", err)
	}
	time.Sleep(30 * time.Millisecond)

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %s", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run never returned after cancel")
	}

	highs, lows, released, claimed := conn.snapshot()
	if highs < 5 || lows < 5 {
		t.Fatalf("signal loop drove %d highs and %d lows, want several of each", highs, lows)
	}
	if released != 1 || claimed {
		t.Fatalf("pin should be released exactly once after Run (released %d, claimed %t)", released, claimed)
	}
}
