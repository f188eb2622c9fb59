//go:build linux

package gpio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/warthog618/go-gpiocdev"
)

// gpiodConn drives pins through the Linux GPIO character device (libgpiod).
type gpiodConn struct {
	consumer string

	mu    sync.Mutex
	chip  *gpiocdev.Chip
	lines map[int]*gpiocdev.Line // requested lines keyed by BCM number
}

// NewGpiocdev opens the GPIO chip that exposes the 40 pin header lines. The
// consumer label shows up against claimed lines in gpioinfo; it defaults to
// pindrive.
func NewGpiocdev(consumer string) (GPIO, error) {
	if consumer == "" {
		consumer = "pindrive"
	}

	// The header lines live on gpiochip0 on most Pi kernels and gpiochip4
	// on some Pi 5 variants, so try those before scanning the rest.
	chipCandidates := []string{"/dev/gpiochip0", "/dev/gpiochip4"}
	entries, _ := os.ReadDir("/dev")
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, "gpiochip") {
			chipCandidates = append(chipCandidates, filepath.Join("/dev", name))
		}
	}

	for _, chipPath := range chipCandidates {
		chip, err := gpiocdev.NewChip(chipPath)
		if err != nil {
			continue
		}
		if _, err := chip.FindLine("GPIO4"); err != nil {
			_ = chip.Close()
			continue
		}
		return &gpiodConn{
			consumer: consumer,
			chip:     chip,
			lines:    map[int]*gpiocdev.Line{},
		}, nil
	}

	return nil, fmt.Errorf("no gpiochip with header GPIO lines found")
}

func (g *gpiodConn) Claim(pin int) error {
	bcm, err := BCM(pin)
	if err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.chip == nil {
		return fmt.Errorf("gpio character device is closed")
	}

	if _, ok := g.lines[bcm]; ok {
		return nil
	}

	offset, err := g.chip.FindLine(fmt.Sprintf("GPIO%d", bcm))
	if err != nil {
		return fmt.Errorf("unable to find line GPIO%d: %w", bcm, err)
	}

	line, err := g.chip.RequestLine(offset, gpiocdev.AsOutput(0), gpiocdev.WithConsumer(g.consumer))
	if err != nil {
		return fmt.Errorf("unable to request line GPIO%d: %w", bcm, err)
	}

	g.lines[bcm] = line
	return nil
}

func (g *gpiodConn) Drive(pin int, level Level) error {
	bcm, err := BCM(pin)
	if err != nil {
		return err
	}

	g.mu.Lock()
	line, ok := g.lines[bcm]
	g.mu.Unlock()
	if !ok {
		return fmt.Errorf("pin %d is not claimed", pin)
	}

	value := 0
	if level {
		value = 1
	}

	if err := line.SetValue(value); err != nil {
		return fmt.Errorf("unable to write pin %d: %w", pin, err)
	}

	return nil
}

// Release closes the pin's line request. On Float the line is put back to an
// input first; on Preserve it stays an output, which on the Pi keeps driving
// the last level after the request is gone.
func (g *gpiodConn) Release(pin int, reset Reset) error {
	bcm, err := BCM(pin)
	if err != nil {
		return err
	}

	g.mu.Lock()
	line, ok := g.lines[bcm]
	delete(g.lines, bcm)
	g.mu.Unlock()
	if !ok {
		return fmt.Errorf("pin %d is not claimed", pin)
	}

	if reset == Float {
		if err := line.Reconfigure(gpiocdev.AsInput); err != nil {
			_ = line.Close()
			return fmt.Errorf("unable to set pin %d to input: %w", pin, err)
		}
	}

	if err := line.Close(); err != nil {
		return fmt.Errorf("unable to close line GPIO%d: %w", bcm, err)
	}

	return nil
}

func (g *gpiodConn) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for bcm, line := range g.lines {
		_ = line.SetValue(0)
		_ = line.Close()
		delete(g.lines, bcm)
	}

	if g.chip == nil {
		return nil
	}

	err := g.chip.Close()
	g.chip = nil
	return err
}
