//go:build !linux

package gpio

import "fmt"

// Stub implementation for non-Linux platforms.
func NewRpio() (GPIO, error) {
	return nil, fmt.Errorf("memory mapped gpio unsupported on this platform")
}
