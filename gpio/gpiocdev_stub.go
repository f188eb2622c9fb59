//go:build !linux

package gpio

import "fmt"

// Stub implementation for non-Linux platforms.
func NewGpiocdev(consumer string) (GPIO, error) {
	return nil, fmt.Errorf("gpio character device unsupported on this platform")
}
