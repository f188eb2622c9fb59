package gpio

import (
	"encoding/binary"
	"fmt"
	"net"
	"sync"
)

// Pigpio represents a connection to the pigpio daemon's socket interface.
type Pigpio struct {
	mu          sync.Mutex
	conn        net.Conn
	frequencies map[int]uint32 // hardware PWM carrier per BCM number
}

// compile time check for whether Pigpio satisfies the GPIO interfaces
var (
	_ GPIO        = &Pigpio{}
	_ HardwarePWM = &Pigpio{}
)

// DialPigpio dials into the pigpio socket interface (normally running on port 8888)
func DialPigpio(addr string) (*Pigpio, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("couldn't dial into pigpio socket: %w", err)
	}

	return &Pigpio{conn: conn, frequencies: map[int]uint32{}}, nil
}

// Close closes the underlying pigpio socket interface connection
func (p *Pigpio) Close() error {
	if p.conn == nil {
		return fmt.Errorf("connection is already closed")
	}

	return p.conn.Close()
}

// frame is the fixed part of every pigpio socket request and response.
type frame struct {
	Cmd uint32
	P1  uint32
	P2  uint32
	P3  uint32
}

const (
	modes uint32 = 0
	write uint32 = 4
	pigpv uint32 = 26
	hp    uint32 = 86
)

const (
	modeInput  uint32 = 0
	modeOutput uint32 = 1
)

// Claim puts a pin into output mode. The daemon holds the last written level
// on the line until the mode changes again.
func (p *Pigpio) Claim(pin int) error {
	bcm, err := BCM(pin)
	if err != nil {
		return err
	}

	if _, err := p.command(modes, uint32(bcm), modeOutput); err != nil {
		return fmt.Errorf("unable to set pin %d to output mode: %w", pin, err)
	}

	return nil
}

// Drive sets a claimed pin to LOW or HIGH.
func (p *Pigpio) Drive(pin int, level Level) error {
	bcm, err := BCM(pin)
	if err != nil {
		return err
	}

	var rawLevel uint32
	if level {
		rawLevel = 1
	}

	if _, err := p.command(write, uint32(bcm), rawLevel); err != nil {
		return fmt.Errorf("unable to write pin %d: %w", pin, err)
	}

	return nil
}

// Release gives the pin back. Float puts it into input mode; Preserve leaves
// it in output mode so the daemon keeps driving the last level.
func (p *Pigpio) Release(pin int, reset Reset) error {
	if reset == Preserve {
		return nil
	}

	bcm, err := BCM(pin)
	if err != nil {
		return err
	}

	if _, err := p.command(modes, uint32(bcm), modeInput); err != nil {
		return fmt.Errorf("unable to set pin %d to input mode: %w", pin, err)
	}

	return nil
}

// SupportsHardwarePWM reports whether the pin sits on one of the PWM pads.
func (p *Pigpio) SupportsHardwarePWM(pin int) bool {
	bcm, err := BCM(pin)
	if err != nil {
		return false
	}

	return pwmCapable(bcm)
}

// ConfigurePWM starts hardware PWM on the pin at the given carrier frequency
// with a duty cycle of zero.
func (p *Pigpio) ConfigurePWM(pin int, frequency int) error {
	bcm, err := BCM(pin)
	if err != nil {
		return err
	}

	if !pwmCapable(bcm) {
		return fmt.Errorf("pin %d has no PWM peripheral", pin)
	}

	p.mu.Lock()
	p.frequencies[bcm] = uint32(frequency)
	p.mu.Unlock()

	if err := p.hardwarePWM(uint32(bcm), uint32(frequency), 0); err != nil {
		return fmt.Errorf("unable to configure pwm on pin %d: %w", pin, err)
	}

	return nil
}

// SetDuty sets the duty cycle (0 to 1) of a pin configured with ConfigurePWM.
func (p *Pigpio) SetDuty(pin int, duty float64) error {
	bcm, err := BCM(pin)
	if err != nil {
		return err
	}

	p.mu.Lock()
	frequency, ok := p.frequencies[bcm]
	p.mu.Unlock()
	if !ok {
		return fmt.Errorf("pin %d PWM is not configured", pin)
	}

	if duty < 0 || duty > 1 {
		return fmt.Errorf("duty cycle %v is out of range 0 to 1", duty)
	}

	if err := p.hardwarePWM(uint32(bcm), frequency, uint32(float64(1000000)*duty)); err != nil {
		return fmt.Errorf("unable to set pwm duty cycle on pin %d: %w", pin, err)
	}

	return nil
}

// Version reports the version of the connected pigpio daemon.
func (p *Pigpio) Version() (uint32, error) {
	version, err := p.command(pigpv, 0, 0)
	if err != nil {
		return 0, fmt.Errorf("unable to get pigpio version: %w", err)
	}

	return version, nil
}

// command runs one request/response exchange over the socket. The result
// word of the response doubles as an error code when negative.
func (p *Pigpio) command(cmd, p1, p2 uint32) (uint32, error) {
	if p.conn == nil {
		return 0, fmt.Errorf("not connected to pigpio socket interface")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	request := frame{Cmd: cmd, P1: p1, P2: p2}
	if err := binary.Write(p.conn, binary.LittleEndian, request); err != nil {
		return 0, fmt.Errorf("unable to write request to socket: %w", err)
	}

	var response frame
	if err := binary.Read(p.conn, binary.LittleEndian, &response); err != nil {
		return 0, fmt.Errorf("unable to read response from socket: %w", err)
	}

	if res := int32(response.P3); res < 0 {
		return 0, fmt.Errorf("pigpio error %d", res)
	}

	return response.P3, nil
}

// hardwarePWM sets the frequency (1-125,000,000) and duty cycle
// (0-1,000,000) for hardware PWM on a BCM pin. The duty cycle rides in a one
// word extension, so the request doesn't fit the fixed frame.
func (p *Pigpio) hardwarePWM(bcm, frequency, duty uint32) error {
	if p.conn == nil {
		return fmt.Errorf("not connected to pigpio socket interface")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	request := struct {
		Cmd uint32
		P1  uint32
		P2  uint32
		P3  uint32
		Ext uint32
	}{
		Cmd: hp,
		P1:  bcm,
		P2:  frequency,
		P3:  4, // length of the extension in bytes
		Ext: duty,
	}

	if err := binary.Write(p.conn, binary.LittleEndian, request); err != nil {
		return fmt.Errorf("unable to write request to socket: %w", err)
	}

	var response frame
	if err := binary.Read(p.conn, binary.LittleEndian, &response); err != nil {
		return fmt.Errorf("unable to read response from socket: %w", err)
	}

	if res := int32(response.P3); res < 0 {
		return fmt.Errorf("pigpio error %d", res)
	}

	return nil
}
