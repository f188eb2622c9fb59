package gpio

import "fmt"

// bcmByPhysical maps positions on the 40 pin J8 header to BCM GPIO numbers.
// Power, ground, and the ID EEPROM positions are absent.
var bcmByPhysical = map[int]int{
	3:  2,
	5:  3,
	7:  4,
	8:  14,
	10: 15,
	11: 17,
	12: 18,
	13: 27,
	15: 22,
	16: 23,
	18: 24,
	19: 10,
	21: 9,
	22: 25,
	23: 11,
	24: 8,
	26: 7,
	29: 5,
	31: 6,
	32: 12,
	33: 13,
	35: 19,
	36: 16,
	37: 26,
	38: 20,
	40: 21,
}

// BCM translates a physical header position to its BCM GPIO number.
func BCM(pin int) (int, error) {
	bcm, ok := bcmByPhysical[pin]
	if !ok {
		return 0, fmt.Errorf("pin %d is not a GPIO position on the J8 header", pin)
	}

	return bcm, nil
}

// pwmCapable reports whether a BCM GPIO is wired to one of the PWM0/PWM1 pads.
func pwmCapable(bcm int) bool {
	switch bcm {
	case 12, 13, 18, 19:
		return true
	}

	return false
}
