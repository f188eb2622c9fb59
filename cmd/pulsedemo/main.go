package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/perfuselab/pindrive/gpio"
	"github.com/perfuselab/pindrive/pin"
	"github.com/perfuselab/pindrive/wave"
)

func main() {
	var pigpioAddr string
	var number int
	flag.StringVar(&pigpioAddr, "pigpio", "", "pigpiod socket address, empty for the simulated backend")
	flag.IntVar(&number, "pin", 7, "physical pin the servo signal line is on")
	flag.Parse()

	var conn gpio.GPIO = gpio.NewSim(gpio.SimConfig{})
	if pigpioAddr != "" {
		pigpio, err := gpio.DialPigpio(pigpioAddr)
		if err != nil {
			panic(err)
		}

		version, err := pigpio.Version()
		if err != nil {
			panic(err)
		}
		fmt.Println("pigpio version", version)

		conn = pigpio
	}
	defer conn.Close()

	servo := pin.New(conn, number)

	for {
		for width := 1.0; width <= 2; width += 0.05 {
			sweep(servo, width)
		}

		for width := 2.0; width >= 1; width -= 0.05 {
			sweep(servo, width)
		}
	}
}

// sweep holds the servo's command pulse at widthMs for a tenth of a second.
func sweep(servo *pin.Pin, widthMs float64) {
	err := servo.SoftPWM(wave.Spec{
		PulseWidth: time.Duration(widthMs * float64(time.Millisecond)),
		Frequency:  50,
		Duration:   100 * time.Millisecond,
	})
	if err != nil {
		panic(err)
	}
}
