package gpio

import (
	"fmt"

	"github.com/cjeanneret/WalkerGo/internal/debug"
	"github.com/stianeikeland/go-rpio/v4"
)

// RPiDriver is the real implementation for Raspberry Pi using go-rpio.
type RPiDriver struct {
	pins map[int]rpio.Pin
	pwm  map[int]bool
}

// NewRPiRealDriver creates a real GPIO driver for Raspberry Pi.
// Requires running on a Raspberry Pi with access to /dev/gpiomem or as root.
// PWM pins additionally need /dev/mem (root) because the PWM clock is not
// exposed through gpiomem.
func NewRPiRealDriver() (*RPiDriver, error) {
	debug.Info("Initializing real GPIO driver (go-rpio)")

	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("failed to open GPIO: %w (are you running on a Raspberry Pi?)", err)
	}

	debug.Verbose("GPIO memory mapped successfully")

	return &RPiDriver{
		pins: make(map[int]rpio.Pin),
		pwm:  make(map[int]bool),
	}, nil
}

func (r *RPiDriver) SetupPin(pin int, mode PinMode) error {
	debug.GPIO("SetupPin", pin, mode)

	p := rpio.Pin(pin)
	r.pins[pin] = p

	switch mode {
	case Input:
		p.Input()
	case Output:
		p.Output()
	case PWM:
		p.Pwm()
		r.pwm[pin] = true
	default:
		return fmt.Errorf("unknown pin mode: %d", mode)
	}

	return nil
}

func (r *RPiDriver) WritePin(pin int, level Level) error {
	debug.GPIO("WritePin", pin, level)

	p, ok := r.pins[pin]
	if !ok {
		// Pin not setup yet, setup as output
		if err := r.SetupPin(pin, Output); err != nil {
			return err
		}
		p = r.pins[pin]
	}

	if level == High {
		p.High()
	} else {
		p.Low()
	}

	return nil
}

func (r *RPiDriver) SetupPWM(pin int, clockHz int) error {
	if clockHz <= 0 {
		return fmt.Errorf("pwm clock must be > 0, got %d", clockHz)
	}
	if err := r.SetupPin(pin, PWM); err != nil {
		return err
	}
	r.pins[pin].Freq(clockHz)
	return nil
}

func (r *RPiDriver) SetDuty(pin int, duty, cycle uint32) error {
	debug.PWM(pin, duty, cycle)

	if !r.pwm[pin] {
		return fmt.Errorf("pin %d is not configured for PWM", pin)
	}
	if cycle == 0 || duty > cycle {
		return fmt.Errorf("invalid duty cycle %d/%d on pin %d", duty, cycle, pin)
	}
	r.pins[pin].DutyCycle(duty, cycle)
	return nil
}

func (r *RPiDriver) Close() error {
	debug.Trace("GPIO Close (real driver)")

	// Reset all pins to input (safe state)
	for pin, p := range r.pins {
		debug.Verbose("Resetting pin %d to input", pin)
		p.Input()
	}

	return rpio.Close()
}
