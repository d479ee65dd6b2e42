package gpio

import (
	"github.com/cjeanneret/WalkerGo/internal/debug"
)

// Level represents the logical state of a GPIO pin.
type Level bool

const (
	Low  Level = false
	High Level = true
)

// PinMode indicates whether a GPIO is input, output or hardware PWM.
type PinMode int

const (
	Input PinMode = iota
	Output
	PWM
)

// Driver defines the abstract interface for controlling GPIOs.
// This allows plugging in a real Raspberry Pi implementation
// or a mock for development on PC.
type Driver interface {
	SetupPin(pin int, mode PinMode) error
	WritePin(pin int, level Level) error
	// SetupPWM puts pin in PWM mode with the given PWM clock frequency (Hz).
	SetupPWM(pin int, clockHz int) error
	// SetDuty sets the high time of a PWM pin as duty out of cycle clock ticks.
	SetDuty(pin int, duty, cycle uint32) error
	Close() error
}

// MockDriver is a test implementation that simply logs actions.
// Used for development on PC or testing.
type MockDriver struct{}

// NewDriver creates a GPIO driver based on the chosen mode.
// If mock is true, returns a MockDriver (for dev/test).
// If mock is false, returns a real RPiDriver (for Raspberry Pi).
func NewDriver(mock bool) (Driver, error) {
	if mock {
		debug.Info("Using MOCK GPIO driver (development mode)")
		return &MockDriver{}, nil
	}
	return NewRPiRealDriver()
}

func (m *MockDriver) SetupPin(pin int, mode PinMode) error {
	debug.GPIO("SetupPin", pin, mode)
	return nil
}

func (m *MockDriver) WritePin(pin int, level Level) error {
	debug.GPIO("WritePin", pin, level)
	return nil
}

func (m *MockDriver) SetupPWM(pin int, clockHz int) error {
	debug.GPIO("SetupPWM", pin, clockHz)
	return nil
}

func (m *MockDriver) SetDuty(pin int, duty, cycle uint32) error {
	debug.PWM(pin, duty, cycle)
	return nil
}

func (m *MockDriver) Close() error {
	debug.Trace("GPIO Close (mock)")
	return nil
}

// PWMChannel returns the Raspberry Pi hardware PWM channel behind a BCM pin.
// Pins on the same channel always carry the same duty cycle.
func PWMChannel(pin int) (int, bool) {
	switch pin {
	case 12, 18:
		return 0, true
	case 13, 19:
		return 1, true
	default:
		return 0, false
	}
}
