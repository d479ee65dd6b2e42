package pwmled

import (
	"fmt"

	"github.com/cjeanneret/WalkerGo/internal/debug"
	"github.com/cjeanneret/WalkerGo/internal/hw/gpio"
)

// Config holds the hardware configuration for a dimmable LED.
type Config struct {
	Pin        int
	FreqHz     int    // PWM frequency. 0 = 1000Hz.
	Resolution uint32 // PWM clock ticks per period. 0 = 255 (8-bit).
}

// LED drives an LED through a pin. Levels are percentages. On a hardware PWM
// pin the level is the duty cycle; on any other pin the LED is simply on for
// every level above 0.
type LED struct {
	gpio gpio.Driver
	cfg  Config
	pwm  bool
}

// New configures the pin and switches the LED off.
func New(g gpio.Driver, cfg Config) (*LED, error) {
	if cfg.FreqHz <= 0 {
		cfg.FreqHz = 1000
	}
	if cfg.Resolution == 0 {
		cfg.Resolution = 255
	}
	l := &LED{gpio: g, cfg: cfg}
	if _, ok := gpio.PWMChannel(cfg.Pin); ok {
		if err := g.SetupPWM(cfg.Pin, cfg.FreqHz*int(cfg.Resolution)); err != nil {
			return nil, fmt.Errorf("led pin %d: %w", cfg.Pin, err)
		}
		l.pwm = true
	} else {
		debug.Verbose("LED pin %d has no hardware PWM, dimming disabled", cfg.Pin)
		if err := g.SetupPin(cfg.Pin, gpio.Output); err != nil {
			return nil, fmt.Errorf("led pin %d: %w", cfg.Pin, err)
		}
	}
	if err := l.SetLevel(0); err != nil {
		return nil, fmt.Errorf("led pin %d: %w", cfg.Pin, err)
	}
	return l, nil
}

// Dimmable reports whether the LED sits on a hardware PWM pin.
func (l *LED) Dimmable() bool { return l.pwm }

// SetLevel sets the output to percent (clamped to 0-100) of full brightness.
func (l *LED) SetLevel(percent int) error {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	if !l.pwm {
		debug.Trace("LED pin %d: %d%%", l.cfg.Pin, percent)
		return l.gpio.WritePin(l.cfg.Pin, gpio.Level(percent > 0))
	}
	duty := uint32(percent) * l.cfg.Resolution / 100
	debug.Trace("LED pin %d: %d%% (duty %d)", l.cfg.Pin, percent, duty)
	return l.gpio.SetDuty(l.cfg.Pin, duty, l.cfg.Resolution)
}
