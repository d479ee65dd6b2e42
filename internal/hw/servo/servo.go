package servo

import (
	"fmt"
	"time"

	"github.com/cjeanneret/WalkerGo/internal/debug"
	"github.com/cjeanneret/WalkerGo/internal/hw/gpio"
)

// Angle range accepted by a hobby servo.
const (
	MinAngle = 0
	MaxAngle = 180
)

// Config holds the hardware configuration for a PWM hobby servo.
type Config struct {
	Pin        int
	MinPulse   time.Duration // pulse width at 0°. 0 = 500µs.
	MaxPulse   time.Duration // pulse width at 180°. 0 = 2500µs.
	FrameHz    int           // PWM frame rate. 0 = 50Hz.
	Resolution uint32        // PWM clock ticks per frame. 0 = 1280.
}

func (c Config) withDefaults() Config {
	if c.MinPulse <= 0 {
		c.MinPulse = 500 * time.Microsecond
	}
	if c.MaxPulse <= 0 {
		c.MaxPulse = 2500 * time.Microsecond
	}
	if c.FrameHz <= 0 {
		c.FrameHz = 50
	}
	if c.Resolution == 0 {
		c.Resolution = 1280
	}
	return c
}

// Servo drives one PWM servo (or several wired in parallel on the same pin).
// It is open loop: the last written angle is remembered, never measured.
type Servo struct {
	gpio  gpio.Driver
	cfg   Config
	angle int
}

// NewServo configures the PWM pin for the servo frame rate.
func NewServo(g gpio.Driver, cfg Config) (*Servo, error) {
	cfg = cfg.withDefaults()
	if cfg.MaxPulse <= cfg.MinPulse {
		return nil, fmt.Errorf("servo pin %d: max pulse %v must exceed min pulse %v", cfg.Pin, cfg.MaxPulse, cfg.MinPulse)
	}
	frame := time.Second / time.Duration(cfg.FrameHz)
	if cfg.MaxPulse >= frame {
		return nil, fmt.Errorf("servo pin %d: max pulse %v does not fit in a %v frame", cfg.Pin, cfg.MaxPulse, frame)
	}
	if err := g.SetupPWM(cfg.Pin, cfg.FrameHz*int(cfg.Resolution)); err != nil {
		return nil, fmt.Errorf("servo pin %d: %w", cfg.Pin, err)
	}
	return &Servo{gpio: g, cfg: cfg, angle: -1}, nil
}

// Write moves the servo to angle, clamped to [0,180].
func (s *Servo) Write(angle int) error {
	angle = Clamp(angle)
	duty := DutyFor(angle, s.cfg)
	debug.Trace("Servo pin %d: %d° (duty %d/%d)", s.cfg.Pin, angle, duty, s.cfg.Resolution)
	if err := s.gpio.SetDuty(s.cfg.Pin, duty, s.cfg.Resolution); err != nil {
		return err
	}
	s.angle = angle
	return nil
}

// Angle returns the last written angle, or -1 if nothing was written yet.
func (s *Servo) Angle() int {
	return s.angle
}

// Release stops driving the servo (no holding torque).
func (s *Servo) Release() error {
	return s.gpio.SetDuty(s.cfg.Pin, 0, s.cfg.Resolution)
}

// Clamp restricts angle to [MinAngle, MaxAngle].
func Clamp(angle int) int {
	if angle < MinAngle {
		return MinAngle
	}
	if angle > MaxAngle {
		return MaxAngle
	}
	return angle
}

// DutyFor converts an angle to PWM clock ticks for the given configuration.
// The pulse is linearly interpolated between MinPulse and MaxPulse.
func DutyFor(angle int, cfg Config) uint32 {
	cfg = cfg.withDefaults()
	angle = Clamp(angle)
	span := cfg.MaxPulse - cfg.MinPulse
	pulse := cfg.MinPulse + span*time.Duration(angle)/MaxAngle
	frame := time.Second / time.Duration(cfg.FrameHz)
	return uint32(int64(pulse) * int64(cfg.Resolution) / int64(frame))
}
