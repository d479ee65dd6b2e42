// Package actuator holds the last commanded state of every actuator.
// The robot is open loop: these values are what was written, not what was
// measured.
package actuator

import "fmt"

// Limits and defaults.
const (
	MinBrightness = 0
	MaxBrightness = 100

	MinAngle     = 0
	MaxAngle     = 180
	NeutralAngle = 90
)

// Side selects a leg.
type Side int

const (
	Left Side = iota
	Right
)

func (s Side) String() string {
	if s == Left {
		return "left"
	}
	return "right"
}

// State is the actuator state shared by the LED and gait controllers.
// It is owned by the control loop and needs no locking.
type State struct {
	ledOn         bool
	ledBrightness int
	leftAngle     int
	rightAngle    int
}

// New returns the power-on state: LED off at full brightness, legs neutral.
func New() *State {
	return &State{
		ledBrightness: MaxBrightness,
		leftAngle:     NeutralAngle,
		rightAngle:    NeutralAngle,
	}
}

// LEDOn reports whether the LED is lit.
func (s *State) LEDOn() bool { return s.ledOn }

// LEDBrightness returns the remembered brightness, kept across off/on.
func (s *State) LEDBrightness() int { return s.ledBrightness }

// SetLEDOn records the LED on/off state.
func (s *State) SetLEDOn(on bool) { s.ledOn = on }

// SetLEDBrightness stores b clamped to [0,100] and returns the stored value.
func (s *State) SetLEDBrightness(b int) int {
	s.ledBrightness = ClampBrightness(b)
	return s.ledBrightness
}

// LegAngle returns the stored angle of one leg.
func (s *State) LegAngle(side Side) int {
	if side == Left {
		return s.leftAngle
	}
	return s.rightAngle
}

// SetLegAngle stores a clamped to [0,180] and returns the stored value.
func (s *State) SetLegAngle(side Side, a int) int {
	a = ClampAngle(a)
	if side == Left {
		s.leftAngle = a
	} else {
		s.rightAngle = a
	}
	return a
}

// LEDStatus is the human readable LED report.
func (s *State) LEDStatus() string {
	if s.ledOn {
		return fmt.Sprintf("LED is on, brightness %d%%", s.ledBrightness)
	}
	return "LED is off"
}

// LegStatus is the human readable leg report.
func (s *State) LegStatus() string {
	return fmt.Sprintf("left leg %d°, right leg %d°", s.leftAngle, s.rightAngle)
}

// Snapshot is a copy of the state, safe to hand to other goroutines.
type Snapshot struct {
	LEDOn         bool `json:"led_on"`
	LEDBrightness int  `json:"led_brightness"`
	LeftLegAngle  int  `json:"left_leg_angle"`
	RightLegAngle int  `json:"right_leg_angle"`
}

// Snapshot copies the current state.
func (s *State) Snapshot() Snapshot {
	return Snapshot{
		LEDOn:         s.ledOn,
		LEDBrightness: s.ledBrightness,
		LeftLegAngle:  s.leftAngle,
		RightLegAngle: s.rightAngle,
	}
}

// ClampBrightness restricts b to [MinBrightness, MaxBrightness].
func ClampBrightness(b int) int {
	return clamp(b, MinBrightness, MaxBrightness)
}

// ClampAngle restricts a to [MinAngle, MaxAngle].
func ClampAngle(a int) int {
	return clamp(a, MinAngle, MaxAngle)
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
