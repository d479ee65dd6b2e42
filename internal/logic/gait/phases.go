package gait

// Pose is a (left, right) leg angle pair.
type Pose struct {
	Left  int `json:"left"`
	Right int `json:"right"`
}

// Intent names a fixed multi-phase gait.
type Intent string

const (
	StandUp  Intent = "stand_up"
	Forward  Intent = "walk_forward"
	Backward Intent = "walk_backward"
	Stop     Intent = "stop"
)

// Neutral is the standing pose.
var Neutral = Pose{Left: 90, Right: 90}

var phaseTable = map[Intent][]Pose{
	StandUp: {
		{Left: 180, Right: 0},
		Neutral,
	},
	Forward: {
		{Left: 45, Right: 45},
		{Left: 30, Right: 30},
		{Left: 120, Right: 120},
		{Left: 150, Right: 150},
		Neutral,
	},
	Backward: {
		{Left: 120, Right: 120},
		{Left: 150, Right: 150},
		{Left: 45, Right: 45},
		{Left: 30, Right: 30},
		Neutral,
	},
	Stop: {
		Neutral,
	},
}

// Phases returns a copy of the phase sequence for intent, or nil if the
// intent is unknown. Every sequence ends in the neutral pose.
func Phases(intent Intent) []Pose {
	p, ok := phaseTable[intent]
	if !ok {
		return nil
	}
	out := make([]Pose, len(p))
	copy(out, p)
	return out
}
