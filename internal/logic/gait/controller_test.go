package gait

import (
	"errors"
	"testing"
	"time"

	"github.com/cjeanneret/WalkerGo/internal/logic/actuator"
)

// recordingServo records every angle written.
type recordingServo struct {
	writes []int
	err    error
}

func (s *recordingServo) Write(angle int) error {
	s.writes = append(s.writes, angle)
	return s.err
}

// recordingSleep records requested waits without sleeping.
type recordingSleep struct {
	waits []time.Duration
}

func (r *recordingSleep) sleep(d time.Duration) {
	r.waits = append(r.waits, d)
}

func newTestController() (*Controller, *recordingServo, *recordingServo, *recordingSleep, *actuator.State) {
	left := &recordingServo{}
	right := &recordingServo{}
	rec := &recordingSleep{}
	state := actuator.New()
	c := NewController(left, right, state, DefaultTiming(), rec.sleep)
	return c, left, right, rec, state
}

func TestController_SetLegClamps(t *testing.T) {
	cases := []struct {
		in, want int
	}{
		{-5, 0}, {0, 0}, {45, 45}, {180, 180}, {200, 180},
	}
	for _, tc := range cases {
		c, left, right, _, state := newTestController()
		if got := c.MoveLeftLeg(tc.in); got != tc.want {
			t.Errorf("MoveLeftLeg(%d) = %d, want %d", tc.in, got, tc.want)
		}
		if got := c.MoveRightLeg(tc.in); got != tc.want {
			t.Errorf("MoveRightLeg(%d) = %d, want %d", tc.in, got, tc.want)
		}
		if state.LegAngle(actuator.Left) != tc.want || state.LegAngle(actuator.Right) != tc.want {
			t.Errorf("stored = (%d,%d), want %d", state.LegAngle(actuator.Left), state.LegAngle(actuator.Right), tc.want)
		}
		if left.writes[0] != tc.want || right.writes[0] != tc.want {
			t.Errorf("servo writes = %v %v, want %d", left.writes, right.writes, tc.want)
		}
	}
}

func TestController_MoveLegsClamped(t *testing.T) {
	c, _, _, rec, _ := newTestController()
	got := c.MoveLegs(200, -5)
	if got != (Pose{Left: 180, Right: 0}) {
		t.Errorf("MoveLegs = %+v, want (180,0)", got)
	}
	if len(rec.waits) != 0 {
		t.Errorf("direct writes should not wait, got %v", rec.waits)
	}
}

func TestController_StandUpFromAnyPose(t *testing.T) {
	starts := []Pose{{0, 0}, {180, 180}, {37, 143}, {90, 90}}
	for _, start := range starts {
		c, left, right, rec, _ := newTestController()
		c.MoveLegs(start.Left, start.Right)
		left.writes, right.writes = nil, nil

		c.StandUp()

		if c.Pose() != Neutral {
			t.Errorf("from %+v: pose = %+v, want neutral", start, c.Pose())
		}
		if want := []int{180, 90}; !equalInts(left.writes, want) {
			t.Errorf("left writes = %v, want %v", left.writes, want)
		}
		if want := []int{0, 90}; !equalInts(right.writes, want) {
			t.Errorf("right writes = %v, want %v", right.writes, want)
		}
		if len(rec.waits) != 2 || rec.waits[0] != time.Second {
			t.Errorf("waits = %v, want two 1s waits", rec.waits)
		}
	}
}

func TestController_WalkForwardSequence(t *testing.T) {
	c, left, right, rec, _ := newTestController()
	c.WalkForward()

	want := []int{45, 30, 120, 150, 90}
	if !equalInts(left.writes, want) || !equalInts(right.writes, want) {
		t.Errorf("writes = %v / %v, want %v", left.writes, right.writes, want)
	}
	if len(rec.waits) != 5 {
		t.Fatalf("expected 5 waits, got %d", len(rec.waits))
	}
	for _, w := range rec.waits {
		if w != 500*time.Millisecond {
			t.Errorf("wait = %v, want 500ms", w)
		}
	}
}

func TestController_WalkBackwardSequence(t *testing.T) {
	c, left, _, _, _ := newTestController()
	c.WalkBackward()

	want := []int{120, 150, 45, 30, 90}
	if !equalInts(left.writes, want) {
		t.Errorf("writes = %v, want %v", left.writes, want)
	}
}

func TestController_WalkCyclesAreSelfClosing(t *testing.T) {
	c, _, _, _, _ := newTestController()
	c.MoveLegs(10, 170)
	c.WalkForward()
	c.WalkBackward()
	if c.Pose() != Neutral {
		t.Errorf("pose = %+v, want neutral", c.Pose())
	}
}

func TestController_StopWalkIdempotent(t *testing.T) {
	c, left, _, rec, _ := newTestController()
	c.StopWalk()
	c.StopWalk()
	if c.Pose() != Neutral {
		t.Errorf("pose = %+v, want neutral", c.Pose())
	}
	if !equalInts(left.writes, []int{90, 90}) {
		t.Errorf("writes = %v", left.writes)
	}
	if len(rec.waits) != 2 || rec.waits[1] != time.Second {
		t.Errorf("waits = %v", rec.waits)
	}
}

func TestController_LeftLegForwardSweep(t *testing.T) {
	c, left, right, rec, _ := newTestController()
	c.LeftLegForward()

	if len(left.writes) != 18 {
		t.Fatalf("expected 18 steps from 90 to 180, got %d: %v", len(left.writes), left.writes)
	}
	if left.writes[0] != 95 || left.writes[17] != 180 {
		t.Errorf("sweep = %v", left.writes)
	}
	for i := 1; i < len(left.writes); i++ {
		if left.writes[i]-left.writes[i-1] != 5 {
			t.Errorf("step %d: %d -> %d", i, left.writes[i-1], left.writes[i])
		}
	}
	if len(right.writes) != 0 {
		t.Errorf("right leg should not move, got %v", right.writes)
	}
	if len(rec.waits) != 18 || rec.waits[0] != 50*time.Millisecond {
		t.Errorf("waits = %d x %v", len(rec.waits), rec.waits)
	}
}

func TestController_SweepAtBoundIsNoop(t *testing.T) {
	c, left, right, rec, _ := newTestController()
	c.MoveLegs(180, 0)
	left.writes, right.writes = nil, nil

	c.LeftLegForward()
	c.RightLegForward()

	if len(left.writes) != 0 || len(right.writes) != 0 {
		t.Errorf("expected no writes at bound, got %v / %v", left.writes, right.writes)
	}
	if len(rec.waits) != 0 {
		t.Errorf("expected no waits at bound, got %v", rec.waits)
	}
}

func TestController_SweepDirections(t *testing.T) {
	cases := []struct {
		name  string
		run   func(*Controller)
		side  actuator.Side
		bound int
	}{
		{"left_backward", (*Controller).LeftLegBackward, actuator.Left, 0},
		{"right_forward", (*Controller).RightLegForward, actuator.Right, 0},
		{"right_backward", (*Controller).RightLegBackward, actuator.Right, 180},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _, _, _, state := newTestController()
			tc.run(c)
			if state.LegAngle(tc.side) != tc.bound {
				t.Errorf("angle = %d, want %d", state.LegAngle(tc.side), tc.bound)
			}
		})
	}
}

func TestController_SweepFromOffGridAngleLandsOnBound(t *testing.T) {
	c, left, _, _, _ := newTestController()
	c.MoveLeftLeg(87)
	left.writes = nil

	c.LeftLegForward()

	last := left.writes[len(left.writes)-1]
	if last != 180 {
		t.Errorf("last write = %d, want 180", last)
	}
	if prev := left.writes[len(left.writes)-2]; prev != 177 {
		t.Errorf("second to last write = %d, want 177", prev)
	}
}

func TestController_ServoFaultStillStores(t *testing.T) {
	c, left, _, _, state := newTestController()
	left.err = errors.New("stalled")
	c.MoveLeftLeg(30)
	if state.LegAngle(actuator.Left) != 30 {
		t.Errorf("stored = %d, want 30", state.LegAngle(actuator.Left))
	}
}

func TestPhases_EndNeutral(t *testing.T) {
	for _, intent := range []Intent{StandUp, Forward, Backward, Stop} {
		p := Phases(intent)
		if len(p) == 0 {
			t.Fatalf("%s: no phases", intent)
		}
		if p[len(p)-1] != Neutral {
			t.Errorf("%s: last phase %+v, want neutral", intent, p[len(p)-1])
		}
	}
	if Phases("dance") != nil {
		t.Error("unknown intent should have no phases")
	}
}

func TestPhases_ReturnsCopy(t *testing.T) {
	p := Phases(Forward)
	p[0] = Pose{1, 1}
	if Phases(Forward)[0] != (Pose{45, 45}) {
		t.Error("Phases should not expose the shared table")
	}
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
