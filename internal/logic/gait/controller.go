package gait

import (
	"fmt"
	"time"

	"github.com/cjeanneret/WalkerGo/internal/debug"
	"github.com/cjeanneret/WalkerGo/internal/logic/actuator"
)

// Servo is the output side of one leg (both servos of a side are wired in
// parallel on one pin).
type Servo interface {
	Write(angle int) error
}

// Timing holds the waits between gait phases. These are policy, not
// correctness: tests run them with a recording sleep.
type Timing struct {
	StandDelay time.Duration // after each stand-up phase
	StepDelay  time.Duration // after each walk phase
	StopDelay  time.Duration // after returning to neutral on stop
	SweepDelay time.Duration // after each single-leg sweep step
	SweepStep  int           // degrees per sweep step
}

// DefaultTiming returns the firmware's stock timings.
func DefaultTiming() Timing {
	return Timing{
		StandDelay: 1000 * time.Millisecond,
		StepDelay:  500 * time.Millisecond,
		StopDelay:  1000 * time.Millisecond,
		SweepDelay: 50 * time.Millisecond,
		SweepStep:  5,
	}
}

// Controller turns gait intents into ordered, time-spaced leg writes.
// It is an intermediate layer between command dispatch and the servos.
// Every operation runs to completion before returning; waits block.
type Controller struct {
	left   Servo
	right  Servo
	state  *actuator.State
	timing Timing
	sleep  func(time.Duration)
}

// NewController creates a gait controller. A nil sleep uses time.Sleep.
func NewController(left, right Servo, state *actuator.State, timing Timing, sleep func(time.Duration)) *Controller {
	if sleep == nil {
		sleep = time.Sleep
	}
	if timing.SweepStep <= 0 {
		timing.SweepStep = DefaultTiming().SweepStep
	}
	return &Controller{
		left:   left,
		right:  right,
		state:  state,
		timing: timing,
		sleep:  sleep,
	}
}

// SetLeg clamps angle, writes it to the leg's servo and stores it.
// A servo fault is logged; the stored angle is updated anyway since the
// write cannot be verified.
func (c *Controller) SetLeg(side actuator.Side, angle int) int {
	angle = c.state.SetLegAngle(side, angle)
	s := c.right
	if side == actuator.Left {
		s = c.left
	}
	if err := s.Write(angle); err != nil {
		debug.Error(fmt.Errorf("%s leg write %d°: %w", side, angle, err))
	}
	return angle
}

// MoveLeftLeg writes the left leg directly.
func (c *Controller) MoveLeftLeg(angle int) int {
	return c.SetLeg(actuator.Left, angle)
}

// MoveRightLeg writes the right leg directly.
func (c *Controller) MoveRightLeg(angle int) int {
	return c.SetLeg(actuator.Right, angle)
}

// MoveLegs writes both legs directly and returns the stored pose.
func (c *Controller) MoveLegs(left, right int) Pose {
	return Pose{
		Left:  c.SetLeg(actuator.Left, left),
		Right: c.SetLeg(actuator.Right, right),
	}
}

// Pose returns the current stored pose.
func (c *Controller) Pose() Pose {
	return Pose{
		Left:  c.state.LegAngle(actuator.Left),
		Right: c.state.LegAngle(actuator.Right),
	}
}

// StandUp spreads the legs to their bounds, then settles into the neutral
// stance, whatever the starting angles.
func (c *Controller) StandUp() {
	c.run(StandUp, c.timing.StandDelay)
}

// WalkForward performs one forward gait cycle, ending neutral.
func (c *Controller) WalkForward() {
	c.run(Forward, c.timing.StepDelay)
}

// WalkBackward performs one backward gait cycle, ending neutral.
func (c *Controller) WalkBackward() {
	c.run(Backward, c.timing.StepDelay)
}

// StopWalk returns both legs to neutral and waits for them to settle.
func (c *Controller) StopWalk() {
	c.run(Stop, c.timing.StopDelay)
}

// LeftLegForward sweeps the left leg toward 180°.
func (c *Controller) LeftLegForward() {
	c.sweep(actuator.Left, actuator.MaxAngle)
}

// LeftLegBackward sweeps the left leg toward 0°.
func (c *Controller) LeftLegBackward() {
	c.sweep(actuator.Left, actuator.MinAngle)
}

// RightLegForward sweeps the right leg toward 0° (the right servos are
// mounted mirrored).
func (c *Controller) RightLegForward() {
	c.sweep(actuator.Right, actuator.MinAngle)
}

// RightLegBackward sweeps the right leg toward 180°.
func (c *Controller) RightLegBackward() {
	c.sweep(actuator.Right, actuator.MaxAngle)
}

func (c *Controller) run(intent Intent, delay time.Duration) {
	phases := Phases(intent)
	debug.Verbose("Gait %s: %d phases", intent, len(phases))
	for i, p := range phases {
		c.SetLeg(actuator.Left, p.Left)
		c.SetLeg(actuator.Right, p.Right)
		debug.Pose(fmt.Sprintf("%s %d/%d", intent, i+1, len(phases)), p.Left, p.Right)
		c.sleep(delay)
	}
}

// sweep walks one leg toward bound in SweepStep increments. The last step
// lands exactly on the bound; a leg already at the bound is not written.
func (c *Controller) sweep(side actuator.Side, bound int) {
	angle := c.state.LegAngle(side)
	debug.Verbose("Sweep %s leg %d° -> %d°", side, angle, bound)
	for angle != bound {
		angle = stepToward(angle, bound, c.timing.SweepStep)
		c.SetLeg(side, angle)
		c.sleep(c.timing.SweepDelay)
	}
}

func stepToward(from, to, step int) int {
	if from < to {
		if from+step > to {
			return to
		}
		return from + step
	}
	if from-step < to {
		return to
	}
	return from - step
}

// StatusString reports both leg angles for the controller.
func (c *Controller) StatusString() string {
	return c.state.LegStatus()
}
