package led

import (
	"fmt"

	"github.com/cjeanneret/WalkerGo/internal/debug"
	"github.com/cjeanneret/WalkerGo/internal/logic/actuator"
)

// Output is a dimmable light source driven in percent.
type Output interface {
	SetLevel(percent int) error
}

// Controller applies on/off and brightness to the indicator LED.
// The brightness is remembered while the LED is off.
type Controller struct {
	out   Output
	state *actuator.State
}

func NewController(out Output, state *actuator.State) *Controller {
	return &Controller{out: out, state: state}
}

// SetState switches the LED on (at the stored brightness) or off.
func (c *Controller) SetState(on bool) {
	c.state.SetLEDOn(on)
	c.apply()
}

// SetBrightness stores b clamped to [0,100] and returns the stored value.
// The output only changes while the LED is on.
func (c *Controller) SetBrightness(b int) int {
	stored := c.state.SetLEDBrightness(b)
	if c.state.LEDOn() {
		c.apply()
	}
	return stored
}

// Toggle inverts the on/off state.
func (c *Controller) Toggle() {
	c.SetState(!c.state.LEDOn())
}

// On reports whether the LED is lit.
func (c *Controller) On() bool { return c.state.LEDOn() }

// Brightness returns the stored brightness.
func (c *Controller) Brightness() int { return c.state.LEDBrightness() }

// StatusString reports the LED state for the controller.
func (c *Controller) StatusString() string { return c.state.LEDStatus() }

func (c *Controller) apply() {
	level := 0
	if c.state.LEDOn() {
		level = c.state.LEDBrightness()
	}
	debug.Verbose("LED on=%v level=%d%%", c.state.LEDOn(), level)
	if err := c.out.SetLevel(level); err != nil {
		debug.Error(fmt.Errorf("led output %d%%: %w", level, err))
	}
}
