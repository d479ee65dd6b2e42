package dispatch

import (
	"fmt"
	"strings"

	"github.com/cjeanneret/WalkerGo/internal/debug"
	"github.com/cjeanneret/WalkerGo/internal/logic/gait"
	"github.com/cjeanneret/WalkerGo/internal/protocol"
)

// LED is the indicator light as seen by the dispatcher.
type LED interface {
	SetState(on bool)
	SetBrightness(b int) int
	Toggle()
	On() bool
	Brightness() int
	StatusString() string
}

// Legs is the gait controller as seen by the dispatcher.
type Legs interface {
	StandUp()
	WalkForward()
	WalkBackward()
	StopWalk()
	LeftLegForward()
	LeftLegBackward()
	RightLegForward()
	RightLegBackward()
	MoveLegs(left, right int) gait.Pose
	MoveLeftLeg(angle int) int
	MoveRightLeg(angle int) int
	StatusString() string
}

// Display is the face controller as seen by the dispatcher.
type Display interface {
	ShowEmotion(name string) bool
	ShowText(text string) []string
	Clear()
}

// Restarter schedules a full process restart. The restart happens after the
// current status has been sent.
type Restarter interface {
	RequestRestart(reason string)
}

// Dispatcher routes decoded commands to the actuator controllers and
// produces the status report for each user-facing command.
type Dispatcher struct {
	led     LED
	legs    Legs
	display Display
	restart Restarter

	dropped uint64
	halted  bool
}

func New(led LED, legs Legs, display Display, restart Restarter) *Dispatcher {
	return &Dispatcher{
		led:     led,
		legs:    legs,
		display: display,
		restart: restart,
	}
}

// Dispatch decodes one inbound payload and handles it.
// It returns the status to send back, or "" when nothing should be sent.
func (d *Dispatcher) Dispatch(payload []byte) string {
	return d.Handle(protocol.Decode(payload))
}

// Dropped returns how many payloads were discarded as unroutable.
func (d *Dispatcher) Dropped() uint64 {
	return d.dropped
}

// Halted reports whether a restart was requested. Commands handled after
// that are ignored.
func (d *Dispatcher) Halted() bool {
	return d.halted
}

// Handle executes one command synchronously.
func (d *Dispatcher) Handle(cmd protocol.Command) string {
	if d.halted {
		debug.Verbose("Restart pending, %s ignored", cmd.Type())
		return ""
	}
	switch c := cmd.(type) {
	case protocol.Welcome:
		debug.Info("Controller says: %s", c.Message)
		return ""
	case protocol.HeartbeatAck:
		debug.Trace("Heartbeat acknowledged")
		return ""
	case protocol.LedControl:
		debug.Command(string(c.Type()), c.Action, c.FromUser)
		return d.handleLed(c)
	case protocol.ServoControl:
		debug.Command(string(c.Type()), c.Action, c.FromUser)
		return d.handleServo(c)
	case protocol.OledControl:
		debug.Command(string(c.Type()), c.Action, c.FromUser)
		return d.handleOled(c)
	case protocol.CustomCommand:
		debug.Command(string(c.Type()), c.Command, c.FromUser)
		return d.handleCustom(c)
	case protocol.AstrMessage:
		debug.Live("Message from %s on %s (private=%v): %q", c.SenderName, c.Platform, c.IsPrivate, c.MessageText)
		return d.handleText(c.MessageText)
	case protocol.Unknown:
		d.drop(c)
		return ""
	default:
		d.drop(protocol.Unknown{Reason: fmt.Sprintf("unhandled command %T", cmd)})
		return ""
	}
}

func (d *Dispatcher) drop(u protocol.Unknown) {
	d.dropped++
	debug.Verbose("Dropped payload #%d (type %q): %s", d.dropped, u.RawType, u.Reason)
}

func (d *Dispatcher) handleLed(c protocol.LedControl) string {
	switch c.Action {
	case "on":
		d.led.SetState(true)
		b := d.led.SetBrightness(c.Brightness)
		return ledOnStatus(b)
	case "off":
		d.led.SetState(false)
		return ledOffStatus
	case "toggle":
		d.led.Toggle()
		if d.led.On() {
			return ledOnStatus(d.led.SetBrightness(c.Brightness))
		}
		return ledOffStatus
	default:
		return unknownAction("led", c.Action)
	}
}

func (d *Dispatcher) handleServo(c protocol.ServoControl) string {
	switch c.Action {
	case "walk_forward":
		d.legs.WalkForward()
		return "walk forward cycle complete"
	case "walk_backward":
		d.legs.WalkBackward()
		return "walk backward cycle complete"
	case "stand_up":
		d.legs.StandUp()
		return "stand up complete"
	case "stop":
		d.legs.StopWalk()
		return "stopped, back to standing position"
	case "left_forward":
		d.legs.LeftLegForward()
		return "left leg forward complete"
	case "left_backward":
		d.legs.LeftLegBackward()
		return "left leg backward complete"
	case "right_forward":
		d.legs.RightLegForward()
		return "right leg forward complete"
	case "right_backward":
		d.legs.RightLegBackward()
		return "right leg backward complete"
	case "move_legs":
		p := d.legs.MoveLegs(c.LeftAngle, c.RightAngle)
		return fmt.Sprintf("legs moved to left %d°, right %d°", p.Left, p.Right)
	case "move_left":
		return fmt.Sprintf("left leg moved to %d°", d.legs.MoveLeftLeg(c.LeftAngle))
	case "move_right":
		return fmt.Sprintf("right leg moved to %d°", d.legs.MoveRightLeg(c.RightAngle))
	default:
		return unknownAction("servo", c.Action)
	}
}

func (d *Dispatcher) handleOled(c protocol.OledControl) string {
	switch c.Action {
	case "emotion":
		d.display.ShowEmotion(c.Content)
		return "display emotion: " + c.Content
	case "text":
		d.display.ShowText(c.Content)
		return "display text: " + c.Content
	case "clear":
		d.display.Clear()
		return "display cleared"
	default:
		return unknownAction("oled", c.Action)
	}
}

func (d *Dispatcher) handleCustom(c protocol.CustomCommand) string {
	switch {
	case c.Command == "restart":
		d.halted = true
		d.restart.RequestRestart("requested by " + orUnknown(c.FromUser))
		return "restarting"
	case c.Command == "status":
		return "device running normally"
	case strings.HasPrefix(c.Command, "led_"):
		switch c.Command {
		case "led_on":
			d.led.SetState(true)
			return "LED on"
		case "led_off":
			d.led.SetState(false)
			return ledOffStatus
		}
	}
	return unknownAction("custom", c.Command)
}

const ledOffStatus = "LED off"

func ledOnStatus(brightness int) string {
	return fmt.Sprintf("LED on, brightness %d%%", brightness)
}

func unknownAction(domain, action string) string {
	debug.Live("Unknown %s action %q", domain, action)
	return fmt.Sprintf("unknown %s action: %s", domain, action)
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
