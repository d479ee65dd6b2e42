// Package protocol defines the websocket messages exchanged between the
// robot and its controller.
//
// Inbound messages are decoded once, at the boundary, into a closed set of
// Command variants. Outbound messages are limited to status reports and
// heartbeats.
package protocol

import (
	"encoding/json"
	"fmt"
	"math"
)

// MessageType identifies the type of an inbound message
type MessageType string

const (
	TypeWelcome       MessageType = "welcome"
	TypeLedControl    MessageType = "led_control"
	TypeOledControl   MessageType = "oled_control"
	TypeServoControl  MessageType = "servo_control"
	TypeAstrMessage   MessageType = "astrbot_message"
	TypeCustomCommand MessageType = "custom_command"
	TypeHeartbeatAck  MessageType = "heartbeat_ack"
)

// Field defaults applied when a field is missing or not a number.
const (
	DefaultBrightness = 100
	DefaultAngle      = 90
)

// Command is one decoded inbound message. The set of implementations is
// closed: Welcome, LedControl, OledControl, ServoControl, AstrMessage,
// CustomCommand, HeartbeatAck and Unknown.
type Command interface {
	Type() MessageType
	isCommand()
}

// Welcome is the greeting sent by the controller after connecting.
type Welcome struct {
	Message string
}

// LedControl switches or dims the indicator LED.
type LedControl struct {
	Action     string
	Brightness int
	FromUser   string
}

// OledControl drives the display.
type OledControl struct {
	Action   string
	Content  string
	FromUser string
}

// ServoControl drives the legs.
type ServoControl struct {
	Action     string
	LeftAngle  int
	RightAngle int
	Angle      int
	FromUser   string
}

// AstrMessage is a relayed chat message scanned for keywords.
type AstrMessage struct {
	Platform    string
	SenderName  string
	MessageText string
	IsPrivate   bool
}

// CustomCommand is a device-level command (restart, status, led_*).
type CustomCommand struct {
	Command  string
	FromUser string
}

// HeartbeatAck acknowledges a heartbeat.
type HeartbeatAck struct{}

// Unknown is any payload that could not be routed: invalid JSON, a missing
// type, or a type this firmware does not handle.
type Unknown struct {
	RawType string
	Reason  string
}

func (Welcome) Type() MessageType       { return TypeWelcome }
func (LedControl) Type() MessageType    { return TypeLedControl }
func (OledControl) Type() MessageType   { return TypeOledControl }
func (ServoControl) Type() MessageType  { return TypeServoControl }
func (AstrMessage) Type() MessageType   { return TypeAstrMessage }
func (CustomCommand) Type() MessageType { return TypeCustomCommand }
func (HeartbeatAck) Type() MessageType  { return TypeHeartbeatAck }
func (u Unknown) Type() MessageType     { return MessageType(u.RawType) }

func (Welcome) isCommand()       {}
func (LedControl) isCommand()    {}
func (OledControl) isCommand()   {}
func (ServoControl) isCommand()  {}
func (AstrMessage) isCommand()   {}
func (CustomCommand) isCommand() {}
func (HeartbeatAck) isCommand()  {}
func (Unknown) isCommand()       {}

// Decode parses one inbound payload. It never fails: anything that cannot be
// routed becomes Unknown with the reason filled in.
func Decode(data []byte) Command {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return Unknown{Reason: fmt.Sprintf("invalid payload: %v", err)}
	}
	f := rawFields(fields)

	typ, ok := f.stringOK("type")
	if !ok || typ == "" {
		return Unknown{Reason: "missing type"}
	}

	switch MessageType(typ) {
	case TypeWelcome:
		return Welcome{Message: f.getString("message")}
	case TypeLedControl:
		return LedControl{
			Action:     f.getString("action"),
			Brightness: f.getInt("brightness", DefaultBrightness),
			FromUser:   f.getString("from_user"),
		}
	case TypeOledControl:
		return OledControl{
			Action:   f.getString("action"),
			Content:  f.getString("content"),
			FromUser: f.getString("from_user"),
		}
	case TypeServoControl:
		// "angle" is the older single-angle field; per-leg fields win.
		angle := f.getInt("angle", DefaultAngle)
		return ServoControl{
			Action:     f.getString("action"),
			LeftAngle:  f.getInt("left_angle", angle),
			RightAngle: f.getInt("right_angle", angle),
			Angle:      angle,
			FromUser:   f.getString("from_user"),
		}
	case TypeAstrMessage:
		return AstrMessage{
			Platform:    f.getString("platform"),
			SenderName:  f.getString("sender_name"),
			MessageText: f.getString("message_text"),
			IsPrivate:   f.getBool("is_private"),
		}
	case TypeCustomCommand:
		return CustomCommand{
			Command:  f.getString("command"),
			FromUser: f.getString("from_user"),
		}
	case TypeHeartbeatAck:
		return HeartbeatAck{}
	default:
		return Unknown{RawType: typ, Reason: "unsupported type"}
	}
}

// rawFields reads loosely typed fields: a field of the wrong JSON type is
// treated as absent.
type rawFields map[string]json.RawMessage

func (f rawFields) stringOK(key string) (string, bool) {
	raw, ok := f[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func (f rawFields) getString(key string) string {
	s, _ := f.stringOK(key)
	return s
}

func (f rawFields) getInt(key string, def int) int {
	raw, ok := f[key]
	if !ok || string(raw) == "null" {
		return def
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err != nil {
		return def
	}
	if math.IsNaN(n) || n > math.MaxInt32 || n < math.MinInt32 {
		return def
	}
	return int(n)
}

func (f rawFields) getBool(key string) bool {
	raw, ok := f[key]
	if !ok {
		return false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return false
	}
	return b
}
