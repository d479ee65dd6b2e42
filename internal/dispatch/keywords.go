package dispatch

import (
	"strings"
	"unicode/utf8"

	"github.com/cjeanneret/WalkerGo/internal/debug"
	"github.com/cjeanneret/WalkerGo/internal/protocol"
)

// keywordRule maps chat markers to either a structured command (so the
// free-text path runs exactly the same actuator calls) or a status report.
type keywordRule struct {
	name    string
	markers []string // lower case
	command protocol.Command
	report  func(d *Dispatcher) string
}

// keywordRules is checked in order; the first rule with a matching marker
// wins. The Chinese markers are what the chat front end relays.
var keywordRules = []keywordRule{
	{
		name:    "light on",
		markers: []string{"light on", "lights on", "turn on the light", "亮灯", "开灯", "点亮"},
		command: protocol.CustomCommand{Command: "led_on"},
	},
	{
		name:    "light off",
		markers: []string{"light off", "lights off", "turn off the light", "关灯", "熄灭", "关闭"},
		command: protocol.CustomCommand{Command: "led_off"},
	},
	{
		name:    "light status",
		markers: []string{"light status", "led status", "led状态", "灯状态"},
		report:  func(d *Dispatcher) string { return d.led.StatusString() },
	},
	{
		name:    "walk forward",
		markers: []string{"walk forward", "go forward", "move forward", "前进", "向前", "走前"},
		command: protocol.ServoControl{Action: "walk_forward"},
	},
	{
		name:    "walk backward",
		markers: []string{"walk backward", "walk back", "go back", "move back", "后退", "向后", "倒退"},
		command: protocol.ServoControl{Action: "walk_backward"},
	},
	{
		name:    "stand",
		markers: []string{"stand", "站立", "站起", "起立"},
		command: protocol.ServoControl{Action: "stand_up"},
	},
	{
		name:    "stop",
		markers: []string{"stop", "halt", "停止", "停下", "不动"},
		command: protocol.ServoControl{Action: "stop"},
	},
	{
		name:    "left leg forward",
		markers: []string{"left leg forward", "左腿前", "左脚前"},
		command: protocol.ServoControl{Action: "left_forward"},
	},
	{
		name:    "left leg backward",
		markers: []string{"left leg back", "左腿后", "左脚后"},
		command: protocol.ServoControl{Action: "left_backward"},
	},
	{
		name:    "right leg forward",
		markers: []string{"right leg forward", "右腿前", "右脚前"},
		command: protocol.ServoControl{Action: "right_forward"},
	},
	{
		name:    "right leg backward",
		markers: []string{"right leg back", "右腿后", "右脚后"},
		command: protocol.ServoControl{Action: "right_backward"},
	},
	{
		name:    "leg status",
		markers: []string{"leg status", "servo status", "舵机状态", "腿部状态"},
		report:  func(d *Dispatcher) string { return d.legs.StatusString() },
	},
}

// matchKeyword returns the first rule whose marker occurs in text.
func matchKeyword(text string) (keywordRule, bool) {
	lower := strings.ToLower(text)
	for _, rule := range keywordRules {
		for _, m := range rule.markers {
			if containsMarker(lower, m) {
				return rule, true
			}
		}
	}
	return keywordRule{}, false
}

// containsMarker reports whether marker occurs in text. English markers
// must stand as whole words ("stand" does not match "understand"); Chinese
// markers match anywhere.
func containsMarker(text, marker string) bool {
	if !isASCII(marker) {
		return strings.Contains(text, marker)
	}
	for from := 0; from < len(text); {
		i := strings.Index(text[from:], marker)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(marker)
		before, _ := utf8.DecodeLastRuneInString(text[:start])
		after, _ := utf8.DecodeRuneInString(text[end:])
		if !isWordRune(before) && !isWordRune(after) {
			return true
		}
		from = start + 1
	}
	return false
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// isWordRune reports whether r can continue an English word. Chinese text
// next to an English marker does not block the match.
func isWordRune(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_'
}

// handleText runs the first keyword command found in a chat message.
// Text without any marker is not a command and produces no status.
func (d *Dispatcher) handleText(text string) string {
	rule, ok := matchKeyword(text)
	if !ok {
		debug.Verbose("No command keyword in %q", text)
		return ""
	}
	debug.Live("Keyword %q matched", rule.name)
	if rule.command != nil {
		return d.Handle(rule.command)
	}
	return rule.report(d)
}
