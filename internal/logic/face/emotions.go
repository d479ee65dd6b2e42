package face

import "github.com/cjeanneret/WalkerGo/internal/hw/display"

type drawFunc func(s display.Surface)

// emotionAliases maps every accepted name (lower case) to its canonical
// emotion. The Chinese aliases are what the chat front end sends.
var emotionAliases = map[string]string{
	"happy": "happy", "开心": "happy", "高兴": "happy", "快乐": "happy",
	"sad": "sad", "伤心": "sad", "难过": "sad",
	"angry": "angry", "生气": "angry", "愤怒": "angry",
	"surprised": "surprised", "惊讶": "surprised", "吃惊": "surprised",
	"sleepy": "sleepy", "困": "sleepy", "睡觉": "sleepy",
	"love": "love", "爱心": "love", "喜欢": "love",
	"cool": "cool", "酷": "cool", "帅": "cool",
	"thinking": "thinking", "思考": "thinking", "想": "thinking",
}

var emotions = map[string]drawFunc{
	"happy":     drawHappy,
	"sad":       drawSad,
	"angry":     drawAngry,
	"surprised": drawSurprised,
	"sleepy":    drawSleepy,
	"love":      drawLove,
	"cool":      drawCool,
	"thinking":  drawThinking,
}

// Emotions lists the canonical emotion names.
func Emotions() []string {
	return []string{"happy", "sad", "angry", "surprised", "sleepy", "love", "cool", "thinking"}
}

func lookupEmotion(name string) (drawFunc, bool) {
	canonical, ok := emotionAliases[normalizeEmotion(name)]
	if !ok {
		return nil, false
	}
	return emotions[canonical], true
}

// Faces are laid out for a 128x64 panel: eyes at x=43/85, mouth centered.

func drawHappy(s display.Surface) {
	// ^ ^ eyes: upper halves of circles
	s.DrawCircle(43, 28, 8)
	s.DrawCircle(85, 28, 8)
	s.FillRect(34, 28, 60, 10, false)
	// smile: lower half of a circle
	s.DrawCircle(64, 40, 14)
	s.FillRect(49, 25, 30, 15, false)
}

func drawSad(s display.Surface) {
	s.FillRoundRect(35, 20, 16, 12, 4)
	s.FillRoundRect(77, 20, 16, 12, 4)
	// frown: upper half of a circle
	s.DrawCircle(64, 60, 14)
	s.FillRect(49, 60, 30, 10, false)
	// tear
	s.FillCircle(40, 38, 2)
}

func drawAngry(s display.Surface) {
	// slanted brows
	s.DrawLine(33, 14, 51, 22)
	s.DrawLine(95, 14, 77, 22)
	s.FillRoundRect(35, 24, 16, 10, 3)
	s.FillRoundRect(77, 24, 16, 10, 3)
	s.DrawLine(50, 50, 78, 50)
}

func drawSurprised(s display.Surface) {
	s.DrawCircle(43, 24, 9)
	s.DrawCircle(85, 24, 9)
	s.FillCircle(43, 24, 3)
	s.FillCircle(85, 24, 3)
	s.DrawCircle(64, 50, 7)
}

func drawSleepy(s display.Surface) {
	s.DrawLine(35, 28, 51, 28)
	s.DrawLine(77, 28, 93, 28)
	s.DrawLine(58, 48, 70, 48)
	s.DrawText(100, 5, 1, "z")
	s.DrawText(108, 0, 1, "Z")
}

func drawLove(s display.Surface) {
	for _, x := range []int{43, 85} {
		// heart: two lobes and a point
		s.FillCircle(x-4, 24, 5)
		s.FillCircle(x+4, 24, 5)
		s.DrawLine(x-9, 26, x, 36)
		s.DrawLine(x+9, 26, x, 36)
	}
	s.DrawCircle(64, 42, 10)
	s.FillRect(53, 32, 24, 10, false)
}

func drawCool(s display.Surface) {
	// sunglasses
	s.FillRoundRect(31, 20, 26, 12, 3)
	s.FillRoundRect(71, 20, 26, 12, 3)
	s.DrawLine(57, 24, 71, 24)
	s.DrawLine(55, 48, 75, 44)
}

func drawThinking(s display.Surface) {
	s.FillRoundRect(35, 22, 14, 10, 3)
	s.FillRoundRect(79, 18, 14, 10, 3)
	s.DrawLine(54, 48, 72, 46)
	s.DrawText(104, 2, 2, "?")
}

func drawUnknown(s display.Surface) {
	s.DrawText(45, 20, 2, "?_?")
	s.DrawText(20, 45, 1, "Unknown emotion")
}
