package face

import (
	"fmt"
	"strings"

	"github.com/cjeanneret/WalkerGo/internal/debug"
	"github.com/cjeanneret/WalkerGo/internal/hw/display"
)

// Text layout at size 1.
const (
	CharWidth  = 6
	LineHeight = 10
)

// Controller maps symbolic display commands (emotion names, free text) to
// drawing routines on a render surface.
type Controller struct {
	surface display.Surface
	ready   bool
}

func NewController(s display.Surface) *Controller {
	return &Controller{surface: s}
}

// Init brings up the surface and shows a short splash. A failing surface is
// not fatal: the controller stays disabled and every call becomes a no-op.
func (c *Controller) Init() error {
	if err := c.surface.Init(); err != nil {
		c.ready = false
		return fmt.Errorf("display init: %w", err)
	}
	c.ready = true
	c.surface.Clear()
	c.surface.DrawText(0, 15, 1, "WalkerGo")
	c.surface.DrawText(0, 30, 1, "Display ready")
	c.flush()
	return nil
}

// Ready reports whether the surface came up.
func (c *Controller) Ready() bool { return c.ready }

// ShowEmotion draws the face for name (case-insensitive). Unknown names draw
// a question glyph. It returns false when the name was not recognized.
func (c *Controller) ShowEmotion(name string) bool {
	if !c.ready {
		return false
	}
	c.surface.Clear()
	draw, ok := lookupEmotion(name)
	if ok {
		debug.Verbose("Display emotion %q", name)
		draw(c.surface)
	} else {
		debug.Verbose("Display unknown emotion %q", name)
		drawUnknown(c.surface)
	}
	c.flush()
	return ok
}

// ShowText wraps text onto the surface and returns the lines drawn.
// Content that does not fit vertically is dropped.
func (c *Controller) ShowText(text string) []string {
	if !c.ready {
		return nil
	}
	w, h := c.surface.Size()
	lines := Wrap(text, w/CharWidth, maxLines(h))
	c.surface.Clear()
	for i, line := range lines {
		c.surface.DrawText(0, i*LineHeight, 1, line)
	}
	c.flush()
	return lines
}

// Clear blanks the surface.
func (c *Controller) Clear() {
	if !c.ready {
		return
	}
	c.surface.Clear()
	c.flush()
}

func (c *Controller) flush() {
	if err := c.surface.Flush(); err != nil {
		debug.Error(fmt.Errorf("display flush: %w", err))
	}
}

func maxLines(height int) int {
	if height < LineHeight {
		return 0
	}
	return (height-LineHeight)/LineHeight + 1
}

// Wrap splits text into lines of at most cols runes. A '\n' forces a break.
// At most limit lines are returned; the rest is dropped.
func Wrap(text string, cols, limit int) []string {
	if cols <= 0 || limit <= 0 {
		return nil
	}
	var (
		lines []string
		cur   []rune
	)
	emit := func() bool {
		lines = append(lines, string(cur))
		cur = cur[:0]
		return len(lines) < limit
	}
	for _, r := range text {
		if r == '\n' {
			if !emit() {
				return lines
			}
			continue
		}
		if r == '\r' {
			continue
		}
		cur = append(cur, r)
		if len(cur) == cols {
			if !emit() {
				return lines
			}
		}
	}
	if len(cur) > 0 {
		emit()
	}
	return lines
}

func normalizeEmotion(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
