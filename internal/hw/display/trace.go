package display

import (
	"github.com/cjeanneret/WalkerGo/internal/debug"
)

// TraceSurface is a headless surface that logs drawing calls.
// Used when no panel is attached (development on PC, tests).
type TraceSurface struct {
	Width  int
	Height int
}

// NewTraceSurface returns a headless surface of the given size.
func NewTraceSurface(width, height int) *TraceSurface {
	return &TraceSurface{Width: width, Height: height}
}

func (s *TraceSurface) Init() error {
	debug.Info("Using TRACE display surface (%dx%d, no panel)", s.Width, s.Height)
	return nil
}

func (s *TraceSurface) Size() (int, int) { return s.Width, s.Height }

func (s *TraceSurface) Clear() {
	debug.Trace("display clear")
}

func (s *TraceSurface) DrawText(x, y, size int, text string) {
	debug.Trace("display text (%d,%d) size=%d %q", x, y, size, text)
}

func (s *TraceSurface) DrawCircle(x, y, r int) {
	debug.Trace("display circle (%d,%d) r=%d", x, y, r)
}

func (s *TraceSurface) FillCircle(x, y, r int) {
	debug.Trace("display fill circle (%d,%d) r=%d", x, y, r)
}

func (s *TraceSurface) DrawLine(x0, y0, x1, y1 int) {
	debug.Trace("display line (%d,%d)-(%d,%d)", x0, y0, x1, y1)
}

func (s *TraceSurface) FillRect(x, y, w, h int, on bool) {
	debug.Trace("display fill rect (%d,%d) %dx%d on=%v", x, y, w, h, on)
}

func (s *TraceSurface) FillRoundRect(x, y, w, h, r int) {
	debug.Trace("display fill round rect (%d,%d) %dx%d r=%d", x, y, w, h, r)
}

func (s *TraceSurface) Flush() error {
	debug.Trace("display flush")
	return nil
}
