package display

// Surface is the bitmap target the face controller draws onto.
// Coordinates are pixels from the top-left corner. Drawing calls only touch
// the frame buffer; nothing is visible until Flush.
type Surface interface {
	// Init brings the panel up. A failing Init leaves the surface unusable.
	Init() error
	Size() (width, height int)
	Clear()
	DrawText(x, y, size int, text string)
	DrawCircle(x, y, r int)
	FillCircle(x, y, r int)
	DrawLine(x0, y0, x1, y1 int)
	// FillRect paints a rectangle lit (on) or dark (!on).
	FillRect(x, y, w, h int, on bool)
	FillRoundRect(x, y, w, h, r int)
	Flush() error
}
