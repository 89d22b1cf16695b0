package canvas

import "syncboard/internal/app/board"

// Surface is the minimal drawing target Redraw paints onto. Implementations
// wrap whatever backend the application renders with.
type Surface interface {
	Clear()
	BeginPath(color string, width float64)
	MoveTo(p board.Point)
	LineTo(p board.Point)
	Stroke()
}

// Redraw repaints the whole picture from scratch: committed strokes in their
// creation order, then the in-flight strokes on top. Strokes without points
// are skipped rather than painted as empty paths.
func Redraw(s *State, surface Surface) {
	surface.Clear()
	for _, stroke := range s.Strokes() {
		trace(surface, stroke)
	}
	for _, stroke := range s.InFlight() {
		trace(surface, stroke)
	}
}

func trace(surface Surface, stroke board.Stroke) {
	if len(stroke.Points) == 0 {
		return
	}
	surface.BeginPath(stroke.Color, stroke.Width)
	surface.MoveTo(stroke.Points[0])
	for _, p := range stroke.Points[1:] {
		surface.LineTo(p)
	}
	surface.Stroke()
}
