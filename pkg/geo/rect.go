package geo

// Rect is an axis-aligned integer rectangle described by its top-left
// (X1, Y1) and bottom-right (X2, Y2) coordinates. Ordering is not enforced:
// degenerate or zero-area rects are legal and callers that need a pixel
// canvas must detect them before use.
type Rect struct {
	X1 int
	Y1 int
	X2 int
	Y2 int
}

// RectFromRadius returns a rect spanning radius blocks in each direction
// around center, so that width and height both equal twice the radius.
func RectFromRadius(radius Coord2i, center Coord2i) Rect {
	return Rect{
		X1: center.X - radius.X,
		Y1: center.Y - radius.Y,
		X2: center.X + radius.X,
		Y2: center.Y + radius.Y,
	}
}

// RectFromSize returns a rect of the given size with its top-left corner at
// the origin.
func RectFromSize(width, height int) Rect {
	return Rect{0, 0, width, height}
}

// RectFromSizeCentered returns a rect of the given size centered on center.
// Odd sizes leave the extra unit on the bottom-right side.
func RectFromSizeCentered(width, height int, center Coord2i) Rect {
	return Rect{
		X1: center.X - width/2,
		Y1: center.Y - height/2,
		X2: center.X + width/2 + width%2,
		Y2: center.Y + height/2 + height%2,
	}
}

func (r Rect) Width() int  { return r.X2 - r.X1 }
func (r Rect) Height() int { return r.Y2 - r.Y1 }

// Size returns (width, height).
func (r Rect) Size() Coord2i {
	return Coord2i{r.Width(), r.Height()}
}

// Center returns the center coordinate, rounded toward the top-left.
func (r Rect) Center() Coord2i {
	return Coord2i{r.X1 + r.Width()/2, r.Y1 + r.Height()/2}
}

// Corners returns the four corner coordinates in the order top-left,
// top-right, bottom-left, bottom-right.
func (r Rect) Corners() [4]Coord2i {
	return [4]Coord2i{
		{r.X1, r.Y1},
		{r.X2, r.Y1},
		{r.X1, r.Y2},
		{r.X2, r.Y2},
	}
}

// TopLeft returns the top-left corner.
func (r Rect) TopLeft() Coord2i {
	return Coord2i{r.X1, r.Y1}
}

// BottomRight returns the bottom-right corner.
func (r Rect) BottomRight() Coord2i {
	return Coord2i{r.X2, r.Y2}
}

// Map applies fn to the four scalar fields independently. It deliberately
// does not operate on derived width/height: mapping by floor division, for
// example, does not commute with dividing the size when coordinates are
// negative.
func (r Rect) Map(fn func(int) int) Rect {
	return Rect{fn(r.X1), fn(r.Y1), fn(r.X2), fn(r.Y2)}
}

// Resize grows the rect by d, keeping the top-left corner fixed and
// extending only the bottom-right corner. Negative values shrink it.
func (r Rect) Resize(d Coord2i) Rect {
	return Rect{r.X1, r.Y1, r.X2 + d.X, r.Y2 + d.Y}
}

// ResizeFromCenter grows the rect by d, splitting half of the delta to each
// side.
func (r Rect) ResizeFromCenter(d Coord2i) Rect {
	h := d.DivN(2)
	return Rect{r.X1 - h.X, r.Y1 - h.Y, r.X2 + h.X, r.Y2 + h.Y}
}

// TranslateBy shifts all coordinates by d.
func (r Rect) TranslateBy(d Coord2i) Rect {
	return Rect{r.X1 + d.X, r.Y1 + d.Y, r.X2 + d.X, r.Y2 + d.Y}
}

// TranslateTo shifts the rect so its top-left corner becomes p.
func (r Rect) TranslateTo(p Coord2i) Rect {
	return r.TranslateBy(p.Sub(r.TopLeft()))
}

// Contains reports whether c lies within the rect, bounds inclusive.
func (r Rect) Contains(c Coord2i) bool {
	return c.In(r)
}
