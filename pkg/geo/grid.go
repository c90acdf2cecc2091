package geo

import (
	"errors"
	"iter"
	"math"
)

// ErrEmptySteps is returned when a grid is requested for an empty set of
// source coordinates.
var ErrEmptySteps = errors.New("geo: cannot build a grid from an empty set of steps")

// Grid is a Rect together with a step interval and an origin. When Step is
// positive, the stepped coordinates along each axis are every multiple of
// Step relative to Origin that falls within the rect bounds. A zero Step
// means the grid has no stepped coordinates at all.
//
// The same type serves two purposes in the combiner: enumerating discrete
// tile positions (step = tile size, origin at zero) and enumerating overlay
// intersections (step = a block interval chosen by the user).
type Grid struct {
	Rect   Rect
	Step   int
	Origin Coord2i
}

// NewGrid returns a grid over rect with the given step and the origin at
// (0, 0).
func NewGrid(rect Rect, step int) Grid {
	return Grid{Rect: rect, Step: step}
}

// GridFromSteps returns a grid whose rect bounds the given coordinates.
func GridFromSteps(steps []Coord2i, step int) (Grid, error) {
	if len(steps) == 0 {
		return Grid{}, ErrEmptySteps
	}
	r := Rect{steps[0].X, steps[0].Y, steps[0].X, steps[0].Y}
	for _, c := range steps[1:] {
		r.X1 = min(r.X1, c.X)
		r.Y1 = min(r.Y1, c.Y)
		r.X2 = max(r.X2, c.X)
		r.Y2 = max(r.Y2, c.Y)
	}
	return NewGrid(r, step), nil
}

// StepsX returns the stepped x coordinates, low to high. The enumeration
// runs outward from the origin in both directions so that an in-range
// origin-aligned point is always present exactly once; overlay lines stay
// anchored to the world origin because of this.
func (g Grid) StepsX() []int {
	return stepsAlong(g.Rect.X1, g.Rect.X2, g.Step, g.Origin.X)
}

// StepsY returns the stepped y coordinates, low to high.
func (g Grid) StepsY() []int {
	return stepsAlong(g.Rect.Y1, g.Rect.Y2, g.Step, g.Origin.Y)
}

// StepsCount returns the total number of stepped coordinates on the grid.
func (g Grid) StepsCount() int {
	return len(g.StepsX()) * len(g.StepsY())
}

// IterSteps yields every stepped (x, y) coordinate, all y values for each x
// in turn.
func (g Grid) IterSteps() iter.Seq[Coord2i] {
	xs, ys := g.StepsX(), g.StepsY()
	return func(yield func(Coord2i) bool) {
		for _, x := range xs {
			for _, y := range ys {
				if !yield(Coord2i{x, y}) {
					return
				}
			}
		}
	}
}

// Map transforms the rect by fn and recomputes the origin so that it keeps
// the same relative position inside the rect. This is what converts a
// tile-index grid into a pixel-space grid without losing track of where the
// world origin sits.
func (g Grid) Map(fn func(int) int) Grid {
	tl, br := g.Rect.TopLeft(), g.Rect.BottomRight()
	newRect := g.Rect.Map(fn)
	ntl, nbr := newRect.TopLeft(), newRect.BottomRight()
	origin := g.Origin
	if br.X != tl.X {
		fx := float64(g.Origin.X-tl.X) / float64(br.X-tl.X)
		origin.X = int(math.Round(float64(nbr.X-ntl.X)*fx)) + ntl.X
	}
	if br.Y != tl.Y {
		fy := float64(g.Origin.Y-tl.Y) / float64(br.Y-tl.Y)
		origin.Y = int(math.Round(float64(nbr.Y-ntl.Y)*fy)) + ntl.Y
	}
	return Grid{Rect: newRect, Step: g.Step, Origin: origin}
}

// MapKeepOrigin transforms the rect by fn and leaves the origin untouched.
func (g Grid) MapKeepOrigin(fn func(int) int) Grid {
	return Grid{Rect: g.Rect.Map(fn), Step: g.Step, Origin: g.Origin}
}

// MapWithOrigin transforms the rect by fn and sets an explicit new origin.
func (g Grid) MapWithOrigin(fn func(int) int, origin Coord2i) Grid {
	return Grid{Rect: g.Rect.Map(fn), Step: g.Step, Origin: origin}
}

// Project returns the point on other that occupies the same relative
// position within its rect as c occupies within this grid's rect. The
// result is truncated toward zero when converting back to integers.
func (g Grid) Project(c Coord2i, other Grid) Coord2i {
	tlA, brA := g.Rect.TopLeft(), g.Rect.BottomRight()
	tlB, brB := other.Rect.TopLeft(), other.Rect.BottomRight()
	spanA := brA.Sub(tlA).ToFloat()
	if spanA.X == 0 {
		spanA.X = 1
	}
	if spanA.Y == 0 {
		spanA.Y = 1
	}
	factor := c.Sub(tlA).ToFloat().Div(spanA)
	return brB.Sub(tlB).ToFloat().Mul(factor).Add(tlB.ToFloat()).ToInt(nil)
}

// TranslateBy shifts the rect and origin by d.
func (g Grid) TranslateBy(d Coord2i) Grid {
	return Grid{Rect: g.Rect.TranslateBy(d), Step: g.Step, Origin: g.Origin.Add(d)}
}

// TranslateTo shifts the grid so the rect's top-left corner becomes p,
// moving the origin by the same amount.
func (g Grid) TranslateTo(p Coord2i) Grid {
	return g.TranslateBy(p.Sub(g.Rect.TopLeft()))
}

// Resize grows the rect by d, carrying step and origin.
func (g Grid) Resize(d Coord2i) Grid {
	return Grid{Rect: g.Rect.Resize(d), Step: g.Step, Origin: g.Origin}
}

// WithStep returns a copy of the grid with a different step.
func (g Grid) WithStep(step int) Grid {
	return Grid{Rect: g.Rect, Step: step, Origin: g.Origin}
}

// SnapCoord returns the nearest stepped coordinate for c. A nil round snaps
// to the nearest multiple; math.Floor or math.Ceil may be supplied to force
// the lower or higher point.
func (g Grid) SnapCoord(c Coord2i, round func(float64) float64) Coord2i {
	if round == nil {
		round = math.Round
	}
	return c.Map(func(n int) int {
		return g.Step * int(round(float64(n)/float64(g.Step)))
	})
}

// stepsAlong enumerates the origin-aligned multiples of step between the
// ceil-snapped low bound and the floor-snapped high bound, both offset by
// origin. The two ranges, below and above the origin, are concatenated with
// the duplicate origin point removed.
func stepsAlong(lo, hi, step, origin int) []int {
	if step <= 0 {
		return nil
	}
	first := step*ceilDiv(lo, step) + origin
	last := step*FloorDiv(hi, step) + origin
	var out []int
	for v := first; v <= min(origin, last); v += step {
		out = append(out, v)
	}
	for v := max(origin+step, first); v <= last; v += step {
		out = append(out, v)
	}
	return out
}
