// Package geo provides the coordinate, rectangle and grid value types used to
// map between tile indices, in-world block coordinates and canvas pixels.
package geo

// Coord2i is a 2D integer coordinate pair. It is a comparable value type and
// can be used directly as a map key.
type Coord2i struct {
	X int
	Y int
}

// Add returns the componentwise sum of c and o.
func (c Coord2i) Add(o Coord2i) Coord2i {
	return Coord2i{c.X + o.X, c.Y + o.Y}
}

// AddN adds n to both components.
func (c Coord2i) AddN(n int) Coord2i {
	return Coord2i{c.X + n, c.Y + n}
}

// Sub returns the componentwise difference of c and o.
func (c Coord2i) Sub(o Coord2i) Coord2i {
	return Coord2i{c.X - o.X, c.Y - o.Y}
}

// SubN subtracts n from both components.
func (c Coord2i) SubN(n int) Coord2i {
	return Coord2i{c.X - n, c.Y - n}
}

// Mul returns the componentwise product of c and o.
func (c Coord2i) Mul(o Coord2i) Coord2i {
	return Coord2i{c.X * o.X, c.Y * o.Y}
}

// MulN multiplies both components by n.
func (c Coord2i) MulN(n int) Coord2i {
	return Coord2i{c.X * n, c.Y * n}
}

// Div performs componentwise floor division. Unlike Go's native integer
// division it rounds toward negative infinity, which keeps tile-index math
// stable across the world origin.
func (c Coord2i) Div(o Coord2i) Coord2i {
	return Coord2i{FloorDiv(c.X, o.X), FloorDiv(c.Y, o.Y)}
}

// DivN floor-divides both components by n.
func (c Coord2i) DivN(n int) Coord2i {
	return Coord2i{FloorDiv(c.X, n), FloorDiv(c.Y, n)}
}

// Pow raises each component to the corresponding component of o.
// Exponents are expected to be non-negative.
func (c Coord2i) Pow(o Coord2i) Coord2i {
	return Coord2i{ipow(c.X, o.X), ipow(c.Y, o.Y)}
}

// PowN raises both components to the power n.
func (c Coord2i) PowN(n int) Coord2i {
	return Coord2i{ipow(c.X, n), ipow(c.Y, n)}
}

// Map applies fn to both components.
func (c Coord2i) Map(fn func(int) int) Coord2i {
	return Coord2i{fn(c.X), fn(c.Y)}
}

// ToFloat converts the coordinate to a Coord2f.
func (c Coord2i) ToFloat() Coord2f {
	return Coord2f{float64(c.X), float64(c.Y)}
}

// In reports whether the coordinate lies within r, bounds inclusive.
func (c Coord2i) In(r Rect) bool {
	return c.X >= r.X1 && c.X <= r.X2 && c.Y >= r.Y1 && c.Y <= r.Y2
}

// Coord2f is the floating-point analogue of Coord2i. It only appears in
// intermediate ratio computations, such as projecting a coordinate from one
// grid onto another of a different size; results convert back to Coord2i
// through an explicit rounding function.
type Coord2f struct {
	X float64
	Y float64
}

func (c Coord2f) Add(o Coord2f) Coord2f {
	return Coord2f{c.X + o.X, c.Y + o.Y}
}

func (c Coord2f) Sub(o Coord2f) Coord2f {
	return Coord2f{c.X - o.X, c.Y - o.Y}
}

func (c Coord2f) Mul(o Coord2f) Coord2f {
	return Coord2f{c.X * o.X, c.Y * o.Y}
}

func (c Coord2f) Div(o Coord2f) Coord2f {
	return Coord2f{c.X / o.X, c.Y / o.Y}
}

func (c Coord2f) MulN(n float64) Coord2f {
	return Coord2f{c.X * n, c.Y * n}
}

// Map applies fn to both components.
func (c Coord2f) Map(fn func(float64) float64) Coord2f {
	return Coord2f{fn(c.X), fn(c.Y)}
}

// ToInt converts back to a Coord2i using round. A nil round truncates toward
// zero; the conversion is never implicit.
func (c Coord2f) ToInt(round func(float64) int) Coord2i {
	if round == nil {
		round = func(f float64) int { return int(f) }
	}
	return Coord2i{round(c.X), round(c.Y)}
}

// FloorDiv divides a by b rounding toward negative infinity.
func FloorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// ceilDiv divides a by b rounding toward positive infinity.
func ceilDiv(a, b int) int {
	return -FloorDiv(-a, b)
}

func ipow(base, exp int) int {
	r := 1
	for i := 0; i < exp; i++ {
		r *= base
	}
	return r
}
