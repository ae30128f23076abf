// Package geom holds the small amount of 2D geometry the simulation needs.
// Point and Outline are deep values: the snapshot store copies them
// structurally rather than sharing them.
package geom

import "math"

// Epsilon is the penetration depth below which two boxes are considered
// touching rather than overlapping.
const Epsilon = 1e-6

type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

func (p Point) Add(q Point) Point { return Point{X: p.X + q.X, Y: p.Y + q.Y} }

func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

func Dist(a, b Point) float64 { return math.Hypot(a.X-b.X, a.Y-b.Y) }

// Outline is a polygon given as its vertices.
type Outline []Point

// Rect returns a w x h rectangle centred on the origin.
func Rect(w, h float64) Outline {
	hw, hh := w/2, h/2
	return Outline{{X: -hw, Y: -hh}, {X: hw, Y: -hh}, {X: hw, Y: hh}, {X: -hw, Y: hh}}
}

func (o Outline) Clone() Outline {
	if o == nil {
		return nil
	}
	out := make(Outline, len(o))
	copy(out, o)
	return out
}

func (o Outline) Translate(dx, dy float64) Outline {
	if o == nil {
		return nil
	}
	out := make(Outline, len(o))
	for i, p := range o {
		out[i] = Point{X: p.X + dx, Y: p.Y + dy}
	}
	return out
}

// Bounds returns the axis-aligned bounding box. An empty outline has a
// degenerate box at the origin.
func (o Outline) Bounds() Box {
	if len(o) == 0 {
		return Box{}
	}
	b := Box{MinX: math.Inf(1), MinY: math.Inf(1), MaxX: math.Inf(-1), MaxY: math.Inf(-1)}
	for _, p := range o {
		b.MinX = math.Min(b.MinX, p.X)
		b.MinY = math.Min(b.MinY, p.Y)
		b.MaxX = math.Max(b.MaxX, p.X)
		b.MaxY = math.Max(b.MaxY, p.Y)
	}
	return b
}

// Contains reports whether p lies inside the outline's bounding box,
// edges included.
func (o Outline) Contains(p Point) bool { return o.Bounds().Contains(p) }

type Box struct {
	MinX, MinY, MaxX, MaxY float64
}

func (b Box) Width() float64  { return b.MaxX - b.MinX }
func (b Box) Height() float64 { return b.MaxY - b.MinY }

func (b Box) Center() Point {
	return Point{X: (b.MinX + b.MaxX) / 2, Y: (b.MinY + b.MaxY) / 2}
}

func (b Box) Translate(dx, dy float64) Box {
	return Box{MinX: b.MinX + dx, MinY: b.MinY + dy, MaxX: b.MaxX + dx, MaxY: b.MaxY + dy}
}

func (b Box) Contains(p Point) bool {
	return b.MinX <= p.X && p.X <= b.MaxX && b.MinY <= p.Y && p.Y <= b.MaxY
}

// Overlaps reports a penetration deeper than Epsilon on both axes.
func (b Box) Overlaps(o Box) bool {
	return overlap(b.MinX, b.MaxX, o.MinX, o.MaxX) > Epsilon &&
		overlap(b.MinY, b.MaxY, o.MinY, o.MaxY) > Epsilon
}

// PushOut returns the minimum push vector that moves b out of o, and
// whether the boxes overlap at all. The vector is axis aligned: a positive Y
// component means b has sunk into something below it.
func (b Box) PushOut(o Box) (Point, bool) {
	ox := overlap(b.MinX, b.MaxX, o.MinX, o.MaxX)
	oy := overlap(b.MinY, b.MaxY, o.MinY, o.MaxY)
	if ox <= Epsilon || oy <= Epsilon {
		return Point{}, false
	}
	bc, oc := b.Center(), o.Center()
	if ox < oy {
		if bc.X < oc.X {
			return Point{X: -ox}, true
		}
		return Point{X: ox}, true
	}
	if bc.Y < oc.Y {
		return Point{Y: -oy}, true
	}
	return Point{Y: oy}, true
}

// Near reports whether the box centres are within r of each other.
func (b Box) Near(o Box, r float64) bool {
	return Dist(b.Center(), o.Center()) <= r
}

func overlap(aMin, aMax, bMin, bMax float64) float64 {
	return math.Min(aMax, bMax) - math.Max(aMin, bMin)
}
