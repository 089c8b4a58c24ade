package heightmap

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Rect2 is an axis-aligned rectangle in world units on the terrain plane.
// Position is the minimum corner; Size components are non-negative.
type Rect2 struct {
	Position mgl32.Vec2
	Size     mgl32.Vec2
}

// NewRect2 builds a rectangle from min corner and size.
func NewRect2(x, y, w, h float32) Rect2 {
	return Rect2{Position: mgl32.Vec2{x, y}, Size: mgl32.Vec2{w, h}}
}

// CenteredRect2 builds a rectangle from its center point and size.
func CenteredRect2(center, size mgl32.Vec2) Rect2 {
	return Rect2{
		Position: center.Sub(size.Mul(0.5)),
		Size:     size,
	}
}

// End returns the maximum corner.
func (r Rect2) End() mgl32.Vec2 {
	return r.Position.Add(r.Size)
}

// Center returns the midpoint.
func (r Rect2) Center() mgl32.Vec2 {
	return r.Position.Add(r.Size.Mul(0.5))
}

// Contains reports whether the point lies inside the rectangle.
func (r Rect2) Contains(p mgl32.Vec2) bool {
	e := r.End()
	return p.X() >= r.Position.X() && p.X() <= e.X() &&
		p.Y() >= r.Position.Y() && p.Y() <= e.Y()
}

// Intersects reports whether the two rectangles overlap or touch.
func (r Rect2) Intersects(o Rect2) bool {
	re, oe := r.End(), o.End()
	return r.Position.X() <= oe.X() && re.X() >= o.Position.X() &&
		r.Position.Y() <= oe.Y() && re.Y() >= o.Position.Y()
}

// Encloses reports whether o lies entirely within r.
func (r Rect2) Encloses(o Rect2) bool {
	re, oe := r.End(), o.End()
	return o.Position.X() >= r.Position.X() && oe.X() <= re.X() &&
		o.Position.Y() >= r.Position.Y() && oe.Y() <= re.Y()
}

// Merge returns the smallest rectangle covering both r and o.
func (r Rect2) Merge(o Rect2) Rect2 {
	minX := minf(r.Position.X(), o.Position.X())
	minY := minf(r.Position.Y(), o.Position.Y())
	maxX := maxf(r.End().X(), o.End().X())
	maxY := maxf(r.End().Y(), o.End().Y())
	return NewRect2(minX, minY, maxX-minX, maxY-minY)
}

// Grow returns the rectangle expanded by pad on every side.
func (r Rect2) Grow(pad float32) Rect2 {
	return NewRect2(
		r.Position.X()-pad, r.Position.Y()-pad,
		r.Size.X()+2*pad, r.Size.Y()+2*pad,
	)
}

// Area returns width * height.
func (r Rect2) Area() float32 {
	return r.Size.X() * r.Size.Y()
}

func minf(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
