package feature

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Weight returns the influence weight of the feature at a world position,
// in [0, 1]. This is the per-pixel cost the influence cache exists to
// amortize: one call per heightmap sample per feature.
func (c *EvalContext) Weight(world mgl32.Vec2) float32 {
	local := c.Influence.toLocal(world)
	g := &c.Influence

	switch g.shape {
	case ShapeCircle:
		r := g.size.X()
		d := local.Len()
		return rampWeight(d, r*(1-g.falloff), r)

	case ShapeEllipse:
		nx := local.X() / g.size.X()
		ny := local.Y() / g.size.Y()
		q := float32(math.Sqrt(float64(nx*nx + ny*ny)))
		return rampWeight(q, 1-g.falloff, 1)

	case ShapeRectangle:
		hx, hy := g.size.X(), g.size.Y()
		ax := float32(math.Abs(float64(local.X())))
		ay := float32(math.Abs(float64(local.Y())))
		if ax > hx || ay > hy {
			return 0
		}
		// Distance to the nearest edge drives the ramp; the ramp band is
		// the falloff fraction of the smaller half-extent.
		edge := minf(hx-ax, hy-ay)
		band := g.falloff * minf(hx, hy)
		if band <= 0 {
			return 1
		}
		if edge >= band {
			return 1
		}
		return smoothstep(edge / band)
	}
	return 0
}

// rampWeight is the shared circle/ellipse falloff: 1 inside the inner
// radius, a smoothstep ramp down to 0 at the outer radius, 0 beyond.
// Continuity holds at both ends: weight(inner) == 1, weight(outer) == 0.
func rampWeight(d, inner, outer float32) float32 {
	if d >= outer {
		return 0
	}
	if d <= inner {
		return 1
	}
	if outer-inner <= 0 {
		return 1
	}
	return smoothstep((outer - d) / (outer - inner))
}

func minf(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}
