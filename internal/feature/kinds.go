package feature

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Height evaluates the feature's post-modifier height at a world position
// using only snapshot state. Safe on any goroutine.
func (c *EvalContext) Height(world mgl32.Vec2) float32 {
	return c.applyModifiers(world)
}

// RawHeight is the pre-modifier height function, exposed for the smoothing
// ring sampler and for tests.
func (c *EvalContext) RawHeight(world mgl32.Vec2) float32 {
	local := c.Influence.toLocal(world)
	return c.kindHeight(local)
}

// kindHeight dispatches on the feature kind. The position is in the local
// frame; q below is the elliptical distance normalized by the influence
// extents, so q = 1 sits on the influence boundary.
func (c *EvalContext) kindHeight(local mgl32.Vec2) float32 {
	sx := c.Influence.size.X()
	sy := c.Influence.size.Y()
	nx := local.X() / sx
	ny := local.Y() / sy
	q := float32(math.Sqrt(float64(nx*nx + ny*ny)))
	a := c.Amplitude

	switch c.Kind {
	case KindHill:
		// Smooth dome, zero-slope at the peak and at the rim.
		if q >= 1 {
			return 0
		}
		t := 1 - q*q
		return a * t * t

	case KindMountain:
		if q >= 1 {
			return 0
		}
		base := a * float32(math.Pow(float64(1-q), 1.5))
		// Ridged detail sharpens the flanks.
		detail := c.ridged(float64(local.X())*c.frequency, float64(local.Y())*c.frequency)
		return base * (0.7 + 0.3*float32(detail))

	case KindVolcano:
		if q >= 1 {
			return 0
		}
		t := 1 - q*q
		cone := a * t * t
		// Caldera carved out of the summit.
		crater := a * 0.6 * float32(math.Exp(-float64(q*q)/(0.08)))
		h := cone - crater
		if h < 0 {
			h = 0
		}
		return h

	case KindCrater:
		if q >= 1 {
			return 0
		}
		t := 1 - q*q
		bowl := -a * t * t
		// Raised rim just inside the boundary.
		d := float64(q - 0.85)
		rim := a * 0.35 * float32(math.Exp(-d*d/0.01))
		return bowl + rim

	case KindIsland:
		if q >= 1 {
			return 0
		}
		// Flat interior, coast ramp over the outer 40%.
		plateau := smoothstep(clampf((1-q)/0.4, 0, 1))
		h := a * plateau
		if c.simplex != nil {
			n := c.simplex.Eval2(float64(local.X())*c.frequency, float64(local.Y())*c.frequency)
			h += a * 0.15 * float32(n-0.5) * plateau
		}
		return h

	case KindRadialGradient:
		if q >= 1 {
			return 0
		}
		return a * (1 - q)

	case KindLinearGradient:
		// Ramp along local +X across the influence extent.
		t := clampf((nx+1)*0.5, 0, 1)
		return a * t

	case KindCone:
		if q >= 1 {
			return 0
		}
		return a * (1 - q)

	case KindHemisphere:
		if q >= 1 {
			return 0
		}
		return a * float32(math.Sqrt(float64(1-q*q)))

	case KindMountainRange:
		// Ridge running along local X, ridged noise modulating the crest.
		if ny <= -1 || ny >= 1 {
			return 0
		}
		profile := 1 - ny*ny
		ridge := c.ridged(float64(local.X())*c.frequency, float64(c.seed))
		return a * profile * profile * (0.5 + 0.5*float32(ridge))

	case KindCanyon:
		// Negative channel along local X with noisy walls.
		if ny <= -1 || ny >= 1 {
			return 0
		}
		w := float64(ny) / 0.35
		depth := float32(math.Exp(-w * w))
		h := -a * depth
		if c.simplex != nil {
			n := c.simplex.Eval2(float64(local.X())*c.frequency, float64(local.Y())*c.frequency)
			h += a * 0.1 * float32(n-0.5) * (1 - depth)
		}
		return h

	case KindDuneSea:
		if q >= 1 {
			return 0
		}
		// Banded sine dunes with a drifting phase from perlin noise.
		phase := 0.0
		if c.noise != nil {
			phase = c.noise.Noise2D(float64(local.X())*c.frequency*0.25, float64(local.Y())*c.frequency*0.25) * 4
		}
		band := math.Sin(float64(local.X())*c.frequency*math.Pi + phase)
		fade := 1 - q*q
		return a * 0.5 * (1 + float32(band)) * fade

	case KindPerlinNoise:
		if c.noise == nil {
			return 0
		}
		n := c.fractal(float64(local.X()), float64(local.Y()))
		return a * float32(n)

	case KindVoronoi:
		if q >= 1 {
			return 0
		}
		f1 := c.voronoiF1(float64(local.X())*c.frequency, float64(local.Y())*c.frequency)
		return a * (1 - clampf(float32(f1), 0, 1))

	case KindShape:
		// Flat plateau; the influence ramp shapes the edges.
		if q >= 1 {
			return 0
		}
		return a

	case KindCustom:
		if c.heightFunc == nil {
			return 0
		}
		return c.heightFunc(local)
	}

	return 0
}

// fractal folds octaves of perlin noise into [-1, 1].
func (c *EvalContext) fractal(x, y float64) float64 {
	freq := c.frequency
	amp := 1.0
	sum := 0.0
	norm := 0.0
	for i := 0; i < c.octaves; i++ {
		sum += c.noise.Noise2D(x*freq, y*freq) * amp
		norm += amp
		amp *= c.persistence
		freq *= c.lacunarity
	}
	if norm == 0 {
		return 0
	}
	return sum / norm
}

// ridged maps perlin noise into [0, 1] with sharp crests.
func (c *EvalContext) ridged(x, y float64) float64 {
	if c.noise == nil {
		return 0.5
	}
	return 1 - math.Abs(c.noise.Noise2D(x, y))
}

// voronoiF1 returns the distance to the nearest jittered lattice point,
// normalized so cell interiors land in roughly [0, 1].
func (c *EvalContext) voronoiF1(x, y float64) float64 {
	cx := math.Floor(x)
	cy := math.Floor(y)
	best := math.MaxFloat64
	for dy := -1.0; dy <= 1; dy++ {
		for dx := -1.0; dx <= 1; dx++ {
			gx := cx + dx
			gy := cy + dy
			jx, jy := c.cellPoint(gx, gy)
			ddx := gx + jx - x
			ddy := gy + jy - y
			d := ddx*ddx + ddy*ddy
			if d < best {
				best = d
			}
		}
	}
	return math.Sqrt(best)
}

// cellPoint jitters a lattice cell deterministically via simplex noise.
func (c *EvalContext) cellPoint(gx, gy float64) (float64, float64) {
	if c.simplex == nil {
		return 0.5, 0.5
	}
	jx := c.simplex.Eval2(gx*12.9898, gy*78.233)
	jy := c.simplex.Eval2(gx*39.3468, gy*11.1353)
	return jx, jy
}

func smoothstep(t float32) float32 {
	return t * t * (3 - 2*t)
}
