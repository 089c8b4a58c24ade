package feature

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// terraceScale is the height range terracing normalizes over. The blend
// math assumes terrain heights live in roughly this span.
const terraceScale = 100.0

// applyModifiers runs the fixed post-processing order: smoothing, then
// terracing, then clamping. Clamping is last so it bounds the final value
// regardless of upstream shaping.
func (c *EvalContext) applyModifiers(world mgl32.Vec2) float32 {
	var h float32
	if c.smooth != nil {
		h = c.smoothedHeight(world)
	} else {
		h = c.RawHeight(world)
	}

	if c.Modifiers.TerraceLevels > 1 {
		h = terrace(h, c.Modifiers.TerraceLevels, c.Modifiers.TerraceSmoothness)
	}

	if c.Modifiers.ClampEnabled {
		h = clampf(h, c.Modifiers.ClampMin, c.Modifiers.ClampMax)
	}
	return h
}

// ringSamples returns the sample count and radius multiplier for a
// smoothing mode: Light=4@0.5r, Medium=8@r, Heavy=12@1.5r.
func ringSamples(mode SmoothMode) (int, float32) {
	switch mode {
	case SmoothLight:
		return 4, 0.5
	case SmoothMedium:
		return 8, 1.0
	case SmoothHeavy:
		return 12, 1.5
	}
	return 0, 0
}

// smoothedHeight averages the raw height over a ring of samples around the
// position, inverse-distance weighted, memoized per spatial grid cell so
// neighboring pixels reuse one ring evaluation.
func (c *EvalContext) smoothedHeight(world mgl32.Vec2) float32 {
	if v, ok := c.smooth.get(world); ok {
		return v
	}

	n, mult := ringSamples(c.Modifiers.Smoothing)
	if n == 0 {
		return c.RawHeight(world)
	}
	radius := c.Modifiers.SmoothRadius * mult

	center := c.RawHeight(world)
	sum := center
	weightSum := float32(1)

	for i := 0; i < n; i++ {
		angle := 2 * math.Pi * float64(i) / float64(n)
		offset := mgl32.Vec2{
			radius * float32(math.Cos(angle)),
			radius * float32(math.Sin(angle)),
		}
		sample := c.RawHeight(world.Add(offset))
		// All ring points sit at the same distance; weight them relative
		// to the center sample.
		w := 1 / (1 + radius)
		sum += sample * w
		weightSum += w
	}

	v := sum / weightSum
	c.smooth.put(world, v)
	return v
}

// terrace quantizes the height into level steps over the terrace scale.
// smoothness=0 gives hard steps; smoothness=1 approaches the original
// ramp via a smoothstep between adjacent levels.
func terrace(h float32, levels int, smoothness float32) float32 {
	step := float32(terraceScale) / float32(levels)
	base := float32(math.Floor(float64(h/step))) * step
	frac := (h - base) / step

	s := clampf(smoothness, 0, 1)
	if s <= 0 {
		return base
	}
	// Only the last `s` fraction of each step ramps to the next level.
	t := clampf((frac-(1-s))/s, 0, 1)
	return base + step*smoothstep(t)
}
