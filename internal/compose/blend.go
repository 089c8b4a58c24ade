package compose

import (
	"github.com/fabian-becker/Terrainy/internal/feature"
)

// minInfluence is the weight below which a feature's contribution to a
// pixel is skipped entirely.
const minInfluence = 0.001

// blendSample folds one feature's weighted height into the accumulated
// value. Features are folded in list order; for Max/Min/Multiply/Subtract
// that order is part of the contract, not an accident.
func blendSample(mode feature.BlendMode, acc, h, weight, strength float32) float32 {
	switch mode {
	case feature.BlendAdd:
		return acc + h*weight*strength
	case feature.BlendSubtract:
		return acc - h*weight*strength
	case feature.BlendMultiply:
		return acc * (1 + h*weight*strength)
	case feature.BlendMax:
		v := h * weight
		if v > acc {
			return v
		}
		return acc
	case feature.BlendMin:
		v := h * weight
		if v < acc {
			return v
		}
		return acc
	case feature.BlendAverage:
		// Strength zero must contribute nothing; averaging in a zeroed
		// term would still halve the accumulator.
		if strength == 0 {
			return acc
		}
		return (acc + h*weight*strength) * 0.5
	}
	return acc
}
