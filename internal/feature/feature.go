// Package feature defines the terrain primitives that contribute height
// and influence to the composed heightmap, their modifier chain, and the
// immutable evaluation snapshots used for off-goroutine sampling.
package feature

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"github.com/fabian-becker/Terrainy/pkg/heightmap"
)

// Kind selects the height function of a feature.
type Kind int

const (
	KindHill Kind = iota
	KindMountain
	KindVolcano
	KindCrater
	KindIsland
	KindRadialGradient
	KindLinearGradient
	KindCone
	KindHemisphere
	KindMountainRange
	KindCanyon
	KindDuneSea
	KindPerlinNoise
	KindVoronoi
	KindShape
	KindCustom
)

var kindNames = map[Kind]string{
	KindHill:           "hill",
	KindMountain:       "mountain",
	KindVolcano:        "volcano",
	KindCrater:         "crater",
	KindIsland:         "island",
	KindRadialGradient: "radial_gradient",
	KindLinearGradient: "linear_gradient",
	KindCone:           "cone",
	KindHemisphere:     "hemisphere",
	KindMountainRange:  "mountain_range",
	KindCanyon:         "canyon",
	KindDuneSea:        "dune_sea",
	KindPerlinNoise:    "perlin_noise",
	KindVoronoi:        "voronoi",
	KindShape:          "shape",
	KindCustom:         "custom",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// KindFromString resolves a kind name as used in scene files.
func KindFromString(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return k, true
		}
	}
	return 0, false
}

// BlendMode is the arithmetic rule combining a feature's weighted height
// into the accumulated heightmap.
type BlendMode int

const (
	BlendAdd BlendMode = iota
	BlendSubtract
	BlendMax
	BlendMin
	BlendMultiply
	BlendAverage
)

var blendNames = map[BlendMode]string{
	BlendAdd:      "add",
	BlendSubtract: "subtract",
	BlendMax:      "max",
	BlendMin:      "min",
	BlendMultiply: "multiply",
	BlendAverage:  "average",
}

func (m BlendMode) String() string {
	if s, ok := blendNames[m]; ok {
		return s
	}
	return "unknown"
}

// BlendFromString resolves a blend mode name as used in scene files.
func BlendFromString(s string) (BlendMode, bool) {
	for m, name := range blendNames {
		if name == s {
			return m, true
		}
	}
	return 0, false
}

// Shape selects the influence falloff geometry.
type Shape int

const (
	ShapeCircle Shape = iota
	ShapeRectangle
	ShapeEllipse
)

func (s Shape) String() string {
	switch s {
	case ShapeCircle:
		return "circle"
	case ShapeRectangle:
		return "rectangle"
	case ShapeEllipse:
		return "ellipse"
	}
	return "unknown"
}

// ShapeFromString resolves a shape name as used in scene files.
func ShapeFromString(s string) (Shape, bool) {
	switch s {
	case "circle":
		return ShapeCircle, true
	case "rectangle":
		return ShapeRectangle, true
	case "ellipse":
		return ShapeEllipse, true
	}
	return 0, false
}

// SmoothMode selects the smoothing ring density.
type SmoothMode int

const (
	SmoothNone SmoothMode = iota
	SmoothLight
	SmoothMedium
	SmoothHeavy
)

// Modifiers hold the per-feature post-processing settings, applied in
// fixed order: smoothing, terracing, clamping.
type Modifiers struct {
	Smoothing    SmoothMode
	SmoothRadius float32

	TerraceLevels     int
	TerraceSmoothness float32

	ClampEnabled bool
	ClampMin     float32
	ClampMax     float32
}

// Feature is a spatially positioned terrain primitive. The engine never
// creates or destroys features; it reads them and consumes their dirty
// flags. All fields are owned by the control goroutine; off-goroutine
// evaluation goes through an EvalContext snapshot.
type Feature struct {
	ID   uuid.UUID
	Name string
	Kind Kind

	// Transform. Rotation is radians around the up axis; Scale defaults
	// to (1, 1).
	Position mgl32.Vec2
	Rotation float32
	Scale    mgl32.Vec2

	// Influence geometry. Size components are half-extents (the radius
	// for circles) and must stay positive. Falloff is the fraction of the
	// extent occupied by the edge ramp, in [0, 1].
	Influence Shape
	Size      mgl32.Vec2
	Falloff   float32

	Blend    BlendMode
	Strength float32

	// Height function parameters. Amplitude is the peak height; the
	// noise parameters are only read by noise-driven kinds.
	Amplitude   float32
	Seed        int64
	Frequency   float64
	Octaves     int
	Persistence float64
	Lacunarity  float64

	Modifiers Modifiers

	// HeightFunc is the KindCustom height function of the local position.
	// It must be safe to call from worker goroutines.
	HeightFunc func(local mgl32.Vec2) float32

	Visible bool
	Dirty   bool
}

// New returns a feature of the given kind with workable defaults.
func New(kind Kind, position mgl32.Vec2) *Feature {
	return &Feature{
		ID:          uuid.New(),
		Kind:        kind,
		Position:    position,
		Scale:       mgl32.Vec2{1, 1},
		Influence:   ShapeCircle,
		Size:        mgl32.Vec2{50, 50},
		Falloff:     0.3,
		Blend:       BlendAdd,
		Strength:    1,
		Amplitude:   10,
		Frequency:   0.05,
		Octaves:     4,
		Persistence: 0.5,
		Lacunarity:  2,
		Visible:     true,
		Dirty:       true,
	}
}

// MarkDirty flags the feature for regeneration on the next compose pass.
func (f *Feature) MarkDirty() {
	f.Dirty = true
}

// InfluenceRect returns the world rectangle covered by the feature's
// influence geometry, without falloff padding.
func (f *Feature) InfluenceRect() heightmap.Rect2 {
	sx := f.Size.X() * f.Scale.X()
	sy := f.Size.Y() * f.Scale.Y()
	// A rotated rectangle fits inside the circumscribed square.
	if f.Rotation != 0 {
		r := maxf(sx, sy)
		sx, sy = r, r
	}
	return heightmap.NewRect2(f.Position.X()-sx, f.Position.Y()-sy, 2*sx, 2*sy)
}

// HeightAt evaluates the post-modifier height at a world position using
// the live feature state. Control-goroutine only; workers must use
// HeightAtSafe with a snapshot.
func (f *Feature) HeightAt(world mgl32.Vec2) float32 {
	return f.Snapshot().Height(world)
}

// WeightAt evaluates the influence weight at a world position using the
// live feature state. Control-goroutine only.
func (f *Feature) WeightAt(world mgl32.Vec2) float32 {
	return f.Snapshot().Weight(world)
}

// HeightAtSafe evaluates the post-modifier height through an immutable
// snapshot, safe on any goroutine.
func HeightAtSafe(world mgl32.Vec2, c *EvalContext) float32 {
	return c.Height(world)
}

func maxf(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
