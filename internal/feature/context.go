package feature

import (
	"fmt"
	"math"
	"sync"

	"github.com/aquilax/go-perlin"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	opensimplex "github.com/ojrac/opensimplex-go"
)

// EvalContext is an immutable value snapshot of a feature, captured on the
// control goroutine at the start of a rebuild. It carries everything the
// height and influence functions need so that evaluation never touches
// live feature state. Discard it when the rebuild ends.
type EvalContext struct {
	ID      uuid.UUID
	Kind    Kind
	Visible bool

	// Dirty records the feature's dirty flag at snapshot time; the
	// compositor uses it to decide whether the cached layer is stale.
	Dirty bool

	Blend    BlendMode
	Strength float32

	Influence heightRegion

	Amplitude float32

	Modifiers Modifiers

	heightFunc func(local mgl32.Vec2) float32

	// Noise state is constructed once per snapshot; both generators are
	// safe for concurrent reads.
	noise   *perlin.Perlin
	simplex opensimplex.Noise
	seed    int64

	frequency   float64
	octaves     int
	persistence float64
	lacunarity  float64

	smooth *smoothMemo
}

// heightRegion is the influence geometry in snapshot form: the inverse
// transform plus shape parameters.
type heightRegion struct {
	shape    Shape
	position mgl32.Vec2
	cosR     float32
	sinR     float32
	invScale mgl32.Vec2
	size     mgl32.Vec2
	falloff  float32
}

const minExtent = 1e-4

// Snapshot captures an EvalContext from the live feature. Call on the
// control goroutine only.
func (f *Feature) Snapshot() *EvalContext {
	size := mgl32.Vec2{
		maxf(f.Size.X(), minExtent),
		maxf(f.Size.Y(), minExtent),
	}
	scale := mgl32.Vec2{
		maxf(f.Scale.X(), minExtent),
		maxf(f.Scale.Y(), minExtent),
	}
	falloff := clampf(f.Falloff, 0, 1)

	octaves := f.Octaves
	if octaves < 1 {
		octaves = 1
	}
	lacunarity := f.Lacunarity
	if lacunarity <= 0 {
		lacunarity = 2
	}
	persistence := f.Persistence
	if persistence <= 0 {
		persistence = 0.5
	}

	c := &EvalContext{
		ID:      f.ID,
		Kind:    f.Kind,
		Visible: f.Visible,
		Dirty:   f.Dirty,

		Blend:    f.Blend,
		Strength: f.Strength,

		Influence: heightRegion{
			shape:    f.Influence,
			position: f.Position,
			cosR:     float32(math.Cos(float64(-f.Rotation))),
			sinR:     float32(math.Sin(float64(-f.Rotation))),
			invScale: mgl32.Vec2{1 / scale.X(), 1 / scale.Y()},
			size:     size,
			falloff:  falloff,
		},

		Amplitude: f.Amplitude,
		Modifiers: f.Modifiers,

		heightFunc: f.HeightFunc,

		seed:        f.Seed,
		frequency:   f.Frequency,
		octaves:     octaves,
		persistence: persistence,
		lacunarity:  lacunarity,
	}

	switch f.Kind {
	case KindPerlinNoise, KindMountain, KindMountainRange, KindDuneSea:
		c.noise = perlin.NewPerlin(2, lacunarity, int32(octaves), f.Seed)
	case KindIsland, KindCanyon, KindVoronoi:
		c.simplex = opensimplex.NewNormalized(f.Seed)
	}

	if f.Modifiers.Smoothing != SmoothNone && f.Modifiers.SmoothRadius > 0 {
		c.smooth = newSmoothMemo(f.Modifiers.SmoothRadius)
	}

	return c
}

// InfluenceFingerprint derives a cache key from the geometry-affecting
// parameters only, so height-only edits keep the influence raster valid.
// Positions and extents are rounded to centimeter precision.
func (c *EvalContext) InfluenceFingerprint() string {
	g := c.Influence
	return fmt.Sprintf("%d:%d:%d:%d:%d:%d:%d:%d",
		g.shape,
		roundCM(g.position.X()), roundCM(g.position.Y()),
		roundCM(g.size.X()), roundCM(g.size.Y()),
		roundCM(1/g.invScale.X()), roundCM(1/g.invScale.Y()),
		roundCM(g.falloff),
	)
}

// toLocal maps a world position into the feature's local frame.
func (g *heightRegion) toLocal(world mgl32.Vec2) mgl32.Vec2 {
	d := world.Sub(g.position)
	x := d.X()*g.cosR - d.Y()*g.sinR
	y := d.X()*g.sinR + d.Y()*g.cosR
	return mgl32.Vec2{x * g.invScale.X(), y * g.invScale.Y()}
}

func roundCM(v float32) int64 {
	return int64(math.Round(float64(v) * 100))
}

func clampf(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// smoothMemo caches smoothing results per spatial grid cell so nearby
// pixels reuse one ring sample. Concurrent row workers share it, hence
// the lock; entries are write-once.
type smoothMemo struct {
	mu       sync.RWMutex
	cellSize float32
	cells    map[[2]int32]float32
}

func newSmoothMemo(radius float32) *smoothMemo {
	cell := radius * 0.5
	if cell < minExtent {
		cell = minExtent
	}
	return &smoothMemo{
		cellSize: cell,
		cells:    make(map[[2]int32]float32),
	}
}

func (m *smoothMemo) key(p mgl32.Vec2) [2]int32 {
	return [2]int32{
		int32(math.Floor(float64(p.X() / m.cellSize))),
		int32(math.Floor(float64(p.Y() / m.cellSize))),
	}
}

func (m *smoothMemo) get(p mgl32.Vec2) (float32, bool) {
	k := m.key(p)
	m.mu.RLock()
	v, ok := m.cells[k]
	m.mu.RUnlock()
	return v, ok
}

func (m *smoothMemo) put(p mgl32.Vec2, v float32) {
	k := m.key(p)
	m.mu.Lock()
	m.cells[k] = v
	m.mu.Unlock()
}
