package feature

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

func TestEnumRoundtrips(t *testing.T) {
	for k := KindHill; k <= KindCustom; k++ {
		got, ok := KindFromString(k.String())
		if !ok || got != k {
			t.Errorf("kind %v did not roundtrip through %q", k, k.String())
		}
	}

	for m := BlendAdd; m <= BlendAverage; m++ {
		got, ok := BlendFromString(m.String())
		if !ok || got != m {
			t.Errorf("blend %v did not roundtrip through %q", m, m.String())
		}
	}

	for s := ShapeCircle; s <= ShapeEllipse; s++ {
		got, ok := ShapeFromString(s.String())
		if !ok || got != s {
			t.Errorf("shape %v did not roundtrip through %q", s, s.String())
		}
	}

	if _, ok := KindFromString("nonsense"); ok {
		t.Error("unknown kind name should not resolve")
	}
}

func TestNewDefaults(t *testing.T) {
	f := New(KindHill, mgl32.Vec2{10, -5})

	if f.ID == uuid.Nil {
		t.Error("expected a generated ID")
	}
	if f.Position.X() != 10 || f.Position.Y() != -5 {
		t.Errorf("unexpected position: %v", f.Position)
	}
	if f.Size.X() != 50 || f.Size.Y() != 50 {
		t.Errorf("unexpected default size: %v", f.Size)
	}
	if f.Scale.X() != 1 || f.Scale.Y() != 1 {
		t.Errorf("unexpected default scale: %v", f.Scale)
	}
	if f.Falloff != 0.3 || f.Strength != 1 || f.Amplitude != 10 {
		t.Error("unexpected default parameters")
	}
	if !f.Visible || !f.Dirty {
		t.Error("new features start visible and dirty")
	}
}

func TestInfluenceRect(t *testing.T) {
	f := New(KindHill, mgl32.Vec2{100, 200})
	f.Size = mgl32.Vec2{30, 10}

	r := f.InfluenceRect()
	if r.Position.X() != 70 || r.Position.Y() != 190 {
		t.Errorf("unexpected min corner: %v", r.Position)
	}
	if r.Size.X() != 60 || r.Size.Y() != 20 {
		t.Errorf("unexpected size: %v", r.Size)
	}

	// Rotation widens the rect to the circumscribed square.
	f.Rotation = 0.5
	r = f.InfluenceRect()
	if r.Size.X() != 60 || r.Size.Y() != 60 {
		t.Errorf("rotated rect should be square over the larger extent, got %v", r.Size)
	}

	// Scale multiplies the extents.
	f.Rotation = 0
	f.Scale = mgl32.Vec2{2, 1}
	r = f.InfluenceRect()
	if r.Size.X() != 120 {
		t.Errorf("scaled extent expected 120, got %f", r.Size.X())
	}
}

func TestCircleWeightContinuity(t *testing.T) {
	f := New(KindHill, mgl32.Vec2{0, 0})
	f.Size = mgl32.Vec2{50, 50}
	f.Falloff = 0.3
	c := f.Snapshot()

	// Inside the solid core the weight is exactly 1.
	if w := c.Weight(mgl32.Vec2{0, 0}); w != 1 {
		t.Errorf("expected weight 1 at center, got %f", w)
	}
	if w := c.Weight(mgl32.Vec2{34, 0}); w != 1 {
		t.Errorf("expected weight 1 inside the solid core, got %f", w)
	}

	// At and beyond the outer radius the weight is exactly 0.
	if w := c.Weight(mgl32.Vec2{50, 0}); w != 0 {
		t.Errorf("expected weight 0 at outer radius, got %f", w)
	}
	if w := c.Weight(mgl32.Vec2{80, 0}); w != 0 {
		t.Errorf("expected weight 0 outside, got %f", w)
	}

	// The ramp decreases monotonically between the radii.
	prev := float32(1)
	for d := float32(34); d <= 50; d += 0.5 {
		w := c.Weight(mgl32.Vec2{d, 0})
		if w > prev {
			t.Fatalf("weight not monotone at d=%f: %f > %f", d, w, prev)
		}
		if w < 0 || w > 1 {
			t.Fatalf("weight out of range at d=%f: %f", d, w)
		}
		prev = w
	}
}

func TestEllipseWeight(t *testing.T) {
	f := New(KindHill, mgl32.Vec2{0, 0})
	f.Influence = ShapeEllipse
	f.Size = mgl32.Vec2{100, 25}
	f.Falloff = 0.2
	c := f.Snapshot()

	if w := c.Weight(mgl32.Vec2{0, 0}); w != 1 {
		t.Errorf("expected weight 1 at center, got %f", w)
	}
	// On-axis boundary points reach zero at the respective extents.
	if w := c.Weight(mgl32.Vec2{100, 0}); w != 0 {
		t.Errorf("expected weight 0 on the X boundary, got %f", w)
	}
	if w := c.Weight(mgl32.Vec2{0, 25}); w != 0 {
		t.Errorf("expected weight 0 on the Y boundary, got %f", w)
	}
	// Well inside the inner fraction.
	if w := c.Weight(mgl32.Vec2{40, 0}); w != 1 {
		t.Errorf("expected weight 1 inside, got %f", w)
	}
}

func TestRectangleWeight(t *testing.T) {
	f := New(KindHill, mgl32.Vec2{0, 0})
	f.Influence = ShapeRectangle
	f.Size = mgl32.Vec2{40, 20}
	f.Falloff = 0.5
	c := f.Snapshot()

	if w := c.Weight(mgl32.Vec2{0, 0}); w != 1 {
		t.Errorf("expected weight 1 at center, got %f", w)
	}
	// On the boundary edge.
	if w := c.Weight(mgl32.Vec2{40, 0}); w != 0 {
		t.Errorf("expected weight 0 on the edge, got %f", w)
	}
	if w := c.Weight(mgl32.Vec2{41, 0}); w != 0 {
		t.Errorf("expected weight 0 outside, got %f", w)
	}
	// Deep interior beyond the ramp band (band = 0.5 * 20 = 10).
	if w := c.Weight(mgl32.Vec2{20, 0}); w != 1 {
		t.Errorf("expected weight 1 in the interior, got %f", w)
	}
}

func TestRotationMovesInfluence(t *testing.T) {
	f := New(KindHill, mgl32.Vec2{0, 0})
	f.Influence = ShapeRectangle
	f.Size = mgl32.Vec2{40, 5}
	f.Falloff = 0

	// Unrotated, a point far along Y is outside the thin rectangle.
	if w := f.WeightAt(mgl32.Vec2{0, 30}); w != 0 {
		t.Errorf("expected weight 0 before rotation, got %f", w)
	}

	// Rotated 90 degrees the long axis lies along Y.
	f.Rotation = math.Pi / 2
	if w := f.WeightAt(mgl32.Vec2{0, 30}); w != 1 {
		t.Errorf("expected weight 1 after rotation, got %f", w)
	}
}

func TestHillHeight(t *testing.T) {
	f := New(KindHill, mgl32.Vec2{0, 0})
	f.Size = mgl32.Vec2{50, 50}
	f.Amplitude = 12
	c := f.Snapshot()

	if h := c.Height(mgl32.Vec2{0, 0}); h != 12 {
		t.Errorf("expected peak height 12, got %f", h)
	}
	if h := c.Height(mgl32.Vec2{50, 0}); h != 0 {
		t.Errorf("expected height 0 at the boundary, got %f", h)
	}
	if h := c.Height(mgl32.Vec2{200, 37}); h != 0 {
		t.Errorf("expected height 0 outside, got %f", h)
	}

	// Heights fall monotonically from the peak on a smooth dome.
	prev := float32(12)
	for d := float32(0); d <= 50; d += 1 {
		h := c.Height(mgl32.Vec2{d, 0})
		if h > prev+1e-5 {
			t.Fatalf("hill not monotone at d=%f: %f > %f", d, h, prev)
		}
		prev = h
	}
}

func TestNoiseKindsDeterministic(t *testing.T) {
	for _, kind := range []Kind{KindMountain, KindPerlinNoise, KindIsland, KindVoronoi, KindCanyon, KindDuneSea, KindMountainRange} {
		f := New(kind, mgl32.Vec2{0, 0})
		f.Seed = 1337
		a := f.Snapshot()
		b := f.Snapshot()

		p := mgl32.Vec2{13.7, -4.2}
		if a.Height(p) != b.Height(p) {
			t.Errorf("kind %v: same seed must produce identical heights", kind)
		}
	}
}

func TestCustomHeightFunc(t *testing.T) {
	f := New(KindCustom, mgl32.Vec2{0, 0})
	f.HeightFunc = func(local mgl32.Vec2) float32 {
		return local.X() * 2
	}
	c := f.Snapshot()

	if h := c.Height(mgl32.Vec2{3, 0}); h != 6 {
		t.Errorf("expected custom height 6, got %f", h)
	}
}

func TestTerraceModifier(t *testing.T) {
	f := New(KindShape, mgl32.Vec2{0, 0})
	f.Amplitude = 37
	f.Modifiers.TerraceLevels = 4
	f.Modifiers.TerraceSmoothness = 0
	c := f.Snapshot()

	// terraceScale 100 over 4 levels gives a 25-unit step; 37 floors to 25.
	if h := c.Height(mgl32.Vec2{0, 0}); h != 25 {
		t.Errorf("expected terraced height 25, got %f", h)
	}
}

func TestClampModifier(t *testing.T) {
	f := New(KindHill, mgl32.Vec2{0, 0})
	f.Amplitude = 100
	f.Modifiers.ClampEnabled = true
	f.Modifiers.ClampMin = 0
	f.Modifiers.ClampMax = 30
	c := f.Snapshot()

	if h := c.Height(mgl32.Vec2{0, 0}); h != 30 {
		t.Errorf("expected clamped height 30, got %f", h)
	}
}

func TestSmoothingPreservesFlat(t *testing.T) {
	f := New(KindShape, mgl32.Vec2{0, 0})
	f.Amplitude = 8
	f.Influence = ShapeRectangle
	f.Size = mgl32.Vec2{1000, 1000}
	f.Modifiers.Smoothing = SmoothMedium
	f.Modifiers.SmoothRadius = 2
	c := f.Snapshot()

	// Averaging a constant region must return the constant.
	if h := c.Height(mgl32.Vec2{0, 0}); math.Abs(float64(h-8)) > 1e-4 {
		t.Errorf("expected smoothed flat height 8, got %f", h)
	}
}

func TestInfluenceFingerprint(t *testing.T) {
	f := New(KindHill, mgl32.Vec2{0, 0})
	base := f.Snapshot().InfluenceFingerprint()

	// Height-only edits keep the fingerprint stable.
	f.Amplitude = 99
	f.Seed = 42
	if f.Snapshot().InfluenceFingerprint() != base {
		t.Error("height parameter edits must not change the fingerprint")
	}

	// Sub-centimeter jitter rounds away.
	f.Position = mgl32.Vec2{0.001, 0}
	if f.Snapshot().InfluenceFingerprint() != base {
		t.Error("sub-centimeter moves must not change the fingerprint")
	}

	// Geometry edits do change it.
	f.Position = mgl32.Vec2{5, 0}
	moved := f.Snapshot().InfluenceFingerprint()
	if moved == base {
		t.Error("position change must change the fingerprint")
	}

	f.Position = mgl32.Vec2{0, 0}
	f.Size = mgl32.Vec2{60, 50}
	if f.Snapshot().InfluenceFingerprint() == base {
		t.Error("size change must change the fingerprint")
	}
}

func TestSnapshotCapturesDirty(t *testing.T) {
	f := New(KindHill, mgl32.Vec2{0, 0})
	f.Dirty = false

	if f.Snapshot().Dirty {
		t.Error("snapshot should capture a clean flag")
	}

	f.MarkDirty()
	c := f.Snapshot()
	if !c.Dirty {
		t.Error("snapshot should capture the dirty flag")
	}

	// Later live edits never leak into an existing snapshot.
	f.Dirty = false
	if !c.Dirty {
		t.Error("snapshot must be immutable")
	}
}

func TestSnapshotClampsDegenerateInputs(t *testing.T) {
	f := New(KindHill, mgl32.Vec2{0, 0})
	f.Size = mgl32.Vec2{0, -3}
	f.Scale = mgl32.Vec2{0, 0}
	f.Falloff = 4
	f.Octaves = -1
	c := f.Snapshot()

	// Degenerate geometry must not produce NaNs.
	h := c.Height(mgl32.Vec2{1, 1})
	if math.IsNaN(float64(h)) || math.IsInf(float64(h), 0) {
		t.Errorf("degenerate feature produced non-finite height %f", h)
	}
	w := c.Weight(mgl32.Vec2{1, 1})
	if math.IsNaN(float64(w)) || w < 0 || w > 1 {
		t.Errorf("degenerate feature produced bad weight %f", w)
	}
}
