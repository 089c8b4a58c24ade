// Package heightmap provides the single-channel float raster that the
// compositor produces and the mesh builder, texturing and collision
// consumers read. Samples are row-major with (W+1)x(H+1) entries for a
// WxH grid so that both edges of the covered bounds carry a sample.
package heightmap

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Grid resolution limits shared by everything that sizes a raster: the
// compositor clamps at these boundaries and the configuration surface
// normalizes against the same range.
const (
	MinResolution = 16
	MaxResolution = 1024
)

// Heightmap is a 2D raster of float32 height samples over world bounds.
// Sample (x, y) maps to world position
// bounds.Position + (x, y) * bounds.Size / resolution.
type Heightmap struct {
	Bounds Rect2

	// Width and Height are the grid resolution; the sample raster is
	// (Width+1) x (Height+1).
	Width  int
	Height int

	// Data is row-major: Data[y*(Width+1)+x].
	Data []float32
}

// New allocates a zeroed heightmap for a WxH grid over bounds.
func New(width, height int, bounds Rect2) *Heightmap {
	return &Heightmap{
		Bounds: bounds,
		Width:  width,
		Height: height,
		Data:   make([]float32, (width+1)*(height+1)),
	}
}

// NewUniform allocates a heightmap with every sample set to v.
func NewUniform(width, height int, bounds Rect2, v float32) *Heightmap {
	hm := New(width, height, bounds)
	hm.Fill(v)
	return hm
}

// Samples returns the raster dimensions (Width+1, Height+1).
func (h *Heightmap) Samples() (int, int) {
	return h.Width + 1, h.Height + 1
}

// Index returns the flat index of sample (x, y).
func (h *Heightmap) Index(x, y int) int {
	return y*(h.Width+1) + x
}

// At returns the sample at grid coordinates (x, y).
func (h *Heightmap) At(x, y int) float32 {
	return h.Data[y*(h.Width+1)+x]
}

// Set stores v at grid coordinates (x, y).
func (h *Heightmap) Set(x, y int, v float32) {
	h.Data[y*(h.Width+1)+x] = v
}

// SampleSpacing returns the world distance between adjacent samples.
func (h *Heightmap) SampleSpacing() mgl32.Vec2 {
	return mgl32.Vec2{
		h.Bounds.Size.X() / float32(h.Width),
		h.Bounds.Size.Y() / float32(h.Height),
	}
}

// WorldAt returns the world position of sample (x, y).
func (h *Heightmap) WorldAt(x, y int) mgl32.Vec2 {
	sp := h.SampleSpacing()
	return mgl32.Vec2{
		h.Bounds.Position.X() + float32(x)*sp.X(),
		h.Bounds.Position.Y() + float32(y)*sp.Y(),
	}
}

// GridAt returns the sample coordinates covering a world position, clamped
// to the raster. The second pair is the exclusive upper bound useful when
// rasterizing a world rectangle.
func (h *Heightmap) GridAt(world mgl32.Vec2) (int, int) {
	sp := h.SampleSpacing()
	x := int((world.X() - h.Bounds.Position.X()) / sp.X())
	y := int((world.Y() - h.Bounds.Position.Y()) / sp.Y())
	return clampi(x, 0, h.Width), clampi(y, 0, h.Height)
}

// GridRect returns the inclusive sample range [x0,x1]x[y0,y1] covered by a
// world rectangle, clamped to the raster.
func (h *Heightmap) GridRect(r Rect2) (x0, y0, x1, y1 int) {
	sp := h.SampleSpacing()
	x0 = clampi(int((r.Position.X()-h.Bounds.Position.X())/sp.X()), 0, h.Width)
	y0 = clampi(int((r.Position.Y()-h.Bounds.Position.Y())/sp.Y()), 0, h.Height)
	x1 = clampi(int((r.End().X()-h.Bounds.Position.X())/sp.X())+1, 0, h.Width)
	y1 = clampi(int((r.End().Y()-h.Bounds.Position.Y())/sp.Y())+1, 0, h.Height)
	return
}

// Fill sets every sample to v.
func (h *Heightmap) Fill(v float32) {
	for i := range h.Data {
		h.Data[i] = v
	}
}

// Clone returns a deep copy.
func (h *Heightmap) Clone() *Heightmap {
	out := &Heightmap{
		Bounds: h.Bounds,
		Width:  h.Width,
		Height: h.Height,
		Data:   make([]float32, len(h.Data)),
	}
	copy(out.Data, h.Data)
	return out
}

// Equal reports whether two heightmaps have identical resolution and
// bit-identical samples. Bounds are not compared.
func (h *Heightmap) Equal(o *Heightmap) bool {
	if o == nil || h.Width != o.Width || h.Height != o.Height {
		return false
	}
	for i, v := range h.Data {
		if v != o.Data[i] {
			return false
		}
	}
	return true
}

// MinMax returns the lowest and highest sample values.
func (h *Heightmap) MinMax() (float32, float32) {
	if len(h.Data) == 0 {
		return 0, 0
	}
	lo, hi := h.Data[0], h.Data[0]
	for _, v := range h.Data[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

func clampi(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
