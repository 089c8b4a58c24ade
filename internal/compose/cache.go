package compose

import (
	"github.com/google/uuid"

	"github.com/fabian-becker/Terrainy/internal/feature"
	"github.com/fabian-becker/Terrainy/pkg/heightmap"
)

// Cache holds the per-feature height layers and influence rasters between
// compose passes. It is written only by the compose pass that owns it and
// read-only while row workers blend, so no locking is needed; the composer
// guarantees passes never overlap.
type Cache struct {
	heights    map[uuid.UUID]*heightmap.Heightmap
	influences map[uuid.UUID]*influenceEntry

	// Hit counters, exposed for tests and diagnostics.
	HeightHits      int
	HeightMisses    int
	InfluenceHits   int
	InfluenceMisses int
}

// influenceEntry is a cached influence raster plus the fingerprint of the
// geometry parameters it was computed from. Edits that do not move the
// influence geometry keep the fingerprint, and the raster stays valid.
type influenceEntry struct {
	fingerprint string
	width       int
	height      int
	weights     []float32
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{
		heights:    make(map[uuid.UUID]*heightmap.Heightmap),
		influences: make(map[uuid.UUID]*influenceEntry),
	}
}

// Layer returns the cached height layer for a feature, if present.
func (c *Cache) Layer(id uuid.UUID) (*heightmap.Heightmap, bool) {
	hm, ok := c.heights[id]
	return hm, ok
}

// StoreLayer caches a freshly generated height layer.
func (c *Cache) StoreLayer(id uuid.UUID, hm *heightmap.Heightmap) {
	c.heights[id] = hm
}

// Influence returns the cached influence raster if its fingerprint still
// matches the snapshot's geometry.
func (c *Cache) Influence(id uuid.UUID, fingerprint string, width, height int) ([]float32, bool) {
	e, ok := c.influences[id]
	if !ok || e.fingerprint != fingerprint || e.width != width || e.height != height {
		return nil, false
	}
	return e.weights, true
}

// StoreInfluence caches an influence raster under its fingerprint.
func (c *Cache) StoreInfluence(id uuid.UUID, fingerprint string, width, height int, weights []float32) {
	c.influences[id] = &influenceEntry{
		fingerprint: fingerprint,
		width:       width,
		height:      height,
		weights:     weights,
	}
}

// InvalidateAll drops everything. Used when resolution or bounds change.
// Called only from inside a compose pass; see Job.Reset.
func (c *Cache) InvalidateAll() {
	c.heights = make(map[uuid.UUID]*heightmap.Heightmap)
	c.influences = make(map[uuid.UUID]*influenceEntry)
}

// Retain drops cache entries for features no longer present or hidden.
func (c *Cache) Retain(active map[uuid.UUID]bool) {
	for id := range c.heights {
		if !active[id] {
			delete(c.heights, id)
		}
	}
	for id := range c.influences {
		if !active[id] {
			delete(c.influences, id)
		}
	}
}

// ensureLayer returns the feature's height layer, regenerating it when the
// cache misses, the snapshot is dirty, or the cached resolution disagrees
// with the target grid.
func (c *Compositor) ensureLayer(snap *feature.EvalContext, width, height int, bounds heightmap.Rect2) *heightmap.Heightmap {
	if hm, ok := c.cache.Layer(snap.ID); ok && !snap.Dirty && hm.Width == width && hm.Height == height {
		c.cache.HeightHits++
		return hm
	}
	c.cache.HeightMisses++

	hm := heightmap.New(width, height, bounds)
	sw, sh := hm.Samples()
	c.forEachRowBand(sh, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < sw; x++ {
				hm.Data[y*sw+x] = snap.Height(hm.WorldAt(x, y))
			}
		}
	})
	c.cache.StoreLayer(snap.ID, hm)
	return hm
}

// ensureInfluence returns the feature's influence raster, recomputing the
// full per-pixel weights only when the geometry fingerprint changed.
func (c *Compositor) ensureInfluence(snap *feature.EvalContext, width, height int, bounds heightmap.Rect2) []float32 {
	fp := snap.InfluenceFingerprint()
	sw, sh := width+1, height+1
	if w, ok := c.cache.Influence(snap.ID, fp, sw, sh); ok {
		c.cache.InfluenceHits++
		return w
	}
	c.cache.InfluenceMisses++

	grid := heightmap.New(width, height, bounds)
	weights := make([]float32, sw*sh)
	c.forEachRowBand(sh, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < sw; x++ {
				weights[y*sw+x] = snap.Weight(grid.WorldAt(x, y))
			}
		}
	})
	c.cache.StoreInfluence(snap.ID, fp, sw, sh, weights)
	return weights
}
