package compose

import (
	"context"
	"runtime"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fabian-becker/Terrainy/internal/feature"
	"github.com/fabian-becker/Terrainy/pkg/heightmap"
)

// minRowsForParallel is the grid height below which the row-band blend
// runs single-threaded; smaller grids don't amortize goroutine startup.
const minRowsForParallel = 256

// Backend is a GPU blend backend. Any error it returns triggers a CPU
// fallback; it is never surfaced to the caller of Compose.
type Backend interface {
	Available() bool
	Blend(job *BlendJob) ([]float32, error)
}

// BlendJob carries everything a backend needs for one full-grid blend:
// the flattened per-feature layers and influence rasters in list order.
type BlendJob struct {
	Width, Height int // sample counts, not grid resolution
	BaseHeight    float32
	Layers        [][]float32
	Influences    [][]float32
	Modes         []feature.BlendMode
	Strengths     []float32
}

// Job is one compose request over an immutable set of feature snapshots.
type Job struct {
	Features   []*feature.EvalContext
	Width      int
	Height     int
	Bounds     heightmap.Rect2
	BaseHeight float32
	PreferGPU  bool

	// Reset drops every cache entry before the pass starts. Global
	// invalidation travels with the job so the maps are only ever touched
	// inside the pass serialization window.
	Reset bool

	// Regions, when non-empty together with Previous, restricts the blend
	// to the covered grid cells; everything else is copied from Previous.
	Regions  []heightmap.Rect2
	Previous *heightmap.Heightmap
}

// Compositor owns the per-feature caches and turns feature snapshots into
// one blended heightmap. One compose pass runs at a time; the composer
// serializes calls.
type Compositor struct {
	cache   *Cache
	gpu     Backend
	workers int
	log     *zap.Logger

	// set per pass so row-band helpers can honor cancellation
	ctx context.Context
}

// NewCompositor builds a compositor. gpu may be nil (CPU only). workers
// <= 0 means runtime.NumCPU().
func NewCompositor(gpu Backend, workers int, log *zap.Logger) *Compositor {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Compositor{
		cache:   NewCache(),
		gpu:     gpu,
		workers: workers,
		log:     log,
	}
}

// Cache exposes the compositor's cache for invalidation and stats.
func (c *Compositor) Cache() *Cache {
	return c.cache
}

// Compose runs one pass: refresh stale per-feature layers and influence
// rasters, then blend them over the base height. GPU is attempted first
// when requested; any GPU failure falls back to the CPU path. With no
// visible features the result is a uniform base-height raster.
func (c *Compositor) Compose(ctx context.Context, job Job) (*heightmap.Heightmap, error) {
	c.ctx = ctx
	defer func() { c.ctx = nil }()

	if job.Reset {
		c.cache.InvalidateAll()
	}

	visible := make([]*feature.EvalContext, 0, len(job.Features))
	for _, f := range job.Features {
		if f.Visible {
			visible = append(visible, f)
		}
	}

	// Drop cache entries for removed or hidden features.
	c.retainVisible(visible)

	// Steps 1 and 2: refresh per-feature caches.
	layers := make([]*heightmap.Heightmap, len(visible))
	weights := make([][]float32, len(visible))
	for i, snap := range visible {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		layers[i] = c.ensureLayer(snap, job.Width, job.Height, job.Bounds)
		weights[i] = c.ensureInfluence(snap, job.Width, job.Height, job.Bounds)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Partial update: recompute only the dirty grid cells from the
	// (still valid) caches, keep the rest of the previous result.
	if len(job.Regions) > 0 && job.Previous != nil &&
		job.Previous.Width == job.Width && job.Previous.Height == job.Height {
		return c.blendRegions(job, visible, layers, weights)
	}

	// Step 3: GPU path.
	if job.PreferGPU && c.gpu != nil && c.gpu.Available() {
		if out, err := c.blendGPU(job, visible, layers, weights); err == nil {
			return out, nil
		} else {
			c.log.Warn("gpu blend failed, falling back to cpu", zap.Error(err))
		}
	}

	// Steps 4 and 5: CPU path.
	return c.blendCPU(job, visible, layers, weights)
}

// blendCPU folds every feature into a uniform base raster, splitting the
// grid into disjoint row bands across workers. Each worker writes only its
// own rows, so the output needs no locking.
func (c *Compositor) blendCPU(job Job, visible []*feature.EvalContext, layers []*heightmap.Heightmap, weights [][]float32) (*heightmap.Heightmap, error) {
	out := heightmap.NewUniform(job.Width, job.Height, job.Bounds, job.BaseHeight)
	sw, sh := out.Samples()

	usable := c.usableFeatures(job, visible, layers)

	c.forEachRowBand(sh, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < sw; x++ {
				idx := y*sw + x
				acc := job.BaseHeight
				for _, u := range usable {
					w := weights[u][idx]
					if w < minInfluence {
						continue
					}
					snap := visible[u]
					acc = blendSample(snap.Blend, acc, layers[u].Data[idx], w, snap.Strength)
				}
				out.Data[idx] = acc
			}
		}
	})

	if err := c.ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// blendRegions recomputes only the samples covered by the dirty regions,
// starting from the previous result.
func (c *Compositor) blendRegions(job Job, visible []*feature.EvalContext, layers []*heightmap.Heightmap, weights [][]float32) (*heightmap.Heightmap, error) {
	out := job.Previous.Clone()
	out.Bounds = job.Bounds
	sw, _ := out.Samples()

	usable := c.usableFeatures(job, visible, layers)

	for _, region := range job.Regions {
		if err := c.ctx.Err(); err != nil {
			return nil, err
		}
		x0, y0, x1, y1 := out.GridRect(region)
		for y := y0; y <= y1; y++ {
			for x := x0; x <= x1; x++ {
				idx := y*sw + x
				acc := job.BaseHeight
				for _, u := range usable {
					w := weights[u][idx]
					if w < minInfluence {
						continue
					}
					snap := visible[u]
					acc = blendSample(snap.Blend, acc, layers[u].Data[idx], w, snap.Strength)
				}
				out.Data[idx] = acc
			}
		}
	}
	return out, nil
}

// blendGPU flattens the cached rasters into a BlendJob and hands it to the
// backend.
func (c *Compositor) blendGPU(job Job, visible []*feature.EvalContext, layers []*heightmap.Heightmap, weights [][]float32) (*heightmap.Heightmap, error) {
	usable := c.usableFeatures(job, visible, layers)
	sw, sh := job.Width+1, job.Height+1

	bj := &BlendJob{
		Width:      sw,
		Height:     sh,
		BaseHeight: job.BaseHeight,
	}
	for _, u := range usable {
		bj.Layers = append(bj.Layers, layers[u].Data)
		bj.Influences = append(bj.Influences, weights[u])
		bj.Modes = append(bj.Modes, visible[u].Blend)
		bj.Strengths = append(bj.Strengths, visible[u].Strength)
	}

	data, err := c.gpu.Blend(bj)
	if err != nil {
		return nil, err
	}
	out := heightmap.New(job.Width, job.Height, job.Bounds)
	copy(out.Data, data)
	return out, nil
}

// usableFeatures filters out features whose cached layer resolution
// disagrees with the target grid; they are skipped with a warning, never
// allowed to crash the blend.
func (c *Compositor) usableFeatures(job Job, visible []*feature.EvalContext, layers []*heightmap.Heightmap) []int {
	usable := make([]int, 0, len(visible))
	for i, layer := range layers {
		if layer.Width != job.Width || layer.Height != job.Height {
			c.log.Warn("feature layer resolution mismatch, skipping",
				zap.String("feature", visible[i].ID.String()),
				zap.Int("layer_width", layer.Width),
				zap.Int("target_width", job.Width))
			continue
		}
		usable = append(usable, i)
	}
	return usable
}

// retainVisible drops cache entries for features not in the visible set.
func (c *Compositor) retainVisible(visible []*feature.EvalContext) {
	active := make(map[uuid.UUID]bool, len(visible))
	for _, snap := range visible {
		active[snap.ID] = true
	}
	c.cache.Retain(active)
}

// forEachRowBand runs fn over disjoint row ranges, in parallel when the
// grid is tall enough to amortize the goroutines. Cancellation is checked
// between bands on the single-threaded path and by Compose afterwards.
func (c *Compositor) forEachRowBand(rows int, fn func(y0, y1 int)) {
	workers := c.workers
	if rows < minRowsForParallel || workers <= 1 {
		fn(0, rows)
		return
	}
	if workers > rows {
		workers = rows
	}

	band := (rows + workers - 1) / workers
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		y0 := w * band
		y1 := y0 + band
		if y1 > rows {
			y1 = rows
		}
		if y0 >= y1 {
			break
		}
		wg.Add(1)
		go func(y0, y1 int) {
			defer wg.Done()
			fn(y0, y1)
		}(y0, y1)
	}
	wg.Wait()
}
