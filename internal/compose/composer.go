package compose

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fabian-becker/Terrainy/internal/feature"
	"github.com/fabian-becker/Terrainy/pkg/heightmap"
	"github.com/fabian-becker/Terrainy/pkg/mesh"
)

// State is the composer's rebuild cycle position.
type State int32

const (
	StateIdle State = iota
	StatePendingDebounce
	StateComposing
	StateMeshBuilding
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePendingDebounce:
		return "pending_debounce"
	case StateComposing:
		return "composing"
	case StateMeshBuilding:
		return "mesh_building"
	}
	return "unknown"
}

// Options configure the composer.
type Options struct {
	Bounds     heightmap.Rect2
	Resolution int
	BaseHeight float32

	AutoUpdate bool
	PreferGPU  bool
	Debounce   time.Duration

	// MaxFeatures is a soft cap; features past it are ignored with a
	// warning, never an error.
	MaxFeatures int

	Workers int

	// CloseTimeout bounds how long Close waits for in-flight work. A
	// leaked worker is preferred to a hang.
	CloseTimeout time.Duration
}

// Resolution limits live with the raster type; values outside are
// clamped at the boundary, never reported as errors.
const (
	MinResolution = heightmap.MinResolution
	MaxResolution = heightmap.MaxResolution
)

func (o *Options) normalize() {
	if o.Resolution < MinResolution {
		o.Resolution = MinResolution
	}
	if o.Resolution > MaxResolution {
		o.Resolution = MaxResolution
	}
	if o.Debounce <= 0 {
		o.Debounce = 150 * time.Millisecond
	}
	if o.MaxFeatures <= 0 {
		o.MaxFeatures = 256
	}
	if o.CloseTimeout <= 0 {
		o.CloseTimeout = 5 * time.Second
	}
}

// Result is one finished rebuild: the blended heightmap and the mesh
// triangulated from it.
type Result struct {
	Heightmap  *heightmap.Heightmap
	Mesh       *mesh.Mesh
	Generation uint64
	Elapsed    time.Duration
}

// rebuild is one in-flight pass. done closes after result/err are set.
// The consumed fields record the dirty state the pass took ownership of
// at start; if the pass never publishes, that state is handed back so a
// later pass still sees the edits.
type rebuild struct {
	gen    uint64
	cancel context.CancelFunc
	done   chan struct{}
	result *Result
	err    error

	consumedDirty   []uuid.UUID
	consumedRegions []heightmap.Rect2
	consumedFull    bool
	consumedReset   bool
}

// Composer owns the feature list and drives rebuilds: it debounces
// parameter changes, coalesces them into one pass, snapshots features on
// the control goroutine, offloads composition and meshing to a worker
// goroutine, and publishes results through Poll. All methods are
// control-goroutine only except State.
type Composer struct {
	opts Options
	comp *Compositor
	log  *zap.Logger

	features []*feature.Feature
	tracker  *DirtyTracker
	full     bool // next rebuild must ignore dirty regions
	reset    bool // next pass drops every cache entry first

	pending  bool
	deadline time.Time

	state atomic.Int32
	gen   atomic.Uint64

	inflight *rebuild
	last     *Result
	ready    *Result
}

// NewComposer builds a composer. gpu may be nil for CPU-only operation.
func NewComposer(opts Options, gpu Backend, log *zap.Logger) *Composer {
	opts.normalize()
	if log == nil {
		log = zap.NewNop()
	}
	return &Composer{
		opts:    opts,
		comp:    NewCompositor(gpu, opts.Workers, log),
		log:     log,
		tracker: NewDirtyTracker(0),
		full:    true, // nothing composed yet
	}
}

// State returns the current rebuild cycle state. Safe on any goroutine.
func (c *Composer) State() State {
	return State(c.state.Load())
}

// Compositor exposes the underlying compositor, mainly for tests.
func (c *Composer) Compositor() *Compositor {
	return c.comp
}

// Features returns the live feature list. Control-goroutine only.
func (c *Composer) Features() []*feature.Feature {
	return c.features
}

// AddFeature registers a feature and schedules a rebuild.
func (c *Composer) AddFeature(f *feature.Feature) {
	c.features = append(c.features, f)
	f.MarkDirty()
	c.markRegion(f)
	c.schedule()
}

// RemoveFeature unregisters a feature and schedules a rebuild over the
// area it used to cover.
func (c *Composer) RemoveFeature(f *feature.Feature) {
	for i, existing := range c.features {
		if existing.ID == f.ID {
			c.features = append(c.features[:i], c.features[i+1:]...)
			break
		}
	}
	// The cache entry is evicted by the next pass's retain step; the maps
	// must not be touched here while a pass may be reading them.
	c.markRegion(f)
	c.schedule()
}

// NotifyChange records a single-feature parameter change: only that
// feature's height layer goes stale, and only its influence rectangle is
// marked dirty. Geometry changes additionally invalidate the influence
// raster through its fingerprint on the next pass.
func (c *Composer) NotifyChange(f *feature.Feature) {
	f.MarkDirty()
	c.markRegion(f)
	c.schedule()
}

// SetBounds changes the covered world rectangle: global invalidation.
func (c *Composer) SetBounds(b heightmap.Rect2) {
	c.opts.Bounds = b
	c.invalidateGlobal()
}

// SetResolution changes the grid resolution, clamped to the valid range:
// global invalidation.
func (c *Composer) SetResolution(res int) {
	if res < MinResolution {
		res = MinResolution
	}
	if res > MaxResolution {
		res = MaxResolution
	}
	c.opts.Resolution = res
	c.invalidateGlobal()
}

// SetBaseHeight marks the entire bounds dirty but leaves every
// per-feature cache untouched; topology is reusable, heights are not.
func (c *Composer) SetBaseHeight(h float32) {
	c.opts.BaseHeight = h
	c.tracker.Add(c.opts.Bounds)
	c.schedule()
}

// invalidateGlobal marks every cache entry for disposal. The reset is
// carried by the next pass and applied inside its serialization window,
// so an in-flight pass never sees the maps change under it.
func (c *Composer) invalidateGlobal() {
	c.reset = true
	c.full = true
	c.tracker.MarkFull()
	c.schedule()
}

// markRegion adds the feature's influence rectangle, padded for the edge
// ramp, to the dirty set.
func (c *Composer) markRegion(f *feature.Feature) {
	r := f.InfluenceRect()
	pad := f.Falloff * maxf32(f.Size.X(), f.Size.Y())
	c.tracker.Add(r.Grow(pad))
}

// schedule (re)starts the debounce window; changes arriving inside the
// window coalesce into one rebuild.
func (c *Composer) schedule() {
	c.pending = true
	c.deadline = time.Now().Add(c.opts.Debounce)
	if c.State() == StateIdle {
		c.state.Store(int32(StatePendingDebounce))
	}
}

// Update drives the composer: call it regularly from the control
// goroutine. It collects finished work and starts a rebuild once the
// debounce window has expired.
func (c *Composer) Update() {
	c.collect()
	if c.pending && c.opts.AutoUpdate && !time.Now().Before(c.deadline) {
		c.startRebuild()
	}
}

// Rebuild starts a pass immediately, bypassing the debounce window.
func (c *Composer) Rebuild() {
	c.collect()
	c.pending = true
	c.startRebuild()
}

// Poll returns the most recent finished result, at most once, without
// blocking. The control goroutine applies the mesh/heightmap from here.
func (c *Composer) Poll() (*Result, bool) {
	c.collect()
	if c.ready == nil {
		return nil, false
	}
	r := c.ready
	c.ready = nil
	return r, true
}

// Last returns the most recent result without consuming it.
func (c *Composer) Last() *Result {
	return c.last
}

// collect drains a finished in-flight rebuild. Stale results (superseded
// by a newer generation) are discarded, never applied.
func (c *Composer) collect() {
	rb := c.inflight
	if rb == nil {
		return
	}
	select {
	case <-rb.done:
	default:
		return
	}
	c.inflight = nil

	if rb.err != nil {
		if rb.err != context.Canceled {
			c.log.Warn("rebuild failed", zap.Error(rb.err))
		}
		c.restore(rb)
		c.schedule()
		return
	}
	if rb.gen != c.gen.Load() {
		c.restore(rb)
		c.schedule()
		return // superseded
	}
	c.last = rb.result
	c.ready = rb.result
	if !c.pending {
		c.state.Store(int32(StateIdle))
	}
}

// startRebuild snapshots the features and dirty state on the control
// goroutine, requests cancellation of any in-flight pass, and hands the
// work to a fresh goroutine. The new pass waits for the old one to wind
// down before touching the caches. The superseded pass's result is never
// published, so whatever dirty state it consumed transfers to this pass
// before the snapshot is taken.
func (c *Composer) startRebuild() {
	prev := c.inflight
	if prev != nil {
		prev.cancel()
		c.restore(prev)
	}

	snaps, dirtyIDs := c.snapshot()
	full := c.full || c.tracker.Full()
	regions := c.tracker.Regions()

	job := Job{
		Features:   snaps,
		Width:      c.opts.Resolution,
		Height:     c.opts.Resolution,
		Bounds:     c.opts.Bounds,
		BaseHeight: c.opts.BaseHeight,
		PreferGPU:  c.opts.PreferGPU,
		Reset:      c.reset,
	}
	if !full && len(regions) > 0 && c.last != nil {
		job.Regions = regions
		job.Previous = c.last.Heightmap
	}
	c.tracker.Reset()
	c.full = false
	c.reset = false
	c.pending = false

	gen := c.gen.Add(1)
	ctx, cancel := context.WithCancel(context.Background())
	rb := &rebuild{
		gen:    gen,
		cancel: cancel,
		done:   make(chan struct{}),

		consumedDirty:   dirtyIDs,
		consumedRegions: regions,
		consumedFull:    full,
		consumedReset:   job.Reset,
	}

	c.inflight = rb
	c.state.Store(int32(StateComposing))

	go c.run(ctx, rb, prev, job)
}

// restore hands a discarded pass's consumed dirty state back to the
// composer so the edits it carried are not silently dropped.
func (c *Composer) restore(rb *rebuild) {
	for _, id := range rb.consumedDirty {
		for _, f := range c.features {
			if f.ID == id {
				f.Dirty = true
				break
			}
		}
	}
	if rb.consumedFull {
		c.full = true
		c.tracker.MarkFull()
	}
	for _, r := range rb.consumedRegions {
		c.tracker.Add(r)
	}
	if rb.consumedReset {
		c.reset = true
	}
}

// run executes one pass off the control goroutine. Two passes never
// overlap against the shared caches: the newer one blocks on the older
// one's done channel first.
func (c *Composer) run(ctx context.Context, rb *rebuild, prev *rebuild, job Job) {
	defer close(rb.done)

	if prev != nil {
		<-prev.done
	}
	if err := ctx.Err(); err != nil {
		rb.err = err
		return
	}

	start := time.Now()
	hm, err := c.comp.Compose(ctx, job)
	if err != nil {
		rb.err = err
		return
	}

	if rb.gen == c.gen.Load() {
		c.state.Store(int32(StateMeshBuilding))
	}
	m := mesh.Build(hm)

	rb.result = &Result{
		Heightmap:  hm,
		Mesh:       m,
		Generation: rb.gen,
		Elapsed:    time.Since(start),
	}
}

// snapshot captures evaluation contexts for all features on the control
// goroutine and consumes their dirty flags, returning the IDs whose flag
// was cleared. Features past the soft cap are ignored with a warning.
func (c *Composer) snapshot() ([]*feature.EvalContext, []uuid.UUID) {
	list := c.features
	if len(list) > c.opts.MaxFeatures {
		c.log.Warn("feature count over soft cap, ignoring extras",
			zap.Int("count", len(list)),
			zap.Int("cap", c.opts.MaxFeatures))
		list = list[:c.opts.MaxFeatures]
	}

	snaps := make([]*feature.EvalContext, 0, len(list))
	var dirty []uuid.UUID
	for _, f := range list {
		snaps = append(snaps, f.Snapshot())
		if f.Dirty {
			dirty = append(dirty, f.ID)
			f.Dirty = false
		}
	}
	return snaps, dirty
}

// Close cancels in-flight work and waits, bounded by CloseTimeout. Past
// the bound it returns anyway; a leaked worker beats a teardown hang.
func (c *Composer) Close() {
	rb := c.inflight
	if rb == nil {
		return
	}
	rb.cancel()
	select {
	case <-rb.done:
	case <-time.After(c.opts.CloseTimeout):
		c.log.Warn("close timed out waiting for in-flight rebuild")
	}
	c.inflight = nil
	c.state.Store(int32(StateIdle))
}

func maxf32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
