package compose

import (
	"github.com/fabian-becker/Terrainy/pkg/heightmap"
)

// DefaultMaxDirtyRegions caps the dirty-region list before the tracker
// degrades to a full rebuild. The value is a pragmatic threshold, tunable
// rather than load-bearing.
const DefaultMaxDirtyRegions = 10

// DirtyTracker accumulates world-space rectangles whose heights are stale.
// Regions that intersect or enclose one another are merged; past the cap
// the tracker degrades to a full rebuild to avoid unbounded fragmentation.
type DirtyTracker struct {
	regions []heightmap.Rect2
	limit   int
	full    bool
}

// NewDirtyTracker builds a tracker. limit <= 0 uses the default cap.
func NewDirtyTracker(limit int) *DirtyTracker {
	if limit <= 0 {
		limit = DefaultMaxDirtyRegions
	}
	return &DirtyTracker{limit: limit}
}

// Add marks a rectangle dirty, merging it into an existing region when
// they intersect or one encloses the other.
func (t *DirtyTracker) Add(r heightmap.Rect2) {
	if t.full {
		return
	}
	for i, existing := range t.regions {
		if existing.Intersects(r) || existing.Encloses(r) || r.Encloses(existing) {
			t.regions[i] = existing.Merge(r)
			return
		}
	}
	if len(t.regions) >= t.limit {
		t.MarkFull()
		return
	}
	t.regions = append(t.regions, r)
}

// MarkFull forces a full rebuild on the next pass.
func (t *DirtyTracker) MarkFull() {
	t.full = true
	t.regions = t.regions[:0]
}

// Full reports whether the tracker degraded to a full rebuild.
func (t *DirtyTracker) Full() bool {
	return t.full
}

// Empty reports whether nothing is dirty.
func (t *DirtyTracker) Empty() bool {
	return !t.full && len(t.regions) == 0
}

// Regions returns the pending dirty rectangles. Only meaningful when the
// tracker is not full.
func (t *DirtyTracker) Regions() []heightmap.Rect2 {
	out := make([]heightmap.Rect2, len(t.regions))
	copy(out, t.regions)
	return out
}

// Reset clears all state once a pass has taken ownership of it.
func (t *DirtyTracker) Reset() {
	t.regions = t.regions[:0]
	t.full = false
}
