// Package mesh triangulates a composed heightmap into a renderable and
// collidable grid mesh: one vertex per sample, two triangles per grid
// cell, smooth normals.
package mesh

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/fabian-becker/Terrainy/pkg/heightmap"
)

// Vertex is one mesh vertex. Positions are world units with the height on
// the Y axis; UVs span [0,1] across the terrain bounds.
type Vertex struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
	UV       mgl32.Vec2
}

// Bounds is the axis-aligned box around the mesh.
type Bounds struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

// Mesh is an indexed triangle mesh over the heightmap grid.
type Mesh struct {
	Vertices []Vertex
	Indices  []uint32
	Bounds   Bounds
}

// Build triangulates the heightmap. The vertex grid matches the sample
// raster exactly: (W+1) x (H+1) vertices, W*H*2 triangles.
func Build(hm *heightmap.Heightmap) *Mesh {
	sw, sh := hm.Samples()
	vertices := make([]Vertex, 0, sw*sh)

	bounds := Bounds{
		Min: mgl32.Vec3{1e20, 1e20, 1e20},
		Max: mgl32.Vec3{-1e20, -1e20, -1e20},
	}

	for y := 0; y < sh; y++ {
		for x := 0; x < sw; x++ {
			world := hm.WorldAt(x, y)
			h := hm.At(x, y)
			pos := mgl32.Vec3{world.X(), h, world.Y()}
			bounds = bounds.expand(pos)
			vertices = append(vertices, Vertex{
				Position: pos,
				Normal:   sampleNormal(hm, x, y),
				UV: mgl32.Vec2{
					float32(x) / float32(hm.Width),
					float32(y) / float32(hm.Height),
				},
			})
		}
	}

	indices := make([]uint32, 0, hm.Width*hm.Height*6)
	for y := 0; y < hm.Height; y++ {
		for x := 0; x < hm.Width; x++ {
			i := uint32(y*sw + x)
			// Two CCW triangles per cell, diagonal from (x,y) to (x+1,y+1).
			indices = append(indices,
				i, i+uint32(sw), i+1,
				i+1, i+uint32(sw), i+uint32(sw)+1,
			)
		}
	}

	return &Mesh{
		Vertices: vertices,
		Indices:  indices,
		Bounds:   bounds,
	}
}

// sampleNormal derives the vertex normal from central height differences,
// clamped at the raster edges. The result is already smooth across cells,
// no post-pass needed for grid meshes.
func sampleNormal(hm *heightmap.Heightmap, x, y int) mgl32.Vec3 {
	sp := hm.SampleSpacing()

	xl, xr := x-1, x+1
	if xl < 0 {
		xl = 0
	}
	if xr > hm.Width {
		xr = hm.Width
	}
	yl, yr := y-1, y+1
	if yl < 0 {
		yl = 0
	}
	if yr > hm.Height {
		yr = hm.Height
	}

	dx := (hm.At(xr, y) - hm.At(xl, y)) / (float32(xr-xl) * sp.X())
	dy := (hm.At(x, yr) - hm.At(x, yl)) / (float32(yr-yl) * sp.Y())

	n := mgl32.Vec3{-dx, 1, -dy}
	return n.Normalize()
}

// SmoothNormals averages normals of vertices sharing a quantized position.
// Grid meshes from Build are already smooth; this exists for meshes welded
// from multiple patches.
func SmoothNormals(vertices []Vertex) {
	const epsilon = 0.001

	posMap := make(map[[3]int32][]int)
	for i := range vertices {
		p := vertices[i].Position
		key := [3]int32{
			int32(p.X() / epsilon),
			int32(p.Y() / epsilon),
			int32(p.Z() / epsilon),
		}
		posMap[key] = append(posMap[key], i)
	}

	for _, group := range posMap {
		if len(group) < 2 {
			continue
		}
		var sum mgl32.Vec3
		for _, idx := range group {
			sum = sum.Add(vertices[idx].Normal)
		}
		if sum.Len() < 1e-6 {
			continue
		}
		avg := sum.Normalize()
		for _, idx := range group {
			vertices[idx].Normal = avg
		}
	}
}

func (b Bounds) expand(p mgl32.Vec3) Bounds {
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] {
			b.Min[i] = p[i]
		}
		if p[i] > b.Max[i] {
			b.Max[i] = p[i]
		}
	}
	return b
}
