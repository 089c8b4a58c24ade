package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/fabian-becker/Terrainy/pkg/heightmap"
	"github.com/fabian-becker/Terrainy/pkg/mesh"
)

// writePGM exports a heightmap as a 16-bit binary PGM, with heights
// normalized over the map's own range.
func writePGM(path string, hm *heightmap.Heightmap) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)

	cols := hm.Width + 1
	rows := hm.Height + 1
	if _, err := fmt.Fprintf(w, "P5\n%d %d\n65535\n", cols, rows); err != nil {
		return err
	}

	lo, hi := hm.MinMax()
	span := hi - lo
	if span <= 0 {
		span = 1
	}

	for _, h := range hm.Data {
		v := uint16((h - lo) / span * 65535)
		if err := w.WriteByte(byte(v >> 8)); err != nil {
			return err
		}
		if err := w.WriteByte(byte(v)); err != nil {
			return err
		}
	}

	return w.Flush()
}

// writeOBJ exports a mesh as a Wavefront OBJ with positions, normals and
// UVs. OBJ indices are 1-based.
func writeOBJ(path string, m *mesh.Mesh) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)

	fmt.Fprintln(w, "o terrain")
	for _, v := range m.Vertices {
		fmt.Fprintf(w, "v %g %g %g\n", v.Position.X(), v.Position.Y(), v.Position.Z())
	}
	for _, v := range m.Vertices {
		fmt.Fprintf(w, "vt %g %g\n", v.UV.X(), v.UV.Y())
	}
	for _, v := range m.Vertices {
		fmt.Fprintf(w, "vn %g %g %g\n", v.Normal.X(), v.Normal.Y(), v.Normal.Z())
	}
	for i := 0; i+2 < len(m.Indices); i += 3 {
		a, b, c := m.Indices[i]+1, m.Indices[i+1]+1, m.Indices[i+2]+1
		if _, err := fmt.Fprintf(w, "f %d/%d/%d %d/%d/%d %d/%d/%d\n", a, a, a, b, b, b, c, c, c); err != nil {
			return err
		}
	}

	return w.Flush()
}
