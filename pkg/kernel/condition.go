package kernel

import (
	"math"
)

// Merge tolerances used by mesh conditioning.
const (
	// MergeTolerance welds vertices closer than this. It repairs the
	// unshared corners typical of STL imports and marching-cubes output.
	MergeTolerance = 1e-4

	// CoarseMergeTolerance is used when a boolean attempt on finely merged
	// operands has already failed.
	CoarseMergeTolerance = 1e-2
)

type vertexKey struct {
	x, y, z int64
}

func quantize(v float32, tolerance float64) int64 {
	return int64(math.Round(float64(v) / tolerance))
}

// Merged returns an indexed copy of m in which vertices closer than
// tolerance on every axis are welded into one. Vertices are bucketed into
// cells of size tolerance and each new vertex is compared against the
// representatives of its own and the neighbouring cells, so points either
// side of a cell boundary still weld.
// Triangles that collapse (two corners welded together) are dropped.
// Normals are not carried over; call ComputeNormals on the result.
func (m *Mesh) Merged(tolerance float64) *Mesh {
	if tolerance <= 0 {
		tolerance = MergeTolerance
	}

	lookup := make(map[vertexKey]uint32, m.VertexCount())
	remap := make([]uint32, m.VertexCount())
	out := &Mesh{
		Vertices: make([]float32, 0, len(m.Vertices)),
	}

	near := func(idx uint32, x, y, z float32) bool {
		p := out.Vertices[idx*3 : idx*3+3]
		return math.Abs(float64(p[0]-x)) <= tolerance &&
			math.Abs(float64(p[1]-y)) <= tolerance &&
			math.Abs(float64(p[2]-z)) <= tolerance
	}

	for i := 0; i < m.VertexCount(); i++ {
		x, y, z := m.Vertices[i*3+0], m.Vertices[i*3+1], m.Vertices[i*3+2]
		key := vertexKey{quantize(x, tolerance), quantize(y, tolerance), quantize(z, tolerance)}
		if idx, ok := lookup[key]; ok {
			remap[i] = idx
			continue
		}
		if idx, ok := neighbour(lookup, key, func(idx uint32) bool { return near(idx, x, y, z) }); ok {
			remap[i] = idx
			continue
		}
		idx := uint32(len(out.Vertices) / 3)
		lookup[key] = idx
		remap[i] = idx
		out.Vertices = append(out.Vertices, x, y, z)
	}

	out.Indices = make([]uint32, 0, m.TriangleCount()*3)
	for t := 0; t < m.TriangleCount(); t++ {
		i0, i1, i2 := m.triangleIndices(t)
		a, b, c := remap[i0], remap[i1], remap[i2]
		if a == b || b == c || a == c {
			continue
		}
		out.Indices = append(out.Indices, a, b, c)
	}

	return out
}

// neighbour searches the 26 cells around key for a representative
// accepted by match.
func neighbour(lookup map[vertexKey]uint32, key vertexKey, match func(uint32) bool) (uint32, bool) {
	for dx := int64(-1); dx <= 1; dx++ {
		for dy := int64(-1); dy <= 1; dy++ {
			for dz := int64(-1); dz <= 1; dz++ {
				if dx == 0 && dy == 0 && dz == 0 {
					continue
				}
				idx, ok := lookup[vertexKey{key.x + dx, key.y + dy, key.z + dz}]
				if ok && match(idx) {
					return idx, true
				}
			}
		}
	}
	return 0, false
}

// Condition prepares a mesh for a boolean operation: vertices are welded
// within tolerance, collapsed triangles dropped, normals recomputed and the
// bounding box checked. The input is not modified.
func Condition(m *Mesh, tolerance float64) (*Mesh, error) {
	if m == nil || m.IsEmpty() {
		return nil, &GeometryError{Stage: "condition", Reason: "mesh has no vertices"}
	}
	out := m.Merged(tolerance)
	if err := Validate(out); err != nil {
		return nil, err
	}
	out.ComputeNormals()
	return out, nil
}

// Validate checks that a mesh is usable: a non-empty vertex buffer, a
// finite bounding box and at least one triangle.
func Validate(m *Mesh) error {
	if m == nil || m.IsEmpty() {
		return &GeometryError{Stage: "validate", Reason: "mesh has no vertices"}
	}
	if len(m.Vertices)%3 != 0 {
		return &GeometryError{Stage: "validate", Reason: "vertex buffer length is not a multiple of 3"}
	}
	if _, ok := m.BoundingBox(); !ok {
		return &GeometryError{Stage: "validate", Reason: "bounding box is not computable"}
	}
	if m.TriangleCount() == 0 {
		return &GeometryError{Stage: "validate", Reason: "mesh has no faces"}
	}
	if m.Indexed() {
		n := uint32(m.VertexCount())
		for _, idx := range m.Indices {
			if idx >= n {
				return &GeometryError{Stage: "validate", Reason: "index out of range"}
			}
		}
	}
	return nil
}

// OpenEdges counts edges not shared by exactly two triangles. A closed
// manifold surface has none. The mesh should be indexed (see Merged);
// for non-indexed meshes every edge is reported open.
func OpenEdges(m *Mesh) int {
	type edge struct{ a, b uint32 }
	counts := make(map[edge]int, m.TriangleCount()*3/2)
	for t := 0; t < m.TriangleCount(); t++ {
		i0, i1, i2 := m.triangleIndices(t)
		for _, e := range [3][2]uint32{{i0, i1}, {i1, i2}, {i2, i0}} {
			a, b := e[0], e[1]
			if a > b {
				a, b = b, a
			}
			counts[edge{a, b}]++
		}
	}
	open := 0
	for _, c := range counts {
		if c != 2 {
			open++
		}
	}
	return open
}
