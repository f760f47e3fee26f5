package kernel

import (
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Mesh is a triangle mesh buffer.
// All arrays are flat: vertices has 3 floats per vertex (x,y,z),
// normals (optional) has 3 floats per vertex, indices (optional) has
// 3 uint32s per triangle. Without indices every three consecutive
// vertices form one triangle.
type Mesh struct {
	Vertices []float32 `json:"vertices"`          // [x0,y0,z0, x1,y1,z1, ...]
	Normals  []float32 `json:"normals,omitempty"` // [nx0,ny0,nz0, ...]
	Indices  []uint32  `json:"indices,omitempty"` // [i0,i1,i2, ...] triangles
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// Indexed reports whether the mesh carries an index buffer.
func (m *Mesh) Indexed() bool {
	return len(m.Indices) > 0
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	if m.Indexed() {
		return len(m.Indices) / 3
	}
	return m.VertexCount() / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}

// Clone returns a deep copy. The copy shares no buffers with m.
func (m *Mesh) Clone() *Mesh {
	c := &Mesh{
		Vertices: append([]float32(nil), m.Vertices...),
	}
	if m.Normals != nil {
		c.Normals = append([]float32(nil), m.Normals...)
	}
	if m.Indices != nil {
		c.Indices = append([]uint32(nil), m.Indices...)
	}
	return c
}

// Vertex returns the position of vertex i.
func (m *Mesh) Vertex(i int) v3.Vec {
	return v3.Vec{
		X: float64(m.Vertices[i*3+0]),
		Y: float64(m.Vertices[i*3+1]),
		Z: float64(m.Vertices[i*3+2]),
	}
}

// triangleIndices returns the three vertex indices of triangle t.
func (m *Mesh) triangleIndices(t int) (uint32, uint32, uint32) {
	if m.Indexed() {
		return m.Indices[t*3+0], m.Indices[t*3+1], m.Indices[t*3+2]
	}
	base := uint32(t * 3)
	return base, base + 1, base + 2
}

// Triangle returns the corner positions of triangle t.
func (m *Mesh) Triangle(t int) (a, b, c v3.Vec) {
	i0, i1, i2 := m.triangleIndices(t)
	return m.Vertex(int(i0)), m.Vertex(int(i1)), m.Vertex(int(i2))
}

// Triangles expands the mesh into sdfx triangles.
func (m *Mesh) Triangles() []*sdf.Triangle3 {
	n := m.TriangleCount()
	tris := make([]*sdf.Triangle3, 0, n)
	for t := 0; t < n; t++ {
		a, b, c := m.Triangle(t)
		tris = append(tris, &sdf.Triangle3{a, b, c})
	}
	return tris
}

// FromTriangles builds a non-indexed mesh with flat normals from sdfx
// triangles. Degenerate triangles are kept; conditioning drops them.
func FromTriangles(tris []*sdf.Triangle3) *Mesh {
	m := &Mesh{
		Vertices: make([]float32, 0, len(tris)*9),
		Normals:  make([]float32, 0, len(tris)*9),
	}
	for _, tri := range tris {
		n := faceNormal(tri[0], tri[1], tri[2])
		for j := 0; j < 3; j++ {
			v := tri[j]
			m.Vertices = append(m.Vertices, float32(v.X), float32(v.Y), float32(v.Z))
			m.Normals = append(m.Normals, float32(n.X), float32(n.Y), float32(n.Z))
		}
	}
	return m
}

// BoundingBox returns the axis-aligned bounds of the vertex buffer. The
// second result is false when the mesh is empty or holds non-finite values.
func (m *Mesh) BoundingBox() (sdf.Box3, bool) {
	return m.bounds(nil)
}

// WorldBounds returns the bounds of the mesh after applying mat, without
// modifying the mesh.
func (m *Mesh) WorldBounds(mat sdf.M44) (sdf.Box3, bool) {
	return m.bounds(&mat)
}

func (m *Mesh) bounds(mat *sdf.M44) (sdf.Box3, bool) {
	n := m.VertexCount()
	if n == 0 {
		return sdf.Box3{}, false
	}
	min := v3.Vec{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	max := v3.Vec{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)}
	for i := 0; i < n; i++ {
		p := m.Vertex(i)
		if mat != nil {
			p = mat.MulPosition(p)
		}
		min = min.Min(p)
		max = max.Max(p)
	}
	if !finite(min) || !finite(max) {
		return sdf.Box3{}, false
	}
	return sdf.Box3{Min: min, Max: max}, true
}

// Transform applies mat to every vertex in place. Existing normals are
// recomputed from the transformed faces.
func (m *Mesh) Transform(mat sdf.M44) {
	n := m.VertexCount()
	for i := 0; i < n; i++ {
		p := mat.MulPosition(m.Vertex(i))
		m.Vertices[i*3+0] = float32(p.X)
		m.Vertices[i*3+1] = float32(p.Y)
		m.Vertices[i*3+2] = float32(p.Z)
	}
	if m.Normals != nil {
		m.ComputeNormals()
	}
}

// ComputeNormals generates per-vertex normals by averaging the face normals
// of all triangles incident on each vertex.
func (m *Mesh) ComputeNormals() {
	numVerts := m.VertexCount()
	acc := make([]float64, numVerts*3)

	for t := 0; t < m.TriangleCount(); t++ {
		i0, i1, i2 := m.triangleIndices(t)
		a, b, c := m.Vertex(int(i0)), m.Vertex(int(i1)), m.Vertex(int(i2))

		// Unnormalized so larger faces weigh more.
		n := b.Sub(a).Cross(c.Sub(a))
		for _, idx := range []uint32{i0, i1, i2} {
			acc[idx*3+0] += n.X
			acc[idx*3+1] += n.Y
			acc[idx*3+2] += n.Z
		}
	}

	normals := make([]float32, numVerts*3)
	for i := 0; i < numVerts; i++ {
		n := v3.Vec{X: acc[i*3+0], Y: acc[i*3+1], Z: acc[i*3+2]}
		if l := n.Length(); l > 1e-12 {
			n = n.MulScalar(1 / l)
		}
		normals[i*3+0] = float32(n.X)
		normals[i*3+1] = float32(n.Y)
		normals[i*3+2] = float32(n.Z)
	}
	m.Normals = normals
}

// faceNormal returns the unit normal of triangle abc, or the zero vector
// for degenerate triangles.
func faceNormal(a, b, c v3.Vec) v3.Vec {
	n := b.Sub(a).Cross(c.Sub(a))
	l := n.Length()
	if l < 1e-12 {
		return v3.Vec{}
	}
	return n.MulScalar(1 / l)
}

func finite(v v3.Vec) bool {
	return !math.IsNaN(v.X) && !math.IsNaN(v.Y) && !math.IsNaN(v.Z) &&
		!math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0) && !math.IsInf(v.Z, 0)
}

// Concat returns one mesh holding the triangles of every input. It is a
// plain buffer merge, not a boolean: overlapping volumes stay overlapping.
func Concat(meshes ...*Mesh) *Mesh {
	out := &Mesh{}
	withNormals := true
	for _, m := range meshes {
		if len(m.Normals) != len(m.Vertices) {
			withNormals = false
		}
	}
	for _, m := range meshes {
		base := uint32(m.VertexCount())
		offset := uint32(out.VertexCount())
		out.Vertices = append(out.Vertices, m.Vertices...)
		if withNormals {
			out.Normals = append(out.Normals, m.Normals...)
		}
		if m.Indexed() {
			for _, i := range m.Indices {
				out.Indices = append(out.Indices, offset+i)
			}
			continue
		}
		for i := uint32(0); i < base; i++ {
			out.Indices = append(out.Indices, offset+i)
		}
	}
	return out
}
