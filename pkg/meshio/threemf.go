package meshio

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/chazu/kerf/pkg/kernel"
	"github.com/hpinc/go3mf"
)

// Decode3MF reads every mesh object referenced by the build, applies the
// item transforms and returns them as one mesh.
func Decode3MF(data []byte) (*kernel.Mesh, error) {
	var model go3mf.Model
	if err := go3mf.NewDecoder(bytes.NewReader(data), int64(len(data))).Decode(&model); err != nil {
		return nil, fmt.Errorf("3mf: %w", err)
	}

	objects := make(map[uint32]*go3mf.Object, len(model.Resources.Objects))
	for _, o := range model.Resources.Objects {
		objects[o.ID] = o
	}

	var parts []*kernel.Mesh
	for _, item := range model.Build.Items {
		o, ok := objects[item.ObjectID]
		if !ok || o.Mesh == nil {
			continue
		}
		parts = append(parts, fromObject(o.Mesh, item.Transform))
	}
	// Files without build items still carry usable objects.
	if len(parts) == 0 {
		for _, o := range model.Resources.Objects {
			if o.Mesh != nil {
				parts = append(parts, fromObject(o.Mesh, go3mf.Matrix{}))
			}
		}
	}
	if len(parts) == 0 {
		return nil, errors.New("3mf: no mesh objects")
	}
	return kernel.Concat(parts...), nil
}

// fromObject converts a 3MF mesh, applying the row-vector 3x4 transform
// t. A zero matrix means identity.
func fromObject(src *go3mf.Mesh, t go3mf.Matrix) *kernel.Mesh {
	identity := t == go3mf.Matrix{}
	m := &kernel.Mesh{
		Vertices: make([]float32, 0, len(src.Vertices.Vertex)*3),
		Indices:  make([]uint32, 0, len(src.Triangles.Triangle)*3),
	}
	for _, p := range src.Vertices.Vertex {
		x, y, z := p[0], p[1], p[2]
		if !identity {
			x, y, z = x*t[0]+y*t[4]+z*t[8]+t[12],
				x*t[1]+y*t[5]+z*t[9]+t[13],
				x*t[2]+y*t[6]+z*t[10]+t[14]
		}
		m.Vertices = append(m.Vertices, x, y, z)
	}
	n := uint32(len(src.Vertices.Vertex))
	for _, tri := range src.Triangles.Triangle {
		if tri.V1 >= n || tri.V2 >= n || tri.V3 >= n {
			continue
		}
		m.Indices = append(m.Indices, tri.V1, tri.V2, tri.V3)
	}
	return m
}

// Encode3MF writes m as a single-object 3MF package.
func Encode3MF(w io.Writer, m *kernel.Mesh, name string) error {
	mesh := &go3mf.Mesh{}
	for i := 0; i < m.VertexCount(); i++ {
		mesh.Vertices.Vertex = append(mesh.Vertices.Vertex,
			go3mf.Point3D{m.Vertices[i*3], m.Vertices[i*3+1], m.Vertices[i*3+2]})
	}
	for t := 0; t < m.TriangleCount(); t++ {
		var v [3]uint32
		if m.Indexed() {
			v = [3]uint32{m.Indices[t*3], m.Indices[t*3+1], m.Indices[t*3+2]}
		} else {
			base := uint32(t * 3)
			v = [3]uint32{base, base + 1, base + 2}
		}
		mesh.Triangles.Triangle = append(mesh.Triangles.Triangle, go3mf.Triangle{V1: v[0], V2: v[1], V3: v[2]})
	}

	model := go3mf.Model{}
	model.Resources.Objects = append(model.Resources.Objects, &go3mf.Object{ID: 1, Name: name, Mesh: mesh})
	model.Build.Items = append(model.Build.Items, &go3mf.Item{ObjectID: 1})

	if err := go3mf.NewEncoder(w).Encode(&model); err != nil {
		return fmt.Errorf("meshio: 3mf: %w", err)
	}
	return nil
}
