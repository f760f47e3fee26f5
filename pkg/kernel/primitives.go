package kernel

import v3 "github.com/deadsy/sdfx/vec/v3"

// boxFaces lists the 12 triangles of a box over its 8 corners, wound
// counter-clockwise seen from outside.
var boxFaces = []uint32{
	0, 2, 1, 0, 3, 2, // bottom (-Z)
	4, 5, 6, 4, 6, 7, // top (+Z)
	0, 1, 5, 0, 5, 4, // front (-Y)
	3, 7, 6, 3, 6, 2, // back (+Y)
	0, 4, 7, 0, 7, 3, // left (-X)
	1, 2, 6, 1, 6, 5, // right (+X)
}

// Box returns an exact indexed box mesh with its minimum corner at the
// origin, so a position places the box corner.
func Box(size v3.Vec) *Mesh {
	x, y, z := float32(size.X), float32(size.Y), float32(size.Z)
	m := &Mesh{
		Vertices: []float32{
			0, 0, 0,
			x, 0, 0,
			x, y, 0,
			0, y, 0,
			0, 0, z,
			x, 0, z,
			x, y, z,
			0, y, z,
		},
		Indices: append([]uint32(nil), boxFaces...),
	}
	m.ComputeNormals()
	return m
}
