//go:build manifold

// Package manifold provides a CGo-based boolean kernel binding to the
// Manifold library (https://github.com/elalish/manifold). Manifold provides
// guaranteed-manifold mesh boolean operations.
//
// This package requires the Manifold C library (manifoldc) to be installed.
// Build with: go build -tags=manifold
package manifold

/*
#cgo CFLAGS: -I/usr/local/include
#cgo LDFLAGS: -L/usr/local/lib -lmanifoldc

#include <stdlib.h>
#include <manifold/manifoldc.h>
*/
import "C"

import (
	"fmt"
	"runtime"
	"unsafe"

	"github.com/chazu/kerf/pkg/kernel"
)

// Compile-time interface check.
var _ kernel.Kernel = (*ManifoldKernel)(nil)

// manifoldSolid wraps a C ManifoldManifold pointer.
type manifoldSolid struct {
	ptr *C.ManifoldManifold
}

// newSolid wraps a C ManifoldManifold pointer with Go-side finalizer
// for automatic memory management.
func newSolid(ptr *C.ManifoldManifold) *manifoldSolid {
	s := &manifoldSolid{ptr: ptr}
	runtime.SetFinalizer(s, func(s *manifoldSolid) {
		if s.ptr != nil {
			C.manifold_delete_manifold(s.ptr)
			s.ptr = nil
		}
	})
	return s
}

// ManifoldKernel implements kernel.Kernel using the Manifold C library.
type ManifoldKernel struct{}

// New creates a new ManifoldKernel.
func New() (kernel.Kernel, error) {
	return &ManifoldKernel{}, nil
}

// Name returns "manifold".
func (k *ManifoldKernel) Name() string { return "manifold" }

// Union returns the boolean union of two meshes.
func (k *ManifoldKernel) Union(a, b *kernel.Mesh) (*kernel.Mesh, error) {
	return k.run("union", a, b, func(alloc unsafe.Pointer, sa, sb *manifoldSolid) *C.ManifoldManifold {
		return C.manifold_union(alloc, sa.ptr, sb.ptr)
	})
}

// Difference returns the boolean difference (a minus b).
func (k *ManifoldKernel) Difference(a, b *kernel.Mesh) (*kernel.Mesh, error) {
	return k.run("difference", a, b, func(alloc unsafe.Pointer, sa, sb *manifoldSolid) *C.ManifoldManifold {
		return C.manifold_difference(alloc, sa.ptr, sb.ptr)
	})
}

// Intersection returns the boolean intersection of two meshes.
func (k *ManifoldKernel) Intersection(a, b *kernel.Mesh) (*kernel.Mesh, error) {
	return k.run("intersection", a, b, func(alloc unsafe.Pointer, sa, sb *manifoldSolid) *C.ManifoldManifold {
		return C.manifold_intersection(alloc, sa.ptr, sb.ptr)
	})
}

type binaryOp func(alloc unsafe.Pointer, sa, sb *manifoldSolid) *C.ManifoldManifold

func (k *ManifoldKernel) run(name string, a, b *kernel.Mesh, op binaryOp) (*kernel.Mesh, error) {
	sa, err := fromMesh(a)
	if err != nil {
		return nil, fmt.Errorf("manifold: %s: first operand: %w", name, err)
	}
	sb, err := fromMesh(b)
	if err != nil {
		return nil, fmt.Errorf("manifold: %s: second operand: %w", name, err)
	}
	out := newSolid(op(unsafe.Pointer(C.manifold_alloc_manifold()), sa, sb))
	if st := C.manifold_status(out.ptr); st != C.MANIFOLD_NO_ERROR {
		return nil, fmt.Errorf("manifold: %s: status %d", name, int(st))
	}
	return toMesh(out)
}

// fromMesh uploads a welded copy of m as a MeshGL and builds a manifold.
func fromMesh(m *kernel.Mesh) (*manifoldSolid, error) {
	welded := m
	if !m.Indexed() {
		welded = m.Merged(kernel.MergeTolerance)
	}
	if welded.TriangleCount() == 0 {
		return nil, &kernel.GeometryError{Stage: "manifold", Reason: "operand has no faces"}
	}

	meshGL := C.manifold_meshgl(unsafe.Pointer(C.manifold_alloc_meshgl()),
		(*C.float)(unsafe.Pointer(&welded.Vertices[0])),
		C.size_t(welded.VertexCount()),
		C.size_t(3),
		(*C.uint32_t)(unsafe.Pointer(&welded.Indices[0])),
		C.size_t(welded.TriangleCount()),
	)
	defer C.manifold_delete_meshgl(meshGL)

	s := newSolid(C.manifold_of_meshgl(unsafe.Pointer(C.manifold_alloc_manifold()), meshGL))
	if st := C.manifold_status(s.ptr); st != C.MANIFOLD_NO_ERROR {
		return nil, &kernel.GeometryError{Stage: "manifold", Reason: fmt.Sprintf("not a manifold (status %d)", int(st))}
	}
	return s, nil
}

// toMesh extracts a triangle mesh from the solid using Manifold's MeshGL
// format. Vertex properties are interleaved in MeshGL; this method keeps
// the positions and recomputes normals.
func toMesh(s *manifoldSolid) (*kernel.Mesh, error) {
	meshGL := C.manifold_get_meshgl(unsafe.Pointer(C.manifold_alloc_meshgl()), s.ptr)
	defer C.manifold_delete_meshgl(meshGL)

	numVert := int(C.manifold_meshgl_num_vert(meshGL))
	numTri := int(C.manifold_meshgl_num_tri(meshGL))
	if numVert == 0 || numTri == 0 {
		return &kernel.Mesh{}, nil
	}

	// The first 3 properties are always position (x, y, z).
	numProp := int(C.manifold_meshgl_num_prop(meshGL))
	propData := make([]float32, numVert*numProp)
	C.manifold_meshgl_vert_properties(
		(*C.float)(unsafe.Pointer(&propData[0])),
		meshGL,
	)

	indices := make([]uint32, numTri*3)
	C.manifold_meshgl_tri_verts(
		(*C.uint32_t)(unsafe.Pointer(&indices[0])),
		meshGL,
	)

	vertices := make([]float32, numVert*3)
	for i := 0; i < numVert; i++ {
		base := i * numProp
		vertices[i*3+0] = propData[base+0]
		vertices[i*3+1] = propData[base+1]
		vertices[i*3+2] = propData[base+2]
	}

	mesh := &kernel.Mesh{Vertices: vertices, Indices: indices}
	if mesh.VertexCount() != numVert {
		return nil, fmt.Errorf("manifold: vertex count mismatch: got %d, expected %d",
			mesh.VertexCount(), numVert)
	}
	mesh.ComputeNormals()
	return mesh, nil
}
