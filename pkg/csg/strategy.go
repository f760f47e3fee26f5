package csg

import (
	"fmt"

	"github.com/chazu/kerf/pkg/kernel"
	"github.com/chazu/kerf/pkg/scene"
)

// operands holds the inputs shared by every strategy. Strategies must
// not modify any of these meshes; each attempt works on its own clones.
type operands struct {
	op        kernel.Op
	a, b      *scene.Model
	bakedA    *kernel.Mesh
	bakedB    *kernel.Mesh
	condA     *kernel.Mesh
	condB     *kernel.Mesh
	condErr   error
	kernel    kernel.Kernel
	fineTol   float64
	coarseTol float64
}

// strategy is one attempt at producing the boolean result.
type strategy struct {
	name    string
	attempt func(in *operands) (*kernel.Mesh, error)
}

// strategies returns the ordered fallback chain for op.
func strategies(op kernel.Op) []strategy {
	list := []strategy{
		{"standard", standard},
		{"simplified", simplified},
	}
	if op == kernel.OpUnion {
		list = append(list, strategy{"concatenate", concatenate})
	}
	return append(list, strategy{"rebake", rebake})
}

// standard runs the boolean on the conditioned operands.
func standard(in *operands) (*kernel.Mesh, error) {
	if in.condErr != nil {
		return nil, in.condErr
	}
	return kernel.Apply(in.kernel, in.op, in.condA.Clone(), in.condB.Clone())
}

// simplified welds the baked operands with the coarse tolerance and
// retries.
func simplified(in *operands) (*kernel.Mesh, error) {
	a, err := kernel.Condition(in.bakedA, in.coarseTol)
	if err != nil {
		return nil, fmt.Errorf("coarse merge of %s: %w", in.a.Name, err)
	}
	b, err := kernel.Condition(in.bakedB, in.coarseTol)
	if err != nil {
		return nil, fmt.Errorf("coarse merge of %s: %w", in.b.Name, err)
	}
	return kernel.Apply(in.kernel, in.op, a, b)
}

// concatenate merges the two buffers without a boolean. Overlapping
// volumes remain, which printers and slicers tolerate for unions.
func concatenate(in *operands) (*kernel.Mesh, error) {
	a, b := in.condA, in.condB
	if in.condErr != nil {
		a, b = in.bakedA, in.bakedB
	}
	return kernel.Concat(a.Clone(), b.Clone()), nil
}

// rebake starts again from the models' own geometry: fresh clones with
// normals stripped, the world transform applied, and flat normals
// recomputed before the boolean runs.
func rebake(in *operands) (*kernel.Mesh, error) {
	fresh := func(m *scene.Model) *kernel.Mesh {
		g := &kernel.Mesh{
			Vertices: append([]float32(nil), m.Geometry.Vertices...),
			Indices:  append([]uint32(nil), m.Geometry.Indices...),
		}
		g.Transform(m.Matrix())
		g.ComputeNormals()
		return g
	}
	return kernel.Apply(in.kernel, in.op, fresh(in.a), fresh(in.b))
}
