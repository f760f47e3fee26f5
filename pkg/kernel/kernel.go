// Package kernel defines the triangle mesh buffer and the abstract boolean
// kernel interface. Implementations (bsp, manifold) provide union,
// difference and intersection of closed triangle meshes behind this
// interface. The kernel abstraction allows swapping backends without
// changing the rest of the system.
package kernel

import "fmt"

// Op is a boolean operation.
type Op int

const (
	OpUnion Op = iota
	OpSubtract
	OpIntersect
)

func (o Op) String() string {
	switch o {
	case OpUnion:
		return "union"
	case OpSubtract:
		return "subtract"
	case OpIntersect:
		return "intersect"
	default:
		return "unknown"
	}
}

// ParseOp converts an operation name to an Op.
func ParseOp(s string) (Op, error) {
	switch s {
	case "union":
		return OpUnion, nil
	case "subtract", "difference":
		return OpSubtract, nil
	case "intersect", "intersection":
		return OpIntersect, nil
	}
	return 0, fmt.Errorf("kernel: unknown boolean operation %q", s)
}

// Kernel is the abstract boolean kernel interface. Operands are world
// aligned meshes; implementations must not modify them.
type Kernel interface {
	Name() string

	Union(a, b *Mesh) (*Mesh, error)
	Difference(a, b *Mesh) (*Mesh, error)
	Intersection(a, b *Mesh) (*Mesh, error)
}

// Apply dispatches op to the matching kernel method.
func Apply(k Kernel, op Op, a, b *Mesh) (*Mesh, error) {
	switch op {
	case OpUnion:
		return k.Union(a, b)
	case OpSubtract:
		return k.Difference(a, b)
	case OpIntersect:
		return k.Intersection(a, b)
	}
	return nil, fmt.Errorf("kernel: unsupported operation %v", op)
}
