package kernel

import (
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Axis identifies a coordinate axis.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

// Axes lists the axes in evaluation order.
var Axes = [3]Axis{AxisX, AxisY, AxisZ}

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	default:
		return "unknown"
	}
}

// Component returns the coordinate of v along axis a.
func Component(v v3.Vec, a Axis) float64 {
	switch a {
	case AxisX:
		return v.X
	case AxisY:
		return v.Y
	default:
		return v.Z
	}
}

// WithComponent returns v with its coordinate along axis a replaced.
func WithComponent(v v3.Vec, a Axis, val float64) v3.Vec {
	switch a {
	case AxisX:
		v.X = val
	case AxisY:
		v.Y = val
	default:
		v.Z = val
	}
	return v
}

// WorldMatrix composes translation, XYZ Euler rotation (radians) and scale
// into a single matrix: T * Rx * Ry * Rz * S.
func WorldMatrix(position, rotation, scale v3.Vec) sdf.M44 {
	return sdf.Translate3d(position).
		Mul(sdf.RotateX(rotation.X)).
		Mul(sdf.RotateY(rotation.Y)).
		Mul(sdf.RotateZ(rotation.Z)).
		Mul(sdf.Scale3d(scale))
}

// Bake returns a copy of m with mat applied to its vertices, so the
// result can be processed without a transform.
func Bake(m *Mesh, mat sdf.M44) *Mesh {
	c := m.Clone()
	c.Transform(mat)
	return c
}

// BoxesOverlap reports whether two boxes intersect (touching counts).
func BoxesOverlap(a, b sdf.Box3) bool {
	return a.Min.X <= b.Max.X && a.Max.X >= b.Min.X &&
		a.Min.Y <= b.Max.Y && a.Max.Y >= b.Min.Y &&
		a.Min.Z <= b.Max.Z && a.Max.Z >= b.Min.Z
}
