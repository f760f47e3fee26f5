// Package scene holds the models placed in the editor and the registry
// that owns them, tracks selection and computes placement and the ground
// reference.
package scene

import (
	"fmt"

	"github.com/chazu/kerf/pkg/kernel"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/google/uuid"
)

// Kind records how a model was created.
type Kind int

const (
	KindPrimitive Kind = iota
	KindImported
	KindText
	KindVector
	KindBooleanResult
)

func (k Kind) String() string {
	switch k {
	case KindPrimitive:
		return "primitive"
	case KindImported:
		return "imported"
	case KindText:
		return "text"
	case KindVector:
		return "vector"
	case KindBooleanResult:
		return "boolean-result"
	default:
		return "unknown"
	}
}

// Transform is a position, an XYZ Euler rotation in radians and a
// per-axis scale.
type Transform struct {
	Position v3.Vec
	Rotation v3.Vec
	Scale    v3.Vec
}

// Identity returns the transform with unit scale at the origin.
func Identity() Transform {
	return Transform{Scale: v3.Vec{X: 1, Y: 1, Z: 1}}
}

// Matrix returns the world matrix for t.
func (t Transform) Matrix() sdf.M44 {
	return kernel.WorldMatrix(t.Position, t.Rotation, t.Scale)
}

// Model is a solid placed in the scene. A model exclusively owns its
// geometry; no two models share a Mesh.
type Model struct {
	ID         string
	Name       string
	Kind       Kind
	Geometry   *kernel.Mesh
	Transform  Transform
	Original   Transform // transform at creation, restored by reset
	RenderMode RenderMode
}

// NewModel returns a model with a fresh identifier and identity transform.
// The model takes ownership of geometry.
func NewModel(name string, kind Kind, geometry *kernel.Mesh) *Model {
	return &Model{
		ID:        newID(),
		Name:      name,
		Kind:      kind,
		Geometry:  geometry,
		Transform: Identity(),
		Original:  Identity(),
	}
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Clone returns a deep copy of m with the same identifier.
func (m *Model) Clone() *Model {
	c := *m
	if m.Geometry != nil {
		c.Geometry = m.Geometry.Clone()
	}
	return &c
}

// Duplicate returns a deep copy of m under a new identifier.
func (m *Model) Duplicate() *Model {
	c := m.Clone()
	c.ID = newID()
	c.Name = fmt.Sprintf("%s copy", m.Name)
	return c
}

// Matrix returns the model's current world matrix.
func (m *Model) Matrix() sdf.M44 {
	return m.Transform.Matrix()
}

// WorldBounds returns the axis-aligned bounds of the transformed geometry.
func (m *Model) WorldBounds() (sdf.Box3, bool) {
	if m.Geometry == nil {
		return sdf.Box3{}, false
	}
	return m.Geometry.WorldBounds(m.Matrix())
}

// LocalSize returns the dimensions of the un-scaled geometry.
func (m *Model) LocalSize() (v3.Vec, bool) {
	if m.Geometry == nil {
		return v3.Vec{}, false
	}
	bb, ok := m.Geometry.BoundingBox()
	if !ok {
		return v3.Vec{}, false
	}
	return bb.Size(), true
}

// Baked returns a copy of the geometry with the world transform applied.
func (m *Model) Baked() *kernel.Mesh {
	return kernel.Bake(m.Geometry, m.Matrix())
}
