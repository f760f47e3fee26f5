// Package sdfx builds primitive and extruded meshes with the
// github.com/deadsy/sdfx SDF-based CAD library. Curved shapes are
// tessellated with marching cubes and welded into indexed meshes.
package sdfx

import (
	"fmt"

	"github.com/chazu/kerf/pkg/kernel"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// DefaultCells controls marching cubes tessellation resolution.
const DefaultCells = 48

// Generator produces meshes whose bounding box minimum corner sits at the
// origin, so that a model position places the shape's corner.
type Generator struct {
	Cells int
}

// New returns a Generator using DefaultCells.
func New() *Generator {
	return &Generator{Cells: DefaultCells}
}

// Box returns an exact box. It does not go through marching cubes because
// sharp edges would be bevelled.
func (g *Generator) Box(x, y, z float64) (*kernel.Mesh, error) {
	if x <= 0 || y <= 0 || z <= 0 {
		return nil, fmt.Errorf("sdfx: box dimensions must be positive, got %gx%gx%g", x, y, z)
	}
	return kernel.Box(v3.Vec{X: x, Y: y, Z: z}), nil
}

// Cylinder returns a cylinder along Z with the given height and radius.
func (g *Generator) Cylinder(height, radius float64) (*kernel.Mesh, error) {
	s, err := sdf.Cylinder3D(height, radius, 0)
	if err != nil {
		return nil, fmt.Errorf("sdfx: cylinder: %w", err)
	}
	return g.tessellate(s)
}

// Sphere returns a sphere with the given radius.
func (g *Generator) Sphere(radius float64) (*kernel.Mesh, error) {
	s, err := sdf.Sphere3D(radius)
	if err != nil {
		return nil, fmt.Errorf("sdfx: sphere: %w", err)
	}
	return g.tessellate(s)
}

// Cone returns a truncated cone along Z with bottom radius r0 and top
// radius r1.
func (g *Generator) Cone(height, r0, r1 float64) (*kernel.Mesh, error) {
	s, err := sdf.Cone3D(height, r0, r1, 0)
	if err != nil {
		return nil, fmt.Errorf("sdfx: cone: %w", err)
	}
	return g.tessellate(s)
}

// ExtrudePath extrudes a closed 2D polygon along Z by depth.
func (g *Generator) ExtrudePath(path []v2.Vec, depth float64) (*kernel.Mesh, error) {
	if len(path) < 3 {
		return nil, fmt.Errorf("sdfx: path needs at least 3 points, got %d", len(path))
	}
	if depth <= 0 {
		return nil, fmt.Errorf("sdfx: extrusion depth must be positive, got %g", depth)
	}
	s2, err := sdf.Polygon2D(path)
	if err != nil {
		return nil, fmt.Errorf("sdfx: path: %w", err)
	}
	return g.tessellate(sdf.Extrude3D(s2, depth))
}

// ExtrudeText renders text with the TrueType font at fontPath, scaled to
// the given glyph height, and extrudes it by depth.
func (g *Generator) ExtrudeText(fontPath, text string, height, depth float64) (*kernel.Mesh, error) {
	if text == "" {
		return nil, fmt.Errorf("sdfx: text is empty")
	}
	if height <= 0 || depth <= 0 {
		return nil, fmt.Errorf("sdfx: text height and depth must be positive, got %g and %g", height, depth)
	}
	font, err := sdf.LoadFont(fontPath)
	if err != nil {
		return nil, fmt.Errorf("sdfx: font %s: %w", fontPath, err)
	}
	s2, err := sdf.Text2D(font, sdf.NewText(text), height)
	if err != nil {
		return nil, fmt.Errorf("sdfx: text: %w", err)
	}
	return g.tessellate(sdf.Extrude3D(s2, depth))
}

// tessellate moves s so its bounds start at the origin, runs marching
// cubes and welds the triangle soup into an indexed mesh.
func (g *Generator) tessellate(s sdf.SDF3) (*kernel.Mesh, error) {
	cells := g.Cells
	if cells <= 0 {
		cells = DefaultCells
	}

	bb := s.BoundingBox()
	s = sdf.Transform3D(s, sdf.Translate3d(bb.Min.Neg()))

	triangles := render.ToTriangles(s, render.NewMarchingCubesUniform(cells))
	if len(triangles) == 0 {
		return nil, &kernel.GeometryError{Stage: "tessellate", Reason: "marching cubes produced no triangles"}
	}

	m := kernel.FromTriangles(triangles).Merged(kernel.MergeTolerance)
	if err := kernel.Validate(m); err != nil {
		return nil, err
	}
	m.ComputeNormals()
	return m, nil
}

// SaveSTL writes m as an STL file at path.
func SaveSTL(path string, m *kernel.Mesh) error {
	if m == nil || m.IsEmpty() {
		return &kernel.GeometryError{Stage: "export", Reason: "mesh has no vertices"}
	}
	if err := render.SaveSTL(path, m.Triangles()); err != nil {
		return fmt.Errorf("sdfx: save %s: %w", path, err)
	}
	return nil
}
