package bsp

import (
	"errors"
	"math"
	"testing"

	"github.com/chazu/kerf/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// boxAt returns a world-baked box of the given size with its min corner at pos.
func boxAt(size, pos v3.Vec) *kernel.Mesh {
	m := kernel.Box(size)
	return kernel.Bake(m, kernel.WorldMatrix(pos, v3.Vec{}, v3.Vec{X: 1, Y: 1, Z: 1}))
}

func cube(edge float64, x, y, z float64) *kernel.Mesh {
	return boxAt(v3.Vec{X: edge, Y: edge, Z: edge}, v3.Vec{X: x, Y: y, Z: z})
}

func checkBounds(t *testing.T, name string, m *kernel.Mesh, wantMin, wantMax v3.Vec) {
	t.Helper()
	bb, ok := m.BoundingBox()
	if !ok {
		t.Fatalf("%s: bounding box not computable", name)
	}
	for i, pair := range [][2]float64{
		{bb.Min.X, wantMin.X}, {bb.Min.Y, wantMin.Y}, {bb.Min.Z, wantMin.Z},
		{bb.Max.X, wantMax.X}, {bb.Max.Y, wantMax.Y}, {bb.Max.Z, wantMax.Z},
	} {
		if math.Abs(pair[0]-pair[1]) > 1e-3 {
			t.Errorf("%s: bounds component %d = %f, want %f", name, i, pair[0], pair[1])
		}
	}
}

func TestUnionOverlappingBoxes(t *testing.T) {
	k := New()
	a := cube(50, 0, 0, 0)
	b := cube(50, 40, 0, 0)

	got, err := k.Union(a, b)
	if err != nil {
		t.Fatalf("Union() error = %v", err)
	}
	if got.IsEmpty() || got.TriangleCount() == 0 {
		t.Fatal("Union() returned empty mesh")
	}
	checkBounds(t, "union", got, v3.Vec{}, v3.Vec{X: 90, Y: 50, Z: 50})
}

func TestUnionLeavesOperandsUntouched(t *testing.T) {
	k := New()
	a := cube(10, 0, 0, 0)
	b := cube(10, 5, 5, 5)
	before := a.Clone()

	if _, err := k.Union(a, b); err != nil {
		t.Fatalf("Union() error = %v", err)
	}
	for i := range before.Vertices {
		if before.Vertices[i] != a.Vertices[i] {
			t.Fatal("Union() modified its first operand")
		}
	}
}

func TestDifferenceThroughHole(t *testing.T) {
	k := New()
	a := cube(30, 0, 0, 0)
	// A bar poking all the way through along Z.
	hole := boxAt(v3.Vec{X: 10, Y: 10, Z: 50}, v3.Vec{X: 10, Y: 10, Z: -10})

	got, err := k.Difference(a, hole)
	if err != nil {
		t.Fatalf("Difference() error = %v", err)
	}
	checkBounds(t, "difference", got, v3.Vec{}, v3.Vec{X: 30, Y: 30, Z: 30})

	// Walls of the hole add faces beyond the 12 of the cube.
	if got.TriangleCount() <= 12 {
		t.Errorf("Difference() triangle count = %d, want > 12", got.TriangleCount())
	}
}

func TestIntersectionOverlap(t *testing.T) {
	k := New()
	a := cube(50, 0, 0, 0)
	b := cube(50, 40, 0, 0)

	got, err := k.Intersection(a, b)
	if err != nil {
		t.Fatalf("Intersection() error = %v", err)
	}
	checkBounds(t, "intersection", got, v3.Vec{X: 40}, v3.Vec{X: 50, Y: 50, Z: 50})
}

func TestIntersectionDisjointIsEmpty(t *testing.T) {
	k := New()
	got, err := k.Intersection(cube(10, 0, 0, 0), cube(10, 100, 0, 0))
	if err != nil {
		t.Fatalf("Intersection() error = %v", err)
	}
	if !got.IsEmpty() {
		t.Errorf("Intersection() of disjoint boxes has %d triangles, want 0", got.TriangleCount())
	}
}

func TestBudgetExhausted(t *testing.T) {
	k := &BSPKernel{MaxPolygons: 10}
	_, err := k.Union(cube(10, 0, 0, 0), cube(10, 5, 5, 5))
	if !errors.Is(err, kernel.ErrTooComplex) {
		t.Fatalf("Union() error = %v, want ErrTooComplex", err)
	}
}

func TestDegenerateOperand(t *testing.T) {
	k := New()
	flat := &kernel.Mesh{Vertices: []float32{0, 0, 0, 1, 0, 0, 2, 0, 0}}
	_, err := k.Union(cube(10, 0, 0, 0), flat)
	var gerr *kernel.GeometryError
	if !errors.As(err, &gerr) {
		t.Fatalf("Union() error = %v, want GeometryError", err)
	}
}

func TestSplitSpanningTriangle(t *testing.T) {
	p := plane{normal: v3.Vec{X: 1}, w: 0}
	tri, _ := planeFromPoints(v3.Vec{X: -1}, v3.Vec{X: 1}, v3.Vec{Y: 1})
	poly := &polygon{
		vertices: []vertex{{pos: v3.Vec{X: -1}}, {pos: v3.Vec{X: 1}}, {pos: v3.Vec{Y: 1}}},
		plane:    tri,
	}
	var cf, cb, f, b []*polygon
	p.split(&budget{limit: 100}, poly, &cf, &cb, &f, &b)
	if len(f) != 1 || len(b) != 1 {
		t.Fatalf("split() fronts=%d backs=%d, want 1 and 1", len(f), len(b))
	}
	for _, v := range f[0].vertices {
		if v.pos.X < -epsilon {
			t.Errorf("front piece has vertex %v behind the plane", v.pos)
		}
	}
	for _, v := range b[0].vertices {
		if v.pos.X > epsilon {
			t.Errorf("back piece has vertex %v in front of the plane", v.pos)
		}
	}
}

func TestFromPolygonsFan(t *testing.T) {
	pl := plane{normal: v3.Vec{Z: 1}}
	quad := &polygon{
		vertices: []vertex{{pos: v3.Vec{}}, {pos: v3.Vec{X: 1}}, {pos: v3.Vec{X: 1, Y: 1}}, {pos: v3.Vec{Y: 1}}},
		plane:    pl,
	}
	m := fromPolygons([]*polygon{quad})
	if m.TriangleCount() != 2 {
		t.Errorf("TriangleCount() = %d, want 2", m.TriangleCount())
	}
}
