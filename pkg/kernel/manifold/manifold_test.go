//go:build manifold

package manifold

import (
	"math"
	"testing"

	"github.com/chazu/kerf/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

func mustNew(t *testing.T) kernel.Kernel {
	t.Helper()
	k, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return k
}

func boxAt(edge float64, x, y, z float64) *kernel.Mesh {
	return kernel.Bake(kernel.Box(v3.Vec{X: edge, Y: edge, Z: edge}),
		kernel.WorldMatrix(v3.Vec{X: x, Y: y, Z: z}, v3.Vec{}, v3.Vec{X: 1, Y: 1, Z: 1}))
}

func TestUnion(t *testing.T) {
	k := mustNew(t)
	got, err := k.Union(boxAt(10, 0, 0, 0), boxAt(10, 5, 0, 0))
	if err != nil {
		t.Fatalf("Union() error = %v", err)
	}
	bb, ok := got.BoundingBox()
	if !ok {
		t.Fatal("Union() result has no bounds")
	}
	if math.Abs(bb.Max.X-15) > 1e-4 || math.Abs(bb.Min.X) > 1e-4 {
		t.Errorf("Union() X extent = [%f, %f], want [0, 15]", bb.Min.X, bb.Max.X)
	}
}

func TestDifference(t *testing.T) {
	k := mustNew(t)
	got, err := k.Difference(boxAt(10, 0, 0, 0), boxAt(4, 3, 3, -1))
	if err != nil {
		t.Fatalf("Difference() error = %v", err)
	}
	if got.TriangleCount() <= 12 {
		t.Errorf("Difference() triangle count = %d, want > 12", got.TriangleCount())
	}
	if len(got.Normals) != len(got.Vertices) {
		t.Errorf("normals length = %d, vertices length = %d, want equal",
			len(got.Normals), len(got.Vertices))
	}
}

func TestIntersectionDisjoint(t *testing.T) {
	k := mustNew(t)
	got, err := k.Intersection(boxAt(10, 0, 0, 0), boxAt(10, 50, 0, 0))
	if err != nil {
		t.Fatalf("Intersection() error = %v", err)
	}
	if !got.IsEmpty() {
		t.Errorf("Intersection() of disjoint boxes has %d triangles, want 0", got.TriangleCount())
	}
}
