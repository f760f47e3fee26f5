package transform

import (
	"math"
	"testing"

	"github.com/chazu/kerf/pkg/kernel"
	"github.com/chazu/kerf/pkg/scene"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

type countingRecorder struct{ n int }

func (c *countingRecorder) Snapshot() { c.n++ }

type fakeSnapper struct {
	grid  bool
	calls []int
}

func (f *fakeSnapper) GridActive() bool { return f.grid }
func (f *fakeSnapper) SnapPosition(i int) bool {
	f.calls = append(f.calls, i)
	return true
}

func setup(size v3.Vec) (*Engine, *scene.Registry, *countingRecorder, *fakeSnapper) {
	reg := scene.NewRegistry(scene.Options{GroundOffset: 1})
	reg.Add(scene.NewModel("part", scene.KindImported, kernel.Box(size)))
	rec := &countingRecorder{}
	snap := &fakeSnapper{}
	return New(reg, rec, snap, DefaultSettings(), nil), reg, rec, snap
}

func cube(s float64) v3.Vec { return v3.Vec{X: s, Y: s, Z: s} }

func TestParseOp(t *testing.T) {
	tests := []struct {
		in   string
		want Op
	}{
		{"translateX", Op{Translate, kernel.AxisX}},
		{"rotateY", Op{Rotate, kernel.AxisY}},
		{"scalez", Op{Scale, kernel.AxisZ}},
	}
	for _, tt := range tests {
		got, err := ParseOp(tt.in)
		if err != nil {
			t.Fatalf("ParseOp(%q) error = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseOp(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	for _, bad := range []string{"", "translate", "translateW", "shearX"} {
		if _, err := ParseOp(bad); err == nil {
			t.Errorf("ParseOp(%q) error = nil, want error", bad)
		}
	}
	if s := (Op{Scale, kernel.AxisY}).String(); s != "scaleY" {
		t.Errorf("Op.String() = %q, want scaleY", s)
	}
}

func TestTranslateStep(t *testing.T) {
	e, reg, rec, snap := setup(cube(10))

	r := e.Apply(Op{Translate, kernel.AxisX}, 1)
	if r.Status != Applied {
		t.Fatalf("Apply() status = %v, want applied", r.Status)
	}
	r = e.Apply(Op{Translate, kernel.AxisY}, -1)
	pos := reg.At(0).Transform.Position
	if pos != (v3.Vec{X: 5, Y: -5}) {
		t.Errorf("position = %v, want [5 -5 0]", pos)
	}
	if rec.n != 2 {
		t.Errorf("snapshots = %d, want 2", rec.n)
	}
	if len(snap.calls) != 0 {
		t.Errorf("snapper called %d times with grid inactive", len(snap.calls))
	}
	if reg.GroundLevel() != -6 {
		t.Errorf("GroundLevel() = %f, want -6", reg.GroundLevel())
	}

	snap.grid = true
	e.Apply(Op{Translate, kernel.AxisZ}, 1)
	if len(snap.calls) != 1 || snap.calls[0] != 0 {
		t.Errorf("snapper calls = %v, want [0]", snap.calls)
	}
}

func TestRotateStep(t *testing.T) {
	e, reg, _, _ := setup(cube(10))
	for i := 0; i < 9; i++ {
		e.Apply(Op{Rotate, kernel.AxisZ}, 1)
	}
	if got := reg.At(0).Transform.Rotation.Z; math.Abs(got-math.Pi/2) > 1e-12 {
		t.Errorf("rotation = %f, want pi/2", got)
	}
}

func TestNoSelection(t *testing.T) {
	e, reg, rec, _ := setup(cube(10))
	reg.Select(scene.NoSelection)

	results := []Result{
		e.Apply(Op{Translate, kernel.AxisX}, 1),
		e.SetPosition(v3.Vec{X: 1}),
		e.SetRotation(v3.Vec{X: 1}),
		e.SetScale(cube(2)),
		e.Reset(),
	}
	for i, r := range results {
		if r.Status != NoSelection {
			t.Errorf("result %d status = %v, want no-selection", i, r.Status)
		}
	}
	if rec.n != 0 {
		t.Errorf("snapshots = %d, want 0", rec.n)
	}
	if reg.At(0).Transform != scene.Identity() {
		t.Error("model changed without a selection")
	}
}

func TestScaleStepRejectsOversize(t *testing.T) {
	e, reg, rec, _ := setup(v3.Vec{X: 200, Y: 10, Z: 10})

	// 200 * 1.2 = 240 fits, 200 * 1.4 = 280 does not.
	if r := e.Apply(Op{Scale, kernel.AxisX}, 1); r.Status != Applied {
		t.Fatalf("first step status = %v, want applied", r.Status)
	}
	r := e.Apply(Op{Scale, kernel.AxisX}, 1)
	if r.Status != Rejected {
		t.Fatalf("second step status = %v, want rejected", r.Status)
	}
	if got := reg.At(0).Transform.Scale.X; math.Abs(got-1.2) > 1e-12 {
		t.Errorf("scale.x = %f, want 1.2 (no partial application)", got)
	}
	if rec.n != 1 {
		t.Errorf("snapshots = %d, want 1", rec.n)
	}
}

func TestScaleStepFloor(t *testing.T) {
	e, reg, _, _ := setup(cube(10))
	var last Result
	for i := 0; i < 10; i++ {
		last = e.Apply(Op{Scale, kernel.AxisY}, -1)
	}
	if last.Status != Clamped {
		t.Errorf("last status = %v, want clamped", last.Status)
	}
	if got := reg.At(0).Transform.Scale.Y; got != 0.01 {
		t.Errorf("scale.y = %f, want 0.01", got)
	}
	if got := reg.At(0).Transform.Scale.X; got != 1 {
		t.Errorf("scale.x = %f, want 1", got)
	}
}

func TestSetScaleClampScenario(t *testing.T) {
	e, reg, _, _ := setup(v3.Vec{X: 300, Y: 20, Z: 20})

	r := e.SetScale(v3.Vec{X: 2, Y: 2, Z: 2})
	if r.Status != Clamped {
		t.Fatalf("SetScale() status = %v, want clamped", r.Status)
	}
	s := reg.At(0).Transform.Scale
	if math.Abs(s.X-254.0/300.0) > 1e-9 {
		t.Errorf("scale.x = %f, want %f", s.X, 254.0/300.0)
	}
	if math.Abs(s.X-0.8467) > 1e-4 {
		t.Errorf("scale.x = %f, want ~0.8467", s.X)
	}
	// Axes are independent: y and z fit at 2.
	if s.Y != 2 || s.Z != 2 {
		t.Errorf("scale.y/z = %f/%f, want 2/2", s.Y, s.Z)
	}
}

func TestSetScaleAbsoluteFloor(t *testing.T) {
	e, reg, _, _ := setup(cube(10))
	e.SetScale(v3.Vec{X: 0, Y: -3, Z: 0.5})
	s := reg.At(0).Transform.Scale
	if s.X != 0.0001 || s.Y != 0.0001 || s.Z != 0.5 {
		t.Errorf("scale = %v, want [0.0001 0.0001 0.5]", s)
	}
}

func TestClampInvariant(t *testing.T) {
	sizes := []float64{0.5, 1, 3, 10, 33.3, 127, 254, 300, 999.9}
	requests := []float64{-1, 0, 0.00005, 0.3, 1, 1.7, 2, 7.77, 100, 1e6}
	const limit = 254.0

	for _, sx := range sizes {
		for _, sy := range sizes {
			size := v3.Vec{X: sx, Y: sy, Z: 12}
			for _, req := range requests {
				got, _ := ClampScale(size, v3.Vec{X: req, Y: req, Z: req}, 0.0001, limit)
				for _, a := range kernel.Axes {
					dim := kernel.Component(size, a) * kernel.Component(got, a)
					if dim > limit {
						t.Fatalf("size %v request %f: %s dimension %f > %f", size, req, a, dim, limit)
					}
					if kernel.Component(got, a) <= 0 {
						t.Fatalf("size %v request %f: %s scale %f not positive", size, req, a, kernel.Component(got, a))
					}
				}
			}
		}
	}
}

func TestClampInvariantThroughEngine(t *testing.T) {
	e, reg, _, _ := setup(v3.Vec{X: 120, Y: 60, Z: 5})
	ops := []Op{{Scale, kernel.AxisX}, {Scale, kernel.AxisY}, {Scale, kernel.AxisZ}}
	for i := 0; i < 200; i++ {
		e.Apply(ops[i%3], 1)
		if i%17 == 0 {
			e.SetScale(v3.Vec{X: float64(i), Y: 3, Z: 90})
		}
		m := reg.At(0)
		size, _ := m.LocalSize()
		for _, a := range kernel.Axes {
			if dim := kernel.Component(size, a) * kernel.Component(m.Transform.Scale, a); dim > 254 {
				t.Fatalf("step %d: %s dimension %f exceeds 254", i, a, dim)
			}
		}
	}
}

func TestReset(t *testing.T) {
	e, reg, _, _ := setup(cube(10))
	m := reg.At(0)
	m.Original.Position = v3.Vec{X: 100}

	e.SetPosition(v3.Vec{X: 3, Y: 4, Z: 5})
	e.SetRotation(v3.Vec{Z: 1})
	e.SetScale(cube(3))
	if r := e.Reset(); r.Status != Applied {
		t.Fatalf("Reset() status = %v", r.Status)
	}
	if m.Transform != m.Original {
		t.Errorf("Transform after Reset() = %+v, want %+v", m.Transform, m.Original)
	}
}
