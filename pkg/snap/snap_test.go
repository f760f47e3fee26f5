package snap

import (
	"math"
	"testing"

	"github.com/chazu/kerf/pkg/kernel"
	"github.com/chazu/kerf/pkg/scene"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

func addBox(reg *scene.Registry, size float64, pos v3.Vec) int {
	m := scene.NewModel("box", scene.KindPrimitive, kernel.Box(v3.Vec{X: size, Y: size, Z: size}))
	m.Transform.Position = pos
	return reg.Add(m)
}

func faceOnly() Settings {
	s := DefaultSettings()
	s.Enabled = true
	s.Grid = false
	s.Edges = false
	return s
}

func TestGridRoundIdempotent(t *testing.T) {
	sizes := []float64{2, 0.5, 0.1, 3}
	for _, size := range sizes {
		for i := -50; i <= 50; i++ {
			p := v3.Vec{X: float64(i) * 0.37, Y: float64(i) * -1.13, Z: float64(i*i) * 0.011}
			once := GridRound(p, size)
			twice := GridRound(once, size)
			if once != twice {
				t.Fatalf("GridRound not idempotent for %v size %g: %v then %v", p, size, once, twice)
			}
		}
	}
	got := GridRound(v3.Vec{X: 2.9, Y: -3.1, Z: 5}, 2)
	if got != (v3.Vec{X: 2, Y: -4, Z: 6}) {
		t.Errorf("GridRound() = %v, want [2 -4 6]", got)
	}
}

func TestDisabledIsNoop(t *testing.T) {
	reg := scene.NewRegistry(scene.Options{})
	addBox(reg, 10, v3.Vec{})
	i := addBox(reg, 10, v3.Vec{X: 13.3})
	e := New(reg, DefaultSettings(), nil)

	if e.SnapPosition(i) {
		t.Error("SnapPosition() = true while disabled")
	}
	if reg.At(i).Transform.Position.X != 13.3 {
		t.Errorf("position changed while disabled: %v", reg.At(i).Transform.Position)
	}
}

func TestGridSnap(t *testing.T) {
	reg := scene.NewRegistry(scene.Options{})
	i := addBox(reg, 10, v3.Vec{X: 4.9, Y: 1.2, Z: -0.7})
	s := DefaultSettings()
	s.Enabled = true
	e := New(reg, s, nil)

	if !e.SnapPosition(i) {
		t.Fatal("SnapPosition() = false, want true")
	}
	if got := reg.At(i).Transform.Position; got != (v3.Vec{X: 4, Y: 2, Z: 0}) {
		t.Errorf("position = %v, want [4 2 0]", got)
	}
	if e.SnapPosition(i) {
		t.Error("second SnapPosition() moved an aligned model")
	}
}

func TestFaceSnap(t *testing.T) {
	reg := scene.NewRegistry(scene.Options{})
	addBox(reg, 10, v3.Vec{})
	i := addBox(reg, 10, v3.Vec{X: 13, Y: 2, Z: 1})
	e := New(reg, faceOnly(), nil)

	if !e.SnapPosition(i) {
		t.Fatal("SnapPosition() = false, want true")
	}
	// Min X face moves onto the neighbour's max X face; y and z are kept.
	if got := reg.At(i).Transform.Position; got != (v3.Vec{X: 10, Y: 2, Z: 1}) {
		t.Errorf("position = %v, want [10 2 1]", got)
	}
	ind := e.Indicators()
	if len(ind) == 0 || !ind[0].Winner || ind[0].Color != ColorWinner {
		t.Fatalf("indicators = %+v, want a green winner first", ind)
	}
	if ind[0].Position[0] != 10 {
		t.Errorf("winner indicator x = %f, want 10", ind[0].Position[0])
	}
}

func TestFaceSnapOutOfThreshold(t *testing.T) {
	reg := scene.NewRegistry(scene.Options{})
	addBox(reg, 10, v3.Vec{})
	i := addBox(reg, 10, v3.Vec{X: 16})
	e := New(reg, faceOnly(), nil)

	if e.SnapPosition(i) {
		t.Error("SnapPosition() snapped a model 6 units away with threshold 5")
	}
	if len(e.Indicators()) != 0 {
		t.Errorf("indicators = %d, want 0", len(e.Indicators()))
	}
}

func TestFaceSnapNeedsProjectionOverlap(t *testing.T) {
	reg := scene.NewRegistry(scene.Options{})
	addBox(reg, 10, v3.Vec{})
	// Close on X but entirely above the neighbour on Y.
	i := addBox(reg, 10, v3.Vec{X: 12, Y: 30})
	e := New(reg, faceOnly(), nil)

	if c := e.Candidates(i); len(c) != 0 {
		t.Errorf("Candidates() = %+v, want none", c)
	}
}

func TestTieBreakLowestModelIndex(t *testing.T) {
	reg := scene.NewRegistry(scene.Options{})
	addBox(reg, 10, v3.Vec{})           // 0..10
	i := addBox(reg, 10, v3.Vec{X: 13}) // 13..23
	addBox(reg, 10, v3.Vec{X: 26})      // 26..36
	e := New(reg, faceOnly(), nil)

	c := e.Candidates(i)
	if len(c) != 2 {
		t.Fatalf("Candidates() len = %d, want 2", len(c))
	}
	if c[0].Distance != c[1].Distance {
		t.Fatalf("distances %f and %f should tie", c[0].Distance, c[1].Distance)
	}
	if c[0].Model != 0 || c[1].Model != 2 {
		t.Errorf("candidate order = %d, %d, want 0, 2", c[0].Model, c[1].Model)
	}

	e.SnapPosition(i)
	if got := reg.At(i).Transform.Position.X; got != 10 {
		t.Errorf("x = %f, want 10", got)
	}
	ind := e.Indicators()
	if len(ind) != 2 || ind[1].Winner || ind[1].Color != ColorCandidate {
		t.Errorf("indicators = %+v, want winner then amber", ind)
	}
}

func TestCompareCandidates(t *testing.T) {
	base := Candidate{Distance: 1, Axis: kernel.AxisY, Model: 3, Kind: Edge, Side: Max}
	tests := []struct {
		name   string
		better Candidate
	}{
		{"distance", Candidate{Distance: 0.5, Axis: kernel.AxisZ, Model: 9, Kind: Edge, Side: Max}},
		{"axis", Candidate{Distance: 1, Axis: kernel.AxisX, Model: 9, Kind: Edge, Side: Max}},
		{"model", Candidate{Distance: 1, Axis: kernel.AxisY, Model: 1, Kind: Edge, Side: Max}},
		{"kind", Candidate{Distance: 1, Axis: kernel.AxisY, Model: 3, Kind: Face, Side: Max}},
		{"side", Candidate{Distance: 1, Axis: kernel.AxisY, Model: 3, Kind: Edge, Side: Min}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if compareCandidates(tt.better, base) >= 0 {
				t.Errorf("compareCandidates(%+v, base) >= 0, want < 0", tt.better)
			}
		})
	}
}

func TestEdgeSnapIgnoresDepth(t *testing.T) {
	reg := scene.NewRegistry(scene.Options{})
	addBox(reg, 10, v3.Vec{})
	// Overlaps on X only, 2 units above, far away on Z.
	i := addBox(reg, 10, v3.Vec{X: 3, Y: 12, Z: 40})
	s := DefaultSettings()
	s.Enabled = true
	s.Grid = false
	e := New(reg, s, nil)

	if !e.SnapPosition(i) {
		t.Fatal("SnapPosition() = false, want edge snap")
	}
	got := reg.At(i).Transform.Position
	if got != (v3.Vec{X: 3, Y: 10, Z: 40}) {
		t.Errorf("position = %v, want [3 10 40]", got)
	}
	if ind := e.Indicators(); len(ind) != 1 || ind[0].Kind != "edge" {
		t.Errorf("indicators = %+v, want one edge", ind)
	}
}

func TestIndicatorsCleared(t *testing.T) {
	reg := scene.NewRegistry(scene.Options{})
	addBox(reg, 10, v3.Vec{})
	i := addBox(reg, 10, v3.Vec{X: 12})
	e := New(reg, faceOnly(), nil)

	var published [][]Indicator
	e.OnIndicators(func(ind []Indicator) { published = append(published, ind) })

	e.SnapPosition(i)
	if len(e.Indicators()) == 0 {
		t.Fatal("no indicators after snap")
	}
	reg.Select(0)
	if len(e.Indicators()) != 0 {
		t.Error("indicators survived a selection change")
	}

	reg.At(i).Transform.Position.X = 12
	e.SnapPosition(i)
	e.Toggle()
	if len(e.Indicators()) != 0 {
		t.Error("indicators survived toggling snap off")
	}
	if n := len(published); n != 4 {
		t.Errorf("published %d indicator sets, want 4", n)
	}
	if len(published[len(published)-1]) != 0 {
		t.Error("last published set is not empty")
	}
}

func TestSettingsValidate(t *testing.T) {
	if err := DefaultSettings().Validate(); err != nil {
		t.Errorf("DefaultSettings().Validate() error = %v", err)
	}
	s := DefaultSettings()
	s.GridSize = 0
	if err := s.Validate(); err == nil {
		t.Error("Validate() with zero grid size error = nil")
	}
	s = DefaultSettings()
	s.Threshold = math.Inf(-1)
	if err := s.Validate(); err == nil {
		t.Error("Validate() with negative threshold error = nil")
	}
}
