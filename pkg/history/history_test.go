package history

import (
	"testing"

	"github.com/chazu/kerf/pkg/kernel"
	"github.com/chazu/kerf/pkg/scene"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup() (*scene.Registry, *Manager) {
	reg := scene.NewRegistry(scene.Options{Gap: scene.DefaultGap, GroundOffset: scene.DefaultGroundOffset})
	h := New(reg, DefaultMaxRecords, nil)
	h.Snapshot()
	return reg, h
}

func addBox(reg *scene.Registry, h *Manager, size float64) {
	m := scene.NewModel("box", scene.KindPrimitive, kernel.Box(v3.Vec{X: size, Y: size, Z: size}))
	reg.Place(m)
	reg.Add(m)
	h.Snapshot()
}

type state struct {
	ids       []string
	positions []v3.Vec
	vertices  [][]float32
	selected  int
}

func observe(reg *scene.Registry) state {
	var s state
	for _, m := range reg.Models() {
		s.ids = append(s.ids, m.ID)
		s.positions = append(s.positions, m.Transform.Position)
		s.vertices = append(s.vertices, append([]float32(nil), m.Geometry.Vertices...))
	}
	s.selected = reg.Selected()
	return s
}

func TestRoundTrip(t *testing.T) {
	reg, h := setup()

	const n = 6
	states := []state{observe(reg)}
	for i := 0; i < n; i++ {
		if i%2 == 0 {
			addBox(reg, h, float64(10+i))
		} else {
			m := reg.SelectedModel()
			m.Transform.Position = m.Transform.Position.Add(v3.Vec{X: 5, Y: 1})
			h.Snapshot()
		}
		states = append(states, observe(reg))
	}
	final := observe(reg)

	for i := 0; i < n; i++ {
		require.True(t, h.Undo(), "undo %d", i)
		assert.Equal(t, states[n-1-i], observe(reg), "state after undo %d", i+1)
	}
	for i := 0; i < n; i++ {
		require.True(t, h.Redo(), "redo %d", i)
	}
	assert.Equal(t, final, observe(reg))
}

func TestUndoKeepsRenderMode(t *testing.T) {
	reg, h := setup()
	addBox(reg, h, 10)
	reg.SetRenderMode(scene.RenderWireframe)
	addBox(reg, h, 20)

	require.True(t, h.Undo())
	require.True(t, h.Undo())
	require.True(t, h.Redo())
	addBox(reg, h, 30)

	require.Equal(t, 2, reg.Len())
	for i, m := range reg.Models() {
		assert.Equal(t, scene.RenderWireframe, m.RenderMode, "model %d", i)
	}
}

func TestBoundaries(t *testing.T) {
	reg, h := setup()
	addBox(reg, h, 10)

	require.True(t, h.Undo())
	cursor := h.Cursor()
	assert.False(t, h.Undo(), "undo at first record")
	assert.Equal(t, cursor, h.Cursor(), "undo at first record moved cursor")
	assert.Equal(t, 0, reg.Len())

	require.True(t, h.Redo())
	cursor = h.Cursor()
	assert.False(t, h.Redo(), "redo at last record")
	assert.Equal(t, cursor, h.Cursor(), "redo at last record moved cursor")
	assert.Equal(t, 1, reg.Len())
}

func TestEmptyManager(t *testing.T) {
	reg := scene.NewRegistry(scene.Options{})
	h := New(reg, 0, nil)
	assert.False(t, h.Undo())
	assert.False(t, h.Redo())
	assert.Equal(t, -1, h.Cursor())
}

func TestNewBranchDiscardsRedo(t *testing.T) {
	reg, h := setup()
	addBox(reg, h, 10)
	addBox(reg, h, 20)
	addBox(reg, h, 30)

	require.True(t, h.Undo())
	require.True(t, h.Undo())
	assert.True(t, h.CanRedo())

	addBox(reg, h, 40)
	assert.False(t, h.CanRedo(), "redo branch survived a new snapshot")
	assert.Equal(t, 3, h.Len())
	assert.Equal(t, 2, reg.Len())
}

func TestCap(t *testing.T) {
	reg := scene.NewRegistry(scene.Options{})
	h := New(reg, DefaultMaxRecords, nil)
	var first []Record
	for i := 0; i < 35; i++ {
		addBox(reg, h, 10)
		if i < 6 {
			first = append(first, h.records[len(h.records)-1])
		}
	}
	assert.Equal(t, 30, h.Len())
	assert.Equal(t, 29, h.Cursor())
	// The five oldest records (1..5 models) are gone; the log starts at 6.
	assert.Equal(t, 6, h.records[0].Len())
	assert.Equal(t, first[5].Len(), h.records[0].Len())
}

func TestRecordsAreIsolated(t *testing.T) {
	reg, h := setup()
	addBox(reg, h, 10)

	live := reg.At(0)
	live.Geometry.Vertices[0] = 123
	live.Transform.Position = v3.Vec{X: 77}

	stored := h.records[h.cursor].models[0]
	assert.NotEqual(t, float32(123), stored.Geometry.Vertices[0], "record shares geometry with live model")
	assert.NotEqual(t, 77.0, stored.Transform.Position.X, "record shares transform with live model")

	// Restoring must hand out fresh clones as well.
	h.Snapshot()
	require.True(t, h.Undo())
	restored := reg.At(0)
	restored.Geometry.Vertices[1] = 456
	assert.NotEqual(t, float32(456), h.records[h.cursor].models[0].Geometry.Vertices[1])
}
