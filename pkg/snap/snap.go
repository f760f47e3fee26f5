// Package snap adjusts a model's position against a grid and against the
// faces of neighbouring models.
package snap

import (
	"cmp"
	"log/slog"
	"math"
	"slices"

	"github.com/chazu/kerf/pkg/kernel"
	"github.com/chazu/kerf/pkg/scene"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

const (
	ColorWinner    = "#22c55e"
	ColorCandidate = "#f59e0b"
)

// Kind distinguishes face alignment from the simplified edge alignment.
type Kind int

const (
	Face Kind = iota
	Edge
)

func (k Kind) String() string {
	if k == Edge {
		return "edge"
	}
	return "face"
}

// Side says which face of the moving model touches the neighbour: Min
// puts the model's minimum face on the neighbour's maximum face.
type Side int

const (
	Min Side = iota
	Max
)

// Candidate is a position that would make one face of the moving model
// coincide with a face of a neighbour.
type Candidate struct {
	Position v3.Vec      // model position after snapping
	Contact  v3.Vec      // point on the shared plane, for indicators
	Distance float64     // gap between the faces before snapping
	Axis     kernel.Axis // axis the faces are perpendicular to
	Model    int         // neighbour index
	Kind     Kind
	Side     Side
}

// compareCandidates orders candidates by distance, then axis, neighbour
// index, face before edge, and min side before max side.
func compareCandidates(a, b Candidate) int {
	return cmp.Or(
		cmp.Compare(a.Distance, b.Distance),
		cmp.Compare(a.Axis, b.Axis),
		cmp.Compare(a.Model, b.Model),
		cmp.Compare(a.Kind, b.Kind),
		cmp.Compare(a.Side, b.Side),
	)
}

// Indicator is a transient marker shown for one candidate.
type Indicator struct {
	Position [3]float64 `json:"position"`
	Axis     string     `json:"axis"`
	Kind     string     `json:"kind"`
	Winner   bool       `json:"winner"`
	Color    string     `json:"color"`
}

// Engine snaps models of a registry.
type Engine struct {
	reg        *scene.Registry
	settings   Settings
	indicators []Indicator
	listeners  []func([]Indicator)
	logger     *slog.Logger
}

// New returns an Engine. Indicators are cleared whenever the registry
// selection changes.
func New(reg *scene.Registry, settings Settings, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{reg: reg, settings: settings, logger: logger}
	reg.OnSelectionChange(func(int, int) { e.ClearIndicators() })
	return e
}

// OnIndicators registers fn to receive the indicator set whenever it
// changes. An empty slice means the indicators were cleared.
func (e *Engine) OnIndicators(fn func([]Indicator)) {
	e.listeners = append(e.listeners, fn)
}

// Settings returns the current settings.
func (e *Engine) Settings() Settings {
	return e.settings
}

// Update replaces the settings. Turning snapping off clears indicators.
func (e *Engine) Update(s Settings) {
	wasEnabled := e.settings.Enabled
	e.settings = s
	if wasEnabled && !s.Enabled {
		e.ClearIndicators()
	}
}

// Toggle flips snapping on or off and returns the new state.
func (e *Engine) Toggle() bool {
	s := e.settings
	s.Enabled = !s.Enabled
	e.Update(s)
	e.logger.Info("snap toggled", "enabled", s.Enabled)
	return s.Enabled
}

// GridActive reports whether translations should be grid snapped.
func (e *Engine) GridActive() bool {
	return e.settings.Enabled && e.settings.Grid
}

// Indicators returns the current indicator set.
func (e *Engine) Indicators() []Indicator {
	return append([]Indicator(nil), e.indicators...)
}

// ClearIndicators removes every indicator.
func (e *Engine) ClearIndicators() {
	if len(e.indicators) == 0 {
		return
	}
	e.indicators = nil
	e.publish()
}

func (e *Engine) publish() {
	out := e.Indicators()
	for _, fn := range e.listeners {
		fn(out)
	}
}

// GridRound rounds every coordinate of p to the nearest multiple of size.
func GridRound(p v3.Vec, size float64) v3.Vec {
	r := func(v float64) float64 { return math.Round(v/size) * size }
	return v3.Vec{X: r(p.X), Y: r(p.Y), Z: r(p.Z)}
}

// SnapPosition snaps the model at index. It is a no-op while snapping is
// disabled and reports whether the position changed.
func (e *Engine) SnapPosition(index int) bool {
	if !e.settings.Enabled {
		return false
	}
	e.ClearIndicators()

	m := e.reg.At(index)
	if m == nil {
		return false
	}
	start := m.Transform.Position

	if e.settings.Grid && e.settings.GridSize > 0 {
		m.Transform.Position = GridRound(m.Transform.Position, e.settings.GridSize)
	}

	if (e.settings.Faces || e.settings.Edges) && e.reg.Len() >= 2 {
		candidates := e.Candidates(index)
		if len(candidates) > 0 {
			winner := candidates[0]
			m.Transform.Position = winner.Position
			e.indicators = make([]Indicator, len(candidates))
			for i, c := range candidates {
				e.indicators[i] = indicator(c, i == 0)
			}
			e.publish()
			e.logger.Debug("snap applied",
				"id", m.ID, "axis", winner.Axis.String(), "kind", winner.Kind.String(),
				"neighbour", winner.Model, "distance", winner.Distance, "candidates", len(candidates))
		}
	}

	return m.Transform.Position != start
}

// Candidates lists every face or edge snap within the threshold for the
// model at index, best first.
func (e *Engine) Candidates(index int) []Candidate {
	m := e.reg.At(index)
	if m == nil {
		return nil
	}
	box, ok := m.WorldBounds()
	if !ok {
		return nil
	}

	// Edge alignment ignores Z, so the neighbour query cannot bound it.
	t := e.settings.Threshold
	grow := v3.Vec{X: t, Y: t, Z: t}
	if e.settings.Edges {
		grow.Z = unbounded
	}

	var out []Candidate
	for _, n := range nearby(e.reg, index, box, grow) {
		if e.settings.Faces {
			out = append(out, e.faceCandidates(m.Transform.Position, box, n)...)
		}
		if e.settings.Edges {
			out = append(out, e.edgeCandidates(m.Transform.Position, box, n)...)
		}
	}
	slices.SortStableFunc(out, compareCandidates)
	return out
}

// faceCandidates tests the six face alignments against one neighbour.
// Faces only align when the boxes overlap on the two other axes.
func (e *Engine) faceCandidates(pos v3.Vec, box sdf.Box3, n *neighbour) []Candidate {
	var out []Candidate
	for _, a := range kernel.Axes {
		b, c := others(a)
		if !overlaps(box, n.box, b) || !overlaps(box, n.box, c) {
			continue
		}
		out = e.appendPair(out, pos, box, n, a, Face)
	}
	return out
}

// edgeCandidates is the simplified edge test: align bottom and top faces
// on Y when the X extents overlap.
func (e *Engine) edgeCandidates(pos v3.Vec, box sdf.Box3, n *neighbour) []Candidate {
	if !overlaps(box, n.box, kernel.AxisX) {
		return nil
	}
	return e.appendPair(nil, pos, box, n, kernel.AxisY, Edge)
}

func (e *Engine) appendPair(out []Candidate, pos v3.Vec, box sdf.Box3, n *neighbour, a kernel.Axis, kind Kind) []Candidate {
	// Our min face onto their max face, then our max face onto their min face.
	pairs := [2]struct {
		side  Side
		ours  float64
		their float64
	}{
		{Min, kernel.Component(box.Min, a), kernel.Component(n.box.Max, a)},
		{Max, kernel.Component(box.Max, a), kernel.Component(n.box.Min, a)},
	}
	for _, p := range pairs {
		delta := p.their - p.ours
		dist := math.Abs(delta)
		if dist > e.settings.Threshold {
			continue
		}
		center := box.Min.Add(box.Max).MulScalar(0.5)
		out = append(out, Candidate{
			Position: kernel.WithComponent(pos, a, kernel.Component(pos, a)+delta),
			Contact:  kernel.WithComponent(center, a, p.their),
			Distance: dist,
			Axis:     a,
			Model:    n.index,
			Kind:     kind,
			Side:     p.side,
		})
	}
	return out
}

func others(a kernel.Axis) (kernel.Axis, kernel.Axis) {
	switch a {
	case kernel.AxisX:
		return kernel.AxisY, kernel.AxisZ
	case kernel.AxisY:
		return kernel.AxisX, kernel.AxisZ
	default:
		return kernel.AxisX, kernel.AxisY
	}
}

// overlaps reports whether the projections of a and b onto axis overlap.
func overlaps(a, b sdf.Box3, axis kernel.Axis) bool {
	return kernel.Component(a.Min, axis) <= kernel.Component(b.Max, axis) &&
		kernel.Component(a.Max, axis) >= kernel.Component(b.Min, axis)
}

func indicator(c Candidate, winner bool) Indicator {
	color := ColorCandidate
	if winner {
		color = ColorWinner
	}
	return Indicator{
		Position: [3]float64{c.Contact.X, c.Contact.Y, c.Contact.Z},
		Axis:     c.Axis.String(),
		Kind:     c.Kind.String(),
		Winner:   winner,
		Color:    color,
	}
}

func sortByIndex(ns []*neighbour) {
	slices.SortFunc(ns, func(a, b *neighbour) int { return cmp.Compare(a.index, b.index) })
}
