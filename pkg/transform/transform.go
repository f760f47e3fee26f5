// Package transform applies stepped and absolute transforms to the
// selected model while keeping every model within the maximum printable
// size.
package transform

import (
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/chazu/kerf/pkg/kernel"
	"github.com/chazu/kerf/pkg/scene"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Kind is the transform family an Op belongs to.
type Kind int

const (
	Translate Kind = iota
	Rotate
	Scale
)

func (k Kind) String() string {
	switch k {
	case Translate:
		return "translate"
	case Rotate:
		return "rotate"
	case Scale:
		return "scale"
	default:
		return "unknown"
	}
}

// Op is a stepped operation on one axis.
type Op struct {
	Kind Kind
	Axis kernel.Axis
}

func (o Op) String() string {
	return o.Kind.String() + strings.ToUpper(o.Axis.String())
}

// ParseOp parses names such as "translateX", "rotatey" or "scaleZ".
func ParseOp(s string) (Op, error) {
	lower := strings.ToLower(s)
	for _, k := range []Kind{Translate, Rotate, Scale} {
		prefix := k.String()
		if !strings.HasPrefix(lower, prefix) {
			continue
		}
		for _, a := range kernel.Axes {
			if lower[len(prefix):] == a.String() {
				return Op{Kind: k, Axis: a}, nil
			}
		}
	}
	return Op{}, fmt.Errorf("transform: unknown operation %q", s)
}

// Status reports what happened to a transform request.
type Status int

const (
	Applied Status = iota
	Clamped
	Rejected
	NoSelection
)

func (s Status) String() string {
	switch s {
	case Applied:
		return "applied"
	case Clamped:
		return "clamped"
	case Rejected:
		return "rejected"
	case NoSelection:
		return "no-selection"
	default:
		return "unknown"
	}
}

// Result describes the outcome of a transform request. Size violations
// are enforced here instead of being returned as errors.
type Result struct {
	Status    Status
	Index     int
	Transform scene.Transform
	Reason    string
}

// Changed reports whether the model was modified.
func (r Result) Changed() bool {
	return r.Status == Applied || r.Status == Clamped
}

// Settings holds the step sizes and limits.
type Settings struct {
	TranslateStep float64
	RotateStep    float64 // radians
	ScaleStep     float64
	MaxSize       float64 // largest allowed world dimension on any axis
	StepFloor     float64 // minimum scale reachable by stepping down
	AbsoluteFloor float64 // minimum scale accepted by SetScale
}

// DefaultSettings returns the editor defaults: 10 inches in millimetres
// as the size limit.
func DefaultSettings() Settings {
	return Settings{
		TranslateStep: 5,
		RotateStep:    math.Pi / 18,
		ScaleStep:     0.2,
		MaxSize:       10 * 25.4,
		StepFloor:     0.01,
		AbsoluteFloor: 0.0001,
	}
}

// Recorder takes history snapshots.
type Recorder interface {
	Snapshot()
}

// Snapper adjusts a model position after translation.
type Snapper interface {
	GridActive() bool
	SnapPosition(index int) bool
}

// Engine mutates the selected model of a registry.
type Engine struct {
	reg      *scene.Registry
	history  Recorder
	snapper  Snapper
	settings Settings
	logger   *slog.Logger
}

// New returns an Engine. snapper may be nil.
func New(reg *scene.Registry, history Recorder, snapper Snapper, settings Settings, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{reg: reg, history: history, snapper: snapper, settings: settings, logger: logger}
}

// Settings returns the current settings.
func (e *Engine) Settings() Settings {
	return e.settings
}

// SetSettings replaces the step sizes and limits.
func (e *Engine) SetSettings(s Settings) {
	e.settings = s
}

func (e *Engine) selected(op string) (*scene.Model, int, bool) {
	idx := e.reg.Selected()
	m := e.reg.At(idx)
	if m == nil {
		e.logger.Info("transform: no model selected", "op", op)
		return nil, idx, false
	}
	return m, idx, true
}

func (e *Engine) finish(m *scene.Model, idx int, status Status, ground bool) Result {
	if ground {
		e.reg.UpdateGround()
	}
	if e.history != nil {
		e.history.Snapshot()
	}
	return Result{Status: status, Index: idx, Transform: m.Transform}
}

// ----------------------------------------------------------------------------
// Stepped operations
// ----------------------------------------------------------------------------

// Apply performs one step of op in direction dir (+1 or -1).
func (e *Engine) Apply(op Op, dir int) Result {
	m, idx, ok := e.selected(op.String())
	if !ok {
		return Result{Status: NoSelection, Index: idx, Reason: "no model selected"}
	}
	d := 1.0
	if dir < 0 {
		d = -1
	}

	switch op.Kind {
	case Translate:
		pos := m.Transform.Position
		m.Transform.Position = kernel.WithComponent(pos, op.Axis, kernel.Component(pos, op.Axis)+d*e.settings.TranslateStep)
		if e.snapper != nil && e.snapper.GridActive() {
			e.snapper.SnapPosition(idx)
		}
		return e.finish(m, idx, Applied, true)

	case Rotate:
		rot := m.Transform.Rotation
		m.Transform.Rotation = kernel.WithComponent(rot, op.Axis, kernel.Component(rot, op.Axis)+d*e.settings.RotateStep)
		return e.finish(m, idx, Applied, false)

	case Scale:
		return e.stepScale(m, idx, op, d)
	}
	return Result{Status: Rejected, Index: idx, Transform: m.Transform, Reason: "unknown operation"}
}

func (e *Engine) stepScale(m *scene.Model, idx int, op Op, d float64) Result {
	size, ok := m.LocalSize()
	if !ok {
		e.logger.Warn("transform: scale rejected, bounds not computable", "id", m.ID)
		return Result{Status: Rejected, Index: idx, Transform: m.Transform, Reason: "geometry has no bounds"}
	}

	cur := m.Transform.Scale
	proposed := kernel.WithComponent(cur, op.Axis, kernel.Component(cur, op.Axis)+d*e.settings.ScaleStep)

	if d > 0 {
		for _, a := range kernel.Axes {
			dim := kernel.Component(size, a) * kernel.Component(proposed, a)
			if dim > e.settings.MaxSize {
				e.logger.Info("transform: scale step rejected",
					"id", m.ID, "axis", a.String(), "dimension", dim, "max", e.settings.MaxSize)
				return Result{
					Status:    Rejected,
					Index:     idx,
					Transform: m.Transform,
					Reason:    fmt.Sprintf("%s dimension %.2f would exceed %.2f", a, dim, e.settings.MaxSize),
				}
			}
		}
		m.Transform.Scale = proposed
		return e.finish(m, idx, Applied, true)
	}

	status := Applied
	for _, a := range kernel.Axes {
		if kernel.Component(proposed, a) < e.settings.StepFloor {
			proposed = kernel.WithComponent(proposed, a, e.settings.StepFloor)
			status = Clamped
		}
	}
	m.Transform.Scale = proposed
	return e.finish(m, idx, status, true)
}

// ----------------------------------------------------------------------------
// Absolute setters
// ----------------------------------------------------------------------------

// SetPosition moves the selected model to pos.
func (e *Engine) SetPosition(pos v3.Vec) Result {
	m, idx, ok := e.selected("setPosition")
	if !ok {
		return Result{Status: NoSelection, Index: idx, Reason: "no model selected"}
	}
	m.Transform.Position = pos
	return e.finish(m, idx, Applied, true)
}

// SetRotation sets the selected model's Euler rotation in radians.
func (e *Engine) SetRotation(rot v3.Vec) Result {
	m, idx, ok := e.selected("setRotation")
	if !ok {
		return Result{Status: NoSelection, Index: idx, Reason: "no model selected"}
	}
	m.Transform.Rotation = rot
	return e.finish(m, idx, Applied, false)
}

// SetScale sets the selected model's scale. Each axis is raised to the
// absolute floor and then limited independently so the model's
// un-scaled dimension times the scale stays within MaxSize.
func (e *Engine) SetScale(s v3.Vec) Result {
	m, idx, ok := e.selected("setScale")
	if !ok {
		return Result{Status: NoSelection, Index: idx, Reason: "no model selected"}
	}
	size, ok := m.LocalSize()
	if !ok {
		e.logger.Warn("transform: scale rejected, bounds not computable", "id", m.ID)
		return Result{Status: Rejected, Index: idx, Transform: m.Transform, Reason: "geometry has no bounds"}
	}

	clamped, changed := ClampScale(size, s, e.settings.AbsoluteFloor, e.settings.MaxSize)
	m.Transform.Scale = clamped
	status := Applied
	if changed {
		status = Clamped
		e.logger.Info("transform: scale clamped", "id", m.ID,
			"requested", []float64{s.X, s.Y, s.Z}, "applied", []float64{clamped.X, clamped.Y, clamped.Z})
	}
	return e.finish(m, idx, status, true)
}

// Reset restores the selected model's creation transform.
func (e *Engine) Reset() Result {
	m, idx, ok := e.selected("reset")
	if !ok {
		return Result{Status: NoSelection, Index: idx, Reason: "no model selected"}
	}
	m.Transform = m.Original
	return e.finish(m, idx, Applied, true)
}

// ClampScale raises each component of s to floor and then lowers it so
// that size*s <= limit per axis. It reports whether any component changed.
func ClampScale(size, s v3.Vec, floor, limit float64) (v3.Vec, bool) {
	changed := false
	for _, a := range kernel.Axes {
		v := kernel.Component(s, a)
		if v < floor || math.IsNaN(v) {
			v = floor
			changed = true
		}
		dim := kernel.Component(size, a)
		if dim > 0 && dim*v > limit {
			v = limit / dim
			for dim*v > limit {
				v = math.Nextafter(v, 0)
			}
			changed = true
		}
		s = kernel.WithComponent(s, a, v)
	}
	return s, changed
}
