// Package csg combines two models with a boolean operation. The boolean
// runs on world-baked, conditioned copies of the operands through an
// ordered list of strategies; the first strategy that returns a mesh
// wins, and the result replaces both operands in the registry.
package csg

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chazu/kerf/pkg/kernel"
	"github.com/chazu/kerf/pkg/kernel/bsp"
	"github.com/chazu/kerf/pkg/kernel/manifold"
	"github.com/chazu/kerf/pkg/scene"
	"github.com/chazu/kerf/pkg/transform"
)

// Settings configures the engine.
type Settings struct {
	Kernel          string // bsp or manifold
	MergeTolerance  float64
	CoarseTolerance float64
	Yield           time.Duration // pause before the blocking computation
	MaxPolygons     int           // bsp kernel budget
	MaxSize         float64       // largest world dimension of a result
	ScaleFloor      float64
}

// DefaultSettings returns the pure-Go kernel with the standard tolerances.
func DefaultSettings() Settings {
	ts := transform.DefaultSettings()
	return Settings{
		Kernel:          "bsp",
		MergeTolerance:  kernel.MergeTolerance,
		CoarseTolerance: kernel.CoarseMergeTolerance,
		Yield:           16 * time.Millisecond,
		MaxPolygons:     bsp.DefaultMaxPolygons,
		MaxSize:         ts.MaxSize,
		ScaleFloor:      ts.AbsoluteFloor,
	}
}

// NewKernel returns the boolean kernel named in s.
func NewKernel(s Settings) (kernel.Kernel, error) {
	switch s.Kernel {
	case "", "bsp":
		k := bsp.New()
		if s.MaxPolygons > 0 {
			k.MaxPolygons = s.MaxPolygons
		}
		return k, nil
	case "manifold":
		return manifold.New()
	}
	return nil, fmt.Errorf("csg: unknown kernel %q", s.Kernel)
}

// Recorder takes history snapshots.
type Recorder interface {
	Snapshot()
}

// Engine runs boolean operations on registry models.
type Engine struct {
	reg      *scene.Registry
	history  Recorder
	kernel   kernel.Kernel
	settings Settings
	logger   *slog.Logger
}

// New returns an Engine using k for the boolean step.
func New(reg *scene.Registry, history Recorder, k kernel.Kernel, settings Settings, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if settings.MergeTolerance <= 0 {
		settings.MergeTolerance = kernel.MergeTolerance
	}
	if settings.CoarseTolerance <= 0 {
		settings.CoarseTolerance = kernel.CoarseMergeTolerance
	}
	if settings.MaxSize <= 0 {
		settings.MaxSize = transform.DefaultSettings().MaxSize
	}
	if settings.ScaleFloor <= 0 {
		settings.ScaleFloor = transform.DefaultSettings().AbsoluteFloor
	}
	return &Engine{reg: reg, history: history, kernel: k, settings: settings, logger: logger}
}

// Settings returns the engine settings.
func (e *Engine) Settings() Settings {
	return e.settings
}

// Combine replaces the models at primary and secondary with the result of
// op and returns the index of the result. On failure the registry is left
// untouched.
func (e *Engine) Combine(primary, secondary int, op kernel.Op) (int, error) {
	a, b := e.reg.At(primary), e.reg.At(secondary)
	if a == nil || b == nil || primary == secondary {
		e.logger.Info("csg: invalid operands", "op", op.String(), "primary", primary, "secondary", secondary)
		return scene.NoSelection, fmt.Errorf("%w: got %d and %d", ErrInvalidOperands, primary, secondary)
	}

	result, err := e.Compute(a, b, op)
	if err != nil {
		return scene.NoSelection, err
	}
	return e.Commit(a, b, op, result)
}

// Commit removes the models identified by a and b from the registry, adds
// result as a new selected model and takes a snapshot. The operands are
// looked up by id, so a and b may be copies taken before the computation;
// if either live model has since been transformed the commit fails and
// the registry is left untouched. The result is scaled down so that no
// dimension exceeds MaxSize.
func (e *Engine) Commit(a, b *scene.Model, op kernel.Op, result *kernel.Mesh) (int, error) {
	primary, secondary := e.reg.IndexOf(a.ID), e.reg.IndexOf(b.ID)
	if primary == scene.NoSelection || secondary == scene.NoSelection || primary == secondary {
		e.logger.Warn("csg: operand removed before commit", "op", op.String(), "primary", a.ID, "secondary", b.ID)
		return scene.NoSelection, fmt.Errorf("%w: operand no longer in scene", ErrInvalidOperands)
	}
	if e.reg.At(primary).Transform != a.Transform || e.reg.At(secondary).Transform != b.Transform {
		e.logger.Warn("csg: operand transformed before commit", "op", op.String(), "primary", a.ID, "secondary", b.ID)
		return scene.NoSelection, fmt.Errorf("%w: operand moved during the operation", ErrInvalidOperands)
	}

	model := scene.NewModel(ResultName(a.Name, b.Name, op), scene.KindBooleanResult, result)
	if size, ok := model.LocalSize(); ok {
		var clamped bool
		model.Transform.Scale, clamped = transform.ClampScale(size, model.Transform.Scale, e.settings.ScaleFloor, e.settings.MaxSize)
		if clamped {
			e.logger.Info("csg: result scaled to fit", "op", op.String(), "size", size, "scale", model.Transform.Scale)
		}
		model.Original = model.Transform
	}
	// Remove the higher index first so the lower one stays valid.
	hi, lo := primary, secondary
	if lo > hi {
		hi, lo = lo, hi
	}
	e.reg.Remove(hi)
	e.reg.Remove(lo)
	idx := e.reg.Add(model)
	e.reg.UpdateGround()
	if e.history != nil {
		e.history.Snapshot()
	}
	e.logger.Info("csg: combined", "op", op.String(), "primary", a.ID, "secondary", b.ID,
		"result", model.ID, "triangles", result.TriangleCount())
	return idx, nil
}

// ResultName derives the name of a boolean result.
func ResultName(a, b string, op kernel.Op) string {
	switch op {
	case kernel.OpUnion:
		return fmt.Sprintf("%s + %s", a, b)
	case kernel.OpSubtract:
		return fmt.Sprintf("%s - %s", a, b)
	default:
		return fmt.Sprintf("%s & %s", a, b)
	}
}

// Compute runs the pipeline on a and b without touching the registry.
func (e *Engine) Compute(a, b *scene.Model, op kernel.Op) (*kernel.Mesh, error) {
	if a.Geometry == nil || b.Geometry == nil {
		return nil, &kernel.GeometryError{Stage: "bake", Reason: "operand has no geometry"}
	}
	start := time.Now()

	in := &operands{
		op:        op,
		a:         a,
		b:         b,
		bakedA:    a.Baked(),
		bakedB:    b.Baked(),
		kernel:    e.kernel,
		fineTol:   e.settings.MergeTolerance,
		coarseTol: e.settings.CoarseTolerance,
	}
	in.condA, in.condErr = kernel.Condition(in.bakedA, in.fineTol)
	if in.condErr == nil {
		in.condB, in.condErr = kernel.Condition(in.bakedB, in.fineTol)
	}
	if in.condErr != nil {
		e.logger.Warn("csg: conditioning failed", "op", op.String(), "err", in.condErr)
	}

	var attempts []Attempt
	var result *kernel.Mesh
	var winner string
	for _, s := range strategies(op) {
		m, err := run(s, in)
		if err == nil {
			result, winner = m, s.name
			break
		}
		e.logger.Warn("csg: strategy failed", "op", op.String(), "strategy", s.name,
			"kernel", e.kernel.Name(), "err", err)
		attempts = append(attempts, Attempt{Strategy: s.name, Err: err})
	}

	if result == nil {
		return nil, e.classify(in, attempts)
	}
	if err := kernel.Validate(result); err != nil {
		attempts = append(attempts, Attempt{Strategy: winner, Err: err})
		return nil, e.classify(in, attempts)
	}

	result = e.postProcess(result, op)
	e.logger.Info("csg: strategy succeeded", "op", op.String(), "strategy", winner,
		"kernel", e.kernel.Name(), "triangles", result.TriangleCount(),
		"vertices", result.VertexCount(), "elapsed", time.Since(start))
	return result, nil
}

// run executes one strategy, converting a panic into an error so a
// kernel crash counts as a failed attempt.
func run(s strategy, in *operands) (m *kernel.Mesh, err error) {
	defer func() {
		if r := recover(); r != nil {
			m, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	m, err = s.attempt(in)
	if err == nil && m == nil {
		err = &kernel.GeometryError{Stage: s.name, Reason: "no mesh returned"}
	}
	return m, err
}

func (e *Engine) postProcess(m *kernel.Mesh, op kernel.Op) *kernel.Mesh {
	if op == kernel.OpUnion {
		m = m.Merged(e.settings.MergeTolerance)
	}
	m.ComputeNormals()
	return m
}

func (e *Engine) classify(in *operands, attempts []Attempt) *OperationError {
	oe := &OperationError{
		Op:        in.op,
		Primary:   in.a.Name,
		Secondary: in.b.Name,
		Class:     NonManifold,
		Attempts:  attempts,
	}
	for _, a := range attempts {
		if errors.Is(a.Err, kernel.ErrTooComplex) {
			oe.Class = TooComplex
			return oe
		}
	}
	boxA, okA := in.bakedA.BoundingBox()
	boxB, okB := in.bakedB.BoundingBox()
	if okA && okB && !kernel.BoxesOverlap(boxA, boxB) {
		oe.Class = NonOverlapping
	}
	return oe
}
