// Package editor is the scene context: it owns the model registry and the
// transform, snap, boolean and history engines, and exposes the editing
// operations to the desktop shell and the script console.
//
// Every operation takes the editor lock, so callers on different
// goroutines see one operation at a time. Boolean operations compute on
// copies of their operands with the lock released and commit afterwards.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"sync"
	"time"

	"github.com/chazu/kerf/pkg/config"
	"github.com/chazu/kerf/pkg/csg"
	"github.com/chazu/kerf/pkg/history"
	"github.com/chazu/kerf/pkg/kernel"
	"github.com/chazu/kerf/pkg/kernel/sdfx"
	"github.com/chazu/kerf/pkg/meshio"
	"github.com/chazu/kerf/pkg/prompt"
	"github.com/chazu/kerf/pkg/scene"
	"github.com/chazu/kerf/pkg/snap"
	"github.com/chazu/kerf/pkg/transform"
	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

var (
	// ErrNoSelection is returned by operations that need a selected model.
	ErrNoSelection = errors.New("editor: no model selected")
	// ErrBusy is returned when a boolean operation is already running.
	ErrBusy = errors.New("editor: a boolean operation is already in progress")
	// ErrInvalidOperands is returned when a boolean operation lacks two
	// distinct selected models.
	ErrInvalidOperands = csg.ErrInvalidOperands
)

// Options configures an Editor. Zero values select defaults.
type Options struct {
	Config   *config.Config
	Logger   *slog.Logger
	Notifier Notifier
	Prompt   prompt.ScalePrompt
	Kernel   kernel.Kernel // overrides Config.CSG.Kernel
}

// Editor is the scene context.
type Editor struct {
	mu sync.Mutex

	cfg       *config.Config
	reg       *scene.Registry
	history   *history.Manager
	transform *transform.Engine
	snap      *snap.Engine
	csg       *csg.Engine
	gen       *sdfx.Generator
	prompt    prompt.ScalePrompt
	notify    Notifier
	logger    *slog.Logger

	// busy is advisory: it turns away a second Combine while one runs.
	busy bool
}

// New builds an Editor and records the empty scene as the first history
// record.
func New(opts Options) (*Editor, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("editor: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	notify := opts.Notifier
	if notify == nil {
		notify = NopNotifier{}
	}
	ask := opts.Prompt
	if ask == nil {
		ask = prompt.Identity{}
	}

	k := opts.Kernel
	if k == nil {
		var err error
		k, err = csg.NewKernel(csgSettings(cfg))
		if err != nil {
			return nil, fmt.Errorf("editor: %w", err)
		}
	}

	so := sceneOptions(cfg)
	so.Logger = logger.With("component", "scene")
	reg := scene.NewRegistry(so)
	mode, err := scene.ParseRenderMode(cfg.Scene.RenderMode)
	if err != nil {
		return nil, fmt.Errorf("editor: %w", err)
	}
	reg.SetRenderMode(mode)

	hist := history.New(reg, cfg.History.MaxRecords, logger.With("component", "history"))
	snapper := snap.New(reg, snapSettings(cfg), logger.With("component", "snap"))

	e := &Editor{
		cfg:       cfg,
		reg:       reg,
		history:   hist,
		transform: transform.New(reg, hist, snapper, transformSettings(cfg), logger.With("component", "transform")),
		snap:      snapper,
		csg:       csg.New(reg, hist, k, csgSettings(cfg), logger.With("component", "csg")),
		gen:       &sdfx.Generator{Cells: cfg.Primitives.Cells},
		prompt:    ask,
		notify:    notify,
		logger:    logger.With("component", "editor"),
	}
	snapper.OnIndicators(func(ind []snap.Indicator) { e.notify.SnapIndicators(ind) })
	reg.OnGroundChange(func(level float64) { e.notify.GroundChanged(level) })

	hist.Snapshot()
	e.logger.Info("editor ready", "kernel", k.Name(), "history", cfg.History.MaxRecords)
	return e, nil
}

// ApplyConfig switches to new settings without touching the scene.
func (e *Editor) ApplyConfig(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("editor: %w", err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg = cfg
	e.transform.SetSettings(transformSettings(cfg))
	e.snap.Update(snapSettings(cfg))
	e.gen.Cells = cfg.Primitives.Cells
	e.changed()
	return nil
}

// changed publishes the scene state. The caller holds the lock.
func (e *Editor) changed() {
	e.notify.SceneChanged(e.stateLocked())
}

func (e *Editor) stateLocked() State {
	return State{
		Models:    e.reg.Views(),
		Selected:  e.reg.Selected(),
		Secondary: e.reg.Secondary(),
		CanUndo:   e.history.CanUndo(),
		CanRedo:   e.history.CanRedo(),
		Ground:    e.reg.GroundLevel(),
		Snap:      e.snap.Settings(),
		Busy:      e.busy,
	}
}

// State returns the current scene summary.
func (e *Editor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stateLocked()
}

// Models describes every model in order.
func (e *Editor) Models() []scene.ModelView {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reg.Views()
}

// Geometry returns a copy of the local geometry of the model with id, for
// rendering.
func (e *Editor) Geometry(id string) (*kernel.Mesh, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	m := e.reg.At(e.reg.IndexOf(id))
	if m == nil {
		return nil, fmt.Errorf("editor: no model %q", id)
	}
	return m.Geometry.Clone(), nil
}

// ----------------------------------------------------------------------------
// Creation
// ----------------------------------------------------------------------------

// AddModel places geometry as a new model. It waits for the scale prompt
// before taking the lock, then lays the model out, clamps the confirmed
// scale, selects the model and records history. The editor takes
// ownership of geometry.
func (e *Editor) AddModel(ctx context.Context, name string, kind scene.Kind, geometry *kernel.Mesh) (int, error) {
	if err := kernel.Validate(geometry); err != nil {
		return scene.NoSelection, fmt.Errorf("editor: add %s: %w", name, err)
	}
	if len(geometry.Normals) != len(geometry.Vertices) {
		geometry.ComputeNormals()
	}
	bb, _ := geometry.BoundingBox()
	size := bb.Size()

	scale, err := e.prompt.ConfirmScale(ctx, prompt.Request{Name: name, Size: [3]float64{size.X, size.Y, size.Z}})
	if err != nil {
		return scene.NoSelection, fmt.Errorf("editor: add %s: %w", name, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	m := scene.NewModel(name, kind, geometry)
	ts := e.transform.Settings()
	m.Transform.Scale, _ = transform.ClampScale(size, scale, ts.AbsoluteFloor, ts.MaxSize)
	e.reg.Place(m)
	m.Original = m.Transform
	idx := e.reg.Add(m)
	e.reg.UpdateGround()
	e.history.Snapshot()
	e.changed()
	return idx, nil
}

// Import decodes an STL or 3MF file and adds it as an imported model.
func (e *Editor) Import(ctx context.Context, name string, data []byte) (int, error) {
	g, err := meshio.Load(name, data)
	if err != nil {
		e.logger.Warn("import failed", "name", name, "err", err)
		return scene.NoSelection, err
	}
	return e.AddModel(ctx, name, scene.KindImported, g)
}

// ImportFile reads and imports the file at path.
func (e *Editor) ImportFile(ctx context.Context, path string) (int, error) {
	g, err := meshio.LoadFile(path)
	if err != nil {
		e.logger.Warn("import failed", "path", path, "err", err)
		return scene.NoSelection, err
	}
	return e.AddModel(ctx, filepath.Base(path), scene.KindImported, g)
}

// Primitive describes a generated solid. Box uses Width, Height and
// Depth; cylinder and cone use Radius (and TopRadius) with Height; sphere
// uses Radius.
type Primitive struct {
	Shape     string  `json:"shape"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	Depth     float64 `json:"depth"`
	Radius    float64 `json:"radius"`
	TopRadius float64 `json:"topRadius"`
}

// AddPrimitive generates and adds a primitive solid.
func (e *Editor) AddPrimitive(ctx context.Context, p Primitive) (int, error) {
	e.mu.Lock()
	gen := *e.gen
	e.mu.Unlock()

	var g *kernel.Mesh
	var err error
	switch p.Shape {
	case "box":
		g, err = gen.Box(p.Width, p.Height, p.Depth)
	case "cylinder":
		g, err = gen.Cylinder(p.Height, p.Radius)
		upright(g)
	case "sphere":
		g, err = gen.Sphere(p.Radius)
	case "cone":
		g, err = gen.Cone(p.Height, p.Radius, p.TopRadius)
		upright(g)
	default:
		err = fmt.Errorf("unknown shape %q", p.Shape)
	}
	if err != nil {
		return scene.NoSelection, fmt.Errorf("editor: primitive: %w", err)
	}
	return e.AddModel(ctx, p.Shape, scene.KindPrimitive, g)
}

// upright turns a Z-axis solid so its axis points along Y, the scene's up
// axis, and moves its bounds back to the origin.
func upright(m *kernel.Mesh) {
	if m == nil {
		return
	}
	m.Transform(sdf.RotateX(-math.Pi / 2))
	if bb, ok := m.BoundingBox(); ok {
		m.Transform(sdf.Translate3d(bb.Min.Neg()))
	}
}

// AddText extrudes text with the configured or given font.
func (e *Editor) AddText(ctx context.Context, text, fontPath string, height, depth float64) (int, error) {
	e.mu.Lock()
	gen := *e.gen
	if fontPath == "" {
		fontPath = e.cfg.Primitives.FontPath
	}
	e.mu.Unlock()

	if fontPath == "" {
		return scene.NoSelection, errors.New("editor: text: no font configured")
	}
	g, err := gen.ExtrudeText(fontPath, text, height, depth)
	if err != nil {
		return scene.NoSelection, fmt.Errorf("editor: text: %w", err)
	}
	return e.AddModel(ctx, text, scene.KindText, g)
}

// AddVector extrudes a closed 2D outline by depth.
func (e *Editor) AddVector(ctx context.Context, name string, path [][2]float64, depth float64) (int, error) {
	e.mu.Lock()
	gen := *e.gen
	e.mu.Unlock()

	pts := make([]v2.Vec, len(path))
	for i, p := range path {
		pts[i] = v2.Vec{X: p[0], Y: p[1]}
	}
	g, err := gen.ExtrudePath(pts, depth)
	if err != nil {
		return scene.NoSelection, fmt.Errorf("editor: vector: %w", err)
	}
	return e.AddModel(ctx, name, scene.KindVector, g)
}

// DuplicateSelected copies the selected model, lays the copy out and
// selects it.
func (e *Editor) DuplicateSelected() (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	m := e.reg.SelectedModel()
	if m == nil {
		return scene.NoSelection, ErrNoSelection
	}
	d := m.Duplicate()
	e.reg.Place(d)
	d.Original = d.Transform
	idx := e.reg.Add(d)
	e.reg.UpdateGround()
	e.history.Snapshot()
	e.changed()
	return idx, nil
}

// ----------------------------------------------------------------------------
// Registry and selection
// ----------------------------------------------------------------------------

// Remove deletes the model at index. Out of range indices are a no-op.
func (e *Editor) Remove(index int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.reg.Remove(index) {
		return false
	}
	e.history.Snapshot()
	e.changed()
	return true
}

// RemoveSelected deletes the selected model.
func (e *Editor) RemoveSelected() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.reg.Remove(e.reg.Selected()) {
		return ErrNoSelection
	}
	e.history.Snapshot()
	e.changed()
	return nil
}

// Select sets the primary selection; scene.NoSelection clears it.
func (e *Editor) Select(index int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	ok := e.reg.Select(index)
	e.changed()
	return ok
}

// SelectSecondary sets the boolean operand selection.
func (e *Editor) SelectSecondary(index int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	ok := e.reg.SelectSecondary(index)
	e.changed()
	return ok
}

// SelectByID selects the model with id as primary.
func (e *Editor) SelectByID(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	i := e.reg.IndexOf(id)
	if i == scene.NoSelection {
		return false
	}
	ok := e.reg.Select(i)
	e.changed()
	return ok
}

// SwapSelection exchanges primary and secondary selection.
func (e *Editor) SwapSelection() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	ok := e.reg.Swap()
	e.changed()
	return ok
}

// SetRenderMode applies a render mode to every model.
func (e *Editor) SetRenderMode(name string) error {
	mode, err := scene.ParseRenderMode(name)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reg.SetRenderMode(mode)
	e.changed()
	return nil
}

// ----------------------------------------------------------------------------
// Transforms
// ----------------------------------------------------------------------------

func (e *Editor) transformed(r transform.Result) transform.Result {
	if r.Changed() {
		e.changed()
	}
	return r
}

// ApplyTransform performs one stepped operation such as "translateX" in
// direction dir.
func (e *Editor) ApplyTransform(op string, dir int) (transform.Result, error) {
	parsed, err := transform.ParseOp(op)
	if err != nil {
		return transform.Result{Status: transform.Rejected, Index: scene.NoSelection, Reason: err.Error()}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.transformed(e.transform.Apply(parsed, dir)), nil
}

// SetPosition moves the selected model.
func (e *Editor) SetPosition(p v3.Vec) transform.Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.transformed(e.transform.SetPosition(p))
}

// SetRotation sets the selected model's rotation in radians.
func (e *Editor) SetRotation(r v3.Vec) transform.Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.transformed(e.transform.SetRotation(r))
}

// SetScale sets the selected model's scale, clamped to the size limit.
func (e *Editor) SetScale(s v3.Vec) transform.Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.transformed(e.transform.SetScale(s))
}

// ResetTransform restores the selected model's creation transform.
func (e *Editor) ResetTransform() transform.Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.transformed(e.transform.Reset())
}

// ----------------------------------------------------------------------------
// Snapping
// ----------------------------------------------------------------------------

// ToggleSnap flips snapping on or off and returns the new state.
func (e *Editor) ToggleSnap() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	on := e.snap.Toggle()
	e.changed()
	return on
}

// UpdateSnapSettings replaces the snap settings.
func (e *Editor) UpdateSnapSettings(s snap.Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.snap.Update(s)
	e.changed()
	return nil
}

// SnapSelected runs a snap pass on the selected model, for example after
// the frontend finishes a drag. It reports whether the model moved.
func (e *Editor) SnapSelected() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	idx := e.reg.Selected()
	if e.reg.At(idx) == nil {
		return false, ErrNoSelection
	}
	if !e.snap.SnapPosition(idx) {
		return false, nil
	}
	e.reg.UpdateGround()
	e.history.Snapshot()
	e.changed()
	return true, nil
}

// ----------------------------------------------------------------------------
// Boolean operations
// ----------------------------------------------------------------------------

// Combine applies op to the primary and secondary selection. It pauses
// briefly so the frontend can show progress, computes on copies of the
// operands without holding the lock, then replaces both operands with the
// result. A second call while one is running fails with ErrBusy.
func (e *Editor) Combine(ctx context.Context, op kernel.Op) (int, error) {
	e.mu.Lock()
	if e.busy {
		e.mu.Unlock()
		e.logger.Info("combine rejected, operation in progress", "op", op.String())
		return scene.NoSelection, ErrBusy
	}
	a, b := e.reg.SelectedModel(), e.reg.At(e.reg.Secondary())
	if a == nil || b == nil {
		e.mu.Unlock()
		e.logger.Info("combine rejected, need two selected models", "op", op.String())
		return scene.NoSelection, fmt.Errorf("%w: select a primary and a secondary model", ErrInvalidOperands)
	}
	a, b = a.Clone(), b.Clone()
	e.busy = true
	e.notify.CombineProgress(true)
	e.changed()
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.busy = false
		e.notify.CombineProgress(false)
		e.changed()
		e.mu.Unlock()
	}()

	if y := e.csg.Settings().Yield; y > 0 {
		select {
		case <-time.After(y):
		case <-ctx.Done():
			return scene.NoSelection, ctx.Err()
		}
	}

	result, err := e.csg.Compute(a, b, op)
	if err != nil {
		e.logger.Warn("combine failed", "op", op.String(), "primary", a.Name, "secondary", b.Name, "err", err)
		return scene.NoSelection, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.csg.Commit(a, b, op, result)
}

// Busy reports whether a boolean operation is running.
func (e *Editor) Busy() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.busy
}

// ----------------------------------------------------------------------------
// History
// ----------------------------------------------------------------------------

// Undo restores the previous history record.
func (e *Editor) Undo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.history.Undo() {
		return false
	}
	e.changed()
	return true
}

// Redo restores the next history record.
func (e *Editor) Redo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.history.Redo() {
		return false
	}
	e.changed()
	return true
}

// ----------------------------------------------------------------------------
// Export
// ----------------------------------------------------------------------------

func (e *Editor) selectedBaked() (*kernel.Mesh, string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	m := e.reg.SelectedModel()
	if m == nil {
		return nil, "", ErrNoSelection
	}
	return m.Baked(), m.Name, nil
}

// ExportSelected encodes the selected model, in world space, as "stl" or
// "3mf".
func (e *Editor) ExportSelected(format string) ([]byte, error) {
	f, err := meshio.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	g, name, err := e.selectedBaked()
	if err != nil {
		return nil, err
	}
	return meshio.Bytes(f, g, name)
}

// ExportSelectedToFile writes the selected model to path; the extension
// picks the format.
func (e *Editor) ExportSelectedToFile(path string) error {
	g, name, err := e.selectedBaked()
	if err != nil {
		return err
	}
	if err := meshio.SaveFile(path, g, name); err != nil {
		return err
	}
	e.logger.Info("exported", "name", name, "path", path, "triangles", g.TriangleCount())
	return nil
}
