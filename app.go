package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/chazu/kerf/pkg/config"
	"github.com/chazu/kerf/pkg/editor"
	"github.com/chazu/kerf/pkg/kernel"
	"github.com/chazu/kerf/pkg/prompt"
	"github.com/chazu/kerf/pkg/scene"
	"github.com/chazu/kerf/pkg/script"
	"github.com/chazu/kerf/pkg/snap"
	"github.com/chazu/kerf/pkg/transform"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/wailsapp/wails/v2/pkg/runtime"
)

// Events emitted to the frontend.
const (
	EventScene      = "scene:changed"
	EventIndicators = "snap:indicators"
	EventGround     = "ground:changed"
	EventCombine    = "csg:progress"
	EventScale      = "prompt:scale"
)

// App is the Wails backend. It exposes methods to the frontend via
// bindings and forwards editor events.
type App struct {
	cfgPath string
	editor  *editor.Editor
	script  *script.Engine
	prompts *prompt.Channel
	logger  *slog.Logger

	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
}

// MeshData is the JSON-serializable mesh format sent to the frontend.
type MeshData struct {
	ID       string    `json:"id"`
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
}

// EvalErrorData is a JSON-serializable console error.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// EvalResult is the console result returned to the frontend.
type EvalResult struct {
	Value  string          `json:"value"`
	Models []int           `json:"models"`
	Errors []EvalErrorData `json:"errors"`
}

// NewApp builds the editor for cfg. cfgPath, when set, is watched for
// changes once the app starts.
func NewApp(cfg *config.Config, cfgPath string, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{cfgPath: cfgPath, logger: logger}
	a.prompts = prompt.NewChannel(func(r prompt.Request) { a.emit(EventScale, r) })

	ed, err := editor.New(editor.Options{
		Config:   cfg,
		Logger:   logger,
		Notifier: events{a},
		Prompt:   a.prompts,
	})
	if err != nil {
		return nil, err
	}
	a.editor = ed
	a.script = script.New(ed, logger.With("component", "script"))
	return a, nil
}

// startup is called by Wails on app startup. The context is kept for
// runtime calls and bounds the config watcher.
func (a *App) startup(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	a.mu.Lock()
	a.ctx, a.cancel = ctx, cancel
	a.mu.Unlock()

	if a.cfgPath == "" {
		return
	}
	err := config.Watch(ctx, a.cfgPath, func(cfg *config.Config) {
		if err := a.editor.ApplyConfig(cfg); err != nil {
			a.logger.Warn("config reload rejected", "path", a.cfgPath, "err", err)
			return
		}
		a.logger.Info("config reloaded", "path", a.cfgPath)
	}, a.logger.With("component", "config"))
	if err != nil {
		a.logger.Warn("config watch disabled", "path", a.cfgPath, "err", err)
	}
}

// shutdown stops the watcher and abandons pending prompts.
func (a *App) shutdown(context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		a.cancel()
	}
}

// runtimeContext returns the Wails context, or nil before startup.
func (a *App) runtimeContext() context.Context {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.ctx
}

// opContext bounds blocking operations by the app's lifetime.
func (a *App) opContext() context.Context {
	if ctx := a.runtimeContext(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func (a *App) emit(name string, data any) {
	if ctx := a.runtimeContext(); ctx != nil {
		runtime.EventsEmit(ctx, name, data)
	}
}

// events forwards editor notifications to the frontend. It is kept off
// App so Wails does not bind it.
type events struct{ app *App }

func (e events) SceneChanged(s editor.State)         { e.app.emit(EventScene, s) }
func (e events) SnapIndicators(ind []snap.Indicator) { e.app.emit(EventIndicators, ind) }
func (e events) GroundChanged(level float64)         { e.app.emit(EventGround, level) }
func (e events) CombineProgress(running bool)        { e.app.emit(EventCombine, running) }

// ---------------------------------------------------------------------------
// Scene
// ---------------------------------------------------------------------------

// State returns the current scene summary.
func (a *App) State() editor.State { return a.editor.State() }

// Geometry returns the local mesh of a model for rendering. The frontend
// applies the model transform from State.
func (a *App) Geometry(id string) (MeshData, error) {
	m, err := a.editor.Geometry(id)
	if err != nil {
		return MeshData{}, err
	}
	return MeshData{ID: id, Vertices: m.Vertices, Normals: m.Normals, Indices: m.Indices}, nil
}

// AddPrimitive generates a primitive. It returns once the scale prompt is
// answered.
func (a *App) AddPrimitive(p editor.Primitive) (int, error) {
	return a.editor.AddPrimitive(a.opContext(), p)
}

// AddText extrudes text with the configured font unless fontPath is set.
func (a *App) AddText(text, fontPath string, height, depth float64) (int, error) {
	return a.editor.AddText(a.opContext(), text, fontPath, height, depth)
}

// AddVector extrudes a closed 2D outline.
func (a *App) AddVector(name string, path [][2]float64, depth float64) (int, error) {
	return a.editor.AddVector(a.opContext(), name, path, depth)
}

// ImportFile imports the STL or 3MF file at path.
func (a *App) ImportFile(path string) (int, error) {
	return a.editor.ImportFile(a.opContext(), path)
}

// ImportDialog asks for a mesh file and imports it. A cancelled dialog
// returns scene.NoSelection and no error.
func (a *App) ImportDialog() (int, error) {
	ctx := a.runtimeContext()
	if ctx == nil {
		return scene.NoSelection, fmt.Errorf("app: not started")
	}
	path, err := runtime.OpenFileDialog(ctx, runtime.OpenDialogOptions{
		Title: "Import model",
		Filters: []runtime.FileFilter{
			{DisplayName: "Meshes (*.stl, *.3mf)", Pattern: "*.stl;*.3mf"},
		},
	})
	if err != nil || path == "" {
		return scene.NoSelection, err
	}
	return a.ImportFile(path)
}

// ExportDialog asks where to save the selected model in format ("stl" or
// "3mf") and writes it. It returns the chosen path, empty if cancelled.
func (a *App) ExportDialog(format string) (string, error) {
	ctx := a.runtimeContext()
	if ctx == nil {
		return "", fmt.Errorf("app: not started")
	}
	path, err := runtime.SaveFileDialog(ctx, runtime.SaveDialogOptions{
		Title:           "Export model",
		DefaultFilename: "model." + format,
		Filters: []runtime.FileFilter{
			{DisplayName: format, Pattern: "*." + format},
		},
	})
	if err != nil || path == "" {
		return "", err
	}
	return path, a.editor.ExportSelectedToFile(path)
}

// PendingPrompts lists unanswered scale prompts.
func (a *App) PendingPrompts() []prompt.Request { return a.prompts.Pending() }

// ConfirmScale answers scale prompt id.
func (a *App) ConfirmScale(id uint64, x, y, z float64) error {
	return a.prompts.Resolve(id, v3.Vec{X: x, Y: y, Z: z})
}

// DismissScale answers scale prompt id with the unit scale.
func (a *App) DismissScale(id uint64) error { return a.prompts.Dismiss(id) }

// ---------------------------------------------------------------------------
// Selection and editing
// ---------------------------------------------------------------------------

func (a *App) Select(index int) bool          { return a.editor.Select(index) }
func (a *App) SelectSecondary(index int) bool { return a.editor.SelectSecondary(index) }
func (a *App) SelectByID(id string) bool      { return a.editor.SelectByID(id) }
func (a *App) SwapSelection() bool            { return a.editor.SwapSelection() }
func (a *App) Duplicate() (int, error)        { return a.editor.DuplicateSelected() }
func (a *App) RemoveSelected() error          { return a.editor.RemoveSelected() }
func (a *App) SetRenderMode(mode string) error {
	return a.editor.SetRenderMode(mode)
}

// Transform performs a stepped operation such as "scaleX" in direction
// dir (+1 or -1).
func (a *App) Transform(op string, dir int) (transform.Result, error) {
	return a.editor.ApplyTransform(op, dir)
}

func (a *App) SetPosition(x, y, z float64) transform.Result {
	return a.editor.SetPosition(v3.Vec{X: x, Y: y, Z: z})
}

// SetRotation takes radians.
func (a *App) SetRotation(x, y, z float64) transform.Result {
	return a.editor.SetRotation(v3.Vec{X: x, Y: y, Z: z})
}

func (a *App) SetScale(x, y, z float64) transform.Result {
	return a.editor.SetScale(v3.Vec{X: x, Y: y, Z: z})
}

func (a *App) ResetTransform() transform.Result { return a.editor.ResetTransform() }

func (a *App) ToggleSnap() bool { return a.editor.ToggleSnap() }

func (a *App) UpdateSnapSettings(s snap.Settings) error {
	return a.editor.UpdateSnapSettings(s)
}

// SnapSelected snaps the selected model after a drag ends.
func (a *App) SnapSelected() (bool, error) { return a.editor.SnapSelected() }

// Combine runs "union", "subtract" or "intersect" on the primary and
// secondary selection. Progress is reported through EventCombine.
func (a *App) Combine(op string) (int, error) {
	o, err := kernel.ParseOp(op)
	if err != nil {
		return scene.NoSelection, err
	}
	return a.editor.Combine(a.opContext(), o)
}

func (a *App) Undo() bool { return a.editor.Undo() }
func (a *App) Redo() bool { return a.editor.Redo() }

// ---------------------------------------------------------------------------
// Console
// ---------------------------------------------------------------------------

// Evaluate runs console source against the scene.
func (a *App) Evaluate(source string) EvalResult {
	result := EvalResult{Models: []int{}, Errors: []EvalErrorData{}}

	res, evalErrs, err := a.script.Evaluate(a.opContext(), source)
	if err != nil {
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}
	for _, e := range evalErrs {
		result.Errors = append(result.Errors, EvalErrorData{Line: e.Line, Message: e.Message})
	}
	if res != nil {
		result.Value = res.Value
		result.Models = append(result.Models, res.Models...)
	}
	return result
}
