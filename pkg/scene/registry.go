package scene

import (
	"log/slog"
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/samber/lo"
)

// NoSelection marks an absent selection index.
const NoSelection = -1

const (
	DefaultGap          = 50.0
	DefaultGroundOffset = 1.0
)

// Options configures a Registry.
type Options struct {
	Gap          float64 // spacing between imports placed by Layout
	GroundOffset float64 // distance kept between the lowest model and the ground
	Logger       *slog.Logger
}

// Registry owns the ordered list of models and the selection.
// It is not safe for concurrent use; the editor serializes access.
type Registry struct {
	models    []*Model
	selected  int
	secondary int
	mode      RenderMode
	ground    float64

	gap          float64
	groundOffset float64
	logger       *slog.Logger

	selectionListeners []func(primary, secondary int)
	groundListeners    []func(level float64)
}

// NewRegistry returns an empty registry.
func NewRegistry(opts Options) *Registry {
	if opts.Gap <= 0 {
		opts.Gap = DefaultGap
	}
	if opts.GroundOffset < 0 {
		opts.GroundOffset = DefaultGroundOffset
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Registry{
		selected:     NoSelection,
		secondary:    NoSelection,
		ground:       -opts.GroundOffset,
		gap:          opts.Gap,
		groundOffset: opts.GroundOffset,
		logger:       opts.Logger,
	}
}

// OnSelectionChange registers fn to run after every selection change.
func (r *Registry) OnSelectionChange(fn func(primary, secondary int)) {
	r.selectionListeners = append(r.selectionListeners, fn)
}

// OnGroundChange registers fn to run whenever the ground is repositioned.
func (r *Registry) OnGroundChange(fn func(level float64)) {
	r.groundListeners = append(r.groundListeners, fn)
}

// ----------------------------------------------------------------------------
// Access
// ----------------------------------------------------------------------------

// Len returns the number of models.
func (r *Registry) Len() int {
	return len(r.models)
}

// Valid reports whether i is an index into the model list.
func (r *Registry) Valid(i int) bool {
	return i >= 0 && i < len(r.models)
}

// At returns the model at index i, or nil when out of range.
func (r *Registry) At(i int) *Model {
	if !r.Valid(i) {
		return nil
	}
	return r.models[i]
}

// Models returns the live models in order. The slice is a copy but the
// models are not.
func (r *Registry) Models() []*Model {
	return append([]*Model(nil), r.models...)
}

// IndexOf returns the index of the model with the given id, or
// NoSelection.
func (r *Registry) IndexOf(id string) int {
	_, i, ok := lo.FindIndexOf(r.models, func(m *Model) bool { return m.ID == id })
	if !ok {
		return NoSelection
	}
	return i
}

// Selected returns the primary selection index or NoSelection.
func (r *Registry) Selected() int {
	return r.selected
}

// Secondary returns the secondary selection index or NoSelection.
func (r *Registry) Secondary() int {
	return r.secondary
}

// SelectedModel returns the primary selected model or nil.
func (r *Registry) SelectedModel() *Model {
	return r.At(r.selected)
}

// RenderMode returns the mode applied to new models.
func (r *Registry) RenderMode() RenderMode {
	return r.mode
}

// GroundLevel returns the current ground reference height.
func (r *Registry) GroundLevel() float64 {
	return r.ground
}

// ----------------------------------------------------------------------------
// Mutation
// ----------------------------------------------------------------------------

// Add appends m, selects it and returns its index.
func (r *Registry) Add(m *Model) int {
	m.RenderMode = r.mode
	r.models = append(r.models, m)
	idx := len(r.models) - 1
	r.logger.Info("model added", "id", m.ID, "name", m.Name, "kind", m.Kind.String(), "index", idx)
	r.Select(idx)
	return idx
}

// Layout returns the position for a new import: the largest world x
// among existing models plus the gap, or the origin for an empty scene.
func (r *Registry) Layout() v3.Vec {
	maxX := math.Inf(-1)
	for _, m := range r.models {
		if bb, ok := m.WorldBounds(); ok {
			maxX = math.Max(maxX, bb.Max.X)
		}
	}
	if math.IsInf(maxX, -1) {
		return v3.Vec{}
	}
	return v3.Vec{X: maxX + r.gap}
}

// Place sets m's position and original position to the layout position.
func (r *Registry) Place(m *Model) {
	pos := r.Layout()
	m.Transform.Position = pos
	m.Original.Position = pos
}

// Remove deletes the model at i. Out of range indices are ignored.
// Removing clears the selection and repositions the ground.
func (r *Registry) Remove(i int) bool {
	if !r.Valid(i) {
		r.logger.Info("remove ignored, index out of range", "index", i, "count", len(r.models))
		return false
	}
	m := r.models[i]
	r.models = append(r.models[:i], r.models[i+1:]...)
	r.logger.Info("model removed", "id", m.ID, "name", m.Name, "index", i)
	r.setSelection(NoSelection, NoSelection)
	r.UpdateGround()
	return true
}

// Select sets the primary selection. NoSelection clears it. Selecting the
// current secondary clears the secondary.
func (r *Registry) Select(i int) bool {
	if i != NoSelection && !r.Valid(i) {
		return false
	}
	secondary := r.secondary
	if i != NoSelection && i == secondary {
		secondary = NoSelection
	}
	r.setSelection(i, secondary)
	return true
}

// SelectSecondary sets the secondary selection. Selecting the primary
// clears the secondary instead.
func (r *Registry) SelectSecondary(i int) bool {
	if i != NoSelection && !r.Valid(i) {
		return false
	}
	if i == r.selected {
		i = NoSelection
	}
	r.setSelection(r.selected, i)
	return true
}

// Swap exchanges primary and secondary selection.
func (r *Registry) Swap() bool {
	if r.selected == NoSelection || r.secondary == NoSelection {
		return false
	}
	r.setSelection(r.secondary, r.selected)
	return true
}

func (r *Registry) setSelection(primary, secondary int) {
	r.selected = primary
	r.secondary = secondary
	for _, fn := range r.selectionListeners {
		fn(primary, secondary)
	}
}

// SetRenderMode applies mode to every model and to models added later.
func (r *Registry) SetRenderMode(mode RenderMode) {
	r.mode = mode
	for _, m := range r.models {
		m.RenderMode = mode
	}
}

// UpdateGround recomputes the ground reference as the lowest world y
// among models minus the ground offset and notifies listeners.
func (r *Registry) UpdateGround() float64 {
	lowest := lo.Reduce(r.models, func(acc float64, m *Model, _ int) float64 {
		if bb, ok := m.WorldBounds(); ok {
			return math.Min(acc, bb.Min.Y)
		}
		return acc
	}, math.Inf(1))
	if math.IsInf(lowest, 1) {
		lowest = 0
	}
	r.ground = lowest - r.groundOffset
	for _, fn := range r.groundListeners {
		fn(r.ground)
	}
	return r.ground
}

// Restore replaces every live model with models and sets the selection.
// The registry takes ownership of models. Invalid selection indices are
// cleared. Render mode is a view setting, so restored models take the
// current mode rather than the one they were saved with.
func (r *Registry) Restore(models []*Model, selected, secondary int) {
	r.models = models
	for _, m := range r.models {
		m.RenderMode = r.mode
	}
	if !r.Valid(selected) {
		selected = NoSelection
	}
	if !r.Valid(secondary) || secondary == selected {
		secondary = NoSelection
	}
	r.setSelection(selected, secondary)
	r.UpdateGround()
}
