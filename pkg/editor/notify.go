package editor

import (
	"github.com/chazu/kerf/pkg/scene"
	"github.com/chazu/kerf/pkg/snap"
)

// State is the scene summary sent to the frontend after every change.
type State struct {
	Models    []scene.ModelView `json:"models"`
	Selected  int               `json:"selected"`
	Secondary int               `json:"secondary"`
	CanUndo   bool              `json:"canUndo"`
	CanRedo   bool              `json:"canRedo"`
	Ground    float64           `json:"ground"`
	Snap      snap.Settings     `json:"snap"`
	Busy      bool              `json:"busy"`
}

// Notifier receives editor events. Implementations are called with the
// editor lock held and must not call back into the Editor.
type Notifier interface {
	SceneChanged(State)
	SnapIndicators([]snap.Indicator)
	GroundChanged(level float64)
	CombineProgress(running bool)
}

// NopNotifier discards every event.
type NopNotifier struct{}

func (NopNotifier) SceneChanged(State)              {}
func (NopNotifier) SnapIndicators([]snap.Indicator) {}
func (NopNotifier) GroundChanged(float64)           {}
func (NopNotifier) CombineProgress(bool)            {}
