package editor

import (
	"math"
	"time"

	"github.com/chazu/kerf/pkg/config"
	"github.com/chazu/kerf/pkg/csg"
	"github.com/chazu/kerf/pkg/scene"
	"github.com/chazu/kerf/pkg/snap"
	"github.com/chazu/kerf/pkg/transform"
)

func sceneOptions(c *config.Config) scene.Options {
	return scene.Options{
		Gap:          c.Scene.ImportGap,
		GroundOffset: c.Scene.GroundOffset,
	}
}

func transformSettings(c *config.Config) transform.Settings {
	return transform.Settings{
		TranslateStep: c.Transform.TranslateStep,
		RotateStep:    c.Transform.RotateStepDeg * math.Pi / 180,
		ScaleStep:     c.Transform.ScaleStep,
		MaxSize:       c.Transform.MaxSize,
		StepFloor:     c.Transform.StepScaleFloor,
		AbsoluteFloor: c.Transform.ScaleFloor,
	}
}

func snapSettings(c *config.Config) snap.Settings {
	return snap.Settings{
		Enabled:   c.Snap.Enabled,
		Grid:      c.Snap.Grid,
		Faces:     c.Snap.Faces,
		Edges:     c.Snap.Edges,
		Threshold: c.Snap.Threshold,
		GridSize:  c.Snap.GridSize,
	}
}

func csgSettings(c *config.Config) csg.Settings {
	return csg.Settings{
		Kernel:          c.CSG.Kernel,
		MergeTolerance:  c.CSG.MergeTolerance,
		CoarseTolerance: c.CSG.CoarseTolerance,
		Yield:           time.Duration(c.CSG.YieldMillis) * time.Millisecond,
		MaxPolygons:     c.CSG.MaxPolygons,
		MaxSize:         c.Transform.MaxSize,
		ScaleFloor:      c.Transform.ScaleFloor,
	}
}
