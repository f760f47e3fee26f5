// Package config loads editor settings from TOML or YAML files.
//
// Missing files and missing keys fall back to the built-in defaults, so an
// empty file is a valid configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// ----------------------------------------------------------------------------
// Structures
// ----------------------------------------------------------------------------

// Config is the complete editor configuration.
type Config struct {
	Scene      SceneConfig      `toml:"scene" yaml:"scene"`
	Transform  TransformConfig  `toml:"transform" yaml:"transform"`
	Snap       SnapConfig       `toml:"snap" yaml:"snap"`
	History    HistoryConfig    `toml:"history" yaml:"history"`
	CSG        CSGConfig        `toml:"csg" yaml:"csg"`
	Primitives PrimitivesConfig `toml:"primitives" yaml:"primitives"`
	Log        LogConfig        `toml:"log" yaml:"log"`
}

// SceneConfig controls placement and the ground reference.
type SceneConfig struct {
	ImportGap    float64 `toml:"import_gap" yaml:"import_gap"`
	GroundOffset float64 `toml:"ground_offset" yaml:"ground_offset"`
	RenderMode   string  `toml:"render_mode" yaml:"render_mode"`
}

// TransformConfig holds step sizes and size limits.
type TransformConfig struct {
	TranslateStep  float64 `toml:"translate_step" yaml:"translate_step"`
	RotateStepDeg  float64 `toml:"rotate_step_deg" yaml:"rotate_step_deg"`
	ScaleStep      float64 `toml:"scale_step" yaml:"scale_step"`
	MaxSize        float64 `toml:"max_size" yaml:"max_size"`
	StepScaleFloor float64 `toml:"step_scale_floor" yaml:"step_scale_floor"`
	ScaleFloor     float64 `toml:"scale_floor" yaml:"scale_floor"`
}

// SnapConfig mirrors the snap settings.
type SnapConfig struct {
	Enabled   bool    `toml:"enabled" yaml:"enabled"`
	Grid      bool    `toml:"grid" yaml:"grid"`
	Faces     bool    `toml:"faces" yaml:"faces"`
	Edges     bool    `toml:"edges" yaml:"edges"`
	Threshold float64 `toml:"threshold" yaml:"threshold"`
	GridSize  float64 `toml:"grid_size" yaml:"grid_size"`
}

// HistoryConfig bounds the undo log.
type HistoryConfig struct {
	MaxRecords int `toml:"max_records" yaml:"max_records"`
}

// CSGConfig selects the boolean kernel and its tolerances.
type CSGConfig struct {
	Kernel          string  `toml:"kernel" yaml:"kernel"`
	MergeTolerance  float64 `toml:"merge_tolerance" yaml:"merge_tolerance"`
	CoarseTolerance float64 `toml:"coarse_tolerance" yaml:"coarse_tolerance"`
	YieldMillis     int     `toml:"yield_ms" yaml:"yield_ms"`
	MaxPolygons     int     `toml:"max_polygons" yaml:"max_polygons"`
}

// PrimitivesConfig controls tessellation of curved primitives.
type PrimitivesConfig struct {
	Cells    int    `toml:"cells" yaml:"cells"`
	FontPath string `toml:"font_path" yaml:"font_path"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"` // text or json
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Scene: SceneConfig{
			ImportGap:    50,
			GroundOffset: 1,
			RenderMode:   "standard",
		},
		Transform: TransformConfig{
			TranslateStep:  5,
			RotateStepDeg:  10,
			ScaleStep:      0.2,
			MaxSize:        254,
			StepScaleFloor: 0.01,
			ScaleFloor:     0.0001,
		},
		Snap: SnapConfig{
			Enabled:   false,
			Grid:      true,
			Faces:     true,
			Edges:     true,
			Threshold: 5,
			GridSize:  2,
		},
		History: HistoryConfig{MaxRecords: 30},
		CSG: CSGConfig{
			Kernel:          "bsp",
			MergeTolerance:  1e-4,
			CoarseTolerance: 1e-2,
			YieldMillis:     16,
			MaxPolygons:     200000,
		},
		Primitives: PrimitivesConfig{Cells: 48},
		Log:        LogConfig{Level: "info", Format: "text"},
	}
}

// ----------------------------------------------------------------------------
// Loading
// ----------------------------------------------------------------------------

// Load reads the file at path over the defaults. An empty path or a
// missing file yields the defaults. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := Decode(cfg, path, data); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Decode parses data into cfg, choosing the syntax from the extension of
// name. Keys absent from data keep their current value.
func Decode(cfg *Config, name string, data []byte) error {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("config: decode yaml %s: %w", name, err)
		}
	case ".toml", "":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("config: decode toml %s: %w", name, err)
		}
	default:
		return fmt.Errorf("config: unsupported file type %q", filepath.Ext(name))
	}
	return nil
}

// ----------------------------------------------------------------------------
// Validation
// ----------------------------------------------------------------------------

// ValidationError describes one invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors collects every invalid field.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, v := range e {
		msgs = append(msgs, v.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate rejects non-positive steps and limits and unknown names.
func (c *Config) Validate() error {
	var errs ValidateErrors
	positive := func(field string, v float64) {
		if v <= 0 {
			errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf("must be positive, got %g", v)})
		}
	}

	positive("scene.import_gap", c.Scene.ImportGap)
	if c.Scene.GroundOffset < 0 {
		errs = append(errs, ValidationError{Field: "scene.ground_offset", Message: "must not be negative"})
	}
	switch c.Scene.RenderMode {
	case "", "standard", "wireframe", "realistic", "xray":
	default:
		errs = append(errs, ValidationError{Field: "scene.render_mode", Message: fmt.Sprintf("unknown mode %q", c.Scene.RenderMode)})
	}

	positive("transform.translate_step", c.Transform.TranslateStep)
	positive("transform.rotate_step_deg", c.Transform.RotateStepDeg)
	positive("transform.scale_step", c.Transform.ScaleStep)
	positive("transform.max_size", c.Transform.MaxSize)
	positive("transform.step_scale_floor", c.Transform.StepScaleFloor)
	positive("transform.scale_floor", c.Transform.ScaleFloor)

	positive("snap.grid_size", c.Snap.GridSize)
	if c.Snap.Threshold < 0 {
		errs = append(errs, ValidationError{Field: "snap.threshold", Message: "must not be negative"})
	}

	if c.History.MaxRecords < 2 {
		errs = append(errs, ValidationError{Field: "history.max_records", Message: "must be at least 2"})
	}

	switch c.CSG.Kernel {
	case "bsp", "manifold":
	default:
		errs = append(errs, ValidationError{Field: "csg.kernel", Message: fmt.Sprintf("unknown kernel %q, must be bsp or manifold", c.CSG.Kernel)})
	}
	positive("csg.merge_tolerance", c.CSG.MergeTolerance)
	positive("csg.coarse_tolerance", c.CSG.CoarseTolerance)
	if c.CSG.YieldMillis < 0 {
		errs = append(errs, ValidationError{Field: "csg.yield_ms", Message: "must not be negative"})
	}
	if c.CSG.MaxPolygons <= 0 {
		errs = append(errs, ValidationError{Field: "csg.max_polygons", Message: "must be positive"})
	}

	if c.Primitives.Cells < 8 {
		errs = append(errs, ValidationError{Field: "primitives.cells", Message: "must be at least 8"})
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, ValidationError{Field: "log.level", Message: err.Error()})
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		errs = append(errs, ValidationError{Field: "log.format", Message: fmt.Sprintf("unknown format %q", c.Log.Format)})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SlogLevel parses the configured level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if l.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown level %q", l.Level)
	}
	return level, nil
}

// NewLogger builds a slog logger writing to stderr.
func (l LogConfig) NewLogger() *slog.Logger {
	level, _ := l.SlogLevel()
	opts := &slog.HandlerOptions{Level: level}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
