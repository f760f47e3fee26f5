package config

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 50.0, cfg.Scene.ImportGap)
	assert.Equal(t, 254.0, cfg.Transform.MaxSize)
	assert.Equal(t, 30, cfg.History.MaxRecords)
	assert.Equal(t, "bsp", cfg.CSG.Kernel)
	assert.False(t, cfg.Snap.Enabled)
	assert.True(t, cfg.Snap.Grid)
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadTOMLKeepsDefaults(t *testing.T) {
	path := write(t, "kerf.toml", `
[snap]
enabled = true
threshold = 2.5

[csg]
kernel = "manifold"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Snap.Enabled)
	assert.Equal(t, 2.5, cfg.Snap.Threshold)
	assert.True(t, cfg.Snap.Grid, "unset key lost its default")
	assert.Equal(t, "manifold", cfg.CSG.Kernel)
	assert.Equal(t, 1e-4, cfg.CSG.MergeTolerance)
}

func TestLoadYAML(t *testing.T) {
	path := write(t, "kerf.yaml", `
transform:
  translate_step: 1
  max_size: 300
history:
  max_records: 50
log:
  level: debug
  format: json
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1.0, cfg.Transform.TranslateStep)
	assert.Equal(t, 300.0, cfg.Transform.MaxSize)
	assert.Equal(t, 0.2, cfg.Transform.ScaleStep)
	assert.Equal(t, 50, cfg.History.MaxRecords)

	level, err := cfg.Log.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
	assert.NotNil(t, cfg.Log.NewLogger())
}

func TestValidateCollectsFields(t *testing.T) {
	cfg := Default()
	cfg.Transform.MaxSize = 0
	cfg.CSG.Kernel = "cork"
	cfg.History.MaxRecords = 1
	cfg.Log.Level = "loud"

	err := cfg.Validate()
	require.Error(t, err)
	var verrs ValidateErrors
	require.True(t, errors.As(err, &verrs))

	fields := map[string]bool{}
	for _, v := range verrs {
		fields[v.Field] = true
	}
	for _, f := range []string{"transform.max_size", "csg.kernel", "history.max_records", "log.level"} {
		assert.True(t, fields[f], "missing validation error for %s", f)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := write(t, "bad.toml", "[snap]\ngrid_size = -1.0\n")
	_, err := Load(path)
	assert.Error(t, err)

	path = write(t, "broken.toml", "[snap\n")
	_, err = Load(path)
	assert.Error(t, err)

	path = write(t, "kerf.ini", "x=1")
	_, err = Load(path)
	assert.Error(t, err)
}

func TestWatchReloads(t *testing.T) {
	path := write(t, "kerf.toml", "[snap]\nthreshold = 1.0\n")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan *Config, 4)
	require.NoError(t, Watch(ctx, path, func(c *Config) { got <- c }, nil))

	require.NoError(t, os.WriteFile(path, []byte("[snap]\nthreshold = 3.0\n"), 0o644))

	select {
	case c := <-got:
		assert.Equal(t, 3.0, c.Snap.Threshold)
	case <-time.After(5 * time.Second):
		t.Fatal("Watch() did not deliver a reloaded config")
	}
}
