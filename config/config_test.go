package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
		t.Errorf("defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
	t.Setenv("OXY_LIGHTING_SHADOWS", "false")
	t.Setenv("OXY_BENCH_FRAMES", "7")
	t.Setenv("OXY_EFFECTS_ERROR_RETRY_INTERVAL", "250ms")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.False(t, cfg.Lighting.Shadows)
	assert.Equal(t, 7, cfg.Bench.Frames)
	assert.Equal(t, 250*time.Millisecond, cfg.Effects.ErrorRetryInterval)
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "lighting.yaml")
	cfg := DefaultConfig()
	cfg.Engine.FrameLimit = 30
	cfg.Effects.RecordPath = "compile.db"
	cfg.Bench.Meshes = 3
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	if diff := cmp.Diff(cfg, loaded); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadRejectsInvalidFiles(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		body string
	}{
		{name: "level", body: "log:\n  level: loud\n"},
		{name: "atlas", body: "lighting:\n  shadow_atlas_size: 0\n"},
		{name: "syntax", body: "engine: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0o644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}
