package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/globulab/globulator/internal/linker"
)

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, linker.DefaultConfig(), cfg.Linker)
	assert.Equal(t, "results", cfg.OutputDir)
	assert.True(t, cfg.RenderMaps)
	assert.GreaterOrEqual(t, cfg.Workers, 1)
}

func TestLoad_OverlaysFileOnDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "globulator.toml")
	content := `
output_dir = "out"
workers = 2
render_maps = false

[linker]
cell_size = 25.0
min_area_ratio = 0.5
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "out", cfg.OutputDir)
	assert.Equal(t, 2, cfg.Workers)
	assert.False(t, cfg.RenderMaps)
	assert.InDelta(t, 25.0, cfg.Linker.CellSize, 1e-9)
	assert.InDelta(t, 0.5, cfg.Linker.MinAreaRatio, 1e-9)

	// Values the file does not mention keep their defaults.
	assert.InDelta(t, linker.DefaultSearchRadiusFactor, cfg.Linker.SearchRadiusFactor, 1e-9)
	assert.Equal(t, "inputs", cfg.InputDir)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("workers = {"), 0o644))
	_, err = Load(bad)
	assert.Error(t, err)
}

func TestLoad_ClampsWorkers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "w.toml")
	require.NoError(t, os.WriteFile(path, []byte("workers = 0"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Workers)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())

	cfg.MapScale = -1
	assert.ErrorIs(t, cfg.Validate(), linker.ErrInvalidConfiguration)

	cfg = Default()
	cfg.Linker.CellSize = 0
	assert.ErrorIs(t, cfg.Validate(), linker.ErrInvalidConfiguration)
}

func TestValidate_RejectsNonPositiveWorkers(t *testing.T) {
	// Load clamps workers, but flag overrides apply after it; a zero
	// worker limit would stall the batch scheduler, so Validate must
	// reject it rather than let a pass block.
	for _, workers := range []int{0, -3} {
		cfg := Default()
		cfg.Workers = workers
		assert.ErrorIs(t, cfg.Validate(), linker.ErrInvalidConfiguration, "workers=%d", workers)
	}
}
