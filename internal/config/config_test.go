package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
	assert.NoError(t, c.Validate())
	assert.Equal(t, int64(0xdeadbeef), c.Trainer.Seed)
	assert.Equal(t, 8, c.Trainer.MinSeasonGames)
	assert.Equal(t, 365*24., c.Features.Window().Hours())
}

func TestLoadOverrides(t *testing.T) {
	path := writeFile(t, `
features:
  weighting: linear
  halflife_days: 180
trainer:
  min_year: 1980
archive:
  formats: [sqlite, csv]
`)
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "linear", c.Features.Weighting)
	assert.Equal(t, 180, c.Features.HalflifeDays)
	assert.Equal(t, 365, c.Features.WindowDays)
	assert.Equal(t, 1980, c.Trainer.MinYear)
	assert.Equal(t, []string{"sqlite", "csv"}, c.Archive.Formats)
	assert.Contains(t, c.String(), "weighting: linear")
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name     string
		contents string
	}{
		{"unknown key", "features:\n  window: 3\n"},
		{"bad window", "features:\n  window_days: 0\n"},
		{"bad fraction", "trainer:\n  test_fraction: 1.5\n"},
		{"no formats", "archive:\n  formats: []\n"},
		{"not yaml", "features: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.contents))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
