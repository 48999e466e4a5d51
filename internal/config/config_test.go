package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	c, err := Load(New())
	require.NoError(t, err)

	assert.Equal(t, "fs", c.Site.Adapter)
	assert.Equal(t, ".", c.Site.Path)
	assert.Equal(t, "auto", c.Site.Versioning)
	assert.True(t, c.Site.AutoInit)
	assert.True(t, c.Site.DevSafety)
	assert.Equal(t, 100, c.Site.EventBuffer)
	assert.Equal(t, slog.LevelInfo, c.Log.Level())
	assert.Equal(t, 10, c.Log.MaxSizeMB)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("METABIND_SITE_ADAPTER", "sqlite")
	t.Setenv("METABIND_SITE_PATH", "/srv/site.db")
	t.Setenv("METABIND_LOG_VERBOSE", "true")

	c, err := Load(New())
	require.NoError(t, err)
	assert.Equal(t, "sqlite", c.Site.Adapter)
	assert.Equal(t, "/srv/site.db", c.Site.Path)
	assert.Equal(t, slog.LevelDebug, c.Log.Level())
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	content := `site:
  adapter: memory
  versioning: "on"
  schema:
    - blocks.yaml
log:
  file: metabind.log
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "metabind.yaml"), []byte(content), 0o644))

	v := New()
	require.NoError(t, ReadFile(v, "", dir))
	c, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "memory", c.Site.Adapter)
	assert.Equal(t, "on", c.Site.Versioning)
	assert.Equal(t, []string{"blocks.yaml"}, c.Site.Schema)
	assert.Equal(t, "metabind.log", c.Log.File)
	assert.NotEmpty(t, c.Site.Options(slog.Default()))
}

func TestReadFile_Missing(t *testing.T) {
	v := New()
	assert.NoError(t, ReadFile(v, "", t.TempDir()))
	assert.Error(t, ReadFile(v, filepath.Join(t.TempDir(), "nope.yaml")))
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "unknown adapter", key: "site.adapter", val: "redis"},
		{name: "bad versioning", key: "site.versioning", val: "sometimes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.Set(tt.key, tt.val)
			_, err := Load(v)
			assert.Error(t, err)
		})
	}
}
