package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/datashelf/pkg/types"
)

func TestLoad_FirstRunWritesDefaultConfig(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, types.BackendSQLite, cfg.Backend)
	assert.Equal(t, dir, cfg.DataDir)

	content, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "backend: sqlite")
}

func TestLoad_ReadsExistingConfig(t *testing.T) {
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(
		"backend: sqlite\ndata_dir: /tmp/shelf\ncache_ttl: 120\nsample_limit: 200\n"), 0o644)
	require.NoError(t, err)

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/shelf", cfg.DataDir)
	assert.Equal(t, 120, cfg.CacheTTLSeconds)
	assert.Equal(t, 200, cfg.SampleLimit)
}

func TestLoad_InvalidBackendRejected(t *testing.T) {
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("backend: tape\n"), 0o644)
	require.NoError(t, err)

	_, err = Load(dir)
	assert.ErrorIs(t, err, types.ErrBackendUnknown)
}

func TestLoad_DoesNotOverwriteExistingFile(t *testing.T) {
	dir := t.TempDir()
	original := "backend: sqlite\nfacet_top_n: 10\n"
	err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(original), 0o644)
	require.NoError(t, err)

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.FacetTopN)

	content, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, original, string(content))
}
