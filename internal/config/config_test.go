package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoader_DefaultsWithNoFile(t *testing.T) {
	l, err := NewLoader(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	cfg := l.Current()
	assert.Equal(t, Default().Engine.ChunkSize, cfg.Engine.ChunkSize)
	assert.Equal(t, "zstd", cfg.Engine.CompressionAlgorithm)
	assert.Equal(t, "memory", cfg.Dedup.Backend)
	assert.True(t, cfg.Audit.Enabled)
}

func TestNewLoader_OverridesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zff.yaml")
	contents := `
engine:
  chunk_size: 1048576
  compression_algorithm: lz4
dedup:
  backend: bbolt
  bbolt_path: /var/lib/zff/dedup.db
audit:
  enabled: false
  sink:
    type: file
    file_path: /var/log/zff/audit.log
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	l, err := NewLoader(path)
	require.NoError(t, err)

	cfg := l.Current()
	assert.Equal(t, uint32(1048576), cfg.Engine.ChunkSize)
	assert.Equal(t, "lz4", cfg.Engine.CompressionAlgorithm)
	assert.Equal(t, "bbolt", cfg.Dedup.Backend)
	assert.Equal(t, "/var/lib/zff/dedup.db", cfg.Dedup.BboltPath)
	assert.False(t, cfg.Audit.Enabled)
	assert.Equal(t, "file", cfg.Audit.Sink.Type)
	assert.Equal(t, "/var/log/zff/audit.log", cfg.Audit.Sink.FilePath)

	// Values the file doesn't set still carry the built-in default.
	assert.Equal(t, Default().Engine.SegmentSize, cfg.Engine.SegmentSize)
}

func TestLoader_WatchReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zff.yaml")
	require.NoError(t, os.WriteFile(path, []byte("engine:\n  chunk_size: 1000\n"), 0o644))

	l, err := NewLoader(path)
	require.NoError(t, err)
	assert.Equal(t, uint32(1000), l.Current().Engine.ChunkSize)

	changed := make(chan Config, 1)
	l.OnChange(func(cfg Config) { changed <- cfg })
	l.Watch()

	require.NoError(t, os.WriteFile(path, []byte("engine:\n  chunk_size: 2000\n"), 0o644))

	select {
	case cfg := <-changed:
		assert.Equal(t, uint32(2000), cfg.Engine.ChunkSize)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for config reload")
	}
}
