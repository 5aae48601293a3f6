package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saiset-co/sai-filecache/types"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultAppName, cfg.Name)
	assert.Equal(t, "sqlite", cfg.Store.Type)
	assert.Equal(t, 5*time.Second, cfg.Store.BusyTimeout)
	assert.Equal(t, "sha256", cfg.Hasher.Algorithm)
	assert.Equal(t, DefaultChunkSize, cfg.Hasher.ChunkSize)
	assert.Equal(t, DefaultStoreFile, filepath.Base(cfg.Store.Path))
	assert.Equal(t, DefaultAppName, filepath.Base(filepath.Dir(cfg.Store.Path)))
}

func TestLoadOverrides(t *testing.T) {
	t.Parallel()

	storePath := filepath.Join(t.TempDir(), "nested", "results.db")
	path := writeConfig(t, `
name: workbench
logger:
  level: debug
  config:
    format: json
store:
  type: sqlite
  path: `+storePath+`
  busy_timeout: 250ms
hasher:
  algorithm: blake2b
  chunk_size: 4096
metrics:
  enabled: false
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "workbench", cfg.Name)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, storePath, cfg.Store.Path)
	assert.Equal(t, 250*time.Millisecond, cfg.Store.BusyTimeout)
	assert.Equal(t, "blake2b", cfg.Hasher.Algorithm)
	assert.Equal(t, 4096, cfg.Hasher.ChunkSize)
	assert.Equal(t, 4, cfg.Hasher.Concurrency, "unset fields keep defaults")
	assert.False(t, cfg.Metrics.Enabled)
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	assert.ErrorIs(t, err, types.ErrConfigNotFound)
}

func TestLoadInvalidYAML(t *testing.T) {
	t.Parallel()

	_, err := Load(writeConfig(t, "store: [unclosed"))
	assert.ErrorIs(t, err, types.ErrConfigParseFailed)
}

func TestLoadValidationFailure(t *testing.T) {
	t.Parallel()

	_, err := Load(writeConfig(t, `
store:
  type: memory
hasher:
  algorithm: md5
`))
	assert.ErrorIs(t, err, types.ErrConfigValidateFailed)
}

func TestLoadMemoryStoreSkipsDataDir(t *testing.T) {
	t.Parallel()

	l := NewLoader()
	l.dataDir = func(string) (string, error) {
		return "", errors.New("must not be called")
	}

	path := writeConfig(t, "store:\n  type: memory\n")
	cfg, err := l.Load(path)
	require.NoError(t, err)
	assert.Empty(t, cfg.Store.Path)
}

func TestLoadCloverDefaultsToDirectory(t *testing.T) {
	t.Parallel()

	l := NewLoader()
	base := t.TempDir()
	l.dataDir = func(name string) (string, error) {
		return filepath.Join(base, name), nil
	}

	cfg, err := l.Load(writeConfig(t, "store:\n  type: clover\n"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, DefaultAppName, "clover"), cfg.Store.Path)
}

func TestLoadDataDirFailure(t *testing.T) {
	t.Parallel()

	l := NewLoader()
	l.dataDir = func(name string) (string, error) {
		return "", types.NewIOError("resolve data dir", name, types.ErrDataDirUnavailable)
	}

	_, err := l.Load("")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrIO)
	assert.ErrorIs(t, err, types.ErrDataDirUnavailable)
}

func TestResolveDataDir(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG resolution is linux specific")
	}

	base := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", base)

	dir, err := ResolveDataDir("workbench")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "workbench"), dir)
}

func TestResolveDataDirUnavailable(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG resolution is linux specific")
	}

	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("HOME", "")

	_, err := ResolveDataDir("workbench")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrIO)
}
