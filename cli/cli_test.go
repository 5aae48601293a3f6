package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saiset-co/sai-filecache/hasher"
	"github.com/saiset-co/sai-filecache/types"
	"github.com/saiset-co/sai-filecache/utils"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
name: filecache-cli
logger:
  type: nop
store:
  type: sqlite
  path: ` + filepath.Join(dir, "data", "cache.db") + `
metrics:
  enabled: false
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func TestInitPutGetList(t *testing.T) {
	t.Parallel()

	cfg := writeTestConfig(t)

	out, err := run(t, "", "--config", cfg, "init")
	require.NoError(t, err)
	assert.Contains(t, out, `"sqlite" ready`)

	out, err = run(t, "", "--config", cfg, "get", hasher.EmptySHA256)
	require.NoError(t, err)
	miss, err := decode[lookupResult](out)
	require.NoError(t, err)
	assert.False(t, miss.Found)

	_, err = run(t, `{"summary":"none"}`, "--config", cfg, "put", hasher.EmptySHA256,
		"--path", "/tmp/empty", "--endpoint", "https://api.example", "--payload-file", "-")
	require.NoError(t, err)

	out, err = run(t, "", "--config", cfg, "get", hasher.EmptySHA256)
	require.NoError(t, err)
	hit, err := decode[lookupResult](out)
	require.NoError(t, err)
	assert.True(t, hit.Found)
	assert.Equal(t, `{"summary":"none"}`, hit.Payload)

	out, err = run(t, "", "--config", cfg, "list")
	require.NoError(t, err)
	entries, err := decode[[]types.CacheEntrySummary](out)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "/tmp/empty", entries[0].SourcePath)
}

func TestListLimit(t *testing.T) {
	t.Parallel()

	cfg := writeTestConfig(t)
	_, err := run(t, "", "--config", cfg, "init")
	require.NoError(t, err)

	for _, digest := range []string{"aa", "bb", "cc"} {
		_, err := run(t, "", "--config", cfg, "put", digest, "--payload", digest)
		require.NoError(t, err)
	}

	out, err := run(t, "", "--config", cfg, "list", "--limit", "2")
	require.NoError(t, err)
	entries, err := decode[[]types.CacheEntrySummary](out)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestHashAndGetByFile(t *testing.T) {
	t.Parallel()

	cfg := writeTestConfig(t)
	empty := filepath.Join(t.TempDir(), "empty.pdf")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))

	out, err := run(t, "", "--config", cfg, "hash", empty)
	require.NoError(t, err)
	results, err := decode[[]hashResult](out)
	require.NoError(t, err)
	assert.Equal(t, []hashResult{{Path: empty, Digest: hasher.EmptySHA256}}, results)

	_, err = run(t, "", "--config", cfg, "init")
	require.NoError(t, err)
	_, err = run(t, "", "--config", cfg, "put", hasher.EmptySHA256, "--payload", "{}")
	require.NoError(t, err)

	out, err = run(t, "", "--config", cfg, "get", "--file", empty)
	require.NoError(t, err)
	hit, err := decode[lookupResult](out)
	require.NoError(t, err)
	assert.True(t, hit.Found)
	assert.Equal(t, hasher.EmptySHA256, hit.Digest)
}

func TestErrors(t *testing.T) {
	t.Parallel()

	cfg := writeTestConfig(t)

	_, err := run(t, "", "--config", cfg, "list")
	assert.ErrorIs(t, err, types.ErrStorage, "list before init")

	_, err = run(t, "", "--config", cfg, "hash", filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, types.ErrNotFound)

	_, err = run(t, "", "--config", filepath.Join(t.TempDir(), "absent.yaml"), "init")
	assert.ErrorIs(t, err, types.ErrConfigNotFound)

	_, err = run(t, "", "--config", cfg, "put", "aa", "--payload", "x", "--payload-file", "-")
	assert.Error(t, err)
}

func TestConfigGet(t *testing.T) {
	t.Parallel()

	cfg := writeTestConfig(t)

	out, err := run(t, "", "--config", cfg, "config", "get", "store.type")
	require.NoError(t, err)
	assert.Equal(t, `"sqlite"`, strings.TrimSpace(out))

	out, err = run(t, "", "--config", cfg, "config", "get", "hasher.chunk_size")
	require.NoError(t, err)
	assert.Equal(t, "8192", strings.TrimSpace(out))

	_, err = run(t, "", "--config", cfg, "config", "get", "store.nothing")
	assert.ErrorIs(t, err, types.ErrConfigNotFound)
}

func TestVersion(t *testing.T) {
	t.Parallel()

	out, err := run(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "filecache version "+version+"\n", out)
}

func decode[T any](out string) (T, error) {
	var v T
	err := utils.Unmarshal([]byte(out), &v)
	return v, err
}
