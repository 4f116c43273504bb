package plugin

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachePathForLocalVsRemote(t *testing.T) {
	localPath, remote, err := cachePathFor(t.TempDir(), "./plugins/clang-format.wasm")
	require.NoError(t, err)
	assert.False(t, remote)
	assert.Contains(t, localPath, "cache-local")

	urlPath, remote, err := cachePathFor(t.TempDir(), "https://example.com/foo.wasm")
	require.NoError(t, err)
	assert.True(t, remote)
	assert.Contains(t, urlPath, "cache-url")
}

func TestFetchLocalFileCachesBytes(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "plugin.wasm")
	require.NoError(t, os.WriteFile(src, []byte("\x00asmbody"), 0o644))

	cacheDir := t.TempDir()
	cachePath, isRemote, err := cachePathFor(cacheDir, src)
	require.NoError(t, err)
	require.False(t, isRemote)

	data, diskPath, err := fetch(src, cachePath, isRemote, true)
	require.NoError(t, err)
	assert.Equal(t, "\x00asmbody", string(data))
	assert.Equal(t, cachePath, diskPath)

	cached, err := os.ReadFile(cachePath)
	require.NoError(t, err)
	assert.Equal(t, data, cached)
}

func TestFetchUsesCacheHitWithoutRereadingSource(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "plugin.wasm")
	require.NoError(t, os.WriteFile(src, []byte("original"), 0o644))

	cacheDir := t.TempDir()
	cachePath, isRemote, err := cachePathFor(cacheDir, src)
	require.NoError(t, err)

	_, _, err = fetch(src, cachePath, isRemote, true)
	require.NoError(t, err)

	require.NoError(t, os.Remove(src))

	data, _, err := fetch(src, cachePath, isRemote, true)
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))
}
