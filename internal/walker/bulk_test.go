package walker

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foro-dev/foro/internal/flow"
	"github.com/foro-dev/foro/internal/rules"
)

// trimRunner fakes a pure-command plugin that trims surrounding whitespace,
// letting the tests exercise the changed/unchanged tally without spawning a
// real subprocess or wasm module.
type trimRunner struct{}

func (trimRunner) RunCached(_ context.Context, _ string, _ string, _ bool, input flow.Context) (flow.Context, error) {
	content, _ := input[flow.KeyTargetContent].(string)
	return flow.Context{
		flow.KeyFormatStatus:      flow.StatusSuccess,
		flow.KeyFormattedContent: strings.TrimSpace(content),
	}, nil
}

func pureRuleConfig(t *testing.T, ext string) rules.Config {
	t.Helper()
	cfg, err := rules.LoadString(`{"rules": [{"on": "` + ext + `", "cmd": "https://example.com/trim.wasm"}]}`)
	require.NoError(t, err)
	return cfg
}

func TestRunCountsChangedAndUnchangedFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("  hello  "), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("already-trimmed"), 0o644))

	env := &flow.Env{Plugins: trimRunner{}}
	changed, total, err := Run(context.Background(), env, pureRuleConfig(t, ".txt"), []string{dir}, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, 1, changed)
}

func TestRunRejectsEmptyRoots(t *testing.T) {
	env := &flow.Env{Plugins: trimRunner{}}
	_, _, err := Run(context.Background(), env, pureRuleConfig(t, ".txt"), nil, 2)
	require.Error(t, err)
}

func TestRunSkipsFilesWithNoMatchingRule(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.bin"), []byte("x"), 0o644))

	env := &flow.Env{Plugins: trimRunner{}}
	_, total, err := Run(context.Background(), env, pureRuleConfig(t, ".txt"), []string{dir}, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
}

func TestRunSkipsDefaultIgnoredDirectories(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "node_modules")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(nested, "a.txt"), []byte("x"), 0o644))

	env := &flow.Env{Plugins: trimRunner{}}
	_, total, err := Run(context.Background(), env, pureRuleConfig(t, ".txt"), []string{dir}, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
}

func TestRunHonorsCustomIgnoreFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "keep.txt"), []byte("  x  "), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "skip.txt"), []byte("  y  "), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ignoreFileName), []byte("skip.txt\n"), 0o644))

	env := &flow.Env{Plugins: trimRunner{}}
	_, total, err := Run(context.Background(), env, pureRuleConfig(t, ".txt"), []string{dir}, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}
