package flow

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"github.com/foro-dev/foro/internal/rules"
)

// RunPureLeaf dispatches a rules.PureCommand leaf: a plugin invocation or a
// shell pipe that reads target-content on stdin and produces formatted text
// on stdout (spec.md §4.3, "Pure leaf handlers").
func RunPureLeaf(ctx context.Context, env *Env, cur Context, leaf rules.PureCommand) (Context, error) {
	if leaf.IsPluginURL() {
		result, err := env.Plugins.RunCached(ctx, leaf.PluginURL, env.CacheDir, env.UseCache, cur)
		if err != nil {
			return nil, fmt.Errorf("flow: plugin %s: %w", leaf.PluginURL, err)
		}
		return cur.Merge(result), nil
	}
	return runCommandIO(cur, leaf.IO)
}

// runCommandIO renders the io template, splits it shell-style, spawns the
// process with current-dir set, writes target-content to stdin and closes
// it before waiting — closing stdin before Wait is required for filter-style
// tools that read until EOF (spec.md §9, "Subprocess I/O").
func runCommandIO(cur Context, tmpl string) (Context, error) {
	rendered, err := RenderTemplate(tmpl, cur)
	if err != nil {
		return nil, fmt.Errorf("flow: rendering io command: %w", err)
	}
	argv, err := splitCommand(rendered)
	if err != nil {
		return nil, fmt.Errorf("flow: splitting io command %q: %w", rendered, err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("flow: empty io command")
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = cur.String(KeyCurrentDir)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("flow: opening stdin pipe: %w", err)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("flow: starting %q: %w", argv[0], err)
	}

	if _, err := stdin.Write([]byte(cur.String(KeyTargetContent))); err != nil {
		stdin.Close()
		cmd.Wait()
		return nil, fmt.Errorf("flow: writing to stdin: %w", err)
	}
	stdin.Close()

	result := cur.Clone()
	if err := cmd.Wait(); err != nil {
		result[KeyFormatStatus] = StatusError
		result[KeyFormatError] = stderr.String()
		return result, nil
	}
	result[KeyFormatStatus] = StatusSuccess
	result[KeyFormattedContent] = stdout.String()
	return result, nil
}
