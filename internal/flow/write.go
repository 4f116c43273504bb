package flow

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/foro-dev/foro/internal/rules"
)

// RunWriteLeaf dispatches a rules.WriteCommand leaf: a bare shell command
// expected to edit the file in place, or a Pure leaf whose
// formatted-content (if any) is written to os-target by this handler, not
// by the plugin (spec.md §4.3, "Write leaf handlers").
func RunWriteLeaf(ctx context.Context, env *Env, cur Context, leaf rules.WriteCommand) (Context, error) {
	if leaf.Pure != nil {
		result, err := RunPureLeaf(ctx, env, cur, *leaf.Pure)
		if err != nil {
			return nil, err
		}
		if content, ok := result[KeyFormattedContent].(string); ok {
			if err := os.WriteFile(result.String(KeyOSTarget), []byte(content), 0o644); err != nil {
				return nil, fmt.Errorf("flow: writing %s: %w", result.String(KeyOSTarget), err)
			}
		}
		return result, nil
	}
	return runSimpleCommand(cur, leaf.SimpleCommand)
}

// runSimpleCommand renders and spawns a write-mode shell command without
// piping stdio; the invoked tool is expected to write the file itself.
func runSimpleCommand(cur Context, tmpl string) (Context, error) {
	rendered, err := RenderTemplate(tmpl, cur)
	if err != nil {
		return nil, fmt.Errorf("flow: rendering command: %w", err)
	}
	argv, err := splitCommand(rendered)
	if err != nil {
		return nil, fmt.Errorf("flow: splitting command %q: %w", rendered, err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("flow: empty command")
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = cur.String(KeyCurrentDir)
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("flow: running %q: %w", rendered, err)
	}
	return cur.Clone(), nil
}
