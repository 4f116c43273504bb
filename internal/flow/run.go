package flow

import (
	"context"
	"fmt"
	"os"

	"github.com/foro-dev/foro/internal/rules"
)

// Run evaluates a matched rule's command bundle against the initial
// context. A Pure bundle writes formatted-content back to os-target when it
// differs from the original target-content (spec.md §4.3, "Top-level
// run"); a Write bundle is expected to have edited the file itself.
func Run(ctx context.Context, env *Env, bundle rules.SomeCommand, initial Context) (Context, error) {
	switch {
	case bundle.Pure != nil:
		originalContent := initial.String(KeyTargetContent)
		osTarget := initial.String(KeyOSTarget)

		result, err := Eval(ctx, env, bundle.Pure, initial, RunPureLeaf)
		if err != nil {
			return nil, err
		}

		formatted, ok := result[KeyFormattedContent].(string)
		if ok && osTarget != "" && formatted != originalContent {
			if err := os.WriteFile(osTarget, []byte(formatted), 0o644); err != nil {
				return nil, fmt.Errorf("flow: writing %s: %w", osTarget, err)
			}
		}
		return result, nil

	case bundle.Write != nil:
		return Eval(ctx, env, bundle.Write, initial, RunWriteLeaf)

	default:
		return nil, fmt.Errorf("flow: rule has no command bundle")
	}
}

// RunPure evaluates only a Pure bundle and never touches the filesystem;
// used by PureFormat, which requires force_pure=true at the matching stage
// (spec.md §4.5).
func RunPure(ctx context.Context, env *Env, pure *rules.CommandFlow[rules.PureCommand], initial Context) (Context, error) {
	return Eval(ctx, env, pure, initial, RunPureLeaf)
}
