package daemon

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/foro-dev/foro/internal/buildinfo"
	"github.com/foro-dev/foro/internal/flow"
	"github.com/foro-dev/foro/internal/procutil"
	"github.com/foro-dev/foro/internal/rules"
	"github.com/foro-dev/foro/internal/walker"
)

// ConfigLoader resolves the rule-set and cache directory for a request,
// honoring any per-request override in GlobalOptions (spec.md §4.5,
// "load_config_and_cache"); it is re-invoked on every request rather than
// cached, since a client may point at a different config file per call.
type ConfigLoader func(opts GlobalOptions) (rules.Config, string, error)

// Handlers wires command dispatch to a config loader, the shared plugin
// cache, and this daemon's own identity fields.
type Handlers struct {
	LoadConfig ConfigLoader
	Plugins    flow.PluginRunner
	StartedAt  time.Time
	StdoutPath string
	StderrPath string
}

// Execute routes payload to the matching handler and always returns a
// populated Response; handler-internal failures surface as an Error variant
// rather than a transport-level error.
func (h *Handlers) Execute(ctx context.Context, payload CommandPayload) Response {
	switch {
	case payload.Command.Format != nil:
		status := h.handleFormat(ctx, payload)
		return Response{Format: &status}
	case payload.Command.PureFormat != nil:
		status := h.handlePureFormat(ctx, payload)
		return Response{PureFormat: &status}
	case payload.Command.BulkFormat != nil:
		status := h.handleBulkFormat(ctx, payload)
		return Response{BulkFormat: &status}
	case payload.Command.Stop:
		return Response{Stop: true}
	case payload.Command.Ping:
		return Response{Pong: &DaemonInfo{
			PID:        os.Getpid(),
			StartTime:  h.StartedAt.Format(time.RFC3339Nano),
			StdoutPath: h.StdoutPath,
			StderrPath: h.StderrPath,
			BuildID:    buildinfo.ID(),
		}}
	default:
		msg := "empty command"
		return Response{Format: &FormatStatus{ErrorMessage: &msg}}
	}
}

func (h *Handlers) handleFormat(ctx context.Context, payload CommandPayload) FormatStatus {
	args := payload.Command.Format

	targetPath, err := resolveTarget(payload.CurrentDir, args.Path)
	if err != nil {
		return FormatStatus{ErrorMessage: strPtr(err.Error())}
	}

	config, cacheDir, err := h.LoadConfig(payload.GlobalOptions)
	if err != nil {
		return FormatStatus{ErrorMessage: strPtr(err.Error())}
	}

	rule := config.FindMatchedRule(targetPath, false)
	if rule == nil {
		return FormatStatus{IgnoredReason: strPtr(config.IgnoreReason(targetPath))}
	}

	content, err := os.ReadFile(targetPath)
	if err != nil {
		return FormatStatus{ErrorMessage: strPtr(err.Error())}
	}

	initial := flow.Context{
		flow.KeyCurrentDir:    payload.CurrentDir,
		flow.KeyOSTarget:      targetPath,
		flow.KeyWasmTarget:    procutil.ToPOSIX(targetPath),
		flow.KeyRawTarget:     args.Path,
		flow.KeyTargetContent: string(content),
	}
	env := &flow.Env{CacheDir: cacheDir, UseCache: !payload.GlobalOptions.NoCache, Plugins: h.Plugins}

	result, err := runWithQuickTrick(ctx, env, rule.Command, initial, targetPath)
	if err != nil {
		return FormatStatus{ErrorMessage: strPtr(err.Error())}
	}

	switch result[flow.KeyFormatStatus] {
	case flow.StatusIgnored:
		return FormatStatus{IgnoredReason: strPtr(result.String(flow.KeyIgnoredReason))}
	case flow.StatusError:
		return FormatStatus{ErrorMessage: strPtr(result.String(flow.KeyFormatError))}
	default:
		return FormatStatus{Success: true}
	}
}

func (h *Handlers) handlePureFormat(ctx context.Context, payload CommandPayload) PureFormatStatus {
	args := payload.Command.PureFormat

	targetPath, err := resolveTarget(payload.CurrentDir, args.Path)
	if err != nil {
		return PureFormatStatus{ErrorMessage: strPtr(err.Error())}
	}

	config, cacheDir, err := h.LoadConfig(payload.GlobalOptions)
	if err != nil {
		return PureFormatStatus{ErrorMessage: strPtr(err.Error())}
	}

	rule := config.FindMatchedRule(targetPath, true)
	if rule == nil {
		return PureFormatStatus{IgnoredReason: strPtr(config.IgnoreReason(targetPath))}
	}
	if !rule.Command.IsPure() {
		return PureFormatStatus{IgnoredReason: strPtr("only a write rule matches this path")}
	}

	initial := flow.Context{
		flow.KeyCurrentDir:    payload.CurrentDir,
		flow.KeyOSTarget:      targetPath,
		flow.KeyWasmTarget:    procutil.ToPOSIX(targetPath),
		flow.KeyRawTarget:     args.Path,
		flow.KeyTargetContent: args.Content,
	}
	env := &flow.Env{CacheDir: cacheDir, UseCache: !payload.GlobalOptions.NoCache, Plugins: h.Plugins}

	result, err := flow.RunPure(ctx, env, rule.Command.Pure, initial)
	if err != nil {
		return PureFormatStatus{ErrorMessage: strPtr(err.Error())}
	}
	if result[flow.KeyFormatStatus] == flow.StatusError {
		return PureFormatStatus{ErrorMessage: strPtr(result.String(flow.KeyFormatError))}
	}
	return PureFormatStatus{SuccessContent: strPtr(result.String(flow.KeyFormattedContent))}
}

func (h *Handlers) handleBulkFormat(ctx context.Context, payload CommandPayload) BulkFormatStatus {
	args := payload.Command.BulkFormat

	if len(args.Paths) == 0 {
		return BulkFormatStatus{ErrorMessage: strPtr("no path given")}
	}

	config, cacheDir, err := h.LoadConfig(payload.GlobalOptions)
	if err != nil {
		return BulkFormatStatus{ErrorMessage: strPtr(err.Error())}
	}

	roots := make([]string, len(args.Paths))
	for i, p := range args.Paths {
		resolved, err := resolveTarget(payload.CurrentDir, p)
		if err != nil {
			return BulkFormatStatus{ErrorMessage: strPtr(err.Error())}
		}
		roots[i] = resolved
	}

	env := &flow.Env{CacheDir: cacheDir, UseCache: !payload.GlobalOptions.NoCache, Plugins: h.Plugins}

	changed, total, err := walker.Run(ctx, env, config, roots, args.Threads)
	if err != nil {
		return BulkFormatStatus{ErrorMessage: strPtr(err.Error())}
	}
	return BulkFormatStatus{Success: &BulkSummary{Changed: changed, TotalProcessed: total}}
}

func resolveTarget(currentDir, path string) (string, error) {
	joined := filepath.Join(currentDir, path)
	abs, err := filepath.Abs(joined)
	if err != nil {
		return "", fmt.Errorf("daemon: resolving target path: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("daemon: resolving target path: %w", err)
	}
	return resolved, nil
}

func strPtr(s string) *string { return &s }
