package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/foro-dev/foro/internal/daemon"
	"github.com/foro-dev/foro/internal/flow"
	"github.com/foro-dev/foro/internal/plugin"
	"github.com/foro-dev/foro/internal/procutil"
)

var formatCmd = &cobra.Command{
	Use:   "format <path>",
	Short: "Format a single file in place",
	Args:  cobra.ExactArgs(1),
	RunE:  runFormat,
}

func runFormat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	opts := buildGlobalOptions()
	path := args[0]

	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	if !noDaemon {
		socketPath, err := ensureDaemonRunning(opts)
		if err == nil {
			status, callErr := daemon.NewClient(socketPath).Format(cwd, path, opts)
			if callErr != nil {
				return fmt.Errorf("foro: talking to daemon: %w", callErr)
			}
			return reportFormatStatus(path, status)
		}
		fmt.Fprintf(os.Stderr, "foro: daemon unavailable (%v); running in-process\n", err)
	}

	return runFormatDirect(ctx, opts, cwd, path)
}

func reportFormatStatus(path string, status daemon.FormatStatus) error {
	switch {
	case status.ErrorMessage != nil:
		return fmt.Errorf("foro: %s: %s", path, *status.ErrorMessage)
	case status.IgnoredReason != nil:
		fmt.Printf("%s: ignored (%s)\n", path, *status.IgnoredReason)
	default:
		fmt.Printf("%s: formatted\n", path)
	}
	return nil
}

// runFormatDirect runs the matched rule in-process, used when --no-daemon is
// set or no daemon could be reached.
func runFormatDirect(ctx context.Context, opts daemon.GlobalOptions, cwd, path string) error {
	config, cacheDir, err := loadConfigAndCache(opts)
	if err != nil {
		return err
	}

	targetPath, err := resolveTargetPath(cwd, path)
	if err != nil {
		return err
	}

	rule := config.FindMatchedRule(targetPath, false)
	if rule == nil {
		fmt.Printf("%s: ignored (%s)\n", path, config.IgnoreReason(targetPath))
		return nil
	}

	content, err := os.ReadFile(targetPath)
	if err != nil {
		return err
	}

	cache, err := plugin.NewCache(ctx)
	if err != nil {
		return fmt.Errorf("foro: initializing plugin cache: %w", err)
	}
	defer cache.Close(ctx)

	env := &flow.Env{CacheDir: cacheDir, UseCache: !opts.NoCache, Plugins: cache}
	initial := flow.Context{
		flow.KeyCurrentDir:    cwd,
		flow.KeyOSTarget:      targetPath,
		flow.KeyWasmTarget:    procutil.ToPOSIX(targetPath),
		flow.KeyRawTarget:     path,
		flow.KeyTargetContent: string(content),
	}

	result, err := flow.Run(ctx, env, rule.Command, initial)
	if err != nil {
		return err
	}

	switch result[flow.KeyFormatStatus] {
	case flow.StatusIgnored:
		fmt.Printf("%s: ignored (%s)\n", path, result.String(flow.KeyIgnoredReason))
	case flow.StatusError:
		return fmt.Errorf("foro: %s: %s", path, result.String(flow.KeyFormatError))
	default:
		fmt.Printf("%s: formatted\n", path)
	}
	return nil
}
