package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/foro-dev/foro/internal/daemon"
	"github.com/foro-dev/foro/internal/flow"
	"github.com/foro-dev/foro/internal/plugin"
	"github.com/foro-dev/foro/internal/walker"
)

var bulkThreads int

var bulkFormatCmd = &cobra.Command{
	Use:   "bulk-format <path>...",
	Short: "Format every file under the given roots using pure rules",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runBulkFormat,
}

func init() {
	bulkFormatCmd.Flags().IntVar(&bulkThreads, "threads", 0, "worker count (0 detects CPU count)")
}

func runBulkFormat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	opts := buildGlobalOptions()

	threads := bulkThreads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}

	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	if !noDaemon {
		socketPath, err := ensureDaemonRunning(opts)
		if err == nil {
			status, callErr := daemon.NewClient(socketPath).BulkFormat(cwd, args, threads, opts)
			if callErr != nil {
				return fmt.Errorf("foro: talking to daemon: %w", callErr)
			}
			return reportBulkStatus(status)
		}
		fmt.Fprintf(os.Stderr, "foro: daemon unavailable (%v); running in-process\n", err)
	}

	config, cacheDir, err := loadConfigAndCache(opts)
	if err != nil {
		return err
	}

	roots := make([]string, len(args))
	for i, p := range args {
		resolved, err := resolveTargetPath(cwd, p)
		if err != nil {
			return err
		}
		roots[i] = resolved
	}

	cache, err := plugin.NewCache(ctx)
	if err != nil {
		return fmt.Errorf("foro: initializing plugin cache: %w", err)
	}
	defer cache.Close(ctx)

	env := &flow.Env{CacheDir: cacheDir, UseCache: !opts.NoCache, Plugins: cache}

	changed, total, err := walker.Run(ctx, env, config, roots, threads)
	if err != nil {
		return err
	}
	fmt.Printf("formatted %d of %d files\n", changed, total)
	return nil
}

func reportBulkStatus(status daemon.BulkFormatStatus) error {
	if status.ErrorMessage != nil {
		return fmt.Errorf("foro: bulk format: %s", *status.ErrorMessage)
	}
	fmt.Printf("formatted %d of %d files\n", status.Success.Changed, status.Success.TotalProcessed)
	return nil
}
