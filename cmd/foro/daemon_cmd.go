package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/foro-dev/foro/internal/appdir"
	"github.com/foro-dev/foro/internal/daemon"
	"github.com/foro-dev/foro/internal/plugin"
)

var attachForeground bool

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Manage the foro background daemon",
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the daemon",
	RunE:  runDaemonStart,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the daemon",
	RunE:  runDaemonStop,
}

var daemonRestartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Restart the daemon",
	RunE:  runDaemonRestart,
}

var daemonPingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check whether the daemon is running",
	RunE:  runDaemonPing,
}

func init() {
	daemonStartCmd.Flags().BoolVar(&attachForeground, "attach", false, "run in the foreground instead of detaching")
	daemonCmd.AddCommand(daemonStartCmd, daemonStopCmd, daemonRestartCmd, daemonPingCmd)
}

func runDaemonStart(cmd *cobra.Command, _ []string) error {
	opts := buildGlobalOptions()

	if !attachForeground {
		socketDir, err := resolveSocketDir(opts)
		if err != nil {
			return err
		}
		if err := spawnDaemon(socketPathFor(socketDir), socketDir, opts); err != nil {
			return err
		}
		fmt.Printf("daemon started (socket dir %s)\n", socketDir)
		return nil
	}

	return runDaemonForeground(cmd, opts)
}

// runDaemonForeground binds the socket and serves requests until the
// command's context is canceled (SIGINT/SIGTERM, wired in Execute) or a Stop
// command is handled.
func runDaemonForeground(cmd *cobra.Command, opts daemon.GlobalOptions) error {
	ctx := cmd.Context()

	socketDir, err := resolveSocketDir(opts)
	if err != nil {
		return err
	}
	logDir, err := appdir.LogDir()
	if err != nil {
		return err
	}
	if err := appdir.EnsureDir(logDir); err != nil {
		return err
	}
	stdoutPath := filepath.Join(logDir, "daemon.stdout.log")
	stderrPath := filepath.Join(logDir, "daemon.stderr.log")

	logger := newLogger(os.Stderr)

	cache, err := plugin.NewCache(ctx)
	if err != nil {
		return fmt.Errorf("foro: initializing plugin cache: %w", err)
	}
	defer cache.Close(ctx)

	handlers := &daemon.Handlers{
		LoadConfig: loadConfigAndCache,
		Plugins:    cache,
		StartedAt:  time.Now(),
		StdoutPath: stdoutPath,
		StderrPath: stderrPath,
	}

	socketPath := socketPathFor(socketDir)
	server := daemon.NewServer(socketPath, handlers, logger)
	if err := server.Bind(); err != nil {
		return err
	}

	if daemon.SignalReady() {
		logger.Info("signaled readiness to parent process")
	}

	return server.Serve(ctx)
}

func runDaemonStop(_ *cobra.Command, _ []string) error {
	opts := buildGlobalOptions()
	client, socketPath, err := newClient(opts)
	if err != nil {
		return err
	}
	if err := client.Stop(); err != nil {
		return fmt.Errorf("foro: stopping daemon at %s: %w", socketPath, err)
	}
	fmt.Println("daemon stopped")
	return nil
}

func runDaemonRestart(cmd *cobra.Command, args []string) error {
	if err := runDaemonStop(cmd, args); err != nil {
		fmt.Fprintf(os.Stderr, "foro: %v (starting a fresh daemon anyway)\n", err)
	}
	return runDaemonStart(cmd, args)
}

func runDaemonPing(_ *cobra.Command, _ []string) error {
	opts := buildGlobalOptions()
	client, socketPath, err := newClient(opts)
	if err != nil {
		return err
	}
	info, err := client.Ping()
	if err != nil {
		fmt.Printf("daemon is not running (%s)\n", socketPath)
		return nil
	}
	fmt.Printf("daemon is running\n  pid:    %d\n  build:  %s\n  socket: %s\n", info.PID, info.BuildID, socketPath)
	return nil
}
