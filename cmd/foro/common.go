package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/foro-dev/foro/internal/appdir"
	"github.com/foro-dev/foro/internal/buildinfo"
	"github.com/foro-dev/foro/internal/daemon"
	"github.com/foro-dev/foro/internal/rules"
)

// socketFileName is the daemon's listening socket, named after the
// original's daemon-cmd.sock.
const socketFileName = "daemon-cmd.sock"

func buildGlobalOptions() daemon.GlobalOptions {
	return daemon.GlobalOptions{
		ConfigFile:            cfgFile,
		CacheDir:              cacheDirFlag,
		SocketDir:             socketDirFlag,
		NoCache:               noCache,
		NoLongLog:             noLongLog,
		IgnoreBuildIDMismatch: ignoreBuildIDMismatch,
	}
}

func resolveCacheDir(opts daemon.GlobalOptions) (string, error) {
	if opts.CacheDir != "" {
		return opts.CacheDir, nil
	}
	return appdir.CacheDir()
}

func resolveSocketDir(opts daemon.GlobalOptions) (string, error) {
	if opts.SocketDir != "" {
		return opts.SocketDir, nil
	}
	return appdir.SocketDir()
}

func resolveConfigFile(opts daemon.GlobalOptions) (string, error) {
	if opts.ConfigFile != "" {
		return opts.ConfigFile, nil
	}
	return appdir.ConfigFile()
}

func socketPathFor(socketDir string) string {
	return filepath.Join(socketDir, socketFileName)
}

func resolveTargetPath(currentDir, path string) (string, error) {
	joined := filepath.Join(currentDir, path)
	abs, err := filepath.Abs(joined)
	if err != nil {
		return "", fmt.Errorf("foro: resolving %s: %w", path, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("foro: resolving %s: %w", path, err)
	}
	return resolved, nil
}

// loadConfigAndCache implements daemon.ConfigLoader: resolve the rule-set
// config file and the plugin cache directory a request should use, letting
// the config file's own cache_dir override the ambient default the way
// spec.md's load_config_and_cache does.
func loadConfigAndCache(opts daemon.GlobalOptions) (rules.Config, string, error) {
	configPath, err := resolveConfigFile(opts)
	if err != nil {
		return rules.Config{}, "", fmt.Errorf("foro: resolving config path: %w", err)
	}

	cfg, err := rules.LoadFile(configPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return rules.Config{}, "", fmt.Errorf("foro: no config file at %s (run `foro config default` to create one)", configPath)
		}
		return rules.Config{}, "", err
	}

	cacheDir, err := resolveCacheDir(opts)
	if err != nil {
		return rules.Config{}, "", fmt.Errorf("foro: resolving cache dir: %w", err)
	}
	if cfg.CacheDir != nil && *cfg.CacheDir != "" {
		cacheDir = *cfg.CacheDir
	}
	if err := appdir.EnsureDir(cacheDir); err != nil {
		return rules.Config{}, "", err
	}
	return cfg, cacheDir, nil
}

func newClient(opts daemon.GlobalOptions) (*daemon.Client, string, error) {
	socketDir, err := resolveSocketDir(opts)
	if err != nil {
		return nil, "", err
	}
	socketPath := socketPathFor(socketDir)
	return daemon.NewClient(socketPath), socketPath, nil
}

// ensureDaemonRunning implements the startup arbitration described in
// spec.md §4.4: a live daemon with a matching build id is left alone; one
// with a stale build id is restarted unless the caller opted to ignore the
// mismatch; otherwise callers race under the socket directory's startup
// lock to spawn one, and a race loser simply finds the winner's daemon
// already answering once it acquires the lock.
func ensureDaemonRunning(opts daemon.GlobalOptions) (string, error) {
	socketDir, err := resolveSocketDir(opts)
	if err != nil {
		return "", err
	}
	socketPath := socketPathFor(socketDir)
	client := daemon.NewClient(socketPath)

	if liveness := daemon.CheckLiveness(socketPath); liveness.Running {
		if liveness.BuildID == buildinfo.ID() || opts.IgnoreBuildIDMismatch {
			return socketPath, nil
		}

		lock, err := daemon.AcquireLock(socketDir)
		if err != nil {
			return "", fmt.Errorf("foro: acquiring daemon startup lock: %w", err)
		}
		defer lock.Release()
		_ = client.Stop()
		return socketPath, spawnDaemon(socketPath, socketDir, opts)
	}

	if _, err := client.Ping(); err == nil {
		return socketPath, nil
	}

	lock, err := daemon.AcquireLock(socketDir)
	if err != nil {
		return "", fmt.Errorf("foro: acquiring daemon startup lock: %w", err)
	}
	defer lock.Release()

	if _, err := client.Ping(); err == nil {
		return socketPath, nil // another process won the startup race
	}
	return socketPath, spawnDaemon(socketPath, socketDir, opts)
}

// spawnDaemon launches a background daemon and blocks until it answers a
// ping or a bounded number of attempts is exhausted.
func spawnDaemon(socketPath, socketDir string, opts daemon.GlobalOptions) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("foro: locating own executable: %w", err)
	}
	logDir, err := appdir.LogDir()
	if err != nil {
		return fmt.Errorf("foro: resolving log directory: %w", err)
	}
	if err := appdir.EnsureDir(logDir); err != nil {
		return err
	}

	stdoutPath := filepath.Join(logDir, "daemon.stdout.log")
	stderrPath := filepath.Join(logDir, "daemon.stderr.log")

	args := []string{"daemon", "start", "--attach"}
	if opts.SocketDir != "" {
		args = append(args, "--socket-dir", opts.SocketDir)
	}
	if opts.CacheDir != "" {
		args = append(args, "--cache-dir", opts.CacheDir)
	}
	if opts.ConfigFile != "" {
		args = append(args, "--config", opts.ConfigFile)
	}

	if err := daemon.StartBackground(exe, args, stdoutPath, stderrPath); err != nil {
		return fmt.Errorf("foro: starting daemon: %w", err)
	}

	client := daemon.NewClient(socketPath)
	for i := 0; i < 50; i++ {
		if _, err := client.Ping(); err == nil {
			return nil
		}
		time.Sleep(20 * time.Millisecond)
	}
	return fmt.Errorf("foro: daemon at %s did not become ready", socketPath)
}
