// Package appdir resolves the OS-appropriate directories foro uses for its
// config file, plugin cache, daemon socket, and logs, mirroring the
// original's app_dir.rs (which wraps the Rust `dirs` crate).
package appdir

import (
	"os"
	"path/filepath"
	"runtime"
)

const appName = "foro"

// ConfigFile returns the default path of the rule-set config file.
func ConfigFile() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName, "config.json"), nil
}

// CacheDir returns the default plugin cache directory.
func CacheDir() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName), nil
}

// SocketDir returns the directory the daemon places its socket, info, and
// lock files in. On Linux this prefers $XDG_RUNTIME_DIR, matching the
// original's `dirs::runtime_dir()`; elsewhere it falls back to the cache
// directory, since no stable per-user runtime directory convention exists.
func SocketDir() (string, error) {
	if runtime.GOOS == "linux" {
		if rd := os.Getenv("XDG_RUNTIME_DIR"); rd != "" {
			return filepath.Join(rd, appName), nil
		}
	}
	return CacheDir()
}

// LogDir returns the directory foro writes its daemon log files to.
func LogDir() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName, "log"), nil
}

// EnsureDir creates dir (and parents) if absent.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}
