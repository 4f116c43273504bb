package appdir

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestConfigFile(t *testing.T) {
	path, err := ConfigFile()
	if err != nil {
		t.Fatalf("ConfigFile: %v", err)
	}
	if filepath.Base(path) != "config.json" {
		t.Errorf("ConfigFile() = %q, want a config.json basename", path)
	}
	if filepath.Base(filepath.Dir(path)) != appName {
		t.Errorf("ConfigFile() = %q, want it nested under a %q directory", path, appName)
	}
}

func TestCacheDir(t *testing.T) {
	dir, err := CacheDir()
	if err != nil {
		t.Fatalf("CacheDir: %v", err)
	}
	if filepath.Base(dir) != appName {
		t.Errorf("CacheDir() = %q, want basename %q", dir, appName)
	}
}

func TestSocketDir_LinuxHonorsXDGRuntimeDir(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG_RUNTIME_DIR preference is Linux-only")
	}
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")

	dir, err := SocketDir()
	if err != nil {
		t.Fatalf("SocketDir: %v", err)
	}
	want := filepath.Join("/run/user/1000", appName)
	if dir != want {
		t.Errorf("SocketDir() = %q, want %q", dir, want)
	}
}

func TestSocketDir_FallsBackToCacheDir(t *testing.T) {
	if runtime.GOOS == "linux" {
		t.Setenv("XDG_RUNTIME_DIR", "")
	}
	socketDir, err := SocketDir()
	if err != nil {
		t.Fatalf("SocketDir: %v", err)
	}
	cacheDir, err := CacheDir()
	if err != nil {
		t.Fatalf("CacheDir: %v", err)
	}
	if socketDir != cacheDir {
		t.Errorf("SocketDir() = %q, want it to fall back to CacheDir() %q", socketDir, cacheDir)
	}
}

func TestLogDir(t *testing.T) {
	dir, err := LogDir()
	if err != nil {
		t.Fatalf("LogDir: %v", err)
	}
	if filepath.Base(dir) != "log" {
		t.Errorf("LogDir() = %q, want basename \"log\"", dir)
	}
}

func TestEnsureDir(t *testing.T) {
	target := filepath.Join(t.TempDir(), "a", "b", "c")
	if err := EnsureDir(target); err != nil {
		t.Fatalf("EnsureDir: %v", err)
	}
	info, err := os.Stat(target)
	if err != nil {
		t.Fatalf("stat after EnsureDir: %v", err)
	}
	if !info.IsDir() {
		t.Errorf("%q is not a directory", target)
	}
}
