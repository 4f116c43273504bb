package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/foro-dev/foro/internal/daemon"
)

func TestSocketPathFor(t *testing.T) {
	got := socketPathFor("/run/user/1000/foro")
	want := filepath.Join("/run/user/1000/foro", "daemon-cmd.sock")
	if got != want {
		t.Errorf("socketPathFor() = %q, want %q", got, want)
	}
}

func TestBuildGlobalOptions(t *testing.T) {
	origCfg, origCache, origSocket, origNoCache, origNoLongLog, origIgnore :=
		cfgFile, cacheDirFlag, socketDirFlag, noCache, noLongLog, ignoreBuildIDMismatch
	t.Cleanup(func() {
		cfgFile, cacheDirFlag, socketDirFlag, noCache, noLongLog, ignoreBuildIDMismatch =
			origCfg, origCache, origSocket, origNoCache, origNoLongLog, origIgnore
	})

	cfgFile = "/tmp/rules.json"
	cacheDirFlag = "/tmp/cache"
	socketDirFlag = "/tmp/sock"
	noCache = true
	noLongLog = true
	ignoreBuildIDMismatch = true

	got := buildGlobalOptions()
	want := daemon.GlobalOptions{
		ConfigFile:            "/tmp/rules.json",
		CacheDir:              "/tmp/cache",
		SocketDir:             "/tmp/sock",
		NoCache:               true,
		NoLongLog:             true,
		IgnoreBuildIDMismatch: true,
	}
	if got != want {
		t.Errorf("buildGlobalOptions() = %+v, want %+v", got, want)
	}
}

func TestResolveCacheDir_PrefersOverride(t *testing.T) {
	dir, err := resolveCacheDir(daemon.GlobalOptions{CacheDir: "/custom/cache"})
	if err != nil {
		t.Fatalf("resolveCacheDir: %v", err)
	}
	if dir != "/custom/cache" {
		t.Errorf("resolveCacheDir() = %q, want the override", dir)
	}
}

func TestResolveCacheDir_FallsBackToAppdir(t *testing.T) {
	dir, err := resolveCacheDir(daemon.GlobalOptions{})
	if err != nil {
		t.Fatalf("resolveCacheDir: %v", err)
	}
	if dir == "" {
		t.Error("resolveCacheDir() returned an empty default")
	}
}

func TestResolveSocketDir_PrefersOverride(t *testing.T) {
	dir, err := resolveSocketDir(daemon.GlobalOptions{SocketDir: "/custom/sock"})
	if err != nil {
		t.Fatalf("resolveSocketDir: %v", err)
	}
	if dir != "/custom/sock" {
		t.Errorf("resolveSocketDir() = %q, want the override", dir)
	}
}

func TestResolveConfigFile_PrefersOverride(t *testing.T) {
	path, err := resolveConfigFile(daemon.GlobalOptions{ConfigFile: "/custom/config.json"})
	if err != nil {
		t.Fatalf("resolveConfigFile: %v", err)
	}
	if path != "/custom/config.json" {
		t.Errorf("resolveConfigFile() = %q, want the override", path)
	}
}

func TestResolveTargetPath(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.rs")
	if err := os.WriteFile(file, []byte("fn main() {}"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := resolveTargetPath(dir, "a.rs")
	if err != nil {
		t.Fatalf("resolveTargetPath: %v", err)
	}
	want, err := filepath.EvalSymlinks(file)
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("resolveTargetPath() = %q, want %q", got, want)
	}
}

func TestResolveTargetPath_Missing(t *testing.T) {
	dir := t.TempDir()
	if _, err := resolveTargetPath(dir, "missing.rs"); err == nil {
		t.Error("expected an error resolving a nonexistent path")
	}
}

func TestLoadConfigAndCache_MissingConfigFileGivesFriendlyError(t *testing.T) {
	origCache := cacheDirFlag
	t.Cleanup(func() { cacheDirFlag = origCache })
	cacheDirFlag = t.TempDir()

	missing := filepath.Join(t.TempDir(), "does-not-exist.json")
	_, _, err := loadConfigAndCache(daemon.GlobalOptions{ConfigFile: missing, CacheDir: cacheDirFlag})
	if err == nil {
		t.Fatal("expected an error for a missing config file")
	}
	if !strings.Contains(err.Error(), "run `foro config default`") {
		t.Errorf("loadConfigAndCache error = %q, want the friendly no-config-file message", err.Error())
	}
}

