package plugin

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/tetratelabs/wazero"
)

// wasmMagic is the 4-byte header every WebAssembly binary starts with.
// Anything else at rawURL is assumed to be a native shared library.
const wasmMagic = "\x00asm"

// Load resolves rawURL (an http(s) URL or a local filesystem path) to plugin
// bytes, content-addressing them under cacheDir so a second load of the same
// URL skips the network, then dispatches to the WASM or native backend
// based on the bytes' magic header (spec.md §4.2, "Plugin resolution").
func Load(ctx context.Context, rt wazero.Runtime, rawURL, cacheDir string, useCache bool) (*Library, error) {
	cachePath, isRemote, err := cachePathFor(cacheDir, rawURL)
	if err != nil {
		return nil, err
	}

	data, diskPath, err := fetch(rawURL, cachePath, isRemote, useCache)
	if err != nil {
		return nil, err
	}

	if len(data) >= len(wasmMagic) && string(data[:len(wasmMagic)]) == wasmMagic {
		return loadWasm(ctx, rt, rawURL, data)
	}
	return loadNative(diskPath)
}

// CachePathFor exposes cachePathFor's resolution to the CLI's `cache remove`
// command, which needs to name a single cache entry without going through a
// full Load.
func CachePathFor(cacheDir, rawURL string) (path string, isRemote bool, err error) {
	return cachePathFor(cacheDir, rawURL)
}

// cachePathFor mirrors the original's cache-url/cache-local split
// (handle_plugin/load.rs): network URLs are content-addressed by their
// percent-encoded form under "cache-url", local paths under "cache-local".
func cachePathFor(cacheDir, rawURL string) (path string, isRemote bool, err error) {
	u, parseErr := url.Parse(rawURL)
	isRemote = parseErr == nil && (u.Scheme == "http" || u.Scheme == "https")

	if isRemote {
		return filepath.Join(cacheDir, "cache-url", url.PathEscape(rawURL)), true, nil
	}

	abs, err := filepath.Abs(rawURL)
	if err != nil {
		return "", false, fmt.Errorf("plugin: resolving local plugin path %s: %w", rawURL, err)
	}
	return filepath.Join(cacheDir, "cache-local", url.PathEscape(abs)), false, nil
}

// fetch returns the plugin's bytes and a filesystem path holding them (the
// native loader needs a real path; wazero only needs the bytes). A cache
// hit short-circuits both network and local-disk reads.
func fetch(rawURL, cachePath string, isRemote, useCache bool) ([]byte, string, error) {
	if useCache {
		if data, err := os.ReadFile(cachePath); err == nil {
			return data, cachePath, nil
		}
	}

	var data []byte
	if isRemote {
		downloaded, err := download(rawURL)
		if err != nil {
			return nil, "", err
		}
		data = downloaded
	} else {
		local, err := os.ReadFile(rawURL)
		if err != nil {
			return nil, "", fmt.Errorf("plugin: reading local plugin %s: %w", rawURL, err)
		}
		data = local
	}

	if err := os.MkdirAll(filepath.Dir(cachePath), 0o755); err != nil {
		return nil, "", fmt.Errorf("plugin: creating cache directory: %w", err)
	}
	if err := os.WriteFile(cachePath, data, 0o644); err != nil {
		return nil, "", fmt.Errorf("plugin: writing plugin cache entry: %w", err)
	}
	return data, cachePath, nil
}

func download(rawURL string) ([]byte, error) {
	resp, err := http.Get(rawURL)
	if err != nil {
		return nil, fmt.Errorf("plugin: fetching %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("plugin: fetching %s: unexpected status %s", rawURL, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("plugin: reading response body from %s: %w", rawURL, err)
	}
	return body, nil
}
