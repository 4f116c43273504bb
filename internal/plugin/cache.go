package plugin

import (
	"context"
	"fmt"
	"sync"

	"github.com/foro-dev/foro/internal/flow"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

// Cache is the process-wide url -> Library mapping (spec.md §3, "In-memory
// plugin cache"). Its lifetime equals the daemon process; there is no
// eviction. A single wazero.Runtime is shared across every loaded WASM
// module so the WASI host functions only need registering once.
type Cache struct {
	mu      sync.Mutex
	libs    map[string]*Library
	wazero  wazero.Runtime
	wasiCtx context.Context
}

// NewCache constructs an empty cache with its own wazero runtime.
func NewCache(ctx context.Context) (*Cache, error) {
	rt := wazero.NewRuntime(ctx)
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("plugin: failed to instantiate WASI: %w", err)
	}
	return &Cache{
		libs:    make(map[string]*Library),
		wazero:  rt,
		wasiCtx: ctx,
	}, nil
}

// RunCached implements flow.PluginRunner: obtain a hot Library for url (or
// load and cache it), and invoke its entry point against input.
func (c *Cache) RunCached(ctx context.Context, url string, cacheDir string, useCache bool, input flow.Context) (flow.Context, error) {
	lib, err := c.get(ctx, url, cacheDir, useCache)
	if err != nil {
		return nil, err
	}
	return lib.Invoke(ctx, input)
}

func (c *Cache) get(ctx context.Context, url, cacheDir string, useCache bool) (*Library, error) {
	c.mu.Lock()
	if lib, ok := c.libs[url]; ok && useCache {
		c.mu.Unlock()
		return lib, nil
	}
	c.mu.Unlock()

	lib, err := Load(ctx, c.wazero, url, cacheDir, useCache)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.libs[url] = lib
	return lib, nil
}

// Close shuts down every cached library and the shared wazero runtime.
func (c *Cache) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for url, lib := range c.libs {
		if err := lib.Close(ctx); err != nil {
			return fmt.Errorf("plugin: closing %s: %w", url, err)
		}
	}
	return c.wazero.Close(ctx)
}

var _ flow.PluginRunner = (*Cache)(nil)
