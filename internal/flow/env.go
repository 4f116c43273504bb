package flow

import "context"

// PluginRunner loads (or reuses a cached) plugin for url and invokes its
// entry point against input, returning the plugin's result context
// (spec.md §4.2, "run_cached"). internal/plugin implements this interface.
type PluginRunner interface {
	RunCached(ctx context.Context, url string, cacheDir string, useCache bool, input Context) (Context, error)
}

// Env carries the dependencies the interpreter needs beyond the context
// itself: where to cache plugins and how to invoke them.
type Env struct {
	CacheDir string
	UseCache bool
	Plugins  PluginRunner
}
