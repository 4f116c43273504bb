// Package plugin implements the plugin loader and in-memory instance cache
// (spec.md §4.2): a WASI host backed by wazero for WebAssembly modules, and
// a native loader for shared libraries honoring the same foro_main ABI.
package plugin

import (
	"context"
	"fmt"

	"github.com/foro-dev/foro/internal/flow"
)

// Library is a tagged variant over the two plugin backends (spec.md §9,
// "Dynamic dispatch over plugin ABI"). Exactly one of Wasm or Native is
// populated.
type Library struct {
	Wasm   *wasmLibrary
	Native *nativeLibrary
}

// Invoke runs the plugin's entry point against input and returns its
// result context, selecting the populated branch.
func (l *Library) Invoke(ctx context.Context, input flow.Context) (flow.Context, error) {
	switch {
	case l.Wasm != nil:
		return l.Wasm.invoke(ctx, input)
	case l.Native != nil:
		return l.Native.invoke(ctx, input)
	default:
		return nil, fmt.Errorf("plugin: empty Library")
	}
}

// Close releases any resources the library holds (a WASM module instance,
// or — for native libraries — nothing, since Go's plugin package offers no
// unload primitive).
func (l *Library) Close(ctx context.Context) error {
	if l.Wasm != nil {
		return l.Wasm.close(ctx)
	}
	return nil
}
