package plugin

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/foro-dev/foro/internal/flow"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// wasiAlign is the alignment foro_malloc/foro_free are called with; plugins
// are free to ignore it, but the host must supply a value, so it uses the
// machine word size like the original Rust host does via `std::mem::align_of`.
const wasiAlign = 8

// wasmLibrary is the Wasm branch of Library. A single module instance is
// kept alive for the cache entry's lifetime; invoke is serialized by mu
// because the module's linear memory (its "store") is not safely shared
// across concurrent calls (spec.md §3, "A WASM plugin instance is driven
// from at most one thread at a time").
type wasmLibrary struct {
	mu     sync.Mutex
	module api.Module
	malloc api.Function
	free   api.Function
	main   api.Function
}

// loadWasm compiles wasmBytes and instantiates it once, preopening "/" with
// full read/write access so the plugin can resolve wasm-target paths
// (spec.md §4.2, "WASI surface").
func loadWasm(ctx context.Context, rt wazero.Runtime, url string, wasmBytes []byte) (*Library, error) {
	compiled, err := rt.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, fmt.Errorf("plugin: compiling wasm module: %w", err)
	}

	fsConfig := wazero.NewFSConfig().WithDirMount("/", "/")
	cfg := wazero.NewModuleConfig().
		WithFSConfig(fsConfig).
		WithStdin(os.Stdin).
		WithStdout(os.Stdout).
		WithStderr(os.Stderr).
		WithName(instanceName(url))
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			cfg = cfg.WithEnv(k, v)
		}
	}

	instance, err := rt.InstantiateModule(ctx, compiled, cfg)
	if err != nil {
		return nil, fmt.Errorf("plugin: instantiating wasm module: %w", err)
	}

	if initFn := instance.ExportedFunction("_initialize"); initFn != nil {
		if _, err := initFn.Call(ctx); err != nil {
			return nil, fmt.Errorf("plugin: _initialize failed: %w", err)
		}
	}

	malloc := instance.ExportedFunction("foro_malloc")
	free := instance.ExportedFunction("foro_free")
	main := instance.ExportedFunction("foro_main")
	if malloc == nil || free == nil || main == nil {
		instance.Close(ctx)
		return nil, fmt.Errorf("plugin: module does not export foro_malloc/foro_free/foro_main")
	}

	return &Library{Wasm: &wasmLibrary{module: instance, malloc: malloc, free: free, main: main}}, nil
}

func instanceName(url string) string {
	h := sha256.Sum256([]byte(url))
	return hex.EncodeToString(h[:])[:16]
}

func (w *wasmLibrary) invoke(ctx context.Context, input flow.Context) (flow.Context, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	payload, err := encodeInput(input)
	if err != nil {
		return nil, err
	}

	allocResult, err := w.malloc.Call(ctx, uint64(len(payload)), wasiAlign)
	if err != nil || len(allocResult) == 0 {
		return nil, fmt.Errorf("plugin: foro_malloc failed: %w", err)
	}
	inPtr := allocResult[0]

	mem := w.module.Memory()
	if !mem.Write(uint32(inPtr), payload) {
		return nil, fmt.Errorf("plugin: failed to write input to plugin memory")
	}

	mainResult, err := w.main.Call(ctx, inPtr, uint64(len(payload)))
	if err != nil || len(mainResult) == 0 {
		return nil, fmt.Errorf("plugin: foro_main failed: %w", err)
	}
	outPtr := mainResult[0]

	if _, err := w.free.Call(ctx, inPtr, uint64(len(payload)), wasiAlign); err != nil {
		return nil, fmt.Errorf("plugin: foro_free (input) failed: %w", err)
	}

	prefix, ok := mem.Read(uint32(outPtr), 8)
	if !ok {
		return nil, fmt.Errorf("plugin: result pointer out of bounds")
	}
	length := leUint64(prefix)
	full, ok := mem.Read(uint32(outPtr), uint32(8+length))
	if !ok {
		return nil, fmt.Errorf("plugin: result claims length %d beyond linear memory", length)
	}

	result, decodeErr := decodeResultBuffer(full)

	if _, err := w.free.Call(ctx, outPtr, uint64(8+length), wasiAlign); err != nil && decodeErr == nil {
		return nil, fmt.Errorf("plugin: foro_free (output) failed: %w", err)
	}
	return result, decodeErr
}

func leUint64(b []byte) uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

func (w *wasmLibrary) close(ctx context.Context) error {
	return w.module.Close(ctx)
}
