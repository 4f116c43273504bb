package plugin

import (
	"context"
	"fmt"
	"plugin"
	"unsafe"

	"github.com/foro-dev/foro/internal/flow"
)

// nativeLibrary is the shared-library branch of Library (spec.md §4.2,
// native plugin ABI; Go rendition recorded in SPEC_FULL.md §4.10). Go's
// plugin package loads the .so into the host's own address space, so the
// pointer/length ABI below is a same-process convention, not a real FFI
// boundary — it exists only so native and WASM plugins can be authored
// against the identical contract.
type nativeLibrary struct {
	handle *plugin.Plugin
	main   func(ptr uintptr, length uint64) uint64
}

// loadNative opens the shared library at path and resolves its ForoMain
// symbol (var ForoMain func(ptr uintptr, length uint64) uint64).
func loadNative(path string) (*Library, error) {
	h, err := plugin.Open(path)
	if err != nil {
		return nil, fmt.Errorf("plugin: opening native library %s: %w", path, err)
	}

	sym, err := h.Lookup("ForoMain")
	if err != nil {
		return nil, fmt.Errorf("plugin: native library %s does not export ForoMain: %w", path, err)
	}

	fnPtr, ok := sym.(*func(ptr uintptr, length uint64) uint64)
	if !ok {
		return nil, fmt.Errorf("plugin: native library %s: ForoMain has the wrong signature", path)
	}

	return &Library{Native: &nativeLibrary{handle: h, main: *fnPtr}}, nil
}

func (n *nativeLibrary) invoke(_ context.Context, input flow.Context) (flow.Context, error) {
	payload, err := encodeInput(input)
	if err != nil {
		return nil, err
	}

	var inPtr uintptr
	if len(payload) > 0 {
		inPtr = uintptr(unsafe.Pointer(&payload[0]))
	}

	outPtr := n.main(inPtr, uint64(len(payload)))
	if outPtr == 0 {
		return nil, fmt.Errorf("plugin: native ForoMain returned a null result pointer")
	}

	prefix := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(outPtr))), 8)
	length := leUint64(prefix)
	full := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(outPtr))), 8+length)

	// Copy out of plugin-owned memory before decoding; the plugin is free to
	// reuse or release its output buffer as soon as this call returns.
	buf := make([]byte, len(full))
	copy(buf, full)

	return decodeResultBuffer(buf)
}
