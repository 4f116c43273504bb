//go:build tinygo.wasm

package sdk

import "unsafe"

// wasmAlign mirrors the host's wasiAlign (internal/plugin/wasm.go): the
// host always calls foro_malloc/foro_free with this alignment, so it's
// reused here rather than threading it through every call site.
const wasmAlign = 8

// allocations keeps every buffer handed out by foro_malloc reachable
// from Go's perspective for as long as the host holds the pointer.
// TinyGo's GC has no way to know the host is still looking at linear
// memory through a raw offset, so without this map a buffer could be
// collected between the malloc call and foro_main reading it.
var allocations = map[uint32][]byte{}

//export foro_malloc
func foroMalloc(size, align uint32) uint32 {
	n := size
	if n == 0 {
		n = 1
	}
	buf := make([]byte, n)
	ptr := uint32(uintptr(unsafe.Pointer(&buf[0])))
	allocations[ptr] = buf
	return ptr
}

//export foro_free
func foroFree(ptr, size, align uint32) {
	delete(allocations, ptr)
}

//export foro_main
func foroMain(ptr, length uint32) uint32 {
	input := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(ptr))), length)
	out := dispatch(input)

	outPtr := foroMalloc(uint32(len(out)), wasmAlign)
	copy(allocations[outPtr], out)
	return outPtr
}
