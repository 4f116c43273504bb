//go:build !tinygo.wasm

package sdk

// Non-WASM stand-ins for foro_malloc/foro_free/foro_main, used by this
// package's own tests and by a plugin author running `go test` against
// their handler without a TinyGo toolchain. There's no separate linear
// memory to simulate outside WASM, so these operate on ordinary Go
// byte slices keyed by a synthetic handle instead of unsafe.Pointer.

var (
	stubAllocations = map[uint32][]byte{}
	stubNextHandle  uint32 = 1
)

func foroMalloc(size, align uint32) uint32 {
	handle := stubNextHandle
	stubNextHandle++
	stubAllocations[handle] = make([]byte, size)
	return handle
}

func foroFree(ptr, size, align uint32) {
	delete(stubAllocations, ptr)
}

func foroMain(ptr, length uint32) uint32 {
	out := dispatch(stubAllocations[ptr])
	outHandle := foroMalloc(uint32(len(out)), 8)
	copy(stubAllocations[outHandle], out)
	return outHandle
}
