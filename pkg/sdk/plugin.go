// Package sdk is the plugin-author toolkit for building foro format
// plugins in Go, compiled to WebAssembly with TinyGo.
//
// A plugin is a single handler function registered from main():
//
//	func main() {
//	    sdk.Register(func(ctx sdk.Context) (sdk.Context, error) {
//	        content := ctx.String(sdk.KeyTargetContent)
//	        return sdk.Success(gofmtLike(content)), nil
//	    })
//	}
//
// Build with TinyGo targeting WASI:
//
//	tinygo build -o plugin.wasm -target=wasi -no-debug main.go
//
// The host calls into the plugin through three exported functions
// (foro_malloc, foro_free, foro_main) and never the other way around —
// unlike many WASM plugin SDKs, a foro plugin imports nothing from its
// host. Register, dispatch, and the Context helpers below are the whole
// surface a plugin author needs; wasm_exports.go wires them to the
// actual foro_malloc/foro_free/foro_main ABI when built with TinyGo.
package sdk

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
)

// Context is the mutable JSON object the host passes into a plugin and
// reads back out of it. It mirrors foro's own internal/flow.Context
// key-for-key since the two are serialized to and from the same wire
// format; a plugin module can't import foro's internal packages, so the
// shape is duplicated here rather than shared.
type Context map[string]any

const (
	KeyOSTarget         = "os-target"
	KeyWasmTarget       = "wasm-target"
	KeyCurrentDir       = "current-dir"
	KeyRawTarget        = "raw-target"
	KeyTargetContent    = "target-content"
	KeyFormatStatus     = "format-status"
	KeyFormattedContent = "formatted-content"
	KeyIgnoredReason    = "ignored-reason"
	KeyFormatError      = "format-error"
	KeyPluginPanic      = "plugin-panic"
)

const (
	StatusSuccess = "success"
	StatusIgnored = "ignored"
	StatusError   = "error"
)

// String reads a string-valued key, returning "" if absent or not a string.
func (c Context) String(key string) string {
	v, ok := c[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// Success builds the Context a plugin returns when it has formatted
// content successfully.
func Success(formattedContent string) Context {
	return Context{
		KeyFormatStatus:     StatusSuccess,
		KeyFormattedContent: formattedContent,
	}
}

// Ignored builds the Context a plugin returns when it chose not to
// format the target, along with a human-readable reason.
func Ignored(reason string) Context {
	return Context{
		KeyFormatStatus:  StatusIgnored,
		KeyIgnoredReason: reason,
	}
}

// Fail builds the Context a plugin returns when formatting failed for a
// reason that isn't a Go panic (a parse error, say). Prefer returning an
// error from the handler instead when the failure is unexpected; Fail is
// for an anticipated, reportable failure the handler wants to surface as
// plain data.
func Fail(err error) Context {
	return Context{
		KeyFormatStatus: StatusError,
		KeyFormatError:  err.Error(),
	}
}

// Handler is the single entry point a plugin registers. ctx carries the
// well-known keys above plus whatever the matched rule's command flow
// set along the way; the returned Context becomes the flow's new
// context, merged the same way any other command leaf's output is.
type Handler func(ctx Context) (Context, error)

var registeredHandler Handler

// Register installs h as the plugin's entry point. Call it once from
// main(); foro_main (wasm_exports.go) calls h for every invocation of
// this plugin instance for as long as the host keeps it cached.
func Register(h Handler) {
	registeredHandler = h
}

// GetRegisteredHandler returns the handler installed by Register, or nil
// if none has been registered yet. Exposed mainly so tests can drive
// dispatch without going through the WASM export machinery.
func GetRegisteredHandler() Handler {
	return registeredHandler
}

// dispatch is the build-tag-independent core of foro_main: decode the
// incoming JSON context, run the registered handler with panics
// contained, and re-encode the result as a length-prefixed buffer
// (spec.md §4.2, "WASM ABI"). wasm_exports.go and wasm_stubs.go each
// wrap this with their own memory-pointer plumbing.
func dispatch(input []byte) []byte {
	var ctx Context
	if err := json.Unmarshal(input, &ctx); err != nil {
		return encodeResult(panicResult(fmt.Sprintf("decoding input context: %v", err)))
	}

	handler := registeredHandler
	if handler == nil {
		return encodeResult(panicResult("no handler registered; call sdk.Register from main()"))
	}

	return encodeResult(invoke(handler, ctx))
}

// invoke runs h and converts a recovered panic into the same
// plugin-panic shape foro's host already knows how to detect
// (internal/plugin/abi.go's decodeResultBuffer), so a plugin author's
// bug surfaces as a formatting error rather than taking the whole
// runtime down with it.
func invoke(h Handler, ctx Context) (result Context) {
	defer func() {
		if r := recover(); r != nil {
			result = panicResult(fmt.Sprintf("%v", r))
		}
	}()

	out, err := h(ctx)
	if err != nil {
		return panicResult(err.Error())
	}
	return out
}

func panicResult(message string) Context {
	return Context{KeyPluginPanic: message}
}

// encodeResult serializes ctx and prefixes it with the 8-byte
// little-endian payload length the host expects to read back.
func encodeResult(ctx Context) []byte {
	payload, err := json.Marshal(ctx)
	if err != nil {
		payload, _ = json.Marshal(panicResult(fmt.Sprintf("encoding result: %v", err)))
	}

	var buf bytes.Buffer
	buf.Grow(8 + len(payload))
	var lengthPrefix [8]byte
	binary.LittleEndian.PutUint64(lengthPrefix[:], uint64(len(payload)))
	buf.Write(lengthPrefix[:])
	buf.Write(payload)
	return buf.Bytes()
}

// decodeResult is encodeResult's inverse, used by this package's own
// tests to assert on a foro_main return buffer without a real wasm
// runtime to read linear memory through.
func decodeResult(buf []byte) (Context, error) {
	if len(buf) < 8 {
		return nil, fmt.Errorf("sdk: result buffer shorter than the 8-byte length prefix (%d bytes)", len(buf))
	}
	length := binary.LittleEndian.Uint64(buf[:8])
	if uint64(len(buf)-8) < length {
		return nil, fmt.Errorf("sdk: result claims length %d but only %d bytes were read", length, len(buf)-8)
	}
	var result Context
	if err := json.Unmarshal(buf[8:8+length], &result); err != nil {
		return nil, fmt.Errorf("sdk: result is not valid JSON: %w", err)
	}
	return result, nil
}
