package plugin

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/foro-dev/foro/internal/flow"
)

// encodeInput serializes ctx to UTF-8 JSON for the foro_main call.
func encodeInput(ctx flow.Context) ([]byte, error) {
	data, err := json.Marshal(ctx)
	if err != nil {
		return nil, fmt.Errorf("plugin: encoding context: %w", err)
	}
	return data, nil
}

// decodeResultBuffer parses a foro_main return buffer laid out as 8
// little-endian bytes of payload length L followed by L bytes of UTF-8 JSON
// (spec.md §4.2, "WASM ABI"). It rejects a buffer shorter than the prefix or
// one claiming a length that overruns the bytes actually read.
func decodeResultBuffer(buf []byte) (flow.Context, error) {
	if len(buf) < 8 {
		return nil, fmt.Errorf("plugin: result buffer shorter than the 8-byte length prefix (%d bytes)", len(buf))
	}
	length := binary.LittleEndian.Uint64(buf[:8])
	if uint64(len(buf)-8) < length {
		return nil, fmt.Errorf("plugin: result claims length %d but only %d bytes were read", length, len(buf)-8)
	}
	payload := buf[8 : 8+length]

	var result flow.Context
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("plugin: result is not valid UTF-8 JSON: %w", err)
	}
	if panicMsg, ok := result[flow.KeyPluginPanic]; ok {
		if s, ok := panicMsg.(string); ok && s != "" {
			return nil, fmt.Errorf("plugin: plugin panicked: %s", s)
		}
	}
	return result, nil
}
