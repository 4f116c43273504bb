package plugin

import (
	"encoding/binary"
	"testing"

	"github.com/foro-dev/foro/internal/flow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundtrip(t *testing.T) {
	input := flow.Context{flow.KeyTargetContent: "fn main() {}"}

	payload, err := encodeInput(input)
	require.NoError(t, err)

	buf := make([]byte, 8+len(payload))
	binary.LittleEndian.PutUint64(buf[:8], uint64(len(payload)))
	copy(buf[8:], payload)

	result, err := decodeResultBuffer(buf)
	require.NoError(t, err)
	assert.Equal(t, "fn main() {}", result[flow.KeyTargetContent])
}

func TestDecodeResultBufferTooShort(t *testing.T) {
	_, err := decodeResultBuffer([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestDecodeResultBufferLengthOverrun(t *testing.T) {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, 1000)
	_, err := decodeResultBuffer(buf)
	assert.Error(t, err)
}

func TestDecodeResultBufferPluginPanic(t *testing.T) {
	payload := []byte(`{"plugin-panic":"index out of bounds"}`)
	buf := make([]byte, 8+len(payload))
	binary.LittleEndian.PutUint64(buf[:8], uint64(len(payload)))
	copy(buf[8:], payload)

	_, err := decodeResultBuffer(buf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index out of bounds")
}
