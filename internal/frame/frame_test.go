package frame

import (
	"bytes"
	stdbinary "encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/kelindar/binary"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aalhour/zcheck/internal/compression"
)

var payload = bytes.Repeat([]byte("Hello, WALI! This is a test of zlib compression in WebAssembly. "), 10)

func TestEncodeDecodeAllCodecs(t *testing.T) {
	for _, typ := range compression.All {
		t.Run(typ.String(), func(t *testing.T) {
			framed, err := Encode(typ, compression.DefaultLevel, payload)
			require.NoError(t, err)

			data, h, err := Decode(framed)
			require.NoError(t, err)
			assert.Equal(t, payload, data)
			assert.Equal(t, typ, h.Type())
			assert.Equal(t, Magic, h.Magic)
			assert.Equal(t, uint64(len(payload)), h.RawLen)
			assert.Equal(t, int8(compression.DefaultLevel), h.Level)
		})
	}
}

func TestDecodeDetectsBodyCorruption(t *testing.T) {
	framed, err := Encode(compression.NoCompression, compression.DefaultLevel, payload)
	require.NoError(t, err)

	framed[len(framed)-1] ^= 0xff

	_, _, err = Decode(framed)
	assert.ErrorIs(t, err, ErrChecksumMismatch)
}

func TestDecodeRejectsCorruptedCompressedBody(t *testing.T) {
	framed, err := Encode(compression.ZlibCompression, 6, payload)
	require.NoError(t, err)

	framed[len(framed)-2] ^= 0xff

	_, _, err = Decode(framed)
	assert.Error(t, err)
}

func TestDecodeBadMagic(t *testing.T) {
	header, err := binary.Marshal(Header{Magic: 0xdeadbeef, RawLen: 1, BodyLen: 1})
	require.NoError(t, err)

	framed := stdbinary.LittleEndian.AppendUint32(nil, uint32(len(header)))
	framed = append(framed, header...)
	framed = append(framed, 'x')

	_, _, err = Decode(framed)
	assert.ErrorIs(t, err, ErrBadMagic)
}

func rawFrame(t *testing.T, h Header, body []byte) []byte {
	t.Helper()
	header, err := binary.Marshal(h)
	require.NoError(t, err)

	framed := stdbinary.LittleEndian.AppendUint32(nil, uint32(len(header)))
	framed = append(framed, header...)
	return append(framed, body...)
}

func TestDecodeBodyLenLargerThanStream(t *testing.T) {
	framed := rawFrame(t, Header{Magic: Magic, RawLen: 4, BodyLen: 1 << 29}, []byte("abcd"))

	_, _, err := Decode(framed)
	assert.ErrorIs(t, err, ErrShortFrame)
}

func TestDecodeRejectsLengthsOverLimit(t *testing.T) {
	tests := []struct {
		name string
		h    Header
	}{
		{"body", Header{Magic: Magic, BodyLen: maxBodyLen + 1}},
		{"raw", Header{Magic: Magic, RawLen: maxRawLen + 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Decode(rawFrame(t, tt.h, nil))
			assert.ErrorIs(t, err, ErrLengthMismatch)
		})
	}
}

func TestDecodeStopsAtRawLen(t *testing.T) {
	body, err := compression.Compress(compression.ZlibCompression, payload)
	require.NoError(t, err)

	framed := rawFrame(t, Header{
		Magic:   Magic,
		Codec:   uint8(compression.ZlibCompression),
		RawLen:  16,
		BodyLen: uint64(len(body)),
	}, body)

	_, _, err = Decode(framed)
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestDecodeUnsupportedCodec(t *testing.T) {
	framed := rawFrame(t, Header{Magic: Magic, Codec: 42, RawLen: 1, BodyLen: 1}, []byte("x"))

	_, _, err := Decode(framed)
	assert.ErrorIs(t, err, compression.ErrUnsupported)
}

func TestDecodeTruncated(t *testing.T) {
	framed, err := Encode(compression.ZlibCompression, compression.DefaultLevel, payload)
	require.NoError(t, err)

	for _, n := range []int{0, 2, prefixLen, prefixLen + 3, len(framed) - 1} {
		_, _, err := Decode(framed[:n])
		assert.ErrorIs(t, err, ErrShortFrame, "length %d", n)
	}
}

func TestDecodeRejectsOversizedHeaderLength(t *testing.T) {
	_, _, err := Decode([]byte{0xff, 0xff, 0xff, 0x7f, 0, 0})
	assert.ErrorIs(t, err, ErrShortFrame)
}

func TestReadMultipleFrames(t *testing.T) {
	var buf bytes.Buffer
	blocks := [][]byte{[]byte("first"), payload, {}}

	for i, b := range blocks {
		_, err := Write(&buf, compression.ZstdCompression, 3, b)
		require.NoError(t, err, "block %d", i)
	}

	for i, want := range blocks {
		got, _, err := Read(&buf)
		require.NoError(t, err, "block %d", i)
		assert.Equal(t, len(want), len(got))
		assert.True(t, bytes.Equal(want, got), "block %d", i)
	}

	_, _, err := Read(&buf)
	assert.True(t, errors.Is(err, io.EOF))
}

func TestEncodeInvalidLevel(t *testing.T) {
	_, err := Encode(compression.ZlibCompression, 42, payload)
	assert.ErrorIs(t, err, compression.ErrInvalidLevel)
}
