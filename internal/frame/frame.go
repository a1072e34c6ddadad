// Package frame encodes self-describing compressed blocks.
//
// A frame is laid out as:
//
//	[4-byte little-endian header length][header][compressed body]
//
// The header is marshaled with github.com/kelindar/binary and records the codec, the
// level, the raw and body lengths, and the masked CRC32C of the raw bytes, so a frame
// can be decoded and verified without out-of-band metadata.
package frame

import (
	"bytes"
	stdbinary "encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/kelindar/binary"

	"github.com/aalhour/zcheck/internal/checksum"
	"github.com/aalhour/zcheck/internal/compression"
)

// Magic identifies a frame header ("ZCKF").
const Magic uint32 = 0x464b435a

// prefixLen is the size of the header length prefix.
const prefixLen = 4

// Bounds accepted by Read before allocating.
const (
	maxHeaderLen = 64
	maxBodyLen   = 1 << 30
	maxRawLen    = 1 << 30
)

var (
	ErrBadMagic         = errors.New("frame: bad magic")
	ErrShortFrame       = errors.New("frame: short frame")
	ErrChecksumMismatch = errors.New("frame: checksum mismatch")
	ErrLengthMismatch   = errors.New("frame: length mismatch")
)

// Header describes one frame.
type Header struct {
	Magic   uint32
	Codec   uint8
	Level   int8
	RawLen  uint64
	BodyLen uint64
	CRC     uint32
}

// Type returns the compression type recorded in the header.
func (h Header) Type() compression.Type {
	return compression.Type(h.Codec)
}

// Encode compresses data with t at level and returns the framed bytes.
func Encode(t compression.Type, level int, data []byte) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := Write(&buf, t, level, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write compresses data with t at level and writes one frame to w.
// It returns the number of bytes written.
func Write(w io.Writer, t compression.Type, level int, data []byte) (int, error) {
	body, err := compression.CompressLevel(t, data, level)
	if err != nil {
		return 0, fmt.Errorf("frame: compress: %w", err)
	}

	header, err := binary.Marshal(Header{
		Magic:   Magic,
		Codec:   uint8(t),
		Level:   int8(level),
		RawLen:  uint64(len(data)),
		BodyLen: uint64(len(body)),
		CRC:     checksum.MaskedValue(data),
	})
	if err != nil {
		return 0, fmt.Errorf("frame: marshal header: %w", err)
	}

	var prefix [prefixLen]byte
	stdbinary.LittleEndian.PutUint32(prefix[:], uint32(len(header)))

	n := 0
	for _, part := range [][]byte{prefix[:], header, body} {
		m, err := w.Write(part)
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// Decode parses a single frame held entirely in b.
func Decode(b []byte) ([]byte, Header, error) {
	data, h, err := Read(bytes.NewReader(b))
	if err == io.EOF {
		err = ErrShortFrame
	}
	return data, h, err
}

// Read reads, decompresses and verifies one frame from r.
// It returns io.EOF only when r is exhausted before the first byte of a frame.
func Read(r io.Reader) ([]byte, Header, error) {
	var h Header

	var prefix [prefixLen]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			return nil, h, ErrShortFrame
		}
		return nil, h, err
	}
	hlen := stdbinary.LittleEndian.Uint32(prefix[:])
	if hlen == 0 || hlen > maxHeaderLen {
		return nil, h, fmt.Errorf("%w: header length %d", ErrShortFrame, hlen)
	}

	header := make([]byte, hlen)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, h, fmt.Errorf("%w: header: %v", ErrShortFrame, err)
	}
	if err := binary.Unmarshal(header, &h); err != nil {
		return nil, h, fmt.Errorf("frame: unmarshal header: %w", err)
	}
	if h.Magic != Magic {
		return nil, h, fmt.Errorf("%w: 0x%08x", ErrBadMagic, h.Magic)
	}

	if !h.Type().IsSupported() {
		return nil, h, fmt.Errorf("frame: %w", compression.ErrUnsupported)
	}
	if h.BodyLen > maxBodyLen || h.RawLen > maxRawLen {
		return nil, h, fmt.Errorf("%w: body %d raw %d", ErrLengthMismatch, h.BodyLen, h.RawLen)
	}

	// BodyLen is not trusted for allocation; the buffer grows as bytes arrive.
	var body bytes.Buffer
	if _, err := io.CopyN(&body, r, int64(h.BodyLen)); err != nil {
		return nil, h, fmt.Errorf("%w: body: %v", ErrShortFrame, err)
	}

	data, err := compression.DecompressLimit(h.Type(), body.Bytes(), int(h.RawLen))
	if errors.Is(err, compression.ErrTooLarge) {
		return nil, h, fmt.Errorf("%w: more than %d raw bytes", ErrLengthMismatch, h.RawLen)
	}
	if err != nil {
		return nil, h, fmt.Errorf("frame: decompress: %w", err)
	}
	if uint64(len(data)) != h.RawLen {
		return nil, h, fmt.Errorf("%w: got %d bytes, header says %d", ErrLengthMismatch, len(data), h.RawLen)
	}
	if got, want := checksum.Value(data), checksum.Unmask(h.CRC); got != want {
		return nil, h, fmt.Errorf("%w: got 0x%08x, want 0x%08x", ErrChecksumMismatch, got, want)
	}
	return data, h, nil
}
