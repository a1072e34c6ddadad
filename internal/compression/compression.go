// Package compression provides compression and decompression for the codecs zcheck verifies.
//
// Each codec is selected by a 1-byte Type. The zlib family (zlib, raw deflate, gzip)
// accepts the classic -2..9 level range; zstd and LZ4 map that range onto their own
// level scales; snappy, xz and NoCompression ignore the level.
//
// The algorithms themselves live in the imported libraries. This package only
// normalizes their APIs behind Compress / Decompress and the streaming NewWriter / NewReader.
package compression

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Type represents a compression algorithm.
type Type uint8

const (
	// NoCompression passes data through unchanged.
	NoCompression Type = 0x0

	// SnappyCompression uses Google Snappy block compression.
	SnappyCompression Type = 0x1

	// ZlibCompression uses the zlib container (RFC 1950): 2-byte header,
	// deflate body, Adler32 trailer.
	ZlibCompression Type = 0x2

	// DeflateCompression uses raw deflate (RFC 1951) without a container.
	DeflateCompression Type = 0x3

	// LZ4Compression uses the LZ4 frame format at the fast level.
	LZ4Compression Type = 0x4

	// LZ4HCCompression uses the LZ4 frame format at a high compression level.
	LZ4HCCompression Type = 0x5

	// GzipCompression uses the gzip container (RFC 1952).
	GzipCompression Type = 0x6

	// ZstdCompression uses Zstandard.
	ZstdCompression Type = 0x7

	// XZCompression uses the xz container with LZMA2.
	XZCompression Type = 0x8
)

// Level bounds for the zlib family.
const (
	HuffmanOnly     = -2
	DefaultLevel    = -1
	StoredLevel     = 0
	BestSpeed       = 1
	BestCompression = 9
)

// ErrUnsupported is returned for a Type with no codec behind it.
var ErrUnsupported = errors.New("unsupported compression type")

// ErrInvalidLevel is returned when a level is outside HuffmanOnly..BestCompression.
var ErrInvalidLevel = errors.New("invalid compression level")

// ErrTooLarge is returned by DecompressLimit when the output exceeds the limit.
var ErrTooLarge = errors.New("decompressed data exceeds limit")

// All lists every supported type in Type order.
var All = []Type{
	NoCompression,
	SnappyCompression,
	ZlibCompression,
	DeflateCompression,
	LZ4Compression,
	LZ4HCCompression,
	GzipCompression,
	ZstdCompression,
	XZCompression,
}

// String returns the human-readable name of the compression type.
func (t Type) String() string {
	switch t {
	case NoCompression:
		return "NoCompression"
	case SnappyCompression:
		return "Snappy"
	case ZlibCompression:
		return "Zlib"
	case DeflateCompression:
		return "Deflate"
	case LZ4Compression:
		return "LZ4"
	case LZ4HCCompression:
		return "LZ4HC"
	case GzipCompression:
		return "Gzip"
	case ZstdCompression:
		return "ZSTD"
	case XZCompression:
		return "XZ"
	default:
		return fmt.Sprintf("Unknown(%d)", t)
	}
}

// IsSupported returns true if the compression type is supported.
func (t Type) IsSupported() bool {
	return t <= XZCompression
}

// SupportsLevel reports whether the level argument changes the output of t.
func (t Type) SupportsLevel() bool {
	switch t {
	case ZlibCompression, DeflateCompression, GzipCompression, ZstdCompression, LZ4Compression, LZ4HCCompression:
		return true
	default:
		return false
	}
}

// ParseType resolves a case-insensitive codec name such as "zlib" or "zstd".
func ParseType(name string) (Type, error) {
	for _, t := range All {
		if strings.EqualFold(t.String(), name) {
			return t, nil
		}
	}
	switch strings.ToLower(name) {
	case "none", "":
		return NoCompression, nil
	case "flate":
		return DeflateCompression, nil
	case "gz":
		return GzipCompression, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupported, name)
}

// CompressBound returns an upper bound on the zlib-compressed size of n bytes.
func CompressBound(n int) int {
	return n + (n >> 12) + (n >> 14) + (n >> 25) + 13
}

// Compress compresses data using the specified compression type at its default level.
func Compress(t Type, data []byte) ([]byte, error) {
	return CompressLevel(t, data, DefaultLevel)
}

// CompressLevel compresses data using the specified compression type and level.
func CompressLevel(t Type, data []byte, level int) ([]byte, error) {
	if level < HuffmanOnly || level > BestCompression {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLevel, level)
	}

	switch t {
	case NoCompression:
		return data, nil

	case SnappyCompression:
		return snappy.Encode(nil, data), nil

	case ZstdCompression:
		return compressZstd(data, level)

	case ZlibCompression, DeflateCompression, GzipCompression, LZ4Compression, LZ4HCCompression, XZCompression:
		var buf bytes.Buffer
		w, err := NewWriter(t, &buf, level)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(data); err != nil {
			_ = w.Close()
			return nil, fmt.Errorf("%s write: %w", t, err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("%s close: %w", t, err)
		}
		return buf.Bytes(), nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, t)
	}
}

// compressZstd compresses data using Zstandard.
func compressZstd(data []byte, level int) ([]byte, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstdLevel(level)), zstd.WithZeroFrames(true))
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	defer encoder.Close()
	return encoder.EncodeAll(data, nil), nil
}

func zstdLevel(level int) zstd.EncoderLevel {
	if level <= 0 {
		return zstd.SpeedDefault
	}
	return zstd.EncoderLevelFromZstd(level)
}

var lz4Levels = [...]lz4.CompressionLevel{
	lz4.Level1, lz4.Level2, lz4.Level3, lz4.Level4, lz4.Level5,
	lz4.Level6, lz4.Level7, lz4.Level8, lz4.Level9,
}

func lz4Level(t Type, level int) lz4.CompressionLevel {
	if level >= BestSpeed {
		return lz4Levels[level-1]
	}
	if t == LZ4HCCompression {
		return lz4.Level9
	}
	return lz4.Fast
}

// Decompress decompresses data using the specified compression type.
func Decompress(t Type, data []byte) ([]byte, error) {
	switch t {
	case NoCompression:
		return data, nil

	case SnappyCompression:
		out, err := snappy.Decode(nil, data)
		if err != nil {
			return nil, fmt.Errorf("snappy decode: %w", err)
		}
		return out, nil

	case ZstdCompression:
		return decompressZstd(data)

	case ZlibCompression, DeflateCompression, GzipCompression, LZ4Compression, LZ4HCCompression, XZCompression:
		r, err := NewReader(t, bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer func() { _ = r.Close() }()
		out, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("%s decompress: %w", t, err)
		}
		return out, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, t)
	}
}

// DecompressLimit decompresses data like Decompress but fails with ErrTooLarge
// as soon as the output would exceed limit bytes.
func DecompressLimit(t Type, data []byte, limit int) ([]byte, error) {
	if !t.IsSupported() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, t)
	}
	if limit < 0 {
		return nil, fmt.Errorf("%w: negative limit %d", ErrTooLarge, limit)
	}

	switch t {
	case NoCompression:
		if len(data) > limit {
			return nil, fmt.Errorf("%w: %d > %d", ErrTooLarge, len(data), limit)
		}
		return data, nil

	case SnappyCompression:
		n, err := snappy.DecodedLen(data)
		if err != nil {
			return nil, fmt.Errorf("snappy decode: %w", err)
		}
		if n > limit {
			return nil, fmt.Errorf("%w: %d > %d", ErrTooLarge, n, limit)
		}
		return Decompress(t, data)
	}

	r, err := NewReader(t, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()

	out, err := io.ReadAll(io.LimitReader(r, int64(limit)+1))
	if err != nil {
		return nil, fmt.Errorf("%s decompress: %w", t, err)
	}
	if len(out) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, limit)
	}
	return out, nil
}

// decompressZstd decompresses Zstandard data.
func decompressZstd(data []byte) ([]byte, error) {
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	defer decoder.Close()
	out, err := decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	return out, nil
}
