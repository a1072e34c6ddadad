package compression

import (
	"fmt"
	"io"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
)

// NewWriter returns a streaming compressor for t writing to w.
// Close must be called to flush the trailer; it does not close w.
//
// Snappy streams use the framed format, which differs from the block format
// produced by Compress.
func NewWriter(t Type, w io.Writer, level int) (io.WriteCloser, error) {
	if level < HuffmanOnly || level > BestCompression {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLevel, level)
	}

	switch t {
	case NoCompression:
		return nopWriteCloser{w}, nil

	case SnappyCompression:
		return snappy.NewBufferedWriter(w), nil

	case ZlibCompression:
		zw, err := zlib.NewWriterLevel(w, level)
		if err != nil {
			return nil, fmt.Errorf("zlib writer: %w", err)
		}
		return zw, nil

	case DeflateCompression:
		fw, err := flate.NewWriter(w, level)
		if err != nil {
			return nil, fmt.Errorf("deflate writer: %w", err)
		}
		return fw, nil

	case GzipCompression:
		gw, err := gzip.NewWriterLevel(w, level)
		if err != nil {
			return nil, fmt.Errorf("gzip writer: %w", err)
		}
		return gw, nil

	case LZ4Compression, LZ4HCCompression:
		lw := lz4.NewWriter(w)
		if err := lw.Apply(lz4.CompressionLevelOption(lz4Level(t, level))); err != nil {
			return nil, fmt.Errorf("lz4 apply level: %w", err)
		}
		return lw, nil

	case ZstdCompression:
		zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstdLevel(level)), zstd.WithZeroFrames(true))
		if err != nil {
			return nil, fmt.Errorf("zstd encoder: %w", err)
		}
		return zw, nil

	case XZCompression:
		xw, err := xz.NewWriter(w)
		if err != nil {
			return nil, fmt.Errorf("xz writer: %w", err)
		}
		return xw, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, t)
	}
}

// NewReader returns a streaming decompressor for t reading from r.
func NewReader(t Type, r io.Reader) (io.ReadCloser, error) {
	switch t {
	case NoCompression:
		return io.NopCloser(r), nil

	case SnappyCompression:
		return io.NopCloser(snappy.NewReader(r)), nil

	case ZlibCompression:
		zr, err := zlib.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("zlib reader: %w", err)
		}
		return zr, nil

	case DeflateCompression:
		return flate.NewReader(r), nil

	case GzipCompression:
		gr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		return gr, nil

	case LZ4Compression, LZ4HCCompression:
		return io.NopCloser(lz4.NewReader(r)), nil

	case ZstdCompression:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("zstd decoder: %w", err)
		}
		return zr.IOReadCloser(), nil

	case XZCompression:
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("xz reader: %w", err)
		}
		return io.NopCloser(xr), nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, t)
	}
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
