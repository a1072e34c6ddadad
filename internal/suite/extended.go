package suite

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"

	"github.com/aalhour/zcheck/internal/checksum"
	"github.com/aalhour/zcheck/internal/compression"
	"github.com/aalhour/zcheck/internal/frame"
	"github.com/aalhour/zcheck/internal/logging"
)

// Section names of the extended checks, in run order.
const (
	NameDeflateStream  = "Deflate/Inflate Stream"
	NameGzipFile       = "Gzip File I/O"
	NameCodecMatrix    = "Codec Matrix"
	NameFramedBlocks   = "Framed Blocks"
	NameChecksumExtend = "Checksum Extend"
	NameChecksumMatrix = "Checksum Matrix"
)

// StreamText is the input of the deflate/inflate stream check.
const StreamText = "WALI zlib stream test - testing deflate and inflate APIs"

// DeflateStreamCheck round-trips StreamText through the streaming raw deflate API.
func DeflateStreamCheck() Check {
	return Check{
		Name: NameDeflateStream,
		Run: func(_ context.Context, r *Reporter) (bool, error) {
			input := []byte(StreamText)
			r.Printf("Input: %q", input)
			r.Printf("Input size: %d bytes", len(input))

			var deflated bytes.Buffer
			w, err := compression.NewWriter(compression.DeflateCompression, &deflated, compression.DefaultLevel)
			if err != nil {
				return false, err
			}
			if _, err := w.Write(input); err != nil {
				return false, fmt.Errorf("deflate: %w", err)
			}
			if err := w.Close(); err != nil {
				return false, fmt.Errorf("deflate close: %w", err)
			}
			r.Printf("Deflated size: %d bytes", deflated.Len())

			rd, err := compression.NewReader(compression.DeflateCompression, &deflated)
			if err != nil {
				return false, err
			}
			defer func() { _ = rd.Close() }()

			inflated, err := io.ReadAll(rd)
			if err != nil {
				return false, fmt.Errorf("inflate: %w", err)
			}
			r.Printf("Inflated size: %d bytes", len(inflated))
			r.Printf("Inflated: %q", inflated)

			if !bytes.Equal(input, inflated) {
				r.Printf("FAILURE: Data mismatch after round-trip")
				return false, nil
			}
			r.Printf("SUCCESS: Deflate/Inflate round-trip successful!")
			return true, nil
		},
	}
}

// CodecMatrixCheck round-trips the round-trip payload through every supported codec.
func CodecMatrixCheck() Check {
	return Check{
		Name: NameCodecMatrix,
		Run: func(_ context.Context, r *Reporter) (bool, error) {
			original := RoundTripPayload()
			ok := true
			for _, t := range compression.All {
				compressed, err := compression.Compress(t, original)
				if err != nil {
					return false, fmt.Errorf("%s: %w", t, err)
				}
				decompressed, err := compression.Decompress(t, compressed)
				if err != nil {
					return false, fmt.Errorf("%s: %w", t, err)
				}
				status := "ok"
				if !bytes.Equal(original, decompressed) {
					status = "MISMATCH"
					ok = false
				}
				if bounded(t) && len(compressed) > compression.CompressBound(len(original)) {
					status = "OVER BOUND"
					ok = false
				}
				r.Printf("  %-13s %8s -> %-8s (%5.1f%%) %s", t,
					humanize.Bytes(uint64(len(original))), humanize.Bytes(uint64(len(compressed))),
					ratio(len(compressed), len(original)), status)
			}
			if !ok {
				r.Printf("FAILURE: Data mismatch!")
			}
			return ok, nil
		},
	}
}

// bounded reports whether CompressBound applies to t.
func bounded(t compression.Type) bool {
	return t == compression.ZlibCompression || t == compression.DeflateCompression
}

// FramedBlocksCheck encodes the payload into a frame, decodes it, and verifies that a
// corrupted frame is rejected.
func FramedBlocksCheck(codec compression.Type) Check {
	return Check{
		Name: NameFramedBlocks,
		Run: func(_ context.Context, r *Reporter) (bool, error) {
			original := RoundTripPayload()
			logger := r.Logger()

			framed, err := frame.Encode(codec, compression.DefaultLevel, original)
			if err != nil {
				return false, err
			}
			decoded, h, err := frame.Decode(framed)
			if err != nil {
				return false, err
			}
			r.Printf("Frame: codec=%s raw=%d body=%d total=%d crc=0x%08x",
				h.Type(), h.RawLen, h.BodyLen, len(framed), h.CRC)
			logger.Debugf("%sdecoded %s frame: %d -> %d bytes", logging.NSFrame, h.Type(), h.BodyLen, h.RawLen)
			if !bytes.Equal(original, decoded) {
				r.Printf("FAILURE: Data mismatch!")
				return false, nil
			}

			stored, err := frame.Encode(compression.NoCompression, compression.DefaultLevel, original)
			if err != nil {
				return false, err
			}
			stored[len(stored)-1] ^= 0xff
			_, _, err = frame.Decode(stored)
			if !errors.Is(err, frame.ErrChecksumMismatch) {
				r.Printf("FAILURE: corrupted frame not rejected (err=%v)", err)
				return false, nil
			}
			logger.Debugf("%s%v", logging.NSFrame, err)
			r.Printf("Corrupted frame rejected")

			r.Printf("SUCCESS: Framed round-trip successful!")
			return true, nil
		},
	}
}

// ChecksumExtendCheck verifies that chunked CRC32/Adler32 updates match one-shot values.
func ChecksumExtendCheck() Check {
	return Check{
		Name: NameChecksumExtend,
		Run: func(_ context.Context, r *Reporter) (bool, error) {
			data := []byte(ChecksumText)
			r.Printf("Initial CRC32: %d", checksum.InitialCRC32)
			r.Printf("Initial Adler32: %d", checksum.InitialAdler32)

			crc, adler, crcc := checksum.InitialCRC32, checksum.InitialAdler32, uint32(0)
			for _, chunk := range bytes.SplitAfter(data, []byte(" ")) {
				crc = checksum.ExtendCRC32(crc, chunk)
				adler = checksum.ExtendAdler32(adler, chunk)
				crcc = checksum.Extend(crcc, chunk)
			}

			wantCRC, wantAdler, wantCRCC := checksum.CRC32(data), checksum.Adler32(data), checksum.Value(data)
			r.Printf("CRC32 extended: 0x%08x, one-shot: 0x%08x", crc, wantCRC)
			r.Printf("Adler32 extended: 0x%08x, one-shot: 0x%08x", adler, wantAdler)
			r.Printf("CRC32C extended: 0x%08x, one-shot: 0x%08x", crcc, wantCRCC)

			if crc != wantCRC || adler != wantAdler || crcc != wantCRCC {
				r.Printf("FAILURE: extended checksum differs from one-shot")
				return false, nil
			}
			r.Printf("SUCCESS: Extended checksums match!")
			return true, nil
		},
	}
}

// ChecksumMatrixCheck prints every checksum in types over ChecksumText and over
// the round-trip payload. It verifies that each type's name parses back to the
// type and that the result does not change between two computations.
func ChecksumMatrixCheck(types []checksum.Type) Check {
	return Check{
		Name: NameChecksumMatrix,
		Run: func(_ context.Context, r *Reporter) (bool, error) {
			inputs := []struct {
				label string
				data  []byte
			}{
				{fmt.Sprintf("'%s'", ChecksumText), []byte(ChecksumText)},
				{"payload", RoundTripPayload()},
			}
			for _, t := range types {
				parsed, err := checksum.ParseType(t.String())
				if err != nil {
					return false, err
				}
				if parsed != t {
					r.Printf("FAILURE: %s parsed as %s", t, parsed)
					return false, nil
				}
				for _, in := range inputs {
					sum := checksum.Compute(t, in.data)
					if again := checksum.Compute(t, in.data); again != sum {
						r.Printf("FAILURE: %s not deterministic", t)
						return false, nil
					}
					r.Printf("  %-8s %-16s %s", t, in.label, checksum.Format(t, sum))
				}
			}
			r.Printf("SUCCESS: %d checksum types computed", len(types))
			return true, nil
		},
	}
}
