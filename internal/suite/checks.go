package suite

import (
	"bytes"
	"context"

	"github.com/aalhour/zcheck/internal/checksum"
	"github.com/aalhour/zcheck/internal/compression"
)

// Embedded test data.
const (
	RoundTripText   = "Hello, WALI! This is a test of zlib compression in WebAssembly. "
	RoundTripRepeat = 10

	ChecksumText = "Hello, WALI!"

	LevelsText   = "Test data for compression levels "
	LevelsRepeat = 50
)

// Levels are the compression levels reported by the levels check.
var Levels = []int{1, 6, 9}

// hexDumpBytes is how many compressed bytes the round-trip check dumps in verbose mode.
const hexDumpBytes = 32

// Section names of the default checks, in run order.
const (
	NameRoundTrip = "Compress/Decompress"
	NameCRC32     = "CRC32"
	NameAdler32   = "Adler32"
	NameLevels    = "Compression Levels"
)

// RoundTripPayload returns a fresh copy of the round-trip payload.
func RoundTripPayload() []byte {
	return bytes.Repeat([]byte(RoundTripText), RoundTripRepeat)
}

// LevelsPayload returns a fresh copy of the levels payload.
func LevelsPayload() []byte {
	return bytes.Repeat([]byte(LevelsText), LevelsRepeat)
}

// RoundTrip returns the compress/decompress check for codec.
// When tamper is non-nil it is applied to the compressed bytes before decompression.
func RoundTrip(codec compression.Type, tamper func([]byte) []byte) Check {
	return Check{
		Name: NameRoundTrip,
		Run: func(_ context.Context, r *Reporter) (bool, error) {
			original := RoundTripPayload()
			r.Printf("Original size: %d bytes", len(original))

			compressed, err := compression.Compress(codec, original)
			if err != nil {
				return false, err
			}
			r.Printf("Compressed size: %d bytes", len(compressed))
			r.Printf("Compression ratio: %.2f%%", ratio(len(compressed), len(original)))
			if r.Verbose() {
				r.Printf("Compressed data: %s", HexPrefix(compressed, hexDumpBytes))
			}

			if tamper != nil {
				compressed = tamper(compressed)
			}

			decompressed, err := compression.Decompress(codec, compressed)
			if err != nil {
				return false, err
			}
			r.Printf("Decompressed size: %d bytes", len(decompressed))

			if !bytes.Equal(original, decompressed) {
				r.Printf("FAILURE: Data mismatch!")
				return false, nil
			}
			r.Printf("SUCCESS: Original and decompressed data match!")
			return true, nil
		},
	}
}

// CRC32Check reports the CRC32 of ChecksumText. It always passes.
func CRC32Check() Check {
	return checksumCheck(NameCRC32, checksum.TypeCRC32)
}

// Adler32Check reports the Adler32 of ChecksumText. It always passes.
func Adler32Check() Check {
	return checksumCheck(NameAdler32, checksum.TypeAdler32)
}

func checksumCheck(name string, t checksum.Type) Check {
	return Check{
		Name: name,
		Run: func(_ context.Context, r *Reporter) (bool, error) {
			data := []byte(ChecksumText)
			sum := checksum.Compute(t, data)
			r.Printf("%s of '%s': %s", t, data, checksum.Format(t, sum))
			return true, nil
		},
	}
}

// LevelsCheck compresses LevelsPayload at each of Levels and reports sizes.
// It passes unless the codec returns an error.
func LevelsCheck(codec compression.Type) Check {
	return Check{
		Name: NameLevels,
		Run: func(_ context.Context, r *Reporter) (bool, error) {
			data := LevelsPayload()
			r.Printf("Testing compression levels on %d bytes:", len(data))
			if !codec.SupportsLevel() {
				r.Printf("Note: %s ignores the compression level", codec)
			}

			for _, level := range Levels {
				compressed, err := compression.CompressLevel(codec, data, level)
				if err != nil {
					return false, err
				}
				r.Printf("  Level %d: %d bytes (%.1f%%)", level, len(compressed), ratio(len(compressed), len(data)))
			}
			return true, nil
		},
	}
}

func ratio(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}
