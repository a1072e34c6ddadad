package suite

import (
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/aalhour/zcheck/internal/checksum"
	"github.com/aalhour/zcheck/internal/compression"
)

// Config selects which checks Checks returns.
type Config struct {
	// Codec used by the round-trip, levels and framed checks. The zero value is
	// NoCompression, so callers normally set ZlibCompression.
	Codec compression.Type
	// Extended appends the extended checks after the four default ones.
	Extended bool
	// Tamper, when set, corrupts the compressed buffer in the round-trip check.
	Tamper func([]byte) []byte
	// Fs and Dir locate the gzip file check. Fs defaults to an in-memory filesystem
	// and Dir to a directory under os.TempDir().
	Fs  afero.Fs
	Dir string
	// Checksums lists the types printed by the checksum matrix check.
	// Nil means checksum.All.
	Checksums []checksum.Type
}

// DefaultConfig returns the zlib configuration with only the four default checks.
func DefaultConfig() Config {
	return Config{Codec: compression.ZlibCompression}
}

// Checks returns the ordered check list for cfg.
func Checks(cfg Config) []Check {
	checks := []Check{
		RoundTrip(cfg.Codec, cfg.Tamper),
		CRC32Check(),
		Adler32Check(),
		LevelsCheck(cfg.Codec),
	}
	if !cfg.Extended {
		return checks
	}

	fs := cfg.Fs
	if fs == nil {
		fs = afero.NewMemMapFs()
	}
	sums := cfg.Checksums
	if sums == nil {
		sums = checksum.All
	}
	dir := cfg.Dir
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "zcheck")
	}

	return append(checks,
		DeflateStreamCheck(),
		GzipFileCheck(fs, dir),
		CodecMatrixCheck(),
		FramedBlocksCheck(cfg.Codec),
		ChecksumExtendCheck(),
		ChecksumMatrixCheck(sums),
	)
}

// TruncateTamper returns a tamper func that drops the last n bytes of its input.
func TruncateTamper(n int) func([]byte) []byte {
	return func(b []byte) []byte {
		if n >= len(b) {
			return b[:0]
		}
		return b[:len(b)-n]
	}
}
