// Package bench measures compression and checksum throughput.
//
// The payload is deterministic printable ASCII so runs are comparable across
// machines and builds. Compress and decompress are timed over Iterations calls;
// the checksums, being much cheaper, over Iterations*ChecksumFactor calls.
package bench

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/aalhour/zcheck/internal/checksum"
	"github.com/aalhour/zcheck/internal/compression"
	"github.com/aalhour/zcheck/internal/logging"
)

// Defaults for Options.
const (
	DefaultSize           = 64 * 1024
	DefaultIterations     = 100
	DefaultChecksumFactor = 10
)

// ErrIntegrity is returned when the benchmarked round trip does not reproduce the input.
var ErrIntegrity = errors.New("bench: decompressed data does not match input")

// Options configures a benchmark run.
type Options struct {
	Codec          compression.Type
	Level          int
	Size           int
	Iterations     int
	ChecksumFactor int
	Logger         logging.Logger
}

// DefaultOptions returns the zlib benchmark over 64 KiB and 100 iterations.
func DefaultOptions() Options {
	return Options{
		Codec:          compression.ZlibCompression,
		Level:          compression.DefaultLevel,
		Size:           DefaultSize,
		Iterations:     DefaultIterations,
		ChecksumFactor: DefaultChecksumFactor,
	}
}

// Measurement is the timing of one operation.
type Measurement struct {
	Name    string
	Elapsed time.Duration
	Bytes   int64
}

// Throughput returns the processed bytes per second.
func (m Measurement) Throughput() float64 {
	if m.Elapsed <= 0 {
		return 0
	}
	return float64(m.Bytes) / m.Elapsed.Seconds()
}

// MBps returns the throughput in MiB/s.
func (m Measurement) MBps() float64 {
	return m.Throughput() / (1024 * 1024)
}

// Report is the result of Run.
type Report struct {
	Options        Options
	Measurements   []Measurement
	CompressedSize int
	Intact         bool
}

// Ratio returns the compressed size as a percentage of the input size.
func (r Report) Ratio() float64 {
	if r.Options.Size == 0 {
		return 0
	}
	return 100 * float64(r.CompressedSize) / float64(r.Options.Size)
}

// GenerateData returns n bytes of deterministic printable ASCII.
func GenerateData(n int) []byte {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = byte((i*7+i/13)%95 + 32)
	}
	return buf
}

// Run executes the benchmark. It checks ctx between operations.
func Run(ctx context.Context, opts Options) (Report, error) {
	if opts.Size < 0 || opts.Iterations <= 0 {
		return Report{}, fmt.Errorf("bench: invalid size %d or iterations %d", opts.Size, opts.Iterations)
	}
	if opts.ChecksumFactor <= 0 {
		opts.ChecksumFactor = DefaultChecksumFactor
	}
	logger := logging.OrDefault(opts.Logger)

	data := GenerateData(opts.Size)
	report := Report{Options: opts}

	// Warm up.
	compressed, err := compression.CompressLevel(opts.Codec, data, opts.Level)
	if err != nil {
		return report, err
	}
	if _, err := compression.Decompress(opts.Codec, compressed); err != nil {
		return report, err
	}
	logger.Debugf("%swarm-up done: %s -> %s", logging.NSBench,
		humanize.IBytes(uint64(len(data))), humanize.IBytes(uint64(len(compressed))))

	var decompressed []byte
	steps := []struct {
		name  string
		times int
		fn    func() error
	}{
		{"compress", opts.Iterations, func() (err error) {
			compressed, err = compression.CompressLevel(opts.Codec, data, opts.Level)
			return err
		}},
		{"decompress", opts.Iterations, func() (err error) {
			decompressed, err = compression.Decompress(opts.Codec, compressed)
			return err
		}},
		{"crc32", opts.Iterations * opts.ChecksumFactor, func() error {
			_ = checksum.CRC32(data)
			return nil
		}},
		{"adler32", opts.Iterations * opts.ChecksumFactor, func() error {
			_ = checksum.Adler32(data)
			return nil
		}},
	}

	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		start := time.Now()
		for range s.times {
			if err := s.fn(); err != nil {
				return report, fmt.Errorf("bench %s: %w", s.name, err)
			}
		}
		m := Measurement{Name: s.name, Elapsed: time.Since(start), Bytes: int64(len(data)) * int64(s.times)}
		logger.Debugf("%s%s: %v", logging.NSBench, m.Name, m.Elapsed)
		report.Measurements = append(report.Measurements, m)
	}

	report.CompressedSize = len(compressed)
	report.Intact = bytes.Equal(data, decompressed)
	if !report.Intact {
		return report, ErrIntegrity
	}
	return report, nil
}

// Print writes report as an aligned table.
func Print(w io.Writer, report Report) {
	o := report.Options
	fmt.Fprintf(w, "=== %s Performance Test ===\n", o.Codec)
	fmt.Fprintf(w, "Data: %s x %d iterations\n\n", humanize.IBytes(uint64(o.Size)), o.Iterations)
	for _, m := range report.Measurements {
		fmt.Fprintf(w, "%-12s %9.2f ms  %8.1f MB/s\n", m.Name+":",
			float64(m.Elapsed.Microseconds())/1000, m.MBps())
	}
	fmt.Fprintf(w, "\nCompression: %d -> %d bytes (%.1f%%)\n", o.Size, report.CompressedSize, report.Ratio())
	if report.Intact {
		fmt.Fprintln(w, "Integrity: PASSED")
	} else {
		fmt.Fprintln(w, "Integrity: FAILED!")
	}
}
