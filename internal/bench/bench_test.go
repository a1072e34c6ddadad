package bench

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aalhour/zcheck/internal/compression"
	"github.com/aalhour/zcheck/internal/logging"
)

func TestGenerateData(t *testing.T) {
	data := GenerateData(1000)

	require.Len(t, data, 1000)
	assert.Equal(t, byte(32), data[0])
	assert.Equal(t, byte(39), data[1])
	for i, b := range data {
		assert.True(t, b >= 32 && b < 127, "byte %d = %d not printable", i, b)
	}
	assert.Equal(t, data, GenerateData(1000))
}

func TestRunSmall(t *testing.T) {
	opts := DefaultOptions()
	opts.Size = 4096
	opts.Iterations = 3
	opts.ChecksumFactor = 2
	opts.Logger = logging.Discard

	report, err := Run(context.Background(), opts)
	require.NoError(t, err)

	assert.True(t, report.Intact)
	assert.Greater(t, report.CompressedSize, 0)
	require.Len(t, report.Measurements, 4)

	names := []string{"compress", "decompress", "crc32", "adler32"}
	for i, m := range report.Measurements {
		assert.Equal(t, names[i], m.Name)
	}
	assert.Equal(t, int64(4096*3), report.Measurements[0].Bytes)
	assert.Equal(t, int64(4096*6), report.Measurements[2].Bytes)
}

func TestRunEveryCodec(t *testing.T) {
	for _, codec := range compression.All {
		t.Run(codec.String(), func(t *testing.T) {
			opts := DefaultOptions()
			opts.Codec = codec
			opts.Size = 2048
			opts.Iterations = 1
			opts.Logger = logging.Discard

			report, err := Run(context.Background(), opts)
			require.NoError(t, err)
			assert.True(t, report.Intact)
		})
	}
}

func TestRunInvalidOptions(t *testing.T) {
	opts := DefaultOptions()
	opts.Iterations = 0
	_, err := Run(context.Background(), opts)
	assert.Error(t, err)

	opts = DefaultOptions()
	opts.Level = 12
	opts.Logger = logging.Discard
	_, err = Run(context.Background(), opts)
	assert.ErrorIs(t, err, compression.ErrInvalidLevel)
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opts := DefaultOptions()
	opts.Size = 128
	opts.Logger = logging.Discard

	_, err := Run(ctx, opts)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMeasurementThroughput(t *testing.T) {
	m := Measurement{Elapsed: time.Second, Bytes: 2 * 1024 * 1024}
	assert.InDelta(t, 2.0, m.MBps(), 1e-9)
	assert.Zero(t, Measurement{Bytes: 10}.Throughput())
}

func TestPrint(t *testing.T) {
	report := Report{
		Options:        DefaultOptions(),
		Measurements:   []Measurement{{Name: "compress", Elapsed: 10 * time.Millisecond, Bytes: 1 << 20}},
		CompressedSize: 16384,
		Intact:         true,
	}

	var buf bytes.Buffer
	Print(&buf, report)
	out := buf.String()

	assert.Contains(t, out, "=== Zlib Performance Test ===")
	assert.Contains(t, out, "Data: 64 KiB x 100 iterations")
	assert.Contains(t, out, "compress:")
	assert.Contains(t, out, "Compression: 65536 -> 16384 bytes (25.0%)")
	assert.Contains(t, out, "Integrity: PASSED")
}
