package suite

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aalhour/zcheck/internal/checksum"
	"github.com/aalhour/zcheck/internal/compression"
	"github.com/aalhour/zcheck/internal/logging"
)

func runChecks(t *testing.T, opts Options, checks []Check) (Summary, string) {
	t.Helper()
	var out bytes.Buffer
	opts.Out = &out
	summary := NewRunner(opts).Run(context.Background(), checks)
	return summary, out.String()
}

func TestDefaultSuitePasses(t *testing.T) {
	summary, out := runChecks(t, Options{}, Checks(DefaultConfig()))

	assert.Equal(t, 4, summary.Total())
	assert.Equal(t, 4, summary.Passed())
	assert.True(t, summary.OK())
	assert.Empty(t, summary.Failed())
	assert.Contains(t, out, "Results: 4/4 tests passed")
	assert.Contains(t, out, DefaultTitle)
	assert.NotContains(t, out, "ERROR:")
}

func TestDefaultSuiteSectionOrder(t *testing.T) {
	_, out := runChecks(t, Options{}, Checks(DefaultConfig()))

	headers := []string{
		"--- Compress/Decompress ---",
		"--- CRC32 ---",
		"--- Adler32 ---",
		"--- Compression Levels ---",
	}
	assert.Equal(t, len(headers), strings.Count(out, "\n--- "))

	last := -1
	for _, h := range headers {
		idx := strings.Index(out, h)
		require.GreaterOrEqual(t, idx, 0, "missing %q", h)
		assert.Greater(t, idx, last, "%q out of order", h)
		last = idx
	}
	assert.Greater(t, strings.Index(out, "Results:"), last)
}

func TestRoundTripOutput(t *testing.T) {
	_, out := runChecks(t, Options{}, []Check{RoundTrip(compression.ZlibCompression, nil)})

	assert.Contains(t, out, "Original size: 640 bytes")
	assert.Contains(t, out, "Decompressed size: 640 bytes")
	assert.Contains(t, out, "Compression ratio: ")
	assert.Contains(t, out, "SUCCESS: Original and decompressed data match!")
	assert.NotContains(t, out, "Compressed data:")
}

func TestRoundTripVerboseHexDump(t *testing.T) {
	_, out := runChecks(t, Options{Verbose: true}, []Check{RoundTrip(compression.ZlibCompression, nil)})

	// zlib streams start with CMF 0x78.
	assert.Contains(t, out, "Compressed data: 78 ")
}

func TestPinnedChecksumOutput(t *testing.T) {
	_, out := runChecks(t, Options{}, []Check{CRC32Check(), Adler32Check()})

	assert.Contains(t, out, "CRC32 of 'Hello, WALI!': 2785473449 (0xa606f3a9)")
	assert.Contains(t, out, "Adler32 of 'Hello, WALI!': 427885455 (0x1981038f)")
}

func TestLevelsOutput(t *testing.T) {
	_, out := runChecks(t, Options{}, []Check{LevelsCheck(compression.ZlibCompression)})

	assert.Contains(t, out, "Testing compression levels on 1650 bytes:")
	for _, l := range []string{"  Level 1: ", "  Level 6: ", "  Level 9: "} {
		assert.Contains(t, out, l)
	}
}

func TestLevelNineNotLargerThanLevelOne(t *testing.T) {
	data := LevelsPayload()

	fast, err := compression.CompressLevel(compression.ZlibCompression, data, 1)
	require.NoError(t, err)
	best, err := compression.CompressLevel(compression.ZlibCompression, data, 9)
	require.NoError(t, err)

	assert.LessOrEqual(t, len(best), len(fast))
}

func TestRoundTripAllLevels(t *testing.T) {
	data := RoundTripPayload()
	for _, level := range append([]int{compression.DefaultLevel}, Levels...) {
		compressed, err := compression.CompressLevel(compression.ZlibCompression, data, level)
		require.NoError(t, err)
		decompressed, err := compression.Decompress(compression.ZlibCompression, compressed)
		require.NoError(t, err)
		assert.Equal(t, data, decompressed, "level %d", level)
	}
}

func TestTruncatedRoundTripCountsAsFailure(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Tamper = TruncateTamper(4)

	summary, out := runChecks(t, Options{}, Checks(cfg))

	assert.Equal(t, 3, summary.Passed())
	assert.Equal(t, []string{NameRoundTrip}, summary.Failed())
	assert.Contains(t, out, "ERROR: ")
	assert.Contains(t, out, "Results: 3/4 tests passed")
	// Later checks still ran.
	assert.Contains(t, out, "CRC32 of 'Hello, WALI!'")
	assert.Contains(t, out, "Level 9:")
}

func TestMismatchPrintsFailure(t *testing.T) {
	flip := func(b []byte) []byte {
		out := append([]byte(nil), b...)
		out[0] ^= 0xff
		return out
	}

	summary, out := runChecks(t, Options{}, []Check{RoundTrip(compression.NoCompression, flip)})

	require.Len(t, summary.Results, 1)
	assert.False(t, summary.Results[0].Passed)
	assert.NoError(t, summary.Results[0].Err)
	assert.Contains(t, out, "FAILURE: Data mismatch!")
	assert.Contains(t, out, "Results: 0/1 tests passed")
}

func TestPanicIsContained(t *testing.T) {
	checks := []Check{
		{Name: "boom", Run: func(context.Context, *Reporter) (bool, error) { panic("kaboom") }},
		CRC32Check(),
	}

	summary, out := runChecks(t, Options{}, checks)

	require.Len(t, summary.Results, 2)
	assert.False(t, summary.Results[0].Passed)
	assert.ErrorIs(t, summary.Results[0].Err, ErrCheckPanicked)
	assert.True(t, summary.Results[1].Passed)
	assert.Contains(t, out, "ERROR: check panicked: kaboom")
	assert.Contains(t, out, "Results: 1/2 tests passed")
}

func TestErrorOverridesPassed(t *testing.T) {
	errBroken := errors.New("library exploded")
	checks := []Check{
		{Name: "liar", Run: func(context.Context, *Reporter) (bool, error) { return true, errBroken }},
	}

	summary, out := runChecks(t, Options{}, checks)

	assert.False(t, summary.Results[0].Passed)
	assert.ErrorIs(t, summary.Results[0].Err, errBroken)
	assert.Contains(t, out, "ERROR: library exploded")
}

func TestCanceledContextSkipsRemainingChecks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ran := false
	checks := []Check{
		{Name: "cancel", Run: func(context.Context, *Reporter) (bool, error) { cancel(); return true, nil }},
		{Name: "after", Run: func(context.Context, *Reporter) (bool, error) { ran = true; return true, nil }},
	}

	var out bytes.Buffer
	summary := NewRunner(Options{Out: &out}).Run(ctx, checks)

	assert.False(t, ran)
	assert.Equal(t, 1, summary.Passed())
	assert.ErrorIs(t, summary.Results[1].Err, context.Canceled)
	assert.Contains(t, out.String(), "Results: 1/2 tests passed")
}

func TestExtendedSuitePasses(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Extended = true
	cfg.Fs = afero.NewMemMapFs()
	cfg.Dir = "/zcheck"

	summary, out := runChecks(t, Options{}, Checks(cfg))

	assert.Equal(t, 10, summary.Total())
	assert.True(t, summary.OK(), "failed: %v\n%s", summary.Failed(), out)
	assert.Contains(t, out, "--- "+NameDeflateStream+" ---")
	assert.Contains(t, out, "Corrupted frame rejected")

	exists, err := afero.Exists(cfg.Fs, filepath.Join(cfg.Dir, GzipFileName))
	require.NoError(t, err)
	assert.False(t, exists, "gzip check should remove its file")
}

func TestGzipFileCheckOnDisk(t *testing.T) {
	dir := t.TempDir()

	summary, out := runChecks(t, Options{}, []Check{GzipFileCheck(afero.NewOsFs(), dir)})

	assert.True(t, summary.OK(), out)
	assert.Contains(t, out, "Gzip steps: 9/9 passed")
	for _, step := range gzipSteps {
		assert.Contains(t, out, "  "+step.name+": PASSED")
	}
}

func TestGzipStepsIndividually(t *testing.T) {
	for _, step := range gzipSteps {
		t.Run(step.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			var out bytes.Buffer

			ok, err := step.run(fs, "/"+GzipFileName, NewReporter(&out, true))
			require.NoError(t, err, out.String())
			assert.True(t, ok, out.String())
		})
	}
}

func TestGzipErrorsStepReportsBothFailures(t *testing.T) {
	var out bytes.Buffer
	ok, err := gzipErrors(afero.NewMemMapFs(), "/"+GzipFileName, NewReporter(&out, true))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, out.String(), "missing file: open /test_output.gz.missing")
	assert.Contains(t, out.String(), "non-gzip file: gzip header")
}

func TestGzipLevelsStepOutput(t *testing.T) {
	var out bytes.Buffer
	ok, err := gzipLevels(afero.NewMemMapFs(), "/"+GzipFileName, NewReporter(&out, false))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, out.String(), "Original size: 1490 bytes")
	for _, level := range Levels {
		assert.Contains(t, out.String(), fmt.Sprintf("Level %d: ", level))
	}
}

func TestGzipCheckFailsWhenDirCannotBeCreated(t *testing.T) {
	fs := afero.NewReadOnlyFs(afero.NewMemMapFs())
	summary, out := runChecks(t, Options{}, []Check{GzipFileCheck(fs, "/ro")})

	assert.False(t, summary.OK())
	assert.Contains(t, out, "ERROR: mkdir /ro")
}

func TestLargeGzipPayload(t *testing.T) {
	data := LargeGzipPayload()
	require.Len(t, data, GzipLargeSize)
	assert.Equal(t, "ABCDEFGHIJKLMNOPQRSTUVWXYZA", string(data[:27]))
}

func TestLevelsCheckNotesLevelIgnoringCodec(t *testing.T) {
	summary, out := runChecks(t, Options{}, []Check{LevelsCheck(compression.SnappyCompression)})
	assert.True(t, summary.OK())
	assert.Contains(t, out, "Note: Snappy ignores the compression level")

	_, out = runChecks(t, Options{}, []Check{LevelsCheck(compression.ZlibCompression)})
	assert.NotContains(t, out, "Note:")
}

func TestCodecMatrixStaysWithinBound(t *testing.T) {
	summary, out := runChecks(t, Options{}, []Check{CodecMatrixCheck()})
	assert.True(t, summary.OK(), out)
	assert.NotContains(t, out, "OVER BOUND")
	assert.True(t, bounded(compression.ZlibCompression))
	assert.False(t, bounded(compression.GzipCompression))
}

func TestChecksumMatrix(t *testing.T) {
	summary, out := runChecks(t, Options{}, []Check{ChecksumMatrixCheck(checksum.All)})

	assert.True(t, summary.OK(), out)
	assert.Contains(t, out, "CRC32    'Hello, WALI!'   2785473449 (0xa606f3a9)")
	assert.Contains(t, out, "Adler32  'Hello, WALI!'   427885455 (0x1981038f)")
	assert.Contains(t, out, "SUCCESS: 5 checksum types computed")
	for _, typ := range checksum.All {
		assert.Contains(t, out, "  "+typ.String())
	}
}

func TestChecksumExtendIncludesCRC32C(t *testing.T) {
	summary, out := runChecks(t, Options{}, []Check{ChecksumExtendCheck()})
	assert.True(t, summary.OK(), out)
	assert.Contains(t, out, "CRC32C extended: ")
}

func TestFramedBlocksLogsFrameNamespace(t *testing.T) {
	var logs bytes.Buffer
	opts := Options{Logger: logging.NewLogger(&logs, logging.LevelDebug)}

	summary, out := runChecks(t, opts, []Check{FramedBlocksCheck(compression.ZlibCompression)})
	assert.True(t, summary.OK(), out)
	assert.Contains(t, logs.String(), "[frame] decoded Zlib frame")
	assert.Contains(t, logs.String(), "[frame] frame: checksum mismatch")
}

func TestReporterLoggerDefaultsToDiscard(t *testing.T) {
	assert.Equal(t, logging.Discard, NewReporter(&bytes.Buffer{}, false).Logger())
}

func TestHexPrefix(t *testing.T) {
	assert.Equal(t, "", HexPrefix(nil, 32))
	assert.Equal(t, "78 9c", HexPrefix([]byte{0x78, 0x9c}, 32))
	assert.Equal(t, "00 01 ...", HexPrefix([]byte{0, 1, 2}, 2))
}

func TestTruncateTamper(t *testing.T) {
	assert.Equal(t, []byte{1, 2}, TruncateTamper(1)([]byte{1, 2, 3}))
	assert.Empty(t, TruncateTamper(10)([]byte{1, 2, 3}))
}

func TestReporterVerbose(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf, false)
	r.Verbosef("hidden")
	r.Printf("shown %d", 1)

	assert.Equal(t, "shown 1\n", buf.String())
	assert.False(t, r.Verbose())
}
