package suite

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"

	"github.com/aalhour/zcheck/internal/compression"
)

// GzipFileName is the file written by the gzip file check.
const GzipFileName = "test_output.gz"

// GzipText is written and read back by the basic gzip step.
const GzipText = "Hello, WALI gzip! Testing gzip file I/O in WebAssembly.\n"

// GzipLargeSize is the payload size of the large file step.
const GzipLargeSize = 1 << 20

const gzipLevelsText = "This is test data that will be compressed at different levels. " +
	"The quick brown fox jumps over the lazy dog. " +
	"Pack my box with five dozen liquor jugs. "

var gzipLines = []string{
	"Line 1: Hello\n",
	"Line 2: World\n",
	"Line 3: WALI\n",
}

// gzipStep is one exercise of the gzip file API against the file at path.
// A false return or an error fails the step.
type gzipStep struct {
	name string
	run  func(fs afero.Fs, path string, r *Reporter) (bool, error)
}

var gzipSteps = []gzipStep{
	{"write/read", gzipWriteRead},
	{"puts/gets", gzipPutsGets},
	{"putc/getc", gzipPutcGetc},
	{"seek/tell", gzipSeekTell},
	{"eof", gzipEOF},
	{"errors", gzipErrors},
	{"ungetc", gzipUngetc},
	{"large file", gzipLargeFile},
	{"levels", gzipLevels},
}

// GzipFileCheck runs every gzip file step against dir on fs. Each step reports
// PASSED or FAILED; the check passes only when all of them pass. The file is
// removed afterwards.
func GzipFileCheck(fs afero.Fs, dir string) Check {
	return Check{
		Name: NameGzipFile,
		Run: func(_ context.Context, r *Reporter) (bool, error) {
			if err := fs.MkdirAll(dir, 0o755); err != nil {
				return false, fmt.Errorf("mkdir %s: %w", dir, err)
			}
			path := filepath.Join(dir, GzipFileName)
			defer func() { _ = fs.Remove(path) }()

			passed := 0
			for _, s := range gzipSteps {
				ok, err := s.run(fs, path, r)
				switch {
				case err != nil:
					r.Printf("  %s: FAILED: %v", s.name, err)
				case !ok:
					r.Printf("  %s: FAILED", s.name)
				default:
					r.Printf("  %s: PASSED", s.name)
					passed++
				}
			}

			r.Printf("Gzip steps: %d/%d passed", passed, len(gzipSteps))
			if passed != len(gzipSteps) {
				return false, nil
			}
			r.Printf("SUCCESS: Gzip file round-trip successful!")
			return true, nil
		},
	}
}

func writeGzipText(fs afero.Fs, path, text string) error {
	return compression.WriteGzipFile(fs, path, compression.DefaultLevel, []byte(text))
}

func gzipWriteRead(fs afero.Fs, path string, r *Reporter) (bool, error) {
	if err := writeGzipText(fs, path, GzipText); err != nil {
		return false, err
	}
	g, err := compression.OpenGzip(fs, path)
	if err != nil {
		return false, err
	}
	defer func() { _ = g.Close() }()

	buf := make([]byte, 256)
	n, err := g.Read(buf)
	if err != nil {
		return false, err
	}
	if string(buf[:n]) != GzipText {
		r.Printf("    expected %q, got %q", GzipText, buf[:n])
		return false, nil
	}
	return true, nil
}

func gzipPutsGets(fs afero.Fs, path string, r *Reporter) (bool, error) {
	w, err := compression.CreateGzip(fs, path, compression.DefaultLevel)
	if err != nil {
		return false, err
	}
	for _, line := range gzipLines {
		if _, err := w.WriteString(line); err != nil {
			_ = w.Close()
			return false, err
		}
	}
	if err := w.Close(); err != nil {
		return false, err
	}

	g, err := compression.OpenGzip(fs, path)
	if err != nil {
		return false, err
	}
	defer func() { _ = g.Close() }()

	if want := strings.TrimSuffix(GzipFileName, ".gz"); g.Name() != want {
		r.Printf("    header name %q, want %q", g.Name(), want)
		return false, nil
	}
	for i, want := range gzipLines {
		got, err := g.ReadString('\n')
		if err != nil {
			return false, fmt.Errorf("line %d: %w", i+1, err)
		}
		if got != want {
			r.Printf("    line %d: expected %q, got %q", i+1, want, got)
			return false, nil
		}
	}
	r.Verbosef("    read back %d lines", len(gzipLines))
	return true, nil
}

func gzipPutcGetc(fs afero.Fs, path string, r *Reporter) (bool, error) {
	const chars = "ABCDEFGHIJ"
	w, err := compression.CreateGzip(fs, path, compression.DefaultLevel)
	if err != nil {
		return false, err
	}
	for i := range len(chars) {
		if err := w.WriteByte(chars[i]); err != nil {
			_ = w.Close()
			return false, err
		}
	}
	if err := w.Close(); err != nil {
		return false, err
	}

	g, err := compression.OpenGzip(fs, path)
	if err != nil {
		return false, err
	}
	defer func() { _ = g.Close() }()

	for i := range len(chars) {
		c, err := g.ReadByte()
		if err != nil {
			return false, fmt.Errorf("char %d: %w", i, err)
		}
		if c != chars[i] {
			r.Printf("    char %d: expected %q, got %q", i, chars[i], c)
			return false, nil
		}
	}
	if _, err := g.ReadByte(); err != io.EOF {
		r.Printf("    expected EOF after %d chars, got %v", len(chars), err)
		return false, nil
	}
	return true, nil
}

func gzipSeekTell(fs afero.Fs, path string, r *Reporter) (bool, error) {
	if err := writeGzipText(fs, path, "0123456789ABCDEFGHIJ"); err != nil {
		return false, err
	}
	g, err := compression.OpenGzip(fs, path)
	if err != nil {
		return false, err
	}
	defer func() { _ = g.Close() }()

	if _, err := io.ReadFull(g, make([]byte, 4)); err != nil {
		return false, err
	}
	if pos := g.Tell(); pos != 4 {
		r.Printf("    tell after reading 4 bytes: %d", pos)
		return false, nil
	}
	if pos, err := g.Seek(10, io.SeekStart); err != nil || pos != 10 {
		r.Printf("    seek to 10: pos %d, err %v", pos, err)
		return false, nil
	}
	if c, err := g.ReadByte(); err != nil || c != 'A' {
		r.Printf("    expected 'A' at position 10, got %q (%v)", c, err)
		return false, nil
	}
	if err := g.Rewind(); err != nil {
		return false, err
	}
	if c, err := g.ReadByte(); err != nil || c != '0' {
		r.Printf("    expected '0' after rewind, got %q (%v)", c, err)
		return false, nil
	}
	return true, nil
}

func gzipEOF(fs afero.Fs, path string, r *Reporter) (bool, error) {
	if err := writeGzipText(fs, path, "Short"); err != nil {
		return false, err
	}
	g, err := compression.OpenGzip(fs, path)
	if err != nil {
		return false, err
	}
	defer func() { _ = g.Close() }()

	if g.EOF() {
		r.Printf("    eof reported before reading")
		return false, nil
	}
	if _, err := g.Read(make([]byte, 256)); err != nil {
		return false, err
	}
	if !g.EOF() {
		r.Printf("    eof not reported at end")
		return false, nil
	}
	return true, nil
}

// gzipErrors checks that a valid file opens cleanly while a missing file and a
// file without a gzip header are both rejected.
func gzipErrors(fs afero.Fs, path string, r *Reporter) (bool, error) {
	if err := writeGzipText(fs, path, "Test"); err != nil {
		return false, err
	}
	g, err := compression.OpenGzip(fs, path)
	if err != nil {
		return false, err
	}
	_ = g.Close()

	if err := afero.WriteFile(fs, path, []byte("this is not gzip data\n"), 0o644); err != nil {
		return false, err
	}
	bad := []struct{ what, path string }{
		{"missing file", path + ".missing"},
		{"non-gzip file", path},
	}
	for _, b := range bad {
		g, err := compression.OpenGzip(fs, b.path)
		if err == nil {
			_ = g.Close()
			r.Printf("    opening a %s did not fail", b.what)
			return false, nil
		}
		r.Verbosef("    %s: %v", b.what, err)
	}
	return true, nil
}

func gzipUngetc(fs afero.Fs, path string, r *Reporter) (bool, error) {
	if err := writeGzipText(fs, path, "ABCD"); err != nil {
		return false, err
	}
	g, err := compression.OpenGzip(fs, path)
	if err != nil {
		return false, err
	}
	defer func() { _ = g.Close() }()

	if c, err := g.ReadByte(); err != nil || c != 'A' {
		r.Printf("    first byte %q (%v), want 'A'", c, err)
		return false, nil
	}
	g.Ungetc('X')
	for _, want := range []byte("XB") {
		if c, err := g.ReadByte(); err != nil || c != want {
			r.Printf("    expected %q, got %q (%v)", want, c, err)
			return false, nil
		}
	}
	return true, nil
}

// LargeGzipPayload returns GzipLargeSize bytes cycling through the alphabet.
func LargeGzipPayload() []byte {
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	data := make([]byte, GzipLargeSize)
	for i := range data {
		data[i] = alphabet[i%len(alphabet)]
	}
	return data
}

func gzipLargeFile(fs afero.Fs, path string, r *Reporter) (bool, error) {
	data := LargeGzipPayload()
	if err := compression.WriteGzipFile(fs, path, compression.DefaultLevel, data); err != nil {
		return false, err
	}
	g, err := compression.OpenGzip(fs, path)
	if err != nil {
		return false, err
	}
	defer func() { _ = g.Close() }()

	got, err := io.ReadAll(g)
	if err != nil {
		return false, err
	}
	if !bytes.Equal(got, data) {
		r.Printf("    read %d of %d bytes, data mismatch", len(got), len(data))
		return false, nil
	}
	r.Verbosef("    %s round-tripped", humanize.IBytes(uint64(len(data))))
	return true, nil
}

// gzipLevels writes the same data at levels 1, 6 and 9, reports the file sizes,
// and requires level 9 to be no larger than level 1.
func gzipLevels(fs afero.Fs, path string, r *Reporter) (bool, error) {
	data := []byte(strings.Repeat(gzipLevelsText, 10))
	r.Printf("    Original size: %d bytes", len(data))

	sizes := make(map[int]int64, len(Levels))
	for _, level := range Levels {
		if err := compression.WriteGzipFile(fs, path, level, data); err != nil {
			return false, err
		}
		info, err := fs.Stat(path)
		if err != nil {
			return false, err
		}
		sizes[level] = info.Size()
		r.Printf("    Level %d: %d bytes (%.1f%%)", level, info.Size(), ratio(int(info.Size()), len(data)))

		g, err := compression.OpenGzip(fs, path)
		if err != nil {
			return false, err
		}
		got, err := io.ReadAll(g)
		_ = g.Close()
		if err != nil {
			return false, err
		}
		if !bytes.Equal(got, data) {
			r.Printf("    level %d: data mismatch", level)
			return false, nil
		}
	}

	if sizes[compression.BestCompression] > sizes[compression.BestSpeed] {
		r.Printf("    level 9 larger than level 1")
		return false, nil
	}
	return true, nil
}
