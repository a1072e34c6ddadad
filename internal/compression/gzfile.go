package compression

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/spf13/afero"
)

// ErrSeekEnd is returned by GzipFile.Seek for io.SeekEnd; the uncompressed
// length of a gzip file is unknown until it has been read.
var ErrSeekEnd = errors.New("gzip file: seek relative to end not supported")

// GzipWriter writes a gzip file on an afero filesystem.
type GzipWriter struct {
	f  afero.File
	gw *gzip.Writer
}

// CreateGzip creates (or truncates) path and returns a writer compressing at level.
// The gzip header name is the base name of path without its ".gz" suffix.
func CreateGzip(fs afero.Fs, path string, level int) (*GzipWriter, error) {
	if level < HuffmanOnly || level > BestCompression {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLevel, level)
	}
	f, err := fs.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	gw, err := gzip.NewWriterLevel(f, level)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("gzip writer: %w", err)
	}
	gw.Name = strings.TrimSuffix(filepath.Base(path), ".gz")
	return &GzipWriter{f: f, gw: gw}, nil
}

// WriteGzipFile writes data to path as a single gzip member.
func WriteGzipFile(fs afero.Fs, path string, level int, data []byte) error {
	w, err := CreateGzip(fs, path, level)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func (w *GzipWriter) Write(p []byte) (int, error) {
	n, err := w.gw.Write(p)
	if err != nil {
		return n, fmt.Errorf("gzip write: %w", err)
	}
	return n, nil
}

// WriteString writes s.
func (w *GzipWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

// WriteByte writes a single byte.
func (w *GzipWriter) WriteByte(c byte) error {
	_, err := w.Write([]byte{c})
	return err
}

// Close flushes the gzip trailer and closes the file.
func (w *GzipWriter) Close() error {
	err := w.gw.Close()
	if cerr := w.f.Close(); err == nil {
		err = cerr
	}
	return err
}

// GzipFile is a gzip file opened for reading. Positions are offsets into the
// uncompressed data.
type GzipFile struct {
	f      afero.File
	gr     *gzip.Reader
	br     *bufio.Reader
	pushed []byte
	pos    int64
	eof    bool
}

// OpenGzip opens path and reads its gzip header.
func OpenGzip(fs afero.Fs, path string) (*GzipFile, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	gr, err := gzip.NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("gzip header %s: %w", path, err)
	}
	return &GzipFile{f: f, gr: gr, br: bufio.NewReader(gr)}, nil
}

// Name returns the file name recorded in the gzip header.
func (g *GzipFile) Name() string {
	return g.gr.Name
}

// Read fills p until it is full or the data ends. Pushed-back bytes come first.
// It returns io.EOF only when no byte could be read.
func (g *GzipFile) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) && len(g.pushed) > 0 {
		p[n] = g.pushed[len(g.pushed)-1]
		g.pushed = g.pushed[:len(g.pushed)-1]
		n++
	}
	for n < len(p) && !g.eof {
		m, err := g.br.Read(p[n:])
		n += m
		if errors.Is(err, io.EOF) {
			g.eof = true
			break
		}
		if err != nil {
			g.pos += int64(n)
			return n, err
		}
	}
	g.pos += int64(n)
	if n == 0 && len(p) > 0 {
		return 0, io.EOF
	}
	return n, nil
}

// ReadByte reads one byte.
func (g *GzipFile) ReadByte() (byte, error) {
	var b [1]byte
	if _, err := g.Read(b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadString reads up to and including delim. If the data ends first it
// returns what was read along with io.EOF.
func (g *GzipFile) ReadString(delim byte) (string, error) {
	var sb strings.Builder
	for {
		c, err := g.ReadByte()
		if err != nil {
			return sb.String(), err
		}
		sb.WriteByte(c)
		if c == delim {
			return sb.String(), nil
		}
	}
}

// Ungetc pushes c back so the next read returns it, and moves the position back by one.
// Any byte may be pushed, not only the one last read.
func (g *GzipFile) Ungetc(c byte) {
	g.pushed = append(g.pushed, c)
	g.pos--
}

// Tell returns the current position.
func (g *GzipFile) Tell() int64 {
	return g.pos
}

// EOF reports whether a read has reached the end of the data.
func (g *GzipFile) EOF() bool {
	return g.eof && len(g.pushed) == 0
}

// Seek moves to an uncompressed offset. Seeking backwards rewinds and
// decompresses forward again.
func (g *GzipFile) Seek(offset int64, whence int) (int64, error) {
	target := offset
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		target += g.pos
	case io.SeekEnd:
		return g.pos, ErrSeekEnd
	default:
		return g.pos, fmt.Errorf("gzip file: invalid whence %d", whence)
	}
	if target < 0 {
		return g.pos, fmt.Errorf("gzip file: negative position %d", target)
	}
	if target < g.pos {
		if err := g.Rewind(); err != nil {
			return g.pos, err
		}
	}
	if _, err := io.CopyN(io.Discard, g, target-g.pos); err != nil {
		return g.pos, fmt.Errorf("gzip file: seek to %d: %w", target, err)
	}
	return g.pos, nil
}

// Rewind returns to the start of the data.
func (g *GzipFile) Rewind() error {
	if _, err := g.f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("gzip file: rewind: %w", err)
	}
	if err := g.gr.Reset(g.f); err != nil {
		return fmt.Errorf("gzip file: rewind: %w", err)
	}
	g.br.Reset(g.gr)
	g.pushed = g.pushed[:0]
	g.pos = 0
	g.eof = false
	return nil
}

// Close closes the reader and the underlying file.
func (g *GzipFile) Close() error {
	err := g.gr.Close()
	if cerr := g.f.Close(); err == nil {
		err = cerr
	}
	return err
}
