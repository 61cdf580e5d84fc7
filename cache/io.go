package cache

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/pierrec/lz4/v4"
)

const (
	// CompressedSuffix marks cache files stored lz4-compressed.
	CompressedSuffix = ".lz4"

	// Stdio names standard input or output in place of a path.
	Stdio = "-"

	fileSuffix  = ".cache"
	maxLineSize = 1 << 20
	dirPerm     = 0o750
)

// Read parses every cache line from r. Blank lines and lines starting with
// "#" are skipped.
func Read(r io.Reader) ([]Entry, error) {
	var entries []Entry

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), maxLineSize)

	lineNo := 0

	for scanner.Scan() {
		lineNo++

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		entry, err := ParseEntry(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}

		entries = append(entries, entry)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read cache: %w", err)
	}

	return entries, nil
}

// Write writes entries to w, one line each.
func Write(w io.Writer, entries []Entry) error {
	bw := bufio.NewWriter(w)

	for _, entry := range entries {
		if _, err := fmt.Fprintln(bw, entry.String()); err != nil {
			return fmt.Errorf("write cache: %w", err)
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write cache: %w", err)
	}

	return nil
}

// Open opens a cache file for reading, decompressing it if its name ends in
// [CompressedSuffix]. [Stdio] reads standard input.
func Open(path string) (io.ReadCloser, error) {
	if path == Stdio {
		return io.NopCloser(os.Stdin), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}

	if !strings.HasSuffix(path, CompressedSuffix) {
		return f, nil
	}

	return &readCloser{Reader: lz4.NewReader(f), closer: f}, nil
}

// Create creates a cache file for writing, compressing it if its name ends in
// [CompressedSuffix]. Missing parent directories are created.
func Create(path string) (io.WriteCloser, error) {
	if path == Stdio {
		return nopWriteCloser{Writer: os.Stdout}, nil
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, dirPerm); err != nil {
			return nil, fmt.Errorf("create cache directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}

	if !strings.HasSuffix(path, CompressedSuffix) {
		return f, nil
	}

	return &compressedWriter{Writer: lz4.NewWriter(f), file: f}, nil
}

// Load reads every entry from the cache file at path.
func Load(path string) ([]Entry, error) {
	rc, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return Read(rc)
}

// WriteBins writes each group of entries to its own cache file named base
// followed by the zero-padded group index. Only entries covering one of
// instruments are written; a nil instruments writes everything. It returns
// the file names in group order.
func WriteBins(base string, bins [][]Entry, instruments []string, compress bool) ([]string, error) {
	if len(bins) == 0 {
		return nil, nil
	}

	width := int(math.Log10(float64(len(bins)))) + 1
	suffix := fileSuffix

	if compress {
		suffix += CompressedSuffix
	}

	filenames := make([]string, 0, len(bins))

	for n, bin := range bins {
		filename := fmt.Sprintf("%s%0*d%s", base, width, n, suffix)

		if err := writeFile(filename, bin, instruments); err != nil {
			return filenames, err
		}

		filenames = append(filenames, filename)
	}

	return filenames, nil
}

// WriteSingleInstrumentBins runs [WriteBins] once per instrument, with the
// instrument and an underscore appended to base.
func WriteSingleInstrumentBins(base string, bins [][]Entry, instruments []string, compress bool) ([]string, error) {
	var filenames []string

	for _, instrument := range instruments {
		written, err := WriteBins(base+instrument+"_", bins, []string{instrument}, compress)
		filenames = append(filenames, written...)

		if err != nil {
			return filenames, err
		}
	}

	return filenames, nil
}

func writeFile(filename string, entries []Entry, instruments []string) (err error) {
	wc, err := Create(filename)
	if err != nil {
		return err
	}

	defer func() {
		err = errors.Join(err, wc.Close())
	}()

	selected := entries

	if instruments != nil {
		selected = make([]Entry, 0, len(entries))

		for _, entry := range entries {
			if entry.Covers(instruments) {
				selected = append(selected, entry)
			}
		}
	}

	return Write(wc, selected)
}

type readCloser struct {
	io.Reader
	closer io.Closer
}

func (r *readCloser) Close() error {
	return r.closer.Close()
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// compressedWriter flushes the lz4 frame before closing the file.
type compressedWriter struct {
	*lz4.Writer
	file *os.File
}

func (w *compressedWriter) Close() error {
	return errors.Join(w.Writer.Close(), w.file.Close())
}
