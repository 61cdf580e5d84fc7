// Package cache reads and writes LAL cache files: one line per data file,
// giving the observatory, a description, the GPS start and duration, and the
// file's URL.
package cache

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/crystalix007/cafe/packing"
	"github.com/crystalix007/cafe/segments"
)

// ErrMalformedLine is returned for a cache line that does not have the five
// expected fields.
var ErrMalformedLine = errors.New("malformed cache line")

const (
	fieldCount  = 5
	unknownSpan = "-"
)

// Entry is one line of a LAL cache.
type Entry struct {
	Observatory string
	Description string
	URL         string

	// Span is the time covered by the file. It is only meaningful when
	// HasSpan is set; lines with "-" in place of the times have none.
	Span    segments.Segment
	HasSpan bool
}

var (
	_ packing.Entry           = Entry{}
	_ packing.Comparer[Entry] = Entry{}
)

// ParseEntry parses a single cache line.
func ParseEntry(line string) (Entry, error) {
	fields := strings.Fields(line)
	if len(fields) != fieldCount {
		return Entry{}, fmt.Errorf("%w: %q: want %d fields, got %d", ErrMalformedLine, line, fieldCount, len(fields))
	}

	entry := Entry{
		Observatory: fields[0],
		Description: fields[1],
		URL:         fields[4],
	}

	if fields[2] == unknownSpan || fields[3] == unknownSpan {
		return entry, nil
	}

	start, err := segments.ParseTime(fields[2])
	if err != nil {
		return Entry{}, fmt.Errorf("%w: %q: start: %w", ErrMalformedLine, line, err)
	}

	duration, err := segments.ParseTime(fields[3])
	if err != nil {
		return Entry{}, fmt.Errorf("%w: %q: duration: %w", ErrMalformedLine, line, err)
	}

	if duration < 0 {
		return Entry{}, fmt.Errorf("%w: %q: negative duration", ErrMalformedLine, line)
	}

	end := start.Add(duration)
	if start.IsInf() || duration.IsInf() || end.IsInf() {
		return Entry{}, fmt.Errorf("%w: %q: span is not finite", ErrMalformedLine, line)
	}

	entry.Span = segments.Segment{Start: start, End: end}
	entry.HasSpan = true

	return entry, nil
}

// String formats e as a cache line.
func (e Entry) String() string {
	start, duration := unknownSpan, unknownSpan

	if e.HasSpan {
		start = e.Span.Start.String()
		duration = e.Span.Duration().String()
	}

	return strings.Join([]string{e.Observatory, e.Description, start, duration, e.URL}, " ")
}

// Segment returns the time spanned by the file.
func (e Entry) Segment() segments.Segment {
	return e.Span
}

// Segments returns the file's span under each of its instruments. A file
// without a span maps its instruments to empty lists.
func (e Entry) Segments() segments.Dict {
	instruments := e.Instruments()
	d := make(segments.Dict, len(instruments))

	for _, instrument := range instruments {
		if e.HasSpan {
			d[instrument] = segments.NewList(e.Span)
		} else {
			d[instrument] = nil
		}
	}

	return d
}

// Instruments returns the instruments named by the observatory field, which
// may be a single name, names separated by "," or "+", or concatenated
// two-character instrument codes such as "H1L1".
func (e Entry) Instruments() []string {
	return ParseInstruments(e.Observatory)
}

// ParseInstruments splits an observatory string into sorted, unique
// instrument names.
func ParseInstruments(observatory string) []string {
	var names []string

	switch {
	case strings.ContainsAny(observatory, ",+"):
		names = strings.FieldsFunc(observatory, func(r rune) bool {
			return r == ',' || r == '+' || r == ' '
		})
	case len(observatory) > 2 && len(observatory)%2 == 0:
		for i := 0; i < len(observatory); i += 2 {
			names = append(names, observatory[i:i+2])
		}
	case observatory != "":
		names = []string{observatory}
	}

	slices.Sort(names)

	return slices.Compact(names)
}

// Covers reports whether e names any of instruments.
func (e Entry) Covers(instruments []string) bool {
	for _, instrument := range e.Instruments() {
		if slices.Contains(instruments, instrument) {
			return true
		}
	}

	return false
}

// Compare orders entries by span, then URL, giving a total order. Bins use
// it to order members whose spans are equal.
func (e Entry) Compare(o Entry) int {
	if c := e.Span.Compare(o.Span); c != 0 {
		return c
	}

	return strings.Compare(e.URL, o.URL)
}
