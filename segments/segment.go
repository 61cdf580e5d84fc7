package segments

import "fmt"

// Segment is the half-open interval [Start, End).
type Segment struct {
	Start Time
	End   Time
}

// Duration returns End-Start, or [PosInfinity] if either bound is infinite.
func (s Segment) Duration() Time {
	if s.Start.IsInf() || s.End.IsInf() {
		return PosInfinity
	}

	return s.End - s.Start
}

// IsEmpty reports whether the segment contains no time at all.
func (s Segment) IsEmpty() bool {
	return s.End <= s.Start
}

// Intersects reports whether s and o share any time.
func (s Segment) Intersects(o Segment) bool {
	return s.Start < o.End && o.Start < s.End
}

// Disjoint reports whether s and o neither overlap nor touch.
func (s Segment) Disjoint(o Segment) bool {
	return s.End < o.Start || o.End < s.Start
}

// Contains reports whether t lies within s.
func (s Segment) Contains(t Time) bool {
	return s.Start <= t && t < s.End
}

// Protract widens s by x on both sides.
func (s Segment) Protract(x Time) Segment {
	return Segment{Start: s.Start.Sub(x), End: s.End.Add(x)}
}

// Shift moves s by x.
func (s Segment) Shift(x Time) Segment {
	return Segment{Start: s.Start.Add(x), End: s.End.Add(x)}
}

// Hull returns the smallest segment containing both s and o.
func (s Segment) Hull(o Segment) Segment {
	return Segment{Start: min(s.Start, o.Start), End: max(s.End, o.End)}
}

// Intersection returns the overlap of s and o, which may be empty.
func (s Segment) Intersection(o Segment) Segment {
	return Segment{Start: max(s.Start, o.Start), End: min(s.End, o.End)}
}

// Compare orders segments by start, then by end.
func (s Segment) Compare(o Segment) int {
	switch {
	case s.Start < o.Start:
		return -1
	case s.Start > o.Start:
		return 1
	case s.End < o.End:
		return -1
	case s.End > o.End:
		return 1
	}

	return 0
}

func (s Segment) String() string {
	return fmt.Sprintf("[%s, %s)", s.Start, s.End)
}
