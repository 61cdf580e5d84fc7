package segments

import (
	"slices"
	"strings"
)

// List is a sorted list of disjoint, non-empty segments. Lists built through
// [NewList], [List.Coalesce] or any of the set operations hold this form; the
// other methods assume it.
type List []Segment

// NewList returns the coalesced list covering the given segments.
func NewList(segs ...Segment) List {
	return List(segs).Coalesce()
}

// Coalesce returns a sorted copy of l in which overlapping or touching
// segments are joined and empty segments removed.
func (l List) Coalesce() List {
	if len(l) == 0 {
		return nil
	}

	sorted := slices.Clone(l)
	slices.SortFunc(sorted, Segment.Compare)

	out := make(List, 0, len(sorted))

	for _, seg := range sorted {
		if seg.IsEmpty() {
			continue
		}

		if n := len(out); n > 0 && seg.Start <= out[n-1].End {
			out[n-1].End = max(out[n-1].End, seg.End)

			continue
		}

		out = append(out, seg)
	}

	if len(out) == 0 {
		return nil
	}

	return out
}

// Union returns the coalesced union of l and o.
func (l List) Union(o List) List {
	if len(o) == 0 {
		return slices.Clone(l)
	}

	if len(l) == 0 {
		return slices.Clone(o)
	}

	merged := make(List, 0, len(l)+len(o))
	merged = append(merged, l...)
	merged = append(merged, o...)

	return merged.Coalesce()
}

// Intersect returns the time covered by both l and o.
func (l List) Intersect(o List) List {
	var out List

	i, j := 0, 0

	for i < len(l) && j < len(o) {
		overlap := l[i].Intersection(o[j])
		if !overlap.IsEmpty() {
			out = append(out, overlap)
		}

		if l[i].End < o[j].End {
			i++
		} else {
			j++
		}
	}

	return out
}

// Intersects reports whether any segment of l overlaps any segment of o.
func (l List) Intersects(o List) bool {
	i, j := 0, 0

	for i < len(l) && j < len(o) {
		if l[i].Intersects(o[j]) {
			return true
		}

		if l[i].End <= o[j].Start {
			i++
		} else {
			j++
		}
	}

	return false
}

// IntersectsSegment reports whether any segment of l overlaps seg.
func (l List) IntersectsSegment(seg Segment) bool {
	// First segment ending after seg starts.
	idx, _ := slices.BinarySearchFunc(l, seg.Start, func(s Segment, t Time) int {
		if s.End <= t {
			return -1
		}

		return 1
	})

	return idx < len(l) && l[idx].Intersects(seg)
}

// Shift returns a copy of l moved by x.
func (l List) Shift(x Time) List {
	if len(l) == 0 {
		return nil
	}

	out := make(List, len(l))
	for i, seg := range l {
		out[i] = seg.Shift(x)
	}

	return out
}

// Clip returns the part of l within seg.
func (l List) Clip(seg Segment) List {
	return l.Intersect(List{seg})
}

// Extent returns the smallest segment containing all of l. The boolean is
// false for an empty list.
func (l List) Extent() (Segment, bool) {
	if len(l) == 0 {
		return Segment{}, false
	}

	return Segment{Start: l[0].Start, End: l[len(l)-1].End}, true
}

// Duration returns the total time covered by l.
func (l List) Duration() Time {
	var total Time

	for _, seg := range l {
		total = total.Add(seg.Duration())
	}

	return total
}

func (l List) String() string {
	parts := make([]string, len(l))
	for i, seg := range l {
		parts[i] = seg.String()
	}

	return "[" + strings.Join(parts, " ") + "]"
}
