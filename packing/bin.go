// Package packing groups entries into bins such that any two entries that
// could coincide under one of a set of offset vectors share a bin, and
// optionally re-splits bins that span too much time.
package packing

import (
	"slices"

	"github.com/crystalix007/cafe/segments"
)

// Entry is anything with per-instrument time coverage and a bounding
// interval.
type Entry interface {
	// Segments returns the entry's coverage per instrument.
	Segments() segments.Dict

	// Segment returns the interval bounding all of the entry's coverage.
	Segment() segments.Segment
}

// Bin is a group of entries and the union of their coverage.
//
// A Bin is owned by exactly one [Packer]; its coverage is never handed out
// without copying.
type Bin[E Entry] struct {
	members []E
	size    segments.Dict

	// extent bounds every segment in size. It is recomputed on every
	// membership change and is meaningless while hasExtent is false.
	extent    segments.Segment
	hasExtent bool
}

// NewBin returns an empty bin.
func NewBin[E Entry]() *Bin[E] {
	return &Bin[E]{size: make(segments.Dict)}
}

// Add appends entry to the bin and unions segs into its coverage.
func (b *Bin[E]) Add(entry E, segs segments.Dict) {
	b.members = append(b.members, entry)
	b.size = b.size.Union(segs)
	b.updateExtent()
}

// Merge moves every member and all coverage of other into b. other must not
// be used afterwards.
func (b *Bin[E]) Merge(other *Bin[E]) {
	b.members = append(b.members, other.members...)
	b.size = b.size.Union(other.size)
	b.updateExtent()

	other.members = nil
	other.size = nil
	other.hasExtent = false
}

func (b *Bin[E]) updateExtent() {
	b.extent, b.hasExtent = b.size.ExtentAll()
}

// Len returns the number of members.
func (b *Bin[E]) Len() int {
	return len(b.members)
}

// Members returns a copy of the bin's members in their current order.
func (b *Bin[E]) Members() []E {
	return slices.Clone(b.members)
}

// Size returns a copy of the bin's coverage.
func (b *Bin[E]) Size() segments.Dict {
	return b.size.Clone()
}

// Extent returns the interval bounding the bin's coverage. The boolean is
// false for a bin with no coverage.
func (b *Bin[E]) Extent() (segments.Segment, bool) {
	return b.extent, b.hasExtent
}

// Comparer is implemented by entries that carry a total order of their own.
type Comparer[E any] interface {
	Compare(other E) int
}

// SortMembers orders the members by their bounding interval. Ties are broken
// by the members' own order when E implements [Comparer]; otherwise members
// with equal intervals keep their relative order.
func (b *Bin[E]) SortMembers() {
	slices.SortStableFunc(b.members, func(x, y E) int {
		if c := x.Segment().Compare(y.Segment()); c != 0 {
			return c
		}

		if xc, ok := any(x).(Comparer[E]); ok {
			return xc.Compare(y)
		}

		return 0
	})
}

// Compare orders bins by extent. Bins without coverage sort first.
func Compare[E Entry](a, b *Bin[E]) int {
	switch {
	case !a.hasExtent && !b.hasExtent:
		return 0
	case !a.hasExtent:
		return -1
	case !b.hasExtent:
		return 1
	}

	return a.extent.Compare(b.extent)
}
