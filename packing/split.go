package packing

import (
	"cmp"
	"errors"
	"fmt"
	"math/bits"
	"slices"

	"github.com/crystalix007/cafe/segments"
)

var (
	// ErrInvalidExtentLimit is returned for a non-positive split limit.
	ErrInvalidExtentLimit = errors.New("extent limit must be positive")

	// ErrInfiniteExtent is returned when a bin that would need splitting
	// has no finite extent to divide.
	ErrInfiniteExtent = errors.New("bin extent is not finite")

	// ErrTooManySubBins is returned when the limit would cut a single bin
	// into more than [MaxSubBins] pieces holding coverage.
	ErrTooManySubBins = errors.New("extent limit yields too many sub-bins")
)

// MaxSubBins bounds the number of sub-bins one bin may be split into.
const MaxSubBins = 1 << 16

// Split replaces every bin whose extent lasts longer than limit with the
// pieces of a ceil(duration/limit) even division of its extent that hold
// any of its coverage, in place. It returns the number of bins that were
// split. On error the bins are left untouched.
//
// Each member of a split bin goes to the first sub-bin it can reach: the
// sub-bin's extent is widened by the maximum gap and the member's coverage,
// shifted by each offset vector in turn, is tested against it. A member is
// never copied into more than one sub-bin even if it could reach several.
// Members reaching none go to the sub-bin nearest in time.
func (p *Packer[E]) Split(limit segments.Time) (int, error) {
	if !p.configured {
		return 0, ErrNotConfigured
	}

	if limit <= 0 {
		return 0, ErrInvalidExtentLimit
	}

	replacements := make([][]*Bin[E], len(p.bins))
	split := 0

	for idx, orig := range p.bins {
		if !orig.hasExtent || orig.extent.End.Sub(orig.extent.Start) <= limit {
			continue
		}

		subBins, err := p.splitBin(orig, limit)
		if err != nil {
			return 0, fmt.Errorf("bin %d %s: %w", idx, orig.extent, err)
		}

		replacements[idx] = subBins
		split++
	}

	if split == 0 {
		return 0, nil
	}

	bins := make([]*Bin[E], 0, len(p.bins)+split)

	for idx, orig := range p.bins {
		subBins := replacements[idx]
		if subBins == nil {
			bins = append(bins, orig)

			continue
		}

		bins = append(bins, subBins...)

		p.stats.SplitBins++
		p.stats.SubBins += len(subBins)
	}

	p.bins = bins

	// Sub-bins take their parent's position; only the reach bound changes.
	p.refreshReach()

	return split, nil
}

// splitCount returns ceil(duration/limit).
func splitCount(duration, limit segments.Time) uint64 {
	n := uint64(duration / limit)
	if duration%limit != 0 {
		n++
	}

	return n
}

// splitBin builds the sub-bins of orig and distributes its members.
func (p *Packer[E]) splitBin(orig *Bin[E], limit segments.Time) ([]*Bin[E], error) {
	extent := orig.extent

	duration := extent.End.Sub(extent.Start)
	if duration.IsInf() {
		return nil, ErrInfiniteExtent
	}

	d := division{
		start:    extent.Start,
		duration: uint64(duration),
		pieces:   splitCount(duration, limit),
	}

	occupied, err := d.occupied(orig.size)
	if err != nil {
		return nil, err
	}

	subBins := make([]*Bin[E], 0, len(occupied))

	for _, piece := range occupied {
		sub := &Bin[E]{size: orig.size.Clip(d.bounds(piece))}
		sub.updateExtent()

		if !sub.hasExtent {
			continue
		}

		subBins = append(subBins, sub)
	}

	for _, entry := range orig.members {
		target := p.firstReachable(subBins, entry)
		if target == nil {
			target = nearest(subBins, entry.Segment())
		}

		target.members = append(target.members, entry)
	}

	return subBins, nil
}

// division cuts the extent starting at start and lasting duration into
// pieces intervals at evenly spaced cuts. The outermost intervals are open
// towards the infinities so nothing at the edges of the parent is lost.
type division struct {
	start    segments.Time
	duration uint64
	pieces   uint64
}

// cut returns the offset from start of the lower edge of piece i.
func (d division) cut(i uint64) uint64 {
	// i*duration/pieces without overflowing; i < pieces keeps the high word
	// below the divisor.
	hi, lo := bits.Mul64(i, d.duration)
	q, _ := bits.Div64(hi, lo, d.pieces)

	return q
}

// pieceOf returns the piece holding t, which must lie inside the extent.
func (d division) pieceOf(t segments.Time) uint64 {
	offset := uint64(t.Sub(d.start))
	if offset >= d.duration {
		return d.pieces - 1
	}

	hi, lo := bits.Mul64(offset, d.pieces)
	i, _ := bits.Div64(hi, lo, d.duration)

	// The cuts are rounded down, so t may sit exactly on the next one.
	for i+1 < d.pieces && d.cut(i+1) <= offset {
		i++
	}

	return i
}

// bounds returns the interval of piece i.
func (d division) bounds(i uint64) segments.Segment {
	seg := segments.Segment{Start: segments.NegInfinity, End: segments.PosInfinity}

	if i > 0 {
		seg.Start = d.start.Add(segments.Time(d.cut(i)))
	}

	if i+1 < d.pieces {
		seg.End = d.start.Add(segments.Time(d.cut(i + 1)))
	}

	return seg
}

// occupied returns, in order, the pieces overlapping any segment of size.
// Work is bounded by the number of segments and [MaxSubBins], never by the
// number of pieces.
func (d division) occupied(size segments.Dict) ([]uint64, error) {
	type run struct{ first, last uint64 }

	var runs []run

	for _, list := range size {
		for _, seg := range list {
			if seg.IsEmpty() {
				continue
			}

			runs = append(runs, run{first: d.pieceOf(seg.Start), last: d.pieceOf(seg.End - 1)})
		}
	}

	slices.SortFunc(runs, func(a, b run) int {
		return cmp.Compare(a.first, b.first)
	})

	var pieces []uint64

	for _, r := range runs {
		first := r.first
		if n := len(pieces); n > 0 && pieces[n-1] >= first {
			first = pieces[n-1] + 1
		}

		if first > r.last {
			continue
		}

		if uint64(len(pieces))+r.last-first+1 > MaxSubBins {
			return nil, fmt.Errorf("%w: more than %d", ErrTooManySubBins, MaxSubBins)
		}

		for piece := first; piece <= r.last; piece++ {
			pieces = append(pieces, piece)
		}
	}

	return pieces, nil
}

// firstReachable returns the first sub-bin that entry can coincide with under
// any offset vector, or nil.
func (p *Packer[E]) firstReachable(subBins []*Bin[E], entry E) *Bin[E] {
	bounds := entry.Segment()
	segs := entry.Segments()

	for _, sub := range subBins {
		reach := sub.extent.Protract(p.maxGap)

		if bounds.Disjoint(reach) {
			continue
		}

		for _, v := range p.vectors {
			if segs.Shift(v).IntersectsSegment(reach) {
				return sub
			}
		}
	}

	return nil
}

// nearest returns the sub-bin whose extent is closest to seg.
func nearest[E Entry](subBins []*Bin[E], seg segments.Segment) *Bin[E] {
	best := subBins[0]
	bestDistance := distance(best.extent, seg)

	for _, sub := range subBins[1:] {
		if d := distance(sub.extent, seg); d < bestDistance {
			best, bestDistance = sub, d
		}
	}

	return best
}

// distance is the gap between two segments, zero if they overlap or touch.
func distance(a, b segments.Segment) segments.Time {
	switch {
	case a.End < b.Start:
		return b.Start.Sub(a.End)
	case b.End < a.Start:
		return a.Start.Sub(b.End)
	}

	return 0
}
