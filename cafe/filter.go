package cafe

import (
	"github.com/crystalix007/cafe/interval"
	"github.com/crystalix007/cafe/segments"
)

// coverageIndex answers overlap queries against coverage held relative to
// epoch, one interval index per instrument. Queries take absolute times.
type coverageIndex struct {
	epoch segments.Time
	trees map[string]*interval.Index[segments.Segment]
}

// newCoverageIndex indexes normalised, the coverage already expressed
// relative to epoch.
func newCoverageIndex(normalised segments.Dict, epoch segments.Time) *coverageIndex {
	idx := &coverageIndex{
		epoch: epoch,
		trees: make(map[string]*interval.Index[segments.Segment], len(normalised)),
	}

	for instrument, list := range normalised {
		tree := interval.New[segments.Segment]()

		for _, seg := range list {
			if iv, ok := closed(seg); ok {
				tree.Add(iv, seg)
			}
		}

		idx.trees[instrument] = tree
	}

	return idx
}

// participates reports whether every instrument in segs overlaps the indexed
// coverage. An entry without segments never participates.
func (idx *coverageIndex) participates(segs segments.Dict) bool {
	if len(segs) == 0 {
		return false
	}

	for instrument, list := range segs {
		tree, ok := idx.trees[instrument]
		if !ok || !idx.overlaps(tree, list) {
			return false
		}
	}

	return true
}

func (idx *coverageIndex) overlaps(tree *interval.Index[segments.Segment], list segments.List) bool {
	for _, seg := range list {
		iv, ok := closed(seg.Shift(segments.Time(0).Sub(idx.epoch)))
		if ok && tree.Intersects(iv.Start, iv.End) {
			return true
		}
	}

	return false
}

// closed converts a half-open segment of normalised time to the closed
// interval holding the same nanoseconds. Time before the epoch is clipped.
func closed(seg segments.Segment) (interval.Interval, bool) {
	start := max(seg.Start, 0)
	end := seg.End - 1

	if seg.End <= start {
		return interval.Interval{}, false
	}

	return interval.Interval{Start: uint64(start), End: uint64(end)}, true
}
