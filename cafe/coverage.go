package cafe

import (
	"github.com/crystalix007/cafe/offsets"
	"github.com/crystalix007/cafe/packing"
	"github.com/crystalix007/cafe/segments"
)

// Coverage returns, for each instrument, the coalesced union of every entry's
// segments.
func Coverage[E packing.Entry](entries []E) segments.Dict {
	collected := make(map[string][]segments.Segment)

	for _, entry := range entries {
		for instrument, list := range entry.Segments() {
			collected[instrument] = append(collected[instrument], list...)
		}
	}

	out := make(segments.Dict, len(collected))
	for instrument, segs := range collected {
		out[instrument] = segments.NewList(segs...)
	}

	return out
}

// CoincidentCoverage returns the times, per instrument, at which coverage
// could be found coincident with another instrument's coverage under one of
// the two-instrument components. Components naming an instrument missing
// from coverage are skipped.
//
// Each component shifts its two instruments, keeps the time both cover, and
// shifts that time back into each instrument's own frame. The result is the
// union over all components.
func CoincidentCoverage(coverage segments.Dict, components []offsets.Vector) segments.Dict {
	out := segments.Dict{}

	for _, component := range components {
		if !covers(coverage, component) {
			continue
		}

		common := coverage.ShiftKeys(component).ExtractCommon(component.Keys())
		if common.IsEmpty() {
			continue
		}

		out = out.Union(common.Shift(component.Inverse()))
	}

	return out
}

func covers(coverage segments.Dict, v offsets.Vector) bool {
	for instrument := range v {
		if _, ok := coverage[instrument]; !ok {
			return false
		}
	}

	return true
}
