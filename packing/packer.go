package packing

import (
	"errors"
	"fmt"
	"slices"

	"github.com/crystalix007/cafe/offsets"
	"github.com/crystalix007/cafe/segments"
)

var (
	// ErrNotConfigured is returned when packing or splitting is attempted
	// before [Packer.Configure].
	ErrNotConfigured = errors.New("packer has no offset vectors configured")

	// ErrAlreadyConfigured is returned by a second call to [Packer.Configure].
	ErrAlreadyConfigured = errors.New("packer is already configured")

	// ErrNoSegments is returned for an entry that covers no time.
	ErrNoSegments = errors.New("entry has no segments")
)

// Stats counts the work a [Packer] has done.
type Stats struct {
	// Entries is the number of successfully packed entries.
	Entries int
	// NewBins counts entries that matched no existing bin.
	NewBins int
	// Merges counts entries that joined at least one existing bin.
	Merges int
	// Bridged counts existing bins absorbed because an entry matched more
	// than one bin.
	Bridged int
	// Comparisons counts per-vector coincidence tests.
	Comparisons int
	// BailOuts counts scans stopped early by the gap bound.
	BailOuts int
	// SplitBins counts bins replaced by the splitter.
	SplitBins int
	// SubBins counts bins the splitter created.
	SubBins int
}

// Packer incrementally assigns entries to bins.
//
// Bins are kept sorted by extent. Each [Packer.Pack] scans them from the
// latest backwards and stops as soon as no remaining bin can reach the new
// entry under any offset vector. Packing entries in time order keeps that
// scan short. A Packer is not safe for concurrent use.
type Packer[E Entry] struct {
	bins []*Bin[E]

	// reach[i] is the largest extent end among bins[0..i]. The scan stops
	// once it falls short of the new entry.
	reach []segments.Time

	vectors []offsets.Vector
	keys    [][]string
	maxGap  segments.Time

	configured bool
	stats      Stats
}

// NewPacker returns an unconfigured packer.
func NewPacker[E Entry]() *Packer[E] {
	return &Packer[E]{}
}

// Configure sets the offset vectors considered when testing coincidence. It
// must be called exactly once, before the first [Packer.Pack].
func (p *Packer[E]) Configure(vectors []offsets.Vector) error {
	if p.configured {
		return ErrAlreadyConfigured
	}

	maxGap, err := offsets.MaxGap(vectors)
	if err != nil {
		return fmt.Errorf("configure packer: %w", err)
	}

	p.vectors = offsets.Canonicalize(vectors)
	p.keys = make([][]string, len(p.vectors))

	for i, v := range p.vectors {
		p.keys[i] = v.Keys()
	}

	p.maxGap = maxGap
	p.configured = true

	return nil
}

// MaxGap returns the largest distance between two entries that any
// configured offset vector could close.
func (p *Packer[E]) MaxGap() segments.Time {
	return p.maxGap
}

// Vectors returns the configured offset vectors in canonical order.
func (p *Packer[E]) Vectors() []offsets.Vector {
	return offsets.Canonicalize(p.vectors)
}

// Bins returns the current bins in ascending extent order, with any split
// sub-bins standing where their parent stood. The slice is a copy; the bins
// themselves remain owned by the packer.
func (p *Packer[E]) Bins() []*Bin[E] {
	return slices.Clone(p.bins)
}

// Len returns the number of bins.
func (p *Packer[E]) Len() int {
	return len(p.bins)
}

// Stats returns the work counters.
func (p *Packer[E]) Stats() Stats {
	return p.stats
}

// Pack adds entry to every bin it is coincident with, merging those bins,
// or to a new bin if it matches none.
func (p *Packer[E]) Pack(entry E) error {
	if !p.configured {
		return ErrNotConfigured
	}

	segs := entry.Segments()
	if segs.IsEmpty() {
		return fmt.Errorf("pack %v: %w", entry.Segment(), ErrNoSegments)
	}

	candidate := NewBin[E]()
	candidate.Add(entry, segs)

	threshold := candidate.extent.Start.Sub(p.maxGap)

	// Collected in descending index order.
	var matching []int

	for n := len(p.bins) - 1; n >= 0; n-- {
		if p.reach[n] < threshold {
			p.stats.BailOuts++

			break
		}

		if p.coincident(candidate, p.bins[n]) {
			matching = append(matching, n)
		}
	}

	if len(matching) == 0 {
		p.bins = append(p.bins, candidate)
		p.stats.NewBins++
	} else {
		// The lowest-indexed match absorbs the others. Removing the others in
		// descending order leaves both its index and theirs valid.
		dest := p.bins[matching[len(matching)-1]]
		dest.Merge(candidate)

		for _, n := range matching[:len(matching)-1] {
			dest.Merge(p.bins[n])
			p.bins = slices.Delete(p.bins, n, n+1)
		}

		p.stats.Merges++
		p.stats.Bridged += len(matching) - 1
	}

	p.stats.Entries++
	p.sortBins()

	return nil
}

// coincident reports whether some offset vector makes the candidate's and
// the bin's coverage overlap. Shifted coverage is always a fresh copy.
func (p *Packer[E]) coincident(candidate, bin *Bin[E]) bool {
	for i, v := range p.vectors {
		p.stats.Comparisons++

		if candidate.size.ShiftKeys(v).IsCoincident(bin.size.ShiftKeys(v), p.keys[i]) {
			return true
		}
	}

	return false
}

// sortBins restores extent order and the running reach.
func (p *Packer[E]) sortBins() {
	slices.SortStableFunc(p.bins, Compare[E])
	p.refreshReach()
}

// refreshReach recomputes the running maximum of extent ends.
func (p *Packer[E]) refreshReach() {
	p.reach = p.reach[:0]

	for i, bin := range p.bins {
		end := bin.extent.End
		if i > 0 {
			end = max(end, p.reach[i-1])
		}

		p.reach = append(p.reach, end)
	}
}
