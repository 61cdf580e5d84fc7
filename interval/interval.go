// Package interval provides a bucketed hierarchical index over closed uint64
// intervals, answering "which stored intervals overlap [start, end]" without
// scanning every entry.
//
// Each hierarchical level consumes the top four bits of the coordinate. An
// interval is pushed down into the buckets it only partly spans and recorded
// at the node for the buckets it spans completely. Leaves hold intervals
// directly and only split when doing so separates them.
package interval

import (
	"math"
	"slices"
)

const (
	// branchingFactorPower is the number of coordinate bits consumed by each
	// hierarchical level.
	//
	// i.e. 4 -> 2^4 = 16 children per node
	branchingFactorPower uint64 = 4

	// hierarchicalFanout is the number of children of a hierarchical node.
	hierarchicalFanout uint64 = 1 << branchingFactorPower

	// offsetMask extracts the in-bucket offset bits.
	offsetMask uint64 = 1<<branchingFactorPower - 1

	// bucketMask extracts everything above the in-bucket offset.
	bucketMask uint64 = ^offsetMask

	// bucketShift moves the top bits of a coordinate down to a bucket index.
	bucketShift = 64 - branchingFactorPower

	// maxLeafFanout is how many intervals a leaf takes before it considers
	// splitting. Performance tunable.
	maxLeafFanout = 16
)

// Interval is the closed interval [Start, End].
type Interval struct {
	Start uint64
	End   uint64
}

// Overlaps reports whether i and [start, end] share a point.
func (i Interval) Overlaps(start, end uint64) bool {
	return start <= i.End && i.Start <= end
}

// Index stores values keyed by intervals.
type Index[Value any] struct {
	root   node
	values []Value
}

// New creates an empty index.
func New[Value any]() *Index[Value] {
	return &Index[Value]{
		root: newHierarchicalNode(),
	}
}

// Len returns the number of stored values.
func (x *Index[Value]) Len() int {
	return len(x.values)
}

// Add stores value under interval. Intervals with Start > End are ignored.
//
// Any mix of overlapping intervals may be added; an interval is stored at
// most twice per level plus once per bucket it covers completely.
func (x *Index[Value]) Add(interval Interval, value Value) {
	if interval.Start > interval.End {
		return
	}

	valuesIndex := len(x.values)
	x.values = append(x.values, value)

	x.root = x.root.add(interval, valuesIndex)
}

// AllIntersections returns, in insertion order, every value whose interval
// overlaps [start, end]. The boolean is false if there are none.
func (x *Index[Value]) AllIntersections(start, end uint64) ([]Value, bool) {
	if start > end {
		return nil, false
	}

	indices := x.root.intersections(start, end)
	if len(indices) == 0 {
		return nil, false
	}

	values := make([]Value, 0, len(indices))
	for _, index := range indices.sorted() {
		values = append(values, x.values[index])
	}

	return values, true
}

// Intersects reports whether any stored interval overlaps [start, end]. It
// stops at the first hit.
func (x *Index[Value]) Intersects(start, end uint64) bool {
	if start > end {
		return false
	}

	return x.root.any(start, end)
}

// valueIndices is a set of positions in Index.values.
type valueIndices map[int]struct{}

func (v valueIndices) merge(other valueIndices) {
	for index := range other {
		v[index] = struct{}{}
	}
}

func (v valueIndices) sorted() []int {
	indices := make([]int, 0, len(v))
	for index := range v {
		indices = append(indices, index)
	}

	slices.Sort(indices)

	return indices
}

// node is implemented by both levels of the index.
type node interface {
	add(interval Interval, valuesIndex int) node
	intersections(start, end uint64) valueIndices
	any(start, end uint64) bool
}

// hierarchicalNode buckets its children by the top bits of the coordinate.
type hierarchicalNode struct {
	children []node

	// covering holds, per bucket, the values whose interval spans the whole
	// bucket. These are never pushed further down.
	covering [][]int
}

var _ node = &hierarchicalNode{}

func newHierarchicalNode() *hierarchicalNode {
	return &hierarchicalNode{
		children: make([]node, hierarchicalFanout),
		covering: make([][]int, hierarchicalFanout),
	}
}

// bucketSpan describes the part of a query or interval that falls inside one
// child bucket, rescaled to that child's coordinates.
type bucketSpan struct {
	bucket uint64
	start  uint64
	end    uint64
}

// whole reports whether the span covers its entire bucket.
func (s bucketSpan) whole() bool {
	return s.start == 0 && s.end == math.MaxUint64
}

// spans splits [start, end] over the buckets it touches.
//
// | Bucket 0 | Bucket 1 | Bucket 2 | ...
//
//	^--------------------^
//	start               end
//
// The first bucket is entered at start's offset and the last left at end's;
// buckets in between are covered completely.
func spans(start, end uint64) []bucketSpan {
	startBucket := start >> bucketShift
	endBucket := end >> bucketShift

	out := make([]bucketSpan, 0, endBucket-startBucket+1)

	for bucket := startBucket; bucket <= endBucket; bucket++ {
		span := bucketSpan{bucket: bucket, start: 0, end: math.MaxUint64}

		if bucket == startBucket {
			span.start = start << branchingFactorPower
		}

		if bucket == endBucket {
			span.end = end << branchingFactorPower
		}

		out = append(out, span)
	}

	return out
}

func (h *hierarchicalNode) add(interval Interval, valuesIndex int) node {
	for _, span := range spans(interval.Start, interval.End) {
		if span.whole() {
			h.covering[span.bucket] = append(h.covering[span.bucket], valuesIndex)

			continue
		}

		child := h.children[span.bucket]
		if child == nil {
			child = &leafNode{}
		}

		h.children[span.bucket] = child.add(Interval{Start: span.start, End: span.end}, valuesIndex)
	}

	return h
}

func (h *hierarchicalNode) intersections(start, end uint64) valueIndices {
	matching := make(valueIndices)

	for _, span := range spans(start, end) {
		for _, index := range h.covering[span.bucket] {
			matching[index] = struct{}{}
		}

		child := h.children[span.bucket]
		if child == nil {
			continue
		}

		matching.merge(child.intersections(span.start, span.end))
	}

	return matching
}

func (h *hierarchicalNode) any(start, end uint64) bool {
	for _, span := range spans(start, end) {
		if len(h.covering[span.bucket]) > 0 {
			return true
		}

		child := h.children[span.bucket]
		if child != nil && child.any(span.start, span.end) {
			return true
		}
	}

	return false
}

// leafNode stores intervals directly.
type leafNode struct {
	indices   []int
	intervals []Interval
}

var _ node = &leafNode{}

func (l *leafNode) add(interval Interval, valuesIndex int) node {
	// Only reconsider splitting at multiples of maxLeafFanout, so that a leaf
	// that cannot usefully split is not re-examined on every insert.
	if len(l.intervals) > 0 &&
		len(l.intervals)%maxLeafFanout == 0 &&
		l.shouldSplit() {
		h := newHierarchicalNode()

		for i, existing := range l.intervals {
			h.add(existing, l.indices[i])
		}

		return h.add(interval, valuesIndex)
	}

	l.intervals = append(l.intervals, interval)
	l.indices = append(l.indices, valuesIndex)

	return l
}

// shouldSplit reports whether pushing the leaf's intervals one level down
// would separate any of them.
func (l *leafNode) shouldSplit() bool {
	startBuckets := make(map[uint64]int, len(l.intervals))
	endBuckets := make(map[uint64]int, len(l.intervals))

	for _, interval := range l.intervals {
		startBuckets[interval.Start&bucketMask]++
		endBuckets[interval.End&bucketMask]++
	}

	for _, counts := range []map[uint64]int{startBuckets, endBuckets} {
		for _, count := range counts {
			if count != 0 && count != len(l.intervals) {
				return true
			}
		}
	}

	return false
}

func (l *leafNode) intersections(start, end uint64) valueIndices {
	matching := make(valueIndices, len(l.intervals))

	// The whole bucket is being asked for.
	if start == 0 && end == math.MaxUint64 {
		for _, index := range l.indices {
			matching[index] = struct{}{}
		}

		return matching
	}

	for i, interval := range l.intervals {
		if interval.Overlaps(start, end) {
			matching[l.indices[i]] = struct{}{}
		}
	}

	return matching
}

func (l *leafNode) any(start, end uint64) bool {
	if start == 0 && end == math.MaxUint64 {
		return len(l.intervals) > 0
	}

	for _, interval := range l.intervals {
		if interval.Overlaps(start, end) {
			return true
		}
	}

	return false
}
