package interval

const (
	// MaxLeafFanout re-exports [maxLeafFanout] for testing purposes.
	MaxLeafFanout = maxLeafFanout

	// HierarchicalFanout re-exports [hierarchicalFanout] for testing purposes.
	HierarchicalFanout = hierarchicalFanout
)

// LeafNode re-exports the internal [leafNode] type.
type LeafNode = leafNode

// Add re-exports the internal leaf insertion.
func (l *LeafNode) Add(interval Interval, valuesIndex int) {
	l.add(interval, valuesIndex)
}

// ShouldSplit re-exports the internal [leafNode.shouldSplit] method.
func (l *LeafNode) ShouldSplit() bool {
	return l.shouldSplit()
}

// RootIsHierarchical reports whether the root has been split into buckets.
func (x *Index[Value]) RootIsHierarchical() bool {
	_, ok := x.root.(*hierarchicalNode)

	return ok
}
