package cafe

import (
	"time"

	"github.com/crystalix007/cafe/packing"
)

// Stage names passed to [MetricsCollector.RecordStageDuration].
const (
	StageCoverage = "coverage"
	StageFilter   = "filter"
	StagePack     = "pack"
	StageSplit    = "split"
)

// MetricsCollector receives statistics from [Run].
type MetricsCollector interface {
	// RecordFilter records how many entries survived filtering and how many
	// were dropped.
	RecordFilter(kept, dropped int)

	// RecordPack records the packer's counters and the final bin count.
	RecordPack(stats packing.Stats, bins int)

	// RecordStageDuration records the wall time spent in stage.
	RecordStageDuration(stage string, elapsed time.Duration)
}

// NopMetrics discards everything.
type NopMetrics struct{}

var _ MetricsCollector = NopMetrics{}

func (NopMetrics) RecordFilter(int, int) {}

func (NopMetrics) RecordPack(packing.Stats, int) {}

func (NopMetrics) RecordStageDuration(string, time.Duration) {}
