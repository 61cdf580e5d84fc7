// Package metrics records run statistics with Prometheus.
package metrics

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/crystalix007/cafe/cafe"
	"github.com/crystalix007/cafe/packing"
)

// DefaultNamespace prefixes every metric name when none is given.
const DefaultNamespace = "cafe"

// PrometheusCollector implements cafe.MetricsCollector backed by Prometheus.
// Metrics are registered on first use.
type PrometheusCollector struct {
	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	filterEntries *prometheus.CounterVec
	packerEvents  *prometheus.CounterVec
	bins          prometheus.Gauge
	stageDuration *prometheus.HistogramVec
}

var _ cafe.MetricsCollector = (*PrometheusCollector)(nil)

// NewPrometheus creates a collector registering on reg, or on
// prometheus.DefaultRegisterer if reg is nil.
func NewPrometheus(reg prometheus.Registerer, namespace string) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	if namespace == "" {
		namespace = DefaultNamespace
	}

	return &PrometheusCollector{reg: reg, namespace: namespace}
}

func (p *PrometheusCollector) ensureRegistered() {
	p.once.Do(func() {
		p.filterEntries = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "filter",
			Name:      "entries_total",
			Help:      "Entries seen by the coincidence filter by result (kept, dropped).",
		}, []string{"result"})

		p.packerEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "packer",
			Name:      "events_total",
			Help:      "Packer and splitter events by kind.",
		}, []string{"kind"})

		p.bins = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Name:      "bins",
			Help:      "Number of output bins of the most recent run.",
		})

		p.stageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time spent in each run stage.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10), // 1ms .. ~4m
		}, []string{"stage"})

		p.reg.MustRegister(p.filterEntries)
		p.reg.MustRegister(p.packerEvents)
		p.reg.MustRegister(p.bins)
		p.reg.MustRegister(p.stageDuration)
	})
}

// RecordFilter counts kept and dropped entries.
func (p *PrometheusCollector) RecordFilter(kept, dropped int) {
	p.ensureRegistered()
	p.filterEntries.WithLabelValues("kept").Add(float64(kept))
	p.filterEntries.WithLabelValues("dropped").Add(float64(dropped))
}

// RecordPack adds the packer's counters and sets the bin gauge.
func (p *PrometheusCollector) RecordPack(stats packing.Stats, bins int) {
	p.ensureRegistered()

	for kind, n := range map[string]int{
		"entry":      stats.Entries,
		"new_bin":    stats.NewBins,
		"merge":      stats.Merges,
		"bridged":    stats.Bridged,
		"comparison": stats.Comparisons,
		"bail_out":   stats.BailOuts,
		"split_bin":  stats.SplitBins,
		"sub_bin":    stats.SubBins,
	} {
		p.packerEvents.WithLabelValues(kind).Add(float64(n))
	}

	p.bins.Set(float64(bins))
}

// RecordStageDuration observes elapsed for stage.
func (p *PrometheusCollector) RecordStageDuration(stage string, elapsed time.Duration) {
	p.ensureRegistered()
	p.stageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
}

// WriteTextfile writes everything g gathers to path in the text exposition
// format, for pickup by a node exporter textfile collector.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}

	return nil
}
