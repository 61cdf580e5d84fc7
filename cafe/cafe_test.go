package cafe_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/crystalix007/cafe/cache"
	"github.com/crystalix007/cafe/cafe"
	"github.com/crystalix007/cafe/offsets"
	"github.com/crystalix007/cafe/packing"
	"github.com/crystalix007/cafe/segments"
)

// quiet keeps driver logs out of test output.
func quiet(opts ...cafe.Option) []cafe.Option {
	return append([]cafe.Option{cafe.WithLogger(slog.New(slog.DiscardHandler))}, opts...)
}

func parse(t *testing.T, lines ...string) []cache.Entry {
	t.Helper()

	entries := make([]cache.Entry, 0, len(lines))

	for _, line := range lines {
		entry, err := cache.ParseEntry(line)
		require.NoError(t, err)

		entries = append(entries, entry)
	}

	return entries
}

func vectors(t *testing.T, slides ...string) []offsets.Vector {
	t.Helper()

	vs := make([]offsets.Vector, 0, len(slides))

	for _, slide := range slides {
		v, err := offsets.Parse(slide)
		require.NoError(t, err)

		vs = append(vs, v)
	}

	return vs
}

func urls(result *cafe.Result[cache.Entry]) [][]string {
	out := make([][]string, 0, len(result.Bins))

	for _, members := range result.Members() {
		names := []string{}
		for _, entry := range members {
			names = append(names, entry.URL)
		}

		out = append(out, names)
	}

	return out
}

func seconds(start, end int64) segments.Segment {
	return segments.Segment{
		Start: segments.Time(start) * segments.Second,
		End:   segments.Time(end) * segments.Second,
	}
}

func gps(t *testing.T, start, end string) segments.Segment {
	t.Helper()

	s, err := segments.ParseTime(start)
	require.NoError(t, err)

	e, err := segments.ParseTime(end)
	require.NoError(t, err)

	return segments.Segment{Start: s, End: e}
}

func TestRun_zeroLag(t *testing.T) {
	t.Parallel()

	entries := parse(t,
		"X D 1000 10 e3",
		"Y D 5 10 e2",
		"X D 0 10 e1",
	)

	result, err := cafe.Run(context.Background(), entries, vectors(t, "X=0,Y=0"), quiet()...)
	require.NoError(t, err)

	// e3 has no Y data anywhere near it, so it can never be coincident.
	assert.Equal(t, 1, result.Dropped)
	assert.Equal(t, [][]string{{"e1", "e2"}}, urls(result))
	assert.Equal(t, segments.Dict{
		"X": {seconds(5, 10)},
		"Y": {seconds(5, 10)},
	}, result.Coverage)
	assert.Equal(t, 2, result.Stats.Entries)
}

func TestRun_timeSlide(t *testing.T) {
	t.Parallel()

	entries := parse(t,
		"X D 0 10 e1",
		"Y D 1005 10 e2",
	)

	result, err := cafe.Run(context.Background(), entries, vectors(t, "X=0,Y=0", "X=0,Y=-1000"), quiet()...)
	require.NoError(t, err)

	assert.Zero(t, result.Dropped)
	assert.Equal(t, [][]string{{"e1", "e2"}}, urls(result))
	assert.Equal(t, segments.Dict{
		"X": {seconds(5, 10)},
		"Y": {seconds(1005, 1010)},
	}, result.Coverage)
}

func TestRun_gpsEpoch(t *testing.T) {
	t.Parallel()

	entries := parse(t,
		"X D 815049000 10 e3",
		"Y D 815046083.25 10 e2",
		"X D 815045078.25 10 e1",
	)

	result, err := cafe.Run(context.Background(), entries, vectors(t, "X=0,Y=-1000"), quiet()...)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Dropped)
	assert.Equal(t, [][]string{{"e1", "e2"}}, urls(result))
	assert.Equal(t, segments.Dict{
		"X": {gps(t, "815045083.25", "815045088.25")},
		"Y": {gps(t, "815046083.25", "815046088.25")},
	}, result.Coverage)
	assert.Equal(t, "{X: [[815045083.25, 815045088.25)], Y: [[815046083.25, 815046088.25)]}", result.Coverage.String())
}

func TestRun_equalSpansOrderedByURL(t *testing.T) {
	t.Parallel()

	entries := parse(t,
		"H1 D 0 10 b",
		"H1 D 0 10 a",
		"L1 D 0 10 c",
	)

	result, err := cafe.Run(context.Background(), entries, vectors(t, "H1=0,L1=0"), quiet()...)
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"a", "b", "c"}}, urls(result))
}

func TestRun_dropsEntriesWithoutSpan(t *testing.T) {
	t.Parallel()

	entries := parse(t,
		"H1 D 0 10 a",
		"L1 D 0 10 b",
		"H1 D - - unknown",
		"V1 D 0 10 lonely",
	)

	result, err := cafe.Run(context.Background(), entries, vectors(t, "H1=0,L1=0,V2=0"), quiet()...)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Dropped)
	assert.Equal(t, [][]string{{"a", "b"}}, urls(result))
}

func TestRun_multiInstrumentEntries(t *testing.T) {
	t.Parallel()

	entries := parse(t,
		"H1L1 COINC 0 10 coinc",
		"H1 D 20 10 late",
		"L1 D 2 4 early",
	)

	result, err := cafe.Run(context.Background(), entries, vectors(t, "H1=0,L1=0"), quiet()...)
	require.NoError(t, err)

	// "late" only has H1 data where there is no L1 data.
	assert.Equal(t, 1, result.Dropped)
	assert.Equal(t, [][]string{{"coinc", "early"}}, urls(result))
}

func TestRun_extentLimit(t *testing.T) {
	t.Parallel()

	entries := parse(t,
		"H1 D 0 84 a",
		"L1 D 83 84 b",
		"H1 D 166 84 c",
	)
	vs := vectors(t, "H1=0,L1=0")

	whole, err := cafe.Run(context.Background(), entries, vs, quiet()...)
	require.NoError(t, err)
	require.Equal(t, [][]string{{"a", "b", "c"}}, urls(whole))

	limit := 100 * segments.Second

	result, err := cafe.Run(context.Background(), entries, vs, quiet(cafe.WithExtentLimit(limit))...)
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"a", "b"}, {"c"}, {}}, urls(result))
	assert.Equal(t, 1, result.Stats.SplitBins)

	for _, bin := range result.Bins {
		extent, ok := bin.Extent()
		require.True(t, ok)
		assert.LessOrEqual(t, extent.Duration(), limit)
	}
}

func TestRun_errors(t *testing.T) {
	t.Parallel()

	entries := parse(t, "H1 D 0 10 a")

	_, err := cafe.Run(context.Background(), entries, nil, quiet()...)
	require.ErrorIs(t, err, offsets.ErrNoVectors)

	_, err = cafe.Run(context.Background(), entries, []offsets.Vector{{}}, quiet()...)
	require.ErrorIs(t, err, offsets.ErrEmptyVector)

	_, err = cafe.Run(context.Background(), entries, vectors(t, "H1=0"), quiet(cafe.WithExtentLimit(-1))...)
	require.ErrorIs(t, err, packing.ErrInvalidExtentLimit)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = cafe.Run(ctx, entries, vectors(t, "H1=0"), quiet()...)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRun_empty(t *testing.T) {
	t.Parallel()

	result, err := cafe.Run[cache.Entry](context.Background(), nil, vectors(t, "H1=0,L1=0"), quiet()...)
	require.NoError(t, err)

	assert.Empty(t, result.Bins)
	assert.Zero(t, result.Dropped)
	assert.True(t, result.Coverage.IsEmpty())
}

func TestRun_vectorOrderIndependent(t *testing.T) {
	t.Parallel()

	entries := parse(t,
		"H1 D 0 10 a",
		"L1 D 105 10 b",
		"V1 D 50 10 c",
		"H1 D 200 10 d",
		"L1 D 203 10 e",
		"V1 D 400 10 f",
	)
	vs := vectors(t, "H1=0,L1=0", "H1=0,L1=-100", "H1=0,V1=-50", "L1=0,V1=-55")
	reversed := []offsets.Vector{vs[3], vs[2], vs[1], vs[0]}

	first, err := cafe.Run(context.Background(), entries, vs, quiet()...)
	require.NoError(t, err)

	second, err := cafe.Run(context.Background(), entries, reversed, quiet()...)
	require.NoError(t, err)

	require.Equal(t, urls(first), urls(second))
	require.Equal(t, first.Coverage, second.Coverage)
	assert.Equal(t, 1, first.Dropped)
}

func TestRun_spans(t *testing.T) {
	t.Parallel()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	t.Cleanup(func() { require.NoError(t, tp.Shutdown(context.Background())) })

	entries := parse(t,
		"H1 D 0 84 a",
		"L1 D 83 84 b",
		"H1 D 166 84 c",
	)

	_, err := cafe.Run(context.Background(), entries, vectors(t, "H1=0,L1=0"), quiet(
		cafe.WithTracer(tp.Tracer("test")),
		cafe.WithExtentLimit(100*segments.Second),
	)...)
	require.NoError(t, err)

	byName := make(map[string]tracetest.SpanStub)
	for _, span := range exporter.GetSpans() {
		byName[span.Name] = span
	}

	require.Contains(t, byName, "cafe.run")
	root := byName["cafe.run"]

	for _, name := range []string{"cafe.coverage", "cafe.filter", "cafe.pack", "cafe.split"} {
		require.Contains(t, byName, name)
		assert.Equal(t, root.SpanContext.SpanID(), byName[name].Parent.SpanID(), name)
	}
}

type recordingMetrics struct {
	kept, dropped int
	stats         packing.Stats
	bins          int
	stages        []string
}

func (r *recordingMetrics) RecordFilter(kept, dropped int) {
	r.kept, r.dropped = kept, dropped
}

func (r *recordingMetrics) RecordPack(stats packing.Stats, bins int) {
	r.stats, r.bins = stats, bins
}

func (r *recordingMetrics) RecordStageDuration(stage string, _ time.Duration) {
	r.stages = append(r.stages, stage)
}

func TestRun_metrics(t *testing.T) {
	t.Parallel()

	entries := parse(t,
		"X D 0 10 e1",
		"Y D 5 10 e2",
		"X D 1000 10 e3",
	)

	metrics := &recordingMetrics{}

	_, err := cafe.Run(context.Background(), entries, vectors(t, "X=0,Y=0"), quiet(cafe.WithMetrics(metrics))...)
	require.NoError(t, err)

	assert.Equal(t, 2, metrics.kept)
	assert.Equal(t, 1, metrics.dropped)
	assert.Equal(t, 1, metrics.bins)
	assert.Equal(t, 2, metrics.stats.Entries)
	assert.Equal(t, []string{cafe.StageCoverage, cafe.StageFilter, cafe.StagePack}, metrics.stages)
}

func TestCoverage(t *testing.T) {
	t.Parallel()

	entries := parse(t,
		"H1 D 0 10 a",
		"H1 D 10 10 b",
		"H1L1 D 30 5 c",
		"V1 D - - d",
	)

	assert.Equal(t, segments.Dict{
		"H1": {seconds(0, 20), seconds(30, 35)},
		"L1": {seconds(30, 35)},
		"V1": nil,
	}, cafe.Coverage(entries))
}

func TestCoincidentCoverage(t *testing.T) {
	t.Parallel()

	coverage := segments.Dict{
		"H1": {{Start: 0, End: 10}},
		"L1": {{Start: 20, End: 30}},
		"V1": {{Start: 100, End: 110}},
	}

	got := cafe.CoincidentCoverage(coverage, []offsets.Vector{
		{"H1": 0, "L1": -15},
		{"H1": 0, "V1": 0},
		{"G1": 0, "H1": 0},
	})

	assert.Equal(t, segments.Dict{
		"H1": {{Start: 5, End: 10}},
		"L1": {{Start: 20, End: 25}},
	}, got)
}
