// Package cafe groups data files into bins such that any two files whose data
// could be coincident under one of a set of time-slide hypotheses end up in
// the same bin.
//
// [Run] drops files that cannot take part in any coincidence, packs the rest
// in time order and optionally splits bins that last too long.
package cafe

import (
	"context"
	"fmt"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/crystalix007/cafe/offsets"
	"github.com/crystalix007/cafe/packing"
	"github.com/crystalix007/cafe/segments"
)

// progressInterval is how many packed entries pass between progress logs.
const progressInterval = 1000

// Result is the outcome of [Run].
type Result[E packing.Entry] struct {
	// Coverage is, per instrument, the time that could be coincident with
	// another instrument under some offset vector.
	Coverage segments.Dict

	// Bins holds the output bins in extent order, members sorted by time.
	Bins []*packing.Bin[E]

	// Dropped counts entries that could not be coincident with anything.
	Dropped int

	// Stats are the packer's counters.
	Stats packing.Stats
}

// Members returns the members of every bin, in bin order.
func (r *Result[E]) Members() [][]E {
	out := make([][]E, len(r.Bins))
	for i, bin := range r.Bins {
		out[i] = bin.Members()
	}

	return out
}

// Run packs entries into bins under vectors. entries is not modified.
func Run[E packing.Entry](ctx context.Context, entries []E, vectors []offsets.Vector, opts ...Option) (*Result[E], error) {
	o := newOptions(opts)

	if err := offsets.Validate(vectors); err != nil {
		return nil, fmt.Errorf("cafe: %w", err)
	}

	if o.extentLimit < 0 {
		return nil, fmt.Errorf("cafe: %w", packing.ErrInvalidExtentLimit)
	}

	ctx, span := o.tracer.Start(ctx, "cafe.run", trace.WithAttributes(
		attribute.Int("cafe.entries", len(entries)),
		attribute.Int("cafe.vectors", len(vectors)),
	))
	defer span.End()

	result, err := run(ctx, o, entries, vectors)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return nil, err
	}

	span.SetAttributes(
		attribute.Int("cafe.bins", len(result.Bins)),
		attribute.Int("cafe.dropped", result.Dropped),
	)

	return result, nil
}

func run[E packing.Entry](ctx context.Context, o *options, entries []E, vectors []offsets.Vector) (*Result[E], error) {
	normalised, epoch := coincidentCoverage(ctx, o, entries, vectors)

	kept, err := filter(ctx, o, entries, newCoverageIndex(normalised, epoch))
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(kept, func(a, b E) int {
		return a.Segment().Compare(b.Segment())
	})

	packer, err := pack(ctx, o, kept, vectors)
	if err != nil {
		return nil, err
	}

	if o.extentLimit > 0 {
		if err := split(ctx, o, packer); err != nil {
			return nil, err
		}
	}

	bins := packer.Bins()
	for _, bin := range bins {
		bin.SortMembers()
	}

	o.metrics.RecordPack(packer.Stats(), len(bins))

	return &Result[E]{
		Coverage: normalised.Denormalize(epoch),
		Bins:     bins,
		Dropped:  len(entries) - len(kept),
		Stats:    packer.Stats(),
	}, nil
}

// coincidentCoverage returns the coincident coverage of entries relative to
// the returned epoch.
func coincidentCoverage[E packing.Entry](
	ctx context.Context, o *options, entries []E, vectors []offsets.Vector,
) (segments.Dict, segments.Time) {
	_, span := o.tracer.Start(ctx, "cafe.coverage")
	defer span.End()

	defer observe(o, StageCoverage, time.Now())

	o.logger.Info("computing segment list", "entries", len(entries))

	coverage := Coverage(entries)

	epoch, ok := coverage.Epoch()
	if !ok {
		return segments.Dict{}, 0
	}

	components := offsets.ComponentVectors(vectors, 2)
	normalised := CoincidentCoverage(coverage.Normalize(epoch), components)

	span.SetAttributes(
		attribute.Int("cafe.instruments", len(coverage)),
		attribute.Int("cafe.components", len(components)),
	)

	o.logger.Debug("coincident coverage",
		"epoch", epoch.String(),
		"instruments", coverage.Keys(),
		"components", len(components),
	)

	return normalised, epoch
}

func filter[E packing.Entry](ctx context.Context, o *options, entries []E, idx *coverageIndex) ([]E, error) {
	_, span := o.tracer.Start(ctx, "cafe.filter")
	defer span.End()

	defer observe(o, StageFilter, time.Now())

	kept := make([]E, 0, len(entries))

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("cafe: filter: %w", err)
		}

		if idx.participates(entry.Segments()) {
			kept = append(kept, entry)

			continue
		}

		o.logger.Debug("dropping entry without coincident coverage", "segment", entry.Segment().String())
	}

	dropped := len(entries) - len(kept)

	span.SetAttributes(attribute.Int("cafe.kept", len(kept)), attribute.Int("cafe.dropped", dropped))
	o.metrics.RecordFilter(len(kept), dropped)
	o.logger.Info("filtered input", "kept", len(kept), "dropped", dropped)

	return kept, nil
}

func pack[E packing.Entry](ctx context.Context, o *options, entries []E, vectors []offsets.Vector) (*packing.Packer[E], error) {
	_, span := o.tracer.Start(ctx, "cafe.pack")
	defer span.End()

	defer observe(o, StagePack, time.Now())

	packer := packing.NewPacker[E]()
	if err := packer.Configure(vectors); err != nil {
		return nil, fmt.Errorf("cafe: %w", err)
	}

	o.logger.Info("packing entries", "entries", len(entries), "max_gap", packer.MaxGap().String())

	for n, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("cafe: pack: %w", err)
		}

		if err := packer.Pack(entry); err != nil {
			return nil, fmt.Errorf("cafe: %w", err)
		}

		if (n+1)%progressInterval == 0 {
			o.logger.Debug("packing", "done", n+1, "total", len(entries), "bins", packer.Len())
		}
	}

	stats := packer.Stats()

	span.SetAttributes(
		attribute.Int("cafe.bins", packer.Len()),
		attribute.Int("cafe.bridged", stats.Bridged),
		attribute.Int("cafe.comparisons", stats.Comparisons),
	)

	o.logger.Info("packed entries", "bins", packer.Len(), "comparisons", stats.Comparisons)

	return packer, nil
}

func split[E packing.Entry](ctx context.Context, o *options, packer *packing.Packer[E]) error {
	_, span := o.tracer.Start(ctx, "cafe.split", trace.WithAttributes(
		attribute.String("cafe.extent_limit", o.extentLimit.String()),
	))
	defer span.End()

	defer observe(o, StageSplit, time.Now())

	before := packer.Len()

	n, err := packer.Split(o.extentLimit)
	if err != nil {
		return fmt.Errorf("cafe: %w", err)
	}

	span.SetAttributes(attribute.Int("cafe.split_bins", n))
	o.logger.Info("split bins", "split", n, "before", before, "after", packer.Len())

	return nil
}

func observe(o *options, stage string, start time.Time) {
	o.metrics.RecordStageDuration(stage, time.Since(start))
}
