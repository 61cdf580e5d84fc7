// Package offsets describes time-slide hypotheses: per-instrument time
// shifts applied before testing two data sets for coincidence.
package offsets

import (
	"cmp"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/crystalix007/cafe/segments"
)

var (
	// ErrNoVectors is returned when an operation needs at least one vector.
	ErrNoVectors = errors.New("no offset vectors")

	// ErrEmptyVector is returned for a vector that names no instruments.
	ErrEmptyVector = errors.New("offset vector names no instruments")
)

// Vector maps instrument names to the offset applied to that instrument's
// times.
type Vector map[string]segments.Time

// Keys returns the instruments named by v in sorted order.
func (v Vector) Keys() []string {
	return slices.Sorted(maps.Keys(v))
}

// Min returns the smallest offset in v.
func (v Vector) Min() segments.Time {
	return slices.Min(slices.Collect(maps.Values(v)))
}

// Max returns the largest offset in v.
func (v Vector) Max() segments.Time {
	return slices.Max(slices.Collect(maps.Values(v)))
}

// Clone returns a copy of v.
func (v Vector) Clone() Vector {
	return maps.Clone(v)
}

// Equal reports whether v and o hold the same instruments and offsets.
func (v Vector) Equal(o Vector) bool {
	return maps.Equal(v, o)
}

// Compare orders vectors by their sorted (instrument, offset) pairs.
func (v Vector) Compare(o Vector) int {
	mine, theirs := v.Keys(), o.Keys()

	for i := range min(len(mine), len(theirs)) {
		if c := cmp.Compare(mine[i], theirs[i]); c != 0 {
			return c
		}

		if c := cmp.Compare(v[mine[i]], o[theirs[i]]); c != 0 {
			return c
		}
	}

	return cmp.Compare(len(mine), len(theirs))
}

// Relative returns v shifted so that its first instrument, in sorted order,
// has a zero offset. Coincidence between instruments depends only on these
// relative offsets.
func (v Vector) Relative() Vector {
	keys := v.Keys()
	if len(keys) == 0 {
		return Vector{}
	}

	base := v[keys[0]]
	out := make(Vector, len(v))

	for key, offset := range v {
		out[key] = offset.Sub(base)
	}

	return out
}

// Inverse returns the vector that undoes v.
func (v Vector) Inverse() Vector {
	out := make(Vector, len(v))
	for key, offset := range v {
		out[key] = segments.Time(0).Sub(offset)
	}

	return out
}

func (v Vector) String() string {
	keys := v.Keys()
	parts := make([]string, len(keys))

	for i, key := range keys {
		parts[i] = key + "=" + v[key].String()
	}

	return strings.Join(parts, ",")
}

// Validate checks that vs is usable for packing.
func Validate(vs []Vector) error {
	if len(vs) == 0 {
		return ErrNoVectors
	}

	for i, v := range vs {
		if len(v) == 0 {
			return fmt.Errorf("vector %d: %w", i, ErrEmptyVector)
		}
	}

	return nil
}

// Canonicalize returns a sorted copy of vs. The order only affects how much
// work a coincidence scan performs, never its outcome.
func Canonicalize(vs []Vector) []Vector {
	out := make([]Vector, len(vs))
	for i, v := range vs {
		out[i] = v.Clone()
	}

	slices.SortStableFunc(out, Vector.Compare)

	return out
}

// MaxGap returns the largest offset across vs minus the smallest. No two
// segments further apart than this can be brought together by any vector.
func MaxGap(vs []Vector) (segments.Time, error) {
	if err := Validate(vs); err != nil {
		return 0, err
	}

	lo, hi := vs[0].Min(), vs[0].Max()

	for _, v := range vs[1:] {
		lo = min(lo, v.Min())
		hi = max(hi, v.Max())
	}

	return hi.Sub(lo), nil
}

// Instruments returns every instrument named by any of vs, sorted.
func Instruments(vs []Vector) []string {
	seen := make(map[string]struct{})

	for _, v := range vs {
		for key := range v {
			seen[key] = struct{}{}
		}
	}

	return slices.Sorted(maps.Keys(seen))
}

// ComponentVectors returns the distinct n-instrument sub-vectors of vs, each
// expressed relative to its first instrument, in canonical order. Vectors
// naming fewer than n instruments contribute nothing.
func ComponentVectors(vs []Vector, n int) []Vector {
	var out []Vector

	for _, v := range vs {
		keys := v.Keys()

		for _, combo := range combinations(keys, n) {
			component := make(Vector, n)
			for _, key := range combo {
				component[key] = v[key]
			}

			component = component.Relative()

			if !slices.ContainsFunc(out, component.Equal) {
				out = append(out, component)
			}
		}
	}

	return Canonicalize(out)
}

// combinations returns the n-element subsets of keys, preserving order.
func combinations(keys []string, n int) [][]string {
	if n <= 0 || n > len(keys) {
		return nil
	}

	var (
		out  [][]string
		walk func(start int, picked []string)
	)

	walk = func(start int, picked []string) {
		if len(picked) == n {
			out = append(out, slices.Clone(picked))

			return
		}

		for i := start; i <= len(keys)-(n-len(picked)); i++ {
			walk(i+1, append(picked, keys[i]))
		}
	}

	walk(0, make([]string, 0, n))

	return out
}
