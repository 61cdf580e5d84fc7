// Package segments implements per-instrument sets of disjoint half-open time
// intervals.
//
// Times are integer nanoseconds so that shifting a segment by an offset and
// back again is exact. All operations return new values; inputs are never
// modified in place.
package segments

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Time is a point in time, in nanoseconds.
type Time int64

const (
	// NegInfinity sorts before every finite time.
	NegInfinity Time = math.MinInt64

	// PosInfinity sorts after every finite time.
	PosInfinity Time = math.MaxInt64

	// Second is one second expressed as a [Time].
	Second Time = 1_000_000_000

	nanoDigits = 9
)

// ErrInvalidTime is returned when a decimal time string cannot be parsed.
var ErrInvalidTime = errors.New("invalid time")

// IsInf reports whether t is one of the infinity sentinels.
func (t Time) IsInf() bool {
	return t == NegInfinity || t == PosInfinity
}

// Add returns t+d, saturating at the infinities. Infinite values are never
// moved by a finite offset.
func (t Time) Add(d Time) Time {
	if t.IsInf() {
		return t
	}

	if d == PosInfinity {
		return PosInfinity
	}

	if d == NegInfinity {
		return NegInfinity
	}

	sum := t + d

	// Signed overflow flips the sign relative to both operands.
	switch {
	case d > 0 && sum < t:
		return PosInfinity
	case d < 0 && sum > t:
		return NegInfinity
	}

	return sum
}

// Sub returns t-d with the same saturation rules as [Time.Add].
func (t Time) Sub(d Time) Time {
	switch d {
	case NegInfinity:
		return t.Add(PosInfinity)
	case PosInfinity:
		return t.Add(NegInfinity)
	}

	return t.Add(-d)
}

// Seconds returns t as floating point seconds. Only for display.
func (t Time) Seconds() float64 {
	return float64(t) / float64(Second)
}

// String formats t as decimal seconds without trailing zeros, e.g.
// "815045078" or "815045078.25".
func (t Time) String() string {
	switch t {
	case NegInfinity:
		return "-inf"
	case PosInfinity:
		return "+inf"
	}

	sign := ""
	u := uint64(t)

	if t < 0 {
		sign = "-"
		u = uint64(-t)
	}

	whole := u / uint64(Second)
	frac := u % uint64(Second)

	if frac == 0 {
		return sign + strconv.FormatUint(whole, 10)
	}

	fracStr := strings.TrimRight(fmt.Sprintf("%09d", frac), "0")

	return sign + strconv.FormatUint(whole, 10) + "." + fracStr
}

// ParseTime parses a decimal seconds string exactly. At most nine fractional
// digits are significant; further digits are rejected rather than rounded.
func ParseTime(s string) (Time, error) {
	str := strings.TrimSpace(s)

	switch str {
	case "-inf", "-infinity":
		return NegInfinity, nil
	case "inf", "+inf", "infinity", "+infinity":
		return PosInfinity, nil
	}

	negative := strings.HasPrefix(str, "-")
	str = strings.TrimPrefix(strings.TrimPrefix(str, "-"), "+")

	wholeStr, fracStr, _ := strings.Cut(str, ".")
	if wholeStr == "" && fracStr == "" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}

	if len(fracStr) > nanoDigits {
		return 0, fmt.Errorf("%w: %q has more than nanosecond precision", ErrInvalidTime, s)
	}

	var whole uint64

	if wholeStr != "" {
		parsed, err := strconv.ParseUint(wholeStr, 10, 63)
		if err != nil {
			return 0, fmt.Errorf("%w: %q: %w", ErrInvalidTime, s, err)
		}

		whole = parsed
	}

	var frac uint64

	if fracStr != "" {
		padded := fracStr + strings.Repeat("0", nanoDigits-len(fracStr))

		parsed, err := strconv.ParseUint(padded, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q: %w", ErrInvalidTime, s, err)
		}

		frac = parsed
	}

	if whole > uint64(math.MaxInt64)/uint64(Second) {
		return 0, fmt.Errorf("%w: %q out of range", ErrInvalidTime, s)
	}

	t := Time(whole)*Second + Time(frac)
	if negative {
		t = -t
	}

	return t, nil
}
