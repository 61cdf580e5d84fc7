package segments_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/crystalix007/cafe/segments"
)

func seg(start, end segments.Time) segments.Segment {
	return segments.Segment{Start: start, End: end}
}

func TestTime_Add_saturates(t *testing.T) {
	t.Parallel()

	require.Equal(t, segments.PosInfinity, segments.PosInfinity.Add(-5))
	require.Equal(t, segments.NegInfinity, segments.NegInfinity.Add(5))
	require.Equal(t, segments.PosInfinity, segments.PosInfinity.Sub(segments.PosInfinity))
	require.Equal(t, segments.PosInfinity, segments.Time(10).Add(segments.PosInfinity-3))
	require.Equal(t, segments.NegInfinity, segments.Time(-10).Sub(segments.PosInfinity))
	require.Equal(t, segments.Time(7), segments.Time(10).Sub(3))
}

func TestParseTime(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want segments.Time
	}{
		{in: "815045078", want: 815045078 * segments.Second},
		{in: "815045078.25", want: 815045078*segments.Second + 250_000_000},
		{in: "-1.5", want: -1_500_000_000},
		{in: ".000000001", want: 1},
		{in: "+inf", want: segments.PosInfinity},
		{in: "-inf", want: segments.NegInfinity},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			got, err := segments.ParseTime(tt.in)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"", "-", "abc", "1.0000000001", "1e9"} {
		_, err := segments.ParseTime(bad)
		require.ErrorIs(t, err, segments.ErrInvalidTime, bad)
	}
}

func TestTime_String(t *testing.T) {
	t.Parallel()

	require.Equal(t, "815045078", (815045078 * segments.Second).String())
	require.Equal(t, "12.05", (12*segments.Second + 50_000_000).String())
	require.Equal(t, "-0.5", segments.Time(-500_000_000).String())
	require.Equal(t, "+inf", segments.PosInfinity.String())

	parsed, err := segments.ParseTime("987654321.123456789")
	require.NoError(t, err)
	require.Equal(t, "987654321.123456789", parsed.String())
}

func TestSegment(t *testing.T) {
	t.Parallel()

	a := seg(0, 10)

	require.True(t, a.Intersects(seg(9, 20)))
	require.False(t, a.Intersects(seg(10, 20)), "half-open segments touching do not intersect")
	require.False(t, a.Disjoint(seg(10, 20)), "touching segments are not disjoint")
	require.True(t, a.Disjoint(seg(11, 20)))
	require.Equal(t, seg(-5, 15), a.Protract(5))
	require.Equal(t, seg(100, 110), a.Shift(100))
	require.Equal(t, segments.PosInfinity, seg(segments.NegInfinity, 3).Duration())
	require.Equal(t, -1, a.Compare(seg(0, 11)))
	require.Equal(t, 1, a.Compare(seg(-1, 30)))
}

func TestList_Coalesce(t *testing.T) {
	t.Parallel()

	got := segments.NewList(seg(20, 30), seg(0, 5), seg(5, 8), seg(25, 40), seg(50, 50))

	require.Equal(t, segments.List{seg(0, 8), seg(20, 40)}, got)
	require.Nil(t, segments.NewList())
}

func TestList_SetOperations(t *testing.T) {
	t.Parallel()

	a := segments.NewList(seg(0, 10), seg(20, 30))
	b := segments.NewList(seg(5, 25), seg(40, 50))

	require.Equal(t, segments.List{seg(0, 30), seg(40, 50)}, a.Union(b))
	require.Equal(t, segments.List{seg(5, 10), seg(20, 25)}, a.Intersect(b))
	require.True(t, a.Intersects(b))
	require.False(t, a.Intersects(segments.NewList(seg(10, 20), seg(30, 40))))
	require.True(t, a.IntersectsSegment(seg(29, 35)))
	require.False(t, a.IntersectsSegment(seg(10, 20)))
	require.Equal(t, segments.List{seg(20, 25)}, a.Clip(seg(15, 25)))
	require.Equal(t, segments.Time(20), a.Duration())

	extent, ok := a.Extent()
	require.True(t, ok)
	require.Equal(t, seg(0, 30), extent)

	_, ok = segments.List(nil).Extent()
	require.False(t, ok)
}

func TestList_Shift_doesNotAlias(t *testing.T) {
	t.Parallel()

	a := segments.NewList(seg(0, 10))
	shifted := a.Shift(5)

	require.Equal(t, segments.List{seg(5, 15)}, shifted)
	require.Equal(t, segments.List{seg(0, 10)}, a)
}

func TestDict_IsCoincident(t *testing.T) {
	t.Parallel()

	x := segments.Dict{"X": segments.NewList(seg(0, 10))}
	y := segments.Dict{"Y": segments.NewList(seg(5, 15))}

	require.True(t, x.IsCoincident(y, []string{"X", "Y"}), "lists of different instruments are compared")
	require.False(t, x.IsCoincident(y, []string{"X"}), "Y is not named")
	require.False(t, x.IsCoincident(y, []string{"Z"}))
	require.True(t, x.IsCoincident(y, nil))
}

func TestDict_ShiftKeys(t *testing.T) {
	t.Parallel()

	d := segments.Dict{
		"X": segments.NewList(seg(0, 10)),
		"Y": segments.NewList(seg(1005, 1015)),
		"Z": segments.NewList(seg(0, 1)),
	}

	shifted := d.ShiftKeys(map[string]segments.Time{"X": 0, "Y": -1000, "W": 3})
	require.Equal(t, segments.Dict{
		"X": {seg(0, 10)},
		"Y": {seg(5, 15)},
	}, shifted)

	all := d.Shift(map[string]segments.Time{"Y": -1000})
	require.Equal(t, segments.List{seg(0, 1)}, all["Z"])
	require.Equal(t, segments.List{seg(5, 15)}, all["Y"])
	require.Equal(t, segments.List{seg(1005, 1015)}, d["Y"], "input is not modified")
}

func TestDict_IntersectsAll(t *testing.T) {
	t.Parallel()

	coverage := segments.Dict{
		"H1": segments.NewList(seg(0, 100)),
		"L1": segments.NewList(seg(50, 150)),
	}

	require.True(t, coverage.IntersectsAll(segments.Dict{"H1": {seg(10, 20)}}))
	require.True(t, coverage.IntersectsAll(segments.Dict{"H1": {seg(60, 70)}, "L1": {seg(60, 70)}}))
	require.False(t, coverage.IntersectsAll(segments.Dict{"H1": {seg(60, 70)}, "L1": {seg(0, 10)}}))
	require.False(t, coverage.IntersectsAll(segments.Dict{"V1": {seg(60, 70)}}))
	require.False(t, coverage.IntersectsAll(segments.Dict{"H1": nil}))
	require.False(t, coverage.IntersectsAll(segments.Dict{}))
}

func TestDict_ExtractCommon(t *testing.T) {
	t.Parallel()

	d := segments.Dict{
		"H1": segments.NewList(seg(0, 100)),
		"L1": segments.NewList(seg(50, 150)),
	}

	require.Equal(t, segments.Dict{
		"H1": {seg(50, 100)},
		"L1": {seg(50, 100)},
	}, d.ExtractCommon([]string{"H1", "L1"}))
	require.Empty(t, d.ExtractCommon([]string{"H1", "V1"}))
}

func TestDict_ExtentAndClip(t *testing.T) {
	t.Parallel()

	d := segments.Dict{
		"H1": segments.NewList(seg(0, 100)),
		"L1": segments.NewList(seg(150, 250)),
		"V1": nil,
	}

	extent, ok := d.ExtentAll()
	require.True(t, ok)
	require.Equal(t, seg(0, 250), extent)

	clipped := d.Clip(seg(120, segments.PosInfinity))
	require.Equal(t, segments.Dict{"L1": {seg(150, 250)}}, clipped)

	_, ok = segments.Dict{"V1": nil}.ExtentAll()
	require.False(t, ok)
}

func TestDict_Normalize(t *testing.T) {
	t.Parallel()

	d := segments.Dict{
		"H1": segments.NewList(seg(1000, 1100)),
		"L1": segments.NewList(seg(1050, 1200)),
	}

	epoch, ok := d.Epoch()
	require.True(t, ok)
	require.Equal(t, segments.Time(1000), epoch)

	normalized := d.Normalize(epoch)
	require.Equal(t, segments.List{seg(0, 100)}, normalized["H1"])
	require.Equal(t, d, normalized.Denormalize(epoch))
}

func TestDict_Union(t *testing.T) {
	t.Parallel()

	a := segments.Dict{"H1": segments.NewList(seg(0, 10))}
	b := segments.Dict{"H1": segments.NewList(seg(5, 20)), "L1": segments.NewList(seg(0, 1))}

	require.Equal(t, segments.Dict{
		"H1": {seg(0, 20)},
		"L1": {seg(0, 1)},
	}, a.Union(b))
	require.Equal(t, segments.List{seg(0, 10)}, a["H1"])
}
