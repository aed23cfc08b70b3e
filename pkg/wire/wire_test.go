package wire

import (
	"math"
	"math/big"
	"testing"
	"testing/quick"

	"github.com/rawbytedev/oasis/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadUint32Overflow(t *testing.T) {
	_, err := ReadUint32(NewBytesSource(AppendUint(nil, 1<<32)))
	require.ErrorIs(t, err, common.ErrOverflow)

	v, err := ReadUint32(NewBytesSource(AppendUint(nil, math.MaxUint32)))
	require.NoError(t, err)
	require.Equal(t, uint32(math.MaxUint32), v)
}

func TestRealRoundTripKeepsKind(t *testing.T) {
	cases := []Real{
		{Kind: RealPosInt, Num: 1000},
		{Kind: RealNegInt, Num: 7},
		{Kind: RealPosReciprocal, Den: 4},
		{Kind: RealNegReciprocal, Den: 3},
		{Kind: RealPosRatio, Num: 3, Den: 8},
		{Kind: RealNegRatio, Num: 22, Den: 7},
		{Kind: RealFloat32, Float: 0.25},
		{Kind: RealFloat64, Float: math.Pi},
	}
	for _, r := range cases {
		b, err := AppendReal(nil, r)
		require.NoError(t, err)
		got, err := ReadReal(NewBytesSource(b))
		require.NoError(t, err)
		require.Equal(t, r, got)
	}
}

func TestRealErrors(t *testing.T) {
	_, err := ReadReal(NewBytesSource([]byte{8}))
	require.ErrorIs(t, err, common.ErrMalformedRecord)

	_, err = ReadReal(NewBytesSource([]byte{2, 0}))
	require.ErrorIs(t, err, common.ErrMalformedRecord)

	_, err = ReadReal(NewBytesSource([]byte{7, 1, 2, 3}))
	require.ErrorIs(t, err, common.ErrTruncatedStream)
}

func TestCompactReal(t *testing.T) {
	assert.Equal(t, Real{Kind: RealPosInt, Num: 1000}, CompactReal(1000))
	assert.Equal(t, Real{Kind: RealNegInt, Num: 90}, CompactReal(-90))
	assert.Equal(t, Real{Kind: RealPosReciprocal, Den: 8}, CompactReal(0.125))
	assert.Equal(t, Real{Kind: RealFloat32, Float: 1.5}, CompactReal(1.5))
	assert.Equal(t, Real{Kind: RealPosReciprocal, Den: 10}, CompactReal(0.1))
	assert.Equal(t, Real{Kind: RealFloat64, Float: 0.3}, CompactReal(0.3))

	f := func(x float64) bool {
		return CompactReal(x).Float64() == x || math.IsNaN(x)
	}
	require.NoError(t, quick.Check(f, nil))
}

func ratOf(r Real) *big.Rat {
	n := new(big.Int).SetUint64(r.Num)
	d := new(big.Int).SetUint64(r.Den)
	switch r.Kind {
	case RealPosInt, RealNegInt:
		d.SetInt64(1)
	case RealPosReciprocal, RealNegReciprocal:
		n.SetInt64(1)
	}
	q := new(big.Rat).SetFrac(n, d)
	switch r.Kind {
	case RealNegInt, RealNegReciprocal, RealNegRatio:
		q.Neg(q)
	}
	return q
}

func TestRealCanonical(t *testing.T) {
	cases := []struct {
		in, want Real
	}{
		{Real{Kind: RealPosRatio, Num: 2, Den: 3}, Real{Kind: RealPosRatio, Num: 2, Den: 3}},
		{Real{Kind: RealPosRatio, Num: 4, Den: 6}, Real{Kind: RealPosRatio, Num: 2, Den: 3}},
		{Real{Kind: RealNegRatio, Num: 6, Den: 3}, Real{Kind: RealNegInt, Num: 2}},
		{Real{Kind: RealPosRatio, Num: 3, Den: 9}, Real{Kind: RealPosReciprocal, Den: 3}},
		{Real{Kind: RealNegRatio, Num: 0, Den: 5}, Real{Kind: RealPosInt}},
		{Real{Kind: RealPosRatio, Num: 1<<62 + 1, Den: 3}, Real{Kind: RealPosRatio, Num: 1<<62 + 1, Den: 3}},
		{Real{Kind: RealFloat32, Float: 1}, Real{Kind: RealPosInt, Num: 1}},
		{Real{Kind: RealFloat64, Float: 1.5}, Real{Kind: RealFloat32, Float: 1.5}},
		{Real{Kind: RealFloat64, Float: 0.3}, Real{Kind: RealFloat64, Float: 0.3}},
		{Real{Kind: RealFloat32, Float: 1 << 60}, Real{Kind: RealFloat32, Float: 1 << 60}},
		{Real{Kind: RealNegReciprocal, Den: 7}, Real{Kind: RealNegReciprocal, Den: 7}},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.in.Canonical(), "%+v", tc.in)
	}
	require.Equal(t, RealFloat32, Real{Kind: RealFloat32, Float: math.NaN()}.Canonical().Kind)

	f := func(num, den uint64, neg bool) bool {
		if den == 0 {
			den = 1
		}
		r := Real{Kind: RealPosRatio, Num: num, Den: den}
		if neg {
			r.Kind = RealNegRatio
		}
		c := r.Canonical()
		return ratOf(c).Cmp(ratOf(r)) == 0 && realLen(c) <= realLen(r)
	}
	require.NoError(t, quick.Check(f, nil))
}

func TestStrings(t *testing.T) {
	b, err := AppendString(nil, NString, "TOP")
	require.NoError(t, err)
	require.Equal(t, []byte{3, 'T', 'O', 'P'}, b)

	_, err = AppendString(nil, NString, "")
	require.ErrorIs(t, err, common.ErrMalformedRecord)
	_, err = AppendString(nil, NString, "A B")
	require.ErrorIs(t, err, common.ErrMalformedRecord)
	_, err = AppendString(nil, AString, "tab\t")
	require.ErrorIs(t, err, common.ErrMalformedRecord)

	got, err := ReadString(NewBytesSource([]byte{3, 'a', ' ', 'b'}), AString)
	require.NoError(t, err)
	require.Equal(t, "a b", got)

	_, err = ReadString(NewBytesSource([]byte{3, 'a', ' ', 'b'}), NString)
	require.ErrorIs(t, err, common.ErrMalformedRecord)

	_, err = ReadBytes(NewBytesSource([]byte{5, 1, 2}))
	require.ErrorIs(t, err, common.ErrTruncatedStream)

	_, err = ReadBytes(NewBytesSource(AppendUint(nil, MaxStringLen+1)))
	require.ErrorIs(t, err, common.ErrOverflow)
}

func TestGDeltaForms(t *testing.T) {
	// Form 1: east by 5 => 5<<4 | 0<<1 | 0.
	require.Equal(t, []byte{0x50}, AppendGDelta(nil, Delta{5, 0}))
	// Form 1: south-west by 1 => 1<<4 | 6<<1.
	require.Equal(t, []byte{0x1c}, AppendGDelta(nil, Delta{-1, -1}))

	f := func(x, y int64) bool {
		d := Delta{x, y}
		got, err := ReadGDelta(NewBytesSource(AppendGDelta(nil, d)))
		return err == nil && got == d
	}
	require.NoError(t, quick.Check(f, nil))

	for _, d := range []Delta{{math.MinInt64, 3}, {math.MaxInt64, math.MinInt64}, {0, math.MinInt64}, {-7, 2}} {
		got, err := ReadGDelta(NewBytesSource(AppendGDelta(nil, d)))
		require.NoError(t, err)
		require.Equal(t, d, got)
	}
}

func TestIntervals(t *testing.T) {
	for _, iv := range []Interval{
		{Kind: IntervalAll},
		{Kind: IntervalUpTo, Hi: 5},
		{Kind: IntervalFrom, Lo: 9},
		{Kind: IntervalExact, Lo: 3, Hi: 3},
		{Kind: IntervalRange, Lo: 2, Hi: 40},
	} {
		got, err := ReadInterval(NewBytesSource(AppendInterval(nil, iv)))
		require.NoError(t, err)
		require.Equal(t, iv, got)
	}
	assert.True(t, Interval{Kind: IntervalRange, Lo: 2, Hi: 4}.Contains(3))
	assert.False(t, Interval{Kind: IntervalUpTo, Hi: 4}.Contains(5))
	assert.True(t, Interval{Kind: IntervalFrom, Lo: 4}.Contains(500))

	_, err := ReadInterval(NewBytesSource([]byte{5}))
	require.ErrorIs(t, err, common.ErrMalformedRecord)
}

func TestPointListKinds(t *testing.T) {
	rect := []Delta{{0, 0}, {10, 0}, {10, 5}, {0, 5}}
	path := []Delta{{0, 0}, {10, 0}, {10, 5}, {20, 15}, {23, 4}}

	cases := []struct {
		name    string
		pl      PointList
		polygon bool
	}{
		{"polygon-h", PointList{ManhattanHorizontal, rect}, true},
		{"polygon-2delta", PointList{Manhattan, rect}, true},
		{"polygon-3delta", PointList{Octangular, []Delta{{0, 0}, {4, 4}, {8, 0}}}, true},
		{"polygon-v", PointList{ManhattanVertical, []Delta{{0, 0}, {0, 5}, {10, 5}, {10, 0}}}, true},
		{"path-h", PointList{ManhattanHorizontal, []Delta{{0, 0}, {10, 0}, {10, 5}}}, false},
		{"path-gdelta", PointList{AllAngle, path}, false},
		{"path-double", PointList{AllAngleDouble, path}, false},
		{"polygon-double", PointList{AllAngleDouble, path}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b, err := AppendPointList(nil, tc.pl, tc.polygon)
			require.NoError(t, err)
			got, err := ReadPointList(NewBytesSource(b), tc.polygon)
			require.NoError(t, err)
			require.True(t, tc.pl.Equal(got), "got %+v", got)
		})
	}
}

func TestPointListImpliedVertex(t *testing.T) {
	// Two deltas (10 east, 5 north) describe a 4-vertex rectangle.
	b := []byte{byte(ManhattanHorizontal), 2}
	b = AppendSint(b, 10)
	b = AppendSint(b, 5)
	got, err := ReadPointList(NewBytesSource(b), true)
	require.NoError(t, err)
	require.Equal(t, []Delta{{0, 0}, {10, 0}, {10, 5}, {0, 5}}, got.Points)

	got, err = ReadPointList(NewBytesSource(b), false)
	require.NoError(t, err)
	require.Equal(t, []Delta{{0, 0}, {10, 0}, {10, 5}}, got.Points)
}

func TestPointListRejectsMisfit(t *testing.T) {
	_, err := AppendPointList(nil, PointList{Manhattan, []Delta{{0, 0}, {3, 4}}}, false)
	require.ErrorIs(t, err, common.ErrMalformedRecord)
	_, err = AppendPointList(nil, PointList{AllAngle, []Delta{{1, 0}}}, false)
	require.ErrorIs(t, err, common.ErrMalformedRecord)
	_, err = ReadPointList(NewBytesSource([]byte{6, 0}), false)
	require.ErrorIs(t, err, common.ErrMalformedRecord)
}

func TestPointListCompact(t *testing.T) {
	rect := PointList{AllAngle, []Delta{{0, 0}, {10, 0}, {10, 5}, {0, 5}}}
	c := rect.Compact(true)
	require.Equal(t, ManhattanHorizontal, c.Kind)

	tri := PointList{AllAngle, []Delta{{0, 0}, {4, 4}, {8, 0}}}
	require.Equal(t, Octangular, tri.Compact(true).Kind)
}

func TestPropValues(t *testing.T) {
	vals := []PropValue{
		RealValue{Real: Real{Kind: RealPosRatio, Num: 1, Den: 3}},
		UintValue{Value: 42},
		SintValue{Value: -42},
		StringValue{Kind: AString, Value: "hello world"},
		StringValue{Kind: BString, Value: "\x00\x01"},
		StringValue{Kind: NString, Value: "S_TOP_CELL"},
		RefValue{Kind: NString, Ref: 3},
	}
	var b []byte
	var err error
	for _, v := range vals {
		b, err = AppendPropValue(b, v)
		require.NoError(t, err)
	}
	s := NewBytesSource(b)
	var got []PropValue
	for range vals {
		v, err := ReadPropValue(s)
		require.NoError(t, err)
		got = append(got, v)
	}
	require.True(t, ValuesEqual(vals, got))
	require.Zero(t, s.Len())

	_, err = ReadPropValue(NewBytesSource([]byte{16}))
	require.ErrorIs(t, err, common.ErrMalformedRecord)
}

func FuzzReadPointList(f *testing.F) {
	f.Add([]byte{0, 2, 20, 10})
	f.Add([]byte{4, 1, 0x50})
	f.Fuzz(func(t *testing.T, data []byte) {
		pl, err := ReadPointList(NewBytesSource(data), true)
		if err != nil {
			return
		}
		if pl.Kind.Fits(pl.Points, true) {
			b, err := AppendPointList(nil, pl, true)
			require.NoError(t, err)
			again, err := ReadPointList(NewBytesSource(b), true)
			require.NoError(t, err)
			require.True(t, pl.Equal(again))
		}
	})
}
