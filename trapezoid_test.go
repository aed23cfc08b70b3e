package oasis

import (
	"testing"

	"github.com/rawbytedev/oasis/pkg/wire"
	"github.com/stretchr/testify/require"
)

func TestTrapezoidVertices(t *testing.T) {
	tr := &Trapezoid{W: 10, H: 5, DeltaA: 2, DeltaB: -2}
	pts, err := tr.Vertices()
	require.NoError(t, err)
	require.Equal(t, []wire.Delta{{X: 2, Y: 0}, {X: 10, Y: 0}, {X: 8, Y: 5}, {X: 0, Y: 5}}, pts)

	tr.X, tr.Y = 100, -100
	pts, err = tr.Vertices()
	require.NoError(t, err)
	require.Equal(t, wire.Delta{X: 102, Y: -100}, pts[0])

	v := &Trapezoid{Vertical: true, W: 4, H: 10, DeltaA: 3, DeltaB: -1}
	pts, err = v.Vertices()
	require.NoError(t, err)
	require.Equal(t, []wire.Delta{{X: 0, Y: 0}, {X: 4, Y: 3}, {X: 4, Y: 10}, {X: 0, Y: 9}}, pts)
}

func TestTrapezoidDegenerate(t *testing.T) {
	_, err := (&Trapezoid{W: 4, H: 5, DeltaA: 3, DeltaB: 3}).Vertices()
	require.ErrorIs(t, err, ErrMalformedRecord)
	_, err = (&Trapezoid{Vertical: true, W: 4, H: 5, DeltaA: -3, DeltaB: -3}).Vertices()
	require.ErrorIs(t, err, ErrMalformedRecord)
	_, err = (&Trapezoid{W: 1 << 63, H: 1}).Vertices()
	require.ErrorIs(t, err, ErrOverflow)
}

func TestCTrapezoidVertices(t *testing.T) {
	cases := []struct {
		typ  uint8
		w, h uint64
		want []wire.Delta
	}{
		{0, 10, 4, []wire.Delta{{}, {Y: 4}, {X: 6, Y: 4}, {X: 10}}},
		{4, 10, 4, []wire.Delta{{}, {X: 4, Y: 4}, {X: 6, Y: 4}, {X: 10}}},
		{8, 4, 10, []wire.Delta{{}, {Y: 10}, {X: 4, Y: 6}, {X: 4}}},
		{16, 6, 6, []wire.Delta{{}, {Y: 6}, {X: 6}}},
		{20, 10, 5, []wire.Delta{{}, {X: 5, Y: 5}, {X: 10}}},
		{23, 3, 6, []wire.Delta{{X: 3}, {Y: 3}, {X: 3, Y: 6}}},
		{24, 7, 2, []wire.Delta{{}, {Y: 2}, {X: 7, Y: 2}, {X: 7}}},
		{25, 3, 3, []wire.Delta{{}, {Y: 3}, {X: 3, Y: 3}, {X: 3}}},
	}
	for _, tc := range cases {
		c := &CTrapezoid{Type: tc.typ, W: tc.w, H: tc.h}
		pts, err := c.Vertices()
		require.NoError(t, err, "type %d", tc.typ)
		require.Equal(t, tc.want, pts, "type %d", tc.typ)
	}
}

func TestCTrapezoidConstraints(t *testing.T) {
	for _, c := range []*CTrapezoid{
		{Type: 0, W: 3, H: 4},
		{Type: 5, W: 7, H: 4},
		{Type: 9, W: 5, H: 4},
		{Type: 13, W: 3, H: 5},
		{Type: 26, W: 1, H: 1},
	} {
		_, err := c.Vertices()
		require.ErrorIs(t, err, ErrMalformedRecord, "type %d", c.Type)
	}
}

func TestImpliedSize(t *testing.T) {
	w, h, err := impliedSize(22, 4, 0)
	require.NoError(t, err)
	require.Equal(t, []uint64{4, 8}, []uint64{w, h})
	w, h, err = impliedSize(21, 0, 4)
	require.NoError(t, err)
	require.Equal(t, []uint64{8, 4}, []uint64{w, h})
	_, _, err = impliedSize(20, 0, 1<<63)
	require.ErrorIs(t, err, ErrOverflow)
	require.Equal(t, byte(0), implied(3))
}
