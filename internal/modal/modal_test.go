package modal

import (
	"testing"

	"github.com/rawbytedev/oasis/internal/common"
	"github.com/rawbytedev/oasis/pkg/repetition"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestSlotUnset(t *testing.T) {
	var tb Table
	_, err := tb.Layer.Get("layer")
	require.ErrorIs(t, err, common.ErrUnsetModalField)
	require.Contains(t, err.Error(), "layer")

	tb.Layer.Set(4)
	v, err := tb.Layer.Get("layer")
	require.NoError(t, err)
	require.Equal(t, uint32(4), v)

	tb.Reset()
	require.False(t, tb.Layer.IsSet())
}

func TestChoose(t *testing.T) {
	var tb Table
	_, err := Choose(&tb.CircleRadius, nil, "circle-radius")
	require.ErrorIs(t, err, common.ErrUnsetModalField)

	v, err := Choose(&tb.CircleRadius, ptr(uint64(9)), "circle-radius")
	require.NoError(t, err)
	require.Equal(t, uint64(9), v)

	v, err = Choose(&tb.CircleRadius, nil, "circle-radius")
	require.NoError(t, err)
	require.Equal(t, uint64(9), v)
}

func TestCoordAbsoluteAndRelative(t *testing.T) {
	var tb Table
	x, err := tb.Coord(nil, &tb.GeometryX)
	require.NoError(t, err)
	require.Zero(t, x)

	x, err = tb.Coord(ptr(int64(100)), &tb.GeometryX)
	require.NoError(t, err)
	require.Equal(t, int64(100), x)

	tb.Relative = true
	x, err = tb.Coord(ptr(int64(-30)), &tb.GeometryX)
	require.NoError(t, err)
	require.Equal(t, int64(70), x)
	require.Equal(t, int64(70), tb.GeometryX)

	x, err = tb.Coord(nil, &tb.GeometryX)
	require.NoError(t, err)
	require.Equal(t, int64(70), x)
}

func TestOmit(t *testing.T) {
	var tb Table
	require.False(t, Omit(&tb.Datatype, 2))
	require.True(t, Omit(&tb.Datatype, 2))
	require.False(t, Omit(&tb.Datatype, 3))

	var r Slot[repetition.Repetition]
	r.Set(repetition.Row{Count: 2, Space: 1})
	got, ok := r.Peek()
	require.True(t, ok)
	require.Equal(t, repetition.Row{Count: 2, Space: 1}, got)
	r.Clear()
	require.False(t, r.IsSet())
}
