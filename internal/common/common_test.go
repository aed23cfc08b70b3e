package common

import (
	"bytes"
	"math"
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/require"
)

func TestVarUintKnownBytes(t *testing.T) {
	require.Equal(t, []byte{0x00}, WriteVarUint(nil, 0))
	require.Equal(t, []byte{0x7f}, WriteVarUint(nil, 127))
	require.Equal(t, []byte{0x80, 0x01}, WriteVarUint(nil, 128))
	require.Equal(t, []byte{0xc8, 0x01}, WriteVarUint(nil, 200))
	require.Len(t, WriteVarUint(nil, math.MaxUint64), MaxVarintLen)
}

func TestVarUintRoundTrip(t *testing.T) {
	f := func(x uint64) bool {
		v, err := ReadVarUint(bytes.NewReader(WriteVarUint(nil, x)))
		return err == nil && v == x
	}
	require.NoError(t, quick.Check(f, nil))
}

func TestSignedRoundTrip(t *testing.T) {
	f := func(x int64) bool {
		v, err := ReadSigned(bytes.NewReader(WriteSigned(nil, x)))
		return err == nil && v == x
	}
	require.NoError(t, quick.Check(f, nil))
	for _, x := range []int64{0, -1, 1, math.MinInt64, math.MaxInt64} {
		v, err := ReadSigned(bytes.NewReader(WriteSigned(nil, x)))
		require.NoError(t, err)
		require.Equal(t, x, v)
	}
	// -3 => magnitude 3, sign 1 => 0b111
	require.Equal(t, []byte{0x07}, WriteSigned(nil, -3))
}

func TestTaggedKeepsFullMagnitude(t *testing.T) {
	for _, bits := range []uint{1, 2, 3, 4} {
		f := func(mag, tag uint64) bool {
			tag &= 1<<bits - 1
			m, tg, err := ReadTagged(bytes.NewReader(WriteTagged(nil, mag, tag, bits)), bits)
			return err == nil && m == mag && tg == tag
		}
		require.NoError(t, quick.Check(f, nil), "bits=%d", bits)
	}
}

func TestReadVarUintPaddedZeroGroups(t *testing.T) {
	pad := append(bytes.Repeat([]byte{0x80}, 200), 0x00)
	v, err := ReadVarUint(bytes.NewReader(pad))
	require.NoError(t, err)
	require.Zero(t, v)
}

func TestReadVarUintOverflow(t *testing.T) {
	b := append(bytes.Repeat([]byte{0xff}, 10), 0x01)
	_, err := ReadVarUint(bytes.NewReader(b))
	require.ErrorIs(t, err, ErrOverflow)

	_, err = ReadSigned(bytes.NewReader(WriteTagged(nil, 1<<63+1, 1, 1)))
	require.ErrorIs(t, err, ErrOverflow)
}

func TestReadVarUintTruncated(t *testing.T) {
	_, err := ReadVarUint(bytes.NewReader([]byte{0x80, 0x80}))
	require.ErrorIs(t, err, ErrTruncatedStream)
	_, err = ReadVarUint(bytes.NewReader(nil))
	require.ErrorIs(t, err, ErrTruncatedStream)
}

func TestFloatHelpers(t *testing.T) {
	require.Equal(t, float32(1.5), Float32(PutFloat32(nil, 1.5)))
	require.Equal(t, math.Pi, Float64(PutFloat64(nil, math.Pi)))
}

func BenchmarkWriteVarUint(b *testing.B) {
	b.ReportAllocs()
	buf := make([]byte, 0, 16)
	for i := 0; i < b.N; i++ {
		buf = WriteVarUint(buf[:0], uint64(i)*0x9e3779b97f4a7c15)
	}
}
