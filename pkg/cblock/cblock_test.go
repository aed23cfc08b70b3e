package cblock

import (
	"bytes"
	"testing"

	"github.com/rawbytedev/oasis/internal/common"
	"github.com/stretchr/testify/require"
)

func sample() []byte {
	return bytes.Repeat([]byte{0x14, 0x63, 0x01, 0x00, 0x64, 0xc8, 0x01}, 200)
}

func TestRoundTrip(t *testing.T) {
	for _, s := range []Scheme{Deflate, Zstd} {
		data := sample()
		c, err := Compress(s, 0, data)
		require.NoError(t, err)
		require.Less(t, len(c), len(data))
		got, err := Decompress(s, c, uint64(len(data)), DefaultMaxBlockSize)
		require.NoError(t, err, s.String())
		require.Equal(t, data, got)
	}
}

func TestEmptyBlock(t *testing.T) {
	c, err := Compress(Deflate, 9, nil)
	require.NoError(t, err)
	got, err := Decompress(Deflate, c, 0, DefaultMaxBlockSize)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestDeclaredLengthMustMatch(t *testing.T) {
	data := sample()
	c, err := Compress(Deflate, 0, data)
	require.NoError(t, err)
	_, err = Decompress(Deflate, c, uint64(len(data))-1, DefaultMaxBlockSize)
	require.ErrorIs(t, err, common.ErrCompression)
	_, err = Decompress(Deflate, c, uint64(len(data))+1, DefaultMaxBlockSize)
	require.ErrorIs(t, err, common.ErrCompression)
}

func TestLimitAndCorruption(t *testing.T) {
	_, err := Decompress(Deflate, nil, 1<<40, DefaultMaxBlockSize)
	require.ErrorIs(t, err, common.ErrCompression)

	_, err = Decompress(Deflate, []byte{0xff, 0xff, 0xff}, 10, DefaultMaxBlockSize)
	require.ErrorIs(t, err, common.ErrCompression)

	_, err = Decompress(Scheme(5), nil, 0, DefaultMaxBlockSize)
	require.ErrorIs(t, err, common.ErrCompression)
}

func TestParseScheme(t *testing.T) {
	s, err := ParseScheme("ZSTD")
	require.NoError(t, err)
	require.Equal(t, Zstd, s)
	require.False(t, s.Standard())
	_, err = ParseScheme("lz4")
	require.Error(t, err)
}

func BenchmarkCompressDeflate(b *testing.B) {
	data := sample()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Compress(Deflate, 0, data); err != nil {
			b.Fatal(err)
		}
	}
}
