package validation

import (
	"hash/crc32"
	"testing"
	"testing/quick"

	"github.com/rawbytedev/oasis/internal/common"
	"github.com/stretchr/testify/require"
)

func TestDigestMatchesOneShot(t *testing.T) {
	f := func(a, b []byte) bool {
		d := NewDigest()
		d.Write(a)
		d.Write(b)
		all := append(append([]byte{}, a...), b...)
		return d.Sum(CRC32) == Compute(CRC32, all) &&
			d.Sum(Checksum32) == Compute(Checksum32, all) &&
			d.Sum(None) == 0
	}
	require.NoError(t, quick.Check(f, nil))
}

func TestKnownValues(t *testing.T) {
	data := []byte("%SEMI-OASIS\r\n")
	require.Equal(t, crc32.ChecksumIEEE(data), Compute(CRC32, data))
	require.Equal(t, uint32(6), Compute(Checksum32, []byte{1, 2, 3}))
	require.Equal(t, uint32(255*4), Compute(Checksum32, []byte{255, 255, 255, 255}))
}

func TestCheck(t *testing.T) {
	require.NoError(t, Check(None, 1, 2))
	require.NoError(t, Check(CRC32, 7, 7))
	err := Check(CRC32, 7, 8)
	require.ErrorIs(t, err, common.ErrValidationMismatch)
	var ve *Error
	require.ErrorAs(t, err, &ve)
	require.Equal(t, uint32(7), ve.Stored)
	require.Equal(t, uint32(8), ve.Computed)
}

func TestSchemeText(t *testing.T) {
	for _, s := range []Scheme{None, CRC32, Checksum32} {
		b, err := s.MarshalText()
		require.NoError(t, err)
		var got Scheme
		require.NoError(t, got.UnmarshalText(b))
		require.Equal(t, s, got)
	}
	var s Scheme
	require.Error(t, s.UnmarshalText([]byte("md5")))
}

func TestDigestWriteByte(t *testing.T) {
	var d Digest
	for _, c := range []byte("abc") {
		require.NoError(t, d.WriteByte(c))
	}
	require.Equal(t, crc32.ChecksumIEEE([]byte("abc")), d.Sum(CRC32))
	require.Equal(t, uint32('a'+'b'+'c'), d.Sum(Checksum32))
}
