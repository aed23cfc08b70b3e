package oasis

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rawbytedev/oasis/pkg/cblock"
	"github.com/rawbytedev/oasis/pkg/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseOptions(t *testing.T) {
	o, err := ParseOptions([]byte(`
validation: checksum32
compression: per-cell
compression_level: 9
number_encoding: compact
max_block_size: 1024
strict_tables: true
`))
	require.NoError(t, err)
	assert.Equal(t, validation.Checksum32, o.Validation)
	assert.Equal(t, CompressPerCell, o.Compression)
	assert.Equal(t, cblock.Deflate, o.CompressionScheme)
	assert.Equal(t, 9, o.CompressionLevel)
	assert.Equal(t, Compact, o.NumberEncoding)
	assert.Equal(t, uint64(1024), o.MaxBlockSize)
	assert.True(t, o.StrictTables)
	assert.NotNil(t, o.Logger)
}

func TestParseOptionsDefaults(t *testing.T) {
	o, err := ParseOptions(nil)
	require.NoError(t, err)
	want := DefaultOptions()
	assert.Equal(t, want.Validation, o.Validation)
	assert.Equal(t, want.MaxBlockSize, o.MaxBlockSize)
	assert.Equal(t, ExactRoundTrip, o.NumberEncoding)
}

func TestParseOptionsErrors(t *testing.T) {
	_, err := ParseOptions([]byte("compression: sometimes\n"))
	require.Error(t, err)
	_, err = ParseOptions([]byte("number_encoding: loose\n"))
	require.Error(t, err)
	_, err = ParseOptions([]byte("compression_scheme: zstd\n"))
	require.ErrorIs(t, err, ErrCompression)

	o, err := ParseOptions([]byte("compression_scheme: zstd\nextensions: true\n"))
	require.NoError(t, err)
	assert.Equal(t, cblock.Zstd, o.CompressionScheme)
}

func TestOptionsYAMLRoundTrip(t *testing.T) {
	o := DefaultOptions()
	o.Compression = CompressPerCell
	o.NumberEncoding = Compact
	o.Validation = validation.None
	data, err := yaml.Marshal(o)
	require.NoError(t, err)
	assert.Contains(t, string(data), "compression: per-cell")
	assert.NotContains(t, string(data), "logger")

	back, err := ParseOptions(data)
	require.NoError(t, err)
	assert.Equal(t, o.Compression, back.Compression)
	assert.Equal(t, o.NumberEncoding, back.NumberEncoding)
	assert.Equal(t, o.Validation, back.Validation)
}

func TestLoadOptions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oasis.yaml")
	require.NoError(t, os.WriteFile(path, []byte("validation: none\n"), 0o600))
	o, err := LoadOptions(path)
	require.NoError(t, err)
	assert.Equal(t, validation.None, o.Validation)

	_, err = LoadOptions(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	// a loaded file plugs straight into the codec
	data, err := NewLayout(1000).Encode(WithOptions(o))
	require.NoError(t, err)
	l, err := Decode(data, WithOptions(o))
	require.NoError(t, err)
	assert.Equal(t, validation.None, l.Validation)
}

func TestFunctionalOptions(t *testing.T) {
	o := NewOptions(
		WithBlockBoundary(func(int, *Cell) bool { return true }),
		WithMaxBlockSize(0),
		WithLogger(nil),
	)
	assert.Equal(t, CompressCustom, o.Compression)
	assert.NotNil(t, o.BlockBoundary)
	assert.Equal(t, uint64(cblock.DefaultMaxBlockSize), o.MaxBlockSize)
	assert.NotNil(t, o.Logger)

	zero := NewOptions(WithOptions(Options{}))
	assert.Equal(t, uint64(cblock.DefaultMaxBlockSize), zero.MaxBlockSize)
	assert.NotNil(t, zero.Logger)
	assert.Equal(t, "per-cell", CompressPerCell.String())
	assert.Equal(t, "exact-roundtrip", ExactRoundTrip.String())
}
