// Package cblock compresses and expands the payload of CBLOCK records.
package cblock

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zstd"
	"github.com/rawbytedev/oasis/internal/common"
)

// Scheme is the CBLOCK compression type.
type Scheme uint64

const (
	// Deflate is raw DEFLATE without a zlib header, the only standard scheme.
	Deflate Scheme = 0
	// Zstd is a private scheme. Readers of other implementations will reject
	// it, so it is only used when extensions are enabled.
	Zstd Scheme = 0x7a73
)

// DefaultMaxBlockSize bounds the declared decompressed size of one block.
const DefaultMaxBlockSize = 256 << 20

func (s Scheme) String() string {
	switch s {
	case Deflate:
		return "deflate"
	case Zstd:
		return "zstd"
	}
	return fmt.Sprintf("scheme(%d)", uint64(s))
}

// Standard reports whether s is defined by the format itself.
func (s Scheme) Standard() bool { return s == Deflate }

func ParseScheme(name string) (Scheme, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "deflate":
		return Deflate, nil
	case "zstd":
		return Zstd, nil
	}
	return Deflate, fmt.Errorf("unknown compression scheme %q", name)
}

func (s Scheme) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Scheme) UnmarshalText(b []byte) error {
	v, err := ParseScheme(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Compress encodes data with scheme. level follows the flate levels for
// Deflate and the zstd levels for Zstd; 0 selects the default.
func Compress(scheme Scheme, level int, data []byte) ([]byte, error) {
	switch scheme {
	case Deflate:
		if level == 0 {
			level = flate.DefaultCompression
		}
		var buf bytes.Buffer
		w, err := flate.NewWriter(&buf, level)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrCompression, err)
		}
		if _, err := w.Write(data); err != nil {
			_ = w.Close()
			return nil, fmt.Errorf("%w: %v", common.ErrCompression, err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrCompression, err)
		}
		return buf.Bytes(), nil
	case Zstd:
		opts := []zstd.EOption{zstd.WithEncoderConcurrency(1), zstd.WithZeroFrames(true)}
		if level != 0 {
			opts = append(opts, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
		}
		enc, err := zstd.NewWriter(nil, opts...)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrCompression, err)
		}
		defer enc.Close()
		return enc.EncodeAll(data, nil), nil
	}
	return nil, fmt.Errorf("%w: unknown scheme %d", common.ErrCompression, uint64(scheme))
}

// Decompress expands data and requires exactly declared bytes out of it.
// Declared sizes above limit are refused before anything is inflated.
func Decompress(scheme Scheme, data []byte, declared, limit uint64) ([]byte, error) {
	if declared > limit || declared >= math.MaxInt64 {
		return nil, fmt.Errorf("%w: declared size %d exceeds limit %d", common.ErrCompression, declared, limit)
	}
	var r io.Reader
	switch scheme {
	case Deflate:
		fr := flate.NewReader(bytes.NewReader(data))
		defer fr.Close()
		r = fr
	case Zstd:
		zr, err := zstd.NewReader(bytes.NewReader(data), zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrCompression, err)
		}
		defer zr.Close()
		r = zr
	default:
		return nil, fmt.Errorf("%w: unknown scheme %d", common.ErrCompression, uint64(scheme))
	}

	hint := declared
	if hint > 1<<20 {
		hint = 1 << 20
	}
	out := bytes.NewBuffer(make([]byte, 0, hint))
	n, err := out.ReadFrom(io.LimitReader(r, int64(declared)+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrCompression, err)
	}
	if uint64(n) != declared {
		return nil, fmt.Errorf("%w: block inflates to %d bytes, declared %d", common.ErrCompression, n, declared)
	}
	return out.Bytes(), nil
}
