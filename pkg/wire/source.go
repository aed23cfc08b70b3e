// Package wire holds the OASIS primitive codecs: varints, reals, strings,
// intervals, g-deltas, point lists and property values.
package wire

import (
	"io"

	"github.com/rawbytedev/oasis/internal/common"
)

// Source is the byte source every primitive reader consumes.
// ReadN returns a slice the caller may keep.
type Source interface {
	io.ByteReader
	ReadN(n int) ([]byte, error)
}

// BytesSource reads primitives from an in-memory buffer.
type BytesSource struct {
	b   []byte
	pos int
}

func NewBytesSource(b []byte) *BytesSource {
	return &BytesSource{b: b}
}

func (s *BytesSource) ReadByte() (byte, error) {
	if s.pos >= len(s.b) {
		return 0, common.ErrTruncatedStream
	}
	c := s.b[s.pos]
	s.pos++
	return c, nil
}

func (s *BytesSource) ReadN(n int) ([]byte, error) {
	if n < 0 || n > len(s.b)-s.pos {
		return nil, common.ErrTruncatedStream
	}
	out := make([]byte, n)
	copy(out, s.b[s.pos:])
	s.pos += n
	return out, nil
}

// Pos is the number of bytes consumed so far.
func (s *BytesSource) Pos() int { return s.pos }

// Len is the number of bytes left.
func (s *BytesSource) Len() int { return len(s.b) - s.pos }
