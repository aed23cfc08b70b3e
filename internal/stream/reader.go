// Package stream is the byte layer under the record codec. The reader
// switches between the file and the inflated contents of a CBLOCK; the
// writer diverts records into a block buffer while one is open. Both keep
// the validation digest of the bytes that are really in the file.
package stream

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/rawbytedev/oasis/internal/common"
	"github.com/rawbytedev/oasis/pkg/validation"
	"github.com/rawbytedev/oasis/pkg/wire"
)

// chunk bounds how much ReadN allocates ahead of data actually arriving.
const chunk = 64 << 10

// Reader is a wire.Source over an OASIS file.
type Reader struct {
	outer  *bufio.Reader
	digest validation.Digest
	offset uint64

	block   *wire.BytesSource
	blockAt uint64
}

var _ wire.Source = (*Reader)(nil)

func NewReader(r io.Reader) *Reader {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReaderSize(r, chunk)
	}
	return &Reader{outer: br}
}

func (r *Reader) ReadByte() (byte, error) {
	if r.block != nil {
		return r.block.ReadByte()
	}
	c, err := r.outer.ReadByte()
	if err != nil {
		return 0, common.Truncated(err)
	}
	r.digest.WriteByte(c)
	r.offset++
	return c, nil
}

func (r *Reader) ReadN(n int) ([]byte, error) {
	if r.block != nil {
		return r.block.ReadN(n)
	}
	if n < 0 {
		return nil, common.ErrTruncatedStream
	}
	out := make([]byte, 0, min(n, chunk))
	for len(out) < n {
		want := min(n-len(out), chunk)
		start := len(out)
		out = append(out, make([]byte, want)...)
		got, err := io.ReadFull(r.outer, out[start:])
		r.digest.Write(out[start : start+got])
		r.offset += uint64(got)
		if err != nil {
			return nil, common.Truncated(err)
		}
	}
	return out, nil
}

// Offset is the number of file bytes consumed.
func (r *Reader) Offset() uint64 { return r.offset }

// Sum is the signature of the file bytes consumed so far.
func (r *Reader) Sum(s validation.Scheme) uint32 { return r.digest.Sum(s) }

// AtEOF reports whether the file has no more bytes. Only valid outside a
// block.
func (r *Reader) AtEOF() bool {
	_, err := r.outer.Peek(1)
	return errors.Is(err, io.EOF)
}

// PushBlock makes data the current byte source until PopBlock. at is the
// file offset of the CBLOCK record that carried it.
func (r *Reader) PushBlock(data []byte, at uint64) error {
	if r.block != nil {
		return fmt.Errorf("%w: CBLOCK inside CBLOCK at offset %d", common.ErrMalformedRecord, at)
	}
	r.block = wire.NewBytesSource(data)
	r.blockAt = at
	return nil
}

// InBlock reports whether bytes come from a CBLOCK.
func (r *Reader) InBlock() bool { return r.block != nil }

// BlockDone reports whether the current block has been fully consumed.
func (r *Reader) BlockDone() bool { return r.block != nil && r.block.Len() == 0 }

// BlockOffset is the file offset of the current CBLOCK.
func (r *Reader) BlockOffset() uint64 { return r.blockAt }

// BlockPos is the position inside the current block.
func (r *Reader) BlockPos() int {
	if r.block == nil {
		return 0
	}
	return r.block.Pos()
}

// PopBlock returns to the file.
func (r *Reader) PopBlock() { r.block = nil }

// Position describes where the next record starts, for error messages.
func (r *Reader) Position() string {
	if r.block != nil {
		return fmt.Sprintf("offset %d (CBLOCK at %d, +%d)", r.offset, r.blockAt, r.block.Pos())
	}
	return fmt.Sprintf("offset %d", r.offset)
}
