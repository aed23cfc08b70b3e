package stream

import (
	"bufio"
	"io"

	"github.com/rawbytedev/oasis/pkg/validation"
)

// Writer writes an OASIS file, diverting bytes into a buffer while a block
// is open.
type Writer struct {
	out     *bufio.Writer
	digest  validation.Digest
	offset  uint64
	block   []byte
	inBlock bool
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{out: bufio.NewWriterSize(w, chunk)}
}

func (w *Writer) Write(p []byte) error {
	if w.inBlock {
		w.block = append(w.block, p...)
		return nil
	}
	if _, err := w.out.Write(p); err != nil {
		return err
	}
	w.digest.Write(p)
	w.offset += uint64(len(p))
	return nil
}

// BeginBlock starts buffering. Nested blocks are not allowed by the format,
// so a second call keeps the current buffer.
func (w *Writer) BeginBlock() {
	if !w.inBlock {
		w.inBlock = true
		w.block = w.block[:0]
	}
}

// EndBlock stops buffering and returns what was buffered. The slice is
// reused by the next block.
func (w *Writer) EndBlock() []byte {
	w.inBlock = false
	return w.block
}

func (w *Writer) InBlock() bool { return w.inBlock }

// Offset is the number of bytes written to the file so far.
func (w *Writer) Offset() uint64 { return w.offset }

// Sum is the signature of everything written to the file so far.
func (w *Writer) Sum(s validation.Scheme) uint32 { return w.digest.Sum(s) }

func (w *Writer) Flush() error { return w.out.Flush() }
