// Package index records where every cell of an OASIS file lives so cells
// can be decoded independently and in parallel. An index is built with one
// pre-scan of the file and can be saved next to it.
package index

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"runtime"

	"github.com/cespare/xxhash/v2"
	"github.com/rawbytedev/oasis"
	"github.com/rawbytedev/oasis/internal/ctxlog"
	"github.com/rawbytedev/oasis/internal/stream"
	"github.com/rawbytedev/oasis/pkg/cblock"
	"github.com/rawbytedev/oasis/pkg/names"
	"github.com/rawbytedev/oasis/pkg/record"
	"github.com/rawbytedev/oasis/pkg/wire"
	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/sync/errgroup"
)

// FormatVersion is bumped whenever the saved layout changes.
const FormatVersion = 1

// File is the Block value of segments that point into the file itself.
const File = -1

// Segment is a byte range of cell records, either in the file or in the
// inflated contents of a CBLOCK.
type Segment struct {
	Block int    `msgpack:"b"`
	Start uint64 `msgpack:"s"`
	End   uint64 `msgpack:"e"`
}

// Block is a CBLOCK record some cell reads from.
type Block struct {
	Offset uint64 `msgpack:"o"`
	Size   uint64 `msgpack:"n"`
}

// Entry locates one cell. Its segments, concatenated, form a fragment
// oasis.DecodeCell accepts.
type Entry struct {
	Name     wire.NameRef `msgpack:"name"`
	Segments []Segment    `msgpack:"segs"`
}

// NameEntry is one CELLNAME record with its resolved number.
type NameEntry struct {
	Ref   uint64 `msgpack:"r"`
	Value string `msgpack:"v"`
}

type Index struct {
	Version int         `msgpack:"version"`
	Size    uint64      `msgpack:"size"`
	Sum     uint64      `msgpack:"sum"`
	Blocks  []Block     `msgpack:"blocks"`
	Cells   []Entry     `msgpack:"cells"`
	Names   []NameEntry `msgpack:"names"`
}

type builder struct {
	o  oasis.Options
	r  *stream.Reader
	ix *Index

	cells    *names.Table
	cur      int
	segBlock int
	segStart uint64
}

// Build scans data once and records the segments of every cell. Only the
// record framing is checked; the signature is left to oasis.Decode.
func Build(data []byte, opts ...oasis.Option) (*Index, error) {
	b := &builder{
		o:     oasis.NewOptions(opts...),
		r:     stream.NewReader(bytes.NewReader(data)),
		ix:    &Index{Version: FormatVersion, Size: uint64(len(data)), Sum: xxhash.Sum64(data)},
		cells: names.NewTable(names.CellName),
		cur:   -1,
	}
	if err := b.scan(); err != nil {
		return nil, err
	}
	for _, e := range b.cells.Entries() {
		b.ix.Names = append(b.ix.Names, NameEntry{Ref: e.Ref, Value: e.Value})
	}
	return b.ix, nil
}

func (b *builder) pos() (int, uint64) {
	if b.r.InBlock() {
		return len(b.ix.Blocks) - 1, uint64(b.r.BlockPos())
	}
	return File, b.r.Offset()
}

func (b *builder) closeSegment(end uint64) {
	if b.cur < 0 || end <= b.segStart {
		return
	}
	e := &b.ix.Cells[b.cur]
	e.Segments = append(e.Segments, Segment{Block: b.segBlock, Start: b.segStart, End: end})
}

func (b *builder) scan() error {
	magic, err := b.r.ReadN(len(record.Magic))
	if err != nil || string(magic) != record.Magic {
		return fmt.Errorf("%w: missing %q", oasis.ErrMalformedHeader, record.Magic)
	}
	id, err := record.ReadID(b.r)
	if err != nil || id != record.IDStart {
		return fmt.Errorf("%w: START record expected", oasis.ErrMalformedHeader)
	}
	if _, err := record.Read(b.r, id); err != nil {
		return fmt.Errorf("%w: %v", oasis.ErrMalformedHeader, err)
	}
	for {
		if b.r.BlockDone() {
			_, end := b.pos()
			b.closeSegment(end)
			b.r.PopBlock()
			b.segBlock, b.segStart = File, b.r.Offset()
		}
		blk, at := b.pos()
		where := b.r.Position()
		id, err := record.ReadID(b.r)
		if err != nil {
			return fmt.Errorf("%s: %w", where, err)
		}
		if id == record.IDEnd {
			if b.r.InBlock() {
				return fmt.Errorf("%s: %w: END inside CBLOCK", where, oasis.ErrMalformedRecord)
			}
			b.closeSegment(at)
			return nil
		}
		rec, err := record.Read(b.r, id)
		if err != nil {
			return fmt.Errorf("%s: %s: %w", where, id, err)
		}
		switch rec := rec.(type) {
		case *record.CBlock:
			b.closeSegment(at)
			data, err := inflate(rec, b.o)
			if err != nil {
				return fmt.Errorf("%s: %w", where, err)
			}
			if err := b.r.PushBlock(data, at); err != nil {
				return err
			}
			b.ix.Blocks = append(b.ix.Blocks, Block{Offset: at, Size: rec.Uncompressed})
			b.segBlock, b.segStart = len(b.ix.Blocks)-1, 0
		case *record.Cell:
			b.closeSegment(at)
			b.ix.Cells = append(b.ix.Cells, Entry{Name: rec.Name})
			b.cur, b.segBlock, b.segStart = len(b.ix.Cells)-1, blk, at
		case *record.Name:
			b.closeSegment(at)
			b.cur = -1
			if rec.Table == names.CellName {
				e := names.Entry{Value: rec.Value}
				if rec.Ref != nil {
					e.Ref, e.Explicit = *rec.Ref, true
				}
				if _, err := b.cells.Insert(e); err != nil {
					return fmt.Errorf("%s: %w", where, err)
				}
			}
		case *record.LayerName, *record.XName:
			b.closeSegment(at)
			b.cur = -1
		}
	}
}

func inflate(c *record.CBlock, o oasis.Options) ([]byte, error) {
	if !c.Scheme.Standard() && !o.Extensions {
		return nil, fmt.Errorf("%w: CBLOCK scheme %s", oasis.ErrCompression, c.Scheme)
	}
	return cblock.Decompress(c.Scheme, c.Data, c.Uncompressed, o.MaxBlockSize)
}

// Check reports whether ix was built from data.
func (ix *Index) Check(data []byte) error {
	if ix.Size != uint64(len(data)) {
		return fmt.Errorf("%w: index built for %d bytes, file has %d", oasis.ErrMalformedRecord, ix.Size, len(data))
	}
	if sum := xxhash.Sum64(data); sum != ix.Sum {
		return fmt.Errorf("%w: index fingerprint %016x, file has %016x", oasis.ErrMalformedRecord, ix.Sum, sum)
	}
	return nil
}

// Lookup returns the position of the cell called name.
func (ix *Index) Lookup(name string) (int, bool) {
	refs := make(map[uint64]string, len(ix.Names))
	for _, n := range ix.Names {
		refs[n.Ref] = n.Value
	}
	for i, c := range ix.Cells {
		got := c.Name.Name
		if c.Name.ByRef {
			got = refs[c.Name.Ref]
		}
		if got == name {
			return i, true
		}
	}
	return 0, false
}

// Inflate decompresses block i of data.
func (ix *Index) Inflate(data []byte, i int, opts ...oasis.Option) ([]byte, error) {
	if i < 0 || i >= len(ix.Blocks) {
		return nil, fmt.Errorf("%w: block %d out of range", oasis.ErrMalformedRecord, i)
	}
	off := ix.Blocks[i].Offset
	if off >= uint64(len(data)) {
		return nil, fmt.Errorf("%w: block %d at %d past end of file", oasis.ErrMalformedRecord, i, off)
	}
	src := wire.NewBytesSource(data[off:])
	id, err := record.ReadID(src)
	if err != nil {
		return nil, err
	}
	if id != record.IDCBlock {
		return nil, fmt.Errorf("%w: no CBLOCK at offset %d", oasis.ErrMalformedRecord, off)
	}
	rec, err := record.Read(src, id)
	if err != nil {
		return nil, err
	}
	return inflate(rec.(*record.CBlock), oasis.NewOptions(opts...))
}

// Fragment assembles the records of cell i. block returns the inflated
// contents of a block.
func (ix *Index) Fragment(data []byte, i int, block func(int) ([]byte, error)) ([]byte, error) {
	if i < 0 || i >= len(ix.Cells) {
		return nil, fmt.Errorf("%w: cell %d out of range", oasis.ErrMalformedRecord, i)
	}
	segs := ix.Cells[i].Segments
	var out []byte
	for _, s := range segs {
		src := data
		if s.Block != File {
			var err error
			if src, err = block(s.Block); err != nil {
				return nil, err
			}
		}
		if s.Start > s.End || s.End > uint64(len(src)) {
			return nil, fmt.Errorf("%w: segment %d..%d outside its source", oasis.ErrMalformedRecord, s.Start, s.End)
		}
		if len(segs) == 1 {
			return src[s.Start:s.End], nil
		}
		out = append(out, src[s.Start:s.End]...)
	}
	return out, nil
}

// DecodeAll decodes every indexed cell with at most workers goroutines.
// Blocks are inflated once, up front. Cells come back in file order.
func DecodeAll(ctx context.Context, data []byte, ix *Index, workers int, opts ...oasis.Option) ([]*oasis.Cell, error) {
	if err := ix.Check(data); err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	log := ctxlog.FromContext(ctx)
	log.Debug("decode cells", "cells", len(ix.Cells), "blocks", len(ix.Blocks), "workers", workers)

	blocks := make([][]byte, len(ix.Blocks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range ix.Blocks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			b, err := ix.Inflate(data, i, opts...)
			if err != nil {
				return fmt.Errorf("block %d: %w", i, err)
			}
			blocks[i] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	block := func(i int) ([]byte, error) {
		if i < 0 || i >= len(blocks) {
			return nil, fmt.Errorf("%w: block %d out of range", oasis.ErrMalformedRecord, i)
		}
		return blocks[i], nil
	}

	cells := make([]*oasis.Cell, len(ix.Cells))
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range ix.Cells {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			frag, err := ix.Fragment(data, i, block)
			if err != nil {
				return fmt.Errorf("cell %d: %w", i, err)
			}
			c, err := oasis.DecodeCell(frag, opts...)
			if err != nil {
				return fmt.Errorf("cell %d: %w", i, err)
			}
			cells[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Warn("decode cells failed", "error", err)
		return nil, err
	}
	return cells, nil
}

// Save writes ix as msgpack.
func (ix *Index) Save(w io.Writer) error {
	return msgpack.NewEncoder(w).Encode(ix)
}

// Load reads an index written by Save.
func Load(r io.Reader) (*Index, error) {
	var ix Index
	if err := msgpack.NewDecoder(r).Decode(&ix); err != nil {
		return nil, fmt.Errorf("index: %w", err)
	}
	if ix.Version != FormatVersion {
		return nil, fmt.Errorf("index: format version %d, want %d", ix.Version, FormatVersion)
	}
	return &ix, nil
}
