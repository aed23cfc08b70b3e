package index

import (
	"fmt"

	"github.com/hashicorp/golang-lru/v2"
	"github.com/rawbytedev/oasis"
)

// Cache decodes cells on demand and keeps the most recently used ones,
// together with the inflated blocks they came from. It is safe for
// concurrent use.
type Cache struct {
	data   []byte
	ix     *Index
	opts   []oasis.Option
	cells  *lru.Cache[int, *oasis.Cell]
	blocks *lru.Cache[int, []byte]
}

// NewCache keeps up to size decoded cells and as many inflated blocks.
func NewCache(data []byte, ix *Index, size int, opts ...oasis.Option) (*Cache, error) {
	if err := ix.Check(data); err != nil {
		return nil, err
	}
	cells, err := lru.New[int, *oasis.Cell](size)
	if err != nil {
		return nil, err
	}
	blocks, err := lru.New[int, []byte](size)
	if err != nil {
		return nil, err
	}
	return &Cache{data: data, ix: ix, opts: opts, cells: cells, blocks: blocks}, nil
}

func (c *Cache) block(i int) ([]byte, error) {
	if b, ok := c.blocks.Get(i); ok {
		return b, nil
	}
	b, err := c.ix.Inflate(c.data, i, c.opts...)
	if err != nil {
		return nil, err
	}
	c.blocks.Add(i, b)
	return b, nil
}

// Cell returns cell i, decoding it if it is not cached.
func (c *Cache) Cell(i int) (*oasis.Cell, error) {
	if cell, ok := c.cells.Get(i); ok {
		return cell, nil
	}
	frag, err := c.ix.Fragment(c.data, i, c.block)
	if err != nil {
		return nil, err
	}
	cell, err := oasis.DecodeCell(frag, c.opts...)
	if err != nil {
		return nil, fmt.Errorf("cell %d: %w", i, err)
	}
	c.cells.Add(i, cell)
	return cell, nil
}

// Named returns the cell called name.
func (c *Cache) Named(name string) (*oasis.Cell, error) {
	i, ok := c.ix.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: no cell named %q", oasis.ErrDanglingReference, name)
	}
	return c.Cell(i)
}

// Len is the number of decoded cells held.
func (c *Cache) Len() int { return c.cells.Len() }

// Purge drops every cached cell and block.
func (c *Cache) Purge() {
	c.cells.Purge()
	c.blocks.Purge()
}
