// Package repetition implements the OASIS repetition kinds: reading and
// writing them, expanding them into instance offsets and choosing a compact
// kind for an arbitrary list of positions.
package repetition

import (
	"bytes"
	"fmt"

	"github.com/rawbytedev/oasis/internal/common"
	"github.com/rawbytedev/oasis/pkg/wire"
)

// MaxInstances caps how many offsets a single repetition may expand to.
var MaxInstances uint64 = 1 << 24

// Repetition is one of Reuse, Grid, Row, Column, IrregularRow,
// IrregularRowGrid, IrregularColumn, IrregularColumnGrid, Lattice,
// Diagonal, Arbitrary or ArbitraryGrid. A nil Repetition means a single
// instance.
type Repetition interface {
	Kind() Kind
	repetition()
}

type Kind uint8

const (
	KindReuse Kind = iota
	KindGrid
	KindRow
	KindColumn
	KindIrregularRow
	KindIrregularRowGrid
	KindIrregularColumn
	KindIrregularColumnGrid
	KindLattice
	KindDiagonal
	KindArbitrary
	KindArbitraryGrid
)

// Reuse stands for the previous repetition of the current cell.
type Reuse struct{}

// Grid is XCount by YCount instances on an axis-aligned grid.
type Grid struct {
	XCount, YCount uint64
	XSpace, YSpace uint64
}

// Row is Count instances spaced Space apart along x.
type Row struct {
	Count uint64
	Space uint64
}

// Column is Count instances spaced Space apart along y.
type Column struct {
	Count uint64
	Space uint64
}

// IrregularRow places len(Spaces)+1 instances along x, each Spaces[i]
// after the previous one.
type IrregularRow struct {
	Spaces []uint64
}

// IrregularRowGrid is IrregularRow with every space multiplied by Grid.
type IrregularRowGrid struct {
	Grid   uint64
	Spaces []uint64
}

type IrregularColumn struct {
	Spaces []uint64
}

type IrregularColumnGrid struct {
	Grid   uint64
	Spaces []uint64
}

// Lattice is NCount by MCount instances along two arbitrary vectors.
type Lattice struct {
	NCount, MCount uint64
	N, M           wire.Delta
}

// Diagonal is Count instances along one arbitrary vector.
type Diagonal struct {
	Count uint64
	Step  wire.Delta
}

// Arbitrary places len(Steps)+1 instances, each Steps[i] after the previous.
type Arbitrary struct {
	Steps []wire.Delta
}

// ArbitraryGrid is Arbitrary with every step multiplied by Grid.
type ArbitraryGrid struct {
	Grid  uint64
	Steps []wire.Delta
}

func (Reuse) Kind() Kind               { return KindReuse }
func (Grid) Kind() Kind                { return KindGrid }
func (Row) Kind() Kind                 { return KindRow }
func (Column) Kind() Kind              { return KindColumn }
func (IrregularRow) Kind() Kind        { return KindIrregularRow }
func (IrregularRowGrid) Kind() Kind    { return KindIrregularRowGrid }
func (IrregularColumn) Kind() Kind     { return KindIrregularColumn }
func (IrregularColumnGrid) Kind() Kind { return KindIrregularColumnGrid }
func (Lattice) Kind() Kind             { return KindLattice }
func (Diagonal) Kind() Kind            { return KindDiagonal }
func (Arbitrary) Kind() Kind           { return KindArbitrary }
func (ArbitraryGrid) Kind() Kind       { return KindArbitraryGrid }

func (Reuse) repetition()               {}
func (Grid) repetition()                {}
func (Row) repetition()                 {}
func (Column) repetition()              {}
func (IrregularRow) repetition()        {}
func (IrregularRowGrid) repetition()    {}
func (IrregularColumn) repetition()     {}
func (IrregularColumnGrid) repetition() {}
func (Lattice) repetition()             {}
func (Diagonal) repetition()            {}
func (Arbitrary) repetition()           {}
func (ArbitraryGrid) repetition()       {}

func readCount(s wire.Source) (uint64, error) {
	v, err := wire.ReadUint(s)
	if err != nil {
		return 0, err
	}
	if v > MaxInstances {
		return 0, fmt.Errorf("%w: repetition dimension %d", common.ErrOverflow, v)
	}
	return v + 2, nil
}

func readSpaces(s wire.Source, n uint64) ([]uint64, error) {
	out := make([]uint64, 0, min(n, 4096))
	for i := uint64(0); i < n; i++ {
		v, err := wire.ReadUint(s)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func readSteps(s wire.Source, n uint64) ([]wire.Delta, error) {
	out := make([]wire.Delta, 0, min(n, 4096))
	for i := uint64(0); i < n; i++ {
		d, err := wire.ReadGDelta(s)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// Read reads a repetition type code and its fields.
func Read(s wire.Source) (Repetition, error) {
	code, err := wire.ReadUint(s)
	if err != nil {
		return nil, err
	}
	if code > uint64(KindArbitraryGrid) {
		return nil, fmt.Errorf("%w: unknown repetition type %d", common.ErrMalformedRecord, code)
	}
	var a, b, c, d uint64
	switch Kind(code) {
	case KindReuse:
		return Reuse{}, nil
	case KindGrid:
		if a, err = readCount(s); err != nil {
			return nil, err
		}
		if b, err = readCount(s); err != nil {
			return nil, err
		}
		if c, err = wire.ReadUint(s); err != nil {
			return nil, err
		}
		if d, err = wire.ReadUint(s); err != nil {
			return nil, err
		}
		return Grid{XCount: a, YCount: b, XSpace: c, YSpace: d}, nil
	case KindRow, KindColumn:
		if a, err = readCount(s); err != nil {
			return nil, err
		}
		if b, err = wire.ReadUint(s); err != nil {
			return nil, err
		}
		if Kind(code) == KindRow {
			return Row{Count: a, Space: b}, nil
		}
		return Column{Count: a, Space: b}, nil
	case KindIrregularRow, KindIrregularColumn, KindIrregularRowGrid, KindIrregularColumnGrid:
		if a, err = readCount(s); err != nil {
			return nil, err
		}
		grid := Kind(code) == KindIrregularRowGrid || Kind(code) == KindIrregularColumnGrid
		if grid {
			if b, err = wire.ReadUint(s); err != nil {
				return nil, err
			}
		}
		spaces, err := readSpaces(s, a-1)
		if err != nil {
			return nil, err
		}
		switch Kind(code) {
		case KindIrregularRow:
			return IrregularRow{Spaces: spaces}, nil
		case KindIrregularRowGrid:
			return IrregularRowGrid{Grid: b, Spaces: spaces}, nil
		case KindIrregularColumn:
			return IrregularColumn{Spaces: spaces}, nil
		default:
			return IrregularColumnGrid{Grid: b, Spaces: spaces}, nil
		}
	case KindLattice:
		if a, err = readCount(s); err != nil {
			return nil, err
		}
		if b, err = readCount(s); err != nil {
			return nil, err
		}
		n, err := wire.ReadGDelta(s)
		if err != nil {
			return nil, err
		}
		m, err := wire.ReadGDelta(s)
		if err != nil {
			return nil, err
		}
		return Lattice{NCount: a, MCount: b, N: n, M: m}, nil
	case KindDiagonal:
		if a, err = readCount(s); err != nil {
			return nil, err
		}
		step, err := wire.ReadGDelta(s)
		if err != nil {
			return nil, err
		}
		return Diagonal{Count: a, Step: step}, nil
	case KindArbitrary, KindArbitraryGrid:
		if a, err = readCount(s); err != nil {
			return nil, err
		}
		if Kind(code) == KindArbitraryGrid {
			if b, err = wire.ReadUint(s); err != nil {
				return nil, err
			}
		}
		steps, err := readSteps(s, a-1)
		if err != nil {
			return nil, err
		}
		if Kind(code) == KindArbitrary {
			return Arbitrary{Steps: steps}, nil
		}
		return ArbitraryGrid{Grid: b, Steps: steps}, nil
	}
	return nil, fmt.Errorf("%w: unknown repetition type %d", common.ErrMalformedRecord, code)
}

func appendCount(dst []byte, n uint64) ([]byte, error) {
	if n < 2 {
		return dst, fmt.Errorf("%w: repetition dimension %d below 2", common.ErrMalformedRecord, n)
	}
	return wire.AppendUint(dst, n-2), nil
}

func appendSpaces(dst []byte, spaces []uint64) ([]byte, error) {
	dst, err := appendCount(dst, uint64(len(spaces))+1)
	if err != nil {
		return dst, err
	}
	for _, v := range spaces {
		dst = wire.AppendUint(dst, v)
	}
	return dst, nil
}

func appendSteps(dst []byte, grid *uint64, steps []wire.Delta) ([]byte, error) {
	dst, err := appendCount(dst, uint64(len(steps))+1)
	if err != nil {
		return dst, err
	}
	if grid != nil {
		dst = wire.AppendUint(dst, *grid)
	}
	for _, d := range steps {
		dst = wire.AppendGDelta(dst, d)
	}
	return dst, nil
}

// Append writes r. A nil r is an error: absence is signalled by the
// record's info byte, not by the repetition itself.
func Append(dst []byte, r Repetition) ([]byte, error) {
	if r == nil {
		return dst, fmt.Errorf("%w: nil repetition", common.ErrMalformedRecord)
	}
	dst = wire.AppendUint(dst, uint64(r.Kind()))
	var err error
	switch r := r.(type) {
	case Reuse:
	case Grid:
		if dst, err = appendCount(dst, r.XCount); err != nil {
			return dst, err
		}
		if dst, err = appendCount(dst, r.YCount); err != nil {
			return dst, err
		}
		dst = wire.AppendUint(wire.AppendUint(dst, r.XSpace), r.YSpace)
	case Row:
		if dst, err = appendCount(dst, r.Count); err != nil {
			return dst, err
		}
		dst = wire.AppendUint(dst, r.Space)
	case Column:
		if dst, err = appendCount(dst, r.Count); err != nil {
			return dst, err
		}
		dst = wire.AppendUint(dst, r.Space)
	case IrregularRow:
		dst, err = appendSpaces(dst, r.Spaces)
	case IrregularColumn:
		dst, err = appendSpaces(dst, r.Spaces)
	case IrregularRowGrid:
		if dst, err = appendCount(dst, uint64(len(r.Spaces))+1); err != nil {
			return dst, err
		}
		dst = wire.AppendUint(dst, r.Grid)
		for _, v := range r.Spaces {
			dst = wire.AppendUint(dst, v)
		}
	case IrregularColumnGrid:
		if dst, err = appendCount(dst, uint64(len(r.Spaces))+1); err != nil {
			return dst, err
		}
		dst = wire.AppendUint(dst, r.Grid)
		for _, v := range r.Spaces {
			dst = wire.AppendUint(dst, v)
		}
	case Lattice:
		if dst, err = appendCount(dst, r.NCount); err != nil {
			return dst, err
		}
		if dst, err = appendCount(dst, r.MCount); err != nil {
			return dst, err
		}
		dst = wire.AppendGDelta(wire.AppendGDelta(dst, r.N), r.M)
	case Diagonal:
		if dst, err = appendCount(dst, r.Count); err != nil {
			return dst, err
		}
		dst = wire.AppendGDelta(dst, r.Step)
	case Arbitrary:
		dst, err = appendSteps(dst, nil, r.Steps)
	case ArbitraryGrid:
		dst, err = appendSteps(dst, &r.Grid, r.Steps)
	default:
		return dst, fmt.Errorf("%w: unsupported repetition %T", common.ErrMalformedRecord, r)
	}
	return dst, err
}

// Equal reports whether a and b have the same encoding.
func Equal(a, b Repetition) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ea, err := Append(nil, a)
	if err != nil {
		return false
	}
	eb, err := Append(nil, b)
	if err != nil {
		return false
	}
	return bytes.Equal(ea, eb)
}
