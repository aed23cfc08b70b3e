package record

import (
	"fmt"
	"math"

	"github.com/rawbytedev/oasis/internal/common"
	"github.com/rawbytedev/oasis/pkg/cblock"
	"github.com/rawbytedev/oasis/pkg/names"
	"github.com/rawbytedev/oasis/pkg/validation"
	"github.com/rawbytedev/oasis/pkg/wire"
)

// EndSize is the fixed length of an END record.
const EndSize = 256

// Version is the only format version this package writes.
const Version = "1.0"

type Pad struct{}

// XYMode switches the cell between absolute and relative coordinates.
type XYMode struct {
	Relative bool
}

// Cell opens a cell; every following element belongs to it.
type Cell struct {
	Name wire.NameRef
}

// TableOffset locates one name table. A zero offset means the table is
// absent. Strict tables hold every record of their kind contiguously.
type TableOffset struct {
	Strict bool
	Offset uint64
}

// OffsetTable holds one TableOffset per name table, indexed by names.Kind.
type OffsetTable struct {
	Entries [len(names.Kinds)]TableOffset
}

func (t *OffsetTable) Get(k names.Kind) TableOffset { return t.Entries[k] }

func ReadOffsetTable(s wire.Source) (*OffsetTable, error) {
	t := new(OffsetTable)
	for i := range t.Entries {
		strict, err := wire.ReadUint(s)
		if err != nil {
			return nil, err
		}
		if strict > 1 {
			return nil, fmt.Errorf("%w: offset-table flag %d", common.ErrMalformedRecord, strict)
		}
		off, err := wire.ReadUint(s)
		if err != nil {
			return nil, err
		}
		t.Entries[i] = TableOffset{Strict: strict == 1, Offset: off}
	}
	return t, nil
}

func AppendOffsetTable(dst []byte, t *OffsetTable) []byte {
	for _, e := range t.Entries {
		var flag uint64
		if e.Strict {
			flag = 1
		}
		dst = wire.AppendUint(wire.AppendUint(dst, flag), e.Offset)
	}
	return dst
}

// Start opens the file. A nil Table means the offset table is in END.
type Start struct {
	Version string
	Unit    wire.Real
	Table   *OffsetTable
}

func readStart(s wire.Source) (*Start, error) {
	v, err := wire.ReadString(s, wire.AString)
	if err != nil {
		return nil, err
	}
	if v != Version {
		return nil, fmt.Errorf("%w: version %q", common.ErrMalformedRecord, v)
	}
	unit, err := wire.ReadReal(s)
	if err != nil {
		return nil, err
	}
	if u := unit.Float64(); !(u > 0) || math.IsInf(u, 0) {
		return nil, fmt.Errorf("%w: unit %v", common.ErrMalformedRecord, u)
	}
	flag, err := wire.ReadUint(s)
	if err != nil {
		return nil, err
	}
	st := &Start{Version: v, Unit: unit}
	if flag == 0 {
		if st.Table, err = ReadOffsetTable(s); err != nil {
			return nil, err
		}
	}
	return st, nil
}

func (st *Start) append(dst []byte) ([]byte, error) {
	dst, err := wire.AppendString(dst, wire.AString, st.Version)
	if err != nil {
		return dst, err
	}
	if dst, err = wire.AppendReal(dst, st.Unit); err != nil {
		return dst, err
	}
	if st.Table == nil {
		return wire.AppendUint(dst, 1), nil
	}
	return AppendOffsetTable(wire.AppendUint(dst, 0), st.Table), nil
}

// End closes the file. The signature covers every byte before it.
type End struct {
	Table     *OffsetTable
	Scheme    validation.Scheme
	Signature uint32
}

// ReadEnd reads END up to and including the validation scheme. The
// signature, when the scheme has one, is left for ReadSignature so the
// caller can finish its digest first.
func ReadEnd(s wire.Source, withTable bool) (*End, error) {
	e, err := readEnd(s, withTable)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", IDEnd, common.Truncated(err))
	}
	return e, nil
}

func readEnd(s wire.Source, withTable bool) (*End, error) {
	e := new(End)
	var err error
	if withTable {
		if e.Table, err = ReadOffsetTable(s); err != nil {
			return nil, err
		}
	}
	if _, err = wire.ReadBytes(s); err != nil {
		return nil, err
	}
	scheme, err := wire.ReadUint(s)
	if err != nil {
		return nil, err
	}
	if scheme > uint64(validation.Checksum32) {
		return nil, fmt.Errorf("%w: validation scheme %d", common.ErrMalformedRecord, scheme)
	}
	e.Scheme = validation.Scheme(scheme)
	return e, nil
}

// ReadSignature reads the four-byte little-endian signature.
func ReadSignature(s wire.Source) (uint32, error) {
	b, err := s.ReadN(4)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", IDEnd, common.Truncated(err))
	}
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24, nil
}

// AppendEnd writes END without its signature, padded so that the record is
// EndSize bytes once the signature (if any) follows.
func AppendEnd(dst []byte, table *OffsetTable, scheme validation.Scheme) []byte {
	start := len(dst)
	dst = wire.AppendUint(dst, uint64(IDEnd))
	if table != nil {
		dst = AppendOffsetTable(dst, table)
	}
	tail := 1
	if scheme.HasSignature() {
		tail += 4
	}
	// the padding is an empty b-string whose length is stretched with
	// zero continuation groups
	pad := EndSize - (len(dst) - start) - tail
	for ; pad > 1; pad-- {
		dst = append(dst, 0x80)
	}
	dst = append(dst, 0x00)
	return wire.AppendUint(dst, uint64(scheme))
}

func AppendSignature(dst []byte, sig uint32) []byte {
	return append(dst, byte(sig), byte(sig>>8), byte(sig>>16), byte(sig>>24))
}

// CBlock carries compressed records.
type CBlock struct {
	Scheme       cblock.Scheme
	Uncompressed uint64
	Data         []byte
}

func readCBlock(s wire.Source) (*CBlock, error) {
	scheme, err := wire.ReadUint(s)
	if err != nil {
		return nil, err
	}
	n, err := wire.ReadUint(s)
	if err != nil {
		return nil, err
	}
	data, err := wire.ReadBytes(s)
	if err != nil {
		return nil, err
	}
	return &CBlock{Scheme: cblock.Scheme(scheme), Uncompressed: n, Data: data}, nil
}

func (c *CBlock) append(dst []byte) []byte {
	dst = wire.AppendUint(dst, uint64(c.Scheme))
	dst = wire.AppendUint(dst, c.Uncompressed)
	return wire.AppendBytes(dst, c.Data)
}

func (Pad) ID() ID { return IDPad }

func (*Start) ID() ID { return IDStart }

func (*End) ID() ID { return IDEnd }

func (*CBlock) ID() ID { return IDCBlock }

func (m XYMode) ID() ID {
	if m.Relative {
		return IDXYRelative
	}
	return IDXYAbsolute
}

func (c *Cell) ID() ID {
	if c.Name.ByRef {
		return IDCellRef
	}
	return IDCell
}

func (Pad) record()     {}
func (*Start) record()  {}
func (*End) record()    {}
func (*CBlock) record() {}
func (XYMode) record()  {}
func (*Cell) record()   {}
