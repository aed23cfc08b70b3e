package record

import (
	"fmt"

	"github.com/rawbytedev/oasis/internal/common"
	"github.com/rawbytedev/oasis/pkg/names"
	"github.com/rawbytedev/oasis/pkg/wire"
)

// Name is a CELLNAME, TEXTSTRING, PROPNAME or PROPSTRING record. A nil Ref
// means the implicit numbering applies.
type Name struct {
	Table names.Kind
	Value string
	Ref   *uint64
}

// nameIDs maps a table to its implicit record type; the explicit form is
// the next ID.
var nameIDs = map[names.Kind]ID{
	names.CellName:   IDCellNameImplicit,
	names.TextString: IDTextStringImplicit,
	names.PropName:   IDPropNameImplicit,
	names.PropString: IDPropStringImplicit,
}

// StringKind is the string class a table stores.
func StringKind(k names.Kind) wire.StringKind {
	switch k {
	case names.TextString:
		return wire.AString
	case names.PropString, names.XName:
		return wire.BString
	}
	return wire.NString
}

func readName(s wire.Source, id ID) (*Name, error) {
	n := &Name{Table: names.Kind((id - IDCellNameImplicit) / 2)}
	var err error
	if n.Value, err = wire.ReadString(s, StringKind(n.Table)); err != nil {
		return nil, err
	}
	if (id-IDCellNameImplicit)%2 == 1 {
		ref, err := wire.ReadUint(s)
		if err != nil {
			return nil, err
		}
		n.Ref = &ref
	}
	return n, nil
}

func (n *Name) ID() ID {
	id := nameIDs[n.Table]
	if n.Ref != nil {
		id++
	}
	return id
}

func (n *Name) append(dst []byte) ([]byte, error) {
	if _, ok := nameIDs[n.Table]; !ok {
		return dst, fmt.Errorf("%w: %s has no name record", common.ErrMalformedRecord, n.Table)
	}
	dst, err := wire.AppendString(dst, StringKind(n.Table), n.Value)
	if err != nil {
		return dst, err
	}
	return appendOptUint(dst, n.Ref), nil
}

// LayerName maps a name onto layer and datatype (or texttype) ranges.
type LayerName struct {
	Name   string
	Text   bool
	Layers wire.Interval
	Types  wire.Interval
}

func readLayerName(s wire.Source, id ID) (*LayerName, error) {
	l := &LayerName{Text: id == IDTextLayerName}
	var err error
	if l.Name, err = wire.ReadString(s, wire.NString); err != nil {
		return nil, err
	}
	if l.Layers, err = wire.ReadInterval(s); err != nil {
		return nil, err
	}
	if l.Types, err = wire.ReadInterval(s); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *LayerName) ID() ID {
	if l.Text {
		return IDTextLayerName
	}
	return IDLayerName
}

func (l *LayerName) append(dst []byte) ([]byte, error) {
	dst, err := wire.AppendString(dst, wire.NString, l.Name)
	if err != nil {
		return dst, err
	}
	dst = wire.AppendInterval(dst, l.Layers)
	return wire.AppendInterval(dst, l.Types), nil
}

// XName is an extension name; the payload is opaque.
type XName struct {
	Attribute uint64
	Value     string
	Ref       *uint64
}

func readXName(s wire.Source, id ID) (*XName, error) {
	x := new(XName)
	var err error
	if x.Attribute, err = wire.ReadUint(s); err != nil {
		return nil, err
	}
	if x.Value, err = wire.ReadString(s, wire.BString); err != nil {
		return nil, err
	}
	if id == IDXName {
		ref, err := wire.ReadUint(s)
		if err != nil {
			return nil, err
		}
		x.Ref = &ref
	}
	return x, nil
}

func (x *XName) ID() ID {
	if x.Ref != nil {
		return IDXName
	}
	return IDXNameImplicit
}

func (x *XName) append(dst []byte) ([]byte, error) {
	dst = wire.AppendUint(dst, x.Attribute)
	dst, err := wire.AppendString(dst, wire.BString, x.Value)
	if err != nil {
		return dst, err
	}
	return appendOptUint(dst, x.Ref), nil
}

// maxInlineValues is the largest value count held in the info byte.
const maxInlineValues = 14

// Property is PROPERTY 28, or PROPERTY 29 when Repeat is set. ReuseValues
// means the values are the modal value list.
type Property struct {
	Repeat      bool
	Name        *wire.NameRef
	Values      []wire.PropValue
	ReuseValues bool
	Standard    bool
}

func readProperty(s wire.Source) (*Property, error) {
	info, err := wire.ReadInfo(s)
	if err != nil {
		return nil, err
	}
	p := &Property{Standard: info&0x01 != 0, ReuseValues: info&0x08 != 0}
	if info&0x04 != 0 {
		n, err := readNameRef(s, info&0x02 != 0, wire.NString)
		if err != nil {
			return nil, err
		}
		p.Name = &n
	}
	u := uint64(info >> 4)
	if p.ReuseValues {
		if u != 0 {
			return nil, fmt.Errorf("%w: value count %d with reused values", common.ErrMalformedRecord, u)
		}
		return p, nil
	}
	if u == 15 {
		if u, err = wire.ReadUint(s); err != nil {
			return nil, err
		}
	}
	p.Values = make([]wire.PropValue, 0, min(u, 64))
	for i := uint64(0); i < u; i++ {
		v, err := wire.ReadPropValue(s)
		if err != nil {
			return nil, err
		}
		p.Values = append(p.Values, v)
	}
	return p, nil
}

func (p *Property) ID() ID {
	if p.Repeat {
		return IDPropertyRepeat
	}
	return IDProperty
}

func (p *Property) append(dst []byte) ([]byte, error) {
	if p.Repeat {
		return dst, nil
	}
	var info byte
	if p.Standard {
		info |= 0x01
	}
	if p.Name != nil {
		info |= 0x04
		if p.Name.ByRef {
			info |= 0x02
		}
	}
	n := uint64(len(p.Values))
	switch {
	case p.ReuseValues:
		info |= 0x08
	case n > maxInlineValues:
		info |= 0xf0
	default:
		info |= byte(n) << 4
	}
	dst = append(dst, info)
	var err error
	if p.Name != nil {
		if dst, err = appendNameRef(dst, *p.Name, wire.NString); err != nil {
			return dst, err
		}
	}
	if p.ReuseValues {
		return dst, nil
	}
	if n > maxInlineValues {
		dst = wire.AppendUint(dst, n)
	}
	for _, v := range p.Values {
		if dst, err = wire.AppendPropValue(dst, v); err != nil {
			return dst, err
		}
	}
	return dst, nil
}

func (*Name) record()      {}
func (*LayerName) record() {}
func (*XName) record()     {}
func (*Property) record()  {}
