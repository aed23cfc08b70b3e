// Package record is the OASIS record grammar: one Go type per record kind,
// read from and appended to a byte stream exactly as they appear on the
// wire. Optional fields are pointers; nil means the field was omitted and
// the modal value applies.
package record

import (
	"fmt"

	"github.com/rawbytedev/oasis/internal/common"
	"github.com/rawbytedev/oasis/pkg/repetition"
	"github.com/rawbytedev/oasis/pkg/wire"
)

// Magic opens every OASIS file.
const Magic = "%SEMI-OASIS\r\n"

// ID is a record type.
type ID uint8

const (
	IDPad ID = iota
	IDStart
	IDEnd
	IDCellNameImplicit
	IDCellName
	IDTextStringImplicit
	IDTextString
	IDPropNameImplicit
	IDPropName
	IDPropStringImplicit
	IDPropString
	IDLayerName
	IDTextLayerName
	IDCellRef
	IDCell
	IDXYAbsolute
	IDXYRelative
	IDPlacement
	IDPlacementTransform
	IDText
	IDRectangle
	IDPolygon
	IDPath
	IDTrapezoid
	IDTrapezoidA
	IDTrapezoidB
	IDCTrapezoid
	IDCircle
	IDProperty
	IDPropertyRepeat
	IDXNameImplicit
	IDXName
	IDXElement
	IDXGeometry
	IDCBlock
)

var idNames = [...]string{
	IDPad:                "PAD",
	IDStart:              "START",
	IDEnd:                "END",
	IDCellNameImplicit:   "CELLNAME",
	IDCellName:           "CELLNAME",
	IDTextStringImplicit: "TEXTSTRING",
	IDTextString:         "TEXTSTRING",
	IDPropNameImplicit:   "PROPNAME",
	IDPropName:           "PROPNAME",
	IDPropStringImplicit: "PROPSTRING",
	IDPropString:         "PROPSTRING",
	IDLayerName:          "LAYERNAME",
	IDTextLayerName:      "LAYERNAME",
	IDCellRef:            "CELL",
	IDCell:               "CELL",
	IDXYAbsolute:         "XYABSOLUTE",
	IDXYRelative:         "XYRELATIVE",
	IDPlacement:          "PLACEMENT",
	IDPlacementTransform: "PLACEMENT",
	IDText:               "TEXT",
	IDRectangle:          "RECTANGLE",
	IDPolygon:            "POLYGON",
	IDPath:               "PATH",
	IDTrapezoid:          "TRAPEZOID",
	IDTrapezoidA:         "TRAPEZOID",
	IDTrapezoidB:         "TRAPEZOID",
	IDCTrapezoid:         "CTRAPEZOID",
	IDCircle:             "CIRCLE",
	IDProperty:           "PROPERTY",
	IDPropertyRepeat:     "PROPERTY",
	IDXNameImplicit:      "XNAME",
	IDXName:              "XNAME",
	IDXElement:           "XELEMENT",
	IDXGeometry:          "XGEOMETRY",
	IDCBlock:             "CBLOCK",
}

func (id ID) String() string {
	if int(id) < len(idNames) {
		return fmt.Sprintf("%s(%d)", idNames[id], uint8(id))
	}
	return fmt.Sprintf("record(%d)", uint8(id))
}

// ReadID reads a record type and rejects unknown ones.
func ReadID(s wire.Source) (ID, error) {
	v, err := wire.ReadUint(s)
	if err != nil {
		return 0, err
	}
	if v > uint64(IDCBlock) {
		return 0, fmt.Errorf("%w: unknown record type %d", common.ErrMalformedRecord, v)
	}
	return ID(v), nil
}

// Record is one decoded record.
type Record interface {
	ID() ID
	record()
}

// info byte bits shared by the element records, least significant first.
const (
	bitL byte = 1 << iota
	bitD
	bitR
	bitY
	bitX
	bit5
	bit6
	bit7
)

func reserved(info, mask byte) error {
	if info&mask != 0 {
		return fmt.Errorf("%w: reserved info bits 0x%02x set", common.ErrMalformedRecord, info&mask)
	}
	return nil
}

// readOpt reads a field when bit is set in info.
func readOpt[T any](s wire.Source, info, bit byte, read func(wire.Source) (T, error)) (*T, error) {
	if info&bit == 0 {
		return nil, nil
	}
	v, err := read(s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func readRep(s wire.Source, info byte) (repetition.Repetition, error) {
	if info&bitR == 0 {
		return nil, nil
	}
	return repetition.Read(s)
}

func readNameRef(s wire.Source, byRef bool, k wire.StringKind) (wire.NameRef, error) {
	if byRef {
		ref, err := wire.ReadUint(s)
		return wire.Ref(ref), err
	}
	v, err := wire.ReadString(s, k)
	return wire.Named(v), err
}

func appendNameRef(dst []byte, n wire.NameRef, k wire.StringKind) ([]byte, error) {
	if n.ByRef {
		return wire.AppendUint(dst, n.Ref), nil
	}
	return wire.AppendString(dst, k, n.Name)
}

func set[T any](info *byte, bit byte, v *T) {
	if v != nil {
		*info |= bit
	}
}

func appendOptUint[T ~uint8 | ~uint32 | ~uint64](dst []byte, v *T) []byte {
	if v == nil {
		return dst
	}
	return wire.AppendUint(dst, uint64(*v))
}

func appendOptSint(dst []byte, v *int64) []byte {
	if v == nil {
		return dst
	}
	return wire.AppendSint(dst, *v)
}

func appendRep(dst []byte, r repetition.Repetition) ([]byte, error) {
	if r == nil {
		return dst, nil
	}
	return repetition.Append(dst, r)
}

// Read reads the body of a record whose type has already been read. END
// depends on START and is read with ReadEnd instead.
func Read(s wire.Source, id ID) (Record, error) {
	r, err := readBody(s, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", id, common.Truncated(err))
	}
	return r, nil
}

func readBody(s wire.Source, id ID) (Record, error) {
	switch id {
	case IDPad:
		return Pad{}, nil
	case IDStart:
		return readStart(s)
	case IDEnd:
		return nil, fmt.Errorf("%w: END read out of context", common.ErrMalformedRecord)
	case IDCellNameImplicit, IDCellName, IDTextStringImplicit, IDTextString,
		IDPropNameImplicit, IDPropName, IDPropStringImplicit, IDPropString:
		return readName(s, id)
	case IDLayerName, IDTextLayerName:
		return readLayerName(s, id)
	case IDCellRef, IDCell:
		n, err := readNameRef(s, id == IDCellRef, wire.NString)
		return &Cell{Name: n}, err
	case IDXYAbsolute, IDXYRelative:
		return XYMode{Relative: id == IDXYRelative}, nil
	case IDPlacement, IDPlacementTransform:
		return readPlacement(s, id)
	case IDText:
		return readText(s)
	case IDRectangle:
		return readRectangle(s)
	case IDPolygon:
		return readPolygon(s)
	case IDPath:
		return readPath(s)
	case IDTrapezoid, IDTrapezoidA, IDTrapezoidB:
		return readTrapezoid(s, id)
	case IDCTrapezoid:
		return readCTrapezoid(s)
	case IDCircle:
		return readCircle(s)
	case IDProperty:
		return readProperty(s)
	case IDPropertyRepeat:
		return &Property{Repeat: true}, nil
	case IDXNameImplicit, IDXName:
		return readXName(s, id)
	case IDXElement:
		return readXElement(s)
	case IDXGeometry:
		return readXGeometry(s)
	case IDCBlock:
		return readCBlock(s)
	}
	return nil, fmt.Errorf("%w: unknown record type %d", common.ErrMalformedRecord, uint8(id))
}

// Append writes r, type included. END is written with AppendEnd.
func Append(dst []byte, r Record) ([]byte, error) {
	out, err := appendRecord(wire.AppendUint(dst, uint64(r.ID())), r)
	if err != nil {
		return dst, fmt.Errorf("%s: %w", r.ID(), err)
	}
	return out, nil
}

func appendRecord(dst []byte, r Record) ([]byte, error) {
	switch r := r.(type) {
	case Pad, XYMode:
		return dst, nil
	case *Start:
		return r.append(dst)
	case *Name:
		return r.append(dst)
	case *LayerName:
		return r.append(dst)
	case *Cell:
		return appendNameRef(dst, r.Name, wire.NString)
	case *Placement:
		return r.append(dst)
	case *Text:
		return r.append(dst)
	case *Rectangle:
		return r.append(dst)
	case *Polygon:
		return r.append(dst)
	case *Path:
		return r.append(dst)
	case *Trapezoid:
		return r.append(dst)
	case *CTrapezoid:
		return r.append(dst)
	case *Circle:
		return r.append(dst)
	case *Property:
		return r.append(dst)
	case *XName:
		return r.append(dst)
	case *XElement:
		return wire.AppendBytes(wire.AppendUint(dst, r.Attribute), r.Data), nil
	case *XGeometry:
		return r.append(dst)
	case *CBlock:
		return r.append(dst), nil
	}
	return dst, fmt.Errorf("%w: cannot append %T", common.ErrMalformedRecord, r)
}
