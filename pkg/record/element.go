package record

import (
	"fmt"

	"github.com/rawbytedev/oasis/internal/common"
	"github.com/rawbytedev/oasis/pkg/repetition"
	"github.com/rawbytedev/oasis/pkg/wire"
)

// Geometry holds the fields shared by the geometry records. For TEXT the
// layer and datatype are the text layer and text type.
type Geometry struct {
	Layer    *uint32
	Datatype *uint32
	X, Y     *int64
	Rep      repetition.Repetition
}

func (g *Geometry) readLayer(s wire.Source, info byte) (err error) {
	if g.Layer, err = readOpt(s, info, bitL, wire.ReadUint32); err != nil {
		return err
	}
	g.Datatype, err = readOpt(s, info, bitD, wire.ReadUint32)
	return err
}

func (g *Geometry) readPosition(s wire.Source, info byte) (err error) {
	if g.X, err = readOpt(s, info, bitX, wire.ReadSint); err != nil {
		return err
	}
	if g.Y, err = readOpt(s, info, bitY, wire.ReadSint); err != nil {
		return err
	}
	g.Rep, err = readRep(s, info)
	return err
}

func (g *Geometry) info() byte {
	var info byte
	set(&info, bitL, g.Layer)
	set(&info, bitD, g.Datatype)
	set(&info, bitX, g.X)
	set(&info, bitY, g.Y)
	if g.Rep != nil {
		info |= bitR
	}
	return info
}

func (g *Geometry) appendLayer(dst []byte) []byte {
	return appendOptUint(appendOptUint(dst, g.Layer), g.Datatype)
}

func (g *Geometry) appendPosition(dst []byte) ([]byte, error) {
	dst = appendOptSint(appendOptSint(dst, g.X), g.Y)
	return appendRep(dst, g.Rep)
}

// Placement is PLACEMENT 17 or 18. Which one is written follows from the
// fields: a 90 degree multiple angle without magnification uses 17.
type Placement struct {
	Name  *wire.NameRef
	Flip  bool
	Mag   *wire.Real
	Angle *wire.Real
	X, Y  *int64
	Rep   repetition.Repetition
}

func readPlacement(s wire.Source, id ID) (*Placement, error) {
	info, err := wire.ReadInfo(s)
	if err != nil {
		return nil, err
	}
	p := &Placement{Flip: info&0x01 != 0}
	if info&0x80 != 0 {
		n, err := readNameRef(s, info&0x40 != 0, wire.NString)
		if err != nil {
			return nil, err
		}
		p.Name = &n
	}
	if id == IDPlacement {
		p.Angle = &wire.Real{Kind: wire.RealPosInt, Num: uint64(info>>1&3) * 90}
	} else {
		if p.Mag, err = readOpt(s, info, 0x04, wire.ReadReal); err != nil {
			return nil, err
		}
		if p.Angle, err = readOpt(s, info, 0x02, wire.ReadReal); err != nil {
			return nil, err
		}
	}
	if p.X, err = readOpt(s, info, 0x20, wire.ReadSint); err != nil {
		return nil, err
	}
	if p.Y, err = readOpt(s, info, 0x10, wire.ReadSint); err != nil {
		return nil, err
	}
	if info&0x08 != 0 {
		if p.Rep, err = repetition.Read(s); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// quarterTurns reports the angle as a count of quarter turns when the
// placement fits PLACEMENT 17.
func (p *Placement) quarterTurns() (byte, bool) {
	if p.Mag != nil || p.Angle == nil || p.Angle.Kind != wire.RealPosInt {
		return 0, false
	}
	if p.Angle.Num%90 != 0 || p.Angle.Num >= 360 {
		return 0, false
	}
	return byte(p.Angle.Num / 90), true
}

func (p *Placement) ID() ID {
	if _, ok := p.quarterTurns(); ok {
		return IDPlacement
	}
	return IDPlacementTransform
}

func (p *Placement) append(dst []byte) ([]byte, error) {
	var info byte
	if p.Flip {
		info |= 0x01
	}
	if p.Name != nil {
		info |= 0x80
		if p.Name.ByRef {
			info |= 0x40
		}
	}
	set(&info, 0x20, p.X)
	set(&info, 0x10, p.Y)
	if p.Rep != nil {
		info |= 0x08
	}
	aa, short := p.quarterTurns()
	if short {
		info |= aa << 1
	} else {
		set(&info, 0x04, p.Mag)
		set(&info, 0x02, p.Angle)
	}
	dst = append(dst, info)
	var err error
	if p.Name != nil {
		if dst, err = appendNameRef(dst, *p.Name, wire.NString); err != nil {
			return dst, err
		}
	}
	if !short {
		if p.Mag != nil {
			if dst, err = wire.AppendReal(dst, *p.Mag); err != nil {
				return dst, err
			}
		}
		if p.Angle != nil {
			if dst, err = wire.AppendReal(dst, *p.Angle); err != nil {
				return dst, err
			}
		}
	}
	dst = appendOptSint(appendOptSint(dst, p.X), p.Y)
	return appendRep(dst, p.Rep)
}

// Text is a TEXT record; Layer and Datatype hold textlayer and texttype.
type Text struct {
	String *wire.NameRef
	Geometry
}

func readText(s wire.Source) (*Text, error) {
	info, err := wire.ReadInfo(s)
	if err != nil {
		return nil, err
	}
	if err := reserved(info, 0x80); err != nil {
		return nil, err
	}
	t := new(Text)
	if info&0x40 != 0 {
		n, err := readNameRef(s, info&0x20 != 0, wire.AString)
		if err != nil {
			return nil, err
		}
		t.String = &n
	}
	if err := t.readLayer(s, info); err != nil {
		return nil, err
	}
	if err := t.readPosition(s, info); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Text) append(dst []byte) ([]byte, error) {
	info := t.info()
	if t.String != nil {
		info |= 0x40
		if t.String.ByRef {
			info |= 0x20
		}
	}
	dst = append(dst, info)
	var err error
	if t.String != nil {
		if dst, err = appendNameRef(dst, *t.String, wire.AString); err != nil {
			return dst, err
		}
	}
	return t.appendPosition(t.appendLayer(dst))
}

// Rectangle is a RECTANGLE record. A square has no height field.
type Rectangle struct {
	Square bool
	W, H   *uint64
	Geometry
}

func readRectangle(s wire.Source) (*Rectangle, error) {
	info, err := wire.ReadInfo(s)
	if err != nil {
		return nil, err
	}
	r := &Rectangle{Square: info&bit7 != 0}
	if r.Square && info&bit5 != 0 {
		return nil, fmt.Errorf("%w: square with explicit height", common.ErrMalformedRecord)
	}
	if err := r.readLayer(s, info); err != nil {
		return nil, err
	}
	if r.W, err = readOpt(s, info, bit6, wire.ReadUint); err != nil {
		return nil, err
	}
	if r.H, err = readOpt(s, info, bit5, wire.ReadUint); err != nil {
		return nil, err
	}
	if err := r.readPosition(s, info); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Rectangle) append(dst []byte) ([]byte, error) {
	info := r.info()
	if r.Square {
		if r.H != nil {
			return dst, fmt.Errorf("%w: square with explicit height", common.ErrMalformedRecord)
		}
		info |= bit7
	}
	set(&info, bit6, r.W)
	set(&info, bit5, r.H)
	dst = r.appendLayer(append(dst, info))
	dst = appendOptUint(appendOptUint(dst, r.W), r.H)
	return r.appendPosition(dst)
}

// Polygon is a POLYGON record. The closing edge is implied.
type Polygon struct {
	Points *wire.PointList
	Geometry
}

func readPointList(polygon bool) func(wire.Source) (wire.PointList, error) {
	return func(s wire.Source) (wire.PointList, error) { return wire.ReadPointList(s, polygon) }
}

func readPolygon(s wire.Source) (*Polygon, error) {
	info, err := wire.ReadInfo(s)
	if err != nil {
		return nil, err
	}
	if err := reserved(info, bit7|bit6); err != nil {
		return nil, err
	}
	p := new(Polygon)
	if err := p.readLayer(s, info); err != nil {
		return nil, err
	}
	if p.Points, err = readOpt(s, info, bit5, readPointList(true)); err != nil {
		return nil, err
	}
	if err := p.readPosition(s, info); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Polygon) append(dst []byte) ([]byte, error) {
	info := p.info()
	set(&info, bit5, p.Points)
	dst = p.appendLayer(append(dst, info))
	var err error
	if p.Points != nil {
		if dst, err = wire.AppendPointList(dst, *p.Points, true); err != nil {
			return dst, err
		}
	}
	return p.appendPosition(dst)
}

// ExtScheme is how far a path runs past one of its end points.
type ExtScheme uint8

const (
	ExtReuse     ExtScheme = iota // take the modal extension
	ExtFlush                      // no extension
	ExtHalfWidth                  // half the path width
	ExtExplicit                   // Value grid units
)

// Extension is a path start or end extension.
type Extension struct {
	Scheme ExtScheme
	Value  int64
}

// Path is a PATH record. A nil Start or End reuses the modal extension.
type Path struct {
	HalfWidth  *uint64
	Start, End *Extension
	Points     *wire.PointList
	Geometry
}

func readExtension(s wire.Source, scheme ExtScheme) (*Extension, error) {
	switch scheme {
	case ExtReuse:
		return nil, nil
	case ExtExplicit:
		v, err := wire.ReadSint(s)
		if err != nil {
			return nil, err
		}
		return &Extension{Scheme: ExtExplicit, Value: v}, nil
	}
	return &Extension{Scheme: scheme}, nil
}

func readPath(s wire.Source) (*Path, error) {
	info, err := wire.ReadInfo(s)
	if err != nil {
		return nil, err
	}
	p := new(Path)
	if err := p.readLayer(s, info); err != nil {
		return nil, err
	}
	if p.HalfWidth, err = readOpt(s, info, bit6, wire.ReadUint); err != nil {
		return nil, err
	}
	if info&bit7 != 0 {
		scheme, err := wire.ReadUint(s)
		if err != nil {
			return nil, err
		}
		if scheme > 0x0f {
			return nil, fmt.Errorf("%w: extension scheme 0x%x", common.ErrMalformedRecord, scheme)
		}
		if p.Start, err = readExtension(s, ExtScheme(scheme>>2)); err != nil {
			return nil, err
		}
		if p.End, err = readExtension(s, ExtScheme(scheme&3)); err != nil {
			return nil, err
		}
	}
	if p.Points, err = readOpt(s, info, bit5, readPointList(false)); err != nil {
		return nil, err
	}
	if err := p.readPosition(s, info); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Path) append(dst []byte) ([]byte, error) {
	info := p.info()
	set(&info, bit6, p.HalfWidth)
	set(&info, bit5, p.Points)
	if p.Start != nil || p.End != nil {
		info |= bit7
	}
	dst = p.appendLayer(append(dst, info))
	dst = appendOptUint(dst, p.HalfWidth)
	if info&bit7 != 0 {
		var scheme uint64
		if p.Start != nil {
			scheme |= uint64(p.Start.Scheme&3) << 2
		}
		if p.End != nil {
			scheme |= uint64(p.End.Scheme & 3)
		}
		dst = wire.AppendUint(dst, scheme)
		for _, e := range []*Extension{p.Start, p.End} {
			if e != nil && e.Scheme == ExtExplicit {
				dst = wire.AppendSint(dst, e.Value)
			}
		}
	}
	var err error
	if p.Points != nil {
		if dst, err = wire.AppendPointList(dst, *p.Points, false); err != nil {
			return dst, err
		}
	}
	return p.appendPosition(dst)
}

// Trapezoid is TRAPEZOID 23, 24 or 25. The shortest form that holds both
// deltas is written.
type Trapezoid struct {
	Vertical       bool
	W, H           *uint64
	DeltaA, DeltaB int64
	Geometry
}

func readTrapezoid(s wire.Source, id ID) (*Trapezoid, error) {
	info, err := wire.ReadInfo(s)
	if err != nil {
		return nil, err
	}
	t := &Trapezoid{Vertical: info&bit7 != 0}
	if err := t.readLayer(s, info); err != nil {
		return nil, err
	}
	if t.W, err = readOpt(s, info, bit6, wire.ReadUint); err != nil {
		return nil, err
	}
	if t.H, err = readOpt(s, info, bit5, wire.ReadUint); err != nil {
		return nil, err
	}
	if id != IDTrapezoidB {
		if t.DeltaA, err = wire.ReadSint(s); err != nil {
			return nil, err
		}
	}
	if id != IDTrapezoidA {
		if t.DeltaB, err = wire.ReadSint(s); err != nil {
			return nil, err
		}
	}
	if err := t.readPosition(s, info); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Trapezoid) ID() ID {
	switch {
	case t.DeltaB == 0:
		return IDTrapezoidA
	case t.DeltaA == 0:
		return IDTrapezoidB
	}
	return IDTrapezoid
}

func (t *Trapezoid) append(dst []byte) ([]byte, error) {
	info := t.info()
	if t.Vertical {
		info |= bit7
	}
	set(&info, bit6, t.W)
	set(&info, bit5, t.H)
	dst = t.appendLayer(append(dst, info))
	dst = appendOptUint(appendOptUint(dst, t.W), t.H)
	id := t.ID()
	if id != IDTrapezoidB {
		dst = wire.AppendSint(dst, t.DeltaA)
	}
	if id != IDTrapezoidA {
		dst = wire.AppendSint(dst, t.DeltaB)
	}
	return t.appendPosition(dst)
}

// MaxCTrapezoidType is the highest defined CTRAPEZOID type.
const MaxCTrapezoidType = 25

// CTrapezoid is a CTRAPEZOID record.
type CTrapezoid struct {
	Type *uint8
	W, H *uint64
	Geometry
}

func readCTrapezoidType(s wire.Source) (uint8, error) {
	v, err := wire.ReadUint(s)
	if err != nil {
		return 0, err
	}
	if v > MaxCTrapezoidType {
		return 0, fmt.Errorf("%w: ctrapezoid type %d", common.ErrMalformedRecord, v)
	}
	return uint8(v), nil
}

func readCTrapezoid(s wire.Source) (*CTrapezoid, error) {
	info, err := wire.ReadInfo(s)
	if err != nil {
		return nil, err
	}
	c := new(CTrapezoid)
	if err := c.readLayer(s, info); err != nil {
		return nil, err
	}
	if c.Type, err = readOpt(s, info, bit7, readCTrapezoidType); err != nil {
		return nil, err
	}
	if c.W, err = readOpt(s, info, bit6, wire.ReadUint); err != nil {
		return nil, err
	}
	if c.H, err = readOpt(s, info, bit5, wire.ReadUint); err != nil {
		return nil, err
	}
	if err := c.readPosition(s, info); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *CTrapezoid) append(dst []byte) ([]byte, error) {
	if c.Type != nil && *c.Type > MaxCTrapezoidType {
		return dst, fmt.Errorf("%w: ctrapezoid type %d", common.ErrMalformedRecord, *c.Type)
	}
	info := c.info()
	set(&info, bit7, c.Type)
	set(&info, bit6, c.W)
	set(&info, bit5, c.H)
	dst = c.appendLayer(append(dst, info))
	dst = appendOptUint(dst, c.Type)
	dst = appendOptUint(appendOptUint(dst, c.W), c.H)
	return c.appendPosition(dst)
}

// Circle is a CIRCLE record.
type Circle struct {
	Radius *uint64
	Geometry
}

func readCircle(s wire.Source) (*Circle, error) {
	info, err := wire.ReadInfo(s)
	if err != nil {
		return nil, err
	}
	if err := reserved(info, bit7|bit6); err != nil {
		return nil, err
	}
	c := new(Circle)
	if err := c.readLayer(s, info); err != nil {
		return nil, err
	}
	if c.Radius, err = readOpt(s, info, bit5, wire.ReadUint); err != nil {
		return nil, err
	}
	if err := c.readPosition(s, info); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Circle) append(dst []byte) ([]byte, error) {
	info := c.info()
	set(&info, bit5, c.Radius)
	dst = c.appendLayer(append(dst, info))
	return c.appendPosition(appendOptUint(dst, c.Radius))
}

// XElement is an opaque user extension attached to the cell.
type XElement struct {
	Attribute uint64
	Data      []byte
}

func readXElement(s wire.Source) (*XElement, error) {
	attr, err := wire.ReadUint(s)
	if err != nil {
		return nil, err
	}
	data, err := wire.ReadBytes(s)
	if err != nil {
		return nil, err
	}
	return &XElement{Attribute: attr, Data: data}, nil
}

// XGeometry is opaque user geometry with a layer and position.
type XGeometry struct {
	Attribute uint64
	Data      []byte
	Geometry
}

func readXGeometry(s wire.Source) (*XGeometry, error) {
	info, err := wire.ReadInfo(s)
	if err != nil {
		return nil, err
	}
	if err := reserved(info, bit7|bit6|bit5); err != nil {
		return nil, err
	}
	x := new(XGeometry)
	if x.Attribute, err = wire.ReadUint(s); err != nil {
		return nil, err
	}
	if err := x.readLayer(s, info); err != nil {
		return nil, err
	}
	if x.Data, err = wire.ReadBytes(s); err != nil {
		return nil, err
	}
	if err := x.readPosition(s, info); err != nil {
		return nil, err
	}
	return x, nil
}

func (x *XGeometry) append(dst []byte) ([]byte, error) {
	dst = wire.AppendUint(append(dst, x.info()), x.Attribute)
	dst = wire.AppendBytes(x.appendLayer(dst), x.Data)
	return x.appendPosition(dst)
}

func (*Text) ID() ID       { return IDText }
func (*Rectangle) ID() ID  { return IDRectangle }
func (*Polygon) ID() ID    { return IDPolygon }
func (*Path) ID() ID       { return IDPath }
func (*CTrapezoid) ID() ID { return IDCTrapezoid }
func (*Circle) ID() ID     { return IDCircle }
func (*XElement) ID() ID   { return IDXElement }
func (*XGeometry) ID() ID  { return IDXGeometry }

func (*Placement) record()  {}
func (*Text) record()       {}
func (*Rectangle) record()  {}
func (*Polygon) record()    {}
func (*Path) record()       {}
func (*Trapezoid) record()  {}
func (*CTrapezoid) record() {}
func (*Circle) record()     {}
func (*XElement) record()   {}
func (*XGeometry) record()  {}
