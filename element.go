package oasis

import (
	"fmt"

	"github.com/rawbytedev/oasis/pkg/record"
	"github.com/rawbytedev/oasis/pkg/repetition"
	"github.com/rawbytedev/oasis/pkg/wire"
)

// Element is one record of a cell body. The concrete types are *Polygon,
// *Path, *Rectangle, *Trapezoid, *CTrapezoid, *Circle, *Text, *Placement,
// *XElement and *XGeometry.
type Element interface {
	// Props returns the properties attached to the element.
	Props() []Property
	properties() *[]Property
}

// Geometry is the part every geometric element shares. All modal fields
// are resolved: positions are absolute and Repetition is never Reuse.
type Geometry struct {
	Layer      uint32
	Datatype   uint32
	X, Y       int64
	Repetition repetition.Repetition
	Properties []Property
}

func (g *Geometry) Props() []Property       { return g.Properties }
func (g *Geometry) properties() *[]Property { return &g.Properties }

// Positions returns the position of every instance of the element.
func (g *Geometry) Positions() ([]wire.Delta, error) {
	return repetition.Expand(g.Repetition, wire.Delta{X: g.X, Y: g.Y})
}

// Polygon vertices are relative to (X, Y); the closing edge is implied.
type Polygon struct {
	Points wire.PointList
	Geometry
}

// Path is a centre line with a half-width and end extensions. The zero
// Extension is written as a flush end; decoded paths always carry a
// concrete scheme.
type Path struct {
	HalfWidth  uint64
	Start, End record.Extension
	Points     wire.PointList
	Geometry
}

// Rectangle has its lower-left corner at (X, Y). A square is written when
// W equals H.
type Rectangle struct {
	W, H uint64
	Geometry
}

// Trapezoid has two parallel sides; see Vertices.
type Trapezoid struct {
	Vertical       bool
	W, H           uint64
	DeltaA, DeltaB int64
	Geometry
}

// CTrapezoid is one of the predefined trapezoid shapes. W and H always hold
// both dimensions, including the one the type implies.
type CTrapezoid struct {
	Type uint8
	W, H uint64
	Geometry
}

type Circle struct {
	Radius uint64
	Geometry
}

// Text places a string. Layer and Datatype hold the text layer and text
// type, which have their own modal variables.
type Text struct {
	String NameRef
	Geometry
}

// Placement instantiates another cell. A nil Magnification is 1 and a nil
// Angle is 0 degrees counter-clockwise. Flip mirrors about the x axis
// before rotating.
type Placement struct {
	Cell          NameRef
	X, Y          int64
	Flip          bool
	Magnification *wire.Real
	Angle         *wire.Real
	Repetition    repetition.Repetition
	Properties    []Property
}

func (p *Placement) Props() []Property       { return p.Properties }
func (p *Placement) properties() *[]Property { return &p.Properties }

func (p *Placement) Positions() ([]wire.Delta, error) {
	return repetition.Expand(p.Repetition, wire.Delta{X: p.X, Y: p.Y})
}

// Mag is the magnification as a number.
func (p *Placement) Mag() float64 {
	if p.Magnification == nil {
		return 1
	}
	return p.Magnification.Float64()
}

// Degrees is the rotation as a number.
func (p *Placement) Degrees() float64 {
	if p.Angle == nil {
		return 0
	}
	return p.Angle.Float64()
}

// XElement is an opaque extension record attached to the cell.
type XElement struct {
	Attribute  uint64
	Data       []byte
	Properties []Property
}

func (x *XElement) Props() []Property       { return x.Properties }
func (x *XElement) properties() *[]Property { return &x.Properties }

// XGeometry is opaque extension geometry.
type XGeometry struct {
	Attribute uint64
	Data      []byte
	Geometry
}

var (
	_ Element = (*Polygon)(nil)
	_ Element = (*Path)(nil)
	_ Element = (*Rectangle)(nil)
	_ Element = (*Trapezoid)(nil)
	_ Element = (*CTrapezoid)(nil)
	_ Element = (*Circle)(nil)
	_ Element = (*Text)(nil)
	_ Element = (*Placement)(nil)
	_ Element = (*XElement)(nil)
	_ Element = (*XGeometry)(nil)
)

// implied reports which CTRAPEZOID dimension a type derives from the
// other: 'h' or 'w', or 0 when both are free.
func implied(typ uint8) byte {
	switch typ {
	case 16, 17, 18, 19, 22, 23, 25:
		return 'h'
	case 20, 21:
		return 'w'
	}
	return 0
}

// impliedSize completes a CTRAPEZOID's dimensions from the free one.
func impliedSize(typ uint8, w, h uint64) (uint64, uint64, error) {
	twice := func(v uint64) (uint64, error) {
		if v > 1<<63-1 {
			return 0, fmt.Errorf("%w: ctrapezoid dimension %d", ErrOverflow, v)
		}
		return 2 * v, nil
	}
	var err error
	switch typ {
	case 16, 17, 18, 19, 25:
		h = w
	case 22, 23:
		h, err = twice(w)
	case 20, 21:
		w, err = twice(h)
	}
	return w, h, err
}
