// Package oasis reads and writes OASIS (SEMI P39) layout files.
//
// A file decodes into a Layout: an ordered list of cells, each holding
// geometric elements with every modal field resolved, plus the name tables
// that references point into. References are kept as written and resolved
// on demand through the Layout accessors.
package oasis

import (
	"fmt"

	"github.com/rawbytedev/oasis/internal/common"
	"github.com/rawbytedev/oasis/pkg/names"
	"github.com/rawbytedev/oasis/pkg/prop"
	"github.com/rawbytedev/oasis/pkg/record"
	"github.com/rawbytedev/oasis/pkg/validation"
	"github.com/rawbytedev/oasis/pkg/wire"
)

var (
	ErrMalformedHeader    = common.ErrMalformedHeader
	ErrMalformedRecord    = common.ErrMalformedRecord
	ErrTruncatedStream    = common.ErrTruncatedStream
	ErrUnsetModalField    = common.ErrUnsetModalField
	ErrDanglingReference  = common.ErrDanglingReference
	ErrOverflow           = common.ErrOverflow
	ErrCompression        = common.ErrCompression
	ErrValidationMismatch = common.ErrValidationMismatch
	ErrPlacementCycle     = common.ErrPlacementCycle
)

type (
	NameRef         = wire.NameRef
	Property        = prop.Property
	ReferenceError  = names.ReferenceError
	ValidationError = validation.Error
)

// Layout is a decoded OASIS file.
type Layout struct {
	Version string
	// Unit is the number of database units per micron.
	Unit       wire.Real
	Cells      []*Cell
	Properties []Property

	CellNames   *names.Table
	TextStrings *names.Table
	PropNames   *names.Table
	PropStrings *names.Table
	XNames      *names.Table
	LayerNames  []*names.Layer

	// Table is the offset table as read; the writer computes its own.
	Table      *record.OffsetTable
	Validation validation.Scheme
	Signature  uint32
}

// NewLayout returns an empty layout with unit database units per micron.
func NewLayout(unit float64) *Layout {
	l := &Layout{Version: record.Version, Unit: wire.CompactReal(unit)}
	l.initTables()
	return l
}

func (l *Layout) initTables() {
	for _, k := range names.Kinds {
		if t := l.table(k); t != nil && *t == nil {
			*t = names.NewTable(k)
		}
	}
}

func (l *Layout) table(k names.Kind) **names.Table {
	switch k {
	case names.CellName:
		return &l.CellNames
	case names.TextString:
		return &l.TextStrings
	case names.PropName:
		return &l.PropNames
	case names.PropString:
		return &l.PropStrings
	case names.XName:
		return &l.XNames
	}
	return nil
}

// Cell is one cell definition.
type Cell struct {
	Name       NameRef
	Elements   []Element
	Properties []Property
}

// AddCell appends an empty cell named name and returns it.
func (l *Layout) AddCell(name string) *Cell {
	c := &Cell{Name: wire.Named(name)}
	l.Cells = append(l.Cells, c)
	return c
}

func resolve(t *names.Table, k names.Kind, n NameRef) (string, error) {
	if !n.ByRef {
		return n.Name, nil
	}
	if t == nil {
		return "", &ReferenceError{Table: k, Ref: n.Ref}
	}
	return t.Resolve(n.Ref)
}

// CellName resolves a cell name or cellname reference.
func (l *Layout) CellName(n NameRef) (string, error) {
	return resolve(l.CellNames, names.CellName, n)
}

// TextString resolves a text string or textstring reference.
func (l *Layout) TextString(n NameRef) (string, error) {
	return resolve(l.TextStrings, names.TextString, n)
}

// PropName resolves a property name or propname reference.
func (l *Layout) PropName(n NameRef) (string, error) {
	return resolve(l.PropNames, names.PropName, n)
}

// PropString resolves a property string value; ok is false for numbers.
func (l *Layout) PropString(v wire.PropValue) (string, bool, error) {
	if l.PropStrings == nil {
		return prop.StringValue(v, names.NewTable(names.PropString))
	}
	return prop.StringValue(v, l.PropStrings)
}

// Cell returns the cell whose resolved name is name.
func (l *Layout) Cell(name string) (*Cell, error) {
	for _, c := range l.Cells {
		n, err := l.CellName(c.Name)
		if err != nil {
			return nil, err
		}
		if n == name {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: no cell named %q", ErrDanglingReference, name)
}

// ResolvePlacement returns the cell p places.
func (l *Layout) ResolvePlacement(p *Placement) (*Cell, error) {
	name, err := l.CellName(p.Cell)
	if err != nil {
		return nil, err
	}
	return l.Cell(name)
}

// LayerNamesFor returns the LAYERNAME names covering a layer and datatype,
// or with text set a text layer and text type.
func (l *Layout) LayerNamesFor(layer, datatype uint32, text bool) []string {
	return names.Match(l.LayerNames, uint64(layer), uint64(datatype), text)
}

// FindProperties returns the properties of props named name.
func (l *Layout) FindProperties(props []Property, name string) ([]Property, error) {
	return prop.Find(props, name, resolverFunc(func(ref uint64) (string, error) {
		return l.PropName(wire.Ref(ref))
	}))
}

type resolverFunc func(ref uint64) (string, error)

func (f resolverFunc) Resolve(ref uint64) (string, error) { return f(ref) }

// CheckReferences resolves every reference in the layout and returns the
// first that is not defined.
func (l *Layout) CheckReferences() error {
	checkProps := func(props []Property) error {
		for _, p := range props {
			if _, err := l.PropName(p.Name); err != nil {
				return err
			}
			for _, v := range p.Values {
				if _, _, err := l.PropString(v); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if err := checkProps(l.Properties); err != nil {
		return err
	}
	for _, c := range l.Cells {
		if _, err := l.CellName(c.Name); err != nil {
			return err
		}
		if err := checkProps(c.Properties); err != nil {
			return err
		}
		for _, e := range c.Elements {
			switch e := e.(type) {
			case *Placement:
				if _, err := l.CellName(e.Cell); err != nil {
					return err
				}
			case *Text:
				if _, err := l.TextString(e.String); err != nil {
					return err
				}
			}
			if err := checkProps(*e.properties()); err != nil {
				return err
			}
		}
	}
	return nil
}
