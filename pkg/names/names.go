// Package names implements the OASIS name tables (CELLNAME, TEXTSTRING,
// PROPNAME, PROPSTRING, XNAME) and LAYERNAME entries.
package names

import (
	"fmt"
	"reflect"

	"github.com/rawbytedev/oasis/internal/common"
	"github.com/rawbytedev/oasis/pkg/prop"
	"github.com/rawbytedev/oasis/pkg/wire"
)

// Kind identifies a table. The order matches the offset table.
type Kind uint8

const (
	CellName Kind = iota
	TextString
	PropName
	PropString
	LayerName
	XName
)

// Kinds lists every table in offset-table order.
var Kinds = [...]Kind{CellName, TextString, PropName, PropString, LayerName, XName}

func (k Kind) String() string {
	switch k {
	case CellName:
		return "cellname"
	case TextString:
		return "textstring"
	case PropName:
		return "propname"
	case PropString:
		return "propstring"
	case LayerName:
		return "layername"
	case XName:
		return "xname"
	}
	return fmt.Sprintf("table(%d)", uint8(k))
}

// ReferenceError reports a reference number missing from its table.
type ReferenceError struct {
	Table Kind
	Ref   uint64
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("oasis: %s reference %d is not defined", e.Table, e.Ref)
}

func (e *ReferenceError) Unwrap() error { return common.ErrDanglingReference }

// Entry is one table record. XName entries also carry an attribute.
type Entry struct {
	Ref        uint64
	Value      string
	Explicit   bool
	Attribute  uint64
	Properties []prop.Property
}

// Table holds the entries of one name table in record order.
type Table struct {
	kind     Kind
	entries  []*Entry
	byRef    map[uint64]*Entry
	byValue  map[string]uint64
	implicit uint64
}

func NewTable(kind Kind) *Table {
	return &Table{
		kind:    kind,
		byRef:   make(map[uint64]*Entry),
		byValue: make(map[string]uint64),
	}
}

func (t *Table) Kind() Kind { return t.kind }

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Insert adds e. Entries without an explicit number are numbered by how
// many implicit entries came before them, whatever explicit numbers exist.
func (t *Table) Insert(e Entry) (*Entry, error) {
	if !e.Explicit {
		e.Ref = t.implicit
		t.implicit++
	}
	if _, dup := t.byRef[e.Ref]; dup {
		return nil, fmt.Errorf("%w: %s reference %d defined twice", common.ErrMalformedRecord, t.kind, e.Ref)
	}
	p := &e
	t.entries = append(t.entries, p)
	t.byRef[e.Ref] = p
	if _, seen := t.byValue[e.Value]; !seen {
		t.byValue[e.Value] = e.Ref
	}
	return p, nil
}

// Add appends an implicitly numbered entry.
func (t *Table) Add(value string) (uint64, error) {
	e, err := t.Insert(Entry{Value: value})
	if err != nil {
		return 0, err
	}
	return e.Ref, nil
}

// AddRef appends an entry with an explicit reference number.
func (t *Table) AddRef(value string, ref uint64) error {
	_, err := t.Insert(Entry{Ref: ref, Value: value, Explicit: true})
	return err
}

// Intern returns the number of an existing entry holding value, adding an
// implicit one if there is none.
func (t *Table) Intern(value string) (uint64, error) {
	if ref, ok := t.byValue[value]; ok {
		return ref, nil
	}
	return t.Add(value)
}

// Resolve returns the string a reference number names.
func (t *Table) Resolve(ref uint64) (string, error) {
	e, ok := t.byRef[ref]
	if !ok {
		return "", &ReferenceError{Table: t.kind, Ref: ref}
	}
	return e.Value, nil
}

// Lookup returns the entry for ref.
func (t *Table) Lookup(ref uint64) (*Entry, bool) {
	e, ok := t.byRef[ref]
	return e, ok
}

// Entries returns every entry in record order.
func (t *Table) Entries() []*Entry { return t.entries }

// Equal compares the entries of two tables.
func (t *Table) Equal(o *Table) bool {
	if t == nil || o == nil {
		return t.Len() == o.Len()
	}
	if t.kind != o.kind || len(t.entries) != len(o.entries) {
		return false
	}
	for i := range t.entries {
		if !reflect.DeepEqual(t.entries[i], o.entries[i]) {
			return false
		}
	}
	return true
}

// Layer is one LAYERNAME record.
type Layer struct {
	Name       string
	Text       bool
	Layers     wire.Interval
	Types      wire.Interval
	Properties []prop.Property
}

// Match returns the names of every geometry (or, with text set, text) layer
// entry that covers the layer/datatype pair.
func Match(layers []*Layer, layer, datatype uint64, text bool) []string {
	var out []string
	for _, l := range layers {
		if l.Text == text && l.Layers.Contains(layer) && l.Types.Contains(datatype) {
			out = append(out, l.Name)
		}
	}
	return out
}
