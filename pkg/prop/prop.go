// Package prop models OASIS properties: a name plus an ordered list of typed
// values, attached to the file, a cell, a name-table entry or an element.
package prop

import (
	"github.com/rawbytedev/oasis/pkg/wire"
)

// Names of the standard properties. They are ordinary properties to the
// codec; consumers look them up by name.
const (
	MaxSignedIntegerWidth   = "S_MAX_SIGNED_INTEGER_WIDTH"
	MaxUnsignedIntegerWidth = "S_MAX_UNSIGNED_INTEGER_WIDTH"
	MaxStringLength         = "S_MAX_STRING_LENGTH"
	PolygonMaxVertices      = "S_POLYGON_MAX_VERTICES"
	PathMaxVertices         = "S_PATH_MAX_VERTICES"
	TopCell                 = "S_TOP_CELL"
	BoundingBoxesAvailable  = "S_BOUNDING_BOXES_AVAILABLE"
	BoundingBox             = "S_BOUNDING_BOX"
	CellOffset              = "S_CELL_OFFSET"
	GDSProperty             = "S_GDS_PROPERTY"
)

// Property is one PROPERTY record after modal resolution. An empty Values
// list is legal and acts as a flag.
type Property struct {
	Name     wire.NameRef
	Values   []wire.PropValue
	Standard bool
}

// Equal compares name, values and the standard flag.
func (p Property) Equal(o Property) bool {
	return p.Name == o.Name && p.Standard == o.Standard && wire.ValuesEqual(p.Values, o.Values)
}

// Resolver maps a reference number to the string it names.
type Resolver interface {
	Resolve(ref uint64) (string, error)
}

// NameOf returns the property name, resolving references through r.
func NameOf(p Property, r Resolver) (string, error) {
	if !p.Name.ByRef {
		return p.Name.Name, nil
	}
	return r.Resolve(p.Name.Ref)
}

// Find returns the properties whose resolved name is name.
func Find(props []Property, name string, r Resolver) ([]Property, error) {
	var out []Property
	for _, p := range props {
		n, err := NameOf(p, r)
		if err != nil {
			return nil, err
		}
		if n == name {
			out = append(out, p)
		}
	}
	return out, nil
}

// StringValue resolves v to its string form. Inline strings are returned
// directly and references are looked up through r. ok is false for numeric
// values.
func StringValue(v wire.PropValue, r Resolver) (s string, ok bool, err error) {
	switch v := v.(type) {
	case wire.StringValue:
		return v.Value, true, nil
	case wire.RefValue:
		s, err := r.Resolve(v.Ref)
		return s, err == nil, err
	}
	return "", false, nil
}
