// Package modal holds the OASIS modal variables: the values a record may
// omit because an earlier record of the same cell already set them.
package modal

import (
	"fmt"

	"github.com/rawbytedev/oasis/internal/common"
	"github.com/rawbytedev/oasis/pkg/record"
	"github.com/rawbytedev/oasis/pkg/repetition"
	"github.com/rawbytedev/oasis/pkg/wire"
)

// Slot is one modal variable that starts out unset.
type Slot[T any] struct {
	val T
	set bool
}

func (s *Slot[T]) Set(v T) {
	s.val = v
	s.set = true
}

// Get returns the value or ErrUnsetModalField naming field.
func (s *Slot[T]) Get(field string) (T, error) {
	if !s.set {
		var zero T
		return zero, fmt.Errorf("%w: %s", common.ErrUnsetModalField, field)
	}
	return s.val, nil
}

// Peek returns the value and whether it is set.
func (s *Slot[T]) Peek() (T, bool) { return s.val, s.set }

func (s *Slot[T]) IsSet() bool { return s.set }

func (s *Slot[T]) Clear() { *s = Slot[T]{} }

// Table is the full set of modal variables. The zero value is the reset
// state; one Table belongs to one decode or encode pass.
type Table struct {
	Repetition Slot[repetition.Repetition]

	PlacementX, PlacementY int64
	PlacementCell          Slot[wire.NameRef]

	Layer, Datatype     Slot[uint32]
	TextLayer, TextType Slot[uint32]

	TextX, TextY int64
	TextString   Slot[wire.NameRef]

	GeometryX, GeometryY int64
	Relative             bool

	GeometryW, GeometryH Slot[uint64]
	PolygonPoints        Slot[wire.PointList]
	PathHalfWidth        Slot[uint64]
	PathPoints           Slot[wire.PointList]
	PathStart, PathEnd   Slot[record.Extension]
	CTrapezoidType       Slot[uint8]
	CircleRadius         Slot[uint64]

	PropertyName     Slot[wire.NameRef]
	PropertyValues   Slot[[]wire.PropValue]
	PropertyStandard Slot[bool]
}

// Reset restores the defaults: positions 0, absolute mode, all else unset.
func (t *Table) Reset() { *t = Table{} }

// Coord resolves an optional coordinate against the modal one. In relative
// mode an explicit value is an offset from the modal value. The modal value
// always ends up holding the result.
func (t *Table) Coord(v *int64, modal *int64) (int64, error) {
	if v != nil {
		if t.Relative {
			sum := *modal + *v
			if (sum > *modal) != (*v > 0) {
				return 0, fmt.Errorf("%w: relative coordinate", common.ErrOverflow)
			}
			*modal = sum
		} else {
			*modal = *v
		}
	}
	return *modal, nil
}

// Choose resolves an optional field: explicit values update the slot,
// omitted ones read it.
func Choose[T any](s *Slot[T], v *T, field string) (T, error) {
	if v != nil {
		s.Set(*v)
		return *v, nil
	}
	return s.Get(field)
}

// Omit reports whether v can be left out because slot already holds it,
// and records v as the new modal value otherwise.
func Omit[T comparable](s *Slot[T], v T) bool {
	if cur, ok := s.Peek(); ok && cur == v {
		return true
	}
	s.Set(v)
	return false
}
