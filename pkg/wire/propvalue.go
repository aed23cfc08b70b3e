package wire

import (
	"fmt"

	"github.com/rawbytedev/oasis/internal/common"
)

// PropValue is one typed property value. The concrete types are RealValue,
// UintValue, SintValue, StringValue and RefValue.
type PropValue interface {
	propValue()
}

// RealValue is a property value with type codes 0 to 7.
type RealValue struct {
	Real Real
}

// UintValue is a property value with type code 8.
type UintValue struct {
	Value uint64
}

// SintValue is a property value with type code 9.
type SintValue struct {
	Value int64
}

// StringValue is an inline a-, b- or n-string (type codes 10 to 12).
type StringValue struct {
	Kind  StringKind
	Value string
}

// RefValue references a PROPSTRING entry (type codes 13 to 15).
type RefValue struct {
	Kind StringKind
	Ref  uint64
}

func (RealValue) propValue()   {}
func (UintValue) propValue()   {}
func (SintValue) propValue()   {}
func (StringValue) propValue() {}
func (RefValue) propValue()    {}

const (
	codeUint      = 8
	codeSint      = 9
	codeString    = 10
	codeStringRef = 13
)

func ReadPropValue(s Source) (PropValue, error) {
	code, err := ReadUint(s)
	if err != nil {
		return nil, err
	}
	switch {
	case code <= uint64(RealFloat64):
		r, err := readRealBody(s, RealKind(code))
		if err != nil {
			return nil, err
		}
		return RealValue{Real: r}, nil
	case code == codeUint:
		v, err := ReadUint(s)
		return UintValue{Value: v}, err
	case code == codeSint:
		v, err := ReadSint(s)
		return SintValue{Value: v}, err
	case code < codeStringRef:
		k := StringKind(code - codeString)
		v, err := ReadString(s, k)
		return StringValue{Kind: k, Value: v}, err
	case code <= codeStringRef+uint64(NString):
		ref, err := ReadUint(s)
		return RefValue{Kind: StringKind(code - codeStringRef), Ref: ref}, err
	}
	return nil, fmt.Errorf("%w: unknown property value type %d", common.ErrMalformedRecord, code)
}

func AppendPropValue(dst []byte, v PropValue) ([]byte, error) {
	switch v := v.(type) {
	case RealValue:
		return AppendReal(dst, v.Real)
	case UintValue:
		return AppendUint(AppendUint(dst, codeUint), v.Value), nil
	case SintValue:
		return AppendSint(AppendUint(dst, codeSint), v.Value), nil
	case StringValue:
		return AppendString(AppendUint(dst, codeString+uint64(v.Kind)), v.Kind, v.Value)
	case RefValue:
		return AppendUint(AppendUint(dst, codeStringRef+uint64(v.Kind)), v.Ref), nil
	}
	return dst, fmt.Errorf("%w: unsupported property value %T", common.ErrMalformedRecord, v)
}

// ValuesEqual compares two value lists element by element.
func ValuesEqual(a, b []PropValue) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
