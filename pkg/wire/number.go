package wire

import (
	"fmt"
	"math"

	"github.com/rawbytedev/oasis/internal/common"
)

// ReadUint reads an unsigned-integer.
func ReadUint(s Source) (uint64, error) {
	return common.ReadVarUint(s)
}

// ReadUint32 reads an unsigned-integer that must fit in 32 bits.
func ReadUint32(s Source) (uint32, error) {
	v, err := common.ReadVarUint(s)
	if err != nil {
		return 0, err
	}
	if v > math.MaxUint32 {
		return 0, fmt.Errorf("%w: %d does not fit in 32 bits", common.ErrOverflow, v)
	}
	return uint32(v), nil
}

func AppendUint(dst []byte, v uint64) []byte {
	return common.WriteVarUint(dst, v)
}

// ReadSint reads a signed-integer.
func ReadSint(s Source) (int64, error) {
	return common.ReadSigned(s)
}

func AppendSint(dst []byte, v int64) []byte {
	return common.WriteSigned(dst, v)
}

// ReadInfo reads a single info byte.
func ReadInfo(s Source) (byte, error) {
	b, err := s.ReadByte()
	if err != nil {
		return 0, common.Truncated(err)
	}
	return b, nil
}

// RealKind is the type code that prefixes every real.
type RealKind uint8

const (
	RealPosInt RealKind = iota
	RealNegInt
	RealPosReciprocal
	RealNegReciprocal
	RealPosRatio
	RealNegRatio
	RealFloat32
	RealFloat64
)

// Real keeps the exact encoding a real was read with so it can be written
// back unchanged. Integer kinds use Num, reciprocals use Den, ratios use both
// and the float kinds use Float.
type Real struct {
	Kind  RealKind
	Num   uint64
	Den   uint64
	Float float64
}

// Float64 is the numeric value of r.
func (r Real) Float64() float64 {
	switch r.Kind {
	case RealPosInt:
		return float64(r.Num)
	case RealNegInt:
		return -float64(r.Num)
	case RealPosReciprocal:
		return 1 / float64(r.Den)
	case RealNegReciprocal:
		return -1 / float64(r.Den)
	case RealPosRatio:
		return float64(r.Num) / float64(r.Den)
	case RealNegRatio:
		return -float64(r.Num) / float64(r.Den)
	default:
		return r.Float
	}
}

// Canonical re-encodes r with the most compact kind that holds its value
// exactly. Ratios are reduced and stay ratios unless an integer or a
// reciprocal holds them. The result is never longer than r.
func (r Real) Canonical() Real {
	switch r.Kind {
	case RealPosInt, RealNegInt, RealPosReciprocal, RealNegReciprocal:
		return r
	case RealPosRatio, RealNegRatio:
		return r.reduce()
	}
	if c := CompactReal(r.Float); realLen(c) < realLen(r) {
		return c
	}
	return r
}

func (r Real) reduce() Real {
	if r.Den == 0 {
		return r
	}
	if r.Num == 0 {
		return Real{Kind: RealPosInt}
	}
	g := gcd(r.Num, r.Den)
	num, den := r.Num/g, r.Den/g
	neg := r.Kind == RealNegRatio
	switch {
	case den == 1 && neg:
		return Real{Kind: RealNegInt, Num: num}
	case den == 1:
		return Real{Kind: RealPosInt, Num: num}
	case num == 1 && neg:
		return Real{Kind: RealNegReciprocal, Den: den}
	case num == 1:
		return Real{Kind: RealPosReciprocal, Den: den}
	}
	return Real{Kind: r.Kind, Num: num, Den: den}
}

func gcd(a, b uint64) uint64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// realLen is the encoded size of r, type code included.
func realLen(r Real) int {
	b, err := AppendReal(nil, r)
	if err != nil {
		return math.MaxInt
	}
	return len(b)
}

// IntReal builds an integer-kind real.
func IntReal(v int64) Real {
	mag, neg := common.SignMagnitude(v)
	if neg {
		return Real{Kind: RealNegInt, Num: mag}
	}
	return Real{Kind: RealPosInt, Num: mag}
}

// CompactReal picks the shortest exact encoding for f: an integer, then a
// reciprocal, then float32 when it is lossless, else float64. Ratios are
// never originated. Negative zero is written as integer zero.
func CompactReal(f float64) Real {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Real{Kind: RealFloat64, Float: f}
	}
	neg := f < 0
	a := math.Abs(f)
	if a == math.Trunc(a) && a < 1<<64 {
		if neg {
			return Real{Kind: RealNegInt, Num: uint64(a)}
		}
		return Real{Kind: RealPosInt, Num: uint64(a)}
	}
	if a < 1 {
		inv := 1 / a
		if inv == math.Trunc(inv) && inv < 1<<64 && 1/inv == a {
			if neg {
				return Real{Kind: RealNegReciprocal, Den: uint64(inv)}
			}
			return Real{Kind: RealPosReciprocal, Den: uint64(inv)}
		}
	}
	if float64(float32(f)) == f {
		return Real{Kind: RealFloat32, Float: f}
	}
	return Real{Kind: RealFloat64, Float: f}
}

// ReadReal reads a type code followed by the matching payload.
func ReadReal(s Source) (Real, error) {
	code, err := ReadUint(s)
	if err != nil {
		return Real{}, err
	}
	if code > uint64(RealFloat64) {
		return Real{}, fmt.Errorf("%w: unknown real type %d", common.ErrMalformedRecord, code)
	}
	return readRealBody(s, RealKind(code))
}

func readRealBody(s Source, k RealKind) (Real, error) {
	r := Real{Kind: k}
	var err error
	switch k {
	case RealPosInt, RealNegInt:
		r.Num, err = ReadUint(s)
	case RealPosReciprocal, RealNegReciprocal:
		if r.Den, err = ReadUint(s); err == nil && r.Den == 0 {
			err = fmt.Errorf("%w: reciprocal of zero", common.ErrMalformedRecord)
		}
	case RealPosRatio, RealNegRatio:
		if r.Num, err = ReadUint(s); err != nil {
			break
		}
		if r.Den, err = ReadUint(s); err == nil && r.Den == 0 {
			err = fmt.Errorf("%w: ratio with zero denominator", common.ErrMalformedRecord)
		}
	case RealFloat32:
		var b []byte
		if b, err = s.ReadN(4); err == nil {
			r.Float = float64(common.Float32(b))
		}
	case RealFloat64:
		var b []byte
		if b, err = s.ReadN(8); err == nil {
			r.Float = common.Float64(b)
		}
	}
	if err != nil {
		return Real{}, common.Truncated(err)
	}
	return r, nil
}

// AppendReal writes r with exactly the kind it carries.
func AppendReal(dst []byte, r Real) ([]byte, error) {
	dst = AppendUint(dst, uint64(r.Kind))
	switch r.Kind {
	case RealPosInt, RealNegInt:
		return AppendUint(dst, r.Num), nil
	case RealPosReciprocal, RealNegReciprocal:
		if r.Den == 0 {
			return dst, fmt.Errorf("%w: reciprocal of zero", common.ErrMalformedRecord)
		}
		return AppendUint(dst, r.Den), nil
	case RealPosRatio, RealNegRatio:
		if r.Den == 0 {
			return dst, fmt.Errorf("%w: ratio with zero denominator", common.ErrMalformedRecord)
		}
		return AppendUint(AppendUint(dst, r.Num), r.Den), nil
	case RealFloat32:
		return common.PutFloat32(dst, float32(r.Float)), nil
	case RealFloat64:
		return common.PutFloat64(dst, r.Float), nil
	}
	return dst, fmt.Errorf("%w: unknown real type %d", common.ErrMalformedRecord, r.Kind)
}
