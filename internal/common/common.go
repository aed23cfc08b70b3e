package common

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
)

// MaxVarintLen is the longest canonical encoding of a 64-bit varint.
const MaxVarintLen = 10

// WriteVarUint appends x to buf as an unsigned LEB128 varint,
// least-significant group first.
func WriteVarUint(buf []byte, x uint64) []byte {
	for x >= 0x80 {
		buf = append(buf, byte(x)|0x80)
		x >>= 7
	}
	return append(buf, byte(x))
}

// ReadVarUint decodes an unsigned varint from r.
func ReadVarUint(r io.ByteReader) (uint64, error) {
	v, _, err := ReadTagged(r, 0)
	return v, err
}

// WriteTagged appends a varint whose low bits carry tag and whose remaining
// bits carry mag. The magnitude is streamed group by group so every uint64
// value survives, including those that would overflow mag<<bits.
func WriteTagged(buf []byte, mag, tag uint64, bits uint) []byte {
	free := 7 - bits
	b := byte(tag&(1<<bits-1)) | byte(mag&(1<<free-1))<<bits
	mag >>= free
	for mag != 0 {
		buf = append(buf, b|0x80)
		b = byte(mag & 0x7f)
		mag >>= 7
	}
	return append(buf, b)
}

// ReadTagged is the inverse of WriteTagged. Continuation groups that carry
// no bits are accepted at any length, which is how padded encodings are
// written; a non-zero group beyond 64 bits is an overflow.
func ReadTagged(r io.ByteReader, bits uint) (mag, tag uint64, err error) {
	c, err := r.ReadByte()
	if err != nil {
		return 0, 0, Truncated(err)
	}
	tag = uint64(c) & (1<<bits - 1)
	mag = uint64(c&0x7f) >> bits
	shift := 7 - bits
	for c&0x80 != 0 {
		if c, err = r.ReadByte(); err != nil {
			return 0, 0, Truncated(err)
		}
		g := uint64(c & 0x7f)
		if g != 0 {
			if shift >= 64 || g>>(64-shift) != 0 {
				return 0, 0, ErrOverflow
			}
			mag |= g << shift
		}
		if shift < 64 {
			shift += 7
		}
	}
	return mag, tag, nil
}

// WriteSigned appends v in sign-magnitude form with the sign in the low bit.
func WriteSigned(buf []byte, v int64) []byte {
	mag, neg := SignMagnitude(v)
	var tag uint64
	if neg {
		tag = 1
	}
	return WriteTagged(buf, mag, tag, 1)
}

// ReadSigned decodes a sign-magnitude varint written by WriteSigned.
func ReadSigned(r io.ByteReader) (int64, error) {
	mag, tag, err := ReadTagged(r, 1)
	if err != nil {
		return 0, err
	}
	return FromSignMagnitude(mag, tag == 1)
}

// SignMagnitude splits v into its absolute value and sign.
func SignMagnitude(v int64) (uint64, bool) {
	if v < 0 {
		return uint64(-(v + 1)) + 1, true
	}
	return uint64(v), false
}

// FromSignMagnitude rebuilds a signed value, failing when it does not fit
// in an int64.
func FromSignMagnitude(mag uint64, neg bool) (int64, error) {
	if neg {
		if mag > 1<<63 {
			return 0, ErrOverflow
		}
		return -int64(mag-1) - 1, nil
	}
	if mag > math.MaxInt64 {
		return 0, ErrOverflow
	}
	return int64(mag), nil
}

// PutFloat32 appends the IEEE-754 little-endian bits of f.
func PutFloat32(buf []byte, f float32) []byte {
	return binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
}

// PutFloat64 appends the IEEE-754 little-endian bits of f.
func PutFloat64(buf []byte, f float64) []byte {
	return binary.LittleEndian.AppendUint64(buf, math.Float64bits(f))
}

// Float32 decodes a little-endian float32 from b.
func Float32(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

// Float64 decodes a little-endian float64 from b.
func Float64(b []byte) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(b))
}

// Truncated maps end-of-input conditions onto ErrTruncatedStream and leaves
// every other error untouched.
func Truncated(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrTruncatedStream
	}
	return err
}
