package wire

import (
	"fmt"

	"github.com/rawbytedev/oasis/internal/common"
)

// Delta is a displacement (or relative vertex) in grid units.
type Delta struct {
	X, Y int64
}

func (d Delta) Add(o Delta) Delta { return Delta{d.X + o.X, d.Y + o.Y} }
func (d Delta) Sub(o Delta) Delta { return Delta{d.X - o.X, d.Y - o.Y} }

// Octangular directions in wire order.
const (
	East = iota
	North
	West
	South
	NorthEast
	NorthWest
	SouthWest
	SouthEast
)

var dirUnit = [8]Delta{
	East: {1, 0}, North: {0, 1}, West: {-1, 0}, South: {0, -1},
	NorthEast: {1, 1}, NorthWest: {-1, 1}, SouthWest: {-1, -1}, SouthEast: {1, -1},
}

// direction returns the octangular direction and per-axis magnitude of d.
// ok is false when d is not horizontal, vertical or 45 degrees.
func direction(d Delta) (dir int, mag uint64, ok bool) {
	ax, _ := common.SignMagnitude(d.X)
	ay, _ := common.SignMagnitude(d.Y)
	switch {
	case d.Y == 0 && d.X >= 0:
		return East, ax, true
	case d.Y == 0:
		return West, ax, true
	case d.X == 0 && d.Y > 0:
		return North, ay, true
	case d.X == 0:
		return South, ay, true
	case ax != ay:
		return 0, 0, false
	case d.X > 0 && d.Y > 0:
		return NorthEast, ax, true
	case d.X < 0 && d.Y > 0:
		return NorthWest, ax, true
	case d.X < 0:
		return SouthWest, ax, true
	default:
		return SouthEast, ax, true
	}
}

func fromDirection(dir int, mag uint64) (Delta, error) {
	u := dirUnit[dir&7]
	var d Delta
	var err error
	if u.X != 0 {
		if d.X, err = common.FromSignMagnitude(mag, u.X < 0); err != nil {
			return Delta{}, err
		}
	}
	if u.Y != 0 {
		if d.Y, err = common.FromSignMagnitude(mag, u.Y < 0); err != nil {
			return Delta{}, err
		}
	}
	return d, nil
}

// ReadGDelta reads a g-delta in either of its two forms.
func ReadGDelta(s Source) (Delta, error) {
	mag, tag, err := common.ReadTagged(s, 4)
	if err != nil {
		return Delta{}, err
	}
	if tag&1 == 0 {
		return fromDirection(int(tag>>1), mag)
	}
	// Form 2: the first varint is x with a two-bit tag.
	if mag >= 1<<62 {
		return Delta{}, common.ErrOverflow
	}
	xmag := mag<<2 | tag>>2
	x, err := common.FromSignMagnitude(xmag, tag&2 != 0)
	if err != nil {
		return Delta{}, err
	}
	y, err := common.ReadSigned(s)
	if err != nil {
		return Delta{}, err
	}
	return Delta{x, y}, nil
}

// AppendGDelta writes d in form 1 when it is octangular, else form 2.
func AppendGDelta(dst []byte, d Delta) []byte {
	if dir, mag, ok := direction(d); ok {
		return common.WriteTagged(dst, mag, uint64(dir)<<1, 4)
	}
	xmag, xneg := common.SignMagnitude(d.X)
	tag := uint64(1)
	if xneg {
		tag |= 2
	}
	dst = common.WriteTagged(dst, xmag, tag, 2)
	return common.WriteSigned(dst, d.Y)
}

func read2Delta(s Source) (Delta, error) {
	mag, dir, err := common.ReadTagged(s, 2)
	if err != nil {
		return Delta{}, err
	}
	return fromDirection(int(dir), mag)
}

func read3Delta(s Source) (Delta, error) {
	mag, dir, err := common.ReadTagged(s, 3)
	if err != nil {
		return Delta{}, err
	}
	return fromDirection(int(dir), mag)
}

// IntervalKind selects which bounds of an Interval are stored.
type IntervalKind uint8

const (
	IntervalAll   IntervalKind = iota // 0 to infinity
	IntervalUpTo                      // 0 to Hi
	IntervalFrom                      // Lo to infinity
	IntervalExact                     // Lo
	IntervalRange                     // Lo to Hi
)

// Interval is a LAYERNAME layer or datatype range.
type Interval struct {
	Kind   IntervalKind
	Lo, Hi uint64
}

func (iv Interval) Contains(v uint64) bool {
	switch iv.Kind {
	case IntervalAll:
		return true
	case IntervalUpTo:
		return v <= iv.Hi
	case IntervalFrom:
		return v >= iv.Lo
	case IntervalExact:
		return v == iv.Lo
	case IntervalRange:
		return v >= iv.Lo && v <= iv.Hi
	}
	return false
}

func ReadInterval(s Source) (Interval, error) {
	k, err := ReadUint(s)
	if err != nil {
		return Interval{}, err
	}
	if k > uint64(IntervalRange) {
		return Interval{}, fmt.Errorf("%w: unknown interval type %d", common.ErrMalformedRecord, k)
	}
	iv := Interval{Kind: IntervalKind(k)}
	switch iv.Kind {
	case IntervalAll:
	case IntervalUpTo:
		iv.Hi, err = ReadUint(s)
	case IntervalFrom:
		iv.Lo, err = ReadUint(s)
	case IntervalExact:
		iv.Lo, err = ReadUint(s)
		iv.Hi = iv.Lo
	case IntervalRange:
		if iv.Lo, err = ReadUint(s); err == nil {
			iv.Hi, err = ReadUint(s)
		}
	}
	return iv, err
}

func AppendInterval(dst []byte, iv Interval) []byte {
	dst = AppendUint(dst, uint64(iv.Kind))
	switch iv.Kind {
	case IntervalUpTo:
		dst = AppendUint(dst, iv.Hi)
	case IntervalFrom, IntervalExact:
		dst = AppendUint(dst, iv.Lo)
	case IntervalRange:
		dst = AppendUint(AppendUint(dst, iv.Lo), iv.Hi)
	}
	return dst
}
