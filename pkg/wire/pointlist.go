package wire

import (
	"fmt"

	"github.com/rawbytedev/oasis/internal/common"
)

// PointListKind is the point-list type code.
type PointListKind uint8

const (
	ManhattanHorizontal PointListKind = iota // alternating 1-deltas, x first
	ManhattanVertical                        // alternating 1-deltas, y first
	Manhattan                                // 2-deltas
	Octangular                               // 3-deltas
	AllAngle                                 // g-deltas
	AllAngleDouble                           // g-deltas of successive deltas
)

// maxPrealloc bounds slice capacity taken from untrusted counts.
const maxPrealloc = 4096

// PointList is a vertex list relative to an element's position.
// Points[0] is always the origin.
type PointList struct {
	Kind   PointListKind
	Points []Delta
}

func capHint(n uint64) int {
	if n > maxPrealloc {
		return maxPrealloc
	}
	return int(n)
}

func addInt(a, b int64) (int64, error) {
	c := a + b
	if (c > a) != (b > 0) {
		return 0, common.ErrOverflow
	}
	return c, nil
}

func addDelta(a, b Delta) (Delta, error) {
	x, err := addInt(a.X, b.X)
	if err != nil {
		return Delta{}, err
	}
	y, err := addInt(a.Y, b.Y)
	if err != nil {
		return Delta{}, err
	}
	return Delta{x, y}, nil
}

// ReadPointList reads a point list. For polygons the vertex implied by the
// manhattan 1-delta kinds is appended; the closing edge is never stored.
func ReadPointList(s Source, polygon bool) (PointList, error) {
	k, err := ReadUint(s)
	if err != nil {
		return PointList{}, err
	}
	if k > uint64(AllAngleDouble) {
		return PointList{}, fmt.Errorf("%w: unknown point-list type %d", common.ErrMalformedRecord, k)
	}
	n, err := ReadUint(s)
	if err != nil {
		return PointList{}, err
	}
	pl := PointList{Kind: PointListKind(k), Points: make([]Delta, 1, capHint(n)+2)}
	var cur, step Delta
	horizontal := pl.Kind == ManhattanHorizontal
	for i := uint64(0); i < n; i++ {
		var d Delta
		switch pl.Kind {
		case ManhattanHorizontal, ManhattanVertical:
			v, err := ReadSint(s)
			if err != nil {
				return PointList{}, err
			}
			if horizontal {
				d.X = v
			} else {
				d.Y = v
			}
			horizontal = !horizontal
		case Manhattan:
			d, err = read2Delta(s)
		case Octangular:
			d, err = read3Delta(s)
		case AllAngle:
			d, err = ReadGDelta(s)
		case AllAngleDouble:
			var g Delta
			if g, err = ReadGDelta(s); err == nil {
				step, err = addDelta(step, g)
				d = step
			}
		}
		if err != nil {
			return PointList{}, err
		}
		if cur, err = addDelta(cur, d); err != nil {
			return PointList{}, err
		}
		pl.Points = append(pl.Points, cur)
	}
	if polygon && pl.Kind <= ManhattanVertical {
		if horizontal {
			pl.Points = append(pl.Points, Delta{0, cur.Y})
		} else {
			pl.Points = append(pl.Points, Delta{cur.X, 0})
		}
	}
	return pl, nil
}

// stored returns the vertices that are written explicitly for kind k.
func stored(k PointListKind, pts []Delta, polygon bool) []Delta {
	if polygon && k <= ManhattanVertical {
		return pts[:len(pts)-1]
	}
	return pts
}

// Fits reports whether pts can be written as kind k.
func (k PointListKind) Fits(pts []Delta, polygon bool) bool {
	if len(pts) == 0 || pts[0] != (Delta{}) || k > AllAngleDouble {
		return false
	}
	switch k {
	case ManhattanHorizontal, ManhattanVertical:
		if polygon && len(pts) < 2 {
			return false
		}
		horizontal := k == ManhattanHorizontal
		sv := stored(k, pts, polygon)
		for i := 1; i < len(sv); i++ {
			d := sv[i].Sub(sv[i-1])
			if (horizontal && d.Y != 0) || (!horizontal && d.X != 0) {
				return false
			}
			horizontal = !horizontal
		}
		if polygon {
			last, implied := sv[len(sv)-1], pts[len(pts)-1]
			if horizontal {
				return implied == Delta{0, last.Y}
			}
			return implied == Delta{last.X, 0}
		}
	case Manhattan:
		for i := 1; i < len(pts); i++ {
			if d := pts[i].Sub(pts[i-1]); d.X != 0 && d.Y != 0 {
				return false
			}
		}
	case Octangular:
		for i := 1; i < len(pts); i++ {
			if _, _, ok := direction(pts[i].Sub(pts[i-1])); !ok {
				return false
			}
		}
	}
	return true
}

// AppendPointList writes pl with the kind it carries.
func AppendPointList(dst []byte, pl PointList, polygon bool) ([]byte, error) {
	if !pl.Kind.Fits(pl.Points, polygon) {
		return dst, fmt.Errorf("%w: vertices do not fit point-list type %d", common.ErrMalformedRecord, pl.Kind)
	}
	sv := stored(pl.Kind, pl.Points, polygon)
	dst = AppendUint(dst, uint64(pl.Kind))
	dst = AppendUint(dst, uint64(len(sv)-1))
	var prev Delta
	for i := 1; i < len(sv); i++ {
		d := sv[i].Sub(sv[i-1])
		switch pl.Kind {
		case ManhattanHorizontal, ManhattanVertical:
			horizontal := (i%2 == 1) == (pl.Kind == ManhattanHorizontal)
			if horizontal {
				dst = AppendSint(dst, d.X)
			} else {
				dst = AppendSint(dst, d.Y)
			}
		case Manhattan:
			dir, mag, _ := direction(d)
			dst = common.WriteTagged(dst, mag, uint64(dir), 2)
		case Octangular:
			dir, mag, _ := direction(d)
			dst = common.WriteTagged(dst, mag, uint64(dir), 3)
		case AllAngle:
			dst = AppendGDelta(dst, d)
		case AllAngleDouble:
			dst = AppendGDelta(dst, d.Sub(prev))
			prev = d
		}
	}
	return dst, nil
}

// Compact returns pl re-typed with whichever kind encodes shortest.
func (pl PointList) Compact(polygon bool) PointList {
	best, bestLen := pl, -1
	var scratch []byte
	for k := ManhattanHorizontal; k <= AllAngleDouble; k++ {
		if !k.Fits(pl.Points, polygon) {
			continue
		}
		cand := PointList{Kind: k, Points: pl.Points}
		scratch, _ = AppendPointList(scratch[:0], cand, polygon)
		if bestLen < 0 || len(scratch) < bestLen {
			best, bestLen = cand, len(scratch)
		}
	}
	return best
}

// Equal compares vertices and kind.
func (pl PointList) Equal(o PointList) bool {
	if pl.Kind != o.Kind || len(pl.Points) != len(o.Points) {
		return false
	}
	for i := range pl.Points {
		if pl.Points[i] != o.Points[i] {
			return false
		}
	}
	return true
}
