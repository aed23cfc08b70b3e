package repetition

import (
	"fmt"
	"math"

	"github.com/rawbytedev/oasis/internal/common"
	"github.com/rawbytedev/oasis/pkg/wire"
)

// Count is the number of instances r describes.
func Count(r Repetition) (uint64, error) {
	switch r := r.(type) {
	case nil:
		return 1, nil
	case Reuse:
		return 0, fmt.Errorf("%w: repetition reuse was never resolved", common.ErrUnsetModalField)
	case Grid:
		return mulCount(r.XCount, r.YCount)
	case Row:
		return r.Count, nil
	case Column:
		return r.Count, nil
	case IrregularRow:
		return uint64(len(r.Spaces)) + 1, nil
	case IrregularRowGrid:
		return uint64(len(r.Spaces)) + 1, nil
	case IrregularColumn:
		return uint64(len(r.Spaces)) + 1, nil
	case IrregularColumnGrid:
		return uint64(len(r.Spaces)) + 1, nil
	case Lattice:
		return mulCount(r.NCount, r.MCount)
	case Diagonal:
		return r.Count, nil
	case Arbitrary:
		return uint64(len(r.Steps)) + 1, nil
	case ArbitraryGrid:
		return uint64(len(r.Steps)) + 1, nil
	}
	return 0, fmt.Errorf("%w: unsupported repetition %T", common.ErrMalformedRecord, r)
}

func mulCount(a, b uint64) (uint64, error) {
	if a != 0 && b > MaxInstances/a {
		return 0, fmt.Errorf("%w: %d x %d instances", common.ErrOverflow, a, b)
	}
	return a * b, nil
}

// scale returns v*k, failing instead of wrapping.
func scale(v int64, k uint64) (int64, error) {
	if v == 0 || k == 0 {
		return 0, nil
	}
	mag, neg := common.SignMagnitude(v)
	if k > math.MaxUint64/mag {
		return 0, common.ErrOverflow
	}
	return common.FromSignMagnitude(mag*k, neg)
}

func scaleDelta(d wire.Delta, k uint64) (wire.Delta, error) {
	x, err := scale(d.X, k)
	if err != nil {
		return wire.Delta{}, err
	}
	y, err := scale(d.Y, k)
	if err != nil {
		return wire.Delta{}, err
	}
	return wire.Delta{X: x, Y: y}, nil
}

func toInt(v uint64) (int64, error) {
	if v > math.MaxInt64 {
		return 0, common.ErrOverflow
	}
	return int64(v), nil
}

func add(a, b wire.Delta) (wire.Delta, error) {
	x, y := a.X+b.X, a.Y+b.Y
	if (x > a.X) != (b.X > 0) || (y > a.Y) != (b.Y > 0) {
		return wire.Delta{}, common.ErrOverflow
	}
	return wire.Delta{X: x, Y: y}, nil
}

func sub(a, b wire.Delta) (wire.Delta, error) {
	x, y := a.X-b.X, a.Y-b.Y
	if (x < a.X) != (b.X > 0) || (y < a.Y) != (b.Y > 0) {
		return wire.Delta{}, common.ErrOverflow
	}
	return wire.Delta{X: x, Y: y}, nil
}

// Offsets returns the displacement of every instance in encoded order.
// The first instance is always at the element position.
func Offsets(r Repetition) ([]wire.Delta, error) {
	n, err := Count(r)
	if err != nil {
		return nil, err
	}
	if n > MaxInstances {
		return nil, fmt.Errorf("%w: %d instances", common.ErrOverflow, n)
	}
	out := make([]wire.Delta, 0, n)
	switch r := r.(type) {
	case nil:
		out = append(out, wire.Delta{})
	case Grid:
		xs, err := toInt(r.XSpace)
		if err != nil {
			return nil, err
		}
		ys, err := toInt(r.YSpace)
		if err != nil {
			return nil, err
		}
		return lattice(out, r.XCount, r.YCount, wire.Delta{X: xs}, wire.Delta{Y: ys})
	case Lattice:
		return lattice(out, r.NCount, r.MCount, r.N, r.M)
	case Row:
		sp, err := toInt(r.Space)
		if err != nil {
			return nil, err
		}
		return lattice(out, r.Count, 1, wire.Delta{X: sp}, wire.Delta{})
	case Column:
		sp, err := toInt(r.Space)
		if err != nil {
			return nil, err
		}
		return lattice(out, r.Count, 1, wire.Delta{Y: sp}, wire.Delta{})
	case Diagonal:
		return lattice(out, r.Count, 1, r.Step, wire.Delta{})
	case IrregularRow:
		return walkSpaces(out, r.Spaces, 1, true)
	case IrregularRowGrid:
		return walkSpaces(out, r.Spaces, r.Grid, true)
	case IrregularColumn:
		return walkSpaces(out, r.Spaces, 1, false)
	case IrregularColumnGrid:
		return walkSpaces(out, r.Spaces, r.Grid, false)
	case Arbitrary:
		return walkSteps(out, r.Steps, 1)
	case ArbitraryGrid:
		return walkSteps(out, r.Steps, r.Grid)
	}
	return out, nil
}

// lattice emits n*m points i*a + j*b with i varying fastest.
func lattice(out []wire.Delta, n, m uint64, a, b wire.Delta) ([]wire.Delta, error) {
	for j := uint64(0); j < m; j++ {
		row, err := scaleDelta(b, j)
		if err != nil {
			return nil, err
		}
		for i := uint64(0); i < n; i++ {
			col, err := scaleDelta(a, i)
			if err != nil {
				return nil, err
			}
			p, err := add(row, col)
			if err != nil {
				return nil, err
			}
			out = append(out, p)
		}
	}
	return out, nil
}

func walkSpaces(out []wire.Delta, spaces []uint64, grid uint64, horizontal bool) ([]wire.Delta, error) {
	var cur wire.Delta
	out = append(out, cur)
	for _, s := range spaces {
		v, err := toInt(s)
		if err != nil {
			return nil, err
		}
		step := wire.Delta{Y: v}
		if horizontal {
			step = wire.Delta{X: v}
		}
		if step, err = scaleDelta(step, grid); err != nil {
			return nil, err
		}
		if cur, err = add(cur, step); err != nil {
			return nil, err
		}
		out = append(out, cur)
	}
	return out, nil
}

func walkSteps(out []wire.Delta, steps []wire.Delta, grid uint64) ([]wire.Delta, error) {
	var cur wire.Delta
	out = append(out, cur)
	for _, s := range steps {
		step, err := scaleDelta(s, grid)
		if err != nil {
			return nil, err
		}
		if cur, err = add(cur, step); err != nil {
			return nil, err
		}
		out = append(out, cur)
	}
	return out, nil
}

// Expand returns the absolute position of every instance of r placed at
// origin.
func Expand(r Repetition, origin wire.Delta) ([]wire.Delta, error) {
	offs, err := Offsets(r)
	if err != nil {
		return nil, err
	}
	for i, o := range offs {
		if offs[i], err = add(origin, o); err != nil {
			return nil, err
		}
	}
	return offs, nil
}

// Compact chooses a repetition that reproduces points in order when
// expanded at the returned origin. A single point yields a nil repetition.
// Compaction is best effort; only Expand(Compact(points)) == points is
// guaranteed. Points further apart than an int64 step can span are
// ErrOverflow.
func Compact(points []wire.Delta) (wire.Delta, Repetition, error) {
	if len(points) == 0 {
		return wire.Delta{}, nil, fmt.Errorf("%w: no instances to compact", common.ErrMalformedRecord)
	}
	origin := points[0]
	if len(points) == 1 {
		return origin, nil, nil
	}
	n := uint64(len(points))
	steps := make([]wire.Delta, len(points)-1)
	for i := 1; i < len(points); i++ {
		step, err := sub(points[i], points[i-1])
		if err == nil {
			_, err = sub(points[i], origin)
		}
		if err != nil {
			return wire.Delta{}, nil, fmt.Errorf("%w: instance %d does not fit a repetition", err, i)
		}
		steps[i-1] = step
	}
	if uniform(steps) {
		s := steps[0]
		switch {
		case s.Y == 0 && s.X > 0:
			return origin, Row{Count: n, Space: uint64(s.X)}, nil
		case s.X == 0 && s.Y > 0:
			return origin, Column{Count: n, Space: uint64(s.Y)}, nil
		}
		return origin, Diagonal{Count: n, Step: s}, nil
	}
	if r := twoAxis(points); r != nil {
		return origin, r, nil
	}
	if r := irregular(steps); r != nil {
		return origin, r, nil
	}
	if g := gcdDeltas(steps); g > 1 {
		scaled := make([]wire.Delta, len(steps))
		for i, s := range steps {
			scaled[i] = wire.Delta{X: s.X / int64(g), Y: s.Y / int64(g)}
		}
		return origin, ArbitraryGrid{Grid: g, Steps: scaled}, nil
	}
	return origin, Arbitrary{Steps: steps}, nil
}

func uniform(steps []wire.Delta) bool {
	for _, s := range steps[1:] {
		if s != steps[0] {
			return false
		}
	}
	return true
}

// twoAxis looks for an n by m arrangement with n varying fastest.
func twoAxis(points []wire.Delta) Repetition {
	total := len(points)
	for n := 2; n <= total/2; n++ {
		if total%n != 0 {
			continue
		}
		m := total / n
		a, err := sub(points[1], points[0])
		if err != nil {
			continue
		}
		b, err := sub(points[n], points[0])
		if err != nil {
			continue
		}
		want, err := lattice(nil, uint64(n), uint64(m), a, b)
		if err != nil {
			continue
		}
		match := true
		for i, p := range want {
			if q, err := add(points[0], p); err != nil || q != points[i] {
				match = false
				break
			}
		}
		if !match {
			continue
		}
		if a.Y == 0 && a.X > 0 && b.X == 0 && b.Y > 0 {
			return Grid{XCount: uint64(n), YCount: uint64(m), XSpace: uint64(a.X), YSpace: uint64(b.Y)}
		}
		return Lattice{NCount: uint64(n), MCount: uint64(m), N: a, M: b}
	}
	return nil
}

func irregular(steps []wire.Delta) Repetition {
	rows, cols := true, true
	for _, s := range steps {
		rows = rows && s.Y == 0 && s.X > 0
		cols = cols && s.X == 0 && s.Y > 0
	}
	if !rows && !cols {
		return nil
	}
	spaces := make([]uint64, len(steps))
	var g uint64
	for i, s := range steps {
		v := uint64(s.X)
		if cols {
			v = uint64(s.Y)
		}
		spaces[i] = v
		g = gcd(g, v)
	}
	if g > 1 {
		for i := range spaces {
			spaces[i] /= g
		}
		if rows {
			return IrregularRowGrid{Grid: g, Spaces: spaces}
		}
		return IrregularColumnGrid{Grid: g, Spaces: spaces}
	}
	if rows {
		return IrregularRow{Spaces: spaces}
	}
	return IrregularColumn{Spaces: spaces}
}

func gcd(a, b uint64) uint64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func gcdDeltas(steps []wire.Delta) uint64 {
	var g uint64
	for _, s := range steps {
		x, _ := common.SignMagnitude(s.X)
		y, _ := common.SignMagnitude(s.Y)
		g = gcd(gcd(g, x), y)
	}
	if g > math.MaxInt64 {
		return 1
	}
	return g
}
