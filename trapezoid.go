package oasis

import (
	"fmt"
	"math"

	"github.com/rawbytedev/oasis/pkg/wire"
)

func dims(w, h uint64) (int64, int64, error) {
	if w > math.MaxInt64 || h > math.MaxInt64 {
		return 0, 0, fmt.Errorf("%w: trapezoid %dx%d", ErrOverflow, w, h)
	}
	return int64(w), int64(h), nil
}

func offset(pts []wire.Delta, x, y int64) []wire.Delta {
	for i := range pts {
		pts[i] = pts[i].Add(wire.Delta{X: x, Y: y})
	}
	return pts
}

// Vertices returns the corners of the trapezoid counter-clockwise from the
// bottom-left, in absolute coordinates.
func (t *Trapezoid) Vertices() ([]wire.Delta, error) {
	w, h, err := dims(t.W, t.H)
	if err != nil {
		return nil, err
	}
	a, b := t.DeltaA, t.DeltaB
	var pts []wire.Delta
	if t.Vertical {
		pts = []wire.Delta{
			{X: 0, Y: max(0, -a)},
			{X: w, Y: max(0, a)},
			{X: w, Y: h - max(0, b)},
			{X: 0, Y: h + min(0, b)},
		}
		if pts[3].Y < pts[0].Y || pts[2].Y < pts[1].Y {
			return nil, fmt.Errorf("%w: vertical trapezoid %dx%d with deltas %d, %d", ErrMalformedRecord, w, h, a, b)
		}
	} else {
		pts = []wire.Delta{
			{X: max(0, a), Y: 0},
			{X: w - max(0, b), Y: 0},
			{X: w + min(0, b), Y: h},
			{X: max(0, -a), Y: h},
		}
		if pts[1].X < pts[0].X || pts[2].X < pts[3].X {
			return nil, fmt.Errorf("%w: trapezoid %dx%d with deltas %d, %d", ErrMalformedRecord, w, h, a, b)
		}
	}
	return offset(pts, t.X, t.Y), nil
}

// ctrapezoid holds {xw, xh, yw, yh} per vertex: x = xw*w + xh*h and
// y = yw*w + yh*h.
var ctrapezoid = [...][][4]int64{
	{{0, 0, 0, 0}, {0, 0, 0, 1}, {1, -1, 0, 1}, {1, 0, 0, 0}},
	{{0, 0, 0, 0}, {0, 0, 0, 1}, {1, 0, 0, 1}, {1, -1, 0, 0}},
	{{0, 0, 0, 0}, {0, 1, 0, 1}, {1, 0, 0, 1}, {1, 0, 0, 0}},
	{{0, 1, 0, 0}, {0, 0, 0, 1}, {1, 0, 0, 1}, {1, 0, 0, 0}},
	{{0, 0, 0, 0}, {0, 1, 0, 1}, {1, -1, 0, 1}, {1, 0, 0, 0}},
	{{0, 1, 0, 0}, {0, 0, 0, 1}, {1, 0, 0, 1}, {1, -1, 0, 0}},
	{{0, 0, 0, 0}, {0, 1, 0, 1}, {1, 0, 0, 1}, {1, -1, 0, 0}},
	{{0, 1, 0, 0}, {0, 0, 0, 1}, {1, -1, 0, 1}, {1, 0, 0, 0}},
	{{0, 0, 0, 0}, {0, 0, 0, 1}, {1, 0, -1, 1}, {1, 0, 0, 0}},
	{{0, 0, 0, 0}, {0, 0, -1, 1}, {1, 0, 0, 1}, {1, 0, 0, 0}},
	{{0, 0, 0, 0}, {0, 0, 0, 1}, {1, 0, 0, 1}, {1, 0, 1, 0}},
	{{0, 0, 1, 0}, {0, 0, 0, 1}, {1, 0, 0, 1}, {1, 0, 0, 0}},
	{{0, 0, 0, 0}, {0, 0, 0, 1}, {1, 0, -1, 1}, {1, 0, 1, 0}},
	{{0, 0, 1, 0}, {0, 0, -1, 1}, {1, 0, 0, 1}, {1, 0, 0, 0}},
	{{0, 0, 0, 0}, {0, 0, -1, 1}, {1, 0, 0, 1}, {1, 0, 1, 0}},
	{{0, 0, 1, 0}, {0, 0, 0, 1}, {1, 0, -1, 1}, {1, 0, 0, 0}},
	{{0, 0, 0, 0}, {0, 0, 1, 0}, {1, 0, 0, 0}},
	{{0, 0, 0, 0}, {0, 0, 1, 0}, {1, 0, 1, 0}},
	{{0, 0, 0, 0}, {1, 0, 1, 0}, {1, 0, 0, 0}},
	{{0, 0, 1, 0}, {1, 0, 1, 0}, {1, 0, 0, 0}},
	{{0, 0, 0, 0}, {0, 1, 0, 1}, {0, 2, 0, 0}},
	{{0, 0, 0, 1}, {0, 2, 0, 1}, {0, 1, 0, 0}},
	{{0, 0, 0, 0}, {0, 0, 2, 0}, {1, 0, 1, 0}},
	{{1, 0, 0, 0}, {0, 0, 1, 0}, {1, 0, 2, 0}},
	{{0, 0, 0, 0}, {0, 0, 0, 1}, {1, 0, 0, 1}, {1, 0, 0, 0}},
	{{0, 0, 0, 0}, {0, 0, 0, 1}, {1, 0, 0, 1}, {1, 0, 0, 0}},
}

// fits checks the width/height ratio the slanted types need.
func (c *CTrapezoid) fits(w, h int64) bool {
	switch {
	case c.Type <= 3:
		return w >= h
	case c.Type <= 7:
		return w >= 2*h
	case c.Type <= 11:
		return w <= h
	case c.Type <= 15:
		return 2*w <= h
	}
	return true
}

// Vertices returns the corners of the shape in absolute coordinates.
func (c *CTrapezoid) Vertices() ([]wire.Delta, error) {
	if int(c.Type) >= len(ctrapezoid) {
		return nil, fmt.Errorf("%w: ctrapezoid type %d", ErrMalformedRecord, c.Type)
	}
	w, h, err := dims(c.W, c.H)
	if err != nil {
		return nil, err
	}
	if w > math.MaxInt64/2 || h > math.MaxInt64/2 {
		return nil, fmt.Errorf("%w: ctrapezoid %dx%d", ErrOverflow, w, h)
	}
	if !c.fits(w, h) {
		return nil, fmt.Errorf("%w: ctrapezoid type %d cannot be %dx%d", ErrMalformedRecord, c.Type, w, h)
	}
	coef := ctrapezoid[c.Type]
	pts := make([]wire.Delta, len(coef))
	for i, k := range coef {
		pts[i] = wire.Delta{X: k[0]*w + k[1]*h, Y: k[2]*w + k[3]*h}
	}
	return offset(pts, c.X, c.Y), nil
}
