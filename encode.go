package oasis

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/rawbytedev/oasis/internal/modal"
	"github.com/rawbytedev/oasis/internal/stream"
	"github.com/rawbytedev/oasis/pkg/cblock"
	"github.com/rawbytedev/oasis/pkg/names"
	"github.com/rawbytedev/oasis/pkg/record"
	"github.com/rawbytedev/oasis/pkg/repetition"
	"github.com/rawbytedev/oasis/pkg/wire"
)

type encoder struct {
	opts  Options
	log   *slog.Logger
	w     *stream.Writer
	l     *Layout
	m     modal.Table
	buf   []byte
	table record.OffsetTable
}

// Write encodes the layout. Records are written in layout order: START,
// layout properties, cells, then the name tables, then END with the offset
// table. Fields equal to the current modal value are omitted.
func (l *Layout) Write(w io.Writer, opts ...Option) error {
	o := NewOptions(opts...)
	if err := o.check(); err != nil {
		return err
	}
	e := &encoder{opts: o, log: o.Logger, w: stream.NewWriter(w), l: l}
	return e.encode()
}

// Encode returns the encoded layout.
func (l *Layout) Encode(opts ...Option) ([]byte, error) {
	var buf bytes.Buffer
	if err := l.Write(&buf, opts...); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (e *encoder) put(r record.Record) error {
	var err error
	if e.buf, err = record.Append(e.buf[:0], r); err != nil {
		return err
	}
	return e.w.Write(e.buf)
}

func (e *encoder) encode() error {
	unit := e.l.Unit
	if u := unit.Float64(); !(u > 0) || math.IsInf(u, 0) {
		return fmt.Errorf("%w: unit %v", ErrMalformedRecord, u)
	}
	if e.opts.NumberEncoding == Compact {
		unit = unit.Canonical()
	}
	if err := e.w.Write([]byte(record.Magic)); err != nil {
		return err
	}
	if err := e.put(&record.Start{Version: record.Version, Unit: unit}); err != nil {
		return err
	}
	if err := e.properties(e.l.Properties); err != nil {
		return err
	}
	for i, c := range e.l.Cells {
		if e.boundary(i, c) {
			if err := e.endBlock(); err != nil {
				return err
			}
			e.w.BeginBlock()
		}
		if err := e.cell(c); err != nil {
			return fmt.Errorf("cell %s: %w", c.Name, err)
		}
	}
	if err := e.endBlock(); err != nil {
		return err
	}
	if err := e.tables(); err != nil {
		return err
	}
	scheme := e.opts.Validation
	if err := e.w.Write(record.AppendEnd(e.buf[:0], &e.table, scheme)); err != nil {
		return err
	}
	if scheme.HasSignature() {
		if err := e.w.Write(record.AppendSignature(nil, e.w.Sum(scheme))); err != nil {
			return err
		}
	}
	return e.w.Flush()
}

func (e *encoder) boundary(i int, c *Cell) bool {
	switch e.opts.Compression {
	case CompressPerCell:
		return true
	case CompressCustom:
		return e.opts.BlockBoundary != nil && e.opts.BlockBoundary(i, c)
	}
	return false
}

func (e *encoder) endBlock() error {
	if !e.w.InBlock() {
		return nil
	}
	raw := e.w.EndBlock()
	data, err := cblock.Compress(e.opts.CompressionScheme, e.opts.CompressionLevel, raw)
	if err != nil {
		return err
	}
	e.log.Debug("cblock", "offset", e.w.Offset(), "scheme", e.opts.CompressionScheme, "size", len(raw), "compressed", len(data))
	return e.put(&record.CBlock{Scheme: e.opts.CompressionScheme, Uncompressed: uint64(len(raw)), Data: data})
}

func (e *encoder) cell(c *Cell) error {
	e.m.Reset()
	if err := e.put(&record.Cell{Name: c.Name}); err != nil {
		return err
	}
	e.log.Debug("cell", "name", c.Name.String(), "elements", len(c.Elements))
	if err := e.properties(c.Properties); err != nil {
		return err
	}
	for _, el := range c.Elements {
		rec, err := e.element(el)
		if err != nil {
			return err
		}
		if err := e.put(rec); err != nil {
			return err
		}
		if err := e.properties(el.Props()); err != nil {
			return err
		}
	}
	return nil
}

func (e *encoder) tables() error {
	for _, k := range names.Kinds {
		start := e.w.Offset()
		n := 0
		if k == names.LayerName {
			for _, ly := range e.l.LayerNames {
				e.m.Reset()
				rec := &record.LayerName{Name: ly.Name, Text: ly.Text, Layers: ly.Layers, Types: ly.Types}
				if err := e.put(rec); err != nil {
					return err
				}
				if err := e.properties(ly.Properties); err != nil {
					return err
				}
			}
			n = len(e.l.LayerNames)
		} else if t := *e.l.table(k); t != nil {
			for _, en := range t.Entries() {
				e.m.Reset()
				if err := e.put(nameRecord(k, en)); err != nil {
					return err
				}
				if err := e.properties(en.Properties); err != nil {
					return err
				}
			}
			n = t.Len()
		}
		if n > 0 {
			e.table.Entries[k] = record.TableOffset{Strict: true, Offset: start}
		}
	}
	return nil
}

func nameRecord(k names.Kind, en *names.Entry) record.Record {
	var ref *uint64
	if en.Explicit {
		r := en.Ref
		ref = &r
	}
	if k == names.XName {
		return &record.XName{Attribute: en.Attribute, Value: en.Value, Ref: ref}
	}
	return &record.Name{Table: k, Value: en.Value, Ref: ref}
}

func (e *encoder) properties(props []Property) error {
	for _, p := range props {
		name, hasName := e.m.PropertyName.Peek()
		vals, hasVals := e.m.PropertyValues.Peek()
		std, hasStd := e.m.PropertyStandard.Peek()
		sameName := hasName && name == p.Name
		sameVals := hasVals && wire.ValuesEqual(vals, p.Values)
		if sameName && sameVals && hasStd && std == p.Standard {
			if err := e.put(&record.Property{Repeat: true}); err != nil {
				return err
			}
			continue
		}
		r := &record.Property{Standard: p.Standard}
		if !sameName {
			n := p.Name
			r.Name = &n
			e.m.PropertyName.Set(n)
		}
		if sameVals {
			r.ReuseValues = true
		} else {
			r.Values = e.values(p.Values)
			e.m.PropertyValues.Set(p.Values)
		}
		e.m.PropertyStandard.Set(p.Standard)
		if err := e.put(r); err != nil {
			return err
		}
	}
	return nil
}

func (e *encoder) values(vs []wire.PropValue) []wire.PropValue {
	if e.opts.NumberEncoding != Compact {
		return vs
	}
	out := make([]wire.PropValue, len(vs))
	for i, v := range vs {
		if rv, ok := v.(wire.RealValue); ok {
			v = wire.RealValue{Real: rv.Real.Canonical()}
		}
		out[i] = v
	}
	return out
}

func (e *encoder) real(r *wire.Real) *wire.Real {
	if r == nil || e.opts.NumberEncoding != Compact {
		return r
	}
	c := r.Canonical()
	return &c
}

func (e *encoder) points(pl wire.PointList, polygon bool) wire.PointList {
	if e.opts.NumberEncoding == Compact || !pl.Kind.Fits(pl.Points, polygon) {
		return pl.Compact(polygon)
	}
	return pl
}

// omitPoints reports whether pl matches the modal point list, recording it
// otherwise.
func omitPoints(s *modal.Slot[wire.PointList], pl wire.PointList) bool {
	if cur, ok := s.Peek(); ok && cur.Equal(pl) {
		return true
	}
	s.Set(pl)
	return false
}

// opt returns nil when v can be omitted.
func opt[T comparable](s *modal.Slot[T], v T) *T {
	if modal.Omit(s, v) {
		return nil
	}
	return &v
}

// extension resolves the zero Extension to a flush end. Only explicit
// extensions carry a value.
func extension(x record.Extension) (record.Extension, error) {
	switch x.Scheme {
	case record.ExtReuse:
		if x.Value != 0 {
			return x, fmt.Errorf("%w: extension value %d without the explicit scheme", ErrMalformedRecord, x.Value)
		}
		return record.Extension{Scheme: record.ExtFlush}, nil
	case record.ExtFlush, record.ExtHalfWidth:
		return record.Extension{Scheme: x.Scheme}, nil
	case record.ExtExplicit:
		return x, nil
	}
	return x, fmt.Errorf("%w: unknown extension scheme %d", ErrMalformedRecord, x.Scheme)
}

func coord(modalv *int64, v int64) *int64 {
	if *modalv == v {
		return nil
	}
	*modalv = v
	return &v
}

func (e *encoder) repetition(r repetition.Repetition) (repetition.Repetition, error) {
	switch r.(type) {
	case nil:
		return nil, nil
	case repetition.Reuse:
		if !e.m.Repetition.IsSet() {
			return nil, fmt.Errorf("%w: repetition reuse with no earlier repetition", ErrUnsetModalField)
		}
		return r, nil
	}
	if cur, ok := e.m.Repetition.Peek(); ok && repetition.Equal(cur, r) {
		return repetition.Reuse{}, nil
	}
	e.m.Repetition.Set(r)
	return r, nil
}

func (e *encoder) geometry(g *Geometry, text bool) (record.Geometry, error) {
	layer, datatype, x, y := &e.m.Layer, &e.m.Datatype, &e.m.GeometryX, &e.m.GeometryY
	if text {
		layer, datatype, x, y = &e.m.TextLayer, &e.m.TextType, &e.m.TextX, &e.m.TextY
	}
	out := record.Geometry{
		Layer:    opt(layer, g.Layer),
		Datatype: opt(datatype, g.Datatype),
		X:        coord(x, g.X),
		Y:        coord(y, g.Y),
	}
	var err error
	out.Rep, err = e.repetition(g.Repetition)
	return out, err
}

func (e *encoder) element(el Element) (record.Record, error) {
	switch el := el.(type) {
	case *Placement:
		return e.placement(el)
	case *Text:
		g, err := e.geometry(&el.Geometry, true)
		if err != nil {
			return nil, err
		}
		return &record.Text{String: opt(&e.m.TextString, el.String), Geometry: g}, nil
	case *Rectangle:
		g, err := e.geometry(&el.Geometry, false)
		if err != nil {
			return nil, err
		}
		r := &record.Rectangle{Square: el.W == el.H, W: opt(&e.m.GeometryW, el.W), Geometry: g}
		if r.Square {
			e.m.GeometryH.Set(el.W)
		} else {
			r.H = opt(&e.m.GeometryH, el.H)
		}
		return r, nil
	case *Polygon:
		g, err := e.geometry(&el.Geometry, false)
		if err != nil {
			return nil, err
		}
		r := &record.Polygon{Geometry: g}
		if pl := e.points(el.Points, true); !omitPoints(&e.m.PolygonPoints, pl) {
			r.Points = &pl
		}
		return r, nil
	case *Path:
		g, err := e.geometry(&el.Geometry, false)
		if err != nil {
			return nil, err
		}
		start, err := extension(el.Start)
		if err != nil {
			return nil, fmt.Errorf("path start: %w", err)
		}
		end, err := extension(el.End)
		if err != nil {
			return nil, fmt.Errorf("path end: %w", err)
		}
		r := &record.Path{
			HalfWidth: opt(&e.m.PathHalfWidth, el.HalfWidth),
			Start:     opt(&e.m.PathStart, start),
			End:       opt(&e.m.PathEnd, end),
			Geometry:  g,
		}
		if pl := e.points(el.Points, false); !omitPoints(&e.m.PathPoints, pl) {
			r.Points = &pl
		}
		return r, nil
	case *Trapezoid:
		g, err := e.geometry(&el.Geometry, false)
		if err != nil {
			return nil, err
		}
		return &record.Trapezoid{
			Vertical: el.Vertical,
			W:        opt(&e.m.GeometryW, el.W),
			H:        opt(&e.m.GeometryH, el.H),
			DeltaA:   el.DeltaA,
			DeltaB:   el.DeltaB,
			Geometry: g,
		}, nil
	case *CTrapezoid:
		return e.ctrapezoid(el)
	case *Circle:
		g, err := e.geometry(&el.Geometry, false)
		if err != nil {
			return nil, err
		}
		return &record.Circle{Radius: opt(&e.m.CircleRadius, el.Radius), Geometry: g}, nil
	case *XElement:
		return &record.XElement{Attribute: el.Attribute, Data: el.Data}, nil
	case *XGeometry:
		g, err := e.geometry(&el.Geometry, false)
		if err != nil {
			return nil, err
		}
		return &record.XGeometry{Attribute: el.Attribute, Data: el.Data, Geometry: g}, nil
	}
	return nil, fmt.Errorf("%w: cannot encode %T", ErrMalformedRecord, el)
}

func (e *encoder) placement(p *Placement) (*record.Placement, error) {
	r := &record.Placement{
		Name:  opt(&e.m.PlacementCell, p.Cell),
		Flip:  p.Flip,
		Mag:   e.real(p.Magnification),
		Angle: e.real(p.Angle),
		X:     coord(&e.m.PlacementX, p.X),
		Y:     coord(&e.m.PlacementY, p.Y),
	}
	if e.opts.NumberEncoding == Compact && r.Mag != nil && r.Mag.Float64() == 1 {
		r.Mag = nil
	}
	var err error
	r.Rep, err = e.repetition(p.Repetition)
	return r, err
}

func (e *encoder) ctrapezoid(c *CTrapezoid) (*record.CTrapezoid, error) {
	if c.Type > record.MaxCTrapezoidType {
		return nil, fmt.Errorf("%w: ctrapezoid type %d", ErrMalformedRecord, c.Type)
	}
	g, err := e.geometry(&c.Geometry, false)
	if err != nil {
		return nil, err
	}
	r := &record.CTrapezoid{Type: opt(&e.m.CTrapezoidType, c.Type), Geometry: g}
	switch implied(c.Type) {
	case 'h':
		r.W = opt(&e.m.GeometryW, c.W)
	case 'w':
		r.H = opt(&e.m.GeometryH, c.H)
	default:
		r.W = opt(&e.m.GeometryW, c.W)
		r.H = opt(&e.m.GeometryH, c.H)
	}
	return r, nil
}
