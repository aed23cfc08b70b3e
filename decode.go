package oasis

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/rawbytedev/oasis/internal/modal"
	"github.com/rawbytedev/oasis/internal/stream"
	"github.com/rawbytedev/oasis/pkg/cblock"
	"github.com/rawbytedev/oasis/pkg/names"
	"github.com/rawbytedev/oasis/pkg/record"
	"github.com/rawbytedev/oasis/pkg/repetition"
	"github.com/rawbytedev/oasis/pkg/validation"
)

// span tracks where the records of one name table were seen.
type span struct {
	seen   bool
	first  uint64
	closed bool
	broken bool
}

type decoder struct {
	opts Options
	log  *slog.Logger
	r    *stream.Reader
	m    modal.Table

	layout *Layout
	cell   *Cell
	target *[]Property

	tableInEnd bool
	spans      [len(names.Kinds)]span
	current    int // index into spans of the table being read, or -1
}

func newDecoder(o Options, r *stream.Reader) *decoder {
	l := &Layout{}
	l.initTables()
	return &decoder{opts: o, log: o.Logger, r: r, layout: l, current: -1}
}

// Open decodes a complete OASIS file. When only the END signature is wrong
// the layout is returned together with a *ValidationError.
func Open(r io.Reader, opts ...Option) (*Layout, error) {
	d := newDecoder(NewOptions(opts...), stream.NewReader(r))
	return d.decode()
}

// Decode decodes a complete OASIS file held in memory.
func Decode(data []byte, opts ...Option) (*Layout, error) {
	return Open(bytes.NewReader(data), opts...)
}

// DecodeCell decodes a fragment holding exactly one CELL record and its
// body, as cut out by the index package. References stay unresolved.
func DecodeCell(data []byte, opts ...Option) (*Cell, error) {
	d := newDecoder(NewOptions(opts...), stream.NewReader(bytes.NewReader(data)))
	for {
		if d.r.BlockDone() {
			d.r.PopBlock()
		}
		if !d.r.InBlock() && d.r.AtEOF() {
			break
		}
		if err := d.next(); err != nil {
			return nil, err
		}
	}
	if len(d.layout.Cells) != 1 {
		return nil, fmt.Errorf("%w: fragment holds %d cells", ErrMalformedRecord, len(d.layout.Cells))
	}
	return d.layout.Cells[0], nil
}

func (d *decoder) decode() (*Layout, error) {
	magic, err := d.r.ReadN(len(record.Magic))
	if err != nil || string(magic) != record.Magic {
		return nil, fmt.Errorf("%w: missing %q", ErrMalformedHeader, record.Magic)
	}
	id, err := record.ReadID(d.r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedHeader, err)
	}
	if id != record.IDStart {
		return nil, fmt.Errorf("%w: first record is %s", ErrMalformedHeader, id)
	}
	rec, err := record.Read(d.r, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedHeader, err)
	}
	st := rec.(*record.Start)
	d.layout.Version = st.Version
	d.layout.Unit = st.Unit
	d.layout.Table = st.Table
	d.tableInEnd = st.Table == nil
	d.target = &d.layout.Properties
	d.log.Debug("start", "version", st.Version, "unit", st.Unit.Float64(), "table_in_end", d.tableInEnd)

	for {
		if d.r.BlockDone() {
			d.log.Debug("cblock pop", "offset", d.r.BlockOffset())
			d.r.PopBlock()
		}
		if done, err := d.end(); done || err != nil {
			return d.finish(err)
		}
	}
}

// end reads the next record, reporting true once END has been consumed.
func (d *decoder) end() (bool, error) {
	pos := d.r.Position()
	at := d.recordOffset()
	id, err := record.ReadID(d.r)
	if err != nil {
		return false, fmt.Errorf("%s: %w", pos, err)
	}
	if id != record.IDEnd {
		return false, d.apply(id, pos, at)
	}
	if d.r.InBlock() {
		return false, fmt.Errorf("%s: %w: END inside CBLOCK", pos, ErrMalformedRecord)
	}
	return true, d.readEnd(pos)
}

// next reads and applies one record, END excluded.
func (d *decoder) next() error {
	pos := d.r.Position()
	at := d.recordOffset()
	id, err := record.ReadID(d.r)
	if err != nil {
		return fmt.Errorf("%s: %w", pos, err)
	}
	if id == record.IDEnd {
		return fmt.Errorf("%s: %w: END in a cell fragment", pos, ErrMalformedRecord)
	}
	return d.apply(id, pos, at)
}

func (d *decoder) recordOffset() uint64 {
	if d.r.InBlock() {
		return d.r.BlockOffset()
	}
	return d.r.Offset()
}

func (d *decoder) apply(id record.ID, pos string, at uint64) error {
	rec, err := record.Read(d.r, id)
	if err != nil {
		return fmt.Errorf("%s: %w", pos, err)
	}
	d.log.Debug("record", "record", id, "offset", at)
	d.track(rec, at)
	if err := d.applyRecord(rec, at); err != nil {
		return fmt.Errorf("%s: %s: %w", pos, id, err)
	}
	return nil
}

func (d *decoder) readEnd(pos string) error {
	end, err := record.ReadEnd(d.r, d.tableInEnd)
	if err != nil {
		return fmt.Errorf("%s: %w", pos, err)
	}
	computed := d.r.Sum(end.Scheme)
	if end.Scheme.HasSignature() {
		if end.Signature, err = record.ReadSignature(d.r); err != nil {
			return fmt.Errorf("%s: %w", pos, err)
		}
	}
	if d.tableInEnd {
		d.layout.Table = end.Table
	}
	d.layout.Validation = end.Scheme
	d.layout.Signature = end.Signature
	if err := d.checkTables(); err != nil {
		return err
	}
	if err := validation.Check(end.Scheme, end.Signature, computed); err != nil {
		d.log.Warn("validation mismatch", "scheme", end.Scheme, "stored", end.Signature, "computed", computed)
		return err
	}
	return nil
}

// finish keeps the layout when the only problem is the signature.
func (d *decoder) finish(err error) (*Layout, error) {
	if err == nil {
		return d.layout, nil
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		return d.layout, err
	}
	return nil, err
}

func tableOf(rec record.Record) (names.Kind, bool) {
	switch r := rec.(type) {
	case *record.Name:
		return r.Table, true
	case *record.LayerName:
		return names.LayerName, true
	case *record.XName:
		return names.XName, true
	}
	return 0, false
}

// track follows which name tables are contiguous for the strict-table
// check. Properties, padding and CBLOCKs do not interrupt a table.
func (d *decoder) track(rec record.Record, at uint64) {
	switch rec.(type) {
	case *record.Property, record.Pad, *record.CBlock:
		return
	}
	k, ok := tableOf(rec)
	if d.current >= 0 && (!ok || int(k) != d.current) {
		d.spans[d.current].closed = true
		d.current = -1
	}
	if !ok {
		return
	}
	s := &d.spans[k]
	if !s.seen {
		s.seen, s.first = true, at
	} else if s.closed {
		s.broken = true
	}
	d.current = int(k)
}

func (d *decoder) checkTables() error {
	if d.layout.Table == nil {
		return nil
	}
	for _, k := range names.Kinds {
		e := d.layout.Table.Get(k)
		if !e.Strict {
			continue
		}
		s := d.spans[k]
		if !s.broken && ((e.Offset == 0 && !s.seen) || (s.seen && e.Offset == s.first)) {
			continue
		}
		if d.opts.StrictTables {
			return fmt.Errorf("%w: strict %s table at offset %d does not match its records", ErrMalformedRecord, k, e.Offset)
		}
		d.log.Warn("offset table mismatch", "table", k, "offset", e.Offset, "first", s.first, "contiguous", !s.broken)
	}
	return nil
}

func (d *decoder) applyRecord(rec record.Record, at uint64) error {
	switch r := rec.(type) {
	case record.Pad:
		return nil
	case *record.Start:
		return fmt.Errorf("%w: second START", ErrMalformedRecord)
	case *record.CBlock:
		return d.pushBlock(r, at)
	case *record.Name:
		d.endCell()
		e, err := (*d.layout.table(r.Table)).Insert(entry(r.Value, 0, r.Ref))
		if err != nil {
			return err
		}
		d.target = &e.Properties
	case *record.XName:
		d.endCell()
		e, err := d.layout.XNames.Insert(entry(r.Value, r.Attribute, r.Ref))
		if err != nil {
			return err
		}
		d.target = &e.Properties
	case *record.LayerName:
		d.endCell()
		l := &names.Layer{Name: r.Name, Text: r.Text, Layers: r.Layers, Types: r.Types}
		d.layout.LayerNames = append(d.layout.LayerNames, l)
		d.target = &l.Properties
	case *record.Cell:
		d.m.Reset()
		d.cell = &Cell{Name: r.Name}
		d.layout.Cells = append(d.layout.Cells, d.cell)
		d.target = &d.cell.Properties
	case record.XYMode:
		d.m.Relative = r.Relative
	case *record.Property:
		return d.property(r)
	default:
		if d.cell == nil {
			return fmt.Errorf("%w: element outside a cell", ErrMalformedRecord)
		}
		e, err := d.element(rec)
		if err != nil {
			return err
		}
		d.cell.Elements = append(d.cell.Elements, e)
		d.target = e.properties()
	}
	return nil
}

func entry(value string, attr uint64, ref *uint64) names.Entry {
	e := names.Entry{Value: value, Attribute: attr}
	if ref != nil {
		e.Ref, e.Explicit = *ref, true
	}
	return e
}

// endCell closes the current cell; name records end a cell body.
func (d *decoder) endCell() {
	d.cell = nil
	d.m.Reset()
}

func (d *decoder) pushBlock(b *record.CBlock, at uint64) error {
	if !b.Scheme.Standard() && !d.opts.Extensions {
		return fmt.Errorf("%w: CBLOCK scheme %s", ErrCompression, b.Scheme)
	}
	data, err := cblock.Decompress(b.Scheme, b.Data, b.Uncompressed, d.opts.MaxBlockSize)
	if err != nil {
		return err
	}
	if err := d.r.PushBlock(data, at); err != nil {
		return err
	}
	d.log.Debug("cblock push", "offset", at, "scheme", b.Scheme, "compressed", len(b.Data), "size", len(data))
	return nil
}

func (d *decoder) property(r *record.Property) error {
	if d.target == nil {
		return fmt.Errorf("%w: property with nothing to attach to", ErrMalformedRecord)
	}
	var p Property
	var err error
	if r.Repeat {
		if p.Name, err = d.m.PropertyName.Get("property name"); err != nil {
			return err
		}
		if p.Values, err = d.m.PropertyValues.Get("property values"); err != nil {
			return err
		}
		if p.Standard, err = d.m.PropertyStandard.Get("property standard flag"); err != nil {
			return err
		}
	} else {
		if p.Name, err = modal.Choose(&d.m.PropertyName, r.Name, "property name"); err != nil {
			return err
		}
		if r.ReuseValues {
			if p.Values, err = d.m.PropertyValues.Get("property values"); err != nil {
				return err
			}
		} else {
			p.Values = r.Values
			d.m.PropertyValues.Set(r.Values)
		}
		p.Standard = r.Standard
		d.m.PropertyStandard.Set(r.Standard)
	}
	*d.target = append(*d.target, p)
	return nil
}

func (d *decoder) repetition(r repetition.Repetition) (repetition.Repetition, error) {
	switch r.(type) {
	case nil:
		return nil, nil
	case repetition.Reuse:
		return d.m.Repetition.Get("repetition")
	}
	d.m.Repetition.Set(r)
	return r, nil
}

// geometry merges the shared fields with the geometry modal variables, or
// the text ones.
func (d *decoder) geometry(g *record.Geometry, text bool) (Geometry, error) {
	layer, datatype, x, y := &d.m.Layer, &d.m.Datatype, &d.m.GeometryX, &d.m.GeometryY
	ln, dn := "layer", "datatype"
	if text {
		layer, datatype, x, y = &d.m.TextLayer, &d.m.TextType, &d.m.TextX, &d.m.TextY
		ln, dn = "textlayer", "texttype"
	}
	var out Geometry
	var err error
	if out.Layer, err = modal.Choose(layer, g.Layer, ln); err != nil {
		return out, err
	}
	if out.Datatype, err = modal.Choose(datatype, g.Datatype, dn); err != nil {
		return out, err
	}
	if out.X, err = d.m.Coord(g.X, x); err != nil {
		return out, err
	}
	if out.Y, err = d.m.Coord(g.Y, y); err != nil {
		return out, err
	}
	out.Repetition, err = d.repetition(g.Rep)
	return out, err
}

func (d *decoder) element(rec record.Record) (Element, error) {
	switch r := rec.(type) {
	case *record.Placement:
		return d.placement(r)
	case *record.Text:
		return d.text(r)
	case *record.Rectangle:
		return d.rectangle(r)
	case *record.Polygon:
		g, err := d.geometry(&r.Geometry, false)
		if err != nil {
			return nil, err
		}
		pts, err := modal.Choose(&d.m.PolygonPoints, r.Points, "polygon point list")
		if err != nil {
			return nil, err
		}
		return &Polygon{Points: pts, Geometry: g}, nil
	case *record.Path:
		return d.path(r)
	case *record.Trapezoid:
		g, err := d.geometry(&r.Geometry, false)
		if err != nil {
			return nil, err
		}
		t := &Trapezoid{Vertical: r.Vertical, DeltaA: r.DeltaA, DeltaB: r.DeltaB, Geometry: g}
		if t.W, err = modal.Choose(&d.m.GeometryW, r.W, "width"); err != nil {
			return nil, err
		}
		if t.H, err = modal.Choose(&d.m.GeometryH, r.H, "height"); err != nil {
			return nil, err
		}
		return t, nil
	case *record.CTrapezoid:
		return d.ctrapezoid(r)
	case *record.Circle:
		g, err := d.geometry(&r.Geometry, false)
		if err != nil {
			return nil, err
		}
		radius, err := modal.Choose(&d.m.CircleRadius, r.Radius, "circle radius")
		if err != nil {
			return nil, err
		}
		return &Circle{Radius: radius, Geometry: g}, nil
	case *record.XElement:
		return &XElement{Attribute: r.Attribute, Data: r.Data}, nil
	case *record.XGeometry:
		g, err := d.geometry(&r.Geometry, false)
		if err != nil {
			return nil, err
		}
		return &XGeometry{Attribute: r.Attribute, Data: r.Data, Geometry: g}, nil
	}
	return nil, fmt.Errorf("%w: unexpected %s", ErrMalformedRecord, rec.ID())
}

func (d *decoder) placement(r *record.Placement) (*Placement, error) {
	p := &Placement{Flip: r.Flip, Magnification: r.Mag, Angle: r.Angle}
	var err error
	if p.Cell, err = modal.Choose(&d.m.PlacementCell, r.Name, "placement cell"); err != nil {
		return nil, err
	}
	if p.X, err = d.m.Coord(r.X, &d.m.PlacementX); err != nil {
		return nil, err
	}
	if p.Y, err = d.m.Coord(r.Y, &d.m.PlacementY); err != nil {
		return nil, err
	}
	if p.Repetition, err = d.repetition(r.Rep); err != nil {
		return nil, err
	}
	return p, nil
}

func (d *decoder) text(r *record.Text) (*Text, error) {
	s, err := modal.Choose(&d.m.TextString, r.String, "text string")
	if err != nil {
		return nil, err
	}
	g, err := d.geometry(&r.Geometry, true)
	if err != nil {
		return nil, err
	}
	return &Text{String: s, Geometry: g}, nil
}

func (d *decoder) rectangle(r *record.Rectangle) (*Rectangle, error) {
	g, err := d.geometry(&r.Geometry, false)
	if err != nil {
		return nil, err
	}
	rect := &Rectangle{Geometry: g}
	if rect.W, err = modal.Choose(&d.m.GeometryW, r.W, "width"); err != nil {
		return nil, err
	}
	if r.Square {
		rect.H = rect.W
		d.m.GeometryH.Set(rect.W)
	} else if rect.H, err = modal.Choose(&d.m.GeometryH, r.H, "height"); err != nil {
		return nil, err
	}
	return rect, nil
}

func (d *decoder) path(r *record.Path) (*Path, error) {
	g, err := d.geometry(&r.Geometry, false)
	if err != nil {
		return nil, err
	}
	p := &Path{Geometry: g}
	if p.HalfWidth, err = modal.Choose(&d.m.PathHalfWidth, r.HalfWidth, "path half-width"); err != nil {
		return nil, err
	}
	if p.Start, err = modal.Choose(&d.m.PathStart, r.Start, "path start extension"); err != nil {
		return nil, err
	}
	if p.End, err = modal.Choose(&d.m.PathEnd, r.End, "path end extension"); err != nil {
		return nil, err
	}
	if p.Points, err = modal.Choose(&d.m.PathPoints, r.Points, "path point list"); err != nil {
		return nil, err
	}
	return p, nil
}

func (d *decoder) ctrapezoid(r *record.CTrapezoid) (*CTrapezoid, error) {
	g, err := d.geometry(&r.Geometry, false)
	if err != nil {
		return nil, err
	}
	c := &CTrapezoid{Geometry: g}
	if c.Type, err = modal.Choose(&d.m.CTrapezoidType, r.Type, "ctrapezoid type"); err != nil {
		return nil, err
	}
	switch implied(c.Type) {
	case 'h':
		if r.H != nil {
			return nil, fmt.Errorf("%w: ctrapezoid type %d with explicit height", ErrMalformedRecord, c.Type)
		}
		if c.W, err = modal.Choose(&d.m.GeometryW, r.W, "width"); err != nil {
			return nil, err
		}
	case 'w':
		if r.W != nil {
			return nil, fmt.Errorf("%w: ctrapezoid type %d with explicit width", ErrMalformedRecord, c.Type)
		}
		if c.H, err = modal.Choose(&d.m.GeometryH, r.H, "height"); err != nil {
			return nil, err
		}
	default:
		if c.W, err = modal.Choose(&d.m.GeometryW, r.W, "width"); err != nil {
			return nil, err
		}
		if c.H, err = modal.Choose(&d.m.GeometryH, r.H, "height"); err != nil {
			return nil, err
		}
		return c, nil
	}
	if c.W, c.H, err = impliedSize(c.Type, c.W, c.H); err != nil {
		return nil, err
	}
	return c, nil
}
