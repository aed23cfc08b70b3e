package record

import (
	"math"
	"testing"

	"github.com/rawbytedev/oasis/internal/common"
	"github.com/rawbytedev/oasis/pkg/cblock"
	"github.com/rawbytedev/oasis/pkg/names"
	"github.com/rawbytedev/oasis/pkg/repetition"
	"github.com/rawbytedev/oasis/pkg/validation"
	"github.com/rawbytedev/oasis/pkg/wire"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func readOne(t *testing.T, b []byte) Record {
	t.Helper()
	s := wire.NewBytesSource(b)
	id, err := ReadID(s)
	require.NoError(t, err)
	r, err := Read(s, id)
	require.NoError(t, err)
	require.Zero(t, s.Len(), "trailing bytes after %s", id)
	return r
}

var samples = []Record{
	Pad{},
	&Start{Version: Version, Unit: wire.IntReal(1000)},
	&Start{Version: Version, Unit: wire.Real{Kind: wire.RealPosReciprocal, Den: 4}, Table: &OffsetTable{}},
	&Name{Table: names.CellName, Value: "TOP"},
	&Name{Table: names.TextString, Value: "hello world", Ref: ptr(uint64(3))},
	&Name{Table: names.PropName, Value: "S_TOP_CELL"},
	&Name{Table: names.PropString, Value: "\x00\xff", Ref: ptr(uint64(0))},
	&LayerName{Name: "M1", Layers: wire.Interval{Kind: wire.IntervalExact, Lo: 1, Hi: 1}, Types: wire.Interval{Kind: wire.IntervalAll}},
	&LayerName{Name: "TXT", Text: true, Layers: wire.Interval{Kind: wire.IntervalRange, Lo: 3, Hi: 9}, Types: wire.Interval{Kind: wire.IntervalFrom, Lo: 2}},
	&Cell{Name: wire.Named("TOP")},
	&Cell{Name: wire.Ref(12)},
	XYMode{},
	XYMode{Relative: true},
	&Placement{Name: ptr(wire.Ref(2)), Angle: &wire.Real{Kind: wire.RealPosInt, Num: 270}, X: ptr(int64(-5)), Rep: repetition.Row{Count: 3, Space: 10}},
	&Placement{Flip: true, Mag: ptr(wire.CompactReal(0.5)), Angle: ptr(wire.CompactReal(45)), Y: ptr(int64(8))},
	&Placement{},
	&Text{String: ptr(wire.Named("label")), Geometry: Geometry{Layer: ptr(uint32(5)), Datatype: ptr(uint32(1)), X: ptr(int64(1)), Y: ptr(int64(2))}},
	&Text{String: ptr(wire.Ref(4)), Geometry: Geometry{Rep: repetition.Reuse{}}},
	&Rectangle{W: ptr(uint64(100)), H: ptr(uint64(200)), Geometry: Geometry{Layer: ptr(uint32(1)), Datatype: ptr(uint32(0))}},
	&Rectangle{Square: true, W: ptr(uint64(7)), Geometry: Geometry{X: ptr(int64(-1))}},
	&Polygon{Points: &wire.PointList{Kind: wire.ManhattanHorizontal, Points: []wire.Delta{{}, {X: 10}, {X: 10, Y: 10}, {Y: 10}}}, Geometry: Geometry{Layer: ptr(uint32(2))}},
	&Path{HalfWidth: ptr(uint64(5)), Start: &Extension{Scheme: ExtExplicit, Value: -3}, End: &Extension{Scheme: ExtHalfWidth},
		Points: &wire.PointList{Kind: wire.AllAngle, Points: []wire.Delta{{}, {X: 3, Y: 7}}}},
	&Path{End: &Extension{Scheme: ExtExplicit, Value: 9}},
	&Trapezoid{Vertical: true, W: ptr(uint64(10)), H: ptr(uint64(5)), DeltaA: 2, DeltaB: -2},
	&Trapezoid{W: ptr(uint64(10)), DeltaA: 2},
	&Trapezoid{H: ptr(uint64(10)), DeltaB: -1},
	&CTrapezoid{Type: ptr(uint8(25)), W: ptr(uint64(4))},
	&Circle{Radius: ptr(uint64(50)), Geometry: Geometry{X: ptr(int64(1)), Y: ptr(int64(1))}},
	&Property{Name: ptr(wire.Named("p")), Values: []wire.PropValue{wire.UintValue{Value: 1}, wire.StringValue{Kind: wire.AString, Value: "a"}}, Standard: true},
	&Property{Name: ptr(wire.Ref(1)), ReuseValues: true},
	&Property{Repeat: true},
	&XName{Attribute: 7, Value: "x"},
	&XName{Attribute: 7, Value: "y", Ref: ptr(uint64(5))},
	&XElement{Attribute: 1, Data: []byte{0, 1, 2}},
	&XGeometry{Attribute: 2, Data: []byte("blob"), Geometry: Geometry{Layer: ptr(uint32(9)), Rep: repetition.Column{Count: 2, Space: 3}}},
	&CBlock{Scheme: cblock.Deflate, Uncompressed: 3, Data: []byte{1, 2, 3}},
}

func TestAppendReadRoundTrip(t *testing.T) {
	for _, r := range samples {
		b, err := Append(nil, r)
		require.NoError(t, err, "%#v", r)
		got := readOne(t, b)
		require.Equal(t, r, got, "%s", r.ID())
	}
}

func TestRectangleBytes(t *testing.T) {
	b := []byte{0x14, 0x63, 0x01, 0x00, 0x64, 0xc8, 0x01}
	r := readOne(t, b).(*Rectangle)
	require.Equal(t, uint32(1), *r.Layer)
	require.Equal(t, uint32(0), *r.Datatype)
	require.Equal(t, uint64(100), *r.W)
	require.Equal(t, uint64(200), *r.H)
	require.Nil(t, r.X)

	out, err := Append(nil, r)
	require.NoError(t, err)
	require.Equal(t, b, out)
}

func TestSquareWithHeight(t *testing.T) {
	_, err := Read(wire.NewBytesSource([]byte{0xe0, 0x01, 0x01}), IDRectangle)
	require.ErrorIs(t, err, common.ErrMalformedRecord)
	_, err = Append(nil, &Rectangle{Square: true, H: ptr(uint64(1))})
	require.ErrorIs(t, err, common.ErrMalformedRecord)
}

func TestReservedBits(t *testing.T) {
	for _, id := range []ID{IDText, IDPolygon, IDCircle, IDXGeometry} {
		_, err := Read(wire.NewBytesSource([]byte{0x80, 0, 0, 0}), id)
		require.ErrorIs(t, err, common.ErrMalformedRecord, "%s", id)
	}
}

func TestUnknownID(t *testing.T) {
	_, err := ReadID(wire.NewBytesSource([]byte{35}))
	require.ErrorIs(t, err, common.ErrMalformedRecord)
	_, err = ReadID(wire.NewBytesSource(wire.AppendUint(nil, 256+4)))
	require.ErrorIs(t, err, common.ErrMalformedRecord)
}

func TestPlacementForms(t *testing.T) {
	// C, angle 180, inline name "A"
	p := readOne(t, []byte{0x11, 0x84, 0x01, 'A'}).(*Placement)
	require.Equal(t, wire.Named("A"), *p.Name)
	require.Equal(t, wire.Real{Kind: wire.RealPosInt, Num: 180}, *p.Angle)
	require.Nil(t, p.Mag)
	require.Equal(t, IDPlacement, p.ID())

	p.Mag = ptr(wire.IntReal(2))
	require.Equal(t, IDPlacementTransform, p.ID())
	p.Mag = nil
	p.Angle = ptr(wire.IntReal(360))
	require.Equal(t, IDPlacementTransform, p.ID())
	p.Angle = &wire.Real{Kind: wire.RealFloat64, Float: 90}
	require.Equal(t, IDPlacementTransform, p.ID())
}

func TestPropertyValueCounts(t *testing.T) {
	vals := make([]wire.PropValue, 15)
	for i := range vals {
		vals[i] = wire.SintValue{Value: int64(-i)}
	}
	b, err := Append(nil, &Property{Name: ptr(wire.Named("many")), Values: vals})
	require.NoError(t, err)
	require.Equal(t, byte(0xf4), b[1])
	got := readOne(t, b).(*Property)
	require.Len(t, got.Values, 15)

	_, err = Read(wire.NewBytesSource([]byte{0x18}), IDProperty)
	require.ErrorIs(t, err, common.ErrMalformedRecord)

	empty := readOne(t, []byte{0x1c, 0x04, 0x01, 'e'}).(*Property)
	require.NotNil(t, empty.Values)
	require.Empty(t, empty.Values)
	require.False(t, empty.ReuseValues)
}

func TestPathExtensionOrder(t *testing.T) {
	b, err := Append(nil, samples[21])
	require.NoError(t, err)
	// id, info, halfwidth, scheme (start explicit, end half-width), start value
	require.Equal(t, []byte{0x16, 0xe0, 0x05, 0x0e, 0x07}, b[:5])
}

func TestTrapezoidForms(t *testing.T) {
	require.Equal(t, IDTrapezoid, (&Trapezoid{DeltaA: 1, DeltaB: 1}).ID())
	require.Equal(t, IDTrapezoidA, (&Trapezoid{DeltaA: 1}).ID())
	require.Equal(t, IDTrapezoidB, (&Trapezoid{DeltaB: 1}).ID())
	require.Equal(t, IDTrapezoidA, (&Trapezoid{}).ID())
}

func TestCTrapezoidTypeRange(t *testing.T) {
	_, err := Read(wire.NewBytesSource([]byte{0x80, 26}), IDCTrapezoid)
	require.ErrorIs(t, err, common.ErrMalformedRecord)
}

func TestStartRejectsBadUnit(t *testing.T) {
	for _, unit := range []wire.Real{wire.IntReal(0), wire.IntReal(-3), {Kind: wire.RealFloat64, Float: math.Inf(1)}} {
		b, err := Append(nil, &Start{Version: Version, Unit: unit})
		require.NoError(t, err)
		s := wire.NewBytesSource(b[1:])
		_, err = Read(s, IDStart)
		require.ErrorIs(t, err, common.ErrMalformedRecord)
	}
	b, err := Append(nil, &Start{Version: "2.0", Unit: wire.IntReal(1)})
	require.NoError(t, err)
	_, err = Read(wire.NewBytesSource(b[1:]), IDStart)
	require.ErrorIs(t, err, common.ErrMalformedRecord)
}

func TestEndIsPadded(t *testing.T) {
	table := &OffsetTable{}
	table.Entries[names.CellName] = TableOffset{Strict: true, Offset: 1 << 40}
	for _, tc := range []struct {
		table  *OffsetTable
		scheme validation.Scheme
	}{{nil, validation.None}, {nil, validation.CRC32}, {table, validation.Checksum32}} {
		b := AppendEnd(nil, tc.table, tc.scheme)
		if tc.scheme.HasSignature() {
			b = AppendSignature(b, 0xdeadbeef)
		}
		require.Len(t, b, EndSize)

		s := wire.NewBytesSource(b)
		id, err := ReadID(s)
		require.NoError(t, err)
		require.Equal(t, IDEnd, id)
		e, err := ReadEnd(s, tc.table != nil)
		require.NoError(t, err)
		require.Equal(t, tc.scheme, e.Scheme)
		require.Equal(t, tc.table, e.Table)
		if tc.scheme.HasSignature() {
			sig, err := ReadSignature(s)
			require.NoError(t, err)
			require.Equal(t, uint32(0xdeadbeef), sig)
		}
		require.Zero(t, s.Len())
	}
}

func TestTruncatedRecord(t *testing.T) {
	b, err := Append(nil, samples[13])
	require.NoError(t, err)
	s := wire.NewBytesSource(b[:len(b)-1])
	id, err := ReadID(s)
	require.NoError(t, err)
	_, err = Read(s, id)
	require.ErrorIs(t, err, common.ErrTruncatedStream)
}

func FuzzRead(f *testing.F) {
	for _, r := range samples {
		b, _ := Append(nil, r)
		f.Add(b)
	}
	f.Fuzz(func(t *testing.T, data []byte) {
		s := wire.NewBytesSource(data)
		id, err := ReadID(s)
		if err != nil || id == IDEnd {
			return
		}
		r, err := Read(s, id)
		if err != nil {
			return
		}
		b, err := Append(nil, r)
		if err != nil {
			return
		}
		again := wire.NewBytesSource(b)
		id2, err := ReadID(again)
		require.NoError(t, err)
		_, err = Read(again, id2)
		require.NoError(t, err)
	})
}
