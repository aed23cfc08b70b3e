package oasis_test

import (
	"fmt"
	"log"

	"github.com/rawbytedev/oasis"
	"github.com/rawbytedev/oasis/pkg/validation"
)

func Example() {
	l := oasis.NewLayout(1000)
	top := l.AddCell("TOP")
	top.Elements = append(top.Elements, &oasis.Rectangle{W: 100, H: 50, Geometry: oasis.Geometry{Layer: 1}})

	data, err := l.Encode(oasis.WithValidation(validation.CRC32))
	if err != nil {
		log.Fatal(err)
	}
	back, err := oasis.Decode(data)
	if err != nil {
		log.Fatal(err)
	}
	r := back.Cells[0].Elements[0].(*oasis.Rectangle)
	fmt.Println(back.Cells[0].Name, r.Layer, r.W, r.H)
	// Output: TOP 1 100 50
}

func ExampleTrapezoid_Vertices() {
	t := &oasis.Trapezoid{W: 10, H: 5, DeltaA: 2, DeltaB: -2}
	pts, err := t.Vertices()
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(pts)
	// Output: [{2 0} {10 0} {8 5} {0 5}]
}
