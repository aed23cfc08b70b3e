package index_test

import (
	"context"
	"fmt"
	"log"

	"github.com/rawbytedev/oasis"
	"github.com/rawbytedev/oasis/pkg/index"
)

func ExampleDecodeAll() {
	l := oasis.NewLayout(1000)
	for _, name := range []string{"A", "B", "C"} {
		l.AddCell(name).Elements = []oasis.Element{&oasis.Circle{Radius: 5, Geometry: oasis.Geometry{Layer: 2}}}
	}
	data, err := l.Encode(oasis.WithCompression(oasis.CompressPerCell))
	if err != nil {
		log.Fatal(err)
	}
	ix, err := index.Build(data)
	if err != nil {
		log.Fatal(err)
	}
	cells, err := index.DecodeAll(context.Background(), data, ix, 2)
	if err != nil {
		log.Fatal(err)
	}
	for _, c := range cells {
		fmt.Println(c.Name, len(c.Elements))
	}
	// Output:
	// A 1
	// B 1
	// C 1
}
