package db_test

import (
	"fmt"
	"os"

	"github.com/aalhour/widekv"
	"github.com/aalhour/widekv/db"
)

func ExampleOpen() {
	dir, err := os.MkdirTemp("", "widekv-example-*")
	if err != nil {
		panic(err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	opts := db.DefaultOptions()
	opts.CreateIfMissing = true

	d, err := db.Open(dir, opts)
	if err != nil {
		panic(err)
	}
	defer func() { _ = d.Close() }()

	cols := widekv.WideColumns{
		{Name: []byte("name"), Value: []byte("ada")},
		{Name: []byte("born"), Value: []byte("1815")},
	}
	if err := d.PutEntity(widekv.DefaultWriteOptions(), nil, []byte("k"), cols); err != nil {
		panic(err)
	}

	out := widekv.NewPinnableWideColumns()
	defer out.Destroy()
	if err := d.GetEntity(widekv.DefaultReadOptions(), nil, []byte("k"), out); err != nil {
		panic(err)
	}
	for _, c := range out.Columns() {
		fmt.Printf("%s=%s\n", c.Name, c.Value)
	}
	// Output:
	// born=1815
	// name=ada
}

func Example_entryPoints() {
	dir, err := os.MkdirTemp("", "widekv-example-*")
	if err != nil {
		panic(err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	opts := db.DefaultOptions()
	opts.CreateIfMissing = true
	d, err := db.Open(dir, opts)
	if err != nil {
		panic(err)
	}
	defer func() { _ = d.Close() }()

	var slot widekv.ErrorSlot
	names := [][]byte{[]byte("b"), []byte("a")}
	values := [][]byte{[]byte("2"), []byte("1")}
	widekv.PutEntityCF(d, nil, d.DefaultColumnFamily(), []byte("k"), names, values, &slot)

	cols := widekv.GetEntityCF(d, nil, d.DefaultColumnFamily(), []byte("k"), &slot)
	defer cols.Destroy()
	for i := range cols.Size() {
		fmt.Printf("%s=%s\n", cols.Name(i), cols.Value(i))
	}
	fmt.Println("error:", slot.Holding())

	missing := widekv.GetEntityCF(d, nil, d.DefaultColumnFamily(), []byte("nope"), &slot)
	fmt.Println("missing:", missing.Size(), slot.Holding())
	missing.Destroy()
	// Output:
	// a=1
	// b=2
	// error: false
	// missing: 0 false
}
