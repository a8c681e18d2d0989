package batch

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/aalhour/widekv/internal/dbformat"
)

type recorder struct {
	ops []string
	err error
}

func (r *recorder) Put(cfID uint32, key, value []byte) error {
	r.ops = append(r.ops, fmt.Sprintf("put(%d,%s,%s)", cfID, key, value))
	return r.err
}

func (r *recorder) Delete(cfID uint32, key []byte) error {
	r.ops = append(r.ops, fmt.Sprintf("del(%d,%s)", cfID, key))
	return r.err
}

func (r *recorder) PutEntity(cfID uint32, key, entity []byte) error {
	r.ops = append(r.ops, fmt.Sprintf("entity(%d,%s,%x)", cfID, key, entity))
	return r.err
}

func TestEmpty(t *testing.T) {
	wb := New()
	if wb.Count() != 0 || wb.Size() != HeaderSize {
		t.Fatalf("count=%d size=%d", wb.Count(), wb.Size())
	}
	if err := wb.Iterate(&recorder{}); err != nil {
		t.Fatal(err)
	}
}

func TestIterateOrder(t *testing.T) {
	wb := New()
	wb.Put(0, []byte("k1"), []byte("v1"))
	wb.PutEntity(0, []byte("k2"), []byte{0x01, 0x00})
	wb.Delete(3, []byte("k3"))
	wb.PutEntity(7, []byte("k4"), []byte{0x01, 0x01})
	wb.Put(2, []byte("k5"), nil)

	if wb.Count() != 5 {
		t.Fatalf("Count() = %d, want 5", wb.Count())
	}

	rec := &recorder{}
	if err := wb.Iterate(rec); err != nil {
		t.Fatal(err)
	}
	want := []string{
		"put(0,k1,v1)",
		"entity(0,k2,0100)",
		"del(3,k3)",
		"entity(7,k4,0101)",
		"put(2,k5,)",
	}
	if strings.Join(rec.ops, " ") != strings.Join(want, " ") {
		t.Fatalf("got  %v\nwant %v", rec.ops, want)
	}
}

func TestEntityTags(t *testing.T) {
	wb := New()
	wb.PutEntity(0, []byte("a"), nil)
	if tag := dbformat.ValueType(wb.Data()[HeaderSize]); tag != dbformat.TypeWideColumnEntity {
		t.Errorf("default family tag = %s", tag)
	}
	wb.Clear()
	wb.PutEntity(1, []byte("a"), nil)
	if tag := dbformat.ValueType(wb.Data()[HeaderSize]); tag != dbformat.TypeColumnFamilyWideColumnEntity {
		t.Errorf("cf tag = %s", tag)
	}
}

func TestSequence(t *testing.T) {
	wb := New()
	wb.SetSequence(12345)
	wb.Put(0, []byte("k"), []byte("v"))
	if wb.Sequence() != 12345 {
		t.Fatalf("Sequence() = %d", wb.Sequence())
	}

	copied, err := FromData(append([]byte(nil), wb.Data()...))
	if err != nil {
		t.Fatal(err)
	}
	if copied.Sequence() != 12345 || copied.Count() != 1 {
		t.Fatalf("decoded seq=%d count=%d", copied.Sequence(), copied.Count())
	}

	wb.Clear()
	if wb.Sequence() != 0 || wb.Count() != 0 {
		t.Fatal("Clear should reset the header")
	}
}

func TestAppend(t *testing.T) {
	a, b := New(), New()
	a.Put(0, []byte("a"), []byte("1"))
	b.Delete(0, []byte("b"))
	b.PutEntity(1, []byte("c"), []byte{0x01, 0x00})
	a.Append(b)

	rec := &recorder{}
	if err := a.Iterate(rec); err != nil {
		t.Fatal(err)
	}
	if a.Count() != 3 || len(rec.ops) != 3 {
		t.Fatalf("count=%d ops=%v", a.Count(), rec.ops)
	}
}

func TestCorruption(t *testing.T) {
	wb := New()
	wb.Put(0, []byte("key"), []byte("value"))
	good := wb.Data()

	tests := []struct {
		name string
		data []byte
	}{
		{"truncated value", good[:len(good)-2]},
		{"unknown tag", append(append([]byte(nil), good...), 0x42)},
		{"count mismatch", func() []byte {
			d := append([]byte(nil), good...)
			d[8] = 2
			return d
		}()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := FromData(tt.data)
			if err != nil {
				t.Fatal(err)
			}
			if err := b.Iterate(&recorder{}); !errors.Is(err, ErrCorrupted) {
				t.Fatalf("got %v, want ErrCorrupted", err)
			}
		})
	}

	if _, err := FromData(make([]byte, 4)); !errors.Is(err, ErrTooSmall) {
		t.Fatalf("got %v, want ErrTooSmall", err)
	}
}

func TestHandlerError(t *testing.T) {
	wb := New()
	wb.Put(0, []byte("a"), []byte("1"))
	wb.Put(0, []byte("b"), []byte("2"))

	stop := errors.New("stop")
	rec := &recorder{err: stop}
	if err := wb.Iterate(rec); !errors.Is(err, stop) {
		t.Fatalf("got %v", err)
	}
	if len(rec.ops) != 1 {
		t.Fatalf("handler called %d times after error", len(rec.ops))
	}
}

func TestPool(t *testing.T) {
	p := NewPool()
	wb := p.Get()
	wb.Put(0, []byte("k"), []byte("v"))
	p.Put(wb)

	again := p.Get()
	if again.Count() != 0 || again.Size() != HeaderSize {
		t.Fatalf("pooled batch not cleared: count=%d", again.Count())
	}
	p.Put(nil)
}
