package mempool

import "testing"

func TestGetCapacity(t *testing.T) {
	p := New()
	for _, n := range []int{0, 1, 512, 513, 4096, 200 << 10} {
		b := p.Get(n)
		if len(b) != 0 {
			t.Errorf("Get(%d): len = %d, want 0", n, len(b))
		}
		if cap(b) < n {
			t.Errorf("Get(%d): cap = %d", n, cap(b))
		}
		p.Put(b)
	}
}

func TestOversized(t *testing.T) {
	p := New()
	b := p.Get(1 << 20)
	if cap(b) != 1<<20 {
		t.Fatalf("cap = %d", cap(b))
	}
	// Dropped silently.
	p.Put(b)
	p.Put(nil)
}

func TestPutResetsLength(t *testing.T) {
	p := New()
	b := p.Get(10)
	b = append(b, "dirty"...)
	p.Put(b)
	if got := p.Get(10); len(got) != 0 {
		t.Fatalf("recycled slice has len %d", len(got))
	}
}
