// Package mempool recycles scratch byte slices for record encoding.
//
// Log records are compressed into a scratch buffer before framing; pooling
// those buffers by size class keeps steady-state writes allocation free.
package mempool

import "sync"

// classes are the capacities handed out; larger requests are allocated
// directly and never pooled.
var classes = [...]int{512, 4 << 10, 32 << 10, 256 << 10}

// Pool hands out byte slices with at least the requested capacity.
type Pool struct {
	pools [len(classes)]sync.Pool
}

// New returns an empty Pool.
func New() *Pool {
	p := &Pool{}
	for i := range p.pools {
		size := classes[i]
		p.pools[i].New = func() any {
			b := make([]byte, 0, size)
			return &b
		}
	}
	return p
}

// Get returns a zero-length slice with capacity >= n.
func (p *Pool) Get(n int) []byte {
	c := class(n)
	if c < 0 {
		return make([]byte, 0, n)
	}
	b := p.pools[c].Get().(*[]byte)
	return (*b)[:0]
}

// Put recycles b. Slices that do not exactly fit a class are dropped so a
// grown buffer never lands in a smaller class.
func (p *Pool) Put(b []byte) {
	if b == nil {
		return
	}
	for i, size := range classes {
		if cap(b) == size {
			b = b[:0]
			p.pools[i].Put(&b)
			return
		}
	}
}

func class(n int) int {
	for i, size := range classes {
		if n <= size {
			return i
		}
	}
	return -1
}
