package batch

import "sync"

// maxPooledSize bounds the batches returned to a Pool so one large write
// does not pin its buffer forever.
const maxPooledSize = 1 << 20

// Pool recycles batches for single-record writes.
type Pool struct {
	pool sync.Pool
}

// NewPool returns an empty Pool.
func NewPool() *Pool {
	return &Pool{pool: sync.Pool{New: func() any { return New() }}}
}

// Get returns an empty batch.
func (p *Pool) Get() *WriteBatch {
	wb := p.pool.Get().(*WriteBatch)
	wb.Clear()
	return wb
}

// Put returns wb to the pool. wb must not be used afterwards.
func (p *Pool) Put(wb *WriteBatch) {
	if wb == nil || cap(wb.data) > maxPooledSize {
		return
	}
	p.pool.Put(wb)
}
