// iterator.go implements the column family iterator.
//
// The iterator walks one memtable in internal key order and surfaces, per
// user key, the newest version visible at its sequence. Keys whose newest
// visible version is a deletion are skipped.
//
// Reference: RocksDB db/db_iter.cc
package db

import (
	"bytes"

	"github.com/aalhour/widekv"
	"github.com/aalhour/widekv/internal/dbformat"
	"github.com/aalhour/widekv/internal/memtable"
)

// Iterator iterates the live keys of a column family in ascending order.
// It is not safe for concurrent use. Close it to release its memtable
// reference.
type Iterator struct {
	db    *DB
	mem   *memtable.MemTable
	it    *memtable.Iterator
	seq   dbformat.SequenceNumber
	lower []byte
	upper []byte

	valid  bool
	key    []byte
	typ    dbformat.ValueType
	value  []byte
	err    error
	closed bool
}

var _ widekv.ColumnsIterator = (*Iterator)(nil)

// NewIterator returns an unpositioned iterator over the default column
// family.
func (db *DB) NewIterator(ro *widekv.ReadOptions) (*Iterator, error) {
	return db.NewIteratorCF(ro, nil)
}

// NewIteratorCF returns an unpositioned iterator over cf, reading at the
// snapshot in ro or at the latest state.
func (db *DB) NewIteratorCF(ro *widekv.ReadOptions, cf widekv.ColumnFamilyHandle) (*Iterator, error) {
	c, err := db.columnFamily(cf)
	if err != nil {
		return nil, err
	}
	c.mem.Ref()
	it := &Iterator{
		db:  db,
		mem: c.mem,
		it:  c.mem.NewIterator(),
		seq: db.readSequence(ro),
	}
	if ro != nil {
		it.lower = ro.IterateLowerBound
		it.upper = ro.IterateUpperBound
	}
	return it, nil
}

// Valid reports whether the iterator is positioned at a key.
func (it *Iterator) Valid() bool { return it.valid && it.err == nil }

// SeekToFirst moves to the first key, or to the lower bound.
func (it *Iterator) SeekToFirst() {
	if it.lower != nil {
		it.Seek(it.lower)
		return
	}
	it.it.SeekToFirst()
	it.findNextUserEntry(nil, false)
}

// Seek moves to the first key >= target.
func (it *Iterator) Seek(target []byte) {
	if it.lower != nil && bytes.Compare(target, it.lower) < 0 {
		target = it.lower
	}
	it.it.Seek(target, it.seq)
	it.findNextUserEntry(nil, false)
}

// Next moves to the next key. REQUIRES: Valid().
func (it *Iterator) Next() {
	if !it.Valid() {
		return
	}
	it.db.tick(widekv.TickerIterNext, 1)
	it.it.Next()
	it.findNextUserEntry(it.key, true)
}

// findNextUserEntry positions on the newest visible version of the next
// live user key, skipping every version of skipKey when skipping is set.
func (it *Iterator) findNextUserEntry(skipKey []byte, skipping bool) {
	for ; it.it.Valid(); it.it.Next() {
		key := it.it.UserKey()
		if it.upper != nil && bytes.Compare(key, it.upper) >= 0 {
			break
		}
		if it.it.Sequence() > it.seq {
			continue
		}
		if skipping && bytes.Equal(key, skipKey) {
			continue
		}
		switch it.it.Type() {
		case dbformat.TypeDeletion:
			skipKey, skipping = key, true
		case dbformat.TypeValue, dbformat.TypeWideColumnEntity:
			it.valid = true
			it.key = key
			it.typ = it.it.Type()
			it.value = it.it.Value()
			return
		}
	}
	it.valid = false
	it.key, it.value = nil, nil
}

// Key returns the current key. It stays valid after the iterator moves.
func (it *Iterator) Key() []byte { return it.key }

// Value returns the current plain value, or the default column value of
// the current entity.
func (it *Iterator) Value() []byte {
	if !it.Valid() {
		return nil
	}
	if it.typ != dbformat.TypeWideColumnEntity {
		return it.value
	}
	v, err := widekv.DefaultColumnValue(it.value)
	if err != nil {
		it.err = err
		return nil
	}
	return v
}

// IsEntity reports whether the current key holds an entity.
func (it *Iterator) IsEntity() bool {
	return it.Valid() && it.typ == dbformat.TypeWideColumnEntity
}

// Columns returns the columns of the current key; a plain value is one
// default column. The returned set is never reused by the iterator.
func (it *Iterator) Columns() widekv.WideColumns {
	if !it.Valid() {
		return nil
	}
	it.db.tick(widekv.TickerIterColumns, 1)
	if it.typ != dbformat.TypeWideColumnEntity {
		return widekv.WideColumns{{Name: []byte{}, Value: it.value}}
	}
	cols, err := widekv.DeserializeEntity(it.value)
	if err != nil {
		it.err = err
		return nil
	}
	return cols
}

// Error returns the first decode error seen.
func (it *Iterator) Error() error { return it.err }

// Close releases the memtable. The iterator must not be used afterwards.
func (it *Iterator) Close() error {
	if it.closed {
		return nil
	}
	it.closed = true
	it.valid = false
	it.mem.Unref()
	return nil
}
