package memtable

import (
	"bytes"
	"sync/atomic"

	"github.com/aalhour/widekv/internal/dbformat"
)

// nodeOverhead approximates the per-entry bookkeeping counted against
// memory usage: the node struct plus an average tower.
const nodeOverhead = 96

// MemTable stores the versions of keys written to one column family.
//
// Slices handed out by Get and iterators alias memtable storage and stay
// valid as long as the caller holds a reference (see Ref).
type MemTable struct {
	list *SkipList
	refs atomic.Int32
	mem  atomic.Int64
}

// New returns a MemTable holding one reference.
func New() *MemTable {
	m := &MemTable{list: NewSkipList(dbformat.CompareInternalKeys)}
	m.refs.Store(1)
	return m
}

// Ref pins the memtable.
func (m *MemTable) Ref() { m.refs.Add(1) }

// Unref drops a pin and reports whether it was the last one.
func (m *MemTable) Unref() bool {
	n := m.refs.Add(-1)
	if n < 0 {
		panic("memtable: Unref without matching Ref")
	}
	return n == 0
}

// Refs returns the number of outstanding references.
func (m *MemTable) Refs() int32 { return m.refs.Load() }

// Add records a version of key. The memtable keeps its own copies of key
// and value. REQUIRES: external synchronization between writers; seq is
// unique per key.
func (m *MemTable) Add(seq dbformat.SequenceNumber, t dbformat.ValueType, key, value []byte) {
	buf := make([]byte, 0, len(key)+dbformat.TrailerSize+len(value))
	buf = dbformat.AppendInternalKey(buf, key, seq, t)
	ikey := buf[:len(buf):len(buf)]
	val := append(buf[len(buf):], value...)
	m.list.Insert(ikey, val)
	m.mem.Add(int64(cap(buf) + nodeOverhead))
}

// LookupResult is the newest visible version of a key.
type LookupResult struct {
	Type     dbformat.ValueType
	Sequence dbformat.SequenceNumber
	Value    []byte
}

// Get returns the newest version of key with sequence <= seq. Deletions
// are returned as found with Type TypeDeletion.
func (m *MemTable) Get(key []byte, seq dbformat.SequenceNumber) (LookupResult, bool) {
	it := m.list.NewIterator()
	it.Seek(dbformat.AppendInternalKey(nil, key, seq, dbformat.TypeForSeek))
	if !it.Valid() {
		return LookupResult{}, false
	}
	p, err := dbformat.ParseInternalKey(it.Key())
	if err != nil || !bytes.Equal(p.UserKey, key) {
		return LookupResult{}, false
	}
	return LookupResult{Type: p.Type, Sequence: p.Sequence, Value: it.Value()}, true
}

// Count returns the number of versions stored.
func (m *MemTable) Count() int64 { return m.list.Len() }

// ApproximateMemoryUsage returns the bytes retained by entries.
func (m *MemTable) ApproximateMemoryUsage() int64 { return m.mem.Load() }

// Iterator yields every version in internal key order: user key
// ascending, newest version first.
type Iterator struct {
	it  *ListIterator
	cur dbformat.ParsedInternalKey
}

// NewIterator returns an unpositioned iterator.
func (m *MemTable) NewIterator() *Iterator {
	return &Iterator{it: m.list.NewIterator()}
}

func (it *Iterator) Valid() bool { return it.it.Valid() }

// SeekToFirst moves to the first version of the smallest key.
func (it *Iterator) SeekToFirst() {
	it.it.SeekToFirst()
	it.parse()
}

// Seek moves to the newest version of the first key >= userKey visible
// at seq.
func (it *Iterator) Seek(userKey []byte, seq dbformat.SequenceNumber) {
	it.it.Seek(dbformat.AppendInternalKey(nil, userKey, seq, dbformat.TypeForSeek))
	it.parse()
}

// Next moves to the next version. REQUIRES: Valid().
func (it *Iterator) Next() {
	it.it.Next()
	it.parse()
}

func (it *Iterator) UserKey() []byte                   { return it.cur.UserKey }
func (it *Iterator) Sequence() dbformat.SequenceNumber { return it.cur.Sequence }
func (it *Iterator) Type() dbformat.ValueType          { return it.cur.Type }
func (it *Iterator) Value() []byte                     { return it.it.Value() }

func (it *Iterator) parse() {
	if !it.it.Valid() {
		it.cur = dbformat.ParsedInternalKey{}
		return
	}
	// Keys are built by Add and always carry a trailer.
	it.cur, _ = dbformat.ParseInternalKey(it.it.Key())
}
