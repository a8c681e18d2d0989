// Package memtable holds recent writes in memory, ordered by internal key.
//
// The skiplist follows memtable/skiplist.h: readers traverse without
// locks while a single writer (serialized by the caller) links new nodes.
// Nodes are never removed.
package memtable

import (
	"math/rand/v2"
	"sync/atomic"
)

const (
	maxHeight = 12
	branching = 4
)

// Comparator orders skiplist keys.
type Comparator func(a, b []byte) int

type node struct {
	key   []byte
	value []byte
	next  []atomic.Pointer[node]
}

// SkipList is an ordered set of keys, each carrying a value.
type SkipList struct {
	head    *node
	height  atomic.Int32
	cmp     Comparator
	rng     *rand.Rand
	count   atomic.Int64
	prevBuf [maxHeight]*node
}

// NewSkipList returns an empty list ordered by cmp.
func NewSkipList(cmp Comparator) *SkipList {
	s := &SkipList{
		head: &node{next: make([]atomic.Pointer[node], maxHeight)},
		cmp:  cmp,
		rng:  rand.New(rand.NewPCG(0xdeadbeef, 0x5eed)),
	}
	s.height.Store(1)
	return s
}

// Insert links key with value. It reports false if an equal key exists.
// REQUIRES: external synchronization between writers.
func (s *SkipList) Insert(key, value []byte) bool {
	prev := s.prevBuf[:]
	if x := s.seek(key, prev); x != nil && s.cmp(key, x.key) == 0 {
		return false
	}

	h := s.randomHeight()
	if cur := int(s.height.Load()); h > cur {
		for i := cur; i < h; i++ {
			prev[i] = s.head
		}
		s.height.Store(int32(h))
	}

	n := &node{key: key, value: value, next: make([]atomic.Pointer[node], h)}
	for i := 0; i < h; i++ {
		n.next[i].Store(prev[i].next[i].Load())
		prev[i].next[i].Store(n)
	}
	s.count.Add(1)
	return true
}

// Len returns the number of keys.
func (s *SkipList) Len() int64 { return s.count.Load() }

// seek returns the first node >= key, recording the predecessor at each
// level in prev when it is non-nil.
func (s *SkipList) seek(key []byte, prev []*node) *node {
	x := s.head
	for level := int(s.height.Load()) - 1; ; level-- {
		next := x.next[level].Load()
		for next != nil && s.cmp(next.key, key) < 0 {
			x = next
			next = x.next[level].Load()
		}
		if prev != nil {
			prev[level] = x
		}
		if level == 0 {
			return next
		}
	}
}

func (s *SkipList) randomHeight() int {
	h := 1
	for h < maxHeight && s.rng.IntN(branching) == 0 {
		h++
	}
	return h
}

// ListIterator walks a SkipList forward. It sees every node linked before
// the positioning call and possibly later ones.
type ListIterator struct {
	list *SkipList
	n    *node
}

// NewIterator returns an unpositioned iterator.
func (s *SkipList) NewIterator() *ListIterator {
	return &ListIterator{list: s}
}

func (it *ListIterator) Valid() bool   { return it.n != nil }
func (it *ListIterator) Key() []byte   { return it.n.key }
func (it *ListIterator) Value() []byte { return it.n.value }

// Next advances. REQUIRES: Valid().
func (it *ListIterator) Next() { it.n = it.n.next[0].Load() }

// Seek moves to the first key >= target.
func (it *ListIterator) Seek(target []byte) { it.n = it.list.seek(target, nil) }

// SeekToFirst moves to the smallest key.
func (it *ListIterator) SeekToFirst() { it.n = it.list.head.next[0].Load() }
