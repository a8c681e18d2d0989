package memtable

import (
	"bytes"
	"fmt"
	"sync"
	"testing"

	"github.com/aalhour/widekv/internal/dbformat"
)

func TestSkipListOrder(t *testing.T) {
	s := NewSkipList(bytes.Compare)
	for _, k := range []string{"m", "c", "x", "a", "q"} {
		if !s.Insert([]byte(k), []byte("v"+k)) {
			t.Fatalf("Insert(%q) reported duplicate", k)
		}
	}
	if s.Insert([]byte("c"), nil) {
		t.Fatal("duplicate insert should be rejected")
	}
	if s.Len() != 5 {
		t.Fatalf("Len() = %d", s.Len())
	}

	var got []string
	it := s.NewIterator()
	for it.SeekToFirst(); it.Valid(); it.Next() {
		got = append(got, string(it.Key())+"="+string(it.Value()))
	}
	want := "a=va c=vc m=vm q=vq x=vx"
	if fmt.Sprint(got) != "["+want+"]" {
		t.Fatalf("got %v, want [%s]", got, want)
	}

	it.Seek([]byte("n"))
	if !it.Valid() || string(it.Key()) != "q" {
		t.Fatalf("Seek(n) landed on %q", it.Key())
	}
	it.Seek([]byte("z"))
	if it.Valid() {
		t.Fatal("Seek past the end should be invalid")
	}
}

func TestSkipListMany(t *testing.T) {
	s := NewSkipList(bytes.Compare)
	const n = 2000
	for i := n - 1; i >= 0; i-- {
		s.Insert([]byte(fmt.Sprintf("%06d", i)), nil)
	}
	i := 0
	it := s.NewIterator()
	for it.SeekToFirst(); it.Valid(); it.Next() {
		if want := fmt.Sprintf("%06d", i); string(it.Key()) != want {
			t.Fatalf("position %d: got %q, want %q", i, it.Key(), want)
		}
		i++
	}
	if i != n {
		t.Fatalf("iterated %d keys, want %d", i, n)
	}
}

func TestGetVisibility(t *testing.T) {
	m := New()
	m.Add(1, dbformat.TypeValue, []byte("k"), []byte("v1"))
	m.Add(5, dbformat.TypeWideColumnEntity, []byte("k"), []byte("entity"))
	m.Add(9, dbformat.TypeDeletion, []byte("k"), nil)
	m.Add(3, dbformat.TypeValue, []byte("other"), []byte("o"))

	tests := []struct {
		seq   dbformat.SequenceNumber
		found bool
		typ   dbformat.ValueType
		value string
	}{
		{0, false, 0, ""},
		{1, true, dbformat.TypeValue, "v1"},
		{4, true, dbformat.TypeValue, "v1"},
		{5, true, dbformat.TypeWideColumnEntity, "entity"},
		{8, true, dbformat.TypeWideColumnEntity, "entity"},
		{9, true, dbformat.TypeDeletion, ""},
		{dbformat.MaxSequenceNumber, true, dbformat.TypeDeletion, ""},
	}
	for _, tt := range tests {
		res, found := m.Get([]byte("k"), tt.seq)
		if found != tt.found {
			t.Errorf("seq %d: found = %v, want %v", tt.seq, found, tt.found)
			continue
		}
		if found && (res.Type != tt.typ || string(res.Value) != tt.value) {
			t.Errorf("seq %d: got (%s, %q), want (%s, %q)", tt.seq, res.Type, res.Value, tt.typ, tt.value)
		}
	}

	if _, found := m.Get([]byte("j"), dbformat.MaxSequenceNumber); found {
		t.Error("absent key should not be found")
	}
	if _, found := m.Get([]byte("kk"), dbformat.MaxSequenceNumber); found {
		t.Error("prefix match should not be found")
	}
}

func TestAddCopiesInput(t *testing.T) {
	m := New()
	key, value := []byte("key"), []byte("value")
	m.Add(1, dbformat.TypeValue, key, value)
	key[0], value[0] = 'X', 'X'

	res, found := m.Get([]byte("key"), 1)
	if !found || string(res.Value) != "value" {
		t.Fatalf("got (%q, %v)", res.Value, found)
	}
	if m.ApproximateMemoryUsage() <= 0 || m.Count() != 1 {
		t.Fatalf("usage=%d count=%d", m.ApproximateMemoryUsage(), m.Count())
	}
}

func TestIterator(t *testing.T) {
	m := New()
	m.Add(1, dbformat.TypeValue, []byte("a"), []byte("a1"))
	m.Add(2, dbformat.TypeValue, []byte("a"), []byte("a2"))
	m.Add(3, dbformat.TypeWideColumnEntity, []byte("b"), []byte("b3"))

	var got []string
	it := m.NewIterator()
	for it.SeekToFirst(); it.Valid(); it.Next() {
		got = append(got, fmt.Sprintf("%s@%d:%s=%s", it.UserKey(), it.Sequence(), it.Type(), it.Value()))
	}
	want := []string{"a@2:PUT=a2", "a@1:PUT=a1", "b@3:ENTITY=b3"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("got %v, want %v", got, want)
	}

	it.Seek([]byte("a"), 1)
	if !it.Valid() || it.Sequence() != 1 {
		t.Fatalf("Seek(a, 1) at seq %d", it.Sequence())
	}
	it.Seek([]byte("a0"), dbformat.MaxSequenceNumber)
	if !it.Valid() || string(it.UserKey()) != "b" {
		t.Fatalf("Seek(a0) landed on %q", it.UserKey())
	}
}

func TestRefs(t *testing.T) {
	m := New()
	if m.Refs() != 1 {
		t.Fatalf("Refs() = %d", m.Refs())
	}
	m.Ref()
	if m.Unref() {
		t.Fatal("Unref with a remaining reference reported last")
	}
	if !m.Unref() {
		t.Fatal("final Unref should report last")
	}
	defer func() {
		if recover() == nil {
			t.Fatal("extra Unref should panic")
		}
	}()
	m.Unref()
}

func TestConcurrentReaders(t *testing.T) {
	m := New()
	for i := 0; i < 100; i++ {
		m.Add(dbformat.SequenceNumber(i+1), dbformat.TypeValue, []byte(fmt.Sprintf("k%03d", i)), []byte("v"))
	}

	var wg sync.WaitGroup
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				if _, found := m.Get([]byte(fmt.Sprintf("k%03d", i)), dbformat.MaxSequenceNumber); !found {
					t.Errorf("k%03d missing", i)
					return
				}
			}
		}()
	}
	for i := 100; i < 200; i++ {
		m.Add(dbformat.SequenceNumber(i+1), dbformat.TypeValue, []byte(fmt.Sprintf("k%03d", i)), []byte("v"))
	}
	wg.Wait()
}
