package dbformat

import (
	"errors"
	"testing"
)

func TestPackUnpack(t *testing.T) {
	tests := []struct {
		seq SequenceNumber
		typ ValueType
	}{
		{0, TypeDeletion},
		{1, TypeValue},
		{12345, TypeWideColumnEntity},
		{MaxSequenceNumber, TypeForSeek},
	}
	for _, tt := range tests {
		seq, typ := UnpackSequenceAndType(PackSequenceAndType(tt.seq, tt.typ))
		if seq != tt.seq || typ != tt.typ {
			t.Errorf("round trip (%d, %s) = (%d, %s)", tt.seq, tt.typ, seq, typ)
		}
	}
}

func TestParseInternalKey(t *testing.T) {
	ikey := AppendInternalKey(nil, []byte("user"), 42, TypeWideColumnEntity)
	if len(ikey) != 4+TrailerSize {
		t.Fatalf("len = %d", len(ikey))
	}
	p, err := ParseInternalKey(ikey)
	if err != nil {
		t.Fatal(err)
	}
	if string(p.UserKey) != "user" || p.Sequence != 42 || p.Type != TypeWideColumnEntity {
		t.Fatalf("parsed %v", p)
	}
	if _, err := ParseInternalKey([]byte("short")); !errors.Is(err, ErrKeyTooSmall) {
		t.Fatalf("got %v, want ErrKeyTooSmall", err)
	}
}

func TestCompareInternalKeys(t *testing.T) {
	a5 := AppendInternalKey(nil, []byte("a"), 5, TypeValue)
	a9 := AppendInternalKey(nil, []byte("a"), 9, TypeValue)
	b1 := AppendInternalKey(nil, []byte("b"), 1, TypeValue)
	seek := AppendInternalKey(nil, []byte("a"), 9, TypeForSeek)

	if CompareInternalKeys(a9, a5) >= 0 {
		t.Error("newer version should sort first")
	}
	if CompareInternalKeys(a5, b1) >= 0 {
		t.Error("user key order should dominate")
	}
	if CompareInternalKeys(seek, a9) >= 0 {
		t.Error("seek key should sort before the record at the same sequence")
	}
	if CompareInternalKeys(a5, a5) != 0 {
		t.Error("identical keys should compare equal")
	}
}

func TestValueTypeString(t *testing.T) {
	if TypeWideColumnEntity.String() != "ENTITY" {
		t.Errorf("got %q", TypeWideColumnEntity.String())
	}
	if ValueType(0x42).String() != "TYPE(0x42)" {
		t.Errorf("got %q", ValueType(0x42).String())
	}
}
