// Package dbformat defines sequence numbers, value types and the internal
// key layout used by the memtable.
//
// An internal key is the user key followed by an 8-byte little-endian
// trailer holding (sequence << 8) | type. Value type codes match RocksDB's
// db/dbformat.h so batches and logs stay interchangeable with it.
package dbformat

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/aalhour/widekv/internal/encoding"
)

// SequenceNumber orders writes. Only the low 56 bits are usable.
type SequenceNumber uint64

// MaxSequenceNumber is the largest sequence that fits the trailer.
const MaxSequenceNumber SequenceNumber = (1 << 56) - 1

// TrailerSize is the number of bytes appended to a user key.
const TrailerSize = 8

// ValueType tags a record. The codes are persisted and must not change.
type ValueType uint8

const (
	TypeDeletion                     ValueType = 0x00
	TypeValue                        ValueType = 0x01
	TypeColumnFamilyDeletion         ValueType = 0x04 // batch only
	TypeColumnFamilyValue            ValueType = 0x05 // batch only
	TypeNoop                         ValueType = 0x0D // batch only
	TypeWideColumnEntity             ValueType = 0x16
	TypeColumnFamilyWideColumnEntity ValueType = 0x17 // batch only
	TypeValuePreferredSeqno          ValueType = 0x18
)

// TypeForSeek sorts before every real record with the same user key and
// sequence, so seeking to (key, seq, TypeForSeek) lands on the newest
// visible version.
const TypeForSeek = TypeValuePreferredSeqno

// ErrKeyTooSmall is returned for internal keys shorter than the trailer.
var ErrKeyTooSmall = errors.New("dbformat: internal key too small")

// String returns a short name for the type.
func (t ValueType) String() string {
	switch t {
	case TypeDeletion:
		return "DEL"
	case TypeValue:
		return "PUT"
	case TypeWideColumnEntity:
		return "ENTITY"
	case TypeColumnFamilyDeletion:
		return "CF_DEL"
	case TypeColumnFamilyValue:
		return "CF_PUT"
	case TypeColumnFamilyWideColumnEntity:
		return "CF_ENTITY"
	case TypeNoop:
		return "NOOP"
	default:
		return fmt.Sprintf("TYPE(%#x)", uint8(t))
	}
}

// PackSequenceAndType builds the trailer value.
func PackSequenceAndType(seq SequenceNumber, t ValueType) uint64 {
	return uint64(seq)<<8 | uint64(t)
}

// UnpackSequenceAndType splits a trailer value.
func UnpackSequenceAndType(packed uint64) (SequenceNumber, ValueType) {
	return SequenceNumber(packed >> 8), ValueType(packed)
}

// AppendInternalKey appends userKey and its trailer to dst.
func AppendInternalKey(dst, userKey []byte, seq SequenceNumber, t ValueType) []byte {
	dst = append(dst, userKey...)
	return encoding.AppendFixed64(dst, PackSequenceAndType(seq, t))
}

// ParsedInternalKey is a decoded internal key. UserKey aliases the input.
type ParsedInternalKey struct {
	UserKey  []byte
	Sequence SequenceNumber
	Type     ValueType
}

func (p ParsedInternalKey) String() string {
	return fmt.Sprintf("%q @ %d : %s", p.UserKey, p.Sequence, p.Type)
}

// ParseInternalKey decodes an internal key.
func ParseInternalKey(ikey []byte) (ParsedInternalKey, error) {
	n := len(ikey) - TrailerSize
	if n < 0 {
		return ParsedInternalKey{}, ErrKeyTooSmall
	}
	seq, t := UnpackSequenceAndType(encoding.DecodeFixed64(ikey[n:]))
	return ParsedInternalKey{UserKey: ikey[:n:n], Sequence: seq, Type: t}, nil
}

// CompareInternalKeys orders by user key ascending, then by trailer
// descending so newer versions of a key come first.
func CompareInternalKeys(a, b []byte) int {
	ua, ub := a[:len(a)-TrailerSize], b[:len(b)-TrailerSize]
	if c := bytes.Compare(ua, ub); c != 0 {
		return c
	}
	ta := encoding.DecodeFixed64(a[len(a)-TrailerSize:])
	tb := encoding.DecodeFixed64(b[len(b)-TrailerSize:])
	switch {
	case ta > tb:
		return -1
	case ta < tb:
		return 1
	}
	return 0
}
