// Package wal reads and writes the write-ahead log.
//
// A log is a sequence of 32KB blocks. A logical record is split into
// fragments so no fragment crosses a block boundary; each fragment carries
// a 7-byte header:
//
//	+--------------+---------+------+---------+
//	| checksum (4) | len (2) | type | payload |
//	+--------------+---------+------+---------+
//
// The checksum covers the type byte and the payload. Its algorithm is fixed
// per log (see checksum.Type) and recorded outside the log itself. When a
// log is compressed, its first record is a SetCompressionType record whose
// payload names the codec; every later logical record is compressed as a
// whole before fragmenting. The framing follows RocksDB's db/log_format.h.
package wal

import "fmt"

// BlockSize is the size of a log block.
const BlockSize = 32768

// HeaderSize is the size of a fragment header.
const HeaderSize = 7

// RecordType tags a fragment.
type RecordType uint8

const (
	ZeroType           RecordType = 0 // block padding
	FullType           RecordType = 1
	FirstType          RecordType = 2
	MiddleType         RecordType = 3
	LastType           RecordType = 4
	SetCompressionType RecordType = 9
)

func (t RecordType) String() string {
	switch t {
	case ZeroType:
		return "zero"
	case FullType:
		return "full"
	case FirstType:
		return "first"
	case MiddleType:
		return "middle"
	case LastType:
		return "last"
	case SetCompressionType:
		return "set-compression"
	}
	return fmt.Sprintf("record(%d)", uint8(t))
}
