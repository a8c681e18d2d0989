// Package encoding provides the little-endian fixed-width and varint
// primitives shared by the batch, WAL and entity formats.
//
// Varints use 7-bit groups with the MSB as continuation flag, the same
// layout RocksDB uses in util/coding.h, so encoded entities and batches are
// byte-compatible with it.
package encoding

import (
	"encoding/binary"
	"errors"
)

const (
	// MaxVarint32Length is the maximum number of bytes a varint32 can occupy.
	MaxVarint32Length = 5

	// MaxVarint64Length is the maximum number of bytes a varint64 can occupy.
	MaxVarint64Length = 10
)

var (
	// ErrShortBuffer is returned when the input ends before a value does.
	ErrShortBuffer = errors.New("encoding: short buffer")

	// ErrVarintOverflow is returned when a varint does not fit its type.
	ErrVarintOverflow = errors.New("encoding: varint overflow")
)

// AppendFixed32 appends value as 4 little-endian bytes.
func AppendFixed32(dst []byte, value uint32) []byte {
	return binary.LittleEndian.AppendUint32(dst, value)
}

// AppendFixed64 appends value as 8 little-endian bytes.
func AppendFixed64(dst []byte, value uint64) []byte {
	return binary.LittleEndian.AppendUint64(dst, value)
}

// EncodeFixed32 writes value into dst[0:4].
func EncodeFixed32(dst []byte, value uint32) {
	binary.LittleEndian.PutUint32(dst, value)
}

// EncodeFixed64 writes value into dst[0:8].
func EncodeFixed64(dst []byte, value uint64) {
	binary.LittleEndian.PutUint64(dst, value)
}

// DecodeFixed32 reads a little-endian uint32. REQUIRES: len(src) >= 4.
func DecodeFixed32(src []byte) uint32 {
	return binary.LittleEndian.Uint32(src)
}

// DecodeFixed64 reads a little-endian uint64. REQUIRES: len(src) >= 8.
func DecodeFixed64(src []byte) uint64 {
	return binary.LittleEndian.Uint64(src)
}

// AppendVarint32 appends value as a varint.
func AppendVarint32(dst []byte, value uint32) []byte {
	return AppendVarint64(dst, uint64(value))
}

// AppendVarint64 appends value as a varint.
func AppendVarint64(dst []byte, value uint64) []byte {
	for value >= 0x80 {
		dst = append(dst, byte(value)|0x80)
		value >>= 7
	}
	return append(dst, byte(value))
}

// VarintLength returns the number of bytes AppendVarint64 writes for v.
func VarintLength(v uint64) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}

// DecodeVarint32 decodes a varint32 from the front of src and returns the
// value and the number of bytes consumed.
func DecodeVarint32(src []byte) (uint32, int, error) {
	v, n, err := decodeVarint(src, MaxVarint32Length)
	if err != nil {
		return 0, 0, err
	}
	if v > 0xffffffff {
		return 0, 0, ErrVarintOverflow
	}
	return uint32(v), n, nil
}

// DecodeVarint64 decodes a varint64 from the front of src.
func DecodeVarint64(src []byte) (uint64, int, error) {
	return decodeVarint(src, MaxVarint64Length)
}

func decodeVarint(src []byte, maxLen int) (uint64, int, error) {
	var v uint64
	var shift uint
	for i := 0; i < maxLen; i++ {
		if i >= len(src) {
			return 0, 0, ErrShortBuffer
		}
		b := src[i]
		v |= uint64(b&0x7f) << shift
		if b < 0x80 {
			return v, i + 1, nil
		}
		shift += 7
	}
	return 0, 0, ErrVarintOverflow
}

// AppendLengthPrefixedSlice appends [varint32 len][value].
func AppendLengthPrefixedSlice(dst, value []byte) []byte {
	dst = AppendVarint32(dst, uint32(len(value)))
	return append(dst, value...)
}

// DecodeLengthPrefixedSlice decodes [varint32 len][bytes] from src. The
// returned slice aliases src.
func DecodeLengthPrefixedSlice(src []byte) ([]byte, int, error) {
	length, n, err := DecodeVarint32(src)
	if err != nil {
		return nil, 0, err
	}
	end := n + int(length)
	if end > len(src) || end < n {
		return nil, 0, ErrShortBuffer
	}
	return src[n:end:end], end, nil
}

// Reader consumes values from the front of a buffer. The first failure
// sticks: later reads return zero values and Err reports the cause.
type Reader struct {
	buf []byte
	err error
}

// NewReader returns a Reader over buf. Slices it returns alias buf.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Err returns the first decode error, if any.
func (r *Reader) Err() error { return r.err }

// Len returns the number of unread bytes.
func (r *Reader) Len() int { return len(r.buf) }

// Rest returns the unread bytes without consuming them.
func (r *Reader) Rest() []byte { return r.buf }

// Byte reads one byte.
func (r *Reader) Byte() byte {
	if r.err != nil {
		return 0
	}
	if len(r.buf) == 0 {
		r.err = ErrShortBuffer
		return 0
	}
	b := r.buf[0]
	r.buf = r.buf[1:]
	return b
}

// Varint32 reads a varint32.
func (r *Reader) Varint32() uint32 {
	if r.err != nil {
		return 0
	}
	v, n, err := DecodeVarint32(r.buf)
	if err != nil {
		r.err = err
		return 0
	}
	r.buf = r.buf[n:]
	return v
}

// LengthPrefixed reads a [varint32 len][bytes] slice.
func (r *Reader) LengthPrefixed() []byte {
	if r.err != nil {
		return nil
	}
	v, n, err := DecodeLengthPrefixedSlice(r.buf)
	if err != nil {
		r.err = err
		return nil
	}
	r.buf = r.buf[n:]
	return v
}

// Bytes reads exactly n bytes.
func (r *Reader) Bytes(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || n > len(r.buf) {
		r.err = ErrShortBuffer
		return nil
	}
	v := r.buf[:n:n]
	r.buf = r.buf[n:]
	return v
}
