// Package batch implements the encoded write batch applied atomically by
// the engine and stored verbatim as one log record.
//
// Layout:
//
//	header (12 bytes): sequence (fixed64) | count (fixed32)
//	record*:           tag | [varint32 cf id] | key | [value]
//
// Keys and values are length-prefixed. Tags without a column family id
// address family 0. Entity records carry the serialized column set as
// their value. Tag codes match RocksDB's db/write_batch.cc.
package batch

import (
	"errors"
	"fmt"

	"github.com/aalhour/widekv/internal/dbformat"
	"github.com/aalhour/widekv/internal/encoding"
)

// HeaderSize is the size of the batch header.
const HeaderSize = 12

var (
	// ErrCorrupted is returned for malformed batch contents.
	ErrCorrupted = errors.New("batch: corrupted write batch")

	// ErrTooSmall is returned for data shorter than the header.
	ErrTooSmall = errors.New("batch: too small")
)

// WriteBatch is an encoded sequence of updates.
type WriteBatch struct {
	data []byte
}

// New returns an empty batch.
func New() *WriteBatch {
	return &WriteBatch{data: make([]byte, HeaderSize)}
}

// FromData wraps an encoded batch, as read back from a log. data is not
// copied.
func FromData(data []byte) (*WriteBatch, error) {
	if len(data) < HeaderSize {
		return nil, ErrTooSmall
	}
	return &WriteBatch{data: data}, nil
}

// Data returns the encoded batch.
func (wb *WriteBatch) Data() []byte { return wb.data }

// Size returns the encoded size in bytes.
func (wb *WriteBatch) Size() int { return len(wb.data) }

// Clear drops every record and resets the header.
func (wb *WriteBatch) Clear() {
	wb.data = wb.data[:HeaderSize]
	clear(wb.data)
}

// Count returns the number of records.
func (wb *WriteBatch) Count() uint32 {
	return encoding.DecodeFixed32(wb.data[8:])
}

func (wb *WriteBatch) setCount(n uint32) {
	encoding.EncodeFixed32(wb.data[8:], n)
}

// Sequence returns the sequence assigned to the first record.
func (wb *WriteBatch) Sequence() dbformat.SequenceNumber {
	return dbformat.SequenceNumber(encoding.DecodeFixed64(wb.data))
}

// SetSequence assigns the sequence of the first record; later records
// take consecutive numbers.
func (wb *WriteBatch) SetSequence(seq dbformat.SequenceNumber) {
	encoding.EncodeFixed64(wb.data, uint64(seq))
}

// Put adds a plain value.
func (wb *WriteBatch) Put(cfID uint32, key, value []byte) {
	wb.record(dbformat.TypeValue, dbformat.TypeColumnFamilyValue, cfID, key, value, true)
}

// Delete adds a tombstone.
func (wb *WriteBatch) Delete(cfID uint32, key []byte) {
	wb.record(dbformat.TypeDeletion, dbformat.TypeColumnFamilyDeletion, cfID, key, nil, false)
}

// PutEntity adds an entity whose serialized columns are entity.
func (wb *WriteBatch) PutEntity(cfID uint32, key, entity []byte) {
	wb.record(dbformat.TypeWideColumnEntity, dbformat.TypeColumnFamilyWideColumnEntity, cfID, key, entity, true)
}

func (wb *WriteBatch) record(tag, cfTag dbformat.ValueType, cfID uint32, key, value []byte, hasValue bool) {
	if cfID == 0 {
		wb.data = append(wb.data, byte(tag))
	} else {
		wb.data = append(wb.data, byte(cfTag))
		wb.data = encoding.AppendVarint32(wb.data, cfID)
	}
	wb.data = encoding.AppendLengthPrefixedSlice(wb.data, key)
	if hasValue {
		wb.data = encoding.AppendLengthPrefixedSlice(wb.data, value)
	}
	wb.setCount(wb.Count() + 1)
}

// Append adds every record of src to wb.
func (wb *WriteBatch) Append(src *WriteBatch) {
	wb.data = append(wb.data, src.data[HeaderSize:]...)
	wb.setCount(wb.Count() + src.Count())
}

// Handler receives the records of a batch in order. Slices alias the
// batch data.
type Handler interface {
	Put(cfID uint32, key, value []byte) error
	Delete(cfID uint32, key []byte) error
	PutEntity(cfID uint32, key, entity []byte) error
}

// Iterate decodes every record and passes it to h. It fails with
// ErrCorrupted when the records do not match the header count.
func (wb *WriteBatch) Iterate(h Handler) error {
	if len(wb.data) < HeaderSize {
		return ErrTooSmall
	}
	r := encoding.NewReader(wb.data[HeaderSize:])
	var seen uint32
	for r.Len() > 0 {
		tag := dbformat.ValueType(r.Byte())
		var cfID uint32
		switch tag {
		case dbformat.TypeColumnFamilyValue, dbformat.TypeColumnFamilyDeletion, dbformat.TypeColumnFamilyWideColumnEntity:
			cfID = r.Varint32()
		case dbformat.TypeNoop:
			continue
		}

		key := r.LengthPrefixed()
		var err error
		switch tag {
		case dbformat.TypeValue, dbformat.TypeColumnFamilyValue:
			value := r.LengthPrefixed()
			if r.Err() == nil {
				err = h.Put(cfID, key, value)
			}
		case dbformat.TypeDeletion, dbformat.TypeColumnFamilyDeletion:
			if r.Err() == nil {
				err = h.Delete(cfID, key)
			}
		case dbformat.TypeWideColumnEntity, dbformat.TypeColumnFamilyWideColumnEntity:
			entity := r.LengthPrefixed()
			if r.Err() == nil {
				err = h.PutEntity(cfID, key, entity)
			}
		default:
			return fmt.Errorf("%w: unknown tag %#x", ErrCorrupted, byte(tag))
		}
		if r.Err() != nil {
			return fmt.Errorf("%w: %v", ErrCorrupted, r.Err())
		}
		if err != nil {
			return err
		}
		seen++
	}
	if seen != wb.Count() {
		return fmt.Errorf("%w: count %d, found %d records", ErrCorrupted, wb.Count(), seen)
	}
	return nil
}
