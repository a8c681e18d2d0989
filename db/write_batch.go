package db

import (
	"bytes"
	"slices"

	"github.com/aalhour/widekv"
	"github.com/aalhour/widekv/internal/batch"
	"github.com/aalhour/widekv/internal/encoding"
)

// WriteBatch collects writes that Write applies atomically. Entities are
// encoded when staged, so an invalid column set fails at PutEntity rather
// than at Write. A WriteBatch is not safe for concurrent use.
type WriteBatch struct {
	rep *batch.WriteBatch
}

var _ widekv.EntityBatch = (*WriteBatch)(nil)

// NewWriteBatch returns an empty batch.
func NewWriteBatch() *WriteBatch {
	return &WriteBatch{rep: batch.New()}
}

// Put stages key -> value in the default column family.
func (wb *WriteBatch) Put(key, value []byte) { wb.PutCF(nil, key, value) }

// PutCF stages key -> value in cf.
func (wb *WriteBatch) PutCF(cf widekv.ColumnFamilyHandle, key, value []byte) {
	wb.rep.Put(handleID(cf), key, value)
}

// Delete stages a deletion of key in the default column family.
func (wb *WriteBatch) Delete(key []byte) { wb.DeleteCF(nil, key) }

// DeleteCF stages a deletion of key in cf.
func (wb *WriteBatch) DeleteCF(cf widekv.ColumnFamilyHandle, key []byte) {
	wb.rep.Delete(handleID(cf), key)
}

// PutEntity stages key -> columns in the default column family.
func (wb *WriteBatch) PutEntity(key []byte, columns widekv.WideColumns) error {
	return wb.PutEntityCF(nil, key, columns)
}

// PutEntityCF stages key -> columns in cf. Columns are sorted by name; a
// duplicate name fails with Corruption and leaves the batch unchanged.
func (wb *WriteBatch) PutEntityCF(cf widekv.ColumnFamilyHandle, key []byte, columns widekv.WideColumns) error {
	return putEntity(wb.rep, handleID(cf), key, columns)
}

// Count returns the number of staged writes.
func (wb *WriteBatch) Count() int { return int(wb.rep.Count()) }

// Data returns the encoded batch.
func (wb *WriteBatch) Data() []byte { return wb.rep.Data() }

// Clear drops every staged write.
func (wb *WriteBatch) Clear() { wb.rep.Clear() }

func putEntity(rep *batch.WriteBatch, cfID uint32, key []byte, columns widekv.WideColumns) error {
	encoded, err := encodeEntity(columns)
	if err != nil {
		return err
	}
	rep.PutEntity(cfID, key, encoded)
	return nil
}

// encodeEntity serializes a name-sorted copy of columns. The caller's
// order is left untouched.
func encodeEntity(columns widekv.WideColumns) ([]byte, error) {
	sorted := slices.Clone(columns)
	slices.SortStableFunc(sorted, func(a, b widekv.WideColumn) int {
		return bytes.Compare(a.Name, b.Name)
	})
	size := (2+2*len(sorted))*encoding.MaxVarint32Length + sorted.Size()
	return widekv.SerializeEntity(make([]byte, 0, size), sorted)
}
