// engine.go implements the contract an engine satisfies to back the entry
// points.
//
// Reference: RocksDB include/rocksdb/db.h, include/rocksdb/write_batch.h
package widekv

// ColumnFamilyHandle names a column family of an engine.
type ColumnFamilyHandle interface {
	ID() uint32
	Name() string
}

// EntityWriter stores entities. The engine decides how columns are ordered
// and which column sets it accepts; failures are returned as *Status.
type EntityWriter interface {
	PutEntity(wo *WriteOptions, cf ColumnFamilyHandle, key []byte, columns WideColumns) error
}

// EntityReader looks entities up. On success out holds the columns, pinned
// until out is reset. A missing key yields an error matching ErrNotFound.
type EntityReader interface {
	GetEntity(ro *ReadOptions, cf ColumnFamilyHandle, key []byte, out *PinnableWideColumns) error
}

// EntityBatch stages entity writes for a later atomic apply.
type EntityBatch interface {
	PutEntityCF(cf ColumnFamilyHandle, key []byte, columns WideColumns) error
}

// ColumnsIterator is positioned over entities. Columns returns a set the
// iterator never reuses after it moves, so the caller may keep it.
type ColumnsIterator interface {
	Valid() bool
	Columns() WideColumns
}

// Snapshot is a consistent read view identified by its sequence number.
type Snapshot interface {
	Sequence() uint64
}
