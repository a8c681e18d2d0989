// binding.go implements the four entity entry points behind the C ABI.
// Each translates between parallel name/value arrays and WideColumns,
// delegates to the engine and reports failures into an ErrorSink. None
// of them lets a panic escape.
//
// Reference: RocksDB db/c.cc (rocksdb_put_entity_cf, rocksdb_get_entity_cf,
// rocksdb_iter_columns, rocksdb_writebatch_put_entity_cf)
package widekv

import "fmt"

// PutEntityCF stores key -> columns(names, values) in cf. On failure the
// engine's error is reported into errs; on success errs is not touched.
func PutEntityCF(db EntityWriter, wo *WriteOptions, cf ColumnFamilyHandle,
	key []byte, names, values [][]byte, errs ErrorSink,
) {
	defer recoverInto(errs, "put entity")
	columns, err := MarshalColumns(names, values)
	if err == nil {
		err = db.PutEntity(wo, cf, key, columns)
	}
	report(errs, err)
}

// GetEntityCF looks key up in cf. It always returns a handle: empty when
// the key is missing or the lookup failed, pinned to the engine's result
// otherwise. A missing key is not reported.
func GetEntityCF(db EntityReader, ro *ReadOptions, cf ColumnFamilyHandle,
	key []byte, errs ErrorSink,
) (out *PinnableWideColumns) {
	out = NewPinnableWideColumns()
	defer func() {
		if r := recover(); r != nil {
			out.Reset()
			report(errs, Aborted(fmt.Sprintf("get entity: panic: %v", r)))
		}
	}()
	if err := db.GetEntity(ro, cf, key, out); err != nil {
		out.Reset()
		if !IsNotFound(err) {
			report(errs, err)
		}
	}
	return out
}

// IterColumns moves the current columns of it into a new handle. Calling it
// on an invalid iterator is a caller error; it yields an empty handle.
func IterColumns(it ColumnsIterator) *OwnedWideColumns {
	if it == nil || !it.Valid() {
		return NewOwnedWideColumns(nil)
	}
	return NewOwnedWideColumns(it.Columns())
}

// WriteBatchPutEntityCF stages key -> columns(names, values) in b. A
// staging failure is reported into errs.
func WriteBatchPutEntityCF(b EntityBatch, cf ColumnFamilyHandle,
	key []byte, names, values [][]byte, errs ErrorSink,
) {
	defer recoverInto(errs, "write batch put entity")
	columns, err := MarshalColumns(names, values)
	if err == nil {
		err = b.PutEntityCF(cf, key, columns)
	}
	report(errs, err)
}

func recoverInto(errs ErrorSink, op string) {
	if r := recover(); r != nil {
		report(errs, Aborted(fmt.Sprintf("%s: panic: %v", op, r)))
	}
}
