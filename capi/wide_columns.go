package main

/*
#include <stdlib.h>
#include "widekv_c.h"
*/
import "C"

import (
	"unsafe"

	"github.com/aalhour/widekv"
)

// pinnedColumns backs rocksdb_pinnablewidecolumns_t. The engine pin is
// held until destroy, alongside the C copy of the columns.
type pinnedColumns struct {
	pin  *widekv.PinnableWideColumns
	cols *cColumns
}

func pinnedOf(p *C.rocksdb_pinnablewidecolumns_t) *pinnedColumns {
	return handleValue[*pinnedColumns](unsafe.Pointer(p))
}

func ownedOf(p *C.rocksdb_widecolumns_t) *cColumns {
	return handleValue[*cColumns](unsafe.Pointer(p))
}

//export rocksdb_put_entity_cf
func rocksdb_put_entity_cf(p *C.rocksdb_t, wo *C.rocksdb_writeoptions_t,
	cf *C.rocksdb_column_family_handle_t, key *C.char, keylen C.size_t,
	numColumns C.size_t, namesList **C.char, namesListSizes *C.size_t,
	valuesList **C.char, valuesListSizes *C.size_t, errptr **C.char,
) {
	widekv.PutEntityCF(dbOf(p).db, writeOptionsOf(wo), cfOf(cf), cBytes(key, keylen),
		cBytesList(numColumns, namesList, namesListSizes),
		cBytesList(numColumns, valuesList, valuesListSizes),
		errorSink{errptr})
}

//export rocksdb_get_entity_cf
func rocksdb_get_entity_cf(p *C.rocksdb_t, ro *C.rocksdb_readoptions_t,
	cf *C.rocksdb_column_family_handle_t, key *C.char, keylen C.size_t, errptr **C.char,
) *C.rocksdb_pinnablewidecolumns_t {
	pin := widekv.GetEntityCF(dbOf(p).db, readOptionsOf(ro), cfOf(cf), cBytes(key, keylen), errorSink{errptr})
	return (*C.rocksdb_pinnablewidecolumns_t)(newHandle(&pinnedColumns{
		pin:  pin,
		cols: copyColumns(pin.Columns()),
	}))
}

//export rocksdb_iter_columns
func rocksdb_iter_columns(it *C.rocksdb_iterator_t) *C.rocksdb_widecolumns_t {
	var owned *widekv.OwnedWideColumns
	if ci := iteratorOf(it); ci != nil {
		owned = widekv.IterColumns(ci.it)
	} else {
		owned = widekv.IterColumns(nil)
	}
	defer owned.Destroy()
	return (*C.rocksdb_widecolumns_t)(newHandle(copyColumns(owned.Columns())))
}

//export rocksdb_writebatch_put_entity_cf
func rocksdb_writebatch_put_entity_cf(b *C.rocksdb_writebatch_t,
	cf *C.rocksdb_column_family_handle_t, key *C.char, keylen C.size_t,
	numColumns C.size_t, namesList **C.char, namesListSizes *C.size_t,
	valuesList **C.char, valuesListSizes *C.size_t, errptr **C.char,
) {
	widekv.WriteBatchPutEntityCF(batchOf(b), cfOf(cf), cBytes(key, keylen),
		cBytesList(numColumns, namesList, namesListSizes),
		cBytesList(numColumns, valuesList, valuesListSizes),
		errorSink{errptr})
}

//export rocksdb_pinnablewidecolumns_destroy
func rocksdb_pinnablewidecolumns_destroy(v *C.rocksdb_pinnablewidecolumns_t) {
	pc := pinnedOf(v)
	if pc == nil {
		return
	}
	pc.cols.free()
	pc.pin.Destroy()
	freeHandle(unsafe.Pointer(v))
}

//export rocksdb_pinnablewidecolumns_size
func rocksdb_pinnablewidecolumns_size(v *C.rocksdb_pinnablewidecolumns_t) C.size_t {
	pc := pinnedOf(v)
	if pc == nil {
		return 0
	}
	return C.size_t(pc.cols.size())
}

func pinnedColumnsOf(v *C.rocksdb_pinnablewidecolumns_t) *cColumns {
	if pc := pinnedOf(v); pc != nil {
		return pc.cols
	}
	return nil
}

//export rocksdb_pinnablewidecolumns_name
func rocksdb_pinnablewidecolumns_name(v *C.rocksdb_pinnablewidecolumns_t, n C.size_t, nameLen *C.size_t) *C.char {
	return pinnedColumnsOf(v).column(n, false, nameLen)
}

//export rocksdb_pinnablewidecolumns_value
func rocksdb_pinnablewidecolumns_value(v *C.rocksdb_pinnablewidecolumns_t, n C.size_t, valueLen *C.size_t) *C.char {
	return pinnedColumnsOf(v).column(n, true, valueLen)
}

//export rocksdb_widecolumns_destroy
func rocksdb_widecolumns_destroy(v *C.rocksdb_widecolumns_t) {
	cols := ownedOf(v)
	if cols == nil {
		return
	}
	cols.free()
	freeHandle(unsafe.Pointer(v))
}

//export rocksdb_widecolumns_size
func rocksdb_widecolumns_size(v *C.rocksdb_widecolumns_t) C.size_t {
	return C.size_t(ownedOf(v).size())
}

//export rocksdb_widecolumns_name
func rocksdb_widecolumns_name(v *C.rocksdb_widecolumns_t, n C.size_t, nameLen *C.size_t) *C.char {
	return ownedOf(v).column(n, false, nameLen)
}

//export rocksdb_widecolumns_value
func rocksdb_widecolumns_value(v *C.rocksdb_widecolumns_t, n C.size_t, valueLen *C.size_t) *C.char {
	return ownedOf(v).column(n, true, valueLen)
}
