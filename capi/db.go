package main

/*
#include <stdlib.h>
#include "widekv_c.h"
*/
import "C"

import (
	"unsafe"

	"github.com/aalhour/widekv"
	"github.com/aalhour/widekv/db"
	"github.com/aalhour/widekv/internal/compression"
	"github.com/aalhour/widekv/internal/logging"
)

// RocksDB InfoLogLevel values.
const (
	infoLogDebug = 0
	infoLogInfo  = 1
	infoLogWarn  = 2
	infoLogError = 3
)

type cDB struct {
	db     *db.DB
	logger logging.Logger
}

type cIterator struct {
	it  *db.Iterator
	key unsafe.Pointer
}

func dbOf(p *C.rocksdb_t) *cDB {
	return handleValue[*cDB](unsafe.Pointer(p))
}

func cfOf(p *C.rocksdb_column_family_handle_t) widekv.ColumnFamilyHandle {
	h := handleValue[*db.ColumnFamilyHandle](unsafe.Pointer(p))
	if h == nil {
		return nil
	}
	return h
}

func readOptionsOf(p *C.rocksdb_readoptions_t) *widekv.ReadOptions {
	return handleValue[*widekv.ReadOptions](unsafe.Pointer(p))
}

func writeOptionsOf(p *C.rocksdb_writeoptions_t) *widekv.WriteOptions {
	return handleValue[*widekv.WriteOptions](unsafe.Pointer(p))
}

func batchOf(p *C.rocksdb_writebatch_t) *db.WriteBatch {
	return handleValue[*db.WriteBatch](unsafe.Pointer(p))
}

func iteratorOf(p *C.rocksdb_iterator_t) *cIterator {
	return handleValue[*cIterator](unsafe.Pointer(p))
}

//export rocksdb_options_create
func rocksdb_options_create() *C.rocksdb_options_t {
	opts := db.DefaultOptions()
	opts.Logger = logging.NewDefaultLogger(logging.LevelWarn)
	return (*C.rocksdb_options_t)(newHandle(opts))
}

//export rocksdb_options_destroy
func rocksdb_options_destroy(opt *C.rocksdb_options_t) {
	freeHandle(unsafe.Pointer(opt))
}

//export rocksdb_options_set_create_if_missing
func rocksdb_options_set_create_if_missing(opt *C.rocksdb_options_t, v C.uchar) {
	handleValue[*db.Options](unsafe.Pointer(opt)).CreateIfMissing = v != 0
}

//export rocksdb_options_set_error_if_exists
func rocksdb_options_set_error_if_exists(opt *C.rocksdb_options_t, v C.uchar) {
	handleValue[*db.Options](unsafe.Pointer(opt)).ErrorIfExists = v != 0
}

//export rocksdb_options_set_paranoid_checks
func rocksdb_options_set_paranoid_checks(opt *C.rocksdb_options_t, v C.uchar) {
	handleValue[*db.Options](unsafe.Pointer(opt)).ParanoidChecks = v != 0
}

// rocksdb_options_set_compression selects the log codec of a new database.
//
//export rocksdb_options_set_compression
func rocksdb_options_set_compression(opt *C.rocksdb_options_t, t C.int) {
	handleValue[*db.Options](unsafe.Pointer(opt)).WALCompression = compression.Type(t)
}

//export rocksdb_options_set_info_log_level
func rocksdb_options_set_info_log_level(opt *C.rocksdb_options_t, level C.int) {
	l := logging.LevelError
	switch level {
	case infoLogDebug:
		l = logging.LevelDebug
	case infoLogInfo:
		l = logging.LevelInfo
	case infoLogWarn:
		l = logging.LevelWarn
	case infoLogError:
		l = logging.LevelError
	}
	handleValue[*db.Options](unsafe.Pointer(opt)).Logger = logging.NewDefaultLogger(l)
}

//export rocksdb_options_enable_statistics
func rocksdb_options_enable_statistics(opt *C.rocksdb_options_t) {
	handleValue[*db.Options](unsafe.Pointer(opt)).Statistics = widekv.NewStatistics()
}

// rocksdb_options_statistics_get_string returns the statistics dump, or
// NULL when statistics are disabled. Free it with rocksdb_free.
//
//export rocksdb_options_statistics_get_string
func rocksdb_options_statistics_get_string(opt *C.rocksdb_options_t) *C.char {
	stats := handleValue[*db.Options](unsafe.Pointer(opt)).Statistics
	if stats == nil {
		return nil
	}
	return C.CString(stats.String())
}

//export rocksdb_open
func rocksdb_open(opt *C.rocksdb_options_t, name *C.char, errptr **C.char) *C.rocksdb_t {
	opts := handleValue[*db.Options](unsafe.Pointer(opt))
	var logger logging.Logger
	if opts != nil {
		logger = opts.Logger
	}
	defer recoverTo(errptr, logger, "open")

	d, err := db.Open(C.GoString(name), opts)
	if saveError(errptr, err) {
		return nil
	}
	return (*C.rocksdb_t)(newHandle(&cDB{db: d, logger: logging.OrDefault(logger)}))
}

//export rocksdb_close
func rocksdb_close(p *C.rocksdb_t) {
	c := dbOf(p)
	if c == nil {
		return
	}
	if err := c.db.Close(); err != nil {
		c.logger.Errorf(logging.NSBinding+"close: %v", err)
	}
	freeHandle(unsafe.Pointer(p))
}

//export rocksdb_property_value
func rocksdb_property_value(p *C.rocksdb_t, name *C.char) *C.char {
	v, ok := dbOf(p).db.GetProperty(C.GoString(name))
	if !ok {
		return nil
	}
	return C.CString(v)
}

// rocksdb_create_column_family ignores opt; families share the database
// options.
//
//export rocksdb_create_column_family
func rocksdb_create_column_family(p *C.rocksdb_t, opt *C.rocksdb_options_t, name *C.char, errptr **C.char) *C.rocksdb_column_family_handle_t {
	c := dbOf(p)
	defer recoverTo(errptr, c.logger, "create column family")
	h, err := c.db.CreateColumnFamily(C.GoString(name))
	if saveError(errptr, err) {
		return nil
	}
	return (*C.rocksdb_column_family_handle_t)(newHandle(h))
}

//export rocksdb_drop_column_family
func rocksdb_drop_column_family(p *C.rocksdb_t, cf *C.rocksdb_column_family_handle_t, errptr **C.char) {
	c := dbOf(p)
	defer recoverTo(errptr, c.logger, "drop column family")
	h := handleValue[*db.ColumnFamilyHandle](unsafe.Pointer(cf))
	saveError(errptr, c.db.DropColumnFamily(h))
}

//export rocksdb_get_default_column_family_handle
func rocksdb_get_default_column_family_handle(p *C.rocksdb_t) *C.rocksdb_column_family_handle_t {
	return (*C.rocksdb_column_family_handle_t)(newHandle(dbOf(p).db.DefaultColumnFamily()))
}

//export rocksdb_column_family_handle_destroy
func rocksdb_column_family_handle_destroy(cf *C.rocksdb_column_family_handle_t) {
	freeHandle(unsafe.Pointer(cf))
}

//export rocksdb_readoptions_create
func rocksdb_readoptions_create() *C.rocksdb_readoptions_t {
	return (*C.rocksdb_readoptions_t)(newHandle(widekv.DefaultReadOptions()))
}

//export rocksdb_readoptions_destroy
func rocksdb_readoptions_destroy(opt *C.rocksdb_readoptions_t) {
	freeHandle(unsafe.Pointer(opt))
}

//export rocksdb_writeoptions_create
func rocksdb_writeoptions_create() *C.rocksdb_writeoptions_t {
	return (*C.rocksdb_writeoptions_t)(newHandle(widekv.DefaultWriteOptions()))
}

//export rocksdb_writeoptions_destroy
func rocksdb_writeoptions_destroy(opt *C.rocksdb_writeoptions_t) {
	freeHandle(unsafe.Pointer(opt))
}

//export rocksdb_writeoptions_set_sync
func rocksdb_writeoptions_set_sync(opt *C.rocksdb_writeoptions_t, v C.uchar) {
	writeOptionsOf(opt).Sync = v != 0
}

//export rocksdb_writeoptions_disable_WAL
func rocksdb_writeoptions_disable_WAL(opt *C.rocksdb_writeoptions_t, disable C.int) {
	writeOptionsOf(opt).DisableWAL = disable != 0
}

//export rocksdb_writebatch_create
func rocksdb_writebatch_create() *C.rocksdb_writebatch_t {
	return (*C.rocksdb_writebatch_t)(newHandle(db.NewWriteBatch()))
}

//export rocksdb_writebatch_destroy
func rocksdb_writebatch_destroy(b *C.rocksdb_writebatch_t) {
	freeHandle(unsafe.Pointer(b))
}

//export rocksdb_writebatch_count
func rocksdb_writebatch_count(b *C.rocksdb_writebatch_t) C.int {
	return C.int(batchOf(b).Count())
}

//export rocksdb_writebatch_clear
func rocksdb_writebatch_clear(b *C.rocksdb_writebatch_t) {
	batchOf(b).Clear()
}

//export rocksdb_write
func rocksdb_write(p *C.rocksdb_t, wo *C.rocksdb_writeoptions_t, b *C.rocksdb_writebatch_t, errptr **C.char) {
	c := dbOf(p)
	defer recoverTo(errptr, c.logger, "write")
	saveError(errptr, c.db.Write(writeOptionsOf(wo), batchOf(b)))
}

// rocksdb_create_iterator_cf returns NULL when cf has been dropped.
//
//export rocksdb_create_iterator_cf
func rocksdb_create_iterator_cf(p *C.rocksdb_t, ro *C.rocksdb_readoptions_t, cf *C.rocksdb_column_family_handle_t) *C.rocksdb_iterator_t {
	c := dbOf(p)
	it, err := c.db.NewIteratorCF(readOptionsOf(ro), cfOf(cf))
	if err != nil {
		c.logger.Warnf(logging.NSBinding+"create iterator: %v", err)
		return nil
	}
	return (*C.rocksdb_iterator_t)(newHandle(&cIterator{it: it}))
}

//export rocksdb_iter_destroy
func rocksdb_iter_destroy(p *C.rocksdb_iterator_t) {
	ci := iteratorOf(p)
	if ci == nil {
		return
	}
	ci.dropKey()
	_ = ci.it.Close()
	freeHandle(unsafe.Pointer(p))
}

//export rocksdb_iter_valid
func rocksdb_iter_valid(p *C.rocksdb_iterator_t) C.uchar {
	if ci := iteratorOf(p); ci != nil && ci.it.Valid() {
		return 1
	}
	return 0
}

//export rocksdb_iter_seek_to_first
func rocksdb_iter_seek_to_first(p *C.rocksdb_iterator_t) {
	ci := iteratorOf(p)
	ci.dropKey()
	ci.it.SeekToFirst()
}

//export rocksdb_iter_seek
func rocksdb_iter_seek(p *C.rocksdb_iterator_t, k *C.char, klen C.size_t) {
	ci := iteratorOf(p)
	ci.dropKey()
	ci.it.Seek(cBytes(k, klen))
}

//export rocksdb_iter_next
func rocksdb_iter_next(p *C.rocksdb_iterator_t) {
	ci := iteratorOf(p)
	ci.dropKey()
	ci.it.Next()
}

// rocksdb_iter_key returns the current key. The pointer stays valid until
// the iterator moves or is destroyed.
//
//export rocksdb_iter_key
func rocksdb_iter_key(p *C.rocksdb_iterator_t, klen *C.size_t) *C.char {
	ci := iteratorOf(p)
	if ci.key == nil {
		key := ci.it.Key()
		ci.key = C.CBytes(key)
		*klen = C.size_t(len(key))
		return (*C.char)(ci.key)
	}
	*klen = C.size_t(len(ci.it.Key()))
	return (*C.char)(ci.key)
}

//export rocksdb_iter_get_error
func rocksdb_iter_get_error(p *C.rocksdb_iterator_t, errptr **C.char) {
	saveError(errptr, iteratorOf(p).it.Error())
}

func (ci *cIterator) dropKey() {
	if ci.key != nil {
		C.free(ci.key)
		ci.key = nil
	}
}
