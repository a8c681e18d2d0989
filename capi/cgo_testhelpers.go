// Test support only. capi_test.go cannot import "C", so the Go-typed
// wrappers it needs over the exported functions live here. Nothing in the
// library calls them.

package main

/*
#include <stdlib.h>
#include "widekv_c.h"
*/
import "C"

import "unsafe"

type testColumn struct {
	Name, Value string
}

// cError is a C error pointer owned by a test.
type cError struct {
	p *C.char
}

func (e *cError) ptr() **C.char { return &e.p }

func (e *cError) held() bool { return e.p != nil }

func (e *cError) message() string {
	if e.p == nil {
		return ""
	}
	return C.GoString(e.p)
}

func (e *cError) free() {
	rocksdb_free(unsafe.Pointer(e.p))
	e.p = nil
}

// cList copies ss into C memory and returns the pointer and size arrays.
type cList struct {
	ptrs  []*C.char
	sizes []C.size_t
}

func newCList(ss []string) *cList {
	l := &cList{ptrs: make([]*C.char, len(ss)), sizes: make([]C.size_t, len(ss))}
	for i, s := range ss {
		l.ptrs[i] = (*C.char)(C.CBytes([]byte(s)))
		l.sizes[i] = C.size_t(len(s))
	}
	return l
}

func (l *cList) list() (**C.char, *C.size_t) {
	if len(l.ptrs) == 0 {
		return nil, nil
	}
	return &l.ptrs[0], &l.sizes[0]
}

func (l *cList) free() {
	for _, p := range l.ptrs {
		C.free(unsafe.Pointer(p))
	}
}

func testOpen(dir string, e *cError) *C.rocksdb_t {
	opts := rocksdb_options_create()
	defer rocksdb_options_destroy(opts)
	rocksdb_options_set_create_if_missing(opts, 1)
	rocksdb_options_set_info_log_level(opts, infoLogError)
	rocksdb_options_set_compression(opts, C.rocksdb_zstd_compression)
	name := C.CString(dir)
	defer C.free(unsafe.Pointer(name))
	return rocksdb_open(opts, name, e.ptr())
}

func testPutEntity(d *C.rocksdb_t, cf *C.rocksdb_column_family_handle_t, key string, names, values []string, e *cError) {
	wo := rocksdb_writeoptions_create()
	defer rocksdb_writeoptions_destroy(wo)
	k := newCList([]string{key})
	defer k.free()
	n, v := newCList(names), newCList(values)
	defer n.free()
	defer v.free()
	nl, ns := n.list()
	vl, vs := v.list()
	rocksdb_put_entity_cf(d, wo, cf, k.ptrs[0], k.sizes[0], C.size_t(len(names)), nl, ns, vl, vs, e.ptr())
}

func testBatchPutEntity(b *C.rocksdb_writebatch_t, cf *C.rocksdb_column_family_handle_t, key string, names, values []string, e *cError) {
	k := newCList([]string{key})
	defer k.free()
	n, v := newCList(names), newCList(values)
	defer n.free()
	defer v.free()
	nl, ns := n.list()
	vl, vs := v.list()
	rocksdb_writebatch_put_entity_cf(b, cf, k.ptrs[0], k.sizes[0], C.size_t(len(names)), nl, ns, vl, vs, e.ptr())
}

func testWrite(d *C.rocksdb_t, b *C.rocksdb_writebatch_t, e *cError) {
	wo := rocksdb_writeoptions_create()
	defer rocksdb_writeoptions_destroy(wo)
	rocksdb_writeoptions_set_sync(wo, 1)
	rocksdb_write(d, wo, b, e.ptr())
}

func testGetEntity(d *C.rocksdb_t, cf *C.rocksdb_column_family_handle_t, key string, e *cError) *C.rocksdb_pinnablewidecolumns_t {
	ro := rocksdb_readoptions_create()
	defer rocksdb_readoptions_destroy(ro)
	k := newCList([]string{key})
	defer k.free()
	return rocksdb_get_entity_cf(d, ro, cf, k.ptrs[0], k.sizes[0], e.ptr())
}

func testPinnedColumns(v *C.rocksdb_pinnablewidecolumns_t) []testColumn {
	out := make([]testColumn, int(rocksdb_pinnablewidecolumns_size(v)))
	for i := range out {
		var nl, vl C.size_t
		name := rocksdb_pinnablewidecolumns_name(v, C.size_t(i), &nl)
		value := rocksdb_pinnablewidecolumns_value(v, C.size_t(i), &vl)
		out[i] = testColumn{C.GoStringN(name, C.int(nl)), C.GoStringN(value, C.int(vl))}
	}
	return out
}

func testColumns(v *C.rocksdb_widecolumns_t) []testColumn {
	out := make([]testColumn, int(rocksdb_widecolumns_size(v)))
	for i := range out {
		var nl, vl C.size_t
		name := rocksdb_widecolumns_name(v, C.size_t(i), &nl)
		value := rocksdb_widecolumns_value(v, C.size_t(i), &vl)
		out[i] = testColumn{C.GoStringN(name, C.int(nl)), C.GoStringN(value, C.int(vl))}
	}
	return out
}

// accessorResult is what a name or value accessor returned.
type accessorResult struct {
	Null bool
	Len  int
}

// testNullAccessors calls every name and value accessor with a NULL
// handle, once with a length pointer and once without.
func testNullAccessors() []accessorResult {
	var out []accessorResult
	record := func(p *C.char, n C.size_t) {
		out = append(out, accessorResult{p == nil, int(n)})
	}
	n := C.size_t(7)
	record(rocksdb_pinnablewidecolumns_name(nil, 0, &n), n)
	n = 7
	record(rocksdb_pinnablewidecolumns_value(nil, 3, &n), n)
	n = 7
	record(rocksdb_widecolumns_name(nil, 0, &n), n)
	n = 7
	record(rocksdb_widecolumns_value(nil, 3, &n), n)
	record(rocksdb_pinnablewidecolumns_name(nil, 0, nil), 0)
	record(rocksdb_widecolumns_value(nil, 0, nil), 0)
	return out
}

func testIterator(d *C.rocksdb_t, cf *C.rocksdb_column_family_handle_t) *C.rocksdb_iterator_t {
	ro := rocksdb_readoptions_create()
	defer rocksdb_readoptions_destroy(ro)
	return rocksdb_create_iterator_cf(d, ro, cf)
}

func testIterKey(it *C.rocksdb_iterator_t) string {
	var n C.size_t
	k := rocksdb_iter_key(it, &n)
	return C.GoStringN(k, C.int(n))
}

func testCreateColumnFamily(d *C.rocksdb_t, name string, e *cError) *C.rocksdb_column_family_handle_t {
	n := C.CString(name)
	defer C.free(unsafe.Pointer(n))
	return rocksdb_create_column_family(d, nil, n, e.ptr())
}

func testProperty(d *C.rocksdb_t, name string) (string, bool) {
	n := C.CString(name)
	defer C.free(unsafe.Pointer(n))
	v := rocksdb_property_value(d, n)
	if v == nil {
		return "", false
	}
	defer rocksdb_free(unsafe.Pointer(v))
	return C.GoString(v), true
}

func testBuildInfo(program string, verbose bool) string {
	p := C.CString(program)
	defer C.free(unsafe.Pointer(p))
	var flag C.uchar
	if verbose {
		flag = 1
	}
	s := widekv_build_info_string(p, flag)
	defer rocksdb_free(unsafe.Pointer(s))
	return C.GoString(s)
}

func testVersion() string {
	s := widekv_version_string()
	defer rocksdb_free(unsafe.Pointer(s))
	return C.GoString(s)
}
