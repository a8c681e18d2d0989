// Command capi builds the widekv C library:
//
//	go build -buildmode=c-shared -o libwidekv.so ./capi
//
// The exported functions follow the RocksDB C API naming so existing
// wide-column bindings link against it unchanged. Every rocksdb_*_t is an
// opaque struct holding a runtime/cgo handle to the Go object; column bytes
// handed to C are copied into C memory owned by the result handle.
package main

/*
#include <stdlib.h>
#include "widekv_c.h"
*/
import "C"

import (
	"fmt"
	"runtime/cgo"
	"unsafe"

	"github.com/aalhour/widekv"
	"github.com/aalhour/widekv/internal/logging"
)

func main() {}

// newHandle stores v behind a C-allocated struct whose only field is the
// handle. The caller casts the result to the concrete rocksdb_*_t type.
func newHandle(v any) unsafe.Pointer {
	p := C.malloc(C.size_t(unsafe.Sizeof(C.uintptr_t(0))))
	*(*C.uintptr_t)(p) = C.uintptr_t(cgo.NewHandle(v))
	return p
}

// handleValue returns the Go value behind p, or the zero T for NULL.
func handleValue[T any](p unsafe.Pointer) T {
	var zero T
	if p == nil {
		return zero
	}
	v, _ := cgo.Handle(*(*C.uintptr_t)(p)).Value().(T)
	return v
}

// freeHandle deletes the handle behind p and frees the struct.
func freeHandle(p unsafe.Pointer) {
	if p == nil {
		return
	}
	cgo.Handle(*(*C.uintptr_t)(p)).Delete()
	C.free(p)
}

// cBytes views C memory as a byte slice for the duration of a call.
func cBytes(p *C.char, n C.size_t) []byte {
	if p == nil || n == 0 {
		return []byte{}
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(p)), int(n))
}

// cBytesList views n C buffers described by parallel pointer and size
// arrays.
func cBytesList(n C.size_t, list **C.char, sizes *C.size_t) [][]byte {
	if n == 0 {
		return [][]byte{}
	}
	ptrs := unsafe.Slice(list, int(n))
	lens := unsafe.Slice(sizes, int(n))
	out := make([][]byte, n)
	for i := range out {
		out[i] = cBytes(ptrs[i], lens[i])
	}
	return out
}

// saveError replaces the message in *errptr with err's, freeing the old
// one. A nil err leaves *errptr alone.
func saveError(errptr **C.char, err error) bool {
	if err == nil || errptr == nil {
		return false
	}
	if *errptr != nil {
		C.free(unsafe.Pointer(*errptr))
	}
	*errptr = C.CString(err.Error())
	return true
}

// errorSink adapts a C error pointer to widekv.ErrorSink.
type errorSink struct {
	errptr **C.char
}

func (s errorSink) Report(err error) bool { return saveError(s.errptr, err) }

// recoverTo turns a panic in a lifecycle function into an error message.
func recoverTo(errptr **C.char, logger logging.Logger, op string) {
	if r := recover(); r != nil {
		err := widekv.Aborted(fmt.Sprintf("%s: panic: %v", op, r))
		logging.OrDefault(logger).Errorf(logging.NSBinding+"%v", err)
		saveError(errptr, err)
	}
}

// cColumns is a column set copied into one C buffer.
type cColumns struct {
	buf    unsafe.Pointer
	names  []span
	values []span
}

type span struct {
	off, n int
}

func copyColumns(cols widekv.WideColumns) *cColumns {
	total := cols.Size()
	c := &cColumns{
		buf:    C.malloc(C.size_t(max(total, 1))),
		names:  make([]span, len(cols)),
		values: make([]span, len(cols)),
	}
	dst := unsafe.Slice((*byte)(c.buf), max(total, 1))
	off := 0
	for i, col := range cols {
		c.names[i] = span{off, copy(dst[off:], col.Name)}
		off += c.names[i].n
		c.values[i] = span{off, copy(dst[off:], col.Value)}
		off += c.values[i].n
	}
	return c
}

func (c *cColumns) size() int {
	if c == nil {
		return 0
	}
	return len(c.names)
}

// column returns column i's name or value with its length in *n. A nil
// set yields NULL and a zero length.
func (c *cColumns) column(i C.size_t, values bool, n *C.size_t) *C.char {
	if c == nil || c.buf == nil {
		if n != nil {
			*n = 0
		}
		return nil
	}
	s := c.names[i]
	if values {
		s = c.values[i]
	}
	if n != nil {
		*n = C.size_t(s.n)
	}
	return (*C.char)(unsafe.Add(c.buf, s.off))
}

func (c *cColumns) free() {
	if c == nil || c.buf == nil {
		return
	}
	C.free(c.buf)
	c.buf, c.names, c.values = nil, nil, nil
}

//export rocksdb_free
func rocksdb_free(ptr unsafe.Pointer) {
	C.free(ptr)
}

//export widekv_version_string
func widekv_version_string() *C.char {
	return C.CString(widekv.VersionString(true))
}

//export widekv_build_info_string
func widekv_build_info_string(program *C.char, verbose C.uchar) *C.char {
	return C.CString(widekv.BuildInfoString(C.GoString(program), verbose != 0))
}
