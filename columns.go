// columns.go implements the column set model and the marshaler that builds
// one from parallel name/value arrays.
//
// Reference: RocksDB include/rocksdb/wide_columns.h
package widekv

import (
	"bytes"
	"fmt"
)

// DefaultColumnName is the name of the column a plain value reads back as.
const DefaultColumnName = ""

// WideColumn is a named value. Either slice may be empty and may contain
// zero bytes.
type WideColumn struct {
	Name  []byte
	Value []byte
}

// WideColumns is an ordered column set. Order is significant, names may
// repeat, and nothing at this layer sorts or validates them.
type WideColumns []WideColumn

// Len returns the number of columns.
func (wc WideColumns) Len() int { return len(wc) }

// Get returns the value of the first column called name.
func (wc WideColumns) Get(name []byte) ([]byte, bool) {
	for _, col := range wc {
		if bytes.Equal(col.Name, name) {
			return col.Value, true
		}
	}
	return nil, false
}

// Size returns the number of name and value bytes in the set.
func (wc WideColumns) Size() int {
	n := 0
	for _, col := range wc {
		n += len(col.Name) + len(col.Value)
	}
	return n
}

// Clone deep-copies the set into a single backing allocation.
func (wc WideColumns) Clone() WideColumns {
	if wc == nil {
		return nil
	}
	buf := make([]byte, 0, wc.Size())
	out := make(WideColumns, len(wc))
	for i, col := range wc {
		start := len(buf)
		buf = append(buf, col.Name...)
		out[i].Name = buf[start:len(buf):len(buf)]
		start = len(buf)
		buf = append(buf, col.Value...)
		out[i].Value = buf[start:len(buf):len(buf)]
	}
	return out
}

// MarshalColumns pairs names[i] with values[i] in input order. The result
// holds views over the caller's buffers, so it is valid only while they are.
// Only the column array is allocated.
func MarshalColumns(names, values [][]byte) (WideColumns, error) {
	if len(names) != len(values) {
		return nil, InvalidArgument(fmt.Sprintf(
			"column names and values differ in length: %d != %d", len(names), len(values)))
	}
	cols := make(WideColumns, len(names))
	for i := range names {
		cols[i] = WideColumn{Name: names[i], Value: values[i]}
	}
	return cols, nil
}
