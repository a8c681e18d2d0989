// pinnable.go implements the two result handles returned to callers.
//
// Reference: RocksDB include/rocksdb/wide_columns.h (PinnableWideColumns)
package widekv

// PinnableWideColumns is a read result whose columns alias storage the
// engine keeps pinned. The pin is held by a release function which runs
// exactly once, on Reset or Destroy.
//
// Accessors are safe on a nil handle. Name and Value panic when i is out
// of [0, Size()).
type PinnableWideColumns struct {
	columns WideColumns
	release func()
}

// NewPinnableWideColumns returns an empty handle.
func NewPinnableWideColumns() *PinnableWideColumns {
	return &PinnableWideColumns{}
}

// SetPlainValue makes the handle a single default column holding value.
// release, if non-nil, unpins value.
func (p *PinnableWideColumns) SetPlainValue(value []byte, release func()) {
	p.Reset()
	p.columns = WideColumns{{Name: []byte{}, Value: value}}
	p.release = release
}

// SetWideColumnValue decodes an encoded entity into the handle. The
// columns alias encoded, which release unpins. On a decode failure the
// handle stays empty and release has already run.
func (p *PinnableWideColumns) SetWideColumnValue(encoded []byte, release func()) error {
	p.Reset()
	columns, err := DeserializeEntity(encoded)
	if err != nil {
		if release != nil {
			release()
		}
		return err
	}
	p.columns = columns
	p.release = release
	return nil
}

// SetColumns makes the handle hold columns as given, with release unpinning
// their storage. Engines with their own entity layout use it instead of
// SetWideColumnValue.
func (p *PinnableWideColumns) SetColumns(columns WideColumns, release func()) {
	p.Reset()
	p.columns = columns
	p.release = release
}

// Reset empties the handle and releases its pin.
func (p *PinnableWideColumns) Reset() {
	if p == nil {
		return
	}
	p.columns = nil
	if rel := p.release; rel != nil {
		p.release = nil
		rel()
	}
}

// Pinned reports whether the handle still holds a pin.
func (p *PinnableWideColumns) Pinned() bool { return p != nil && p.release != nil }

// Columns returns the held columns. They are valid until Reset or Destroy.
func (p *PinnableWideColumns) Columns() WideColumns {
	if p == nil {
		return nil
	}
	return p.columns
}

// Size returns the number of columns; 0 for a nil or destroyed handle.
func (p *PinnableWideColumns) Size() int {
	if p == nil {
		return 0
	}
	return len(p.columns)
}

// Name returns the name of column i. i must be in [0, Size).
func (p *PinnableWideColumns) Name(i int) []byte {
	if p == nil {
		return nil
	}
	return p.columns[i].Name
}

// Value returns the value of column i. i must be in [0, Size).
func (p *PinnableWideColumns) Value(i int) []byte {
	if p == nil {
		return nil
	}
	return p.columns[i].Value
}

// Destroy releases the handle. Slices obtained from it are invalid
// afterwards. Destroying twice is a caller error and does nothing.
func (p *PinnableWideColumns) Destroy() { p.Reset() }

// OwnedWideColumns is a column set owned by the handle, produced by moving
// an iterator's current columns out.
type OwnedWideColumns struct {
	columns WideColumns
}

// NewOwnedWideColumns takes ownership of columns.
func NewOwnedWideColumns(columns WideColumns) *OwnedWideColumns {
	return &OwnedWideColumns{columns: columns}
}

// Columns returns the held columns.
func (o *OwnedWideColumns) Columns() WideColumns {
	if o == nil {
		return nil
	}
	return o.columns
}

// Size returns the number of columns; 0 for a nil or destroyed handle.
func (o *OwnedWideColumns) Size() int {
	if o == nil {
		return 0
	}
	return len(o.columns)
}

// Name returns the name of column i. i must be in [0, Size).
func (o *OwnedWideColumns) Name(i int) []byte {
	if o == nil {
		return nil
	}
	return o.columns[i].Name
}

// Value returns the value of column i. i must be in [0, Size).
func (o *OwnedWideColumns) Value(i int) []byte {
	if o == nil {
		return nil
	}
	return o.columns[i].Value
}

// Destroy drops the held columns.
func (o *OwnedWideColumns) Destroy() {
	if o == nil {
		return
	}
	o.columns = nil
}
