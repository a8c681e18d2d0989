// column_family.go implements column families: independent key spaces
// sharing one log.
//
// Reference: RocksDB db/column_family.h
package db

import (
	"sort"

	"github.com/aalhour/widekv"
	"github.com/aalhour/widekv/internal/logging"
	"github.com/aalhour/widekv/internal/memtable"
)

const (
	// DefaultColumnFamilyID is the ID of the column family every database has.
	DefaultColumnFamilyID uint32 = 0

	// DefaultColumnFamilyName is its name.
	DefaultColumnFamilyName = "default"
)

// ColumnFamilyHandle refers to a column family of one DB. It stays usable
// after the family is dropped, but writes and reads through it then fail.
type ColumnFamilyHandle struct {
	id   uint32
	name string
}

var _ widekv.ColumnFamilyHandle = (*ColumnFamilyHandle)(nil)

func (h *ColumnFamilyHandle) ID() uint32   { return h.id }
func (h *ColumnFamilyHandle) Name() string { return h.name }

type columnFamily struct {
	id     uint32
	name   string
	mem    *memtable.MemTable
	handle *ColumnFamilyHandle
}

func newColumnFamily(id uint32, name string) *columnFamily {
	return &columnFamily{
		id:     id,
		name:   name,
		mem:    memtable.New(),
		handle: &ColumnFamilyHandle{id: id, name: name},
	}
}

// handleID resolves h to a column family ID. Nil, including a typed nil
// handle, means the default family.
func handleID(h widekv.ColumnFamilyHandle) uint32 {
	if h == nil {
		return DefaultColumnFamilyID
	}
	if ch, ok := h.(*ColumnFamilyHandle); ok && ch == nil {
		return DefaultColumnFamilyID
	}
	return h.ID()
}

// columnFamily returns the live family h refers to.
func (db *DB) columnFamily(h widekv.ColumnFamilyHandle) (*columnFamily, error) {
	id := handleID(h)
	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.closed {
		return nil, ErrDBClosed
	}
	cf, ok := db.cfs[id]
	if !ok {
		return nil, ErrColumnFamilyNotFound
	}
	return cf, nil
}

// DefaultColumnFamily returns the handle of the default column family.
func (db *DB) DefaultColumnFamily() *ColumnFamilyHandle {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.cfs[DefaultColumnFamilyID].handle
}

// GetColumnFamily returns the handle of the live family called name.
func (db *DB) GetColumnFamily(name string) (*ColumnFamilyHandle, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	for _, cf := range db.cfs {
		if cf.name == name {
			return cf.handle, true
		}
	}
	return nil, false
}

// ListColumnFamilies returns the names of the live families ordered by ID.
func (db *DB) ListColumnFamilies() []string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	cfs := make([]*columnFamily, 0, len(db.cfs))
	for _, cf := range db.cfs {
		cfs = append(cfs, cf)
	}
	sort.Slice(cfs, func(i, j int) bool { return cfs[i].id < cfs[j].id })
	names := make([]string, len(cfs))
	for i, cf := range cfs {
		names[i] = cf.name
	}
	return names
}

// CreateColumnFamily creates a family and records it in the catalog.
func (db *DB) CreateColumnFamily(name string) (*ColumnFamilyHandle, error) {
	if name == "" {
		return nil, widekv.InvalidArgument("column family name must not be empty")
	}
	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return nil, ErrDBClosed
	}
	for _, cf := range db.cfs {
		if cf.name == name {
			return nil, ErrColumnFamilyExists
		}
	}

	id := db.catalog.NextColumnFamilyID
	next := *db.catalog
	next.NextColumnFamilyID = id + 1
	next.ColumnFamilies = append(append([]catalogColumnFamily(nil), db.catalog.ColumnFamilies...),
		catalogColumnFamily{ID: id, Name: name})
	if err := writeCatalog(db.fs, db.dir, &next); err != nil {
		return nil, err
	}
	db.catalog = &next

	cf := newColumnFamily(id, name)
	db.cfs[id] = cf
	db.logger.Infof(logging.NSDB+"created column family %q (id %d)", name, id)
	return cf.handle, nil
}

// DropColumnFamily removes a family. Its data becomes unreachable and is
// skipped when the log is replayed.
func (db *DB) DropColumnFamily(h *ColumnFamilyHandle) error {
	if h == nil {
		return widekv.InvalidArgument("nil column family handle")
	}
	if h.id == DefaultColumnFamilyID {
		return ErrDropDefaultColumnFamily
	}
	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return ErrDBClosed
	}
	cf, ok := db.cfs[h.id]
	if !ok {
		return ErrColumnFamilyNotFound
	}

	next := *db.catalog
	next.ColumnFamilies = make([]catalogColumnFamily, 0, len(db.catalog.ColumnFamilies))
	for _, c := range db.catalog.ColumnFamilies {
		if c.ID != h.id {
			next.ColumnFamilies = append(next.ColumnFamilies, c)
		}
	}
	if err := writeCatalog(db.fs, db.dir, &next); err != nil {
		return err
	}
	db.catalog = &next

	delete(db.cfs, h.id)
	cf.mem.Unref()
	db.logger.Infof(logging.NSDB+"dropped column family %q (id %d)", cf.name, cf.id)
	return nil
}
