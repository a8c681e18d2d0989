package db

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"

	"github.com/aalhour/widekv"
	"github.com/aalhour/widekv/internal/batch"
	"github.com/aalhour/widekv/internal/checksum"
	"github.com/aalhour/widekv/internal/compression"
	"github.com/aalhour/widekv/internal/dbformat"
	"github.com/aalhour/widekv/internal/logging"
	"github.com/aalhour/widekv/internal/mempool"
	"github.com/aalhour/widekv/internal/vfs"
	"github.com/aalhour/widekv/internal/wal"
)

// Errors returned by DB operations. They are *widekv.Status values, so
// their text matches RocksDB's.
var (
	ErrDBClosed                = widekv.Aborted("database is closed")
	ErrColumnFamilyNotFound    = widekv.InvalidArgument("column family not found")
	ErrColumnFamilyExists      = widekv.InvalidArgument("column family already exists")
	ErrDropDefaultColumnFamily = widekv.InvalidArgument("cannot drop default column family")
)

const (
	lockFileName = "LOCK"
	walFileName  = "000001.log"
)

// Property names accepted by GetProperty.
const (
	PropertyNumEntriesActiveMemTable = "widekv.num-entries-active-mem-table"
	PropertyCurSizeActiveMemTable    = "widekv.cur-size-active-mem-table"
	PropertyNumColumnFamilies        = "widekv.num-column-families"
	PropertyLatestSequenceNumber     = "widekv.latest-sequence-number"
	PropertyNumSnapshots             = "widekv.num-snapshots"
	PropertyStats                    = "widekv.stats"
)

// DB is an open database.
type DB struct {
	dir    string
	opts   *Options
	fs     vfs.FS
	logger logging.Logger
	stats  widekv.Statistics
	lock   io.Closer

	// writeMu serializes writers: log appends, memtable inserts and
	// column family changes.
	writeMu sync.Mutex

	// mu guards the fields below. Holders of writeMu may read cfs without it.
	mu        sync.RWMutex
	closed    bool
	bgErr     error
	catalog   *catalog
	cfs       map[uint32]*columnFamily
	snapshots map[*Snapshot]struct{}

	logFile        vfs.WritableFile
	log            *wal.Writer
	walCompression compression.Type
	walChecksum    checksum.Type
	pool           *mempool.Pool
	batches        *batch.Pool

	// lastSeq is the newest sequence visible to readers.
	lastSeq atomic.Uint64
}

var (
	_ widekv.EntityWriter = (*DB)(nil)
	_ widekv.EntityReader = (*DB)(nil)
)

// Open opens the database in dir.
func Open(dir string, opts *Options) (*DB, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts = opts.sanitize()
	fs := opts.FS

	exists := fs.Exists(filepath.Join(dir, catalogFileName))
	if exists && opts.ErrorIfExists {
		return nil, widekv.InvalidArgument(dir + ": exists (error_if_exists is true)")
	}
	if !exists && !opts.CreateIfMissing {
		return nil, widekv.InvalidArgument(dir + ": does not exist (create_if_missing is false)")
	}
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, widekv.WrapStatus(widekv.CodeIOError, err)
	}
	lock, err := fs.Lock(filepath.Join(dir, lockFileName))
	if err != nil {
		return nil, widekv.WrapStatus(widekv.CodeIOError, err)
	}

	db := &DB{
		dir:       dir,
		opts:      opts,
		fs:        fs,
		logger:    opts.Logger,
		stats:     opts.Statistics,
		lock:      lock,
		cfs:       make(map[uint32]*columnFamily),
		snapshots: make(map[*Snapshot]struct{}),
		pool:      mempool.New(),
		batches:   batch.NewPool(),
	}
	if err := db.open(exists); err != nil {
		err = multierr.Append(err, db.closeFiles())
		return nil, err
	}
	db.logger.Infof(logging.NSDB+"opened %s: %d column families, last sequence %d, wal %s/%s",
		dir, len(db.cfs), db.lastSeq.Load(), db.walCompression, db.walChecksum)
	return db, nil
}

func (db *DB) open(exists bool) error {
	var cat *catalog
	if exists {
		c, err := readCatalog(db.fs, db.dir)
		if err != nil {
			return err
		}
		cat = c
	} else {
		cat = newCatalog(db.opts)
		if err := writeCatalog(db.fs, db.dir, cat); err != nil {
			return err
		}
		db.logger.Infof(logging.NSCatalog+"created database %s", db.dir)
	}

	codec, sum, err := cat.walSettings()
	if err != nil {
		return err
	}
	db.catalog = cat
	db.walCompression, db.walChecksum = codec, sum
	for _, c := range cat.ColumnFamilies {
		db.cfs[c.ID] = newColumnFamily(c.ID, c.Name)
	}
	return db.recover()
}

// Close releases the log and the directory lock. Pinned read results stay
// valid. Closing twice is a no-op.
func (db *DB) Close() error {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return nil
	}
	db.closed = true
	for _, cf := range db.cfs {
		cf.mem.Unref()
	}
	err := db.closeFiles()
	db.logger.Infof(logging.NSDB+"closed %s", db.dir)
	return err
}

func (db *DB) closeFiles() error {
	var err error
	if db.logFile != nil {
		err = multierr.Append(err, db.logFile.Close())
		db.logFile, db.log = nil, nil
	}
	if db.lock != nil {
		err = multierr.Append(err, db.lock.Close())
		db.lock = nil
	}
	return widekv.WrapStatus(widekv.CodeIOError, err)
}

// Put stores key -> value in the default column family.
func (db *DB) Put(wo *widekv.WriteOptions, key, value []byte) error {
	return db.PutCF(wo, nil, key, value)
}

// PutCF stores key -> value in cf.
func (db *DB) PutCF(wo *widekv.WriteOptions, cf widekv.ColumnFamilyHandle, key, value []byte) error {
	wb := db.batches.Get()
	defer db.batches.Put(wb)
	wb.Put(handleID(cf), key, value)
	return db.write(wo, wb, false)
}

// Delete removes key from the default column family.
func (db *DB) Delete(wo *widekv.WriteOptions, key []byte) error {
	return db.DeleteCF(wo, nil, key)
}

// DeleteCF removes key from cf.
func (db *DB) DeleteCF(wo *widekv.WriteOptions, cf widekv.ColumnFamilyHandle, key []byte) error {
	wb := db.batches.Get()
	defer db.batches.Put(wb)
	wb.Delete(handleID(cf), key)
	return db.write(wo, wb, false)
}

// PutEntity stores key -> columns in cf, replacing any previous value.
// Columns are stored sorted by name; duplicate names fail with
// "Corruption: Wide columns out of order".
func (db *DB) PutEntity(wo *widekv.WriteOptions, cf widekv.ColumnFamilyHandle, key []byte, columns widekv.WideColumns) error {
	if limit := db.opts.MaxColumnsPerEntity; limit > 0 && len(columns) > limit {
		return tooManyColumns(len(columns), limit)
	}
	wb := db.batches.Get()
	defer db.batches.Put(wb)
	if err := putEntity(wb, handleID(cf), key, columns); err != nil {
		return err
	}
	return db.write(wo, wb, false)
}

// Write applies every write staged in wb atomically.
func (db *DB) Write(wo *widekv.WriteOptions, wb *WriteBatch) error {
	if wb == nil {
		return nil
	}
	return db.write(wo, wb.rep, true)
}

// write applies wb. userBatch marks batches built by callers rather than
// by the single-key methods.
func (db *DB) write(wo *widekv.WriteOptions, wb *batch.WriteBatch, userBatch bool) error {
	if wo == nil {
		wo = widekv.DefaultWriteOptions()
	}
	if wb.Count() == 0 {
		return nil
	}
	start := time.Now()

	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	db.mu.RLock()
	closed, bgErr := db.closed, db.bgErr
	db.mu.RUnlock()
	if closed {
		return ErrDBClosed
	}
	if bgErr != nil {
		return bgErr
	}
	if err := wb.Iterate(&batchValidator{db: db, maxColumns: db.opts.MaxColumnsPerEntity}); err != nil {
		return err
	}

	first := dbformat.SequenceNumber(db.lastSeq.Load() + 1)
	wb.SetSequence(first)

	if wo.DisableWAL {
		db.tick(widekv.TickerWritesWithoutWAL, 1)
	} else if err := db.appendLog(wb.Data(), wo.Sync); err != nil {
		return err
	}

	ins := &memtableInserter{db: db, seq: first}
	if err := wb.Iterate(ins); err != nil {
		// The batch was validated; a failure here means the log holds a
		// record the memtables do not.
		db.setBackgroundError(widekv.Corruption(fmt.Sprintf("apply batch: %v", err)))
		return err
	}
	db.lastSeq.Store(uint64(first) + uint64(wb.Count()) - 1)

	db.tick(widekv.TickerBytesWritten, ins.bytes)
	if userBatch {
		db.tick(widekv.TickerBatchWrites, 1)
		db.tick(widekv.TickerBatchEntityPuts, ins.entities)
	}
	db.observe(widekv.HistogramWriteMicros, uint64(time.Since(start).Microseconds()))
	return nil
}

// appendLog writes one record and optionally syncs it. Failures stop all
// later writes: the log may now end in a torn record.
func (db *DB) appendLog(rec []byte, sync bool) error {
	n, err := db.log.AddRecord(rec)
	db.tick(widekv.TickerWALBytes, uint64(n))
	if err != nil {
		st := widekv.IOError(fmt.Sprintf("append to %s: %v", walFileName, err))
		db.setBackgroundError(st)
		return st
	}
	if !sync {
		return nil
	}
	start := time.Now()
	if err := db.logFile.Sync(); err != nil {
		st := widekv.IOError(fmt.Sprintf("sync %s: %v", walFileName, err))
		db.setBackgroundError(st)
		return st
	}
	db.tick(widekv.TickerWALSyncs, 1)
	db.observe(widekv.HistogramWALSyncMicros, uint64(time.Since(start).Microseconds()))
	return nil
}

func (db *DB) setBackgroundError(err error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.bgErr == nil {
		db.bgErr = err
		db.logger.Errorf(logging.NSDB+"writes stopped: %v", err)
	}
}

// SyncWAL flushes the log to stable storage.
func (db *DB) SyncWAL() error {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()
	db.mu.RLock()
	closed := db.closed
	db.mu.RUnlock()
	if closed {
		return ErrDBClosed
	}
	if err := db.logFile.Sync(); err != nil {
		return widekv.IOError(fmt.Sprintf("sync %s: %v", walFileName, err))
	}
	db.tick(widekv.TickerWALSyncs, 1)
	return nil
}

func (db *DB) readSequence(ro *widekv.ReadOptions) dbformat.SequenceNumber {
	if ro != nil && ro.Snapshot != nil {
		return dbformat.SequenceNumber(ro.Snapshot.Sequence())
	}
	return dbformat.SequenceNumber(db.lastSeq.Load())
}

// Get returns the value of key in the default column family. An entity
// yields the value of its default column, or an empty value if it has none.
func (db *DB) Get(ro *widekv.ReadOptions, key []byte) ([]byte, error) {
	return db.GetCF(ro, nil, key)
}

// GetCF returns the value of key in cf. A missing key fails with an error
// matching widekv.ErrNotFound.
func (db *DB) GetCF(ro *widekv.ReadOptions, cf widekv.ColumnFamilyHandle, key []byte) ([]byte, error) {
	start := time.Now()
	defer func() { db.observe(widekv.HistogramGetMicros, uint64(time.Since(start).Microseconds())) }()

	c, err := db.columnFamily(cf)
	if err != nil {
		return nil, err
	}
	res, ok := c.mem.Get(key, db.readSequence(ro))
	if !ok || res.Type == dbformat.TypeDeletion {
		return nil, widekv.NotFound("")
	}
	value := res.Value
	if res.Type == dbformat.TypeWideColumnEntity {
		if value, err = widekv.DefaultColumnValue(res.Value); err != nil {
			return nil, err
		}
	}
	db.tick(widekv.TickerKeysRead, 1)
	db.tick(widekv.TickerBytesRead, uint64(len(value)))
	return append([]byte{}, value...), nil
}

// GetEntity looks key up in cf and stores the result in out. A plain value
// reads back as a single default column. The columns alias the memtable,
// which stays referenced until out is reset or destroyed.
func (db *DB) GetEntity(ro *widekv.ReadOptions, cf widekv.ColumnFamilyHandle, key []byte, out *widekv.PinnableWideColumns) error {
	if out == nil {
		return widekv.InvalidArgument("nil output columns")
	}
	start := time.Now()
	defer func() { db.observe(widekv.HistogramGetMicros, uint64(time.Since(start).Microseconds())) }()
	out.Reset()

	c, err := db.columnFamily(cf)
	if err != nil {
		return err
	}
	mem := c.mem
	mem.Ref()
	release := func() { mem.Unref() }

	res, ok := mem.Get(key, db.readSequence(ro))
	if !ok || res.Type == dbformat.TypeDeletion {
		release()
		db.tick(widekv.TickerEntityNotFound, 1)
		return widekv.NotFound("")
	}
	switch res.Type {
	case dbformat.TypeWideColumnEntity:
		if err := out.SetWideColumnValue(res.Value, release); err != nil {
			db.logger.Errorf(logging.NSDB+"corrupt entity %q in column family %d: %v", key, c.id, err)
			return err
		}
	default:
		out.SetPlainValue(res.Value, release)
	}
	db.tick(widekv.TickerEntitiesRead, 1)
	db.tick(widekv.TickerColumnsRead, uint64(out.Size()))
	db.tick(widekv.TickerBytesRead, uint64(out.Columns().Size()))
	return nil
}

// GetLatestSequenceNumber returns the sequence of the newest visible write.
func (db *DB) GetLatestSequenceNumber() uint64 { return db.lastSeq.Load() }

// GetProperty returns a property of the default column family or of the
// whole database.
func (db *DB) GetProperty(name string) (string, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.closed {
		return "", false
	}
	def := db.cfs[DefaultColumnFamilyID]
	switch name {
	case PropertyNumEntriesActiveMemTable:
		return strconv.FormatInt(def.mem.Count(), 10), true
	case PropertyCurSizeActiveMemTable:
		return strconv.FormatInt(def.mem.ApproximateMemoryUsage(), 10), true
	case PropertyNumColumnFamilies:
		return strconv.Itoa(len(db.cfs)), true
	case PropertyLatestSequenceNumber:
		return strconv.FormatUint(db.lastSeq.Load(), 10), true
	case PropertyNumSnapshots:
		return strconv.Itoa(len(db.snapshots)), true
	case PropertyStats:
		if db.stats == nil {
			return "", false
		}
		return db.stats.String(), true
	}
	return "", false
}

func (db *DB) tick(t widekv.TickerType, n uint64) {
	if db.stats != nil && n > 0 {
		db.stats.RecordTick(t, n)
	}
}

func (db *DB) observe(h widekv.HistogramType, v uint64) {
	if db.stats != nil {
		db.stats.RecordInHistogram(h, v)
	}
}

func tooManyColumns(n, limit int) error {
	return widekv.InvalidArgument(fmt.Sprintf("entity has %d columns, limit is %d", n, limit))
}
