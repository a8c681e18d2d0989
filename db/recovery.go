// recovery.go replays the write-ahead log into fresh memtables on Open.
//
// Recovery is point-in-time: it stops at the first record it cannot trust
// and truncates the log there, so new writes never follow a gap.
//
// Reference: RocksDB db/db_impl/db_impl_open.cc (RecoverLogFiles)
package db

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/aalhour/widekv"
	"github.com/aalhour/widekv/internal/batch"
	"github.com/aalhour/widekv/internal/dbformat"
	"github.com/aalhour/widekv/internal/encoding"
	"github.com/aalhour/widekv/internal/logging"
	"github.com/aalhour/widekv/internal/wal"
)

func (db *DB) recover() error {
	path := filepath.Join(db.dir, walFileName)
	var goodEnd int64
	if db.fs.Exists(path) {
		end, err := db.replayWAL(path)
		if err != nil {
			return err
		}
		goodEnd = end
	}

	f, err := db.fs.OpenAppend(path)
	if err != nil {
		return widekv.WrapStatus(widekv.CodeIOError, err)
	}
	db.logFile = f
	size, err := f.Size()
	if err != nil {
		return widekv.WrapStatus(widekv.CodeIOError, err)
	}
	if size > goodEnd {
		db.logger.Warnf(logging.NSRecovery+"truncating %s from %d to %d bytes", walFileName, size, goodEnd)
		if err := f.Truncate(goodEnd); err != nil {
			return widekv.WrapStatus(widekv.CodeIOError, err)
		}
		if err := f.Sync(); err != nil {
			return widekv.WrapStatus(widekv.CodeIOError, err)
		}
	}

	w, err := wal.NewWriter(f, wal.Options{
		Checksum:    db.walChecksum,
		Compression: db.walCompression,
		Pool:        db.pool,
	}, goodEnd)
	if err != nil {
		return widekv.WrapStatus(widekv.CodeInvalidArgument, err)
	}
	db.log = w
	return nil
}

type replayReporter struct {
	logger logging.Logger
	err    error
}

func (r *replayReporter) Corruption(n int, err error) {
	r.logger.Warnf(logging.NSWAL+"%s: dropping %d bytes: %v", walFileName, n, err)
	if r.err == nil {
		r.err = err
	}
}

// replayWAL applies every intact record and returns the offset just past
// the last one.
func (db *DB) replayWAL(path string) (int64, error) {
	f, err := db.fs.Open(path)
	if err != nil {
		return 0, widekv.WrapStatus(widekv.CodeIOError, err)
	}
	defer f.Close()

	rep := &replayReporter{logger: db.logger}
	r := wal.NewReader(f, rep, db.walChecksum, db.opts.ParanoidChecks)
	var (
		records int
		lastSeq dbformat.SequenceNumber
	)
	for {
		end := r.LastRecordEnd()
		rec, err := r.ReadRecord()
		switch {
		case rep.err != nil:
			db.logger.Warnf(logging.NSRecovery+"stopping at offset %d after corruption: %v", end, rep.err)
			return db.finishReplay(end, records, lastSeq), nil
		case errors.Is(err, io.EOF):
			return db.finishReplay(end, records, lastSeq), nil
		case errors.Is(err, wal.ErrTruncated):
			db.logger.Warnf(logging.NSRecovery+"dropping torn record at offset %d", end)
			return db.finishReplay(end, records, lastSeq), nil
		case err != nil:
			db.logger.Warnf(logging.NSRecovery+"stopping at offset %d: %v", end, err)
			return db.finishReplay(end, records, lastSeq), nil
		}

		wb, err := batch.FromData(rec)
		if err == nil {
			// Check the whole record before applying any of it.
			err = wb.Iterate(countingHandler{})
		}
		if err != nil {
			db.logger.Warnf(logging.NSRecovery+"stopping at offset %d: bad batch: %v", end, err)
			return db.finishReplay(end, records, lastSeq), nil
		}
		if wb.Count() == 0 {
			continue
		}
		if seq := wb.Sequence(); seq <= lastSeq {
			return 0, widekv.Corruption(fmt.Sprintf("%s: sequence %d after %d", walFileName, seq, lastSeq))
		}
		if err := wb.Iterate(&memtableInserter{db: db, seq: wb.Sequence(), replay: true}); err != nil {
			return 0, widekv.Corruption(fmt.Sprintf("%s: replay batch: %v", walFileName, err))
		}
		lastSeq = wb.Sequence() + dbformat.SequenceNumber(wb.Count()) - 1
		records++
	}
}

func (db *DB) finishReplay(end int64, records int, lastSeq dbformat.SequenceNumber) int64 {
	db.lastSeq.Store(uint64(lastSeq))
	db.logger.Infof(logging.NSRecovery+"replayed %d records from %s, last sequence %d", records, walFileName, lastSeq)
	return end
}

// countingHandler accepts every record; Iterate still checks the framing
// and the record count.
type countingHandler struct{}

func (countingHandler) Put(uint32, []byte, []byte) error       { return nil }
func (countingHandler) Delete(uint32, []byte) error            { return nil }
func (countingHandler) PutEntity(uint32, []byte, []byte) error { return nil }

// batchValidator rejects a batch before any of it is logged.
type batchValidator struct {
	db         *DB
	maxColumns int
}

func (v *batchValidator) checkCF(cfID uint32) error {
	if _, ok := v.db.cfs[cfID]; !ok {
		return ErrColumnFamilyNotFound
	}
	return nil
}

func (v *batchValidator) Put(cfID uint32, _, _ []byte) error { return v.checkCF(cfID) }
func (v *batchValidator) Delete(cfID uint32, _ []byte) error { return v.checkCF(cfID) }

func (v *batchValidator) PutEntity(cfID uint32, _, entity []byte) error {
	if err := v.checkCF(cfID); err != nil {
		return err
	}
	if v.maxColumns <= 0 {
		return nil
	}
	n, err := entityColumnCount(entity)
	if err != nil {
		return err
	}
	if n > v.maxColumns {
		return tooManyColumns(n, v.maxColumns)
	}
	return nil
}

// entityColumnCount reads the column count from an encoded entity header.
func entityColumnCount(entity []byte) (int, error) {
	r := encoding.NewReader(entity)
	r.Varint32()
	n := r.Varint32()
	if r.Err() != nil {
		return 0, widekv.Corruption("Error decoding number of wide columns")
	}
	return int(n), nil
}

// memtableInserter applies batch records to the column family memtables,
// one sequence number per record. During replay, records of dropped
// families are skipped.
type memtableInserter struct {
	db     *DB
	seq    dbformat.SequenceNumber
	replay bool

	entities uint64
	bytes    uint64
}

func (m *memtableInserter) add(cfID uint32, t dbformat.ValueType, key, value []byte) error {
	seq := m.seq
	m.seq++
	cf, ok := m.db.cfs[cfID]
	if !ok {
		if m.replay {
			return nil
		}
		return ErrColumnFamilyNotFound
	}
	cf.mem.Add(seq, t, key, value)
	m.bytes += uint64(len(key) + len(value))
	return nil
}

func (m *memtableInserter) Put(cfID uint32, key, value []byte) error {
	if err := m.add(cfID, dbformat.TypeValue, key, value); err != nil {
		return err
	}
	if !m.replay {
		m.db.tick(widekv.TickerKeysWritten, 1)
	}
	return nil
}

func (m *memtableInserter) Delete(cfID uint32, key []byte) error {
	if err := m.add(cfID, dbformat.TypeDeletion, key, nil); err != nil {
		return err
	}
	if !m.replay {
		m.db.tick(widekv.TickerKeysDeleted, 1)
	}
	return nil
}

func (m *memtableInserter) PutEntity(cfID uint32, key, entity []byte) error {
	if err := m.add(cfID, dbformat.TypeWideColumnEntity, key, entity); err != nil {
		return err
	}
	if m.replay {
		return nil
	}
	m.entities++
	m.db.tick(widekv.TickerEntitiesWritten, 1)
	m.db.observe(widekv.HistogramEntitySize, uint64(len(entity)))
	if n, err := entityColumnCount(entity); err == nil {
		m.db.tick(widekv.TickerColumnsWritten, uint64(n))
		m.db.observe(widekv.HistogramColumnsPerEntity, uint64(n))
	}
	return nil
}
