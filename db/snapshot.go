// snapshot.go implements snapshots: consistent read views pinned at a
// sequence number.
//
// Reference: RocksDB include/rocksdb/snapshot.h
package db

import (
	"time"

	"github.com/aalhour/widekv"
)

// Snapshot is a read view. Pass it through widekv.ReadOptions.Snapshot.
type Snapshot struct {
	seq       uint64
	createdAt time.Time
}

var _ widekv.Snapshot = (*Snapshot)(nil)

// Sequence returns the sequence number the snapshot reads at.
func (s *Snapshot) Sequence() uint64 { return s.seq }

// CreatedAt returns when the snapshot was taken.
func (s *Snapshot) CreatedAt() time.Time { return s.createdAt }

// GetSnapshot returns a view of the current state. Release it with
// ReleaseSnapshot.
func (db *DB) GetSnapshot() *Snapshot {
	db.mu.Lock()
	defer db.mu.Unlock()
	s := &Snapshot{seq: db.lastSeq.Load(), createdAt: time.Now()}
	db.snapshots[s] = struct{}{}
	return s
}

// ReleaseSnapshot forgets s. Releasing twice is harmless.
func (db *DB) ReleaseSnapshot(s *Snapshot) {
	if s == nil {
		return
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	delete(db.snapshots, s)
}
