// options.go implements per-call read and write options.
//
// Reference: RocksDB include/rocksdb/options.h
package widekv

// ReadOptions controls a single read. A nil *ReadOptions means defaults.
type ReadOptions struct {
	// VerifyChecksums verifies stored data against its checksum while reading.
	VerifyChecksums bool

	// FillCache lets the read populate engine caches.
	FillCache bool

	// Snapshot, when set, reads as of that view instead of the latest state.
	Snapshot Snapshot

	// IterateLowerBound is the inclusive lower bound for iterators.
	IterateLowerBound []byte

	// IterateUpperBound is the exclusive upper bound for iterators.
	IterateUpperBound []byte
}

// DefaultReadOptions returns the default read options.
func DefaultReadOptions() *ReadOptions {
	return &ReadOptions{
		VerifyChecksums: true,
		FillCache:       true,
	}
}

// WriteOptions controls a single write. A nil *WriteOptions means defaults.
type WriteOptions struct {
	// Sync flushes the log to stable storage before the write returns.
	Sync bool

	// DisableWAL skips the log. The write is lost if the process exits
	// before the data is otherwise persisted.
	DisableWAL bool
}

// DefaultWriteOptions returns the default write options.
func DefaultWriteOptions() *WriteOptions {
	return &WriteOptions{}
}
