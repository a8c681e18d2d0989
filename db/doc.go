// Package db is the storage engine behind the widekv entry points.
//
// A database directory holds three files:
//
//	LOCK        advisory lock held while the database is open
//	CATALOG     JSON description of the column families and log settings
//	000001.log  write-ahead log of every applied batch
//
// Writes are appended to the log as one record per batch and then applied
// to one skiplist memtable per column family. Open replays the log; a torn
// or corrupt tail is dropped and truncated away before new writes append.
//
// Entities are stored in the RocksDB wide-column encoding. PutEntity sorts
// a copy of the caller's columns by name and rejects duplicate names with
// "Corruption: Wide columns out of order", the same outcome librocksdb
// gives. GetEntity returns columns pinned in the memtable until the
// caller destroys its handle.
//
// A DB is safe for concurrent use. Writers are serialized; readers never
// block on them.
//
// Reference: RocksDB include/rocksdb/db.h
package db
