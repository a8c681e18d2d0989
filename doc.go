/*
Package widekv is the entity column marshaling layer of a RocksDB-style
embedded store.

An entity is a key that maps to an ordered set of named columns instead of
a single opaque value. This package carries column sets across the
boundary between callers that speak in parallel arrays of byte buffers
(the C ABI in capi, the CLI, tests) and a storage engine that stores and
returns entities.

# Write path

PutEntityCF and WriteBatchPutEntityCF turn parallel name/value arrays into
a WideColumns view without copying and hand it to an EntityWriter or an
EntityBatch. Failures are reported into an ErrorSink.

# Read path

GetEntityCF returns a *PinnableWideColumns whose columns alias storage the
engine keeps pinned until Destroy. IterColumns moves the current row of a
ColumnsIterator into an *OwnedWideColumns. Both handles expose Size, Name,
Value and Destroy, and all four are safe on a nil handle.

# Errors

Engine failures are *Status values. Their text matches RocksDB's
Status::ToString, so a message reported through an ErrorSlot reads the same
as it would from librocksdb. A not-found lookup is not an error: the handle
is returned empty and the sink is left untouched.

# Concurrency

Handles are not safe for concurrent use. An ErrorSlot belongs to a single
caller. The engine in package db is safe for concurrent use.

Reference: RocksDB include/rocksdb/wide_columns.h, db/c.cc
*/
package widekv
