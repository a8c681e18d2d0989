//go:build cgo

package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aalhour/widekv/db"
)

func TestPutGetEntityRoundTrip(t *testing.T) {
	var e cError
	d := testOpen(t.TempDir(), &e)
	require.False(t, e.held(), e.message())
	defer rocksdb_close(d)
	cf := rocksdb_get_default_column_family_handle(d)
	defer rocksdb_column_family_handle_destroy(cf)

	testPutEntity(d, cf, "user:1", []string{"name", "", "age"}, []string{"ada", "dflt", "36"}, &e)
	require.False(t, e.held(), e.message())

	v := testGetEntity(d, cf, "user:1", &e)
	require.False(t, e.held(), e.message())
	assert.Equal(t, []testColumn{{"", "dflt"}, {"age", "36"}, {"name", "ada"}}, testPinnedColumns(v))
	rocksdb_pinnablewidecolumns_destroy(v)
}

func TestGetEntityNotFoundLeavesErrorEmpty(t *testing.T) {
	var e cError
	d := testOpen(t.TempDir(), &e)
	require.False(t, e.held())
	defer rocksdb_close(d)

	v := testGetEntity(d, nil, "missing", &e)
	require.NotNil(t, v)
	assert.False(t, e.held())
	assert.Zero(t, int(rocksdb_pinnablewidecolumns_size(v)))
	rocksdb_pinnablewidecolumns_destroy(v)
}

func TestErrorReplacesPreviousMessage(t *testing.T) {
	var e cError
	d := testOpen(t.TempDir(), &e)
	require.False(t, e.held())
	defer rocksdb_close(d)

	testPutEntity(d, nil, "k", []string{"b", "b"}, []string{"1", "2"}, &e)
	require.True(t, e.held())
	assert.Equal(t, "Corruption: Wide columns out of order", e.message())

	tmp := testCreateColumnFamily(d, "tmp", &e)
	require.NotNil(t, tmp)
	defer rocksdb_column_family_handle_destroy(tmp)
	rocksdb_drop_column_family(d, tmp, e.ptr())
	assert.Equal(t, "Corruption: Wide columns out of order", e.message(), "success must not clear the error")

	testPutEntity(d, tmp, "k", []string{"a"}, []string{"1"}, &e)
	assert.Equal(t, "Invalid argument: column family not found", e.message())
	e.free()
	assert.False(t, e.held())
}

func TestWriteBatchPutEntity(t *testing.T) {
	var e cError
	d := testOpen(t.TempDir(), &e)
	require.False(t, e.held())
	defer rocksdb_close(d)
	users := testCreateColumnFamily(d, "users", &e)
	require.False(t, e.held(), e.message())
	defer rocksdb_column_family_handle_destroy(users)

	b := rocksdb_writebatch_create()
	defer rocksdb_writebatch_destroy(b)
	testBatchPutEntity(b, users, "u1", []string{"z", "a"}, []string{"26", "1"}, &e)
	testBatchPutEntity(b, users, "u2", []string{}, []string{}, &e)
	require.False(t, e.held(), e.message())
	testBatchPutEntity(b, users, "bad", []string{"x", "x"}, []string{"1", "2"}, &e)
	require.True(t, e.held())
	e.free()
	assert.Equal(t, 2, int(rocksdb_writebatch_count(b)))

	testWrite(d, b, &e)
	require.False(t, e.held(), e.message())

	v := testGetEntity(d, users, "u1", &e)
	assert.Equal(t, []testColumn{{"a", "1"}, {"z", "26"}}, testPinnedColumns(v))
	rocksdb_pinnablewidecolumns_destroy(v)

	v = testGetEntity(d, users, "u2", &e)
	require.False(t, e.held())
	assert.Empty(t, testPinnedColumns(v))
	rocksdb_pinnablewidecolumns_destroy(v)
}

func TestIterColumns(t *testing.T) {
	var e cError
	d := testOpen(t.TempDir(), &e)
	require.False(t, e.held())
	defer rocksdb_close(d)

	testPutEntity(d, nil, "a", []string{"x"}, []string{"1"}, &e)
	testPutEntity(d, nil, "b", []string{"y", "z"}, []string{"2", "3"}, &e)
	require.False(t, e.held(), e.message())

	it := testIterator(d, nil)
	require.NotNil(t, it)
	defer rocksdb_iter_destroy(it)

	var keys []string
	var got [][]testColumn
	for rocksdb_iter_seek_to_first(it); rocksdb_iter_valid(it) == 1; rocksdb_iter_next(it) {
		keys = append(keys, testIterKey(it))
		cols := rocksdb_iter_columns(it)
		got = append(got, testColumns(cols))
		rocksdb_widecolumns_destroy(cols)
	}
	rocksdb_iter_get_error(it, e.ptr())
	require.False(t, e.held())
	assert.Equal(t, []string{"a", "b"}, keys)
	assert.Equal(t, [][]testColumn{{{"x", "1"}}, {{"y", "2"}, {"z", "3"}}}, got)

	// Past the end the iterator yields an empty set.
	cols := rocksdb_iter_columns(it)
	assert.Zero(t, int(rocksdb_widecolumns_size(cols)))
	rocksdb_widecolumns_destroy(cols)
}

func TestNilHandles(t *testing.T) {
	assert.Zero(t, int(rocksdb_pinnablewidecolumns_size(nil)))
	assert.Zero(t, int(rocksdb_widecolumns_size(nil)))
	rocksdb_pinnablewidecolumns_destroy(nil)
	rocksdb_widecolumns_destroy(nil)
	rocksdb_iter_destroy(nil)
	rocksdb_close(nil)
	assert.Zero(t, int(rocksdb_iter_valid(nil)))

	for i, r := range testNullAccessors() {
		assert.True(t, r.Null, "accessor %d", i)
		assert.Zero(t, r.Len, "accessor %d", i)
	}
}

func TestOpenFailureSetsError(t *testing.T) {
	dir := t.TempDir()
	var e cError
	d := testOpen(dir, &e)
	require.False(t, e.held())

	second := testOpen(dir, &e)
	assert.Nil(t, second)
	require.True(t, e.held())
	assert.True(t, strings.HasPrefix(e.message(), "IO error: "), e.message())
	e.free()
	rocksdb_close(d)
}

func TestPropertiesAndVersion(t *testing.T) {
	var e cError
	d := testOpen(t.TempDir(), &e)
	require.False(t, e.held())
	defer rocksdb_close(d)

	v, ok := testProperty(d, db.PropertyNumColumnFamilies)
	require.True(t, ok)
	assert.Equal(t, "1", v)
	_, ok = testProperty(d, "widekv.nope")
	assert.False(t, ok)

	assert.Equal(t, testVersion(), strings.TrimPrefix(testBuildInfo("prog", false), "prog (widekv) "))
	assert.Contains(t, testBuildInfo("prog", true), "Build properties:")
}
