package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, args...)
	require.NoError(t, err, "widekv %s", strings.Join(args, " "))
	return out
}

func TestPutAndGetEntity(t *testing.T) {
	dir := t.TempDir()
	out := mustRun(t, "--db", dir, "--create-if-missing", "put-entity", "user:1", "name=ada", "age=36", "=dflt")
	assert.Equal(t, "OK\n", out)

	out = mustRun(t, "--db", dir, "get-entity", "user:1")
	assert.Equal(t, " => dflt\nage => 36\nname => ada\n", out)

	out = mustRun(t, "--db", dir, "-o", "json", "get-entity", "user:1")
	var e entityOut
	require.NoError(t, json.Unmarshal([]byte(out), &e))
	assert.Equal(t, "user:1", e.Key)
	assert.Equal(t, []columnOut{{"", "dflt"}, {"age", "36"}, {"name", "ada"}}, e.Columns)
}

func TestGetEntityMissing(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, "--db", dir, "--create-if-missing", "list-cf")

	_, err := run(t, "--db", dir, "get-entity", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "key not found: nope")
}

func TestPutEntityRejectsDuplicateColumns(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, "--db", dir, "--create-if-missing", "put-entity", "k", "a=1", "a=2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Corruption: Wide columns out of order")

	_, err = run(t, "--db", dir, "put-entity", "k", "novalue")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected name=value")
}

func TestHexKeysAndValues(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, "--db", dir, "--create-if-missing", "put-entity", "0x00ff", "bin=0x0102")
	out := mustRun(t, "--db", dir, "scan")
	assert.Contains(t, out, "0x00ff => {bin=0x0102}")
}

func TestScan(t *testing.T) {
	dir := t.TempDir()
	for _, k := range []string{"a", "b", "c", "d"} {
		mustRun(t, "--db", dir, "--create-if-missing", "put-entity", k, "v="+k)
	}

	out := mustRun(t, "--db", dir, "scan", "--from", "b", "--to", "d")
	assert.Equal(t, "b => {v=b}\nc => {v=c}\n\n(2 entries scanned)\n", out)

	out = mustRun(t, "--db", dir, "scan", "--limit", "1")
	assert.Contains(t, out, "(1 entries scanned)")

	out = mustRun(t, "--db", dir, "-o", "yaml", "scan")
	var entries []entityOut
	require.NoError(t, yaml.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 4)
	assert.Equal(t, "d", entries[3].Key)
}

func TestColumnFamilies(t *testing.T) {
	dir := t.TempDir()
	out := mustRun(t, "--db", dir, "--create-if-missing", "create-cf", "users")
	assert.Equal(t, "OK (id 1)\n", out)

	out = mustRun(t, "--db", dir, "list-cf")
	assert.Equal(t, "default\nusers\n", out)

	mustRun(t, "--db", dir, "--cf", "users", "put-entity", "u1", "name=ada")
	out = mustRun(t, "--db", dir, "--cf", "users", "get-entity", "u1")
	assert.Equal(t, "name => ada\n", out)

	_, err := run(t, "--db", dir, "get-entity", "u1")
	require.Error(t, err, "u1 lives in users only")

	_, err = run(t, "--db", dir, "--cf", "nope", "scan")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `column family "nope"`)
}

func TestBatchPut(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, "--db", dir, "--create-if-missing", "create-cf", "users")

	yamlFile := filepath.Join(t.TempDir(), "batch.yaml")
	require.NoError(t, os.WriteFile(yamlFile, []byte(`
- key: k1
  columns: {b: "2", a: "1"}
- cf: users
  key: u1
  columns: {name: ada}
`), 0o644))
	out := mustRun(t, "--db", dir, "batch-put", yamlFile)
	assert.Equal(t, "OK (2 entities)\n", out)

	jsonFile := filepath.Join(t.TempDir(), "batch.json")
	require.NoError(t, os.WriteFile(jsonFile, []byte(`[{"key":"k2","columns":{"x":"y"}}]`), 0o644))
	mustRun(t, "--db", dir, "batch-put", jsonFile)

	assert.Equal(t, "a => 1\nb => 2\n", mustRun(t, "--db", dir, "get-entity", "k1"))
	assert.Equal(t, "x => y\n", mustRun(t, "--db", dir, "get-entity", "k2"))
	assert.Equal(t, "name => ada\n", mustRun(t, "--db", dir, "--cf", "users", "get-entity", "u1"))

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte(`[{cf: missing, key: k, columns: {a: "1"}}]`), 0o644))
	_, err := run(t, "--db", dir, "batch-put", bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record 0")
}

func TestStats(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, "--db", dir, "--create-if-missing", "put-entity", "k1", "a=1", "b=2")
	mustRun(t, "--db", dir, "put-entity", "k2", "c=3")

	out := mustRun(t, "--db", dir, "stats")
	assert.Contains(t, out, "# TYPE widekv_entity_read_total counter")
	assert.Contains(t, out, `widekv_entity_read_total{db="`+dir+`"} 2`)
	assert.Contains(t, out, `widekv_columns_read_total{db="`+dir+`"} 3`)
}

func TestConfigFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(t.TempDir(), "widekv.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("db: "+dir+"\ncreate-if-missing: true\nwal-compression: zstd\n"), 0o644))

	mustRun(t, "--config", cfgFile, "put-entity", "k", "a=1")

	t.Setenv("WIDEKV_OUTPUT", "json")
	out := mustRun(t, "--config", cfgFile, "list-cf")
	var names []string
	require.NoError(t, json.Unmarshal([]byte(out), &names))
	assert.Equal(t, []string{"default"}, names)

	// Flags win over the environment.
	out = mustRun(t, "--config", cfgFile, "-o", "text", "list-cf")
	assert.Equal(t, "default\n", out)
}

func TestInvalidSettings(t *testing.T) {
	_, err := run(t, "--db", t.TempDir(), "-o", "xml", "list-cf")
	assert.ErrorContains(t, err, `unknown output format "xml"`)

	_, err = run(t, "--db", t.TempDir(), "--log-level", "loud", "list-cf")
	assert.ErrorContains(t, err, "invalid log level")

	_, err = run(t, "list-cf")
	assert.ErrorContains(t, err, "--db is required")

	_, err = run(t, "--db", t.TempDir(), "list-cf")
	assert.ErrorContains(t, err, "create_if_missing is false")
}

func TestVersion(t *testing.T) {
	out := mustRun(t, "version")
	assert.True(t, strings.HasPrefix(out, "widekv (widekv) "), out)

	out = mustRun(t, "version", "--verbose")
	assert.Contains(t, out, "Build properties:")
}
