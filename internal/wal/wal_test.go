package wal

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/aalhour/widekv/internal/checksum"
	"github.com/aalhour/widekv/internal/compression"
	"github.com/aalhour/widekv/internal/mempool"
)

type collectReporter struct {
	errs []error
}

func (r *collectReporter) Corruption(_ int, err error) {
	r.errs = append(r.errs, err)
}

func writeRecords(t *testing.T, opts Options, records ...[]byte) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	w, err := NewWriter(&buf, opts, 0)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	for _, rec := range records {
		if _, err := w.AddRecord(rec); err != nil {
			t.Fatalf("AddRecord: %v", err)
		}
	}
	return &buf
}

func readAll(t *testing.T, r *Reader) [][]byte {
	t.Helper()
	var out [][]byte
	for {
		rec, err := r.ReadRecord()
		if errors.Is(err, io.EOF) {
			return out
		}
		if err != nil {
			t.Fatalf("ReadRecord: %v", err)
		}
		out = append(out, rec)
	}
}

func TestRoundTrip(t *testing.T) {
	records := [][]byte{
		[]byte("first"),
		{},
		bytes.Repeat([]byte("x"), 3*BlockSize+100),
		[]byte("last"),
	}
	sums := []checksum.Type{checksum.TypeCRC32C, checksum.TypeXXH3, checksum.TypeNoChecksum}
	codecs := []compression.Type{compression.NoCompression, compression.SnappyCompression, compression.ZstdCompression, compression.LZ4Compression}

	for _, sum := range sums {
		for _, codec := range codecs {
			t.Run(sum.String()+"/"+codec.String(), func(t *testing.T) {
				opts := Options{Checksum: sum, Compression: codec, Pool: mempool.New()}
				buf := writeRecords(t, opts, records...)

				rep := &collectReporter{}
				r := NewReader(bytes.NewReader(buf.Bytes()), rep, sum, true)
				got := readAll(t, r)

				if len(rep.errs) != 0 {
					t.Fatalf("unexpected corruption: %v", rep.errs)
				}
				if len(got) != len(records) {
					t.Fatalf("got %d records, want %d", len(got), len(records))
				}
				for i := range records {
					if !bytes.Equal(got[i], records[i]) {
						t.Errorf("record %d: got %d bytes, want %d", i, len(got[i]), len(records[i]))
					}
				}
				if r.Compression() != codec {
					t.Errorf("Compression() = %s, want %s", r.Compression(), codec)
				}
				if r.LastRecordEnd() != int64(buf.Len()) {
					t.Errorf("LastRecordEnd() = %d, want %d", r.LastRecordEnd(), buf.Len())
				}
			})
		}
	}
}

func TestBlockTailPadding(t *testing.T) {
	// Leaves 3 bytes in the first block, too few for a header.
	first := bytes.Repeat([]byte("a"), BlockSize-HeaderSize-3)
	opts := Options{Checksum: checksum.TypeCRC32C}
	buf := writeRecords(t, opts, first, []byte("second"))

	if buf.Len() != BlockSize+HeaderSize+len("second") {
		t.Fatalf("log size = %d", buf.Len())
	}
	got := readAll(t, NewReader(bytes.NewReader(buf.Bytes()), nil, checksum.TypeCRC32C, true))
	if len(got) != 2 || !bytes.Equal(got[0], first) || string(got[1]) != "second" {
		t.Fatalf("got %d records", len(got))
	}
}

func TestChecksumMismatchSkipsRecord(t *testing.T) {
	buf := writeRecords(t, Options{Checksum: checksum.TypeCRC32C}, []byte("aaa"), []byte("bbb"), []byte("ccc"))
	data := buf.Bytes()
	// Second record's payload starts after one 10-byte record and a header.
	data[10+HeaderSize] ^= 0xff

	rep := &collectReporter{}
	got := readAll(t, NewReader(bytes.NewReader(data), rep, checksum.TypeCRC32C, true))
	if len(got) != 2 || string(got[0]) != "aaa" || string(got[1]) != "ccc" {
		t.Fatalf("got %q", got)
	}
	if len(rep.errs) != 1 || !errors.Is(rep.errs[0], ErrChecksumMismatch) {
		t.Fatalf("reported %v", rep.errs)
	}

	// Without verification the damaged payload comes through.
	got = readAll(t, NewReader(bytes.NewReader(data), nil, checksum.TypeCRC32C, false))
	if len(got) != 3 {
		t.Fatalf("unverified read returned %d records", len(got))
	}
}

func TestWrongChecksumType(t *testing.T) {
	buf := writeRecords(t, Options{Checksum: checksum.TypeXXH3}, []byte("aaa"))
	rep := &collectReporter{}
	got := readAll(t, NewReader(bytes.NewReader(buf.Bytes()), rep, checksum.TypeCRC32C, true))
	if len(got) != 0 || len(rep.errs) != 1 {
		t.Fatalf("got %d records, %d reports", len(got), len(rep.errs))
	}
}

func TestTruncatedTail(t *testing.T) {
	buf := writeRecords(t, Options{Checksum: checksum.TypeCRC32C}, []byte("aaa"), []byte("bbb"))
	data := buf.Bytes()[:buf.Len()-2]

	r := NewReader(bytes.NewReader(data), nil, checksum.TypeCRC32C, true)
	rec, err := r.ReadRecord()
	if err != nil || string(rec) != "aaa" {
		t.Fatalf("first record: (%q, %v)", rec, err)
	}
	if _, err := r.ReadRecord(); !errors.Is(err, ErrTruncated) {
		t.Fatalf("second record: got %v, want ErrTruncated", err)
	}
	if r.LastRecordEnd() != HeaderSize+3 {
		t.Fatalf("LastRecordEnd() = %d, want %d", r.LastRecordEnd(), HeaderSize+3)
	}
}

func TestAppendAtOffset(t *testing.T) {
	opts := Options{Checksum: checksum.TypeCRC32C, Compression: compression.SnappyCompression}
	buf := writeRecords(t, opts, []byte("before reopen"))

	w, err := NewWriter(buf, opts, int64(buf.Len()))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.AddRecord([]byte("after reopen")); err != nil {
		t.Fatal(err)
	}

	got := readAll(t, NewReader(bytes.NewReader(buf.Bytes()), nil, checksum.TypeCRC32C, true))
	if len(got) != 2 || string(got[0]) != "before reopen" || string(got[1]) != "after reopen" {
		t.Fatalf("got %q", got)
	}
}

func TestUnsupportedCompression(t *testing.T) {
	if _, err := NewWriter(io.Discard, Options{Compression: compression.Type(3)}, 0); !errors.Is(err, compression.ErrUnsupported) {
		t.Fatalf("got %v", err)
	}
}
