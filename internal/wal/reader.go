package wal

import (
	"errors"
	"fmt"
	"io"

	"github.com/aalhour/widekv/internal/checksum"
	"github.com/aalhour/widekv/internal/compression"
	"github.com/aalhour/widekv/internal/encoding"
)

var (
	// ErrChecksumMismatch is reported for fragments whose checksum fails.
	ErrChecksumMismatch = errors.New("wal: checksum mismatch")

	// ErrTruncated is returned when the log ends inside a record.
	ErrTruncated = errors.New("wal: truncated record")

	// ErrBadFragment is reported for fragments out of sequence.
	ErrBadFragment = errors.New("wal: fragment out of sequence")

	// ErrBadRecordType is reported for unknown fragment types.
	ErrBadRecordType = errors.New("wal: unknown record type")
)

// Reporter receives dropped-data notifications. Corruption is reported
// and the reader moves on to the next fragment.
type Reporter interface {
	Corruption(bytes int, err error)
}

// Reader returns logical records from a log.
type Reader struct {
	src      io.Reader
	reporter Reporter
	sum      checksum.Type
	verify   bool
	codec    compression.Type

	block   []byte
	buf     []byte
	eof     bool
	read    int64 // bytes pulled from src
	lastEnd int64
	pending []byte
	inFrag  bool
}

// NewReader returns a Reader. When verify is set, fragments are checked
// against the checksum type sum.
func NewReader(src io.Reader, reporter Reporter, sum checksum.Type, verify bool) *Reader {
	return &Reader{
		src:      src,
		reporter: reporter,
		sum:      sum,
		verify:   verify && sum != checksum.TypeNoChecksum,
		block:    make([]byte, BlockSize),
	}
}

// Compression returns the codec announced by the log, if any has been read.
func (r *Reader) Compression() compression.Type { return r.codec }

// LastRecordEnd returns the file offset just past the last record returned
// (or the compression marker). Recovery truncates the log here before
// appending so new records never follow a torn fragment.
func (r *Reader) LastRecordEnd() int64 { return r.lastEnd }

func (r *Reader) offset() int64 { return r.read - int64(len(r.buf)) }

// ReadRecord returns the next logical record, or io.EOF at a clean end of
// log. The returned slice is owned by the caller.
func (r *Reader) ReadRecord() ([]byte, error) {
	r.pending = r.pending[:0]
	r.inFrag = false

	for {
		t, frag, err := r.next()
		if err != nil {
			if errors.Is(err, io.EOF) && r.inFrag {
				return nil, ErrTruncated
			}
			return nil, err
		}

		switch t {
		case SetCompressionType:
			if len(frag) != 1 || !compression.Type(frag[0]).Supported() {
				r.report(len(frag), fmt.Errorf("%w: bad compression marker", ErrBadRecordType))
				continue
			}
			r.codec = compression.Type(frag[0])
			r.lastEnd = r.offset()
		case FullType:
			if r.inFrag {
				r.report(len(r.pending), ErrBadFragment)
				r.inFrag = false
			}
			r.lastEnd = r.offset()
			return r.finish(append([]byte(nil), frag...))
		case FirstType:
			if r.inFrag {
				r.report(len(r.pending), ErrBadFragment)
			}
			r.pending = append(r.pending[:0], frag...)
			r.inFrag = true
		case MiddleType:
			if !r.inFrag {
				r.report(len(frag), ErrBadFragment)
				continue
			}
			r.pending = append(r.pending, frag...)
		case LastType:
			if !r.inFrag {
				r.report(len(frag), ErrBadFragment)
				continue
			}
			r.inFrag = false
			r.lastEnd = r.offset()
			return r.finish(append(append([]byte(nil), r.pending...), frag...))
		default:
			r.report(len(frag), ErrBadRecordType)
		}
	}
}

func (r *Reader) finish(rec []byte) ([]byte, error) {
	if r.codec == compression.NoCompression {
		return rec, nil
	}
	out, err := compression.Decompress(r.codec, rec)
	if err != nil {
		return nil, fmt.Errorf("wal: decompress record: %w", err)
	}
	return out, nil
}

// next returns the next fragment, skipping padding and corrupt fragments.
func (r *Reader) next() (RecordType, []byte, error) {
	for {
		if len(r.buf) < HeaderSize {
			if r.eof {
				if len(r.buf) > 0 && r.inFrag {
					return 0, nil, ErrTruncated
				}
				return 0, nil, io.EOF
			}
			n, err := io.ReadFull(r.src, r.block)
			switch {
			case errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF):
				r.eof = true
			case err != nil:
				return 0, nil, err
			}
			r.buf = r.block[:n]
			r.read += int64(n)
			continue
		}

		stored := encoding.DecodeFixed32(r.buf[0:4])
		length := int(r.buf[4]) | int(r.buf[5])<<8
		t := RecordType(r.buf[6])

		if t == ZeroType && length == 0 {
			// Padding runs to the end of the block.
			r.buf = r.buf[len(r.buf):]
			continue
		}
		if HeaderSize+length > len(r.buf) {
			size := len(r.buf)
			r.buf = nil
			if r.eof {
				// Writer died mid-fragment.
				return 0, nil, ErrTruncated
			}
			r.report(size, ErrTruncated)
			continue
		}

		payload := r.buf[HeaderSize : HeaderSize+length]
		r.buf = r.buf[HeaderSize+length:]
		if r.verify && checksum.Compute(r.sum, byte(t), payload) != stored {
			r.report(HeaderSize+length, ErrChecksumMismatch)
			continue
		}
		return t, payload, nil
	}
}

func (r *Reader) report(n int, err error) {
	if r.reporter != nil {
		r.reporter.Corruption(n, err)
	}
}
