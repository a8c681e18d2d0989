package wal

import (
	"fmt"
	"io"

	"github.com/aalhour/widekv/internal/checksum"
	"github.com/aalhour/widekv/internal/compression"
	"github.com/aalhour/widekv/internal/encoding"
	"github.com/aalhour/widekv/internal/mempool"
)

// Options configure a log. Readers must use the checksum type the writer
// used; compression is discovered from the log itself.
type Options struct {
	Checksum    checksum.Type
	Compression compression.Type
	// Pool supplies compression scratch buffers. Nil allocates per record.
	Pool *mempool.Pool
}

// Writer appends logical records to a log.
type Writer struct {
	dest        io.Writer
	opts        Options
	blockOffset int
	started     bool
	header      [HeaderSize]byte
	zeros       [HeaderSize]byte
}

// NewWriter returns a Writer that appends to a log whose current size is
// offset. A non-empty log has already announced its codec, which must be
// opts.Compression.
func NewWriter(dest io.Writer, opts Options, offset int64) (*Writer, error) {
	if !opts.Compression.Supported() {
		return nil, fmt.Errorf("wal: %w: %s", compression.ErrUnsupported, opts.Compression)
	}
	return &Writer{
		dest:        dest,
		opts:        opts,
		blockOffset: int(offset % BlockSize),
		started:     offset > 0,
	}, nil
}

// AddRecord writes data as one logical record and returns the number of
// bytes written to dest, headers and padding included.
func (w *Writer) AddRecord(data []byte) (int, error) {
	total := 0
	if !w.started {
		w.started = true
		if w.opts.Compression != compression.NoCompression {
			n, err := w.emit(SetCompressionType, []byte{byte(w.opts.Compression)})
			total += n
			if err != nil {
				return total, err
			}
		}
	}

	if w.opts.Compression != compression.NoCompression {
		var scratch []byte
		if w.opts.Pool != nil {
			scratch = w.opts.Pool.Get(len(data))
		}
		compressed, err := compression.Compress(w.opts.Compression, scratch, data)
		if err != nil {
			return total, fmt.Errorf("wal: compress record: %w", err)
		}
		if w.opts.Pool != nil {
			defer w.opts.Pool.Put(compressed)
		}
		data = compressed
	}

	n, err := w.fragment(data)
	return total + n, err
}

func (w *Writer) fragment(data []byte) (int, error) {
	total := 0
	first := true
	// An empty record still produces one zero-length fragment.
	for {
		if left := BlockSize - w.blockOffset; left < HeaderSize {
			if left > 0 {
				n, err := w.dest.Write(w.zeros[:left])
				total += n
				if err != nil {
					return total, err
				}
			}
			w.blockOffset = 0
		}

		avail := BlockSize - w.blockOffset - HeaderSize
		frag := min(len(data), avail)
		last := frag == len(data)

		t := MiddleType
		switch {
		case first && last:
			t = FullType
		case first:
			t = FirstType
		case last:
			t = LastType
		}

		n, err := w.emit(t, data[:frag])
		total += n
		if err != nil {
			return total, err
		}
		data = data[frag:]
		first = false
		if last {
			return total, nil
		}
	}
}

// emit writes a single fragment. The caller guarantees it fits the block;
// the compression marker is only written at offset zero.
func (w *Writer) emit(t RecordType, payload []byte) (int, error) {
	encoding.EncodeFixed32(w.header[0:4], checksum.Compute(w.opts.Checksum, byte(t), payload))
	w.header[4] = byte(len(payload))
	w.header[5] = byte(len(payload) >> 8)
	w.header[6] = byte(t)

	total, err := w.dest.Write(w.header[:])
	if err != nil {
		return total, err
	}
	n, err := w.dest.Write(payload)
	total += n
	if err != nil {
		return total, err
	}
	w.blockOffset += HeaderSize + len(payload)
	return total, nil
}
