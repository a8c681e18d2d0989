// Package compression implements the payload codecs available for log
// records. Type codes match RocksDB's CompressionType so they can be
// recorded in the catalog and read back by name or number.
package compression

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Type identifies a codec.
type Type uint8

const (
	NoCompression     Type = 0x0
	SnappyCompression Type = 0x1
	ZlibCompression   Type = 0x2
	LZ4Compression    Type = 0x4
	LZ4HCCompression  Type = 0x5
	ZstdCompression   Type = 0x7
)

// ErrUnsupported is returned for codes without a codec.
var ErrUnsupported = errors.New("compression: unsupported type")

func (t Type) String() string {
	switch t {
	case NoCompression:
		return "none"
	case SnappyCompression:
		return "snappy"
	case ZlibCompression:
		return "zlib"
	case LZ4Compression:
		return "lz4"
	case LZ4HCCompression:
		return "lz4hc"
	case ZstdCompression:
		return "zstd"
	default:
		return fmt.Sprintf("compression(%d)", uint8(t))
	}
}

// Supported reports whether t has a codec.
func (t Type) Supported() bool {
	switch t {
	case NoCompression, SnappyCompression, ZlibCompression, LZ4Compression, LZ4HCCompression, ZstdCompression:
		return true
	}
	return false
}

// ParseType accepts the names produced by Type.String.
func ParseType(s string) (Type, error) {
	for _, t := range []Type{NoCompression, SnappyCompression, ZlibCompression, LZ4Compression, LZ4HCCompression, ZstdCompression} {
		if strings.EqualFold(s, t.String()) {
			return t, nil
		}
	}
	if s == "" {
		return NoCompression, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupported, s)
}

var (
	zstdOnce sync.Once
	zstdEnc  *zstd.Encoder
	zstdDec  *zstd.Decoder
	zstdErr  error
)

// zstd encoders and decoders are safe for concurrent EncodeAll/DecodeAll
// and expensive to build, so one of each is shared.
func zstdCodec() (*zstd.Encoder, *zstd.Decoder, error) {
	zstdOnce.Do(func() {
		zstdEnc, zstdErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if zstdErr != nil {
			return
		}
		zstdDec, zstdErr = zstd.NewReader(nil)
	})
	return zstdEnc, zstdDec, zstdErr
}

// Compress appends the compressed form of src to dst.
func Compress(t Type, dst, src []byte) ([]byte, error) {
	switch t {
	case NoCompression:
		return append(dst, src...), nil
	case SnappyCompression:
		return append(dst, snappy.Encode(nil, src)...), nil
	case ZlibCompression:
		buf := bytes.NewBuffer(dst)
		w := zlib.NewWriter(buf)
		if _, err := w.Write(src); err != nil {
			return nil, fmt.Errorf("zlib write: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("zlib close: %w", err)
		}
		return buf.Bytes(), nil
	case LZ4Compression:
		return compressLZ4(dst, src, lz4.Fast)
	case LZ4HCCompression:
		return compressLZ4(dst, src, lz4.Level9)
	case ZstdCompression:
		enc, _, err := zstdCodec()
		if err != nil {
			return nil, fmt.Errorf("zstd encoder: %w", err)
		}
		return enc.EncodeAll(src, dst), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, t)
}

func compressLZ4(dst, src []byte, level lz4.CompressionLevel) ([]byte, error) {
	buf := bytes.NewBuffer(dst)
	w := lz4.NewWriter(buf)
	if err := w.Apply(lz4.CompressionLevelOption(level)); err != nil {
		return nil, fmt.Errorf("lz4 apply level: %w", err)
	}
	if _, err := w.Write(src); err != nil {
		return nil, fmt.Errorf("lz4 write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("lz4 close: %w", err)
	}
	return buf.Bytes(), nil
}

// Decompress returns the decompressed form of src.
func Decompress(t Type, src []byte) ([]byte, error) {
	switch t {
	case NoCompression:
		return src, nil
	case SnappyCompression:
		return snappy.Decode(nil, src)
	case ZlibCompression:
		r, err := zlib.NewReader(bytes.NewReader(src))
		if err != nil {
			return nil, fmt.Errorf("zlib reader: %w", err)
		}
		defer func() { _ = r.Close() }()
		return io.ReadAll(r)
	case LZ4Compression, LZ4HCCompression:
		return io.ReadAll(lz4.NewReader(bytes.NewReader(src)))
	case ZstdCompression:
		_, dec, err := zstdCodec()
		if err != nil {
			return nil, fmt.Errorf("zstd decoder: %w", err)
		}
		return dec.DecodeAll(src, nil)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, t)
}
