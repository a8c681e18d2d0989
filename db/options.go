package db

import (
	"fmt"

	"github.com/aalhour/widekv"
	"github.com/aalhour/widekv/internal/checksum"
	"github.com/aalhour/widekv/internal/compression"
	"github.com/aalhour/widekv/internal/logging"
	"github.com/aalhour/widekv/internal/vfs"
)

// Options configure Open.
type Options struct {
	// CreateIfMissing creates the database when the directory holds none.
	CreateIfMissing bool

	// ErrorIfExists fails Open when a database already exists.
	ErrorIfExists bool

	// ParanoidChecks verifies log checksums during recovery.
	ParanoidChecks bool

	// FS is the filesystem. Nil means the OS filesystem.
	FS vfs.FS

	// Logger receives engine messages. Nil means stderr at warn level.
	Logger logging.Logger

	// Statistics, when set, collects engine tickers and histograms.
	Statistics widekv.Statistics

	// WALCompression compresses log records. It only applies when the
	// database is created; an existing database keeps its recorded codec.
	WALCompression compression.Type

	// WALChecksum selects the log record checksum, with the same creation
	// rule as WALCompression.
	WALChecksum checksum.Type

	// MaxColumnsPerEntity rejects entities with more columns. 0 means no
	// limit.
	MaxColumnsPerEntity int
}

// DefaultOptions returns options for an existing database on the OS
// filesystem.
func DefaultOptions() *Options {
	return &Options{
		ParanoidChecks: true,
		WALCompression: compression.NoCompression,
		WALChecksum:    checksum.TypeCRC32C,
	}
}

// Validate reports options Open cannot honour.
func (o *Options) Validate() error {
	if !o.WALCompression.Supported() {
		return widekv.InvalidArgument(fmt.Sprintf("unsupported WAL compression %s", o.WALCompression))
	}
	switch o.WALChecksum {
	case checksum.TypeNoChecksum, checksum.TypeCRC32C, checksum.TypeXXH3:
	default:
		return widekv.InvalidArgument(fmt.Sprintf("unsupported WAL checksum %s", o.WALChecksum))
	}
	if o.MaxColumnsPerEntity < 0 {
		return widekv.InvalidArgument("MaxColumnsPerEntity must not be negative")
	}
	return nil
}

func (o *Options) sanitize() *Options {
	out := *o
	if out.FS == nil {
		out.FS = vfs.Default()
	}
	out.Logger = logging.OrDefault(out.Logger)
	return &out
}
