package db

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/goccy/go-json"

	"github.com/aalhour/widekv"
	"github.com/aalhour/widekv/internal/checksum"
	"github.com/aalhour/widekv/internal/compression"
	"github.com/aalhour/widekv/internal/vfs"
)

const (
	catalogFileName    = "CATALOG"
	catalogTmpFileName = "CATALOG.tmp"
	catalogVersion     = 1
)

// catalog is the persistent description of a database. It is rewritten
// whole on every change.
type catalog struct {
	Version            int                   `json:"version"`
	NextColumnFamilyID uint32                `json:"next_column_family_id"`
	ColumnFamilies     []catalogColumnFamily `json:"column_families"`
	WAL                catalogWAL            `json:"wal"`
}

type catalogColumnFamily struct {
	ID   uint32 `json:"id"`
	Name string `json:"name"`
}

type catalogWAL struct {
	Compression string `json:"compression"`
	Checksum    string `json:"checksum"`
}

func newCatalog(opts *Options) *catalog {
	return &catalog{
		Version:            catalogVersion,
		NextColumnFamilyID: DefaultColumnFamilyID + 1,
		ColumnFamilies:     []catalogColumnFamily{{ID: DefaultColumnFamilyID, Name: DefaultColumnFamilyName}},
		WAL: catalogWAL{
			Compression: opts.WALCompression.String(),
			Checksum:    opts.WALChecksum.String(),
		},
	}
}

func (c *catalog) walSettings() (compression.Type, checksum.Type, error) {
	codec, err := compression.ParseType(c.WAL.Compression)
	if err != nil {
		return 0, 0, widekv.Corruption(fmt.Sprintf("catalog: %v", err))
	}
	sum, err := checksum.ParseType(c.WAL.Checksum)
	if err != nil {
		return 0, 0, widekv.Corruption(fmt.Sprintf("catalog: %v", err))
	}
	return codec, sum, nil
}

func readCatalog(fs vfs.FS, dir string) (*catalog, error) {
	f, err := fs.Open(filepath.Join(dir, catalogFileName))
	if err != nil {
		return nil, widekv.WrapStatus(widekv.CodeIOError, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, widekv.WrapStatus(widekv.CodeIOError, err)
	}
	var c catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, widekv.Corruption(fmt.Sprintf("catalog: %v", err))
	}
	if c.Version != catalogVersion {
		return nil, widekv.NotSupported(fmt.Sprintf("catalog version %d", c.Version))
	}
	if len(c.ColumnFamilies) == 0 || c.ColumnFamilies[0].ID != DefaultColumnFamilyID {
		return nil, widekv.Corruption("catalog: missing default column family")
	}
	return &c, nil
}

// writeCatalog replaces the catalog through a synced temporary file.
func writeCatalog(fs vfs.FS, dir string, c *catalog) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return widekv.WrapStatus(widekv.CodeInvalidArgument, err)
	}
	tmp := filepath.Join(dir, catalogTmpFileName)
	f, err := fs.Create(tmp)
	if err != nil {
		return widekv.WrapStatus(widekv.CodeIOError, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return widekv.WrapStatus(widekv.CodeIOError, err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return widekv.WrapStatus(widekv.CodeIOError, err)
	}
	if err := f.Close(); err != nil {
		return widekv.WrapStatus(widekv.CodeIOError, err)
	}
	if err := fs.Rename(tmp, filepath.Join(dir, catalogFileName)); err != nil {
		return widekv.WrapStatus(widekv.CodeIOError, err)
	}
	return widekv.WrapStatus(widekv.CodeIOError, fs.SyncDir(dir))
}
