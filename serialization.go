// serialization.go implements the on-disk encoding of an entity.
//
// Format (version 1):
//
//	[version varint32][column count varint32]
//	count x [name length varint32][name][value length varint32]
//	[value 0][value 1]...
//
// Names must be strictly ascending. Values follow the index so a reader
// can locate any column after scanning the index once.
//
// Reference: RocksDB db/wide/wide_column_serialization.cc
package widekv

import (
	"bytes"
	"math"

	"github.com/aalhour/widekv/internal/encoding"
)

// EntityFormatVersion is the version SerializeEntity writes.
const EntityFormatVersion = 1

// SerializeEntity appends the encoding of columns to dst. columns must be
// sorted by name with no duplicates.
func SerializeEntity(dst []byte, columns WideColumns) ([]byte, error) {
	if uint64(len(columns)) > math.MaxUint32 {
		return dst, InvalidArgument("Too many wide columns")
	}
	dst = encoding.AppendVarint32(dst, EntityFormatVersion)
	dst = encoding.AppendVarint32(dst, uint32(len(columns)))
	for i, col := range columns {
		if uint64(len(col.Name)) > math.MaxUint32 {
			return dst, InvalidArgument("Wide column name too long")
		}
		if uint64(len(col.Value)) > math.MaxUint32 {
			return dst, InvalidArgument("Wide column value too long")
		}
		if i > 0 && bytes.Compare(columns[i-1].Name, col.Name) >= 0 {
			return dst, Corruption("Wide columns out of order")
		}
		dst = encoding.AppendLengthPrefixedSlice(dst, col.Name)
		dst = encoding.AppendVarint32(dst, uint32(len(col.Value)))
	}
	for _, col := range columns {
		dst = append(dst, col.Value...)
	}
	return dst, nil
}

// DeserializeEntity decodes an entity. The returned columns alias src.
func DeserializeEntity(src []byte) (WideColumns, error) {
	r := encoding.NewReader(src)
	version := r.Varint32()
	if r.Err() != nil {
		return nil, Corruption("Error decoding wide column version")
	}
	if version > EntityFormatVersion {
		return nil, NotSupported("Unsupported wide column version")
	}
	count := r.Varint32()
	if r.Err() != nil {
		return nil, Corruption("Error decoding number of wide columns")
	}
	if count == 0 {
		return WideColumns{}, nil
	}
	// Every index entry takes at least two bytes.
	if uint64(count) > uint64(r.Len()/2) {
		return nil, Corruption("Error decoding wide column name")
	}

	columns := make(WideColumns, count)
	sizes := make([]uint32, count)
	for i := range columns {
		name := r.LengthPrefixed()
		if r.Err() != nil {
			return nil, Corruption("Error decoding wide column name")
		}
		if i > 0 && bytes.Compare(columns[i-1].Name, name) >= 0 {
			return nil, Corruption("Wide columns out of order")
		}
		sizes[i] = r.Varint32()
		if r.Err() != nil {
			return nil, Corruption("Error decoding wide column value size")
		}
		columns[i].Name = name
	}
	for i := range columns {
		columns[i].Value = r.Bytes(int(sizes[i]))
		if r.Err() != nil {
			return nil, Corruption("Missing wide column value")
		}
	}
	return columns, nil
}

// DefaultColumnValue returns the value of the default column of an
// encoded entity, or an empty slice when the entity has none.
func DefaultColumnValue(src []byte) ([]byte, error) {
	columns, err := DeserializeEntity(src)
	if err != nil {
		return nil, err
	}
	if len(columns) > 0 && len(columns[0].Name) == 0 {
		return columns[0].Value, nil
	}
	return []byte{}, nil
}
