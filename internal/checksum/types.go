package checksum

import (
	"fmt"
	"strings"

	"github.com/zeebo/xxh3"
)

// Type selects the record checksum algorithm. Codes follow RocksDB's
// ChecksumType enum.
type Type uint8

const (
	TypeNoChecksum Type = 0
	TypeCRC32C     Type = 1
	TypeXXH3       Type = 4
)

func (t Type) String() string {
	switch t {
	case TypeNoChecksum:
		return "none"
	case TypeCRC32C:
		return "crc32c"
	case TypeXXH3:
		return "xxh3"
	default:
		return fmt.Sprintf("checksum(%d)", uint8(t))
	}
}

// ParseType accepts the names produced by Type.String.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(s) {
	case "none", "":
		return TypeNoChecksum, nil
	case "crc32c":
		return TypeCRC32C, nil
	case "xxh3":
		return TypeXXH3, nil
	}
	return 0, fmt.Errorf("checksum: unknown type %q", s)
}

// Compute checksums lead followed by data. The lead byte is the record
// type, which precedes the payload in the header but is not contiguous
// with it in memory.
func Compute(t Type, lead byte, data []byte) uint32 {
	switch t {
	case TypeCRC32C:
		crc := Value([]byte{lead})
		return Mask(Extend(crc, data))
	case TypeXXH3:
		h := xxh3.New()
		_, _ = h.Write([]byte{lead})
		_, _ = h.Write(data)
		return uint32(h.Sum64())
	default:
		return 0
	}
}
