// Package checksum computes the record checksums stored in log files.
//
// CRC32C values are masked before being written, as RocksDB does in
// util/crc32c.h: a CRC computed over data that itself contains CRCs is
// otherwise prone to degenerate results.
package checksum

import "hash/crc32"

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

const maskDelta = 0xa282ead8

// Value returns the CRC32C of data.
func Value(data []byte) uint32 {
	return crc32.Checksum(data, castagnoli)
}

// Extend returns the CRC32C of concat(A, data) given crc = Value(A).
func Extend(crc uint32, data []byte) uint32 {
	return crc32.Update(crc, castagnoli, data)
}

// Mask rotates crc right by 15 bits and adds a constant.
func Mask(crc uint32) uint32 {
	return ((crc >> 15) | (crc << 17)) + maskDelta
}

// Unmask inverts Mask.
func Unmask(masked uint32) uint32 {
	rot := masked - maskDelta
	return (rot >> 17) | (rot << 15)
}
