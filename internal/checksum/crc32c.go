// Package checksum implements the masked CRC32C checksum used to protect
// physical records, plus an optional XXH3 checksum for metadata blocks.
//
// The masking scheme (rotate-right-15, add a constant) comes from LevelDB's
// crc32c::Mask, adopted here so existing LevelDB-family tooling can recognize
// a corrupted record the same way: a CRC that is byte-identical to part of
// its own payload would otherwise be indistinguishable from a valid one.
package checksum

import "hash/crc32"

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// maskDelta is added after the rotate during masking.
const maskDelta = 0xa282ead8

// Value computes the CRC32C checksum of data.
func Value(data []byte) uint32 {
	return crc32.Checksum(data, castagnoli)
}

// Extend computes the CRC32C of concat(a, data) given crc, the CRC32C of a.
func Extend(crc uint32, data []byte) uint32 {
	return crc32.Update(crc, castagnoli, data)
}

// Mask rotates crc right by 15 bits and adds maskDelta, producing a value
// safe to embed inside the data it protects.
func Mask(crc uint32) uint32 {
	return ((crc >> 15) | (crc << 17)) + maskDelta
}

// Unmask reverses Mask.
func Unmask(maskedCRC uint32) uint32 {
	rot := maskedCRC - maskDelta
	return (rot >> 17) | (rot << 15)
}

// MaskedValue computes and masks the CRC32C of data in one call.
func MaskedValue(data []byte) uint32 {
	return Mask(Value(data))
}
