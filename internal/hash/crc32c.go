// Package hash provides the checksum primitive shared by the storage
// formats: CRC-32C (Castagnoli), the polynomial used by deletion-vector
// payload framing and S3 upload integrity checks.
package hash

import (
	"hash"
	"hash/crc32"
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// CRC32C computes the CRC-32C checksum of data.
func CRC32C(data []byte) uint32 {
	return crc32.Checksum(data, castagnoli)
}

// NewCRC32C returns a streaming CRC-32C hash.
func NewCRC32C() hash.Hash32 {
	return crc32.New(castagnoli)
}
