package comm

import "hash/crc32"

// CRC32 computes the reflected CRC-32 (polynomial 0xEDB88320, initial value
// 0xFFFFFFFF, complemented output) used by both protocols.
func CRC32(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}
