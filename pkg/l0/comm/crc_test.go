package comm

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// bitwiseCRC32 is the byte-wise bit-reversed reference algorithm.
func bitwiseCRC32(data []byte) uint32 {
	crc := uint32(0xFFFFFFFF)
	for _, b := range data {
		crc ^= uint32(b)
		for i := 0; i < 8; i++ {
			if crc&1 != 0 {
				crc = (crc >> 1) ^ 0xEDB88320
			} else {
				crc >>= 1
			}
		}
	}
	return ^crc
}

func TestCRC32(t *testing.T) {
	testCases := []struct {
		name   string
		input  string
		expect uint32
	}{
		{"empty", "", 0},
		{"check", "123456789", 0xCBF43926},
		{"request", "ES+R2200", bitwiseCRC32([]byte("ES+R2200"))},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expect, CRC32([]byte(tc.input)))
		})
	}
}

func TestCRC32MatchesReference(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		data := rapid.SliceOf(rapid.Byte()).Draw(t, "data")
		crc := CRC32(data)
		if crc != bitwiseCRC32(data) {
			t.Fatalf("crc mismatch for % x", data)
		}
		if crc != CRC32(append([]byte(nil), data...)) {
			t.Fatalf("crc not deterministic for % x", data)
		}
	})
}
