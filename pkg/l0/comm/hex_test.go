package comm

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestHexValue(t *testing.T) {
	testCases := []struct {
		in     byte
		expect byte
	}{
		{'0', 0}, {'9', 9}, {'A', 10}, {'F', 15}, {'a', 10}, {'f', 15},
		{'G', 0}, {'g', 0}, {' ', 0}, {0xff, 0},
	}
	for _, tc := range testCases {
		require.Equalf(t, tc.expect, HexValue(tc.in), "HexValue(%q)", tc.in)
	}
}

func TestScanHex(t *testing.T) {
	resp := []byte("OK+0022DD0303")
	require.Equal(t, uint32(0x00), ScanHex(resp, 3, 2))
	require.Equal(t, uint32(0xDD), ScanHex(resp, 7, 2))
	require.Equal(t, uint32(0x0303), ScanHex(resp, 9, 4))
	require.Equal(t, uint32(0xab), ScanHex([]byte("ab"), 0, 2))
	require.Equal(t, uint32(0x30), ScanHex([]byte("3"), 0, 2), "out of range reads as 0")
	require.Equal(t, uint32(0x10), ScanHex([]byte("1Z"), 0, 2), "invalid digit reads as 0")
}

func TestAppendHex(t *testing.T) {
	require.Equal(t, "0303", string(AppendHex(nil, 0x0303, 4)))
	require.Equal(t, "9DD80942", string(AppendHex32(nil, 0x9dd80942)))
	require.Equal(t, "ES+0F", string(AppendHex([]byte("ES+"), 0x0f, 2)))
}

func TestHexRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		v := rapid.Uint32().Draw(t, "v")
		if got := ScanHex(AppendHex32(nil, v), 0, 8); got != v {
			t.Fatalf("round trip %08x -> %08x", v, got)
		}
	})
}
