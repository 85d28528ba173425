package comm

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestEncodeFrame(t *testing.T) {
	payload := []byte{1, 2, 3}
	frame, err := EncodeFrame(payload, DefaultMaxPayload)
	require.NoError(t, err)
	require.Len(t, frame, len(payload)+FrameOverhead)
	crc := CRC32([]byte{3, 1, 2, 3})
	expect := []byte{Delimiter, 3, Delimiter, 1, 2, 3, Delimiter, 0, 0, 0, 0, Delimiter}
	binary.BigEndian.PutUint32(expect[7:], crc)
	require.Equal(t, expect, frame)

	testCases := []struct {
		name    string
		payload []byte
		max     int
	}{
		{"empty", nil, DefaultMaxPayload},
		{"too large", make([]byte, 11), 10},
		{"beyond length byte", make([]byte, 256), 1024},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := EncodeFrame(tc.payload, tc.max)
			require.Equal(t, ErrPayloadLength, err)
		})
	}
}

func TestFrameRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		payload := rapid.SliceOfN(rapid.Byte(), 1, DefaultMaxPayload).Draw(t, "payload")
		frame, err := EncodeFrame(payload, DefaultMaxPayload)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		if len(frame) != len(payload)+FrameOverhead {
			t.Fatalf("frame length %d for payload %d", len(frame), len(payload))
		}
		decoded, err := DecodeFrame(frame)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		require.Equal(t, payload, decoded)
	})
}

func TestDecodeFrameErrors(t *testing.T) {
	frame, err := EncodeFrame([]byte{9, 8, 7, 6}, DefaultMaxPayload)
	require.NoError(t, err)

	bad := append([]byte(nil), frame...)
	bad[4] ^= 0xff
	_, err = DecodeFrame(bad)
	require.Equal(t, ErrFrameChecksum, err)

	_, err = DecodeFrame(frame[:len(frame)-1])
	require.Equal(t, ErrFrameLength, err)

	bad = append([]byte(nil), frame...)
	bad[2] = 0
	_, err = DecodeFrame(bad)
	require.Equal(t, ErrNotFrame, err)
}

func TestDecodeUplink(t *testing.T) {
	u := Uplink{Opcode: 0x06, Arg1: 0x01020304, Arg2: 0xa0b0c0d0}
	frame := EncodeUplink(u)
	require.Len(t, frame, UplinkFrameLen)

	decoded, status := DecodeUplink(frame)
	require.Equal(t, AckOK, status)
	require.Equal(t, u, decoded)

	t.Run("invalid checksum", func(t *testing.T) {
		bad := append([]byte(nil), frame...)
		bad[UplinkPayloadLen+5] ^= 0x01
		decoded, status := DecodeUplink(bad)
		require.Equal(t, AckInvalidChecksum, status)
		require.Equal(t, Uplink{}, decoded)
	})

	t.Run("invalid length", func(t *testing.T) {
		bad := append([]byte(nil), frame...)
		bad[1] = 8
		_, status := DecodeUplink(bad)
		require.Equal(t, AckInvalidLength, status)
	})

	t.Run("delimiters misplaced", func(t *testing.T) {
		bad := append([]byte(nil), frame...)
		bad[12] = 0
		_, status := DecodeUplink(bad)
		require.Equal(t, AckNotFrame, status)
		_, status = DecodeUplink(frame[:UplinkFrameLen-1])
		require.Equal(t, AckNotFrame, status)
	})
}

func TestUplinkBytes(t *testing.T) {
	u := Uplink{Opcode: 0x13, Arg1: 2, Arg2: 0x100}
	require.Equal(t, []byte{0x13, 0, 0, 0, 2, 0, 0, 1, 0}, u.Bytes())
	parsed, ok := ParseUplink(u.Bytes())
	require.True(t, ok)
	require.Equal(t, u, parsed)
	_, ok = ParseUplink([]byte{1, 2})
	require.False(t, ok)
}
