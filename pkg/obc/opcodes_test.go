package obc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestDateTimePacking(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ts := time.Date(
			2000+rapid.IntRange(0, 99).Draw(t, "year"),
			time.Month(rapid.IntRange(1, 12).Draw(t, "month")),
			rapid.IntRange(1, 28).Draw(t, "day"),
			rapid.IntRange(0, 23).Draw(t, "hour"),
			rapid.IntRange(0, 59).Draw(t, "minute"),
			rapid.IntRange(0, 59).Draw(t, "second"),
			0, time.UTC)
		back, ok := UnpackDateTime(PackDate(ts), PackTime(ts))
		if !ok || !back.Equal(ts) {
			t.Fatalf("%v unpacked as %v (%v)", ts, back, ok)
		}
	})
}

func TestParseDateTimeInvalid(t *testing.T) {
	cases := map[string][]byte{
		"short":     {1, 2, 3},
		"month 0":   {26, 0, 1, 0, 0, 0},
		"feb 30":    {26, 2, 30, 0, 0, 0},
		"hour 24":   {26, 1, 1, 24, 0, 0},
		"second 60": {26, 1, 1, 0, 0, 60},
	}
	for name, b := range cases {
		t.Run(name, func(t *testing.T) {
			_, ok := ParseDateTime(b)
			require.False(t, ok)
		})
	}
}

func TestBlockBytes(t *testing.T) {
	b := Block{
		Header: Header{BlockNum: 0x010203, Error: 4, Time: time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)},
		Fields: []uint32{0xAABBCC, 0x00DDEE, 0xFF123456},
	}
	data := b.Bytes()
	require.Equal(t, []byte{1, 2, 3, 4, 26, 5, 6, 7, 8, 9}, data[:HeaderLen])
	require.Equal(t, []byte{0xAA, 0xBB, 0xCC, 0x00, 0xDD, 0xEE, 0x12, 0x34, 0x56}, data[HeaderLen:])

	decoded, ok := DecodeBlock(data, 3)
	require.True(t, ok)
	require.Equal(t, b.Header, decoded.Header)
	require.Equal(t, []uint32{0xAABBCC, 0x00DDEE, 0x123456}, decoded.Fields)

	_, ok = DecodeBlock(data, 4)
	require.False(t, ok)
}

func TestMessage(t *testing.T) {
	m := RawMessage(0x01020300, 0xDEADBEEF)
	require.Equal(t, byte(1), m.Opcode())
	require.Equal(t, byte(2), m.Field())
	require.Equal(t, byte(3), m.Status())
	require.Equal(t, uint32(0xDEADBEEF), m.Data())
	require.Equal(t, NewMessage(1, 2, 0).WithStatus(3, 0xDEADBEEF), m)
}

func TestOpcodeNames(t *testing.T) {
	descs := New(nil, nil, nil).Descriptors()
	require.Len(t, descs, len(opcodeNames))
	for _, d := range descs {
		require.NotEqual(t, d.Opcode.String(), d.Name)
		op, ok := ParseOpcode(d.Name)
		require.True(t, ok)
		require.Equal(t, d.Opcode, op)
	}
	require.Equal(t, "0x0C", OpcodeName(0x0C))
	_, ok := ParseOpcode("SET_MEM_SEC_START_ADDR")
	require.False(t, ok)
}
