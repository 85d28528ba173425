package command

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/obc.go/pkg/l0/comm"
)

func TestComposerReply(t *testing.T) {
	c := NewComposer()
	r := c.Start(0x04, 0x01020304, 0x0A0B0C0D)
	require.Equal(t, ReplyHeaderLen, r.Len())
	r.Append(0xEE).AppendUint24(0x112233).AppendUint32(0xDEADBEEF)
	require.NoError(t, c.Finish(r))
	require.True(t, c.Pending())

	payload, ok := c.Take()
	require.True(t, ok)
	require.Equal(t, []byte{
		0x04, 0x01, 0x02, 0x03, 0x04, 0x0A, 0x0B, 0x0C, 0x0D,
		0xEE, 0x11, 0x22, 0x33, 0xDE, 0xAD, 0xBE, 0xEF,
	}, payload)
	_, ok = c.Take()
	require.False(t, ok)
	require.False(t, c.Pending())
}

func TestComposerOverflow(t *testing.T) {
	cases := []struct {
		name   string
		strict bool
	}{
		{name: "silent truncation"},
		{name: "strict", strict: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := NewComposer()
			c.MaxPayload = 12
			c.Strict = tc.strict
			r := c.Start(0x01, 0, 0).Append(1, 2, 3, 4, 5)
			require.Equal(t, 12, r.Len())
			require.Equal(t, 2, r.Dropped())
			require.Zero(t, r.Room())
			r.Append(6)
			require.Equal(t, 3, r.Dropped())
			err := c.Finish(r)
			if tc.strict {
				require.Equal(t, ErrReplyOverflow, err)
				require.False(t, c.Pending())
				return
			}
			require.NoError(t, err)
			payload, ok := c.Take()
			require.True(t, ok)
			require.Equal(t, []byte{1, 0, 0, 0, 0, 0, 0, 0, 0, 1, 2, 3}, payload)
		})
	}
}

func TestComposerAck(t *testing.T) {
	c := NewComposer()
	var acks []Ack
	c.OnAck = func(a Ack) { acks = append(acks, a) }
	var notified int
	c.Notify = func() { notified++ }

	c.Ack(UnknownOpcode, comm.AckInvalidChecksum)
	c.Ack(0x06, comm.AckQueueFull)
	require.Len(t, acks, 2)
	require.NoError(t, c.Finish(c.Start(0x00, 0, 0)))
	require.Equal(t, 3, notified)

	// the reply goes first, the latest ack after it
	payload, ok := c.Take()
	require.True(t, ok)
	require.Equal(t, make([]byte, ReplyHeaderLen), payload)
	payload, ok = c.Take()
	require.True(t, ok)
	require.Equal(t, []byte{0x06, 0, 0, 0, 0, 0, 0, 0, 0, byte(comm.AckQueueFull)}, payload)
	_, ok = c.Take()
	require.False(t, ok)
}

func TestComposerOutboundOrder(t *testing.T) {
	c := NewComposer()
	c.Capacity = 3
	var acks []Ack
	c.OnAck = func(a Ack) { acks = append(acks, a) }

	require.NoError(t, c.Finish(c.Start(0x01, 0, 0)))
	c.Reject(0x02, comm.AckFailed)
	require.NoError(t, c.Finish(c.Start(0x03, 0, 0)))
	require.Equal(t, ErrOutboundFull, c.Finish(c.Start(0x04, 0, 0)))
	// a full outbound falls back to the record
	c.Reject(0x05, comm.AckTimeout)
	require.Equal(t, []Ack{{0x02, comm.AckFailed}, {0x05, comm.AckTimeout}}, acks)

	var ops []byte
	for {
		payload, ok := c.Take()
		if !ok {
			break
		}
		ops = append(ops, payload[0])
	}
	require.Equal(t, []byte{0x01, 0x02, 0x03, 0x05}, ops)
	require.False(t, c.Pending())
}
