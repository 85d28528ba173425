package sh

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/obc.go/pkg/l1"
	"github.com/robotalks/obc.go/pkg/l1/msgs"
)

func nack(op uint32) msgs.Message {
	m := &msgs.Nack{}
	m.Opcode = op
	return m
}

func opcodes(events []Event) []uint32 {
	var ops []uint32
	for _, ev := range events {
		ops = append(ops, ev.Msg.(*msgs.Nack).Opcode)
	}
	return ops
}

func TestEventLog(t *testing.T) {
	l := NewEventLog(3)
	require.Empty(t, l.Last(0))
	l.Add(nack(1))
	l.Add(nack(2))
	require.Equal(t, []uint32{1, 2}, opcodes(l.Last(0)))
	require.Equal(t, []uint32{2}, opcodes(l.Last(1)))

	l.Add(nack(3))
	l.Add(nack(4))
	require.Equal(t, []uint32{2, 3, 4}, opcodes(l.Last(0)))
	require.Equal(t, []uint32{3, 4}, opcodes(l.Last(2)))
	require.Equal(t, []uint32{2, 3, 4}, opcodes(l.Last(10)))

	l.Reset()
	require.Empty(t, l.Last(0))
	require.Equal(t, 1, len(NewEventLog(0).events))
}

func TestFormatInfo(t *testing.T) {
	cases := []struct {
		desc string
		want string
	}{
		{want: "flight/a1"},
		{desc: "bench", want: "flight/a1: bench"},
	}
	for _, c := range cases {
		t.Run(c.want, func(t *testing.T) {
			var info l1.NodeInfo
			info.Ref.Type, info.Ref.ID = "flight", "a1"
			info.Meta.Description = c.desc
			require.Equal(t, c.want, FormatInfo(info))
		})
	}
}
