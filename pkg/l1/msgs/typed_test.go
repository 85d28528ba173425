package msgs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTypedRoundTrip(t *testing.T) {
	cases := []struct {
		msg   SerializableMessage
		event bool
	}{
		{msg: NewCommandOK()},
		{msg: NewCommandErrFromMsg("queue full")},
		{msg: &Uplink{}},
		{msg: func() *Uplink { m := &Uplink{}; m.Opcode, m.Arg1, m.Arg2 = 6, 1, 0; return m }()},
		{msg: func() *Downlink { m := &Downlink{}; m.Frame = []byte{0x55, 1}; return m }(), event: true},
		{msg: func() *CommandResult {
			m := &CommandResult{}
			m.Opcode, m.Name, m.Succeeded, m.Ticks = 6, "COL_BLOCK", true, 3
			return m
		}(), event: true},
		{msg: func() *Nack { m := &Nack{}; m.Opcode, m.Status = 0xFF, 2; return m }(), event: true},
		{msg: func() *RadioStatus { m := &RadioStatus{}; m.Scw, m.Baud = 0x0303, 9600; return m }(), event: true},
	}
	for _, c := range cases {
		t.Run(Name(c.msg), func(t *testing.T) {
			typed, err := TypedFrom(c.msg)
			require.NoError(t, err)
			typed.Sequence = 7
			data, err := typed.Encode()
			require.NoError(t, err)

			decoded, err := DecodeTyped(data)
			require.NoError(t, err)
			require.Equal(t, uint32(7), decoded.Sequence)
			require.Equal(t, c.event, decoded.IsEvent())
			require.Equal(t, !c.event, decoded.IsCommand())
			msg, err := decoded.Decode()
			require.NoError(t, err)
			require.Equal(t, c.msg.Serializable().String(), msg.(SerializableMessage).Serializable().String())
		})
	}
}

func TestTypedErrors(t *testing.T) {
	_, err := TypedFrom(nil)
	require.Equal(t, ErrNotSerializable, err)

	typed := &Typed{}
	typed.TypeId = GroupCustom | 1
	_, err = typed.Decode()
	require.Equal(t, &UnknownTypeError{TypeID: GroupCustom | 1}, err)
	require.Panics(t, func() { Register(&Nack{}) })
	_, ok := Lookup(NackTypeID)
	require.True(t, ok)

	_, err = DecodeTyped([]byte{0xFF})
	require.Error(t, err)
}
