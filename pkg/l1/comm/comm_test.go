package comm

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	fx "github.com/robotalks/obc.go/pkg/framework"
	"github.com/robotalks/obc.go/pkg/l1"
	"github.com/robotalks/obc.go/pkg/l1/msgs"
)

func runLoop(t *testing.T, adders ...fx.LoopAdder) {
	ctx, cancel := context.WithCancel(context.Background())
	l := fx.NewLoop()
	l.Interval = 10 * time.Millisecond
	l.Add(adders...)
	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func result(t *testing.T, f l1.CommandFuture) l1.Result {
	select {
	case res := <-f.ResultChan():
		return res
	case <-time.After(time.Second):
		t.Fatal("no result")
	}
	return l1.Result{}
}

func TestRegistrarAndNodeConn(t *testing.T) {
	a, b := NewPacketPipe()
	var reg Registrar
	reg.Init(a)
	var conn NodeConn
	conn.Init(b)

	uplinks := make(chan *msgs.Uplink, 1)
	reg.SetHandler(l1.HandleCommandFunc(func(ctx context.Context, cmd l1.Command) {
		if u, ok := cmd.Msg().(*msgs.Uplink); ok {
			uplinks <- u
			cmd.Done(msgs.NewCommandOK())
			return
		}
		Unsupported.HandleCommand(ctx, cmd)
	}))
	events := make(chan msgs.Message, 1)
	conn.OnEvent(func(msg msgs.Message) { events <- msg })
	runLoop(t, &reg, &conn)

	u := &msgs.Uplink{}
	u.Opcode, u.Arg1 = 6, 2
	res := result(t, conn.DoCommand(u))
	require.NoError(t, res.Err)
	require.IsType(t, &msgs.CommandOK{}, res.Msg)
	got := <-uplinks
	require.Equal(t, uint32(6), got.Opcode)
	require.Equal(t, uint32(2), got.Arg1)

	res = result(t, conn.DoCommand(msgs.NewCommandOK()))
	require.Equal(t, msgs.ErrUnsupportedCommand.Error(), res.Err.Error())

	nack := &msgs.Nack{}
	nack.Opcode, nack.Status = 0xFF, 2
	require.NoError(t, reg.SendEvent(context.Background(), nack))
	select {
	case ev := <-events:
		require.Equal(t, nack.Serializable().String(), ev.(*msgs.Nack).Serializable().String())
	case <-time.After(time.Second):
		t.Fatal("no event")
	}
}

func TestNodeConnExpiration(t *testing.T) {
	a, b := NewPacketPipe()
	defer a.Close()
	var conn NodeConn
	conn.Init(b)
	conn.Expiration = 20 * time.Millisecond
	runLoop(t, &conn)
	res := result(t, conn.DoCommand(&msgs.Uplink{}))
	require.Equal(t, context.DeadlineExceeded, res.Err)
}

func TestPacketPipe(t *testing.T) {
	a, b := NewPacketPipe()
	require.NoError(t, a.WritePacket([]byte{1, 2}))
	pkt, err := b.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2}, pkt)
	require.NoError(t, b.WritePacket([]byte{3}))
	require.NoError(t, b.Close())
	for n := 0; n < 10; n++ {
		_, err = a.ReadPacket()
		require.Equal(t, io.EOF, err)
		require.Equal(t, io.ErrClosedPipe, a.WritePacket(nil))
	}
}

func TestPipeSendKind(t *testing.T) {
	a, b := NewPacketPipe()
	defer a.Close()
	p := NewPipe(a)
	require.Equal(t, ErrNotCommand, p.SendCommandMsg(&msgs.Nack{}, 1))
	require.Equal(t, ErrNotEvent, p.SendEventMsg(&msgs.Uplink{}))
	require.NoError(t, p.SendCommandMsg(&msgs.Uplink{}, 7))

	pkt, err := b.ReadPacket()
	require.NoError(t, err)
	typed, err := msgs.DecodeTyped(pkt)
	require.NoError(t, err)
	require.True(t, typed.IsCommand())
	require.Equal(t, uint32(7), typed.Sequence)
	require.Equal(t, msgs.UplinkTypeID, typed.TypeId)
}

func TestNodeConnClosed(t *testing.T) {
	a, b := NewPacketPipe()
	var conn NodeConn
	conn.Init(b)
	conn.Expiration = time.Hour
	runLoop(t, &conn)
	f := conn.DoCommand(&msgs.Uplink{})
	_, err := a.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, 1, conn.Pending())
	a.Close()
	require.Equal(t, ErrConnClosed, result(t, f).Err)
	require.Zero(t, conn.Pending())
}
