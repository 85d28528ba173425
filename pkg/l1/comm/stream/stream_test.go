package stream

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	fx "github.com/robotalks/obc.go/pkg/framework"
	"github.com/robotalks/obc.go/pkg/l1"
	"github.com/robotalks/obc.go/pkg/l1/comm"
	"github.com/robotalks/obc.go/pkg/l1/msgs"
)

func TestReadWriter(t *testing.T) {
	var buf bytes.Buffer
	rw := New(&buf)
	require.NoError(t, rw.WritePacket([]byte("abc")))
	require.NoError(t, rw.WritePacket(nil))
	require.Equal(t, []byte{3, 0, 0, 0, 'a', 'b', 'c', 0, 0, 0, 0}, buf.Bytes())
	pkt, err := rw.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, []byte("abc"), pkt)
	pkt, err = rw.ReadPacket()
	require.NoError(t, err)
	require.Empty(t, pkt)

	buf.Write([]byte{0, 0, 0, 1})
	_, err = rw.ReadPacket()
	require.Equal(t, ErrPacketTooLarge, err)
}

func TestServerAndConnector(t *testing.T) {
	srv, err := Listen("127.0.0.1:0")
	require.NoError(t, err)
	srv.SetHandler(l1.HandleCommandFunc(func(ctx context.Context, cmd l1.Command) {
		cmd.Done(msgs.NewCommandOK())
	}))

	ctx, cancel := context.WithCancel(context.Background())
	l := fx.NewLoop()
	l.Interval = 10 * time.Millisecond
	l.Add(srv)

	conn, err := NewConnector("tcp://" + srv.Listener.Addr().String() + "/sim/1")
	require.NoError(t, err)
	require.Equal(t, l1.NodeRef{Type: "sim", ID: "1"}, conn.Ref)
	nc, err := conn.Connect(ctx, conn.Ref)
	require.NoError(t, err)
	l.Add(nc.(*comm.NodeConn))
	events := make(chan msgs.Message, 1)
	nc.OnEvent(func(msg msgs.Message) { events <- msg })

	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	select {
	case res := <-nc.DoCommand(&msgs.Uplink{}).ResultChan():
		require.NoError(t, res.Err)
	case <-time.After(time.Second):
		t.Fatal("no result")
	}
	require.Equal(t, 1, srv.Clients())

	require.NoError(t, srv.SendEvent(ctx, &msgs.Downlink{}))
	select {
	case ev := <-events:
		require.IsType(t, &msgs.Downlink{}, ev)
	case <-time.After(time.Second):
		t.Fatal("no event")
	}
}
