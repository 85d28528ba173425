package websocket

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	fx "github.com/robotalks/obc.go/pkg/framework"
	"github.com/robotalks/obc.go/pkg/l1"
	"github.com/robotalks/obc.go/pkg/l1/comm"
	"github.com/robotalks/obc.go/pkg/l1/msgs"
)

func TestNewConnector(t *testing.T) {
	c, err := NewConnector("ws://localhost:8080?node=flight/fm1")
	require.NoError(t, err)
	require.Equal(t, "ws://localhost:8080/obc", c.URL)
	require.Equal(t, "http://localhost:8080", c.Origin)
	require.Equal(t, l1.NodeRef{Type: "flight", ID: "fm1"}, c.Ref)
}

func TestServerAndConnector(t *testing.T) {
	srv, err := Listen("127.0.0.1:0")
	require.NoError(t, err)
	srv.SetHandler(l1.HandleCommandFunc(func(ctx context.Context, cmd l1.Command) {
		if _, ok := cmd.Msg().(*msgs.Uplink); ok {
			cmd.Done(msgs.NewCommandOK())
			return
		}
		comm.Unsupported.HandleCommand(ctx, cmd)
	}))

	ctx, cancel := context.WithCancel(context.Background())
	l := fx.NewLoop()
	l.Interval = 10 * time.Millisecond
	l.Add(srv)
	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	c, err := NewConnector("ws://" + srv.Listener.Addr().String() + "/obc?node=sim/1")
	require.NoError(t, err)
	nodes, err := c.Discover(ctx)
	require.NoError(t, err)
	require.Equal(t, []l1.NodeInfo{{Ref: l1.NodeRef{Type: "sim", ID: "1"}}}, nodes)

	nc, err := c.Connect(ctx, c.Ref)
	require.NoError(t, err)
	conn := nc.(*comm.NodeConn)
	connCtx, connCancel := context.WithCancel(ctx)
	defer connCancel()
	pipeLoop := fx.NewLoop()
	pipeLoop.Interval = 10 * time.Millisecond
	pipeLoop.Add(conn)
	go pipeLoop.Run(connCtx)

	for _, cmd := range []msgs.Message{&msgs.Uplink{}, msgs.NewCommandOK()} {
		select {
		case res := <-conn.DoCommand(cmd).ResultChan():
			if _, ok := cmd.(*msgs.Uplink); ok {
				require.NoError(t, res.Err)
			} else {
				require.Error(t, res.Err)
			}
		case <-time.After(time.Second):
			t.Fatal("no result")
		}
	}
}
