package obc_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	fx "github.com/robotalks/obc.go/pkg/framework"
	"github.com/robotalks/obc.go/pkg/l0/canbus"
	"github.com/robotalks/obc.go/pkg/l0/comm"
	l1comm "github.com/robotalks/obc.go/pkg/l1/comm"
	"github.com/robotalks/obc.go/pkg/l1/command"
	"github.com/robotalks/obc.go/pkg/l1/msgs"
	"github.com/robotalks/obc.go/pkg/obc"
	"github.com/robotalks/obc.go/pkg/sim"
	"github.com/robotalks/obc.go/pkg/sim/transceiver"
)

type nodeHarness struct {
	node   *obc.Node
	trx    *transceiver.Transceiver
	conn   *l1comm.NodeConn
	events chan msgs.Message
}

func newNodeHarness(t *testing.T) *nodeHarness {
	trx := transceiver.New()
	link := canbus.NewLoopback()
	sim.NewBoard(obc.SubsysEPS, link)
	sim.NewBoard(obc.SubsysPAY, link)
	a, b := l1comm.NewPacketPipe()
	reg := &l1comm.Registrar{}
	reg.Init(a)
	h := &nodeHarness{
		trx:    trx,
		conn:   &l1comm.NodeConn{},
		events: make(chan msgs.Message, 64),
	}
	h.conn.Init(b)
	h.conn.OnEvent(func(msg msgs.Message) { h.events <- msg })
	h.node = obc.NewNode(obc.NodeConfig{
		UART:           trx.Port(),
		CAN:            link,
		Clock:          &sim.Clock{Source: func() time.Time { return testNow }},
		Memory:         sim.NewMemory(),
		Registrar:      reg,
		GuardDelay:     time.Millisecond,
		TargetBaud:     19200,
		StatusInterval: 50 * time.Millisecond,
	})
	h.node.Client.ResponseTimeout = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	l := fx.NewLoop()
	l.Interval = 20 * time.Millisecond
	l.Add(h.node, h.conn)
	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		trx.Port().Close()
		link.Close()
		<-done
	})
	require.Eventually(t, func() bool {
		return trx.Baud() == 19200 && trx.Port().BaudRate() == 19200
	}, 2*time.Second, 10*time.Millisecond)
	return h
}

func (h *nodeHarness) air(t *testing.T) []byte {
	select {
	case frame := <-h.trx.Air:
		payload, err := comm.DecodeFrame(frame)
		require.NoError(t, err)
		return payload
	case <-time.After(2 * time.Second):
		t.Fatal("nothing transmitted")
	}
	return nil
}

// event waits for the first event accepted by match.
func (h *nodeHarness) event(t *testing.T, match func(msgs.Message) bool) msgs.Message {
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev := <-h.events:
			if match(ev) {
				return ev
			}
		case <-timeout:
			t.Fatal("event not received")
			return nil
		}
	}
}

func TestNodeOverRadio(t *testing.T) {
	h := newNodeHarness(t)
	h.trx.Uplink(comm.EncodeUplink(comm.Uplink{Opcode: byte(obc.OpPing), Arg1: 7}))
	payload := h.air(t)
	require.Equal(t, comm.Uplink{Opcode: byte(obc.OpPing), Arg1: 7}.Bytes(), payload)
	require.True(t, h.trx.Registers().SCW.Pipe())

	ev := h.event(t, func(m msgs.Message) bool {
		_, ok := m.(*msgs.CommandResult)
		return ok
	}).(*msgs.CommandResult)
	require.Equal(t, "PING", ev.Name)
	require.True(t, ev.Succeeded)
	require.True(t, ev.Replied)

	down := h.event(t, func(m msgs.Message) bool {
		_, ok := m.(*msgs.Downlink)
		return ok
	}).(*msgs.Downlink)
	require.Equal(t, payload, down.Payload)
}

func TestNodeGroundUplink(t *testing.T) {
	h := newNodeHarness(t)
	u := &msgs.Uplink{}
	u.Opcode = uint32(obc.OpGetRTC)
	select {
	case res := <-h.conn.DoCommand(u).ResultChan():
		require.NoError(t, res.Err)
	case <-time.After(time.Second):
		t.Fatal("no result")
	}
	payload := h.air(t)
	require.Equal(t, byte(obc.OpGetRTC), payload[0])
	require.Equal(t, obc.DateTimeBytes(testNow), payload[command.ReplyHeaderLen:])

	u.Opcode = 0x100
	select {
	case res := <-h.conn.DoCommand(u).ResultChan():
		require.Error(t, res.Err)
	case <-time.After(time.Second):
		t.Fatal("no result")
	}
}

func TestNodeNack(t *testing.T) {
	h := newNodeHarness(t)
	frame := comm.EncodeUplink(comm.Uplink{Opcode: byte(obc.OpPing)})
	frame[len(frame)-2] ^= 0xff
	h.trx.Uplink(frame)
	nack := h.event(t, func(m msgs.Message) bool {
		_, ok := m.(*msgs.Nack)
		return ok
	}).(*msgs.Nack)
	require.Equal(t, uint32(comm.AckInvalidChecksum), nack.Status)
}

func TestNodeRadioStatus(t *testing.T) {
	h := newNodeHarness(t)
	h.trx.Update(func(regs *transceiver.Registers) { regs.TxPackets = 11 })
	st := h.event(t, func(m msgs.Message) bool {
		_, ok := m.(*msgs.RadioStatus)
		return ok
	}).(*msgs.RadioStatus)
	require.Equal(t, uint32(11), st.TxPackets)
	require.Equal(t, uint32(19200), st.Baud)
}
