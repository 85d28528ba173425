package websocket

import (
	"golang.org/x/net/websocket"

	"github.com/robotalks/obc.go/pkg/l1/comm/stream"
)

// ReadWriter carries one packet per binary frame.
type ReadWriter struct {
	Conn *websocket.Conn
}

// New switches conn to binary frames no larger than a stream packet.
func New(conn *websocket.Conn) *ReadWriter {
	conn.PayloadType = websocket.BinaryFrame
	conn.MaxPayloadBytes = stream.DefaultMaxPacket
	return &ReadWriter{Conn: conn}
}

// ReadPacket implements PacketReader.
func (p *ReadWriter) ReadPacket() (pkt []byte, err error) {
	err = websocket.Message.Receive(p.Conn, &pkt)
	return
}

// WritePacket implements PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	return websocket.Message.Send(p.Conn, pkt)
}

// Close implements io.Closer.
func (p *ReadWriter) Close() error {
	return p.Conn.Close()
}
