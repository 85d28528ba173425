package mqtt

import (
	"context"
	"io"

	"github.com/robotalks/obc.go/pkg/l1"
)

// Topic suffixes under the node name.
const (
	TopicCommand = "cmd"
	TopicMessage = "msg"
	TopicMeta    = "meta"
)

// ReadWriter implements PacketReadWriter over a pair of topics.
type ReadWriter struct {
	Queue    *Queue
	SubTopic string
	PubTopic string

	packetCh chan []byte
	done     chan struct{}
}

// NewPacketReadWriter creates the ReadWriter.
func NewPacketReadWriter(q *Queue) *ReadWriter {
	return &ReadWriter{Queue: q, packetCh: make(chan []byte, 16), done: make(chan struct{})}
}

// WithTopics specifies the topics.
func (p *ReadWriter) WithTopics(sub, pub string) *ReadWriter {
	p.SubTopic, p.PubTopic = sub, pub
	return p
}

// ForConnector sets topics used by ground tools:
// SubTopic = node/msg
// PubTopic = node/cmd
func (p *ReadWriter) ForConnector(ref l1.NodeRef) *ReadWriter {
	prefix := ref.Name() + "/"
	return p.WithTopics(prefix+TopicMessage, prefix+TopicCommand)
}

// ForNode sets topics used by the node:
// SubTopic = node/cmd
// PubTopic = node/msg
func (p *ReadWriter) ForNode(ref l1.NodeRef) *ReadWriter {
	prefix := ref.Name() + "/"
	return p.WithTopics(prefix+TopicCommand, prefix+TopicMessage)
}

// ReadPacket implements PacketReader.
func (p *ReadWriter) ReadPacket() ([]byte, error) {
	select {
	case pkt := <-p.packetCh:
		return pkt, nil
	case <-p.done:
		return nil, io.EOF
	}
}

// WritePacket implements PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	token := p.Queue.Pub(p.PubTopic, pkt)
	if !token.WaitTimeout(DefaultConnectTimeout) {
		return ErrTimeout
	}
	return token.Error()
}

// Name implements Named.
func (p *ReadWriter) Name() string {
	return "mqtt:" + p.SubTopic
}

// Run implements Runnable.
func (p *ReadWriter) Run(ctx context.Context) error {
	sub := p.Queue.Sub(p.SubTopic, Handler(p.handleMsg))
	<-ctx.Done()
	close(p.done)
	sub.Close()
	return ctx.Err()
}

func (p *ReadWriter) handleMsg(_ string, payload []byte) {
	select {
	case p.packetCh <- payload:
	case <-p.done:
	}
}
