package comm

import (
	"io"
	"sync"
)

// PacketReader reads packets in bytes.
type PacketReader interface {
	ReadPacket() ([]byte, error)
}

// PacketWriter writes packets in bytes.
type PacketWriter interface {
	WritePacket([]byte) error
}

// PacketReadWriter reads/writes packets in bytes.
type PacketReadWriter interface {
	PacketReader
	PacketWriter
}

// ChanReadWriter is one end of an in-process packet pipe.
type ChanReadWriter struct {
	in   <-chan []byte
	out  chan<- []byte
	done chan struct{}
	once *sync.Once
}

// NewPacketPipe creates two connected PacketReadWriters. Closing either end
// closes both.
func NewPacketPipe() (*ChanReadWriter, *ChanReadWriter) {
	ab, ba := make(chan []byte, 16), make(chan []byte, 16)
	done, once := make(chan struct{}), &sync.Once{}
	return &ChanReadWriter{in: ba, out: ab, done: done, once: once},
		&ChanReadWriter{in: ab, out: ba, done: done, once: once}
}

// ReadPacket implements PacketReader. Packets still queued are not read
// once the pipe is closed.
func (p *ChanReadWriter) ReadPacket() ([]byte, error) {
	if p.closed() {
		return nil, io.EOF
	}
	select {
	case pkt := <-p.in:
		return pkt, nil
	case <-p.done:
		return nil, io.EOF
	}
}

// WritePacket implements PacketWriter.
func (p *ChanReadWriter) WritePacket(pkt []byte) error {
	if p.closed() {
		return io.ErrClosedPipe
	}
	select {
	case p.out <- append([]byte(nil), pkt...):
		return nil
	case <-p.done:
		return io.ErrClosedPipe
	}
}

func (p *ChanReadWriter) closed() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Close implements io.Closer.
func (p *ChanReadWriter) Close() error {
	p.once.Do(func() { close(p.done) })
	return nil
}
