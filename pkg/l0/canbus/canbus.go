// Package canbus connects the OBC to the subsystem CAN bus.
package canbus

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/brutella/can"
	"github.com/golang/glog"
)

// Frame is a CAN frame carrying a full 8-byte payload.
type Frame struct {
	ID   uint32
	Data [8]byte
}

// Handler receives frames.
type Handler func(Frame)

// Link publishes frames and delivers frames by ID.
type Link interface {
	Publish(Frame) error
	Subscribe(id uint32, h Handler)
}

type subscriptions struct {
	lock     sync.RWMutex
	handlers map[uint32][]Handler
}

func (s *subscriptions) add(id uint32, h Handler) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.handlers == nil {
		s.handlers = make(map[uint32][]Handler)
	}
	s.handlers[id] = append(s.handlers[id], h)
}

func (s *subscriptions) dispatch(f Frame) {
	s.lock.RLock()
	handlers := s.handlers[f.ID]
	s.lock.RUnlock()
	for _, h := range handlers {
		h(f)
	}
}

// SocketCAN is a Link over a Linux SocketCAN interface.
type SocketCAN struct {
	Interface string

	bus  *can.Bus
	subs subscriptions
}

// Open opens the named SocketCAN interface. Frames flow after Run starts.
func Open(iface string) (*SocketCAN, error) {
	ifc, err := net.InterfaceByName(iface)
	if err != nil {
		return nil, fmt.Errorf("CAN interface %s: %w", iface, err)
	}
	conn, err := can.NewReadWriteCloserForInterface(ifc)
	if err != nil {
		return nil, fmt.Errorf("open CAN bus %s: %w", iface, err)
	}
	s := &SocketCAN{Interface: iface, bus: can.NewBus(conn)}
	s.bus.SubscribeFunc(s.handleFrame)
	return s, nil
}

// Name implements fx.Named.
func (s *SocketCAN) Name() string {
	return "can:" + s.Interface
}

// Run implements fx.Runnable.
func (s *SocketCAN) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.bus.ConnectAndPublish()
	}()
	select {
	case <-ctx.Done():
		s.bus.Disconnect()
		<-errCh
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Publish implements Link.
func (s *SocketCAN) Publish(f Frame) error {
	glog.V(4).Infof("CAN TX %03x % x", f.ID, f.Data)
	return s.bus.Publish(can.Frame{ID: f.ID, Length: 8, Data: f.Data})
}

// Subscribe implements Link.
func (s *SocketCAN) Subscribe(id uint32, h Handler) {
	s.subs.add(id, h)
}

func (s *SocketCAN) handleFrame(f can.Frame) {
	if f.Length != 8 {
		glog.V(4).Infof("CAN RX %03x ignored, %d bytes", f.ID, f.Length)
		return
	}
	glog.V(4).Infof("CAN RX %03x % x", f.ID, f.Data)
	s.subs.dispatch(Frame{ID: f.ID, Data: f.Data})
}

// Loopback is an in-process Link. Published frames are delivered in order,
// from a goroutine of its own, to the subscribers of their ID.
type Loopback struct {
	subs   subscriptions
	frames chan Frame
	once   sync.Once
	lock   sync.RWMutex
	closed bool
}

// NewLoopback creates a Loopback.
func NewLoopback() *Loopback {
	return &Loopback{frames: make(chan Frame, 256)}
}

// Publish implements Link.
func (l *Loopback) Publish(f Frame) error {
	l.once.Do(func() { go l.deliver() })
	l.lock.RLock()
	defer l.lock.RUnlock()
	if l.closed {
		return ErrClosed
	}
	select {
	case l.frames <- f:
		return nil
	default:
		return ErrBusy
	}
}

// Subscribe implements Link.
func (l *Loopback) Subscribe(id uint32, h Handler) {
	l.subs.add(id, h)
}

// Close stops delivery.
func (l *Loopback) Close() error {
	l.lock.Lock()
	defer l.lock.Unlock()
	if !l.closed {
		l.closed = true
		close(l.frames)
	}
	return nil
}

func (l *Loopback) deliver() {
	for f := range l.frames {
		l.subs.dispatch(f)
	}
}
