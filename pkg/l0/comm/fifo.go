package comm

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/golang/glog"
)

// ResponseHandler is called when a device-control response is received.
type ResponseHandler interface {
	HandleResponse(context.Context, []byte)
}

// HandleResponseFunc is func type of ResponseHandler.
type HandleResponseFunc func(context.Context, []byte)

// HandleResponse implements ResponseHandler.
func (f HandleResponseFunc) HandleResponse(ctx context.Context, resp []byte) {
	f(ctx, resp)
}

// FrameHandler is called when an uplink frame is received.
type FrameHandler interface {
	HandleFrame(context.Context, []byte)
}

// HandleFrameFunc is func type of FrameHandler.
type HandleFrameFunc func(context.Context, []byte)

// HandleFrame implements FrameHandler.
func (f HandleFrameFunc) HandleFrame(ctx context.Context, frame []byte) {
	f(ctx, frame)
}

// DefaultGuardDelay is the quiet time around a downlink burst.
const DefaultGuardDelay = 100 * time.Millisecond

// FIFO sends bytes to and receives bytes from the radio UART.
type FIFO struct {
	ReadWriter  io.ReadWriter
	Responses   ResponseHandler
	Frames      FrameHandler
	GuardDelay  time.Duration
	IdleTimeout time.Duration
	ReadTimeout bool // set to true if ReadWriter already supports timeout with Read

	writeLock sync.Mutex
	parser    Parser
}

// NewFIFO creates a FIFO.
func NewFIFO(rw io.ReadWriter) *FIFO {
	return &FIFO{
		ReadWriter:  rw,
		GuardDelay:  DefaultGuardDelay,
		IdleTimeout: 500 * time.Millisecond,
	}
}

// Write sends bytes atomically with respect to other senders.
func (f *FIFO) Write(b []byte) error {
	f.writeLock.Lock()
	defer f.writeLock.Unlock()
	glog.V(4).Infof("TX %q", b)
	_, err := f.ReadWriter.Write(b)
	return err
}

// SendBurst sends b surrounded by the guard delay. No other writer can
// interleave while the burst and its guard times are in progress.
func (f *FIFO) SendBurst(ctx context.Context, b []byte) error {
	f.writeLock.Lock()
	defer f.writeLock.Unlock()
	if err := sleepCtx(ctx, f.GuardDelay); err != nil {
		return err
	}
	glog.V(4).Infof("TX burst % x", b)
	if _, err := f.ReadWriter.Write(b); err != nil {
		return err
	}
	return sleepCtx(ctx, f.GuardDelay)
}

// Run processes received bytes in the background.
func (f *FIFO) Run(ctx context.Context) error {
	f.parser.Reset()
	if f.ReadTimeout {
		buf := make([]byte, 64)
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			n, err := f.ReadWriter.Read(buf)
			if err != nil && !os.IsTimeout(err) {
				return err
			}
			if n == 0 {
				f.parser.Timeout()
				continue
			}
			f.feed(ctx, buf[:n])
		}
	}

	chunkCh, errCh := make(chan []byte), make(chan error, 1)
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go f.readLoop(subCtx, chunkCh, errCh)
	var idle <-chan time.Time
	for {
		select {
		case chunk := <-chunkCh:
			f.feed(ctx, chunk)
			if f.parser.Pending() > 0 && f.IdleTimeout > 0 {
				idle = time.After(f.IdleTimeout)
			} else {
				idle = nil
			}
		case <-idle:
			glog.V(4).Infof("RX idle, dropped %d bytes", f.parser.Pending())
			f.parser.Timeout()
			idle = nil
		case err := <-errCh:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (f *FIFO) readLoop(ctx context.Context, chunkCh chan []byte, errCh chan error) {
	buf := make([]byte, 64)
	for {
		n, err := f.ReadWriter.Read(buf)
		if err != nil {
			errCh <- err
			return
		}
		if n == 0 {
			continue
		}
		select {
		case chunkCh <- clone(buf[:n]):
		case <-ctx.Done():
			return
		}
	}
}

func (f *FIFO) feed(ctx context.Context, data []byte) {
	for _, pr := range f.parser.Feed(data) {
		if pr.Response != nil {
			glog.V(4).Infof("RX response %q", pr.Response)
			if h := f.Responses; h != nil {
				h.HandleResponse(ctx, pr.Response)
			}
		}
		if pr.Frame != nil {
			glog.V(2).Infof("RX frame % x", pr.Frame)
			if h := f.Frames; h != nil {
				h.HandleFrame(ctx, pr.Frame)
			}
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
