// Package serial opens the UART between the OBC and the transceiver.
package serial

import (
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"
	"go.bug.st/serial"
)

// DefaultReadTimeout bounds every Read so the receive path can notice idle
// gaps in the byte stream.
const DefaultReadTimeout = 100 * time.Millisecond

// Port is an opened UART. Read returns 0 bytes on timeout.
type Port struct {
	Name string

	port serial.Port
	mode serial.Mode
	lock sync.Mutex
}

// Open opens the named device at the baud rate.
func Open(name string, baud int) (*Port, error) {
	p := &Port{
		Name: name,
		mode: serial.Mode{
			BaudRate: baud,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		},
	}
	port, err := serial.Open(name, &p.mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	if err := port.SetReadTimeout(DefaultReadTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", name, err)
	}
	p.port = port
	glog.Infof("opened %s at %d baud", name, baud)
	return p, nil
}

// Read implements io.Reader.
func (p *Port) Read(b []byte) (int, error) {
	return p.port.Read(b)
}

// Write implements io.Writer.
func (p *Port) Write(b []byte) (int, error) {
	return p.port.Write(b)
}

// Close implements io.Closer.
func (p *Port) Close() error {
	return p.port.Close()
}

// BaudRate returns the current rate.
func (p *Port) BaudRate() int {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.mode.BaudRate
}

// SetBaudRate switches the rate and discards anything received at the old one.
func (p *Port) SetBaudRate(rate int) error {
	p.lock.Lock()
	defer p.lock.Unlock()
	if rate == p.mode.BaudRate {
		return nil
	}
	mode := p.mode
	mode.BaudRate = rate
	if err := p.port.SetMode(&mode); err != nil {
		return fmt.Errorf("set %s to %d baud: %w", p.Name, rate, err)
	}
	p.mode = mode
	if err := p.port.ResetInputBuffer(); err != nil {
		glog.Warningf("reset input of %s: %v", p.Name, err)
	}
	glog.V(2).Infof("%s now at %d baud", p.Name, rate)
	return nil
}
