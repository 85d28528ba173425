package radio

import (
	"context"
	"fmt"
	"time"

	"github.com/golang/glog"
)

// BaudSwitcher changes the baud rate of the local UART.
type BaudSwitcher interface {
	SetBaudRate(int) error
}

// SupportedBaudRates lists the rates tried during negotiation, in order.
// The index is the SCW baud code.
var SupportedBaudRates = []int{9600, 19200, 57600, 115200}

// BaudCode returns the SCW code of a baud rate.
func BaudCode(rate int) (byte, bool) {
	for n, r := range SupportedBaudRates {
		if r == rate {
			return byte(n), true
		}
	}
	return 0, false
}

// Negotiator recovers communication with the transceiver when the two
// sides disagree on the baud rate.
type Negotiator struct {
	Radio      *Radio
	Link       BaudSwitcher
	Configured int

	current int
}

// Current returns the last rate known to work, 0 if unknown.
func (n *Negotiator) Current() int {
	return n.current
}

func (n *Negotiator) probe(ctx context.Context, rate int) (SCWReading, error) {
	if err := n.Link.SetBaudRate(rate); err != nil {
		return SCWReading{}, err
	}
	return n.Radio.ReadSCW(ctx)
}

// Negotiate finds a working rate and then moves both sides to target.
// Other SCW changes through the same Radio wait until it returns.
func (n *Negotiator) Negotiate(ctx context.Context, target int) error {
	code, ok := BaudCode(target)
	if !ok {
		return ErrUnsupportedBaud
	}
	n.Radio.scwLock.Lock()
	defer n.Radio.scwLock.Unlock()
	n.Radio.pipeUntil = time.Time{}
	n.current = 0
	var (
		reading SCWReading
		err     error
	)
	if n.Configured != 0 {
		if reading, err = n.probe(ctx, n.Configured); err == nil {
			n.current = n.Configured
		}
	}
	for _, rate := range SupportedBaudRates {
		if n.current != 0 {
			break
		}
		if rate == n.Configured {
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		glog.V(2).Infof("trying %d baud", rate)
		if reading, err = n.probe(ctx, rate); err == nil {
			n.current = rate
		}
	}
	if n.current == 0 {
		return ErrNoWorkingBaud
	}
	glog.Infof("transceiver answers at %d baud, SCW %s", n.current, reading.SCW)
	if n.current == target {
		return nil
	}
	if err = n.Radio.writeSCW(ctx, reading.SCW.WithBaudCode(code)); err != nil {
		return fmt.Errorf("set transceiver baud %d: %w", target, err)
	}
	if err = n.Link.SetBaudRate(target); err != nil {
		return err
	}
	n.current = target
	if _, err = n.Radio.ReadSCW(ctx); err != nil {
		n.current = 0
		return fmt.Errorf("verify baud %d: %w", target, err)
	}
	return nil
}
