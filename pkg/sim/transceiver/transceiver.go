// Package transceiver simulates the UHF transceiver on the other end of the
// OBC UART. It answers device-control requests from its register file and
// forwards downlink frames to the air while in pipe mode.
package transceiver

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/obc.go/pkg/l0/comm"
	"github.com/robotalks/obc.go/pkg/l0/radio"
)

// Registers is the register file of the transceiver.
type Registers struct {
	SCW          radio.SCW
	RSSI         byte
	ResetCount   byte
	Frequency    uint32
	Uptime       uint32
	TxPackets    uint32
	RxPackets    uint32
	RxCRCErrors  uint32
	PipeTimeout  byte
	BeaconPeriod uint16
	DestCallSign string
	SrcCallSign  string
}

// DefaultRegisters returns the register file after power on.
func DefaultRegisters() Registers {
	return Registers{
		SCW:          radio.SCW(0x0303),
		RSSI:         0x40,
		Frequency:    radio.DefaultFrequency,
		PipeTimeout:  5,
		BeaconPeriod: 60,
		DestCallSign: "VE3GND",
		SrcCallSign:  "VE3OBC",
	}
}

// Transceiver is a simulated transceiver.
type Transceiver struct {
	Addr byte
	// Air receives the downlink frames transmitted in pipe mode.
	Air chan []byte

	regs    Registers
	silence int
	corrupt int
	lock    sync.Mutex
	line    []byte
	port    *Port
}

// New creates a Transceiver at the default address and 9600 baud.
func New() *Transceiver {
	t := &Transceiver{
		Addr: radio.DefaultAddr,
		Air:  make(chan []byte, 16),
		regs: DefaultRegisters(),
	}
	t.port = &Port{trx: t, baud: radio.SupportedBaudRates[0], rx: make(chan []byte, 64)}
	return t
}

// Port returns the UART end attached to the OBC.
func (t *Transceiver) Port() *Port {
	return t.port
}

// Registers returns a copy of the register file.
func (t *Transceiver) Registers() Registers {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.regs
}

// Update changes the register file.
func (t *Transceiver) Update(fn func(*Registers)) {
	t.lock.Lock()
	defer t.lock.Unlock()
	fn(&t.regs)
}

// Baud returns the rate the transceiver UART is configured to.
func (t *Transceiver) Baud() int {
	t.lock.Lock()
	defer t.lock.Unlock()
	return radio.SupportedBaudRates[t.regs.SCW.BaudCode()]
}

// Silence drops the replies of the next n requests.
func (t *Transceiver) Silence(n int) {
	t.lock.Lock()
	t.silence = n
	t.lock.Unlock()
}

// Corrupt damages the checksum of the next n replies.
func (t *Transceiver) Corrupt(n int) {
	t.lock.Lock()
	t.corrupt = n
	t.lock.Unlock()
}

// Uplink receives a frame from the ground and passes it to the OBC.
func (t *Transceiver) Uplink(frame []byte) {
	t.lock.Lock()
	t.regs.RxPackets++
	t.lock.Unlock()
	t.port.deliver(frame)
}

func (t *Transceiver) receive(data []byte, matched bool) {
	t.lock.Lock()
	if !matched {
		// garbage at the wrong rate
		t.line = t.line[:0]
		t.lock.Unlock()
		glog.V(4).Infof("transceiver: %d bytes at wrong baud", len(data))
		return
	}
	if len(t.line) == 0 && len(data) > 0 && data[0] == comm.Delimiter {
		t.downlink(data)
		t.lock.Unlock()
		return
	}
	var replies [][]byte
	for _, b := range data {
		if b != '\r' {
			t.line = append(t.line, b)
			continue
		}
		if reply := t.handle(string(t.line)); reply != nil {
			replies = append(replies, reply)
		}
		t.line = t.line[:0]
	}
	t.lock.Unlock()
	for _, reply := range replies {
		t.port.deliver(reply)
	}
}

func (t *Transceiver) downlink(frame []byte) {
	if !t.regs.SCW.Pipe() {
		glog.Warningf("transceiver: frame dropped outside pipe mode")
		return
	}
	t.regs.TxPackets++
	select {
	case t.Air <- append([]byte(nil), frame...):
	default:
		glog.Warningf("transceiver: air full, frame dropped")
	}
}

func (t *Transceiver) handle(line string) (reply []byte) {
	reply = t.execute(line)
	if t.silence > 0 {
		t.silence--
		reply = nil
	}
	if reply != nil && t.corrupt > 0 {
		t.corrupt--
		reply[len(reply)-2] ^= 0x01
	}
	return
}

func (t *Transceiver) execute(line string) []byte {
	n := strings.LastIndexByte(line, ' ')
	if n < 0 || len(line)-n-1 != 8 {
		return []byte("ERR\r")
	}
	req := line[:n]
	if comm.CRC32([]byte(req)) != comm.ScanHex([]byte(line), n+1, 8) {
		t.regs.RxCRCErrors++
		return []byte("ERR\r")
	}
	if len(req) < 8 || !strings.HasPrefix(req, "ES+") {
		return []byte("ERR\r")
	}
	addr := byte(comm.ScanHex([]byte(req), 4, 2))
	reg := byte(comm.ScanHex([]byte(req), 6, 2))
	if addr != t.Addr {
		return []byte("ERR\r")
	}
	data := []byte(req[8:])
	var payload string
	switch req[3] {
	case 'R':
		payload = t.readReg(reg)
	case 'W':
		payload = t.writeReg(reg, data)
	}
	if payload == "" {
		return []byte("ERR\r")
	}
	return comm.ComposeRequest(payload)
}

func (t *Transceiver) readReg(reg byte) string {
	r := &t.regs
	switch reg {
	case radio.RegSCW:
		return fmt.Sprintf("OK+%02X%02X%02X%04X", r.RSSI, t.Addr, r.ResetCount, uint16(r.SCW))
	case radio.RegFrequency:
		return fmt.Sprintf("OK+%02X%08X", r.RSSI, r.Frequency)
	case radio.RegUptime:
		return fmt.Sprintf("OK+%02X%08X", r.RSSI, r.Uptime)
	case radio.RegTxPackets:
		return fmt.Sprintf("OK+%02X%08X", r.RSSI, r.TxPackets)
	case radio.RegRxPackets:
		return fmt.Sprintf("OK+%02X%08X", r.RSSI, r.RxPackets)
	case radio.RegRxCRCErrors:
		return fmt.Sprintf("OK+%02X%08X", r.RSSI, r.RxCRCErrors)
	case radio.RegPipeTimeout:
		return fmt.Sprintf("OK+%02X000000%02X", r.RSSI, r.PipeTimeout)
	case radio.RegBeaconPeriod:
		return fmt.Sprintf("OK+%02X0000%04X", r.RSSI, r.BeaconPeriod)
	case radio.RegDestCallSign:
		return "OK+" + r.DestCallSign
	case radio.RegSrcCallSign:
		return "OK+" + r.SrcCallSign
	}
	return ""
}

func (t *Transceiver) writeReg(reg byte, data []byte) string {
	r := &t.regs
	switch reg {
	case radio.RegSCW:
		if len(data) != 4 {
			return ""
		}
		const readOnly = radio.SCW(1<<radio.BitRadioOK | 1<<radio.BitFRAMOK | 1<<radio.BitBootloader)
		scw := radio.SCW(comm.ScanHex(data, 0, 4))
		scw = (scw &^ readOnly) | (r.SCW & readOnly)
		if scw.Bit(radio.BitReset) {
			r.ResetCount++
			r.Uptime = 0
			scw = scw.WithBit(radio.BitReset, false).WithBit(radio.BitPipe, false)
		}
		r.SCW = scw
		return fmt.Sprintf("OK+%04X", uint16(scw))
	case radio.RegFrequency:
		if len(data) != 8 {
			return ""
		}
		r.Frequency = comm.ScanHex(data, 0, 8)
	case radio.RegPipeTimeout:
		if len(data) != 8 {
			return ""
		}
		r.PipeTimeout = byte(comm.ScanHex(data, 6, 2))
	case radio.RegBeaconPeriod:
		if len(data) != 8 {
			return ""
		}
		r.BeaconPeriod = uint16(comm.ScanHex(data, 4, 4))
	case radio.RegDestCallSign, radio.RegSrcCallSign:
		if len(data) != radio.CallSignLen {
			return ""
		}
		if reg == radio.RegDestCallSign {
			r.DestCallSign = string(data)
		} else {
			r.SrcCallSign = string(data)
		}
	default:
		return ""
	}
	return "OK"
}

// Port is the OBC side of the UART. Bytes written at a rate other than the
// transceiver's are lost.
type Port struct {
	trx    *Transceiver
	rx     chan []byte
	buf    bytes.Buffer
	lock   sync.Mutex
	baud   int
	closed bool
}

// SetBaudRate changes the OBC side rate.
func (p *Port) SetBaudRate(rate int) error {
	if _, ok := radio.BaudCode(rate); !ok {
		return radio.ErrUnsupportedBaud
	}
	p.lock.Lock()
	p.baud = rate
	p.lock.Unlock()
	return nil
}

// BaudRate returns the OBC side rate.
func (p *Port) BaudRate() int {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.baud
}

// Write implements io.Writer.
func (p *Port) Write(b []byte) (int, error) {
	p.lock.Lock()
	if p.closed {
		p.lock.Unlock()
		return 0, io.ErrClosedPipe
	}
	baud := p.baud
	p.lock.Unlock()
	p.trx.receive(b, baud == p.trx.Baud())
	return len(b), nil
}

// Read implements io.Reader.
func (p *Port) Read(b []byte) (int, error) {
	p.lock.Lock()
	if p.buf.Len() > 0 {
		defer p.lock.Unlock()
		return p.buf.Read(b)
	}
	p.lock.Unlock()
	chunk, ok := <-p.rx
	if !ok {
		return 0, io.EOF
	}
	p.lock.Lock()
	defer p.lock.Unlock()
	p.buf.Write(chunk)
	return p.buf.Read(b)
}

// Close ends Read with io.EOF.
func (p *Port) Close() error {
	p.lock.Lock()
	defer p.lock.Unlock()
	if !p.closed {
		p.closed = true
		close(p.rx)
	}
	return nil
}

func (p *Port) deliver(data []byte) {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.closed {
		return
	}
	select {
	case p.rx <- append([]byte(nil), data...):
	default:
		glog.Warningf("transceiver: OBC side not reading, %d bytes dropped", len(data))
	}
}
