package radio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/obc.go/pkg/l0/comm"
)

// Requester performs one checked device-control exchange.
type Requester interface {
	SendCommand(ctx context.Context, expectedLen int, request string) ([]byte, error)
}

// Registers of the transceiver.
const (
	RegSCW          byte = 0x00
	RegFrequency    byte = 0x01
	RegUptime       byte = 0x02
	RegTxPackets    byte = 0x03
	RegRxPackets    byte = 0x04
	RegRxCRCErrors  byte = 0x05
	RegPipeTimeout  byte = 0x06
	RegBeaconPeriod byte = 0x07
	RegDestCallSign byte = 0xF5
	RegSrcCallSign  byte = 0xF6
)

// Defaults of the transceiver.
const (
	DefaultAddr       byte   = 0x22
	DefaultFrequency  uint32 = 0x9DD80942 // 437 MHz
	DefaultResetDelay        = 5 * time.Second
	CallSignLen              = 6
)

// Radio reads and writes transceiver registers. Changes to the SCW made
// through Radio, including baud negotiation, are serialized.
type Radio struct {
	Client      Requester
	Addr        byte
	ResetDelay  time.Duration
	MaxAttempts int
	// PipeTimeout is how long the transceiver stays in pipe mode. Within it
	// SetPipe(true) after a successful one skips the exchanges. Zero
	// always exchanges.
	PipeTimeout time.Duration

	scwLock   sync.Mutex
	pipeUntil time.Time
}

// New creates a Radio with defaults.
func New(client Requester) *Radio {
	return &Radio{
		Client:      client,
		Addr:        DefaultAddr,
		ResetDelay:  DefaultResetDelay,
		MaxAttempts: comm.DefaultMaxAttempts,
	}
}

// Reading is a register value with the RSSI reported alongside it.
type Reading struct {
	RSSI  byte
	Value uint32
}

// SCWReading is the result of reading the status control word.
type SCWReading struct {
	RSSI       byte
	ResetCount byte
	SCW        SCW
}

// Status aggregates the registers reported in telemetry.
type Status struct {
	SCWReading
	Frequency   uint32
	Uptime      uint32
	TxPackets   uint32
	RxPackets   uint32
	RxCRCErrors uint32
}

func (r *Radio) read(reg byte) string {
	return fmt.Sprintf("ES+R%02X%02X", r.Addr, reg)
}

func (r *Radio) write(reg byte, data string) string {
	return fmt.Sprintf("ES+W%02X%02X%s", r.Addr, reg, data)
}

// ReadSCW reads the status control word.
func (r *Radio) ReadSCW(ctx context.Context) (res SCWReading, err error) {
	resp, err := r.Client.SendCommand(ctx, 13, r.read(RegSCW))
	if err != nil {
		return
	}
	res.RSSI = byte(comm.ScanHex(resp, 3, 2))
	res.ResetCount = byte(comm.ScanHex(resp, 7, 2))
	res.SCW = SCW(comm.ScanHex(resp, 9, 4))
	return
}

// WriteSCW writes the status control word.
func (r *Radio) WriteSCW(ctx context.Context, scw SCW) error {
	r.scwLock.Lock()
	defer r.scwLock.Unlock()
	r.pipeUntil = time.Time{}
	return r.writeSCW(ctx, scw)
}

func (r *Radio) writeSCW(ctx context.Context, scw SCW) error {
	_, err := r.Client.SendCommand(ctx, 7, r.write(RegSCW, fmt.Sprintf("%04X", uint16(scw))))
	return err
}

// SetSCWBit reads the control word, changes one bit and writes it back.
func (r *Radio) SetSCWBit(ctx context.Context, bit uint, on bool) error {
	return r.modifySCW(ctx, func(scw SCW) SCW { return scw.WithBit(bit, on) })
}

// SetRFMode changes the RF mode (0-7).
func (r *Radio) SetRFMode(ctx context.Context, mode byte) error {
	return r.modifySCW(ctx, func(scw SCW) SCW { return scw.WithRFMode(mode) })
}

// SetEcho turns UART echo on or off.
func (r *Radio) SetEcho(ctx context.Context, on bool) error {
	return r.SetSCWBit(ctx, BitEcho, on)
}

// SetBeacon turns beacon transmission on or off.
func (r *Radio) SetBeacon(ctx context.Context, on bool) error {
	return r.SetSCWBit(ctx, BitBeacon, on)
}

// SetPipe turns transparent mode on or off. The transceiver leaves pipe
// mode by itself after the pipe timeout.
func (r *Radio) SetPipe(ctx context.Context, on bool) error {
	r.scwLock.Lock()
	defer r.scwLock.Unlock()
	start := time.Now()
	if on && start.Before(r.pipeUntil) {
		return nil
	}
	r.pipeUntil = time.Time{}
	err := r.modifySCWLocked(ctx, func(scw SCW) SCW { return scw.WithBit(BitPipe, on) })
	if err == nil && on && r.PipeTimeout > 0 {
		r.pipeUntil = start.Add(r.PipeTimeout)
	}
	return err
}

// LoadPipeTimeout reads the pipe timeout register into PipeTimeout.
func (r *Radio) LoadPipeTimeout(ctx context.Context) error {
	res, err := r.ReadPipeTimeout(ctx)
	if err != nil {
		return err
	}
	r.scwLock.Lock()
	r.PipeTimeout = time.Duration(res.Value) * time.Second
	r.pipeUntil = time.Time{}
	r.scwLock.Unlock()
	return nil
}

// Reset sets the reset bit and waits for the transceiver to restart.
func (r *Radio) Reset(ctx context.Context) error {
	err := r.SetSCWBit(ctx, BitReset, true)
	glog.Infof("transceiver reset requested, waiting %s", r.ResetDelay)
	if d := r.ResetDelay; d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (r *Radio) modifySCW(ctx context.Context, fn func(SCW) SCW) error {
	r.scwLock.Lock()
	defer r.scwLock.Unlock()
	return r.modifySCWLocked(ctx, fn)
}

func (r *Radio) modifySCWLocked(ctx context.Context, fn func(SCW) SCW) (err error) {
	attempts := r.MaxAttempts
	if attempts <= 0 {
		attempts = comm.DefaultMaxAttempts
	}
	for n := 0; n < attempts; n++ {
		var res SCWReading
		if res, err = r.ReadSCW(ctx); err == nil {
			next := fn(res.SCW)
			if next.Bit(BitReset) {
				r.pipeUntil = time.Time{}
			}
			if err = r.writeSCW(ctx, next); err == nil {
				return nil
			}
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return
}

func (r *Radio) readValue(ctx context.Context, reg byte, offset, count int) (res Reading, err error) {
	resp, err := r.Client.SendCommand(ctx, 13, r.read(reg))
	if err != nil {
		return
	}
	res.RSSI = byte(comm.ScanHex(resp, 3, 2))
	res.Value = comm.ScanHex(resp, offset, count)
	return
}

// ReadFrequency reads the frequency register.
func (r *Radio) ReadFrequency(ctx context.Context) (Reading, error) {
	return r.readValue(ctx, RegFrequency, 5, 8)
}

// WriteFrequency writes the frequency register (transceiver encoding).
func (r *Radio) WriteFrequency(ctx context.Context, freq uint32) error {
	_, err := r.Client.SendCommand(ctx, 2, r.write(RegFrequency, fmt.Sprintf("%08X", freq)))
	return err
}

// ReadUptime reads the uptime in seconds.
func (r *Radio) ReadUptime(ctx context.Context) (Reading, error) {
	return r.readValue(ctx, RegUptime, 5, 8)
}

// ReadTxPackets reads the number of transmitted packets.
func (r *Radio) ReadTxPackets(ctx context.Context) (Reading, error) {
	return r.readValue(ctx, RegTxPackets, 5, 8)
}

// ReadRxPackets reads the number of received packets.
func (r *Radio) ReadRxPackets(ctx context.Context) (Reading, error) {
	return r.readValue(ctx, RegRxPackets, 5, 8)
}

// ReadRxCRCErrors reads the number of received packets with CRC errors.
func (r *Radio) ReadRxCRCErrors(ctx context.Context) (Reading, error) {
	return r.readValue(ctx, RegRxCRCErrors, 5, 8)
}

// ReadPipeTimeout reads the pipe mode timeout in seconds.
func (r *Radio) ReadPipeTimeout(ctx context.Context) (Reading, error) {
	return r.readValue(ctx, RegPipeTimeout, 11, 2)
}

// WritePipeTimeout writes the pipe mode timeout in seconds.
func (r *Radio) WritePipeTimeout(ctx context.Context, seconds byte) error {
	_, err := r.Client.SendCommand(ctx, 2, r.write(RegPipeTimeout, fmt.Sprintf("000000%02X", seconds)))
	return err
}

// ReadBeaconPeriod reads the beacon period in seconds.
func (r *Radio) ReadBeaconPeriod(ctx context.Context) (Reading, error) {
	return r.readValue(ctx, RegBeaconPeriod, 9, 4)
}

// WriteBeaconPeriod writes the beacon period in seconds.
func (r *Radio) WriteBeaconPeriod(ctx context.Context, seconds uint16) error {
	_, err := r.Client.SendCommand(ctx, 2, r.write(RegBeaconPeriod, fmt.Sprintf("0000%04X", seconds)))
	return err
}

func (r *Radio) readCallSign(ctx context.Context, reg byte) (string, error) {
	resp, err := r.Client.SendCommand(ctx, 9, r.read(reg))
	if err != nil {
		return "", err
	}
	return string(resp[3 : 3+CallSignLen]), nil
}

func (r *Radio) writeCallSign(ctx context.Context, reg byte, callSign string) error {
	if len(callSign) != CallSignLen {
		return ErrCallSignLength
	}
	_, err := r.Client.SendCommand(ctx, 2, r.write(reg, callSign))
	return err
}

// ReadDestCallSign reads the destination call sign.
func (r *Radio) ReadDestCallSign(ctx context.Context) (string, error) {
	return r.readCallSign(ctx, RegDestCallSign)
}

// WriteDestCallSign writes the destination call sign.
func (r *Radio) WriteDestCallSign(ctx context.Context, callSign string) error {
	return r.writeCallSign(ctx, RegDestCallSign, callSign)
}

// ReadSrcCallSign reads the source call sign.
func (r *Radio) ReadSrcCallSign(ctx context.Context) (string, error) {
	return r.readCallSign(ctx, RegSrcCallSign)
}

// WriteSrcCallSign writes the source call sign.
func (r *Radio) WriteSrcCallSign(ctx context.Context, callSign string) error {
	return r.writeCallSign(ctx, RegSrcCallSign, callSign)
}

// Status reads all telemetry registers.
func (r *Radio) Status(ctx context.Context) (st Status, err error) {
	if st.SCWReading, err = r.ReadSCW(ctx); err != nil {
		return
	}
	reads := []struct {
		fn  func(context.Context) (Reading, error)
		dst *uint32
	}{
		{r.ReadFrequency, &st.Frequency},
		{r.ReadUptime, &st.Uptime},
		{r.ReadTxPackets, &st.TxPackets},
		{r.ReadRxPackets, &st.RxPackets},
		{r.ReadRxCRCErrors, &st.RxCRCErrors},
	}
	for _, rd := range reads {
		var res Reading
		if res, err = rd.fn(ctx); err != nil {
			return
		}
		*rd.dst = res.Value
	}
	return
}
