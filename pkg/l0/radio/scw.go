package radio

import "fmt"

// SCW is the 16-bit status control word of the transceiver.
type SCW uint16

// SCW bit positions.
const (
	BitRadioOK    uint = 0
	BitFRAMOK     uint = 1
	BitBootloader uint = 4
	BitPipe       uint = 5
	BitBeacon     uint = 6
	BitEcho       uint = 7
	BitRFMode     uint = 8
	BitReset      uint = 11
	BitBaud       uint = 12
)

const (
	rfModeMask SCW = 0x0700
	baudMask   SCW = 0x3000
)

// Bit reports whether the bit is set.
func (s SCW) Bit(bit uint) bool {
	return s&(1<<bit) != 0
}

// WithBit returns the word with the bit set or cleared.
func (s SCW) WithBit(bit uint, on bool) SCW {
	if on {
		return s | (1 << bit)
	}
	return s &^ (1 << bit)
}

// RFMode is bits 10-8.
func (s SCW) RFMode() byte {
	return byte((s & rfModeMask) >> BitRFMode)
}

// WithRFMode replaces bits 10-8.
func (s SCW) WithRFMode(mode byte) SCW {
	return (s & 0xF8FF) | (SCW(mode&0x07) << BitRFMode)
}

// BaudCode is bits 13-12.
func (s SCW) BaudCode() byte {
	return byte((s & baudMask) >> BitBaud)
}

// WithBaudCode replaces bits 13-12.
func (s SCW) WithBaudCode(code byte) SCW {
	return (s &^ baudMask) | (SCW(code&0x03) << BitBaud)
}

// Pipe reports transparent mode.
func (s SCW) Pipe() bool { return s.Bit(BitPipe) }

// Beacon reports beacon transmission.
func (s SCW) Beacon() bool { return s.Bit(BitBeacon) }

// Echo reports UART echo.
func (s SCW) Echo() bool { return s.Bit(BitEcho) }

// Bootloader reports bootloader mode.
func (s SCW) Bootloader() bool { return s.Bit(BitBootloader) }

// Healthy reports both FRAM and radio initialized correctly.
func (s SCW) Healthy() bool { return s.Bit(BitFRAMOK) && s.Bit(BitRadioOK) }

// String implements fmt.Stringer.
func (s SCW) String() string {
	return fmt.Sprintf("%04X(baud=%d rf=%d echo=%v beacon=%v pipe=%v boot=%v fram=%v radio=%v)",
		uint16(s), s.BaudCode(), s.RFMode(), s.Echo(), s.Beacon(), s.Pipe(),
		s.Bootloader(), s.Bit(BitFRAMOK), s.Bit(BitRadioOK))
}
