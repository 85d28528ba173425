package comm

import (
	"encoding/binary"
	"fmt"
)

// Delimiter is the fixed START/END byte of link-layer frames.
const Delimiter byte = 0x55

const (
	// FrameOverhead is the number of framing bytes around a payload.
	FrameOverhead = 9
	// UplinkPayloadLen is the fixed payload length of uplink frames.
	UplinkPayloadLen = 9
	// UplinkFrameLen is the total length of an uplink frame.
	UplinkFrameLen = UplinkPayloadLen + FrameOverhead
	// DefaultMaxPayload is the default maximum downlink payload length.
	DefaultMaxPayload = 200
)

// AckStatus is the status carried by an acknowledgment.
type AckStatus byte

// Acknowledgment statuses.
const (
	AckOK              AckStatus = 0x00
	AckInvalidLength   AckStatus = 0x01
	AckInvalidChecksum AckStatus = 0x02
	AckQueueFull       AckStatus = 0x03
	AckTimeout         AckStatus = 0x04
	AckFailed          AckStatus = 0x05
	// AckNotFrame is never sent, the input is simply not a frame.
	AckNotFrame AckStatus = 0xff
)

// String implements fmt.Stringer.
func (s AckStatus) String() string {
	switch s {
	case AckOK:
		return "ok"
	case AckInvalidLength:
		return "invalid length"
	case AckInvalidChecksum:
		return "invalid checksum"
	case AckQueueFull:
		return "queue full"
	case AckTimeout:
		return "timeout"
	case AckFailed:
		return "failed"
	case AckNotFrame:
		return "not frame"
	}
	return fmt.Sprintf("status(%d)", byte(s))
}

// Uplink is a decoded uplink command.
type Uplink struct {
	Opcode byte
	Arg1   uint32
	Arg2   uint32
}

// Bytes returns the 9-byte payload.
func (u Uplink) Bytes() []byte {
	b := make([]byte, UplinkPayloadLen)
	b[0] = u.Opcode
	binary.BigEndian.PutUint32(b[1:], u.Arg1)
	binary.BigEndian.PutUint32(b[5:], u.Arg2)
	return b
}

// ParseUplink parses a 9-byte payload.
func ParseUplink(payload []byte) (u Uplink, ok bool) {
	if len(payload) != UplinkPayloadLen {
		return
	}
	u.Opcode = payload[0]
	u.Arg1 = binary.BigEndian.Uint32(payload[1:])
	u.Arg2 = binary.BigEndian.Uint32(payload[5:])
	return u, true
}

// EncodeFrame wraps payload into a frame. The payload length must be
// between 1 and max.
func EncodeFrame(payload []byte, max int) ([]byte, error) {
	if len(payload) == 0 || len(payload) > max || len(payload) > 0xff {
		return nil, ErrPayloadLength
	}
	n := len(payload)
	b := make([]byte, n+FrameOverhead)
	b[0], b[1], b[2] = Delimiter, byte(n), Delimiter
	copy(b[3:], payload)
	b[n+3] = Delimiter
	binary.BigEndian.PutUint32(b[n+4:], frameCRC(b[1], payload))
	b[n+8] = Delimiter
	return b, nil
}

// EncodeUplink builds a complete uplink frame.
func EncodeUplink(u Uplink) []byte {
	b, _ := EncodeFrame(u.Bytes(), UplinkPayloadLen)
	return b
}

// DecodeFrame validates a frame of any payload length and returns the payload.
func DecodeFrame(frame []byte) ([]byte, error) {
	if len(frame) < FrameOverhead+1 {
		return nil, ErrNotFrame
	}
	n := int(frame[1])
	if len(frame) != n+FrameOverhead {
		return nil, ErrFrameLength
	}
	if !delimitersAt(frame, 0, 2, n+3, n+8) {
		return nil, ErrNotFrame
	}
	payload := frame[3 : n+3]
	if binary.BigEndian.Uint32(frame[n+4:]) != frameCRC(frame[1], payload) {
		return nil, ErrFrameChecksum
	}
	return payload, nil
}

// IsUplinkFrame checks the four delimiters of a fixed-size uplink frame.
func IsUplinkFrame(frame []byte) bool {
	return len(frame) == UplinkFrameLen &&
		delimitersAt(frame, 0, 2, UplinkPayloadLen+3, UplinkPayloadLen+8)
}

// DecodeUplink validates a fixed-size uplink frame.
func DecodeUplink(frame []byte) (Uplink, AckStatus) {
	if !IsUplinkFrame(frame) {
		return Uplink{}, AckNotFrame
	}
	if frame[1] != UplinkPayloadLen {
		return Uplink{}, AckInvalidLength
	}
	payload := frame[3 : UplinkPayloadLen+3]
	if binary.BigEndian.Uint32(frame[UplinkPayloadLen+4:]) != frameCRC(frame[1], payload) {
		return Uplink{}, AckInvalidChecksum
	}
	u, _ := ParseUplink(payload)
	return u, AckOK
}

func frameCRC(length byte, payload []byte) uint32 {
	b := make([]byte, 0, len(payload)+1)
	b = append(b, length)
	return CRC32(append(b, payload...))
}

func delimitersAt(b []byte, offsets ...int) bool {
	for _, off := range offsets {
		if off >= len(b) || b[off] != Delimiter {
			return false
		}
	}
	return true
}
