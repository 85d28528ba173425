package comm

import (
	"errors"
	"fmt"
)

var (
	// ErrResponseTimeout indicates no device-control response arrived in time.
	ErrResponseTimeout = errors.New("response timeout")
	// ErrResponseLength indicates the response length is not expected.
	ErrResponseLength = errors.New("invalid response length")
	// ErrResponsePrefix indicates the response doesn't start with OK.
	ErrResponsePrefix = errors.New("response not OK")
	// ErrResponseChecksum indicates the response checksum mismatches.
	ErrResponseChecksum = errors.New("response checksum mismatch")
	// ErrPayloadLength indicates a frame payload is empty or too large.
	ErrPayloadLength = errors.New("invalid payload length")
	// ErrNotFrame indicates delimiters are not at the expected offsets.
	ErrNotFrame = errors.New("not a frame")
	// ErrFrameLength indicates the LEN field doesn't match the frame.
	ErrFrameLength = errors.New("invalid frame length")
	// ErrFrameChecksum indicates the frame CRC mismatches.
	ErrFrameChecksum = errors.New("frame checksum mismatch")
)

// AttemptsError is returned when all attempts of an exchange failed.
type AttemptsError struct {
	Request  string
	Attempts int
	Last     error
}

// Error implements error.
func (e *AttemptsError) Error() string {
	return fmt.Sprintf("%q failed after %d attempts: %v", e.Request, e.Attempts, e.Last)
}

// Unwrap returns the error of the last attempt.
func (e *AttemptsError) Unwrap() error {
	return e.Last
}
