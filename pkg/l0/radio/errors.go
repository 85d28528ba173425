package radio

import "errors"

var (
	// ErrCallSignLength indicates a call sign isn't 6 characters.
	ErrCallSignLength = errors.New("call sign must be 6 characters")
	// ErrUnsupportedBaud indicates the baud rate can't be configured.
	ErrUnsupportedBaud = errors.New("unsupported baud rate")
	// ErrNoWorkingBaud indicates the transceiver doesn't answer at any rate.
	ErrNoWorkingBaud = errors.New("no working baud rate")
)
