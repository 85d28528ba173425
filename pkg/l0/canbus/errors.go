package canbus

import "errors"

var (
	// ErrClosed indicates the link is closed.
	ErrClosed = errors.New("CAN link closed")
	// ErrBusy indicates frames are published faster than delivered.
	ErrBusy = errors.New("CAN link busy")
)
