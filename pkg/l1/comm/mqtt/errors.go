package mqtt

import "errors"

// ErrTimeout indicates the broker didn't confirm in time.
var ErrTimeout = errors.New("mqtt: timeout")
