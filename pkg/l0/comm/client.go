package comm

import (
	"context"
	"sync"
	"time"

	"github.com/golang/glog"
)

// Default settings of device-control exchanges.
const (
	DefaultMaxAttempts     = 3
	DefaultResponseTimeout = 250 * time.Millisecond
)

// Client performs device-control exchanges over FIFO.
type Client struct {
	MaxAttempts     int
	ResponseTimeout time.Duration

	fifo      *FIFO
	responses *Mailbox
	lock      sync.Mutex
}

// NewClient creates client and wraps the fifo.
func NewClient(fifo *FIFO) *Client {
	c := &Client{
		MaxAttempts:     DefaultMaxAttempts,
		ResponseTimeout: DefaultResponseTimeout,
		fifo:            fifo,
		responses:       NewMailbox(),
	}
	c.fifo.Responses = c
	return c
}

// FIFO gets wrapped FIFO.
func (c *Client) FIFO() *FIFO {
	return c.fifo
}

// HandleResponse implements ResponseHandler.
func (c *Client) HandleResponse(ctx context.Context, resp []byte) {
	c.responses.Put(resp)
}

// ComposeRequest appends the checksum and terminator to a request.
func ComposeRequest(request string) []byte {
	b := make([]byte, 0, len(request)+10)
	b = append(b, request...)
	b = append(b, ' ')
	b = AppendHex32(b, CRC32([]byte(request)))
	return append(b, '\r')
}

// ValidateResponse checks a response carrying expectedLen payload bytes.
func ValidateResponse(resp []byte, expectedLen int) error {
	if len(resp) != expectedLen+9 {
		return ErrResponseLength
	}
	if resp[0] != 'O' || resp[1] != 'K' {
		return ErrResponsePrefix
	}
	if resp[expectedLen] != ' ' {
		return ErrResponseLength
	}
	if CRC32(resp[:expectedLen]) != ScanHex(resp, expectedLen+1, 8) {
		return ErrResponseChecksum
	}
	return nil
}

// SendCommand sends request and waits for a valid response with
// expectedLen payload bytes, retrying up to MaxAttempts.
func (c *Client) SendCommand(ctx context.Context, expectedLen int, request string) ([]byte, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	attempts := c.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	var err error
	for n := 1; n <= attempts; n++ {
		var resp []byte
		if resp, err = c.attempt(ctx, expectedLen, request); err == nil {
			return resp[:expectedLen], nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		glog.V(4).Infof("%q attempt %d: %v", request, n, err)
	}
	return nil, &AttemptsError{Request: request, Attempts: attempts, Last: err}
}

func (c *Client) attempt(ctx context.Context, expectedLen int, request string) ([]byte, error) {
	c.responses.Clear()
	if err := c.fifo.Write(ComposeRequest(request)); err != nil {
		return nil, err
	}
	timeout := c.ResponseTimeout
	if timeout <= 0 {
		timeout = DefaultResponseTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case resp := <-c.responses.C():
		if err := ValidateResponse(resp, expectedLen); err != nil {
			return nil, err
		}
		return resp, nil
	case <-timer.C:
		return nil, ErrResponseTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
