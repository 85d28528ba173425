package comm

import "bytes"

// DefaultMaxResponseLen is the longest device-control line kept before
// the input is discarded as noise.
const DefaultMaxResponseLen = 64

// ParseResult is what a recognition step produced. At most one of
// Response and Frame is set.
type ParseResult struct {
	// Response is a device-control line without the CR terminator.
	Response []byte
	// Frame is a complete fixed-size uplink frame.
	Frame []byte
}

// IsEmpty indicates nothing was recognized.
func (r ParseResult) IsEmpty() bool {
	return r.Response == nil && r.Frame == nil
}

// Parser splits the inbound byte stream into device-control responses
// and uplink frames.
type Parser struct {
	MaxResponseLen int

	buf []byte
}

// Recognize examines the unconsumed input and returns the number of bytes
// consumed. 0 means more input is needed before a decision can be made.
func Recognize(buf []byte, maxResponseLen int) (int, ParseResult) {
	if len(buf) == 0 {
		return 0, ParseResult{}
	}
	switch buf[0] {
	case '\r', '\n':
		return 1, ParseResult{}
	case Delimiter:
		if len(buf) < UplinkFrameLen {
			return 0, ParseResult{}
		}
		if IsUplinkFrame(buf[:UplinkFrameLen]) {
			return UplinkFrameLen, ParseResult{Frame: clone(buf[:UplinkFrameLen])}
		}
		// a stray delimiter, resume scanning after it.
		return 1, ParseResult{}
	}
	if pos := bytes.IndexByte(buf, '\r'); pos >= 0 {
		return pos + 1, ParseResult{Response: clone(buf[:pos])}
	}
	if maxResponseLen > 0 && len(buf) > maxResponseLen {
		return len(buf), ParseResult{}
	}
	return 0, ParseResult{}
}

// Feed appends received bytes and returns everything recognized.
func (p *Parser) Feed(data []byte) (results []ParseResult) {
	p.buf = append(p.buf, data...)
	maxLen := p.MaxResponseLen
	if maxLen == 0 {
		maxLen = DefaultMaxResponseLen
	}
	for len(p.buf) > 0 {
		n, pr := Recognize(p.buf, maxLen)
		if n == 0 {
			break
		}
		p.buf = p.buf[n:]
		if !pr.IsEmpty() {
			results = append(results, pr)
		}
	}
	if len(p.buf) == 0 {
		p.buf = nil
	}
	return
}

// Pending returns the number of bytes held for more input.
func (p *Parser) Pending() int {
	return len(p.buf)
}

// Timeout discards held input after the line went idle.
func (p *Parser) Timeout() {
	p.buf = nil
}

// Reset resets the internal state of parser.
func (p *Parser) Reset() {
	p.buf = nil
}

func clone(b []byte) []byte {
	return append([]byte(nil), b...)
}
