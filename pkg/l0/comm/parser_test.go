package comm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func responseBytes(payload string) []byte {
	return ComposeRequest(payload)
}

func TestRecognize(t *testing.T) {
	frame := EncodeUplink(Uplink{Opcode: 1})
	testCases := []struct {
		name     string
		in       []byte
		consumed int
		expect   ParseResult
	}{
		{"empty", nil, 0, ParseResult{}},
		{"partial line", []byte("OK+03"), 0, ParseResult{}},
		{"line", []byte("OK+0303\rOK"), 8, ParseResult{Response: []byte("OK+0303")}},
		{"leading CR", []byte("\rOK"), 1, ParseResult{}},
		{"partial frame", frame[:10], 0, ParseResult{}},
		{"frame", frame, UplinkFrameLen, ParseResult{Frame: frame}},
		{"stray delimiter", append([]byte{Delimiter}, make([]byte, UplinkFrameLen)...), 1, ParseResult{}},
		{"overlong line", make([]byte, 10), 10, ParseResult{}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			n, pr := Recognize(tc.in, 8)
			require.Equal(t, tc.consumed, n)
			require.Equal(t, tc.expect, pr)
		})
	}
}

func TestParserFeed(t *testing.T) {
	frame := EncodeUplink(Uplink{Opcode: 2, Arg1: 0x0d0d0d0d})
	testCases := []struct {
		name   string
		chunks [][]byte
		expect []ParseResult
	}{
		{
			name:   "split response",
			chunks: [][]byte{[]byte("OK+03"), []byte("03 1234"), []byte("5678\r")},
			expect: []ParseResult{{Response: []byte("OK+0303 12345678")}},
		},
		{
			name:   "frame with CR bytes inside",
			chunks: [][]byte{frame[:5], frame[5:]},
			expect: []ParseResult{{Frame: frame}},
		},
		{
			name:   "response then frame",
			chunks: [][]byte{append(responseBytes("OK+0303"), frame...)},
			expect: []ParseResult{
				{Response: responseBytes("OK+0303")[:16]},
				{Frame: frame},
			},
		},
		{
			name:   "radio chatter before frame",
			chunks: [][]byte{[]byte("+ESTTC\r"), frame},
			expect: []ParseResult{{Response: []byte("+ESTTC")}, {Frame: frame}},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var p Parser
			p.MaxResponseLen = 256
			var results []ParseResult
			for _, chunk := range tc.chunks {
				results = append(results, p.Feed(chunk)...)
			}
			require.Equal(t, tc.expect, results)
		})
	}
}

func TestParserTimeout(t *testing.T) {
	var p Parser
	require.Empty(t, p.Feed([]byte("OK+03")))
	require.Equal(t, 5, p.Pending())
	p.Timeout()
	require.Equal(t, 0, p.Pending())
	require.Equal(t, []ParseResult{{Response: []byte("OK")}}, p.Feed([]byte("OK\r")))
}
