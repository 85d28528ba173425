// Package comm provides L0 link support between the OBC and its radio.
package comm

// Two protocols share one UART to the transceiver:
//
// The device-control protocol is line based ASCII. The OBC sends
// REQUEST<space>CCCCCCCC<CR> and the radio answers OK...<space>CCCCCCCC<CR>
// or ERR...<CR>, where CCCCCCCC is the CRC-32 of the text before the space.
//
// The link-layer protocol carries ground commands and replies through the
// radio in transparent (pipe) mode using delimited binary frames:
//
//   [D][LEN][D][PAYLOAD...][D][CRC32 big-endian][D]
//
// The CRC covers LEN and PAYLOAD. Uplink frames always carry a 9-byte
// payload (opcode plus two 32-bit arguments).
//
// Producer: OBC (requests, downlink frames), radio (responses, uplink frames)
// Consumer: the other side
