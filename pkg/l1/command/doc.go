// Package command turns validated uplink payloads into executed commands.
//
// The Dispatcher resolves the opcode of each uplink through the Registry and
// appends it to the Queue. The Executor runs one command at a time, guarded
// by a tick-driven watchdog, and handlers answer through the Composer. The
// Transmitter sends whatever the Composer has pending as a downlink frame.
package command
