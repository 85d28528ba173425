package obc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/obc.go/pkg/l0/comm"
	"github.com/robotalks/obc.go/pkg/l1/command"
	"github.com/robotalks/obc.go/pkg/l1/msgs"
	"github.com/robotalks/obc.go/pkg/obc"
)

func TestCmdName(t *testing.T) {
	require.Equal(t, "get-rtc", CmdName(obc.OpGetRTC))
	require.Equal(t, "erase-mem-phy-block", CmdName(obc.OpEraseMemPhyBlock))
}

func TestParseArgs(t *testing.T) {
	cases := []struct {
		name    string
		parsers []ArgParser
		args    []string
		vals    [2]uint32
		fail    bool
	}{
		{name: "none", args: []string{"extra"}},
		{name: "numbers", parsers: []ArgParser{ParseNumber, ParseNumber}, args: []string{"0x10", "7"}, vals: [2]uint32{16, 7}},
		{name: "block type", parsers: []ArgParser{ParseBlockType}, args: []string{"pay_opt"}, vals: [2]uint32{2, 0}},
		{name: "subsystem", parsers: []ArgParser{ParseSubsystem}, args: []string{"EPS"}, vals: [2]uint32{1, 0}},
		{name: "bool", parsers: []ArgParser{ParseBlockType, ParseBool}, args: []string{"1", "on"}, vals: [2]uint32{1, 1}},
		{name: "missing", parsers: []ArgParser{ParseNumber}, fail: true},
		{name: "invalid", parsers: []ArgParser{ParseNumber}, args: []string{"x"}, fail: true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			vals, err := ParseArgs(c.parsers, c.args)
			if c.fail {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, c.vals, vals)
		})
	}
}

func TestParseTime(t *testing.T) {
	date, tod, err := ParseTime("2026-10-17T12:30:45Z")
	require.NoError(t, err)
	require.Equal(t, uint32(26<<16|10<<8|17), date)
	require.Equal(t, uint32(12<<16|30<<8|45), tod)
	_, _, err = ParseTime("yesterday")
	require.Error(t, err)
}

func TestFormatDownlink(t *testing.T) {
	header := func(op command.Opcode, arg1 uint32) []byte {
		return comm.Uplink{Opcode: byte(op), Arg1: arg1}.Bytes()
	}
	now := time.Date(2026, 10, 17, 12, 30, 45, 0, time.UTC)
	require.Equal(t, "PING(0, 0)", FormatDownlink(header(obc.OpPing, 0)))
	require.Equal(t, "GET_RTC(0, 0) 2026-10-17T12:30:45Z",
		FormatDownlink(append(header(obc.OpGetRTC, 0), obc.DateTimeBytes(now)...)))
	require.Equal(t, "PING(0, 0) ack timeout",
		FormatDownlink(append(header(obc.OpPing, 0), byte(comm.AckTimeout))))
	require.Equal(t, "READ_EEPROM(4, 0) 00000002",
		FormatDownlink(append(header(obc.OpReadEEPROM, 4), 0, 0, 0, 2)))

	b := obc.Block{Header: obc.Header{BlockNum: 3, Time: now}, Fields: []uint32{1, 2, 3}}
	require.Equal(t, "READ_LOC_BLOCK(1, 0) #3 error=0 2026-10-17T12:30:45Z [1 2 3]",
		FormatDownlink(append(header(obc.OpReadLocBlock, 1), b.Bytes()...)))
	require.Equal(t, "downlink 01 02", FormatDownlink([]byte{1, 2}))
}

func TestFormatEvent(t *testing.T) {
	nack := &msgs.Nack{}
	nack.Opcode, nack.Status = uint32(obc.OpColBlock), uint32(comm.AckQueueFull)
	require.Equal(t, "NACK COL_BLOCK: queue full", FormatEvent(nack))

	res := &msgs.CommandResult{}
	res.Name, res.Arg1, res.TimedOut, res.Ticks = "COL_BLOCK", 1, true, 150
	require.Equal(t, "COL_BLOCK(1, 0) timed out after 150 ticks", FormatEvent(res))
}
