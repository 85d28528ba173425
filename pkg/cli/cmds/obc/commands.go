// Package obc adds the OBC command set to the shell. Every command is sent
// as an uplink; its reply arrives later as a downlink event.
package obc

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/obc.go/pkg/cli/sh"
	"github.com/robotalks/obc.go/pkg/l0/comm"
	"github.com/robotalks/obc.go/pkg/l1/command"
	"github.com/robotalks/obc.go/pkg/l1/msgs"
	"github.com/robotalks/obc.go/pkg/obc"
)

// ArgParser converts a command line argument into an uplink argument.
type ArgParser func(string) (uint32, error)

type cmdDef struct {
	op      command.Opcode
	aliases []string
	help    string
	args    []ArgParser
}

// ParseNumber accepts decimal, 0x hex and 0 octal numbers.
func ParseNumber(s string) (uint32, error) {
	n, err := strconv.ParseUint(s, 0, 32)
	return uint32(n), err
}

// ParseBlockType accepts a block type name or number.
func ParseBlockType(s string) (uint32, error) {
	for n := uint32(0); n < obc.NumBlockTypes; n++ {
		if strings.EqualFold(s, obc.BlockTypeName(n)) {
			return n, nil
		}
	}
	return ParseNumber(s)
}

// ParseSubsystem accepts a subsystem name or number.
func ParseSubsystem(s string) (uint32, error) {
	for _, sub := range []obc.Subsystem{obc.SubsysOBC, obc.SubsysEPS, obc.SubsysPAY} {
		if strings.EqualFold(s, sub.String()) {
			return uint32(sub), nil
		}
	}
	return ParseNumber(s)
}

// ParseBool accepts on/off and the forms of strconv.ParseBool.
func ParseBool(s string) (uint32, error) {
	switch strings.ToLower(s) {
	case "on", "yes":
		return 1, nil
	case "off", "no":
		return 0, nil
	}
	b, err := strconv.ParseBool(s)
	if b {
		return 1, err
	}
	return 0, err
}

// ParseTime parses "now" or RFC3339 into the packed date and time of day.
func ParseTime(s string) (date, tod uint32, err error) {
	t := time.Now().UTC()
	if s != "now" {
		if t, err = time.Parse(time.RFC3339, s); err != nil {
			return
		}
		t = t.UTC()
	}
	return obc.PackDate(t), obc.PackTime(t), nil
}

var defs = []cmdDef{
	{op: obc.OpPing},
	{op: obc.OpGetSubsysStatus, help: "SUBSYS", args: []ArgParser{ParseSubsystem}},
	{op: obc.OpGetRTC, aliases: []string{"rtc"}},
	{op: obc.OpReadMemBytes, help: "ADDR COUNT", args: []ArgParser{ParseNumber, ParseNumber}},
	{op: obc.OpEraseMemPhySector, help: "ADDR", args: []ArgParser{ParseNumber}},
	{op: obc.OpColBlock, aliases: []string{"col"}, help: "TYPE", args: []ArgParser{ParseBlockType}},
	{op: obc.OpReadLocBlock, help: "TYPE", args: []ArgParser{ParseBlockType}},
	{op: obc.OpReadMemBlock, help: "TYPE NUM", args: []ArgParser{ParseBlockType, ParseNumber}},
	{op: obc.OpAutoDataColEnable, help: "TYPE on|off", args: []ArgParser{ParseBlockType, ParseBool}},
	{op: obc.OpAutoDataColPeriod, help: "TYPE SECONDS", args: []ArgParser{ParseBlockType, ParseNumber}},
	{op: obc.OpAutoDataColResync},
	{op: obc.OpPayActMotors, help: "ACTION", args: []ArgParser{ParseNumber}},
	{op: obc.OpResetSubsys, help: "SUBSYS", args: []ArgParser{ParseSubsystem}},
	{op: obc.OpEPSCAN, help: "WORD1 WORD2", args: []ArgParser{ParseNumber, ParseNumber}},
	{op: obc.OpPAYCAN, help: "WORD1 WORD2", args: []ArgParser{ParseNumber, ParseNumber}},
	{op: obc.OpReadEEPROM, help: "ADDR", args: []ArgParser{ParseNumber}},
	{op: obc.OpGetCurBlockNum, help: "TYPE", args: []ArgParser{ParseBlockType}},
	{op: obc.OpSetCurBlockNum, help: "TYPE NUM", args: []ArgParser{ParseBlockType, ParseNumber}},
	{op: obc.OpEraseEEPROM, help: "ADDR", args: []ArgParser{ParseNumber}},
	{op: obc.OpEraseAllMem},
	{op: obc.OpEraseMemPhyBlock, help: "ADDR", args: []ArgParser{ParseNumber}},
}

// CmdName converts an opcode name to the shell form, e.g. get-rtc.
func CmdName(op command.Opcode) string {
	return strings.ReplaceAll(strings.ToLower(obc.OpcodeName(op)), "_", "-")
}

// ParseArgs converts the arguments of a command line.
func ParseArgs(parsers []ArgParser, args []string) (vals [2]uint32, err error) {
	if len(args) < len(parsers) {
		return vals, fmt.Errorf("%d arguments expected", len(parsers))
	}
	for n, parse := range parsers {
		if vals[n], err = parse(args[n]); err != nil {
			return vals, fmt.Errorf("argument %d: %w", n+1, err)
		}
	}
	return
}

// NewUplink creates the uplink message of a command.
func NewUplink(op command.Opcode, arg1, arg2 uint32) *msgs.Uplink {
	u := &msgs.Uplink{}
	u.Opcode, u.Arg1, u.Arg2 = uint32(op), arg1, arg2
	return u
}

func defCmd(def cmdDef) *ishell.Cmd {
	return &ishell.Cmd{
		Name:    CmdName(def.op),
		Aliases: def.aliases,
		Help:    def.help,
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			vals, err := ParseArgs(def.args, c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			sh.DoCommand(c, NewUplink(def.op, vals[0], vals[1]))
		}),
	}
}

var (
	// SetRTCCmd sets the clock.
	SetRTCCmd = ishell.Cmd{
		Name: CmdName(obc.OpSetRTC),
		Help: "now|RFC3339",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("time required"))
				return
			}
			date, tod, err := ParseTime(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			sh.DoCommand(c, NewUplink(obc.OpSetRTC, date, tod))
		}),
	}

	// UplinkCmd sends any opcode.
	UplinkCmd = ishell.Cmd{
		Name:    "uplink",
		Aliases: []string{"up"},
		Help:    "OPCODE [ARG1 [ARG2]]",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("OPCODE required"))
				return
			}
			var vals [3]uint32
			for n := 0; n < len(c.Args) && n < len(vals); n++ {
				v, err := ParseNumber(c.Args[n])
				if n == 0 {
					if op, ok := obc.ParseOpcode(strings.ToUpper(c.Args[n])); ok {
						v, err = uint32(op), nil
					}
				}
				if err != nil {
					c.Err(err)
					return
				}
				vals[n] = v
			}
			sh.DoCommand(c, NewUplink(command.Opcode(vals[0]), vals[1], vals[2]))
		}),
	}
)

// FormatEvent formats the events of an OBC node.
func FormatEvent(msg msgs.Message) string {
	switch m := msg.(type) {
	case *msgs.Downlink:
		return FormatDownlink(m.Payload)
	case *msgs.CommandResult:
		state := "failed"
		switch {
		case m.TimedOut:
			state = "timed out"
		case m.Succeeded:
			state = "succeeded"
		}
		return fmt.Sprintf("%s(%d, %d) %s after %d ticks", m.Name, m.Arg1, m.Arg2, state, m.Ticks)
	case *msgs.Nack:
		return fmt.Sprintf("NACK %s: %s", obc.OpcodeName(command.Opcode(m.Opcode)), comm.AckStatus(m.Status))
	}
	return sh.FormatEvent(msg)
}

// FormatDownlink decodes a reply payload.
func FormatDownlink(payload []byte) string {
	u, ok := comm.ParseUplink(payload[:min(len(payload), command.ReplyHeaderLen)])
	if !ok {
		return fmt.Sprintf("downlink % x", payload)
	}
	op := command.Opcode(u.Opcode)
	data := payload[command.ReplyHeaderLen:]
	head := fmt.Sprintf("%s(%d, %d)", obc.OpcodeName(op), u.Arg1, u.Arg2)
	if len(data) == 1 && data[0] != 0 {
		// only acknowledgments carry a single byte
		return fmt.Sprintf("%s ack %s", head, comm.AckStatus(data[0]))
	}
	switch op {
	case obc.OpGetRTC:
		if t, ok := obc.ParseDateTime(data); ok {
			return fmt.Sprintf("%s %s", head, t.Format(time.RFC3339))
		}
	case obc.OpReadLocBlock, obc.OpReadMemBlock:
		if u.Arg1 < obc.NumBlockTypes {
			if b, ok := obc.DecodeBlock(data, obc.FieldCounts[u.Arg1]); ok {
				return fmt.Sprintf("%s %s", head, b)
			}
		}
	}
	if len(data) == 0 {
		return head
	}
	return fmt.Sprintf("%s %s", head, hex.EncodeToString(data))
}

func init() {
	cmds := make([]*ishell.Cmd, 0, len(defs)+2)
	for _, def := range defs {
		cmds = append(cmds, defCmd(def))
	}
	cmds = append(cmds, &SetRTCCmd, &UplinkCmd)
	sh.AddCmds(cmds...)
	sh.SetEventPrinter(FormatEvent)
}
