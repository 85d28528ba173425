package sh

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/obc.go/pkg/l1"
)

var (
	// DiscoverCmd discovers nodes.
	DiscoverCmd = ishell.Cmd{
		Name:    "discover",
		Aliases: []string{"list", "l"},
		Help:    "list the nodes known to the ground link",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			infoList, err := s.DiscoverNodes(nil)
			if err != nil {
				c.Err(err)
				return
			}
			if s.OutputJSON {
				if infoList == nil {
					infoList = []l1.NodeInfo{}
				}
				out, err := json.Marshal(infoList)
				if err != nil {
					c.Err(err)
					return
				}
				c.Println(string(out))
				return
			}
			if len(infoList) == 0 {
				c.Println("No nodes found")
				return
			}
			for _, info := range infoList {
				c.Println(FormatInfo(info))
			}
		},
	}

	// ConnectCmd connects a node.
	ConnectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "[TYPE [ID]] connect a node, asking when several match",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			var ref l1.NodeRef
			if len(c.Args) >= 2 {
				ref.Type, ref.ID = c.Args[0], c.Args[1]
			} else {
				var filter func(l1.NodeInfo) bool
				if len(c.Args) == 1 {
					filter = func(info l1.NodeInfo) bool {
						return info.Ref.Type == c.Args[0]
					}
				}
				info, err := s.SelectNode(filter)
				if err != nil {
					c.Err(err)
					return
				}
				if info == nil {
					c.Err(fmt.Errorf("no node discovered"))
					return
				}
				ref = info.Ref
			}
			if err := s.Connect(ref); err != nil {
				c.Err(err)
			}
		},
	}

	// DisconnectCmd disconnects current node.
	DisconnectCmd = ishell.Cmd{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Help:    "close the current session",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Disconnect()
		},
	}

	// EventsCmd prints the latest events.
	EventsCmd = ishell.Cmd{
		Name:    "events",
		Aliases: []string{"ev"},
		Help:    "[N|clear] print the latest N events or clear them",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			var n int
			if len(c.Args) > 0 {
				if c.Args[0] == "clear" {
					s.Events.Reset()
					return
				}
				var err error
				if n, err = strconv.Atoi(c.Args[0]); err != nil {
					c.Err(err)
					return
				}
			}
			for _, ev := range s.Events.Last(n) {
				out, err := s.Format(ev.Msg)
				if err != nil {
					out = err.Error()
				}
				c.Printf("%s %s\n", ev.At.Format("15:04:05.000"), out)
			}
		},
	}

	// WatchCmd turns printing of arriving events on or off.
	WatchCmd = ishell.Cmd{
		Name: "watch",
		Help: "[on|off] print events as they arrive",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			if len(c.Args) > 0 {
				switch c.Args[0] {
				case "on":
					s.Watch = true
				case "off":
					s.Watch = false
				default:
					c.Err(fmt.Errorf("watch: expect on or off"))
					return
				}
			}
			c.Printf("watch %v\n", s.Watch)
		},
	}
)
