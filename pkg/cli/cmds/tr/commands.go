// Package tr adds the TR module commands to the shell.
package tr

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/trspi/pkg/bridge/msgs"
	"github.com/robotalks/trspi/pkg/cli/sh"
	"github.com/robotalks/trspi/pkg/tr"
)

// ParseHex decodes bytes given as hex words, like "01 0a ff" or "010aff".
func ParseHex(args []string) ([]byte, error) {
	word := strings.Join(args, "")
	word = strings.Replace(word, ":", "", -1)
	word = strings.TrimPrefix(strings.ToLower(word), "0x")
	data, err := hex.DecodeString(word)
	if err != nil {
		return nil, fmt.Errorf("invalid HEX: %v", err)
	}
	return data, nil
}

// FormatStatus renders a status report for display.
func FormatStatus(r *msgs.StatusReport) string {
	var w strings.Builder
	fmt.Fprintf(&w, "link:     %s\n", tr.LinkStatus(r.Link))
	fmt.Fprintf(&w, "control:  %s\n", tr.ControlStatus(r.Control))
	fmt.Fprintf(&w, "polling:  %v\n", r.Polling)
	fmt.Fprintf(&w, "busy:     %v\n", r.Busy)
	fmt.Fprintf(&w, "queued:   %d\n", r.Queued)
	fmt.Fprintf(&w, "fast SPI: %v (%v per byte)", r.FastSpi, time.Duration(r.ByteIntervalUs)*time.Microsecond)
	return w.String()
}

func statusReport(c *ishell.Context) *msgs.StatusReport {
	reply, err := sh.Call(c, &msgs.StatusQuery{})
	if err != nil {
		c.Err(err)
		return nil
	}
	report, ok := reply.(*msgs.StatusReport)
	if !ok {
		c.Err(fmt.Errorf("unexpected reply %s", sh.FormatMsg(reply)))
		return nil
	}
	return report
}

func sendCmd(c *ishell.Context, cmd byte, args []string) {
	data, err := ParseHex(args)
	if err != nil {
		c.Err(err)
		return
	}
	if len(data) > tr.MaxDataLength {
		c.Err(fmt.Errorf("at most %d bytes, got %d", tr.MaxDataLength, len(data)))
		return
	}
	sh.DoCommand(c, msgs.NewSendRequest(cmd, data))
}

var (
	// StatusCmd prints the driver status.
	StatusCmd = ishell.Cmd{
		Name:    "status",
		Aliases: []string{"st"},
		Help:    "show link and driver state",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if report := statusReport(c); report != nil {
				if sh.ShellFrom(c).OutputJSON {
					sh.PrintMsg(c, report)
					return
				}
				c.Println(FormatStatus(report))
			}
		}),
	}

	// InfoCmd prints the module identity.
	InfoCmd = ishell.Cmd{
		Name: "info",
		Help: "show module identity",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if report := statusReport(c); report != nil {
				id := report.DeviceIdentity()
				c.Println(id.String())
				if id.Known() {
					c.Printf("raw: % X\n", id.Raw[:])
				}
			}
		}),
	}

	// SendCmd queues a packet with a SPI command.
	SendCmd = ishell.Cmd{
		Name: "send",
		Help: "CMD HEX... queue a packet with SPI command CMD",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) < 2 {
				c.Err(fmt.Errorf("CMD and HEX required"))
				return
			}
			cmd, err := strconv.ParseUint(strings.TrimPrefix(c.Args[0], "0x"), 16, 8)
			if err != nil {
				c.Err(fmt.Errorf("invalid CMD: %v", err))
				return
			}
			sendCmd(c, byte(cmd), c.Args[1:])
		}),
	}

	// DataCmd queues data for the module.
	DataCmd = ishell.Cmd{
		Name: "data",
		Help: "HEX... queue data for the module",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("HEX required"))
				return
			}
			sendCmd(c, tr.CmdWriteRead, c.Args)
		}),
	}

	// ResetCmd power cycles the module.
	ResetCmd = ishell.Cmd{
		Name: "reset",
		Help: "power cycle the module",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			sh.DoCommand(c, &msgs.ResetRequest{})
		}),
	}

	// ProgCmd enters programming mode.
	ProgCmd = ishell.Cmd{
		Name: "prog",
		Help: "switch the module into programming mode",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			sh.DoCommand(c, &msgs.ProgramModeRequest{})
		}),
	}

	// PollingCmd starts or stops the SPI master.
	PollingCmd = ishell.Cmd{
		Name: "polling",
		Help: "on|off",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) != 1 || (c.Args[0] != "on" && c.Args[0] != "off") {
				c.Err(fmt.Errorf("on or off required"))
				return
			}
			req := &msgs.PollingRequest{}
			req.Enable = c.Args[0] == "on"
			sh.DoCommand(c, req)
		}),
	}

	// InjectCmd makes the simulated module report data.
	InjectCmd = ishell.Cmd{
		Name: "inject",
		Help: "HEX... data the simulated module reports as ready",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			sess := sh.ShellFrom(c).Session
			if sess.Device == nil || sess.Device.Module == nil {
				c.Err(fmt.Errorf("only available with a local simulated module"))
				return
			}
			data, err := ParseHex(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			if len(data) == 0 || len(data) > tr.MaxReadLength {
				c.Err(fmt.Errorf("1 to %d bytes required", tr.MaxReadLength))
				return
			}
			sess.Device.Module.Inject(data)
			c.Println("OK")
		}),
	}
)

func init() {
	sh.AddCmds(
		&StatusCmd,
		&InfoCmd,
		&SendCmd,
		&DataCmd,
		&ResetCmd,
		&ProgCmd,
		&PollingCmd,
		&InjectCmd,
	)
}
