// Package sh provides the interactive shell driving a TR device, either
// opened in process or reached through a bridge.
package sh

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"reflect"
	"time"

	"github.com/abiosoft/ishell"
	"github.com/golang/glog"

	"github.com/robotalks/trspi/pkg/bridge"
	"github.com/robotalks/trspi/pkg/bridge/mqtt"
	"github.com/robotalks/trspi/pkg/bridge/msgs"
	"github.com/robotalks/trspi/pkg/env"
	fx "github.com/robotalks/trspi/pkg/framework"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	Target      string

	Shell   *ishell.Shell
	Config  *env.Config
	Session *Session
}

// Session is an open connection to a device.
type Session struct {
	Ctx    context.Context
	Cancel func()
	Name   string
	Client *bridge.Client
	// Device is set when the driver runs in process.
	Device *env.Device
}

const (
	shellKey          = "$shell"
	unconnectedPrompt = "[none] > "
	commandTimeout    = 2 * time.Second
)

var (
	// flags

	evalOnly   bool
	outputJSON bool
	target     string

	// commands
	commands = []*ishell.Cmd{
		&OpenCmd,
		&ConnectCmd,
		&DisconnectCmd,
		&DiscoverCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
	flag.StringVar(&target, "connect", target, "Remote device: ws://..., tcp://host:port or MQTT device id. Local device if empty.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(conf *env.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,
		Target:      target,

		Shell:  ishell.New(),
		Config: conf,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unconnectedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeConnected wraps command func requires a session.
func MustBeConnected(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if ShellFrom(c).Session == nil {
			c.Err(fmt.Errorf("not connected"))
			return
		}
		fn(c)
	}
}

// Call runs a command and waits for the reply.
func Call(c *ishell.Context, msg fx.Message) (fx.Message, error) {
	s := ShellFrom(c)
	if s.Session == nil {
		return nil, fmt.Errorf("not connected")
	}
	ctx, cancel := context.WithTimeout(s.Session.Ctx, commandTimeout)
	defer cancel()
	return s.Session.Client.Call(ctx, msg)
}

// DoCommand runs a command and prints the reply.
func DoCommand(c *ishell.Context, msg fx.Message) error {
	reply, err := Call(c, msg)
	if err != nil {
		c.Err(err)
		return err
	}
	PrintMsg(c, reply)
	return nil
}

// PrintMsg prints a message honoring the JSON output flag.
func PrintMsg(c *ishell.Context, msg fx.Message) {
	if ShellFrom(c).OutputJSON {
		out, err := json.Marshal(msg.(msgs.SerializableMessage).Serializable())
		if err != nil {
			c.Err(err)
			return
		}
		c.Println(string(out))
		return
	}
	if _, ok := msg.(*msgs.CommandOK); ok {
		c.Println("OK")
		return
	}
	c.Println(FormatMsg(msg))
}

// FormatMsg formats a message as its type name and content.
func FormatMsg(msg fx.Message) string {
	name := reflect.Indirect(reflect.ValueOf(msg)).Type().Name()
	if s, ok := msg.(msgs.SerializableMessage); ok {
		return name + " " + s.Serializable().String()
	}
	return name
}

func (s *Shell) start(name string, client *bridge.Client, dev *env.Device, runners ...fx.Runnable) {
	s.Disconnect()
	sess := &Session{Name: name, Client: client, Device: dev}
	sess.Ctx, sess.Cancel = context.WithCancel(context.Background())
	client.OnEvent = func(msg fx.Message) {
		s.Shell.Printf("\n<%s> %s\n", name, FormatMsg(msg))
	}
	runner := fx.NewRunnerWith(sess.Ctx).Go(runners...)
	go func() {
		if err := runner.Wait(); err != nil {
			glog.Warningf("session %s closed: %v", name, err)
		}
	}()
	s.Session = sess
	s.Shell.SetPrompt(fmt.Sprintf("%s > ", name))
}

// Open initializes the local device and attaches the shell to it.
func (s *Shell) Open() error {
	dev, err := s.Config.NewDevice(context.Background())
	if err != nil {
		return err
	}
	client := dev.LocalClient()
	if err := dev.AddEndpoints(); err != nil {
		return err
	}
	s.start("local", client, dev, dev.Loop, client)
	return nil
}

// Connect attaches the shell to a remote device.
func (s *Shell) Connect(target string) error {
	client, runners, err := s.Config.Dial(target)
	if err != nil {
		return err
	}
	s.start(target, client, nil, runners...)
	return nil
}

// Disconnect closes the current session.
func (s *Shell) Disconnect() {
	if s.Session != nil {
		s.Session.Cancel()
		s.Session = nil
		s.Shell.SetPrompt(unconnectedPrompt)
	}
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	var err error
	if s.Target != "" {
		err = s.Connect(s.Target)
	} else {
		err = s.Open()
	}
	if err != nil {
		log.Fatalln(err)
	}

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

var (
	// OpenCmd opens the local device.
	OpenCmd = ishell.Cmd{
		Name: "open",
		Help: "open the local TR module",
		Func: func(c *ishell.Context) {
			if err := ShellFrom(c).Open(); err != nil {
				c.Err(err)
			}
		},
	}

	// ConnectCmd connects a remote device.
	ConnectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "TARGET: ws://..., tcp://host:port or device id",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("TARGET required"))
				return
			}
			if err := ShellFrom(c).Connect(c.Args[0]); err != nil {
				c.Err(err)
			}
		},
	}

	// DisconnectCmd closes the current session.
	DisconnectCmd = ishell.Cmd{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Help:    "close the current session",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Disconnect()
		},
	}

	// DiscoverCmd lists devices on the MQTT broker.
	DiscoverCmd = ishell.Cmd{
		Name:    "discover",
		Aliases: []string{"list", "l"},
		Help:    "list devices on the MQTT broker",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			q, err := mqtt.NewQueueFromURL(s.Config.MQTTBrokerURL)
			if err != nil {
				c.Err(err)
				return
			}
			token := q.Connect()
			token.Wait()
			if err = token.Error(); err != nil {
				c.Err(err)
				return
			}
			defer q.Close()
			devices, err := mqtt.Discover(context.Background(), q, time.Second)
			if err != nil {
				c.Err(err)
				return
			}
			if s.OutputJSON {
				if devices == nil {
					devices = []mqtt.DeviceInfo{}
				}
				out, err := json.Marshal(devices)
				if err != nil {
					c.Err(err)
					return
				}
				c.Println(string(out))
				return
			}
			if len(devices) == 0 {
				c.Println("No devices found")
				return
			}
			for _, dev := range devices {
				line := dev.ID
				if dev.Meta.Module != "" {
					line += " " + dev.Meta.Module
				}
				if dev.Meta.Description != "" {
					line += ": " + dev.Meta.Description
				}
				c.Println(line)
			}
		},
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New(env.NewConfig()).Run(flag.Args()...)
}
