// Package env assembles a driver, its control loop and the bridge
// endpoints from command line configuration.
package env

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/trspi/pkg/bridge"
	"github.com/robotalks/trspi/pkg/bridge/mqtt"
	"github.com/robotalks/trspi/pkg/bridge/stream"
	"github.com/robotalks/trspi/pkg/bridge/websocket"
	fx "github.com/robotalks/trspi/pkg/framework"
	"github.com/robotalks/trspi/pkg/hal"
	"github.com/robotalks/trspi/pkg/hal/periph"
	"github.com/robotalks/trspi/pkg/hal/sim"
	"github.com/robotalks/trspi/pkg/tr"
)

// Config provides common options of the commands.
type Config struct {
	// DeviceID names the device on the broker.
	DeviceID    string
	Description string

	// MQTTBrokerURL specifies the MQTT broker to use.
	// e.g. mqtt://host:port/topic-prefix/
	MQTTBrokerURL string
	// WebsocketAddr is the listen address of the websocket endpoint.
	WebsocketAddr string
	// WebsocketPath is the HTTP path of the websocket endpoint.
	WebsocketPath string
	// TCPAddr is the listen address of the length-prefixed stream endpoint.
	TCPAddr string

	// Sim replaces the hardware with a simulated module.
	Sim          bool
	LoopInterval time.Duration
	Backlog      int
}

var defaultConfig = Config{
	MQTTBrokerURL: "mqtt://localhost:1883/trspi/",
	WebsocketPath: "/tr",
	LoopInterval:  fx.DefaultInterval,
	Backlog:       bridge.DefaultBacklog,
}

func init() {
	if val := os.Getenv("TRSPI_MQTT_URL"); val != "" {
		defaultConfig.MQTTBrokerURL = val
	}
	if val := os.Getenv("TRSPI_DEVICE_ID"); val != "" {
		defaultConfig.DeviceID = val
	} else {
		defaultConfig.DeviceID = MachineID()
	}
}

// SetupFlags sets command line flags of this and the hardware packages.
func SetupFlags() {
	flag.StringVar(&defaultConfig.DeviceID, "id", defaultConfig.DeviceID, "Device ID.")
	flag.StringVar(&defaultConfig.Description, "desc", defaultConfig.Description, "Device description.")
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL, empty to disable.")
	flag.StringVar(&defaultConfig.WebsocketAddr, "ws", defaultConfig.WebsocketAddr, "Websocket listen address.")
	flag.StringVar(&defaultConfig.WebsocketPath, "ws-path", defaultConfig.WebsocketPath, "Websocket HTTP path.")
	flag.StringVar(&defaultConfig.TCPAddr, "tcp", defaultConfig.TCPAddr, "TCP listen address.")
	flag.BoolVar(&defaultConfig.Sim, "sim", defaultConfig.Sim, "Use a simulated TR module.")
	flag.DurationVar(&defaultConfig.LoopInterval, "loop-interval", defaultConfig.LoopInterval, "Control loop period.")
	flag.IntVar(&defaultConfig.Backlog, "backlog", defaultConfig.Backlog, "Outbound bridge queue size.")
	tr.SetupFlags()
	periph.SetupFlags()
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Device is an initialized driver in its control loop.
type Device struct {
	Config *Config
	Driver *tr.Driver
	Bridge *bridge.Bridge
	Loop   *fx.Loop
	// Module is the simulated module, nil on hardware.
	Module *sim.Module
}

// OpenPlatform opens the hardware, or a simulated module.
func (c *Config) OpenPlatform() (hal.Platform, *sim.Module, error) {
	if c.Sim {
		mod := sim.NewModule()
		return mod.Platform(hal.NewSystemClock()), mod, nil
	}
	hw, err := periph.Default().Open()
	return hw, nil, err
}

// NewDevice opens the platform and initializes the driver. A module
// failing identification is reported and the device is still returned.
func (c *Config) NewDevice(ctx context.Context) (*Device, error) {
	hw, mod, err := c.OpenPlatform()
	if err != nil {
		return nil, err
	}
	drv := tr.NewConfig().NewDriver(hw)
	if err := drv.Init(ctx); err != nil {
		if err != tr.ErrNotIdentified {
			return nil, err
		}
		glog.Warningf("continuing with unidentified module")
	}
	d := &Device{
		Config: c,
		Driver: drv,
		Bridge: bridge.New(drv, c.Backlog),
		Loop:   fx.NewLoop(),
		Module: mod,
	}
	d.Loop.Interval = c.LoopInterval
	d.Loop.Add(drv, d.Bridge, fx.DiscardMessages{})
	return d, nil
}

// LocalClient attaches an in-process peer. It must be called before
// the loop runs.
func (d *Device) LocalClient() *bridge.Client {
	srv, cli := net.Pipe()
	d.Loop.AddRunnable(fx.NamedRun("local", d.Bridge.Serve(stream.New(srv))))
	return bridge.NewClient(stream.New(cli))
}

// AddEndpoints adds the configured remote endpoints to the loop.
func (d *Device) AddEndpoints() error {
	c := d.Config
	if c.MQTTBrokerURL != "" {
		if c.DeviceID == "" {
			return fmt.Errorf("device id required for MQTT")
		}
		meta := mqtt.Meta{Description: c.Description}
		if id := d.Driver.Identity(); id.Known() {
			meta.Module = id.String()
		}
		ep, err := mqtt.NewEndpoint(c.MQTTBrokerURL, c.DeviceID, meta)
		if err != nil {
			return fmt.Errorf("create MQTT endpoint error: %v", err)
		}
		ep.AddTo(d.Loop, d.Bridge)
	}
	if c.WebsocketAddr != "" {
		d.Loop.AddRunnable(fx.NamedRun("websocket", fx.RunFunc(d.serveWebsocket)))
	}
	if c.TCPAddr != "" {
		d.Loop.AddRunnable(fx.NamedRun("tcp", fx.RunFunc(d.serveTCP)))
	}
	return nil
}

func (d *Device) serveWebsocket(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle(d.Config.WebsocketPath, websocket.Handler(ctx, d.Bridge))
	server := &http.Server{Addr: d.Config.WebsocketAddr, Handler: mux}
	glog.Infof("websocket listening on %s%s", d.Config.WebsocketAddr, d.Config.WebsocketPath)
	return fx.RunWithContextCloser(ctx, server, server.ListenAndServe)
}

func (d *Device) serveTCP(ctx context.Context) error {
	ln, err := net.Listen("tcp", d.Config.TCPAddr)
	if err != nil {
		return err
	}
	glog.Infof("tcp listening on %s", ln.Addr())
	return fx.RunWithContextCloser(ctx, ln, func() error {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return err
			}
			go func() {
				glog.Infof("peer %s connected", conn.RemoteAddr())
				err := d.Bridge.Attach(ctx, stream.New(conn))
				glog.Infof("peer %s disconnected: %v", conn.RemoteAddr(), err)
			}()
		}
	})
}

// Dial connects a peer to a remote device. The target is a websocket
// URL, tcp://host:port, or a device id on the MQTT broker. The returned
// runnables must run for the client to work.
func (c *Config) Dial(target string) (*bridge.Client, []fx.Runnable, error) {
	switch {
	case strings.HasPrefix(target, "ws://"), strings.HasPrefix(target, "wss://"):
		rw, err := websocket.Dial(target)
		if err != nil {
			return nil, nil, err
		}
		client := bridge.NewClient(rw)
		return client, []fx.Runnable{client}, nil
	case strings.HasPrefix(target, "tcp://"):
		conn, err := net.Dial("tcp", strings.TrimPrefix(target, "tcp://"))
		if err != nil {
			return nil, nil, err
		}
		client := bridge.NewClient(stream.New(conn))
		return client, []fx.Runnable{client}, nil
	}
	if c.MQTTBrokerURL == "" {
		return nil, nil, fmt.Errorf("MQTT broker required to reach %q", target)
	}
	q, err := mqtt.NewQueueFromURL(c.MQTTBrokerURL)
	if err != nil {
		return nil, nil, err
	}
	token := q.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return nil, nil, err
	}
	rw := mqtt.NewPacketReadWriter(q).ForPeer(target)
	client := bridge.NewClient(rw)
	closeQueue := fx.RunFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return q.Close()
	})
	return client, []fx.Runnable{rw, client, closeQueue}, nil
}
