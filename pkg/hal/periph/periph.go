// Package periph drives a TR module wired to a Linux board through periph.io.
package periph

import (
	"flag"
	"fmt"
	"time"

	"github.com/golang/glog"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/pin"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/robotalks/trspi/pkg/hal"
)

// Config names the SPI port and the GPIO lines of the module.
type Config struct {
	Port      string
	Frequency physic.Frequency
	Power     string
	Select    string
	SDO       string
	SDI       string
	// SelectDelay is held before and after each byte with select low.
	SelectDelay time.Duration
}

var defaultConfig = Config{
	Port:        "",
	Frequency:   250 * physic.KiloHertz,
	Power:       "GPIO25",
	Select:      "GPIO8",
	SDO:         "GPIO10",
	SDI:         "GPIO9",
	SelectDelay: 10 * time.Microsecond,
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Port, "spi-port", defaultConfig.Port, "SPI port name, first available if empty.")
	flag.Var(&defaultConfig.Frequency, "spi-freq", "SPI clock frequency.")
	flag.StringVar(&defaultConfig.Power, "pin-power", defaultConfig.Power, "GPIO of the module reset line.")
	flag.StringVar(&defaultConfig.Select, "pin-select", defaultConfig.Select, "GPIO of the chip select line.")
	flag.StringVar(&defaultConfig.SDO, "pin-sdo", defaultConfig.SDO, "GPIO shared with SPI MOSI.")
	flag.StringVar(&defaultConfig.SDI, "pin-sdi", defaultConfig.SDI, "GPIO shared with SPI MISO.")
	flag.DurationVar(&defaultConfig.SelectDelay, "select-delay", defaultConfig.SelectDelay, "Delay around each byte with select low.")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// Open initializes the host drivers and builds the platform.
func (c *Config) Open() (hal.Platform, error) {
	if _, err := host.Init(); err != nil {
		return hal.Platform{}, fmt.Errorf("periph init: %v", err)
	}
	pins := make(map[string]gpio.PinIO)
	for _, name := range []string{c.Power, c.Select, c.SDO, c.SDI} {
		p := gpioreg.ByName(name)
		if p == nil {
			return hal.Platform{}, fmt.Errorf("unknown GPIO %q", name)
		}
		pins[name] = p
	}
	sel := &Pin{PinIO: pins[c.Select]}
	bus := &Bus{
		Port:      c.Port,
		Frequency: c.Frequency,
		Select:    sel,
		Delay:     c.SelectDelay,
		funcPins: []funcPin{
			{pins[c.SDO], spi.MOSI},
			{pins[c.SDI], spi.MISO},
		},
	}
	return hal.Platform{
		Bus:    bus,
		Clock:  hal.NewSystemClock(),
		Power:  &Pin{PinIO: pins[c.Power]},
		Select: sel,
		SDO:    &Pin{PinIO: pins[c.SDO]},
		SDI:    &Pin{PinIO: pins[c.SDI]},
	}, nil
}

// Pin adapts a periph GPIO to hal.Pin.
type Pin struct {
	gpio.PinIO
}

// SetMode implements hal.Pin.
func (p *Pin) SetMode(mode hal.PinMode) {
	var err error
	if mode == hal.Output {
		err = p.PinIO.Out(p.PinIO.Read())
	} else {
		err = p.PinIO.In(gpio.PullNoChange, gpio.NoEdge)
	}
	if err != nil {
		glog.Errorf("%s mode: %v", p.PinIO, err)
	}
}

// Write implements hal.Pin.
func (p *Pin) Write(l hal.Level) {
	if err := p.PinIO.Out(gpio.Level(l)); err != nil {
		glog.Errorf("%s write: %v", p.PinIO, err)
	}
}

// Read implements hal.Pin.
func (p *Pin) Read() hal.Level {
	return hal.Level(p.PinIO.Read())
}

type funcPin struct {
	pin gpio.PinIO
	fn  pin.Func
}

// Bus is a byte-wise SPI master with software driven chip select.
type Bus struct {
	Port      string
	Frequency physic.Frequency
	Select    hal.Pin
	Delay     time.Duration

	funcPins []funcPin
	port     spi.PortCloser
	conn     spi.Conn
}

// Begin implements hal.Bus.
func (b *Bus) Begin() {
	if b.port != nil {
		return
	}
	// program mode entry leaves the data lines as plain GPIOs
	for _, fp := range b.funcPins {
		if pf, ok := fp.pin.(pin.PinFunc); ok {
			if err := pf.SetFunc(fp.fn); err != nil {
				glog.V(2).Infof("%s restore %s: %v", fp.pin, fp.fn, err)
			}
		}
	}
	port, err := spireg.Open(b.Port)
	if err != nil {
		glog.Errorf("open SPI port %q: %v", b.Port, err)
		return
	}
	conn, err := port.Connect(b.Frequency, spi.Mode0|spi.NoCS, 8)
	if err != nil {
		port.Close()
		glog.Errorf("connect SPI port %q: %v", b.Port, err)
		return
	}
	b.port, b.conn = port, conn
}

// End implements hal.Bus.
func (b *Bus) End() {
	if b.port == nil {
		return
	}
	if err := b.port.Close(); err != nil {
		glog.Warningf("close SPI port: %v", err)
	}
	b.port, b.conn = nil, nil
}

// Transfer implements hal.Bus.
func (b *Bus) Transfer(v byte) byte {
	if b.conn == nil {
		return 0
	}
	w, r := []byte{v}, []byte{0}
	b.Select.Write(hal.Low)
	time.Sleep(b.Delay)
	err := b.conn.Tx(w, r)
	time.Sleep(b.Delay)
	b.Select.Write(hal.High)
	if err != nil {
		glog.Errorf("SPI transfer: %v", err)
		return 0
	}
	return r[0]
}
