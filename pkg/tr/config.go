package tr

import (
	"flag"
	"os"
	"time"

	"github.com/robotalks/trspi/pkg/hal"
)

// Config defines the driver timings and sizes.
type Config struct {
	// ByteInterval is the pause between two bytes of a frame.
	ByteInterval time.Duration
	// FastByteInterval replaces ByteInterval once a module supporting
	// fast SPI is identified.
	FastByteInterval time.Duration
	// StatusInterval is the period of status checks while idle.
	StatusInterval time.Duration
	// QueueSize is the number of slots of the packet queue.
	QueueSize int
	// Polling keeps the SPI master running after initialization.
	Polling bool
}

var defaultConfig = Config{
	ByteInterval:     DefaultByteInterval,
	FastByteInterval: DefaultFastByteInterval,
	StatusInterval:   DefaultStatusInterval,
	QueueSize:        DefaultQueueSize,
	Polling:          true,
}

func init() {
	if val := os.Getenv("TRSPI_BYTE_INTERVAL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			defaultConfig.ByteInterval = d
		}
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.DurationVar(&defaultConfig.ByteInterval, "byte-interval", defaultConfig.ByteInterval, "Pause between SPI bytes.")
	flag.DurationVar(&defaultConfig.FastByteInterval, "fast-byte-interval", defaultConfig.FastByteInterval, "Pause between SPI bytes for fast SPI modules.")
	flag.DurationVar(&defaultConfig.StatusInterval, "status-interval", defaultConfig.StatusInterval, "Period of SPI status checks.")
	flag.IntVar(&defaultConfig.QueueSize, "queue-size", defaultConfig.QueueSize, "Slots in the packet queue.")
	flag.BoolVar(&defaultConfig.Polling, "polling", defaultConfig.Polling, "Keep SPI master polling after initialization.")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a config with defaults.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// NewDriver creates a driver on the platform using the config.
func (c *Config) NewDriver(hw hal.Platform) *Driver {
	return New(hw, *c)
}
