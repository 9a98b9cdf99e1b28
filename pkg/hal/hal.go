// Package hal defines the platform primitives the transceiver driver consumes.
package hal

import "time"

// Level is a digital pin level.
type Level bool

// Pin levels.
const (
	Low  Level = false
	High Level = true
)

// String implements fmt.Stringer.
func (l Level) String() string {
	if l {
		return "High"
	}
	return "Low"
}

// PinMode is the direction of a pin.
type PinMode int

// Pin modes.
const (
	Input PinMode = iota
	Output
)

// Pin is a single digital I/O line.
type Pin interface {
	SetMode(PinMode)
	Write(Level)
	Read() Level
}

// Bus is the synchronous serial peripheral to the module.
// Transfer blocks until one byte has been shifted out and one shifted in.
type Bus interface {
	Begin()
	End()
	Transfer(b byte) byte
}

// Clock provides elapsed time and bounded blocking delays.
type Clock interface {
	// Now returns time elapsed since an arbitrary fixed origin.
	Now() time.Duration
	// Sleep blocks for d.
	Sleep(d time.Duration)
}

// Platform bundles everything the driver needs from the board.
type Platform struct {
	Bus   Bus
	Clock Clock
	// Power is the module reset line: High powers the module off.
	Power Pin
	// Select is the chip select line of the serial link.
	Select Pin
	// SDO is driven during program mode entry with the level read from SDI.
	SDO Pin
	SDI Pin
}

// SystemClock implements Clock with the monotonic wall clock.
type SystemClock struct {
	origin time.Time
}

// NewSystemClock creates a SystemClock starting now.
func NewSystemClock() *SystemClock {
	return &SystemClock{origin: time.Now()}
}

// Now implements Clock.
func (c *SystemClock) Now() time.Duration {
	return time.Since(c.origin)
}

// Sleep implements Clock.
func (c *SystemClock) Sleep(d time.Duration) {
	time.Sleep(d)
}
