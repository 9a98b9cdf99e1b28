package tr

import (
	"fmt"
	"time"
)

// Sizes of frames on the wire.
const (
	// FrameOverhead is CMD, PTYPE, CRCM and the trailing status byte.
	FrameOverhead = 4
	// MaxDataLength is the largest payload accepted for sending.
	MaxDataLength = 60
	// MaxReadLength is the largest payload the module can report as ready.
	MaxReadLength = 64
	// FrameBufferSize holds the largest frame in either direction.
	FrameBufferSize = MaxReadLength + FrameOverhead
)

// SPI commands.
const (
	CmdCheck      byte = 0x00
	CmdWriteRead  byte = 0xF0
	CmdEEPROMPgm  byte = 0xF3
	CmdModuleInfo byte = 0xF5
)

const (
	crcSeed      byte = 0x5F
	ptypeWrite   byte = 0x80
	ptypeInfo16  byte = 0x10
	dataReadyMsk byte = 0xC0
	dataReadyVal byte = 0x40
	dataLenMask  byte = 0x3F
)

var endProgramMode = []byte{0xDE, 0x01, 0xFF}

// Default timings.
const (
	DefaultByteInterval     = 1000 * time.Microsecond
	DefaultFastByteInterval = 150 * time.Microsecond
	DefaultStatusInterval   = 10 * time.Millisecond
	DefaultQueueSize        = 32

	resetPause       = 100 * time.Millisecond
	powerOnSettle    = time.Millisecond
	progModeDuration = 500 * time.Millisecond
	controlWait      = 300 * time.Millisecond
	identifyTimeout  = 500 * time.Millisecond
)

const (
	readAttempts  = 1
	writeAttempts = 3
)

// LinkStatus is the driver's belief of the module's SPI state.
// Values below DataTransfer are reported by the module itself.
type LinkStatus byte

// Link statuses.
const (
	LinkDisabled          LinkStatus = 0x00
	LinkCRCMError         LinkStatus = 0x3E
	LinkCRCMOK            LinkStatus = 0x3F
	LinkCommunicationMode LinkStatus = 0x80
	LinkProgrammingMode   LinkStatus = 0x81
	LinkDebugMode         LinkStatus = 0x82
	LinkSlowMode          LinkStatus = 0x83
	LinkDataTransfer      LinkStatus = 0xFD
	LinkBusy              LinkStatus = 0xFE
	LinkHWError           LinkStatus = 0xFF
)

// LinkBufferProtect shares its code with LinkCRCMOK on the wire.
const LinkBufferProtect = LinkCRCMOK

// DataReady reports whether the module has data waiting to be read.
func (s LinkStatus) DataReady() bool {
	return byte(s)&dataReadyMsk == dataReadyVal
}

// ReadyLength returns the payload length announced by a DataReady status.
func (s LinkStatus) ReadyLength() int {
	if byte(s) == dataReadyVal {
		return MaxReadLength
	}
	return int(byte(s) & dataLenMask)
}

// String implements fmt.Stringer.
func (s LinkStatus) String() string {
	switch s {
	case LinkDisabled:
		return "disabled"
	case LinkCRCMError:
		return "crcm-error"
	case LinkCRCMOK:
		return "buffer-protect"
	case LinkCommunicationMode:
		return "communication"
	case LinkProgrammingMode:
		return "programming"
	case LinkDebugMode:
		return "debug"
	case LinkSlowMode:
		return "slow"
	case LinkDataTransfer:
		return "data-transfer"
	case LinkBusy:
		return "busy"
	case LinkHWError:
		return "hw-error"
	}
	if s.DataReady() {
		return fmt.Sprintf("data-ready(%d)", s.ReadyLength())
	}
	return fmt.Sprintf("status(0x%02x)", byte(s))
}

// ControlStatus is the step of the lifecycle state machine.
type ControlStatus int

// Control statuses.
const (
	ControlReady ControlStatus = iota
	ControlReset
	ControlWait
	ControlProgramMode
)

// String implements fmt.Stringer.
func (s ControlStatus) String() string {
	switch s {
	case ControlReady:
		return "ready"
	case ControlReset:
		return "reset"
	case ControlWait:
		return "wait"
	case ControlProgramMode:
		return "program-mode"
	}
	return fmt.Sprintf("control(%d)", int(s))
}

// TxStatus is the outcome reported for a sent packet.
type TxStatus int

// Transmit statuses.
const (
	TxOK TxStatus = iota
	TxError
)

// String implements fmt.Stringer.
func (s TxStatus) String() string {
	if s == TxOK {
		return "ok"
	}
	return "error"
}
