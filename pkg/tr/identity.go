package tr

import (
	"encoding/binary"
	"fmt"
)

// ModuleType is the TR module variant.
type ModuleType byte

// Module types.
const (
	TR52D   ModuleType = 0
	TR58DRJ ModuleType = 1
	TR72D   ModuleType = 2
	TR53D   ModuleType = 3
	TR54D   ModuleType = 8
	TR55D   ModuleType = 9
	TR56D   ModuleType = 10
	TR76D   ModuleType = 11
)

var moduleTypeNames = map[ModuleType]string{
	TR52D:   "TR-52D",
	TR58DRJ: "TR-58D-RJ",
	TR72D:   "TR-72D",
	TR53D:   "TR-53D",
	TR54D:   "TR-54D",
	TR55D:   "TR-55D",
	TR56D:   "TR-56D",
	TR76D:   "TR-76D",
}

// String implements fmt.Stringer.
func (t ModuleType) String() string {
	if name, ok := moduleTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TR-%d", byte(t))
}

// SupportsFastSPI reports whether the module accepts the short byte interval.
func (t ModuleType) SupportsFastSPI() bool {
	return t == TR72D || t == TR76D
}

// MCUType is the microcontroller fitted on the module.
type MCUType byte

// MCU types.
const (
	MCUUnknown     MCUType = 0
	MCUPIC16LF819  MCUType = 1
	MCUPIC16LF88   MCUType = 2
	MCUPIC16F886   MCUType = 3
	MCUPIC16LF1938 MCUType = 4
)

// String implements fmt.Stringer.
func (t MCUType) String() string {
	switch t {
	case MCUUnknown:
		return "unknown"
	case MCUPIC16LF819:
		return "PIC16LF819"
	case MCUPIC16LF88:
		return "PIC16LF88"
	case MCUPIC16F886:
		return "PIC16F886"
	case MCUPIC16LF1938:
		return "PIC16LF1938"
	}
	return fmt.Sprintf("mcu(%d)", byte(t))
}

// IdentityLength is the size of the identification block.
const IdentityLength = 8

// DeviceIdentity describes the connected module.
type DeviceIdentity struct {
	ModuleID   uint32
	OSVersion  uint16
	MCUType    MCUType
	FCC        bool
	ModuleType ModuleType
	OSBuild    uint16
	Raw        [IdentityLength]byte
}

// Known reports whether the identity was read from a module.
func (i DeviceIdentity) Known() bool {
	return i.MCUType != MCUUnknown
}

// OSVersionString formats the OS version as major.minor.
func (i DeviceIdentity) OSVersionString() string {
	return fmt.Sprintf("%d.%02d", i.OSVersion>>8, i.OSVersion&0xff)
}

// String implements fmt.Stringer.
func (i DeviceIdentity) String() string {
	if !i.Known() {
		return "unknown module"
	}
	return fmt.Sprintf("%s id=%08X os=%s build=%04X mcu=%s fcc=%v",
		i.ModuleType, i.ModuleID, i.OSVersionString(), i.OSBuild, i.MCUType, i.FCC)
}

// ParseIdentity decodes the identification block answered by the module.
// The block is module id (big-endian), OS version, MCU/module type bits and
// the little-endian OS build.
func ParseIdentity(data []byte) (id DeviceIdentity, err error) {
	if len(data) < IdentityLength {
		return id, fmt.Errorf("identity block too short: %d bytes", len(data))
	}
	copy(id.Raw[:], data[:IdentityLength])
	id.ModuleID = binary.BigEndian.Uint32(data[0:4])
	id.OSVersion = uint16(data[4]/16)<<8 | uint16(data[4]%16)
	id.MCUType = MCUType(data[5] & 0x07)
	id.FCC = data[5]&0x08 != 0
	id.ModuleType = ModuleType(data[5] >> 4)
	id.OSBuild = binary.LittleEndian.Uint16(data[6:8])
	return id, nil
}
