package sim

import (
	"bytes"
	"sync"

	"github.com/robotalks/trspi/pkg/hal"
	"github.com/robotalks/trspi/pkg/tr"
)

// DefaultMirrorWrites is how many mirrored SDO writes with select low
// switch the simulated module into programming mode.
const DefaultMirrorWrites = 1000

// Frame is a frame written by the master and accepted by the module.
type Frame struct {
	Command byte
	PType   byte
	Data    []byte
}

// DefaultInfo is the identification block of a TR-72D module.
var DefaultInfo = [16]byte{
	0x81, 0x00, 0x12, 0x34, // module id
	0x34,                   // OS 3.04
	0x24,                   // TR-72D, PIC16LF1938
	0x39, 0x08,             // build 0x0839
}

// Module simulates a TR module on the SPI link and its control pins.
type Module struct {
	// Info is the block answered to identification requests.
	Info [16]byte
	// CommModeInfo answers identification in communication mode as well.
	CommModeInfo bool
	// CorruptWrites breaks the checksum of replies to master writes.
	CorruptWrites bool
	// CorruptReads breaks the checksum of data read by the master.
	CorruptReads bool
	// MirrorWrites is the number of SDO mirror writes entering programming mode.
	MirrorWrites int

	lock        sync.Mutex
	powered     bool
	powerCycles int
	enabled     bool
	selectLow   bool
	mirrored    int
	sdiLevel    hal.Level
	progMode    bool
	pending     [][]byte
	frame       []byte
	reply       []byte
	dataLen     int
	frames      []Frame
	transfers   int
}

// NewModule creates a powered down module answering DefaultInfo.
func NewModule() *Module {
	return &Module{Info: DefaultInfo, MirrorWrites: DefaultMirrorWrites}
}

// Platform wires the module into a hal.Platform.
func (m *Module) Platform(clock hal.Clock) hal.Platform {
	return hal.Platform{
		Bus:    m,
		Clock:  clock,
		Power:  &pin{m: m, write: m.setPower},
		Select: &pin{m: m, write: m.setSelect},
		SDO:    &pin{m: m, write: m.mirror},
		SDI:    &pin{m: m, read: m.readSDI},
	}
}

// Inject queues data the module reports as ready for the master.
func (m *Module) Inject(data []byte) {
	if len(data) == 0 {
		return
	}
	if len(data) > tr.MaxReadLength {
		data = data[:tr.MaxReadLength]
	}
	m.lock.Lock()
	m.pending = append(m.pending, append([]byte(nil), data...))
	m.lock.Unlock()
}

// Pending returns the number of data blocks not yet read by the master.
func (m *Module) Pending() int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return len(m.pending)
}

// Frames returns frames written by the master, one per attempt.
func (m *Module) Frames() []Frame {
	m.lock.Lock()
	defer m.lock.Unlock()
	return append([]Frame(nil), m.frames...)
}

// Transfers returns the number of bytes exchanged.
func (m *Module) Transfers() int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.transfers
}

// Powered reports whether the module is powered.
func (m *Module) Powered() bool {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.powered
}

// PowerCycles counts transitions from off to on.
func (m *Module) PowerCycles() int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.powerCycles
}

// ProgramMode reports whether the module is in programming mode.
func (m *Module) ProgramMode() bool {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.progMode
}

// SPIEnabled reports whether the master's SPI peripheral is running.
func (m *Module) SPIEnabled() bool {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.enabled
}

// Begin implements hal.Bus.
func (m *Module) Begin() {
	m.lock.Lock()
	m.enabled = true
	m.lock.Unlock()
}

// End implements hal.Bus.
func (m *Module) End() {
	m.lock.Lock()
	m.enabled, m.frame = false, nil
	m.lock.Unlock()
}

// Transfer implements hal.Bus.
func (m *Module) Transfer(b byte) byte {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.transfers++
	if !m.powered || !m.enabled {
		m.frame = nil
		return 0
	}
	pos := len(m.frame)
	switch pos {
	case 0:
		if b == tr.CmdCheck {
			return m.status()
		}
		m.frame = append(m.frame, b)
		return m.status()
	case 1:
		m.frame = append(m.frame, b)
		m.startFrame(m.frame[0], b)
		return m.reply[1]
	}
	reply := m.reply[pos]
	m.frame = append(m.frame, b)
	if pos == m.dataLen+2 {
		if tr.Checksum(m.frame, m.dataLen) == b {
			m.reply[pos+1] = byte(tr.LinkCRCMOK)
		} else {
			m.reply[pos+1] = byte(tr.LinkCRCMError)
		}
	}
	if len(m.frame) == m.dataLen+tr.FrameOverhead {
		m.completeFrame()
		m.frame = nil
	}
	return reply
}

func (m *Module) status() byte {
	if len(m.pending) > 0 {
		if n := len(m.pending[0]); n < tr.MaxReadLength {
			return 0x40 | byte(n)
		}
		return 0x40
	}
	if m.progMode {
		return byte(tr.LinkProgrammingMode)
	}
	return byte(tr.LinkCommunicationMode)
}

func isRead(cmd, ptype byte) bool {
	return cmd == tr.CmdWriteRead && ptype&0x80 == 0
}

func (m *Module) startFrame(cmd, ptype byte) {
	n := int(ptype & 0x7f)
	if n > tr.MaxReadLength {
		n = tr.MaxReadLength
	}
	m.dataLen = n
	m.reply = make([]byte, n+tr.FrameOverhead)
	m.reply[0], m.reply[1] = m.status(), m.status()
	corrupt := m.CorruptWrites
	switch {
	case isRead(cmd, ptype):
		if len(m.pending) > 0 {
			copy(m.reply[2:n+2], m.pending[0])
		}
		corrupt = m.CorruptReads
	case cmd == tr.CmdModuleInfo && !m.progMode && m.CommModeInfo:
		copy(m.reply[2:n+2], m.Info[:])
	}
	m.reply[n+2] = tr.ResponseChecksum(ptype, m.reply[2:n+2])
	if corrupt {
		m.reply[n+2] ^= 0xff
	}
}

func (m *Module) completeFrame() {
	if m.reply[m.dataLen+3] != byte(tr.LinkCRCMOK) {
		return
	}
	cmd, ptype := m.frame[0], m.frame[1]
	data := append([]byte(nil), m.frame[2:m.dataLen+2]...)
	if isRead(cmd, ptype) {
		if len(m.pending) > 0 {
			m.pending = m.pending[1:]
		}
		return
	}
	m.frames = append(m.frames, Frame{Command: cmd, PType: ptype, Data: data})
	switch {
	case cmd == tr.CmdModuleInfo && m.progMode:
		m.pending = append(m.pending, append([]byte(nil), m.Info[:]...))
	case cmd == tr.CmdEEPROMPgm && m.progMode && bytes.Equal(data, []byte{0xDE, 0x01, 0xFF}):
		m.progMode = false
	}
}

func (m *Module) setPower(l hal.Level) {
	// the reset line powers the module off while high
	if l == hal.High {
		m.powered, m.progMode, m.frame, m.pending = false, false, nil, nil
		m.mirrored = 0
		return
	}
	if !m.powered {
		m.powerCycles++
	}
	m.powered = true
}

func (m *Module) setSelect(l hal.Level) {
	if l == hal.Low {
		m.selectLow = true
		return
	}
	if m.selectLow && m.powered && m.mirrored >= m.MirrorWrites {
		m.progMode = true
	}
	m.selectLow, m.mirrored = false, 0
}

func (m *Module) mirror(l hal.Level) {
	if m.powered && m.selectLow && l == m.sdiLevel {
		m.mirrored++
	}
}

func (m *Module) readSDI() hal.Level {
	m.sdiLevel = !m.sdiLevel
	return m.sdiLevel
}

type pin struct {
	m     *Module
	mode  hal.PinMode
	level hal.Level
	write func(hal.Level)
	read  func() hal.Level
}

func (p *pin) SetMode(mode hal.PinMode) {
	p.m.lock.Lock()
	p.mode = mode
	p.m.lock.Unlock()
}

func (p *pin) Write(l hal.Level) {
	p.m.lock.Lock()
	defer p.m.lock.Unlock()
	if p.mode != hal.Output {
		return
	}
	p.level = l
	if p.write != nil {
		p.write(l)
	}
}

func (p *pin) Read() hal.Level {
	p.m.lock.Lock()
	defer p.m.lock.Unlock()
	if p.read != nil {
		return p.read()
	}
	return p.level
}
