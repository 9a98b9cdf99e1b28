package tr

import (
	"context"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/trspi/pkg/framework"
	"github.com/robotalks/trspi/pkg/hal"
)

// TxHandler is called when a queued packet leaves the driver.
type TxHandler interface {
	PacketSent(id PacketID, status TxStatus)
}

// PacketSentFunc is func type of TxHandler.
type PacketSentFunc func(PacketID, TxStatus)

// PacketSent implements TxHandler.
func (f PacketSentFunc) PacketSent(id PacketID, status TxStatus) {
	f(id, status)
}

// RxHandler is called when a frame was read from the module.
// The payload is available through Driver.RxData until the next read.
type RxHandler interface {
	FrameReceived()
}

// FrameReceivedFunc is func type of RxHandler.
type FrameReceivedFunc func()

// FrameReceived implements RxHandler.
func (f FrameReceivedFunc) FrameReceived() {
	f()
}

// Releaser takes back buffers queued with auto release.
type Releaser interface {
	Release([]byte)
}

// ReleaseFunc is func type of Releaser.
type ReleaseFunc func([]byte)

// Release implements Releaser.
func (f ReleaseFunc) Release(buf []byte) {
	f(buf)
}

// handlerMode selects who receives transfer completions.
type handlerMode int

const (
	userHandlers handlerMode = iota
	identifyCommHandlers
	identifyProgHandlers
)

// Status is a snapshot of the driver state.
type Status struct {
	Link         LinkStatus
	Control      ControlStatus
	Polling      bool
	Busy         bool
	Queued       int
	FastSPI      bool
	ByteInterval time.Duration
	Identity     DeviceIdentity
}

// Driver owns all state of one TR module link.
// It is not safe for concurrent use: Tick, Send and the lifecycle requests
// must be called from the same goroutine, and handlers run inside Tick.
type Driver struct {
	Config    Config
	TxHandler TxHandler
	RxHandler RxHandler
	Releaser  Releaser

	hw    hal.Platform
	queue *Queue

	txBuf [FrameBufferSize]byte
	rxBuf [FrameBufferSize]byte
	xfer  transfer
	rxLen int

	lastExchange time.Duration
	byteInterval time.Duration
	fastSPI      bool
	polling      bool
	status       LinkStatus

	identity DeviceIdentity
	handlers handlerMode
	identify identifyTask
	control  controlTask
}

// New creates a Driver.
func New(hw hal.Platform, conf Config) *Driver {
	if conf.ByteInterval <= 0 {
		conf.ByteInterval = DefaultByteInterval
	}
	if conf.FastByteInterval <= 0 {
		conf.FastByteInterval = DefaultFastByteInterval
	}
	if conf.StatusInterval <= 0 {
		conf.StatusInterval = DefaultStatusInterval
	}
	if conf.QueueSize <= 0 {
		conf.QueueSize = DefaultQueueSize
	}
	return &Driver{
		Config:       conf,
		hw:           hw,
		queue:        NewQueue(conf.QueueSize),
		byteInterval: conf.ByteInterval,
	}
}

// Init powers the module, reads its identity and negotiates the SPI speed.
// It blocks until identification finishes or ctx is done. ErrNotIdentified
// is returned when the module never answered; the driver stays usable.
func (d *Driver) Init(ctx context.Context) error {
	d.xfer = transfer{}
	d.status = LinkDisabled
	d.lastExchange = 0
	d.fastSPI = false
	d.byteInterval = d.Config.ByteInterval
	d.control = controlTask{}
	d.powerOn()
	d.hw.Select.SetMode(hal.Output)
	d.hw.Select.Write(hal.High)
	d.hw.Bus.Begin()
	d.polling = true

	d.identify = identifyTask{}
	for !d.identify.finished {
		if err := ctx.Err(); err != nil {
			d.handlers = userHandlers
			return err
		}
		d.Tick()
		d.identify.step(d)
	}
	d.handlers = userHandlers

	if d.identity.ModuleType.SupportsFastSPI() {
		d.fastSPI = true
		d.byteInterval = d.Config.FastByteInterval
		glog.Infof("fast SPI enabled, byte interval %v", d.byteInterval)
	}
	if !d.Config.Polling {
		d.SetPolling(false)
	}
	if !d.identity.Known() {
		glog.Warning("TR module identification failed")
		return ErrNotIdentified
	}
	glog.Infof("TR module: %s", d.identity)
	return nil
}

// SendData queues data for the module's COM buffer and returns its packet id.
func (d *Driver) SendData(data []byte, autoRelease bool) (PacketID, error) {
	return d.SendPacket(CmdWriteRead, data, autoRelease)
}

// SendPacket queues a packet with an arbitrary SPI command.
// With autoRelease the driver owns data from now on and hands it to the
// Releaser once the transfer finished.
func (d *Driver) SendPacket(cmd byte, data []byte, autoRelease bool) (PacketID, error) {
	id, err := d.queue.Push(cmd, data, autoRelease)
	if err != nil {
		return 0, err
	}
	glog.V(4).Infof("queued packet %d cmd 0x%02x len %d", id, cmd, len(data))
	return id, nil
}

// RxData copies the payload of the last frame read into dst.
func (d *Driver) RxData(dst []byte) int {
	return copy(dst, d.rxBuf[2:2+d.rxLen])
}

// RxLen returns the payload length of the last frame read.
func (d *Driver) RxLen() int {
	return d.rxLen
}

// LinkStatus returns the current link status.
func (d *Driver) LinkStatus() LinkStatus {
	return d.status
}

// ControlStatus returns the step of the lifecycle state machine.
func (d *Driver) ControlStatus() ControlStatus {
	return d.control.state
}

// Identity returns the module identity read by Init.
func (d *Driver) Identity() DeviceIdentity {
	return d.identity
}

// Idle reports whether no frame is being transferred.
func (d *Driver) Idle() bool {
	return d.xfer.state == transferFree
}

// Polling reports whether the SPI master is running.
func (d *Driver) Polling() bool {
	return d.polling
}

// SetPolling starts or stops the SPI master. While stopped, Tick advances
// the lifecycle state machine instead of the transport.
func (d *Driver) SetPolling(enable bool) {
	d.polling = enable
}

// ByteInterval returns the current pause between frame bytes.
func (d *Driver) ByteInterval() time.Duration {
	return d.byteInterval
}

// SetByteInterval overrides the pause between frame bytes.
func (d *Driver) SetByteInterval(interval time.Duration) {
	d.byteInterval = interval
}

// Status returns a snapshot of the driver state.
func (d *Driver) Status() Status {
	return Status{
		Link:         d.status,
		Control:      d.control.state,
		Polling:      d.polling,
		Busy:         !d.Idle(),
		Queued:       d.queue.Len(),
		FastSPI:      d.fastSPI,
		ByteInterval: d.byteInterval,
		Identity:     d.identity,
	}
}

// Control implements framework.Controller.
func (d *Driver) Control(cc fx.ControlContext) error {
	cc.Messages().ProcessMessages(fx.ProcessMessageFunc(d.processMessage))
	d.Tick()
	return nil
}

// AddToLoop implements framework.LoopAdder.
func (d *Driver) AddToLoop(loop *fx.Loop) {
	loop.AddController(fx.PrLvDriver, d)
}

func (d *Driver) now() time.Duration {
	return d.hw.Clock.Now()
}

func (d *Driver) dispatchTx(id PacketID, status TxStatus, n int) {
	switch d.handlers {
	case identifyCommHandlers:
		if status == TxOK {
			d.identityReceived(n)
		}
	case identifyProgHandlers:
		// the answer arrives as a separate read
	default:
		if h := d.TxHandler; h != nil {
			h.PacketSent(id, status)
		}
	}
}

func (d *Driver) dispatchRx() {
	switch d.handlers {
	case identifyCommHandlers:
	case identifyProgHandlers:
		d.identityReceived(d.rxLen)
	default:
		if h := d.RxHandler; h != nil {
			h.FrameReceived()
		}
	}
}

func (d *Driver) release(pkt *Packet) {
	if pkt.AutoRelease && d.Releaser != nil {
		d.Releaser.Release(pkt.Data)
	}
}
