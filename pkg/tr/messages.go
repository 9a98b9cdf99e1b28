package tr

import (
	"github.com/golang/glog"

	fx "github.com/robotalks/trspi/pkg/framework"
)

// SendMsg asks the driver loop to queue a packet.
type SendMsg struct {
	Command     byte
	Data        []byte
	AutoRelease bool
	// Result receives the outcome if not nil. It must have room for one value.
	Result chan<- SendResult
}

// SendResult is the outcome of a SendMsg.
type SendResult struct {
	ID  PacketID
	Err error
}

// NewMessage implements Message.
func (m *SendMsg) NewMessage() fx.Message { return &SendMsg{} }

// ControlMsg asks the driver loop to reset the module, or to enter
// programming mode.
type ControlMsg struct {
	ProgramMode bool
	Result      chan<- error
}

// NewMessage implements Message.
func (m *ControlMsg) NewMessage() fx.Message { return &ControlMsg{} }

// PollingMsg starts or stops the SPI master.
type PollingMsg struct {
	Enable bool
}

// NewMessage implements Message.
func (m *PollingMsg) NewMessage() fx.Message { return &PollingMsg{} }

// StatusQuery asks the driver loop for a Status snapshot.
type StatusQuery struct {
	Result chan<- Status
}

// NewMessage implements Message.
func (m *StatusQuery) NewMessage() fx.Message { return &StatusQuery{} }

func (d *Driver) processMessage(mctx fx.MessageProcessingContext) {
	switch msg := mctx.CurrentMessage().(type) {
	case *SendMsg:
		mctx.MessageTaken()
		id, err := d.SendPacket(msg.Command, msg.Data, msg.AutoRelease)
		if msg.Result != nil {
			select {
			case msg.Result <- SendResult{ID: id, Err: err}:
			default:
				glog.Warning("send result dropped")
			}
		}
	case *ControlMsg:
		mctx.MessageTaken()
		var err error
		if msg.ProgramMode {
			err = d.EnterProgramMode()
		} else {
			err = d.Reset()
		}
		if msg.Result != nil {
			select {
			case msg.Result <- err:
			default:
				glog.Warning("control result dropped")
			}
		}
	case *PollingMsg:
		mctx.MessageTaken()
		d.SetPolling(msg.Enable)
	case *StatusQuery:
		mctx.MessageTaken()
		select {
		case msg.Result <- d.Status():
		default:
			glog.Warning("status result dropped")
		}
	}
}
