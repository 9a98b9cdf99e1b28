package msgs

import (
	"github.com/golang/protobuf/proto"

	fx "github.com/robotalks/trspi/pkg/framework"
	pb "github.com/robotalks/trspi/pkg/proto/trspi/v1"
	"github.com/robotalks/trspi/pkg/tr"
)

// TypeID Groups
const (
	GroupCommand uint32 = 0x00000000
	GroupTR      uint32 = 0x00010000
)

// TypeIDs
const (
	CommandOKTypeID          uint32 = GroupCommand | TypeIDMaskReply | 0x0000
	CommandErrTypeID         uint32 = GroupCommand | TypeIDMaskReply | 0x0001
	SendRequestTypeID        uint32 = GroupTR | 0x0000
	SendAcceptedTypeID       uint32 = SendRequestTypeID | TypeIDMaskReply
	ResetRequestTypeID       uint32 = GroupTR | 0x0001
	ProgramModeRequestTypeID uint32 = GroupTR | 0x0002
	PollingRequestTypeID     uint32 = GroupTR | 0x0003
	StatusQueryTypeID        uint32 = GroupTR | 0x0004
	StatusReportTypeID       uint32 = StatusQueryTypeID | TypeIDMaskReply
	TxResultTypeID           uint32 = TypeIDKindEvent | GroupTR | 0x0010
	RxFrameTypeID            uint32 = TypeIDKindEvent | GroupTR | 0x0011
)

// CommandOK is the generic reply indicating success for commands.
type CommandOK struct {
	pb.CommandOK
}

// NewCommandOK creates a CommandOK.
func NewCommandOK() *CommandOK {
	return &CommandOK{}
}

// NewMessage implements Message.
func (m *CommandOK) NewMessage() fx.Message { return &CommandOK{} }

// TypeID implements SerializableMessage.
func (m *CommandOK) TypeID() uint32 { return CommandOKTypeID }

// Serializable implements SerializableMessage.
func (m *CommandOK) Serializable() proto.Message { return &m.CommandOK }

// CommandErr is the generic reply of a failed command.
type CommandErr struct {
	pb.CommandErr
}

// NewCommandErr creates a CommandErr from an error.
func NewCommandErr(err error) *CommandErr {
	return &CommandErr{CommandErr: pb.CommandErr{Message: err.Error()}}
}

// NewMessage implements Message.
func (m *CommandErr) NewMessage() fx.Message { return &CommandErr{} }

// TypeID implements SerializableMessage.
func (m *CommandErr) TypeID() uint32 { return CommandErrTypeID }

// Serializable implements SerializableMessage.
func (m *CommandErr) Serializable() proto.Message { return &m.CommandErr }

// Error implements error.
func (m *CommandErr) Error() string { return m.Message }

// SendRequest queues a packet on the driver.
// Command 0 selects the default data command.
type SendRequest struct {
	pb.SendRequest
}

// NewSendRequest creates a SendRequest.
func NewSendRequest(cmd byte, data []byte) *SendRequest {
	return &SendRequest{SendRequest: pb.SendRequest{Command: uint32(cmd), Data: data}}
}

// NewMessage implements Message.
func (m *SendRequest) NewMessage() fx.Message { return &SendRequest{} }

// TypeID implements SerializableMessage.
func (m *SendRequest) TypeID() uint32 { return SendRequestTypeID }

// Serializable implements SerializableMessage.
func (m *SendRequest) Serializable() proto.Message { return &m.SendRequest }

// SPICommand returns the SPI command byte to send with.
func (m *SendRequest) SPICommand() byte {
	if m.Command == 0 {
		return tr.CmdWriteRead
	}
	return byte(m.Command)
}

// SendAccepted replies a SendRequest with the packet id to expect
// in a later TxResult.
type SendAccepted struct {
	pb.SendAccepted
}

// NewSendAccepted creates a SendAccepted.
func NewSendAccepted(id tr.PacketID) *SendAccepted {
	return &SendAccepted{SendAccepted: pb.SendAccepted{PacketId: uint32(id)}}
}

// NewMessage implements Message.
func (m *SendAccepted) NewMessage() fx.Message { return &SendAccepted{} }

// TypeID implements SerializableMessage.
func (m *SendAccepted) TypeID() uint32 { return SendAcceptedTypeID }

// Serializable implements SerializableMessage.
func (m *SendAccepted) Serializable() proto.Message { return &m.SendAccepted }

// ResetRequest command.
type ResetRequest struct {
	pb.ResetRequest
}

// NewMessage implements Message.
func (m *ResetRequest) NewMessage() fx.Message { return &ResetRequest{} }

// TypeID implements SerializableMessage.
func (m *ResetRequest) TypeID() uint32 { return ResetRequestTypeID }

// Serializable implements SerializableMessage.
func (m *ResetRequest) Serializable() proto.Message { return &m.ResetRequest }

// ProgramModeRequest command.
type ProgramModeRequest struct {
	pb.ProgramModeRequest
}

// NewMessage implements Message.
func (m *ProgramModeRequest) NewMessage() fx.Message { return &ProgramModeRequest{} }

// TypeID implements SerializableMessage.
func (m *ProgramModeRequest) TypeID() uint32 { return ProgramModeRequestTypeID }

// Serializable implements SerializableMessage.
func (m *ProgramModeRequest) Serializable() proto.Message { return &m.ProgramModeRequest }

// PollingRequest command.
type PollingRequest struct {
	pb.PollingRequest
}

// NewMessage implements Message.
func (m *PollingRequest) NewMessage() fx.Message { return &PollingRequest{} }

// TypeID implements SerializableMessage.
func (m *PollingRequest) TypeID() uint32 { return PollingRequestTypeID }

// Serializable implements SerializableMessage.
func (m *PollingRequest) Serializable() proto.Message { return &m.PollingRequest }

// StatusQuery command.
type StatusQuery struct {
	pb.StatusQuery
}

// NewMessage implements Message.
func (m *StatusQuery) NewMessage() fx.Message { return &StatusQuery{} }

// TypeID implements SerializableMessage.
func (m *StatusQuery) TypeID() uint32 { return StatusQueryTypeID }

// Serializable implements SerializableMessage.
func (m *StatusQuery) Serializable() proto.Message { return &m.StatusQuery }

// StatusReport replies a StatusQuery.
type StatusReport struct {
	pb.StatusReport
}

// NewStatusReport creates a StatusReport from a driver status.
func NewStatusReport(st tr.Status) *StatusReport {
	id := st.Identity
	return &StatusReport{StatusReport: pb.StatusReport{
		Link:           uint32(st.Link),
		Control:        uint32(st.Control),
		Polling:        st.Polling,
		Busy:           st.Busy,
		Queued:         uint32(st.Queued),
		FastSpi:        st.FastSPI,
		ByteIntervalUs: uint32(st.ByteInterval.Microseconds()),
		Identity: &pb.Identity{
			ModuleId:   id.ModuleID,
			OsVersion:  uint32(id.OSVersion),
			McuType:    uint32(id.MCUType),
			Fcc:        id.FCC,
			ModuleType: uint32(id.ModuleType),
			OsBuild:    uint32(id.OSBuild),
			Raw:        append([]byte(nil), id.Raw[:]...),
		},
	}}
}

// NewMessage implements Message.
func (m *StatusReport) NewMessage() fx.Message { return &StatusReport{} }

// TypeID implements SerializableMessage.
func (m *StatusReport) TypeID() uint32 { return StatusReportTypeID }

// Serializable implements SerializableMessage.
func (m *StatusReport) Serializable() proto.Message { return &m.StatusReport }

// DeviceIdentity converts the reported identity back.
func (m *StatusReport) DeviceIdentity() tr.DeviceIdentity {
	var id tr.DeviceIdentity
	if pid := m.Identity; pid != nil {
		id.ModuleID = pid.ModuleId
		id.OSVersion = uint16(pid.OsVersion)
		id.MCUType = tr.MCUType(pid.McuType)
		id.FCC = pid.Fcc
		id.ModuleType = tr.ModuleType(pid.ModuleType)
		id.OSBuild = uint16(pid.OsBuild)
		copy(id.Raw[:], pid.Raw)
	}
	return id
}

// TxResult event reports a packet leaving the driver.
type TxResult struct {
	pb.TxResult
}

// NewTxResult creates a TxResult.
func NewTxResult(id tr.PacketID, status tr.TxStatus) *TxResult {
	return &TxResult{TxResult: pb.TxResult{PacketId: uint32(id), Ok: status == tr.TxOK}}
}

// NewMessage implements Message.
func (m *TxResult) NewMessage() fx.Message { return &TxResult{} }

// TypeID implements SerializableMessage.
func (m *TxResult) TypeID() uint32 { return TxResultTypeID }

// Serializable implements SerializableMessage.
func (m *TxResult) Serializable() proto.Message { return &m.TxResult }

// RxFrame event carries data read from the module.
type RxFrame struct {
	pb.RxFrame
}

// NewRxFrame creates a RxFrame.
func NewRxFrame(data []byte) *RxFrame {
	return &RxFrame{RxFrame: pb.RxFrame{Data: data}}
}

// NewMessage implements Message.
func (m *RxFrame) NewMessage() fx.Message { return &RxFrame{} }

// TypeID implements SerializableMessage.
func (m *RxFrame) TypeID() uint32 { return RxFrameTypeID }

// Serializable implements SerializableMessage.
func (m *RxFrame) Serializable() proto.Message { return &m.RxFrame }
