// Package v1 holds the wire schemas of trspi.proto.
package v1

import (
	"github.com/golang/protobuf/proto"
)

// Typed wraps an encoded message with its type.
type Typed struct {
	TypeId   uint32 `protobuf:"varint,1,opt,name=type_id,json=typeId,proto3" json:"type_id,omitempty"`
	Sequence uint32 `protobuf:"varint,2,opt,name=sequence,proto3" json:"sequence,omitempty"`
	Message  []byte `protobuf:"bytes,3,opt,name=message,proto3" json:"message,omitempty"`
}

func (m *Typed) Reset()         { *m = Typed{} }
func (m *Typed) String() string { return proto.CompactTextString(m) }
func (*Typed) ProtoMessage()    {}

// CommandOK replies a successful command.
type CommandOK struct {
}

func (m *CommandOK) Reset()         { *m = CommandOK{} }
func (m *CommandOK) String() string { return proto.CompactTextString(m) }
func (*CommandOK) ProtoMessage()    {}

// CommandErr replies a failed command.
type CommandErr struct {
	Message string `protobuf:"bytes,1,opt,name=message,proto3" json:"message,omitempty"`
}

func (m *CommandErr) Reset()         { *m = CommandErr{} }
func (m *CommandErr) String() string { return proto.CompactTextString(m) }
func (*CommandErr) ProtoMessage()    {}

type SendRequest struct {
	Command uint32 `protobuf:"varint,1,opt,name=command,proto3" json:"command,omitempty"`
	Data    []byte `protobuf:"bytes,2,opt,name=data,proto3" json:"data,omitempty"`
}

func (m *SendRequest) Reset()         { *m = SendRequest{} }
func (m *SendRequest) String() string { return proto.CompactTextString(m) }
func (*SendRequest) ProtoMessage()    {}

type SendAccepted struct {
	PacketId uint32 `protobuf:"varint,1,opt,name=packet_id,json=packetId,proto3" json:"packet_id,omitempty"`
}

func (m *SendAccepted) Reset()         { *m = SendAccepted{} }
func (m *SendAccepted) String() string { return proto.CompactTextString(m) }
func (*SendAccepted) ProtoMessage()    {}

type ResetRequest struct {
}

func (m *ResetRequest) Reset()         { *m = ResetRequest{} }
func (m *ResetRequest) String() string { return proto.CompactTextString(m) }
func (*ResetRequest) ProtoMessage()    {}

type ProgramModeRequest struct {
}

func (m *ProgramModeRequest) Reset()         { *m = ProgramModeRequest{} }
func (m *ProgramModeRequest) String() string { return proto.CompactTextString(m) }
func (*ProgramModeRequest) ProtoMessage()    {}

type PollingRequest struct {
	Enable bool `protobuf:"varint,1,opt,name=enable,proto3" json:"enable,omitempty"`
}

func (m *PollingRequest) Reset()         { *m = PollingRequest{} }
func (m *PollingRequest) String() string { return proto.CompactTextString(m) }
func (*PollingRequest) ProtoMessage()    {}

type StatusQuery struct {
}

func (m *StatusQuery) Reset()         { *m = StatusQuery{} }
func (m *StatusQuery) String() string { return proto.CompactTextString(m) }
func (*StatusQuery) ProtoMessage()    {}

type Identity struct {
	ModuleId   uint32 `protobuf:"varint,1,opt,name=module_id,json=moduleId,proto3" json:"module_id,omitempty"`
	OsVersion  uint32 `protobuf:"varint,2,opt,name=os_version,json=osVersion,proto3" json:"os_version,omitempty"`
	McuType    uint32 `protobuf:"varint,3,opt,name=mcu_type,json=mcuType,proto3" json:"mcu_type,omitempty"`
	Fcc        bool   `protobuf:"varint,4,opt,name=fcc,proto3" json:"fcc,omitempty"`
	ModuleType uint32 `protobuf:"varint,5,opt,name=module_type,json=moduleType,proto3" json:"module_type,omitempty"`
	OsBuild    uint32 `protobuf:"varint,6,opt,name=os_build,json=osBuild,proto3" json:"os_build,omitempty"`
	Raw        []byte `protobuf:"bytes,7,opt,name=raw,proto3" json:"raw,omitempty"`
}

func (m *Identity) Reset()         { *m = Identity{} }
func (m *Identity) String() string { return proto.CompactTextString(m) }
func (*Identity) ProtoMessage()    {}

type StatusReport struct {
	Link           uint32    `protobuf:"varint,1,opt,name=link,proto3" json:"link,omitempty"`
	Control        uint32    `protobuf:"varint,2,opt,name=control,proto3" json:"control,omitempty"`
	Polling        bool      `protobuf:"varint,3,opt,name=polling,proto3" json:"polling,omitempty"`
	Busy           bool      `protobuf:"varint,4,opt,name=busy,proto3" json:"busy,omitempty"`
	Queued         uint32    `protobuf:"varint,5,opt,name=queued,proto3" json:"queued,omitempty"`
	FastSpi        bool      `protobuf:"varint,6,opt,name=fast_spi,json=fastSpi,proto3" json:"fast_spi,omitempty"`
	ByteIntervalUs uint32    `protobuf:"varint,7,opt,name=byte_interval_us,json=byteIntervalUs,proto3" json:"byte_interval_us,omitempty"`
	Identity       *Identity `protobuf:"bytes,8,opt,name=identity,proto3" json:"identity,omitempty"`
}

func (m *StatusReport) Reset()         { *m = StatusReport{} }
func (m *StatusReport) String() string { return proto.CompactTextString(m) }
func (*StatusReport) ProtoMessage()    {}

type TxResult struct {
	PacketId uint32 `protobuf:"varint,1,opt,name=packet_id,json=packetId,proto3" json:"packet_id,omitempty"`
	Ok       bool   `protobuf:"varint,2,opt,name=ok,proto3" json:"ok,omitempty"`
}

func (m *TxResult) Reset()         { *m = TxResult{} }
func (m *TxResult) String() string { return proto.CompactTextString(m) }
func (*TxResult) ProtoMessage()    {}

type RxFrame struct {
	Data []byte `protobuf:"bytes,1,opt,name=data,proto3" json:"data,omitempty"`
}

func (m *RxFrame) Reset()         { *m = RxFrame{} }
func (m *RxFrame) String() string { return proto.CompactTextString(m) }
func (*RxFrame) ProtoMessage()    {}
