package msgs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/trspi/pkg/tr"
)

func TestTypedEnvelope(t *testing.T) {
	typed, err := TypedFrom(NewSendRequest(0x01, []byte{1, 2, 3}))
	require.NoError(t, err)
	typed.Sequence = 7
	require.True(t, typed.IsCommand())
	require.False(t, typed.IsReply())
	data, err := typed.Encode()
	require.NoError(t, err)

	decoded, err := DecodeTyped(data)
	require.NoError(t, err)
	require.Equal(t, uint32(7), decoded.Sequence)
	msg, err := decoded.Decode()
	require.NoError(t, err)
	req, ok := msg.(*SendRequest)
	require.True(t, ok)
	require.Equal(t, byte(0x01), req.SPICommand())
	require.Equal(t, []byte{1, 2, 3}, req.Data)
}

func TestMessageKinds(t *testing.T) {
	for _, c := range []struct {
		msg   SerializableMessage
		event bool
		reply bool
	}{
		{&StatusQuery{}, false, false},
		{&StatusReport{}, false, true},
		{NewCommandOK(), false, true},
		{NewTxResult(1, tr.TxOK), true, false},
		{NewRxFrame([]byte{1}), true, false},
	} {
		typed, err := TypedFrom(c.msg)
		require.NoError(t, err)
		require.Equal(t, c.event, typed.IsEvent(), "%T", c.msg)
		require.Equal(t, c.reply, typed.IsReply(), "%T", c.msg)
	}
}

func TestDecodeUnknownType(t *testing.T) {
	typed := &Typed{}
	typed.TypeId = GroupTR | 0x0fff
	_, err := typed.Decode()
	require.Error(t, err)
	_, ok := err.(*ErrUnknownType)
	require.True(t, ok)
}

func TestStatusReportIdentity(t *testing.T) {
	id, err := tr.ParseIdentity([]byte{0x81, 0x00, 0x12, 0x34, 0x34, 0x24, 0x39, 0x08})
	require.NoError(t, err)
	report := NewStatusReport(tr.Status{
		Link:         tr.LinkCommunicationMode,
		Polling:      true,
		Queued:       2,
		FastSPI:      true,
		ByteInterval: 150 * time.Microsecond,
		Identity:     id,
	})
	typed, err := TypedFrom(report)
	require.NoError(t, err)
	msg, err := typed.Decode()
	require.NoError(t, err)
	decoded := msg.(*StatusReport)
	require.Equal(t, uint32(tr.LinkCommunicationMode), decoded.Link)
	require.Equal(t, uint32(150), decoded.ByteIntervalUs)
	require.Equal(t, uint32(2), decoded.Queued)
	require.Equal(t, id, decoded.DeviceIdentity())
	require.Equal(t, "TR-72D", decoded.DeviceIdentity().ModuleType.String())
}

func TestSendRequestDefaultCommand(t *testing.T) {
	require.Equal(t, tr.CmdWriteRead, NewSendRequest(0, []byte{1}).SPICommand())
}
