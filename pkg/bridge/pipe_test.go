package bridge

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/trspi/pkg/bridge/msgs"
	"github.com/robotalks/trspi/pkg/bridge/stream"
	fx "github.com/robotalks/trspi/pkg/framework"
)

func TestPipeSkipsMalformedPackets(t *testing.T) {
	srv, cli := net.Pipe()
	defer cli.Close()

	gotCh := make(chan fx.Message, 1)
	p := NewPipe(stream.New(srv))
	p.Handler = msgs.HandleTypedMsgFunc(func(_ context.Context, msg fx.Message, typed *msgs.Typed) error {
		require.Equal(t, uint32(7), typed.Sequence)
		gotCh <- msg
		return nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go fx.RunWithContextCloser(ctx, p, func() error { return p.Run(ctx) })

	peer := stream.New(cli)
	require.NoError(t, peer.WritePacket([]byte{0xff, 0xff}))
	typed, err := msgs.TypedFrom(&msgs.StatusQuery{})
	require.NoError(t, err)
	typed.Sequence = 7
	pkt, err := typed.Encode()
	require.NoError(t, err)
	require.NoError(t, peer.WritePacket(pkt))

	select {
	case msg := <-gotCh:
		_, ok := msg.(*msgs.StatusQuery)
		require.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("command not delivered")
	}
	stats := p.Stats()
	require.Equal(t, uint64(2), stats.Received)
	require.Equal(t, uint64(1), stats.Malformed)
}

func TestPipeRejectsWrongKind(t *testing.T) {
	p := NewPipe(nil)
	require.Error(t, p.SendEventMsg(&msgs.StatusQuery{}))
	require.Error(t, p.SendCommandMsg(msgs.NewRxFrame([]byte{1}), 1))
}

func TestAttachRequiresLoop(t *testing.T) {
	srv, cli := net.Pipe()
	defer cli.Close()
	defer srv.Close()
	b := New(nil, 0)
	require.Equal(t, ErrNotInLoop, b.Attach(context.Background(), stream.New(srv)))
	require.Zero(t, b.Peers())
}
