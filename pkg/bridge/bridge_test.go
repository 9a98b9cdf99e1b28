package bridge_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/trspi/pkg/bridge"
	"github.com/robotalks/trspi/pkg/bridge/msgs"
	"github.com/robotalks/trspi/pkg/bridge/stream"
	fx "github.com/robotalks/trspi/pkg/framework"
	"github.com/robotalks/trspi/pkg/hal/sim"
	"github.com/robotalks/trspi/pkg/tr"
)

func waitEvent(t *testing.T, events <-chan fx.Message, match func(fx.Message) bool) {
	timeout := time.After(5 * time.Second)
	for {
		select {
		case msg := <-events:
			if match(msg) {
				return
			}
		case <-timeout:
			t.Fatal("event not received")
		}
	}
}

func TestBridgeRoundTrip(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mod := sim.NewModule()
	mod.MirrorWrites = 100
	drv := tr.New(mod.Platform(sim.NewClock(time.Millisecond)), tr.Config{Polling: true})
	require.NoError(t, drv.Init(ctx))

	loop := fx.NewLoop()
	b := bridge.New(drv, 0)
	loop.Add(drv, b)
	srvConn, cliConn := net.Pipe()
	loop.AddRunnable(b.Serve(stream.New(srvConn)))

	client := bridge.NewClient(stream.New(cliConn))
	events := make(chan fx.Message, 16)
	client.OnEvent = func(msg fx.Message) { events <- msg }
	go loop.Run(ctx)
	go client.Run(ctx)

	reply, err := client.Call(ctx, msgs.NewSendRequest(0, []byte{1, 2, 3}))
	require.NoError(t, err)
	accepted, ok := reply.(*msgs.SendAccepted)
	require.True(t, ok)
	require.NotZero(t, accepted.PacketId)
	waitEvent(t, events, func(msg fx.Message) bool {
		res, ok := msg.(*msgs.TxResult)
		return ok && res.PacketId == accepted.PacketId && res.Ok
	})

	mod.Inject([]byte{9, 8, 7})
	waitEvent(t, events, func(msg fx.Message) bool {
		frame, ok := msg.(*msgs.RxFrame)
		return ok && string(frame.Data) == string([]byte{9, 8, 7})
	})

	reply, err = client.Call(ctx, &msgs.StatusQuery{})
	require.NoError(t, err)
	report, ok := reply.(*msgs.StatusReport)
	require.True(t, ok)
	require.Equal(t, tr.TR72D, report.DeviceIdentity().ModuleType)
	require.True(t, report.Polling)

	_, err = client.Call(ctx, msgs.NewSendRequest(0, nil))
	require.Error(t, err)
	require.Equal(t, tr.ErrEmptyPacket.Error(), err.Error())

	reply, err = client.Call(ctx, &msgs.PollingRequest{})
	require.NoError(t, err)
	_, ok = reply.(*msgs.CommandOK)
	require.True(t, ok)
	require.Equal(t, 1, b.Peers())
}
