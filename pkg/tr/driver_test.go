package tr_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	fx "github.com/robotalks/trspi/pkg/framework"
	"github.com/robotalks/trspi/pkg/hal"
	"github.com/robotalks/trspi/pkg/hal/sim"
	"github.com/robotalks/trspi/pkg/tr"
)

const maxTicks = 200000

type testRig struct {
	drv   *tr.Driver
	mod   *sim.Module
	clock *sim.Clock
}

func newRig(polling bool) *testRig {
	r := &testRig{mod: sim.NewModule(), clock: sim.NewClock(sim.DefaultStep)}
	conf := tr.Config{Polling: polling}
	r.drv = tr.New(r.mod.Platform(r.clock), conf)
	return r
}

func initRig(t *testing.T, polling bool) *testRig {
	r := newRig(polling)
	require.NoError(t, r.drv.Init(context.Background()))
	return r
}

func (r *testRig) tick(n int) {
	for i := 0; i < n; i++ {
		r.drv.Tick()
	}
}

func (r *testRig) tickUntil(t *testing.T, cond func() bool) {
	for i := 0; i < maxTicks; i++ {
		if cond() {
			return
		}
		r.drv.Tick()
	}
	t.Fatal("condition not reached")
}

type txEvent struct {
	id     tr.PacketID
	status tr.TxStatus
}

func TestInitIdentifiesInProgramMode(t *testing.T) {
	r := initRig(t, true)
	id := r.drv.Identity()
	require.True(t, id.Known())
	require.Equal(t, uint32(0x81001234), id.ModuleID)
	require.Equal(t, tr.TR72D, id.ModuleType)
	require.Equal(t, tr.MCUPIC16LF1938, id.MCUType)
	require.Equal(t, "3.04", id.OSVersionString())
	require.Equal(t, uint16(0x0839), id.OSBuild)

	frames := r.mod.Frames()
	require.Len(t, frames, 2)
	require.Equal(t, tr.CmdModuleInfo, frames[0].Command)
	require.Equal(t, byte(0x81), frames[0].PType)
	require.Equal(t, tr.CmdEEPROMPgm, frames[1].Command)
	require.Equal(t, []byte{0xDE, 0x01, 0xFF}, frames[1].Data)
	require.False(t, r.mod.ProgramMode())
	require.True(t, r.mod.Powered())
	require.True(t, r.drv.Polling())

	st := r.drv.Status()
	require.True(t, st.FastSPI)
	require.Equal(t, tr.DefaultFastByteInterval, st.ByteInterval)
}

func TestInitWithoutFastSPI(t *testing.T) {
	r := newRig(true)
	r.mod.Info[5] = 0x04
	require.NoError(t, r.drv.Init(context.Background()))
	require.Equal(t, tr.TR52D, r.drv.Identity().ModuleType)
	require.False(t, r.drv.Status().FastSPI)
	require.Equal(t, tr.DefaultByteInterval, r.drv.ByteInterval())
}

func TestInitUnresponsiveModule(t *testing.T) {
	r := newRig(true)
	r.mod.MirrorWrites = 1 << 30
	err := r.drv.Init(context.Background())
	require.Equal(t, tr.ErrNotIdentified, err)
	require.False(t, r.drv.Identity().Known())
	require.False(t, r.drv.Status().FastSPI)
	require.True(t, r.drv.Idle())
}

func TestInitCommunicationModeRequest(t *testing.T) {
	r := newRig(true)
	r.mod.MirrorWrites = 1 << 30
	r.mod.CommModeInfo = true
	err := r.drv.Init(context.Background())
	require.Equal(t, tr.ErrNotIdentified, err)
	require.False(t, r.drv.Identity().Known())

	frames := r.mod.Frames()
	require.Len(t, frames, 2)
	require.Equal(t, tr.CmdModuleInfo, frames[0].Command)
	require.Equal(t, byte(0x10), frames[0].PType)
	require.Len(t, frames[0].Data, 16)
	require.Equal(t, tr.CmdEEPROMPgm, frames[1].Command)
	require.Equal(t, byte(0x83), frames[1].PType)
	require.Equal(t, []byte{0xDE, 0x01, 0xFF}, frames[1].Data)
}

func TestInitCanceled(t *testing.T) {
	r := newRig(true)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Equal(t, context.Canceled, r.drv.Init(ctx))
}

func TestInitStopsPolling(t *testing.T) {
	r := initRig(t, false)
	require.False(t, r.drv.Polling())
	require.Equal(t, tr.ControlReady, r.drv.ControlStatus())
	transfers := r.mod.Transfers()
	r.tick(10)
	require.Equal(t, tr.LinkDisabled, r.drv.LinkStatus())
	require.Equal(t, transfers, r.mod.Transfers())
}

func TestReadFullFrame(t *testing.T) {
	r := initRig(t, true)
	var received [][]byte
	r.drv.RxHandler = tr.FrameReceivedFunc(func() {
		buf := make([]byte, r.drv.RxLen())
		r.drv.RxData(buf)
		received = append(received, buf)
	})
	data := make([]byte, tr.MaxReadLength)
	for i := range data {
		data[i] = byte(i * 3)
	}
	r.mod.Inject(data)
	r.tickUntil(t, func() bool { return len(received) > 0 })
	r.tick(5000)
	require.Len(t, received, 1)
	require.Equal(t, data, received[0])
	require.Zero(t, r.mod.Pending())
}

func TestReadShortFrames(t *testing.T) {
	r := initRig(t, true)
	var received [][]byte
	r.drv.RxHandler = tr.FrameReceivedFunc(func() {
		buf := make([]byte, tr.MaxReadLength)
		received = append(received, buf[:r.drv.RxData(buf)])
	})
	r.mod.Inject([]byte{1})
	r.mod.Inject([]byte{2, 3, 4})
	r.tickUntil(t, func() bool { return len(received) == 2 })
	require.Equal(t, []byte{1}, received[0])
	require.Equal(t, []byte{2, 3, 4}, received[1])
}

func TestSendWithAutoRelease(t *testing.T) {
	r := initRig(t, true)
	var sent []txEvent
	var released [][]byte
	r.drv.TxHandler = tr.PacketSentFunc(func(id tr.PacketID, status tr.TxStatus) {
		require.Len(t, released, 1)
		sent = append(sent, txEvent{id, status})
	})
	r.drv.Releaser = tr.ReleaseFunc(func(buf []byte) {
		released = append(released, buf)
	})
	buf := []byte{1, 2, 3, 4, 5}
	id, err := r.drv.SendPacket(0x01, buf, true)
	require.NoError(t, err)
	require.True(t, id.IsValid())
	r.tickUntil(t, func() bool { return len(sent) > 0 })
	r.tick(5000)

	require.Equal(t, []txEvent{{id, tr.TxOK}}, sent)
	require.Len(t, released, 1)
	require.True(t, &buf[0] == &released[0][0])
	frames := r.mod.Frames()
	last := frames[len(frames)-1]
	require.Equal(t, byte(0x01), last.Command)
	require.Equal(t, byte(0x85), last.PType)
	require.Equal(t, buf, last.Data)
}

func TestSendWithoutAutoRelease(t *testing.T) {
	r := initRig(t, true)
	var sent []txEvent
	releases := 0
	r.drv.TxHandler = tr.PacketSentFunc(func(id tr.PacketID, status tr.TxStatus) {
		sent = append(sent, txEvent{id, status})
	})
	r.drv.Releaser = tr.ReleaseFunc(func([]byte) { releases++ })
	id, err := r.drv.SendData([]byte{0xAA, 0x55}, false)
	require.NoError(t, err)
	r.tickUntil(t, func() bool { return len(sent) > 0 })
	require.Equal(t, txEvent{id, tr.TxOK}, sent[0])
	require.Zero(t, releases)
}

func TestSendCorruptedRetries(t *testing.T) {
	r := initRig(t, true)
	r.mod.CorruptWrites = true
	before := len(r.mod.Frames())
	var sent []txEvent
	releases := 0
	r.drv.TxHandler = tr.PacketSentFunc(func(id tr.PacketID, status tr.TxStatus) {
		sent = append(sent, txEvent{id, status})
	})
	r.drv.Releaser = tr.ReleaseFunc(func([]byte) { releases++ })
	id, err := r.drv.SendData([]byte{9, 8, 7}, true)
	require.NoError(t, err)
	r.tickUntil(t, func() bool { return len(sent) > 0 })
	r.tick(5000)

	require.Equal(t, []txEvent{{id, tr.TxError}}, sent)
	require.Equal(t, 1, releases)
	require.Len(t, r.mod.Frames()[before:], 3)
}

func TestReadCorruptedDropped(t *testing.T) {
	r := initRig(t, true)
	r.mod.CorruptReads = true
	received := 0
	r.drv.RxHandler = tr.FrameReceivedFunc(func() { received++ })
	r.mod.Inject([]byte{1, 2, 3, 4})
	r.tickUntil(t, func() bool { return r.mod.Pending() == 0 })
	r.tick(5000)
	require.Zero(t, received)
	require.True(t, r.drv.Idle())
}

func TestSendRejected(t *testing.T) {
	r := newRig(true)
	r.drv = tr.New(r.mod.Platform(r.clock), tr.Config{Polling: true, QueueSize: 3})
	_, err := r.drv.SendData(nil, false)
	require.Equal(t, tr.ErrEmptyPacket, err)
	_, err = r.drv.SendData([]byte{1}, false)
	require.NoError(t, err)
	_, err = r.drv.SendData([]byte{2}, false)
	require.NoError(t, err)
	_, err = r.drv.SendData([]byte{3}, false)
	require.Equal(t, tr.ErrQueueFull, err)
	require.Equal(t, 2, r.drv.Status().Queued)
}

type exchange struct {
	at   time.Duration
	idle bool
}

type recordingBus struct {
	hal.Bus
	clock *sim.Clock
	drv   *tr.Driver
	log   []exchange
}

func (b *recordingBus) Transfer(v byte) byte {
	b.log = append(b.log, exchange{at: b.clock.Elapsed(), idle: b.drv.Idle()})
	return b.Bus.Transfer(v)
}

func TestExchangePacing(t *testing.T) {
	mod, clock := sim.NewModule(), sim.NewClock(sim.DefaultStep)
	hw := mod.Platform(clock)
	bus := &recordingBus{Bus: hw.Bus, clock: clock}
	hw.Bus = bus
	drv := tr.New(hw, tr.Config{Polling: true})
	bus.drv = drv
	require.NoError(t, drv.Init(context.Background()))

	for i := 0; i < 10000; i++ {
		if i%1000 == 0 {
			mod.Inject([]byte{byte(i), 1, 2, 3, 4, 5, 6, 7})
			_, err := drv.SendData([]byte{byte(i), 0x10, 0x20}, false)
			require.NoError(t, err)
		}
		drv.Tick()
	}

	require.NotEmpty(t, bus.log)
	var prev time.Duration
	frameBytes := 0
	for _, x := range bus.log {
		if x.idle {
			require.True(t, x.at-prev > tr.DefaultStatusInterval, "status check after %v", x.at-prev)
		} else {
			frameBytes++
			require.True(t, x.at-prev > tr.DefaultFastByteInterval, "frame byte after %v", x.at-prev)
		}
		prev = x.at
	}
	require.NotZero(t, frameBytes)
}

func TestResetWhilePolling(t *testing.T) {
	r := initRig(t, true)
	cycles := r.mod.PowerCycles()
	start := r.clock.Elapsed()
	require.NoError(t, r.drv.Reset())
	require.True(t, r.clock.Elapsed()-start >= 100*time.Millisecond)
	require.Equal(t, cycles+1, r.mod.PowerCycles())
	require.True(t, r.mod.Powered())
}

func TestLifecycleReset(t *testing.T) {
	r := initRig(t, false)
	cycles := r.mod.PowerCycles()
	require.NoError(t, r.drv.Reset())
	require.Equal(t, tr.ControlReset, r.drv.ControlStatus())
	require.Equal(t, tr.ErrControlBusy, r.drv.Reset())
	require.Equal(t, tr.ErrControlBusy, r.drv.EnterProgramMode())

	start := r.clock.Elapsed()
	r.drv.Tick()
	require.Equal(t, tr.ControlWait, r.drv.ControlStatus())
	require.Equal(t, tr.LinkBusy, r.drv.LinkStatus())
	require.False(t, r.mod.Powered())
	require.False(t, r.mod.SPIEnabled())

	r.tickUntil(t, func() bool { return r.drv.ControlStatus() == tr.ControlReady })
	require.True(t, r.clock.Elapsed()-start >= 300*time.Millisecond)
	require.True(t, r.mod.Powered())
	require.True(t, r.mod.SPIEnabled())
	require.False(t, r.mod.ProgramMode())
	require.Equal(t, cycles+1, r.mod.PowerCycles())

	r.drv.Tick()
	require.Equal(t, tr.LinkDisabled, r.drv.LinkStatus())
	require.NoError(t, r.drv.Reset())
}

func TestLifecycleProgramMode(t *testing.T) {
	r := initRig(t, false)
	require.NoError(t, r.drv.EnterProgramMode())
	r.tick(1)
	r.tickUntil(t, func() bool { return r.drv.ControlStatus() == tr.ControlReady })
	require.True(t, r.mod.ProgramMode())
	require.True(t, r.mod.SPIEnabled())

	r.drv.SetPolling(true)
	r.tickUntil(t, func() bool { return r.drv.LinkStatus() == tr.LinkProgrammingMode })
}

func TestControlMessages(t *testing.T) {
	r := initRig(t, true)
	loop := fx.NewLoop()
	loop.Add(r.drv)
	ctx := context.Background()

	sendCh := make(chan tr.SendResult, 1)
	statusCh := make(chan tr.Status, 1)
	loop.PostMessage(&tr.SendMsg{Command: tr.CmdWriteRead, Data: []byte{1, 2}, Result: sendCh})
	loop.PostMessage(&tr.StatusQuery{Result: statusCh})
	loop.RunIteration(ctx)

	res := <-sendCh
	require.NoError(t, res.Err)
	require.True(t, res.ID.IsValid())
	st := <-statusCh
	require.Equal(t, tr.TR72D, st.Identity.ModuleType)
	require.True(t, st.Polling)

	loop.PostMessage(&tr.PollingMsg{Enable: false})
	loop.RunIteration(ctx)
	require.False(t, r.drv.Polling())

	errCh := make(chan error, 1)
	loop.PostMessage(&tr.ControlMsg{Result: errCh})
	loop.RunIteration(ctx)
	require.NoError(t, <-errCh)
	require.NotEqual(t, tr.ControlReady, r.drv.ControlStatus())
}
