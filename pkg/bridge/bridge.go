package bridge

import (
	"context"
	"errors"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/trspi/pkg/bridge/msgs"
	fx "github.com/robotalks/trspi/pkg/framework"
	"github.com/robotalks/trspi/pkg/tr"
)

// DefaultBacklog is the default size of the outbound queue.
const DefaultBacklog = 64

// Bridge executes commands from remote peers on a driver and publishes
// the driver's transfer events to them. Commands run inside the loop
// iteration, network writes happen on the Bridge runner.
type Bridge struct {
	Driver *tr.Driver

	loop    fx.LoopControl
	outCh   chan outbound
	lock    sync.RWMutex
	pipes   map[*Pipe]struct{}
	rxBuf   [tr.MaxReadLength]byte
	dropped int
}

type outbound struct {
	pipe *Pipe
	msg  fx.Message
	seq  uint32
}

// New creates a Bridge for the driver.
func New(drv *tr.Driver, backlog int) *Bridge {
	if backlog <= 0 {
		backlog = DefaultBacklog
	}
	return &Bridge{
		Driver: drv,
		outCh:  make(chan outbound, backlog),
		pipes:  make(map[*Pipe]struct{}),
	}
}

// AddToLoop implements LoopAdder. It takes over the driver handlers and
// the loop starts the publishing runner.
func (b *Bridge) AddToLoop(loop *fx.Loop) {
	b.loop = loop
	b.Driver.TxHandler = b
	b.Driver.RxHandler = b
	loop.AddController(fx.PrLvInput, b)
}

// Name implements Named.
func (b *Bridge) Name() string {
	return "bridge"
}

// Control implements Controller.
func (b *Bridge) Control(cc fx.ControlContext) error {
	cc.Messages().ProcessMessages(fx.ProcessMessageFunc(func(mctx fx.MessageProcessingContext) {
		if cmdMsg, ok := mctx.CurrentMessage().(*CommandMsg); ok {
			mctx.MessageTaken()
			if err := cmdMsg.Command.Done(b.execute(cmdMsg.Command.Msg())); err != nil {
				glog.Warningf("command reply: %v", err)
			}
		}
	}))
	return nil
}

func (b *Bridge) execute(msg fx.Message) fx.Message {
	var err error
	switch m := msg.(type) {
	case *msgs.SendRequest:
		var id tr.PacketID
		if id, err = b.Driver.SendPacket(m.SPICommand(), m.Data, false); err == nil {
			return msgs.NewSendAccepted(id)
		}
	case *msgs.ResetRequest:
		err = b.Driver.Reset()
	case *msgs.ProgramModeRequest:
		err = b.Driver.EnterProgramMode()
	case *msgs.PollingRequest:
		b.Driver.SetPolling(m.Enable)
	case *msgs.StatusQuery:
		return msgs.NewStatusReport(b.Driver.Status())
	default:
		err = msgs.ErrUnsupportedCommand
	}
	if err != nil {
		return msgs.NewCommandErr(err)
	}
	return msgs.NewCommandOK()
}

// PacketSent implements tr.TxHandler.
func (b *Bridge) PacketSent(id tr.PacketID, status tr.TxStatus) {
	b.enqueue(outbound{msg: msgs.NewTxResult(id, status)})
}

// FrameReceived implements tr.RxHandler.
func (b *Bridge) FrameReceived() {
	n := b.Driver.RxData(b.rxBuf[:])
	b.enqueue(outbound{msg: msgs.NewRxFrame(append([]byte(nil), b.rxBuf[:n]...))})
}

func (b *Bridge) enqueue(out outbound) {
	select {
	case b.outCh <- out:
	default:
		b.dropped++
		glog.Warningf("bridge backlog full, dropped %T (%d total)", out.msg, b.dropped)
	}
}

// Run implements Runnable. It writes replies and events to peers.
func (b *Bridge) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case out := <-b.outCh:
			b.deliver(out)
		}
	}
}

func (b *Bridge) deliver(out outbound) {
	if out.pipe != nil {
		if err := out.pipe.SendCommandMsg(out.msg, out.seq); err != nil {
			glog.Warningf("reply seq %d: %v", out.seq, err)
		}
		return
	}
	b.lock.RLock()
	defer b.lock.RUnlock()
	for p := range b.pipes {
		if err := p.SendEventMsg(out.msg); err != nil {
			glog.Warningf("publish %T: %v", out.msg, err)
		}
	}
}

// ErrNotInLoop indicates a peer attached before the Bridge was added to a loop.
var ErrNotInLoop = errors.New("bridge not added to a loop")

// Attach serves a peer on rw until reading fails or ctx is done.
// The Bridge must be added to a loop first.
func (b *Bridge) Attach(ctx context.Context, rw PacketReadWriter) error {
	if b.loop == nil {
		return ErrNotInLoop
	}
	p := NewPipe(rw)
	p.Peer = "peer"
	if named, ok := rw.(fx.Named); ok {
		p.Peer = named.Name()
	}
	p.Handler = msgs.HandleTypedMsgFunc(func(ctx context.Context, msg fx.Message, typed *msgs.Typed) error {
		if !typed.IsCommand() || typed.IsReply() {
			return nil
		}
		glog.V(2).Infof("command %T seq %d", msg, typed.Sequence)
		b.loop.PostMessage(&CommandMsg{Command: &command{bridge: b, pipe: p, seq: typed.Sequence, msg: msg}})
		b.loop.TriggerNext()
		return nil
	})
	b.lock.Lock()
	b.pipes[p] = struct{}{}
	b.lock.Unlock()
	defer func() {
		b.lock.Lock()
		delete(b.pipes, p)
		b.lock.Unlock()
		glog.V(2).Infof("%s detached: %s", p.Peer, p.Stats())
	}()
	return fx.RunWithContextCloser(ctx, p, func() error { return p.Run(ctx) })
}

// Serve returns a Runnable attaching rw.
func (b *Bridge) Serve(rw PacketReadWriter) fx.Runnable {
	return fx.RunFunc(func(ctx context.Context) error {
		return b.Attach(ctx, rw)
	})
}

// Peers returns the number of attached peers.
func (b *Bridge) Peers() int {
	b.lock.RLock()
	defer b.lock.RUnlock()
	return len(b.pipes)
}

type command struct {
	bridge *Bridge
	pipe   *Pipe
	seq    uint32
	msg    fx.Message
}

func (c *command) Msg() fx.Message {
	return c.msg
}

func (c *command) Done(reply fx.Message) error {
	c.bridge.enqueue(outbound{pipe: c.pipe, msg: reply, seq: c.seq})
	return nil
}
