package bridge

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/golang/glog"

	"github.com/robotalks/trspi/pkg/bridge/msgs"
	fx "github.com/robotalks/trspi/pkg/framework"
)

// PipeStats counts packets passing a Pipe.
type PipeStats struct {
	Received  uint64
	Sent      uint64
	Malformed uint64
}

// String implements fmt.Stringer.
func (s PipeStats) String() string {
	return fmt.Sprintf("rx=%d tx=%d malformed=%d", s.Received, s.Sent, s.Malformed)
}

// Pipe carries typed messages over a PacketReadWriter in both directions.
type Pipe struct {
	// Peer names the remote side in logs.
	Peer       string
	ReadWriter PacketReadWriter
	Handler    msgs.TypedMsgHandler

	sendLock  sync.Mutex
	received  uint64
	sent      uint64
	malformed uint64
}

// NewPipe creates a Pipe with given PacketReadWriter.
func NewPipe(rw PacketReadWriter) *Pipe {
	return &Pipe{ReadWriter: rw}
}

// SendCommandMsg sends a command or a reply with the sequence.
func (p *Pipe) SendCommandMsg(msg fx.Message, seq uint32) error {
	typed, err := typedOfKind(msg, msgs.TypeIDKindCommand)
	if err != nil {
		return err
	}
	typed.Sequence = seq
	return p.SendTyped(typed)
}

// SendEventMsg sends an event.
func (p *Pipe) SendEventMsg(msg fx.Message) error {
	typed, err := typedOfKind(msg, msgs.TypeIDKindEvent)
	if err != nil {
		return err
	}
	return p.SendTyped(typed)
}

func typedOfKind(msg fx.Message, kind uint32) (*msgs.Typed, error) {
	typed, err := msgs.TypedFrom(msg)
	if err != nil {
		return nil, err
	}
	if typed.Kind() != kind {
		return nil, fmt.Errorf("%T has kind %x, want %x", msg, typed.Kind(), kind)
	}
	return typed, nil
}

// SendTyped sends a Typed message.
func (p *Pipe) SendTyped(typed *msgs.Typed) error {
	pkt, err := typed.Encode()
	if err != nil {
		return err
	}
	p.sendLock.Lock()
	defer p.sendLock.Unlock()
	if err = p.ReadWriter.WritePacket(pkt); err == nil {
		atomic.AddUint64(&p.sent, 1)
	}
	return err
}

// Stats returns a snapshot of the counters.
func (p *Pipe) Stats() PipeStats {
	return PipeStats{
		Received:  atomic.LoadUint64(&p.received),
		Sent:      atomic.LoadUint64(&p.sent),
		Malformed: atomic.LoadUint64(&p.malformed),
	}
}

// Run implements Runnable. Malformed packets are skipped, commands which
// can't be decoded are answered with CommandErr.
func (p *Pipe) Run(ctx context.Context) error {
	defer p.Close()
	for {
		pkt, err := p.ReadWriter.ReadPacket()
		if err != nil {
			return err
		}
		atomic.AddUint64(&p.received, 1)
		typed, err := msgs.DecodeTyped(pkt)
		if err != nil {
			atomic.AddUint64(&p.malformed, 1)
			glog.Warningf("%s: malformed packet: %v", p.Peer, err)
			continue
		}
		msg, err := typed.Decode()
		if err != nil {
			atomic.AddUint64(&p.malformed, 1)
			if typed.IsCommand() && !typed.IsReply() {
				if err = p.SendCommandMsg(msgs.NewCommandErr(err), typed.Sequence); err != nil {
					return err
				}
			}
			continue
		}
		if h := p.Handler; h != nil {
			if err = h.HandleTypedMsg(ctx, msg, typed); err != nil {
				return err
			}
		}
	}
}

// Close implements io.Closer.
func (p *Pipe) Close() error {
	if closer, ok := p.ReadWriter.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
