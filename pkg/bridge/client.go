package bridge

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/robotalks/trspi/pkg/bridge/msgs"
	fx "github.com/robotalks/trspi/pkg/framework"
)

// DefaultCommandExpiration is the default expiration expecting a result.
const DefaultCommandExpiration = 2 * time.Second

// Result represents result of a command.
type Result struct {
	Msg fx.Message
	Err error
}

// CommandFuture is the future of sent command.
type CommandFuture interface {
	ResultChan() <-chan Result
}

// EventHandler receives events published by a bridge.
type EventHandler func(fx.Message)

// Client is the peer side of a Bridge.
type Client struct {
	Expiration time.Duration
	OnEvent    EventHandler

	pipe     Pipe
	seq      uint32
	commands list.List
	seqMap   map[uint32]*commandFuture
	lock     sync.Mutex
}

// NewClient creates a Client over rw.
func NewClient(rw PacketReadWriter) *Client {
	c := &Client{
		Expiration: DefaultCommandExpiration,
		seqMap:     make(map[uint32]*commandFuture),
	}
	c.pipe.ReadWriter = rw
	c.pipe.Handler = msgs.HandleTypedMsgFunc(c.handleTypedMsg)
	return c
}

// Do sends a command.
func (c *Client) Do(msg fx.Message) CommandFuture {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.seq++
	if c.seq == 0 {
		c.seq++
	}
	f := &commandFuture{
		seq:      c.seq,
		expireAt: time.Now().Add(c.Expiration),
		result:   make(chan Result, 1),
	}
	if err := c.pipe.SendCommandMsg(msg, f.seq); err != nil {
		f.result <- Result{Err: err}
		close(f.result)
		return f
	}
	f.elem = c.commands.PushBack(f)
	c.seqMap[f.seq] = f
	return f
}

// Call sends a command and waits for its reply.
func (c *Client) Call(ctx context.Context, msg fx.Message) (fx.Message, error) {
	select {
	case res := <-c.Do(msg).ResultChan():
		return res.Msg, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Run implements Runnable. It reads replies and events and expires
// unanswered commands.
func (c *Client) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- fx.RunWithContextCloser(ctx, &c.pipe, func() error { return c.pipe.Run(ctx) })
	}()
	ticker := time.NewTicker(c.Expiration / 4)
	defer ticker.Stop()
	for {
		select {
		case err := <-errCh:
			c.expire(time.Time{})
			return err
		case now := <-ticker.C:
			c.expire(now)
		}
	}
}

func (c *Client) handleTypedMsg(ctx context.Context, msg fx.Message, typed *msgs.Typed) error {
	if typed.IsEvent() {
		if h := c.OnEvent; h != nil {
			h(msg)
		}
		return nil
	}
	if !typed.IsReply() {
		return nil
	}
	c.lock.Lock()
	defer c.lock.Unlock()
	f := c.seqMap[typed.Sequence]
	if f == nil {
		return nil
	}
	c.commands.Remove(f.elem)
	delete(c.seqMap, typed.Sequence)
	result := Result{Msg: msg}
	if cmdErr, ok := msg.(*msgs.CommandErr); ok {
		result.Err = cmdErr
	}
	f.result <- result
	close(f.result)
	return nil
}

// expire fails commands expired at now, or all of them for a zero now.
func (c *Client) expire(now time.Time) {
	c.lock.Lock()
	defer c.lock.Unlock()
	for c.commands.Len() > 0 {
		elem := c.commands.Front()
		f := elem.Value.(*commandFuture)
		if !now.IsZero() && f.expireAt.After(now) {
			break
		}
		c.commands.Remove(elem)
		delete(c.seqMap, f.seq)
		f.result <- Result{Err: context.DeadlineExceeded}
		close(f.result)
	}
}

type commandFuture struct {
	seq      uint32
	expireAt time.Time
	elem     *list.Element
	result   chan Result
}

func (c *commandFuture) ResultChan() <-chan Result {
	return c.result
}
