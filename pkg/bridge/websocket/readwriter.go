// Package websocket carries bridge packets as binary websocket messages.
package websocket

import (
	"context"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	"github.com/robotalks/trspi/pkg/bridge"
)

// ReadWriter implements bridge.PacketReadWriter.
type ReadWriter websocket.Conn

// New wraps websocket.Conn.
func New(conn *websocket.Conn) *ReadWriter {
	return (*ReadWriter)(conn)
}

// Dial connects to a bridge websocket endpoint.
func Dial(url string) (*ReadWriter, error) {
	conn, err := websocket.Dial(url, "", "http://localhost/")
	if err != nil {
		return nil, err
	}
	return New(conn), nil
}

// ReadPacket implements PacketReader.
func (p *ReadWriter) ReadPacket() (pkt []byte, err error) {
	err = websocket.Message.Receive((*websocket.Conn)(p), &pkt)
	return
}

// WritePacket implements PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	return websocket.Message.Send((*websocket.Conn)(p), pkt)
}

// Name implements Named with the remote address of server side conns.
func (p *ReadWriter) Name() string {
	if req := (*websocket.Conn)(p).Request(); req != nil {
		return "ws:" + req.RemoteAddr
	}
	return "ws"
}

// Close implements io.Closer.
func (p *ReadWriter) Close() error {
	return (*websocket.Conn)(p).Close()
}

// Handler attaches every websocket connection to the bridge until ctx is done.
func Handler(ctx context.Context, b *bridge.Bridge) websocket.Handler {
	return func(conn *websocket.Conn) {
		rw := New(conn)
		glog.Infof("%s connected", rw.Name())
		err := b.Attach(ctx, rw)
		glog.Infof("%s disconnected: %v", rw.Name(), err)
	}
}
