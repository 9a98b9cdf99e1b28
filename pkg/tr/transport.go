package tr

import (
	"github.com/golang/glog"
)

type transferState int

const (
	transferFree transferState = iota
	transferRead
	transferWrite
)

// transfer tracks the frame being exchanged.
type transfer struct {
	state    transferState
	cursor   int
	length   int
	dataLen  int
	ptype    byte
	attempts int
	packet   Packet
}

// Tick advances the driver by one step. It exchanges at most one byte
// with the module and never blocks, except while a lifecycle step runs
// the program mode entry with polling disabled.
func (d *Driver) Tick() {
	if !d.polling {
		d.controlStep()
		return
	}
	now := d.now()
	if d.xfer.state != transferFree {
		if now-d.lastExchange > d.byteInterval {
			d.lastExchange = now
			d.exchangeByte()
		}
		return
	}
	if now-d.lastExchange > d.Config.StatusInterval {
		d.lastExchange = now
		d.checkStatus()
	}
}

func (d *Driver) exchangeByte() {
	x := &d.xfer
	d.rxBuf[x.cursor] = d.hw.Bus.Transfer(d.txBuf[x.cursor])
	x.cursor++
	if x.cursor < x.length && x.cursor < FrameBufferSize {
		return
	}
	if LinkStatus(d.rxBuf[x.dataLen+3]) == LinkCRCMOK && VerifyChecksum(d.rxBuf[:], x.dataLen, x.ptype) {
		d.finishTransfer(true)
		return
	}
	if x.attempts--; x.attempts > 0 {
		glog.V(4).Infof("frame 0x%02x crc error, %d attempts left", d.txBuf[0], x.attempts)
		x.cursor = 0
		return
	}
	d.finishTransfer(false)
}

func (d *Driver) finishTransfer(ok bool) {
	x := d.xfer
	d.xfer = transfer{}
	switch x.state {
	case transferWrite:
		d.release(&x.packet)
		status := TxOK
		if !ok {
			status = TxError
			glog.Warning(&FrameError{Command: x.packet.Command, PacketID: x.packet.ID, Attempts: writeAttempts})
		}
		glog.V(4).Infof("packet %d sent: %s", x.packet.ID, status)
		d.dispatchTx(x.packet.ID, status, x.dataLen)
	case transferRead:
		if !ok {
			glog.V(2).Info(&FrameError{Command: CmdWriteRead, Attempts: readAttempts})
			return
		}
		d.rxLen = x.dataLen
		glog.V(4).Infof("frame received: %d bytes", x.dataLen)
		d.dispatchRx()
	}
}

func (d *Driver) checkStatus() {
	d.status = LinkStatus(d.hw.Bus.Transfer(CmdCheck))
	if d.status.DataReady() {
		d.startRead(d.status.ReadyLength())
		return
	}
	if pkt, ok := d.queue.Peek(); ok {
		d.queue.Pop()
		d.startWrite(pkt)
	}
}

func (d *Driver) startRead(n int) {
	d.clearTx()
	d.txBuf[0], d.txBuf[1] = CmdWriteRead, byte(n)
	d.txBuf[n+2] = Checksum(d.txBuf[:], n)
	d.xfer = transfer{
		state:    transferRead,
		length:   n + FrameOverhead,
		dataLen:  n,
		ptype:    byte(n),
		attempts: readAttempts,
	}
	d.status = LinkDataTransfer
}

func (d *Driver) startWrite(pkt Packet) {
	n := pkt.Len
	ptype := byte(n) | ptypeWrite
	if pkt.Command == CmdModuleInfo && n == 16 {
		ptype = ptypeInfo16
	}
	d.clearTx()
	d.txBuf[0], d.txBuf[1] = pkt.Command, ptype
	copy(d.txBuf[2:], pkt.Payload())
	d.txBuf[n+2] = Checksum(d.txBuf[:], n)
	d.xfer = transfer{
		state:    transferWrite,
		length:   n + FrameOverhead,
		dataLen:  n,
		ptype:    ptype,
		attempts: writeAttempts,
		packet:   pkt,
	}
	d.status = LinkDataTransfer
}

func (d *Driver) clearTx() {
	d.txBuf = [FrameBufferSize]byte{}
}
