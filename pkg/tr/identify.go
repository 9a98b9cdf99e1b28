package tr

import (
	"time"

	"github.com/golang/glog"
)

type identifyState int

const (
	identifyInit identifyState = iota
	identifyEnterProgMode
	identifySendRequest
	identifyWaitInfo
	identifyDone
)

// identifyTask reads the module identity once during Init.
type identifyTask struct {
	state    identifyState
	attempts int
	since    time.Duration
	progMode bool
	received bool
	finished bool
	request  [16]byte
}

// step advances the identification after each Tick.
func (t *identifyTask) step(d *Driver) {
	switch t.state {
	case identifyInit:
		t.attempts = 1
		t.progMode = false
		t.received = false
		t.request = [16]byte{}
		d.handlers = identifyCommHandlers
		d.identity = DeviceIdentity{}
		t.since = d.now()
		// Reading in communication mode works for some OS versions only,
		// so identification always goes through programming mode.
		t.state = identifyEnterProgMode
	case identifyEnterProgMode:
		d.EnterProgramMode()
		t.progMode = true
		d.handlers = identifyProgHandlers
		t.since = d.now()
		t.state = identifySendRequest
	case identifySendRequest:
		now := d.now()
		switch {
		case d.status == LinkCommunicationMode && d.Idle():
			t.sendRequest(d, 16, now)
		case d.status == LinkProgrammingMode && d.Idle():
			t.sendRequest(d, 1, now)
		case now-t.since >= identifyTimeout:
			if t.attempts > 0 {
				t.attempts--
				glog.V(2).Info("TR module not responding, entering programming mode again")
				t.state = identifyEnterProgMode
			} else {
				t.state = identifyDone
			}
		}
	case identifyWaitInfo:
		if t.received || d.now()-t.since >= identifyTimeout {
			if t.progMode {
				if _, err := d.SendPacket(CmdEEPROMPgm, endProgramMode, false); err != nil {
					glog.Errorf("leave programming mode: %v", err)
				}
			}
			t.state = identifyDone
		}
	case identifyDone:
		if d.queue.IsEmpty() && d.Idle() {
			t.finished = true
		}
	}
}

func (t *identifyTask) sendRequest(d *Driver, n int, now time.Duration) {
	if _, err := d.SendPacket(CmdModuleInfo, t.request[:n], false); err != nil {
		glog.Errorf("identification request: %v", err)
	}
	t.since = now
	t.state = identifyWaitInfo
}

// identityReceived parses the n payload bytes of the last frame.
func (d *Driver) identityReceived(n int) {
	if n < IdentityLength {
		glog.Errorf("identification: %d bytes answered, want %d", n, IdentityLength)
		return
	}
	id, err := ParseIdentity(d.rxBuf[2 : 2+IdentityLength])
	if err != nil {
		glog.Errorf("identification: %v", err)
		return
	}
	d.identity = id
	d.identify.received = true
}
