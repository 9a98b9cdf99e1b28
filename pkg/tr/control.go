package tr

import (
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/trspi/pkg/hal"
)

// controlTask resets the module or enters programming mode while the SPI
// master is stopped.
type controlTask struct {
	state       ControlStatus
	programFlag bool
	since       time.Duration
}

func (d *Driver) requestControl(programMode bool) error {
	if d.control.state != ControlReady {
		return ErrControlBusy
	}
	d.control.state = ControlReset
	d.control.programFlag = programMode
	d.status = LinkBusy
	return nil
}

func (d *Driver) controlStep() {
	c := &d.control
	switch c.state {
	case ControlReady:
		d.status = LinkDisabled
		c.programFlag = false
	case ControlReset:
		d.status = LinkBusy
		d.hw.Bus.End()
		d.powerOff()
		c.since = d.now()
		c.state = ControlWait
	case ControlWait:
		d.status = LinkBusy
		if d.now()-c.since < controlWait {
			return
		}
		d.powerOn()
		if c.programFlag {
			c.state = ControlProgramMode
			return
		}
		d.hw.Select.Write(hal.High)
		d.hw.Bus.Begin()
		c.state = ControlReady
		glog.V(2).Info("TR module reset done")
	case ControlProgramMode:
		d.programModeSequence()
		c.state = ControlReady
		glog.V(2).Info("TR module in programming mode")
	}
}
