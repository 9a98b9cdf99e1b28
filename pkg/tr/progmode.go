package tr

import "github.com/robotalks/trspi/pkg/hal"

// Reset power cycles the module. With polling enabled it blocks for the
// reset pause, otherwise the lifecycle state machine carries it out over
// the following ticks.
func (d *Driver) Reset() error {
	if d.polling {
		d.powerCycle()
		return nil
	}
	return d.requestControl(false)
}

// EnterProgramMode switches the module into programming mode. With polling
// enabled it blocks for about 600ms, otherwise the lifecycle state machine
// carries it out over the following ticks.
func (d *Driver) EnterProgramMode() error {
	if d.polling {
		d.programModeSequence()
		return nil
	}
	return d.requestControl(true)
}

// programModeSequence keeps SDO following SDI right after a reset, which
// the module takes as the request to stay in its bootloader.
func (d *Driver) programModeSequence() {
	hw := d.hw
	hw.Bus.End()
	d.powerCycle()
	hw.Select.SetMode(hal.Output)
	hw.Select.Write(hal.Low)
	hw.SDO.SetMode(hal.Output)
	hw.SDI.SetMode(hal.Input)
	start := hw.Clock.Now()
	for hw.Clock.Now()-start < progModeDuration {
		hw.SDO.Write(hw.SDI.Read())
	}
	hw.Select.Write(hal.High)
	hw.Bus.Begin()
}

func (d *Driver) powerCycle() {
	d.powerOff()
	d.hw.Clock.Sleep(resetPause)
	d.powerOn()
	d.hw.Clock.Sleep(powerOnSettle)
}

func (d *Driver) powerOff() {
	d.hw.Power.SetMode(hal.Output)
	d.hw.Power.Write(hal.High)
}

func (d *Driver) powerOn() {
	d.hw.Power.SetMode(hal.Output)
	d.hw.Power.Write(hal.Low)
}
