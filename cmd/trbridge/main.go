package main

//go-build: CGO_ENABLED=0

import (
	"flag"

	"github.com/golang/glog"

	"github.com/robotalks/trspi/pkg/env"
	fx "github.com/robotalks/trspi/pkg/framework"
)

func init() {
	env.SetupFlags()
}

func main() {
	flag.Parse()
	defer glog.Flush()

	runner := fx.NewRunner().HandleSignals()
	dev, err := env.NewConfig().NewDevice(runner.Context)
	if err != nil {
		glog.Exitf("open device error: %v", err)
	}
	if err := dev.AddEndpoints(); err != nil {
		glog.Exitf("endpoint error: %v", err)
	}
	glog.Infof("device %s: %s", dev.Config.DeviceID, dev.Driver.Identity())
	if err := runner.Go(dev.Loop).Wait(); err != nil {
		glog.Exit(err)
	}
}
