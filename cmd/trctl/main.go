package main

import (
	"github.com/robotalks/trspi/pkg/cli/sh"
	"github.com/robotalks/trspi/pkg/env"

	_ "github.com/robotalks/trspi/pkg/cli/cmds/tr"
)

func init() {
	env.SetupFlags()
}

func main() {
	sh.Main()
}
