package main

import (
	"os"

	"github.com/boron/funnel-service/cmd/funnelctl/commands"
)

// set during build
var (
	version = "dev"
	commit  = "none"
)

func main() {
	root := commands.NewRootCmd(version, commit)
	// errors are printed by the commands with color formatting
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
