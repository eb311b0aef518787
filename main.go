package main

import (
	"os"

	"github.com/edge-sentinel/agent/cli"
)

func main() {
	cmd := cli.RootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
