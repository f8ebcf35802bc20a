// Package main is the entry point for the dip-server control plane.
//
// dip-server provisions k3s clusters on Hetzner Cloud and installs
// data-engineering applications on them through Helm. It exposes a
// REST API for clusters, deployments, volumes and the application
// catalog.
//
// Commands: serve, migrate, version.
package main

import (
	"fmt"
	"os"

	"github.com/datainfrapilot/dip/cmd/dip-server/commands"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
