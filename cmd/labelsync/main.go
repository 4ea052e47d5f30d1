// Package main is the entry point for the labelsync CLI.
//
// labelsync synchronizes textual port labels on matrix video routers with a
// declarative desired-state file, reaching each device over its structured
// HTTP API and falling back to the line-protocol command port when the API
// does not answer.
//
// Commands: init, push, pull, template, probe, version, completion.
//
// For detailed usage information, run:
//
//	labelsync --help
package main

import (
	"fmt"
	"os"

	"github.com/avlabs/labelsync/cmd/labelsync/commands"
)

// Version information set by goreleaser at build time.
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
