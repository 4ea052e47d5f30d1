// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument
// parsing, flag binding, and validation. Command execution is delegated to
// handler functions in the handlers package.
package commands

import "github.com/spf13/cobra"

// Root returns the root command for the labelsync CLI.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "labelsync",
		Short: "Synchronize matrix router port labels with a desired-state file",
	}

	// Core commands
	cmd.AddCommand(Init())
	cmd.AddCommand(Push())
	cmd.AddCommand(Pull())
	cmd.AddCommand(View())
	cmd.AddCommand(Template())
	cmd.AddCommand(Probe())

	// Utility commands
	cmd.AddCommand(Version())
	cmd.AddCommand(Completion())

	return cmd
}
