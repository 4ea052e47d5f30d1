package commands

import (
	"github.com/spf13/cobra"

	"github.com/avlabs/labelsync/cmd/labelsync/handlers"
)

// Probe returns the command that diagnoses device connectivity.
func Probe() *cobra.Command {
	var (
		configPath string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Check which transport reaches each device",
		Long: `Probe every device in the fleet on both transports and report which one
answers. Nothing is written; probes are connectivity checks only.

Examples:
  labelsync probe
  labelsync probe --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Probe(cmd.Context(), configPath, jsonOutput)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default: labelsync.yaml)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit machine-readable JSON")

	return cmd
}
