package commands

import (
	"github.com/spf13/cobra"

	"github.com/avlabs/labelsync/cmd/labelsync/handlers"
)

// Push returns the command that synchronizes the fleet with a desired-state
// file.
//
// Optional flags:
//
//	--config, -c:   Path to fleet configuration YAML (default: labelsync.yaml)
//	--file, -f:     Desired-state label file, CSV or YAML (required)
//	--dry-run:      Show the writes a run would perform without touching devices
//	--parallel, -p: Sync up to N devices concurrently (default: 1, strictly ordered)
func Push() *cobra.Command {
	var (
		configPath string
		filePath   string
		dryRun     bool
		parallel   int
	)

	cmd := &cobra.Command{
		Use:   "push",
		Short: "Write desired labels to every device in the batch",
		Long: `Synchronize router port labels with a desired-state file.

Each device is read first, the minimal set of differing labels is computed,
every desired label is validated against the device model's limits, and only
the differences are written and then verified. Devices are processed in file
order; one unreachable or misconfigured device never aborts the rest.

Examples:
  # Sync the fleet from a CSV file
  labelsync push -f labels.csv

  # Preview the writes without performing them
  labelsync push -f labels.csv --dry-run

  # Sync up to four devices concurrently
  labelsync push -f labels.csv -p 4`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Push(cmd.Context(), configPath, filePath, dryRun, parallel)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default: labelsync.yaml)")
	cmd.Flags().StringVarP(&filePath, "file", "f", "", "Desired-state label file (.csv, .yaml)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Compute and print diffs without writing")
	cmd.Flags().IntVarP(&parallel, "parallel", "p", 1, "Maximum devices synchronized concurrently")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}
