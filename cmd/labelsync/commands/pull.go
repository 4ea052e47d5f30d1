package commands

import (
	"github.com/spf13/cobra"

	"github.com/avlabs/labelsync/cmd/labelsync/handlers"
)

// Pull returns the command that downloads the fleet's current labels into a
// tabular file, the inverse of push.
func Pull() *cobra.Command {
	var (
		configPath string
		outPath    string
		device     string
	)

	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Download current labels from the fleet into a CSV file",
		Long: `Read every device's current port labels and write them to a CSV file.

The output uses the same columns as push input, so a pulled file can be
edited and pushed back.

Examples:
  # Snapshot the whole fleet
  labelsync pull -o current.csv

  # Snapshot a single device
  labelsync pull -o studio-a.csv --device studio-a`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Pull(cmd.Context(), configPath, outPath, device)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default: labelsync.yaml)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "labels.csv", "Output CSV file")
	cmd.Flags().StringVar(&device, "device", "", "Pull only this device (name or host)")

	return cmd
}
