package commands

import (
	"github.com/spf13/cobra"

	"github.com/avlabs/labelsync/cmd/labelsync/handlers"
)

// Template returns the command that generates a blank fill-in label file for
// the configured fleet.
func Template() *cobra.Command {
	var (
		configPath string
		outPath    string
	)

	cmd := &cobra.Command{
		Use:   "template",
		Short: "Generate a blank label file covering every port of the fleet",
		RunE: func(_ *cobra.Command, _ []string) error {
			return handlers.Template(configPath, outPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default: labelsync.yaml)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "labels-template.csv", "Output CSV file")

	return cmd
}
