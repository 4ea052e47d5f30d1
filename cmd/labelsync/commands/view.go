package commands

import (
	"github.com/spf13/cobra"

	"github.com/avlabs/labelsync/cmd/labelsync/handlers"
)

// View returns the command that renders a label file locally, without
// connecting to any device.
func View() *cobra.Command {
	var filePath string

	cmd := &cobra.Command{
		Use:   "view",
		Short: "Render a label file without contacting any device",
		RunE: func(_ *cobra.Command, _ []string) error {
			return handlers.View(filePath)
		},
	}

	cmd.Flags().StringVarP(&filePath, "file", "f", "", "Desired-state label file (.csv, .yaml)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}
