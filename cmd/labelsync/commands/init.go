package commands

import (
	"github.com/spf13/cobra"

	"github.com/avlabs/labelsync/cmd/labelsync/handlers"
)

// Init returns the command that creates a fleet configuration interactively.
func Init() *cobra.Command {
	var (
		outPath string
		force   bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a fleet configuration file interactively",
		Long: `Walk through an interactive wizard declaring each router in the fleet
(name, host, model, credentials) and write the result to labelsync.yaml.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			return handlers.Init(outPath, force)
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output path (default: labelsync.yaml)")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing configuration file")

	return cmd
}
