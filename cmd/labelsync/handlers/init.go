package handlers

import (
	"fmt"
	"os"

	"github.com/avlabs/labelsync/internal/config"
)

// Init runs the interactive fleet wizard and writes the resulting
// configuration file.
func Init(outPath string, force bool) error {
	if outPath == "" {
		outPath = config.DefaultFileName
	}
	if _, err := os.Stat(outPath); err == nil && !force {
		return fmt.Errorf("%s already exists; re-run with --force to overwrite", outPath)
	}

	cfg, err := config.RunWizard()
	if err != nil {
		return err
	}
	if err := config.Save(cfg, outPath); err != nil {
		return err
	}
	fmt.Printf("Wrote %s with %d device(s)\n", outPath, len(cfg.Fleet))
	fmt.Println("Next: 'labelsync probe' to verify connectivity, 'labelsync template' for a label file.")
	return nil
}
