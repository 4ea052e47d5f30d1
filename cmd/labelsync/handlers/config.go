// Package handlers contains the execution logic behind each CLI command.
package handlers

import (
	"fmt"
	"os"

	"github.com/avlabs/labelsync/internal/config"
)

// loadConfig resolves and loads the fleet configuration, falling back to
// labelsync.yaml in the working directory when no path is given.
func loadConfig(configPath string) (*config.Config, error) {
	if configPath == "" {
		configPath = config.DefaultFileName
		if _, err := os.Stat(configPath); err != nil {
			return nil, fmt.Errorf("no config file found at %s: %w\nRun 'labelsync init' to create one", configPath, err)
		}
	}
	return config.LoadFile(configPath)
}
