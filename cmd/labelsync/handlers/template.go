package handlers

import (
	"fmt"

	"github.com/avlabs/labelsync/internal/labelfile"
)

// Template writes a blank fill-in CSV covering every port of the fleet.
func Template(configPath, outPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	devices, err := cfg.Devices()
	if err != nil {
		return err
	}
	if err := labelfile.WriteTemplate(outPath, devices); err != nil {
		return err
	}
	total := 0
	for _, d := range devices {
		total += d.Model.Inputs + d.Model.Outputs
	}
	fmt.Printf("Wrote template for %d device(s), %d ports, to %s\n", len(devices), total, outPath)
	return nil
}
