package handlers

import (
	"fmt"
	"os"

	"github.com/avlabs/labelsync/internal/labelfile"
	"github.com/avlabs/labelsync/internal/ui"
)

// View renders a desired-state label file without contacting any device.
func View(filePath string) error {
	state, err := labelfile.Read(filePath)
	if err != nil {
		return err
	}
	total := 0
	for _, name := range state.Devices() {
		set, _ := state.Set(name)
		ui.RenderLabels(os.Stdout, name, set)
		total += set.Len()
	}
	fmt.Printf("%d device(s), %d label(s)\n", len(state.Devices()), total)
	return nil
}
