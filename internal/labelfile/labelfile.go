// Package labelfile reads and writes the tabular desired-state files the
// synchronization engine consumes. The engine itself never touches files;
// this package turns them into in-memory label sets and back.
package labelfile

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/avlabs/labelsync/internal/model"
)

// DesiredState is the parsed content of a desired-state file: one LabelSet
// per device, in the order devices first appear in the file.
type DesiredState struct {
	Order []string
	Sets  map[string]model.LabelSet
}

// Devices returns the device names in file order.
func (d *DesiredState) Devices() []string { return d.Order }

// Set returns the desired LabelSet for one device.
func (d *DesiredState) Set(device string) (model.LabelSet, bool) {
	s, ok := d.Sets[device]
	return s, ok
}

// add layers one row onto the state, creating the device slot on first sight.
func (d *DesiredState) add(device string, key model.PortKey, label string) {
	if d.Sets == nil {
		d.Sets = map[string]model.LabelSet{}
	}
	existing, ok := d.Sets[device]
	if !ok {
		d.Order = append(d.Order, device)
		existing = model.NewLabelSet(nil)
	}
	d.Sets[device] = existing.Merge(model.NewLabelSet(map[model.PortKey]string{key: label}))
}

// Read parses a desired-state file, dispatching on extension: .csv for the
// tabular format, .yaml/.yml for the structured one.
func Read(path string) (*DesiredState, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ReadCSV(path)
	case ".yaml", ".yml":
		return ReadYAML(path)
	default:
		return nil, fmt.Errorf("unsupported label file extension %q (want .csv, .yaml, or .yml)", filepath.Ext(path))
	}
}
