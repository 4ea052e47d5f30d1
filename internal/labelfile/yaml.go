package labelfile

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/avlabs/labelsync/internal/model"
)

// yamlFile is the structured alternative to the CSV format:
//
//	devices:
//	  studio-a:
//	    inputs:
//	      1: CAM 1
//	    outputs:
//	      1: PGM
type yamlFile struct {
	Devices map[string]yamlDevice `yaml:"devices"`
}

type yamlDevice struct {
	Inputs  map[int]string `yaml:"inputs"`
	Outputs map[int]string `yaml:"outputs"`
}

// ReadYAML parses the structured desired-state format. Device order is
// alphabetical since YAML mappings carry no order.
func ReadYAML(path string) (*DesiredState, error) {
	data, err := os.ReadFile(path) // #nosec G304
	if err != nil {
		return nil, fmt.Errorf("failed to read label file: %w", err)
	}

	var file yamlFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to unmarshal label file: %w", err)
	}
	if len(file.Devices) == 0 {
		return nil, fmt.Errorf("label file declares no devices")
	}

	names := make([]string, 0, len(file.Devices))
	for name := range file.Devices {
		names = append(names, name)
	}
	sort.Strings(names)

	state := &DesiredState{}
	for _, name := range names {
		dev := file.Devices[name]
		for idx, label := range dev.Inputs {
			if idx < 1 {
				return nil, fmt.Errorf("device %q: invalid input port %d", name, idx)
			}
			state.add(name, model.PortKey{Direction: model.Input, Index: idx}, label)
		}
		for idx, label := range dev.Outputs {
			if idx < 1 {
				return nil, fmt.Errorf("device %q: invalid output port %d", name, idx)
			}
			state.add(name, model.PortKey{Direction: model.Output, Index: idx}, label)
		}
	}
	return state, nil
}
