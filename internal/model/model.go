// Package model defines the core data types for router label synchronization:
// devices, router models, label sets, diffs, and per-device sync outcomes.
package model

import (
	"fmt"
	"sort"
)

// Direction identifies which port namespace a label belongs to. Inputs and
// outputs are labeled independently.
type Direction string

const (
	Input  Direction = "input"
	Output Direction = "output"
)

// ParseDirection converts the tabular file spelling (INPUT/OUTPUT) to a Direction.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "INPUT", "input", "Input", "IN", "in":
		return Input, nil
	case "OUTPUT", "output", "Output", "OUT", "out":
		return Output, nil
	}
	return "", fmt.Errorf("unknown port direction %q", s)
}

// TransportKind identifies which wire protocol reached a device.
type TransportKind string

const (
	TransportNone TransportKind = ""
	TransportREST TransportKind = "rest"
	TransportLine TransportKind = "line"
)

// RouterModel describes the firmware-level facts of one matrix router model:
// matrix size, label length limit, whether the structured API supports bulk
// operations, and the line-protocol service port. These are device facts, not
// engine logic, so they live in a lookup table the engine consults.
type RouterModel struct {
	Name            string
	Inputs          int
	Outputs         int
	MaxLabelLen     int
	BulkCapable     bool
	DefaultLinePort int
}

// PortCount returns the number of ports the model has in the given direction.
func (m RouterModel) PortCount(dir Direction) int {
	if dir == Input {
		return m.Inputs
	}
	return m.Outputs
}

// Builtin router models. The compact class carries an 8-character label limit
// and pre-bulk firmware; the studio class supports 16 characters and bulk I/O.
var builtinModels = map[string]RouterModel{
	"mx16":  {Name: "mx16", Inputs: 16, Outputs: 16, MaxLabelLen: 16, BulkCapable: true, DefaultLinePort: 9990},
	"mx32":  {Name: "mx32", Inputs: 32, Outputs: 32, MaxLabelLen: 16, BulkCapable: true, DefaultLinePort: 9990},
	"mx64":  {Name: "mx64", Inputs: 64, Outputs: 64, MaxLabelLen: 16, BulkCapable: true, DefaultLinePort: 9990},
	"mx16c": {Name: "mx16c", Inputs: 16, Outputs: 16, MaxLabelLen: 8, BulkCapable: false, DefaultLinePort: 9990},
}

// LookupModel returns the builtin definition for a model name.
func LookupModel(name string) (RouterModel, error) {
	m, ok := builtinModels[name]
	if !ok {
		return RouterModel{}, fmt.Errorf("unknown router model %q (known: %v)", name, ModelNames())
	}
	return m, nil
}

// ModelNames returns the builtin model names in sorted order.
func ModelNames() []string {
	names := make([]string, 0, len(builtinModels))
	for n := range builtinModels {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Device identifies one matrix router unit being labeled.
//
// Transport records the last-known-good transport kind; the connection
// manager mutates it as fallback occurs. All other fields are immutable for
// the duration of one synchronization run.
type Device struct {
	Name     string
	Host     string
	Model    RouterModel
	Username string
	Password string
	LinePort int

	Transport TransportKind
}

// LineAddr returns the host:port address of the device's line-protocol service.
func (d Device) LineAddr() string {
	port := d.LinePort
	if port == 0 {
		port = d.Model.DefaultLinePort
	}
	return fmt.Sprintf("%s:%d", d.Host, port)
}

func (d Device) String() string {
	if d.Name != "" && d.Name != d.Host {
		return fmt.Sprintf("%s (%s)", d.Name, d.Host)
	}
	return d.Host
}
