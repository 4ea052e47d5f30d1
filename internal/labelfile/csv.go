package labelfile

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/avlabs/labelsync/internal/model"
)

// csvColumns is the required header of the tabular format. One row per
// (device, direction, port index, label text). The Device column may be blank
// when the file targets a single device; blank rows inherit the last device
// seen, or the placeholder name "" for single-device files.
var csvColumns = []string{"Device", "Port", "Type", "Label"}

// ReadCSV parses the tabular desired-state format.
func ReadCSV(path string) (*DesiredState, error) {
	f, err := os.Open(path) // #nosec G304
	if err != nil {
		return nil, fmt.Errorf("failed to open label file: %w", err)
	}
	defer f.Close() //nolint:errcheck
	return parseCSV(f)
}

func parseCSV(r io.Reader) (*DesiredState, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	cols, err := headerIndex(header)
	if err != nil {
		return nil, err
	}

	state := &DesiredState{}
	device := ""
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		if d := strings.TrimSpace(record[cols["Device"]]); d != "" {
			device = d
		}

		portStr := strings.TrimSpace(record[cols["Port"]])
		port, err := strconv.Atoi(portStr)
		if err != nil || port < 1 {
			return nil, fmt.Errorf("line %d: invalid port %q", line, portStr)
		}

		dir, err := model.ParseDirection(strings.TrimSpace(record[cols["Type"]]))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		state.add(device, model.PortKey{Direction: dir, Index: port}, record[cols["Label"]])
	}
	return state, nil
}

func headerIndex(header []string) (map[string]int, error) {
	cols := map[string]int{}
	for i, h := range header {
		cols[strings.TrimSpace(h)] = i
	}
	var missing []string
	for _, want := range csvColumns {
		if _, ok := cols[want]; !ok {
			missing = append(missing, want)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("label file missing required columns: %s (expected header %s)",
			strings.Join(missing, ", "), strings.Join(csvColumns, ","))
	}
	return cols, nil
}

// Export is one device's labels destined for a file.
type Export struct {
	Device string
	Labels model.LabelSet
}

// WriteCSV persists label sets back to the tabular form, devices in the given
// order, ports in deterministic key order.
func WriteCSV(path string, exports []Export) error {
	f, err := os.Create(path) // #nosec G304
	if err != nil {
		return fmt.Errorf("failed to create label file: %w", err)
	}
	defer f.Close() //nolint:errcheck

	if err := writeCSV(f, exports); err != nil {
		return err
	}
	return f.Close()
}

func writeCSV(w io.Writer, exports []Export) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvColumns); err != nil {
		return err
	}
	for _, exp := range exports {
		for _, key := range exp.Labels.Keys() {
			label, _ := exp.Labels.Get(key)
			row := []string{exp.Device, strconv.Itoa(key.Index), dirName(key.Direction), label}
			if err := writer.Write(row); err != nil {
				return err
			}
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteTemplate generates a fill-in CSV for a fleet: every port of every
// device with an empty label cell.
func WriteTemplate(path string, devices []model.Device) error {
	exports := make([]Export, 0, len(devices))
	for _, d := range devices {
		labels := map[model.PortKey]string{}
		for i := 1; i <= d.Model.Inputs; i++ {
			labels[model.PortKey{Direction: model.Input, Index: i}] = ""
		}
		for i := 1; i <= d.Model.Outputs; i++ {
			labels[model.PortKey{Direction: model.Output, Index: i}] = ""
		}
		exports = append(exports, Export{Device: d.Name, Labels: model.NewLabelSet(labels)})
	}
	return WriteCSV(path, exports)
}

func dirName(dir model.Direction) string {
	if dir == model.Input {
		return "INPUT"
	}
	return "OUTPUT"
}
