package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/avlabs/labelsync/internal/connection"
	"github.com/avlabs/labelsync/internal/model"
	"github.com/avlabs/labelsync/internal/transport"
)

// ProbeStatus is one device's connectivity diagnosis.
type ProbeStatus struct {
	Device    string `json:"device"`
	Host      string `json:"host"`
	Model     string `json:"model"`
	Primary   bool   `json:"primary"`
	Fallback  bool   `json:"fallback"`
	Reachable bool   `json:"reachable"`
	Error     string `json:"error,omitempty"`
}

// Probe checks both transports of every fleet device and reports which
// answered. Unlike a synchronization run it deliberately probes both
// protocols, so an operator can see a degraded primary before it matters.
func Probe(ctx context.Context, configPath string, jsonOutput bool) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	devices, err := cfg.Devices()
	if err != nil {
		return err
	}

	factory := connection.DefaultFactory(cfg.TransportTimeouts())
	statuses := make([]ProbeStatus, 0, len(devices))
	for _, dev := range devices {
		statuses = append(statuses, probeOne(ctx, factory, dev))
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(statuses)
	}

	unreachable := 0
	for _, st := range statuses {
		switch {
		case st.Primary:
			fmt.Printf("  %-20s rest ok\n", st.Device)
		case st.Fallback:
			fmt.Printf("  %-20s rest FAILED, line ok (degraded)\n", st.Device)
		default:
			fmt.Printf("  %-20s UNREACHABLE: %s\n", st.Device, st.Error)
			unreachable++
		}
	}
	if unreachable > 0 {
		return fmt.Errorf("%d device(s) unreachable", unreachable)
	}
	return nil
}

func probeOne(ctx context.Context, factory connection.Factory, dev model.Device) ProbeStatus {
	st := ProbeStatus{Device: dev.Name, Host: dev.Host, Model: dev.Model.Name}

	check := func(tr transport.Transport) bool {
		defer tr.Close() //nolint:errcheck
		return tr.ConnectivityCheck(ctx) == nil
	}

	st.Primary = check(factory.Primary(dev))
	st.Fallback = check(factory.Fallback(dev))
	st.Reachable = st.Primary || st.Fallback
	if !st.Reachable {
		st.Error = "no transport answered"
	}
	return st
}
