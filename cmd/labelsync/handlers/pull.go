package handlers

import (
	"context"
	"fmt"
	"log"

	"github.com/avlabs/labelsync/internal/connection"
	"github.com/avlabs/labelsync/internal/labelfile"
	"github.com/avlabs/labelsync/internal/model"
)

// Pull downloads the current labels of the fleet (or one device) and writes
// them to a CSV file. Unreachable devices are reported and skipped; the file
// is written with whatever was collected.
func Pull(ctx context.Context, configPath, outPath, deviceFilter string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	devices, err := cfg.Devices()
	if err != nil {
		return err
	}
	if deviceFilter != "" {
		dev, err := cfg.Device(deviceFilter)
		if err != nil {
			return err
		}
		devices = []model.Device{dev}
	}

	factory := connection.DefaultFactory(cfg.TransportTimeouts())

	var exports []labelfile.Export
	var unreachable int
	for _, dev := range devices {
		labels, kind, err := pullOne(ctx, factory, dev)
		if err != nil {
			log.Printf("%s: %v", dev.String(), err)
			unreachable++
			continue
		}
		exports = append(exports, labelfile.Export{Device: dev.Name, Labels: labels})
		log.Printf("%s: %d labels via %s", dev.String(), labels.Len(), kind)
	}

	if len(exports) == 0 {
		return fmt.Errorf("no device could be read; nothing written")
	}
	if err := labelfile.WriteCSV(outPath, exports); err != nil {
		return err
	}
	fmt.Printf("Wrote %d device(s) to %s", len(exports), outPath)
	if unreachable > 0 {
		fmt.Printf(" (%d unreachable, omitted)", unreachable)
	}
	fmt.Println()
	return nil
}

// pullOne reads both directions from one device through a run-scoped session
// and reports which transport answered.
func pullOne(ctx context.Context, factory connection.Factory, dev model.Device) (model.LabelSet, model.TransportKind, error) {
	mgr := connection.NewManager(&dev, factory)
	defer mgr.Close() //nolint:errcheck

	tr, err := mgr.Transport(ctx)
	if err != nil {
		return model.LabelSet{}, model.TransportNone, err
	}
	labels := model.NewLabelSet(nil)
	for _, dir := range []model.Direction{model.Input, model.Output} {
		set, err := tr.ReadLabelSet(ctx, dir)
		if err != nil {
			return model.LabelSet{}, tr.Kind(), fmt.Errorf("reading %s labels: %w", dir, err)
		}
		labels = labels.Merge(set)
	}
	return labels, tr.Kind(), nil
}
