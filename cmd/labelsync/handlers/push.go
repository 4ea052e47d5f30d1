package handlers

import (
	"context"
	"fmt"
	"os"

	"github.com/avlabs/labelsync/internal/batch"
	"github.com/avlabs/labelsync/internal/config"
	"github.com/avlabs/labelsync/internal/connection"
	"github.com/avlabs/labelsync/internal/labelfile"
	"github.com/avlabs/labelsync/internal/model"
	"github.com/avlabs/labelsync/internal/reconcile"
	"github.com/avlabs/labelsync/internal/ui"
	"github.com/avlabs/labelsync/internal/util/retry"
)

// Push synchronizes the fleet with a desired-state file. Devices are
// processed in file order; the command fails (non-zero exit) when any device
// did not end fully synced, after the whole batch has run.
func Push(ctx context.Context, configPath, filePath string, dryRun bool, parallel int) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	desired, err := labelfile.Read(filePath)
	if err != nil {
		return err
	}
	jobs, err := buildJobs(cfg, desired)
	if err != nil {
		return err
	}

	engine := newEngine(cfg)

	if dryRun {
		return pushDryRun(ctx, engine, jobs)
	}

	var observer batch.Observer = &ui.Progress{Out: os.Stdout}
	if !ui.IsTerminal() {
		observer = batch.LogObserver{}
	}
	sync := batch.NewSynchronizer(engine, observer)
	sync.Parallelism = parallel
	report := sync.Run(ctx, jobs)

	fmt.Println()
	ui.RenderReport(os.Stdout, report)

	if !report.AllSynced() {
		counts := report.Counts()
		failed := len(report.Results) - counts[model.FullySynced]
		return fmt.Errorf("%d of %d device(s) did not fully sync", failed, len(report.Results))
	}
	return nil
}

func pushDryRun(ctx context.Context, engine *reconcile.Engine, jobs []batch.Job) error {
	for _, job := range jobs {
		device := job.Device
		diff, result, err := engine.Plan(ctx, &device, job.Desired)
		if err != nil {
			fmt.Printf("%s: %v\n", device.String(), err)
			continue
		}
		if result.Outcome == model.ValidationRejected {
			fmt.Printf("%s: %d invalid label(s):\n", device.String(), len(result.Failed))
			for _, f := range result.Failed {
				fmt.Printf("  %s %d %q: %s\n", f.Key.Direction, f.Key.Index, f.Label, f.Reason)
			}
			continue
		}
		ui.RenderDiff(os.Stdout, device, diff)
	}
	return nil
}

// buildJobs pairs each device named in the file with its fleet declaration,
// preserving file order. A device the fleet does not know is malformed input
// and fails the run before anything is written anywhere.
func buildJobs(cfg *config.Config, desired *labelfile.DesiredState) ([]batch.Job, error) {
	devices, err := cfg.Devices()
	if err != nil {
		return nil, err
	}

	var jobs []batch.Job
	for _, name := range desired.Devices() {
		set, _ := desired.Set(name)
		if name == "" {
			// Single-device files may omit the Device column when exactly one
			// device is configured.
			if len(devices) != 1 {
				return nil, fmt.Errorf("label file omits the Device column but the fleet has %d devices", len(devices))
			}
			jobs = append(jobs, batch.Job{Device: devices[0], Desired: set})
			continue
		}
		dev, err := cfg.Device(name)
		if err != nil {
			return nil, fmt.Errorf("label file references %w", err)
		}
		jobs = append(jobs, batch.Job{Device: dev, Desired: set})
	}
	if len(jobs) == 0 {
		return nil, fmt.Errorf("label file contains no rows")
	}
	return jobs, nil
}

func newEngine(cfg *config.Config) *reconcile.Engine {
	return reconcile.NewEngine(
		connection.DefaultFactory(cfg.TransportTimeouts()),
		retry.WithMaxRetries(cfg.Retry.Attempts),
		retry.WithInitialDelay(cfg.Retry.InitialDelay),
		retry.WithMaxDelay(cfg.Retry.MaxDelay),
		retry.WithMultiplier(cfg.Retry.Multiplier),
	)
}
