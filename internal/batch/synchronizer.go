package batch

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/avlabs/labelsync/internal/model"
	"github.com/avlabs/labelsync/internal/reconcile"
)

// Job pairs one device with its desired label state.
type Job struct {
	Device  model.Device
	Desired model.LabelSet
}

// Synchronizer runs the reconciliation engine over an ordered batch of
// devices. Devices are processed strictly in the order given by default:
// label changes touch live production signal routing, so a reproducible,
// auditable report ordering matters more than throughput. No state crosses
// device boundaries, so a Parallelism above one processes devices
// concurrently and reassembles the report in input order.
type Synchronizer struct {
	engine   *reconcile.Engine
	observer Observer

	// Parallelism bounds concurrent devices. Zero or one means sequential.
	Parallelism int
}

// NewSynchronizer builds a sequential synchronizer reporting to observer.
// A nil observer discards progress.
func NewSynchronizer(engine *reconcile.Engine, observer Observer) *Synchronizer {
	if observer == nil {
		observer = NopObserver{}
	}
	return &Synchronizer{engine: engine, observer: observer}
}

// Run synchronizes every job and returns one SyncResult per job, in job
// order. A failure on one device never aborts its siblings; only
// cancellation halts the batch, and only between devices, so an in-flight
// device always completes or fails with a recorded result.
func (s *Synchronizer) Run(ctx context.Context, jobs []Job) model.BatchReport {
	if s.Parallelism > 1 {
		return s.runParallel(ctx, jobs)
	}

	report := model.BatchReport{Results: make([]model.SyncResult, 0, len(jobs))}
	for i, job := range jobs {
		// Cancellation is honored between devices, never mid-device.
		if err := ctx.Err(); err != nil {
			report.Results = append(report.Results, canceledResult(job.Device, err))
			continue
		}
		report.Results = append(report.Results, s.syncOne(ctx, job, i+1, len(jobs)))
	}
	return report
}

func (s *Synchronizer) runParallel(ctx context.Context, jobs []Job) model.BatchReport {
	results := make([]model.SyncResult, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.Parallelism)

	for i, job := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = canceledResult(job.Device, err)
				return nil
			}
			results[i] = s.syncOne(gctx, job, i+1, len(jobs))
			// Device failures stay contained; returning an error here would
			// cancel sibling devices.
			return nil
		})
	}
	_ = g.Wait()
	return model.BatchReport{Results: results}
}

// syncOne runs one device's reconciliation with panic containment: a
// programming fault in one device's path is recorded as that device's
// failure, not the batch's.
func (s *Synchronizer) syncOne(ctx context.Context, job Job, position, total int) (result model.SyncResult) {
	defer func() {
		if r := recover(); r != nil {
			result = model.SyncResult{
				Device:  job.Device,
				Outcome: model.Unreachable,
				Err:     fmt.Errorf("device synchronization panicked: %v", r),
			}
			s.observer.DeviceFinished(result, position, total)
		}
	}()

	s.observer.DeviceStarted(job.Device, position, total)
	device := job.Device
	result = s.engine.Synchronize(ctx, &device, job.Desired)
	s.observer.DeviceFinished(result, position, total)
	return result
}

func canceledResult(device model.Device, err error) model.SyncResult {
	return model.SyncResult{
		Device:  device,
		Outcome: model.Unreachable,
		Err:     fmt.Errorf("batch canceled before device was attempted: %w", err),
	}
}
