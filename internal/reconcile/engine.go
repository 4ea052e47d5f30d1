// Package reconcile computes and applies the minimal set of label writes
// needed to move a device's actual label state to a desired state.
package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/avlabs/labelsync/internal/connection"
	"github.com/avlabs/labelsync/internal/model"
	"github.com/avlabs/labelsync/internal/transport"
	"github.com/avlabs/labelsync/internal/util/retry"
	"github.com/avlabs/labelsync/internal/validate"
)

// Engine reconciles one device at a time. Safe for reuse across devices; it
// holds no per-device state between invocations and never caches device
// contents across runs.
type Engine struct {
	factory   connection.Factory
	retryOpts []retry.Option
}

// NewEngine builds an engine that connects devices through the given factory.
// Retry options tune the backoff around transient read failures; writes are
// never retried blindly, only through the bulk-to-per-port escalation inside
// the transports.
func NewEngine(factory connection.Factory, retryOpts ...retry.Option) *Engine {
	return &Engine{factory: factory, retryOpts: retryOpts}
}

// Synchronize moves device to the desired label state and reports the
// outcome. The sequence is strictly ordered: connect, read, validate, diff,
// write, verify. The transport session is scoped to this call and released on
// every exit path. Synchronize is idempotent: a second call with the same
// desired set finds an empty diff and performs zero writes.
func (e *Engine) Synchronize(ctx context.Context, device *model.Device, desired model.LabelSet) model.SyncResult {
	mgr := connection.NewManager(device, e.factory)
	defer mgr.Close() //nolint:errcheck

	tr, err := mgr.Transport(ctx)
	if err != nil {
		return model.SyncResult{Device: *device, Outcome: model.Unreachable, Err: err}
	}

	actual, err := e.readActual(ctx, tr, desired.Directions())
	if err != nil {
		mgr.ReportSessionLost()
		return model.SyncResult{
			Device:    *device,
			Outcome:   model.Unreachable,
			Transport: tr.Kind(),
			Err:       fmt.Errorf("reading actual labels: %w", err),
		}
	}

	// All labels in the desired set must be individually valid before any is
	// sent, so a bad file never leaves the device half-updated.
	normalized, rejected := validate.LabelSet(desired, device.Model)
	if len(rejected) > 0 {
		return model.SyncResult{
			Device:    *device,
			Outcome:   model.ValidationRejected,
			Transport: tr.Kind(),
			Failed:    rejected,
		}
	}

	diff := model.Diff(actual, normalized)
	result := model.SyncResult{
		Device:    *device,
		Transport: tr.Kind(),
		Unknown:   diff.Unknown,
	}
	if diff.Empty() {
		result.Outcome = model.FullySynced
		if len(diff.Unknown) > 0 {
			result.Outcome = model.PartiallySynced
			for _, key := range diff.Unknown {
				result.Failed = append(result.Failed, model.PortFailure{Key: key, Reason: "port not reported by device"})
			}
		}
		return result
	}

	failed := e.applyDiff(ctx, mgr, tr, device.Model, diff, &result)

	verified, verr := e.verify(ctx, tr, normalized, diff)
	if verr != nil {
		mgr.ReportSessionLost()
		for _, entry := range diff.Entries {
			failed = append(failed, model.PortFailure{Key: entry.Key, Label: entry.New, Reason: fmt.Sprintf("verification read failed: %v", verr)})
		}
	} else {
		failed = append(failed, verified...)
	}

	for _, key := range diff.Unknown {
		failed = append(failed, model.PortFailure{Key: key, Reason: "port not reported by device"})
	}

	result.Failed = dedupeFailures(failed)
	if len(result.Failed) == 0 {
		result.Outcome = model.FullySynced
	} else {
		result.Outcome = model.PartiallySynced
	}
	return result
}

// Plan performs the read-validate-diff half of a synchronization without
// writing anything. Used for dry runs.
func (e *Engine) Plan(ctx context.Context, device *model.Device, desired model.LabelSet) (model.LabelDiff, model.SyncResult, error) {
	mgr := connection.NewManager(device, e.factory)
	defer mgr.Close() //nolint:errcheck

	tr, err := mgr.Transport(ctx)
	if err != nil {
		return model.LabelDiff{}, model.SyncResult{Device: *device, Outcome: model.Unreachable, Err: err}, err
	}
	actual, err := e.readActual(ctx, tr, desired.Directions())
	if err != nil {
		return model.LabelDiff{}, model.SyncResult{Device: *device, Outcome: model.Unreachable, Transport: tr.Kind(), Err: err}, err
	}
	normalized, rejected := validate.LabelSet(desired, device.Model)
	if len(rejected) > 0 {
		res := model.SyncResult{Device: *device, Outcome: model.ValidationRejected, Transport: tr.Kind(), Failed: rejected}
		return model.LabelDiff{}, res, nil
	}
	diff := model.Diff(actual, normalized)
	res := model.SyncResult{Device: *device, Outcome: model.FullySynced, Transport: tr.Kind(), Unknown: diff.Unknown}
	if !diff.Empty() || len(diff.Unknown) > 0 {
		res.Outcome = model.PartiallySynced
	}
	return diff, res, nil
}

// readActual reads each direction with backoff retry: reads are idempotent,
// so a transient failure does not have to end the device's run. A lost
// session is fatal and skips the remaining attempts.
func (e *Engine) readActual(ctx context.Context, tr transport.Transport, dirs []model.Direction) (model.LabelSet, error) {
	actual := model.NewLabelSet(nil)
	for _, dir := range dirs {
		var set model.LabelSet
		err := retry.WithExponentialBackoff(ctx, func() error {
			var rerr error
			set, rerr = tr.ReadLabelSet(ctx, dir)
			if errors.Is(rerr, transport.ErrSessionLost) {
				return retry.Fatal(rerr)
			}
			return rerr
		}, e.retryOpts...)
		if err != nil {
			return model.LabelSet{}, err
		}
		actual = actual.Merge(set)
	}
	return actual, nil
}

// applyDiff writes the diff one direction at a time and returns write-level
// failures. Each label is validated once more at application time; the engine
// never trusts that a diff entry skipped validation.
func (e *Engine) applyDiff(ctx context.Context, mgr *connection.Manager, tr transport.Transport, m model.RouterModel, diff model.LabelDiff, result *model.SyncResult) []model.PortFailure {
	var failed []model.PortFailure
	byDir := map[model.Direction]map[int]string{}
	for _, entry := range diff.Entries {
		text, err := validate.Label(entry.New, m, entry.Key.Direction)
		if err != nil {
			failed = append(failed, model.PortFailure{Key: entry.Key, Label: entry.New, Reason: err.Error()})
			continue
		}
		if byDir[entry.Key.Direction] == nil {
			byDir[entry.Key.Direction] = map[int]string{}
		}
		byDir[entry.Key.Direction][entry.Key.Index] = text
	}

	for _, dir := range []model.Direction{model.Input, model.Output} {
		labels := byDir[dir]
		if len(labels) == 0 {
			continue
		}
		results, err := tr.WriteLabels(ctx, dir, labels)
		if err != nil {
			if errors.Is(err, transport.ErrSessionLost) {
				mgr.ReportSessionLost()
			}
			for idx, text := range labels {
				if werr, acked := results[idx]; acked && werr == nil {
					result.Writes++
					continue
				}
				failed = append(failed, model.PortFailure{
					Key:    model.PortKey{Direction: dir, Index: idx},
					Label:  text,
					Reason: err.Error(),
				})
			}
			continue
		}
		for idx, text := range labels {
			if werr := results[idx]; werr != nil {
				failed = append(failed, model.PortFailure{
					Key:    model.PortKey{Direction: dir, Index: idx},
					Label:  text,
					Reason: werr.Error(),
				})
				continue
			}
			result.Writes++
		}
	}
	return failed
}

// verify re-reads the directions touched by the diff and reports every port
// whose device state still differs from the desired text.
func (e *Engine) verify(ctx context.Context, tr transport.Transport, desired model.LabelSet, diff model.LabelDiff) ([]model.PortFailure, error) {
	touched := map[model.Direction]bool{}
	for _, entry := range diff.Entries {
		touched[entry.Key.Direction] = true
	}

	var failed []model.PortFailure
	for _, dir := range []model.Direction{model.Input, model.Output} {
		if !touched[dir] {
			continue
		}
		set, err := tr.ReadLabelSet(ctx, dir)
		if err != nil {
			return nil, err
		}
		for _, entry := range diff.Entries {
			if entry.Key.Direction != dir {
				continue
			}
			want, _ := desired.Get(entry.Key)
			have, ok := set.Get(entry.Key)
			if !ok || have != want {
				failed = append(failed, model.PortFailure{
					Key:    entry.Key,
					Label:  want,
					Reason: fmt.Sprintf("device reports %q after write", have),
				})
			}
		}
	}
	return failed, nil
}

// dedupeFailures keeps the first failure recorded per port; a write failure
// already explains the later verification mismatch for the same port.
func dedupeFailures(failures []model.PortFailure) []model.PortFailure {
	seen := map[model.PortKey]bool{}
	var out []model.PortFailure
	for _, f := range failures {
		if seen[f.Key] {
			continue
		}
		seen[f.Key] = true
		out = append(out, f)
	}
	return out
}
