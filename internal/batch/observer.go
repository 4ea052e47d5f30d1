// Package batch runs a synchronization across an ordered fleet of devices,
// isolating per-device failures and reporting progress incrementally.
package batch

import (
	"log"

	"github.com/avlabs/labelsync/internal/model"
)

// Observer receives incremental progress from a batch run: one notification
// per completed device, not a blocking wait for the whole batch. The
// presentation layer implements this to render live status.
type Observer interface {
	// DeviceStarted fires before a device's reconciliation begins.
	// position is 1-based; total is the batch length.
	DeviceStarted(device model.Device, position, total int)

	// DeviceFinished fires with the device's final result.
	DeviceFinished(result model.SyncResult, position, total int)
}

// NopObserver discards all notifications.
type NopObserver struct{}

func (NopObserver) DeviceStarted(model.Device, int, int)      {}
func (NopObserver) DeviceFinished(model.SyncResult, int, int) {}

// LogObserver writes one line per event through the standard log package.
// Useful when no interactive presenter is attached.
type LogObserver struct{}

func (LogObserver) DeviceStarted(device model.Device, position, total int) {
	log.Printf("[%d/%d] syncing %s", position, total, device.String())
}

func (LogObserver) DeviceFinished(result model.SyncResult, position, total int) {
	switch result.Outcome {
	case model.FullySynced:
		log.Printf("[%d/%d] %s: %s (%d writes, via %s)", position, total, result.Device.String(), result.Outcome, result.Writes, result.Transport)
	case model.Unreachable:
		log.Printf("[%d/%d] %s: %s: %v", position, total, result.Device.String(), result.Outcome, result.Err)
	default:
		log.Printf("[%d/%d] %s: %s (%d ports failed)", position, total, result.Device.String(), result.Outcome, len(result.Failed))
	}
}
