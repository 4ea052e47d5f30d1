package ui

import (
	"fmt"
	"io"

	"github.com/avlabs/labelsync/internal/model"
)

// Progress prints one styled line per batch event. It implements
// batch.Observer; output stays line-oriented so a run's history remains in
// the terminal scrollback for auditing.
type Progress struct {
	Out io.Writer
}

// DeviceStarted announces the device about to be synchronized.
func (p *Progress) DeviceStarted(device model.Device, position, total int) {
	fmt.Fprintf(p.Out, "%s %s\n",
		dimStyle.Render(fmt.Sprintf("[%d/%d]", position, total)),
		titleStyle.Render("syncing "+device.String()))
}

// DeviceFinished reports the device's final outcome.
func (p *Progress) DeviceFinished(result model.SyncResult, position, total int) {
	prefix := dimStyle.Render(fmt.Sprintf("[%d/%d]", position, total))
	switch result.Outcome {
	case model.FullySynced:
		fmt.Fprintf(p.Out, "%s %s %s %s\n", prefix,
			syncedStyle.Render(checkMark),
			result.Device.String(),
			dimStyle.Render(fmt.Sprintf("(%d writes via %s)", result.Writes, result.Transport)))
	case model.PartiallySynced:
		fmt.Fprintf(p.Out, "%s %s %s: %d port(s) failed\n", prefix,
			partialStyle.Render(warnMark),
			result.Device.String(),
			len(result.Failed))
	case model.ValidationRejected:
		fmt.Fprintf(p.Out, "%s %s %s: %d invalid label(s), nothing written\n", prefix,
			failedStyle.Render(crossMark),
			result.Device.String(),
			len(result.Failed))
	case model.Unreachable:
		fmt.Fprintf(p.Out, "%s %s %s: unreachable: %v\n", prefix,
			failedStyle.Render(crossMark),
			result.Device.String(),
			result.Err)
	}
}
