package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/avlabs/labelsync/internal/model"
)

// RenderReport writes the batch report as a table, one row per device in
// processing order, followed by a one-line summary.
func RenderReport(w io.Writer, report model.BatchReport) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"DEVICE", "TRANSPORT", "OUTCOME", "WRITES", "DETAIL"})

	for _, res := range report.Results {
		t.AppendRow(table.Row{
			res.Device.String(),
			transportCell(res.Transport),
			outcomeCell(res.Outcome),
			res.Writes,
			detailCell(res),
		})
	}
	t.Render()

	counts := report.Counts()
	summary := fmt.Sprintf("%d device(s): %d synced, %d partial, %d unreachable, %d rejected",
		len(report.Results),
		counts[model.FullySynced],
		counts[model.PartiallySynced],
		counts[model.Unreachable],
		counts[model.ValidationRejected])
	if report.AllSynced() {
		fmt.Fprintln(w, syncedStyle.Render(checkMark+" "+summary))
	} else {
		fmt.Fprintln(w, partialStyle.Render(warnMark+" "+summary))
	}
}

func transportCell(kind model.TransportKind) string {
	switch kind {
	case model.TransportREST:
		return "rest"
	case model.TransportLine:
		return "line (fallback)"
	default:
		return dimStyle.Render("-")
	}
}

func outcomeCell(outcome model.Outcome) string {
	switch outcome {
	case model.FullySynced:
		return syncedStyle.Render(string(outcome))
	case model.PartiallySynced:
		return partialStyle.Render(string(outcome))
	default:
		return failedStyle.Render(string(outcome))
	}
}

func detailCell(res model.SyncResult) string {
	switch res.Outcome {
	case model.Unreachable:
		if res.Err != nil {
			return res.Err.Error()
		}
		return ""
	case model.FullySynced:
		return ""
	default:
		return summarizeFailures(res.Failed)
	}
}

// summarizeFailures lists up to three failed ports and a count of the rest.
func summarizeFailures(failures []model.PortFailure) string {
	var parts []string
	for i, f := range failures {
		if i == 3 {
			parts = append(parts, fmt.Sprintf("and %d more", len(failures)-3))
			break
		}
		parts = append(parts, fmt.Sprintf("%s %d: %s", f.Key.Direction, f.Key.Index, f.Reason))
	}
	return strings.Join(parts, "; ")
}

// RenderLabels writes one device's labels from a desired-state file as a
// table, inputs before outputs.
func RenderLabels(w io.Writer, name string, labels model.LabelSet) {
	if name == "" {
		name = "(single device)"
	}
	fmt.Fprintln(w, sectionStyle.Render(name))
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"DIRECTION", "PORT", "LABEL"})
	for _, key := range labels.Keys() {
		text, _ := labels.Get(key)
		t.AppendRow(table.Row{string(key.Direction), key.Index, text})
	}
	t.Render()
}

// RenderDiff writes a dry-run preview: the writes a synchronization would
// perform for one device.
func RenderDiff(w io.Writer, device model.Device, diff model.LabelDiff) {
	fmt.Fprintln(w, sectionStyle.Render(device.String()))
	if diff.Empty() && len(diff.Unknown) == 0 {
		fmt.Fprintln(w, dimStyle.Render("  already in sync"))
		return
	}
	for _, entry := range diff.Entries {
		fmt.Fprintf(w, "  %s %-3d %s -> %s\n",
			entry.Key.Direction, entry.Key.Index,
			dimStyle.Render(fmt.Sprintf("%q", entry.Old)),
			titleStyle.Render(fmt.Sprintf("%q", entry.New)))
	}
	for _, key := range diff.Unknown {
		fmt.Fprintf(w, "  %s %s %d: not reported by device\n", warnMark, key.Direction, key.Index)
	}
}
