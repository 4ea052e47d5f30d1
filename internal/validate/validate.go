// Package validate enforces per-model label constraints before anything is
// sent to a device. Validation is pure: no I/O, no state.
package validate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/avlabs/labelsync/internal/model"
)

// ForbiddenChars collide with the device's command grammar and the tabular
// file formats surrounding the tool. Labels containing any of them are
// rejected outright.
const ForbiddenChars = `/\:*?"<>|`

// Error describes why a label was rejected.
type Error struct {
	Label  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid label %q: %s", e.Label, e.Reason)
}

// Label checks one label against a model's constraints and returns the
// normalized text. Rules, in order: the raw text must not exceed the model's
// character limit (over-long labels are rejected, never truncated), must not
// contain a forbidden character, and is trimmed of surrounding whitespace.
// An empty string after trimming is a valid cleared label. No shipped model
// constrains inputs and outputs differently, so dir does not yet affect the
// outcome.
func Label(text string, m model.RouterModel, dir model.Direction) (string, error) {
	if n := len([]rune(text)); n > m.MaxLabelLen {
		return "", &Error{Label: text, Reason: fmt.Sprintf("%d characters exceeds %s limit of %d", n, m.Name, m.MaxLabelLen)}
	}
	if i := strings.IndexAny(text, ForbiddenChars); i >= 0 {
		return "", &Error{Label: text, Reason: fmt.Sprintf("forbidden character %q", text[i])}
	}
	return strings.TrimSpace(text), nil
}

// LabelSet validates every label in desired against the device model and
// returns the normalized set. Any rejection fails the whole set: no label
// from a set containing an invalid entry may be written, so a device is never
// left half-updated by a bad file.
func LabelSet(desired model.LabelSet, m model.RouterModel) (model.LabelSet, []model.PortFailure) {
	var failures []model.PortFailure
	normalized := make(map[model.PortKey]string, desired.Len())
	for _, key := range desired.Keys() {
		text, _ := desired.Get(key)
		clean, err := Label(text, m, key.Direction)
		if err != nil {
			reason := err.Error()
			var verr *Error
			if errors.As(err, &verr) {
				reason = verr.Reason
			}
			failures = append(failures, model.PortFailure{Key: key, Label: text, Reason: reason})
			continue
		}
		normalized[key] = clean
	}
	if len(failures) > 0 {
		return model.LabelSet{}, failures
	}
	return model.NewLabelSet(normalized), nil
}
