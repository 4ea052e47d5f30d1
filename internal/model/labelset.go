package model

import "sort"

// PortKey addresses one label slot on a device.
type PortKey struct {
	Direction Direction
	Index     int
}

// LabelSet is an immutable snapshot of the labels on one device at one point
// in time. Two instances exist per device per run: the actual set read from
// the device and the desired set supplied by the caller. A LabelSet is never
// mutated in place, only replaced.
type LabelSet struct {
	labels map[PortKey]string
}

// NewLabelSet builds a LabelSet from a map. The map is copied; the caller
// keeps ownership of its argument.
func NewLabelSet(labels map[PortKey]string) LabelSet {
	cp := make(map[PortKey]string, len(labels))
	for k, v := range labels {
		cp[k] = v
	}
	return LabelSet{labels: cp}
}

// Get returns the label for a port and whether the port is present in the set.
// An empty string with ok=true is a cleared label, distinct from an absent port.
func (s LabelSet) Get(key PortKey) (string, bool) {
	v, ok := s.labels[key]
	return v, ok
}

// Len returns the number of ports in the set.
func (s LabelSet) Len() int { return len(s.labels) }

// Keys returns the port keys in deterministic order: inputs before outputs,
// ascending index within each direction.
func (s LabelSet) Keys() []PortKey {
	keys := make([]PortKey, 0, len(s.labels))
	for k := range s.labels {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Direction != keys[j].Direction {
			return keys[i].Direction == Input
		}
		return keys[i].Index < keys[j].Index
	})
	return keys
}

// Directions returns the distinct directions present in the set, inputs first.
func (s LabelSet) Directions() []Direction {
	var hasIn, hasOut bool
	for k := range s.labels {
		switch k.Direction {
		case Input:
			hasIn = true
		case Output:
			hasOut = true
		}
	}
	var dirs []Direction
	if hasIn {
		dirs = append(dirs, Input)
	}
	if hasOut {
		dirs = append(dirs, Output)
	}
	return dirs
}

// Restrict returns a new LabelSet containing only the given direction.
func (s LabelSet) Restrict(dir Direction) LabelSet {
	out := make(map[PortKey]string)
	for k, v := range s.labels {
		if k.Direction == dir {
			out[k] = v
		}
	}
	return LabelSet{labels: out}
}

// Merge returns a new LabelSet with entries of other layered over s.
func (s LabelSet) Merge(other LabelSet) LabelSet {
	out := make(map[PortKey]string, len(s.labels)+len(other.labels))
	for k, v := range s.labels {
		out[k] = v
	}
	for k, v := range other.labels {
		out[k] = v
	}
	return LabelSet{labels: out}
}

// DiffEntry is one port whose desired text differs from the actual text.
type DiffEntry struct {
	Key PortKey
	Old string
	New string
}

// LabelDiff is the read-only difference between an actual and a desired
// LabelSet. Applying Entries to the actual set yields exactly the desired set
// restricted to ports present in both; ports present in only one set are
// listed in Unknown rather than silently dropped.
type LabelDiff struct {
	Entries []DiffEntry
	// Unknown holds ports present in desired but absent from actual.
	// The device never reported them, so they cannot be written safely.
	Unknown []PortKey
}

// Empty reports whether the diff requires no writes.
func (d LabelDiff) Empty() bool { return len(d.Entries) == 0 }

// Diff computes the LabelDiff moving actual toward desired. Iteration order
// is the deterministic key order of the desired set.
func Diff(actual, desired LabelSet) LabelDiff {
	var diff LabelDiff
	for _, key := range desired.Keys() {
		want, _ := desired.Get(key)
		have, ok := actual.Get(key)
		if !ok {
			diff.Unknown = append(diff.Unknown, key)
			continue
		}
		if have != want {
			diff.Entries = append(diff.Entries, DiffEntry{Key: key, Old: have, New: want})
		}
	}
	return diff
}
