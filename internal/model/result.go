package model

// Outcome classifies the result of synchronizing one device.
type Outcome string

const (
	// FullySynced means every desired label is verified on the device.
	FullySynced Outcome = "fully-synced"
	// PartiallySynced means some ports were written but others failed to verify.
	PartiallySynced Outcome = "partially-synced"
	// Unreachable means neither transport could reach the device.
	Unreachable Outcome = "unreachable"
	// ValidationRejected means the desired set contained an invalid label;
	// nothing was written.
	ValidationRejected Outcome = "validation-rejected"
)

// PortFailure records one port that could not be brought to its desired state,
// or a desired label the validator rejected.
type PortFailure struct {
	Key    PortKey
	Label  string
	Reason string
}

// SyncResult is the immutable per-device outcome of one synchronization.
type SyncResult struct {
	Device    Device
	Outcome   Outcome
	Transport TransportKind
	// Writes is the number of label writes actually sent to the device.
	Writes int
	// Failed lists ports that did not verify (PartiallySynced) or labels the
	// validator rejected (ValidationRejected).
	Failed []PortFailure
	// Unknown lists desired ports the device never reported.
	Unknown []PortKey
	// Err carries the terminal error for Unreachable outcomes.
	Err error
}

// OK reports whether the device ended the run matching its desired state.
func (r SyncResult) OK() bool { return r.Outcome == FullySynced }

// BatchReport is the ordered sequence of per-device outcomes for one run,
// in the order devices were processed.
type BatchReport struct {
	Results []SyncResult
}

// Counts returns how many devices ended in each outcome.
func (r BatchReport) Counts() map[Outcome]int {
	counts := make(map[Outcome]int, 4)
	for _, res := range r.Results {
		counts[res.Outcome]++
	}
	return counts
}

// AllSynced reports whether every device ended fully synced.
func (r BatchReport) AllSynced() bool {
	for _, res := range r.Results {
		if !res.OK() {
			return false
		}
	}
	return true
}
