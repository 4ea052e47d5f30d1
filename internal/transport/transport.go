// Package transport provides the wire protocols for reaching a matrix router's
// management interface. Two adapters implement the same capability interface:
// a structured HTTP API (preferred) and a line-oriented command session
// (fallback). They share no code, only contract, so the connection manager
// can treat them interchangeably.
package transport

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/avlabs/labelsync/internal/model"
)

// Transport is the capability set both adapters expose against one device.
type Transport interface {
	// Kind identifies the wire protocol for reporting.
	Kind() model.TransportKind

	// ConnectivityCheck probes the device without touching any label.
	// A transport must pass this before any write is attempted.
	ConnectivityCheck(ctx context.Context) error

	// ReadLabelSet reads every port label of one direction.
	ReadLabelSet(ctx context.Context, dir model.Direction) (model.LabelSet, error)

	// WriteLabels writes the given port->text mapping for one direction and
	// reports the result per port. A returned error means the operation as a
	// whole failed and no per-port results are meaningful.
	WriteLabels(ctx context.Context, dir model.Direction, labels map[int]string) (WriteResults, error)

	// Close releases the session. Safe to call more than once.
	Close() error
}

// WriteResults maps port index to the write outcome for that port.
// A nil value means the port was written and acknowledged.
type WriteResults map[int]error

// Failed returns the indexes whose write did not succeed, in ascending order.
func (r WriteResults) Failed() []int {
	var failed []int
	for idx, err := range r {
		if err != nil {
			failed = append(failed, idx)
		}
	}
	sort.Ints(failed)
	return failed
}

// ErrSessionLost marks irrecoverable loss of an established session, as
// opposed to a single failed operation. The connection manager treats it as
// terminal for the device within the current run.
var ErrSessionLost = errors.New("transport session lost")

// ProtocolError is a malformed or error response from a connected transport.
// It fails the single operation, not the session.
type ProtocolError struct {
	Kind model.TransportKind
	Op   string
	Msg  string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s protocol error during %s: %s", e.Kind, e.Op, e.Msg)
}
