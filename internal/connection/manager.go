// Package connection owns transport selection and fallback for a single
// device: try the structured API first, degrade to the line protocol, and
// cache whichever answered for the rest of the run.
package connection

import (
	"context"
	"errors"
	"fmt"

	"github.com/avlabs/labelsync/internal/model"
	"github.com/avlabs/labelsync/internal/transport"
)

// State is the connection manager's position in its transport-selection
// state machine.
type State string

const (
	Unattempted       State = "unattempted"
	TryingPrimary     State = "trying-primary"
	ConnectedPrimary  State = "connected-primary"
	TryingFallback    State = "trying-fallback"
	ConnectedFallback State = "connected-fallback"
	// StateUnreachable is terminal: no further transport attempts are made
	// for the device within the current run.
	StateUnreachable State = "unreachable"
)

// ErrUnreachable means neither protocol connected. Terminal for the device
// within the run; callers may retry with an entirely new run.
var ErrUnreachable = errors.New("device unreachable on both transports")

// Factory builds the two transports for a device. Swappable in tests.
type Factory struct {
	Primary  func(model.Device) transport.Transport
	Fallback func(model.Device) transport.Transport
}

// DefaultFactory wires the production adapters with the given timeouts.
func DefaultFactory(timeouts transport.Timeouts) Factory {
	return Factory{
		Primary:  func(d model.Device) transport.Transport { return transport.NewREST(d, timeouts) },
		Fallback: func(d model.Device) transport.Transport { return transport.NewLine(d, timeouts) },
	}
}

// Manager selects and caches a working transport for one device.
//
// The state machine is Unattempted -> TryingPrimary -> ConnectedPrimary |
// TryingFallback -> ConnectedFallback | StateUnreachable. Once connected, the
// choice is reused for every subsequent operation in the run: both transports
// reach the same device identity and degrade together when the device is
// down, so probing once per device per run is sufficient. A session lost
// after connection moves straight to StateUnreachable; the manager never
// re-attempts the other transport mid-run, avoiding oscillation.
type Manager struct {
	device  *model.Device
	factory Factory

	state  State
	active transport.Transport
}

// NewManager builds a manager in the Unattempted state. The device's
// Transport field is updated as the machine settles on a working protocol.
func NewManager(device *model.Device, factory Factory) *Manager {
	return &Manager{device: device, factory: factory, state: Unattempted}
}

// State returns the machine's current state.
func (m *Manager) State() State { return m.state }

// Transport returns a connected transport, driving the state machine on
// first use. Returns ErrUnreachable once the machine is terminal.
func (m *Manager) Transport(ctx context.Context) (transport.Transport, error) {
	switch m.state {
	case ConnectedPrimary, ConnectedFallback:
		return m.active, nil
	case StateUnreachable:
		return nil, fmt.Errorf("%s: %w", m.device, ErrUnreachable)
	case Unattempted:
		return m.connect(ctx)
	default:
		// TryingPrimary / TryingFallback are transient inside connect();
		// observing them here means a reentrant call.
		return nil, fmt.Errorf("%s: connection attempt already in progress", m.device)
	}
}

func (m *Manager) connect(ctx context.Context) (transport.Transport, error) {
	m.state = TryingPrimary
	primary := m.factory.Primary(*m.device)
	if err := primary.ConnectivityCheck(ctx); err == nil {
		m.state = ConnectedPrimary
		m.active = primary
		m.device.Transport = primary.Kind()
		return primary, nil
	}
	_ = primary.Close()

	m.state = TryingFallback
	fallback := m.factory.Fallback(*m.device)
	if err := fallback.ConnectivityCheck(ctx); err == nil {
		m.state = ConnectedFallback
		m.active = fallback
		m.device.Transport = fallback.Kind()
		return fallback, nil
	}
	_ = fallback.Close()

	m.state = StateUnreachable
	m.device.Transport = model.TransportNone
	return nil, fmt.Errorf("%s: %w", m.device, ErrUnreachable)
}

// ReportSessionLost records irrecoverable loss of the active session. The
// machine moves to its terminal state; the failure is surfaced to the caller
// rather than silently retrying the other transport mid-run.
func (m *Manager) ReportSessionLost() {
	if m.active != nil {
		_ = m.active.Close()
		m.active = nil
	}
	m.state = StateUnreachable
}

// Close releases the active session, whatever state the machine is in.
// Guaranteed release on every exit path, including validation rejection and
// unreachable outcomes.
func (m *Manager) Close() error {
	if m.active == nil {
		return nil
	}
	err := m.active.Close()
	m.active = nil
	return err
}
