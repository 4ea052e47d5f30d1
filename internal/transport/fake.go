package transport

import (
	"context"
	"fmt"
	"sync"

	"github.com/avlabs/labelsync/internal/model"
)

// FakeRouter is an in-memory Transport backed by a real label store. It lets
// engine and batch tests exercise full read-diff-write-verify cycles without
// a device on the network.
type FakeRouter struct {
	KindValue model.TransportKind

	mu     sync.Mutex
	labels map[model.PortKey]string

	// Down fails every operation, simulating an unreachable device.
	Down bool
	// FailWrites maps port index to a rejection reason for write attempts.
	FailWrites map[int]string
	// WriteCalls counts WriteLabels invocations.
	WriteCalls int
	// WrittenPorts counts individual port writes accepted by the store.
	WrittenPorts int
}

// NewFakeRouter seeds a fake device with every port of the model labeled by
// its default factory text ("IN n" / "OUT n").
func NewFakeRouter(m model.RouterModel, kind model.TransportKind) *FakeRouter {
	labels := make(map[model.PortKey]string)
	for i := 1; i <= m.Inputs; i++ {
		labels[model.PortKey{Direction: model.Input, Index: i}] = fmt.Sprintf("IN %d", i)
	}
	for i := 1; i <= m.Outputs; i++ {
		labels[model.PortKey{Direction: model.Output, Index: i}] = fmt.Sprintf("OUT %d", i)
	}
	return &FakeRouter{KindValue: kind, labels: labels}
}

func (f *FakeRouter) Kind() model.TransportKind { return f.KindValue }

func (f *FakeRouter) ConnectivityCheck(context.Context) error {
	if f.Down {
		return fmt.Errorf("fake router: %w", ErrSessionLost)
	}
	return nil
}

func (f *FakeRouter) ReadLabelSet(_ context.Context, dir model.Direction) (model.LabelSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Down {
		return model.LabelSet{}, fmt.Errorf("fake router: %w", ErrSessionLost)
	}
	out := make(map[model.PortKey]string)
	for k, v := range f.labels {
		if k.Direction == dir {
			out[k] = v
		}
	}
	return model.NewLabelSet(out), nil
}

func (f *FakeRouter) WriteLabels(_ context.Context, dir model.Direction, labels map[int]string) (WriteResults, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.WriteCalls++
	if f.Down {
		return nil, fmt.Errorf("fake router: %w", ErrSessionLost)
	}
	results := make(WriteResults, len(labels))
	for idx, text := range labels {
		if reason, bad := f.FailWrites[idx]; bad {
			results[idx] = &ProtocolError{Kind: f.Kind(), Op: "write", Msg: reason}
			continue
		}
		f.labels[model.PortKey{Direction: dir, Index: idx}] = text
		f.WrittenPorts++
		results[idx] = nil
	}
	return results, nil
}

func (f *FakeRouter) Close() error { return nil }

// Label returns the stored text for one port, for test assertions.
func (f *FakeRouter) Label(dir model.Direction, idx int) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.labels[model.PortKey{Direction: dir, Index: idx}]
}
