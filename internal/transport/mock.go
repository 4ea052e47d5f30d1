package transport

import (
	"context"

	"github.com/avlabs/labelsync/internal/model"
)

// MockTransport is a function-field mock implementation of Transport for
// tests in this package and its dependents.
type MockTransport struct {
	KindValue             model.TransportKind
	ConnectivityCheckFunc func(ctx context.Context) error
	ReadLabelSetFunc      func(ctx context.Context, dir model.Direction) (model.LabelSet, error)
	WriteLabelsFunc       func(ctx context.Context, dir model.Direction, labels map[int]string) (WriteResults, error)
	CloseFunc             func() error

	// Call counters for asserting interaction patterns.
	ConnectivityChecks int
	Reads              int
	Writes             int
	Closed             bool
}

func (m *MockTransport) Kind() model.TransportKind {
	if m.KindValue == model.TransportNone {
		return model.TransportREST
	}
	return m.KindValue
}

func (m *MockTransport) ConnectivityCheck(ctx context.Context) error {
	m.ConnectivityChecks++
	if m.ConnectivityCheckFunc != nil {
		return m.ConnectivityCheckFunc(ctx)
	}
	return nil
}

func (m *MockTransport) ReadLabelSet(ctx context.Context, dir model.Direction) (model.LabelSet, error) {
	m.Reads++
	if m.ReadLabelSetFunc != nil {
		return m.ReadLabelSetFunc(ctx, dir)
	}
	return model.NewLabelSet(nil), nil
}

func (m *MockTransport) WriteLabels(ctx context.Context, dir model.Direction, labels map[int]string) (WriteResults, error) {
	m.Writes++
	if m.WriteLabelsFunc != nil {
		return m.WriteLabelsFunc(ctx, dir, labels)
	}
	results := make(WriteResults, len(labels))
	for idx := range labels {
		results[idx] = nil
	}
	return results, nil
}

func (m *MockTransport) Close() error {
	m.Closed = true
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}
