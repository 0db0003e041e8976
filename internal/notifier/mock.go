package notifier

import (
	"context"
	"sync"
)

var (
	_ Sink     = (*Mock)(nil)
	_ Reporter = (*Mock)(nil)
)

// Mock is a mock implementation of the Sink and Reporter interfaces for
// testing. It is safe for concurrent use.
type Mock struct {
	mu    sync.Mutex
	ready chan struct{}

	DeliverFunc func(channelID string, msg Message) error

	// Call records
	DeliverCalls []Delivery
	ReportCalls  []error
}

// Delivery records one Deliver call.
type Delivery struct {
	ChannelID string
	Message   Message
}

// NewMock creates a mock sink that is already ready.
func NewMock() *Mock {
	m := NewPendingMock()
	m.MarkReady()
	return m
}

// NewPendingMock creates a mock sink that is not ready until MarkReady.
func NewPendingMock() *Mock {
	return &Mock{ready: make(chan struct{})}
}

func (m *Mock) MarkReady() {
	m.mu.Lock()
	defer m.mu.Unlock()
	select {
	case <-m.ready:
	default:
		close(m.ready)
	}
}

func (m *Mock) Ready() <-chan struct{} {
	return m.ready
}

func (m *Mock) Deliver(_ context.Context, channelID string, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeliverCalls = append(m.DeliverCalls, Delivery{ChannelID: channelID, Message: msg})
	if m.DeliverFunc != nil {
		return m.DeliverFunc(channelID, msg)
	}
	return nil
}

func (m *Mock) Report(_ context.Context, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReportCalls = append(m.ReportCalls, err)
}

// Deliveries returns a copy of the recorded deliveries.
func (m *Mock) Deliveries() []Delivery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Delivery(nil), m.DeliverCalls...)
}

// Reports returns a copy of the reported errors.
func (m *Mock) Reports() []error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]error(nil), m.ReportCalls...)
}

// Reset clears all call records.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeliverCalls = nil
	m.ReportCalls = nil
}
