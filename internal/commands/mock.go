package commands

import (
	"context"
	"sync"
)

var _ Handler = (*MockHandler)(nil)

// MockHandler is a mock implementation of the Handler interface for testing.
type MockHandler struct {
	mu sync.Mutex

	HandleFunc func(req Request) Reply

	// Call records
	HandleCalls []Request
}

func NewMock() *MockHandler {
	return &MockHandler{}
}

func (m *MockHandler) Handle(_ context.Context, req Request) Reply {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.HandleCalls = append(m.HandleCalls, req)
	if m.HandleFunc != nil {
		return m.HandleFunc(req)
	}
	return public("ok")
}
