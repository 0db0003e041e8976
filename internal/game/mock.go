package game

import (
	"context"
	"fmt"
	"sync"

	"github.com/mauv0809/rankwatch/internal/notifier"
	"github.com/mauv0809/rankwatch/internal/schema"
	"github.com/mauv0809/rankwatch/internal/tracker"
)

var (
	_ Source   = (*MockSource)(nil)
	_ Renderer = MockRenderer{}
)

// MockSource is a mock implementation of the Source interface for testing.
// It is safe for concurrent use.
type MockSource struct {
	mu sync.Mutex

	FetchFunc func(ctx context.Context, key schema.Values) (schema.Values, error)

	// Call records
	FetchCalls []schema.Values
}

func (m *MockSource) Fetch(ctx context.Context, key schema.Values) (schema.Values, error) {
	m.mu.Lock()
	m.FetchCalls = append(m.FetchCalls, key)
	fn := m.FetchFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, key)
	}
	return key.Clone(), nil
}

// Calls returns a copy of the recorded fetch keys.
func (m *MockSource) Calls() []schema.Values {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]schema.Values(nil), m.FetchCalls...)
}

// MockRenderer renders the changed values verbatim, which keeps assertions simple.
type MockRenderer struct{}

func (MockRenderer) RenderChange(old, fresh schema.Values, sub tracker.SubscriberChannel) notifier.Message {
	return notifier.Message{
		Title: fmt.Sprintf("%v -> %v", old, fresh),
		Text:  sub.GroupID,
	}
}

func (MockRenderer) RenderSnapshot(values schema.Values) notifier.Message {
	return notifier.Message{Title: fmt.Sprintf("%v", values)}
}

func (MockRenderer) RenderLeaderboard(players []tracker.SubscribedPlayer) notifier.Message {
	return notifier.Message{Title: fmt.Sprintf("%d players", len(players))}
}
