package tracker

import (
	"context"
	"sync"

	"github.com/mauv0809/rankwatch/internal/schema"
)

var _ Tracker = (*Mock)(nil)

// Mock is a mock implementation of the Tracker interface for testing.
// It is safe for concurrent use.
type Mock struct {
	mu sync.Mutex

	Desc *schema.Descriptor

	CreateFunc             func(values schema.Values) (*Player, bool, error)
	FindFunc               func(predicate schema.Values) (*Player, error)
	UpdateFunc             func(id int64, values schema.Values) error
	ListSubscribedFunc     func() ([]*Player, error)
	DeleteUnsubscribedFunc func() (int64, error)
	SubscribeFunc          func(groupID string, playerID int64, ownerTag *string) (bool, error)
	CreateAndSubscribeFunc func(groupID string, values schema.Values, ownerTag *string) (*Player, bool, error)
	UnsubscribeFunc        func(groupID string, playerID int64) (bool, error)
	ListForGroupFunc       func(groupID string) ([]SubscribedPlayer, error)
	FindByOwnerFunc        func(groupID, ownerTag string) (*Player, error)
	SetChannelIfUnsetFunc  func(groupID, channelID string) error
	SetChannelFunc         func(groupID, channelID string) error
	ChannelFunc            func(groupID string) (string, bool, error)
	ChannelsForPlayerFunc  func(playerID int64) ([]SubscriberChannel, error)

	// Call records
	CreateCalls             []schema.Values
	FindCalls               []schema.Values
	UpdateCalls             []UpdateCall
	SubscribeCalls          []SubscribeCall
	CreateAndSubscribeCalls []CreateAndSubscribeCall
	UnsubscribeCalls        []SubscribeCall
	SetChannelCalls         []ChannelCall
	DeleteCalls             int
}

type UpdateCall struct {
	ID     int64
	Values schema.Values
}

type SubscribeCall struct {
	GroupID  string
	PlayerID int64
	OwnerTag *string
}

type CreateAndSubscribeCall struct {
	GroupID  string
	Values   schema.Values
	OwnerTag *string
}

type ChannelCall struct {
	GroupID   string
	ChannelID string
	IfUnset   bool
}

// NewMock creates a new mock instance for the given kind.
func NewMock(desc *schema.Descriptor) *Mock {
	return &Mock{Desc: desc}
}

func (m *Mock) Descriptor() *schema.Descriptor { return m.Desc }

func (m *Mock) Create(_ context.Context, values schema.Values) (*Player, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateCalls = append(m.CreateCalls, values)
	if m.CreateFunc != nil {
		return m.CreateFunc(values)
	}
	return &Player{ID: int64(len(m.CreateCalls)), Kind: m.Desc.Kind(), Values: values}, true, nil
}

func (m *Mock) Find(_ context.Context, predicate schema.Values) (*Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FindCalls = append(m.FindCalls, predicate)
	if m.FindFunc != nil {
		return m.FindFunc(predicate)
	}
	return nil, nil
}

func (m *Mock) FindByID(ctx context.Context, id int64) (*Player, error) {
	return m.Find(ctx, schema.Values{schema.IDField: id})
}

func (m *Mock) Update(_ context.Context, id int64, values schema.Values) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateCalls = append(m.UpdateCalls, UpdateCall{ID: id, Values: values})
	if m.UpdateFunc != nil {
		return m.UpdateFunc(id, values)
	}
	return nil
}

func (m *Mock) ListSubscribed(context.Context) ([]*Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListSubscribedFunc != nil {
		return m.ListSubscribedFunc()
	}
	return nil, nil
}

func (m *Mock) DeleteUnsubscribed(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeleteCalls++
	if m.DeleteUnsubscribedFunc != nil {
		return m.DeleteUnsubscribedFunc()
	}
	return 0, nil
}

func (m *Mock) Subscribe(_ context.Context, groupID string, playerID int64, ownerTag *string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SubscribeCalls = append(m.SubscribeCalls, SubscribeCall{GroupID: groupID, PlayerID: playerID, OwnerTag: ownerTag})
	if m.SubscribeFunc != nil {
		return m.SubscribeFunc(groupID, playerID, ownerTag)
	}
	return true, nil
}

func (m *Mock) CreateAndSubscribe(_ context.Context, groupID string, values schema.Values, ownerTag *string) (*Player, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateAndSubscribeCalls = append(m.CreateAndSubscribeCalls, CreateAndSubscribeCall{GroupID: groupID, Values: values, OwnerTag: ownerTag})
	if m.CreateAndSubscribeFunc != nil {
		return m.CreateAndSubscribeFunc(groupID, values, ownerTag)
	}
	return &Player{ID: int64(len(m.CreateAndSubscribeCalls)), Kind: m.Desc.Kind(), Values: values}, true, nil
}

func (m *Mock) Unsubscribe(_ context.Context, groupID string, playerID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UnsubscribeCalls = append(m.UnsubscribeCalls, SubscribeCall{GroupID: groupID, PlayerID: playerID})
	if m.UnsubscribeFunc != nil {
		return m.UnsubscribeFunc(groupID, playerID)
	}
	return true, nil
}

func (m *Mock) ListForGroup(_ context.Context, groupID string) ([]SubscribedPlayer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListForGroupFunc != nil {
		return m.ListForGroupFunc(groupID)
	}
	return nil, nil
}

func (m *Mock) FindByOwner(_ context.Context, groupID, ownerTag string) (*Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FindByOwnerFunc != nil {
		return m.FindByOwnerFunc(groupID, ownerTag)
	}
	return nil, nil
}

func (m *Mock) SetChannelIfUnset(_ context.Context, groupID, channelID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SetChannelCalls = append(m.SetChannelCalls, ChannelCall{GroupID: groupID, ChannelID: channelID, IfUnset: true})
	if m.SetChannelIfUnsetFunc != nil {
		return m.SetChannelIfUnsetFunc(groupID, channelID)
	}
	return nil
}

func (m *Mock) SetChannel(_ context.Context, groupID, channelID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SetChannelCalls = append(m.SetChannelCalls, ChannelCall{GroupID: groupID, ChannelID: channelID})
	if m.SetChannelFunc != nil {
		return m.SetChannelFunc(groupID, channelID)
	}
	return nil
}

func (m *Mock) Channel(_ context.Context, groupID string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ChannelFunc != nil {
		return m.ChannelFunc(groupID)
	}
	return "", false, nil
}

func (m *Mock) ChannelsForPlayer(_ context.Context, playerID int64) ([]SubscriberChannel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ChannelsForPlayerFunc != nil {
		return m.ChannelsForPlayerFunc(playerID)
	}
	return nil, nil
}
