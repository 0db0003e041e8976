package tracker

import (
	"context"

	"github.com/mauv0809/rankwatch/internal/schema"
)

// PlayerStore is the keyed repository of one player kind.
type PlayerStore interface {
	Descriptor() *schema.Descriptor
	Create(ctx context.Context, values schema.Values) (*Player, bool, error)
	Find(ctx context.Context, predicate schema.Values) (*Player, error)
	FindByID(ctx context.Context, id int64) (*Player, error)
	Update(ctx context.Context, id int64, values schema.Values) error
	ListSubscribed(ctx context.Context) ([]*Player, error)
	DeleteUnsubscribed(ctx context.Context) (int64, error)
}

// SubscriptionGraph relates groups to the players they watch.
type SubscriptionGraph interface {
	Subscribe(ctx context.Context, groupID string, playerID int64, ownerTag *string) (bool, error)
	CreateAndSubscribe(ctx context.Context, groupID string, values schema.Values, ownerTag *string) (*Player, bool, error)
	Unsubscribe(ctx context.Context, groupID string, playerID int64) (bool, error)
	ListForGroup(ctx context.Context, groupID string) ([]SubscribedPlayer, error)
	FindByOwner(ctx context.Context, groupID, ownerTag string) (*Player, error)
}

// ChannelRegistry holds the notification channel of each group.
type ChannelRegistry interface {
	SetChannelIfUnset(ctx context.Context, groupID, channelID string) error
	SetChannel(ctx context.Context, groupID, channelID string) error
	Channel(ctx context.Context, groupID string) (string, bool, error)
	ChannelsForPlayer(ctx context.Context, playerID int64) ([]SubscriberChannel, error)
}

// Tracker is the whole persistence boundary of one player kind.
type Tracker interface {
	PlayerStore
	SubscriptionGraph
	ChannelRegistry
}
