package tracker

import (
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/mauv0809/rankwatch/internal/schema"
)

// Store persists players, subscriptions and channels of a single kind.
type Store struct {
	db   *sqlx.DB
	desc *schema.Descriptor
	q    queries
	mu   sync.RWMutex
}

// Player is a stored player. Values holds every declared field; the
// surrogate id lives only in ID.
type Player struct {
	ID     int64
	Kind   string
	Values schema.Values
}

// SubscribedPlayer is a player as seen by one subscribing group.
type SubscribedPlayer struct {
	Player   *Player
	OwnerTag *string
}

// SubscriberChannel is where one subscribing group wants notifications.
type SubscriberChannel struct {
	GroupID   string  `db:"group_id"`
	ChannelID string  `db:"channel_id"`
	OwnerTag  *string `db:"owner_tag"`
}
