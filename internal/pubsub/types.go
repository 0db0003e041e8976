package pubsub

import "cloud.google.com/go/pubsub"

type client struct {
	client *pubsub.Client
}

// noopClient is used when no GCP project is configured.
type noopClient struct{}

// EventType represents the type of event/message sent via pubsub.
type EventType string

const (
	EventPlayerChanged EventType = "player-changed"
)

// PlayerChangedEvent is published after a notable change has been stored.
type PlayerChangedEvent struct {
	Kind     string         `msgpack:"kind"`
	PlayerID int64          `msgpack:"player_id"`
	Changed  []string       `msgpack:"changed"`
	Old      map[string]any `msgpack:"old"`
	New      map[string]any `msgpack:"new"`
	At       int64          `msgpack:"at"`
}
