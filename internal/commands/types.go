package commands

import (
	"time"

	"github.com/mauv0809/rankwatch/internal/fanout"
	"github.com/mauv0809/rankwatch/internal/game"
	"github.com/mauv0809/rankwatch/internal/metrics"
	"github.com/mauv0809/rankwatch/internal/notifier"
)

// Request is one command as typed by a user of a group.
type Request struct {
	GroupID   string
	ChannelID string
	UserID    string
	// Text is everything after the command name, e.g. "raider add eu draenor thrall".
	Text string
}

// Reply is the answer to a Request.
type Reply struct {
	notifier.Message
	// Ephemeral replies are only shown to the requesting user.
	Ephemeral bool
}

// Service runs commands against the registered kinds.
type Service struct {
	registry     *game.Registry
	engine       *fanout.Engine
	reporter     notifier.Reporter
	counters     metrics.MetricsStore
	fetchTimeout time.Duration
}
