package fanout

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
	"github.com/mauv0809/rankwatch/internal/errs"
	"github.com/mauv0809/rankwatch/internal/game"
	"github.com/mauv0809/rankwatch/internal/metrics"
	"github.com/mauv0809/rankwatch/internal/notifier"
	"github.com/mauv0809/rankwatch/internal/pubsub"
	"github.com/mauv0809/rankwatch/internal/schema"
	"github.com/mauv0809/rankwatch/internal/tracker"
)

// Store is the part of a tracker the engine writes to and reads from.
type Store interface {
	Descriptor() *schema.Descriptor
	Update(ctx context.Context, id int64, values schema.Values) error
	ChannelsForPlayer(ctx context.Context, playerID int64) ([]tracker.SubscriberChannel, error)
}

// Engine applies fresh player state and notifies subscribers of changes.
type Engine struct {
	sink            notifier.Sink
	metrics         metrics.Metrics
	publisher       pubsub.PubSubClient
	deliveryTimeout time.Duration
}

// Result summarizes one Apply call.
type Result struct {
	Notable   bool
	Changed   []string
	Delivered int
	Failed    int
}

func NewEngine(sink notifier.Sink, metrics metrics.Metrics, publisher pubsub.PubSubClient, deliveryTimeout time.Duration) *Engine {
	return &Engine{
		sink:            sink,
		metrics:         metrics,
		publisher:       publisher,
		deliveryTimeout: deliveryTimeout,
	}
}

// Apply compares player with fresh. An unchanged player is left untouched.
// A changed one is updated, announced on the event bus and rendered for
// every subscribing group's channel. A failed delivery is logged and the
// remaining channels are still served.
func (e *Engine) Apply(ctx context.Context, store Store, renderer game.Renderer, player *tracker.Player, fresh schema.Values) (Result, error) {
	desc := store.Descriptor()
	decision := Decide(desc, player.Values, fresh)
	if !decision.Notable {
		log.Debug("No notable change", "kind", desc.Kind(), "player", player.ID)
		return Result{}, nil
	}
	res := Result{Notable: true, Changed: decision.Changed}

	if err := store.Update(ctx, player.ID, decision.Values); err != nil {
		return res, errors.Wrapf(err, "store %s player %d", desc.Kind(), player.ID)
	}
	e.metrics.IncNotableChanges(desc.Kind())
	log.Info("Player changed", "kind", desc.Kind(), "player", player.ID, "fields", decision.Changed)

	updated := player.Values.Clone()
	for k, v := range decision.Values {
		updated[k] = v
	}
	e.publish(ctx, desc.Kind(), player, decision, updated)

	channels, err := store.ChannelsForPlayer(ctx, player.ID)
	if err != nil {
		return res, errors.Wrapf(err, "channels for %s player %d", desc.Kind(), player.ID)
	}

	deliveries := Plan(channels, func(ch tracker.SubscriberChannel) notifier.Message {
		return renderer.RenderChange(player.Values, updated, ch)
	})
	for _, d := range deliveries {
		if err := e.deliver(ctx, d); err != nil {
			res.Failed++
			if errs.Is(err, errs.ErrSinkUnavailable) {
				log.Warn("Skipping unavailable channel", "group", d.GroupID, "channel", d.ChannelID, "error", err)
			} else {
				log.Error("Failed to deliver notification", "group", d.GroupID, "channel", d.ChannelID, "error", err)
			}
			continue
		}
		res.Delivered++
	}

	player.Values = updated
	return res, nil
}

func (e *Engine) deliver(ctx context.Context, d Delivery) error {
	ctx, cancel := context.WithTimeout(ctx, e.deliveryTimeout)
	defer cancel()
	return e.sink.Deliver(ctx, d.ChannelID, d.Message)
}

// publish is best effort; the change is already stored.
func (e *Engine) publish(ctx context.Context, kind string, player *tracker.Player, d Decision, updated schema.Values) {
	if e.publisher == nil {
		return
	}
	event := pubsub.PlayerChangedEvent{
		Kind:     kind,
		PlayerID: player.ID,
		Changed:  d.Changed,
		Old:      player.Values,
		New:      updated,
		At:       time.Now().Unix(),
	}
	if err := e.publisher.SendMessage(ctx, pubsub.EventPlayerChanged, event); err != nil {
		log.Warn("Failed to publish player change", "kind", kind, "player", player.ID, "error", err)
	}
}
