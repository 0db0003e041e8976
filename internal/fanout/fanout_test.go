package fanout_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mauv0809/rankwatch/internal/database"
	"github.com/mauv0809/rankwatch/internal/errs"
	"github.com/mauv0809/rankwatch/internal/fanout"
	"github.com/mauv0809/rankwatch/internal/game"
	"github.com/mauv0809/rankwatch/internal/metrics"
	"github.com/mauv0809/rankwatch/internal/notifier"
	"github.com/mauv0809/rankwatch/internal/pubsub"
	"github.com/mauv0809/rankwatch/internal/schema"
	"github.com/mauv0809/rankwatch/internal/tracker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var raiders = schema.MustNew("raider",
	schema.Field{Name: "name", Type: schema.Text, Key: true, CaseInsensitive: true},
	schema.Field{Name: "rating", Type: schema.Real, Tracked: true},
	schema.Field{Name: "spec", Type: schema.Text},
)

func TestDecide(t *testing.T) {
	old := schema.Values{"name": "Thrall", "rating": 1500.0, "spec": "Frost"}

	t.Run("equal tracked field is not notable", func(t *testing.T) {
		d := fanout.Decide(raiders, old, schema.Values{"name": "Thrall", "rating": 1500.0, "spec": "Fire"})
		assert.False(t, d.Notable)
		assert.Empty(t, d.Values)
	})

	t.Run("changed tracked field carries every mutable field", func(t *testing.T) {
		d := fanout.Decide(raiders, old, schema.Values{"name": "THRALL", "rating": 1532.4, "spec": "Fire"})
		assert.True(t, d.Notable)
		assert.Equal(t, []string{"rating"}, d.Changed)
		assert.Equal(t, schema.Values{"rating": 1532.4, "spec": "Fire"}, d.Values, "key fields are never rewritten")
	})
}

func TestPlan_OneDeliveryPerGroupChannel(t *testing.T) {
	channels := []tracker.SubscriberChannel{
		{GroupID: "A", ChannelID: "C1"},
		{GroupID: "B", ChannelID: "C2"},
		{GroupID: "A", ChannelID: "C1"},
	}
	rendered := 0
	deliveries := fanout.Plan(channels, func(ch tracker.SubscriberChannel) notifier.Message {
		rendered++
		return notifier.Message{Title: ch.GroupID}
	})

	require.Len(t, deliveries, 2)
	assert.Equal(t, 2, rendered)
	assert.Equal(t, "A", deliveries[0].Message.Title)
	assert.Equal(t, "C2", deliveries[1].ChannelID)
}

type fixture struct {
	store     *tracker.Store
	sink      *notifier.Mock
	metrics   *metrics.Mock
	publisher *pubsub.MockPubSubClient
	engine    *fanout.Engine
}

func setup(t *testing.T) fixture {
	t.Helper()
	db, teardown, err := database.InitDB(":memory:", "", "")
	require.NoError(t, err)
	t.Cleanup(teardown)

	store := tracker.New(db, raiders)
	require.NoError(t, store.EnsureSchema(context.Background()))

	f := fixture{
		store:     store,
		sink:      notifier.NewMock(),
		metrics:   metrics.NewMock(),
		publisher: pubsub.NewMock(),
	}
	f.engine = fanout.NewEngine(f.sink, f.metrics, f.publisher, time.Second)
	return f
}

// watched creates a player subscribed by every group, each with its own channel.
func (f fixture) watched(t *testing.T, name string, rating float64, groups ...string) *tracker.Player {
	t.Helper()
	ctx := context.Background()
	p, _, err := f.store.Create(ctx, schema.Values{"name": name, "rating": rating, "spec": "Frost"})
	require.NoError(t, err)
	for _, g := range groups {
		require.NoError(t, f.store.SetChannelIfUnset(ctx, g, "C-"+g))
		_, err := f.store.Subscribe(ctx, g, p.ID, nil)
		require.NoError(t, err)
	}
	return p
}

func TestApply_UnchangedSendsNothing(t *testing.T) {
	f := setup(t)
	p := f.watched(t, "Thrall", 1500.0, "A", "B")

	mock := tracker.NewMock(raiders)
	res, err := f.engine.Apply(context.Background(), mock, game.MockRenderer{}, p, schema.Values{"name": "Thrall", "rating": 1500.0})
	require.NoError(t, err)

	assert.False(t, res.Notable)
	assert.Empty(t, mock.UpdateCalls, "record is not rewritten")
	assert.Empty(t, f.sink.Deliveries())
	assert.Empty(t, f.publisher.Calls())
}

func TestApply_ChangeNotifiesEveryGroup(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p := f.watched(t, "Thrall", 1500.0, "A", "B")

	res, err := f.engine.Apply(ctx, f.store, game.MockRenderer{}, p, schema.Values{"name": "Thrall", "rating": 1532.4, "spec": "Frost"})
	require.NoError(t, err)

	assert.True(t, res.Notable)
	assert.Equal(t, 2, res.Delivered)
	deliveries := f.sink.Deliveries()
	require.Len(t, deliveries, 2)
	assert.Equal(t, "C-A", deliveries[0].ChannelID)
	assert.Equal(t, "C-B", deliveries[1].ChannelID)

	stored, err := f.store.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1532.4, stored.Values["rating"])
	assert.Equal(t, 1532.4, p.Values["rating"], "the in-memory player reflects the update")

	assert.Equal(t, 1, f.metrics.NotableChanges())
	calls := f.publisher.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, pubsub.EventPlayerChanged, calls[0].Topic)
	event := calls[0].Data.(pubsub.PlayerChangedEvent)
	assert.Equal(t, p.ID, event.PlayerID)
	assert.Equal(t, []string{"rating"}, event.Changed)
}

func TestApply_OnlyChangedPlayerNotifiesGroup(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	changed := f.watched(t, "Thrall", 1500.0, "A")
	steady := f.watched(t, "Jaina", 2200.0, "A")

	_, err := f.engine.Apply(ctx, f.store, game.MockRenderer{}, changed, schema.Values{"rating": 1532.4})
	require.NoError(t, err)
	_, err = f.engine.Apply(ctx, f.store, game.MockRenderer{}, steady, schema.Values{"rating": 2200.0})
	require.NoError(t, err)

	deliveries := f.sink.Deliveries()
	require.Len(t, deliveries, 1)
	assert.Contains(t, deliveries[0].Message.Title, "1532.4")
}

func TestApply_FailedChannelDoesNotStopOthers(t *testing.T) {
	f := setup(t)
	p := f.watched(t, "Thrall", 1500.0, "A", "B", "C")
	f.sink.DeliverFunc = func(channelID string, _ notifier.Message) error {
		if channelID == "C-B" {
			return errs.Newf(errs.ErrSinkUnavailable, "channel_not_found")
		}
		return nil
	}

	res, err := f.engine.Apply(context.Background(), f.store, game.MockRenderer{}, p, schema.Values{"rating": 1600.0})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Delivered)
	assert.Equal(t, 1, res.Failed)
	assert.Len(t, f.sink.Deliveries(), 3)
}

func TestApply_DeliveryIsBounded(t *testing.T) {
	f := setup(t)
	p := f.watched(t, "Thrall", 1500.0, "A")
	engine := fanout.NewEngine(blockingSink{}, f.metrics, nil, 10*time.Millisecond)

	start := time.Now()
	res, err := engine.Apply(context.Background(), f.store, game.MockRenderer{}, p, schema.Values{"rating": 1600.0})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)
	assert.Less(t, time.Since(start), time.Second)
}

func TestApply_UpdateErrorStopsBeforeDelivery(t *testing.T) {
	f := setup(t)
	p := f.watched(t, "Thrall", 1500.0, "A")
	mock := tracker.NewMock(raiders)
	mock.UpdateFunc = func(int64, schema.Values) error { return errors.New("disk full") }

	_, err := f.engine.Apply(context.Background(), mock, game.MockRenderer{}, p, schema.Values{"rating": 1600.0})
	require.Error(t, err)
	assert.Empty(t, f.sink.Deliveries())
	assert.Equal(t, 1500.0, p.Values["rating"])
}

func TestApply_PublishFailureIsNotFatal(t *testing.T) {
	f := setup(t)
	p := f.watched(t, "Thrall", 1500.0, "A")
	f.publisher.SendMessageFunc = func(pubsub.EventType, any) error { return errors.New("pubsub down") }

	res, err := f.engine.Apply(context.Background(), f.store, game.MockRenderer{}, p, schema.Values{"rating": 1600.0})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Delivered)
}

// blockingSink never delivers before the context ends.
type blockingSink struct{}

func (blockingSink) Deliver(ctx context.Context, _ string, _ notifier.Message) error {
	<-ctx.Done()
	return errs.Wrapf(ctx.Err(), errs.ErrSinkUnavailable, "deliver")
}

func (blockingSink) Ready() <-chan struct{} { return nil }
