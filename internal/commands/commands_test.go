package commands

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
	"github.com/mauv0809/rankwatch/internal/schema"
	"github.com/mauv0809/rankwatch/internal/tracker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var raiders = schema.MustNew("raider",
	schema.Field{Name: "region", Type: schema.Text, Key: true, CaseInsensitive: true},
	schema.Field{Name: "realm", Type: schema.Text, Key: true, CaseInsensitive: true},
	schema.Field{Name: "name", Type: schema.Text, Key: true, CaseInsensitive: true},
	schema.Field{Name: "rating", Type: schema.Real, Tracked: true},
)

// recordingRenderer remembers the leaderboard it was asked to render.
type recordingRenderer struct {
	game.MockRenderer
	leaderboard []tracker.SubscribedPlayer
}

func (r *recordingRenderer) RenderLeaderboard(players []tracker.SubscribedPlayer) notifier.Message {
	r.leaderboard = players
	return r.MockRenderer.RenderLeaderboard(players)
}

type fixture struct {
	store    *tracker.Store
	source   *game.MockSource
	renderer *recordingRenderer
	sink     *notifier.Mock
	counters *metrics.MetricsStoreMock
	service  *Service
}

func setup(t *testing.T) fixture {
	t.Helper()
	db, teardown, err := database.InitDB(":memory:", "", "")
	require.NoError(t, err)
	t.Cleanup(teardown)

	store := tracker.New(db, raiders)
	require.NoError(t, store.EnsureSchema(context.Background()))

	f := fixture{
		store:    store,
		source:   &game.MockSource{},
		renderer: &recordingRenderer{},
		sink:     notifier.NewMock(),
		counters: metrics.NewStoreMock(),
	}
	f.source.FetchFunc = func(_ context.Context, key schema.Values) (schema.Values, error) {
		fresh := key.Clone()
		fresh["name"] = cases.Title(language.English).String(key.Text("name"))
		fresh["rating"] = 1500.0
		return fresh, nil
	}

	registry, err := game.NewRegistry(game.Kind{
		Game:  game.Game{Descriptor: raiders, Source: f.source, Renderer: f.renderer},
		Store: store,
	})
	require.NoError(t, err)
	engine := fanout.NewEngine(f.sink, metrics.NewMock(), nil, time.Second)
	f.service = New(registry, engine, f.sink, f.counters, time.Second)
	return f
}

func (f fixture) run(text string) Reply {
	return f.service.Handle(context.Background(), Request{GroupID: "T1", ChannelID: "C-cmd", UserID: "U1", Text: text})
}

func TestAdd(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	reply := f.run("raider add eu draenor thrall <@U123|jaina>")
	assert.False(t, reply.Ephemeral)
	assert.Equal(t, "Started watching eu/draenor/Thrall (rating 1500.0)", reply.Text)

	subs, err := f.store.ListForGroup(ctx, "T1")
	require.NoError(t, err)
	require.Len(t, subs, 1)
	require.NotNil(t, subs[0].OwnerTag)
	assert.Equal(t, "U123", *subs[0].OwnerTag)

	channel, ok, err := f.store.Channel(ctx, "T1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "C-cmd", channel)

	t.Run("second add reuses the stored player", func(t *testing.T) {
		reply := f.run("raider add EU Draenor THRALL")
		assert.Equal(t, "Already watching eu/draenor/Thrall (rating 1500.0)", reply.Text)
		assert.Len(t, f.source.Calls(), 1)
	})

	counts, err := f.counters.GetAll()
	require.NoError(t, err)
	assert.Equal(t, 2, counts["command_add"])
}

func TestAdd_KindMayBeOmitted(t *testing.T) {
	f := setup(t)
	reply := f.run("add eu draenor thrall")
	assert.Equal(t, "Started watching eu/draenor/Thrall (rating 1500.0)", reply.Text)
}

func TestAdd_KeepsExplicitChannel(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	require.NoError(t, f.store.SetChannel(ctx, "T1", "C-here"))

	f.run("add eu draenor thrall")

	channel, _, err := f.store.Channel(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, "C-here", channel)
}

// cleanupAfterFind deletes unsubscribed players right after every lookup,
// as a cleanup run landing between lookup and subscription would.
type cleanupAfterFind struct {
	*tracker.Store
}

func (s cleanupAfterFind) Find(ctx context.Context, predicate schema.Values) (*tracker.Player, error) {
	p, err := s.Store.Find(ctx, predicate)
	if err != nil {
		return nil, err
	}
	_, err = s.Store.DeleteUnsubscribed(ctx)
	return p, err
}

func TestAdd_SurvivesCleanupBeforeSubscribe(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	_, created, err := f.store.Create(ctx, schema.Values{"region": "eu", "realm": "draenor", "name": "Thrall", "rating": 1500.0})
	require.NoError(t, err)
	require.True(t, created)

	registry, err := game.NewRegistry(game.Kind{
		Game:  game.Game{Descriptor: raiders, Source: f.source, Renderer: f.renderer},
		Store: cleanupAfterFind{f.store},
	})
	require.NoError(t, err)
	svc := New(registry, fanout.NewEngine(f.sink, metrics.NewMock(), nil, time.Second), f.sink, nil, time.Second)

	reply := svc.Handle(ctx, Request{GroupID: "T1", ChannelID: "C1", Text: "add eu draenor thrall"})
	assert.False(t, reply.Ephemeral, reply.Text)
	assert.Equal(t, "Started watching eu/draenor/Thrall (rating 1500.0)", reply.Text)
	assert.Empty(t, f.sink.Reports())

	subs, err := f.store.ListForGroup(ctx, "T1")
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "Thrall", subs[0].Player.Values.Text("name"))

	deleted, err := f.store.DeleteUnsubscribed(ctx)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestWatch_RequiresTheFullKey(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	k, ok := f.service.registry.Get("raider")
	require.True(t, ok)

	_, created, err := f.service.Watch(ctx, k, "T1", "C1", schema.Values{"region": "eu", "realm": "draenor", "name": "thrall"}, nil)
	require.NoError(t, err)
	require.True(t, created)

	for _, key := range []schema.Values{
		{"name": "thrall"},
		{"rating": 1500.0},
		{"region": "eu", "realm": "draenor", "name": "thrall", "rating": 1500.0},
		{"region": "eu", "realm": "draenor", "name": nil},
	} {
		p, created, err := f.service.Watch(ctx, k, "T2", "C2", key, nil)
		require.Error(t, err, key)
		assert.True(t, errs.Is(err, errs.ErrUserInput), key)
		assert.Nil(t, p)
		assert.False(t, created)
	}

	subs, err := f.store.ListForGroup(ctx, "T2")
	require.NoError(t, err)
	assert.Empty(t, subs)
	_, ok, err = f.store.Channel(ctx, "T2")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Len(t, f.source.Calls(), 1)
}

func TestAdd_Rejected(t *testing.T) {
	testCases := []struct {
		name  string
		text  string
		fetch func(context.Context, schema.Values) (schema.Values, error)
		want  string
	}{
		{
			name: "too few arguments",
			text: "add eu draenor",
			want: "Error: expected `region`, `realm`, `name` and an optional member",
		},
		{
			name: "owner is not a mention",
			text: "add eu draenor thrall jaina",
			want: "Error: failed to resolve member jaina",
		},
		{
			name: "unknown at source",
			text: "add eu draenor nobody",
			fetch: func(context.Context, schema.Values) (schema.Values, error) {
				return nil, errs.Newf(errs.ErrNotFound, "raider.io returned 400")
			},
			want: "Error: no raider player matches eu/draenor/nobody",
		},
		{
			name: "source down",
			text: "add eu draenor thrall",
			fetch: func(context.Context, schema.Values) (schema.Values, error) {
				return nil, errs.Newf(errs.ErrTransientSource, "raider.io returned 503")
			},
			want: "Error: the data source is not answering right now, try again later",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := setup(t)
			if tc.fetch != nil {
				f.source.FetchFunc = tc.fetch
			}

			reply := f.run(tc.text)
			assert.True(t, reply.Ephemeral)
			assert.Equal(t, tc.want, reply.Text)

			subs, err := f.store.ListForGroup(context.Background(), "T1")
			require.NoError(t, err)
			assert.Empty(t, subs)
			assert.Empty(t, f.sink.Reports())
		})
	}
}

func TestRemove(t *testing.T) {
	f := setup(t)
	f.run("add eu draenor thrall")

	assert.Equal(t, "Stopped watching eu/draenor/Thrall (rating 1500.0)", f.run("remove eu draenor thrall").Text)
	assert.Equal(t, "Wasn't watching eu/draenor/Thrall (rating 1500.0)", f.run("remove eu draenor thrall").Text)

	reply := f.run("remove eu draenor jaina")
	assert.True(t, reply.Ephemeral)
	assert.Equal(t, "Error: couldn't find player eu draenor jaina", reply.Text)
}

func TestHere(t *testing.T) {
	f := setup(t)
	reply := f.run("raider here")
	assert.Equal(t, "Raider notifications will be posted to this channel!", reply.Text)

	channel, ok, err := f.store.Channel(context.Background(), "T1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "C-cmd", channel)
}

func TestRating_StoredPlayerIsApplied(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.run("add eu draenor thrall <@U123>")

	f.source.FetchFunc = func(_ context.Context, key schema.Values) (schema.Values, error) {
		return schema.Values{"rating": 1600.0}, nil
	}

	for _, text := range []string{"rating <@U123>", "r Thrall", "rating eu draenor thrall"} {
		reply := f.run(text)
		assert.False(t, reply.Ephemeral, text)
		assert.Contains(t, reply.Title, "rating:1600", text)
	}

	stored, err := f.store.Find(ctx, schema.Values{"name": "thrall"})
	require.NoError(t, err)
	assert.Equal(t, 1600.0, stored.Values.Float("rating"))

	deliveries := f.sink.Deliveries()
	require.Len(t, deliveries, 1, "only the first fetch changed the rating")
	assert.Equal(t, "C-cmd", deliveries[0].ChannelID)
}

func TestRating_UnknownPlayerIsOnlyShown(t *testing.T) {
	f := setup(t)

	reply := f.run("rating eu draenor jaina")
	assert.Contains(t, reply.Title, "name:Jaina")

	p, err := f.store.Find(context.Background(), schema.Values{"name": "jaina"})
	require.NoError(t, err)
	assert.Nil(t, p, "a rating lookup does not start tracking")
	assert.Empty(t, f.sink.Deliveries())
}

func TestRating_Rejected(t *testing.T) {
	f := setup(t)

	assert.Equal(t, "Error: failed to find matching player <@U999>", f.run("rating <@U999>").Text)
	assert.Equal(t, "Error: failed to find matching player thrall", f.run("rating thrall").Text)
	assert.Equal(t, "Error: expected either a member or `region`, `realm`, `name`", f.run("rating eu draenor").Text)
}

func TestLeaderboard(t *testing.T) {
	f := setup(t)
	ratings := map[string]float64{"thrall": 1500.0, "jaina": 2400.0, "anduin": 1900.0}
	f.source.FetchFunc = func(_ context.Context, key schema.Values) (schema.Values, error) {
		fresh := key.Clone()
		fresh["rating"] = ratings[key.Text("name")]
		return fresh, nil
	}
	for name := range ratings {
		f.run("add eu draenor " + name)
	}

	reply := f.run("l")
	assert.Equal(t, "3 players", reply.Title)

	var order []string
	for _, sp := range f.renderer.leaderboard {
		order = append(order, sp.Player.Values.Text("name"))
	}
	assert.Equal(t, []string{"jaina", "anduin", "thrall"}, order)
}

func TestHandle_Usage(t *testing.T) {
	f := setup(t)

	reply := f.run("raider")
	assert.True(t, reply.Ephemeral)
	assert.Equal(t, "missing subcommand, try `add`, `remove`, `here`, `rating`, `leaderboard`", reply.Text)

	reply = f.run("raider dance")
	assert.True(t, reply.Ephemeral)
	assert.Equal(t, "invalid subcommand `dance`, try `add`, `remove`, `here`, `rating`, `leaderboard`", reply.Text)
}

func TestHandle_SeveralKindsNeedAKind(t *testing.T) {
	f := setup(t)
	siege := schema.MustNew("siege", schema.Field{Name: "name", Type: schema.Text, Key: true})
	registry, err := game.NewRegistry(
		game.Kind{Game: game.Game{Descriptor: raiders, Source: f.source, Renderer: f.renderer}, Store: f.store},
		game.Kind{Game: game.Game{Descriptor: siege, Source: f.source, Renderer: game.MockRenderer{}}, Store: tracker.NewMock(siege)},
	)
	require.NoError(t, err)
	svc := New(registry, fanout.NewEngine(f.sink, metrics.NewMock(), nil, time.Second), f.sink, nil, time.Second)

	reply := svc.Handle(context.Background(), Request{GroupID: "T1", ChannelID: "C1", Text: "add eu draenor thrall"})
	assert.True(t, reply.Ephemeral)
	assert.Equal(t, "Error: start with one of `raider`, `siege`", reply.Text)

	reply = svc.Handle(context.Background(), Request{GroupID: "T1", ChannelID: "C1", Text: "SIEGE here"})
	assert.Equal(t, "Siege notifications will be posted to this channel!", reply.Text)
}

func TestHandle_UnexpectedErrorIsReported(t *testing.T) {
	f := setup(t)
	store := tracker.NewMock(raiders)
	store.FindFunc = func(schema.Values) (*tracker.Player, error) {
		return nil, errors.New("disk I/O error")
	}
	registry, err := game.NewRegistry(game.Kind{
		Game:  game.Game{Descriptor: raiders, Source: f.source, Renderer: f.renderer},
		Store: store,
	})
	require.NoError(t, err)
	svc := New(registry, fanout.NewEngine(f.sink, metrics.NewMock(), nil, time.Second), f.sink, nil, time.Second)

	reply := svc.Handle(context.Background(), Request{GroupID: "T1", ChannelID: "C1", Text: "remove eu draenor thrall"})
	assert.True(t, reply.Ephemeral)
	assert.Equal(t, "Error: something went wrong, the operator has been notified", reply.Text)
	require.Len(t, f.sink.Reports(), 1)
}

func TestParseMention(t *testing.T) {
	testCases := []struct {
		arg  string
		want string
		ok   bool
	}{
		{"<@U123ABC>", "U123ABC", true},
		{"<@W42|jaina>", "W42", true},
		{"@jaina", "", false},
		{"<#C123>", "", false},
	}
	for _, tc := range testCases {
		got, ok := ParseMention(tc.arg)
		assert.Equal(t, tc.ok, ok, tc.arg)
		assert.Equal(t, tc.want, got, tc.arg)
	}
}
