package main

import (
	"context"
	"testing"
	"time"

	"github.com/mauv0809/rankwatch/internal/commands"
	"github.com/mauv0809/rankwatch/internal/database"
	"github.com/mauv0809/rankwatch/internal/errs"
	"github.com/mauv0809/rankwatch/internal/game"
	"github.com/mauv0809/rankwatch/internal/game/raider"
	"github.com/mauv0809/rankwatch/internal/schema"
	"github.com/mauv0809/rankwatch/internal/tracker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const seedYAML = `
groups:
  - id: T1
    channel: C1
    players:
      - kind: raider
        key: {region: eu, realm: draenor, name: thrall}
        owner: U123
      - kind: raider
        key: {region: eu, realm: draenor, name: nobody}
  - id: T2
    channel: C2
    players:
      - kind: raider
        key: {region: EU, realm: Draenor, name: Thrall}
      - kind: siege
        key: {name: ash}
`

func TestParseSeedFile(t *testing.T) {
	file, err := parseSeedFile([]byte(seedYAML))
	require.NoError(t, err)
	require.Len(t, file.Groups, 2)
	assert.Equal(t, "C1", file.Groups[0].Channel)
	assert.Equal(t, "U123", file.Groups[0].Players[0].Owner)
	assert.Equal(t, "thrall", file.Groups[0].Players[0].Key["name"])
}

func TestParseSeedFile_Invalid(t *testing.T) {
	testCases := map[string]string{
		"not yaml":        "groups: [",
		"missing channel": "groups:\n  - id: T1\n",
		"missing key":     "groups:\n  - id: T1\n    channel: C1\n    players:\n      - kind: raider\n",
	}
	for name, data := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := parseSeedFile([]byte(data))
			assert.Error(t, err)
		})
	}
}

func setupSeed(t *testing.T) (*game.Registry, *tracker.Store, *game.MockSource) {
	t.Helper()
	db, teardown, err := database.InitDB(":memory:", "", "")
	require.NoError(t, err)
	t.Cleanup(teardown)

	store := tracker.New(db, raider.Kind)
	require.NoError(t, store.EnsureSchema(context.Background()))
	source := &game.MockSource{FetchFunc: func(_ context.Context, key schema.Values) (schema.Values, error) {
		if key.Text("name") == "nobody" {
			return nil, errs.Newf(errs.ErrNotFound, "raider.io returned 400")
		}
		fresh := key.Clone()
		fresh["rating"] = 2100.0
		fresh["class"] = "Shaman"
		fresh["spec"] = "Enhancement"
		fresh["recent_run"] = ""
		return fresh, nil
	}}
	registry, err := game.NewRegistry(game.Kind{
		Game:  game.Game{Descriptor: raider.Kind, Source: source, Renderer: game.MockRenderer{}},
		Store: store,
	})
	require.NoError(t, err)
	return registry, store, source
}

func TestSeed(t *testing.T) {
	ctx := context.Background()
	registry, store, source := setupSeed(t)

	file, err := parseSeedFile([]byte(seedYAML))
	require.NoError(t, err)
	res := seed(ctx, registry, commands.New(registry, nil, nil, nil, time.Second), file)

	assert.Equal(t, seedResult{Subscribed: 2, Existing: 0, Failed: 2}, res)
	assert.Len(t, source.Calls(), 2, "the second group reuses the stored player")

	owner := "U123"
	p, err := store.FindByOwner(ctx, "T1", owner)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, 2100.0, p.Values.Float("rating"))

	channel, ok, err := store.Channel(ctx, "T2")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "C2", channel)

	t.Run("importing again is idempotent", func(t *testing.T) {
		res := seed(ctx, registry, commands.New(registry, nil, nil, nil, time.Second), file)
		assert.Equal(t, seedResult{Subscribed: 0, Existing: 2, Failed: 2}, res)
	})
}

func TestSeed_IncompleteKeyIsRejected(t *testing.T) {
	ctx := context.Background()
	registry, store, source := setupSeed(t)
	svc := commands.New(registry, nil, nil, nil, time.Second)

	full := seedFile{Groups: []seedGroup{{ID: "T1", Channel: "C1", Players: []seedPlayer{
		{Kind: "raider", Key: map[string]any{"region": "eu", "realm": "draenor", "name": "thrall"}},
	}}}}
	require.Equal(t, seedResult{Subscribed: 1}, seed(ctx, registry, svc, full))

	testCases := map[string]map[string]any{
		"name only":         {"name": "thrall"},
		"mutable field":     {"rating": 2100.0},
		"key plus extra":    {"region": "eu", "realm": "draenor", "name": "thrall", "rating": 2100.0},
		"nil key field":     {"region": "eu", "realm": "draenor", "name": nil},
		"misspelled fields": {"region": "eu", "realm": "draenor", "nmae": "thrall"},
	}
	for name, key := range testCases {
		t.Run(name, func(t *testing.T) {
			file := seedFile{Groups: []seedGroup{{ID: "T2", Channel: "C2", Players: []seedPlayer{{Kind: "raider", Key: key}}}}}
			assert.Equal(t, seedResult{Failed: 1}, seed(ctx, registry, svc, file))

			players, err := store.ListForGroup(ctx, "T2")
			require.NoError(t, err)
			assert.Empty(t, players)
		})
	}
	assert.Len(t, source.Calls(), 1, "rejected keys never reach the source")
}
