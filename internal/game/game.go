package game

import (
	"context"
	"fmt"
	"sort"

	"github.com/mauv0809/rankwatch/internal/notifier"
	"github.com/mauv0809/rankwatch/internal/schema"
	"github.com/mauv0809/rankwatch/internal/tracker"
)

// Source fetches the latest state of one player from an external service.
// Errors are marked errs.ErrNotFound when the key does not resolve and
// errs.ErrTransientSource for everything else.
type Source interface {
	Fetch(ctx context.Context, key schema.Values) (schema.Values, error)
}

// Renderer turns player state into messages.
type Renderer interface {
	RenderChange(old, fresh schema.Values, sub tracker.SubscriberChannel) notifier.Message
	RenderSnapshot(values schema.Values) notifier.Message
	RenderLeaderboard(players []tracker.SubscribedPlayer) notifier.Message
}

// Game bundles everything kind-specific.
type Game struct {
	Descriptor *schema.Descriptor
	Source     Source
	Renderer   Renderer
}

func (g Game) Kind() string { return g.Descriptor.Kind() }

// Kind pairs a game with the store of its players.
type Kind struct {
	Game
	Store tracker.Tracker
}

// Registry holds the kinds known to the process. It is filled at startup
// and read-only afterwards.
type Registry struct {
	kinds map[string]Kind
}

func NewRegistry(kinds ...Kind) (*Registry, error) {
	r := &Registry{kinds: make(map[string]Kind, len(kinds))}
	for _, k := range kinds {
		if k.Descriptor == nil || k.Source == nil || k.Renderer == nil || k.Store == nil {
			return nil, fmt.Errorf("kind %v is incomplete", k.Descriptor)
		}
		if k.Store.Descriptor() != k.Descriptor {
			return nil, fmt.Errorf("kind %s: store serves a different descriptor", k.Kind())
		}
		if _, dup := r.kinds[k.Kind()]; dup {
			return nil, fmt.Errorf("kind %s registered twice", k.Kind())
		}
		r.kinds[k.Kind()] = k
	}
	return r, nil
}

func (r *Registry) Get(kind string) (Kind, bool) {
	k, ok := r.kinds[kind]
	return k, ok
}

// All returns the registered kinds sorted by name.
func (r *Registry) All() []Kind {
	names := make([]string, 0, len(r.kinds))
	for name := range r.kinds {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]Kind, len(names))
	for i, name := range names {
		out[i] = r.kinds[name]
	}
	return out
}
