package commands

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/rankwatch/internal/errs"
	"github.com/mauv0809/rankwatch/internal/fanout"
	"github.com/mauv0809/rankwatch/internal/game"
	"github.com/mauv0809/rankwatch/internal/metrics"
	"github.com/mauv0809/rankwatch/internal/notifier"
	"github.com/mauv0809/rankwatch/internal/schema"
	"github.com/mauv0809/rankwatch/internal/tracker"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var _ Handler = (*Service)(nil)

type command func(s *Service, ctx context.Context, k game.Kind, req Request, args []string) (Reply, error)

var handlers = map[string]command{
	"add":         (*Service).add,
	"remove":      (*Service).remove,
	"here":        (*Service).here,
	"rating":      (*Service).rating,
	"r":           (*Service).rating,
	"leaderboard": (*Service).leaderboard,
	"l":           (*Service).leaderboard,
}

var usage = "`add`, `remove`, `here`, `rating`, `leaderboard`"

// New creates the command service. counters may be nil.
func New(registry *game.Registry, engine *fanout.Engine, reporter notifier.Reporter, counters metrics.MetricsStore, fetchTimeout time.Duration) *Service {
	return &Service{
		registry:     registry,
		engine:       engine,
		reporter:     reporter,
		counters:     counters,
		fetchTimeout: fetchTimeout,
	}
}

// Handle runs one command. The text starts with a kind name, which may be
// left out when only one kind is registered, followed by a subcommand and
// its arguments. Bad input is answered privately; unexpected failures are
// also reported to the operator.
func (s *Service) Handle(ctx context.Context, req Request) Reply {
	args := strings.Fields(req.Text)
	k, args, err := s.resolveKind(args)
	if err != nil {
		return s.failure(ctx, req, err)
	}
	if len(args) == 0 {
		return private(fmt.Sprintf("missing subcommand, try %s", usage))
	}

	name := strings.ToLower(args[0])
	handler, ok := handlers[name]
	if !ok {
		return private(fmt.Sprintf("invalid subcommand `%s`, try %s", args[0], usage))
	}

	log.Info("Running command", "kind", k.Kind(), "command", name, "group", req.GroupID, "user", req.UserID)
	if s.counters != nil {
		s.counters.Increment("command_" + name)
	}
	reply, err := handler(s, ctx, k, req, args[1:])
	if err != nil {
		return s.failure(ctx, req, err)
	}
	return reply
}

func (s *Service) resolveKind(args []string) (game.Kind, []string, error) {
	if len(args) > 0 {
		if k, ok := s.registry.Get(strings.ToLower(args[0])); ok {
			return k, args[1:], nil
		}
	}
	kinds := s.registry.All()
	if len(kinds) == 1 {
		return kinds[0], args, nil
	}
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = "`" + k.Kind() + "`"
	}
	return game.Kind{}, nil, errs.Newf(errs.ErrUserInput, "start with one of %s", strings.Join(names, ", "))
}

func (s *Service) failure(ctx context.Context, req Request, err error) Reply {
	switch {
	case errs.Is(err, errs.ErrUserInput), errs.Is(err, errs.ErrNotFound):
		log.Info("Command rejected", "group", req.GroupID, "text", req.Text, "error", err)
		return private("Error: " + err.Error())
	case errs.Is(err, errs.ErrTransientSource):
		log.Warn("Command source unavailable", "group", req.GroupID, "text", req.Text, "error", err)
		return private("Error: the data source is not answering right now, try again later")
	default:
		log.Error("Command failed", "group", req.GroupID, "text", req.Text, "error", err)
		s.reporter.Report(ctx, err)
		return private("Error: something went wrong, the operator has been notified")
	}
}

func (s *Service) add(ctx context.Context, k game.Kind, req Request, args []string) (Reply, error) {
	n := len(k.Descriptor.KeyFields())
	if len(args) != n && len(args) != n+1 {
		return Reply{}, errs.Newf(errs.ErrUserInput, "expected %s and an optional member", keyUsage(k.Descriptor))
	}
	key, err := keyFromArgs(k.Descriptor, args[:n])
	if err != nil {
		return Reply{}, err
	}
	var owner *string
	if len(args) == n+1 {
		tag, ok := ParseMention(args[n])
		if !ok {
			return Reply{}, errs.Newf(errs.ErrUserInput, "failed to resolve member %s", args[n])
		}
		owner = &tag
	}

	player, created, err := s.Watch(ctx, k, req.GroupID, req.ChannelID, key, owner)
	if err != nil {
		return Reply{}, err
	}
	action := "Already watching"
	if created {
		action = "Started watching"
	}
	return public(fmt.Sprintf("%s %s", action, label(k.Descriptor, player.Values))), nil
}

// Watch subscribes the group to the player with the given key, fetching the
// player first if it is not stored yet. The key must name every key field
// and nothing else. channelID becomes the group's channel unless one is set
// already. It reports whether the subscription is new.
func (s *Service) Watch(ctx context.Context, k game.Kind, groupID, channelID string, key schema.Values, owner *string) (*tracker.Player, bool, error) {
	key, err := requireKey(k.Descriptor, key)
	if err != nil {
		return nil, false, err
	}
	if err := k.Store.SetChannelIfUnset(ctx, groupID, channelID); err != nil {
		return nil, false, err
	}

	player, err := k.Store.Find(ctx, key)
	if err != nil {
		return nil, false, err
	}
	var values schema.Values
	if player != nil {
		values = player.Values
	} else if values, err = s.fetchNew(ctx, k, key); err != nil {
		return nil, false, err
	}

	// The player may be removed by a cleanup run before this point; storing
	// and subscribing together puts it back.
	return k.Store.CreateAndSubscribe(ctx, groupID, values, owner)
}

// fetchNew fetches a player that is not stored yet. Key fields the source
// leaves out are taken from key.
func (s *Service) fetchNew(ctx context.Context, k game.Kind, key schema.Values) (schema.Values, error) {
	fresh, err := s.fetch(ctx, k, key)
	if err != nil {
		return nil, err
	}
	values := fresh.Clone()
	for name, v := range key {
		if _, ok := values[name]; !ok {
			values[name] = v
		}
	}
	return values, nil
}

func (s *Service) remove(ctx context.Context, k game.Kind, req Request, args []string) (Reply, error) {
	if len(args) != len(k.Descriptor.KeyFields()) {
		return Reply{}, errs.Newf(errs.ErrUserInput, "expected %s", keyUsage(k.Descriptor))
	}
	key, err := keyFromArgs(k.Descriptor, args)
	if err != nil {
		return Reply{}, err
	}
	player, err := k.Store.Find(ctx, key)
	if err != nil {
		return Reply{}, err
	}
	if player == nil {
		return Reply{}, errs.Newf(errs.ErrUserInput, "couldn't find player %s", strings.Join(args, " "))
	}

	deleted, err := k.Store.Unsubscribe(ctx, req.GroupID, player.ID)
	if err != nil {
		return Reply{}, err
	}
	action := "Wasn't watching"
	if deleted {
		action = "Stopped watching"
	}
	return public(fmt.Sprintf("%s %s", action, label(k.Descriptor, player.Values))), nil
}

func (s *Service) here(ctx context.Context, k game.Kind, req Request, _ []string) (Reply, error) {
	if err := k.Store.SetChannel(ctx, req.GroupID, req.ChannelID); err != nil {
		return Reply{}, err
	}
	kind := cases.Title(language.English).String(k.Kind())
	return public(fmt.Sprintf("%s notifications will be posted to this channel!", kind)), nil
}

// rating looks a player up by a member mention, by display name or by full
// key, fetches it now and shows the result. A stored player also goes
// through the same change detection as a scheduled refresh.
func (s *Service) rating(ctx context.Context, k game.Kind, req Request, args []string) (Reply, error) {
	var player *tracker.Player
	var key schema.Values
	var err error

	switch len(args) {
	case 1:
		if tag, ok := ParseMention(args[0]); ok {
			player, err = k.Store.FindByOwner(ctx, req.GroupID, tag)
		} else {
			player, err = k.Store.Find(ctx, schema.Values{displayField(k.Descriptor): args[0]})
		}
		if err != nil {
			return Reply{}, err
		}
		if player == nil {
			return Reply{}, errs.Newf(errs.ErrUserInput, "failed to find matching player %s", args[0])
		}
	case len(k.Descriptor.KeyFields()):
		if key, err = keyFromArgs(k.Descriptor, args); err != nil {
			return Reply{}, err
		}
		if player, err = k.Store.Find(ctx, key); err != nil {
			return Reply{}, err
		}
	default:
		return Reply{}, errs.Newf(errs.ErrUserInput, "expected either a member or %s", keyUsage(k.Descriptor))
	}

	if player == nil {
		fresh, err := s.fetch(ctx, k, key)
		if err != nil {
			return Reply{}, err
		}
		return Reply{Message: k.Renderer.RenderSnapshot(fresh)}, nil
	}

	fresh, err := s.fetch(ctx, k, k.Descriptor.Key(player.Values))
	if err != nil {
		return Reply{}, err
	}
	snapshot := player.Values.Clone()
	for name, v := range fresh {
		snapshot[name] = v
	}
	reply := Reply{Message: k.Renderer.RenderSnapshot(snapshot)}

	if _, err := s.engine.Apply(ctx, k.Store, k.Renderer, player, fresh); err != nil {
		log.Error("Failed to apply fetched player", "kind", k.Kind(), "player", player.ID, "error", err)
		s.reporter.Report(ctx, err)
	}
	return reply, nil
}

// leaderboard lists the group's players by their first ranked field, highest first.
func (s *Service) leaderboard(ctx context.Context, k game.Kind, req Request, _ []string) (Reply, error) {
	players, err := k.Store.ListForGroup(ctx, req.GroupID)
	if err != nil {
		return Reply{}, err
	}
	rank := rankField(k.Descriptor)
	sort.SliceStable(players, func(i, j int) bool {
		return players[i].Player.Values.Float(rank) > players[j].Player.Values.Float(rank)
	})
	return Reply{Message: k.Renderer.RenderLeaderboard(players)}, nil
}

func (s *Service) fetch(ctx context.Context, k game.Kind, key schema.Values) (schema.Values, error) {
	ctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	fresh, err := k.Source.Fetch(ctx, key)
	switch {
	case err == nil:
		return fresh, nil
	case errs.Is(err, errs.ErrNotFound):
		log.Info("Player not found at source", "kind", k.Kind(), "key", key, "error", err)
		return nil, errs.Newf(errs.ErrNotFound, "no %s player matches %s", k.Kind(), keyText(k.Descriptor, key))
	case ctx.Err() != nil:
		return nil, errs.Wrapf(err, errs.ErrTransientSource, "fetch %s player", k.Kind())
	default:
		return nil, err
	}
}

func private(text string) Reply {
	return Reply{Message: notifier.Message{Text: text}, Ephemeral: true}
}

func public(text string) Reply {
	return Reply{Message: notifier.Message{Text: text}}
}
