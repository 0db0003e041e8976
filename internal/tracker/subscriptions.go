package tracker

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/mauv0809/rankwatch/internal/errs"
	"github.com/mauv0809/rankwatch/internal/schema"
)

// Subscribe makes groupID watch the player. It reports whether a new
// subscription was created; subscribing twice is a no-op. Subscribing to a
// player that does not exist is an integrity violation.
func (s *Store) Subscribe(ctx context.Context, groupID string, playerID int64, ownerTag *string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, errors.Wrap(err, "begin subscribe transaction")
	}
	defer tx.Rollback()

	var one int
	if err := tx.GetContext(ctx, &one, s.q.exists, playerID); err != nil {
		if isNoRows(err) {
			return false, errs.Newf(errs.ErrIntegrityViolation, "%s: subscribe to unknown player %d", s.desc.Kind(), playerID)
		}
		return false, errors.Wrap(err, "check player")
	}

	res, err := tx.ExecContext(ctx, s.q.subscribe, groupID, playerID, ownerTag)
	if err != nil {
		return false, errors.Wrapf(err, "subscribe %s to %s player %d", groupID, s.desc.Kind(), playerID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, errors.Wrap(err, "commit subscribe transaction")
	}
	return n > 0, nil
}

// CreateAndSubscribe stores the player unless its natural key is taken, then
// subscribes groupID to the record holding that key, in one transaction. It
// reports whether a new subscription was created.
func (s *Store) CreateAndSubscribe(ctx context.Context, groupID string, values schema.Values, ownerTag *string) (*Player, bool, error) {
	if err := s.desc.Require(values); err != nil {
		return nil, false, err
	}
	norm, err := s.desc.Normalize(values)
	if err != nil {
		return nil, false, err
	}
	var keyCols []string
	var keyArgs []any
	for _, f := range s.desc.KeyFields() {
		keyCols = append(keyCols, f.Name)
		keyArgs = append(keyArgs, norm[f.Name])
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, false, errors.Wrap(err, "begin subscribe transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.q.insert, s.insertArgs(norm)...); err != nil {
		return nil, false, errors.Wrapf(err, "insert %s player", s.desc.Kind())
	}
	players, err := s.queryPlayers(ctx, tx, s.q.selectWhere(keyCols), keyArgs...)
	if err != nil {
		return nil, false, err
	}
	if len(players) == 0 {
		return nil, false, errs.Newf(errs.ErrIntegrityViolation, "%s: no player holds the key after insert", s.desc.Kind())
	}
	player := players[0]

	res, err := tx.ExecContext(ctx, s.q.subscribe, groupID, player.ID, ownerTag)
	if err != nil {
		return nil, false, errors.Wrapf(err, "subscribe %s to %s player %d", groupID, s.desc.Kind(), player.ID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, err
	}
	if err := tx.Commit(); err != nil {
		return nil, false, errors.Wrap(err, "commit subscribe transaction")
	}
	return player, n > 0, nil
}

// Unsubscribe removes the subscription and reports whether one existed.
func (s *Store) Unsubscribe(ctx context.Context, groupID string, playerID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, errors.Wrap(err, "begin unsubscribe transaction")
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, s.q.unsubscribe, groupID, playerID)
	if err != nil {
		return false, errors.Wrapf(err, "unsubscribe %s from %s player %d", groupID, s.desc.Kind(), playerID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, errors.Wrap(err, "commit unsubscribe transaction")
	}
	return n > 0, nil
}

// ListForGroup returns the players groupID watches, with each
// subscription's owner tag.
func (s *Store) ListForGroup(ctx context.Context, groupID string) ([]SubscribedPlayer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryxContext(ctx, s.q.listForGroup, groupID)
	if err != nil {
		return nil, errors.Wrapf(err, "list %s players of group %s", s.desc.Kind(), groupID)
	}
	defer rows.Close()

	var out []SubscribedPlayer
	for rows.Next() {
		p, extras, err := s.scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, SubscribedPlayer{Player: p, OwnerTag: ownerTag(extras[ownerTagAlias])})
	}
	return out, errors.Wrap(rows.Err(), "iterate group players")
}

// FindByOwner returns the player groupID subscribed on behalf of ownerTag,
// or nil.
func (s *Store) FindByOwner(ctx context.Context, groupID, ownerTag string) (*Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	players, err := s.queryPlayers(ctx, s.db, s.q.findByOwner, groupID, ownerTag)
	if err != nil || len(players) == 0 {
		return nil, err
	}
	return players[0], nil
}

func ownerTag(v any) *string {
	switch t := v.(type) {
	case string:
		return &t
	case []byte:
		s := string(t)
		return &s
	}
	return nil
}
