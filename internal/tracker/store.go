package tracker

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"
	"github.com/mauv0809/rankwatch/internal/errs"
	"github.com/mauv0809/rankwatch/internal/schema"
)

var _ Tracker = (*Store)(nil)

// New creates the store of one player kind. Call EnsureSchema before use.
func New(db *sqlx.DB, desc *schema.Descriptor) *Store {
	return &Store{
		db:   db,
		desc: desc,
		q:    buildQueries(desc),
	}
}

func (s *Store) Descriptor() *schema.Descriptor { return s.desc }

// EnsureSchema creates the kind's tables if needed and registers the kind.
// A kind whose stored layout differs from its descriptor is rejected.
func (s *Store) EnsureSchema(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin schema transaction")
	}
	defer tx.Rollback()

	for _, stmt := range []string{s.q.createPlayers, s.q.createSubscriptions, s.q.createSubsIndex, s.q.createChannels} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "create tables for kind %s", s.desc.Kind())
		}
	}

	sig := signature(s.desc)
	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO kinds (name, fields, registered_at) VALUES (?, ?, ?)`,
		s.desc.Kind(), sig, time.Now().Unix()); err != nil {
		return errors.Wrapf(err, "register kind %s", s.desc.Kind())
	}
	var stored string
	if err := tx.GetContext(ctx, &stored, `SELECT fields FROM kinds WHERE name = ?`, s.desc.Kind()); err != nil {
		return errors.Wrapf(err, "read kind %s", s.desc.Kind())
	}
	if stored != sig {
		return errs.Newf(errs.ErrIntegrityViolation,
			"kind %s was created with fields (%s) but is now declared with (%s)", s.desc.Kind(), stored, sig)
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit schema transaction")
	}
	log.Debug("Ensured player kind schema", "kind", s.desc.Kind())
	return nil
}

// Create inserts a player unless one with the same natural key exists. It
// returns the new player and true, or nil and false on a key conflict.
func (s *Store) Create(ctx context.Context, values schema.Values) (*Player, bool, error) {
	if err := s.desc.Require(values); err != nil {
		return nil, false, err
	}
	norm, err := s.desc.Normalize(values)
	if err != nil {
		return nil, false, err
	}

	args := s.insertArgs(norm)

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, false, errors.Wrap(err, "begin create transaction")
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, s.q.insert, args...)
	if err != nil {
		return nil, false, errors.Wrapf(err, "insert %s player", s.desc.Kind())
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, err
	}
	if n == 0 {
		return nil, false, nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, false, err
	}
	if err := tx.Commit(); err != nil {
		return nil, false, errors.Wrap(err, "commit create transaction")
	}

	log.Debug("Created player", "kind", s.desc.Kind(), "id", id)
	return &Player{ID: id, Kind: s.desc.Kind(), Values: norm}, true, nil
}

// Find returns the first player matching every field of predicate, which may
// include the surrogate id. It returns nil when nothing matches.
func (s *Store) Find(ctx context.Context, predicate schema.Values) (*Player, error) {
	if len(predicate) == 0 {
		return nil, errs.Newf(errs.ErrIntegrityViolation, "%s: empty lookup predicate", s.desc.Kind())
	}
	norm, err := s.desc.Normalize(predicate)
	if err != nil {
		return nil, err
	}

	columns := make([]string, 0, len(norm))
	for name := range norm {
		columns = append(columns, name)
	}
	sort.Strings(columns)
	args := make([]any, len(columns))
	for i, c := range columns {
		args[i] = norm[c]
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	players, err := s.queryPlayers(ctx, s.db, s.q.selectWhere(columns), args...)
	if err != nil {
		return nil, err
	}
	if len(players) == 0 {
		return nil, nil
	}
	return players[0], nil
}

func (s *Store) FindByID(ctx context.Context, id int64) (*Player, error) {
	return s.Find(ctx, schema.Values{schema.IDField: id})
}

// Update overwrites the named mutable fields of one player. An unknown id
// updates nothing and is not an error.
func (s *Store) Update(ctx context.Context, id int64, values schema.Values) error {
	if len(values) == 0 {
		return nil
	}
	norm, err := s.desc.Normalize(values)
	if err != nil {
		return err
	}

	columns := make([]string, 0, len(norm))
	for _, f := range s.desc.Fields() {
		if _, ok := norm[f.Name]; !ok {
			continue
		}
		if f.Key {
			return errs.Newf(errs.ErrIntegrityViolation, "%s: key field %s cannot be updated", s.desc.Kind(), f.Name)
		}
		columns = append(columns, f.Name)
	}
	if len(columns) != len(norm) {
		return errs.Newf(errs.ErrIntegrityViolation, "%s: the surrogate id cannot be updated", s.desc.Kind())
	}
	args := make([]any, 0, len(columns)+1)
	for _, c := range columns {
		args = append(args, norm[c])
	}
	args = append(args, id)

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin update transaction")
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, s.q.update(columns), args...)
	if err != nil {
		return errors.Wrapf(err, "update %s player %d", s.desc.Kind(), id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		log.Debug("Update matched no player", "kind", s.desc.Kind(), "id", id)
	}
	return errors.Wrap(tx.Commit(), "commit update transaction")
}

// ListSubscribed returns every player with at least one subscription,
// ordered by id. Each call runs a fresh query.
func (s *Store) ListSubscribed(ctx context.Context) ([]*Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryPlayers(ctx, s.db, s.q.listSubscribed)
}

// DeleteUnsubscribed removes every player nobody subscribes to.
func (s *Store) DeleteUnsubscribed(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "begin cleanup transaction")
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, s.q.deleteUnsubscribed)
	if err != nil {
		return 0, errors.Wrapf(err, "delete unsubscribed %s players", s.desc.Kind())
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "commit cleanup transaction")
	}
	return n, nil
}

// insertArgs orders normalized values as the insert statement expects.
func (s *Store) insertArgs(norm schema.Values) []any {
	args := make([]any, 0, len(norm))
	for _, f := range s.desc.Fields() {
		args = append(args, norm[f.Name])
	}
	return args
}

// queryPlayers runs a player query and materializes every row before
// returning, so no cursor outlives the call.
func (s *Store) queryPlayers(ctx context.Context, db sqlx.QueryerContext, query string, args ...any) ([]*Player, error) {
	rows, err := db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "query %s players", s.desc.Kind())
	}
	defer rows.Close()

	var players []*Player
	for rows.Next() {
		p, _, err := s.scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, errors.Wrap(rows.Err(), "iterate players")
}

// scanPlayer reads one row of player columns plus any aliased extras, which
// are returned separately.
func (s *Store) scanPlayer(rows *sqlx.Rows) (*Player, map[string]any, error) {
	raw := make(map[string]any)
	if err := rows.MapScan(raw); err != nil {
		return nil, nil, errors.Wrap(err, "scan player row")
	}
	extras := make(map[string]any)
	for name, v := range raw {
		if name != schema.IDField && !s.desc.Has(name) {
			extras[name] = v
			delete(raw, name)
		}
	}
	values, err := s.desc.Normalize(raw)
	if err != nil {
		return nil, nil, err
	}
	id := values.Int(schema.IDField)
	delete(values, schema.IDField)
	return &Player{ID: id, Kind: s.desc.Kind(), Values: values}, extras, nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
