package tracker

import (
	"context"

	"github.com/cockroachdb/errors"
)

// SetChannelIfUnset records channelID for groupID unless the group already
// has a channel.
func (s *Store) SetChannelIfUnset(ctx context.Context, groupID, channelID string) error {
	return s.execChannel(ctx, s.q.setChannelIfUnset, groupID, channelID)
}

// SetChannel records channelID for groupID, replacing any previous one.
func (s *Store) SetChannel(ctx context.Context, groupID, channelID string) error {
	return s.execChannel(ctx, s.q.setChannel, groupID, channelID)
}

func (s *Store) execChannel(ctx context.Context, query, groupID, channelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin channel transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, query, groupID, channelID); err != nil {
		return errors.Wrapf(err, "set channel of group %s", groupID)
	}
	return errors.Wrap(tx.Commit(), "commit channel transaction")
}

func (s *Store) Channel(ctx context.Context, groupID string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var channelID string
	if err := s.db.GetContext(ctx, &channelID, s.q.channel, groupID); err != nil {
		if isNoRows(err) {
			return "", false, nil
		}
		return "", false, errors.Wrapf(err, "get channel of group %s", groupID)
	}
	return channelID, true, nil
}

// ChannelsForPlayer returns the channel of every group subscribed to the
// player. Groups without a channel are left out.
func (s *Store) ChannelsForPlayer(ctx context.Context, playerID int64) ([]SubscriberChannel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var channels []SubscriberChannel
	if err := s.db.SelectContext(ctx, &channels, s.q.channelsForPlayer, playerID); err != nil {
		return nil, errors.Wrapf(err, "list channels of %s player %d", s.desc.Kind(), playerID)
	}
	return channels, nil
}
