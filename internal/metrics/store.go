package metrics

import (
	"github.com/charmbracelet/log"
	"github.com/jmoiron/sqlx"
)

// New creates a new metrics Store.
func New(db *sqlx.DB) MetricsStore {
	return &store{
		db: db,
	}
}

// Increment upserts a metric key and increments its value by one.
func (s *store) Increment(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO metrics (key, value) VALUES (?, 1)
		ON CONFLICT(key) DO UPDATE SET value = value + 1;
	`, key)
	if err != nil {
		log.Error("Failed to increment metric", "error", err, "key", key)
		return
	}
	log.Debug("Incremented metric", "key", key)
}

// GetAll returns all metrics from the database.
func (s *store) GetAll() (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows []struct {
		Key   string `db:"key"`
		Value int    `db:"value"`
	}
	if err := s.db.Select(&rows, "SELECT key, value FROM metrics"); err != nil {
		return nil, err
	}

	metrics := make(map[string]int, len(rows))
	for _, r := range rows {
		metrics[r.Key] = r.Value
	}
	return metrics, nil
}
