package metrics

import (
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
)

// Service holds all the Prometheus metrics for the application.
// By defining them all in one place, we ensure consistency in naming and labeling.
type Service struct {
	JobRuns            *prometheus.CounterVec
	JobDuration        *prometheus.HistogramVec
	PlayersRefreshed   *prometheus.CounterVec
	FetchFailures      *prometheus.CounterVec
	NotableChanges     *prometheus.CounterVec
	PlayersDeleted     *prometheus.CounterVec
	NotifSent          prometheus.Counter
	NotifFailed        prometheus.Counter
	StartupTimeSeconds prometheus.Gauge
}

// store handles metric-related database operations.
type store struct {
	db *sqlx.DB
	mu sync.Mutex
}
