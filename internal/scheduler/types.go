package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/mauv0809/rankwatch/internal/fanout"
	"github.com/mauv0809/rankwatch/internal/game"
	"github.com/mauv0809/rankwatch/internal/metrics"
	"github.com/mauv0809/rankwatch/internal/notifier"
	"github.com/sourcegraph/conc"
)

// Job is a repeating unit of work. The next run starts Interval after the
// previous one finished.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

type Config struct {
	RefreshInterval time.Duration
	CleanupInterval time.Duration
	FetchTimeout    time.Duration
}

// Scheduler drives the refresh and cleanup jobs.
type Scheduler struct {
	registry *game.Registry
	engine   *fanout.Engine
	sink     notifier.Sink
	reporter notifier.Reporter
	metrics  metrics.Metrics
	counters metrics.MetricsStore
	cfg      Config

	refreshMu sync.Mutex
	cleanupMu sync.Mutex

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     *conc.WaitGroup
}

// SweepResult counts the outcome of one refresh run.
type SweepResult struct {
	Players   int `json:"players"`
	Refreshed int `json:"refreshed"`
	Failed    int `json:"failed"`
	Changed   int `json:"changed"`
}
