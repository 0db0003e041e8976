package scheduler

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/mauv0809/rankwatch/internal/errs"
	"github.com/mauv0809/rankwatch/internal/fanout"
	"github.com/mauv0809/rankwatch/internal/game"
	"github.com/mauv0809/rankwatch/internal/metrics"
	"github.com/mauv0809/rankwatch/internal/notifier"
	"github.com/mauv0809/rankwatch/internal/schema"
	"github.com/mauv0809/rankwatch/internal/tracker"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
)

const (
	JobRefresh = "refresh"
	JobCleanup = "cleanup"
)

// New creates a scheduler. counters may be nil.
func New(registry *game.Registry, engine *fanout.Engine, sink notifier.Sink, reporter notifier.Reporter, m metrics.Metrics, counters metrics.MetricsStore, cfg Config) *Scheduler {
	return &Scheduler{
		registry: registry,
		engine:   engine,
		sink:     sink,
		reporter: reporter,
		metrics:  m,
		counters: counters,
		cfg:      cfg,
	}
}

// Jobs returns the refresh and cleanup jobs.
func (s *Scheduler) Jobs() []Job {
	return []Job{
		{
			Name:     JobRefresh,
			Interval: s.cfg.RefreshInterval,
			Run: func(ctx context.Context) error {
				_, err := s.RefreshOnce(ctx)
				return err
			},
		},
		{
			Name:     JobCleanup,
			Interval: s.cfg.CleanupInterval,
			Run: func(ctx context.Context) error {
				_, err := s.CleanupOnce(ctx)
				return err
			},
		},
	}
}

// Start runs every job in its own goroutine. Each job waits until the sink
// is ready, then repeats until Stop is called or ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.wg = conc.NewWaitGroup()
	for _, job := range s.Jobs() {
		s.wg.Go(func() { s.loop(ctx, job) })
	}
	log.Info("Scheduler started", "refresh", s.cfg.RefreshInterval, "cleanup", s.cfg.CleanupInterval)
}

// Stop ends the job loops. A run in progress is allowed to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, wg := s.cancel, s.wg
	s.cancel, s.wg = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	wg.Wait()
	log.Info("Scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, job Job) {
	select {
	case <-s.sink.Ready():
	case <-ctx.Done():
		return
	}
	log.Info("Job released", "job", job.Name)

	for {
		// Stopping only takes effect between runs.
		s.runJob(context.WithoutCancel(ctx), job)

		select {
		case <-ctx.Done():
			return
		case <-time.After(job.Interval):
		}
	}
}

func (s *Scheduler) runJob(ctx context.Context, job Job) {
	start := time.Now()

	var err error
	var catcher panics.Catcher
	catcher.Try(func() { err = job.Run(ctx) })
	if r := catcher.Recovered(); r != nil {
		err = errors.Wrapf(r.AsError(), "job %s panicked", job.Name)
		s.reporter.Report(ctx, err)
	}

	elapsed := time.Since(start)
	s.metrics.IncJobRuns(job.Name)
	s.metrics.ObserveJobDuration(job.Name, elapsed.Seconds())
	if s.counters != nil {
		s.counters.Increment(job.Name + "_runs")
	}

	if err != nil {
		log.Error("Job run failed", "job", job.Name, "duration", elapsed, "error", err)
		if errs.Is(err, errs.ErrIntegrityViolation) {
			s.reporter.Report(ctx, err)
		}
	}
}

// RefreshOnce re-fetches every subscribed player of every kind, one at a
// time, and applies notable changes. A failing player is counted and
// skipped; only failing to list players is returned as an error.
func (s *Scheduler) RefreshOnce(ctx context.Context) (SweepResult, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	logger := log.With("job", JobRefresh, "run", uuid.NewString())
	logger.Info("Starting refresh")

	var res SweepResult
	var jobErr error
	for _, k := range s.registry.All() {
		players, err := k.Store.ListSubscribed(ctx)
		if err != nil {
			jobErr = errors.CombineErrors(jobErr, errors.Wrapf(err, "list subscribed %s players", k.Kind()))
			continue
		}
		for _, p := range players {
			res.Players++
			changed, err := s.refreshPlayer(ctx, k, p)
			if err != nil {
				res.Failed++
				s.metrics.IncFetchFailures(k.Kind())
				s.logPlayerFailure(ctx, logger, k.Kind(), p, err)
				continue
			}
			res.Refreshed++
			if changed {
				res.Changed++
			}
		}
	}

	logger.Info("Refresh complete", "players", res.Players, "refreshed", res.Refreshed, "failed", res.Failed, "changed", res.Changed)
	return res, jobErr
}

// refreshPlayer fetches and applies one player. Panics are caught and
// returned as errors so they only affect this player.
func (s *Scheduler) refreshPlayer(ctx context.Context, k game.Kind, p *tracker.Player) (changed bool, err error) {
	var catcher panics.Catcher
	catcher.Try(func() {
		fresh, fetchErr := s.fetch(ctx, k.Source, k.Descriptor.Key(p.Values))
		if fetchErr != nil {
			err = fetchErr
			return
		}
		s.metrics.IncPlayersRefreshed(k.Kind())

		res, applyErr := s.engine.Apply(ctx, k.Store, k.Renderer, p, fresh)
		changed, err = res.Notable, applyErr
	})
	if r := catcher.Recovered(); r != nil {
		err = errs.Mark(r.AsError(), errs.ErrIntegrityViolation)
	}
	return changed, err
}

// fetch bounds one Source call by FetchTimeout, even if the source ignores
// its context.
func (s *Scheduler) fetch(ctx context.Context, src game.Source, key schema.Values) (schema.Values, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	defer cancel()

	type result struct {
		values schema.Values
		err    error
	}
	done := make(chan result, 1)
	go func() {
		var r result
		var catcher panics.Catcher
		catcher.Try(func() { r.values, r.err = src.Fetch(ctx, key) })
		if rec := catcher.Recovered(); rec != nil {
			r.err = errs.Mark(rec.AsError(), errs.ErrIntegrityViolation)
		}
		done <- r
	}()

	select {
	case r := <-done:
		if r.err != nil && ctx.Err() != nil && !errs.Is(r.err, errs.ErrTransientSource) {
			r.err = errs.Mark(r.err, errs.ErrTransientSource)
		}
		return r.values, r.err
	case <-ctx.Done():
		return nil, errs.Wrapf(ctx.Err(), errs.ErrTransientSource, "fetch timed out after %s", s.cfg.FetchTimeout)
	}
}

func (s *Scheduler) logPlayerFailure(ctx context.Context, logger *log.Logger, kind string, p *tracker.Player, err error) {
	keyvals := []any{"kind", kind, "player", p.ID, "error", err, "reason", errs.KindOf(err)}
	switch {
	case errs.Is(err, errs.ErrIntegrityViolation):
		logger.Error("Player refresh violated store integrity", keyvals...)
		s.reporter.Report(ctx, err)
	case errs.Is(err, errs.ErrNotFound):
		logger.Warn("Player no longer resolves at source", keyvals...)
	default:
		logger.Warn("Player refresh failed, retrying next run", keyvals...)
	}
}

// CleanupOnce deletes every player without subscribers, for every kind.
func (s *Scheduler) CleanupOnce(ctx context.Context) (int64, error) {
	s.cleanupMu.Lock()
	defer s.cleanupMu.Unlock()

	logger := log.With("job", JobCleanup, "run", uuid.NewString())

	var total int64
	var jobErr error
	for _, k := range s.registry.All() {
		n, err := k.Store.DeleteUnsubscribed(ctx)
		if err != nil {
			jobErr = errors.CombineErrors(jobErr, errors.Wrapf(err, "delete unsubscribed %s players", k.Kind()))
			continue
		}
		s.metrics.AddPlayersDeleted(k.Kind(), n)
		total += n
		logger.Info("Deleted unsubscribed players", "kind", k.Kind(), "count", n)
	}
	return total, jobErr
}
