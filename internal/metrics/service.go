package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var _ Metrics = (*Service)(nil)

// NewMetricsHandler returns an http.Handler for the given Gatherer.
// If no gatherer is provided, it uses the default one.
func NewMetricsHandler(gatherer ...prometheus.Gatherer) http.Handler {
	gath := prometheus.DefaultGatherer
	if len(gatherer) > 0 {
		gath = gatherer[0]
	}
	return promhttp.HandlerFor(gath, promhttp.HandlerOpts{})
}

// NewService creates and registers the Prometheus metrics.
// If no registerer is provided, it uses the default Prometheus registerer.
func NewService(registerer ...prometheus.Registerer) *Service {
	reg := prometheus.DefaultRegisterer
	if len(registerer) > 0 {
		reg = registerer[0]
	}

	s := &Service{
		JobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rankwatch_job_runs_total",
			Help: "The total number of completed scheduler job runs.",
		}, []string{"job"}),
		JobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rankwatch_job_duration_seconds",
			Help:    "The duration of a full scheduler job run.",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"job"}),
		PlayersRefreshed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rankwatch_players_refreshed_total",
			Help: "The total number of players successfully re-fetched.",
		}, []string{"kind"}),
		FetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rankwatch_fetch_failures_total",
			Help: "The total number of failed player fetches.",
		}, []string{"kind"}),
		NotableChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rankwatch_notable_changes_total",
			Help: "The total number of player changes that triggered notifications.",
		}, []string{"kind"}),
		PlayersDeleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rankwatch_players_deleted_total",
			Help: "The total number of unsubscribed players removed by cleanup.",
		}, []string{"kind"}),
		NotifSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rankwatch_notifications_sent_total",
			Help: "The total number of notifications successfully delivered.",
		}),
		NotifFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rankwatch_notifications_failed_total",
			Help: "The total number of notifications that failed to deliver.",
		}),
		StartupTimeSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rankwatch_startup_duration_seconds",
			Help: "The duration of the application startup in seconds.",
		}),
	}

	reg.MustRegister(
		s.JobRuns,
		s.JobDuration,
		s.PlayersRefreshed,
		s.FetchFailures,
		s.NotableChanges,
		s.PlayersDeleted,
		s.NotifSent,
		s.NotifFailed,
		s.StartupTimeSeconds,
	)

	return s
}

func (s *Service) IncJobRuns(job string) {
	s.JobRuns.WithLabelValues(job).Inc()
}

func (s *Service) ObserveJobDuration(job string, seconds float64) {
	s.JobDuration.WithLabelValues(job).Observe(seconds)
}

func (s *Service) IncPlayersRefreshed(kind string) {
	s.PlayersRefreshed.WithLabelValues(kind).Inc()
}

func (s *Service) IncFetchFailures(kind string) {
	s.FetchFailures.WithLabelValues(kind).Inc()
}

func (s *Service) IncNotableChanges(kind string) {
	s.NotableChanges.WithLabelValues(kind).Inc()
}

func (s *Service) AddPlayersDeleted(kind string, n int64) {
	s.PlayersDeleted.WithLabelValues(kind).Add(float64(n))
}

func (s *Service) IncNotifSent() {
	s.NotifSent.Inc()
}

func (s *Service) IncNotifFailed() {
	s.NotifFailed.Inc()
}

func (s *Service) SetStartupTime(seconds float64) {
	s.StartupTimeSeconds.Set(seconds)
}
