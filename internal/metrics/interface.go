package metrics

// Metrics defines the interface for collecting application metrics.
// This decouples the application from the specific metrics implementation (e.g., Prometheus).
type Metrics interface {
	IncJobRuns(job string)
	ObserveJobDuration(job string, seconds float64)
	IncPlayersRefreshed(kind string)
	IncFetchFailures(kind string)
	IncNotableChanges(kind string)
	AddPlayersDeleted(kind string, n int64)
	IncNotifSent()
	IncNotifFailed()
	SetStartupTime(seconds float64)
}

// MetricsStore keeps lifetime counters that survive restarts.
type MetricsStore interface {
	Increment(key string)
	GetAll() (map[string]int, error)
}
