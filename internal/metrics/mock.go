package metrics

import "sync"

var _ Metrics = (*Mock)(nil)

// Mock is a mock implementation of the Metrics interface for testing.
// It is safe for concurrent use.
type Mock struct {
	mu               sync.Mutex
	jobRuns          map[string]int
	jobDurations     map[string][]float64
	playersRefreshed int
	fetchFailures    int
	notableChanges   int
	playersDeleted   int64
	notifSent        int
	notifFailed      int
	startupTime      float64
}

// NewMock creates a new mock instance.
func NewMock() *Mock {
	return &Mock{
		jobRuns:      make(map[string]int),
		jobDurations: make(map[string][]float64),
	}
}

func (m *Mock) IncJobRuns(job string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobRuns[job]++
}

func (m *Mock) ObserveJobDuration(job string, seconds float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobDurations[job] = append(m.jobDurations[job], seconds)
}

func (m *Mock) IncPlayersRefreshed(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playersRefreshed++
}

func (m *Mock) IncFetchFailures(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetchFailures++
}

func (m *Mock) IncNotableChanges(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notableChanges++
}

func (m *Mock) AddPlayersDeleted(_ string, n int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playersDeleted += n
}

func (m *Mock) IncNotifSent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifSent++
}

func (m *Mock) IncNotifFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifFailed++
}

func (m *Mock) SetStartupTime(seconds float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startupTime = seconds
}

// JobRuns returns the number of times IncJobRuns was called for job.
func (m *Mock) JobRuns(job string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.jobRuns[job]
}

// PlayersRefreshed returns the number of times IncPlayersRefreshed was called.
func (m *Mock) PlayersRefreshed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playersRefreshed
}

// FetchFailures returns the number of times IncFetchFailures was called.
func (m *Mock) FetchFailures() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetchFailures
}

// NotableChanges returns the number of times IncNotableChanges was called.
func (m *Mock) NotableChanges() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.notableChanges
}

// PlayersDeleted returns the sum passed to AddPlayersDeleted.
func (m *Mock) PlayersDeleted() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playersDeleted
}

// NotifSent returns the number of times IncNotifSent was called.
func (m *Mock) NotifSent() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.notifSent
}

// NotifFailed returns the number of times IncNotifFailed was called.
func (m *Mock) NotifFailed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.notifFailed
}

// MetricsStoreMock records Increment calls in memory.
type MetricsStoreMock struct {
	mu     sync.Mutex
	values map[string]int
}

func NewStoreMock() *MetricsStoreMock {
	return &MetricsStoreMock{values: make(map[string]int)}
}

func (m *MetricsStoreMock) Increment(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key]++
}

func (m *MetricsStoreMock) GetAll() (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out, nil
}
