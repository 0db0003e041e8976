package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestService_CountsByLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := NewService(reg)

	s.IncJobRuns("refresh")
	s.IncJobRuns("refresh")
	s.IncJobRuns("cleanup")
	s.IncFetchFailures("raider")
	s.AddPlayersDeleted("raider", 3)
	s.IncNotifSent()

	assert.Equal(t, 2.0, testutil.ToFloat64(s.JobRuns.WithLabelValues("refresh")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.JobRuns.WithLabelValues("cleanup")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.FetchFailures.WithLabelValues("raider")))
	assert.Equal(t, 3.0, testutil.ToFloat64(s.PlayersDeleted.WithLabelValues("raider")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.NotifSent))
	assert.Equal(t, 0.0, testutil.ToFloat64(s.NotifFailed))
}
