package http

import (
	"context"
	"net/http"

	"github.com/mauv0809/rankwatch/internal/commands"
	"github.com/mauv0809/rankwatch/internal/config"
	"github.com/mauv0809/rankwatch/internal/metrics"
	"github.com/mauv0809/rankwatch/internal/scheduler"
)

// Jobs runs the scheduler jobs on demand.
type Jobs interface {
	RefreshOnce(ctx context.Context) (scheduler.SweepResult, error)
	CleanupOnce(ctx context.Context) (int64, error)
}

type Server struct {
	Jobs           Jobs
	Commands       commands.Handler
	Counters       metrics.MetricsStore
	MetricsHandler http.Handler
	Cfg            config.Config
	Router         *http.ServeMux
}
