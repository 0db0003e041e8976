package http

import (
	"net/http"

	"github.com/mauv0809/rankwatch/internal/commands"
	"github.com/mauv0809/rankwatch/internal/config"
	"github.com/mauv0809/rankwatch/internal/metrics"
)

func NewServer(jobs Jobs, cmds commands.Handler, counters metrics.MetricsStore, metricsHandler http.Handler, cfg config.Config) *Server {
	server := &Server{
		Jobs:           jobs,
		Commands:       cmds,
		Counters:       counters,
		MetricsHandler: metricsHandler,
		Cfg:            cfg,
		Router:         http.NewServeMux(),
	}

	server.routes()
	return server
}

func (s *Server) routes() {
	s.Router.Handle("/metrics", s.MetricsHandler)
	s.Router.Handle("GET /health", Chain(s.HealthCheckHandler(), requestMiddleware))
	s.Router.Handle("GET /stats", Chain(s.StatsHandler(), requestMiddleware))
	s.Router.Handle("POST /refresh", Chain(s.RefreshHandler(), requestMiddleware))
	s.Router.Handle("POST /cleanup", Chain(s.CleanupHandler(), requestMiddleware))
	s.Router.Handle("POST /slack/command", Chain(s.SlackCommandHandler(), requestMiddleware))
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}
