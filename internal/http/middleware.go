package http

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-Id"

// Middleware wraps a handler.
type Middleware func(http.Handler) http.Handler

// Chain applies middlewares so that the first one runs outermost.
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// requestMiddleware tags the request with an id, logs it and honours
// verbose=true by logging at debug level until the handler returns.
func requestMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		if r.URL.Query().Get("verbose") == "true" {
			level := log.GetLevel()
			log.SetLevel(log.DebugLevel)
			defer log.SetLevel(level)
		}

		start := time.Now()
		log.Info("Incoming request", "method", r.Method, "path", r.URL.Path, "request_id", id)
		next.ServeHTTP(w, r)
		log.Debug("Request handled", "path", r.URL.Path, "request_id", id, "duration_ms", time.Since(start).Milliseconds())
	})
}
