package app

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"ticketd/cmd/internal/auth"
	"ticketd/cmd/internal/realtime"
	"ticketd/cmd/internal/web"
)

// buildRouter wires the middleware chain and every route.
//
// Order: request id, security headers, panic recovery, auth resolver,
// request logging, metrics, then the route. Protected routes add the auth gate.
func (a *App) buildRouter(h *web.Handler, resolver *auth.Resolver, feed *realtime.WSGateway) http.Handler {
	r := chi.NewRouter()

	r.Use(WithRequestID)
	r.Use(WithSecurityHeaders)
	r.Use(WithRecovery(a.log, h.Fail))
	r.Use(resolver.Middleware)
	r.Use(WithRequestLogging(a.log))
	r.Use(a.metrics.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	r.Get("/readyz", a.handleReadyz)

	if a.cfg.MetricsEnabled {
		r.Handle("/metrics", a.metrics.Handler())
	}

	h.Register(r, auth.RequireAuth(h.Fail), feed)
	return r
}

func (a *App) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if a.cfg.ReadinessRequireDB && !a.dbEnabled {
		http.Error(w, "db not configured", http.StatusServiceUnavailable)
		return
	}

	if a.dbEnabled && a.dbPool != nil {
		if err := PingDB(r.Context(), a.dbPool, 2*time.Second); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			a.log.Info("readyz.db.not_ready", "err", err)
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready\n"))
}
