package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/orphanbars/realtime/internal/connection"
	"github.com/orphanbars/realtime/internal/hub"
	"github.com/orphanbars/realtime/internal/version"
)

// Presence is the part of the hub the HTTP API reads.
type Presence interface {
	http.Handler
	IsUserOnline(userID string) bool
	OnlineUserIDs() []string
	Stats() hub.Stats
}

// Pinger reports database health.
type Pinger interface {
	Ping(ctx context.Context) error
}

type routes struct {
	hub         Presence
	db          Pinger
	gatherer    prometheus.Gatherer
	metricsPath string
	logger      *slog.Logger
}

func (rt *routes) handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Handle(connection.EndpointPath, rt.hub)
	r.Get("/health", rt.health)
	r.Handle(rt.metricsPath, promhttp.HandlerFor(rt.gatherer, promhttp.HandlerOpts{}))
	r.Route("/api/presence", func(r chi.Router) {
		r.Use(middleware.NoCache)
		r.Get("/", rt.listOnline)
		r.Get("/{userID}", rt.userOnline)
	})
	return r
}

func (rt *routes) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	st := rt.hub.Stats()
	status := map[string]any{
		"status":       "healthy",
		"version":      version.Version,
		"sockets":      st.Sockets,
		"online_users": st.OnlineUsers,
		"database":     "ok",
	}

	code := http.StatusOK
	if rt.db != nil {
		if err := rt.db.Ping(ctx); err != nil {
			rt.logger.Warn("health check database ping failed", "error", err,
				"request_id", middleware.GetReqID(r.Context()))
			status["status"] = "unhealthy"
			status["database"] = err.Error()
			code = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, code, status)
}

func (rt *routes) listOnline(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"userIds": rt.hub.OnlineUserIDs(),
	})
}

func (rt *routes) userOnline(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	writeJSON(w, http.StatusOK, map[string]any{
		"userId": userID,
		"online": rt.hub.IsUserOnline(userID),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
