// Package httpapi the HTTP surface of aquaflow: water requests, tank
// levels and forecasts, filter health. All responses use the Result
// envelope the mobile app expects.
package httpapi

import (
	"database/sql"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Router uses the standard library http.ServeMux
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterRequestRoutes registers the water request endpoints.
func (r *Router) RegisterRequestRoutes(h *RequestsHandler) {
	r.Handle("/api/v1/requests", func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case http.MethodPost:
			h.Create(w, req)
		case http.MethodGet:
			h.List(w, req)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	// /api/v1/requests/{id}/{action}
	r.Handle("/api/v1/requests/", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		rest := strings.TrimPrefix(req.URL.Path, "/api/v1/requests/")
		id, op, ok := strings.Cut(rest, "/")
		if !ok || id == "" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		switch op {
		case "transition":
			h.Transition(w, req, id)
		case "accept":
			h.Accept(w, req, id)
		case "decline":
			h.Decline(w, req, id)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

// RegisterTankRoutes registers the tank level and forecast endpoints.
func (r *Router) RegisterTankRoutes(h *TanksHandler) {
	r.Handle("/api/v1/tanks/", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		rest := strings.TrimPrefix(req.URL.Path, "/api/v1/tanks/")
		uid, op, ok := strings.Cut(rest, "/")
		if !ok || uid == "" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		switch op {
		case "level":
			h.Level(w, req, uid)
		case "forecast":
			h.Forecast(w, req, uid)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

// RegisterFilterRoutes registers the filter health endpoints.
func (r *Router) RegisterFilterRoutes(h *FiltersHandler) {
	r.Handle("/api/v1/filters/", func(w http.ResponseWriter, req *http.Request) {
		rest := strings.TrimPrefix(req.URL.Path, "/api/v1/filters/")
		uid, op, ok := strings.Cut(rest, "/")
		if !ok || uid == "" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		switch {
		case op == "health" && req.Method == http.MethodGet:
			h.Health(w, req, uid)
		case op == "reset" && req.Method == http.MethodPost:
			h.Reset(w, req, uid)
		case op == "health" || op == "reset":
			w.WriteHeader(http.StatusMethodNotAllowed)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

// RegisterUserRoutes registers the per-user notification endpoints.
func (r *Router) RegisterUserRoutes(h *NotificationsHandler) {
	r.Handle("/api/v1/users/", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		rest := strings.TrimPrefix(req.URL.Path, "/api/v1/users/")
		uid, op, ok := strings.Cut(rest, "/")
		if !ok || uid == "" || op != "notifications" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.List(w, req, uid)
	})
}

// BrokerStatus connectivity of the sensor feed, reported on /healthz.
type BrokerStatus interface {
	IsConnected() bool
}

// RegisterHealthz registers the liveness probe. The database ping keeps the
// probe honest without making it flap on transient Redis issues; broker
// connectivity is reported but never fails the probe, since the feed
// auto-reconnects.
func (r *Router) RegisterHealthz(db *sql.DB, broker BrokerStatus) {
	r.Handle("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if db != nil {
			if err := db.PingContext(req.Context()); err != nil {
				r.logger.Error("Health check database ping failed", zap.Error(err))
				writeJSON(w, http.StatusServiceUnavailable, Fail("database unavailable"))
				return
			}
		}
		status := map[string]string{"status": "ok"}
		if broker != nil {
			status["mqtt"] = "disconnected"
			if broker.IsConnected() {
				status["mqtt"] = "connected"
			}
		}
		writeJSON(w, http.StatusOK, Ok(status))
	})
}
