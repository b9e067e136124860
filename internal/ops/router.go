// Package ops serves the HTTP side channel of a server: health, prometheus
// metrics and read-only JSON views of the registry or the lobby.
package ops

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mcoot/gamehub/internal/api/response"
	"github.com/mcoot/gamehub/internal/metrics"
	"github.com/mcoot/gamehub/internal/middleware"
	"github.com/mcoot/gamehub/internal/services/lobby"
	"github.com/mcoot/gamehub/internal/services/registry"
)

// RouterConfig holds configuration for the ops router. Registry and Lobby
// are optional; their views are only mounted when set.
type RouterConfig struct {
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
	Registry *registry.Service
	Lobby    *lobby.Controller
}

// NewRouter creates the ops router
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.Recovery(cfg.Logger, middleware.DefaultPanicHandler))
	r.Use(middleware.Logging(cfg.Logger, "/healthz", "/metrics"))

	r.HandleFunc("/healthz", healthHandler).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(cfg.Metrics.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	if cfg.Registry != nil {
		games := &gameViews{registry: cfg.Registry}
		api.HandleFunc("/games", games.List).Methods(http.MethodGet)
		api.HandleFunc("/games/{id}", games.Get).Methods(http.MethodGet)
	}
	if cfg.Lobby != nil {
		rooms := &roomViews{lobby: cfg.Lobby}
		api.HandleFunc("/rooms", rooms.List).Methods(http.MethodGet)
		api.HandleFunc("/rooms/{id}", rooms.Get).Methods(http.MethodGet)
		api.HandleFunc("/players", rooms.Players).Methods(http.MethodGet)
	}

	return r
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
