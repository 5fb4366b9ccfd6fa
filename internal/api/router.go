// Package api exposes the daemon's trigger and status interfaces over HTTP:
// REST endpoints for starting refreshes and inspecting state, and a
// websocket stream of refresh status transitions.
package api

import (
	"context"
	"log/slog"

	"github.com/gorilla/mux"

	"github.com/hummans/PeopleSyncClient/internal/discovery"
	"github.com/hummans/PeopleSyncClient/internal/metrics"
	"github.com/hummans/PeopleSyncClient/internal/storage"
)

// Store is the read/write surface the API needs from persistence.
type Store interface {
	ListServices(ctx context.Context) ([]storage.Service, error)
	GetService(ctx context.Context, id int64) (*storage.Service, error)
	GetCollections(ctx context.Context, serviceID int64) ([]storage.Collection, error)
	SetCollectionSync(ctx context.Context, id int64, enabled bool) error
}

// Options configures NewRouter.
type Options struct {
	Refresher *discovery.Refresher
	Registry  *discovery.Registry
	Store     Store
	Logger    *slog.Logger

	PrometheusEnabled bool
}

// NewRouter creates the HTTP router. The returned cancel function revokes
// the router's registry subscription and must be called on shutdown.
func NewRouter(opts Options) (*mux.Router, func()) {
	h := &handler{
		refresher: opts.Refresher,
		registry:  opts.Registry,
		store:     opts.Store,
		logger:    opts.Logger,
		hub:       newEventHub(opts.Logger),
	}

	sub := opts.Registry.Subscribe(func(serviceID int64, refreshing bool) {
		h.hub.broadcast(statusEvent{ServiceID: serviceID, Refreshing: refreshing})
	}, false)

	r := mux.NewRouter()
	r.Use(metrics.Middleware)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", h.health).Methods("GET")
	api.HandleFunc("/services", h.listServices).Methods("GET")
	api.HandleFunc("/services/{id}/refresh", h.startRefresh).Methods("POST")
	api.HandleFunc("/services/{id}/status", h.serviceStatus).Methods("GET")
	api.HandleFunc("/services/{id}/collections", h.listCollections).Methods("GET")
	api.HandleFunc("/collections/{id}/sync", h.setCollectionSync).Methods("PUT")
	api.HandleFunc("/sync", h.forceSync).Methods("POST")
	api.HandleFunc("/ws", h.statusStream).Methods("GET")

	if opts.PrometheusEnabled {
		r.Handle("/metrics", metrics.Handler()).Methods("GET")
	}

	return r, sub.Cancel
}
