package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/hummans/PeopleSyncClient/internal/discovery"
	"github.com/hummans/PeopleSyncClient/internal/storage"
)

type handler struct {
	refresher *discovery.Refresher
	registry  *discovery.Registry
	store     Store
	logger    *slog.Logger
	hub       *eventHub
}

type serviceJSON struct {
	ID           int64  `json:"id"`
	AccountName  string `json:"account_name"`
	Type         string `json:"type"`
	PrincipalURL string `json:"principal_url,omitempty"`
	Refreshing   bool   `json:"refreshing"`
}

type collectionJSON struct {
	ID          int64   `json:"id"`
	ServiceID   int64   `json:"service_id"`
	URL         string  `json:"url"`
	Type        string  `json:"type"`
	DisplayName *string `json:"display_name,omitempty"`
	Description *string `json:"description,omitempty"`
	Color       *string `json:"color,omitempty"`
	Source      *string `json:"source,omitempty"`
	SyncEnabled bool    `json:"sync_enabled"`
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) listServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.store.ListServices(r.Context())
	if err != nil {
		h.serverError(w, "listing services", err)
		return
	}

	out := make([]serviceJSON, 0, len(services))
	for _, svc := range services {
		out = append(out, serviceJSON{
			ID:           svc.ID,
			AccountName:  svc.AccountName,
			Type:         string(svc.Type),
			PrincipalURL: svc.PrincipalURL.OrElse(""),
			Refreshing:   h.registry.IsRefreshing(svc.ID),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) startRefresh(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if _, err := h.store.GetService(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "service not found", http.StatusNotFound)
			return
		}
		h.serverError(w, "loading service", err)
		return
	}

	h.refresher.StartRefresh(id)
	writeJSON(w, http.StatusAccepted, map[string]any{"service_id": id})
}

func (h *handler) serviceStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, statusEvent{
		ServiceID:  id,
		Refreshing: h.registry.IsRefreshing(id),
	})
}

func (h *handler) listCollections(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	collections, err := h.store.GetCollections(r.Context(), id)
	if err != nil {
		h.serverError(w, "listing collections", err)
		return
	}

	out := make([]collectionJSON, 0, len(collections))
	for _, col := range collections {
		out = append(out, collectionJSON{
			ID:          col.ID,
			ServiceID:   col.ServiceID,
			URL:         col.URL,
			Type:        string(col.Type),
			DisplayName: optPtr(col.DisplayName),
			Description: optPtr(col.Description),
			Color:       optPtr(col.Color),
			Source:      optPtr(col.Source),
			SyncEnabled: col.SyncEnabled,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) setCollectionSync(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var body struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.store.SetCollectionSync(r.Context(), id, body.Enabled); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "collection not found", http.StatusNotFound)
			return
		}
		h.serverError(w, "updating sync selection", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) forceSync(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Authority string `json:"authority"`
		Account   string `json:"account"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Authority == "" || body.Account == "" {
		http.Error(w, "authority and account are required", http.StatusBadRequest)
		return
	}

	h.refresher.ForceSync(body.Authority, body.Account)
	w.WriteHeader(http.StatusAccepted)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// statusStream upgrades to a websocket, replays the currently refreshing
// services and then streams every state transition until the client goes
// away.
func (h *handler) statusStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	h.hub.add(conn)
	defer h.hub.remove(conn)

	for _, id := range h.registry.RefreshingIDs() {
		if err := h.hub.send(conn, statusEvent{ServiceID: id, Refreshing: true}); err != nil {
			return
		}
	}

	// Drain client frames; the stream is one-directional.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *handler) serverError(w http.ResponseWriter, msg string, err error) {
	h.logger.Error(msg, "error", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func optPtr(o interface{ Get() (string, bool) }) *string {
	if v, ok := o.Get(); ok {
		return &v
	}
	return nil
}
