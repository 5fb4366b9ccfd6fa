package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hummans/PeopleSyncClient/internal/dav"
	"github.com/hummans/PeopleSyncClient/internal/metrics"
	"github.com/hummans/PeopleSyncClient/internal/notify"
	"github.com/hummans/PeopleSyncClient/internal/storage"
)

// Store is the persistence surface the refresh engine consumes. The two
// Update methods each apply their diff as a single atomic unit.
type Store interface {
	GetService(ctx context.Context, id int64) (*storage.Service, error)
	GetHomeSets(ctx context.Context, serviceID int64) ([]storage.HomeSet, error)
	GetCollections(ctx context.Context, serviceID int64) ([]storage.Collection, error)
	UpdateHomeSets(ctx context.Context, serviceID int64, insertURLs []string, deleteIDs []int64) error
	UpdateCollections(ctx context.Context, serviceID int64, insert, update []storage.Collection, deleteIDs []int64) error
}

// ErrAccountGone is returned by a ClientFactory when the account behind a
// service no longer exists. The refresh is abandoned silently in that case.
var ErrAccountGone = errors.New("account no longer exists")

// ClientFactory produces an authenticated DAV client scoped to one account.
// The returned release function must be called when the operation ends,
// regardless of outcome.
type ClientFactory interface {
	ClientFor(accountName string, foreground bool) (client *dav.Client, release func(), err error)
}

// SyncRequester triggers an immediate out-of-band synchronization pass in
// the host's sync machinery.
type SyncRequester interface {
	RequestSync(authority, account string) error
}

// Refresher owns the end-to-end collection refresh per service: it resolves
// home sets, scans collections, reconciles the result against the store and
// reports status through the registry.
type Refresher struct {
	store    Store
	clients  ClientFactory
	notifier notify.Notifier
	registry *Registry
	syncer   SyncRequester
	logger   *slog.Logger
}

// NewRefresher wires a refresher. syncer may be nil when the host has no
// sync machinery to delegate to.
func NewRefresher(store Store, clients ClientFactory, notifier notify.Notifier, registry *Registry, syncer SyncRequester, logger *slog.Logger) *Refresher {
	return &Refresher{
		store:    store,
		clients:  clients,
		notifier: notifier,
		registry: registry,
		syncer:   syncer,
		logger:   logger,
	}
}

// Registry returns the status registry refreshes are reported through.
func (r *Refresher) Registry() *Registry {
	return r.registry
}

// StartRefresh triggers collection discovery for a service and returns
// immediately. A request for a service that is already refreshing is
// dropped, not queued.
func (r *Refresher) StartRefresh(serviceID int64) {
	if !r.registry.beginRefresh(serviceID) {
		r.logger.Debug("refresh already in flight, dropping request", "service_id", serviceID)
		return
	}
	go r.refresh(serviceID)
}

// ForceSync requests an immediate, manually-triggered synchronization pass
// for the given authority and account. Fire and forget.
func (r *Refresher) ForceSync(authority, account string) {
	if r.syncer == nil {
		r.logger.Debug("no sync requester configured", "authority", authority, "account", account)
		return
	}
	if err := r.syncer.RequestSync(authority, account); err != nil {
		r.logger.Error("force sync request failed",
			"authority", authority, "account", account, "error", err)
	}
}

func (r *Refresher) refresh(serviceID int64) {
	// The transition back to idle must happen exactly once on every exit
	// path, including panics in the refresh body.
	defer r.registry.endRefresh(serviceID)

	runID := uuid.NewString()
	logger := r.logger.With("service_id", serviceID, "run_id", runID)
	start := time.Now()

	svcType, err := r.runRefresh(context.Background(), serviceID, logger)
	typeLabel := string(svcType)
	if typeLabel == "" {
		typeLabel = "unknown"
	}

	switch {
	case err == nil:
		metrics.ObserveRefresh(typeLabel, metrics.OutcomeSuccess, time.Since(start))
		r.notifier.Cancel(notificationKey(serviceID))
		logger.Info("refresh complete", "duration", time.Since(start))
	case errors.Is(err, ErrAccountGone):
		metrics.ObserveRefresh(typeLabel, metrics.OutcomeAccountGone, time.Since(start))
		logger.Info("account no longer exists, abandoning refresh", "error", err)
	default:
		metrics.ObserveRefresh(typeLabel, metrics.OutcomeFailure, time.Since(start))
		logger.Error("refresh failed", "error", err)
		r.notifier.NotifyFailure(
			notificationKey(serviceID),
			"Collection discovery failed",
			err.Error(),
			map[string]string{
				"service_id": fmt.Sprintf("%d", serviceID),
				"run_id":     runID,
			})
	}
}

func (r *Refresher) runRefresh(ctx context.Context, serviceID int64, logger *slog.Logger) (svcType storage.ServiceType, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("refresh panicked: %v", p)
		}
	}()

	svc, err := r.store.GetService(ctx, serviceID)
	if err != nil {
		return "", fmt.Errorf("loading service %d: %w", serviceID, err)
	}
	svcType = svc.Type
	cfg := configFor(svc.Type)

	persistedHomeSets, err := r.store.GetHomeSets(ctx, serviceID)
	if err != nil {
		return svcType, fmt.Errorf("loading home sets: %w", err)
	}
	persistedCols, err := r.store.GetCollections(ctx, serviceID)
	if err != nil {
		return svcType, fmt.Errorf("loading collections: %w", err)
	}

	client, release, err := r.clients.ClientFor(svc.AccountName, true)
	if err != nil {
		return svcType, err
	}
	defer release()

	homeSets := make(map[string]struct{}, len(persistedHomeSets))
	for _, hs := range persistedHomeSets {
		homeSets[hs.URL] = struct{}{}
	}

	if principal, ok := svc.PrincipalURL.Get(); ok {
		principalURL, err := client.ResolveURL(principal)
		if err != nil {
			return svcType, fmt.Errorf("resolving principal URL: %w", err)
		}
		discovered, err := resolveHomeSets(ctx, client, cfg, principalURL, logger)
		if err != nil {
			return svcType, fmt.Errorf("resolving home sets: %w", err)
		}
		for u := range discovered {
			homeSets[u] = struct{}{}
		}
	} else {
		logger.Info("service has no principal, relying on persisted home sets")
	}

	known := make(map[string]storage.Collection, len(persistedCols))
	for _, col := range persistedCols {
		known[col.URL] = col
	}

	// Snapshot the user's sync selections before the scanner rewrites
	// records with server state; they are reapplied verbatim afterwards.
	syncSelected := make(map[string]bool, len(known))
	for u, col := range known {
		syncSelected[u] = col.SyncEnabled
	}

	working, prunedHomeSets, err := scanCollections(ctx, client, cfg, homeSets, known, logger)
	if err != nil {
		return svcType, err
	}

	for u, col := range working {
		if enabled, ok := syncSelected[u]; ok {
			col.SyncEnabled = enabled
			working[u] = col
		}
	}

	insertHS, deleteHS := diffHomeSets(persistedHomeSets, prunedHomeSets)
	if err := r.store.UpdateHomeSets(ctx, serviceID, insertHS, deleteHS); err != nil {
		return svcType, fmt.Errorf("persisting home sets: %w", err)
	}

	insertCols, updateCols, deleteCols := diffCollections(persistedCols, working)
	if err := r.store.UpdateCollections(ctx, serviceID, insertCols, updateCols, deleteCols); err != nil {
		return svcType, fmt.Errorf("persisting collections: %w", err)
	}

	logger.Info("reconciled collections",
		"home_sets", len(prunedHomeSets),
		"collections", len(working),
		"inserted", len(insertCols),
		"updated", len(updateCols),
		"deleted", len(deleteCols))
	return svcType, nil
}

func notificationKey(serviceID int64) string {
	return fmt.Sprintf("refresh-service-%d", serviceID)
}
