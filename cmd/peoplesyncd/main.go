// Command peoplesyncd is the collection discovery daemon: it keeps the
// address book and calendar collection lists of the configured accounts in
// sync with their CardDAV/CalDAV servers and exposes trigger/status
// interfaces over HTTP.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hummans/PeopleSyncClient/internal/account"
	"github.com/hummans/PeopleSyncClient/internal/api"
	"github.com/hummans/PeopleSyncClient/internal/config"
	"github.com/hummans/PeopleSyncClient/internal/discovery"
	"github.com/hummans/PeopleSyncClient/internal/notify"
	"github.com/hummans/PeopleSyncClient/internal/storage"

	"github.com/samber/mo"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("daemon exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	store, err := storage.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	accounts, err := account.LoadManager(cfg.AccountsPath, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ensureServices(ctx, store, accounts, logger)

	registry := discovery.NewRegistry()
	notifier := notify.NewLogNotifier(logger)
	refresher := discovery.NewRefresher(store, accounts, notifier, registry,
		&logSyncRequester{logger: logger}, logger)

	scheduler := discovery.NewScheduler(refresher, store, cfg.RefreshInterval, logger)
	if err := scheduler.Start(); err != nil {
		return err
	}
	defer scheduler.Stop()

	// First discovery pass right away; the scheduler takes over from here.
	if services, err := store.ListServices(ctx); err == nil {
		for _, svc := range services {
			refresher.StartRefresh(svc.ID)
		}
	}

	router, cancelSub := api.NewRouter(api.Options{
		Refresher:         refresher,
		Registry:          registry,
		Store:             store,
		Logger:            logger,
		PrometheusEnabled: cfg.PrometheusEnabled,
	})
	defer cancelSub()

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening", "addr", cfg.ListenAddr)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// ensureServices creates the service rows for every configured account and
// discovers missing principals. Failures are logged and skipped: a server
// that is down at startup gets another chance on the next refresh.
func ensureServices(ctx context.Context, store *storage.Store, accounts *account.Manager, logger *slog.Logger) {
	types := []storage.ServiceType{storage.ServiceAddressBook, storage.ServiceCalendar}

	for _, acct := range accounts.Accounts() {
		for _, typ := range types {
			svc, err := store.GetServiceByAccount(ctx, acct.Name, typ)
			if errors.Is(err, storage.ErrNotFound) {
				svc = &storage.Service{AccountName: acct.Name, Type: typ}
				if err := store.CreateService(ctx, svc); err != nil {
					logger.Error("creating service", "account", acct.Name, "type", typ, "error", err)
					continue
				}
				logger.Info("created service", "account", acct.Name, "type", typ, "service_id", svc.ID)
			} else if err != nil {
				logger.Error("loading service", "account", acct.Name, "type", typ, "error", err)
				continue
			}

			if svc.PrincipalURL.IsPresent() {
				continue
			}

			client, release, err := accounts.ClientFor(acct.Name, true)
			if err != nil {
				logger.Error("building client for bootstrap", "account", acct.Name, "error", err)
				continue
			}
			principal, err := discovery.DiscoverPrincipal(ctx, client, typ, logger)
			release()
			if err != nil {
				logger.Warn("principal discovery failed, relying on persisted home sets",
					"account", acct.Name, "type", typ, "error", err)
				continue
			}
			if err := store.SetPrincipalURL(ctx, svc.ID, mo.Some(principal)); err != nil {
				logger.Error("persisting principal URL", "service_id", svc.ID, "error", err)
			}
		}
	}
}

// logSyncRequester satisfies discovery.SyncRequester for deployments without
// a content sync engine to delegate to.
type logSyncRequester struct {
	logger *slog.Logger
}

func (s *logSyncRequester) RequestSync(authority, account string) error {
	s.logger.Info("immediate sync requested", "authority", authority, "account", account)
	return nil
}
