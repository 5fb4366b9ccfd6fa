package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/hummans/PeopleSyncClient/internal/dav"
	"github.com/hummans/PeopleSyncClient/internal/storage"
)

// scanCollections lists the collections under each home set and re-confirms
// previously known collections that no listing reached. It returns a fresh
// working map keyed by collection URL, each record marked confirmed, and
// the home-set set with stale entries pruned. Inputs are treated as
// immutable snapshots.
//
// Home sets answering 403, 404 or 410 are dropped from the set; known
// collections answering likewise, or whose resource type no longer matches
// the service, are dropped from the map. Any other failure aborts the scan.
func scanCollections(ctx context.Context, client *dav.Client, cfg typeConfig, homeSets map[string]struct{}, known map[string]storage.Collection, logger *slog.Logger) (map[string]storage.Collection, map[string]struct{}, error) {
	remaining := make(map[string]struct{}, len(homeSets))
	for u := range homeSets {
		remaining[u] = struct{}{}
	}

	working := make(map[string]storage.Collection, len(known))
	for u, col := range known {
		col.Confirmed = false
		working[u] = col
	}

	// Part A: list children of every home set.
	for _, hsURL := range sortedKeys(homeSets) {
		ms, err := client.Propfind(ctx, hsURL, 1, cfg.collectionProps...)
		if err != nil {
			if dav.IsIgnorableStatus(err) {
				logger.Info("removing stale home set", "url", hsURL, "error", err)
				delete(remaining, hsURL)
				continue
			}
			return nil, nil, fmt.Errorf("listing home set %s: %w", hsURL, err)
		}

		hsBase, err := url.Parse(hsURL)
		if err != nil {
			return nil, nil, fmt.Errorf("parsing home set URL %q: %w", hsURL, err)
		}

		for _, resp := range ms.Responses {
			if !resp.OK || resp.Href == "" {
				continue
			}
			colURL, err := dav.ResolveCollectionURL(hsBase, resp.Href)
			if err != nil {
				logger.Info("ignoring malformed collection href", "href", resp.Href, "error", err)
				continue
			}
			col, usable := buildCollection(cfg, colURL, resp.Props)
			if !usable {
				continue
			}
			col.Confirmed = true
			if old, exists := working[colURL]; exists {
				col.ID = old.ID
				col.ServiceID = old.ServiceID
			}
			working[colURL] = col
		}
	}

	// Part B: collections not reached through any home set (membership may
	// have changed) are confirmed directly at their own URL.
	for _, colURL := range sortedKeys(working) {
		if working[colURL].Confirmed {
			continue
		}

		ms, err := client.Propfind(ctx, colURL, 0, cfg.collectionProps...)
		if err != nil {
			if dav.IsIgnorableStatus(err) {
				logger.Info("removing vanished collection", "url", colURL, "error", err)
				delete(working, colURL)
				continue
			}
			return nil, nil, fmt.Errorf("confirming collection %s: %w", colURL, err)
		}

		confirmed := false
		for _, resp := range ms.Responses {
			if !resp.OK {
				continue
			}
			col, usable := buildCollection(cfg, colURL, resp.Props)
			if usable {
				old := working[colURL]
				col.ID = old.ID
				col.ServiceID = old.ServiceID
				col.Confirmed = true
				working[colURL] = col
				confirmed = true
			}
			break
		}
		if !confirmed {
			logger.Info("dropping unusable collection", "url", colURL)
			delete(working, colURL)
		}
	}

	return working, remaining, nil
}
