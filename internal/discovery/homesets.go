package discovery

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/hummans/PeopleSyncClient/internal/dav"
)

// resolveHomeSets returns the complete set of home-set URLs reachable from
// start by following proxy and group-membership relations. Relations are
// expanded transitively from the starting resource only: resources reached
// through a relation are queried for home sets but their own relations are
// not followed, which bounds discovery in the presence of membership
// cycles.
func resolveHomeSets(ctx context.Context, client *dav.Client, cfg typeConfig, start *url.URL, logger *slog.Logger) (map[string]struct{}, error) {
	homeSets := make(map[string]struct{})
	if err := queryHomeSets(ctx, client, cfg, start, true, homeSets, logger); err != nil {
		return nil, err
	}
	return homeSets, nil
}

func queryHomeSets(ctx context.Context, client *dav.Client, cfg typeConfig, u *url.URL, followRelations bool, homeSets map[string]struct{}, logger *slog.Logger) error {
	props := append([]dav.PropName{cfg.homeSetProp}, cfg.relationProps...)

	ms, err := client.Propfind(ctx, u.String(), 0, props...)
	if err != nil {
		// A resource the server refuses to answer for contributes nothing;
		// only server-side or transport failures abort the refresh.
		if dav.IsClientError(err) {
			logger.Info("home set query rejected, skipping resource",
				"url", u.String(), "error", err)
			return nil
		}
		return err
	}

	var related []*url.URL
	for _, resp := range ms.Responses {
		if !resp.OK {
			continue
		}

		base := u
		if resp.Href != "" {
			if resolved, err := dav.ResolveHref(u, resp.Href); err == nil {
				base = resolved
			}
		}

		for _, href := range resp.Props.HomeSets {
			hsURL, err := dav.ResolveCollectionURL(base, href)
			if err != nil {
				logger.Info("ignoring malformed home set href", "href", href, "error", err)
				continue
			}
			homeSets[hsURL] = struct{}{}
		}

		if !followRelations {
			continue
		}
		relations := make([]string, 0,
			len(resp.Props.GroupMembership)+len(resp.Props.ProxyReadFor)+len(resp.Props.ProxyWriteFor))
		relations = append(relations, resp.Props.GroupMembership...)
		relations = append(relations, resp.Props.ProxyReadFor...)
		relations = append(relations, resp.Props.ProxyWriteFor...)
		for _, href := range relations {
			rel, err := dav.ResolveHref(base, href)
			if err != nil {
				logger.Info("ignoring malformed relation href", "href", href, "error", err)
				continue
			}
			related = append(related, rel)
		}
	}

	for _, rel := range related {
		if err := queryHomeSets(ctx, client, cfg, rel, false, homeSets, logger); err != nil {
			return err
		}
	}

	return nil
}
