package discovery

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hummans/PeopleSyncClient/internal/dav"
	"github.com/hummans/PeopleSyncClient/internal/storage"
)

// DiscoverPrincipal locates the current-user principal for a freshly
// configured service. Candidate locations are tried in order: the
// configured endpoint path itself (when one is set), the well-known path
// for the service type, and finally the server root. The first candidate
// that reports a principal wins; candidates that fail are skipped.
func DiscoverPrincipal(ctx context.Context, client *dav.Client, svcType storage.ServiceType, logger *slog.Logger) (string, error) {
	cfg := configFor(svcType)
	base := client.BaseURL()

	var candidates []string
	if base.Path != "" && base.Path != "/" {
		candidates = append(candidates, base.String())
	}
	candidates = append(candidates, cfg.wellKnownPath, "/")

	for _, candidate := range candidates {
		ms, err := client.Propfind(ctx, candidate, 0, dav.PropCurrentUserPrincipal)
		if err != nil {
			logger.Debug("principal candidate failed", "candidate", candidate, "error", err)
			continue
		}

		queried, err := client.ResolveURL(candidate)
		if err != nil {
			continue
		}
		for _, resp := range ms.Responses {
			if !resp.OK {
				continue
			}
			href, ok := resp.Props.CurrentUserPrincipal.Get()
			if !ok {
				continue
			}
			principal, err := dav.ResolveHref(queried, href)
			if err != nil {
				logger.Debug("ignoring malformed principal href", "href", href, "error", err)
				continue
			}
			logger.Info("found current-user-principal",
				"candidate", candidate, "principal", principal.String())
			return principal.String(), nil
		}
	}

	return "", fmt.Errorf("could not find current-user-principal at %s", base)
}
