package daemon

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/sitehub/internal/config"
	"git.home.luguber.info/inful/sitehub/internal/logfields"
	"git.home.luguber.info/inful/sitehub/internal/site"
)

// Identities converts configured sites to registry identities.
func Identities(sites []config.Site) []site.Identity {
	ids := make([]site.Identity, 0, len(sites))
	for _, s := range sites {
		ids = append(ids, site.Identity{Name: s.Name, ServiceURL: s.ServiceURL, SiteURL: s.SiteURL})
	}
	return ids
}

// CachedSites reports the handles already built for a site.
type CachedSites interface {
	Lookup(name string) (*site.Bundle, bool)
}

// SiteReloader returns a ReloadFunc that swaps the directory's site set.
// Cached handles are bound to the service URL they were built with, so a
// site whose service_url changed keeps its previous URL until restart.
func SiteReloader(cached CachedSites, directory *site.Directory, logger *slog.Logger) ReloadFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(_ context.Context, cfg *config.Config) error {
		ids := Identities(cfg.Sites)
		for i, id := range ids {
			b, ok := cached.Lookup(id.Name)
			if !ok || b.ServiceURL() == id.ServiceURL {
				continue
			}
			logger.Warn("Site service URL changed in configuration; restart to apply",
				logfields.Site(id.Name),
				logfields.ServiceURL(b.ServiceURL()),
				slog.String("configured_service_url", id.ServiceURL))
			ids[i].ServiceURL = b.ServiceURL()
		}
		directory.Replace(ids)
		logger.Info("Site list reloaded", slog.Int("sites", len(ids)))
		return nil
	}
}
