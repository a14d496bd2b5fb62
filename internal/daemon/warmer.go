package daemon

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"git.home.luguber.info/inful/sitehub/internal/logfields"
	"git.home.luguber.info/inful/sitehub/internal/site"
)

// SiteLookup is the registry operation the warmer drives.
type SiteLookup interface {
	GetOrCreate(ctx context.Context, id site.Identity) (*site.Bundle, error)
}

// SiteSource supplies the sites to warm on each pass.
type SiteSource interface {
	List() []site.Identity
}

// Warmer looks up every configured site so handles exist before the first
// request and dead deployment pairs get replaced, which reattaches their
// event forwarding.
type Warmer struct {
	registry SiteLookup
	sites    SiteSource
	logger   *slog.Logger
	timeout  time.Duration

	mu  sync.RWMutex
	ctx context.Context
}

// NewWarmer returns a warmer looking up the sites of source in registry.
// timeout bounds one full pass; zero means no bound.
func NewWarmer(registry SiteLookup, source SiteSource, timeout time.Duration, logger *slog.Logger) *Warmer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Warmer{registry: registry, sites: source, logger: logger, timeout: timeout, ctx: context.Background()}
}

// WarmAll looks up every site once. Failures do not stop the pass; they are
// joined into the returned error.
func (w *Warmer) WarmAll(ctx context.Context) (int, error) {
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	start := time.Now()
	var errs []error
	warmed := 0
	for _, id := range w.sites.List() {
		if _, err := w.registry.GetOrCreate(ctx, id); err != nil {
			w.logger.Warn("Site warm-up failed", logfields.Site(id.Name), logfields.Error(err))
			errs = append(errs, err)
			continue
		}
		warmed++
	}
	w.logger.Debug("Warm-up pass finished", "warmed", warmed, "failed", len(errs),
		logfields.DurationMS(float64(time.Since(start).Milliseconds())))
	return warmed, errors.Join(errs...)
}

// Schedule registers a periodic warm-up pass on s. Passes run with the
// context given to Run.
func (w *Warmer) Schedule(s *Scheduler, interval time.Duration) (string, error) {
	return s.ScheduleEvery("site-warmup", interval, func() {
		w.mu.RLock()
		ctx := w.ctx
		w.mu.RUnlock()
		_, _ = w.WarmAll(ctx)
	})
}

// Run sets the context scheduled passes use.
func (w *Warmer) Run(ctx context.Context) {
	w.mu.Lock()
	w.ctx = ctx
	w.mu.Unlock()
}
