package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/maalaph/voicematch/internal/observe"
)

// defaultRefreshInterval is the default period between catalog refreshes.
const defaultRefreshInterval = 15 * time.Minute

// Cache persists catalog snapshots across restarts. A cache is a fallback,
// not a source of truth: refreshes write through to it and startup reads
// from it only when the upstream provider is unreachable.
//
// Implemented by pgstore.Store.
type Cache interface {
	// ReplaceAll makes the cached set equal to the given voices.
	ReplaceAll(ctx context.Context, voices []Voice) error

	// LoadAll returns the cached voices and the time of the most recent
	// write (zero when the cache is empty).
	LoadAll(ctx context.Context) ([]Voice, time.Time, error)
}

// Refresher keeps a [Store] in sync with an upstream [Provider].
//
// A failed refresh leaves the current snapshot in place, so the matcher
// keeps serving the last known catalog through provider outages.
//
// All methods are safe for concurrent use.
type Refresher struct {
	provider Provider
	store    *Store
	cache    Cache
	interval time.Duration
	log      *slog.Logger
	metrics  *observe.Metrics

	// mu serialises refreshes so write-through cache updates cannot
	// interleave out of order.
	mu       sync.Mutex
	done     chan struct{}
	stopOnce sync.Once
}

// RefresherConfig configures a [Refresher].
type RefresherConfig struct {
	// Provider supplies the candidate set on every refresh.
	Provider Provider

	// Store receives the refreshed snapshots.
	Store *Store

	// Cache is an optional persistent fallback. When nil, refreshes are
	// not written through and [Refresher.Prime] has no fallback.
	Cache Cache

	// Interval is how often to refresh. Defaults to 15 minutes if zero.
	Interval time.Duration

	// Logger receives refresh diagnostics. Defaults to [slog.Default].
	Logger *slog.Logger

	// Metrics receives refresh counters and catalog size. Defaults to
	// [observe.DefaultMetrics].
	Metrics *observe.Metrics
}

// NewRefresher creates a new [Refresher] with the given configuration.
func NewRefresher(cfg RefresherConfig) *Refresher {
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultRefreshInterval
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	return &Refresher{
		provider: cfg.Provider,
		store:    cfg.Store,
		cache:    cfg.Cache,
		interval: interval,
		log:      log,
		metrics:  metrics,
		done:     make(chan struct{}),
	}
}

// Start begins periodic refreshing in a background goroutine.
// The goroutine runs until [Refresher.Stop] is called or ctx is cancelled.
func (r *Refresher) Start(ctx context.Context) {
	go r.loop(ctx)
}

// Stop halts the refresh loop. Safe to call multiple times.
func (r *Refresher) Stop() {
	r.stopOnce.Do(func() {
		close(r.done)
	})
}

// RefreshNow fetches the catalog from the provider, installs it as the new
// snapshot and writes it through to the cache. On error the previous
// snapshot stays in place.
//
// A successful fetch that returns zero voices is treated as an upstream
// fault when a non-empty snapshot is already installed.
func (r *Refresher) RefreshNow(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ctx, span := observe.StartSpan(ctx, "catalog.refresh")
	defer span.End()

	start := time.Now()
	voices, err := r.provider.FetchVoices(ctx)
	if err != nil {
		r.metrics.RecordRefresh(ctx, "error")
		return fmt.Errorf("catalog: refresh: %w", err)
	}
	if len(voices) == 0 && r.store.Len() > 0 {
		r.metrics.RecordRefresh(ctx, "error")
		return errors.New("catalog: refresh: provider returned no voices, keeping current snapshot")
	}

	snap := r.store.Swap(voices)
	r.metrics.RecordRefresh(ctx, "ok")
	r.metrics.RefreshDuration.Record(ctx, time.Since(start).Seconds())
	r.metrics.CatalogSize.Record(ctx, int64(len(snap.Voices)))

	r.log.Info("catalog refreshed",
		slog.Int("voices", len(snap.Voices)),
		slog.Int64("version", snap.Version),
		slog.Duration("took", time.Since(start)))

	if r.cache != nil {
		if err := r.cache.ReplaceAll(ctx, snap.Voices); err != nil {
			// The swap already succeeded; a cache failure only weakens
			// the startup fallback.
			r.log.Warn("catalog cache write failed",
				slog.String("error", err.Error()))
		}
	}
	return nil
}

// Prime populates the store for the first time. The provider is tried
// first; when it fails and a cache is configured, the most recent cached
// catalog is restored instead, so a restart during an upstream outage
// still serves the last known voices.
func (r *Refresher) Prime(ctx context.Context) error {
	fetchErr := r.RefreshNow(ctx)
	if fetchErr == nil {
		return nil
	}
	if r.cache == nil {
		return fetchErr
	}

	r.log.Warn("catalog fetch failed, trying cache",
		slog.String("error", fetchErr.Error()))

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.store.Ready() {
		// A concurrent refresh installed a snapshot in the meantime.
		return nil
	}

	voices, cachedAt, err := r.cache.LoadAll(ctx)
	if err != nil {
		return errors.Join(fetchErr, err)
	}
	if len(voices) == 0 {
		return fmt.Errorf("catalog: prime: cache is empty: %w", fetchErr)
	}

	snap := r.store.Swap(voices)
	r.metrics.CatalogSize.Record(ctx, int64(len(snap.Voices)))
	r.log.Info("catalog restored from cache",
		slog.Int("voices", len(snap.Voices)),
		slog.Time("cached_at", cachedAt))
	return nil
}

// loop runs the periodic refresh ticker.
func (r *Refresher) loop(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.done:
			return
		case <-ticker.C:
			if err := r.RefreshNow(ctx); err != nil {
				r.log.Warn("periodic catalog refresh failed",
					slog.String("error", err.Error()))
			}
		}
	}
}
