// Package geometry resolves UGC zone and county boundaries so alerts without
// a warning polygon can still be drawn. Boundaries change rarely, so results
// are cached with a long TTL and persisted across restarts.
package geometry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/nws-alert-relay/internal/domain"
	"github.com/couchcryptid/nws-alert-relay/internal/observability"
)

// ErrNotFound marks a UGC code the upstream has no boundary for. Fetchers
// return it so the resolver can cache the miss instead of re-asking.
var ErrNotFound = errors.New("zone geometry not found")

// Fetcher retrieves a zone or county boundary from the upstream API.
type Fetcher interface {
	ZoneGeometry(ctx context.Context, ugc string) (domain.Ring, error)
}

// maxConcurrentFetches bounds parallel upstream requests; a multi-zone watch
// can reference dozens of codes at once.
const maxConcurrentFetches = 10

// Resolver caches zone boundaries with a TTL and coalesces concurrent
// requests for the same code into one upstream fetch.
type Resolver struct {
	fetcher Fetcher
	ttl     time.Duration
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics

	sem chan struct{}

	mu       sync.Mutex
	entries  map[string]*cacheEntry
	inflight map[string]*inflightCall
}

type cacheEntry struct {
	Ring     domain.Ring `json:"geometry"`
	CachedAt time.Time   `json:"cached_at"`
	Negative bool        `json:"negative,omitempty"`
}

type inflightCall struct {
	done chan struct{}
	ring domain.Ring
	err  error
}

// NewResolver creates a Resolver. A nil clock uses the real one.
func NewResolver(fetcher Fetcher, ttl time.Duration, clk clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Resolver {
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	return &Resolver{
		fetcher:  fetcher,
		ttl:      ttl,
		clock:    clk,
		logger:   logger.With("component", "geometry"),
		metrics:  metrics,
		sem:      make(chan struct{}, maxConcurrentFetches),
		entries:  make(map[string]*cacheEntry),
		inflight: make(map[string]*inflightCall),
	}
}

// Resolve returns the boundary for one UGC code. A cached miss returns
// ErrNotFound without touching the upstream until the TTL lapses.
func (r *Resolver) Resolve(ctx context.Context, ugc string) (domain.Ring, error) {
	now := r.clock.Now()

	r.mu.Lock()
	if e, ok := r.entries[ugc]; ok && now.Sub(e.CachedAt) < r.ttl {
		r.mu.Unlock()
		if e.Negative {
			r.metrics.GeometryCache.WithLabelValues("negative").Inc()
			return nil, fmt.Errorf("%s: %w", ugc, ErrNotFound)
		}
		r.metrics.GeometryCache.WithLabelValues("hit").Inc()
		return e.Ring, nil
	}

	// Coalesce: one upstream fetch per code, everyone else waits on it.
	if call, ok := r.inflight[ugc]; ok {
		r.mu.Unlock()
		select {
		case <-call.done:
			return call.ring, call.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	call := &inflightCall{done: make(chan struct{})}
	r.inflight[ugc] = call
	r.mu.Unlock()

	r.metrics.GeometryCache.WithLabelValues("miss").Inc()
	call.ring, call.err = r.fetch(ctx, ugc)

	r.mu.Lock()
	delete(r.inflight, ugc)
	switch {
	case call.err == nil:
		r.entries[ugc] = &cacheEntry{Ring: call.ring, CachedAt: now}
	case errors.Is(call.err, ErrNotFound):
		r.entries[ugc] = &cacheEntry{CachedAt: now, Negative: true}
	}
	r.mu.Unlock()
	close(call.done)

	return call.ring, call.err
}

func (r *Resolver) fetch(ctx context.Context, ugc string) (domain.Ring, error) {
	select {
	case r.sem <- struct{}{}:
		defer func() { <-r.sem }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	start := r.clock.Now()
	ring, err := r.fetcher.ZoneGeometry(ctx, ugc)
	r.metrics.GeometryFetchDuration.Observe(r.clock.Since(start).Seconds())

	if err != nil && !errors.Is(err, ErrNotFound) {
		r.logger.Warn("zone geometry fetch failed", "ugc", ugc, "error", err)
	}
	return ring, err
}

// Populate resolves every code concurrently and returns the boundaries that
// resolved, in code order. Codes without a boundary are skipped; nil when
// none resolve. Used to give polygon-less alerts a shape covering the whole
// affected area. Upstream fan-out stays bounded by the fetch semaphore.
func (r *Resolver) Populate(ctx context.Context, codes []string) []domain.Ring {
	results := make([]domain.Ring, len(codes))

	var wg sync.WaitGroup
	for i, ugc := range codes {
		wg.Add(1)
		go func(i int, ugc string) {
			defer wg.Done()
			ring, err := r.Resolve(ctx, ugc)
			if err == nil && len(ring) > 0 {
				results[i] = ring
			}
		}(i, ugc)
	}
	wg.Wait()

	var rings []domain.Ring
	for _, ring := range results {
		if ring != nil {
			rings = append(rings, ring)
		}
	}
	return rings
}

type cacheFile struct {
	SavedAt time.Time              `json:"saved_at"`
	Zones   map[string]*cacheEntry `json:"zones"`
}

// SaveCache persists the cache so a restart does not refetch every boundary.
func (r *Resolver) SaveCache(path string) error {
	r.mu.Lock()
	file := cacheFile{
		SavedAt: r.clock.Now().UTC(),
		Zones:   make(map[string]*cacheEntry, len(r.entries)),
	}
	for ugc, e := range r.entries {
		file.Zones[ugc] = e
	}
	r.mu.Unlock()

	data, err := json.Marshal(file)
	if err != nil {
		return fmt.Errorf("marshal geometry cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create geometry cache dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write geometry cache: %w", err)
	}

	r.logger.Info("geometry cache saved", "path", path, "zones", len(file.Zones))
	return nil
}

// LoadCache restores a persisted cache. Entries past the TTL are dropped on
// load; a missing file is not an error.
func (r *Resolver) LoadCache(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read geometry cache: %w", err)
	}

	var file cacheFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse geometry cache %s: %w", path, err)
	}

	now := r.clock.Now()
	loaded := 0
	r.mu.Lock()
	for ugc, e := range file.Zones {
		if e == nil || now.Sub(e.CachedAt) >= r.ttl {
			continue
		}
		r.entries[ugc] = e
		loaded++
	}
	r.mu.Unlock()

	r.logger.Info("geometry cache loaded", "path", path, "zones", loaded)
	return nil
}

// Len returns the number of cached boundaries, negative entries included.
func (r *Resolver) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
