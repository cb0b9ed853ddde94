package greeks

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/eddiefleurent/wheelhouse/internal/models"
	"github.com/eddiefleurent/wheelhouse/internal/ratelimit"
	"github.com/eddiefleurent/wheelhouse/internal/retry"
)

// RequestState tracks one fetch request through its lifecycle.
type RequestState string

const (
	// StateQueued means the request is waiting for a dispatch slot.
	StateQueued RequestState = "queued"
	// StateInFlight means the external call is running.
	StateInFlight RequestState = "in_flight"
	// StateSucceeded means the quote was fetched and cached.
	StateSucceeded RequestState = "succeeded"
	// StateFailed means the fetch failed or was dropped; the key simply has
	// no entry in the batch result.
	StateFailed RequestState = "failed"
)

// request is one queued fetch. await distinguishes cache misses the caller
// is waiting on from background refreshes of stale entries, whose results
// only land in the cache.
type request struct {
	key   models.QuoteKey
	state RequestState
	await bool
}

// FetcherConfig controls the fetch workers.
type FetcherConfig struct {
	// RequestTimeout bounds each individual external call so one stalled
	// request cannot block the rest of the batch.
	RequestTimeout time.Duration
	// Workers bounds in-flight concurrency. Zero means the limiter's
	// per-window budget.
	Workers int
	// Retry controls per-request retries. Every attempt passes through the
	// rate limiter, so retries never bypass the budget.
	Retry retry.Config
}

// Fetcher serves Greeks quotes cache-first and dispatches misses to the
// provider FIFO under the rate limiter.
type Fetcher struct {
	provider Provider
	cache    *Cache
	limiter  *ratelimit.Limiter
	logger   *logrus.Logger
	cfg      FetcherConfig
}

// NewFetcher assembles a Fetcher.
func NewFetcher(provider Provider, cache *Cache, limiter *ratelimit.Limiter, logger *logrus.Logger, cfg FetcherConfig) *Fetcher {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if cfg.Retry.InitialBackoff <= 0 {
		cfg.Retry = retry.DefaultConfig
	}
	return &Fetcher{
		provider: provider,
		cache:    cache,
		limiter:  limiter,
		logger:   logger,
		cfg:      cfg,
	}
}

// FetchBatch resolves Greeks for all keys. Fresh and stale cache hits are
// returned immediately (stale hits also queue a background refresh); misses
// are fetched under the rate limit. A key whose fetch fails is absent from
// the result - Greeks-dependent fields degrade to "unavailable", never to
// zero - and FetchBatch itself never returns an error.
//
// Cancellation drops queued-but-undispatched requests without side effects.
// In-flight requests run to completion on their own timeout and land in the
// cache; their results are simply not returned.
func (f *Fetcher) FetchBatch(ctx context.Context, keys []models.QuoteKey) map[models.QuoteKey]*models.GreeksQuote {
	results := make(map[models.QuoteKey]*models.GreeksQuote)
	var mu sync.Mutex

	var queue []*request
	seen := make(map[models.QuoteKey]bool)
	for _, key := range keys {
		if seen[key] {
			continue
		}
		seen[key] = true

		quote, status := f.cache.Lookup(key)
		switch status {
		case Fresh:
			results[key] = quote
		case Stale:
			results[key] = quote
			queue = append(queue, &request{key: key, state: StateQueued})
		case Miss:
			queue = append(queue, &request{key: key, state: StateQueued, await: true})
		}
	}
	if len(queue) == 0 {
		return results
	}

	// FIFO dispatch: workers drain a single channel in queue order.
	pending := make(chan *request, len(queue))
	for _, req := range queue {
		pending <- req
	}
	close(pending)

	workers := f.cfg.Workers
	if workers <= 0 {
		workers = f.limiter.Budget()
	}
	if workers <= 0 {
		workers = 1
	}
	if workers > len(queue) {
		workers = len(queue)
	}

	var g errgroup.Group
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for req := range pending {
				f.process(ctx, req, results, &mu)
			}
			return nil
		})
	}
	_ = g.Wait()

	f.logBatch(queue, len(keys))
	return results
}

// process runs one request through the limiter and the provider.
func (f *Fetcher) process(ctx context.Context, req *request, results map[models.QuoteKey]*models.GreeksQuote, mu *sync.Mutex) {
	// Abandoned batch: drop queued requests without side effects.
	if ctx.Err() != nil {
		req.state = StateFailed
		return
	}
	req.state = StateInFlight

	var quote *models.GreeksQuote
	err := retry.Do(ctx, f.logger, "greeks fetch "+req.key.String(), f.cfg.Retry, func(attemptCtx context.Context) error {
		if err := f.limiter.Wait(attemptCtx); err != nil {
			return err
		}
		// The external call gets its own timeout, detached from the batch
		// context: an in-flight request is allowed to complete so its result
		// still lands in the cache for the next run.
		callCtx, cancel := context.WithTimeout(context.Background(), f.cfg.RequestTimeout)
		defer cancel()
		q, err := f.provider.GetGreeks(callCtx, req.key)
		if err != nil {
			return err
		}
		quote = q
		return nil
	})
	if err != nil {
		// Logged once per key; other keys in the batch proceed independently.
		req.state = StateFailed
		if f.logger != nil {
			f.logger.WithField("key", req.key.String()).Warnf("greeks fetch failed: %v", err)
		}
		return
	}

	req.state = StateSucceeded
	if storeErr := f.cache.Store(req.key, quote); storeErr != nil && f.logger != nil {
		f.logger.Warnf("caching greeks for %s failed: %v", req.key, storeErr)
	}
	if req.await && ctx.Err() == nil {
		mu.Lock()
		results[req.key] = quote
		mu.Unlock()
	}
}

func (f *Fetcher) logBatch(queue []*request, total int) {
	if f.logger == nil {
		return
	}
	var succeeded, failed int
	for _, req := range queue {
		switch req.state {
		case StateSucceeded:
			succeeded++
		case StateFailed:
			failed++
		}
	}
	f.logger.WithFields(logrus.Fields{
		"keys":      total,
		"fetched":   succeeded,
		"failed":    failed,
		"cache_hit": total - len(queue),
	}).Debug("greeks batch complete")
}
