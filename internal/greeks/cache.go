package greeks

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/eddiefleurent/wheelhouse/internal/models"
	"github.com/eddiefleurent/wheelhouse/internal/storage"
)

// Status classifies a cache lookup result.
type Status int

const (
	// Miss means no usable entry: absent, expired, or unreadable.
	Miss Status = iota
	// Fresh means the entry is younger than the staleness threshold.
	Fresh
	// Stale means the entry is between the staleness threshold and the TTL.
	// It is still returned; the caller decides whether to refresh.
	Stale
)

func (s Status) String() string {
	switch s {
	case Fresh:
		return "fresh"
	case Stale:
		return "stale"
	default:
		return "miss"
	}
}

// CachePolicy sets the age thresholds.
type CachePolicy struct {
	StaleAfter  time.Duration
	ExpireAfter time.Duration
}

// DefaultCachePolicy mirrors the provider's data refresh cadence.
var DefaultCachePolicy = CachePolicy{
	StaleAfter:  models.DefaultStaleAfter,
	ExpireAfter: models.DefaultExpireAfter,
}

// Cache applies the TTL/staleness policy over a pluggable persistent store.
// Store read errors degrade to misses; they never propagate to the analysis
// pipeline.
type Cache struct {
	store  storage.Interface
	policy CachePolicy
	logger *logrus.Logger
	now    func() time.Time
}

// NewCache creates a cache over store. Zero policy fields fall back to the
// defaults.
func NewCache(store storage.Interface, policy CachePolicy, logger *logrus.Logger) *Cache {
	if policy.StaleAfter <= 0 {
		policy.StaleAfter = DefaultCachePolicy.StaleAfter
	}
	if policy.ExpireAfter <= 0 {
		policy.ExpireAfter = DefaultCachePolicy.ExpireAfter
	}
	return &Cache{
		store:  store,
		policy: policy,
		logger: logger,
		now:    time.Now,
	}
}

// WithNow overrides the cache's clock. Intended for tests.
func (c *Cache) WithNow(now func() time.Time) *Cache {
	c.now = now
	return c
}

// Lookup returns the cached quote for key and how trustworthy it is. Expired
// entries report Miss, which triggers a refetch upstream.
func (c *Cache) Lookup(key models.QuoteKey) (*models.GreeksQuote, Status) {
	entry, ok, err := c.store.Get(key.String())
	if err != nil {
		if c.logger != nil {
			c.logger.Warnf("cache read for %s failed, treating as miss: %v", key, err)
		}
		return nil, Miss
	}
	if !ok {
		return nil, Miss
	}

	now := c.now()
	if entry.IsExpired(now, c.policy.ExpireAfter) {
		return nil, Miss
	}
	quote := entry.Quote
	if entry.IsStale(now, c.policy.StaleAfter) {
		return &quote, Stale
	}
	return &quote, Fresh
}

// Store persists a freshly fetched quote.
func (c *Cache) Store(key models.QuoteKey, quote *models.GreeksQuote) error {
	entry := models.CacheEntry{Quote: *quote, FetchedAt: quote.FetchedAt}
	if entry.FetchedAt.IsZero() {
		entry.FetchedAt = c.now()
	}
	return c.store.Put(key.String(), entry)
}
