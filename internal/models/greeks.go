package models

import (
	"fmt"
	"strings"
	"time"
)

// Default cache age thresholds. Configurable via config; these mirror the
// external provider's data refresh cadence.
const (
	// DefaultStaleAfter marks an entry stale once it is older than this.
	DefaultStaleAfter = 30 * time.Minute
	// DefaultExpireAfter treats an entry as a cache miss once it is older than this.
	DefaultExpireAfter = 60 * time.Minute
)

// QuoteKey identifies one option contract for Greeks lookup.
type QuoteKey struct {
	Symbol string     `json:"symbol"`
	Strike float64    `json:"strike"`
	Expiry string     `json:"expiry"` // ISO-8601 date
	Kind   OptionKind `json:"kind"`
}

// KeyFor builds the QuoteKey for a normalized leg.
func KeyFor(leg *OptionLeg) QuoteKey {
	return QuoteKey{
		Symbol: leg.Symbol,
		Strike: leg.Strike,
		Expiry: leg.ExpiryDate(),
		Kind:   leg.Kind,
	}
}

// String renders the key in a stable form usable as a storage key.
func (k QuoteKey) String() string {
	return fmt.Sprintf("%s|%.2f|%s|%s", k.Symbol, k.Strike, k.Expiry, strings.ToLower(string(k.Kind)))
}

// GreeksQuote holds the risk sensitivities for one option contract as
// reported by the external market-data provider.
type GreeksQuote struct {
	Delta     float64   `json:"delta"`
	Gamma     float64   `json:"gamma"`
	Theta     float64   `json:"theta"`
	Vega      float64   `json:"vega"`
	IV        float64   `json:"iv"`
	FetchedAt time.Time `json:"fetched_at"`
}

// CacheEntry wraps a GreeksQuote with the time it was fetched, from which
// staleness and expiry are derived.
type CacheEntry struct {
	Quote     GreeksQuote `json:"quote"`
	FetchedAt time.Time   `json:"fetched_at"`
}

// Age returns how old the entry is at the given instant.
func (e *CacheEntry) Age(now time.Time) time.Duration {
	return now.Sub(e.FetchedAt)
}

// IsStale reports whether the entry is older than staleAfter. Stale entries
// are still served; the caller decides whether to trigger a refresh.
func (e *CacheEntry) IsStale(now time.Time, staleAfter time.Duration) bool {
	return e.Age(now) > staleAfter
}

// IsExpired reports whether the entry is older than expireAfter. Expired
// entries are treated as cache misses.
func (e *CacheEntry) IsExpired(now time.Time, expireAfter time.Duration) bool {
	return e.Age(now) > expireAfter
}
