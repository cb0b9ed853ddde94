package greeks

import (
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/eddiefleurent/wheelhouse/internal/models"
	"github.com/eddiefleurent/wheelhouse/internal/storage"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newMemStore() *storage.MemoryStore {
	return storage.NewMemoryStore()
}

func testKey() models.QuoteKey {
	return models.QuoteKey{Symbol: "IBIT", Strike: 61, Expiry: "2025-07-18", Kind: models.Call}
}

func quoteAt(fetchedAt time.Time, delta float64) *models.GreeksQuote {
	return &models.GreeksQuote{Delta: delta, IV: 0.42, FetchedAt: fetchedAt}
}

// A value fetched at t0 is fresh inside 30 minutes, stale at t0+31m, and a
// miss at t0+61m.
func TestCacheAgeTransitions(t *testing.T) {
	t0 := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	key := testKey()

	tests := []struct {
		name string
		now  time.Time
		want Status
	}{
		{"fresh just after fetch", t0.Add(time.Minute), Fresh},
		{"fresh at 29m", t0.Add(29 * time.Minute), Fresh},
		{"stale at 31m", t0.Add(31 * time.Minute), Stale},
		{"stale at 59m", t0.Add(59 * time.Minute), Stale},
		{"miss at 61m", t0.Add(61 * time.Minute), Miss},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := NewCache(newMemStore(), CachePolicy{}, testLogger()).
				WithNow(func() time.Time { return tt.now })
			if err := cache.Store(key, quoteAt(t0, 0.35)); err != nil {
				t.Fatalf("Store: %v", err)
			}

			quote, status := cache.Lookup(key)
			if status != tt.want {
				t.Fatalf("status = %v, want %v", status, tt.want)
			}
			if tt.want == Miss {
				if quote != nil {
					t.Error("miss must not return a quote")
				}
				return
			}
			if quote == nil || quote.Delta != 0.35 {
				t.Errorf("quote = %+v, want delta 0.35", quote)
			}
		})
	}
}

func TestCacheMissOnAbsentKey(t *testing.T) {
	cache := NewCache(newMemStore(), CachePolicy{}, testLogger())
	if quote, status := cache.Lookup(testKey()); status != Miss || quote != nil {
		t.Errorf("Lookup on empty cache = (%v, %v), want (nil, miss)", quote, status)
	}
}

// Store read failures degrade to misses; they never reach the pipeline.
func TestCacheStoreErrorIsMiss(t *testing.T) {
	store := newMemStore()
	cache := NewCache(store, CachePolicy{}, testLogger())
	if err := cache.Store(testKey(), quoteAt(time.Now(), 0.5)); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if quote, status := cache.Lookup(testKey()); status != Miss || quote != nil {
		t.Errorf("Lookup with failing store = (%v, %v), want (nil, miss)", quote, status)
	}
}

func TestCacheCustomPolicy(t *testing.T) {
	t0 := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	cache := NewCache(newMemStore(), CachePolicy{
		StaleAfter:  5 * time.Minute,
		ExpireAfter: 10 * time.Minute,
	}, testLogger()).WithNow(func() time.Time { return t0.Add(7 * time.Minute) })

	if err := cache.Store(testKey(), quoteAt(t0, 0.5)); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if _, status := cache.Lookup(testKey()); status != Stale {
		t.Errorf("status = %v, want stale under 5m/10m policy", status)
	}
}

// A quote without FetchedAt is stamped with the cache clock so age math works.
func TestCacheStoreStampsFetchTime(t *testing.T) {
	t0 := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	store := newMemStore()
	cache := NewCache(store, CachePolicy{}, testLogger()).
		WithNow(func() time.Time { return t0 })

	if err := cache.Store(testKey(), &models.GreeksQuote{Delta: 0.2}); err != nil {
		t.Fatalf("Store: %v", err)
	}
	entry, ok, err := store.Get(testKey().String())
	if err != nil || !ok {
		t.Fatalf("Get = (ok=%v, err=%v)", ok, err)
	}
	if !entry.FetchedAt.Equal(t0) {
		t.Errorf("FetchedAt = %v, want %v", entry.FetchedAt, t0)
	}
}
