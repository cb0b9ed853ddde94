package greeks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"

	"github.com/eddiefleurent/wheelhouse/internal/models"
)

type failingProvider struct {
	calls int
}

var _ Provider = (*failingProvider)(nil)

func (f *failingProvider) GetGreeks(context.Context, models.QuoteKey) (*models.GreeksQuote, error) {
	f.calls++
	return nil, errors.New("provider down")
}

func TestCircuitBreakerOpensAfterFailures(t *testing.T) {
	inner := &failingProvider{}
	provider := NewCircuitBreakerProviderWithSettings(inner, testLogger(), BreakerSettings{
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      time.Minute,
		MinRequests:  3,
		FailureRatio: 0.6,
	})

	// Fail enough times to trip the breaker.
	for i := 0; i < 3; i++ {
		if _, err := provider.GetGreeks(context.Background(), testKey()); err == nil {
			t.Fatalf("call %d should have failed", i)
		}
	}

	callsBefore := inner.calls
	_, err := provider.GetGreeks(context.Background(), testKey())
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("err = %v, want circuit breaker open", err)
	}
	if inner.calls != callsBefore {
		t.Error("open breaker must not reach the provider")
	}
}

func TestCircuitBreakerPassesThroughSuccess(t *testing.T) {
	provider := NewCircuitBreakerProvider(&stubProvider{delta: 0.35}, testLogger())
	quote, err := provider.GetGreeks(context.Background(), testKey())
	if err != nil {
		t.Fatalf("GetGreeks: %v", err)
	}
	if quote.Delta != 0.35 {
		t.Errorf("Delta = %v, want 0.35", quote.Delta)
	}
}

type stubProvider struct {
	delta float64
}

var _ Provider = (*stubProvider)(nil)

func (s *stubProvider) GetGreeks(context.Context, models.QuoteKey) (*models.GreeksQuote, error) {
	return &models.GreeksQuote{Delta: s.delta, FetchedAt: time.Now()}, nil
}
