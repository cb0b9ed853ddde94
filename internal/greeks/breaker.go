package greeks

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/eddiefleurent/wheelhouse/internal/models"
)

// CircuitBreakerProvider wraps a Provider with circuit breaker functionality
// so a misbehaving market-data endpoint fails fast instead of burning the
// request budget on calls that will not succeed.
type CircuitBreakerProvider struct {
	provider Provider
	breaker  *gobreaker.CircuitBreaker
}

// BreakerSettings configures circuit breaker behavior.
type BreakerSettings struct {
	MaxRequests  uint32        // Max requests when half-open
	Interval     time.Duration // Reset counts interval
	Timeout      time.Duration // Open circuit duration
	MinRequests  uint32        // Min requests before tripping
	FailureRatio float64       // Failure ratio threshold
}

// NewCircuitBreakerProvider wraps provider with sensible defaults.
func NewCircuitBreakerProvider(provider Provider, logger *logrus.Logger) *CircuitBreakerProvider {
	return NewCircuitBreakerProviderWithSettings(provider, logger, BreakerSettings{
		MaxRequests:  2,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		MinRequests:  4,
		FailureRatio: 0.6,
	})
}

// NewCircuitBreakerProviderWithSettings wraps provider with custom settings.
func NewCircuitBreakerProviderWithSettings(provider Provider, logger *logrus.Logger, settings BreakerSettings) *CircuitBreakerProvider {
	gbSettings := gobreaker.Settings{
		Name:        "GreeksProviderCircuitBreaker",
		MaxRequests: settings.MaxRequests,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests == 0 || counts.Requests < settings.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= settings.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			if logger != nil {
				logger.Warnf("circuit breaker %s state changed from %s to %s", name, from, to)
			}
		},
	}
	return &CircuitBreakerProvider{
		provider: provider,
		breaker:  gobreaker.NewCircuitBreaker(gbSettings),
	}
}

// GetGreeks wraps the underlying provider call with the circuit breaker.
func (c *CircuitBreakerProvider) GetGreeks(ctx context.Context, key models.QuoteKey) (*models.GreeksQuote, error) {
	res, err := c.breaker.Execute(func() (interface{}, error) {
		return c.provider.GetGreeks(ctx, key)
	})
	if err != nil {
		return nil, err
	}
	quote, ok := res.(*models.GreeksQuote)
	if !ok {
		return nil, errors.New("circuit breaker: type assertion failed")
	}
	return quote, nil
}

// Ensure CircuitBreakerProvider implements Provider at compile time.
var _ Provider = (*CircuitBreakerProvider)(nil)
