package analyzer

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eddiefleurent/wheelhouse/internal/greeks"
	"github.com/eddiefleurent/wheelhouse/internal/models"
	"github.com/eddiefleurent/wheelhouse/internal/ratelimit"
	"github.com/eddiefleurent/wheelhouse/internal/storage"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// staticProvider returns a fixed delta for every key.
type staticProvider struct {
	mu    sync.Mutex
	delta float64
	calls int
}

var _ greeks.Provider = (*staticProvider)(nil)

func (p *staticProvider) GetGreeks(context.Context, models.QuoteKey) (*models.GreeksQuote, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return &models.GreeksQuote{Delta: p.delta, FetchedAt: time.Now()}, nil
}

func newTestAnalyzer(t *testing.T, provider greeks.Provider) *Analyzer {
	t.Helper()
	limiter, err := ratelimit.New(ratelimit.Config{MaxRequests: 1000, Window: time.Second}, nil)
	require.NoError(t, err)
	cache := greeks.NewCache(storage.NewMemoryStore(), greeks.CachePolicy{}, testLogger())
	fetcher := greeks.NewFetcher(provider, cache, limiter, testLogger(), greeks.FetcherConfig{
		RequestTimeout: 2 * time.Second,
	})
	return New(fetcher, testLogger())
}

func testInput() Input {
	return Input{
		Legs: []models.RawLeg{
			// Covered call over held shares, brokerage-style date format.
			{Symbol: "ibit", Strike: "61", Expiry: "Jul-18-2025", OptionType: "call", Contracts: "-1", Premium: "2.2832", CurrentValue: "6.35"},
			// Bull put spread.
			{Symbol: "XYZ", Strike: "30", Expiry: "2025-07-18", OptionType: "put", Contracts: "5", Premium: "1.006"},
			{Symbol: "XYZ", Strike: "33", Expiry: "2025-07-18", OptionType: "put", Contracts: "-5", Premium: "2.094"},
			// Malformed: dropped with a warning, batch proceeds.
			{Symbol: "BAD", Strike: "umm", Expiry: "2025-07-18", OptionType: "put", Contracts: "-1", Premium: "1.0"},
		},
		Account: models.AccountContext{
			Shares:      map[string]int{"IBIT": 1400},
			CostBasis:   map[string]float64{"IBIT": 59.09},
			CashBalance: 100000,
		},
	}
}

func findStrategy(t *testing.T, report *Report, kind models.StrategyKind) *models.Strategy {
	t.Helper()
	for i := range report.Strategies {
		if report.Strategies[i].Kind == kind {
			return &report.Strategies[i]
		}
	}
	t.Fatalf("no %s in report", kind)
	return nil
}

func TestRunFullPipeline(t *testing.T) {
	provider := &staticProvider{delta: 0.35}
	engine := newTestAnalyzer(t, provider)

	report, err := engine.Run(context.Background(), testInput())
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.False(t, report.GeneratedAt.IsZero())
	require.Len(t, report.Warnings, 1)
	assert.Equal(t, "BAD", report.Warnings[0].Symbol)
	require.Len(t, report.Strategies, 2)

	cc := findStrategy(t, report, models.StrategyCoveredCall)
	assert.Equal(t, "IBIT", cc.Symbol)
	require.NotNil(t, cc.Wheel)
	assert.InDelta(t, -406.68, cc.Wheel.OptionMTM, 1e-6)
	require.NotNil(t, cc.Wheel.WheelNet)
	assert.InDelta(t, 419.32, *cc.Wheel.WheelNet, 1e-6)
	require.NotNil(t, cc.Wheel.AssignmentProbability)
	assert.InDelta(t, 0.35, *cc.Wheel.AssignmentProbability, 1e-6)

	spread := findStrategy(t, report, models.StrategyBullPutSpread)
	assert.InDelta(t, 544, spread.Risk.NetPremium, 1e-6)
	assert.InDelta(t, 956, spread.Risk.MaxLoss, 1e-6)
	assert.Nil(t, spread.Wheel, "wheel view only applies to single-short-leg strategies")

	// One wheel-relevant short leg means one provider call.
	assert.Equal(t, 1, provider.calls)
}

// Without a fetcher the run still succeeds; Greeks-dependent fields fall back.
func TestRunWithoutFetcher(t *testing.T) {
	engine := New(nil, testLogger())

	in := testInput()
	in.Spots = map[string]float64{"IBIT": 61}
	report, err := engine.Run(context.Background(), in)
	require.NoError(t, err)

	cc := findStrategy(t, report, models.StrategyCoveredCall)
	require.NotNil(t, cc.Wheel)
	require.NotNil(t, cc.Wheel.AssignmentProbability, "spot fallback should supply a probability")
	assert.InDelta(t, 0.5, *cc.Wheel.AssignmentProbability, 1e-6)
}

// No delta and no spot: the probability is absent, never zero.
func TestRunDegradesToNilProbability(t *testing.T) {
	engine := New(nil, testLogger())

	report, err := engine.Run(context.Background(), testInput())
	require.NoError(t, err)

	cc := findStrategy(t, report, models.StrategyCoveredCall)
	require.NotNil(t, cc.Wheel)
	assert.Nil(t, cc.Wheel.AssignmentProbability)
	require.NotNil(t, cc.Wheel.WheelNet)
}

func TestRunCanceledContext(t *testing.T) {
	engine := New(nil, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.Run(ctx, testInput())
	require.Error(t, err)
}

func TestRunEmptyInput(t *testing.T) {
	engine := New(nil, testLogger())
	report, err := engine.Run(context.Background(), Input{})
	require.NoError(t, err)
	assert.Empty(t, report.Strategies)
	assert.Empty(t, report.Warnings)
}

// Two runs over the same input produce the same strategies (fresh RunIDs
// aside).
func TestRunDeterministicStrategies(t *testing.T) {
	engine := New(nil, testLogger())

	first, err := engine.Run(context.Background(), testInput())
	require.NoError(t, err)
	second, err := engine.Run(context.Background(), testInput())
	require.NoError(t, err)

	require.Equal(t, len(first.Strategies), len(second.Strategies))
	for i := range first.Strategies {
		assert.Equal(t, first.Strategies[i].ID, second.Strategies[i].ID)
		assert.Equal(t, first.Strategies[i].Kind, second.Strategies[i].Kind)
		assert.Equal(t, first.Strategies[i].Risk, second.Strategies[i].Risk)
	}
}
