// Package analyzer orchestrates the full analysis pipeline: normalize raw
// legs, detect strategies per symbol in parallel, compute risk metrics, then
// resolve Greeks through the rate-limited fetcher and attach wheel views.
package analyzer

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/eddiefleurent/wheelhouse/internal/greeks"
	"github.com/eddiefleurent/wheelhouse/internal/models"
	"github.com/eddiefleurent/wheelhouse/internal/normalize"
	"github.com/eddiefleurent/wheelhouse/internal/risk"
	"github.com/eddiefleurent/wheelhouse/internal/strategy"
	"github.com/eddiefleurent/wheelhouse/internal/wheel"
)

// Input is one analysis request: the extracted raw legs, the account
// snapshot, and optional current underlying prices for the moneyness
// fallback.
type Input struct {
	Legs    []models.RawLeg       `json:"legs"`
	Account models.AccountContext `json:"account"`
	Spots   map[string]float64    `json:"spots,omitempty"`
}

// Report is the output of one analysis run. Reports are derived data,
// recomputed fresh each run and never mutated afterwards.
type Report struct {
	RunID       string              `json:"run_id"`
	GeneratedAt time.Time           `json:"generated_at"`
	Strategies  []models.Strategy   `json:"strategies"`
	Warnings    []normalize.Warning `json:"warnings,omitempty"`
}

// Analyzer runs the pipeline. The detection and risk stages are pure; the
// only I/O happens inside the Greeks fetcher.
type Analyzer struct {
	fetcher *greeks.Fetcher
	logger  *logrus.Logger
}

// New assembles an Analyzer. The fetcher may be nil, in which case
// Greeks-dependent fields degrade to their moneyness fallbacks.
func New(fetcher *greeks.Fetcher, logger *logrus.Logger) *Analyzer {
	return &Analyzer{fetcher: fetcher, logger: logger}
}

// wheelKinds are the single-short-leg strategies the wheel view applies to.
var wheelKinds = map[models.StrategyKind]bool{
	models.StrategyCoveredCall:    true,
	models.StrategyCashSecuredPut: true,
	models.StrategyNakedCall:      true,
	models.StrategyNakedPut:       true,
}

// Run executes one analysis. It only fails on a canceled context; malformed
// legs, unknown structures, and quote failures all degrade per the engine's
// recovery rules instead of aborting the run.
func (a *Analyzer) Run(ctx context.Context, in Input) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("analysis canceled: %w", err)
	}

	legs, warnings := normalize.Legs(in.Legs, a.logger)

	bySymbol := make(map[string][]models.OptionLeg)
	for _, leg := range legs {
		bySymbol[leg.Symbol] = append(bySymbol[leg.Symbol], leg)
	}
	symbols := make([]string, 0, len(bySymbol))
	for sym := range bySymbol {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	// Detection and risk are pure and touch no shared state, so symbols run
	// concurrently. Each goroutine writes only its own slot.
	perSymbol := make([][]models.Strategy, len(symbols))
	g, gctx := errgroup.WithContext(ctx)
	for i, sym := range symbols {
		i, sym := i, sym
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			detected := strategy.DetectSymbol(sym, bySymbol[sym], &in.Account)
			for j := range detected {
				detected[j].Risk = risk.Compute(&detected[j], &in.Account)
			}
			perSymbol[i] = detected
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("analysis canceled: %w", err)
	}

	var strategies []models.Strategy
	for _, batch := range perSymbol {
		strategies = append(strategies, batch...)
	}

	a.attachWheelMetrics(ctx, strategies, in)

	report := &Report{
		RunID:       uuid.New().String(),
		GeneratedAt: time.Now().UTC(),
		Strategies:  strategies,
		Warnings:    warnings,
	}
	if a.logger != nil {
		a.logger.WithFields(logrus.Fields{
			"run_id":     report.RunID,
			"legs":       len(legs),
			"dropped":    len(warnings),
			"strategies": len(strategies),
		}).Info("analysis run complete")
	}
	return report, nil
}

// attachWheelMetrics resolves Greeks for the wheel-relevant short legs in one
// rate-limited batch and computes the dual P&L views.
func (a *Analyzer) attachWheelMetrics(ctx context.Context, strategies []models.Strategy, in Input) {
	var keys []models.QuoteKey
	for i := range strategies {
		if leg := wheelLeg(&strategies[i]); leg != nil {
			keys = append(keys, models.KeyFor(leg))
		}
	}

	quotes := map[models.QuoteKey]*models.GreeksQuote{}
	if a.fetcher != nil && len(keys) > 0 {
		quotes = a.fetcher.FetchBatch(ctx, keys)
	}

	for i := range strategies {
		leg := wheelLeg(&strategies[i])
		if leg == nil {
			continue
		}
		inputs := wheel.Inputs{}
		if quote, ok := quotes[models.KeyFor(leg)]; ok && quote != nil {
			delta := quote.Delta
			inputs.Delta = &delta
		}
		if spot, ok := in.Spots[leg.Symbol]; ok && spot > 0 {
			s := spot
			inputs.Spot = &s
		}
		strategies[i].Wheel = wheel.Analyze(leg, &in.Account, inputs)
	}
}

// wheelLeg returns the short leg the wheel view applies to, or nil.
func wheelLeg(s *models.Strategy) *models.OptionLeg {
	if !wheelKinds[s.Kind] {
		return nil
	}
	for i := range s.Legs {
		if s.Legs[i].IsShort() {
			return &s.Legs[i]
		}
	}
	return nil
}
