// Package wheel produces the wheel-trader view of short option legs: the
// conventional mark-to-market P&L next to the "what do I make if assigned"
// number a wheel seller actually watches, plus a best-effort assignment
// probability.
package wheel

import (
	"math"

	"github.com/eddiefleurent/wheelhouse/internal/models"
	"github.com/eddiefleurent/wheelhouse/internal/util"
)

// moneynessSteepness shapes the logistic fallback used when no Greeks delta
// is available. At 8.0 an option 10% in the money reads ~69% and 10% out of
// the money ~31%, which tracks typical near-dated delta behavior closely
// enough for a best-effort signal.
const moneynessSteepness = 8.0

// Inputs carries the optional market context for one leg. Either field may
// be absent; absent inputs degrade the corresponding metric to nil rather
// than defaulting it.
type Inputs struct {
	// Delta is the Greeks delta for the leg, when a quote was available.
	Delta *float64
	// Spot is the current underlying price, used by the moneyness fallback.
	Spot *float64
}

// Analyze computes WheelMetrics for a single short leg. Returns nil for long
// legs; the wheel view only applies to sold options.
func Analyze(leg *models.OptionLeg, acct *models.AccountContext, in Inputs) *models.WheelMetrics {
	if leg == nil || !leg.IsShort() {
		return nil
	}

	qty := float64(leg.Quantity())
	shares := models.SharesPerContract * qty
	premiumCollected := leg.Premium * shares
	currentValue := leg.CurrentValue * shares

	m := &models.WheelMetrics{
		// Short leg: collected premium up front, owe the current value.
		OptionMTM: premiumCollected - currentValue,
	}

	if basis, ok := acct.CostBasisFor(leg.Symbol); ok {
		var net float64
		if leg.Kind == models.Call {
			// Assignment sells shares at the strike.
			net = premiumCollected + (leg.Strike-basis)*shares
		} else {
			// Assignment buys shares at the strike.
			net = premiumCollected + (basis-leg.Strike)*shares
		}
		m.WheelNet = &net
	}

	if p := assignmentProbability(leg, in); p != nil {
		m.AssignmentProbability = p
	}
	return m
}

// assignmentProbability prefers |delta| and falls back to a bounded logistic
// of moneyness. With neither input the probability is unknown, not zero.
func assignmentProbability(leg *models.OptionLeg, in Inputs) *float64 {
	if in.Delta != nil {
		p := util.Clamp01(math.Abs(*in.Delta))
		return &p
	}
	if in.Spot == nil || *in.Spot <= 0 || leg.Strike <= 0 {
		return nil
	}

	// Moneyness from the assignment side: positive when the short option is
	// in the money. Monotonic in (spot-strike)/strike for calls and its
	// negation for puts, bounded to [0,1] by the logistic.
	moneyness := (*in.Spot - leg.Strike) / leg.Strike
	if leg.Kind == models.Put {
		moneyness = -moneyness
	}
	p := 1.0 / (1.0 + math.Exp(-moneynessSteepness*moneyness))
	return &p
}
