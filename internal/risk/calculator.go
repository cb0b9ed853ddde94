// Package risk derives deterministic risk metrics for detected strategies:
// net premium, max profit/loss, breakevens, risk category, and collateral.
package risk

import (
	"math"

	"github.com/eddiefleurent/wheelhouse/internal/models"
	"github.com/eddiefleurent/wheelhouse/internal/util"
)

// priceTick is the rounding increment for breakeven prices.
const priceTick = 0.001

// Compute derives the RiskProfile for a detected strategy. It is a pure
// function of the strategy legs and the account snapshot; account data is
// only consulted for covered-call cost basis and collateral.
func Compute(s *models.Strategy, acct *models.AccountContext) models.RiskProfile {
	switch s.Kind {
	case models.StrategyBullPutSpread, models.StrategyBearCallSpread,
		models.StrategyBullCallSpread, models.StrategyBearPutSpread:
		return vertical(s.Legs)
	case models.StrategyIronCondor:
		return condor(s.Legs)
	case models.StrategyCoveredCall:
		return coveredCall(s.Legs, acct)
	case models.StrategyCashSecuredPut:
		return cashSecuredPut(s.Legs)
	case models.StrategyNakedCall, models.StrategyNakedPut:
		return naked(s.Legs)
	case models.StrategyLongCall, models.StrategyLongPut:
		return long(s.Legs)
	default:
		return unknown(s.Legs)
	}
}

// NetPremium is the signed premium sum across legs, credit positive.
func NetPremium(legs []models.OptionLeg) float64 {
	total := 0.0
	for i := range legs {
		total += legs[i].SignedPremium()
	}
	return total
}

// vertical computes metrics for a two-leg same-kind spread. Legs are strike
// ascending and carry equal unsigned contract counts by construction.
func vertical(legs []models.OptionLeg) models.RiskProfile {
	profile := models.RiskProfile{RiskKind: models.RiskDefined}
	if len(legs) != 2 {
		profile.RiskKind = models.RiskUndefined
		profile.NetPremium = NetPremium(legs)
		return profile
	}

	short, lng := splitSpread(legs)
	qty := float64(short.Quantity())
	width := math.Abs(short.Strike - lng.Strike)
	capacity := width * models.SharesPerContract * qty

	net := NetPremium(legs)
	profile.NetPremium = net

	if net >= 0 {
		// Credit spread: keep the credit, risk the width beyond it.
		profile.MaxProfit = net
		profile.MaxLoss = capacity - net
		profile.Collateral = capacity
	} else {
		debit := -net
		profile.MaxProfit = capacity - debit
		profile.MaxLoss = debit
	}

	perShare := net / (models.SharesPerContract * qty)
	var breakeven float64
	if short.Kind == models.Put {
		if net >= 0 {
			breakeven = short.Strike - perShare // bull put
		} else {
			breakeven = lng.Strike + perShare // bear put: long strike minus debit/share
		}
	} else {
		if net >= 0 {
			breakeven = short.Strike + perShare // bear call
		} else {
			breakeven = lng.Strike - perShare // bull call: long strike plus debit/share
		}
	}
	profile.Breakevens = []float64{util.RoundToTick(breakeven, priceTick)}
	return profile
}

// condor sums the metrics of the two component spreads, per the engine's
// spread-composition rule, and carries both breakevens.
func condor(legs []models.OptionLeg) models.RiskProfile {
	var puts, calls []models.OptionLeg
	for _, leg := range legs {
		if leg.Kind == models.Put {
			puts = append(puts, leg)
		} else {
			calls = append(calls, leg)
		}
	}
	putSide := vertical(puts)
	callSide := vertical(calls)

	profile := models.RiskProfile{
		NetPremium: putSide.NetPremium + callSide.NetPremium,
		MaxProfit:  putSide.MaxProfit + callSide.MaxProfit,
		MaxLoss:    putSide.MaxLoss + callSide.MaxLoss,
		RiskKind:   models.RiskDefined,
		Collateral: putSide.Collateral + callSide.Collateral,
	}
	profile.Breakevens = append(profile.Breakevens, putSide.Breakevens...)
	profile.Breakevens = append(profile.Breakevens, callSide.Breakevens...)
	return profile
}

// coveredCall reports the capped upside of a short call over owned shares.
// The downside is the uncapped share decline offset by the premium; when a
// cost basis is known the loss caps at the shares going to zero.
func coveredCall(legs []models.OptionLeg, acct *models.AccountContext) models.RiskProfile {
	leg := &legs[0]
	qty := float64(leg.Quantity())
	shares := models.SharesPerContract * qty
	premium := NetPremium(legs)

	profile := models.RiskProfile{
		NetPremium: premium,
		RiskKind:   models.RiskCovered,
	}

	basis, haveBasis := acct.CostBasisFor(leg.Symbol)
	if haveBasis {
		profile.MaxProfit = (leg.Strike-basis)*shares + premium
		profile.MaxLoss = basis*shares - premium
		profile.Collateral = basis * shares
		profile.Breakevens = []float64{util.RoundToTick(basis-premium/shares, priceTick)}
	} else {
		// Without a basis the share downside cannot be quantified.
		profile.MaxProfit = premium
		profile.MaxLossUnbounded = true
	}
	return profile
}

func cashSecuredPut(legs []models.OptionLeg) models.RiskProfile {
	leg := &legs[0]
	qty := float64(leg.Quantity())
	premium := NetPremium(legs)
	notional := leg.Strike * models.SharesPerContract * qty

	return models.RiskProfile{
		NetPremium: premium,
		MaxProfit:  premium,
		MaxLoss:    notional - premium,
		RiskKind:   models.RiskCovered,
		Collateral: notional,
		Breakevens: []float64{util.RoundToTick(leg.Strike-premium/(models.SharesPerContract*qty), priceTick)},
	}
}

func naked(legs []models.OptionLeg) models.RiskProfile {
	leg := &legs[0]
	qty := float64(leg.Quantity())
	premium := NetPremium(legs)
	perShare := premium / (models.SharesPerContract * qty)

	profile := models.RiskProfile{
		NetPremium: premium,
		MaxProfit:  premium,
		RiskKind:   models.RiskUndefined,
	}
	if leg.Kind == models.Call {
		profile.MaxLossUnbounded = true
		profile.Breakevens = []float64{util.RoundToTick(leg.Strike+perShare, priceTick)}
	} else {
		profile.MaxLoss = leg.Strike*models.SharesPerContract*qty - premium
		profile.Breakevens = []float64{util.RoundToTick(leg.Strike-perShare, priceTick)}
	}
	return profile
}

func long(legs []models.OptionLeg) models.RiskProfile {
	leg := &legs[0]
	qty := float64(leg.Quantity())
	debit := -NetPremium(legs)
	perShare := debit / (models.SharesPerContract * qty)

	profile := models.RiskProfile{
		NetPremium: -debit,
		MaxLoss:    debit,
		RiskKind:   models.RiskUndefined,
	}
	if leg.Kind == models.Call {
		profile.MaxProfitUnbounded = true
		profile.Breakevens = []float64{util.RoundToTick(leg.Strike+perShare, priceTick)}
	} else {
		profile.MaxProfit = leg.Strike*models.SharesPerContract*qty - debit
		profile.Breakevens = []float64{util.RoundToTick(leg.Strike-perShare, priceTick)}
	}
	return profile
}

// unknown is the safe fallback profile: net premium is still reported, but
// profit and loss are marked unquantified rather than zero.
func unknown(legs []models.OptionLeg) models.RiskProfile {
	return models.RiskProfile{
		NetPremium:         NetPremium(legs),
		MaxProfitUnbounded: true,
		MaxLossUnbounded:   true,
		RiskKind:           models.RiskUndefined,
	}
}

// splitSpread returns the short and long legs of a two-leg spread.
func splitSpread(legs []models.OptionLeg) (short, lng *models.OptionLeg) {
	if legs[0].IsShort() {
		return &legs[0], &legs[1]
	}
	return &legs[1], &legs[0]
}
