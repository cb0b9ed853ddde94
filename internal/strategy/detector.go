// Package strategy classifies normalized option legs into named strategies.
//
// Detection is deterministic and side-effect free: identical input always
// yields identical output, and no shared mutable state is touched, so
// detection may run concurrently across distinct symbols.
package strategy

import (
	"fmt"
	"sort"

	"github.com/eddiefleurent/wheelhouse/internal/models"
)

// Detect groups legs per underlying symbol and classifies each same-expiry
// group into strategies. Cross-expiry combinations are treated as independent
// positions, never calendar spreads. Anything unmatched resolves to the
// Unknown variant; detection never fails.
func Detect(legs []models.OptionLeg, acct *models.AccountContext) []models.Strategy {
	bySymbol := make(map[string][]models.OptionLeg)
	for _, leg := range legs {
		bySymbol[leg.Symbol] = append(bySymbol[leg.Symbol], leg)
	}

	symbols := make([]string, 0, len(bySymbol))
	for sym := range bySymbol {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	var out []models.Strategy
	for _, sym := range symbols {
		out = append(out, DetectSymbol(sym, bySymbol[sym], acct)...)
	}
	return out
}

// DetectSymbol classifies the legs of a single underlying. Each call works
// on its own snapshot of the account, so detection runs safely in parallel
// across distinct symbols. Within a symbol, covering shares and cash are
// consumed as strategies claim them, so two short puts cannot both count the
// same cash.
func DetectSymbol(symbol string, legs []models.OptionLeg, acct *models.AccountContext) []models.Strategy {
	shares := acct.SharesFor(symbol)
	cash := 0.0
	if acct != nil {
		cash = acct.CashBalance
	}
	return detectSymbol(symbol, legs, &shares, &cash)
}

func detectSymbol(symbol string, legs []models.OptionLeg, shares *int, cash *float64) []models.Strategy {
	byExpiry := make(map[string][]models.OptionLeg)
	for _, leg := range legs {
		key := leg.ExpiryDate()
		byExpiry[key] = append(byExpiry[key], leg)
	}

	expiries := make([]string, 0, len(byExpiry))
	for exp := range byExpiry {
		expiries = append(expiries, exp)
	}
	sort.Strings(expiries)

	var out []models.Strategy
	for _, exp := range expiries {
		out = append(out, classifyGroup(symbol, byExpiry[exp], shares, cash)...)
	}
	return out
}

// working tracks how many contracts of a leg are still unclaimed by a
// strategy. Quantities are unsigned; the original sign lives on the leg.
type working struct {
	leg       models.OptionLeg
	remaining int
}

// classifyGroup applies the pattern rules to one same-symbol, same-expiry leg
// group in descending specificity: iron condor, vertical spread, then single
// legs. Mismatched contract counts between intended spread legs are paired at
// the overlapping minimum; the remainder is classified independently.
func classifyGroup(symbol string, legs []models.OptionLeg, shares *int, cash *float64) []models.Strategy {
	pool := make([]*working, 0, len(legs))
	for _, leg := range legs {
		pool = append(pool, &working{leg: leg, remaining: leg.Quantity()})
	}
	// Strike ascending, then puts before calls, shorts before longs. The
	// ordering fixes which legs pair first, which keeps detection
	// deterministic when several pairings are possible.
	sort.SliceStable(pool, func(i, j int) bool {
		a, b := pool[i], pool[j]
		if a.leg.Strike != b.leg.Strike {
			return a.leg.Strike < b.leg.Strike
		}
		if a.leg.Kind != b.leg.Kind {
			return a.leg.Kind == models.Put
		}
		return a.leg.Contracts < b.leg.Contracts
	})

	var out []models.Strategy
	seq := 0
	emit := func(kind models.StrategyKind, strategyLegs []models.OptionLeg) {
		sort.SliceStable(strategyLegs, func(i, j int) bool {
			if strategyLegs[i].Strike != strategyLegs[j].Strike {
				return strategyLegs[i].Strike < strategyLegs[j].Strike
			}
			return strategyLegs[i].Kind == models.Put
		})
		expiry := ""
		if len(strategyLegs) > 0 {
			expiry = strategyLegs[0].ExpiryDate()
		}
		out = append(out, models.Strategy{
			ID:     fmt.Sprintf("%s-%s-%s-%d", symbol, expiry, kind, seq),
			Symbol: symbol,
			Kind:   kind,
			Legs:   strategyLegs,
		})
		seq++
	}

	for {
		condor := matchCondor(pool)
		if condor == nil {
			break
		}
		emit(models.StrategyIronCondor, condor)
	}
	for {
		kind, spread := matchVertical(pool)
		if spread == nil {
			break
		}
		emit(kind, spread)
	}
	for _, w := range pool {
		if w.remaining == 0 {
			continue
		}
		kind := classifySingle(&w.leg, w.remaining, shares, cash)
		emit(kind, []models.OptionLeg{claim(w, w.remaining)})
	}
	return out
}

// matchCondor looks for a bull put spread plus a bear call spread with the
// put strikes below the call strikes, and claims the overlapping minimum
// contract count across all four legs.
func matchCondor(pool []*working) []models.OptionLeg {
	shortPut, longPut := creditPair(pool, models.Put)
	shortCall, longCall := creditPair(pool, models.Call)
	if shortPut == nil || shortCall == nil {
		return nil
	}
	// Put wing must sit below the call wing.
	if shortPut.leg.Strike >= shortCall.leg.Strike {
		return nil
	}
	qty := min4(shortPut.remaining, longPut.remaining, shortCall.remaining, longCall.remaining)
	if qty <= 0 {
		return nil
	}
	return []models.OptionLeg{
		claim(longPut, qty),
		claim(shortPut, qty),
		claim(shortCall, qty),
		claim(longCall, qty),
	}
}

// creditPair finds a short/long pair of the given kind shaped as a credit
// spread: for puts the short strike is above the long, for calls below.
func creditPair(pool []*working, kind models.OptionKind) (short, long *working) {
	for _, s := range pool {
		if s.remaining == 0 || s.leg.Kind != kind || !s.leg.IsShort() {
			continue
		}
		for _, l := range pool {
			if l.remaining == 0 || l.leg.Kind != kind || l.leg.IsShort() || l.leg.Strike == s.leg.Strike {
				continue
			}
			if kind == models.Put && l.leg.Strike < s.leg.Strike {
				return s, l
			}
			if kind == models.Call && l.leg.Strike > s.leg.Strike {
				return s, l
			}
		}
	}
	return nil, nil
}

// matchVertical pairs any remaining short and long legs of the same kind with
// different strikes into a vertical spread. Direction follows which strike is
// short versus long:
//
//	put, short above long   -> bull put spread (credit)
//	put, short below long   -> bear put spread (debit)
//	call, short below long  -> bear call spread (credit)
//	call, short above long  -> bull call spread (debit)
func matchVertical(pool []*working) (models.StrategyKind, []models.OptionLeg) {
	for _, s := range pool {
		if s.remaining == 0 || !s.leg.IsShort() {
			continue
		}
		for _, l := range pool {
			if l.remaining == 0 || l.leg.IsShort() || l.leg.Kind != s.leg.Kind || l.leg.Strike == s.leg.Strike {
				continue
			}
			qty := s.remaining
			if l.remaining < qty {
				qty = l.remaining
			}
			var kind models.StrategyKind
			switch {
			case s.leg.Kind == models.Put && s.leg.Strike > l.leg.Strike:
				kind = models.StrategyBullPutSpread
			case s.leg.Kind == models.Put:
				kind = models.StrategyBearPutSpread
			case s.leg.Strike < l.leg.Strike:
				kind = models.StrategyBearCallSpread
			default:
				kind = models.StrategyBullCallSpread
			}
			return kind, []models.OptionLeg{claim(s, qty), claim(l, qty)}
		}
	}
	return models.StrategyUnknown, nil
}

// classifySingle decides what a lone leg is, consuming covering shares or
// cash when the leg qualifies as covered.
func classifySingle(leg *models.OptionLeg, qty int, shares *int, cash *float64) models.StrategyKind {
	if !leg.IsShort() {
		if leg.Kind == models.Call {
			return models.StrategyLongCall
		}
		return models.StrategyLongPut
	}

	switch leg.Kind {
	case models.Call:
		needed := int(models.SharesPerContract) * qty
		if shares != nil && *shares >= needed {
			*shares -= needed
			return models.StrategyCoveredCall
		}
		return models.StrategyNakedCall
	case models.Put:
		needed := leg.Strike * models.SharesPerContract * float64(qty)
		if cash != nil && *cash >= needed {
			*cash -= needed
			return models.StrategyCashSecuredPut
		}
		return models.StrategyNakedPut
	default:
		return models.StrategyUnknown
	}
}

// claim deducts qty contracts from a working leg and returns a copy of the
// leg resized to qty, preserving the short/long sign.
func claim(w *working, qty int) models.OptionLeg {
	w.remaining -= qty
	leg := w.leg
	if leg.Contracts < 0 {
		leg.Contracts = -qty
	} else {
		leg.Contracts = qty
	}
	return leg
}

func min4(a, b, c, d int) int {
	m := a
	for _, v := range []int{b, c, d} {
		if v < m {
			m = v
		}
	}
	return m
}
