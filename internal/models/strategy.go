package models

// StrategyKind is the closed set of strategy classifications the detector can
// produce. Unrecognized leg combinations resolve to StrategyUnknown rather
// than an error.
type StrategyKind string

const (
	// StrategyCoveredCall is a short call backed by at least 100 shares per contract.
	StrategyCoveredCall StrategyKind = "covered_call"
	// StrategyCashSecuredPut is a short put backed by enough cash to take assignment.
	StrategyCashSecuredPut StrategyKind = "cash_secured_put"
	// StrategyBullPutSpread is a put credit spread (short higher strike, long lower).
	StrategyBullPutSpread StrategyKind = "bull_put_spread"
	// StrategyBearCallSpread is a call credit spread (short lower strike, long higher).
	StrategyBearCallSpread StrategyKind = "bear_call_spread"
	// StrategyBullCallSpread is a call debit spread (long lower strike, short higher).
	StrategyBullCallSpread StrategyKind = "bull_call_spread"
	// StrategyBearPutSpread is a put debit spread (long higher strike, short lower).
	StrategyBearPutSpread StrategyKind = "bear_put_spread"
	// StrategyIronCondor is a bull put spread plus a bear call spread around the price.
	StrategyIronCondor StrategyKind = "iron_condor"
	// StrategyNakedCall is a short call with no covering shares.
	StrategyNakedCall StrategyKind = "naked_call"
	// StrategyNakedPut is a short put with no covering cash.
	StrategyNakedPut StrategyKind = "naked_put"
	// StrategyLongCall is a single bought call.
	StrategyLongCall StrategyKind = "long_call"
	// StrategyLongPut is a single bought put.
	StrategyLongPut StrategyKind = "long_put"
	// StrategyUnknown is the safe fallback for anything unmatched.
	StrategyUnknown StrategyKind = "unknown"
)

// Valid returns true if the StrategyKind is one of the defined constants.
func (k StrategyKind) Valid() bool {
	switch k {
	case StrategyCoveredCall, StrategyCashSecuredPut,
		StrategyBullPutSpread, StrategyBearCallSpread,
		StrategyBullCallSpread, StrategyBearPutSpread,
		StrategyIronCondor, StrategyNakedCall, StrategyNakedPut,
		StrategyLongCall, StrategyLongPut, StrategyUnknown:
		return true
	default:
		return false
	}
}

// RiskKind categorizes the loss shape of a strategy.
type RiskKind string

const (
	// RiskDefined means both max profit and max loss are capped (spreads, condors).
	RiskDefined RiskKind = "defined"
	// RiskCovered means the short option is backed by shares or cash.
	RiskCovered RiskKind = "covered"
	// RiskUndefined means loss is uncapped or the structure is unrecognized.
	RiskUndefined RiskKind = "undefined"
)

// RiskProfile holds the deterministic risk metrics for one detected strategy.
// All dollar amounts are totals across contracts, not per-share.
type RiskProfile struct {
	// NetPremium is signed with credit positive: premium collected minus
	// premium paid, times 100 times contracts.
	NetPremium float64 `json:"net_premium"`
	// MaxProfit is meaningful only when MaxProfitUnbounded is false;
	// likewise MaxLoss and MaxLossUnbounded.
	MaxProfit          float64   `json:"max_profit"`
	MaxProfitUnbounded bool      `json:"max_profit_unbounded"`
	MaxLoss            float64   `json:"max_loss"`
	MaxLossUnbounded   bool      `json:"max_loss_unbounded"`
	Breakevens         []float64 `json:"breakevens"`
	RiskKind           RiskKind  `json:"risk_kind"`
	// Collateral is the cash or share value reserved to carry the position.
	Collateral float64 `json:"collateral"`
}

// WheelMetrics is the wheel-trader view of a single short leg.
//
// WheelNet and AssignmentProbability are pointers so that "unavailable" is
// distinguishable from zero: a missing cost basis or missing delta must never
// render as $0 or 0%.
type WheelMetrics struct {
	// OptionMTM is the conventional mark-to-market P&L of the option leg.
	OptionMTM float64 `json:"option_mtm"`
	// WheelNet is the realized profit if the short leg is assigned. Nil when
	// no cost basis is known for the underlying.
	WheelNet *float64 `json:"wheel_net,omitempty"`
	// AssignmentProbability is in [0,1]. Nil when neither a Greeks delta nor
	// an underlying price is available.
	AssignmentProbability *float64 `json:"assignment_probability,omitempty"`
}

// Strategy is a classified leg combination with its risk metrics. Strategies
// are recomputed fresh on every analysis run and never mutated afterwards.
type Strategy struct {
	ID     string       `json:"id"`
	Symbol string       `json:"symbol"`
	Kind   StrategyKind `json:"kind"`
	// Legs are ordered by strike ascending.
	Legs  []OptionLeg   `json:"legs"`
	Risk  RiskProfile   `json:"risk"`
	Wheel *WheelMetrics `json:"wheel,omitempty"`
}

// ShortLegs returns the strategy's short legs in leg order.
func (s *Strategy) ShortLegs() []OptionLeg {
	var shorts []OptionLeg
	for _, leg := range s.Legs {
		if leg.IsShort() {
			shorts = append(shorts, leg)
		}
	}
	return shorts
}
