// Package models defines the core data types shared across the analysis
// pipeline: option legs, account context, detected strategies and their risk
// profiles, and Greeks quotes with cache metadata.
package models

import (
	"fmt"
	"strings"
	"time"
)

// SharesPerContract is the standard US equity option multiplier.
const SharesPerContract = 100.0

// OptionKind identifies the option type of a leg.
type OptionKind string

const (
	// Call is a call option.
	Call OptionKind = "CALL"
	// Put is a put option.
	Put OptionKind = "PUT"
)

// Valid returns true if the OptionKind is one of the defined constants.
func (k OptionKind) Valid() bool {
	return k == Call || k == Put
}

// ParseOptionKind canonicalizes a raw option type string ("call", "Put", "C",
// "P") into an OptionKind.
func ParseOptionKind(s string) (OptionKind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CALL", "C":
		return Call, nil
	case "PUT", "P":
		return Put, nil
	default:
		return "", fmt.Errorf("unknown option kind %q", s)
	}
}

// RawLeg is an inbound leg record from the upstream extraction collaborator.
// Field formats are not guaranteed: dates may be in several layouts and
// numeric fields arrive as strings. Normalization turns RawLegs into
// OptionLegs, dropping records that cannot be repaired.
type RawLeg struct {
	Symbol       string `json:"symbol"`
	Strike       string `json:"strike"`
	Expiry       string `json:"expiry"`
	OptionType   string `json:"optionType"`
	Contracts    string `json:"contracts"`
	Premium      string `json:"premium"`
	CurrentValue string `json:"currentValue"`
}

// OptionLeg is a single canonicalized option contract line.
//
// Contracts is signed: negative means short (sold), positive means long
// (bought). The sign is never discarded; all downstream math treats short and
// long symmetrically but oppositely. Premium and CurrentValue are per-share;
// total cash = value * 100 * |contracts|.
type OptionLeg struct {
	Symbol       string     `json:"symbol"`
	Strike       float64    `json:"strike"`
	Expiry       time.Time  `json:"expiry"`
	Kind         OptionKind `json:"kind"`
	Contracts    int        `json:"contracts"`
	Premium      float64    `json:"premium"`
	CurrentValue float64    `json:"current_value"`
}

// IsShort returns true if the leg was sold to open.
func (l *OptionLeg) IsShort() bool {
	return l.Contracts < 0
}

// Quantity returns the unsigned contract count.
func (l *OptionLeg) Quantity() int {
	if l.Contracts < 0 {
		return -l.Contracts
	}
	return l.Contracts
}

// TotalPremium returns the total premium cash for the leg, always positive.
func (l *OptionLeg) TotalPremium() float64 {
	return l.Premium * SharesPerContract * float64(l.Quantity())
}

// SignedPremium returns the leg's premium cash flow with credit positive:
// short legs collected premium, long legs paid it.
func (l *OptionLeg) SignedPremium() float64 {
	if l.IsShort() {
		return l.TotalPremium()
	}
	return -l.TotalPremium()
}

// ExpiryDate returns the expiry formatted as an ISO-8601 date.
func (l *OptionLeg) ExpiryDate() string {
	return l.Expiry.Format("2006-01-02")
}

// Validate checks the invariants every normalized leg must satisfy.
func (l *OptionLeg) Validate() error {
	if l.Symbol == "" {
		return fmt.Errorf("leg has empty symbol")
	}
	if l.Symbol != strings.ToUpper(l.Symbol) {
		return fmt.Errorf("leg symbol %q is not uppercase", l.Symbol)
	}
	if l.Strike <= 0 {
		return fmt.Errorf("leg %s has non-positive strike %.2f", l.Symbol, l.Strike)
	}
	if !l.Kind.Valid() {
		return fmt.Errorf("leg %s has invalid option kind %q", l.Symbol, l.Kind)
	}
	if l.Contracts == 0 {
		return fmt.Errorf("leg %s has zero contracts", l.Symbol)
	}
	if l.Expiry.IsZero() {
		return fmt.Errorf("leg %s has no expiry", l.Symbol)
	}
	return nil
}

// AccountContext is a snapshot of share holdings, per-symbol cost basis, and
// cash. It is supplied once per analysis run and never mutated during it.
type AccountContext struct {
	Shares      map[string]int     `json:"shares"`
	CostBasis   map[string]float64 `json:"cost_basis"`
	CashBalance float64            `json:"cash_balance"`
}

// SharesFor returns the share count held for a symbol.
func (a *AccountContext) SharesFor(symbol string) int {
	if a == nil || a.Shares == nil {
		return 0
	}
	return a.Shares[symbol]
}

// CostBasisFor returns the per-share cost basis for a symbol, or false when no
// basis is known. A missing basis is distinct from a zero basis.
func (a *AccountContext) CostBasisFor(symbol string) (float64, bool) {
	if a == nil || a.CostBasis == nil {
		return 0, false
	}
	basis, ok := a.CostBasis[symbol]
	return basis, ok
}
