// Package normalize canonicalizes raw leg records extracted upstream into the
// internal OptionLeg shape: ISO-8601 expiries, uppercase symbols and kinds,
// validated numeric fields.
//
// Normalization is a pure function of its input: no I/O beyond logging, no
// shared state, O(n) over the batch. A malformed leg is dropped with a logged
// warning; it never aborts the batch.
package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/eddiefleurent/wheelhouse/internal/models"
)

// expiryLayouts are the date formats observed in brokerage exports, tried in
// order. The first layout is the canonical one, so normalizing an
// already-ISO date is the identity transform.
var expiryLayouts = []string{
	"2006-01-02",
	"Jan-02-2006", // e.g. "Jul-18-2025"
	"Jan-2-2006",
	"01/02/2006",
	"2006/01/02",
	"Jan 2, 2006",
	"20060102",
}

// Warning records one dropped leg and why.
type Warning struct {
	Index  int    `json:"index"`
	Symbol string `json:"symbol"`
	Reason string `json:"reason"`
}

func (w Warning) String() string {
	return fmt.Sprintf("leg %d (%s): %s", w.Index, w.Symbol, w.Reason)
}

// Legs canonicalizes a batch of raw legs. Legs that cannot be repaired are
// dropped and reported as warnings; the remainder of the batch proceeds.
func Legs(raw []models.RawLeg, logger *logrus.Logger) ([]models.OptionLeg, []Warning) {
	legs := make([]models.OptionLeg, 0, len(raw))
	var warnings []Warning

	for i, r := range raw {
		leg, err := Leg(r)
		if err != nil {
			w := Warning{Index: i, Symbol: strings.ToUpper(strings.TrimSpace(r.Symbol)), Reason: err.Error()}
			warnings = append(warnings, w)
			if logger != nil {
				logger.WithFields(logrus.Fields{
					"index":  w.Index,
					"symbol": w.Symbol,
				}).Warnf("dropping malformed leg: %v", err)
			}
			continue
		}
		legs = append(legs, leg)
	}

	return legs, warnings
}

// Leg canonicalizes a single raw leg.
func Leg(r models.RawLeg) (models.OptionLeg, error) {
	var leg models.OptionLeg

	symbol := strings.ToUpper(strings.TrimSpace(r.Symbol))
	if symbol == "" {
		return leg, fmt.Errorf("empty symbol")
	}

	kind, err := models.ParseOptionKind(r.OptionType)
	if err != nil {
		return leg, err
	}

	strike, err := parseFloat("strike", r.Strike)
	if err != nil {
		return leg, err
	}
	if strike <= 0 {
		return leg, fmt.Errorf("strike must be positive, got %.4f", strike)
	}

	expiry, err := ParseExpiry(r.Expiry)
	if err != nil {
		return leg, err
	}

	contracts, err := parseInt("contracts", r.Contracts)
	if err != nil {
		return leg, err
	}
	if contracts == 0 {
		return leg, fmt.Errorf("contracts must be non-zero")
	}

	premium, err := parseFloat("premium", r.Premium)
	if err != nil {
		return leg, err
	}
	if premium < 0 {
		return leg, fmt.Errorf("premium must be non-negative, got %.4f", premium)
	}

	// CurrentValue is optional in some exports; default to zero when absent.
	currentValue := 0.0
	if strings.TrimSpace(r.CurrentValue) != "" {
		currentValue, err = parseFloat("currentValue", r.CurrentValue)
		if err != nil {
			return leg, err
		}
	}

	leg = models.OptionLeg{
		Symbol:       symbol,
		Strike:       strike,
		Expiry:       expiry,
		Kind:         kind,
		Contracts:    contracts,
		Premium:      premium,
		CurrentValue: currentValue,
	}
	if err := leg.Validate(); err != nil {
		return models.OptionLeg{}, err
	}
	return leg, nil
}

// ParseExpiry parses an expiry date in any of the supported layouts and
// returns it at date precision in UTC.
func ParseExpiry(s string) (time.Time, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("empty expiry")
	}
	for _, layout := range expiryLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized expiry date %q", s)
}

func parseFloat(field, s string) (float64, error) {
	cleaned := strings.TrimSpace(strings.ReplaceAll(strings.TrimPrefix(strings.TrimSpace(s), "$"), ",", ""))
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("non-numeric %s %q", field, s)
	}
	return v, nil
}

func parseInt(field, s string) (int, error) {
	cleaned := strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	cleaned = strings.TrimPrefix(cleaned, "+")
	v, err := strconv.Atoi(cleaned)
	if err != nil {
		return 0, fmt.Errorf("non-numeric %s %q", field, s)
	}
	return v, nil
}
