// Package greeks serves option risk sensitivities to the analysis pipeline
// under a strict external request budget, with TTL-based caching and
// staleness marking. Quotes come from a rate-limited market-data provider;
// cache state is the only long-lived mutable data in the system and is owned
// exclusively by this package.
package greeks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/eddiefleurent/wheelhouse/internal/models"
)

// strikeMatchEpsilon is the tolerance for matching strike prices in the
// provider's chain response.
const strikeMatchEpsilon = 1e-3

// ProviderError represents a provider HTTP error with status code and body.
type ProviderError struct {
	Status int
	Body   string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error %d: %s", e.Status, e.Body)
}

// ErrQuoteNotFound is returned when the provider's chain has no contract
// matching the requested key.
var ErrQuoteNotFound = errors.New("no matching contract in option chain")

// Provider fetches Greeks for one option contract. Implementations must
// honor ctx for timeout and cancellation.
type Provider interface {
	GetGreeks(ctx context.Context, key models.QuoteKey) (*models.GreeksQuote, error)
}

// HTTPProvider calls a Tradier-style market-data API: one option-chain
// request per (symbol, expiry), from which the requested contract is picked.
type HTTPProvider struct {
	client  *http.Client
	apiKey  string
	baseURL string
	now     func() time.Time
}

// NewHTTPProvider creates a provider client. An empty baseURL selects the
// production endpoint.
func NewHTTPProvider(apiKey, baseURL string, client *http.Client) *HTTPProvider {
	if baseURL == "" {
		baseURL = "https://api.tradier.com/v1"
	}
	baseURL = strings.TrimRight(baseURL, "/")
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPProvider{
		client:  client,
		apiKey:  apiKey,
		baseURL: baseURL,
		now:     time.Now,
	}
}

// chainResponse mirrors the provider's option-chain payload, narrowed to the
// fields this engine reads.
type chainResponse struct {
	Options struct {
		Option []chainOption `json:"option"`
	} `json:"options"`
}

type chainOption struct {
	Strike     float64      `json:"strike"`
	OptionType string       `json:"option_type"`
	Greeks     *chainGreeks `json:"greeks,omitempty"`
}

type chainGreeks struct {
	Delta  float64 `json:"delta"`
	Gamma  float64 `json:"gamma"`
	Theta  float64 `json:"theta"`
	Vega   float64 `json:"vega"`
	MidIV  float64 `json:"mid_iv"`
	SmvVol float64 `json:"smv_vol"`
}

// GetGreeks fetches the chain for the key's symbol and expiry and returns the
// Greeks of the matching contract.
func (p *HTTPProvider) GetGreeks(ctx context.Context, key models.QuoteKey) (*models.GreeksQuote, error) {
	params := url.Values{}
	params.Set("symbol", key.Symbol)
	params.Set("expiration", key.Expiry)
	params.Set("greeks", "true")

	var chain chainResponse
	endpoint := p.baseURL + "/markets/options/chains?" + params.Encode()
	if err := p.getJSON(ctx, endpoint, &chain); err != nil {
		return nil, err
	}

	wantType := strings.ToLower(string(key.Kind))
	for i := range chain.Options.Option {
		opt := &chain.Options.Option[i]
		if !strings.EqualFold(opt.OptionType, wantType) {
			continue
		}
		if math.Abs(opt.Strike-key.Strike) > strikeMatchEpsilon {
			continue
		}
		if opt.Greeks == nil {
			return nil, fmt.Errorf("contract %s has no greeks data", key)
		}
		iv := opt.Greeks.MidIV
		if iv == 0 {
			iv = opt.Greeks.SmvVol
		}
		return &models.GreeksQuote{
			Delta:     opt.Greeks.Delta,
			Gamma:     opt.Greeks.Gamma,
			Theta:     opt.Greeks.Theta,
			Vega:      opt.Greeks.Vega,
			IV:        iv,
			FetchedAt: p.now().UTC(),
		}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrQuoteNotFound, key)
}

func (p *HTTPProvider) getJSON(ctx context.Context, endpoint string, response interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return err
	}
	req.Header.Add("Authorization", "Bearer "+p.apiKey)
	req.Header.Add("Accept", "application/json")
	req.Header.Add("User-Agent", "wheelhouse/1.0")

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		// 64KB cap to avoid huge payloads
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if readErr != nil {
			return &ProviderError{Status: resp.StatusCode, Body: "failed to read error body"}
		}
		return &ProviderError{Status: resp.StatusCode, Body: string(body)}
	}

	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(response); err != nil && err != io.EOF {
		return err
	}
	return nil
}
