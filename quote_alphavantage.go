package fxlots

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Alpha Vantage CURRENCY_EXCHANGE_RATE rates (simple, cached)

const alphaVantageBaseURL = "https://www.alphavantage.co"

type AlphaVantageRates struct {
	baseURL string
	apiKey  string
	cli     *http.Client
	ttl     time.Duration

	mu    sync.RWMutex
	cache map[Currency]cachedRate
}

func NewAlphaVantageRates(apiKey string) (*AlphaVantageRates, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, ErrAPIKeyMissing
	}
	return &AlphaVantageRates{
		baseURL: alphaVantageBaseURL,
		apiKey:  apiKey,
		cli:     &http.Client{Timeout: 8 * time.Second},
		ttl:     60 * time.Second,
		cache:   make(map[Currency]cachedRate),
	}, nil
}

var _ RateSource = (*AlphaVantageRates)(nil)

func (p *AlphaVantageRates) Rate(c Currency) (decimal.Decimal, time.Time, error) {
	p.mu.RLock()
	if q, ok := p.cache[c]; ok && time.Since(q.fetched) < p.ttl {
		p.mu.RUnlock()
		return q.rate, q.asOf, nil
	}
	p.mu.RUnlock()

	q := url.Values{}
	q.Set("function", "CURRENCY_EXCHANGE_RATE")
	q.Set("from_currency", string(c))
	q.Set("to_currency", "KRW")
	q.Set("apikey", p.apiKey)
	req, _ := http.NewRequest(http.MethodGet, p.baseURL+"/query?"+q.Encode(), nil)
	req.Header.Set("User-Agent", "fxlots/1.0")

	resp, err := p.cli.Do(req)
	if err != nil {
		return decimal.Zero, time.Time{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, time.Time{}, fmt.Errorf("alphavantage http %d", resp.StatusCode)
	}

	var raw map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return decimal.Zero, time.Time{}, err
	}
	if _, ok := raw["Note"]; ok {
		return decimal.Zero, time.Time{}, ErrAPIRateLimited
	}
	if _, ok := raw["Information"]; ok {
		return decimal.Zero, time.Time{}, ErrAPIRateLimited
	}
	fx, ok := raw["Realtime Currency Exchange Rate"].(map[string]any)
	if !ok || len(fx) == 0 {
		return decimal.Zero, time.Time{}, ErrRateNotFound
	}
	rateStr, _ := fx["5. Exchange Rate"].(string)
	asOfStr, _ := fx["6. Last Refreshed"].(string)

	rate, err := decimal.NewFromString(rateStr)
	if err != nil || !rate.IsPositive() {
		return decimal.Zero, time.Time{}, ErrRateNotFound
	}
	asOf := time.Now()
	if asOfStr != "" {
		if t, e := time.Parse("2006-01-02 15:04:05", asOfStr); e == nil {
			asOf = t
		}
	}

	p.mu.Lock()
	p.cache[c] = cachedRate{rate: rate, asOf: asOf, fetched: time.Now()}
	p.mu.Unlock()
	return rate, asOf, nil
}
