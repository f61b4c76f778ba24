package fxlots

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Yahoo Finance v8 chart rates (cached), e.g. USDKRW=X.

const yahooBaseURL = "https://query2.finance.yahoo.com"

type YahooRates struct {
	baseURL string
	cli     *http.Client
	ttl     time.Duration

	mu    sync.RWMutex
	cache map[Currency]cachedRate
}

func NewYahooRates() *YahooRates {
	return &YahooRates{
		baseURL: yahooBaseURL,
		cli:     &http.Client{Timeout: 8 * time.Second},
		ttl:     60 * time.Second,
		cache:   make(map[Currency]cachedRate),
	}
}

var _ RateSource = (*YahooRates)(nil)

// Rate returns KRW per 1 unit of c.
func (y *YahooRates) Rate(c Currency) (decimal.Decimal, time.Time, error) {
	y.mu.RLock()
	if q, ok := y.cache[c]; ok && time.Since(q.fetched) < y.ttl {
		y.mu.RUnlock()
		return q.rate, q.asOf, nil
	}
	y.mu.RUnlock()

	pair := string(c) + "KRW=X"
	url := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1h&range=1d", y.baseURL, pair)
	req, _ := http.NewRequest(http.MethodGet, url, nil)
	req.Header.Set("User-Agent", "fxlots/1.0")
	resp, err := y.cli.Do(req)
	if err != nil {
		return decimal.Zero, time.Time{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, time.Time{}, fmt.Errorf("yahoo fx http %d", resp.StatusCode)
	}

	var raw struct {
		Chart struct {
			Result []struct {
				Meta struct {
					RegularMarketPrice float64 `json:"regularMarketPrice"`
					RegularMarketTime  int64   `json:"regularMarketTime"`
				} `json:"meta"`
				Timestamp  []int64 `json:"timestamp"`
				Indicators struct {
					Quote []struct {
						Close []float64 `json:"close"`
					} `json:"quote"`
				} `json:"indicators"`
			} `json:"result"`
		} `json:"chart"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return decimal.Zero, time.Time{}, err
	}
	if len(raw.Chart.Result) == 0 {
		return decimal.Zero, time.Time{}, ErrRateNotFound
	}
	r := raw.Chart.Result[0]
	price := r.Meta.RegularMarketPrice
	asOf := time.Unix(r.Meta.RegularMarketTime, 0)

	// Fallback: last non-zero close if meta is missing.
	if (price <= 0 || r.Meta.RegularMarketTime == 0) && len(r.Indicators.Quote) > 0 && len(r.Indicators.Quote[0].Close) == len(r.Timestamp) {
		for i := len(r.Timestamp) - 1; i >= 0; i-- {
			if cl := r.Indicators.Quote[0].Close[i]; cl > 0 {
				price = cl
				asOf = time.Unix(r.Timestamp[i], 0)
				break
			}
		}
	}
	if price <= 0 {
		return decimal.Zero, time.Time{}, ErrRateNotFound
	}
	if asOf.Unix() <= 0 {
		asOf = time.Now()
	}

	rate := decimal.NewFromFloat(price)
	y.mu.Lock()
	y.cache[c] = cachedRate{rate: rate, asOf: asOf, fetched: time.Now()}
	y.mu.Unlock()
	return rate, asOf, nil
}
