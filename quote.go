package fxlots

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// RateSource returns the current KRW price of one unit of a currency.
type RateSource interface {
	Rate(c Currency) (rate decimal.Decimal, asOf time.Time, err error)
}

var (
	ErrRateNotFound   = errors.New("rate not found")
	ErrAPIKeyMissing  = errors.New("ALPHAVANTAGE_API_KEY not set")
	ErrAPIRateLimited = errors.New("alpha vantage rate limit or information note")
)

// cachedRate is a quote kept for its source's ttl.
type cachedRate struct {
	rate    decimal.Decimal
	asOf    time.Time
	fetched time.Time
}
