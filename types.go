package fxlots

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ===== Domain =====

func init() {
	// Snapshots are plain JSON numbers, the same shape older exports use.
	decimal.MarshalJSONWithoutQuotes = true
}

type Currency string

const (
	USD Currency = "USD"
	JPY Currency = "JPY"
)

// Currencies lists the tracked ledgers in display order.
var Currencies = []Currency{USD, JPY}

func ParseCurrency(s string) (Currency, error) {
	switch Currency(strings.ToUpper(strings.TrimSpace(s))) {
	case USD:
		return USD, nil
	case JPY:
		return JPY, nil
	default:
		return "", fmt.Errorf("%w: unsupported currency %q (use USD|JPY)", ErrInvalidInput, s)
	}
}

// QuoteUnit is the number of units a rate is conventionally quoted for.
// Yen is quoted per 100; stored prices are always per 1 unit.
func (c Currency) QuoteUnit() decimal.Decimal {
	if c == JPY {
		return decimal.NewFromInt(100)
	}
	return decimal.NewFromInt(1)
}

type PurchaseLot struct {
	ID                string          `json:"id"`
	Currency          Currency        `json:"currency"`
	PurchaseDate      Date            `json:"purchaseDate"`
	PurchasePrice     decimal.Decimal `json:"purchasePrice"` // KRW per 1 unit
	InitialQuantity   decimal.Decimal `json:"initialQuantity"`
	RemainingQuantity decimal.Decimal `json:"remainingQuantity"`
	Fee               decimal.Decimal `json:"fee"`
	Memo              string          `json:"memo,omitempty"`
}

// SoldQuantity is the part of the lot already attributed to sales.
func (l PurchaseLot) SoldQuantity() decimal.Decimal {
	return l.InitialQuantity.Sub(l.RemainingQuantity)
}

type SaleRecord struct {
	ID             string          `json:"id"`
	PurchaseLotID  string          `json:"purchaseLotId"`
	Currency       Currency        `json:"currency"`
	SaleDate       Date            `json:"saleDate"`
	SalePrice      decimal.Decimal `json:"salePrice"` // KRW per 1 unit
	Quantity       decimal.Decimal `json:"quantity"`
	Fee            decimal.Decimal `json:"fee"`
	RealizedProfit decimal.Decimal `json:"realizedProfit"`
}

// LotInput is a fully parsed purchase as handed to the ledger.
type LotInput struct {
	Currency        Currency
	PurchaseDate    Date
	PurchasePrice   decimal.Decimal
	InitialQuantity decimal.Decimal
	Fee             decimal.Decimal
	Memo            string
}

// SaleInput is a fully parsed sale as handed to the ledger.
type SaleInput struct {
	PurchaseLotID string
	SaleDate      Date
	SalePrice     decimal.Decimal
	Quantity      decimal.Decimal
	Fee           decimal.Decimal
}

// realizedProfit is frozen on the sale; later lot price edits do not touch it.
func realizedProfit(salePrice, purchasePrice, quantity, fee decimal.Decimal) decimal.Decimal {
	return salePrice.Sub(purchasePrice).Mul(quantity).Sub(fee)
}
