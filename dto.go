package fxlots

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ===== DTOs =====
//
// Payloads carry form values as typed by a user: numbers or numeric strings,
// possibly empty, plus an entry mode. toInput is the one place they are
// parsed; the ledger only ever sees LotInput and SaleInput.

// quantityPlaces bounds quantities derived from a KRW total.
const quantityPlaces = 8

// Entry modes: the user typed the foreign quantity, or the KRW total.
const (
	ModeQuantity = "quantity"
	ModeKRW      = "krw"
)

// Rate bases: price per 1 unit, or per Currency.QuoteUnit() units.
const (
	BasisUnit  = "unit"
	BasisQuote = "quote"
)

// Number is a form field that may be a JSON number, a numeric string, an
// empty string or null. Empty and null read as "not given".
type Number struct {
	set bool
	v   decimal.Decimal
	err error
}

// Num parses a form string. Parse errors surface in toInput.
func Num(s string) Number {
	var n Number
	if err := n.UnmarshalJSON([]byte(fmt.Sprintf("%q", s))); err != nil {
		n.err = err
	}
	return n
}

// checkNumbers returns the first parse error among form fields.
func checkNumbers(ns ...Number) error {
	for _, n := range ns {
		if n.err != nil {
			return n.err
		}
	}
	return nil
}

func NumOf(d decimal.Decimal) Number { return Number{set: true, v: d} }

func (n Number) IsSet() bool { return n.set }

func (n Number) or(def decimal.Decimal) decimal.Decimal {
	if !n.set {
		return def
	}
	return n.v
}

func (n *Number) UnmarshalJSON(data []byte) error {
	s := string(bytes.TrimSpace(data))
	s = strings.TrimSpace(strings.Trim(s, `"`))
	if s == "" || s == "null" {
		*n = Number{}
		return nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return fmt.Errorf("%w: not a number: %q", ErrInvalidInput, s)
	}
	*n = Number{set: true, v: d}
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.set {
		return []byte("null"), nil
	}
	return n.v.MarshalJSON()
}

// LotForm is a purchase as entered on a form.
type LotForm struct {
	PurchaseDate    string `json:"purchaseDate"`
	PurchasePrice   Number `json:"purchasePrice"`
	InitialQuantity Number `json:"initialQuantity"`
	TotalKRW        Number `json:"totalKrwAmount"`
	Mode            string `json:"mode,omitempty"`
	RateBasis       string `json:"rateBasis,omitempty"`
	Fee             Number `json:"fee"`
	Memo            string `json:"memo,omitempty"`
}

// SaleForm is a sale as entered on a form.
type SaleForm struct {
	PurchaseLotID string `json:"purchaseLotId"`
	SaleDate      string `json:"saleDate"`
	SalePrice     Number `json:"salePrice"`
	Quantity      Number `json:"quantity"`
	TotalKRW      Number `json:"totalKrwAmount"`
	Mode          string `json:"mode,omitempty"`
	RateBasis     string `json:"rateBasis,omitempty"`
	Fee           Number `json:"fee"`
}

func parseFormDate(s string, today Date) (Date, error) {
	if strings.TrimSpace(s) == "" {
		return today, nil
	}
	d, err := ParseDate(s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return d, nil
}

// unitPrice brings a price typed on the given basis down to KRW per 1 unit.
func unitPrice(price Number, basis string, c Currency) (decimal.Decimal, error) {
	p := price.or(decimal.Zero)
	switch strings.ToLower(strings.TrimSpace(basis)) {
	case "", BasisUnit:
		return p, nil
	case BasisQuote:
		return p.Div(c.QuoteUnit()), nil
	default:
		return decimal.Zero, fmt.Errorf("%w: unsupported rateBasis %q (use unit|quote)", ErrInvalidInput, basis)
	}
}

// quantityFor resolves the entry mode into a foreign quantity.
func quantityFor(mode string, quantity, total Number, price decimal.Decimal) (decimal.Decimal, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", ModeQuantity:
		return quantity.or(decimal.Zero), nil
	case ModeKRW:
		if !price.IsPositive() {
			return decimal.Zero, fmt.Errorf("%w: price must be > 0 to derive quantity from a KRW total", ErrInvalidInput)
		}
		return total.or(decimal.Zero).DivRound(price, quantityPlaces), nil
	default:
		return decimal.Zero, fmt.Errorf("%w: unsupported mode %q (use quantity|krw)", ErrInvalidInput, mode)
	}
}

func (p LotForm) toInput(c Currency, today Date) (LotInput, error) {
	if err := checkNumbers(p.PurchasePrice, p.InitialQuantity, p.TotalKRW, p.Fee); err != nil {
		return LotInput{}, err
	}
	date, err := parseFormDate(p.PurchaseDate, today)
	if err != nil {
		return LotInput{}, err
	}
	price, err := unitPrice(p.PurchasePrice, p.RateBasis, c)
	if err != nil {
		return LotInput{}, err
	}
	// A KRW total is the cost of the whole lot, so derive with the unit price.
	qty, err := quantityFor(p.Mode, p.InitialQuantity, p.TotalKRW, price)
	if err != nil {
		return LotInput{}, err
	}
	if !price.IsPositive() || !qty.IsPositive() {
		return LotInput{}, fmt.Errorf("%w: price and quantity must be > 0", ErrInvalidInput)
	}
	return LotInput{
		Currency:        c,
		PurchaseDate:    date,
		PurchasePrice:   price,
		InitialQuantity: qty,
		Fee:             p.Fee.or(decimal.Zero),
		Memo:            strings.TrimSpace(p.Memo),
	}, nil
}

func (p SaleForm) toInput(c Currency, today Date) (SaleInput, error) {
	if err := checkNumbers(p.SalePrice, p.Quantity, p.TotalKRW, p.Fee); err != nil {
		return SaleInput{}, err
	}
	date, err := parseFormDate(p.SaleDate, today)
	if err != nil {
		return SaleInput{}, err
	}
	price, err := unitPrice(p.SalePrice, p.RateBasis, c)
	if err != nil {
		return SaleInput{}, err
	}
	qty, err := quantityFor(p.Mode, p.Quantity, p.TotalKRW, price)
	if err != nil {
		return SaleInput{}, err
	}
	if !price.IsPositive() || !qty.IsPositive() {
		return SaleInput{}, fmt.Errorf("%w: price and quantity must be > 0", ErrInvalidInput)
	}
	return SaleInput{
		PurchaseLotID: strings.TrimSpace(p.PurchaseLotID),
		SaleDate:      date,
		SalePrice:     price,
		Quantity:      qty,
		Fee:           p.Fee.or(decimal.Zero),
	}, nil
}
