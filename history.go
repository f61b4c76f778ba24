package fxlots

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
)

type TxType string

const (
	TxPurchase TxType = "purchase"
	TxSale     TxType = "sale"
)

// Transaction is one row of the combined purchase/sale history.
type Transaction struct {
	ID             string           `json:"id"`
	Type           TxType           `json:"type"`
	Currency       Currency         `json:"currency"`
	Date           Date             `json:"date"`
	Rate           decimal.Decimal  `json:"rate"`
	Quantity       decimal.Decimal  `json:"quantity"`
	KRWAmount      decimal.Decimal  `json:"krwAmount"`
	Fee            decimal.Decimal  `json:"fee"`
	RealizedProfit *decimal.Decimal `json:"realizedProfit,omitempty"`
	Memo           string           `json:"memo,omitempty"`
}

type HistoryFilter struct {
	Currency Currency // "" for both
	Type     TxType   // "" for both
	From     Date     // inclusive, zero for open
	To       Date     // inclusive, zero for open
	Sort     string   // "date" | "type" | "currency" | "rate" | "quantity" | "krw_amount" | "fee"
	Desc     bool
}

// columns maps a sort column name to its comparator.
type columns[T any] map[string]func(a, b T) int

// parse validates a column name; empty means def.
func (c columns[T]) parse(s, def string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	if _, ok := c[s]; !ok {
		return "", fmt.Errorf("%w: unsupported sort %q", ErrInvalidInput, s)
	}
	return s, nil
}

// sort orders xs in place by col, stable for equal values.
func (c columns[T]) sort(xs []T, col string, desc bool) {
	cmp := c[col]
	if desc {
		insertionSort(xs, func(a, b T) bool { return cmp(a, b) > 0 })
	} else {
		insertionSort(xs, func(a, b T) bool { return cmp(a, b) < 0 })
	}
}

var historyColumns = columns[Transaction]{
	"date":       func(a, b Transaction) int { return a.Date.Compare(b.Date) },
	"type":       func(a, b Transaction) int { return strings.Compare(string(a.Type), string(b.Type)) },
	"currency":   func(a, b Transaction) int { return strings.Compare(string(a.Currency), string(b.Currency)) },
	"rate":       func(a, b Transaction) int { return a.Rate.Cmp(b.Rate) },
	"quantity":   func(a, b Transaction) int { return a.Quantity.Cmp(b.Quantity) },
	"krw_amount": func(a, b Transaction) int { return a.KRWAmount.Cmp(b.KRWAmount) },
	"fee":        func(a, b Transaction) int { return a.Fee.Cmp(b.Fee) },
}

// ParseHistorySort validates a sort column; empty means "date".
func ParseHistorySort(s string) (string, error) {
	return historyColumns.parse(strings.ToLower(s), "date")
}

var lotColumns = columns[PurchaseLot]{
	"purchaseDate":      func(a, b PurchaseLot) int { return a.PurchaseDate.Compare(b.PurchaseDate) },
	"purchasePrice":     func(a, b PurchaseLot) int { return a.PurchasePrice.Cmp(b.PurchasePrice) },
	"initialQuantity":   func(a, b PurchaseLot) int { return a.InitialQuantity.Cmp(b.InitialQuantity) },
	"remainingQuantity": func(a, b PurchaseLot) int { return a.RemainingQuantity.Cmp(b.RemainingQuantity) },
	"fee":               func(a, b PurchaseLot) int { return a.Fee.Cmp(b.Fee) },
}

var saleColumns = columns[SaleRecord]{
	"saleDate":       func(a, b SaleRecord) int { return a.SaleDate.Compare(b.SaleDate) },
	"salePrice":      func(a, b SaleRecord) int { return a.SalePrice.Cmp(b.SalePrice) },
	"quantity":       func(a, b SaleRecord) int { return a.Quantity.Cmp(b.Quantity) },
	"fee":            func(a, b SaleRecord) int { return a.Fee.Cmp(b.Fee) },
	"realizedProfit": func(a, b SaleRecord) int { return a.RealizedProfit.Cmp(b.RealizedProfit) },
}

// SortLots returns a sorted copy of lots. Columns are the lot's JSON field
// names; empty means purchaseDate.
func SortLots(lots []PurchaseLot, col string, desc bool) ([]PurchaseLot, error) {
	col, err := lotColumns.parse(col, "purchaseDate")
	if err != nil {
		return nil, err
	}
	out := append([]PurchaseLot{}, lots...)
	lotColumns.sort(out, col, desc)
	return out, nil
}

// SortSales returns a sorted copy of sales. Columns are the sale's JSON field
// names; empty means saleDate.
func SortSales(sales []SaleRecord, col string, desc bool) ([]SaleRecord, error) {
	col, err := saleColumns.parse(col, "saleDate")
	if err != nil {
		return nil, err
	}
	out := append([]SaleRecord{}, sales...)
	saleColumns.sort(out, col, desc)
	return out, nil
}

// History flattens books into transactions, purchases before sales, then
// filters and sorts them. Purchases report their initial quantity.
func History(f HistoryFilter, books ...Book) []Transaction {
	var purchases, sales []Transaction
	for _, b := range books {
		for _, l := range b.Lots {
			purchases = append(purchases, Transaction{
				ID:        l.ID,
				Type:      TxPurchase,
				Currency:  b.Currency,
				Date:      l.PurchaseDate,
				Rate:      l.PurchasePrice,
				Quantity:  l.InitialQuantity,
				KRWAmount: l.PurchasePrice.Mul(l.InitialQuantity).Round(0),
				Fee:       l.Fee,
				Memo:      l.Memo,
			})
		}
		for _, s := range b.Sales {
			profit := s.RealizedProfit
			sales = append(sales, Transaction{
				ID:             s.ID,
				Type:           TxSale,
				Currency:       b.Currency,
				Date:           s.SaleDate,
				Rate:           s.SalePrice,
				Quantity:       s.Quantity,
				KRWAmount:      s.SalePrice.Mul(s.Quantity).Round(0),
				Fee:            s.Fee,
				RealizedProfit: &profit,
			})
		}
	}

	out := []Transaction{}
	for _, t := range append(purchases, sales...) {
		if f.Currency != "" && t.Currency != f.Currency {
			continue
		}
		if f.Type != "" && t.Type != f.Type {
			continue
		}
		if !f.From.IsZero() && t.Date.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && t.Date.After(f.To) {
			continue
		}
		out = append(out, t)
	}

	col := f.Sort
	if _, ok := historyColumns[col]; !ok {
		col = "date"
	}
	historyColumns.sort(out, col, f.Desc)
	return out
}

var historyHeader = []string{"id", "type", "currency", "date", "rate", "quantity", "krw_amount", "fee", "realized_profit", "memo"}

// WriteHistoryCSV writes a header row and one row per transaction. Numbers
// are written in full precision.
func WriteHistoryCSV(w io.Writer, txs []Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(historyHeader); err != nil {
		return err
	}
	for _, t := range txs {
		profit := ""
		if t.RealizedProfit != nil {
			profit = t.RealizedProfit.String()
		}
		if err := cw.Write([]string{
			t.ID,
			string(t.Type),
			string(t.Currency),
			t.Date.String(),
			t.Rate.String(),
			t.Quantity.String(),
			t.KRWAmount.String(),
			t.Fee.String(),
			profit,
			t.Memo,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
