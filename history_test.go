package fxlots

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func historyBooks(t *testing.T) (Book, Book) {
	t.Helper()
	usd, _, _ := bookWithSale(t)
	jpy, lot, err := NewBook(JPY).CreateLot(LotInput{
		PurchaseDate:    day(t, "2024-01-15"),
		PurchasePrice:   dec(t, "9.1"),
		InitialQuantity: dec(t, "100000"),
		Fee:             dec(t, "0"),
		Memo:            "trip | Osaka",
	})
	require.NoError(t, err)
	jpy, _, err = jpy.CreateSale(saleIn(t, lot.ID, "2024-03-20", "9.2", "50000", "0"))
	require.NoError(t, err)
	return usd, jpy
}

func TestHistory_DefaultNewestFirst(t *testing.T) {
	usd, jpy := historyBooks(t)

	txs := History(HistoryFilter{Desc: true}, usd, jpy)

	require.Len(t, txs, 4)
	var dates []string
	for _, tx := range txs {
		dates = append(dates, tx.Date.String())
	}
	assert.Equal(t, []string{"2024-03-20", "2024-02-01", "2024-01-15", "2024-01-10"}, dates)

	sale := txs[1]
	assert.Equal(t, TxSale, sale.Type)
	assertDec(t, "540000", sale.KRWAmount)
	require.NotNil(t, sale.RealizedProfit)
	assertDec(t, "15000", *sale.RealizedProfit)

	purchase := txs[3]
	assert.Equal(t, TxPurchase, purchase.Type)
	assertDec(t, "1000", purchase.Quantity) // initial, not remaining
	assert.Nil(t, purchase.RealizedProfit)
}

func TestHistory_Filters(t *testing.T) {
	usd, jpy := historyBooks(t)

	tests := []struct {
		name string
		f    HistoryFilter
		want int
	}{
		{"currency", HistoryFilter{Currency: JPY}, 2},
		{"type", HistoryFilter{Type: TxSale}, 2},
		{"from", HistoryFilter{From: day(t, "2024-02-01")}, 2},
		{"to", HistoryFilter{To: day(t, "2024-01-15")}, 2},
		{"range and type", HistoryFilter{From: day(t, "2024-01-11"), To: day(t, "2024-02-28"), Type: TxPurchase}, 1},
		{"empty range", HistoryFilter{From: day(t, "2025-01-01")}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txs := History(tt.f, usd, jpy)
			assert.Len(t, txs, tt.want)
			assert.NotNil(t, txs)
		})
	}
}

func TestHistory_SortByColumn(t *testing.T) {
	usd, jpy := historyBooks(t)

	txs := History(HistoryFilter{Sort: "rate"}, usd, jpy)

	require.Len(t, txs, 4)
	assertDec(t, "9.1", txs[0].Rate)
	assertDec(t, "1350", txs[3].Rate)
}

func TestParseHistorySort(t *testing.T) {
	s, err := ParseHistorySort("")
	require.NoError(t, err)
	assert.Equal(t, "date", s)

	s, err = ParseHistorySort(" KRW_Amount ")
	require.NoError(t, err)
	assert.Equal(t, "krw_amount", s)

	_, err = ParseHistorySort("memo")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestWriteHistoryCSV(t *testing.T) {
	usd, jpy := historyBooks(t)
	txs := History(HistoryFilter{Currency: JPY, Sort: "date"}, usd, jpy)

	var buf bytes.Buffer
	require.NoError(t, WriteHistoryCSV(&buf, txs))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, historyHeader, rows[0])
	assert.Equal(t, []string{"purchase", "JPY", "2024-01-15"}, rows[1][1:4])
	assert.Equal(t, "", rows[1][8])
	assert.Equal(t, "trip | Osaka", rows[1][9])
	assert.Equal(t, "sale", rows[2][1])
	assert.Equal(t, "5000", rows[2][8])
}

func TestSortLotsAndSales(t *testing.T) {
	b, lot, _ := bookWithSale(t)
	b, cheap, err := b.CreateLot(lotIn(t, "2024-03-01", "1250", "50", "0"))
	require.NoError(t, err)

	lots, err := SortLots(b.Lots, "purchasePrice", false)
	require.NoError(t, err)
	require.Len(t, lots, 2)
	assert.Equal(t, []string{cheap.ID, lot.ID}, []string{lots[0].ID, lots[1].ID})

	lots, err = SortLots(b.Lots, "", false)
	require.NoError(t, err)
	assert.Equal(t, lot.ID, lots[0].ID)
	assert.Equal(t, cheap.ID, b.Lots[0].ID, "input left in stored order")

	_, err = SortLots(b.Lots, "memo", true)
	assert.ErrorIs(t, err, ErrInvalidInput)

	sales, err := SortSales(b.SalesOf("missing"), "quantity", true)
	require.NoError(t, err)
	assert.NotNil(t, sales)
	assert.Empty(t, sales)

	_, err = SortSales(b.Sales, "purchasePrice", true)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
