package fxlots

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dec parses a decimal literal or fails the test.
func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func day(t *testing.T, s string) Date {
	t.Helper()
	d, err := ParseDate(s)
	require.NoError(t, err)
	return d
}

// assertDec compares numerically, so 15000 and 15000.00 are equal.
func assertDec(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	w, err := decimal.NewFromString(want)
	require.NoError(t, err)
	assert.Truef(t, w.Equal(got), "want %s, got %s %v", want, got, msgAndArgs)
}

// sequentialIDs makes newID deterministic for the duration of a test.
func sequentialIDs(t *testing.T) {
	t.Helper()
	orig := newID
	n := 0
	newID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	t.Cleanup(func() { newID = orig })
}

func lotIn(t *testing.T, date, price, qty, fee string) LotInput {
	t.Helper()
	return LotInput{
		PurchaseDate:    day(t, date),
		PurchasePrice:   dec(t, price),
		InitialQuantity: dec(t, qty),
		Fee:             dec(t, fee),
	}
}

func saleIn(t *testing.T, lotID, date, price, qty, fee string) SaleInput {
	t.Helper()
	return SaleInput{
		PurchaseLotID: lotID,
		SaleDate:      day(t, date),
		SalePrice:     dec(t, price),
		Quantity:      dec(t, qty),
		Fee:           dec(t, fee),
	}
}
