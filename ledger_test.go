package fxlots

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bookWithSale is a USD book holding one 1000 @ 1300 lot, 400 of which were
// sold at 1350 with a 5000 fee.
func bookWithSale(t *testing.T) (Book, PurchaseLot, SaleRecord) {
	t.Helper()
	b, lot, err := NewBook(USD).CreateLot(lotIn(t, "2024-01-10", "1300", "1000", "0"))
	require.NoError(t, err)
	b, sale, err := b.CreateSale(saleIn(t, lot.ID, "2024-02-01", "1350", "400", "5000"))
	require.NoError(t, err)
	return b, lot, sale
}

func TestCreateLot(t *testing.T) {
	sequentialIDs(t)

	b, lot, err := NewBook(USD).CreateLot(lotIn(t, "2024-01-10", "1300", "1000", "2000"))
	require.NoError(t, err)

	assert.Equal(t, "id-1", lot.ID)
	assert.Equal(t, USD, lot.Currency)
	assertDec(t, "1000", lot.RemainingQuantity)
	assertDec(t, "2000", lot.Fee)
	require.Len(t, b.Lots, 1)
	assert.Equal(t, lot, b.Lots[0])
}

func TestCreateLot_Invalid(t *testing.T) {
	tests := []struct {
		name string
		in   func(t *testing.T) LotInput
	}{
		{"zero price", func(t *testing.T) LotInput { return lotIn(t, "2024-01-10", "0", "1000", "0") }},
		{"negative quantity", func(t *testing.T) LotInput { return lotIn(t, "2024-01-10", "1300", "-1", "0") }},
		{"negative fee", func(t *testing.T) LotInput { return lotIn(t, "2024-01-10", "1300", "1000", "-1") }},
		{"missing date", func(t *testing.T) LotInput {
			in := lotIn(t, "2024-01-10", "1300", "1000", "0")
			in.PurchaseDate = Date{}
			return in
		}},
		{"other currency", func(t *testing.T) LotInput {
			in := lotIn(t, "2024-01-10", "1300", "1000", "0")
			in.Currency = JPY
			return in
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBook(USD)
			nb, _, err := b.CreateLot(tt.in(t))
			assert.ErrorIs(t, err, ErrInvalidInput)
			assert.Empty(t, nb.Lots)
		})
	}
}

func TestCreateSale_RealizedProfit(t *testing.T) {
	b, lot, sale := bookWithSale(t)

	assertDec(t, "15000", sale.RealizedProfit)
	assert.Equal(t, lot.ID, sale.PurchaseLotID)
	got, err := b.Lot(lot.ID)
	require.NoError(t, err)
	assertDec(t, "600", got.RemainingQuantity)
	require.NoError(t, b.Check())
}

func TestCreateSale_Oversell(t *testing.T) {
	b, lot, _ := bookWithSale(t)

	nb, _, err := b.CreateSale(saleIn(t, lot.ID, "2024-02-02", "1350", "700", "0"))
	assert.ErrorIs(t, err, ErrInsufficientQuantity)
	assert.Equal(t, b, nb)

	got, _ := b.Lot(lot.ID)
	assertDec(t, "600", got.RemainingQuantity)
	assert.Len(t, b.Sales, 1)
}

func TestCreateSale_ExactRemainder(t *testing.T) {
	b, lot, _ := bookWithSale(t)

	b, _, err := b.CreateSale(saleIn(t, lot.ID, "2024-02-02", "1280", "600", "0"))
	require.NoError(t, err)

	got, _ := b.Lot(lot.ID)
	assert.True(t, got.RemainingQuantity.IsZero())
	assert.Empty(t, b.Holdings())
	require.NoError(t, b.Check())
}

func TestCreateSale_UnknownLot(t *testing.T) {
	_, _, err := NewBook(USD).CreateSale(saleIn(t, "nope", "2024-02-01", "1350", "1", "0"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEditSale_SameLot(t *testing.T) {
	b, lot, sale := bookWithSale(t)

	b, edited, err := b.EditSale(sale.ID, saleIn(t, lot.ID, "2024-02-01", "1350", "300", "5000"))
	require.NoError(t, err)

	assert.Equal(t, sale.ID, edited.ID)
	assertDec(t, "10000", edited.RealizedProfit)
	got, _ := b.Lot(lot.ID)
	assertDec(t, "700", got.RemainingQuantity)
	require.NoError(t, b.Check())
}

func TestEditSale_CanUseItsOwnQuantity(t *testing.T) {
	b, lot, sale := bookWithSale(t)

	// 600 remain, but the sale's own 400 come back first.
	b, _, err := b.EditSale(sale.ID, saleIn(t, "", "2024-02-01", "1350", "1000", "0"))
	require.NoError(t, err)

	got, _ := b.Lot(lot.ID)
	assert.True(t, got.RemainingQuantity.IsZero())
	require.NoError(t, b.Check())
}

func TestEditSale_Reassign(t *testing.T) {
	b, first, sale := bookWithSale(t)
	b, second, err := b.CreateLot(lotIn(t, "2024-01-20", "1320", "200", "0"))
	require.NoError(t, err)

	b, edited, err := b.EditSale(sale.ID, saleIn(t, second.ID, "2024-02-01", "1350", "150", "0"))
	require.NoError(t, err)

	assert.Equal(t, second.ID, edited.PurchaseLotID)
	assertDec(t, "4500", edited.RealizedProfit) // (1350-1320)*150
	got1, _ := b.Lot(first.ID)
	got2, _ := b.Lot(second.ID)
	assertDec(t, "1000", got1.RemainingQuantity)
	assertDec(t, "50", got2.RemainingQuantity)
	require.NoError(t, b.Check())
}

func TestEditSale_ReassignInsufficient(t *testing.T) {
	b, first, sale := bookWithSale(t)
	b, second, err := b.CreateLot(lotIn(t, "2024-01-20", "1320", "200", "0"))
	require.NoError(t, err)

	nb, _, err := b.EditSale(sale.ID, saleIn(t, second.ID, "2024-02-01", "1350", "250", "0"))
	assert.ErrorIs(t, err, ErrInsufficientQuantity)
	assert.Equal(t, b, nb)

	got1, _ := b.Lot(first.ID)
	assertDec(t, "600", got1.RemainingQuantity)
}

func TestEditSale_NotFound(t *testing.T) {
	b, lot, _ := bookWithSale(t)
	_, _, err := b.EditSale("nope", saleIn(t, lot.ID, "2024-02-01", "1350", "1", "0"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEditLot_ReduceBelowSold(t *testing.T) {
	b, lot, sale := bookWithSale(t)
	b, _, err := b.EditSale(sale.ID, saleIn(t, lot.ID, "2024-02-01", "1350", "300", "5000"))
	require.NoError(t, err)

	nb, _, err := b.EditLot(lot.ID, lotIn(t, "2024-01-10", "1300", "200", "0"))
	assert.ErrorIs(t, err, ErrInvalidReduction)
	assert.Equal(t, b, nb)
}

func TestEditLot_MovesRemainingByDelta(t *testing.T) {
	b, lot, sale := bookWithSale(t)

	b, edited, err := b.EditLot(lot.ID, lotIn(t, "2024-01-11", "1310", "1500", "100"))
	require.NoError(t, err)

	assertDec(t, "1100", edited.RemainingQuantity)
	assert.Equal(t, "2024-01-11", edited.PurchaseDate.String())

	// Realized profit stays frozen at the price of the time of sale.
	got, _ := b.Sale(sale.ID)
	assertDec(t, "15000", got.RealizedProfit)
	require.NoError(t, b.Check())
}

func TestEditLot_DownToSold(t *testing.T) {
	b, lot, _ := bookWithSale(t)

	b, edited, err := b.EditLot(lot.ID, lotIn(t, "2024-01-10", "1300", "400", "0"))
	require.NoError(t, err)
	assert.True(t, edited.RemainingQuantity.IsZero())
	require.NoError(t, b.Check())
}

func TestEditLot_Idempotent(t *testing.T) {
	b, lot, _ := bookWithSale(t)
	in := lotIn(t, "2024-01-10", "1300", "1000", "0")

	once, _, err := b.EditLot(lot.ID, in)
	require.NoError(t, err)
	twice, _, err := once.EditLot(lot.ID, in)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
	assert.Equal(t, b, once)
}

func TestDeleteLot_ReferencedBySales(t *testing.T) {
	b, lot, sale := bookWithSale(t)

	_, err := b.DeleteLot(lot.ID)
	assert.ErrorIs(t, err, ErrReferencedByOpenSales)

	b, err = b.DeleteSale(sale.ID)
	require.NoError(t, err)
	b, err = b.DeleteLot(lot.ID)
	require.NoError(t, err)
	assert.Empty(t, b.Lots)
}

func TestDeleteLot_NotFound(t *testing.T) {
	_, err := NewBook(JPY).DeleteLot("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteSale_RestoresLot(t *testing.T) {
	b, lot, sale := bookWithSale(t)

	b, err := b.DeleteSale(sale.ID)
	require.NoError(t, err)

	got, _ := b.Lot(lot.ID)
	assertDec(t, "1000", got.RemainingQuantity)
	assert.Empty(t, b.Sales)

	_, err = b.DeleteSale(sale.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteSale_MissingLot(t *testing.T) {
	b := NewBook(USD)
	b.Sales = []SaleRecord{{ID: "s1", PurchaseLotID: "gone", Quantity: dec(t, "5")}}

	nb, err := b.DeleteSale("s1")
	require.NoError(t, err)
	assert.Empty(t, nb.Sales)
}

func TestCreateThenDelete_RoundTrip(t *testing.T) {
	base, lot, _ := bookWithSale(t)

	b, sale, err := base.CreateSale(saleIn(t, lot.ID, "2024-03-01", "1400", "100", "0"))
	require.NoError(t, err)
	b, err = b.DeleteSale(sale.ID)
	require.NoError(t, err)
	assert.Equal(t, base, b)

	b, extra, err := base.CreateLot(lotIn(t, "2024-03-01", "1400", "10", "0"))
	require.NoError(t, err)
	b, err = b.DeleteLot(extra.ID)
	require.NoError(t, err)
	assert.Equal(t, base, b)
}

func TestOperations_LeaveReceiverUntouched(t *testing.T) {
	b, lot, sale := bookWithSale(t)
	snapshot := b.clone()

	_, _, _ = b.CreateLot(lotIn(t, "2024-03-01", "1400", "10", "0"))
	_, _, _ = b.EditLot(lot.ID, lotIn(t, "2024-01-10", "1300", "2000", "0"))
	_, _, _ = b.CreateSale(saleIn(t, lot.ID, "2024-03-01", "1400", "10", "0"))
	_, _, _ = b.EditSale(sale.ID, saleIn(t, lot.ID, "2024-03-01", "1400", "10", "0"))
	_, _ = b.DeleteSale(sale.ID)

	assert.Equal(t, snapshot, b)
}

func TestBook_SortedNewestFirst(t *testing.T) {
	b := NewBook(JPY)
	var err error
	for _, d := range []string{"2024-01-05", "2024-03-01", "2024-02-10", "2024-03-01"} {
		b, _, err = b.CreateLot(lotIn(t, d, "9.1", "1000", "0"))
		require.NoError(t, err)
	}
	var dates []string
	for _, l := range b.Lots {
		dates = append(dates, l.PurchaseDate.String())
	}
	assert.Equal(t, []string{"2024-03-01", "2024-03-01", "2024-02-10", "2024-01-05"}, dates)
}

// Remaining quantity always equals initial minus the sales against the lot.
func TestCheck_HoldsAcrossOperations(t *testing.T) {
	b := NewBook(USD)
	b, a, err := b.CreateLot(lotIn(t, "2024-01-01", "1300", "100", "0"))
	require.NoError(t, err)
	b, c, err := b.CreateLot(lotIn(t, "2024-01-02", "1310", "50", "0"))
	require.NoError(t, err)

	steps := []func(Book) (Book, error){
		func(b Book) (Book, error) {
			nb, _, err := b.CreateSale(saleIn(t, a.ID, "2024-02-01", "1350", "30", "0"))
			return nb, err
		},
		func(b Book) (Book, error) {
			nb, _, err := b.CreateSale(saleIn(t, c.ID, "2024-02-02", "1350", "50", "0"))
			return nb, err
		},
		func(b Book) (Book, error) {
			nb, _, err := b.EditSale(b.SalesOf(a.ID)[0].ID, saleIn(t, a.ID, "2024-02-01", "1350", "70", "0"))
			return nb, err
		},
		func(b Book) (Book, error) {
			nb, _, err := b.EditLot(a.ID, lotIn(t, "2024-01-01", "1300", "70", "0"))
			return nb, err
		},
		func(b Book) (Book, error) { return b.DeleteSale(b.SalesOf(c.ID)[0].ID) },
	}
	for i, step := range steps {
		b, err = step(b)
		require.NoError(t, err, "step %d", i)
		require.NoError(t, b.Check(), "step %d", i)
	}
}

func TestCheck_DetectsDrift(t *testing.T) {
	b, lot, _ := bookWithSale(t)
	i := b.lotIndex(lot.ID)
	b.Lots[i].RemainingQuantity = dec(t, "650")
	assert.Error(t, b.Check())
}

func TestSalesOf(t *testing.T) {
	b, lot, sale := bookWithSale(t)

	assert.Equal(t, []SaleRecord{sale}, b.SalesOf(lot.ID))
	none := b.SalesOf("missing")
	assert.NotNil(t, none)
	assert.Empty(t, none)
}
