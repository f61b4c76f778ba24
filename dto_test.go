package fxlots

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumber_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		in    string
		set   bool
		value string
	}{
		{`1300`, true, "1300"},
		{`"1,300.5"`, true, "1300.5"},
		{`" 42 "`, true, "42"},
		{`""`, false, ""},
		{`null`, false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var n Number
			require.NoError(t, json.Unmarshal([]byte(tt.in), &n))
			assert.Equal(t, tt.set, n.IsSet())
			if tt.set {
				assertDec(t, tt.value, n.v)
			}
		})
	}

	var n Number
	assert.ErrorIs(t, json.Unmarshal([]byte(`"abc"`), &n), ErrInvalidInput)
}

func TestLotForm_DecodesCamelCase(t *testing.T) {
	var form LotForm
	require.NoError(t, json.Unmarshal([]byte(`{
		"purchaseDate": "2024-01-10",
		"purchasePrice": "1300",
		"initialQuantity": 1000,
		"fee": "",
		"memo": " salary "
	}`), &form))

	in, err := form.toInput(USD, day(t, "2024-05-05"))
	require.NoError(t, err)
	assert.Equal(t, "2024-01-10", in.PurchaseDate.String())
	assertDec(t, "1300", in.PurchasePrice)
	assertDec(t, "1000", in.InitialQuantity)
	assert.True(t, in.Fee.IsZero())
	assert.Equal(t, "salary", in.Memo)
}

func TestLotForm_DefaultsToToday(t *testing.T) {
	form := LotForm{PurchasePrice: Num("1300"), InitialQuantity: Num("10")}
	in, err := form.toInput(USD, day(t, "2024-05-05"))
	require.NoError(t, err)
	assert.Equal(t, "2024-05-05", in.PurchaseDate.String())
}

func TestLotForm_KRWMode(t *testing.T) {
	form := LotForm{
		PurchaseDate:  "2024-01-10",
		PurchasePrice: Num("1300"),
		TotalKRW:      Num("1,300,000"),
		Mode:          ModeKRW,
	}
	in, err := form.toInput(USD, Today())
	require.NoError(t, err)
	assertDec(t, "1000", in.InitialQuantity)

	form.TotalKRW = Num("1000000")
	in, err = form.toInput(USD, Today())
	require.NoError(t, err)
	assertDec(t, "769.23076923", in.InitialQuantity)
}

func TestLotForm_QuoteBasis(t *testing.T) {
	form := LotForm{
		PurchaseDate:    "2024-01-10",
		PurchasePrice:   Num("912"),
		InitialQuantity: Num("100000"),
		RateBasis:       BasisQuote,
	}
	in, err := form.toInput(JPY, Today())
	require.NoError(t, err)
	assertDec(t, "9.12", in.PurchasePrice)

	// USD is quoted per 1 unit, so quote and unit agree.
	in, err = form.toInput(USD, Today())
	require.NoError(t, err)
	assertDec(t, "912", in.PurchasePrice)
}

func TestLotForm_Invalid(t *testing.T) {
	tests := []struct {
		name string
		form LotForm
	}{
		{"missing price", LotForm{InitialQuantity: Num("1")}},
		{"missing quantity", LotForm{PurchasePrice: Num("1300")}},
		{"bad number", LotForm{PurchasePrice: Num("13o0"), InitialQuantity: Num("1")}},
		{"bad date", LotForm{PurchaseDate: "10/01/2024", PurchasePrice: Num("1300"), InitialQuantity: Num("1")}},
		{"bad mode", LotForm{PurchasePrice: Num("1300"), InitialQuantity: Num("1"), Mode: "usd"}},
		{"bad basis", LotForm{PurchasePrice: Num("1300"), InitialQuantity: Num("1"), RateBasis: "per10"}},
		{"krw without price", LotForm{TotalKRW: Num("1000"), Mode: ModeKRW}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.form.toInput(USD, Today())
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestSaleForm_ToInput(t *testing.T) {
	var form SaleForm
	require.NoError(t, json.Unmarshal([]byte(`{
		"purchaseLotId": "lot-1",
		"saleDate": "2024-02-01T00:00:00.000Z",
		"salePrice": 1350,
		"totalKrwAmount": "540000",
		"mode": "krw",
		"fee": 5000
	}`), &form))

	in, err := form.toInput(USD, Today())
	require.NoError(t, err)
	assert.Equal(t, "lot-1", in.PurchaseLotID)
	assert.Equal(t, "2024-02-01", in.SaleDate.String())
	assertDec(t, "400", in.Quantity)
	assertDec(t, "5000", in.Fee)
}
