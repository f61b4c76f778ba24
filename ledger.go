package fxlots

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Book is one currency's pair of lots and sales, both newest first.
//
// Operations never modify the receiver: they return a new Book, or an error
// and nothing else, so a rejected operation has no observable effect.
type Book struct {
	Currency Currency      `json:"currency"`
	Lots     []PurchaseLot `json:"lots"`
	Sales    []SaleRecord  `json:"sales"`
}

// newID is swapped in tests that need stable ids.
var newID = uuid.NewString

func NewBook(c Currency) Book {
	return Book{Currency: c, Lots: []PurchaseLot{}, Sales: []SaleRecord{}}
}

func (b Book) clone() Book {
	out := Book{
		Currency: b.Currency,
		Lots:     make([]PurchaseLot, len(b.Lots)),
		Sales:    make([]SaleRecord, len(b.Sales)),
	}
	copy(out.Lots, b.Lots)
	copy(out.Sales, b.Sales)
	return out
}

func (b Book) lotIndex(id string) int {
	for i := range b.Lots {
		if b.Lots[i].ID == id {
			return i
		}
	}
	return -1
}

func (b Book) saleIndex(id string) int {
	for i := range b.Sales {
		if b.Sales[i].ID == id {
			return i
		}
	}
	return -1
}

func (b Book) Lot(id string) (PurchaseLot, error) {
	i := b.lotIndex(id)
	if i < 0 {
		return PurchaseLot{}, fmt.Errorf("%w: %s lot %q", ErrNotFound, b.Currency, id)
	}
	return b.Lots[i], nil
}

func (b Book) Sale(id string) (SaleRecord, error) {
	i := b.saleIndex(id)
	if i < 0 {
		return SaleRecord{}, fmt.Errorf("%w: %s sale %q", ErrNotFound, b.Currency, id)
	}
	return b.Sales[i], nil
}

// Holdings returns the lots that still have unsold quantity.
func (b Book) Holdings() []PurchaseLot {
	out := []PurchaseLot{}
	for _, l := range b.Lots {
		if l.RemainingQuantity.IsPositive() {
			out = append(out, l)
		}
	}
	return out
}

// SalesOf returns the sales referencing a lot.
func (b Book) SalesOf(lotID string) []SaleRecord {
	out := []SaleRecord{}
	for _, s := range b.Sales {
		if s.PurchaseLotID == lotID {
			out = append(out, s)
		}
	}
	return out
}

func (b Book) validateLot(in LotInput) error {
	if in.Currency != "" && in.Currency != b.Currency {
		return fmt.Errorf("%w: %s lot in %s ledger", ErrInvalidInput, in.Currency, b.Currency)
	}
	if in.PurchaseDate.IsZero() {
		return fmt.Errorf("%w: purchase date is required", ErrInvalidInput)
	}
	if !in.PurchasePrice.IsPositive() || !in.InitialQuantity.IsPositive() {
		return fmt.Errorf("%w: price and quantity must be > 0", ErrInvalidInput)
	}
	if in.Fee.IsNegative() {
		return fmt.Errorf("%w: fee must be >= 0", ErrInvalidInput)
	}
	return nil
}

func validateSale(in SaleInput) error {
	if in.SaleDate.IsZero() {
		return fmt.Errorf("%w: sale date is required", ErrInvalidInput)
	}
	if !in.SalePrice.IsPositive() || !in.Quantity.IsPositive() {
		return fmt.Errorf("%w: price and quantity must be > 0", ErrInvalidInput)
	}
	if in.Fee.IsNegative() {
		return fmt.Errorf("%w: fee must be >= 0", ErrInvalidInput)
	}
	return nil
}

// CreateLot records a purchase. The whole quantity starts out unsold.
func (b Book) CreateLot(in LotInput) (Book, PurchaseLot, error) {
	if err := b.validateLot(in); err != nil {
		return b, PurchaseLot{}, err
	}
	lot := PurchaseLot{
		ID:                newID(),
		Currency:          b.Currency,
		PurchaseDate:      in.PurchaseDate,
		PurchasePrice:     in.PurchasePrice,
		InitialQuantity:   in.InitialQuantity,
		RemainingQuantity: in.InitialQuantity,
		Fee:               in.Fee,
		Memo:              in.Memo,
	}
	nb := b.clone()
	nb.Lots = append(nb.Lots, lot)
	nb.sortLots()
	return nb, lot, nil
}

// EditLot overwrites a lot's fields. A change of initial quantity moves the
// remaining quantity by the same delta; sales already made stay attributed.
func (b Book) EditLot(id string, in LotInput) (Book, PurchaseLot, error) {
	i := b.lotIndex(id)
	if i < 0 {
		return b, PurchaseLot{}, fmt.Errorf("%w: %s lot %q", ErrNotFound, b.Currency, id)
	}
	if err := b.validateLot(in); err != nil {
		return b, PurchaseLot{}, err
	}
	orig := b.Lots[i]
	sold := orig.SoldQuantity()
	if in.InitialQuantity.LessThan(sold) {
		return b, PurchaseLot{}, fmt.Errorf("%w: %s sold from lot %q, got %s",
			ErrInvalidReduction, sold, id, in.InitialQuantity)
	}
	lot := PurchaseLot{
		ID:                orig.ID,
		Currency:          b.Currency,
		PurchaseDate:      in.PurchaseDate,
		PurchasePrice:     in.PurchasePrice,
		InitialQuantity:   in.InitialQuantity,
		RemainingQuantity: orig.RemainingQuantity.Add(in.InitialQuantity.Sub(orig.InitialQuantity)),
		Fee:               in.Fee,
		Memo:              in.Memo,
	}
	nb := b.clone()
	nb.Lots[i] = lot
	nb.sortLots()
	return nb, lot, nil
}

// DeleteLot removes a lot no sale refers to. Any reference blocks deletion,
// even one from a lot that has since been fully restored.
func (b Book) DeleteLot(id string) (Book, error) {
	i := b.lotIndex(id)
	if i < 0 {
		return b, fmt.Errorf("%w: %s lot %q", ErrNotFound, b.Currency, id)
	}
	if n := len(b.SalesOf(id)); n > 0 {
		return b, fmt.Errorf("%w: lot %q has %d sale(s); delete them first", ErrReferencedByOpenSales, id, n)
	}
	nb := b.clone()
	nb.Lots = append(nb.Lots[:i], nb.Lots[i+1:]...)
	return nb, nil
}

// CreateSale sells quantity out of one lot and freezes the realized profit
// at the lot's current purchase price.
func (b Book) CreateSale(in SaleInput) (Book, SaleRecord, error) {
	li := b.lotIndex(in.PurchaseLotID)
	if li < 0 {
		return b, SaleRecord{}, fmt.Errorf("%w: %s lot %q", ErrNotFound, b.Currency, in.PurchaseLotID)
	}
	if err := validateSale(in); err != nil {
		return b, SaleRecord{}, err
	}
	lot := b.Lots[li]
	if in.Quantity.GreaterThan(lot.RemainingQuantity) {
		return b, SaleRecord{}, fmt.Errorf("%w: want %s, lot %q has %s",
			ErrInsufficientQuantity, in.Quantity, lot.ID, lot.RemainingQuantity)
	}
	sale := SaleRecord{
		ID:             newID(),
		PurchaseLotID:  lot.ID,
		Currency:       b.Currency,
		SaleDate:       in.SaleDate,
		SalePrice:      in.SalePrice,
		Quantity:       in.Quantity,
		Fee:            in.Fee,
		RealizedProfit: realizedProfit(in.SalePrice, lot.PurchasePrice, in.Quantity, in.Fee),
	}
	nb := b.clone()
	nb.Lots[li].RemainingQuantity = lot.RemainingQuantity.Sub(in.Quantity)
	nb.Sales = append(nb.Sales, sale)
	nb.sortSales()
	return nb, sale, nil
}

// EditSale replaces a sale. Its original quantity goes back to the lot it
// came from before the new quantity is checked against the target lot.
// An empty PurchaseLotID keeps the sale on its current lot.
func (b Book) EditSale(id string, in SaleInput) (Book, SaleRecord, error) {
	si := b.saleIndex(id)
	if si < 0 {
		return b, SaleRecord{}, fmt.Errorf("%w: %s sale %q", ErrNotFound, b.Currency, id)
	}
	orig := b.Sales[si]
	if in.PurchaseLotID == "" {
		in.PurchaseLotID = orig.PurchaseLotID
	}
	ti := b.lotIndex(in.PurchaseLotID)
	if ti < 0 {
		return b, SaleRecord{}, fmt.Errorf("%w: %s lot %q", ErrNotFound, b.Currency, in.PurchaseLotID)
	}
	if err := validateSale(in); err != nil {
		return b, SaleRecord{}, err
	}
	target := b.Lots[ti]
	available := target.RemainingQuantity
	if target.ID == orig.PurchaseLotID {
		available = available.Add(orig.Quantity)
	}
	if in.Quantity.GreaterThan(available) {
		return b, SaleRecord{}, fmt.Errorf("%w: want %s, lot %q has %s",
			ErrInsufficientQuantity, in.Quantity, target.ID, available)
	}

	nb := b.clone()
	if oi := nb.lotIndex(orig.PurchaseLotID); oi >= 0 {
		nb.Lots[oi].RemainingQuantity = nb.Lots[oi].RemainingQuantity.Add(orig.Quantity)
	}
	nb.Lots[ti].RemainingQuantity = nb.Lots[ti].RemainingQuantity.Sub(in.Quantity)
	sale := SaleRecord{
		ID:             orig.ID,
		PurchaseLotID:  target.ID,
		Currency:       b.Currency,
		SaleDate:       in.SaleDate,
		SalePrice:      in.SalePrice,
		Quantity:       in.Quantity,
		Fee:            in.Fee,
		RealizedProfit: realizedProfit(in.SalePrice, target.PurchasePrice, in.Quantity, in.Fee),
	}
	nb.Sales[si] = sale
	nb.sortSales()
	return nb, sale, nil
}

// DeleteSale removes a sale and returns its quantity to the lot. A sale whose
// lot is gone (possible only after a raw import) is removed on its own.
func (b Book) DeleteSale(id string) (Book, error) {
	si := b.saleIndex(id)
	if si < 0 {
		return b, fmt.Errorf("%w: %s sale %q", ErrNotFound, b.Currency, id)
	}
	sale := b.Sales[si]
	nb := b.clone()
	if li := nb.lotIndex(sale.PurchaseLotID); li >= 0 {
		nb.Lots[li].RemainingQuantity = nb.Lots[li].RemainingQuantity.Add(sale.Quantity)
	}
	nb.Sales = append(nb.Sales[:si], nb.Sales[si+1:]...)
	return nb, nil
}

// Check verifies that every lot's remaining quantity matches its sales and
// that nothing crosses into the other currency's ledger.
func (b Book) Check() error {
	sold := make(map[string]decimal.Decimal, len(b.Lots))
	for _, s := range b.Sales {
		if s.Currency != "" && s.Currency != b.Currency {
			return fmt.Errorf("sale %q: currency %s in %s ledger", s.ID, s.Currency, b.Currency)
		}
		if b.lotIndex(s.PurchaseLotID) < 0 {
			return fmt.Errorf("sale %q: unknown lot %q", s.ID, s.PurchaseLotID)
		}
		sold[s.PurchaseLotID] = sold[s.PurchaseLotID].Add(s.Quantity)
	}
	for _, l := range b.Lots {
		if l.Currency != "" && l.Currency != b.Currency {
			return fmt.Errorf("lot %q: currency %s in %s ledger", l.ID, l.Currency, b.Currency)
		}
		if l.RemainingQuantity.IsNegative() || l.RemainingQuantity.GreaterThan(l.InitialQuantity) {
			return fmt.Errorf("lot %q: remaining %s outside [0, %s]", l.ID, l.RemainingQuantity, l.InitialQuantity)
		}
		if !l.SoldQuantity().Equal(sold[l.ID]) {
			return fmt.Errorf("lot %q: remaining %s but sales total %s of %s",
				l.ID, l.RemainingQuantity, sold[l.ID], l.InitialQuantity)
		}
	}
	return nil
}

func (b *Book) sortLots() {
	insertionSort(b.Lots, func(x, y PurchaseLot) bool { return x.PurchaseDate.After(y.PurchaseDate) })
}

func (b *Book) sortSales() {
	insertionSort(b.Sales, func(x, y SaleRecord) bool { return x.SaleDate.After(y.SaleDate) })
}
