package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/linchengweiii/fxlots"
	"github.com/shopspring/decimal"
)

// amountFlags are the price and quantity flags shared by buy and sell.
type amountFlags struct {
	currency string
	date     string
	price    string
	quantity string
	totalKRW string
	basis    string
	fee      string
}

func (a *amountFlags) set(f *flag.FlagSet) {
	f.StringVar(&a.currency, "c", "USD", "Currency (USD or JPY)")
	f.StringVar(&a.date, "d", fxlots.Today().String(), "Transaction date (YYYY-MM-DD)")
	f.StringVar(&a.price, "p", "", "Rate in KRW")
	f.StringVar(&a.quantity, "q", "", "Foreign quantity")
	f.StringVar(&a.totalKRW, "krw", "", "KRW total instead of a quantity; the quantity is derived from the rate")
	f.StringVar(&a.basis, "basis", fxlots.BasisUnit, "Rate basis: unit (per 1) or quote (per 100 for JPY)")
	f.StringVar(&a.fee, "fee", "", "Fee in KRW")
}

// flagsSet reports the flags given on the command line.
func flagsSet(f *flag.FlagSet) map[string]bool {
	set := map[string]bool{}
	f.Visit(func(fl *flag.Flag) { set[fl.Name] = true })
	return set
}

// keep takes every amount the user left out of an edit from the stored record.
func (a *amountFlags) keep(set map[string]bool, date fxlots.Date, price, quantity, fee decimal.Decimal) {
	if !set["d"] {
		a.date = date.String()
	}
	if !set["p"] {
		a.price = price.String()
		a.basis = fxlots.BasisUnit
	}
	if !set["q"] && !set["krw"] {
		a.quantity = quantity.String()
	}
	if !set["fee"] {
		a.fee = fee.String()
	}
}

func (a *amountFlags) missing() bool {
	return a.price == "" || (a.quantity == "" && a.totalKRW == "")
}

func (a *amountFlags) mode() string {
	if a.totalKRW != "" {
		return fxlots.ModeKRW
	}
	return fxlots.ModeQuantity
}

// --- Buy Command ---

type buyCmd struct {
	amountFlags
	id   string
	memo string
}

func (*buyCmd) Name() string     { return "buy" }
func (*buyCmd) Synopsis() string { return "record a purchase lot, or edit one" }
func (*buyCmd) Usage() string {
	return `buy [-c USD|JPY] [-d <date>] -p <rate> (-q <quantity> | -krw <total>) [-fee <krw>] [-m <memo>] [-id <lot>]

  Records a purchase lot. With -id, edits an existing lot: flags left out
  keep the lot's stored values, and its remaining quantity moves by the
  change in initial quantity.
`
}

func (c *buyCmd) SetFlags(f *flag.FlagSet) {
	c.amountFlags.set(f)
	f.StringVar(&c.id, "id", "", "Lot to edit instead of creating one")
	f.StringVar(&c.memo, "m", "", "An optional note for the lot")
}

// prefill keeps the stored values of an edited lot for flags not given.
func (c *buyCmd) prefill(set map[string]bool, lot fxlots.PurchaseLot) {
	c.keep(set, lot.PurchaseDate, lot.PurchasePrice, lot.InitialQuantity, lot.Fee)
	if !set["m"] {
		c.memo = lot.Memo
	}
}

func (c *buyCmd) form() fxlots.LotForm {
	return fxlots.LotForm{
		PurchaseDate:    c.date,
		PurchasePrice:   fxlots.Num(c.price),
		InitialQuantity: fxlots.Num(c.quantity),
		TotalKRW:        fxlots.Num(c.totalKRW),
		Mode:            c.mode(),
		RateBasis:       c.basis,
		Fee:             fxlots.Num(c.fee),
		Memo:            c.memo,
	}
}

func (c *buyCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ccy, err := fxlots.ParseCurrency(c.currency)
	if err != nil || (c.id == "" && c.missing()) {
		f.Usage()
		return subcommands.ExitUsageError
	}
	svc, release, err := openService(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening ledger: %v\n", err)
		return subcommands.ExitFailure
	}
	defer release()

	var lot fxlots.PurchaseLot
	if c.id != "" {
		if lot, err = svc.Lot(ctx, ccy, c.id); err != nil {
			fmt.Fprintf(os.Stderr, "Error loading lot: %v\n", err)
			return subcommands.ExitFailure
		}
		c.prefill(flagsSet(f), lot)
		lot, err = svc.EditLot(ctx, ccy, c.id, c.form())
	} else {
		lot, err = svc.CreateLot(ctx, ccy, c.form())
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error recording lot: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("%s lot %s: %s at %s, %s remaining\n", ccy, lot.ID, lot.InitialQuantity, lot.PurchasePrice, lot.RemainingQuantity)
	return subcommands.ExitSuccess
}

// --- Sell Command ---

type sellCmd struct {
	amountFlags
	lot string
	id  string
}

func (*sellCmd) Name() string     { return "sell" }
func (*sellCmd) Synopsis() string { return "record a sale against a lot, or edit one" }
func (*sellCmd) Usage() string {
	return `sell [-c USD|JPY] -lot <lot> [-d <date>] -p <rate> (-q <quantity> | -krw <total>) [-fee <krw>] [-id <sale>]

  Sells quantity out of one purchase lot and records the realized profit.
  With -id, edits an existing sale: flags left out keep the sale's stored
  values, and -lot may move it to another lot.
`
}

func (c *sellCmd) SetFlags(f *flag.FlagSet) {
	c.amountFlags.set(f)
	f.StringVar(&c.lot, "lot", "", "Purchase lot to sell from")
	f.StringVar(&c.id, "id", "", "Sale to edit instead of creating one")
}

// prefill keeps the stored values of an edited sale for flags not given.
func (c *sellCmd) prefill(set map[string]bool, sale fxlots.SaleRecord) {
	c.keep(set, sale.SaleDate, sale.SalePrice, sale.Quantity, sale.Fee)
	if !set["lot"] {
		c.lot = sale.PurchaseLotID
	}
}

func (c *sellCmd) form() fxlots.SaleForm {
	return fxlots.SaleForm{
		PurchaseLotID: c.lot,
		SaleDate:      c.date,
		SalePrice:     fxlots.Num(c.price),
		Quantity:      fxlots.Num(c.quantity),
		TotalKRW:      fxlots.Num(c.totalKRW),
		Mode:          c.mode(),
		RateBasis:     c.basis,
		Fee:           fxlots.Num(c.fee),
	}
}

func (c *sellCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ccy, err := fxlots.ParseCurrency(c.currency)
	if err != nil || (c.id == "" && (c.lot == "" || c.missing())) {
		f.Usage()
		return subcommands.ExitUsageError
	}
	svc, release, err := openService(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening ledger: %v\n", err)
		return subcommands.ExitFailure
	}
	defer release()

	var sale fxlots.SaleRecord
	if c.id != "" {
		if sale, err = svc.Sale(ctx, ccy, c.id); err != nil {
			fmt.Fprintf(os.Stderr, "Error loading sale: %v\n", err)
			return subcommands.ExitFailure
		}
		c.prefill(flagsSet(f), sale)
		sale, err = svc.EditSale(ctx, ccy, c.id, c.form())
	} else {
		sale, err = svc.CreateSale(ctx, ccy, c.form())
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error recording sale: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("%s sale %s: %s at %s, realized %s\n", ccy, sale.ID, sale.Quantity, sale.SalePrice, fxlots.FormatKRW(sale.RealizedProfit))
	return subcommands.ExitSuccess
}

// --- Rm Command ---

type rmCmd struct {
	currency string
	lot      string
	sale     string
}

func (*rmCmd) Name() string     { return "rm" }
func (*rmCmd) Synopsis() string { return "delete a lot or a sale" }
func (*rmCmd) Usage() string {
	return `rm [-c USD|JPY] (-lot <id> | -sale <id>)

  Deletes a lot that no sale refers to, or deletes a sale and returns its
  quantity to its lot.
`
}

func (c *rmCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.currency, "c", "USD", "Currency (USD or JPY)")
	f.StringVar(&c.lot, "lot", "", "Lot to delete")
	f.StringVar(&c.sale, "sale", "", "Sale to delete")
}

func (c *rmCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ccy, err := fxlots.ParseCurrency(c.currency)
	if err != nil || (c.lot == "") == (c.sale == "") {
		f.Usage()
		return subcommands.ExitUsageError
	}
	svc, release, err := openService(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening ledger: %v\n", err)
		return subcommands.ExitFailure
	}
	defer release()

	if c.lot != "" {
		err = svc.DeleteLot(ctx, ccy, c.lot)
	} else {
		err = svc.DeleteSale(ctx, ccy, c.sale)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error deleting: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
