package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/subcommands"
	"github.com/linchengweiii/fxlots"
)

// --- Summary Command ---

type summaryCmd struct {
	currency string
}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "display holdings and realized profit" }
func (*summaryCmd) Usage() string {
	return `summary [-c USD|JPY]

  Displays open lots, average purchase price and realized profit. Without -c,
  displays both ledgers and the cumulative profit table.
`
}

func (c *summaryCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.currency, "c", "", "Limit to one currency (USD or JPY)")
}

func (c *summaryCmd) render(ctx context.Context, svc *fxlots.LedgerService, w io.Writer) error {
	if c.currency == "" {
		d, err := svc.Dashboard(ctx)
		if err != nil {
			return fmt.Errorf("computing summary: %w", err)
		}
		return fxlots.RenderDashboard(w, d)
	}
	ccy, err := fxlots.ParseCurrency(c.currency)
	if err != nil {
		return err
	}
	s, err := svc.Summary(ctx, ccy)
	if err != nil {
		return fmt.Errorf("computing summary: %w", err)
	}
	return fxlots.RenderSummary(w, s)
}

func (c *summaryCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	svc, release, err := openService(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening ledger: %v\n", err)
		return subcommands.ExitFailure
	}
	defer release()

	var b strings.Builder
	if err := c.render(ctx, svc, &b); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	printMarkdown(ctx, svc, b.String())
	return subcommands.ExitSuccess
}

// --- History Command ---

type historyCmd struct {
	currency string
	txType   string
	from     string
	to       string
	sort     string
	asc      bool
	csv      bool
}

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "list purchases and sales" }
func (*historyCmd) Usage() string {
	return `history [-c USD|JPY] [-type purchase|sale] [-from <date>] [-to <date>] [-sort <column>] [-asc] [-csv]

  Lists purchases and sales of both ledgers, newest first. -csv writes the
  same rows as CSV to stdout.
`
}

func (c *historyCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.currency, "c", "", "Limit to one currency (USD or JPY)")
	f.StringVar(&c.txType, "type", "", "Limit to purchase or sale")
	f.StringVar(&c.from, "from", "", "First date, inclusive")
	f.StringVar(&c.to, "to", "", "Last date, inclusive")
	f.StringVar(&c.sort, "sort", "date", "Sort column: date, type, currency, rate, quantity, krw_amount or fee")
	f.BoolVar(&c.asc, "asc", false, "Sort ascending")
	f.BoolVar(&c.csv, "csv", false, "Write CSV instead of a table")
}

func (c *historyCmd) filter() (fxlots.HistoryFilter, error) {
	f := fxlots.HistoryFilter{Type: fxlots.TxType(strings.ToLower(c.txType)), Desc: !c.asc}
	var err error
	if c.currency != "" {
		if f.Currency, err = fxlots.ParseCurrency(c.currency); err != nil {
			return f, err
		}
	}
	if f.Type != "" && f.Type != fxlots.TxPurchase && f.Type != fxlots.TxSale {
		return f, fmt.Errorf("unsupported type %q (use purchase|sale)", c.txType)
	}
	if c.from != "" {
		if f.From, err = fxlots.ParseDate(c.from); err != nil {
			return f, err
		}
	}
	if c.to != "" {
		if f.To, err = fxlots.ParseDate(c.to); err != nil {
			return f, err
		}
	}
	f.Sort, err = fxlots.ParseHistorySort(c.sort)
	return f, err
}

func (c *historyCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	filter, err := c.filter()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		f.Usage()
		return subcommands.ExitUsageError
	}
	svc, release, err := openService(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening ledger: %v\n", err)
		return subcommands.ExitFailure
	}
	defer release()

	txs, err := svc.History(ctx, filter)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing history: %v\n", err)
		return subcommands.ExitFailure
	}
	if c.csv {
		if err := fxlots.WriteHistoryCSV(os.Stdout, txs); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitFailure
		}
		return subcommands.ExitSuccess
	}
	var b strings.Builder
	if err := fxlots.RenderHistory(&b, txs); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	printMarkdown(ctx, svc, b.String())
	return subcommands.ExitSuccess
}
