package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/linchengweiii/fxlots"
	"github.com/linchengweiii/fxlots/postgres"
)

// as a CLI application, it has a very short lived lifecycle, so global flags are fine.

var (
	storeKind   = flag.String("store", envOr("FXLOTS_STORE", "file"), "Storage backend: file, memory or postgres")
	dataDir     = flag.String("data-dir", envOr("FXLOTS_DATA_DIR", "./data"), "Folder holding the ledger files (file store)")
	postgresDSN = flag.String("postgres-dsn", os.Getenv("FXLOTS_POSTGRES_DSN"), "Connection string (postgres store)")
	rateKind    = flag.String("rates", envOr("FXLOTS_RATES", "none"), "Live KRW rate source: none, yahoo or alphavantage")
	plain       = flag.Bool("plain", false, "Print raw markdown instead of rendering it")
)

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// openBlobs opens the configured backend. release frees it.
func openBlobs(ctx context.Context) (blobs fxlots.BlobStore, release func(), err error) {
	switch strings.ToLower(strings.TrimSpace(*storeKind)) {
	case "memory":
		return fxlots.NewMemoryStore(), func() {}, nil
	case "postgres":
		if *postgresDSN == "" {
			return nil, nil, fmt.Errorf("postgres store needs -postgres-dsn or FXLOTS_POSTGRES_DSN")
		}
		pool, err := postgres.NewPool(ctx, *postgresDSN)
		if err != nil {
			return nil, nil, err
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return postgres.NewBlobStore(pool), pool.Close, nil
	case "file", "":
		store, err := fxlots.NewFileStore(*dataDir)
		if err != nil {
			return nil, nil, fmt.Errorf("init file store: %w", err)
		}
		return store, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store %q (use file|memory|postgres)", *storeKind)
	}
}

func openRates() fxlots.RateSource {
	switch strings.ToLower(strings.TrimSpace(*rateKind)) {
	case "yahoo":
		return fxlots.NewYahooRates()
	case "alphavantage", "alpha", "av":
		av, err := fxlots.NewAlphaVantageRates(os.Getenv("ALPHAVANTAGE_API_KEY"))
		if err != nil {
			log.Printf("Alpha Vantage not configured (%v); falling back to Yahoo.", err)
			return fxlots.NewYahooRates()
		}
		return av
	default:
		return nil
	}
}

// openService wires storage, rates and logging into a ledger service.
func openService(ctx context.Context) (*fxlots.LedgerService, func(), error) {
	blobs, release, err := openBlobs(ctx)
	if err != nil {
		return nil, nil, err
	}
	logger := log.New(os.Stderr, "fxlots: ", log.LstdFlags)
	svc := fxlots.NewLedgerService(fxlots.NewStorage(blobs, logger), openRates(), logger)
	return svc, release, nil
}

// printMarkdown renders md for the terminal using the stored theme.
func printMarkdown(ctx context.Context, svc *fxlots.LedgerService, md string) {
	if *plain {
		fmt.Print(md)
		return
	}
	theme, err := svc.Theme(ctx)
	if err != nil {
		log.Printf("warning: reading theme: %v", err)
		theme = fxlots.ThemeLight
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(string(theme)),
		glamour.WithWordWrap(120),
	)
	if err != nil {
		fmt.Print(md)
		return
	}
	out, err := r.Render(md)
	if err != nil {
		fmt.Print(md)
		return
	}
	fmt.Print(out)
}
