package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/google/subcommands"
	"github.com/linchengweiii/fxlots"
)

type serveCmd struct {
	addr string
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "serve the ledger as a JSON API" }
func (*serveCmd) Usage() string {
	return `serve [-addr <host:port>]
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.addr, "addr", envOr("FXLOTS_ADDR", ":8080"), "Listen address")
}

func (c *serveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	svc, release, err := openService(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening ledger: %v\n", err)
		return subcommands.ExitFailure
	}
	defer release()

	log.Printf("listening on %s (store=%s, rates=%s)", c.addr, *storeKind, *rateKind)
	if err := http.ListenAndServe(c.addr, fxlots.NewServer(svc)); err != nil {
		log.Printf("serve: %v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
