package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

var commands = []subcommands.Command{
	&buyCmd{},
	&sellCmd{},
	&rmCmd{},
	&summaryCmd{},
	&historyCmd{},
	&exportCmd{},
	&importCmd{},
	&resetCmd{},
	&themeCmd{},
	&serveCmd{},
}

// completion describes the command line for shell completion.
func completion() *complete.Command {
	currency := predict.Set{"USD", "JPY"}
	amounts := func(extra map[string]complete.Predictor) map[string]complete.Predictor {
		m := map[string]complete.Predictor{
			"c":     currency,
			"d":     predict.Something,
			"p":     predict.Something,
			"q":     predict.Something,
			"krw":   predict.Something,
			"basis": predict.Set{"unit", "quote"},
			"fee":   predict.Something,
		}
		for k, v := range extra {
			m[k] = v
		}
		return m
	}
	return &complete.Command{
		Sub: map[string]*complete.Command{
			"buy":     {Flags: amounts(map[string]complete.Predictor{"id": predict.Something, "m": predict.Something})},
			"sell":    {Flags: amounts(map[string]complete.Predictor{"id": predict.Something, "lot": predict.Something})},
			"rm":      {Flags: map[string]complete.Predictor{"c": currency, "lot": predict.Something, "sale": predict.Something}},
			"summary": {Flags: map[string]complete.Predictor{"c": currency}},
			"history": {Flags: map[string]complete.Predictor{
				"c":    currency,
				"type": predict.Set{"purchase", "sale"},
				"from": predict.Something,
				"to":   predict.Something,
				"sort": predict.Set{"date", "type", "currency", "rate", "quantity", "krw_amount", "fee"},
				"asc":  predict.Nothing,
				"csv":  predict.Nothing,
			}},
			"export": {Flags: map[string]complete.Predictor{"o": predict.Files("*.json")}},
			"import": {Flags: map[string]complete.Predictor{"y": predict.Nothing}, Args: predict.Files("*.json")},
			"reset":  {Flags: map[string]complete.Predictor{"y": predict.Nothing}},
			"theme":  {Args: predict.Set{"light", "dark"}},
			"serve":  {Flags: map[string]complete.Predictor{"addr": predict.Something}},
		},
		Flags: map[string]complete.Predictor{
			"store":        predict.Set{"file", "memory", "postgres"},
			"data-dir":     predict.Dirs("*"),
			"postgres-dsn": predict.Something,
			"rates":        predict.Set{"none", "yahoo", "alphavantage"},
			"plain":        predict.Nothing,
		},
	}
}

func main() {
	// Answers shell completion requests and exits; a no-op otherwise.
	completion().Complete(path.Base(os.Args[0]))

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	for _, c := range commands {
		commander.Register(c, "")
	}

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
