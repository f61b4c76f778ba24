package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"
	"github.com/linchengweiii/fxlots"
)

// --- Export Command ---

type exportCmd struct {
	output string
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "write a JSON backup of both ledgers" }
func (*exportCmd) Usage() string {
	return `export [-o <file>]

  Writes usdLots, usdSales, jpyLots and jpySales into one JSON document.
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.output, "o", "fx-backup-"+fxlots.Today().String()+".json", "Output file, - for stdout")
}

func (c *exportCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	svc, release, err := openService(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening ledger: %v\n", err)
		return subcommands.ExitFailure
	}
	defer release()

	b, err := svc.Export(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error exporting: %v\n", err)
		return subcommands.ExitFailure
	}
	if c.output == "-" {
		fmt.Println(string(b))
		return subcommands.ExitSuccess
	}
	if err := os.WriteFile(c.output, b, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %q: %v\n", c.output, err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Exported to %s\n", c.output)
	return subcommands.ExitSuccess
}

// --- Import Command ---

type importCmd struct {
	yes bool
}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "replace both ledgers with a JSON backup" }
func (*importCmd) Usage() string {
	return `import -y <file>

  Overwrites all ledger data with the backup. Use - to read stdin.
`
}

func (c *importCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.yes, "y", false, "Confirm overwriting the current data")
}

func (c *importCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	if !c.yes {
		fmt.Fprintln(os.Stderr, "Import overwrites all existing data; pass -y to confirm.")
		return subcommands.ExitUsageError
	}
	var data []byte
	var err error
	if name := f.Arg(0); name == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(name)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading backup: %v\n", err)
		return subcommands.ExitFailure
	}

	svc, release, err := openService(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening ledger: %v\n", err)
		return subcommands.ExitFailure
	}
	defer release()

	if err := svc.Import(ctx, data); err != nil {
		fmt.Fprintf(os.Stderr, "Error importing: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Println("Imported.")
	return subcommands.ExitSuccess
}

// --- Reset Command ---

type resetCmd struct {
	yes bool
}

func (*resetCmd) Name() string     { return "reset" }
func (*resetCmd) Synopsis() string { return "delete all ledger data" }
func (*resetCmd) Usage() string {
	return `reset -y

  Deletes every lot, sale and preference.
`
}

func (c *resetCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.yes, "y", false, "Confirm deleting all data")
}

func (c *resetCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if !c.yes {
		fmt.Fprintln(os.Stderr, "Reset deletes all data; pass -y to confirm.")
		return subcommands.ExitUsageError
	}
	svc, release, err := openService(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening ledger: %v\n", err)
		return subcommands.ExitFailure
	}
	defer release()

	if err := svc.Reset(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error resetting: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// --- Theme Command ---

type themeCmd struct{}

func (*themeCmd) Name() string     { return "theme" }
func (*themeCmd) Synopsis() string { return "show or set the display theme" }
func (*themeCmd) Usage() string {
	return `theme [light|dark]
`
}

func (*themeCmd) SetFlags(*flag.FlagSet) {}

func (*themeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() > 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	svc, release, err := openService(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening ledger: %v\n", err)
		return subcommands.ExitFailure
	}
	defer release()

	if f.NArg() == 0 {
		t, err := svc.Theme(ctx)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitFailure
		}
		fmt.Println(t)
		return subcommands.ExitSuccess
	}
	if err := svc.SetTheme(ctx, fxlots.Theme(f.Arg(0))); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	return subcommands.ExitSuccess
}
