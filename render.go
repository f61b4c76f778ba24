package fxlots

import (
	"embed"
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

//go:embed templates/*.md
var templates embed.FS

var reports = template.Must(template.New("").Funcs(template.FuncMap{
	"krw":  FormatKRW,
	"rate": func(d decimal.Decimal) string { return d.Round(4).String() },
	"qty":  func(d decimal.Decimal) string { return d.String() },
	"cell": func(s string) string { return strings.ReplaceAll(s, "|", `\|`) },
}).ParseFS(templates, "templates/*.md"))

// FormatKRW rounds to the won and formats with grouping and the currency sign.
func FormatKRW(d decimal.Decimal) string {
	return money.New(d.Round(0).IntPart(), money.KRW).Display()
}

func render(w io.Writer, name string, data any) error {
	if err := reports.ExecuteTemplate(w, name, data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	return nil
}

// RenderDashboard writes both ledger summaries and the cumulative profit table
// as markdown.
func RenderDashboard(w io.Writer, d Dashboard) error { return render(w, "dashboard.md", d) }

func RenderSummary(w io.Writer, s Summary) error { return render(w, "summary.md", s) }

func RenderHistory(w io.Writer, txs []Transaction) error { return render(w, "history.md", txs) }
