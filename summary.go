package fxlots

import (
	"time"

	"github.com/shopspring/decimal"
)

/* ===================== Per-currency summary ===================== */

type Summary struct {
	Currency             Currency        `json:"currency"`
	Holdings             []PurchaseLot   `json:"holdings"`
	TotalRealizedProfit  decimal.Decimal `json:"totalRealizedProfit"`
	TotalHoldingQuantity decimal.Decimal `json:"totalHoldingQuantity"`
	TotalPurchaseValue   decimal.Decimal `json:"totalPurchaseValue"`
	AveragePurchasePrice decimal.Decimal `json:"averagePurchasePrice"`
	Valuation            *Valuation      `json:"valuation,omitempty"`
}

// Valuation marks current holdings to a live KRW rate.
type Valuation struct {
	Rate             decimal.Decimal `json:"rate"`
	AsOf             time.Time       `json:"asOf"`
	MarketValue      decimal.Decimal `json:"marketValue"`
	UnrealizedProfit decimal.Decimal `json:"unrealizedProfit"`
}

// Summarize reads a book without changing it. The average purchase price is
// weighted by remaining quantity and is zero when nothing is held.
func Summarize(b Book) Summary {
	s := Summary{
		Currency:             b.Currency,
		Holdings:             b.Holdings(),
		TotalRealizedProfit:  decimal.Zero,
		TotalHoldingQuantity: decimal.Zero,
		TotalPurchaseValue:   decimal.Zero,
		AveragePurchasePrice: decimal.Zero,
	}
	for _, sale := range b.Sales {
		s.TotalRealizedProfit = s.TotalRealizedProfit.Add(sale.RealizedProfit)
	}
	for _, l := range s.Holdings {
		s.TotalHoldingQuantity = s.TotalHoldingQuantity.Add(l.RemainingQuantity)
		s.TotalPurchaseValue = s.TotalPurchaseValue.Add(l.PurchasePrice.Mul(l.RemainingQuantity))
	}
	if s.TotalHoldingQuantity.IsPositive() {
		s.AveragePurchasePrice = s.TotalPurchaseValue.Div(s.TotalHoldingQuantity)
	}
	return s
}

func (s Summary) withValuation(rate decimal.Decimal, asOf time.Time) Summary {
	mv := rate.Mul(s.TotalHoldingQuantity)
	s.Valuation = &Valuation{
		Rate:             rate,
		AsOf:             asOf,
		MarketValue:      mv,
		UnrealizedProfit: mv.Sub(s.TotalPurchaseValue),
	}
	return s
}

/* ===================== Time series ===================== */

type Point struct {
	Date  Date            `json:"date"`
	Value decimal.Decimal `json:"value"`
}

type Series struct {
	Label  string  `json:"label"`
	Points []Point `json:"points"`
}

// CumulativeProfit is the running realized profit, one point per sale in
// ascending date order.
func CumulativeProfit(label string, sales []SaleRecord) Series {
	sorted := append([]SaleRecord(nil), sales...)
	insertionSort(sorted, func(a, b SaleRecord) bool { return a.SaleDate.Before(b.SaleDate) })
	out := Series{Label: label, Points: make([]Point, 0, len(sorted))}
	sum := decimal.Zero
	for _, s := range sorted {
		sum = sum.Add(s.RealizedProfit)
		out.Points = append(out.Points, Point{Date: s.SaleDate, Value: sum})
	}
	return out
}

// Chart is a set of series sampled on one shared date axis.
type Chart struct {
	Dates    []Date         `json:"dates"`
	Datasets []ChartDataset `json:"datasets"`
}

type ChartDataset struct {
	Label  string            `json:"label"`
	Values []decimal.Decimal `json:"values"`
}

// MergeSeries puts series on the union of their dates. A series without a
// point on some date carries its last value forward (zero before its first
// point); values are never interpolated. Several points on one date collapse
// to the last of them.
func MergeSeries(series ...Series) Chart {
	seen := map[Date]bool{}
	var dates []Date
	for _, s := range series {
		for _, p := range s.Points {
			if !seen[p.Date] {
				seen[p.Date] = true
				dates = append(dates, p.Date)
			}
		}
	}
	insertionSort(dates, func(a, b Date) bool { return a.Before(b) })

	chart := Chart{Dates: dates, Datasets: make([]ChartDataset, 0, len(series))}
	for _, s := range series {
		values := make([]decimal.Decimal, len(dates))
		last := decimal.Zero
		j := 0
		for i, d := range dates {
			for j < len(s.Points) && !s.Points[j].Date.After(d) {
				last = s.Points[j].Value
				j++
			}
			values[i] = last
		}
		chart.Datasets = append(chart.Datasets, ChartDataset{Label: s.Label, Values: values})
	}
	return chart
}

/* ===================== Dashboard ===================== */

type Dashboard struct {
	USD                      Summary         `json:"usd"`
	JPY                      Summary         `json:"jpy"`
	GrandTotalRealizedProfit decimal.Decimal `json:"grandTotalRealizedProfit"`
	Chart                    Chart           `json:"chart"`
}

// Chart labels.
const (
	SeriesTotal = "Total"
	SeriesUSD   = "USD"
	SeriesJPY   = "JPY"
)

func NewDashboard(usd, jpy Book) Dashboard {
	us, js := Summarize(usd), Summarize(jpy)
	all := append(append([]SaleRecord(nil), usd.Sales...), jpy.Sales...)
	return Dashboard{
		USD:                      us,
		JPY:                      js,
		GrandTotalRealizedProfit: us.TotalRealizedProfit.Add(js.TotalRealizedProfit),
		Chart: MergeSeries(
			CumulativeProfit(SeriesTotal, all),
			CumulativeProfit(SeriesUSD, usd.Sales),
			CumulativeProfit(SeriesJPY, jpy.Sales),
		),
	}
}
