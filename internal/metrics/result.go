package metrics

import (
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/finqa/internal/model"
)

// Metric names.
const (
	MetricRevenue        = "revenue"
	MetricCOGS           = "cogs"
	MetricOpex           = "opex"
	MetricGrossMarginPct = "gross_margin_pct"
	MetricEBITDA         = "ebitda"
	MetricOpexBreakdown  = "opex_breakdown"
	MetricCashRunway     = "cash_runway"
)

// Unit of a metric value.
type Unit string

const (
	UnitUSD     Unit = "USD"
	UnitPercent Unit = "%"
	UnitMonths  Unit = "months"
)

// Status qualifies a value. Undefined and infinite values carry a null Value.
type Status string

const (
	StatusOK        Status = "ok"
	StatusUndefined Status = "undefined"
	StatusInfinite  Status = "infinite"
)

// Entry is one labelled point of a breakdown: a month of a trend, a category,
// or a component of a total.
type Entry struct {
	Label  string              `json:"label"`
	Value  decimal.NullDecimal `json:"value"`
	Status Status              `json:"status"`
	Budget decimal.NullDecimal `json:"budget,omitzero"`
}

// Comparison holds actual against budget. Variance is exact; VariancePct is
// rounded to two places and null when the budget is zero.
type Comparison struct {
	Actual      decimal.Decimal     `json:"actual"`
	Budget      decimal.Decimal     `json:"budget"`
	Variance    decimal.Decimal     `json:"variance"`
	VariancePct decimal.NullDecimal `json:"variance_pct"`
}

// Result is an immutable metric computation.
type Result struct {
	Metric     string                     `json:"metric"`
	Unit       Unit                       `json:"unit"`
	Source     model.Source               `json:"source"`
	Window     model.Window               `json:"period"`
	Value      decimal.NullDecimal        `json:"value"`
	Status     Status                     `json:"status"`
	Breakdown  []Entry                    `json:"breakdown"`
	Comparison *Comparison                `json:"comparison,omitempty"`
	Inputs     map[string]decimal.Decimal `json:"inputs,omitempty"`
}

// IsTrend reports whether the result is a per-month series.
func (r Result) IsTrend() bool {
	return r.Window.IsTrend()
}

// HasBudget reports whether any breakdown entry carries a budget value.
func (r Result) HasBudget() bool {
	for _, e := range r.Breakdown {
		if e.Budget.Valid {
			return true
		}
	}
	return false
}

func valid(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NewNullDecimal(d)
}

func okEntry(label string, d decimal.Decimal) Entry {
	return Entry{Label: label, Value: valid(d), Status: StatusOK}
}
