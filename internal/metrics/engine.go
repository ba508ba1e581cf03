// Package metrics computes financial metrics over a dataset. Every amount is
// converted to USD per (month, currency) before it is aggregated.
package metrics

import (
	"errors"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/finqa/internal/categories"
	"github.com/cleared-dev/finqa/internal/dataset"
	"github.com/cleared-dev/finqa/internal/fx"
	"github.com/cleared-dev/finqa/internal/model"
)

var (
	// ErrNoData is matched when a requested month has no source rows at all.
	ErrNoData = errors.New("no data")
	// ErrDivisionUndefined is returned by ratio helpers when the denominator is zero.
	// Engine methods never return it; they report StatusUndefined instead.
	ErrDivisionUndefined = errors.New("division undefined")
	// ErrEmptyWindow is returned when a window has no months.
	ErrEmptyWindow = errors.New("empty period")
)

var hundred = decimal.NewFromInt(100)

// NoDataError names the month and source that had no rows.
type NoDataError struct {
	Source model.Source
	Month  model.YearMonth
}

func (e *NoDataError) Error() string {
	return fmt.Sprintf("no %s data for %s", e.Source, e.Month)
}

// Is makes errors.Is(err, ErrNoData) succeed.
func (e *NoDataError) Is(target error) bool {
	return target == ErrNoData
}

// Engine computes metrics. It holds no mutable state.
type Engine struct {
	data   *dataset.Dataset
	fx     *fx.Converter
	source model.Source
}

// NewEngine returns an Engine over actuals.
func NewEngine(data *dataset.Dataset, conv *fx.Converter) *Engine {
	return &Engine{data: data, fx: conv, source: model.SourceActual}
}

// ForSource returns a copy of e computing P&L metrics over source.
func (e *Engine) ForSource(source model.Source) *Engine {
	c := *e
	c.source = source
	return &c
}

// Source returns the table P&L metrics are computed over.
func (e *Engine) Source() model.Source {
	return e.source
}

// classTotal sums the USD value of source rows of class in month.
func (e *Engine) classTotal(source model.Source, month model.YearMonth, class categories.Class) (decimal.Decimal, error) {
	if !e.data.HasMonth(source, month) {
		return decimal.Decimal{}, &NoDataError{Source: source, Month: month}
	}
	w := model.SingleMonth(month)
	total := decimal.Zero
	for _, r := range e.data.RecordsFor(&w, []string{string(class)}, source) {
		usd, err := e.fx.RecordUSD(r)
		if err != nil {
			return decimal.Decimal{}, err
		}
		total = total.Add(usd)
	}
	return total, nil
}

// series returns the per-month totals of class over w.
func (e *Engine) series(source model.Source, w model.Window, class categories.Class) ([]decimal.Decimal, error) {
	if w.IsEmpty() {
		return nil, ErrEmptyWindow
	}
	months := w.Months()
	out := make([]decimal.Decimal, len(months))
	for i, m := range months {
		v, err := e.classTotal(source, m, class)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func sum(vals []decimal.Decimal) decimal.Decimal {
	return decimal.Sum(decimal.Zero, vals...)
}

// percent returns num/den*100 rounded to two places.
func percent(num, den decimal.Decimal) (decimal.Decimal, error) {
	if den.IsZero() {
		return decimal.Decimal{}, ErrDivisionUndefined
	}
	return num.Div(den).Mul(hundred).Round(2), nil
}

func (e *Engine) total(metric string, class categories.Class, w model.Window) (Result, error) {
	vals, err := e.series(e.source, w, class)
	if err != nil {
		return Result{}, fmt.Errorf("computing %s: %w", metric, err)
	}
	res := Result{
		Metric: metric,
		Unit:   UnitUSD,
		Source: e.source,
		Window: w,
		Value:  valid(sum(vals)),
		Status: StatusOK,
	}
	if w.IsTrend() {
		for i, m := range w.Months() {
			res.Breakdown = append(res.Breakdown, okEntry(m.String(), vals[i]))
		}
	}
	return res, nil
}

// Revenue sums revenue over w. With compareToBudget the result carries a
// Comparison against budget revenue, and the breakdown is [Actual, Budget]
// for a single month or one entry per month with the budget alongside.
func (e *Engine) Revenue(w model.Window, compareToBudget bool) (Result, error) {
	res, err := e.total(MetricRevenue, categories.ClassRevenue, w)
	if err != nil || !compareToBudget {
		return res, err
	}

	budget, err := e.series(model.SourceBudget, w, categories.ClassRevenue)
	if err != nil {
		return Result{}, fmt.Errorf("computing budget revenue: %w", err)
	}
	actual := res.Value.Decimal
	res.Comparison = compare(actual, sum(budget))

	if !w.IsTrend() {
		res.Breakdown = []Entry{okEntry("Actual", actual), okEntry("Budget", budget[0])}
		return res, nil
	}
	for i := range res.Breakdown {
		res.Breakdown[i].Budget = valid(budget[i])
	}
	return res, nil
}

func compare(actual, budget decimal.Decimal) *Comparison {
	c := &Comparison{Actual: actual, Budget: budget, Variance: actual.Sub(budget)}
	if pct, err := percent(c.Variance, budget); err == nil {
		c.VariancePct = valid(pct)
	}
	return c
}

// COGS sums cost of goods sold over w.
func (e *Engine) COGS(w model.Window) (Result, error) {
	return e.total(MetricCOGS, categories.ClassCOGS, w)
}

// Opex sums operating expenses over w.
func (e *Engine) Opex(w model.Window) (Result, error) {
	return e.total(MetricOpex, categories.ClassOpex, w)
}

// GrossMarginPct computes (revenue - cogs) / revenue * 100 per month. A month
// with zero revenue is reported with a null value and StatusUndefined. The
// headline value of a trend is the margin over the whole window.
func (e *Engine) GrossMarginPct(w model.Window) (Result, error) {
	rev, err := e.series(e.source, w, categories.ClassRevenue)
	if err != nil {
		return Result{}, fmt.Errorf("computing gross margin: %w", err)
	}
	cogs, err := e.series(e.source, w, categories.ClassCOGS)
	if err != nil {
		return Result{}, fmt.Errorf("computing gross margin: %w", err)
	}

	res := Result{
		Metric: MetricGrossMarginPct,
		Unit:   UnitPercent,
		Source: e.source,
		Window: w,
		Inputs: map[string]decimal.Decimal{
			"revenue": sum(rev),
			"cogs":    sum(cogs),
		},
	}
	res.Value, res.Status = margin(sum(rev), sum(cogs))

	if w.IsTrend() {
		for i, m := range w.Months() {
			v, st := margin(rev[i], cogs[i])
			res.Breakdown = append(res.Breakdown, Entry{Label: m.String(), Value: v, Status: st})
		}
	}
	return res, nil
}

func margin(rev, cogs decimal.Decimal) (decimal.NullDecimal, Status) {
	pct, err := percent(rev.Sub(cogs), rev)
	if errors.Is(err, ErrDivisionUndefined) {
		return decimal.NullDecimal{}, StatusUndefined
	}
	return valid(pct), StatusOK
}

// EBITDA computes revenue - cogs - opex. A single-month result breaks down
// into Revenue, COGS and Opex with costs negative, so the entries sum to the value.
func (e *Engine) EBITDA(w model.Window) (Result, error) {
	var parts [3][]decimal.Decimal
	for i, class := range []categories.Class{categories.ClassRevenue, categories.ClassCOGS, categories.ClassOpex} {
		vals, err := e.series(e.source, w, class)
		if err != nil {
			return Result{}, fmt.Errorf("computing ebitda: %w", err)
		}
		parts[i] = vals
	}
	rev, cogs, opex := parts[0], parts[1], parts[2]

	res := Result{
		Metric: MetricEBITDA,
		Unit:   UnitUSD,
		Source: e.source,
		Window: w,
		Value:  valid(sum(rev).Sub(sum(cogs)).Sub(sum(opex))),
		Status: StatusOK,
	}
	if !w.IsTrend() {
		res.Breakdown = []Entry{
			okEntry("Revenue", rev[0]),
			okEntry("COGS", cogs[0].Neg()),
			okEntry("Opex", opex[0].Neg()),
		}
		return res, nil
	}
	for i, m := range w.Months() {
		res.Breakdown = append(res.Breakdown, okEntry(m.String(), rev[i].Sub(cogs[i]).Sub(opex[i])))
	}
	return res, nil
}

// OpexBreakdown groups the month's opex by category in USD, largest first,
// ties by category name.
func (e *Engine) OpexBreakdown(month model.YearMonth) (Result, error) {
	if !e.data.HasMonth(e.source, month) {
		return Result{}, fmt.Errorf("computing opex breakdown: %w", &NoDataError{Source: e.source, Month: month})
	}

	w := model.SingleMonth(month)
	byCategory := make(map[string]decimal.Decimal)
	var order []string
	for _, r := range e.data.RecordsFor(&w, []string{string(categories.ClassOpex)}, e.source) {
		usd, err := e.fx.RecordUSD(r)
		if err != nil {
			return Result{}, fmt.Errorf("computing opex breakdown: %w", err)
		}
		if _, ok := byCategory[r.Category]; !ok {
			order = append(order, r.Category)
		}
		byCategory[r.Category] = byCategory[r.Category].Add(usd)
	}

	slices.SortFunc(order, func(a, b string) int {
		if c := byCategory[b].Cmp(byCategory[a]); c != 0 {
			return c
		}
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		}
		return 0
	})

	total := decimal.Zero
	res := Result{
		Metric:    MetricOpexBreakdown,
		Unit:      UnitUSD,
		Source:    e.source,
		Window:    w,
		Status:    StatusOK,
		Breakdown: []Entry{},
	}
	for _, c := range order {
		total = total.Add(byCategory[c])
		res.Breakdown = append(res.Breakdown, okEntry(c, byCategory[c]))
	}
	res.Value = valid(total)
	return res, nil
}
