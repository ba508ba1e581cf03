package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/cleared-dev/finqa/internal/chart"
	"github.com/cleared-dev/finqa/internal/dataset"
	"github.com/cleared-dev/finqa/internal/metrics"
	"github.com/cleared-dev/finqa/internal/model"
	"github.com/cleared-dev/finqa/internal/tables"
)

// datasetArg reads dataset_name, accepting the older csv_name spelling.
func datasetArg(tool string, args map[string]any) (tables.Name, error) {
	raw := firstString(args, "dataset_name", "csv_name")
	if raw == "" {
		return "", &UnknownArgumentError{Tool: tool, Argument: "dataset_name", Reason: "required (one of actuals, budget, fx, cash)"}
	}
	name, err := tables.ParseName(raw)
	if err != nil {
		return "", &UnknownArgumentError{Tool: tool, Argument: "dataset_name", Reason: err.Error()}
	}
	return name, nil
}

func (r *Registry) explore(_ context.Context, _ *Scope, args map[string]any) (*Result, error) {
	if err := checkKeys(ExploreCSV, args, "dataset_name", "csv_name"); err != nil {
		return nil, err
	}
	name, err := datasetArg(ExploreCSV, args)
	if err != nil {
		return nil, err
	}
	summary, err := r.data.SchemaSummary(name)
	if err != nil {
		return nil, err
	}
	return &Result{Content: summary}, nil
}

// MetricContent is the payload of a metric extraction.
type MetricContent struct {
	MetricID string         `json:"metric_id"`
	Metric   metrics.Result `json:"metric_result"`
}

// RowsContent is the payload of a raw extraction.
type RowsContent struct {
	Dataset   tables.Name         `json:"dataset"`
	RowCount  int                 `json:"row_count"`
	Returned  int                 `json:"returned"`
	Truncated bool                `json:"truncated"`
	Columns   []string            `json:"columns"`
	Rows      []map[string]string `json:"rows"`
}

func (r *Registry) extract(_ context.Context, _ *Scope, args map[string]any) (*Result, error) {
	if err := checkKeys(ExtractCSVData, args, "dataset_name", "csv_name", "filters"); err != nil {
		return nil, err
	}
	name, err := datasetArg(ExtractCSVData, args)
	if err != nil {
		return nil, err
	}
	raw, err := objectArg(args, "filters")
	if err != nil {
		return nil, &UnknownArgumentError{Tool: ExtractCSVData, Argument: "filters", Reason: err.Error()}
	}
	f, err := ParseFilters(raw)
	if err != nil {
		return nil, err
	}

	if f.Metric != "" {
		res, err := r.computeMetric(name, f)
		if err != nil {
			return nil, err
		}
		return &Result{Metric: &res}, nil
	}
	if f.CompareToBudget {
		return nil, filterErr(filterCompare, true, "needs a metric")
	}
	content, err := r.extractRows(name, f)
	if err != nil {
		return nil, err
	}
	return &Result{Content: content}, nil
}

func (r *Registry) computeMetric(name tables.Name, f Filters) (metrics.Result, error) {
	kind, ok := resolveMetric(f.Metric)
	if !ok {
		return metrics.Result{}, filterErr(filterMetric, f.Metric, "unknown metric; use one of the listed keywords")
	}
	switch {
	case len(f.Categories) > 0:
		return metrics.Result{}, filterErr(filterCategories, f.Categories, "not supported with a metric; metrics use the configured category classes")
	case len(f.Currencies) > 0:
		return metrics.Result{}, filterErr(filterCurrency, f.Currencies, "not supported with a metric; metrics are consolidated in USD")
	case len(f.Entities) > 0:
		return metrics.Result{}, filterErr(filterEntity, f.Entities, "not supported with a metric; metrics are consolidated across entities")
	}

	if kind.Metric == metrics.MetricCashRunway {
		return r.runway(name, f)
	}

	compare := kind.Compare || f.CompareToBudget
	eng := r.engine
	switch name {
	case tables.Actuals:
	case tables.Budget:
		if compare {
			return metrics.Result{}, filterErr(filterCompare, true, "budget comparison runs on the actuals dataset")
		}
		eng = eng.ForSource(model.SourceBudget)
	default:
		return metrics.Result{}, &UnknownArgumentError{
			Tool: ExtractCSVData, Argument: "dataset_name", Value: name,
			Reason: fmt.Sprintf("metric %s is computed from actuals or budget", kind.Metric),
		}
	}
	if compare && kind.Metric != metrics.MetricRevenue {
		return metrics.Result{}, filterErr(filterCompare, true, "budget comparison is available for revenue only")
	}

	latest, ok := r.data.LatestMonth(eng.Source())
	if !ok {
		return metrics.Result{}, fmt.Errorf("computing %s: %w", kind.Metric, metrics.ErrNoData)
	}
	w, err := f.ResolveWindow(latest)
	if err != nil {
		return metrics.Result{}, filterErr(filterLastNMonths, f.LastN, err.Error())
	}

	switch kind.Metric {
	case metrics.MetricRevenue:
		return eng.Revenue(w, compare)
	case metrics.MetricCOGS:
		return eng.COGS(w)
	case metrics.MetricOpex:
		return eng.Opex(w)
	case metrics.MetricGrossMarginPct:
		return eng.GrossMarginPct(w)
	case metrics.MetricEBITDA:
		return eng.EBITDA(w)
	case metrics.MetricOpexBreakdown:
		if w.IsTrend() {
			return metrics.Result{}, filterErr(filterMonth, w.String(), "opex breakdown takes a single month")
		}
		return eng.OpexBreakdown(w.First())
	}
	return metrics.Result{}, filterErr(filterMetric, f.Metric, "unknown metric")
}

func (r *Registry) runway(name tables.Name, f Filters) (metrics.Result, error) {
	if name != tables.Cash {
		return metrics.Result{}, &UnknownArgumentError{
			Tool: ExtractCSVData, Argument: "dataset_name", Value: name,
			Reason: "cash runway is computed from the cash dataset",
		}
	}
	if f.CompareToBudget {
		return metrics.Result{}, filterErr(filterCompare, true, "not available for cash runway")
	}
	if !f.HasPeriod() {
		return r.engine.CashRunway()
	}
	cash := r.data.CashByMonth()
	if len(cash) == 0 {
		return metrics.Result{}, fmt.Errorf("computing cash runway: %w", metrics.ErrNoData)
	}
	w, err := f.ResolveWindow(cash[len(cash)-1].Month)
	if err != nil {
		return metrics.Result{}, filterErr(filterLastNMonths, f.LastN, err.Error())
	}
	if w.IsTrend() && f.LastN == 0 {
		return metrics.Result{}, filterErr(filterMonth, w.String(), "cash runway takes a single month")
	}
	// last_n_months reads as "as of the latest month".
	return r.engine.CashRunwayAt(w.Last())
}

func (r *Registry) extractRows(name tables.Name, f Filters) (RowsContent, error) {
	var window *model.Window
	if f.HasPeriod() {
		latest := r.latestFor(name)
		w, err := f.ResolveWindow(latest)
		if err != nil {
			return RowsContent{}, filterErr(filterLastNMonths, f.LastN, err.Error())
		}
		window = &w
	}

	out := RowsContent{Dataset: name, Rows: []map[string]string{}}
	add := func(row map[string]string) {
		out.RowCount++
		if len(out.Rows) < r.maxRows {
			out.Rows = append(out.Rows, row)
		}
	}

	switch name {
	case tables.Actuals, tables.Budget:
		source := model.SourceActual
		if name == tables.Budget {
			source = model.SourceBudget
		}
		out.Columns = []string{"month", "entity", "account_category", "amount", "currency", "amount_usd"}
		q := dataset.Query{Window: window, Categories: f.Categories, Currencies: f.Currencies, Entities: f.Entities}
		for _, rec := range r.data.Select(source, q) {
			row := map[string]string{
				"month":            rec.Month.String(),
				"entity":           rec.Entity,
				"account_category": rec.Category,
				"amount":           rec.Amount.String(),
				"currency":         string(rec.Currency),
			}
			if usd, err := r.fx.RecordUSD(rec); err == nil {
				row["amount_usd"] = usd.String()
			}
			add(row)
		}

	case tables.FX:
		if len(f.Categories) > 0 || len(f.Entities) > 0 {
			return RowsContent{}, filterErr(filterCategories, nil, "fx rows have no category or entity")
		}
		out.Columns = []string{"month", "currency", "rate_to_usd"}
		for _, rate := range r.data.Rates() {
			if window != nil && !window.Contains(rate.Month) {
				continue
			}
			if len(f.Currencies) > 0 && !slices.Contains(f.Currencies, rate.Currency) {
				continue
			}
			add(map[string]string{
				"month":       rate.Month.String(),
				"currency":    string(rate.Currency),
				"rate_to_usd": rate.RateToUSD.String(),
			})
		}

	case tables.Cash:
		if len(f.Categories) > 0 || len(f.Currencies) > 0 {
			return RowsContent{}, filterErr(filterCategories, nil, "cash rows have no category or currency")
		}
		out.Columns = []string{"month", "entity", "cash_usd"}
		for _, b := range r.data.Balances() {
			if window != nil && !window.Contains(b.Month) {
				continue
			}
			if len(f.Entities) > 0 && !containsFold(f.Entities, b.Entity) {
				continue
			}
			add(map[string]string{
				"month":    b.Month.String(),
				"entity":   b.Entity,
				"cash_usd": b.AmountUSD.String(),
			})
		}
	}

	out.Returned = len(out.Rows)
	out.Truncated = out.RowCount > out.Returned
	return out, nil
}

// latestFor returns the latest month of a table, used to anchor last_n_months.
func (r *Registry) latestFor(name tables.Name) model.YearMonth {
	switch name {
	case tables.Budget:
		m, _ := r.data.LatestMonth(model.SourceBudget)
		return m
	case tables.FX:
		var latest model.YearMonth
		for _, rate := range r.data.Rates() {
			if latest.Before(rate.Month) {
				latest = rate.Month
			}
		}
		return latest
	case tables.Cash:
		cash := r.data.CashByMonth()
		if len(cash) == 0 {
			return model.YearMonth{}
		}
		return cash[len(cash)-1].Month
	}
	m, _ := r.data.LatestMonth(model.SourceActual)
	return m
}

func (r *Registry) createChart(_ context.Context, sc *Scope, args map[string]any) (*Result, error) {
	if err := checkKeys(CreateChart, args, "metric_result", "chart_type", "title"); err != nil {
		return nil, err
	}
	chartType := stringArg(args, "chart_type")
	if chartType == "" {
		return nil, &UnknownArgumentError{Tool: CreateChart, Argument: "chart_type", Reason: "required (line, bar or waterfall)"}
	}

	res, err := metricArg(sc, args["metric_result"])
	if err != nil {
		return nil, err
	}
	spec, err := chart.Build(res, chartType, stringArg(args, "title"))
	if err != nil {
		return nil, err
	}
	return &Result{Content: spec, Chart: &spec}, nil
}

// metricArg resolves metric_result: a stored result ID, an inline result
// object (or its JSON), or nothing for the latest stored result.
func metricArg(sc *Scope, v any) (metrics.Result, error) {
	bad := func(reason string) error {
		return &UnknownArgumentError{Tool: CreateChart, Argument: "metric_result", Value: v, Reason: reason}
	}

	switch m := v.(type) {
	case nil:
		res, _, ok := sc.Last()
		if !ok {
			return metrics.Result{}, bad("no metric computed yet; call extract_csv_data with a metric first")
		}
		return res, nil
	case string:
		if res, ok := sc.Lookup(m); ok {
			return res, nil
		}
		var res metrics.Result
		if err := json.Unmarshal([]byte(m), &res); err == nil && res.Metric != "" {
			return res, nil
		}
		return metrics.Result{}, bad(fmt.Sprintf("no stored result with this ID (%d stored)", sc.Len()))
	case map[string]any:
		// accept the whole extract_csv_data payload as well as the bare result
		if inner, ok := m["metric_result"]; ok {
			return metricArg(sc, inner)
		}
		if idv, ok := m["metric_id"].(string); ok {
			return metricArg(sc, idv)
		}
		b, err := json.Marshal(m)
		if err != nil {
			return metrics.Result{}, bad(err.Error())
		}
		var res metrics.Result
		if err := json.Unmarshal(b, &res); err != nil {
			return metrics.Result{}, bad("not a metric result: " + err.Error())
		}
		if res.Metric == "" {
			return metrics.Result{}, bad("not a metric result: missing metric")
		}
		return res, nil
	}
	return metrics.Result{}, bad(fmt.Sprintf("expected a result ID or object, got %T", v))
}

func containsFold(list []string, s string) bool {
	for _, x := range list {
		if strings.EqualFold(x, s) {
			return true
		}
	}
	return false
}
