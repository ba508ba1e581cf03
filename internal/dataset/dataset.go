package dataset

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/finqa/internal/categories"
	"github.com/cleared-dev/finqa/internal/model"
	"github.com/cleared-dev/finqa/internal/tables"
)

// Dataset is the in-memory model of the four source tables. It is read-only
// once loaded and safe for concurrent use.
type Dataset struct {
	classifier *categories.Classifier
	tables     map[tables.Name]*tables.Table

	actuals []model.FinancialRecord
	budget  []model.FinancialRecord
	rates   []model.FxRate
	cash    []model.CashBalance

	// rows per month, by source
	monthRows map[model.Source]map[model.YearMonth]int
}

// Option configures Load.
type Option func(*Dataset)

// WithClassifier sets the category classifier. The default rules are used otherwise.
func WithClassifier(c *categories.Classifier) Option {
	return func(d *Dataset) {
		if c != nil {
			d.classifier = c
		}
	}
}

// Load parses the four tables. Any malformed table fails the whole load with
// a *tables.MalformedDataError.
func Load(actuals, budget, fx, cash io.Reader, opts ...Option) (*Dataset, error) {
	d := &Dataset{
		classifier: categories.Default(),
		tables:     make(map[tables.Name]*tables.Table, len(tables.Names)),
	}
	for _, opt := range opts {
		opt(d)
	}

	reg := tables.DefaultRegistry()
	sources := map[tables.Name]io.Reader{
		tables.Actuals: actuals,
		tables.Budget:  budget,
		tables.FX:      fx,
		tables.Cash:    cash,
	}
	for _, name := range tables.Names {
		t, err := reg.Get(name).Parse(sources[name])
		if err != nil {
			return nil, err
		}
		d.tables[name] = t
	}

	d.actuals = d.tables[tables.Actuals].Records
	d.budget = d.tables[tables.Budget].Records
	d.rates = d.tables[tables.FX].Rates
	d.cash = d.tables[tables.Cash].Balances
	d.index()
	return d, nil
}

// LoadDir loads the four tables from dir. files overrides default file names.
func LoadDir(dir string, files map[tables.Name]string, opts ...Option) (*Dataset, error) {
	found, err := tables.Scan(dir, files)
	if err != nil {
		return nil, err
	}

	readers := make(map[tables.Name]io.Reader, len(found))
	for _, fi := range found {
		f, err := os.Open(fi.Path)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", fi.Path, err)
		}
		defer f.Close()
		readers[fi.Table] = f
	}
	return Load(readers[tables.Actuals], readers[tables.Budget], readers[tables.FX], readers[tables.Cash], opts...)
}

func (d *Dataset) index() {
	d.monthRows = map[model.Source]map[model.YearMonth]int{
		model.SourceActual: make(map[model.YearMonth]int),
		model.SourceBudget: make(map[model.YearMonth]int),
	}
	for _, r := range d.actuals {
		d.monthRows[model.SourceActual][r.Month]++
	}
	for _, r := range d.budget {
		d.monthRows[model.SourceBudget][r.Month]++
	}
}

// Classifier returns the category classifier the dataset was loaded with.
func (d *Dataset) Classifier() *categories.Classifier {
	return d.classifier
}

// Table returns the parsed table, including its raw rows.
func (d *Dataset) Table(name tables.Name) *tables.Table {
	return d.tables[name]
}

// Query narrows Select. Zero-valued fields match everything.
type Query struct {
	Window     *model.Window
	Categories []string
	Currencies []model.CurrencyCode
	Entities   []string
}

// RecordsFor returns the rows of source inside window whose category matches
// one of categories, in file order. A nil window or empty categories matches all.
func (d *Dataset) RecordsFor(window *model.Window, cats []string, source model.Source) []model.FinancialRecord {
	return d.Select(source, Query{Window: window, Categories: cats})
}

// Select returns the rows of source matching q, in file order.
func (d *Dataset) Select(source model.Source, q Query) []model.FinancialRecord {
	rows := d.actuals
	if source == model.SourceBudget {
		rows = d.budget
	}

	var out []model.FinancialRecord
	for _, r := range rows {
		if q.Window != nil && !q.Window.Contains(r.Month) {
			continue
		}
		if len(q.Categories) > 0 && !d.matchCategory(r.Category, q.Categories) {
			continue
		}
		if len(q.Currencies) > 0 && !slices.Contains(q.Currencies, r.Currency) {
			continue
		}
		if len(q.Entities) > 0 && !slices.ContainsFunc(q.Entities, func(e string) bool {
			return strings.EqualFold(e, r.Entity)
		}) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// matchCategory matches a category by exact name or by class ("revenue", "opex").
func (d *Dataset) matchCategory(category string, wanted []string) bool {
	for _, w := range wanted {
		if strings.EqualFold(strings.TrimSpace(w), category) {
			return true
		}
		if class, err := categories.ParseClass(w); err == nil && class != categories.ClassOther {
			if d.classifier.Is(category, class) {
				return true
			}
		}
	}
	return false
}

// HasMonth reports whether source has any rows for month.
func (d *Dataset) HasMonth(source model.Source, month model.YearMonth) bool {
	return d.monthRows[source][month] > 0
}

// Months returns the distinct months of source in chronological order.
func (d *Dataset) Months(source model.Source) []model.YearMonth {
	months := make([]model.YearMonth, 0, len(d.monthRows[source]))
	for m := range d.monthRows[source] {
		months = append(months, m)
	}
	slices.SortFunc(months, func(a, b model.YearMonth) int { return a.Compare(b) })
	return months
}

// LatestMonth returns the most recent month of source. ok is false when the table is empty.
func (d *Dataset) LatestMonth(source model.Source) (model.YearMonth, bool) {
	months := d.Months(source)
	if len(months) == 0 {
		return model.YearMonth{}, false
	}
	return months[len(months)-1], true
}

// Rates returns every FX rate in file order.
func (d *Dataset) Rates() []model.FxRate {
	return slices.Clone(d.rates)
}

// Balances returns every cash row in file order.
func (d *Dataset) Balances() []model.CashBalance {
	return slices.Clone(d.cash)
}

// CashByMonth returns cash summed across entities, one entry per month,
// ordered by month. Entity is empty on the returned rows.
func (d *Dataset) CashByMonth() []model.CashBalance {
	totals := make(map[model.YearMonth]decimal.Decimal)
	for _, b := range d.cash {
		totals[b.Month] = totals[b.Month].Add(b.AmountUSD)
	}
	out := make([]model.CashBalance, 0, len(totals))
	for m, amt := range totals {
		out = append(out, model.CashBalance{Month: m, AmountUSD: amt})
	}
	slices.SortFunc(out, func(a, b model.CashBalance) int { return a.Month.Compare(b.Month) })
	return out
}
