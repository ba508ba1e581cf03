package dataset

import (
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/finqa/internal/model"
	"github.com/cleared-dev/finqa/internal/tables"
)

// ColumnType is the inferred type of a source column.
type ColumnType string

const (
	ColumnMonth       ColumnType = "month"
	ColumnNumeric     ColumnType = "numeric"
	ColumnCategorical ColumnType = "categorical"
	ColumnText        ColumnType = "text"
)

// maxCategorical is the distinct-value count up to which a text column is
// reported as categorical with its values listed.
const maxCategorical = 12

// sampleRows is the number of leading rows included in a summary.
const sampleRows = 3

// ColumnSummary describes one column.
type ColumnSummary struct {
	Name   string     `json:"name"`
	Type   ColumnType `json:"type"`
	Values []string   `json:"values,omitempty"`
	Min    string     `json:"min,omitempty"`
	Max    string     `json:"max,omitempty"`
}

// TableSummary describes a table's structure for discovery before extraction.
type TableSummary struct {
	Dataset    tables.Name         `json:"dataset"`
	File       string              `json:"file"`
	RowCount   int                 `json:"row_count"`
	Columns    []ColumnSummary     `json:"columns"`
	Categories []string            `json:"categories,omitempty"`
	Currencies []string            `json:"currencies,omitempty"`
	Entities   []string            `json:"entities,omitempty"`
	MonthRange string              `json:"month_range,omitempty"`
	Sample     []map[string]string `json:"sample_rows"`
}

// SchemaSummary describes the named table.
func (d *Dataset) SchemaSummary(name tables.Name) (TableSummary, error) {
	t, ok := d.tables[name]
	if !ok {
		_, err := tables.ParseName(string(name))
		if err == nil {
			err = &tables.MalformedDataError{Table: name, Reason: "table not loaded"}
		}
		return TableSummary{}, err
	}

	s := TableSummary{
		Dataset:  name,
		File:     name.FileName(),
		RowCount: len(t.Rows),
		Sample:   []map[string]string{},
	}
	for i, h := range t.Header {
		s.Columns = append(s.Columns, summarizeColumn(strings.TrimPrefix(h, "\ufeff"), t.Rows, i))
	}
	for i := 0; i < len(t.Rows) && i < sampleRows; i++ {
		row := make(map[string]string, len(t.Header))
		for j, h := range t.Header {
			row[strings.TrimPrefix(h, "\ufeff")] = t.Rows[i][j]
		}
		s.Sample = append(s.Sample, row)
	}

	var months []model.YearMonth
	switch name {
	case tables.Actuals, tables.Budget:
		for _, r := range t.Records {
			s.Categories = appendUnique(s.Categories, r.Category)
			s.Currencies = appendUnique(s.Currencies, string(r.Currency))
			if r.Entity != "" {
				s.Entities = appendUnique(s.Entities, r.Entity)
			}
			months = append(months, r.Month)
		}
	case tables.FX:
		for _, r := range t.Rates {
			s.Currencies = appendUnique(s.Currencies, string(r.Currency))
			months = append(months, r.Month)
		}
	case tables.Cash:
		for _, b := range t.Balances {
			if b.Entity != "" {
				s.Entities = appendUnique(s.Entities, b.Entity)
			}
			months = append(months, b.Month)
		}
	}
	slices.Sort(s.Categories)
	slices.Sort(s.Currencies)
	slices.Sort(s.Entities)
	if w := model.MonthList(months...); !w.IsEmpty() {
		s.MonthRange = w.First().String() + ".." + w.Last().String()
	}
	return s, nil
}

func summarizeColumn(name string, rows [][]string, col int) ColumnSummary {
	c := ColumnSummary{Name: name}
	if len(rows) == 0 {
		c.Type = ColumnText
		return c
	}

	numeric, monthly := true, true
	var lo, hi decimal.Decimal
	var distinct []string
	for i, row := range rows {
		v := strings.TrimSpace(row[col])
		distinct = appendUnique(distinct, v)

		if numeric {
			d, err := decimal.NewFromString(strings.ReplaceAll(v, ",", ""))
			if err != nil {
				numeric = false
			} else if i == 0 {
				lo, hi = d, d
			} else {
				lo, hi = decimal.Min(lo, d), decimal.Max(hi, d)
			}
		}
		if monthly {
			if _, err := model.ParseYearMonth(v); err != nil {
				monthly = false
			}
		}
	}

	switch {
	case numeric:
		c.Type = ColumnNumeric
		c.Min, c.Max = lo.String(), hi.String()
	case monthly:
		c.Type = ColumnMonth
		w := model.MonthList(parseMonths(distinct)...)
		c.Min, c.Max = w.First().String(), w.Last().String()
	case len(distinct) <= maxCategorical:
		c.Type = ColumnCategorical
		c.Values = distinct
	default:
		c.Type = ColumnText
	}
	return c
}

func parseMonths(vals []string) []model.YearMonth {
	out := make([]model.YearMonth, 0, len(vals))
	for _, v := range vals {
		if ym, err := model.ParseYearMonth(v); err == nil {
			out = append(out, ym)
		}
	}
	return out
}

func appendUnique(s []string, v string) []string {
	if slices.Contains(s, v) {
		return s
	}
	return append(s, v)
}
