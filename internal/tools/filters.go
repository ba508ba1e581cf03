package tools

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/cleared-dev/finqa/internal/model"
)

// Filter keys accepted by extract_csv_data.
const (
	filterMonth           = "month"
	filterMonths          = "months"
	filterMonthRange      = "month_range"
	filterLastNMonths     = "last_n_months"
	filterCategories      = "categories"
	filterAccountCategory = "account_category"
	filterCurrency        = "currency"
	filterEntity          = "entity"
	filterMetric          = "metric"
	filterCompare         = "compare_to_budget"
)

var filterKeys = []string{
	filterMonth, filterMonths, filterMonthRange, filterLastNMonths,
	filterCategories, filterAccountCategory, filterCurrency, filterEntity,
	filterMetric, filterCompare,
}

// Filters is the parsed filter object of an extract_csv_data call.
type Filters struct {
	Window          *model.Window
	LastN           int
	Categories      []string
	Currencies      []model.CurrencyCode
	Entities        []string
	Metric          string
	CompareToBudget bool
}

// HasPeriod reports whether any period filter was given.
func (f Filters) HasPeriod() bool {
	return f.Window != nil || f.LastN > 0
}

// ResolveWindow returns the requested window. last_n_months counts back from
// latest; with no period filter the window is latest alone.
func (f Filters) ResolveWindow(latest model.YearMonth) (model.Window, error) {
	switch {
	case f.Window != nil:
		return *f.Window, nil
	case f.LastN > 0:
		return model.LastN(latest, f.LastN)
	}
	return model.SingleMonth(latest), nil
}

func filterErr(key string, value any, reason string) error {
	return &UnknownArgumentError{Tool: ExtractCSVData, Argument: "filters." + key, Value: value, Reason: reason}
}

// ParseFilters parses a filter object.
func ParseFilters(m map[string]any) (Filters, error) {
	var f Filters
	if err := checkKeys(ExtractCSVData, m, filterKeys...); err != nil {
		var uae *UnknownArgumentError
		if errors.As(err, &uae) {
			uae.Argument = "filters." + uae.Argument
		}
		return Filters{}, err
	}

	periods := 0
	for _, k := range []string{filterMonth, filterMonths, filterMonthRange, filterLastNMonths} {
		if _, ok := m[k]; ok {
			periods++
		}
	}
	if periods > 1 {
		return Filters{}, filterErr("month", nil, "give only one of month, months, month_range, last_n_months")
	}

	for _, key := range slices.Sorted(maps.Keys(m)) {
		v := m[key]
		var err error
		switch key {
		case filterMonth, filterMonths:
			err = f.parseMonths(key, v)
		case filterMonthRange:
			err = f.parseRange(v)
		case filterLastNMonths:
			n, ok := toInt(v)
			if !ok || n < 1 {
				return Filters{}, filterErr(key, v, "must be a positive whole number")
			}
			f.LastN = n
		case filterCategories, filterAccountCategory:
			cats, ok := toStrings(v)
			if !ok {
				return Filters{}, filterErr(key, v, "must be a string or a list of strings")
			}
			f.Categories = append(f.Categories, cats...)
		case filterCurrency:
			curs, ok := toStrings(v)
			if !ok {
				return Filters{}, filterErr(key, v, "must be a string or a list of strings")
			}
			for _, c := range curs {
				f.Currencies = append(f.Currencies, model.NormalizeCurrency(c))
			}
		case filterEntity:
			ents, ok := toStrings(v)
			if !ok {
				return Filters{}, filterErr(key, v, "must be a string or a list of strings")
			}
			f.Entities = ents
		case filterMetric:
			s, ok := v.(string)
			if !ok {
				return Filters{}, filterErr(key, v, "must be a string")
			}
			f.Metric = s
		case filterCompare:
			b, ok := toBool(v)
			if !ok {
				return Filters{}, filterErr(key, v, "must be true or false")
			}
			f.CompareToBudget = b
		}
		if err != nil {
			return Filters{}, err
		}
	}
	return f, nil
}

func (f *Filters) parseMonths(key string, v any) error {
	vals, ok := toStrings(v)
	if !ok || len(vals) == 0 {
		return filterErr(key, v, "must be a month (YYYY-MM) or a list of months")
	}
	months := make([]model.YearMonth, 0, len(vals))
	for _, s := range vals {
		ym, err := model.ParseYearMonth(s)
		if err != nil {
			return filterErr(key, s, err.Error())
		}
		months = append(months, ym)
	}
	w := model.MonthList(months...)
	f.Window = &w
	return nil
}

func (f *Filters) parseRange(v any) error {
	var start, end string
	switch r := v.(type) {
	case string:
		var ok bool
		start, end, ok = strings.Cut(r, "..")
		if !ok {
			return filterErr(filterMonthRange, v, `want "YYYY-MM..YYYY-MM" or {"start":..,"end":..}`)
		}
	case map[string]any:
		start, end = stringArg(r, "start"), stringArg(r, "end")
	case []any:
		if len(r) != 2 {
			return filterErr(filterMonthRange, v, "want exactly two months")
		}
		start, end = fmt.Sprint(r[0]), fmt.Sprint(r[1])
	default:
		return filterErr(filterMonthRange, v, `want "YYYY-MM..YYYY-MM" or {"start":..,"end":..}`)
	}

	a, err := model.ParseYearMonth(start)
	if err != nil {
		return filterErr(filterMonthRange, v, err.Error())
	}
	b, err := model.ParseYearMonth(end)
	if err != nil {
		return filterErr(filterMonthRange, v, err.Error())
	}
	w, err := model.MonthRange(a, b)
	if err != nil {
		return filterErr(filterMonthRange, v, err.Error())
	}
	f.Window = &w
	return nil
}
