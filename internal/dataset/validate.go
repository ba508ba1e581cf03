package dataset

import (
	"fmt"

	"github.com/cleared-dev/finqa/internal/categories"
	"github.com/cleared-dev/finqa/internal/model"
	"github.com/cleared-dev/finqa/internal/tables"
)

// Problem kinds reported by Validate.
const (
	ProblemMissingRate  = "missing_fx_rate"
	ProblemUnclassified = "unclassified_category"
	ProblemShortCash    = "short_cash_history"
)

// ValidationError describes a data gap that will make some metric fail or
// come out undefined. Loading still succeeds.
type ValidationError struct {
	Kind        string
	Table       tables.Name
	Description string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s [%s]: %s", e.Kind, e.Table, e.Description)
}

// Validate reports FX coverage gaps, categories no class rule matches, and a
// cash history too short for runway.
func (d *Dataset) Validate() []ValidationError {
	var errs []ValidationError

	have := make(map[string]bool, len(d.rates))
	for _, r := range d.rates {
		have[r.Month.String()+"/"+string(r.Currency)] = true
	}

	check := func(table tables.Name, rows []model.FinancialRecord) {
		reported := make(map[string]bool)
		unclassified := make(map[string]bool)
		for _, r := range rows {
			key := r.Month.String() + "/" + string(r.Currency)
			if r.Currency != model.USD && !have[key] && !reported[key] {
				reported[key] = true
				errs = append(errs, ValidationError{
					Kind:        ProblemMissingRate,
					Table:       table,
					Description: fmt.Sprintf("no %s rate for %s", r.Currency, r.Month),
				})
			}
			if d.classifier.Classify(r.Category) == categories.ClassOther && !unclassified[r.Category] {
				unclassified[r.Category] = true
				errs = append(errs, ValidationError{
					Kind:        ProblemUnclassified,
					Table:       table,
					Description: fmt.Sprintf("category %q is not revenue, cogs or opex", r.Category),
				})
			}
		}
	}
	check(tables.Actuals, d.actuals)
	check(tables.Budget, d.budget)

	if n := len(d.CashByMonth()); n < 2 {
		errs = append(errs, ValidationError{
			Kind:        ProblemShortCash,
			Table:       tables.Cash,
			Description: fmt.Sprintf("%d month(s) of balances; runway needs at least 2", n),
		})
	}
	return errs
}
