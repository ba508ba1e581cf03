package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// CurrencyCode is an upper-case ISO 4217 code.
type CurrencyCode string

// USD is the reporting currency.
const USD CurrencyCode = "USD"

// NormalizeCurrency upper-cases and trims a currency code.
func NormalizeCurrency(s string) CurrencyCode {
	return CurrencyCode(strings.ToUpper(strings.TrimSpace(s)))
}

// Source selects the actuals or the budget table.
type Source string

const (
	SourceActual Source = "actual"
	SourceBudget Source = "budget"
)

// FinancialRecord is one row of actuals.csv or budget.csv.
type FinancialRecord struct {
	Month    YearMonth
	Entity   string // empty when the table has no entity column
	Category string
	Amount   decimal.Decimal
	Currency CurrencyCode
}

// FxRate is one row of fx.csv: the USD value of one unit of Currency in Month.
type FxRate struct {
	Month     YearMonth
	Currency  CurrencyCode
	RateToUSD decimal.Decimal
}

// CashBalance is one row of cash.csv.
type CashBalance struct {
	Month     YearMonth
	Entity    string
	AmountUSD decimal.Decimal
}
