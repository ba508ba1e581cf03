// Package fx converts ledger amounts to USD using month-exact rates.
package fx

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/finqa/internal/model"
)

// ErrMissingRate is matched by every MissingRateError.
var ErrMissingRate = errors.New("missing fx rate")

// MissingRateError reports a (month, currency) pair with no rate. There is no
// interpolation and no fallback to a neighbouring month.
type MissingRateError struct {
	Month    model.YearMonth
	Currency model.CurrencyCode
}

func (e *MissingRateError) Error() string {
	return fmt.Sprintf("missing fx rate for %s in %s", e.Currency, e.Month)
}

// Is makes errors.Is(err, ErrMissingRate) succeed.
func (e *MissingRateError) Is(target error) bool {
	return target == ErrMissingRate
}

type key struct {
	month    model.YearMonth
	currency model.CurrencyCode
}

// Converter resolves USD multipliers. It is immutable and safe for concurrent use.
type Converter struct {
	rates map[key]decimal.Decimal
}

// NewConverter indexes rates by (month, currency). A later duplicate wins;
// the table parser already rejects duplicates.
func NewConverter(rates []model.FxRate) *Converter {
	c := &Converter{rates: make(map[key]decimal.Decimal, len(rates))}
	for _, r := range rates {
		c.rates[key{r.Month, model.NormalizeCurrency(string(r.Currency))}] = r.RateToUSD
	}
	return c
}

// Rate returns the USD value of one unit of currency in month.
func (c *Converter) Rate(month model.YearMonth, currency model.CurrencyCode) (decimal.Decimal, error) {
	currency = model.NormalizeCurrency(string(currency))
	if currency == model.USD {
		return decimal.NewFromInt(1), nil
	}
	r, ok := c.rates[key{month, currency}]
	if !ok {
		return decimal.Decimal{}, &MissingRateError{Month: month, Currency: currency}
	}
	return r, nil
}

// ToUSD converts amount. USD amounts are returned unchanged.
func (c *Converter) ToUSD(amount decimal.Decimal, currency model.CurrencyCode, month model.YearMonth) (decimal.Decimal, error) {
	if model.NormalizeCurrency(string(currency)) == model.USD {
		return amount, nil
	}
	rate, err := c.Rate(month, currency)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return amount.Mul(rate), nil
}

// RecordUSD converts a ledger record's amount.
func (c *Converter) RecordUSD(r model.FinancialRecord) (decimal.Decimal, error) {
	return c.ToUSD(r.Amount, r.Currency, r.Month)
}

// Len returns the number of indexed (month, currency) rates.
func (c *Converter) Len() int {
	return len(c.rates)
}
