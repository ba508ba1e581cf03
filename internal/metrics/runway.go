package metrics

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/finqa/internal/model"
)

// burnMonths is the trailing window averaged for monthly burn.
const burnMonths = 3

// CashRunway computes runway at the latest cash month.
func (e *Engine) CashRunway() (Result, error) {
	balances := e.data.CashByMonth()
	if len(balances) == 0 {
		return Result{}, fmt.Errorf("computing cash runway: %w", ErrNoData)
	}
	return e.CashRunwayAt(balances[len(balances)-1].Month)
}

// CashRunwayAt computes months of runway at month: latest cash divided by the
// mean burn (previous minus current balance) across the latest three balances.
// Flat or growing cash yields StatusInfinite; a single balance yields StatusUndefined.
func (e *Engine) CashRunwayAt(month model.YearMonth) (Result, error) {
	var history []model.CashBalance
	for _, b := range e.data.CashByMonth() {
		if !month.Before(b.Month) {
			history = append(history, b)
		}
	}
	if len(history) == 0 || history[len(history)-1].Month != month {
		return Result{}, fmt.Errorf("computing cash runway: %w", &NoDataError{Source: "cash", Month: month})
	}
	if len(history) > burnMonths {
		history = history[len(history)-burnMonths:]
	}

	latest := history[len(history)-1].AmountUSD
	res := Result{
		Metric:    MetricCashRunway,
		Unit:      UnitMonths,
		Window:    model.SingleMonth(month),
		Breakdown: []Entry{},
		Inputs:    map[string]decimal.Decimal{"latest_cash": latest},
	}
	if len(history) < 2 {
		res.Status = StatusUndefined
		return res, nil
	}

	burned := decimal.Zero
	for i := 1; i < len(history); i++ {
		burn := history[i-1].AmountUSD.Sub(history[i].AmountUSD)
		burned = burned.Add(burn)
		res.Breakdown = append(res.Breakdown, okEntry(history[i].Month.String(), burn))
	}
	n := decimal.NewFromInt(int64(len(history) - 1))
	avg := burned.Div(n)
	res.Inputs["avg_monthly_burn"] = avg.Round(2)

	if !avg.IsPositive() {
		res.Status = StatusInfinite
		return res, nil
	}
	res.Status = StatusOK
	res.Value = valid(latest.Mul(n).Div(burned).Round(1))
	return res, nil
}
