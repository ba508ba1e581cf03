package dataset

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/finqa/internal/categories"
	"github.com/cleared-dev/finqa/internal/model"
	"github.com/cleared-dev/finqa/internal/tables"
)

func loadFixtures(t *testing.T) *Dataset {
	t.Helper()
	d, err := LoadDir("../../testdata", nil)
	require.NoError(t, err)
	return d
}

func TestLoadDir(t *testing.T) {
	d := loadFixtures(t)
	assert.Len(t, d.Select(model.SourceActual, Query{}), 21)
	assert.Len(t, d.Select(model.SourceBudget, Query{}), 8)
	assert.Len(t, d.Rates(), 6)
	assert.Len(t, d.Balances(), 8)
}

func TestLoad_MalformedFailsWholeLoad(t *testing.T) {
	good := "month,account_category,amount,currency\n2025-06,Revenue,10,USD\n"
	bad := "month,account_category,amount,currency\n2025-06,Revenue,n/a,USD\n"
	fx := "month,currency,rate_to_usd\n2025-06,USD,1\n"
	cash := "month,cash_usd\n2025-06,100\n"

	_, err := Load(strings.NewReader(good), strings.NewReader(bad), strings.NewReader(fx), strings.NewReader(cash))
	require.ErrorIs(t, err, tables.ErrMalformedData)

	var me *tables.MalformedDataError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, tables.Budget, me.Table)
}

func TestRecordsFor_FileOrder(t *testing.T) {
	d := loadFixtures(t)
	w := model.SingleMonth(model.MustYearMonth("2025-06"))

	got := d.RecordsFor(&w, []string{"revenue"}, model.SourceActual)
	require.Len(t, got, 2)
	assert.Equal(t, "ParentCo", got[0].Entity)
	assert.Equal(t, "EMEA", got[1].Entity)

	// exact name, case-insensitive
	got = d.RecordsFor(&w, []string{"opex:r&d"}, model.SourceActual)
	require.Len(t, got, 1)
	assert.Equal(t, "40000", got[0].Amount.String())

	// class match covers every Opex:* row
	got = d.RecordsFor(&w, []string{"opex"}, model.SourceActual)
	assert.Len(t, got, 3)

	// nil window, no categories
	assert.Len(t, d.RecordsFor(nil, nil, model.SourceBudget), 8)
}

func TestSelect(t *testing.T) {
	d := loadFixtures(t)
	got := d.Select(model.SourceActual, Query{
		Currencies: []model.CurrencyCode{"EUR"},
		Entities:   []string{"emea"},
	})
	assert.Len(t, got, 9)
	for _, r := range got {
		assert.Equal(t, model.CurrencyCode("EUR"), r.Currency)
	}
}

func TestWithClassifier(t *testing.T) {
	c := categories.NewClassifier([]categories.Rule{
		{Pattern: "Opex:R&D", Class: categories.ClassCOGS},
		{Pattern: "COGS", Class: categories.ClassCOGS},
	})
	d, err := LoadDir("../../testdata", nil, WithClassifier(c))
	require.NoError(t, err)

	w := model.SingleMonth(model.MustYearMonth("2025-06"))
	got := d.RecordsFor(&w, []string{"cogs"}, model.SourceActual)
	assert.Len(t, got, 3)
}

func TestMonths(t *testing.T) {
	d := loadFixtures(t)
	months := d.Months(model.SourceActual)
	require.Len(t, months, 3)
	assert.Equal(t, "2025-04", months[0].String())

	latest, ok := d.LatestMonth(model.SourceActual)
	require.True(t, ok)
	assert.Equal(t, "2025-06", latest.String())

	assert.True(t, d.HasMonth(model.SourceBudget, model.MustYearMonth("2025-05")))
	assert.False(t, d.HasMonth(model.SourceBudget, model.MustYearMonth("2025-07")))
}

func TestCashByMonth(t *testing.T) {
	d := loadFixtures(t)
	cash := d.CashByMonth()
	require.Len(t, cash, 4)
	assert.Equal(t, "2025-03", cash[0].Month.String())
	assert.Equal(t, "1800000", cash[0].AmountUSD.String())
	assert.Equal(t, "1520000", cash[3].AmountUSD.String())
	assert.Empty(t, cash[3].Entity)
}

func TestSchemaSummary(t *testing.T) {
	d := loadFixtures(t)
	s, err := d.SchemaSummary(tables.Actuals)
	require.NoError(t, err)

	assert.Equal(t, "actuals.csv", s.File)
	assert.Equal(t, 21, s.RowCount)
	assert.Equal(t, "2025-04..2025-06", s.MonthRange)
	assert.Equal(t, []string{"EUR", "USD"}, s.Currencies)
	assert.Equal(t, []string{"EMEA", "ParentCo"}, s.Entities)
	assert.Contains(t, s.Categories, "Opex:Marketing")
	assert.Len(t, s.Sample, 3)
	assert.Equal(t, "Revenue", s.Sample[0]["account_category"])

	types := make(map[string]ColumnType)
	for _, c := range s.Columns {
		types[c.Name] = c.Type
	}
	assert.Equal(t, ColumnMonth, types["month"])
	assert.Equal(t, ColumnCategorical, types["entity"])
	assert.Equal(t, ColumnNumeric, types["amount"])
	assert.Equal(t, ColumnCategorical, types["currency"])
}

func TestSchemaSummary_Cash(t *testing.T) {
	d := loadFixtures(t)
	s, err := d.SchemaSummary(tables.Cash)
	require.NoError(t, err)
	assert.Equal(t, "2025-03..2025-06", s.MonthRange)
	for _, c := range s.Columns {
		if c.Name == "cash_usd" {
			assert.Equal(t, "270000", c.Min)
			assert.Equal(t, "1500000", c.Max)
		}
	}
}

func TestSchemaSummary_Unknown(t *testing.T) {
	d := loadFixtures(t)
	_, err := d.SchemaSummary("forecast")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	d := loadFixtures(t)
	assert.Empty(t, d.Validate())

	actuals := "month,account_category,amount,currency\n2025-06,Revenue,10,GBP\n2025-06,Interest,1,USD\n"
	budget := "month,account_category,amount,currency\n"
	fx := "month,currency,rate_to_usd\n2025-06,EUR,1.1\n"
	cash := "month,cash_usd\n2025-06,100\n"
	d, err := Load(strings.NewReader(actuals), strings.NewReader(budget), strings.NewReader(fx), strings.NewReader(cash))
	require.NoError(t, err)

	errs := d.Validate()
	require.Len(t, errs, 3)
	assert.Equal(t, ProblemMissingRate, errs[0].Kind)
	assert.Contains(t, errs[0].Error(), "no GBP rate for 2025-06")
	assert.Equal(t, ProblemUnclassified, errs[1].Kind)
	assert.Equal(t, ProblemShortCash, errs[2].Kind)
}
