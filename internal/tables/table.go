package tables

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/finqa/internal/model"
)

// Table is a parsed source table. Header and Rows keep the raw cells for
// schema exploration; exactly one of Records, Rates or Balances is populated.
type Table struct {
	Name     Name
	Header   []string
	Rows     [][]string
	Records  []model.FinancialRecord
	Rates    []model.FxRate
	Balances []model.CashBalance
}

// Parser converts one source CSV into a Table.
type Parser interface {
	Parse(r io.Reader) (*Table, error)
	Table() Name
}

// readAll reads a CSV and splits off the header. An empty file is malformed.
func readAll(table Name, r io.Reader) ([]string, [][]string, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			return nil, nil, &MalformedDataError{Table: table, Row: pe.Line, Reason: pe.Err.Error()}
		}
		return nil, nil, fmt.Errorf("reading %s CSV: %w", table, err)
	}

	if len(records) == 0 {
		return nil, nil, &MalformedDataError{Table: table, Reason: "file is empty (header row required)"}
	}
	return records[0], records[1:], nil
}

func parseMonth(table Name, row int, rec []string, col int) (model.YearMonth, error) {
	ym, err := model.ParseYearMonth(rec[col])
	if err != nil {
		return model.YearMonth{}, &MalformedDataError{Table: table, Row: row, Column: keyMonth, Reason: err.Error()}
	}
	return ym, nil
}

// parseAmount accepts thousands separators ("1,250.00") but nothing else non-numeric.
func parseAmount(table Name, row int, key, raw string) (decimal.Decimal, error) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if s == "" {
		return decimal.Decimal{}, &MalformedDataError{Table: table, Row: row, Column: key, Reason: "empty value"}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, &MalformedDataError{Table: table, Row: row, Column: key, Reason: fmt.Sprintf("non-numeric value %q", raw)}
	}
	return d, nil
}

func parseCurrency(table Name, row int, raw string) (model.CurrencyCode, error) {
	c := model.NormalizeCurrency(raw)
	if len(c) != 3 {
		return "", &MalformedDataError{Table: table, Row: row, Column: keyCurrency, Reason: fmt.Sprintf("invalid currency code %q", raw)}
	}
	return c, nil
}

func cell(rec []string, cols map[string]int, key string) string {
	i, ok := cols[key]
	if !ok {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// LedgerParser parses actuals.csv and budget.csv.
type LedgerParser struct {
	Name Name
}

// Table returns the table this parser handles.
func (p *LedgerParser) Table() Name { return p.Name }

// Parse reads ledger rows in file order.
func (p *LedgerParser) Parse(r io.Reader) (*Table, error) {
	header, rows, err := readAll(p.Name, r)
	if err != nil {
		return nil, err
	}
	cols, err := mapHeader(p.Name, header, ledgerColumns)
	if err != nil {
		return nil, err
	}

	t := &Table{Name: p.Name, Header: header, Rows: rows}
	for i, rec := range rows {
		row := i + 2
		month, err := parseMonth(p.Name, row, rec, cols[keyMonth])
		if err != nil {
			return nil, err
		}
		category := cell(rec, cols, keyCategory)
		if category == "" {
			return nil, &MalformedDataError{Table: p.Name, Row: row, Column: keyCategory, Reason: "empty value"}
		}
		amount, err := parseAmount(p.Name, row, keyAmount, rec[cols[keyAmount]])
		if err != nil {
			return nil, err
		}
		currency, err := parseCurrency(p.Name, row, rec[cols[keyCurrency]])
		if err != nil {
			return nil, err
		}
		t.Records = append(t.Records, model.FinancialRecord{
			Month:    month,
			Entity:   cell(rec, cols, keyEntity),
			Category: category,
			Amount:   amount,
			Currency: currency,
		})
	}
	return t, nil
}

// FXParser parses fx.csv. Each (month, currency) pair may appear once.
type FXParser struct{}

// Table returns FX.
func (p *FXParser) Table() Name { return FX }

// Parse reads rate rows in file order.
func (p *FXParser) Parse(r io.Reader) (*Table, error) {
	header, rows, err := readAll(FX, r)
	if err != nil {
		return nil, err
	}
	cols, err := mapHeader(FX, header, fxColumns)
	if err != nil {
		return nil, err
	}

	type pair struct {
		month    model.YearMonth
		currency model.CurrencyCode
	}
	seen := make(map[pair]int)

	t := &Table{Name: FX, Header: header, Rows: rows}
	for i, rec := range rows {
		row := i + 2
		month, err := parseMonth(FX, row, rec, cols[keyMonth])
		if err != nil {
			return nil, err
		}
		currency, err := parseCurrency(FX, row, rec[cols[keyCurrency]])
		if err != nil {
			return nil, err
		}
		rate, err := parseAmount(FX, row, keyRate, rec[cols[keyRate]])
		if err != nil {
			return nil, err
		}
		if !rate.IsPositive() {
			return nil, &MalformedDataError{Table: FX, Row: row, Column: keyRate, Reason: fmt.Sprintf("rate must be positive, got %s", rate)}
		}
		k := pair{month, currency}
		if first, dup := seen[k]; dup {
			return nil, &MalformedDataError{Table: FX, Row: row, Reason: fmt.Sprintf("duplicate rate for %s %s (first at row %d)", currency, month, first)}
		}
		seen[k] = row
		t.Rates = append(t.Rates, model.FxRate{Month: month, Currency: currency, RateToUSD: rate})
	}
	return t, nil
}

// CashParser parses cash.csv.
type CashParser struct{}

// Table returns Cash.
func (p *CashParser) Table() Name { return Cash }

// Parse reads balance rows in file order.
func (p *CashParser) Parse(r io.Reader) (*Table, error) {
	header, rows, err := readAll(Cash, r)
	if err != nil {
		return nil, err
	}
	cols, err := mapHeader(Cash, header, cashColumns)
	if err != nil {
		return nil, err
	}

	t := &Table{Name: Cash, Header: header, Rows: rows}
	for i, rec := range rows {
		row := i + 2
		month, err := parseMonth(Cash, row, rec, cols[keyMonth])
		if err != nil {
			return nil, err
		}
		amount, err := parseAmount(Cash, row, keyCash, rec[cols[keyCash]])
		if err != nil {
			return nil, err
		}
		t.Balances = append(t.Balances, model.CashBalance{
			Month:     month,
			Entity:    cell(rec, cols, keyEntity),
			AmountUSD: amount,
		})
	}
	return t, nil
}
