package tables

import (
	"fmt"
	"strings"
)

// Name identifies one of the four source tables.
type Name string

const (
	Actuals Name = "actuals"
	Budget  Name = "budget"
	FX      Name = "fx"
	Cash    Name = "cash"
)

// Names lists the tables in load order.
var Names = []Name{Actuals, Budget, FX, Cash}

var nameAliases = map[string]Name{
	"actuals":       Actuals,
	"actual":        Actuals,
	"budget":        Budget,
	"budgets":       Budget,
	"fx":            FX,
	"fx_rates":      FX,
	"rates":         FX,
	"cash":          Cash,
	"cash_balances": Cash,
}

// ParseName resolves a table name. "actuals.csv" and "Actuals" both resolve to Actuals.
func ParseName(s string) (Name, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.TrimSuffix(key, ".csv")
	if n, ok := nameAliases[key]; ok {
		return n, nil
	}
	return "", fmt.Errorf("unknown dataset %q (available: actuals, budget, fx, cash)", s)
}

// FileName returns the default file name for the table.
func (n Name) FileName() string {
	return string(n) + ".csv"
}
