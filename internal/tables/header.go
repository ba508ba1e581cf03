package tables

import (
	"fmt"
	"strings"
)

// column describes one logical column and the header spellings accepted for it.
type column struct {
	key      string
	aliases  []string
	required bool
}

const (
	keyMonth    = "month"
	keyEntity   = "entity"
	keyCategory = "account_category"
	keyAmount   = "amount"
	keyCurrency = "currency"
	keyRate     = "rate_to_usd"
	keyCash     = "cash_usd"
)

var ledgerColumns = []column{
	{key: keyMonth, aliases: []string{"month", "period", "date"}, required: true},
	{key: keyEntity, aliases: []string{"entity", "company"}},
	{key: keyCategory, aliases: []string{"account_category", "category", "account"}, required: true},
	{key: keyAmount, aliases: []string{"amount", "value"}, required: true},
	{key: keyCurrency, aliases: []string{"currency", "ccy"}, required: true},
}

var fxColumns = []column{
	{key: keyMonth, aliases: []string{"month", "period", "date"}, required: true},
	{key: keyCurrency, aliases: []string{"currency", "ccy"}, required: true},
	{key: keyRate, aliases: []string{"rate_to_usd", "rate", "fx_rate", "usd_rate"}, required: true},
}

var cashColumns = []column{
	{key: keyMonth, aliases: []string{"month", "period", "date"}, required: true},
	{key: keyEntity, aliases: []string{"entity", "company", "account"}},
	{key: keyCash, aliases: []string{"cash_usd", "amount_usd", "balance_usd", "balance", "amount"}, required: true},
}

// normalizeHeader lower-cases, trims, strips a UTF-8 BOM and maps spaces to underscores.
func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.ReplaceAll(h, " ", "_")
}

// mapHeader returns the column index for each logical key present in header.
func mapHeader(table Name, header []string, cols []column) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[normalizeHeader(h)] = i
	}

	out := make(map[string]int, len(cols))
	for _, c := range cols {
		for _, alias := range c.aliases {
			if i, ok := index[alias]; ok {
				out[c.key] = i
				break
			}
		}
		if _, ok := out[c.key]; !ok && c.required {
			return nil, &MalformedDataError{
				Table:  table,
				Row:    1,
				Column: c.key,
				Reason: fmt.Sprintf("required column missing (accepted headers: %s)", strings.Join(c.aliases, ", ")),
			}
		}
	}
	return out, nil
}
