package categories

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

const (
	numFields  = 2
	colPattern = 0
	colClass   = 1
)

// ReadRules reads a category-rules CSV ("pattern,class").
func ReadRules(r io.Reader) ([]Rule, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading category rules CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	var rules []Rule
	for i, rec := range records[1:] {
		rule, err := UnmarshalRule(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// WriteRules writes a category-rules CSV including the header.
func WriteRules(w io.Writer, rules []Rule) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write([]string{"pattern", "class"}); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, rule := range rules {
		if err := cw.Write(MarshalRule(rule)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	return cw.Error()
}

// MarshalRule converts a Rule to a CSV row.
func MarshalRule(rule Rule) []string {
	row := make([]string, numFields)
	row[colPattern] = rule.Pattern
	row[colClass] = string(rule.Class)
	return row
}

// UnmarshalRule converts a CSV row to a Rule.
func UnmarshalRule(record []string) (Rule, error) {
	if len(record) != numFields {
		return Rule{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	pattern := strings.TrimSpace(record[colPattern])
	if pattern == "" {
		return Rule{}, fmt.Errorf("empty pattern")
	}

	class, err := ParseClass(record[colClass])
	if err != nil {
		return Rule{}, err
	}

	return Rule{Pattern: pattern, Class: class}, nil
}
