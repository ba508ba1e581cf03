// Package chart turns metric results into declarative chart specifications.
// Rendering is left to the caller.
package chart

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/finqa/internal/metrics"
)

var (
	ErrUnsupportedType  = errors.New("unsupported chart type")
	ErrInsufficientData = errors.New("insufficient data for chart")
)

// Type is a chart kind.
type Type string

const (
	Line      Type = "line"
	Bar       Type = "bar"
	Waterfall Type = "waterfall"
)

// Types lists the supported chart kinds.
var Types = []Type{Line, Bar, Waterfall}

// ParseType resolves a chart type name case-insensitively.
func ParseType(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	switch t {
	case Line, Bar, Waterfall:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q (supported: line, bar, waterfall)", ErrUnsupportedType, s)
}

// Series is one named sequence of values aligned with Spec.XLabels.
// Undefined points are null.
type Series struct {
	Name   string                `json:"name"`
	Values []decimal.NullDecimal `json:"values"`
}

// Spec is a declarative chart.
type Spec struct {
	Type    Type     `json:"type"`
	Title   string   `json:"title"`
	Unit    string   `json:"unit"`
	XLabels []string `json:"x_labels"`
	Series  []Series `json:"series"`
}

// Build converts a metric result into a chart. Line and bar charts need a
// breakdown; a waterfall also accepts a single value, and closes a breakdown
// with a Total bar.
func Build(res metrics.Result, chartType string, title string) (Spec, error) {
	t, err := ParseType(chartType)
	if err != nil {
		return Spec{}, err
	}
	if title == "" {
		title = defaultTitle(res)
	}
	spec := Spec{Type: t, Title: title, Unit: string(res.Unit)}

	if len(res.Breakdown) == 0 {
		if t != Waterfall || !res.Value.Valid {
			return Spec{}, fmt.Errorf("%w: %s for %s has no breakdown to plot as a %s chart", ErrInsufficientData, res.Metric, res.Window, t)
		}
		spec.XLabels = []string{res.Window.String()}
		spec.Series = []Series{{Name: res.Metric, Values: []decimal.NullDecimal{res.Value}}}
		return spec, nil
	}

	values := make([]decimal.NullDecimal, 0, len(res.Breakdown)+1)
	for _, e := range res.Breakdown {
		spec.XLabels = append(spec.XLabels, e.Label)
		values = append(values, e.Value)
	}
	if t == Waterfall {
		spec.XLabels = append(spec.XLabels, "Total")
		values = append(values, res.Value)
	}
	spec.Series = append(spec.Series, Series{Name: seriesName(res), Values: values})

	if t != Waterfall && res.HasBudget() {
		budget := make([]decimal.NullDecimal, len(res.Breakdown))
		for i, e := range res.Breakdown {
			budget[i] = e.Budget
		}
		spec.Series = append(spec.Series, Series{Name: "budget", Values: budget})
	}
	return spec, nil
}

func seriesName(res metrics.Result) string {
	if res.HasBudget() {
		return "actual"
	}
	return res.Metric
}

func defaultTitle(res metrics.Result) string {
	name := strings.ReplaceAll(res.Metric, "_", " ")
	name = strings.Replace(name, " pct", " %", 1)
	if name == "" {
		return res.Window.String()
	}
	return fmt.Sprintf("%s (%s)", strings.ToUpper(name[:1])+name[1:], res.Window)
}
