package tools

import (
	"slices"
	"strings"

	"github.com/cleared-dev/finqa/internal/metrics"
)

type metricKind struct {
	Metric  string
	Compare bool
}

// metricKeywords is the closed table of metric names extract_csv_data accepts.
// Keys are normalized by normalizeKeyword.
var metricKeywords = map[string]metricKind{
	"revenue":               {Metric: metrics.MetricRevenue},
	"sales":                 {Metric: metrics.MetricRevenue},
	"total revenue":         {Metric: metrics.MetricRevenue},
	"revenue vs budget":     {Metric: metrics.MetricRevenue, Compare: true},
	"revenue versus budget": {Metric: metrics.MetricRevenue, Compare: true},
	"revenue variance":      {Metric: metrics.MetricRevenue, Compare: true},
	"budget variance":       {Metric: metrics.MetricRevenue, Compare: true},
	"cogs":                  {Metric: metrics.MetricCOGS},
	"cost of goods sold":    {Metric: metrics.MetricCOGS},
	"cost of sales":         {Metric: metrics.MetricCOGS},
	"opex":                  {Metric: metrics.MetricOpex},
	"operating expenses":    {Metric: metrics.MetricOpex},
	"gross margin":          {Metric: metrics.MetricGrossMarginPct},
	"gross margin %":        {Metric: metrics.MetricGrossMarginPct},
	"gross margin pct":      {Metric: metrics.MetricGrossMarginPct},
	"gross margin percent":  {Metric: metrics.MetricGrossMarginPct},
	"ebitda":                {Metric: metrics.MetricEBITDA},
	"opex breakdown":        {Metric: metrics.MetricOpexBreakdown},
	"opex by category":      {Metric: metrics.MetricOpexBreakdown},
	"cash runway":           {Metric: metrics.MetricCashRunway},
	"runway":                {Metric: metrics.MetricCashRunway},
	"burn":                  {Metric: metrics.MetricCashRunway},
	"cash burn":             {Metric: metrics.MetricCashRunway},
}

func normalizeKeyword(s string) string {
	s = strings.ToLower(strings.ReplaceAll(s, "_", " "))
	return strings.Join(strings.Fields(s), " ")
}

func resolveMetric(s string) (metricKind, bool) {
	k, ok := metricKeywords[normalizeKeyword(s)]
	return k, ok
}

// MetricKeywords returns the accepted metric keywords, sorted.
func MetricKeywords() []string {
	out := make([]string, 0, len(metricKeywords))
	for k := range metricKeywords {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
