package tools

import (
	"strings"

	"github.com/cleared-dev/finqa/internal/chart"
	"github.com/cleared-dev/finqa/internal/tables"
)

func datasetNames() []any {
	out := make([]any, len(tables.Names))
	for i, n := range tables.Names {
		out[i] = string(n)
	}
	return out
}

func datasetProperty() map[string]any {
	return map[string]any{
		"type":        "string",
		"enum":        datasetNames(),
		"description": "Dataset to read: actuals, budget, fx or cash (a .csv suffix is accepted).",
	}
}

func exploreSchema() Schema {
	return Schema{
		Name: ExploreCSV,
		Description: "Describe a dataset before extracting from it: columns with inferred types, " +
			"row count, distinct categories, currencies and entities, month range and sample rows.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"dataset_name": datasetProperty(),
			},
			"required": []any{"dataset_name"},
		},
	}
}

func extractSchema() Schema {
	str := map[string]any{"type": "string"}
	return Schema{
		Name: ExtractCSVData,
		Description: "Extract data from a dataset. With filters.metric set, computes a metric in USD " +
			"(FX-converted per month and currency) and returns it with an ID for create_chart. " +
			"Without a metric, returns the matching raw rows (at most 200). " +
			"Use one of month, months, month_range or last_n_months for the period; " +
			"metrics default to the latest month.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"dataset_name": datasetProperty(),
				"filters": map[string]any{
					"type":        "object",
					"description": "Filter object. A JSON string holding the object is also accepted.",
					"properties": map[string]any{
						filterMonth:       map[string]any{"type": "string", "description": "Single month, YYYY-MM."},
						filterMonths:      map[string]any{"type": "array", "items": str, "description": "List of months, YYYY-MM."},
						filterMonthRange:  map[string]any{"type": "string", "description": "Inclusive range, YYYY-MM..YYYY-MM."},
						filterLastNMonths: map[string]any{"type": "integer", "description": "The N months ending at the latest month in the data."},
						filterCategories:  map[string]any{"type": "array", "items": str, "description": "Category names or classes (revenue, cogs, opex). Raw rows only."},
						filterCurrency:    map[string]any{"type": "string", "description": "Currency code. Raw rows only."},
						filterEntity:      map[string]any{"type": "string", "description": "Entity name. Raw rows only."},
						filterMetric: map[string]any{
							"type":        "string",
							"description": "Metric keyword: " + strings.Join(MetricKeywords(), ", ") + ".",
						},
						filterCompare: map[string]any{"type": "boolean", "description": "With metric revenue on actuals, also compute budget and variance."},
					},
				},
			},
			"required": []any{"dataset_name"},
		},
	}
}

func chartSchema() Schema {
	types := make([]any, len(chart.Types))
	for i, t := range chart.Types {
		types[i] = string(t)
	}
	return Schema{
		Name: CreateChart,
		Description: "Build a chart from a metric result. line and bar need a per-month or " +
			"per-category breakdown; waterfall also accepts a single value.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"metric_result": map[string]any{
					"type":        "string",
					"description": "ID returned by extract_csv_data, e.g. metric_1. Defaults to the latest metric.",
				},
				"chart_type": map[string]any{"type": "string", "enum": types},
				"title":      map[string]any{"type": "string", "description": "Optional chart title."},
			},
			"required": []any{"chart_type"},
		},
	}
}
