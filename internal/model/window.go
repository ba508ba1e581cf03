package model

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// Window is an ordered, de-duplicated set of months a metric is computed over.
// A single month is a point request; more than one month is a trend request.
type Window struct {
	months []YearMonth
}

// SingleMonth returns a point window.
func SingleMonth(ym YearMonth) Window {
	return Window{months: []YearMonth{ym}}
}

// MonthList returns a window over the given months, sorted chronologically.
func MonthList(months ...YearMonth) Window {
	out := make([]YearMonth, 0, len(months))
	for _, m := range months {
		if !slices.Contains(out, m) {
			out = append(out, m)
		}
	}
	slices.SortFunc(out, func(a, b YearMonth) int { return a.Compare(b) })
	return Window{months: out}
}

// MonthRange returns every month from start through end inclusive.
func MonthRange(start, end YearMonth) (Window, error) {
	if end.Before(start) {
		return Window{}, fmt.Errorf("range end %s before start %s", end, start)
	}
	var months []YearMonth
	for m := start; !end.Before(m); m = m.Next() {
		months = append(months, m)
	}
	return Window{months: months}, nil
}

// LastN returns the n months ending at latest (inclusive).
func LastN(latest YearMonth, n int) (Window, error) {
	if n < 1 {
		return Window{}, fmt.Errorf("month count must be at least 1, got %d", n)
	}
	return MonthRange(latest.AddMonths(-(n - 1)), latest)
}

// Months returns a copy of the window's months in chronological order.
func (w Window) Months() []YearMonth {
	return slices.Clone(w.months)
}

// Len returns the number of months.
func (w Window) Len() int { return len(w.months) }

// IsEmpty reports whether the window has no months.
func (w Window) IsEmpty() bool { return len(w.months) == 0 }

// IsTrend reports whether the window asks for a per-month series.
func (w Window) IsTrend() bool { return len(w.months) > 1 }

// First returns the earliest month.
func (w Window) First() YearMonth {
	if len(w.months) == 0 {
		return YearMonth{}
	}
	return w.months[0]
}

// Last returns the latest month.
func (w Window) Last() YearMonth {
	if len(w.months) == 0 {
		return YearMonth{}
	}
	return w.months[len(w.months)-1]
}

// Contains reports whether ym is in the window.
func (w Window) Contains(ym YearMonth) bool {
	return slices.Contains(w.months, ym)
}

func (w Window) contiguous() bool {
	for i := 1; i < len(w.months); i++ {
		if w.months[i] != w.months[i-1].Next() {
			return false
		}
	}
	return true
}

// String renders "2025-06", "2025-04..2025-06" or "2025-01,2025-03".
func (w Window) String() string {
	switch {
	case len(w.months) == 0:
		return ""
	case len(w.months) == 1:
		return w.months[0].String()
	case w.contiguous():
		return w.First().String() + ".." + w.Last().String()
	}
	parts := make([]string, len(w.months))
	for i, m := range w.months {
		parts[i] = m.String()
	}
	return strings.Join(parts, ",")
}

// ParseWindow parses the String form back into a Window.
func ParseWindow(s string) (Window, error) {
	s = strings.TrimSpace(s)
	if start, end, ok := strings.Cut(s, ".."); ok {
		a, err := ParseYearMonth(start)
		if err != nil {
			return Window{}, err
		}
		b, err := ParseYearMonth(end)
		if err != nil {
			return Window{}, err
		}
		return MonthRange(a, b)
	}
	var months []YearMonth
	for _, part := range strings.Split(s, ",") {
		ym, err := ParseYearMonth(part)
		if err != nil {
			return Window{}, err
		}
		months = append(months, ym)
	}
	return MonthList(months...), nil
}

// MarshalJSON encodes the window as its String form.
func (w Window) MarshalJSON() ([]byte, error) {
	return json.Marshal(w.String())
}

// UnmarshalJSON decodes the String form.
func (w *Window) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*w = Window{}
		return nil
	}
	parsed, err := ParseWindow(s)
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}
