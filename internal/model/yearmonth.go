package model

import (
	"fmt"
	"strings"
	"time"
)

// YearMonth identifies a calendar month. It is the time bucket for every metric.
type YearMonth struct {
	Year  int
	Month time.Month
}

// monthLayouts are tried in order by ParseYearMonth. Spreadsheet exports often
// carry a full timestamp in the month column.
var monthLayouts = []string{
	"2006-01",
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006/01",
	"Jan 2006",
	"January 2006",
	"Jan-2006",
}

// NewYearMonth returns the YearMonth for year and month.
func NewYearMonth(year int, month time.Month) YearMonth {
	return YearMonth{Year: year, Month: month}
}

// ParseYearMonth parses "2025-06" and the other accepted month layouts.
func ParseYearMonth(s string) (YearMonth, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return YearMonth{}, fmt.Errorf("empty month")
	}
	for _, layout := range monthLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return YearMonth{Year: t.Year(), Month: t.Month()}, nil
		}
	}
	return YearMonth{}, fmt.Errorf("unrecognized month %q (want YYYY-MM)", s)
}

// MustYearMonth is ParseYearMonth for literals; it panics on bad input.
func MustYearMonth(s string) YearMonth {
	ym, err := ParseYearMonth(s)
	if err != nil {
		panic(err)
	}
	return ym
}

// String formats as "2025-06".
func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month))
}

// IsZero reports whether ym is the zero value.
func (ym YearMonth) IsZero() bool {
	return ym.Year == 0 && ym.Month == 0
}

// Index returns a monotonically increasing month number, useful for arithmetic.
func (ym YearMonth) Index() int {
	return ym.Year*12 + int(ym.Month) - 1
}

func fromIndex(i int) YearMonth {
	return YearMonth{Year: i / 12, Month: time.Month(i%12 + 1)}
}

// AddMonths returns ym shifted by n months (n may be negative).
func (ym YearMonth) AddMonths(n int) YearMonth {
	return fromIndex(ym.Index() + n)
}

// Next returns the following month.
func (ym YearMonth) Next() YearMonth { return ym.AddMonths(1) }

// Prev returns the preceding month.
func (ym YearMonth) Prev() YearMonth { return ym.AddMonths(-1) }

// Compare returns -1, 0 or +1.
func (ym YearMonth) Compare(other YearMonth) int {
	a, b := ym.Index(), other.Index()
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Before reports whether ym is earlier than other.
func (ym YearMonth) Before(other YearMonth) bool {
	return ym.Compare(other) < 0
}

// Label returns a human label such as "Jun 2025".
func (ym YearMonth) Label() string {
	return time.Date(ym.Year, ym.Month, 1, 0, 0, 0, 0, time.UTC).Format("Jan 2006")
}

// MarshalText implements encoding.TextMarshaler.
func (ym YearMonth) MarshalText() ([]byte, error) {
	return []byte(ym.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (ym *YearMonth) UnmarshalText(b []byte) error {
	parsed, err := ParseYearMonth(string(b))
	if err != nil {
		return err
	}
	*ym = parsed
	return nil
}
