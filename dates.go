package xlaction

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/xuri/excelize/v2"
)

// ConvertDates rewrites a date column as date-only values displayed as
// YYYY-MM-DD. Cells that cannot be read as a date are left untouched.
type ConvertDates struct {
	Sheet   string `json:"sheet,omitempty" yaml:"sheet,omitempty"`
	DateCol string `json:"date_col,omitempty" yaml:"date_col,omitempty"` // default "Date"
}

func (ConvertDates) Kind() ActionKind { return KindConvertDates }

func (a ConvertDates) column() string {
	if a.DateCol == "" {
		return "Date"
	}
	return a.DateCol
}

func (a ConvertDates) Apply(wb *Workbook, log *ChangeLog) error {
	col := a.column()
	s, idx, err := columnFor(wb, a.Sheet, col)
	if err != nil {
		return err
	}
	for r := 1; r < s.Rows(); r++ {
		cell := s.Cell(r, idx)
		if cell.IsBlank() {
			continue
		}
		t, ok := cellDate(cell, wb.date1904)
		if !ok {
			continue
		}
		s.SetCell(r, idx, cell.withValue(DateCell(truncateToDate(t), DateFormat)))
	}
	log.Add("Converted dates in column: %s", col)
	return nil
}

// cellDate reads a cell as a point in time: dates as-is, numbers as Excel
// serial dates, text through ParseDate.
func cellDate(c Cell, date1904 bool) (time.Time, bool) {
	switch v := c.Value.(type) {
	case time.Time:
		return v, true
	case float64:
		if v <= 0 {
			return time.Time{}, false
		}
		t, err := excelize.ExcelDateToTime(v, date1904)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	case string:
		return ParseDate(v)
	default:
		return time.Time{}, false
	}
}

var (
	ordinalSuffix = regexp.MustCompile(`(?i)(\d)(st|nd|rd|th)\b`)
	monthDot      = regexp.MustCompile(`\b([A-Za-z]{3,9})\.`)
	compactDate   = regexp.MustCompile(`^\d{8}$`)
)

// fallbackLayouts cover day-first forms with a time and two-digit years,
// which dateparse does not read reliably.
var fallbackLayouts = []string{
	"2-1-2006 15:04",
	"2-1-2006 15:04:05",
	"2-1-2006",
	"2.1.06",
	"2.1.2006",
	"2 Jan 2006",
	"2 January 2006",
	"January 2, 2006",
	"January 2006",
	"Jan 2006",
}

// ParseDate parses common textual date and date-time forms in UTC.
// Ambiguous numeric dates read month first, so 03/04/2024 is March 4, and
// are retried day first when that fails. Plain numbers are not dates, except
// the compact YYYYMMDD form.
func ParseDate(s string) (time.Time, bool) {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return time.Time{}, false
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil && !compactDate.MatchString(s) {
		return time.Time{}, false
	}
	s = ordinalSuffix.ReplaceAllString(s, "$1")
	s = monthDot.ReplaceAllString(s, "$1")

	t, err := dateparse.ParseIn(s, time.UTC,
		dateparse.PreferMonthFirst(true),
		dateparse.RetryAmbiguousDateWithSwap(true),
	)
	if err == nil {
		return t, true
	}
	for _, layout := range fallbackLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func truncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
