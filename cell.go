package xlaction

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// CellType represents the type of data in a cell.
type CellType int

const (
	CellBlank CellType = iota
	CellText
	CellNumber
	CellBool
	CellDate
)

// String returns a human-readable name for the CellType.
func (ct CellType) String() string {
	switch ct {
	case CellBlank:
		return "Blank"
	case CellText:
		return "Text"
	case CellNumber:
		return "Number"
	case CellBool:
		return "Bool"
	case CellDate:
		return "Date"
	default:
		return "Unknown"
	}
}

// DateFormat is the display format given to cells rewritten by convert_dates.
const DateFormat = "YYYY-MM-DD"

// Cell holds a scalar value plus an optional display-format hint.
//
// Value is nil for blank cells, string for text, float64 for numbers,
// bool for booleans and time.Time for dates.
type Cell struct {
	Type    CellType
	Value   any
	Format  string // display format hint, e.g. DateFormat
	Formula string // formula loaded from the file (without leading =)
	StyleID int    // style carried over from the source file
}

// TextCell creates a text cell.
func TextCell(s string) Cell { return Cell{Type: CellText, Value: s} }

// NumberCell creates a numeric cell.
func NumberCell(v float64) Cell { return Cell{Type: CellNumber, Value: v} }

// BoolCell creates a boolean cell.
func BoolCell(v bool) Cell { return Cell{Type: CellBool, Value: v} }

// DateCell creates a date cell with the given display format.
func DateCell(t time.Time, format string) Cell {
	return Cell{Type: CellDate, Value: t, Format: format}
}

// CellOf builds a cell from a plain Go value. Unsupported types are stored
// as text using their default formatting.
func CellOf(v any) Cell {
	switch x := v.(type) {
	case nil:
		return Cell{}
	case Cell:
		return x
	case string:
		if x == "" {
			return Cell{}
		}
		return TextCell(x)
	case float64:
		return NumberCell(x)
	case float32:
		return NumberCell(float64(x))
	case int:
		return NumberCell(float64(x))
	case int64:
		return NumberCell(float64(x))
	case bool:
		return BoolCell(x)
	case time.Time:
		return DateCell(x, "")
	default:
		return TextCell(formatAny(x))
	}
}

// IsBlank reports whether the cell holds no value.
func (c Cell) IsBlank() bool {
	if c.Type == CellBlank || c.Value == nil {
		return true
	}
	s, ok := c.Value.(string)
	return ok && s == ""
}

// String returns the value as text the way a spreadsheet would show it
// without number formatting. Blank cells return "".
func (c Cell) String() string {
	if c.IsBlank() {
		return ""
	}
	switch v := c.Value.(type) {
	case string:
		return v
	case float64:
		return formatNumber(v)
	case bool:
		if v {
			return "TRUE"
		}
		return "FALSE"
	case time.Time:
		if v.Hour() == 0 && v.Minute() == 0 && v.Second() == 0 && v.Nanosecond() == 0 {
			return v.Format("2006-01-02")
		}
		return v.Format("2006-01-02 15:04:05")
	default:
		return formatAny(v)
	}
}

// Text returns the value when the cell holds text.
func (c Cell) Text() (string, bool) {
	if c.Type != CellText {
		return "", false
	}
	s, ok := c.Value.(string)
	return s, ok
}

// Number returns the numeric value of the cell. Text that parses as a
// finite number counts, since uploaded sheets often store numbers as text;
// "NaN" and "inf" do not.
func (c Cell) Number() (float64, bool) {
	switch v := c.Value.(type) {
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// key identifies the cell's type and value for equality comparison.
func (c Cell) key() string {
	if c.IsBlank() {
		return ""
	}
	return c.Type.String() + ":" + c.String()
}

// withValue returns a copy of the cell holding a new value, keeping its style.
func (c Cell) withValue(v Cell) Cell {
	v.StyleID = c.StyleID
	return v
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatAny(v any) string {
	return fmt.Sprint(v)
}
