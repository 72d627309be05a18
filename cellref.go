package xlaction

import (
	"strconv"
	"strings"
)

// CellRef addresses a single cell of a workbook.
type CellRef struct {
	Sheet string // sheet name (empty = first sheet)
	Row   int    // 0-based row index; row 0 is the header row
	Col   int    // 0-based column index
}

// NewCellRef creates a CellRef with explicit sheet, row, col.
func NewCellRef(sheet string, row, col int) CellRef {
	return CellRef{Sheet: sheet, Row: row, Col: col}
}

// String formats the CellRef as "Sheet1!A1" or "A1" if no sheet.
func (c CellRef) String() string {
	if c.Sheet != "" {
		return c.Sheet + "!" + c.CellName()
	}
	return c.CellName()
}

// CellName returns the A1-style name without the sheet.
func (c CellRef) CellName() string {
	return ColToName(c.Col) + strconv.Itoa(c.Row+1)
}

// ColToName converts a 0-based column index to a column name.
// 0→"A", 25→"Z", 26→"AA"
func ColToName(col int) string {
	var b []byte
	col++
	for col > 0 {
		col--
		b = append([]byte{byte('A' + col%26)}, b...)
		col /= 26
	}
	return string(b)
}

// SafeSheetName sanitizes a string for use as an Excel sheet name.
// Forbidden characters ([]*?/\:) become underscores and the result is
// truncated to 31 characters. An empty name becomes "Sheet".
func SafeSheetName(name string) string {
	runes := []rune(strings.TrimSpace(name))
	for i, r := range runes {
		if strings.ContainsRune(`/\:*?[]`, r) {
			runes[i] = '_'
		}
	}
	if len(runes) > 31 {
		runes = runes[:31]
	}
	if len(runes) == 0 {
		return "Sheet"
	}
	return string(runes)
}
