package xlaction

import (
	"strconv"
	"strings"
)

// RowPlaceholder is replaced by the 1-based row number in formula templates.
const RowPlaceholder = "{ROW}"

// AddCalculatedColumn appends a column whose cells hold a formula template
// with the row number substituted. The text is stored verbatim and is not
// evaluated.
type AddCalculatedColumn struct {
	Sheet      string `json:"sheet,omitempty" yaml:"sheet,omitempty"`
	ColumnName string `json:"column_name,omitempty" yaml:"column_name,omitempty"` // default "Calculated"
	Formula    string `json:"formula" yaml:"formula"`
}

func (AddCalculatedColumn) Kind() ActionKind { return KindAddCalculatedColumn }

func (a AddCalculatedColumn) columnName() string {
	if a.ColumnName == "" {
		return "Calculated"
	}
	return a.ColumnName
}

func (a AddCalculatedColumn) Apply(wb *Workbook, log *ChangeLog) error {
	if a.Formula == "" {
		return invalidParams("formula template is required")
	}
	s, err := sheetFor(wb, a.Sheet)
	if err != nil {
		return err
	}
	name := a.columnName()
	col := s.Cols()
	s.SetCell(0, col, TextCell(name))
	for r := 1; r < s.Rows(); r++ {
		s.SetCell(r, col, TextCell(ExpandRowTemplate(a.Formula, r+1)))
	}
	log.Add("Added calculated column: %s", name)
	return nil
}

// ExpandRowTemplate substitutes every {ROW} placeholder with row.
func ExpandRowTemplate(template string, row int) string {
	return strings.ReplaceAll(template, RowPlaceholder, strconv.Itoa(row))
}
