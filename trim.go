package xlaction

import "strings"

// TrimClean strips surrounding whitespace and control characters from every
// text cell of a sheet.
type TrimClean struct {
	Sheet          string `json:"sheet,omitempty" yaml:"sheet,omitempty"`
	ApplyToAllText bool   `json:"applyToAllText,omitempty" yaml:"applyToAllText,omitempty"`
}

func (TrimClean) Kind() ActionKind { return KindTrimClean }

// Apply cleans text cells in place. Non-text cells are untouched.
func (a TrimClean) Apply(wb *Workbook, log *ChangeLog) error {
	s, err := sheetFor(wb, a.Sheet)
	if err != nil {
		return err
	}
	for r := 0; r < s.Rows(); r++ {
		for c := 0; c < s.Cols(); c++ {
			cell := s.Cell(r, c)
			text, ok := cell.Text()
			if !ok || cell.Formula != "" {
				continue
			}
			if cleaned := CleanText(text); cleaned != text {
				cell.Value = cleaned
				s.SetCell(r, c, cell)
			}
		}
	}
	log.Add("Cleaned text in sheet: %s", s.Name())
	return nil
}

// CleanText removes C0 and C1 control characters (U+0000–U+001F,
// U+007F–U+009F) and then trims surrounding whitespace. Removing controls
// first keeps the result stable under repeated application.
func CleanText(s string) string {
	s = strings.Map(func(r rune) rune {
		if r <= 0x1f || (r >= 0x7f && r <= 0x9f) {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}
