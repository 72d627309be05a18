package xlaction

import "strings"

// SplitColumn splits a text column on a delimiter into new columns
// appended after the last existing column.
type SplitColumn struct {
	Sheet     string   `json:"sheet,omitempty" yaml:"sheet,omitempty"`
	SourceCol string   `json:"source_col" yaml:"source_col"`
	Into      []string `json:"into,omitempty" yaml:"into,omitempty"`         // default ["Part1", "Part2"]
	Delimiter string   `json:"delimiter,omitempty" yaml:"delimiter,omitempty"` // default " "
}

func (SplitColumn) Kind() ActionKind { return KindSplitColumn }

func (a SplitColumn) into() []string {
	if len(a.Into) == 0 {
		return []string{"Part1", "Part2"}
	}
	return a.Into
}

func (a SplitColumn) delimiter() string {
	if a.Delimiter == "" {
		return " "
	}
	return a.Delimiter
}

// Apply writes the destination headers, then each data row's trimmed parts.
// Parts beyond len(Into) are dropped; missing parts leave cells blank.
func (a SplitColumn) Apply(wb *Workbook, log *ChangeLog) error {
	s, src, err := columnFor(wb, a.Sheet, a.SourceCol)
	if err != nil {
		return err
	}
	into := a.into()
	delim := a.delimiter()

	first := s.Cols()
	for i, name := range into {
		s.SetCell(0, first+i, TextCell(name))
	}

	for r := 1; r < s.Rows(); r++ {
		text, ok := s.Cell(r, src).Text()
		if !ok || text == "" {
			continue
		}
		parts := strings.Split(text, delim)
		for i := 0; i < len(parts) && i < len(into); i++ {
			s.SetCell(r, first+i, CellOf(strings.TrimSpace(parts[i])))
		}
	}

	log.Add("Split column '%s' into %d columns", a.SourceCol, len(into))
	return nil
}
