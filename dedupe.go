package xlaction

import (
	"strconv"
	"strings"
)

// RemoveDuplicates drops data rows whose full value tuple equals an
// earlier row. The header row is never compared.
type RemoveDuplicates struct {
	Sheet string `json:"sheet,omitempty" yaml:"sheet,omitempty"`
}

func (RemoveDuplicates) Kind() ActionKind { return KindRemoveDuplicates }

// Apply keeps the first occurrence of each distinct row, preserving the
// relative order of kept rows, and clears the rows freed at the bottom.
func (a RemoveDuplicates) Apply(wb *Workbook, log *ChangeLog) error {
	s, err := sheetFor(wb, a.Sheet)
	if err != nil {
		return err
	}

	seen := make(map[string]bool, s.DataRows())
	var kept [][]Cell
	for r := 1; r < s.Rows(); r++ {
		row := s.Row(r)
		key := rowKey(row)
		if seen[key] {
			continue
		}
		seen[key] = true
		kept = append(kept, row)
	}
	removed := s.DataRows() - len(kept)

	if removed > 0 {
		for i, row := range kept {
			s.SetRow(i+1, row)
		}
		s.Truncate(len(kept) + 1)
	}

	log.Add("Removed %d duplicate rows from %s", removed, s.Name())
	return nil
}

func rowKey(row []Cell) string {
	keys := make([]string, len(row))
	for i, c := range row {
		keys[i] = strconv.Quote(c.key())
	}
	return strings.Join(keys, ",")
}
