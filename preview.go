package xlaction

import "fmt"

// DefaultPreviewRows is the number of data rows a preview shows by default.
const DefaultPreviewRows = 10

// Preview is a first look at one sheet of a workbook.
type Preview struct {
	Sheets       []string   `json:"sheets"`
	ActiveSheet  string     `json:"activeSheet"`
	Headers      []string   `json:"headers"`
	Rows         [][]string `json:"rows"`
	TotalRows    int        `json:"totalRows"` // data rows, header excluded
	TotalColumns int        `json:"totalColumns"`
	Issues       []string   `json:"issues"`
}

// PreviewSheet returns the headers and the first n data rows of the named
// sheet (the first sheet when name is empty), plus simple data-quality
// issues. n <= 0 selects DefaultPreviewRows.
func PreviewSheet(wb *Workbook, name string, n int) (Preview, error) {
	if n <= 0 {
		n = DefaultPreviewRows
	}
	s, err := wb.Sheet(name)
	if err != nil {
		return Preview{}, err
	}

	values := s.Values()
	var rows [][]string
	for r := 1; r < len(values) && r <= n; r++ {
		rows = append(rows, values[r])
	}
	if rows == nil {
		rows = [][]string{}
	}

	p := Preview{
		Sheets:       wb.SheetNames(),
		ActiveSheet:  s.Name(),
		Headers:      s.Header(),
		Rows:         rows,
		TotalRows:    s.DataRows(),
		TotalColumns: s.Cols(),
		Issues:       DataIssues(s),
	}
	return p, nil
}

// DataIssues lists heuristic data-quality problems of a sheet.
func DataIssues(s *Sheet) []string {
	issues := []string{}
	if n := s.BlankHeaders(); n > 0 {
		issues = append(issues, fmt.Sprintf("%d blank column headers", n))
	}
	return issues
}
