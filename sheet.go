package xlaction

// Sheet is a named grid of cells. Row 0 holds the column headers; every
// row after it is a data row.
type Sheet struct {
	name string
	rows [][]Cell
	cols int
}

// NewSheet creates an empty sheet.
func NewSheet(name string) *Sheet {
	return &Sheet{name: name}
}

// NewSheetFromValues creates a sheet whose rows are built with CellOf.
func NewSheetFromValues(name string, values [][]any) *Sheet {
	s := NewSheet(name)
	for r, row := range values {
		for c, v := range row {
			s.SetCell(r, c, CellOf(v))
		}
	}
	return s
}

// Name returns the sheet name.
func (s *Sheet) Name() string { return s.name }

// Rows returns the number of rows including the header row.
func (s *Sheet) Rows() int { return len(s.rows) }

// Cols returns the number of columns of the widest row.
func (s *Sheet) Cols() int { return s.cols }

// DataRows returns the number of rows below the header.
func (s *Sheet) DataRows() int {
	if len(s.rows) == 0 {
		return 0
	}
	return len(s.rows) - 1
}

// Cell returns the cell at (row, col). Unpopulated cells read as blank.
func (s *Sheet) Cell(row, col int) Cell {
	if row < 0 || row >= len(s.rows) || col < 0 || col >= len(s.rows[row]) {
		return Cell{}
	}
	return s.rows[row][col]
}

// SetCell writes a cell, extending the grid when (row, col) lies past its
// extent. Writing a blank, formula-free cell outside the extent is a no-op.
func (s *Sheet) SetCell(row, col int, c Cell) {
	if row < 0 || col < 0 {
		return
	}
	if row >= len(s.rows) || col >= len(s.rows[row]) {
		if c.IsBlank() && c.Formula == "" {
			return
		}
		for len(s.rows) <= row {
			s.rows = append(s.rows, nil)
		}
		if col >= len(s.rows[row]) {
			grown := make([]Cell, col+1)
			copy(grown, s.rows[row])
			s.rows[row] = grown
		}
		if col+1 > s.cols {
			s.cols = col + 1
		}
	}
	s.rows[row][col] = c
}

// Row returns a copy of the row padded to Cols().
func (s *Sheet) Row(row int) []Cell {
	out := make([]Cell, s.cols)
	if row >= 0 && row < len(s.rows) {
		copy(out, s.rows[row])
	}
	return out
}

// SetRow replaces a whole row.
func (s *Sheet) SetRow(row int, cells []Cell) {
	for col := 0; col < s.cols || col < len(cells); col++ {
		if col < len(cells) {
			s.SetCell(row, col, cells[col])
		} else {
			s.SetCell(row, col, Cell{})
		}
	}
}

// Truncate drops every row at index n and beyond.
func (s *Sheet) Truncate(n int) {
	if n < 0 {
		n = 0
	}
	if n >= len(s.rows) {
		return
	}
	s.rows = s.rows[:n]
	s.cols = 0
	for _, r := range s.rows {
		if len(r) > s.cols {
			s.cols = len(r)
		}
	}
}

// Header returns the header row as text. Blank headers are "".
func (s *Sheet) Header() []string {
	headers := make([]string, s.cols)
	for col := range headers {
		headers[col] = s.Cell(0, col).String()
	}
	return headers
}

// ColumnIndex returns the index of the first header equal to name.
func (s *Sheet) ColumnIndex(name string) (int, error) {
	for col := 0; col < s.cols; col++ {
		if s.Cell(0, col).String() == name {
			return col, nil
		}
	}
	return -1, &ColumnNotFoundError{Sheet: s.name, Column: name}
}

// Values returns the grid as strings, one slice per row.
func (s *Sheet) Values() [][]string {
	out := make([][]string, len(s.rows))
	for r := range s.rows {
		out[r] = make([]string, s.cols)
		for c := 0; c < s.cols; c++ {
			out[r][c] = s.Cell(r, c).String()
		}
	}
	return out
}

// BlankHeaders counts empty header cells.
func (s *Sheet) BlankHeaders() int {
	n := 0
	for _, h := range s.Header() {
		if h == "" {
			n++
		}
	}
	return n
}
