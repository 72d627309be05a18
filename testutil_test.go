package xlaction

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// bookOf builds an in-memory workbook with a single sheet named "Data".
func bookOf(rows ...[]any) *Workbook {
	return NewWorkbook(NewSheetFromValues("Data", rows))
}

// sheetValues returns the text grid of the named sheet.
func sheetValues(t *testing.T, wb *Workbook, name string) [][]string {
	t.Helper()
	s, err := wb.Sheet(name)
	require.NoError(t, err)
	return s.Values()
}

// writeFixture saves rows into Sheet1 of a new xlsx file and returns its path.
func writeFixture(t *testing.T, rows [][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for r, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, r+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	path := filepath.Join(t.TempDir(), "fixture.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

// reopen saves wb and loads the result again.
func reopen(t *testing.T, wb *Workbook) *Workbook {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roundtrip.xlsx")
	require.NoError(t, wb.SaveAs(path))
	out, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { out.Close() })
	return out
}
