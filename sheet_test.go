package xlaction

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCellOf(t *testing.T) {
	assert.Equal(t, CellBlank, CellOf(nil).Type)
	assert.Equal(t, CellBlank, CellOf("").Type)
	assert.Equal(t, TextCell("x"), CellOf("x"))
	assert.Equal(t, NumberCell(3), CellOf(3))
	assert.Equal(t, BoolCell(true), CellOf(true))
	assert.Equal(t, CellDate, CellOf(time.Now()).Type)
}

func TestCell_String(t *testing.T) {
	assert.Equal(t, "", Cell{}.String())
	assert.Equal(t, "2.5", NumberCell(2.5).String())
	assert.Equal(t, "100", NumberCell(100).String())
	assert.Equal(t, "TRUE", BoolCell(true).String())
	assert.Equal(t, "2024-03-04", DateCell(time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), "").String())
	assert.Equal(t, "2024-03-04 10:30:00", DateCell(time.Date(2024, 3, 4, 10, 30, 0, 0, time.UTC), "").String())
}

func TestCell_Number(t *testing.T) {
	v, ok := NumberCell(4).Number()
	assert.True(t, ok)
	assert.Equal(t, 4.0, v)

	v, ok = TextCell(" 12.5 ").Number()
	assert.True(t, ok)
	assert.Equal(t, 12.5, v)

	_, ok = TextCell("n/a").Number()
	assert.False(t, ok)
	_, ok = BoolCell(true).Number()
	assert.False(t, ok)

	for _, text := range []string{"NaN", "inf", "-Inf", "Infinity"} {
		_, ok = TextCell(text).Number()
		assert.False(t, ok, text)
	}
}

func TestCell_KeyDistinguishesTypes(t *testing.T) {
	assert.NotEqual(t, TextCell("1").key(), NumberCell(1).key())
	assert.Equal(t, Cell{}.key(), Cell{Type: CellText, Value: ""}.key())
}

func TestSheet_SetCellGrows(t *testing.T) {
	s := NewSheet("S")
	s.SetCell(2, 3, TextCell("x"))
	assert.Equal(t, 3, s.Rows())
	assert.Equal(t, 4, s.Cols())
	assert.Equal(t, 2, s.DataRows())
	assert.True(t, s.Cell(0, 0).IsBlank())
	assert.True(t, s.Cell(10, 10).IsBlank())

	s.SetCell(9, 9, Cell{})
	assert.Equal(t, 3, s.Rows(), "blank write outside the extent is ignored")
}

func TestSheet_ColumnIndex(t *testing.T) {
	s := NewSheetFromValues("S", [][]any{{"Name", "Phone", "Name"}})
	col, err := s.ColumnIndex("Name")
	require.NoError(t, err)
	assert.Equal(t, 0, col)

	_, err = s.ColumnIndex("Email")
	assert.True(t, errors.Is(err, ErrColumnNotFound))
	assert.EqualError(t, err, "Column 'Email' not found")
}

func TestSheet_RowAndTruncate(t *testing.T) {
	s := NewSheetFromValues("S", [][]any{
		{"A", "B", "C"},
		{1},
		{1, 2, 3},
	})
	assert.Len(t, s.Row(1), 3, "rows are padded to the sheet width")

	s.Truncate(2)
	assert.Equal(t, 2, s.Rows())
	assert.Equal(t, 3, s.Cols())

	s.SetRow(1, []Cell{TextCell("x")})
	assert.Equal(t, []string{"x", "", ""}, s.Values()[1])
}

func TestSheet_BlankHeaders(t *testing.T) {
	s := NewSheetFromValues("S", [][]any{{"A", nil, "C", ""}, {1, 2, 3, 4}})
	assert.Equal(t, 2, s.BlankHeaders())
}

func TestWorkbook_SheetLookup(t *testing.T) {
	wb := NewWorkbook(NewSheet("One"), NewSheet("Two"))
	defer wb.Close()

	s, err := wb.Sheet("")
	require.NoError(t, err)
	assert.Equal(t, "One", s.Name())

	_, err = wb.Sheet("Three")
	assert.ErrorIs(t, err, ErrSheetNotFound)

	wb.AddSheet(NewSheet("One"))
	assert.Equal(t, []string{"Two", "One"}, wb.SheetNames(), "replaced sheet moves to the end")

	require.NoError(t, wb.DeleteSheet("Two"))
	assert.Equal(t, []string{"One"}, wb.SheetNames())
	assert.ErrorIs(t, wb.DeleteSheet("Two"), ErrSheetNotFound)
}
