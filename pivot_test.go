package xlaction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func salesBook() *Workbook {
	return bookOf(
		[]any{"Region", "Rep", "Amount"},
		[]any{"North", "Ann", 10},
		[]any{"South", "Bob", 5},
		[]any{"North", "Cid", 7.5},
		[]any{"South", "Bob", "n/a"},
		[]any{"East", "Dee", nil},
	)
}

func TestCreatePivot_Sum(t *testing.T) {
	wb := salesBook()
	defer wb.Close()

	var log ChangeLog
	err := CreatePivot{
		Rows:   []string{"Region"},
		Values: []PivotValue{{Field: "Amount", Agg: "SUM"}},
	}.Apply(wb, &log)
	require.NoError(t, err)

	assert.Equal(t, []string{"Data", "Pivot_Summary"}, wb.SheetNames())
	assert.Equal(t, [][]string{
		{"Region", "Amount"},
		{"East", "0"},
		{"North", "17.5"},
		{"South", "5"},
	}, sheetValues(t, wb, "Pivot_Summary"))
	assert.Equal(t, []string{"Created pivot table in sheet: Pivot_Summary"}, log.Entries())
}

func TestCreatePivot_MultipleFieldsAndAggregations(t *testing.T) {
	wb := salesBook()
	defer wb.Close()

	var log ChangeLog
	err := CreatePivot{
		Rows: []string{"Region", "Rep"},
		Values: []PivotValue{
			{Field: "Amount", Agg: "count"},
			{Field: "Amount", Agg: "max"},
		},
		Destination: "By Rep",
	}.Apply(wb, &log)
	require.NoError(t, err)

	assert.Equal(t, [][]string{
		{"Region / Rep", "Amount (count)", "Amount (max)"},
		{"East / Dee", "0", ""},
		{"North / Ann", "1", "10"},
		{"North / Cid", "1", "7.5"},
		{"South / Bob", "2", "5"},
	}, sheetValues(t, wb, "By Rep"))
}

func TestCreatePivot_NumericKeysSortByValue(t *testing.T) {
	wb := bookOf(
		[]any{"Size", "Qty"},
		[]any{9, 1},
		[]any{10, 2},
		[]any{2, 3},
		[]any{10, 4},
	)
	defer wb.Close()

	var log ChangeLog
	require.NoError(t, CreatePivot{Rows: []string{"Size"}, Values: []PivotValue{{Field: "Qty"}}}.Apply(wb, &log))
	assert.Equal(t, [][]string{
		{"Size", "Qty"},
		{"2", "3"},
		{"9", "1"},
		{"10", "6"},
	}, sheetValues(t, wb, "Pivot_Summary"))

	s, err := wb.Sheet("Pivot_Summary")
	require.NoError(t, err)
	assert.Equal(t, CellNumber, s.Cell(1, 0).Type, "single-field keys keep their type")
}

func TestCreatePivot_SeparatorInValuesDoesNotMergeGroups(t *testing.T) {
	wb := bookOf(
		[]any{"X", "Y", "Amount"},
		[]any{"A / B", "C", 1},
		[]any{"A", "B / C", 2},
	)
	defer wb.Close()

	var log ChangeLog
	require.NoError(t, CreatePivot{
		Rows:   []string{"X", "Y"},
		Values: []PivotValue{{Field: "Amount"}},
	}.Apply(wb, &log))
	assert.Equal(t, [][]string{
		{"X / Y", "Amount"},
		{"A / B / C", "2"},
		{"A / B / C", "1"},
	}, sheetValues(t, wb, "Pivot_Summary"))
}

func TestCompareCells(t *testing.T) {
	assert.Negative(t, compareCells(Cell{}, NumberCell(-5)))
	assert.Negative(t, compareCells(NumberCell(2), NumberCell(10)))
	assert.Negative(t, compareCells(NumberCell(100), TextCell("1")))
	assert.Negative(t, compareCells(BoolCell(false), BoolCell(true)))
	assert.Zero(t, compareCells(TextCell("b"), TextCell("b")))
	assert.Positive(t, compareCells(TextCell("b"), TextCell("a")))
}

func TestCreatePivot_ReplacesDestination(t *testing.T) {
	wb := salesBook()
	defer wb.Close()
	wb.AddSheet(NewSheetFromValues("Pivot_Summary", [][]any{{"stale"}}))

	var log ChangeLog
	p := CreatePivot{Rows: []string{"Region"}, Values: []PivotValue{{Field: "Amount"}}}
	require.NoError(t, p.Apply(wb, &log))
	require.NoError(t, p.Apply(wb, &log))
	assert.Equal(t, []string{"Data", "Pivot_Summary"}, wb.SheetNames())
	assert.Equal(t, "Region", sheetValues(t, wb, "Pivot_Summary")[0][0])
}

func TestCreatePivot_NoOpWithoutFields(t *testing.T) {
	wb := salesBook()
	defer wb.Close()

	var log ChangeLog
	require.NoError(t, CreatePivot{Values: []PivotValue{{Field: "Amount"}}}.Apply(wb, &log))
	require.NoError(t, CreatePivot{Rows: []string{"Region"}}.Apply(wb, &log))
	assert.Equal(t, []string{"Data"}, wb.SheetNames())
	assert.Zero(t, log.Len())
}

func TestCreatePivot_Errors(t *testing.T) {
	wb := salesBook()
	defer wb.Close()
	var log ChangeLog

	err := CreatePivot{Rows: []string{"Country"}, Values: []PivotValue{{Field: "Amount"}}}.Apply(wb, &log)
	assert.ErrorIs(t, err, ErrColumnNotFound)

	err = CreatePivot{Rows: []string{"Region"}, Values: []PivotValue{{Field: "Amount", Agg: "median"}}}.Apply(wb, &log)
	assert.ErrorIs(t, err, ErrInvalidParams)

	assert.Equal(t, []string{"Data"}, wb.SheetNames())
}

func TestAggregate(t *testing.T) {
	cells := []Cell{NumberCell(2), TextCell("4"), TextCell("x"), {}, NumberCell(9)}
	tests := []struct {
		agg  string
		want string
	}{
		{"sum", "15"},
		{"mean", "5"},
		{"count", "4"},
		{"min", "2"},
		{"max", "9"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Aggregate(tt.agg, cells).String(), tt.agg)
	}

	notFinite := []Cell{NumberCell(10), TextCell("NaN"), TextCell("inf"), TextCell("-Infinity")}
	assert.Equal(t, "10", Aggregate("sum", notFinite).String())
	assert.Equal(t, "10", Aggregate("max", notFinite).String())
	assert.Equal(t, "4", Aggregate("count", notFinite).String())

	empty := []Cell{TextCell("x")}
	assert.Equal(t, "0", Aggregate("sum", empty).String())
	assert.True(t, Aggregate("mean", empty).IsBlank())
	assert.True(t, Aggregate("min", nil).IsBlank())
}
