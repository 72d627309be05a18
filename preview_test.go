package xlaction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreviewSheet(t *testing.T) {
	wb := salesBook()
	defer wb.Close()

	p, err := PreviewSheet(wb, "", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"Data"}, p.Sheets)
	assert.Equal(t, "Data", p.ActiveSheet)
	assert.Equal(t, []string{"Region", "Rep", "Amount"}, p.Headers)
	assert.Equal(t, [][]string{{"North", "Ann", "10"}, {"South", "Bob", "5"}}, p.Rows)
	assert.Equal(t, 5, p.TotalRows)
	assert.Equal(t, 3, p.TotalColumns)
	assert.Empty(t, p.Issues)
}

func TestPreviewSheet_DefaultsAndIssues(t *testing.T) {
	wb := bookOf([]any{"Name", nil, "Qty"})
	defer wb.Close()

	p, err := PreviewSheet(wb, "Data", 0)
	require.NoError(t, err)
	assert.NotNil(t, p.Rows)
	assert.Empty(t, p.Rows)
	assert.Equal(t, []string{"1 blank column headers"}, p.Issues)

	_, err = PreviewSheet(wb, "Other", 0)
	assert.ErrorIs(t, err, ErrSheetNotFound)
}
