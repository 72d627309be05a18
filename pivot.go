package xlaction

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/montanaflynn/stats"
)

// PivotValue requests one aggregated column of a pivot.
type PivotValue struct {
	Field string `json:"field" yaml:"field"`
	Agg   string `json:"agg,omitempty" yaml:"agg,omitempty"` // sum, mean, count, min, max; default sum
}

func (v PivotValue) aggregation() string {
	if v.Agg == "" {
		return "sum"
	}
	return strings.ToLower(v.Agg)
}

// CreatePivot groups data rows by the Rows fields and writes one aggregated
// column per requested value into a destination sheet.
type CreatePivot struct {
	Sheet       string       `json:"sheet,omitempty" yaml:"sheet,omitempty"`
	Rows        []string     `json:"rows" yaml:"rows"`
	Values      []PivotValue `json:"values" yaml:"values"`
	Destination string       `json:"destination,omitempty" yaml:"destination,omitempty"` // default "Pivot_Summary"
}

func (CreatePivot) Kind() ActionKind { return KindCreatePivot }

func (a CreatePivot) destination() string {
	if a.Destination == "" {
		return "Pivot_Summary"
	}
	return SafeSheetName(a.Destination)
}

// KeySeparator joins multi-field group keys and headers.
const KeySeparator = " / "

// Aggregations lists the supported aggregation names.
var Aggregations = []string{"sum", "mean", "count", "min", "max"}

func isAggregation(name string) bool {
	for _, a := range Aggregations {
		if a == name {
			return true
		}
	}
	return false
}

type pivotGroup struct {
	key    []Cell   // grouping cells of the first row in the group
	values [][]Cell // per requested value, the cells of every row in the group
}

// label renders the group key for the first pivot column. A single grouping
// field keeps its typed value.
func (g *pivotGroup) label() Cell {
	if len(g.key) == 1 {
		c := g.key[0]
		return Cell{Type: c.Type, Value: c.Value, Format: c.Format}
	}
	parts := make([]string, len(g.key))
	for i, c := range g.key {
		parts[i] = c.String()
	}
	return TextCell(strings.Join(parts, KeySeparator))
}

// Apply is a no-op when either Rows or Values is empty. Any existing sheet
// named like the destination is replaced.
func (a CreatePivot) Apply(wb *Workbook, log *ChangeLog) error {
	if len(a.Rows) == 0 || len(a.Values) == 0 {
		return nil
	}
	s, err := sheetFor(wb, a.Sheet)
	if err != nil {
		return err
	}

	groupCols := make([]int, len(a.Rows))
	for i, name := range a.Rows {
		if groupCols[i], err = s.ColumnIndex(name); err != nil {
			return err
		}
	}
	valueCols := make([]int, len(a.Values))
	for i, v := range a.Values {
		if !isAggregation(v.aggregation()) {
			return invalidParams("unsupported aggregation %q for field %q", v.Agg, v.Field)
		}
		if valueCols[i], err = s.ColumnIndex(v.Field); err != nil {
			return err
		}
	}

	groups := make(map[string]*pivotGroup)
	var ordered []*pivotGroup
	for r := 1; r < s.Rows(); r++ {
		tuple := make([]Cell, len(groupCols))
		for i, col := range groupCols {
			tuple[i] = s.Cell(r, col)
		}
		key := rowKey(tuple)
		g, ok := groups[key]
		if !ok {
			g = &pivotGroup{key: tuple, values: make([][]Cell, len(valueCols))}
			groups[key] = g
			ordered = append(ordered, g)
		}
		for i, col := range valueCols {
			g.values[i] = append(g.values[i], s.Cell(r, col))
		}
	}
	slices.SortStableFunc(ordered, func(x, y *pivotGroup) int {
		return compareTuples(x.key, y.key)
	})

	out := NewSheet(a.destination())
	out.SetCell(0, 0, TextCell(strings.Join(a.Rows, KeySeparator)))
	for i, header := range a.valueHeaders() {
		out.SetCell(0, i+1, TextCell(header))
	}
	for r, g := range ordered {
		out.SetCell(r+1, 0, g.label())
		for i, v := range a.Values {
			out.SetCell(r+1, i+1, Aggregate(v.aggregation(), g.values[i]))
		}
	}
	wb.AddSheet(out)

	log.Add("Created pivot table in sheet: %s", out.Name())
	return nil
}

// compareTuples orders group keys field by field.
func compareTuples(a, b []Cell) int {
	for i := range a {
		if c := compareCells(a[i], b[i]); c != 0 {
			return c
		}
	}
	return 0
}

// compareCells orders blanks first, then numbers, dates, booleans and text.
// Numbers and dates compare by value, text lexically.
func compareCells(a, b Cell) int {
	if c := cmp.Compare(sortRank(a), sortRank(b)); c != 0 {
		return c
	}
	switch x := a.Value.(type) {
	case float64:
		y, _ := b.Value.(float64)
		return cmp.Compare(x, y)
	case time.Time:
		y, _ := b.Value.(time.Time)
		return x.Compare(y)
	case bool:
		y, _ := b.Value.(bool)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		default:
			return 1
		}
	}
	return strings.Compare(a.String(), b.String())
}

func sortRank(c Cell) int {
	if c.IsBlank() {
		return 0
	}
	switch c.Value.(type) {
	case float64:
		return 1
	case time.Time:
		return 2
	case bool:
		return 3
	default:
		return 4
	}
}

// valueHeaders names value columns by field, adding the aggregation when a
// field is requested more than once.
func (a CreatePivot) valueHeaders() []string {
	count := make(map[string]int)
	for _, v := range a.Values {
		count[v.Field]++
	}
	headers := make([]string, len(a.Values))
	for i, v := range a.Values {
		headers[i] = v.Field
		if count[v.Field] > 1 {
			headers[i] = v.Field + " (" + v.aggregation() + ")"
		}
	}
	return headers
}

// Aggregate reduces cells with the named aggregation. count counts
// non-blank cells; the numeric aggregations skip cells that are not
// numbers. With no numeric input, sum yields 0 and the others yield blank.
func Aggregate(agg string, cells []Cell) Cell {
	if agg == "count" {
		n := 0
		for _, c := range cells {
			if !c.IsBlank() {
				n++
			}
		}
		return NumberCell(float64(n))
	}

	var data stats.Float64Data
	for _, c := range cells {
		if v, ok := c.Number(); ok {
			data = append(data, v)
		}
	}
	if len(data) == 0 {
		if agg == "sum" {
			return NumberCell(0)
		}
		return Cell{}
	}

	var (
		v   float64
		err error
	)
	switch agg {
	case "sum":
		v, err = stats.Sum(data)
	case "mean":
		v, err = stats.Mean(data)
	case "min":
		v, err = stats.Min(data)
	case "max":
		v, err = stats.Max(data)
	default:
		return Cell{}
	}
	if err != nil {
		return Cell{}
	}
	return NumberCell(v)
}
