package xlaction

import (
	"fmt"
	"strings"
)

// DescribePlan returns a human-readable listing of the plan's steps and
// their effective parameters, defaults included.
func DescribePlan(plan Plan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Plan: %d step(s)\n", len(plan))
	for i, step := range plan {
		fmt.Fprintf(&b, "%d. %s%s\n", i+1, step.Type(), describeActionAttrs(step.Action))
		if step.Description != "" {
			fmt.Fprintf(&b, "   %s\n", step.Description)
		}
	}
	return b.String()
}

// describeActionAttrs returns a string of key action parameters for display.
func describeActionAttrs(a Action) string {
	var parts []string
	sheet := func(name string) {
		if name != "" {
			parts = append(parts, fmt.Sprintf("sheet=%q", name))
		}
	}
	switch c := a.(type) {
	case TrimClean:
		sheet(c.Sheet)
	case RemoveDuplicates:
		sheet(c.Sheet)
	case SplitColumn:
		sheet(c.Sheet)
		parts = append(parts, fmt.Sprintf("source_col=%q", c.SourceCol))
		parts = append(parts, fmt.Sprintf("into=%q", strings.Join(c.into(), ",")))
		parts = append(parts, fmt.Sprintf("delimiter=%q", c.delimiter()))
	case CreatePivot:
		sheet(c.Sheet)
		parts = append(parts, fmt.Sprintf("rows=%q", strings.Join(c.Rows, ",")))
		values := make([]string, len(c.Values))
		for i, v := range c.Values {
			values[i] = v.Field + ":" + v.aggregation()
		}
		parts = append(parts, fmt.Sprintf("values=%q", strings.Join(values, ",")))
		parts = append(parts, fmt.Sprintf("destination=%q", c.destination()))
	case StandardizePhone:
		sheet(c.Sheet)
		parts = append(parts, fmt.Sprintf("phone_col=%q", c.column()))
		parts = append(parts, fmt.Sprintf("country_code=%q", c.countryCode()))
	case ConvertDates:
		sheet(c.Sheet)
		parts = append(parts, fmt.Sprintf("date_col=%q", c.column()))
	case AddCalculatedColumn:
		sheet(c.Sheet)
		parts = append(parts, fmt.Sprintf("column_name=%q", c.columnName()))
		parts = append(parts, fmt.Sprintf("formula=%q", c.Formula))
	case UnknownAction:
		parts = append(parts, "(unknown)")
	}
	if len(parts) == 0 {
		return ""
	}
	return " " + strings.Join(parts, " ")
}
