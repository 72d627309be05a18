package xlaction

import (
	"fmt"
	"slices"
	"strings"
)

// Severity indicates the severity of a validation issue.
type Severity int

const (
	SeverityError   Severity = iota // Step will fail at runtime
	SeverityWarning                 // Step may not do what was intended
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "WARN"
	}
	return "ERROR"
}

// MarshalText encodes the severity as "ERROR" or "WARN".
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ValidationIssue represents a single problem found in a plan.
type ValidationIssue struct {
	Severity Severity `json:"severity"`
	Step     int      `json:"step"` // 0-based index into the plan
	Action   string   `json:"action"`
	Message  string   `json:"message"`
}

// String formats the issue as "[ERROR] step 2 (split_column): message".
func (v ValidationIssue) String() string {
	return fmt.Sprintf("[%s] step %d (%s): %s", v.Severity, v.Step+1, v.Action, v.Message)
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []ValidationIssue) bool {
	for _, is := range issues {
		if is.Severity == SeverityError {
			return true
		}
	}
	return false
}

// planShape tracks sheet order and headers while a plan is simulated.
type planShape struct {
	names   []string
	headers map[string][]string
}

func newPlanShape(wb *Workbook) *planShape {
	ps := &planShape{headers: make(map[string][]string)}
	for _, s := range wb.Sheets() {
		ps.names = append(ps.names, s.Name())
		ps.headers[s.Name()] = s.Header()
	}
	return ps
}

func (ps *planShape) sheet(name string) (string, bool) {
	if name == "" {
		if len(ps.names) == 0 {
			return "", false
		}
		return ps.names[0], true
	}
	_, ok := ps.headers[name]
	return name, ok
}

func (ps *planShape) hasColumn(sheet, column string) bool {
	return slices.Contains(ps.headers[sheet], column)
}

func (ps *planShape) addColumns(sheet string, names ...string) {
	ps.headers[sheet] = append(ps.headers[sheet], names...)
}

func (ps *planShape) addSheet(name string, headers []string) {
	ps.names = slices.DeleteFunc(ps.names, func(n string) bool { return n == name })
	ps.names = append(ps.names, name)
	ps.headers[name] = headers
}

// ValidatePlan checks a plan against the workbook without modifying it.
// Headers added by earlier steps (split and calculated columns, pivot
// sheets) are visible to later steps.
func ValidatePlan(wb *Workbook, plan Plan) []ValidationIssue {
	ps := newPlanShape(wb)
	var issues []ValidationIssue

	for i, step := range plan {
		report := func(sev Severity, format string, args ...any) {
			issues = append(issues, ValidationIssue{
				Severity: sev,
				Step:     i,
				Action:   step.Type(),
				Message:  fmt.Sprintf(format, args...),
			})
		}
		sheetOf := func(name string) (string, bool) {
			s, ok := ps.sheet(name)
			if !ok {
				report(SeverityError, "sheet %q not found", name)
			}
			return s, ok
		}
		needColumn := func(sheet, column string) {
			if !ps.hasColumn(sheet, column) {
				report(SeverityError, "column %q not found in sheet %q", column, sheet)
			}
		}

		switch a := step.Action.(type) {
		case nil:
			report(SeverityError, "step has no action")
		case UnknownAction:
			report(SeverityWarning, "unknown action type %q will be skipped", a.Type)
		case TrimClean:
			sheetOf(a.Sheet)
		case RemoveDuplicates:
			sheetOf(a.Sheet)
		case SplitColumn:
			if s, ok := sheetOf(a.Sheet); ok {
				needColumn(s, a.SourceCol)
				ps.addColumns(s, a.into()...)
			}
		case CreatePivot:
			if len(a.Rows) == 0 || len(a.Values) == 0 {
				report(SeverityWarning, "pivot has no grouping or value fields and will do nothing")
				continue
			}
			s, ok := sheetOf(a.Sheet)
			if !ok {
				continue
			}
			for _, r := range a.Rows {
				needColumn(s, r)
			}
			for _, v := range a.Values {
				needColumn(s, v.Field)
				if !isAggregation(v.aggregation()) {
					report(SeverityError, "unsupported aggregation %q (want one of %s)", v.Agg, strings.Join(Aggregations, ", "))
				}
			}
			ps.addSheet(a.destination(), append([]string{strings.Join(a.Rows, KeySeparator)}, a.valueHeaders()...))
		case StandardizePhone:
			if s, ok := sheetOf(a.Sheet); ok {
				needColumn(s, a.column())
			}
		case ConvertDates:
			if s, ok := sheetOf(a.Sheet); ok {
				needColumn(s, a.column())
			}
		case AddCalculatedColumn:
			if a.Formula == "" {
				report(SeverityError, "formula template is required")
			} else if !strings.Contains(a.Formula, RowPlaceholder) {
				report(SeverityWarning, "formula %q has no %s placeholder; every row gets the same text", a.Formula, RowPlaceholder)
			}
			if s, ok := sheetOf(a.Sheet); ok {
				ps.addColumns(s, a.columnName())
			}
		}
	}
	return issues
}
