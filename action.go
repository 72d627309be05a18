package xlaction

// ActionKind names a transformation.
type ActionKind string

const (
	KindTrimClean           ActionKind = "trim_clean"
	KindRemoveDuplicates    ActionKind = "remove_duplicates"
	KindSplitColumn         ActionKind = "split_column"
	KindCreatePivot         ActionKind = "create_pivot"
	KindStandardizePhone    ActionKind = "standardize_phone"
	KindConvertDates        ActionKind = "convert_dates"
	KindAddCalculatedColumn ActionKind = "add_calculated_column"
)

// Kinds lists every known action kind in a stable order.
var Kinds = []ActionKind{
	KindTrimClean,
	KindRemoveDuplicates,
	KindSplitColumn,
	KindCreatePivot,
	KindStandardizePhone,
	KindConvertDates,
	KindAddCalculatedColumn,
}

// Action is one typed transformation. Each kind has its own struct with
// strongly typed parameters; zero-valued parameters take the documented
// defaults when applied.
type Action interface {
	Kind() ActionKind
	// Apply mutates the workbook and appends exactly one entry to log on success.
	Apply(wb *Workbook, log *ChangeLog) error
}

// Step is an Action plus the human-readable description reported when it
// completes.
type Step struct {
	Description string
	Action      Action
}

// Type returns the step's action type name.
func (s Step) Type() string {
	if s.Action == nil {
		return ""
	}
	return string(s.Action.Kind())
}

// Plan is an ordered sequence of steps. Order defines execution order.
type Plan []Step

// Types returns the type name of every step.
func (p Plan) Types() []string {
	types := make([]string, len(p))
	for i, s := range p {
		types[i] = s.Type()
	}
	return types
}

// Has reports whether the plan contains a step of the given kind.
func (p Plan) Has(kind ActionKind) bool {
	for _, s := range p {
		if s.Action != nil && s.Action.Kind() == kind {
			return true
		}
	}
	return false
}

// UnknownAction stands in for a step whose type is not recognized. It
// keeps the raw parameters so the plan can be echoed back unchanged.
type UnknownAction struct {
	Type   string
	Params map[string]any
}

func (a UnknownAction) Kind() ActionKind { return ActionKind(a.Type) }

func (a UnknownAction) Apply(*Workbook, *ChangeLog) error {
	return &UnknownActionError{Type: a.Type}
}

// DefaultDescription returns the description used when a step has none.
func DefaultDescription(kind ActionKind) string {
	switch kind {
	case KindTrimClean:
		return "Clean and trim text fields"
	case KindRemoveDuplicates:
		return "Remove duplicate rows"
	case KindSplitColumn:
		return "Split column into multiple columns"
	case KindCreatePivot:
		return "Create pivot table summary"
	case KindStandardizePhone:
		return "Standardize phone number format"
	case KindConvertDates:
		return "Convert and standardize dates"
	case KindAddCalculatedColumn:
		return "Add calculated column"
	default:
		return string(kind)
	}
}

// sheetFor resolves the sheet an action targets.
func sheetFor(wb *Workbook, name string) (*Sheet, error) {
	return wb.Sheet(name)
}

// columnFor resolves the sheet and the index of a named header.
func columnFor(wb *Workbook, sheet, column string) (*Sheet, int, error) {
	s, err := sheetFor(wb, sheet)
	if err != nil {
		return nil, -1, err
	}
	col, err := s.ColumnIndex(column)
	if err != nil {
		return nil, -1, err
	}
	return s, col, nil
}
