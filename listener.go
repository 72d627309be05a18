package xlaction

// ActionListener is notified before and after each plan step.
// Implement this interface to audit, meter or veto individual steps.
type ActionListener interface {
	// BeforeAction is called before the step at index is applied.
	// Return false to skip the step; it is then reported as an error.
	BeforeAction(index int, step Step, wb *Workbook) bool

	// AfterAction is called after the step has been applied. err is nil on success.
	AfterAction(index int, step Step, wb *Workbook, err error)
}

// ListenerFuncs adapts plain functions to ActionListener. Nil fields are ignored.
type ListenerFuncs struct {
	Before func(index int, step Step, wb *Workbook) bool
	After  func(index int, step Step, wb *Workbook, err error)
}

func (l ListenerFuncs) BeforeAction(index int, step Step, wb *Workbook) bool {
	if l.Before == nil {
		return true
	}
	return l.Before(index, step, wb)
}

func (l ListenerFuncs) AfterAction(index int, step Step, wb *Workbook, err error) {
	if l.After != nil {
		l.After(index, step, wb, err)
	}
}
