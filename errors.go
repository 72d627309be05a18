package xlaction

import (
	"errors"
	"fmt"
)

// ErrColumnNotFound indicates a named header is absent from a sheet.
var ErrColumnNotFound = errors.New("column not found")

// ErrSheetNotFound indicates a named sheet is absent from a workbook.
var ErrSheetNotFound = errors.New("sheet not found")

// ErrUnknownAction indicates a plan references an action type the executor does not know.
var ErrUnknownAction = errors.New("unknown action type")

// ErrInvalidParams indicates an action's parameters cannot be applied.
var ErrInvalidParams = errors.New("invalid action parameters")

// ColumnNotFoundError reports which header lookup failed.
type ColumnNotFoundError struct {
	Sheet  string
	Column string
}

func (e *ColumnNotFoundError) Error() string {
	return fmt.Sprintf("Column '%s' not found", e.Column)
}

func (e *ColumnNotFoundError) Unwrap() error {
	return ErrColumnNotFound
}

// UnknownActionError carries the unrecognized action type.
type UnknownActionError struct {
	Type string
}

func (e *UnknownActionError) Error() string {
	return fmt.Sprintf("Unknown action type: %s", e.Type)
}

func (e *UnknownActionError) Unwrap() error {
	return ErrUnknownAction
}

func invalidParams(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidParams, fmt.Sprintf(format, args...))
}
