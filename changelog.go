package xlaction

import "fmt"

// ChangeLog is an append-only record of applied transformations.
type ChangeLog struct {
	entries []string
}

// Add appends one formatted entry.
func (l *ChangeLog) Add(format string, args ...any) {
	l.entries = append(l.entries, fmt.Sprintf(format, args...))
}

// Entries returns a copy of the entries in the order they were added.
func (l *ChangeLog) Entries() []string {
	return append([]string{}, l.entries...)
}

// Len returns the number of entries.
func (l *ChangeLog) Len() int { return len(l.entries) }

// DiffSummary is the end-of-session view of a change log.
type DiffSummary struct {
	Changes      []string `json:"changes" yaml:"changes"`
	Sheets       []string `json:"sheets" yaml:"sheets"`
	TotalChanges int      `json:"total_changes" yaml:"total_changes"`
}

// Summarize builds a DiffSummary for the workbook.
func (l *ChangeLog) Summarize(wb *Workbook) DiffSummary {
	return DiffSummary{
		Changes:      l.Entries(),
		Sheets:       wb.SheetNames(),
		TotalChanges: l.Len(),
	}
}
