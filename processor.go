package xlaction

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Result is the aggregate outcome of applying a plan.
type Result struct {
	Success          bool     `json:"success" yaml:"success"`
	ActionsCompleted int      `json:"actions_completed" yaml:"actions_completed"`
	Changes          []string `json:"changes" yaml:"changes"`
	Errors           []string `json:"errors" yaml:"errors"`
}

// Processor applies plans to one workbook and keeps its change log.
// A Processor is not safe for concurrent use.
type Processor struct {
	wb   *Workbook
	log  ChangeLog
	opts *Options
}

// NewProcessor creates a Processor for wb.
func NewProcessor(wb *Workbook, opts ...Option) *Processor {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return &Processor{wb: wb, opts: o}
}

// Workbook returns the workbook being processed.
func (p *Processor) Workbook() *Workbook { return p.wb }

// ChangeLog returns the entries appended so far.
func (p *Processor) ChangeLog() []string { return p.log.Entries() }

// DiffSummary summarizes every change applied by this processor.
func (p *Processor) DiffSummary() DiffSummary { return p.log.Summarize(p.wb) }

// Execute applies the plan in order. A failing step is recorded and the
// remaining steps still run; earlier changes are kept. Every step ends up
// either completed or in Errors.
//
// Unknown action types are recorded as errors but do not clear Success.
func (p *Processor) Execute(plan Plan) Result {
	res := Result{Success: true, Changes: []string{}, Errors: []string{}}
	logger := p.opts.logger

	for i, step := range plan {
		typ := step.Type()

		if !p.before(i, step) {
			res.Errors = append(res.Errors, fmt.Sprintf("Skipped %s", typ))
			res.Success = false
			logger.Warn("Step skipped", zap.Int("index", i), zap.String("action", typ))
			continue
		}

		err := p.apply(step)
		p.after(i, step, err)

		var unknown *UnknownActionError
		switch {
		case err == nil:
			res.ActionsCompleted++
			desc := step.Description
			if desc == "" {
				desc = typ
			}
			res.Changes = append(res.Changes, desc)
			logger.Debug("Step applied", zap.Int("index", i), zap.String("action", typ))
		case errors.As(err, &unknown):
			res.Errors = append(res.Errors, err.Error())
			logger.Warn("Unknown step type", zap.Int("index", i), zap.String("action", typ))
		default:
			res.Errors = append(res.Errors, fmt.Sprintf("Error in %s: %s", typ, err))
			res.Success = false
			logger.Warn("Step failed", zap.Int("index", i), zap.String("action", typ), zap.Error(err))
		}
	}
	return res
}

// apply runs one step, turning a panic inside a transformation into an error.
func (p *Processor) apply(step Step) (err error) {
	if step.Action == nil {
		return invalidParams("step has no action")
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	return step.Action.Apply(p.wb, &p.log)
}

func (p *Processor) before(i int, step Step) bool {
	for _, l := range p.opts.listeners {
		if !l.BeforeAction(i, step, p.wb) {
			return false
		}
	}
	return true
}

func (p *Processor) after(i int, step Step, err error) {
	for _, l := range p.opts.listeners {
		l.AfterAction(i, step, p.wb, err)
	}
}

// Execute applies plan to wb with a fresh Processor and returns the result
// together with the diff summary.
func Execute(wb *Workbook, plan Plan, opts ...Option) (Result, DiffSummary) {
	p := NewProcessor(wb, opts...)
	res := p.Execute(plan)
	return res, p.DiffSummary()
}
