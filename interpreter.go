package xlaction

import (
	"fmt"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Interpreter turns a free-text request into a plan. An empty plan means
// nothing was understood; interpreters never fail.
type Interpreter interface {
	Interpret(text string) Plan
}

// InterpreterFunc adapts a function to Interpreter.
type InterpreterFunc func(text string) Plan

func (f InterpreterFunc) Interpret(text string) Plan { return f(text) }

// Rule fires when Condition evaluates to true. Condition is an expr
// expression over the variable request, which holds the lower-cased text.
type Rule struct {
	Name      string
	Condition string
	Step      func() Step
}

// DefaultRules are tested in order; every matching rule adds its step.
var DefaultRules = []Rule{
	{
		Name:      "duplicates",
		Condition: `request contains "remove duplicates" or request contains "duplicates"`,
		Step: func() Step {
			return Step{Description: "Remove duplicate rows", Action: RemoveDuplicates{}}
		},
	},
	{
		Name:      "clean",
		Condition: `request contains "trim" or request contains "clean"`,
		Step: func() Step {
			return Step{Description: "Clean and trim text fields", Action: TrimClean{ApplyToAllText: true}}
		},
	},
	{
		Name:      "split-name",
		Condition: `request contains "split" and request contains "name"`,
		Step: func() Step {
			return Step{
				Description: "Split Full Name into First and Last Name",
				Action: SplitColumn{
					SourceCol: "Full Name",
					Into:      []string{"First Name", "Last Name"},
					Delimiter: " ",
				},
			}
		},
	},
	{
		Name:      "pivot",
		Condition: `request contains "pivot"`,
		Step: func() Step {
			return Step{
				Description: "Create pivot table summary",
				Action: CreatePivot{
					Rows:        []string{"Region"},
					Values:      []PivotValue{{Field: "Amount", Agg: "SUM"}},
					Destination: "Pivot_Summary",
				},
			}
		},
	},
	{
		Name:      "phone",
		Condition: `request contains "phone" and (request contains "standardize" or request contains "format")`,
		Step: func() Step {
			return Step{
				Description: "Standardize phone number format",
				Action:      StandardizePhone{PhoneCol: "Phone", CountryCode: "234"},
			}
		},
	},
	{
		Name:      "dates",
		Condition: `request contains "date" and (request contains "convert" or request contains "format")`,
		Step: func() Step {
			return Step{Description: "Convert and standardize dates", Action: ConvertDates{DateCol: "Date"}}
		},
	},
}

// KeywordInterpreter matches the request against substring rules. It has
// no notion of negation or overlap: "don't remove duplicates" still fires
// the duplicates rule.
type KeywordInterpreter struct {
	rules []Rule
	cache sync.Map // condition → compiled *vm.Program
}

// NewKeywordInterpreter creates an interpreter for rules, or DefaultRules
// when none are given. Conditions are compiled eagerly so that a malformed
// rule is reported here rather than silently never firing.
func NewKeywordInterpreter(rules ...Rule) (*KeywordInterpreter, error) {
	if len(rules) == 0 {
		rules = DefaultRules
	}
	k := &KeywordInterpreter{rules: rules}
	for _, r := range rules {
		if _, err := k.compile(r.Condition); err != nil {
			return nil, fmt.Errorf("rule %q: %w", r.Name, err)
		}
	}
	return k, nil
}

func (k *KeywordInterpreter) compile(condition string) (*vm.Program, error) {
	if cached, ok := k.cache.Load(condition); ok {
		return cached.(*vm.Program), nil
	}
	program, err := expr.Compile(condition, expr.Env(map[string]any{"request": ""}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile condition %q: %w", condition, err)
	}
	k.cache.Store(condition, program)
	return program, nil
}

// Interpret returns one step per matching rule, in rule order.
func (k *KeywordInterpreter) Interpret(text string) Plan {
	env := map[string]any{"request": strings.ToLower(text)}
	var plan Plan
	for _, r := range k.rules {
		program, err := k.compile(r.Condition)
		if err != nil {
			continue
		}
		out, err := expr.Run(program, env)
		if err != nil {
			continue
		}
		if ok, _ := out.(bool); ok {
			plan = append(plan, r.Step())
		}
	}
	return plan
}

// ScriptInterpreter reads the lines of the request that start with "xl:"
// as script notation. Lines that fail to parse are ignored.
type ScriptInterpreter struct{}

func (ScriptInterpreter) Interpret(text string) Plan {
	var plan Plan
	for _, line := range splitLines(text) {
		if !IsScriptLine(line) {
			continue
		}
		step, err := ParseScriptLine(line)
		if err != nil {
			continue
		}
		plan = append(plan, step)
	}
	return plan
}

// ChainInterpreter asks each interpreter in turn and returns the first
// non-empty plan.
type ChainInterpreter []Interpreter

func (c ChainInterpreter) Interpret(text string) Plan {
	for _, in := range c {
		if plan := in.Interpret(text); len(plan) > 0 {
			return plan
		}
	}
	return nil
}

var defaultKeywords = sync.OnceValue(func() *KeywordInterpreter {
	k, err := NewKeywordInterpreter()
	if err != nil {
		panic(err)
	}
	return k
})

// DefaultInterpreter reads script notation when present and falls back to
// the default keyword rules.
func DefaultInterpreter() Interpreter {
	return ChainInterpreter{ScriptInterpreter{}, defaultKeywords()}
}

// Interpret maps text to a plan with DefaultInterpreter.
func Interpret(text string) Plan {
	return DefaultInterpreter().Interpret(text)
}
