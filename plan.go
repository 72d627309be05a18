package xlaction

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// NewStep wraps an action in a step carrying the kind's default description.
func NewStep(a Action) Step {
	return Step{Description: DefaultDescription(a.Kind()), Action: a}
}

// decodeFunc fills a typed action from its encoded params. unmarshal
// decodes the params into the value it is given.
type decodeFunc func(unmarshal func(any) error) (Action, error)

func decodeAs[T Action]() decodeFunc {
	return func(unmarshal func(any) error) (Action, error) {
		var a T
		if err := unmarshal(&a); err != nil {
			return nil, err
		}
		return a, nil
	}
}

var decoders = map[ActionKind]decodeFunc{
	KindTrimClean:           decodeAs[TrimClean](),
	KindRemoveDuplicates:    decodeAs[RemoveDuplicates](),
	KindSplitColumn:         decodeAs[SplitColumn](),
	KindCreatePivot:         decodeAs[CreatePivot](),
	KindStandardizePhone:    decodeAs[StandardizePhone](),
	KindConvertDates:        decodeAs[ConvertDates](),
	KindAddCalculatedColumn: decodeAs[AddCalculatedColumn](),
}

// IsKnownKind reports whether kind names one of the built-in transformations.
func IsKnownKind(kind string) bool {
	_, ok := decoders[ActionKind(kind)]
	return ok
}

// stepDoc is the encoded shape of a step.
type stepDoc struct {
	Type        string `json:"type" yaml:"type"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Params      any    `json:"params" yaml:"params"`
}

func (s Step) doc() (stepDoc, error) {
	if s.Action == nil {
		return stepDoc{}, errors.New("step has no action")
	}
	var params any = s.Action
	if u, ok := s.Action.(UnknownAction); ok {
		params = u.Params
		if u.Params == nil {
			params = map[string]any{}
		}
	}
	return stepDoc{Type: s.Type(), Description: s.Description, Params: params}, nil
}

// MarshalJSON encodes the step as {"type", "description", "params"}.
func (s Step) MarshalJSON() ([]byte, error) {
	d, err := s.doc()
	if err != nil {
		return nil, err
	}
	return json.Marshal(d)
}

// UnmarshalJSON decodes a step. Unknown types become UnknownAction; unknown
// parameter names of a known type are an error.
func (s *Step) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type        string          `json:"type"`
		Description string          `json:"description"`
		Params      json.RawMessage `json:"params"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	empty := len(raw.Params) == 0 || string(raw.Params) == "null"
	action, err := decodeStep(raw.Type, func(v any) error {
		if empty {
			return nil
		}
		dec := json.NewDecoder(bytes.NewReader(raw.Params))
		if _, ok := v.(*map[string]any); !ok {
			dec.DisallowUnknownFields()
		}
		return dec.Decode(v)
	})
	if err != nil {
		return err
	}
	s.Description = raw.Description
	s.Action = action
	return nil
}

// MarshalYAML encodes the step with the same shape as JSON.
func (s Step) MarshalYAML() (any, error) {
	return s.doc()
}

// UnmarshalYAML decodes a step from a YAML mapping.
func (s *Step) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Type        string    `yaml:"type"`
		Description string    `yaml:"description"`
		Params      yaml.Node `yaml:"params"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	action, err := decodeStep(raw.Type, func(v any) error {
		if raw.Params.Kind == 0 || raw.Params.Tag == "!!null" {
			return nil
		}
		if _, ok := v.(*map[string]any); ok {
			return raw.Params.Decode(v)
		}
		return decodeYAMLStrict(&raw.Params, v)
	})
	if err != nil {
		return err
	}
	s.Description = raw.Description
	s.Action = action
	return nil
}

// decodeYAMLStrict decodes node into v, rejecting unknown keys.
func decodeYAMLStrict(node *yaml.Node, v any) error {
	b, err := yaml.Marshal(node)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	return dec.Decode(v)
}

func decodeStep(typ string, unmarshal func(any) error) (Action, error) {
	if typ == "" {
		return nil, errors.New("step type is required")
	}
	decode, ok := decoders[ActionKind(typ)]
	if !ok {
		var params map[string]any
		if err := unmarshal(&params); err != nil {
			return nil, fmt.Errorf("decode params of %s: %w", typ, err)
		}
		return UnknownAction{Type: typ, Params: params}, nil
	}
	a, err := decode(unmarshal)
	if err != nil {
		return nil, fmt.Errorf("decode params of %s: %w", typ, err)
	}
	return a, nil
}

// MarshalJSON encodes a nil plan as an empty array.
func (p Plan) MarshalJSON() ([]byte, error) {
	if p == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Step(p))
}

// ParsePlanJSON decodes a JSON array of steps.
func ParsePlanJSON(data []byte) (Plan, error) {
	var p Plan
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse plan: %w", err)
	}
	return p, nil
}

// ParsePlanYAML decodes a YAML sequence of steps. A mapping with a "steps"
// key is accepted as well.
func ParsePlanYAML(data []byte) (Plan, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse plan: %w", err)
	}
	if root.Kind == 0 {
		return nil, nil
	}
	node := &root
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		node = node.Content[0]
	}
	if node.Kind == yaml.MappingNode {
		var wrapped struct {
			Steps Plan `yaml:"steps"`
		}
		if err := node.Decode(&wrapped); err != nil {
			return nil, fmt.Errorf("parse plan: %w", err)
		}
		return wrapped.Steps, nil
	}
	var p Plan
	if err := node.Decode(&p); err != nil {
		return nil, fmt.Errorf("parse plan: %w", err)
	}
	return p, nil
}

// LoadPlanFile reads a plan from a .json, .yaml/.yml or script file. Any
// other extension is read as script notation.
func LoadPlanFile(path string) (Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return ParsePlanJSON(data)
	case ".yaml", ".yml":
		return ParsePlanYAML(data)
	default:
		return ParseScript(string(data))
	}
}
