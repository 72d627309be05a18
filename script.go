package xlaction

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const scriptPrefix = "xl:"

// listAttrs hold comma-separated lists in script notation.
var listAttrs = map[string]bool{
	"into": true,
	"rows": true,
}

// attrKeyPattern matches the key= part of an attribute to find the start of each attribute.
var attrKeyPattern = regexp.MustCompile(`(\w+)\s*=\s*`)

// IsScriptLine returns true if the line starts with "xl:".
func IsScriptLine(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), scriptPrefix)
}

// ParseScript parses a plan written one step per line, e.g.
//
//	xl:remove_duplicates()
//	xl:split_column(source_col="Full Name" into="First Name,Last Name" delimiter=" ")
//	xl:create_pivot(rows="Region" values="Amount:sum,Qty:count")
//
// Blank lines and lines starting with # are ignored. The reserved attribute
// description sets the step description.
func ParseScript(script string) (Plan, error) {
	var plan Plan
	for i, line := range splitLines(script) {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		step, err := ParseScriptLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		plan = append(plan, step)
	}
	return plan, nil
}

// splitLines splits text into lines, handling both \n and \r\n.
func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.Split(s, "\n")
}

// ParseScriptLine parses a single line like:
// xl:standardize_phone(phone_col="Mobile" country_code="1")
func ParseScriptLine(line string) (Step, error) {
	line = strings.TrimSpace(line)
	if !IsScriptLine(line) {
		return Step{}, fmt.Errorf("missing %q prefix: %q", scriptPrefix, line)
	}
	parenIdx := strings.Index(line, "(")
	if parenIdx < 0 {
		return Step{}, fmt.Errorf("missing '(' in step: %q", line)
	}
	name := strings.TrimSpace(line[len(scriptPrefix):parenIdx])
	closeIdx := strings.LastIndex(line, ")")
	if closeIdx < parenIdx {
		return Step{}, fmt.Errorf("missing ')' in step: %q", line)
	}
	attrs := parseAttributes(line[parenIdx+1 : closeIdx])

	description := attrs["description"]
	delete(attrs, "description")

	params, err := scriptParams(attrs)
	if err != nil {
		return Step{}, fmt.Errorf("%s: %w", name, err)
	}
	data, err := json.Marshal(map[string]any{
		"type":        name,
		"description": description,
		"params":      params,
	})
	if err != nil {
		return Step{}, err
	}
	var step Step
	if err := json.Unmarshal(data, &step); err != nil {
		return Step{}, err
	}
	if step.Description == "" {
		step.Description = DefaultDescription(step.Action.Kind())
	}
	return step, nil
}

// scriptParams converts attribute strings to the typed shape of the params.
func scriptParams(attrs map[string]string) (map[string]any, error) {
	params := make(map[string]any, len(attrs))
	for k, v := range attrs {
		switch {
		case listAttrs[k]:
			params[k] = splitList(v)
		case k == "values":
			values, err := parsePivotValues(v)
			if err != nil {
				return nil, err
			}
			params[k] = values
		case k == "applyToAllText":
			b, err := strconv.ParseBool(v)
			if err != nil {
				return nil, fmt.Errorf("invalid %s %q: %w", k, v, err)
			}
			params[k] = b
		default:
			params[k] = v
		}
	}
	return params, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parsePivotValues parses "Field:agg,Field" into pivot values.
func parsePivotValues(s string) ([]PivotValue, error) {
	var values []PivotValue
	for _, item := range splitList(s) {
		field, agg, _ := strings.Cut(item, ":")
		field = strings.TrimSpace(field)
		if field == "" {
			return nil, fmt.Errorf("empty field in values %q", s)
		}
		values = append(values, PivotValue{Field: field, Agg: strings.TrimSpace(agg)})
	}
	return values, nil
}

// isQuote checks if a rune is a recognized quote character.
func isQuote(r rune) bool {
	return r == '"' || r == '\'' || r == '“' || r == '”' || r == '‘' || r == '’'
}

// matchingCloseQuote returns the closing quote for a given opening quote.
func matchingCloseQuote(open rune) rune {
	switch open {
	case '“':
		return '”'
	case '‘':
		return '’'
	default:
		return open
	}
}

// parseAttributes extracts key="value" pairs from an attribute string.
// The closing quote must match the opening one, so a value may hold the
// other quote character (delimiter="'").
func parseAttributes(attrStr string) map[string]string {
	attrs := make(map[string]string)
	runes := []rune(attrStr)
	i := 0
	for i < len(runes) {
		rest := string(runes[i:])
		m := attrKeyPattern.FindStringSubmatchIndex(rest)
		if m == nil {
			break
		}
		key := rest[m[2]:m[3]]
		i += len([]rune(rest[:m[1]]))

		if i >= len(runes) || !isQuote(runes[i]) {
			continue
		}
		closeQuote := matchingCloseQuote(runes[i])
		i++

		start := i
		for i < len(runes) && runes[i] != closeQuote {
			i++
		}
		attrs[key] = string(runes[start:i])
		if i < len(runes) {
			i++
		}
	}
	return attrs
}
