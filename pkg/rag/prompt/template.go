package prompt

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"marketplace-assistant-be/pkg/store"
)

const (
	VarQuestion = "question"
	VarDocument = "document"
)

var placeholderPattern = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// Template is a stage prompt validated at construction
type Template struct {
	Stage             store.Stage
	Text              string
	RequiredVariables []string
}

// TemplateBindingError means a required slot had no value at render time
type TemplateBindingError struct {
	Stage    store.Stage
	Variable string
}

func (e *TemplateBindingError) Error() string {
	return fmt.Sprintf("prompt for stage %s: missing binding for {%s}", e.Stage, e.Variable)
}

// NewTemplate checks that the placeholders in text are exactly the required
// variables and that {question} is among them.
func NewTemplate(stage store.Stage, text string, required ...string) (*Template, error) {
	declared := make(map[string]bool, len(required))
	for _, v := range required {
		declared[v] = true
	}
	if !declared[VarQuestion] {
		return nil, fmt.Errorf("template for stage %s must require {%s}", stage, VarQuestion)
	}

	found := Placeholders(text)
	foundSet := make(map[string]bool, len(found))
	for _, v := range found {
		foundSet[v] = true
		if !declared[v] {
			return nil, fmt.Errorf("template for stage %s uses undeclared placeholder {%s}", stage, v)
		}
	}
	for v := range declared {
		if !foundSet[v] {
			return nil, fmt.Errorf("template for stage %s declares {%s} but never uses it", stage, v)
		}
	}

	vars := make([]string, 0, len(declared))
	for v := range declared {
		vars = append(vars, v)
	}
	sort.Strings(vars)

	return &Template{Stage: stage, Text: text, RequiredVariables: vars}, nil
}

// Placeholders returns the distinct {name} slots of text in order of appearance
func Placeholders(text string) []string {
	var out []string
	seen := map[string]bool{}
	for _, m := range placeholderPattern.FindAllStringSubmatch(text, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			out = append(out, m[1])
		}
	}
	return out
}

// Requires reports whether name is a required slot
func (t *Template) Requires(name string) bool {
	for _, v := range t.RequiredVariables {
		if v == name {
			return true
		}
	}
	return false
}

// Render substitutes every required slot. Bindings the template does not
// declare are ignored. An empty string is a valid binding.
func (t *Template) Render(bindings map[string]string) (string, error) {
	pairs := make([]string, 0, len(t.RequiredVariables)*2)
	for _, v := range t.RequiredVariables {
		value, ok := bindings[v]
		if !ok {
			return "", &TemplateBindingError{Stage: t.Stage, Variable: v}
		}
		pairs = append(pairs, "{"+v+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(t.Text), nil
}
