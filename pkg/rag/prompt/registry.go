package prompt

import (
	"fmt"
	"os"

	"marketplace-assistant-be/internal/constant"
	"marketplace-assistant-be/pkg/store"

	"gopkg.in/yaml.v3"
)

// UnknownStageError is returned by Get for a stage with no template
type UnknownStageError struct {
	Stage store.Stage
}

func (e *UnknownStageError) Error() string {
	return fmt.Sprintf("no prompt registered for stage %q", string(e.Stage))
}

// Registry maps each stage to its template. It is read-only after construction
// and safe for concurrent use.
type Registry struct {
	templates map[store.Stage]*Template
	main      *Template
}

// requiredVariables returns the slots a stage must declare
func requiredVariables(s store.Stage) []string {
	if s.IsGrounded() {
		return []string{VarQuestion, VarDocument}
	}
	return []string{VarQuestion}
}

var defaultTexts = map[store.Stage]string{
	store.StageWelcome:         constant.WelcomePrompt,
	store.StageProductSearch:   constant.ProductSearchPrompt,
	store.StageProductQA:       constant.ProductQAPrompt,
	store.StageCollectInfo:     constant.CollectInfoPrompt,
	store.StageConfirmPurchase: constant.ConfirmPurchasePrompt,
	store.StageThankYou:        constant.ThankYouPrompt,
}

// NewRegistry builds a registry from stage texts plus the single-mode text
func NewRegistry(texts map[store.Stage]string, mainText string) (*Registry, error) {
	r := &Registry{templates: make(map[store.Stage]*Template, len(texts))}
	for s, text := range texts {
		if !s.Valid() {
			return nil, &UnknownStageError{Stage: s}
		}
		tpl, err := NewTemplate(s, text, requiredVariables(s)...)
		if err != nil {
			return nil, err
		}
		r.templates[s] = tpl
	}

	if mainText != "" {
		tpl, err := NewTemplate("main", mainText, VarQuestion, VarDocument)
		if err != nil {
			return nil, err
		}
		r.main = tpl
	}
	return r, nil
}

// DefaultRegistry registers all six stages with the built-in copy
func DefaultRegistry() *Registry {
	r, err := NewRegistry(defaultTexts, constant.MainPrompt)
	if err != nil {
		// built-in copy is static, a failure here is a programming error
		panic(err)
	}
	return r
}

// fileFormat is the YAML layout of a prompt override file:
//
//	main: "..."
//	stages:
//	  Welcome: "... {question}"
type fileFormat struct {
	Main   string            `yaml:"main"`
	Stages map[string]string `yaml:"stages"`
}

// LoadRegistry starts from the defaults and overrides any stage present in the YAML file
func LoadRegistry(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompts file: %w", err)
	}

	var f fileFormat
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse prompts file: %w", err)
	}

	texts := make(map[store.Stage]string, len(defaultTexts))
	for s, t := range defaultTexts {
		texts[s] = t
	}
	for name, text := range f.Stages {
		s, err := store.ParseStage(name)
		if err != nil {
			return nil, &UnknownStageError{Stage: store.Stage(name)}
		}
		texts[s] = text
	}

	mainText := constant.MainPrompt
	if f.Main != "" {
		mainText = f.Main
	}
	return NewRegistry(texts, mainText)
}

// Get returns the template for a stage
func (r *Registry) Get(s store.Stage) (*Template, error) {
	tpl, ok := r.templates[s]
	if !ok {
		return nil, &UnknownStageError{Stage: s}
	}
	return tpl, nil
}

// Main returns the single-mode template
func (r *Registry) Main() (*Template, error) {
	if r.main == nil {
		return nil, &UnknownStageError{Stage: "main"}
	}
	return r.main, nil
}
