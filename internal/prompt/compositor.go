package prompt

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Placeholder is the literal marker replaced with the document text in the
// user prompt template.
const Placeholder = "{document}"

// Template is a reusable extraction configuration. Templates are read-only
// inputs to the pipeline; editing happens outside the core.
type Template struct {
	Name               string         `json:"name"`
	Description        string         `json:"description,omitempty"`
	SystemPrompt       string         `json:"system_prompt"`
	UserPromptTemplate string         `json:"user_prompt_template"`
	Schema             map[string]any `json:"json_schema"`
	PreferredFormat    string         `json:"preferred_format,omitempty"` // text, pdf, csv, html
}

// Validate checks the template invariants: the user prompt carries exactly
// one document placeholder and a schema is present.
func (t Template) Validate() error {
	switch n := strings.Count(t.UserPromptTemplate, Placeholder); {
	case n == 0:
		return fmt.Errorf("template %q: user prompt has no %s placeholder", t.Name, Placeholder)
	case n > 1:
		return fmt.Errorf("template %q: user prompt has %d %s placeholders, want exactly one", t.Name, n, Placeholder)
	}
	if len(t.Schema) == 0 {
		return fmt.Errorf("template %q: missing target JSON schema", t.Name)
	}
	return nil
}

// Compose substitutes the document text into the template and embeds the
// serialized target schema in the system prompt. The substitution is a single
// literal replace: braces and format-control characters in the schema or the
// document text are inert.
func Compose(t Template, documentText string) (system, user string, err error) {
	if err := t.Validate(); err != nil {
		return "", "", err
	}

	user = strings.Replace(t.UserPromptTemplate, Placeholder, documentText, 1)

	schemaJSON, err := json.MarshalIndent(t.Schema, "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("serialize schema: %w", err)
	}
	system = t.SystemPrompt +
		"\n\nYou must respond with valid JSON that conforms to this schema:\n" +
		string(schemaJSON)

	return system, user, nil
}
