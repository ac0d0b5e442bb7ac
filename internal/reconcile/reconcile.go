package reconcile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ParseError reports LLM output that could not be parsed as JSON. The raw
// text is preserved for diagnostics; no partial or guessed data is returned.
type ParseError struct {
	Raw    string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid JSON response: %s", e.Reason)
}

// ValidationError names the first field that failed shallow schema validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("schema validation failed: field %q %s", e.Field, e.Reason)
}

// Reconcile strips conversational and markdown wrapping from raw LLM output,
// parses it as JSON and validates it shallowly against the target schema:
// required-field presence plus primitive type match, not a full JSON-Schema
// engine.
func Reconcile(raw string, schema map[string]any) (map[string]any, error) {
	cleaned := stripWrapping(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, &ParseError{Raw: raw, Reason: err.Error()}
	}

	if err := validateShallow(data, schema); err != nil {
		return nil, err
	}
	return data, nil
}

// ReconcileStrict runs full JSON-Schema validation instead of the shallow
// pass. Opt-in extension; the shallow behavior remains the default.
func ReconcileStrict(raw string, schema map[string]any) (map[string]any, error) {
	cleaned := stripWrapping(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, &ParseError{Raw: raw, Reason: err.Error()}
	}

	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	compiled, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal([]byte(cleaned), &v); err != nil {
		return nil, &ParseError{Raw: raw, Reason: err.Error()}
	}
	if err := compiled.Validate(v); err != nil {
		return nil, &ValidationError{Field: firstSchemaViolation(err), Reason: err.Error()}
	}
	return data, nil
}

// stripWrapping removes markdown code fences (with or without a language
// tag), conversational preamble before the first '{' and trailing prose after
// its matching '}'.
func stripWrapping(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		s = s[3:]
		// drop the language tag up to the first newline
		if i := strings.IndexByte(s, '\n'); i >= 0 && len(strings.Fields(s[:i])) <= 1 {
			s = s[i+1:]
		}
	}
	if strings.HasSuffix(strings.TrimSpace(s), "```") {
		t := strings.TrimSpace(s)
		s = t[:len(t)-3]
	}
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
		return s
	}
	if obj, ok := extractObject(s); ok {
		return obj
	}
	return s
}

// extractObject slices out the first balanced top-level JSON object. The scan
// is string-aware so braces inside string values do not end the object early.
func extractObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}

	// Unbalanced; fall back to the last closing brace.
	if end := strings.LastIndexByte(s, '}'); end > start {
		return s[start : end+1], true
	}
	return "", false
}

// validateShallow checks required-field presence and primitive type match
// against a JSON-Schema-shaped map, naming the first offending field.
func validateShallow(data map[string]any, schema map[string]any) error {
	if required, ok := schema["required"].([]any); ok {
		for _, r := range required {
			field, ok := r.(string)
			if !ok {
				continue
			}
			if _, present := data[field]; !present {
				return &ValidationError{Field: field, Reason: "is required but missing"}
			}
		}
	}
	// string-typed required lists appear when the schema came from Go code
	if required, ok := schema["required"].([]string); ok {
		for _, field := range required {
			if _, present := data[field]; !present {
				return &ValidationError{Field: field, Reason: "is required but missing"}
			}
		}
	}

	props, ok := schema["properties"].(map[string]any)
	if !ok {
		return nil
	}
	for field, rawSpec := range props {
		spec, ok := rawSpec.(map[string]any)
		if !ok {
			continue
		}
		value, present := data[field]
		if !present || value == nil {
			continue
		}
		want, _ := spec["type"].(string)
		if want == "" {
			continue
		}
		if !typeMatches(value, want) {
			return &ValidationError{Field: field, Reason: fmt.Sprintf("should be %s", want)}
		}
	}
	return nil
}

func typeMatches(value any, want string) bool {
	switch want {
	case "string":
		_, ok := value.(string)
		return ok
	case "number":
		_, ok := value.(float64)
		return ok
	case "integer":
		f, ok := value.(float64)
		return ok && f == float64(int64(f))
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "array":
		_, ok := value.([]any)
		return ok
	case "object":
		_, ok := value.(map[string]any)
		return ok
	default:
		// unknown declared type: do not reject
		return true
	}
}

// firstSchemaViolation digs the offending field out of a jsonschema
// validation error for the Field label.
func firstSchemaViolation(err error) string {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return ""
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	if loc := strings.TrimPrefix(ve.InstanceLocation, "/"); loc != "" {
		return loc
	}
	// a required violation points at the root; the missing property name
	// only appears in the message ("missing properties: 'total'")
	if strings.HasSuffix(ve.KeywordLocation, "/required") {
		if m := quotedNameRe.FindStringSubmatch(ve.Message); m != nil {
			return m[1]
		}
	}
	return ""
}

var quotedNameRe = regexp.MustCompile(`['"]([^'"]+)['"]`)
