package veracity

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"
)

// promptSource is the fixed verdict prompt.
// Loaded from prompts/veracity.tmpl at compile time.
//
//go:embed prompts/veracity.tmpl
var promptSource string

var promptTemplate = template.Must(template.New("veracity").Option("missingkey=error").Parse(promptSource))

// promptData fills the template. Fields are named by their role in the
// prompt, not by the Run parameter they come from.
type promptData struct {
	Context  string
	Question string
}

// RenderPrompt renders the verdict prompt. query fills the "context" slot
// and results fills the "question" slot. Both must be a string, a []string
// or a []any of strings; list elements are rendered one per line.
func RenderPrompt(query, results any) (string, error) {
	prompt, _, err := renderPrompt(query, results)
	return prompt, err
}

// renderPrompt also returns the name of the offending field on invalid input.
func renderPrompt(query, results any) (string, string, error) {
	q, err := textOf("query", query)
	if err != nil {
		return "", "query", err
	}
	r, err := textOf("results", results)
	if err != nil {
		return "", "results", err
	}

	var b strings.Builder
	if err := promptTemplate.Execute(&b, promptData{Context: q, Question: r}); err != nil {
		return "", "", fmt.Errorf("render prompt: %w", err)
	}
	return b.String(), "", nil
}

// textOf flattens a query or results value into prompt text.
func textOf(field string, v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", fmt.Errorf("%w: %s is nil", ErrInvalidArgument, field)
	case string:
		return t, nil
	case []string:
		if t == nil {
			return "", fmt.Errorf("%w: %s is nil", ErrInvalidArgument, field)
		}
		return strings.Join(t, "\n"), nil
	case []any:
		if t == nil {
			return "", fmt.Errorf("%w: %s is nil", ErrInvalidArgument, field)
		}
		parts := make([]string, 0, len(t))
		for i, e := range t {
			s, ok := e.(string)
			if !ok {
				return "", fmt.Errorf("%w: %s[%d] is %T, want string", ErrInvalidArgument, field, i, e)
			}
			parts = append(parts, s)
		}
		return strings.Join(parts, "\n"), nil
	default:
		return "", fmt.Errorf("%w: %s is %T, want string or list of strings", ErrInvalidArgument, field, v)
	}
}
