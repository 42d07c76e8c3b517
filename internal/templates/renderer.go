// Package templates owns message content: {{variable}} rendering, the
// built-in stage templates, and the operator-editable overrides stored in
// the database.
package templates

import (
	"regexp"
	"strings"
)

// variablePattern matches {{variable_name}} placeholders.
var variablePattern = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// Rendered is a fully substituted subject and body pair.
type Rendered struct {
	Subject string
	Body    string
}

// Render substitutes {{variable}} placeholders in subject and body from the
// given data. Missing variables render as the empty string.
func Render(subject, body string, data map[string]string) Rendered {
	return Rendered{
		Subject: substitute(subject, data),
		Body:    substitute(body, data),
	}
}

func substitute(text string, data map[string]string) string {
	return variablePattern.ReplaceAllStringFunc(text, func(match string) string {
		name := strings.TrimSpace(variablePattern.FindStringSubmatch(match)[1])
		return data[name]
	})
}

// Variables returns the distinct placeholder names used in the given text,
// in first-appearance order.
func Variables(text string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, match := range variablePattern.FindAllStringSubmatch(text, -1) {
		name := strings.TrimSpace(match[1])
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

// Validation reports which placeholders in a template have no backing column.
type Validation struct {
	Valid   bool     `json:"valid"`
	Missing []string `json:"missingColumns"`
	Used    []string `json:"usedColumns"`
}

// Validate checks subject and body placeholders against the available
// lead data columns.
func Validate(subject, body string, available []string) Validation {
	availableSet := make(map[string]bool, len(available))
	for _, col := range available {
		availableSet[col] = true
	}

	used := Variables(subject + " " + body)
	missing := make([]string, 0)
	for _, name := range used {
		if !availableSet[name] {
			missing = append(missing, name)
		}
	}

	return Validation{
		Valid:   len(missing) == 0,
		Missing: missing,
		Used:    used,
	}
}
