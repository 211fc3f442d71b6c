package agent

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// MissingFieldsError reports template placeholders with no supplied value.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return fmt.Sprintf("template references missing fields: %s", strings.Join(e.Fields, ", "))
}

// RenderTemplate substitutes `{placeholder}` occurrences with values from
// vars. Every placeholder is validated against vars before any substitution
// happens, so a missing field is reported as a structured error rather than
// surfacing mid-render.
func RenderTemplate(tpl string, vars map[string]string) (string, error) {
	var missing []string
	seen := map[string]bool{}
	for _, match := range placeholderPattern.FindAllStringSubmatch(tpl, -1) {
		name := match[1]
		if seen[name] {
			continue
		}
		seen[name] = true
		if _, ok := vars[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return "", &MissingFieldsError{Fields: missing}
	}

	return placeholderPattern.ReplaceAllStringFunc(tpl, func(m string) string {
		return vars[m[1:len(m)-1]]
	}), nil
}
