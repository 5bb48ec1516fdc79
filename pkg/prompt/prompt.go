// Package prompt stores named instruction templates as YAML files and
// expands their template variables.
package prompt

import (
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"
)

// Prompt is a stored, named instruction template. Variables holds the
// default value per template key.
type Prompt struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description,omitempty"`
	Content     string            `yaml:"content"`
	Variables   map[string]string `yaml:"variables,omitempty"`
}

// tokenPattern matches {{key}} placeholders, spaces inside the braces
// allowed.
var tokenPattern = regexp.MustCompile(`\{\{\s*([\w.-]+)\s*\}\}`)

// Expand substitutes the template placeholders in Content. Caller
// values override the prompt's defaults. Placeholders with no value
// from either source make the expansion fail, naming every missing
// key.
func (p *Prompt) Expand(vars map[string]string) (string, error) {
	merged := maps.Clone(p.Variables)
	if merged == nil {
		merged = make(map[string]string)
	}
	maps.Copy(merged, vars)

	missing := make(map[string]bool)
	expanded := tokenPattern.ReplaceAllStringFunc(p.Content, func(token string) string {
		key := tokenPattern.FindStringSubmatch(token)[1]
		value, ok := merged[key]
		if !ok {
			missing[key] = true
			return token
		}
		return value
	})

	if len(missing) > 0 {
		keys := slices.Sorted(maps.Keys(missing))
		return "", fmt.Errorf("unresolved template variables: %s", strings.Join(keys, ", "))
	}
	return expanded, nil
}

// ParseVars parses key=value pairs from the command line into a
// variable map.
func ParseVars(pairs []string) (map[string]string, error) {
	vars := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid variable %q (expected key=value)", pair)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("empty variable name in %q", pair)
		}
		vars[key] = strings.TrimSpace(value)
	}
	return vars, nil
}
