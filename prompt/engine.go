package prompt

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
)

// Engine renders prompt templates.
type Engine struct {
	funcs template.FuncMap
}

// NewEngine creates an engine with the default helper set.
func NewEngine() *Engine {
	return &Engine{funcs: defaultFuncs()}
}

// AddFunc registers a custom helper usable in templates.
func (e *Engine) AddFunc(name string, fn any) {
	e.funcs[name] = fn
}

// Render executes the template against the given variables.
func (e *Engine) Render(tmpl string, vars map[string]any) (string, error) {
	if tmpl == "" {
		return "", ErrEmpty
	}

	parsed, err := template.New("prompt").Funcs(e.funcs).Parse(convertSyntax(tmpl))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrParse, err)
	}

	var buf strings.Builder
	if err := parsed.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("%w: %w", ErrExecute, err)
	}
	return buf.String(), nil
}

// Vars validates the template and returns the variable names it references.
func (e *Engine) Vars(tmpl string) ([]string, error) {
	if tmpl == "" {
		return nil, ErrEmpty
	}
	if _, err := template.New("prompt").Funcs(e.funcs).Parse(convertSyntax(tmpl)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	return extractVariables(tmpl), nil
}

// Validate checks that every required variable has a value.
func Validate(required []string, provided map[string]any) error {
	for _, name := range required {
		if _, ok := provided[name]; !ok {
			return fmt.Errorf("%w: %s", ErrMissingVariable, name)
		}
	}
	return nil
}

func defaultFuncs() template.FuncMap {
	return template.FuncMap{
		"json":     toJSON,
		"truncate": truncate,
		"indent":   indent,
		"upper":    strings.ToUpper,
		"lower":    strings.ToLower,
		"trim":     strings.TrimSpace,
		"join":     strings.Join,
		"default":  defaultValue,
	}
}

func toJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// truncate cuts s at maxLen, appending an ellipsis when there is room.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

func indent(s string, spaces int) string {
	prefix := strings.Repeat(" ", spaces)
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = prefix + lines[i]
	}
	return strings.Join(lines, "\n")
}

// defaultValue substitutes def when val is nil or the empty string.
func defaultValue(val, def any) any {
	if val == nil {
		return def
	}
	if s, ok := val.(string); ok && s == "" {
		return def
	}
	return val
}
