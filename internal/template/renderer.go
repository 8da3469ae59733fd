package template

import (
	"fmt"
	"regexp"
	"strings"
)

// placeholderRe matches {variable_name} placeholders.
var placeholderRe = regexp.MustCompile(`\{[a-zA-Z0-9_]+\}`)

// Renderer merges message templates with per-recipient variables.
// Rendering is pure: no storage, no network, same inputs same output.
type Renderer struct{}

// NewRenderer creates a new template renderer
func NewRenderer() *Renderer {
	return &Renderer{}
}

// Render replaces {name} placeholders with the matching variable value.
// Placeholders without a matching variable are left verbatim in the output
// rather than dropped or rejected, so a half-personalized message still goes
// out readable instead of blocking the whole send.
func (r *Renderer) Render(template string, variables map[string]string) string {
	return placeholderRe.ReplaceAllStringFunc(template, func(match string) string {
		name := match[1 : len(match)-1]
		if value, ok := variables[name]; ok {
			return value
		}
		return match
	})
}

// Validate checks the template has workable placeholder syntax.
func (r *Renderer) Validate(template string) error {
	if template == "" {
		return fmt.Errorf("template cannot be empty")
	}

	openCount := strings.Count(template, "{")
	closeCount := strings.Count(template, "}")
	if openCount != closeCount {
		return fmt.Errorf("template has unbalanced braces: %d open, %d close", openCount, closeCount)
	}

	return nil
}

// Placeholders extracts all placeholder names from a template, in order of
// first appearance, without duplicates.
func (r *Renderer) Placeholders(template string) []string {
	seen := map[string]bool{}
	names := []string{}
	for _, match := range placeholderRe.FindAllString(template, -1) {
		name := match[1 : len(match)-1]
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}
