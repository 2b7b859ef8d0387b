// Package render provides placeholder substitution for descriptor templates.
package render

import (
	"fmt"
	"regexp"
	"strings"
)

// Vars maps placeholder names to their values.
type Vars map[string]string

// placeholderPattern matches `{name}` tokens. Names are single lowercase
// words (letters, digits, underscores), which keeps literal braces such as
// `${SHELL}` expansions or awk blocks out of the template language.
var placeholderPattern = regexp.MustCompile(`\{([a-z][a-z0-9_]*)\}`)

// UnboundPlaceholderError reports a placeholder with no value in the
// variable mapping.
type UnboundPlaceholderError struct {
	Name string
}

// Error implements the error interface.
func (e *UnboundPlaceholderError) Error() string {
	return fmt.Sprintf("unbound placeholder {%s}", e.Name)
}

// String replaces every `{key}` occurrence in s with vars[key].
// It returns an UnboundPlaceholderError if a placeholder has no mapping.
// Substitution is pure string replacement: no escaping, loops, or
// conditionals, and rendering the result again with the same vars yields
// the same string as long as values do not themselves contain placeholders.
func String(s string, vars Vars) (string, error) {
	var unbound *UnboundPlaceholderError

	out := placeholderPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := match[1 : len(match)-1]
		value, ok := vars[name]
		if !ok {
			if unbound == nil {
				unbound = &UnboundPlaceholderError{Name: name}
			}
			return match
		}
		return value
	})
	if unbound != nil {
		return "", unbound
	}
	return out, nil
}

// Strings renders each element of in, preserving order.
func Strings(in []string, vars Vars) ([]string, error) {
	if in == nil {
		return nil, nil
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		rendered, err := String(s, vars)
		if err != nil {
			return nil, err
		}
		out = append(out, rendered)
	}
	return out, nil
}

// Placeholders returns the distinct placeholder names referenced by s,
// in order of first appearance.
func Placeholders(s string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, match := range placeholderPattern.FindAllStringSubmatch(s, -1) {
		name := match[1]
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

// Merge combines variable mappings; later mappings win on conflict.
func Merge(mappings ...Vars) Vars {
	merged := make(Vars)
	for _, m := range mappings {
		for k, v := range m {
			merged[k] = v
		}
	}
	return merged
}

// FormatPair renders a single k=v pair for display.
func FormatPair(key, value string) string {
	if strings.ContainsAny(value, " \t") {
		return fmt.Sprintf("%s=%q", key, value)
	}
	return fmt.Sprintf("%s=%s", key, value)
}
