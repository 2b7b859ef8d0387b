package descriptor

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/opslab/labseed/pkg/render"
)

// Command is a single shell instruction from a bootcmd or runcmd list.
// The descriptor accepts two forms, matching cloud-init:
//
//	- "echo nameserver {nameserver} > /etc/resolv.conf"
//	- [sh, -c, "hostname $(curl -s {metadata}/hostname)"]
//
// The string form is handed to the shell verbatim; the argv form is
// quoted word by word when flattened to a shell line.
type Command struct {
	// Line is set for the string form.
	Line string
	// Argv is set for the list form.
	Argv []string
}

// UnmarshalYAML accepts either a scalar or a sequence of scalars.
func (c *Command) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		c.Line = s
		return nil
	case yaml.SequenceNode:
		var argv []string
		if err := node.Decode(&argv); err != nil {
			return err
		}
		c.Argv = argv
		return nil
	default:
		return fmt.Errorf("line %d: command must be a string or a list of strings", node.Line)
	}
}

// IsArgv reports whether the command came from the list form.
func (c Command) IsArgv() bool {
	return c.Argv != nil
}

// IsEmpty reports whether the command has no content.
func (c Command) IsEmpty() bool {
	if c.IsArgv() {
		return len(c.Argv) == 0
	}
	return strings.TrimSpace(c.Line) == ""
}

// Render substitutes placeholders in the command. Argv words are rendered
// independently so a value with spaces stays a single argument.
func (c Command) Render(vars render.Vars) (Command, error) {
	if c.IsArgv() {
		argv, err := render.Strings(c.Argv, vars)
		if err != nil {
			return Command{}, err
		}
		return Command{Argv: argv}, nil
	}
	line, err := render.String(c.Line, vars)
	if err != nil {
		return Command{}, err
	}
	return Command{Line: line}, nil
}

// Placeholders returns the placeholder names the command references.
func (c Command) Placeholders() []string {
	if c.IsArgv() {
		var names []string
		seen := make(map[string]bool)
		for _, word := range c.Argv {
			for _, name := range render.Placeholders(word) {
				if !seen[name] {
					seen[name] = true
					names = append(names, name)
				}
			}
		}
		return names
	}
	return render.Placeholders(c.Line)
}

// ShellLine flattens the command to a single shell line. String-form
// commands pass through untouched so shell metacharacters keep their
// meaning; argv words are quoted.
func (c Command) ShellLine() string {
	if !c.IsArgv() {
		return c.Line
	}
	quoted := make([]string, 0, len(c.Argv))
	for _, word := range c.Argv {
		quoted = append(quoted, Quote(word))
	}
	return strings.Join(quoted, " ")
}

// String implements fmt.Stringer.
func (c Command) String() string {
	return c.ShellLine()
}

// safeWordPattern matches words that need no shell quoting.
var safeWordPattern = regexp.MustCompile(`^[A-Za-z0-9@%_+=:,./-]+$`)

// Quote wraps a word in single quotes unless it is already shell-safe.
// Embedded single quotes are closed, escaped, and reopened.
func Quote(word string) string {
	if word == "" {
		return "''"
	}
	if safeWordPattern.MatchString(word) {
		return word
	}
	return "'" + strings.ReplaceAll(word, "'", `'"'"'`) + "'"
}
