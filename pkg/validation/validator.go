// Package validation provides descriptor linting for labseed.
package validation

import (
	"fmt"
	"strings"

	"github.com/opslab/labseed/pkg/descriptor"
	"github.com/opslab/labseed/pkg/phase"
	"github.com/opslab/labseed/pkg/render"
)

// Severity represents the severity of a validation issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue represents a validation issue found in a descriptor.
type Issue struct {
	Field    string   `json:"field,omitempty"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// Result holds all validation results.
type Result struct {
	Issues []Issue `json:"issues"`
}

// HasErrors returns true if there are any error-level issues.
func (r *Result) HasErrors() bool {
	for _, issue := range r.Issues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ErrorCount returns the number of error-level issues.
func (r *Result) ErrorCount() int {
	count := 0
	for _, issue := range r.Issues {
		if issue.Severity == SeverityError {
			count++
		}
	}
	return count
}

// WarningCount returns the number of warning-level issues.
func (r *Result) WarningCount() int {
	count := 0
	for _, issue := range r.Issues {
		if issue.Severity == SeverityWarning {
			count++
		}
	}
	return count
}

func (r *Result) errorf(field, format string, args ...any) {
	r.Issues = append(r.Issues, Issue{Field: field, Message: fmt.Sprintf(format, args...), Severity: SeverityError})
}

func (r *Result) warnf(field, format string, args ...any) {
	r.Issues = append(r.Issues, Issue{Field: field, Message: fmt.Sprintf(format, args...), Severity: SeverityWarning})
}

// Validator validates provisioning descriptors.
type Validator struct {
	// Vars, when non-nil, enables unbound-placeholder checking against
	// this mapping. `{up}` is always considered bound in final_message.
	Vars render.Vars
}

// NewValidator creates a new Validator.
func NewValidator(vars render.Vars) *Validator {
	return &Validator{Vars: vars}
}

// Validate lints the descriptor and returns all issues found.
func (v *Validator) Validate(d *descriptor.Descriptor) *Result {
	result := &Result{Issues: []Issue{}}

	v.checkCommands(result, "bootcmd", d.BootCmd)
	v.checkCommands(result, "runcmd", d.RunCmd)
	v.checkUsers(result, d)
	v.checkPackages(result, d)
	v.checkFinalMessage(result, d)

	return result
}

func (v *Validator) checkCommands(result *Result, field string, cmds []descriptor.Command) {
	for i, cmd := range cmds {
		name := fmt.Sprintf("%s[%d]", field, i)
		if cmd.IsEmpty() {
			result.errorf(name, "command is empty")
			continue
		}
		v.checkPlaceholders(result, name, cmd.Placeholders(), false)
	}
}

func (v *Validator) checkUsers(result *Result, d *descriptor.Descriptor) {
	users := d.EffectiveUsers()
	if len(users) == 0 {
		result.warnf("users", "no users declared; the user creation phase will be skipped")
		return
	}
	for i, u := range users {
		name := fmt.Sprintf("users[%d]", i)
		if strings.TrimSpace(u.Name) == "" {
			result.errorf(name, "user has no name")
		}
		if u.Sudo != "" && !strings.Contains(u.Sudo, "=") {
			result.warnf(name, "sudo rule %q does not look like a sudoers entry", u.Sudo)
		}
		for j, key := range u.SSHAuthorizedKeys {
			if !strings.HasPrefix(key, "ssh-") && !strings.HasPrefix(key, "ecdsa-") {
				result.errorf(fmt.Sprintf("%s.ssh_authorized_keys[%d]", name, j),
					"does not look like an SSH public key")
			}
		}
		v.checkPlaceholders(result, name, render.Placeholders(u.Name), false)
	}
}

func (v *Validator) checkPackages(result *Result, d *descriptor.Descriptor) {
	seen := make(map[string]bool)
	for i, pkg := range d.Packages {
		name := fmt.Sprintf("packages[%d]", i)
		if pkg == "" {
			result.errorf(name, "package name is empty")
			continue
		}
		if seen[pkg] {
			result.warnf(name, "package %s listed more than once", pkg)
		}
		seen[pkg] = true
	}
}

func (v *Validator) checkFinalMessage(result *Result, d *descriptor.Descriptor) {
	if d.FinalMessage == "" {
		return
	}
	v.checkPlaceholders(result, "final_message", render.Placeholders(d.FinalMessage), true)
}

func (v *Validator) checkPlaceholders(result *Result, field string, names []string, allowUp bool) {
	if v.Vars == nil {
		return
	}
	for _, name := range names {
		if allowUp && name == phase.UpPlaceholder {
			continue
		}
		if _, ok := v.Vars[name]; !ok {
			result.errorf(field, "unbound placeholder {%s}", name)
		}
	}
}
