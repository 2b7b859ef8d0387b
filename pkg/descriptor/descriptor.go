// Package descriptor defines the declarative machine-setup document and its
// YAML parsing.
package descriptor

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/opslab/labseed/pkg/render"
)

// Descriptor is a parsed machine-setup document. Field order within each
// list is execution order; there is no dependency graph, no retries, and
// no rollback.
type Descriptor struct {
	// BootCmd runs during early instance initialization, before any user
	// or package handling.
	BootCmd []Command `yaml:"bootcmd"`

	// Users are the accounts to create during provisioning.
	Users []UserSpec `yaml:"users"`

	// SystemInfo carries distribution defaults; only default_user is
	// interpreted.
	SystemInfo *SystemInfo `yaml:"system_info"`

	// Packages are installed after user creation, in declared order.
	Packages []string `yaml:"packages"`

	// RunCmd runs after package installation.
	RunCmd []Command `yaml:"runcmd"`

	// FinalMessage is rendered and printed once all phases finish. The
	// `{up}` placeholder is bound to elapsed time at render time.
	FinalMessage string `yaml:"final_message"`
}

// SystemInfo mirrors the cloud-init system_info block.
type SystemInfo struct {
	DefaultUser *UserSpec `yaml:"default_user"`
}

// UserSpec describes one account to provision.
type UserSpec struct {
	Name              string   `yaml:"name"`
	Gecos             string   `yaml:"gecos"`
	Shell             string   `yaml:"shell"`
	Groups            []string `yaml:"groups"`
	Sudo              string   `yaml:"sudo"`
	SSHAuthorizedKeys []string `yaml:"ssh_authorized_keys"`
	SSHImportID       []string `yaml:"ssh_import_id"`
	HomeDir           string   `yaml:"homedir"`
}

// Parse decodes a descriptor document.
func Parse(data []byte) (*Descriptor, error) {
	var d Descriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to parse descriptor: %w", err)
	}
	return &d, nil
}

// Load reads and parses a descriptor file.
func Load(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read descriptor: %w", err)
	}
	d, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// EffectiveUsers merges system_info.default_user over the first user
// entry, the way cloud-init overlays distribution defaults. Set fields of
// the default user win; list fields are appended.
func (d *Descriptor) EffectiveUsers() []UserSpec {
	users := make([]UserSpec, len(d.Users))
	copy(users, d.Users)

	if d.SystemInfo == nil || d.SystemInfo.DefaultUser == nil {
		return users
	}
	def := *d.SystemInfo.DefaultUser
	if len(users) == 0 {
		return []UserSpec{def}
	}

	merged := users[0]
	if def.Name != "" {
		merged.Name = def.Name
	}
	if def.Gecos != "" {
		merged.Gecos = def.Gecos
	}
	if def.Shell != "" {
		merged.Shell = def.Shell
	}
	if def.Sudo != "" {
		merged.Sudo = def.Sudo
	}
	if def.HomeDir != "" {
		merged.HomeDir = def.HomeDir
	}
	merged.Groups = appendUnique(merged.Groups, def.Groups)
	merged.SSHAuthorizedKeys = appendUnique(merged.SSHAuthorizedKeys, def.SSHAuthorizedKeys)
	merged.SSHImportID = appendUnique(merged.SSHImportID, def.SSHImportID)
	users[0] = merged
	return users
}

// UniquePackages returns the package list with duplicates dropped,
// preserving first-seen order.
func (d *Descriptor) UniquePackages() []string {
	var pkgs []string
	seen := make(map[string]bool)
	for _, p := range d.Packages {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		pkgs = append(pkgs, p)
	}
	return pkgs
}

// Placeholders returns the distinct placeholder names referenced by the
// command lists and the final message, in order of first appearance.
func (d *Descriptor) Placeholders() []string {
	var names []string
	seen := make(map[string]bool)
	add := func(more []string) {
		for _, name := range more {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	for _, c := range d.BootCmd {
		add(c.Placeholders())
	}
	for _, c := range d.RunCmd {
		add(c.Placeholders())
	}
	add(render.Placeholders(d.FinalMessage))
	return names
}

func appendUnique(base, extra []string) []string {
	out := make([]string, 0, len(base)+len(extra))
	seen := make(map[string]bool, len(base))
	for _, s := range base {
		seen[s] = true
		out = append(out, s)
	}
	for _, s := range extra {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
