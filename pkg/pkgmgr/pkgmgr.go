// Package pkgmgr builds the package installation command for a target
// host's package manager.
package pkgmgr

import (
	"fmt"

	"github.com/opslab/labseed/pkg/descriptor"
)

// Manager identifies a supported package manager.
type Manager string

const (
	Zypper Manager = "zypper"
	Apt    Manager = "apt"
)

// Default is the manager assumed when none is configured; lab images are
// openSUSE based.
const Default = Zypper

// Parse maps a user-supplied name to a Manager.
func Parse(name string) (Manager, error) {
	switch name {
	case "", string(Zypper):
		return Zypper, nil
	case string(Apt), "apt-get":
		return Apt, nil
	default:
		return "", fmt.Errorf("unsupported package manager %q (supported: zypper, apt)", name)
	}
}

// InstallCommand returns the single non-interactive install invocation for
// the given packages, preserving their order. Returns a zero command when
// there is nothing to install.
func (m Manager) InstallCommand(packages []string) descriptor.Command {
	if len(packages) == 0 {
		return descriptor.Command{}
	}
	var argv []string
	switch m {
	case Apt:
		argv = []string{"env", "DEBIAN_FRONTEND=noninteractive", "apt-get", "install", "-y"}
	default:
		argv = []string{"zypper", "--non-interactive", "install", "--no-recommends"}
	}
	return descriptor.Command{Argv: append(argv, packages...)}
}

// RefreshCommand returns the metadata refresh invocation run before
// installation.
func (m Manager) RefreshCommand() descriptor.Command {
	switch m {
	case Apt:
		return descriptor.Command{Argv: []string{"apt-get", "update"}}
	default:
		return descriptor.Command{Argv: []string{"zypper", "--non-interactive", "refresh"}}
	}
}
