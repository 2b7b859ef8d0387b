// Package account compiles user specs into the shell commands that create
// them on the target host.
package account

import (
	"fmt"
	"strings"

	"github.com/opslab/labseed/pkg/descriptor"
)

// Commands returns the ordered shell commands that provision one user:
// group creation, useradd, authorized_keys install, ssh key import, and
// the sudoers drop-in. The caller is responsible for rendering any
// placeholders before compilation.
func Commands(u descriptor.UserSpec) ([]descriptor.Command, error) {
	if u.Name == "" {
		return nil, fmt.Errorf("user spec has no name")
	}

	var cmds []descriptor.Command

	for _, group := range u.Groups {
		cmds = append(cmds, descriptor.Command{
			Line: fmt.Sprintf("getent group %s >/dev/null || groupadd %s", descriptor.Quote(group), descriptor.Quote(group)),
		})
	}

	cmds = append(cmds, descriptor.Command{Argv: useraddArgv(u)})

	if len(u.SSHAuthorizedKeys) > 0 {
		home := u.HomeDir
		if home == "" {
			home = "/home/" + u.Name
		}
		sshDir := home + "/.ssh"
		keys := strings.Join(u.SSHAuthorizedKeys, "\n")
		cmds = append(cmds,
			descriptor.Command{Argv: []string{"install", "-d", "-m", "0700", "-o", u.Name, "-g", u.Name, sshDir}},
			descriptor.Command{
				Line: fmt.Sprintf("printf '%%s\\n' %s >> %s", descriptor.Quote(keys), descriptor.Quote(sshDir+"/authorized_keys")),
			},
			descriptor.Command{Argv: []string{"chown", u.Name + ":" + u.Name, sshDir + "/authorized_keys"}},
			descriptor.Command{Argv: []string{"chmod", "0600", sshDir + "/authorized_keys"}},
		)
	}

	for _, id := range u.SSHImportID {
		cmds = append(cmds, descriptor.Command{Argv: []string{"ssh-import-id", "-o", authorizedKeysPath(u), id}})
	}

	if u.Sudo != "" {
		cmds = append(cmds, SudoersCommand(u.Name, u.Sudo))
	}

	return cmds, nil
}

// useraddArgv builds the useradd invocation for a user spec.
func useraddArgv(u descriptor.UserSpec) []string {
	argv := []string{"useradd", "-m"}
	if u.Gecos != "" {
		argv = append(argv, "-c", u.Gecos)
	}
	if u.Shell != "" {
		argv = append(argv, "-s", u.Shell)
	}
	if u.HomeDir != "" {
		argv = append(argv, "-d", u.HomeDir)
	}
	if len(u.Groups) > 0 {
		argv = append(argv, "-G", strings.Join(u.Groups, ","))
	}
	argv = append(argv, u.Name)
	return argv
}

// SudoersCommand writes a /etc/sudoers.d drop-in for the user. The rule is
// syntax-checked with visudo before it lands, and the file ends up with
// mode 0440 as sudo requires.
func SudoersCommand(name, rule string) descriptor.Command {
	path := "/etc/sudoers.d/90-" + name
	content := fmt.Sprintf("%s %s\n", name, rule)
	return descriptor.Command{
		Line: fmt.Sprintf(
			"printf '%%s' %s | visudo -cf - && printf '%%s' %s > %s && chmod 0440 %s",
			descriptor.Quote(content), descriptor.Quote(content), path, path,
		),
	}
}

func authorizedKeysPath(u descriptor.UserSpec) string {
	home := u.HomeDir
	if home == "" {
		home = "/home/" + u.Name
	}
	return home + "/.ssh/authorized_keys"
}
