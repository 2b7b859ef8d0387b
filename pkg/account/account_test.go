package account

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opslab/labseed/pkg/descriptor"
)

func TestCommands(t *testing.T) {
	u := descriptor.UserSpec{
		Name:   "sepia",
		Gecos:  "Lab Operator",
		Shell:  "/bin/bash",
		Groups: []string{"users", "wheel"},
		Sudo:   "ALL=(ALL) NOPASSWD:ALL",
		SSHAuthorizedKeys: []string{
			"ssh-ed25519 AAAAC3NzaC1lZDI1NTE5AAAAITest ops@lab",
		},
	}

	cmds, err := Commands(u)
	require.NoError(t, err)

	lines := make([]string, 0, len(cmds))
	for _, c := range cmds {
		lines = append(lines, c.ShellLine())
	}

	// group creation precedes useradd, which precedes key install, which
	// precedes the sudoers drop-in
	assert.Equal(t, "getent group users >/dev/null || groupadd users", lines[0])
	assert.Equal(t, "getent group wheel >/dev/null || groupadd wheel", lines[1])
	assert.Contains(t, lines[2], "useradd -m")
	assert.Contains(t, lines[2], "-G users,wheel")
	assert.True(t, strings.HasSuffix(lines[2], " sepia"))

	joined := strings.Join(lines, "\n")
	keyIdx := strings.Index(joined, "authorized_keys")
	sudoIdx := strings.Index(joined, "sudoers.d")
	require.Greater(t, keyIdx, strings.Index(joined, "useradd"))
	require.Greater(t, sudoIdx, keyIdx)
}

func TestCommandsUseraddArgv(t *testing.T) {
	cmds, err := Commands(descriptor.UserSpec{
		Name:    "ops",
		Shell:   "/bin/zsh",
		HomeDir: "/srv/ops",
	})
	require.NoError(t, err)
	require.Len(t, cmds, 1)
	assert.Equal(t, []string{"useradd", "-m", "-s", "/bin/zsh", "-d", "/srv/ops", "ops"}, cmds[0].Argv)
}

func TestCommandsSSHImportID(t *testing.T) {
	cmds, err := Commands(descriptor.UserSpec{
		Name:        "ops",
		SSHImportID: []string{"gh:lab-keys"},
	})
	require.NoError(t, err)
	require.Len(t, cmds, 2)
	assert.Equal(t, []string{"ssh-import-id", "-o", "/home/ops/.ssh/authorized_keys", "gh:lab-keys"}, cmds[1].Argv)
}

func TestCommandsRequiresName(t *testing.T) {
	_, err := Commands(descriptor.UserSpec{})
	require.Error(t, err)
}

func TestSudoersCommand(t *testing.T) {
	cmd := SudoersCommand("sepia", "ALL=(ALL) NOPASSWD:ALL")
	line := cmd.ShellLine()

	assert.Contains(t, line, "visudo -cf -")
	assert.Contains(t, line, "/etc/sudoers.d/90-sepia")
	assert.Contains(t, line, "chmod 0440")
	// visudo check must come before the write
	assert.Less(t, strings.Index(line, "visudo"), strings.Index(line, "> /etc/sudoers.d"))
}
