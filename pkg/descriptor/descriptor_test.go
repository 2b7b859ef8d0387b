package descriptor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const labDescriptor = `
bootcmd:
  - echo "nameserver {nameserver}" > /etc/resolv.conf
  - echo "search {lab_domain}" >> /etc/resolv.conf
  - [sh, -c, "hostname ${HOSTNAME%%.*}"]
users:
  - name: "{username}"
    gecos: Lab Operator
    groups: [users, wheel]
    sudo: "ALL=(ALL) NOPASSWD:ALL"
    ssh_import_id:
      - gh:lab-keys
system_info:
  default_user:
    shell: /bin/bash
    groups: [systemd-journal]
packages:
  - salt-minion
  - ntp
  - git
  - ntp
runcmd:
  - systemctl enable salt-minion
  - systemctl start salt-minion
final_message: "lab node up after {up}"
`

func TestParse(t *testing.T) {
	d, err := Parse([]byte(labDescriptor))
	require.NoError(t, err)

	require.Len(t, d.BootCmd, 3)
	assert.Equal(t, `echo "nameserver {nameserver}" > /etc/resolv.conf`, d.BootCmd[0].Line)
	assert.False(t, d.BootCmd[0].IsArgv())
	assert.Equal(t, []string{"sh", "-c", "hostname ${HOSTNAME%%.*}"}, d.BootCmd[2].Argv)

	require.Len(t, d.Users, 1)
	assert.Equal(t, "{username}", d.Users[0].Name)
	assert.Equal(t, "ALL=(ALL) NOPASSWD:ALL", d.Users[0].Sudo)
	assert.Equal(t, []string{"gh:lab-keys"}, d.Users[0].SSHImportID)

	assert.Equal(t, []string{"salt-minion", "ntp", "git", "ntp"}, d.Packages)
	require.Len(t, d.RunCmd, 2)
	assert.Equal(t, "lab node up after {up}", d.FinalMessage)
}

func TestParseRejectsMalformedCommand(t *testing.T) {
	_, err := Parse([]byte("bootcmd:\n  - key: value\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "command must be a string or a list of strings")
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lab.yaml")
	require.NoError(t, os.WriteFile(path, []byte(labDescriptor), 0o644))

	d, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, d.BootCmd, 3)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}

func TestEffectiveUsers(t *testing.T) {
	d, err := Parse([]byte(labDescriptor))
	require.NoError(t, err)

	users := d.EffectiveUsers()
	require.Len(t, users, 1)
	assert.Equal(t, "{username}", users[0].Name)
	assert.Equal(t, "/bin/bash", users[0].Shell)
	assert.Equal(t, []string{"users", "wheel", "systemd-journal"}, users[0].Groups)
	// merge must not mutate the parsed document
	assert.Equal(t, []string{"users", "wheel"}, d.Users[0].Groups[:2])
}

func TestEffectiveUsersDefaultOnly(t *testing.T) {
	d, err := Parse([]byte(`
system_info:
  default_user:
    name: sepia
    sudo: "ALL=(ALL) NOPASSWD:ALL"
`))
	require.NoError(t, err)

	users := d.EffectiveUsers()
	require.Len(t, users, 1)
	assert.Equal(t, "sepia", users[0].Name)
}

func TestUniquePackages(t *testing.T) {
	d, err := Parse([]byte(labDescriptor))
	require.NoError(t, err)
	assert.Equal(t, []string{"salt-minion", "ntp", "git"}, d.UniquePackages())
}

func TestPlaceholders(t *testing.T) {
	d, err := Parse([]byte(labDescriptor))
	require.NoError(t, err)
	assert.Equal(t, []string{"nameserver", "lab_domain", "up"}, d.Placeholders())
}
