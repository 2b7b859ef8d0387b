package phase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opslab/labseed/pkg/descriptor"
	"github.com/opslab/labseed/pkg/pkgmgr"
	"github.com/opslab/labseed/pkg/render"
)

// fakeRunner records executed commands and can fail on a chosen one.
type fakeRunner struct {
	commands []descriptor.Command
	failOn   string
}

func (r *fakeRunner) Run(_ context.Context, cmd descriptor.Command) error {
	r.commands = append(r.commands, cmd)
	if r.failOn != "" && cmd.ShellLine() == r.failOn {
		return &CommandFailedError{Command: cmd.ShellLine(), ExitStatus: 1}
	}
	return nil
}

func labDescriptor(t *testing.T) *descriptor.Descriptor {
	t.Helper()
	d, err := descriptor.Parse([]byte(`
bootcmd:
  - echo "nameserver {nameserver}" > /etc/resolv.conf
users:
  - name: "{username}"
    sudo: "ALL=(ALL) NOPASSWD:ALL"
packages:
  - salt-minion
  - ntp
runcmd:
  - systemctl enable salt-minion
final_message: "lab node ready after {up}"
`))
	require.NoError(t, err)
	return d
}

var labVars = render.Vars{
	"nameserver": "10.0.0.1",
	"username":   "sepia",
}

func TestBuildPlan(t *testing.T) {
	e := New(&fakeRunner{}, WithManager(pkgmgr.Zypper))
	plan, err := e.BuildPlan(labDescriptor(t), labVars)
	require.NoError(t, err)

	boot := plan.ByStage(StageBoot)
	require.Len(t, boot, 1)
	assert.Equal(t, `echo "nameserver 10.0.0.1" > /etc/resolv.conf`, boot[0].Line)

	users := plan.ByStage(StageUsers)
	require.NotEmpty(t, users)
	assert.Contains(t, users[0].ShellLine(), "useradd")
	assert.Contains(t, users[0].ShellLine(), "sepia")

	pkgs := plan.ByStage(StagePackages)
	require.Len(t, pkgs, 2)
	assert.Equal(t, []string{"zypper", "--non-interactive", "refresh"}, pkgs[0].Argv)
	assert.Contains(t, pkgs[1].Argv, "salt-minion")

	run := plan.ByStage(StageRun)
	require.Len(t, run, 1)
	assert.Equal(t, "systemctl enable salt-minion", run[0].Line)

	assert.Equal(t, "lab node ready after {up}", plan.FinalMessage)
}

func TestBuildPlanUnboundPlaceholder(t *testing.T) {
	e := New(&fakeRunner{})
	_, err := e.BuildPlan(labDescriptor(t), render.Vars{"username": "sepia"})
	require.Error(t, err)

	var unbound *render.UnboundPlaceholderError
	require.True(t, errors.As(err, &unbound))
	assert.Equal(t, "nameserver", unbound.Name)
	assert.Contains(t, err.Error(), "bootcmd[0]")
}

func TestBuildPlanUnboundFinalMessage(t *testing.T) {
	d, err := descriptor.Parse([]byte(`final_message: "done, {who}"`))
	require.NoError(t, err)

	e := New(&fakeRunner{})
	_, err = e.BuildPlan(d, render.Vars{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "final_message")
}

func TestApplyPhaseOrder(t *testing.T) {
	runner := &fakeRunner{}
	tracker := NewProgressTracker()
	e := New(runner, WithProgress(tracker.Callback()))

	result, err := e.Apply(context.Background(), labDescriptor(t), labVars)
	require.NoError(t, err)
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, len(runner.commands), result.Executed)
	assert.Equal(t, "lab node ready after "+FormatUptime(result.Duration), result.FinalMessage)

	// stage order must be: render, boot, users, packages, run, final, complete
	assert.Equal(t,
		[]Stage{StageRender, StageBoot, StageUsers, StagePackages, StageRun, StageFinal, StageComplete},
		tracker.Stages())
	assert.False(t, tracker.HasErrors())
}

func TestApplyAbortsOnFirstFailure(t *testing.T) {
	runner := &fakeRunner{failOn: "zypper --non-interactive refresh"}
	tracker := NewProgressTracker()
	e := New(runner, WithProgress(tracker.Callback()))

	result, err := e.Apply(context.Background(), labDescriptor(t), labVars)
	require.Error(t, err)

	var failed *CommandFailedError
	require.True(t, errors.As(err, &failed))
	assert.Equal(t, 1, failed.ExitStatus)

	// the failing refresh was the last command attempted; nothing after ran
	last := runner.commands[len(runner.commands)-1]
	assert.Equal(t, "zypper --non-interactive refresh", last.ShellLine())
	for _, cmd := range runner.commands {
		assert.NotEqual(t, "systemctl enable salt-minion", cmd.ShellLine())
	}

	assert.Empty(t, result.FinalMessage)
	assert.True(t, tracker.HasErrors())
	assert.Equal(t, StageError, tracker.LastEvent().Stage)
}

func TestApplyEmptyDescriptor(t *testing.T) {
	d, err := descriptor.Parse([]byte("{}"))
	require.NoError(t, err)

	runner := &fakeRunner{}
	e := New(runner)
	result, err := e.Apply(context.Background(), d, nil)
	require.NoError(t, err)
	assert.Zero(t, result.Executed)
	assert.Empty(t, runner.commands)
	assert.Empty(t, result.FinalMessage)
}

func TestFormatUptime(t *testing.T) {
	assert.Equal(t, "1m32s", FormatUptime(92*time.Second+300*time.Millisecond))
	assert.Equal(t, "450ms", FormatUptime(450*time.Millisecond))
	assert.Equal(t, "2h0m0s", FormatUptime(2*time.Hour))
}
