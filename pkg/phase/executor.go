// Package phase executes a provisioning descriptor against a target host
// in fixed order: boot commands, user creation, package installation, run
// commands, final message. Execution is strictly sequential and the first
// non-zero exit aborts everything after it.
package phase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/opslab/labseed/pkg/account"
	"github.com/opslab/labseed/pkg/descriptor"
	"github.com/opslab/labseed/pkg/pkgmgr"
	"github.com/opslab/labseed/pkg/render"
)

// UpPlaceholder is bound to the elapsed provisioning time when the final
// message is rendered.
const UpPlaceholder = "up"

// PlannedCommand is one rendered command with the stage it belongs to.
type PlannedCommand struct {
	Stage   Stage
	Command descriptor.Command
}

// Plan is the fully rendered command sequence for one descriptor. The
// final message stays a template until execution finishes, because `{up}`
// is only known then.
type Plan struct {
	Commands     []PlannedCommand
	FinalMessage string
}

// ByStage returns the planned commands belonging to one stage.
func (p *Plan) ByStage(s Stage) []descriptor.Command {
	var cmds []descriptor.Command
	for _, pc := range p.Commands {
		if pc.Stage == s {
			cmds = append(cmds, pc.Command)
		}
	}
	return cmds
}

// Result reports a finished (or aborted) apply.
type Result struct {
	RunID        string
	Duration     time.Duration
	Executed     int
	FinalMessage string
}

// Executor interprets descriptors.
type Executor struct {
	runner   Runner
	logger   hclog.Logger
	manager  pkgmgr.Manager
	progress ProgressCallback
	now      func() time.Time
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the logger.
func WithLogger(logger hclog.Logger) Option {
	return func(e *Executor) { e.logger = logger }
}

// WithManager selects the package manager used for the packages phase.
func WithManager(m pkgmgr.Manager) Option {
	return func(e *Executor) { e.manager = m }
}

// WithProgress sets the progress callback.
func WithProgress(cb ProgressCallback) Option {
	return func(e *Executor) { e.progress = cb }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Executor) { e.now = now }
}

// New creates an executor that feeds commands to the given runner.
func New(runner Runner, opts ...Option) *Executor {
	e := &Executor{
		runner:   runner,
		logger:   hclog.NewNullLogger(),
		manager:  pkgmgr.Default,
		progress: NoOpProgress,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// BuildPlan renders the descriptor into the command sequence Apply would
// execute. Rendering failures (unbound placeholders) surface here, before
// anything touches the host.
func (e *Executor) BuildPlan(d *descriptor.Descriptor, vars render.Vars) (*Plan, error) {
	plan := &Plan{FinalMessage: d.FinalMessage}

	for i, cmd := range d.BootCmd {
		rendered, err := cmd.Render(vars)
		if err != nil {
			return nil, fmt.Errorf("bootcmd[%d]: %w", i, err)
		}
		plan.Commands = append(plan.Commands, PlannedCommand{Stage: StageBoot, Command: rendered})
	}

	for i, u := range d.EffectiveUsers() {
		rendered, err := renderUser(u, vars)
		if err != nil {
			return nil, fmt.Errorf("users[%d]: %w", i, err)
		}
		cmds, err := account.Commands(rendered)
		if err != nil {
			return nil, fmt.Errorf("users[%d]: %w", i, err)
		}
		for _, cmd := range cmds {
			plan.Commands = append(plan.Commands, PlannedCommand{Stage: StageUsers, Command: cmd})
		}
	}

	if pkgs := d.UniquePackages(); len(pkgs) > 0 {
		rendered, err := render.Strings(pkgs, vars)
		if err != nil {
			return nil, fmt.Errorf("packages: %w", err)
		}
		plan.Commands = append(plan.Commands,
			PlannedCommand{Stage: StagePackages, Command: e.manager.RefreshCommand()},
			PlannedCommand{Stage: StagePackages, Command: e.manager.InstallCommand(rendered)},
		)
	}

	for i, cmd := range d.RunCmd {
		rendered, err := cmd.Render(vars)
		if err != nil {
			return nil, fmt.Errorf("runcmd[%d]: %w", i, err)
		}
		plan.Commands = append(plan.Commands, PlannedCommand{Stage: StageRun, Command: rendered})
	}

	if d.FinalMessage != "" {
		probe := render.Merge(vars, render.Vars{UpPlaceholder: ""})
		if _, err := render.String(d.FinalMessage, probe); err != nil {
			return nil, fmt.Errorf("final_message: %w", err)
		}
	}

	return plan, nil
}

// Apply renders the descriptor and executes every phase in order. The
// first failing command aborts the rest; the returned Result reflects how
// far execution got.
func (e *Executor) Apply(ctx context.Context, d *descriptor.Descriptor, vars render.Vars) (*Result, error) {
	start := e.now()
	result := &Result{RunID: uuid.NewString()}
	logger := e.logger.With("run_id", result.RunID)

	e.progress(NewProgressEvent(StageRender, "Rendering descriptor...", 0))
	plan, err := e.BuildPlan(d, vars)
	if err != nil {
		e.progress(NewErrorEvent(err.Error()))
		return result, err
	}

	total := len(plan.Commands) + 1
	for i, pc := range plan.Commands {
		line := pc.Command.ShellLine()
		percent := (i * 100) / total
		e.progress(NewCommandEvent(pc.Stage, pc.Stage.DisplayName(), line, percent))
		logger.Info("executing", "stage", pc.Stage.String(), "command", line)

		if err := e.runner.Run(ctx, pc.Command); err != nil {
			result.Duration = e.now().Sub(start)
			e.progress(NewErrorEvent(err.Error()))
			logger.Error("command failed, aborting remaining phases",
				"stage", pc.Stage.String(), "command", line, "error", err)
			return result, err
		}
		result.Executed++
	}

	result.Duration = e.now().Sub(start)
	if d.FinalMessage != "" {
		finalVars := render.Merge(vars, render.Vars{UpPlaceholder: FormatUptime(result.Duration)})
		msg, err := render.String(d.FinalMessage, finalVars)
		if err != nil {
			e.progress(NewErrorEvent(err.Error()))
			return result, fmt.Errorf("final_message: %w", err)
		}
		result.FinalMessage = msg
		e.progress(NewProgressEvent(StageFinal, msg, 99))
	}

	e.progress(NewProgressEvent(StageComplete, "Provisioning complete", 100))
	logger.Info("provisioning complete", "commands", result.Executed, "elapsed", result.Duration.String())
	return result, nil
}

// FormatUptime renders an elapsed duration for the `{up}` placeholder,
// truncated to whole seconds ("1m32s").
func FormatUptime(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Truncate(time.Second).String()
}

// renderUser substitutes placeholders in every templated user field.
func renderUser(u descriptor.UserSpec, vars render.Vars) (descriptor.UserSpec, error) {
	var err error
	if u.Name, err = render.String(u.Name, vars); err != nil {
		return u, err
	}
	if u.Gecos, err = render.String(u.Gecos, vars); err != nil {
		return u, err
	}
	if u.Shell, err = render.String(u.Shell, vars); err != nil {
		return u, err
	}
	if u.Sudo, err = render.String(u.Sudo, vars); err != nil {
		return u, err
	}
	if u.HomeDir, err = render.String(u.HomeDir, vars); err != nil {
		return u, err
	}
	if u.Groups, err = render.Strings(u.Groups, vars); err != nil {
		return u, err
	}
	if u.SSHAuthorizedKeys, err = render.Strings(u.SSHAuthorizedKeys, vars); err != nil {
		return u, err
	}
	if u.SSHImportID, err = render.Strings(u.SSHImportID, vars); err != nil {
		return u, err
	}
	return u, nil
}
