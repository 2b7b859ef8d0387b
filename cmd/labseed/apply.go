package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opslab/labseed/pkg/descriptor"
	"github.com/opslab/labseed/pkg/phase"
	"github.com/opslab/labseed/pkg/pkgmgr"
	"github.com/opslab/labseed/pkg/progressui"
	"github.com/opslab/labseed/pkg/render"
)

// newApplyCmd creates the apply subcommand
func newApplyCmd() *cobra.Command {
	flags := &varFlags{}
	var (
		manager string
		node    string
		shell   string
		dryRun  bool
		watch   bool
	)

	cmd := &cobra.Command{
		Use:   "apply <descriptor>",
		Short: "Execute a descriptor against this host",
		Long: `Apply renders the descriptor and feeds every command to the shell in
fixed phase order: boot commands, user creation, package installation, run
commands, final message. The first command that exits non-zero aborts
everything after it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(cmd, args[0], flags, applyOptions{
				manager: manager,
				node:    node,
				shell:   shell,
				dryRun:  dryRun,
				watch:   watch,
			})
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&manager, "package-manager", "", "Package manager for the install phase (zypper, apt)")
	cmd.Flags().StringVar(&node, "node", "", "Host label used in failure reports")
	cmd.Flags().StringVar(&shell, "shell", "sh", "Shell used for string-form commands")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the command plan without executing it")
	cmd.Flags().BoolVar(&watch, "watch", false, "Show an interactive progress view")
	return cmd
}

type applyOptions struct {
	manager string
	node    string
	shell   string
	dryRun  bool
	watch   bool
}

func runApply(cmd *cobra.Command, path string, flags *varFlags, opts applyOptions) error {
	logger := newLogger(cmd)

	d, err := descriptor.Load(path)
	if err != nil {
		return err
	}
	mgr, err := pkgmgr.Parse(opts.manager)
	if err != nil {
		return err
	}
	values, err := flags.collect(cmd.Context(), logger)
	if err != nil {
		return err
	}

	runner := phase.NewShellRunner(logger.Named("shell"))
	runner.Shell = opts.shell
	runner.Node = opts.node

	if opts.dryRun {
		executor := phase.New(runner, phase.WithManager(mgr), phase.WithLogger(logger))
		plan, err := executor.BuildPlan(d, values)
		if err != nil {
			return err
		}
		printPlan(cmd, plan)
		return nil
	}

	if opts.watch {
		return applyWatch(cmd, d, values, runner, mgr)
	}

	executor := phase.New(runner,
		phase.WithManager(mgr),
		phase.WithLogger(logger),
	)
	result, err := executor.Apply(cmd.Context(), d, values)
	if err != nil {
		return err
	}
	if result.FinalMessage != "" {
		fmt.Fprintln(cmd.OutOrStdout(), result.FinalMessage)
	}
	return nil
}

// applyWatch runs the executor behind the interactive progress view.
func applyWatch(cmd *cobra.Command, d *descriptor.Descriptor, values render.Vars, runner phase.Runner, mgr pkgmgr.Manager) error {
	logger := newLogger(cmd)
	events := make(chan phase.ProgressEvent, 64)

	executor := phase.New(runner,
		phase.WithManager(mgr),
		phase.WithLogger(logger),
		phase.WithProgress(func(e phase.ProgressEvent) { events <- e }),
	)

	var (
		result   *phase.Result
		applyErr error
	)
	go func() {
		defer close(events)
		result, applyErr = executor.Apply(cmd.Context(), d, values)
	}()

	if err := progressui.Run(events); err != nil {
		return fmt.Errorf("progress view failed: %w", err)
	}
	if applyErr != nil {
		return applyErr
	}
	if result != nil && result.FinalMessage != "" {
		fmt.Fprintln(cmd.OutOrStdout(), result.FinalMessage)
	}
	return nil
}
