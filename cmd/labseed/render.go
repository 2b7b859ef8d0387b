package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/opslab/labseed/pkg/descriptor"
	"github.com/opslab/labseed/pkg/phase"
	"github.com/opslab/labseed/pkg/pkgmgr"
)

var (
	stageHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	dimStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// newRenderCmd creates the render subcommand
func newRenderCmd() *cobra.Command {
	flags := &varFlags{}
	var manager string

	cmd := &cobra.Command{
		Use:   "render <descriptor>",
		Short: "Render a descriptor's command plan",
		Long: `Render substitutes placeholder variables into the descriptor and prints
the full command plan in execution order, without touching the host.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, args[0], flags, manager)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&manager, "package-manager", "", "Package manager for the install phase (zypper, apt)")
	return cmd
}

func runRender(cmd *cobra.Command, path string, flags *varFlags, manager string) error {
	logger := newLogger(cmd)

	d, err := descriptor.Load(path)
	if err != nil {
		return err
	}
	mgr, err := pkgmgr.Parse(manager)
	if err != nil {
		return err
	}
	values, err := flags.collect(cmd.Context(), logger)
	if err != nil {
		return err
	}

	executor := phase.New(nil, phase.WithManager(mgr), phase.WithLogger(logger))
	plan, err := executor.BuildPlan(d, values)
	if err != nil {
		return err
	}

	printPlan(cmd, plan)
	return nil
}

// printPlan writes the plan grouped by stage.
func printPlan(cmd *cobra.Command, plan *phase.Plan) {
	out := cmd.OutOrStdout()
	stages := []phase.Stage{phase.StageBoot, phase.StageUsers, phase.StagePackages, phase.StageRun}

	for _, stage := range stages {
		cmds := plan.ByStage(stage)
		if len(cmds) == 0 {
			continue
		}
		fmt.Fprintln(out, stageHeaderStyle.Render(stage.DisplayName()))
		for _, c := range cmds {
			fmt.Fprintf(out, "  %s\n", c.ShellLine())
		}
	}

	if plan.FinalMessage != "" {
		fmt.Fprintln(out, stageHeaderStyle.Render(phase.StageFinal.DisplayName()))
		fmt.Fprintf(out, "  %s\n", dimStyle.Render(plan.FinalMessage))
	}
}
