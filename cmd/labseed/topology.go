package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/opslab/labseed/pkg/topology"
)

// newTopologyCmd creates the topology subcommand
func newTopologyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "topology",
		Short: "Inspect the lab's compose service topology",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "validate <compose-file>",
			Short: "Check service wiring, health gates, and host ports",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runTopologyValidate(cmd, args[0])
			},
		},
		&cobra.Command{
			Use:   "plan <compose-file>",
			Short: "Print the deterministic startup order",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runTopologyPlan(cmd, args[0])
			},
		},
	)

	return cmd
}

func runTopologyValidate(cmd *cobra.Command, path string) error {
	c, err := topology.Load(path)
	if err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Topology is valid: %d service(s), %d health gate(s).\n",
		len(c.Order), len(c.HealthGates()))
	return nil
}

func runTopologyPlan(cmd *cobra.Command, path string) error {
	out := cmd.OutOrStdout()

	c, err := topology.Load(path)
	if err != nil {
		return err
	}
	order, err := c.StartupOrder()
	if err != nil {
		return err
	}

	fmt.Fprintln(out, stageHeaderStyle.Render("Startup order"))
	for i, name := range order {
		svc := c.Services[name]

		var ports []string
		for _, p := range svc.Ports {
			if p.HostPort != 0 {
				ports = append(ports, p.String())
			}
		}
		detail := svc.Image
		if len(ports) > 0 {
			detail += "  " + dimStyle.Render("ports "+strings.Join(ports, ","))
		}
		fmt.Fprintf(out, "  %d. %-12s %s\n", i+1, name, detail)
	}

	if gates := c.HealthGates(); len(gates) > 0 {
		fmt.Fprintln(out, stageHeaderStyle.Render("Health gates"))
		for _, gate := range gates {
			fmt.Fprintf(out, "  %s waits for %s to become healthy\n", gate[0], gate[1])
		}
	}
	return nil
}
