package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/opslab/labseed/pkg/metadata"
	"github.com/opslab/labseed/pkg/render"
)

// newMetadataCmd creates the metadata subcommand
func newMetadataCmd() *cobra.Command {
	var endpoint string

	cmd := &cobra.Command{
		Use:       "metadata [hostname|local-ipv4]",
		Short:     "Query the cloud metadata endpoint",
		Long:      `Metadata queries the instance identity service. Without an argument it prints all derived placeholder variables.`,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"hostname", "local-ipv4"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMetadata(cmd, args, endpoint)
		},
	}

	cmd.Flags().StringVar(&endpoint, "endpoint", "", "Metadata endpoint base URL (default "+metadata.DefaultBaseURL+")")
	return cmd
}

func runMetadata(cmd *cobra.Command, args []string, endpoint string) error {
	out := cmd.OutOrStdout()
	client := metadata.NewClient(endpoint, newLogger(cmd))

	if len(args) == 1 {
		var (
			value string
			err   error
		)
		switch args[0] {
		case "hostname":
			value, err = client.Hostname(cmd.Context())
		case "local-ipv4":
			value, err = client.LocalIPv4(cmd.Context())
		default:
			return fmt.Errorf("unknown metadata key %q", args[0])
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(out, value)
		return nil
	}

	values, err := client.Vars(cmd.Context())
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintln(out, render.FormatPair(k, values[k]))
	}
	return nil
}
