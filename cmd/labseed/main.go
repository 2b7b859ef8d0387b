// Package main provides the labseed CLI for interpreting lab provisioning
// descriptors.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/opslab/labseed/pkg/metadata"
	"github.com/opslab/labseed/pkg/render"
	"github.com/opslab/labseed/pkg/vars"
)

// version is set via -ldflags during build
var version = "dev"

func main() {
	rootCmd := newRootCmd()

	// Cobra handles error printing
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd creates the root command for labseed
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "labseed",
		Short: "Lab Provisioning Descriptor Interpreter",
		Long: `labseed interprets declarative machine-setup descriptors for lab hosts.

It renders placeholder templates against a variable mapping, executes the
provisioning phases in fixed order (boot commands, user creation, package
installation, run commands, final message), queries the cloud metadata
endpoint for instance identity, and checks the lab's compose service
topology.`,
		Version: version,
	}

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (trace, debug, info, warn, error)")

	rootCmd.AddCommand(
		newRenderCmd(),
		newApplyCmd(),
		newValidateCmd(),
		newTopologyCmd(),
		newMetadataCmd(),
	)

	return rootCmd
}

// newLogger builds the process logger from the persistent log-level flag.
func newLogger(cmd *cobra.Command) hclog.Logger {
	level, _ := cmd.Flags().GetString("log-level")
	return hclog.New(&hclog.LoggerOptions{
		Name:  "labseed",
		Level: hclog.LevelFromString(level),
	})
}

// varFlags are the variable-source flags shared by render, apply, and
// validate. Later sources win: var file, then metadata, then --var pairs.
type varFlags struct {
	pairs       []string
	file        string
	useMetadata bool
	metadataURL string
}

func (f *varFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVar(&f.pairs, "var", nil, "Placeholder value as key=value (repeatable)")
	cmd.Flags().StringVar(&f.file, "var-file", "", "Shell-style key=value file with placeholder values")
	cmd.Flags().BoolVar(&f.useMetadata, "metadata", false, "Pull hostname/address variables from the cloud metadata endpoint")
	cmd.Flags().StringVar(&f.metadataURL, "metadata-url", "", "Metadata endpoint base URL (default "+metadata.DefaultBaseURL+")")
}

func (f *varFlags) collect(ctx context.Context, logger hclog.Logger) (render.Vars, error) {
	merged := make(render.Vars)

	if f.file != "" {
		fromFile, err := vars.LoadFile(f.file)
		if err != nil {
			return nil, err
		}
		merged = render.Merge(merged, fromFile)
	}

	if f.useMetadata {
		client := metadata.NewClient(f.metadataURL, logger)
		fromMetadata, err := client.Vars(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to query metadata endpoint: %w", err)
		}
		merged = render.Merge(merged, fromMetadata)
	}

	fromFlags, err := vars.ParsePairs(f.pairs)
	if err != nil {
		return nil, err
	}
	return render.Merge(merged, fromFlags), nil
}
