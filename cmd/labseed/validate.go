package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opslab/labseed/pkg/descriptor"
	"github.com/opslab/labseed/pkg/validation"
)

// newValidateCmd creates the validate subcommand
func newValidateCmd() *cobra.Command {
	flags := &varFlags{}

	cmd := &cobra.Command{
		Use:   "validate <descriptor>",
		Short: "Validate a provisioning descriptor",
		Long: `Validate lints a descriptor: empty commands, malformed user specs, and
(when variables are supplied) unbound placeholders.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, args[0], flags)
		},
	}

	flags.register(cmd)
	return cmd
}

func runValidate(cmd *cobra.Command, path string, flags *varFlags) error {
	logger := newLogger(cmd)
	out := cmd.OutOrStdout()

	d, err := descriptor.Load(path)
	if err != nil {
		return err
	}

	values, err := flags.collect(cmd.Context(), logger)
	if err != nil {
		return err
	}
	// without any variable source, skip placeholder binding checks
	if len(values) == 0 && !flags.useMetadata && flags.file == "" {
		values = nil
	}

	result := validation.NewValidator(values).Validate(d)

	for _, issue := range result.Issues {
		prefix := "WARNING"
		if issue.Severity == validation.SeverityError {
			prefix = "ERROR"
		}
		if issue.Field != "" {
			fmt.Fprintf(out, "[%s] %s: %s\n", prefix, issue.Field, issue.Message)
		} else {
			fmt.Fprintf(out, "[%s] %s\n", prefix, issue.Message)
		}
	}

	if result.HasErrors() {
		return fmt.Errorf("validation failed with %d error(s)", result.ErrorCount())
	}

	if len(result.Issues) == 0 {
		fmt.Fprintln(out, "Descriptor is valid.")
	} else {
		fmt.Fprintf(out, "\nValidation passed with %d warning(s).\n", result.WarningCount())
	}

	return nil
}
