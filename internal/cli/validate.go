package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ValidationResult is the JSON payload of the validate command.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Scenario string   `json:"scenario,omitempty"`
	Errors   []string `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <scenario.yaml>",
		Short: "Validate a scenario without running it",
		Long: `Parse a scenario file, rejecting unknown fields, and check that node names
are unique and that every cascade target and step refers to a declared node.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	scenario, err := LoadScenario(path)
	if err != nil && !IsValidationError(err) {
		return outputLoadError(formatter, err)
	}

	var errs []string
	if scenario != nil {
		formatter.VerboseLog("Validating scenario %s from %s", scenario.Name, path)
		errs = scenario.Validate()
	}

	if len(errs) > 0 {
		return outputValidationErrors(formatter, scenario.Name, errs)
	}

	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Scenario: scenario.Name})
	}

	fmt.Fprintf(formatter.Writer, "✓ Scenario %s valid\n", scenario.Name)
	return nil
}

func outputValidationErrors(formatter *OutputFormatter, name string, errs []string) error {
	if formatter.Format == "json" {
		_ = formatter.Error(ErrCodeInvalid, errs[0], ValidationResult{
			Valid:    false,
			Scenario: name,
			Errors:   errs,
		})
	} else {
		fmt.Fprintln(formatter.Writer, "✗ Validation failed")
		fmt.Fprintln(formatter.Writer)
		for _, e := range errs {
			fmt.Fprintf(formatter.Writer, "  %s: %s\n", ErrCodeInvalid, e)
		}
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
