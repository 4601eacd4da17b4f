package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
	"github.com/spf13/cobra"

	"github.com/AnatoleLucet/recon"
)

// RunOptions holds flags of the run command.
type RunOptions struct {
	RunID string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run a scenario and print its reconcile trace",
		Long: `Mount the nodes declared by a scenario on the in-memory host, run each
step as one batch, and print every render, callback and ref in the order
the scheduler produced them.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(rootOpts, opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.RunID, "run-id", "", "run id stamped on the trace (default: a new UUIDv7)")

	return cmd
}

func runRun(rootOpts *RootOptions, opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    rootOpts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   rootOpts.Verbose,
	}

	scenario, err := LoadScenario(path)
	if err != nil {
		return outputLoadError(formatter, err)
	}

	runID := opts.RunID
	if runID == "" {
		runID = uuid.Must(uuid.NewV7()).String()
	}

	formatter.VerboseLog("Running scenario %s (%d nodes, %d steps)", scenario.Name, len(scenario.Nodes), len(scenario.Steps))

	var schedulerOpts []recon.Option
	if formatter.Verbose {
		schedulerOpts = append(schedulerOpts,
			recon.WithLogger(newLogger(formatter.GetErrWriter(), logiface.LevelDebug)),
			recon.WithTiming(true),
			recon.WithDiagnosticRates(diagnosticRates),
		)
	}

	result, err := RunScenario(scenario, schedulerOpts...)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitFailure, "scenario failed", err)
	}

	if formatter.Format == "json" {
		writeJSONTrace(formatter.Writer, runID, scenario, result)
		return nil
	}

	fmt.Fprintf(formatter.Writer, "scenario %s, run %s\n", scenario.Name, runID)
	for _, entry := range result.Trace {
		fmt.Fprintln(formatter.Writer, entry)
	}
	fmt.Fprintf(formatter.Writer, "markup: %s\n", result.Markup)

	return nil
}

// writeJSONTrace writes one JSON object per trace entry, then the markup.
func writeJSONTrace(w io.Writer, runID string, scenario *Scenario, result *Result) {
	logger := newLogger(w, logiface.LevelInformational)

	for _, entry := range result.Trace {
		logger.Info().
			Str("run_id", runID).
			Str("scenario", scenario.Name).
			Int("step", entry.Step).
			Uint64("pass", entry.Pass).
			Str("node", entry.Node).
			Log(entry.Event)
	}

	logger.Info().
		Str("run_id", runID).
		Str("scenario", scenario.Name).
		Str("markup", result.Markup).
		Log("done")
}

// newLogger returns a JSON logger without timestamps, so output is stable.
func newLogger(w io.Writer, level logiface.Level) *logiface.Logger[logiface.Event] {
	return stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(w), stumpy.WithTimeField(``)),
		stumpy.L.WithLevel(level),
	).Logger()
}

func outputLoadError(formatter *OutputFormatter, err error) error {
	var invalid *ValidationErrors
	switch {
	case errors.As(err, &invalid):
		_ = formatter.Error(ErrCodeInvalid, "invalid scenario", invalid.Errors)
		return WrapExitError(ExitFailure, ErrCodeInvalid, err)

	case errors.Is(err, os.ErrNotExist):
		_ = formatter.Error(ErrCodeNotFound, "scenario file not found", nil)
		return WrapExitError(ExitCommandError, ErrCodeNotFound, err)
	}

	_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
	return WrapExitError(ExitCommandError, ErrCodeGeneric, err)
}

// diagnosticRates are the CLI's limits on advisory diagnostics, looser than
// the library default since runs are short.
var diagnosticRates = map[time.Duration]int{
	time.Second: 100,
}
