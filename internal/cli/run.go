package cli

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/roach88/hartcheck/internal/catalog"
	"github.com/roach88/hartcheck/internal/harness"
	"github.com/roach88/hartcheck/internal/profile"
	"github.com/roach88/hartcheck/internal/report"
	"github.com/roach88/hartcheck/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Profile  string
	Database string
	Filter   string
	Repeat   int
	Progress bool

	// IDs allows overriding the run id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDs report.IDGenerator
	// Now allows overriding the clock (for testing). If nil, time.Now.
	Now func() time.Time
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

// newRunCommand builds the command around opts so tests can inject the id
// generator and clock.
func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the processor check catalog",
		Long: `Run every applicable case of the catalog against a freshly reset device.

Prints one line per case and a two-line summary. The exit status is the
number of failed cases; 255 means the run was aborted.

Example:
  hartcheck run
  hartcheck run --profile faulty.yaml --db ./hartcheck.db
  hartcheck run --filter 'pmp *' --repeat 3 -v`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("repeat") {
				opts.Repeat = 0
			}
			return runCatalog(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Profile, "profile", "p", "", "path to a profile YAML (default: built-in profile)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database to record the run in")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "only run cases whose name matches this glob")
	cmd.Flags().IntVar(&opts.Repeat, "repeat", 1, "run the catalog on this many freshly reset devices")
	cmd.Flags().BoolVar(&opts.Progress, "progress", false, "show a progress bar on stderr")

	return cmd
}

func runCatalog(opts *RunOptions, cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()
	logger := newLogger(opts.RootOptions, errOut)

	p, err := loadProfile(opts.Profile)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load profile", err)
	}
	if opts.Filter != "" {
		p.Run.Filter = opts.Filter
	}
	if opts.Repeat != 0 {
		p.Run.Repeat = opts.Repeat
	}
	if err := profile.Validate(p); err != nil {
		return WrapExitError(ExitCommandError, "invalid run settings", err)
	}

	cases, err := catalog.Filter(catalog.Cases(), p.Run.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid filter", err)
	}

	ids := opts.IDs
	if ids == nil {
		ids = report.UUIDv7Generator{}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	var st *store.Store
	if opts.Database != "" {
		st, err = store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
	}

	// The line report is the text output; JSON output replaces it.
	lines := out
	if opts.Format == "json" {
		lines = io.Discard
	}

	var runs []report.Run
	for rep := 1; rep <= p.Run.Repeat; rep++ {
		if p.Run.Repeat > 1 {
			fmt.Fprintf(lines, "== repetition %d/%d ==\n", rep, p.Run.Repeat)
		}

		startedAt := now()
		res, env := executeOnce(opts, p, cases, lines, errOut, logger)
		if opts.Verbose {
			catalog.CounterReport(env, lines)
		}

		run := report.Run{
			ID:        ids.Generate(),
			StartedAt: startedAt,
			Profile:   p.Name,
			Device:    env.Caps.String(),
			Outcomes:  res.ReportOutcomes(),
		}
		if res.Aborted != nil {
			run.Aborted = res.Aborted.Error()
		}
		if err := run.Seal(); err != nil {
			return WrapExitError(ExitCommandError, "failed to seal run", err)
		}
		logger.Info("run complete", "id", run.ID, "digest", run.Digest, "failed", run.Failed)

		if st != nil {
			if err := st.WriteRun(cmd.Context(), run); err != nil {
				return WrapExitError(ExitCommandError, "failed to record run", err)
			}
		}
		runs = append(runs, run)

		if res.Aborted != nil {
			break
		}
	}

	if opts.Format == "json" {
		if err := writeRunsJSON(out, runs); err != nil {
			return WrapExitError(ExitCommandError, "failed to encode runs", err)
		}
	}

	return runExit(runs)
}

// executeOnce runs cases on a freshly reset device.
func executeOnce(opts *RunOptions, p *profile.Profile, cases []harness.Case, out, errOut io.Writer, logger *slog.Logger) (*harness.Result, *harness.Env) {
	env := newEnv(p, logger)
	env.Out = out

	runnerOpts := []harness.Option{harness.WithOutput(out)}
	if opts.Progress {
		bar := progressbar.NewOptions(len(cases),
			progressbar.OptionSetWriter(errOut),
			progressbar.OptionSetDescription("hartcheck"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
		defer bar.Close()
		runnerOpts = append(runnerOpts, harness.WithNotify(func(harness.Outcome) {
			_ = bar.Add(1)
		}))
	}

	// Aborted is carried in the result as well.
	res, _ := harness.NewRunner(env, runnerOpts...).Run(cases)
	return res, env
}

// writeRunsJSON writes one canonical JSON document per run.
func writeRunsJSON(w io.Writer, runs []report.Run) error {
	var buf bytes.Buffer
	for i := range runs {
		data, err := runs[i].Canonical()
		if err != nil {
			return err
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// runExit maps the runs to the process status: aborted beats failed, failed
// beats differing repetitions.
func runExit(runs []report.Run) error {
	last := runs[len(runs)-1]
	if last.Aborted != "" {
		return WrapExitError(ExitAborted, "run aborted", fmt.Errorf("%s", last.Aborted))
	}
	failed := 0
	for _, r := range runs {
		failed = max(failed, r.Failed)
	}
	if failed > 0 {
		return NewExitError(failedExit(failed), fmt.Sprintf("%d case(s) failed", failed))
	}
	for _, r := range runs[1:] {
		if r.Digest != runs[0].Digest {
			return NewExitError(ExitFailure, fmt.Sprintf("outcome vectors differ between repetitions: %s (%s) vs %s (%s)",
				runs[0].ID, runs[0].Digest, r.ID, r.Digest))
		}
	}
	return nil
}
