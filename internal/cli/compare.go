package cli

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/yudai/gojsondiff"
	"github.com/yudai/gojsondiff/formatter"

	"github.com/roach88/hartcheck/internal/report"
	"github.com/roach88/hartcheck/internal/store"
)

// CompareOptions holds flags for the compare command.
type CompareOptions struct {
	*RootOptions
	Database string
	Color    bool
}

// CompareResult is the JSON form of a comparison.
type CompareResult struct {
	Left      string `json:"left"`
	Right     string `json:"right"`
	Identical bool   `json:"identical"`
	Diff      string `json:"diff,omitempty"`
}

// NewCompareCommand creates the compare command.
func NewCompareCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompareOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compare [<run-a> <run-b>]",
		Short: "Diff the outcome vectors of two recorded runs",
		Long: `Compare the per-case status of two recorded runs. Without arguments the
two most recent runs are compared. The exit status is 1 when the outcome
vectors differ.`,
		Args:          cobra.RangeArgs(0, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return NewExitError(ExitCommandError, "compare takes zero or two run ids")
			}
			return runCompare(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().BoolVar(&opts.Color, "color", false, "colour the diff")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runCompare(opts *CompareOptions, args []string, cmd *cobra.Command) error {
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	st, err := openExisting(opts.Database)
	if err != nil {
		return out.Fail(ErrCodeDatabase, err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			newLogger(opts.RootOptions, cmd.ErrOrStderr()).Error("error closing database", "error", closeErr)
		}
	}()

	ids := args
	if len(ids) == 0 {
		recent, err := st.ListRuns(cmd.Context(), 2)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
		if len(recent) < 2 {
			return NewExitError(ExitCommandError, "need at least two recorded runs to compare")
		}
		ids = []string{recent[1].ID, recent[0].ID}
	}

	left, err := getRun(cmd, st, ids[0])
	if err != nil {
		return out.Fail(ErrCodeNotFound, err)
	}
	right, err := getRun(cmd, st, ids[1])
	if err != nil {
		return out.Fail(ErrCodeNotFound, err)
	}

	diff, identical, err := diffOutcomes(left, right, opts.Color)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to diff runs", err)
	}

	res := CompareResult{Left: left.ID, Right: right.ID, Identical: identical, Diff: diff}
	if opts.Format == "json" {
		if err := out.Success(res); err != nil {
			return err
		}
	} else if identical {
		fmt.Fprintf(out.Writer, "%s and %s have identical outcome vectors (digest %s)\n",
			left.ID, right.ID, shortDigest(left.Digest))
	} else {
		fmt.Fprintf(out.Writer, "--- %s\n+++ %s\n%s", left.ID, right.ID, diff)
	}

	if !identical {
		return NewExitError(ExitFailure, "outcome vectors differ")
	}
	return nil
}

func getRun(cmd *cobra.Command, st *store.Store, id string) (*report.Run, error) {
	run, err := st.GetRun(cmd.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("run %q not found", id), err)
	}
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to read run", err)
	}
	return run, nil
}

// statusObject keys each case's status by its position in the run and its
// name.
func statusObject(run *report.Run) map[string]any {
	obj := make(map[string]any, len(run.Outcomes))
	for _, o := range run.Outcomes {
		obj[fmt.Sprintf("%02d %s", o.Index, o.Name)] = o.Status
	}
	return obj
}

// diffOutcomes renders the ASCII diff of two runs' outcome vectors.
func diffOutcomes(left, right *report.Run, color bool) (string, bool, error) {
	leftObj := statusObject(left)
	leftJSON, err := json.Marshal(leftObj)
	if err != nil {
		return "", false, err
	}
	rightJSON, err := json.Marshal(statusObject(right))
	if err != nil {
		return "", false, err
	}

	delta, err := gojsondiff.New().Compare(leftJSON, rightJSON)
	if err != nil {
		return "", false, err
	}
	if !delta.Modified() {
		return "", true, nil
	}

	var leftAny map[string]interface{}
	if err := json.Unmarshal(leftJSON, &leftAny); err != nil {
		return "", false, err
	}
	f := formatter.NewAsciiFormatter(leftAny, formatter.AsciiFormatterConfig{Coloring: color})
	diff, err := f.Format(delta)
	if err != nil {
		return "", false, err
	}
	return diff, false, nil
}
