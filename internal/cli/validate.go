package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/hartcheck/internal/profile"
)

// ProfileResult is the validation outcome of one profile file.
type ProfileResult struct {
	Path   string   `json:"path"`
	Name   string   `json:"name,omitempty"`
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <profile.yaml>...",
		Short: "Validate profiles without running the catalog",
		Long: `Decode each profile strictly and check it against the profile schema.

Unknown fields, out-of-range values and PMP granularities that are not a
power of two are reported. The exit status is 1 when any profile is invalid.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	results := make([]ProfileResult, len(paths))
	invalid := 0
	for i, path := range paths {
		formatter.VerboseLog("Validating profile: %s", path)
		results[i] = validateProfile(path)
		if !results[i].Valid {
			invalid++
		}
	}

	if opts.Format == "json" {
		if err := formatter.Success(results); err != nil {
			return err
		}
	} else {
		w := formatter.Writer
		for _, r := range results {
			if r.Valid {
				fmt.Fprintf(w, "✓ %s (%s)\n", r.Path, r.Name)
				continue
			}
			fmt.Fprintf(w, "✗ %s\n", r.Path)
			for _, e := range r.Errors {
				fmt.Fprintf(w, "  %s\n", e)
			}
		}
	}

	if invalid > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d profile(s) invalid", invalid, len(paths)))
	}
	return nil
}

func validateProfile(path string) ProfileResult {
	p, err := profile.Load(path)
	if err == nil {
		return ProfileResult{Path: path, Name: p.Name, Valid: true}
	}
	r := ProfileResult{Path: path}
	var ve *profile.ValidationError
	if errors.As(err, &ve) {
		r.Errors = ve.Issues
	} else {
		r.Errors = []string{err.Error()}
	}
	return r
}
