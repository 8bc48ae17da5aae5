package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// CapsOptions holds flags for the caps command.
type CapsOptions struct {
	*RootOptions
	Profile string
}

// NewCapsCommand creates the caps command.
func NewCapsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CapsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "caps",
		Short: "Probe and print the capability set of the device",
		Long: `Probe the device a profile describes the same way a run does and print
the capability set the catalog's applicability predicates see.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCaps(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Profile, "profile", "p", "", "path to a profile YAML (default: built-in profile)")

	return cmd
}

func runCaps(opts *CapsOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	p, err := loadProfile(opts.Profile)
	if err != nil {
		return formatter.Fail(ErrCodeProfile, WrapExitError(ExitCommandError, "failed to load profile", err))
	}
	caps := probe(p, newLogger(opts.RootOptions, cmd.ErrOrStderr()))

	if opts.Format == "json" {
		return formatter.Success(caps)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "ISA:             %s\n", caps.ISA())
	fmt.Fprintf(w, "HPM counters:    %d\n", caps.HPMCounters)
	fmt.Fprintf(w, "PMP regions:     %d\n", caps.PMPRegions)
	if caps.PMPRegions > 0 {
		fmt.Fprintf(w, "PMP granularity: %d bytes\n", caps.PMPGranularity)
	}
	fmt.Fprintf(w, "Data space:      0x%08x\n", caps.DSpaceBase)
	fmt.Fprintf(w, "Peripherals:     %s\n", strings.Join(caps.Peripherals(), ", "))
	return nil
}
