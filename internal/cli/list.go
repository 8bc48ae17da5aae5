package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/xlab/treeprint"

	"github.com/roach88/hartcheck/internal/catalog"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Profile string
	Filter  string
}

// CaseInfo describes one catalog entry for the JSON listing.
type CaseInfo struct {
	Index     int    `json:"index"`
	Name      string `json:"name"`
	Component string `json:"component"`
	Applies   bool   `json:"applies"`
	Reason    string `json:"reason,omitempty"`
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the catalog grouped by component",
		Long: `Show every case of the catalog in run order, grouped by the component
it exercises. Cases that do not apply to the profile's device are marked
with the reason they would be skipped.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Profile, "profile", "p", "", "path to a profile YAML (default: built-in profile)")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "only list cases whose name matches this glob")

	return cmd
}

func runList(opts *ListOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	p, err := loadProfile(opts.Profile)
	if err != nil {
		return formatter.Fail(ErrCodeProfile, WrapExitError(ExitCommandError, "failed to load profile", err))
	}
	caps := probe(p, newLogger(opts.RootOptions, cmd.ErrOrStderr()))

	all := catalog.Cases()
	index := make(map[string]int, len(all))
	for i, c := range all {
		index[c.Name] = i + 1
	}
	cases, err := catalog.Filter(all, opts.Filter)
	if err != nil {
		return formatter.Fail(ErrCodeFilter, WrapExitError(ExitCommandError, "invalid filter", err))
	}

	infos := make([]CaseInfo, len(cases))
	for i, c := range cases {
		info := CaseInfo{Index: index[c.Name], Name: c.Name, Component: c.Component, Applies: true}
		if c.Applies != nil && !c.Applies(caps) {
			info.Applies = false
			info.Reason = c.SkipReason
		}
		infos[i] = info
	}

	if opts.Format == "json" {
		return formatter.Success(infos)
	}

	tree := treeprint.NewWithRoot(fmt.Sprintf("catalog (%s, %s)", p.Name, caps.ISA()))
	branches := make(map[string]treeprint.Tree)
	for _, info := range infos {
		branch, ok := branches[info.Component]
		if !ok {
			branch = tree.AddBranch(info.Component)
			branches[info.Component] = branch
		}
		label := fmt.Sprintf("[%d] %s", info.Index, info.Name)
		if !info.Applies {
			reason := info.Reason
			if reason == "" {
				reason = "n.a."
			}
			label += fmt.Sprintf(" (skipped: %s)", reason)
		}
		branch.AddNode(label)
	}
	fmt.Fprint(cmd.OutOrStdout(), tree.String())
	return nil
}
