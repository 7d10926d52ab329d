package app

import (
	"github.com/spf13/cobra"
)

// NewRootCommand creates the root command for the clonewatch tool.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clonewatch",
		Short: "Recurring-vulnerability clone detector for C/C++ codebases.",
		Long: `clonewatch scans a C/C++ project for functions that are clones of
known-vulnerable functions, cascading each candidate through a Bloom-filter
prefilter, a token-Jaccard filter, an AST/line-hash syntax filter, and
(optionally) an external taint-flow/embedding confirmation stage.`,
	}

	cmd.AddCommand(NewDetectCommand())

	return cmd
}
