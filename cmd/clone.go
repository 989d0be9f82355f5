package cmd

import (
	"github.com/spf13/cobra"

	"github.com/dot-scm/dot/application"
)

//nolint:gochecknoglobals // required by cobra CLI pattern
var cloneCmd = &cobra.Command{
	Use:   "clone <url> [target]",
	Short: "Clone a parent repository together with its hidden repositories",
	Long: `Clone the parent repository, then look up its hidden repositories in the
project index and clone each one into its recorded directory. A hidden
repository that fails to clone is reported without aborting the others.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(command *cobra.Command, args []string) error {
		target := ""
		if len(args) > 1 {
			target = args[1]
		}
		return invoke(func(orchestrator *application.Orchestrator) error {
			return orchestrator.Clone(command.Context(), args[0], target)
		})
	},
}

//nolint:gochecknoinits // required by cobra CLI pattern
func init() {
	rootCmd.AddCommand(cloneCmd)
}
