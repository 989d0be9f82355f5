package cmd

import (
	"github.com/spf13/cobra"

	"github.com/dot-scm/dot/application"
)

//nolint:gochecknoglobals // required by cobra CLI pattern
var addCmd = &cobra.Command{
	Use:   "add <file>...",
	Short: "Stage files in the parent and every bound hidden repository",
	Long: `Stage the given paths in each repository. A literal "." stages every
change; other paths are staged only in the repositories where they exist.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(command *cobra.Command, args []string) error {
		return invoke(func(orchestrator *application.Orchestrator) error {
			return orchestrator.Add(command.Context(), args, options())
		})
	},
}

//nolint:gochecknoinits // required by cobra CLI pattern
func init() {
	rootCmd.AddCommand(addCmd)
}
