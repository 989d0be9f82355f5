package cmd

import (
	"github.com/spf13/cobra"

	"github.com/dot-scm/dot/application"
)

//nolint:gochecknoglobals // required by cobra CLI pattern
var commitMessage string

//nolint:gochecknoglobals // required by cobra CLI pattern
var commitCmd = &cobra.Command{
	Use:   "commit",
	Short: "Commit the staged trees of the parent and every bound hidden repository",
	Args:  cobra.NoArgs,
	RunE: func(command *cobra.Command, _ []string) error {
		return invoke(func(orchestrator *application.Orchestrator) error {
			return orchestrator.Commit(command.Context(), commitMessage, options())
		})
	},
}

//nolint:gochecknoinits // required by cobra CLI pattern
func init() {
	commitCmd.Flags().StringVarP(&commitMessage, "message", "m", "", "Commit message")
	_ = commitCmd.MarkFlagRequired("message")
	rootCmd.AddCommand(commitCmd)
}
