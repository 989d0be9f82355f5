package cmd

import (
	"github.com/spf13/cobra"

	"github.com/dot-scm/dot/application"
)

//nolint:gochecknoglobals // required by cobra CLI pattern
var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Push the parent and every bound hidden repository",
	Args:  cobra.NoArgs,
	RunE: func(command *cobra.Command, _ []string) error {
		return invoke(func(orchestrator *application.Orchestrator) error {
			return orchestrator.Push(command.Context(), options())
		})
	},
}

//nolint:gochecknoinits // required by cobra CLI pattern
func init() {
	rootCmd.AddCommand(pushCmd)
}
