package cmd

import (
	"github.com/spf13/cobra"

	"github.com/dot-scm/dot/application"
)

//nolint:gochecknoglobals // required by cobra CLI pattern
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the status of the parent and every bound hidden repository",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		return invoke(func(orchestrator *application.Orchestrator) error {
			return orchestrator.Status(options())
		})
	},
}

//nolint:gochecknoinits // required by cobra CLI pattern
func init() {
	rootCmd.AddCommand(statusCmd)
}
