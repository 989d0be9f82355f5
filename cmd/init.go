package cmd

import (
	"github.com/spf13/cobra"

	"github.com/dot-scm/dot/application"
)

//nolint:gochecknoglobals // required by cobra CLI pattern
var initCmd = &cobra.Command{
	Use:   "init <directory>...",
	Short: "Bind hidden repositories to the parent repository",
	Long: `Create one hidden repository per directory: the directory gets a
self-ignoring .gitignore committed into the parent's tree, a private remote
repository under the configured organization, and a registration in the
shared project index.

Fails before any mutation when one of the directories is already registered.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(command *cobra.Command, args []string) error {
		return invoke(func(orchestrator *application.Orchestrator) error {
			return orchestrator.Init(command.Context(), args, options())
		})
	},
}

//nolint:gochecknoinits // required by cobra CLI pattern
func init() {
	rootCmd.AddCommand(initCmd)
}
