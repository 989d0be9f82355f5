package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/dot-scm/dot/config"
	"github.com/dot-scm/dot/domain"
	"github.com/dot-scm/dot/setup"
)

//nolint:gochecknoglobals // required by cobra CLI pattern
var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Run the interactive first-run wizard",
	Long: `Configure dot: discover your git identity, pick the organization that
holds hidden repositories, store the hosting token, and bootstrap the shared
project index. Setup is the only command that runs without a configuration.`,
	Args: cobra.NoArgs,
	RunE: func(command *cobra.Command, _ []string) error {
		return invoke(func(backend domain.Backend, cfg *config.Config) error {
			return setup.New(backend, cfg, os.Stdin, os.Stdout).Run(command.Context())
		})
	},
}

//nolint:gochecknoinits // required by cobra CLI pattern
func init() {
	rootCmd.AddCommand(setupCmd)
}
