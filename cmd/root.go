// Package cmd defines the dot command surface.
package cmd

import (
	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.uber.org/dig"

	"github.com/dot-scm/dot/application"
	"github.com/dot-scm/dot/internal"
)

//nolint:gochecknoglobals // required by cobra CLI pattern
var (
	// Global flags
	skipHidden bool
	noAtomic   bool
	verbose    bool
)

//nolint:gochecknoglobals // required by cobra CLI pattern
var rootCmd = &cobra.Command{
	Use:   "dot",
	Short: "Multi-repository git orchestration with hidden repositories",
	Long: `dot lets a parent repository travel with hidden repositories rooted in its
subdirectories, each version-controlled independently and excluded from the
parent's history.

Commands apply to every bound repository at once: hidden repositories are
operated on before the parent, and in atomic mode (the default) a failure
rolls back everything completed so far.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if verbose {
			logger.SetLevel(logger.DebugLevel)
		}
	},
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

//nolint:gochecknoinits // required by cobra CLI pattern
func init() {
	rootCmd.PersistentFlags().BoolVar(
		&skipHidden, "skip-hidden", false,
		"Operate on the parent repository only",
	)
	rootCmd.PersistentFlags().BoolVar(
		&noAtomic, "no-atomic", false,
		"Keep going after failures instead of rolling back",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&verbose, "verbose", "v", false,
		"Enable verbose output",
	)
}

// options maps the global flags onto a single command invocation.
func options() application.Options {
	return application.Options{SkipHidden: skipHidden, Atomic: !noAtomic}
}

// invoke builds a fresh container and runs fn with its dependencies resolved.
func invoke(fn any) error {
	container := dig.New()
	if err := internal.RegisterProviders(container); err != nil {
		return err
	}
	if err := container.Invoke(fn); err != nil {
		// Strip dig's wrapping so the user sees the actual failure.
		return dig.RootCause(err)
	}
	return nil
}
