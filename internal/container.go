// Package internal wires the application together through a DIG container.
package internal

import (
	"context"
	"fmt"
	"os"

	logger "github.com/sirupsen/logrus"
	"go.uber.org/dig"

	"github.com/dot-scm/dot/application"
	"github.com/dot-scm/dot/config"
	"github.com/dot-scm/dot/domain"
	"github.com/dot-scm/dot/index"
	"github.com/dot-scm/dot/infrastructure/github"
	"github.com/dot-scm/dot/infrastructure/gogit"
)

// RegisterProviders registers all layers with the DIG container
// (bottom-up: config -> backend -> hosting -> index -> orchestrator).
// Construction is lazy, so a command only pays for the pieces it invokes.
func RegisterProviders(container *dig.Container) error {
	providers := []any{
		config.Load,
		gogit.New,
		NewHosting,
		NewIndex,
		NewOrchestrator,
	}
	for _, provider := range providers {
		if err := container.Provide(provider); err != nil {
			return fmt.Errorf("failed to register a provider: %w", err)
		}
	}
	return nil
}

// NewHosting builds the GitHub hosting client from the configured token. A
// missing token is not fatal here: commands that never touch the hosting API
// still work, and the API reports the authentication failure otherwise.
func NewHosting(cfg *config.Config) domain.Hosting {
	token, err := cfg.Token()
	if err != nil {
		logger.Debugf("No hosting token configured: %v", err)
		return github.New("")
	}
	return github.New(token)
}

// NewIndex opens the project index for the configured default organization.
func NewIndex(backend domain.Backend, cfg *config.Config) (domain.Index, error) {
	return index.New(context.Background(), backend, cfg.IndexDir(), cfg.DefaultOrganization)
}

// NewOrchestrator roots the orchestrator in the current working directory.
func NewOrchestrator(
	backend domain.Backend,
	hosting domain.Hosting,
	idx domain.Index,
	cfg *config.Config,
) (*application.Orchestrator, error) {
	workDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve the working directory: %w", err)
	}
	return application.NewOrchestrator(backend, hosting, idx, cfg, workDir, os.Stdout), nil
}
