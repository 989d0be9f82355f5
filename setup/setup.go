// Package setup implements the first-run wizard: it discovers the user's git
// identity, asks for the organization and hosting token, writes the
// configuration file, and bootstraps the project index.
package setup

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	logger "github.com/sirupsen/logrus"

	"github.com/dot-scm/dot/config"
	"github.com/dot-scm/dot/domain"
	"github.com/dot-scm/dot/index"
)

// Wizard walks the user through the initial configuration. Prompts read from
// an injected reader so tests can script the whole dialogue.
type Wizard struct {
	backend domain.Backend
	cfg     *config.Config
	in      *bufio.Reader
	out     io.Writer
}

// New creates a wizard writing into cfg's dot directory.
func New(backend domain.Backend, cfg *config.Config, in io.Reader, out io.Writer) *Wizard {
	return &Wizard{
		backend: backend,
		cfg:     cfg,
		in:      bufio.NewReader(in),
		out:     out,
	}
}

// Run executes the wizard end to end. An existing configuration is kept
// unless the user confirms overwriting it.
func (w *Wizard) Run(ctx context.Context) error {
	fmt.Fprintln(w.out, "dot setup")
	fmt.Fprintln(w.out)

	if w.cfg.DefaultOrganization != "" {
		overwrite, err := w.confirm(fmt.Sprintf(
			"A configuration for %q already exists. Overwrite it? [y/N]: ",
			w.cfg.DefaultOrganization,
		))
		if err != nil {
			return err
		}
		if !overwrite {
			fmt.Fprintln(w.out, "Keeping the existing configuration.")
			return nil
		}
	}

	username := w.discoverUsername()
	org, err := w.promptDefault(fmt.Sprintf("GitHub organization for hidden repositories [%s]: ", username), username)
	if err != nil {
		return err
	}
	if org == "" {
		return errors.New("the organization cannot be empty")
	}

	token, err := w.promptDefault("GitHub token (inline, ${ENV_VAR}, or a file path; empty to skip): ", "")
	if err != nil {
		return err
	}
	if token == "" {
		fmt.Fprintln(w.out, "No token configured; repository creation will fail until one is set.")
	}

	w.cfg.AuthorizedOrganizations = []string{org}
	w.cfg.DefaultOrganization = org
	w.cfg.GitHubToken = token
	if saveErr := w.cfg.Save(); saveErr != nil {
		return saveErr
	}
	fmt.Fprintf(w.out, "Configuration written to %s\n", w.cfg.Path())

	// Bootstrapping goes through the regular index constructor: clone the
	// organization's index repository, or start a fresh local one.
	if _, indexErr := index.New(ctx, w.backend, w.cfg.IndexDir(), org); indexErr != nil {
		return fmt.Errorf("failed to bootstrap the project index: %w", indexErr)
	}
	fmt.Fprintf(w.out, "Project index ready in %s\n", w.cfg.IndexDir())

	fmt.Fprintln(w.out)
	fmt.Fprintln(w.out, "Setup complete. Try:")
	fmt.Fprintln(w.out, "  dot init .kiro")
	fmt.Fprintln(w.out, "  dot status")
	return nil
}

// discoverUsername suggests an organization from the configured git identity.
func (w *Wizard) discoverUsername() string {
	name, email, err := w.backend.UserIdentity(".")
	if err != nil {
		logger.Debugf("Could not read the git identity: %v", err)
		return ""
	}
	fmt.Fprintf(w.out, "Git identity: %s <%s>\n", name, email)
	return name
}

func (w *Wizard) promptDefault(label, fallback string) (string, error) {
	fmt.Fprint(w.out, label)
	line, err := w.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return fallback, nil
	}
	return line, nil
}

func (w *Wizard) confirm(label string) (bool, error) {
	answer, err := w.promptDefault(label, "n")
	if err != nil {
		return false, err
	}
	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes", nil
}
