package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	logger "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	dirName      = ".dot"
	fileName     = "config.yaml"
	indexDirName = ".index"
)

// ErrMissingToken reports a hosting token that is neither configured inline
// nor resolvable from the environment.
var ErrMissingToken = errors.New("no hosting token configured")

// UnauthorizedOrganizationError reports an organization that is not in the
// authorized list.
type UnauthorizedOrganizationError struct {
	Org string
}

func (e *UnauthorizedOrganizationError) Error() string {
	return fmt.Sprintf("organization %q is not in the authorized list", e.Org)
}

// Config is the top-level configuration for dot, stored in the dot directory
// under the user's home.
type Config struct {
	AuthorizedOrganizations []string `yaml:"authorized_organizations"`
	DefaultOrganization     string   `yaml:"default_organization"`
	GitHubToken             string   `yaml:"github_token"` // Inline, ${ENV_VAR}, or file path

	dir string
}

// envVarPattern matches ${VAR_NAME} placeholders.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)}`)

// Load reads the configuration from the dot directory under the user's home.
// A missing config file yields defaults, so commands can point the user at
// setup instead of failing outright.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve the home directory: %w", err)
	}
	return LoadFrom(filepath.Join(home, dirName))
}

// LoadFrom reads the configuration rooted at an explicit dot directory.
func LoadFrom(dir string) (*Config, error) {
	cfg := &Config{dir: dir}

	data, err := os.ReadFile(filepath.Join(dir, fileName))
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if unmarshalErr := yaml.Unmarshal(data, cfg); unmarshalErr != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", unmarshalErr)
	}
	return cfg, nil
}

// Save writes the configuration to disk, creating the dot directory if needed.
func (c *Config) Save() error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create the config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}
	if writeErr := os.WriteFile(filepath.Join(c.dir, fileName), data, 0o600); writeErr != nil {
		return fmt.Errorf("failed to write config file: %w", writeErr)
	}
	return nil
}

// Dir returns the dot directory holding the config file and the index clone.
func (c *Config) Dir() string { return c.dir }

// Path returns the config file location.
func (c *Config) Path() string { return filepath.Join(c.dir, fileName) }

// IndexDir returns the directory of the local index repository clone.
func (c *Config) IndexDir() string { return filepath.Join(c.dir, indexDirName) }

// Token resolves the configured hosting token, expanding ${ENV_VAR}
// references and reading token files.
func (c *Config) Token() (string, error) {
	resolved := resolveToken(c.GitHubToken)
	if resolved == "" {
		return "", ErrMissingToken
	}
	return resolved, nil
}

// IsAuthorized reports whether org is in the authorized organization list.
func (c *Config) IsAuthorized(org string) bool {
	return slices.Contains(c.AuthorizedOrganizations, org)
}

// resolveToken expands environment variable references (${VAR}) and, if the
// resulting string is a path to an existing file, reads the token from the file.
func resolveToken(raw string) string {
	if raw == "" {
		return raw
	}

	// Expand ${ENV_VAR} references
	resolved := envVarPattern.ReplaceAllStringFunc(raw, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		logger.Warnf("Environment variable %q is not set", varName)
		return ""
	})

	// If the resolved value is a path to an existing file, read the token from it
	if _, statErr := os.Stat(resolved); statErr == nil {
		data, readErr := os.ReadFile(resolved)
		if readErr != nil {
			logger.Warnf("Failed to read token file %q: %v", resolved, readErr)
			return resolved
		}
		return strings.TrimSpace(string(data))
	}

	return resolved
}
