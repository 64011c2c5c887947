package config

import (
	"fmt"
	"strings"
	"time"
)

// Config represents the full application configuration. It is built once
// at startup and passed explicitly into every component constructor.
type Config struct {
	Bitbucket BitbucketConfig `mapstructure:"bitbucket"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// BitbucketConfig identifies the account and the target repository. All
// four identity fields are required; the process refuses to start
// without them.
type BitbucketConfig struct {
	Username    string `mapstructure:"username"`
	AppPassword string `mapstructure:"appPassword"`
	Workspace   string `mapstructure:"workspace"`
	RepoSlug    string `mapstructure:"repoSlug"`

	// BaseURL overrides the Bitbucket Cloud API host (for testing).
	BaseURL string `mapstructure:"baseURL"`
}

// HTTPConfig holds HTTP client settings.
type HTTPConfig struct {
	// Timeout bounds a single request to Bitbucket.
	Timeout string `mapstructure:"timeout"`

	// OperationTimeout bounds one whole tool invocation including its
	// sub-fetches, so a slow upstream cannot stall an operation
	// indefinitely.
	OperationTimeout string `mapstructure:"operationTimeout"`

	// MaxConcurrentFetches bounds the per-item fan-out (commit diffs,
	// pipeline commit lookups).
	MaxConcurrentFetches int `mapstructure:"maxConcurrentFetches"`
}

// LoggingConfig configures the structured stderr logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, error
	Format string `mapstructure:"format"` // json, human
}

// Validate checks that the configuration is complete enough to serve.
// Any missing credential or repository field is a fatal startup
// condition.
func (c Config) Validate() error {
	var missing []string
	if c.Bitbucket.Username == "" {
		missing = append(missing, "BITBUCKET_USERNAME")
	}
	if c.Bitbucket.AppPassword == "" {
		missing = append(missing, "BITBUCKET_APP_PASSWORD")
	}
	if c.Bitbucket.Workspace == "" {
		missing = append(missing, "BITBUCKET_WORKSPACE")
	}
	if c.Bitbucket.RepoSlug == "" {
		missing = append(missing, "BITBUCKET_REPO_SLUG")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	if _, err := c.RequestTimeout(); err != nil {
		return fmt.Errorf("invalid http.timeout: %w", err)
	}
	if _, err := c.OperationTimeout(); err != nil {
		return fmt.Errorf("invalid http.operationTimeout: %w", err)
	}
	return nil
}

// RequestTimeout parses the per-request timeout.
func (c Config) RequestTimeout() (time.Duration, error) {
	return time.ParseDuration(c.HTTP.Timeout)
}

// OperationTimeout parses the per-operation timeout.
func (c Config) OperationTimeout() (time.Duration, error) {
	return time.ParseDuration(c.HTTP.OperationTimeout)
}
