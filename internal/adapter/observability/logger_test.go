package observability_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bkyoung/bitbucket-mcp/internal/adapter/observability"
	"github.com/bkyoung/bitbucket-mcp/internal/config"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.LoggingConfig
	}{
		{name: "defaults", cfg: config.LoggingConfig{}},
		{name: "debug human", cfg: config.LoggingConfig{Level: "debug", Format: "human"}},
		{name: "error json", cfg: config.LoggingConfig{Level: "error", Format: "json"}},
		{name: "unrecognized values fall back", cfg: config.LoggingConfig{Level: "loud", Format: "xml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := observability.NewLogger(tt.cfg)
			require.NotNil(t, logger)

			// must not panic regardless of configuration
			logger.LogInfo(context.Background(), "startup", map[string]interface{}{"repo": "acme/widgets"})
			logger.LogWarning(context.Background(), "lookup failed", nil)
		})
	}
}
