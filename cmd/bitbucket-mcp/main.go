package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"golang.org/x/term"

	"github.com/bkyoung/bitbucket-mcp/internal/adapter/bitbucket"
	"github.com/bkyoung/bitbucket-mcp/internal/adapter/cli"
	"github.com/bkyoung/bitbucket-mcp/internal/adapter/httpx"
	mcpserver "github.com/bkyoung/bitbucket-mcp/internal/adapter/mcp"
	"github.com/bkyoung/bitbucket-mcp/internal/adapter/observability"
	"github.com/bkyoung/bitbucket-mcp/internal/config"
	"github.com/bkyoung/bitbucket-mcp/internal/usecase/comments"
	"github.com/bkyoung/bitbucket-mcp/internal/usecase/enrich"
	"github.com/bkyoung/bitbucket-mcp/internal/usecase/pipelines"
	"github.com/bkyoung/bitbucket-mcp/internal/usecase/resolve"
	"github.com/bkyoung/bitbucket-mcp/internal/version"
)

func main() {
	if err := run(); err != nil {
		if errors.Is(err, cli.ErrVersionRequested) {
			return
		}
		log.Println(httpx.RedactURLSecrets(err.Error()))
		os.Exit(1)
	}
}

func run() error {
	// Cancellable context with signal handling for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(config.LoaderOptions{
		ConfigPaths: defaultConfigPaths(),
		FileName:    "bitbucket-mcp",
		EnvPrefix:   "BBMCP",
	})
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}
	// Incomplete credentials are fatal: the process must not accept
	// operations without them.
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config invalid: %w", err)
	}

	logger := observability.NewLogger(cfg.Logging)

	// The MCP transport owns stdout and expects a client on stdin.
	if term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprintln(os.Stderr, "warning: stdin is a terminal; bitbucket-mcp speaks MCP over stdio and will block waiting for protocol input")
	}

	requestTimeout, err := cfg.RequestTimeout()
	if err != nil {
		return fmt.Errorf("config invalid: %w", err)
	}
	operationTimeout, err := cfg.OperationTimeout()
	if err != nil {
		return fmt.Errorf("config invalid: %w", err)
	}

	client := bitbucket.NewClient(bitbucket.ClientConfig{
		Username:    cfg.Bitbucket.Username,
		AppPassword: cfg.Bitbucket.AppPassword,
		Workspace:   cfg.Bitbucket.Workspace,
		RepoSlug:    cfg.Bitbucket.RepoSlug,
		BaseURL:     cfg.Bitbucket.BaseURL,
		Timeout:     requestTimeout,
		Logger:      logger,
	})

	enricher := enrich.NewEngine(client)
	enricher.SetConcurrency(cfg.HTTP.MaxConcurrentFetches)
	correlator := pipelines.NewCorrelator(client, logger)
	correlator.SetConcurrency(cfg.HTTP.MaxConcurrentFetches)

	srv := mcpserver.NewServer(mcpserver.Dependencies{
		Resolver:         resolve.NewResolver(client),
		Enricher:         enricher,
		Comments:         comments.NewService(client),
		Correlator:       correlator,
		PullRequests:     client,
		Pipelines:        client,
		Logger:           logger,
		OperationTimeout: operationTimeout,
	}, version.Get())

	logger.LogInfo(ctx, "starting bitbucket-mcp", map[string]interface{}{
		"version":      version.Get(),
		"workspace":    cfg.Bitbucket.Workspace,
		"repository":   cfg.Bitbucket.RepoSlug,
		"app_password": httpx.RedactCredential(cfg.Bitbucket.AppPassword),
	})

	root := cli.NewRootCommand(cli.Dependencies{
		Server:  srv,
		Version: version.Get(),
	})
	return root.ExecuteContext(ctx)
}

func defaultConfigPaths() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	return []string{filepath.Join(home, ".config", "bitbucket-mcp")}
}
