// Package cli provides the cobra command surface for the server process.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// ErrVersionRequested indicates the user requested the version and no
// further work should be done.
var ErrVersionRequested = errors.New("version requested")

// StdioServer defines the dependency required to run the serve command.
type StdioServer interface {
	ServeStdio(ctx context.Context) error
}

// Arguments encapsulates IO writers injected from the host process.
type Arguments struct {
	OutWriter io.Writer
	ErrWriter io.Writer
}

// Dependencies captures the collaborators for the CLI.
type Dependencies struct {
	Server  StdioServer
	Args    Arguments
	Version string
}

// NewRootCommand constructs the root cobra command. Running the root (or
// the explicit serve subcommand) starts the MCP server on stdio.
func NewRootCommand(deps Dependencies) *cobra.Command {
	versionString := deps.Version
	if versionString == "" {
		versionString = "v0.0.0"
	}

	root := &cobra.Command{
		Use:   "bitbucket-mcp",
		Short: "MCP server exposing Bitbucket pull request and pipeline tools",
	}
	root.SilenceUsage = true
	root.SilenceErrors = true

	outWriter := deps.Args.OutWriter
	if outWriter == nil {
		outWriter = os.Stdout
	}
	errWriter := deps.Args.ErrWriter
	if errWriter == nil {
		errWriter = os.Stderr
	}
	root.SetOut(outWriter)
	root.SetErr(errWriter)

	serve := func(cmd *cobra.Command, args []string) error {
		return deps.Server.ServeStdio(cmd.Context())
	}

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Serve MCP over stdio",
		RunE:  serve,
	})

	var showVersion bool
	root.PersistentFlags().BoolVarP(&showVersion, "version", "v", false, "Show version and exit")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if showVersion {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), versionString)
			return ErrVersionRequested
		}
		return nil
	}
	root.RunE = serve

	return root
}
