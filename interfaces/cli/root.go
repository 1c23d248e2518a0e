// Package cli is the xmcdiff command tree. Every command runs through the
// same container, query bus and command bus as the HTTP API.
package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/timmarsh1987/XMCVisualiser/infrastructure/config"
	"github.com/timmarsh1987/XMCVisualiser/infrastructure/di"
	"github.com/timmarsh1987/XMCVisualiser/pkg/errors"
)

// Exit codes
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// usageError marks errors caused by how the command was invoked
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func usage(err error) error {
	if err == nil {
		return nil
	}
	return &usageError{err: err}
}

// ExitCode maps a command error to the process exit code
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var ue *usageError
	if stderrors.As(err, &ue) || errors.IsValidation(err) {
		return ExitUsage
	}

	// cobra reports these without a typed error
	msg := err.Error()
	for _, prefix := range []string{"unknown command", "required flag", "unknown flag", "unknown shorthand flag"} {
		if strings.HasPrefix(msg, prefix) {
			return ExitUsage
		}
	}
	return ExitFailure
}

// Option customises the command tree
type Option func(*app)

// WithConfigLoader replaces config.LoadConfigFrom
func WithConfigLoader(load func(path string) (*config.Config, error)) Option {
	return func(a *app) { a.load = load }
}

type app struct {
	configFile string
	verbose    bool
	load       func(path string) (*config.Config, error)
	container  *di.Container
}

// open builds the container on first use
func (a *app) open(ctx context.Context) (*di.Container, error) {
	if a.container != nil {
		return a.container, nil
	}

	cfg, err := a.load(a.configFile)
	if err != nil {
		return nil, err
	}
	cfg.WatchTenants = false
	if !a.verbose {
		cfg.LogLevel = "error"
	}

	c, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize: %w", err)
	}
	a.container = c
	return c, nil
}

func (a *app) close(ctx context.Context) error {
	if a.container == nil {
		return nil
	}
	err := a.container.Shutdown(ctx)
	_ = a.container.Logger.Sync()
	a.container = nil
	return err
}

func newRoot(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "xmcdiff",
		Short: "Compare preview and published Sitecore layouts",
		Long: `xmcdiff fetches the layout of a page from the preview and the published
Experience Edge endpoints and prints both normalized documents.

Configuration comes from the same environment variables and YAML file as the
API server (PREVIEW_CONTEXT_ID, LIVE_CONTEXT_ID, TENANTS_FILE, ...).

Examples:
  # Compare the home page of the default site
  xmcdiff compare --route /

  # Compare for a specific tenant and print JSON
  xmcdiff compare --site website --route /about --tenant acme --json

  # List the components used across a set of pages
  xmcdiff components --routes /,/about,/contact
`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&a.configFile, "config", "", "YAML configuration file (default $CONFIG_FILE)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log at the configured LOG_LEVEL instead of errors only")
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usage(err)
	})

	root.AddCommand(
		newCompareCommand(a),
		newTenantsCommand(a),
		newPagesCommand(a),
		newComponentsCommand(a),
		newProbeCommand(a),
	)
	return root
}

// Execute runs the command tree and returns the exit code
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer, opts ...Option) int {
	a := &app{load: config.LoadConfigFrom}
	for _, opt := range opts {
		opt(a)
	}

	root := newRoot(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if closeErr := a.close(context.WithoutCancel(ctx)); err == nil && closeErr != nil {
		err = closeErr
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitCode(err)
	}
	return ExitOK
}

func noArgs(cmd *cobra.Command, args []string) error {
	return usage(cobra.NoArgs(cmd, args))
}
