package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/mcp-vaultcloud-server/internal/cloud"
	"github.com/sha1n/mcp-vaultcloud-server/internal/config"
	"github.com/sha1n/mcp-vaultcloud-server/internal/scan"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

// RunParams contains dependencies for the run function
type RunParams struct {
	LoadSettings      func(*pflag.FlagSet) (*config.Settings, error)
	ValidSettings     func(*config.Settings) error
	StartSSEServer    func(context.Context, *Runtime, *config.Settings) error
	CreateRuntime     func(*config.Settings, string) (*Runtime, error)
	CustomIOTransport mcp.Transport // Optional: for testing with custom IO
	LogOutput         io.Writer     // Optional: defaults to stderr
}

// DefaultRunParams returns production dependencies
func DefaultRunParams() RunParams {
	return RunParams{
		LoadSettings:   config.LoadSettingsWithFlags,
		ValidSettings:  config.ValidateSettings,
		StartSSEServer: StartSSEServer,
		CreateRuntime:  CreateRuntime,
	}
}

// CreateRuntime builds the production runtime using the default logger
func CreateRuntime(settings *config.Settings, version string) (*Runtime, error) {
	return NewRuntime(settings, version, slog.Default())
}

// CloudCommand describes a one-off cloud rendering
type CloudCommand struct {
	Kind    string
	Options string
	Note    string
	Format  string
	// Scan brings the cache up to date before rendering
	Scan bool
}

// ScanCommand describes a one-off scan
type ScanCommand struct {
	Force bool
	// Wait is how long to wait for a scan running in another process
	Wait time.Duration
}

// setup loads and validates settings and configures logging
func setup(params RunParams, flags *pflag.FlagSet) (*config.Settings, error) {
	// Load settings
	settings, err := params.LoadSettings(flags)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	// Validate settings for conflicting configurations
	if err := params.ValidSettings(settings); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Configure logging - always use stderr to keep stdout free for the protocol
	out := params.LogOutput
	if out == nil {
		out = os.Stderr
	}
	logger, err := config.NewLogger(out, settings.Log)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	slog.SetDefault(logger)

	return settings, nil
}

func openRuntime(params RunParams, settings *config.Settings, version string) (*Runtime, func(), error) {
	rt, err := params.CreateRuntime(settings, version)
	if err != nil {
		return nil, nil, err
	}
	return rt, func() {
		if err := rt.Close(); err != nil {
			slog.Error("Failed to close runtime", "error", err)
		}
	}, nil
}

// RunWithDeps executes the server with the provided dependencies
func RunWithDeps(ctx context.Context, params RunParams, flags *pflag.FlagSet, version string) error {
	settings, err := setup(params, flags)
	if err != nil {
		return err
	}

	slog.Info("Starting vault cloud MCP server", "version", version)
	config.Log(settings)

	rt, closeRuntime, err := openRuntime(params, settings, version)
	if err != nil {
		return err
	}
	defer closeRuntime()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return rt.RunBackground(ctx)
	})
	g.Go(func() error {
		// Background scans stop once the client goes away
		defer cancel()
		return serve(ctx, params, rt, settings)
	})

	return g.Wait()
}

func serve(ctx context.Context, params RunParams, rt *Runtime, settings *config.Settings) error {
	if settings.Transport == "stdio" {
		// Use custom transport if provided (for testing), otherwise use stdio
		transport := params.CustomIOTransport
		if transport == nil {
			transport = &mcp.StdioTransport{}
		}
		return rt.Server.Run(ctx, transport)
	}
	slog.Info("Starting SSE server", "host", settings.Host, "port", settings.Port)
	return params.StartSSEServer(ctx, rt, settings)
}

// RunScan runs a single scan and writes the summary to out
func RunScan(ctx context.Context, params RunParams, flags *pflag.FlagSet, out io.Writer, sc ScanCommand) error {
	settings, err := setup(params, flags)
	if err != nil {
		return err
	}
	rt, closeRuntime, err := openRuntime(params, settings, "")
	if err != nil {
		return err
	}
	defer closeRuntime()

	res, err := rt.Orchestrator.Run(ctx, scan.RunOptions{Force: sc.Force, Wait: sc.Wait})
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}
	_, err = fmt.Fprintln(out, scan.FormatResult(res))
	return err
}

// RunCloud renders one cloud and writes it to out
func RunCloud(ctx context.Context, params RunParams, flags *pflag.FlagSet, out io.Writer, cmd CloudCommand) error {
	kind, err := cloud.ParseKind(cmd.Kind)
	if err != nil {
		return err
	}
	opts, err := cloud.ParseOptions(cmd.Options)
	if err != nil {
		return err
	}

	settings, err := setup(params, flags)
	if err != nil {
		return err
	}
	rt, closeRuntime, err := openRuntime(params, settings, "")
	if err != nil {
		return err
	}
	defer closeRuntime()

	if cmd.Scan {
		if _, err := rt.Orchestrator.Run(ctx, scan.RunOptions{}); err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}
	}

	c, err := rt.Clouds.Generate(ctx, cloud.Request{Kind: kind, Options: opts, Note: cmd.Note})
	if errors.Is(err, cloud.ErrNoEntries) {
		_, err = fmt.Fprintln(out, cloud.NoEntriesMessage)
		return err
	}
	if err != nil {
		return err
	}

	text, err := cloud.Render(c, cmd.Format)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, text)
	return err
}
