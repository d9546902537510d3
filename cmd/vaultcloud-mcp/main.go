package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sha1n/mcp-vaultcloud-server/internal/app"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	// Version is injected at build time
	Version = "dev"
	// Build is injected at build time
	Build = "unknown"
	// ProgramName is injected at build time
	ProgramName = "vaultcloud-mcp"
)

func main() {
	runMain(os.Args, os.Exit)
}

func runMain(args []string, exit func(int)) {
	if err := Execute(Version, Build, ProgramName, args[1:]); err != nil {
		exit(1)
	}
}

// Execute is the entry point for the CLI, extracted for testing
func Execute(version, build, programName string, args []string) error {
	rootCmd := &cobra.Command{
		Use:     programName,
		Short:   "Vault Cloud MCP Server",
		Long:    "Word, tag and link frequency clouds for a Markdown notes vault, served over MCP",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithFlags(cmd.Context(), cmd.Flags(), version)
		},
	}

	rootCmd.SetVersionTemplate(`{{.Version}}
`)

	app.RegisterFlags(rootCmd.PersistentFlags())
	rootCmd.AddCommand(newScanCommand(), newCloudCommand())
	rootCmd.SetArgs(args)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func newScanCommand() *cobra.Command {
	var sc app.ScanCommand
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan the vault once and update the cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.RunScan(cmd.Context(), app.DefaultRunParams(), cmd.Flags(), cmd.OutOrStdout(), sc)
		},
	}
	cmd.Flags().BoolVar(&sc.Force, "force", false, "Revisit every note even if the vault looks unchanged")
	cmd.Flags().DurationVar(&sc.Wait, "wait", 0, "How long to wait for a scan running in another process before skipping")
	return cmd
}

func newCloudCommand() *cobra.Command {
	var cc app.CloudCommand
	cmd := &cobra.Command{
		Use:   "cloud",
		Short: "Print a word, tag or link cloud",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.RunCloud(cmd.Context(), app.DefaultRunParams(), cmd.Flags(), cmd.OutOrStdout(), cc)
		},
	}
	cmd.Flags().StringVar(&cc.Kind, "kind", "words", "Cloud kind: words, tags or links")
	cmd.Flags().StringVar(&cc.Options, "options", "", "YAML options block")
	cmd.Flags().StringVar(&cc.Note, "note", "", "Vault-relative note path for source: file")
	cmd.Flags().StringVar(&cc.Format, "format", "text", "Output format: text or json")
	cmd.Flags().BoolVar(&cc.Scan, "scan", true, "Bring the cache up to date before rendering")
	return cmd
}

func runWithFlags(ctx context.Context, flags *pflag.FlagSet, version string) error {
	return app.RunWithDeps(ctx, app.DefaultRunParams(), flags, version)
}
