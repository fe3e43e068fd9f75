// Package cmd defines and implements the CLI commands for the passrate-feed executable.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/passrate-feed/internal/config"
)

// rootOptions holds flags that are not config keys.
type rootOptions struct {
	configPath string
}

// newRootCmd creates and configures the root command. Running it with no
// subcommand generates the feed.
func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "passrate-feed",
		Short: "Publishes a tracker's daily and weekly pass rates as an RSS feed.",
		Long: `passrate-feed fetches the Claude Code performance tracker page, pulls the
embedded daily and weekly pass-rate series out of its inline scripts, and
writes an RSS 2.0 feed plus a JSON snapshot of the extracted data.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenerate(cmd, opts)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "config file (YAML)")
	flags.String(config.FlagURL, "", "tracker page URL (overrides source.url)")
	flags.String(config.FlagOutputDir, "", "directory for the feed and snapshot (overrides output.dir)")

	cmd.AddCommand(newGenerateCmd(opts), newExtractCmd())
	return cmd
}

// Execute is the main entry point. Any error is printed to stderr and the
// process exits with status 1.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
