package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/passrate-feed/internal/extract"
	"github.com/JakeFAU/passrate-feed/internal/writer"
)

// newExtractCmd creates the 'extract' subcommand, which runs the extractor
// against a saved copy of the tracker page.
func newExtractCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract <file>",
		Short: "Print the snapshot extracted from a saved tracker page",
		Long: `Reads an HTML file, runs the same extraction as a live run and prints the
resulting snapshot as JSON. Exits non-zero when no daily data is found, which
usually means the page layout changed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			html, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read page: %w", err)
			}
			snap := extract.Extract(string(html))
			data, err := writer.MarshalSnapshot(snap)
			if err != nil {
				return err
			}
			if _, err := cmd.OutOrStdout().Write(data); err != nil {
				return fmt.Errorf("print snapshot: %w", err)
			}
			return snap.Validate()
		},
	}
}
