package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mshibata-dev/crawld/internal/frontier"
	"github.com/mshibata-dev/crawld/internal/report"
)

// NewReportCmd creates the report command.
func NewReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize a crawl from its frontier database",
		Long: `Report reads a frontier database produced by a durable crawl
(crawld crawl --store) and writes a Markdown summary: crawl states,
HTTP status codes, pages per domain, and failure reasons.

Examples:
  # Print the summary to stdout
  crawld report --store crawl.db

  # Write the summary to a file
  crawld report --store crawl.db --output report.md`,
		Args: cobra.NoArgs,
		RunE: runReportCmd,
	}

	cmd.Flags().StringP("store", "s", "",
		"SQLite frontier database path (required)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (default: stdout)")
	_ = cmd.MarkFlagRequired("store") //nolint:errcheck // Flag is registered above

	return cmd
}

// runReportCmd executes the report command.
func runReportCmd(cmd *cobra.Command, _ []string) error {
	storePath, err := cmd.Flags().GetString("store")
	if err != nil {
		return err
	}
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	// Never create a database here; reporting on a mistyped path must
	// fail instead of summarizing an empty crawl.
	store, err := frontier.Open(storePath, frontier.Options{
		CreateIfNotExists: false,
		EnableWAL:         true,
	})
	if err != nil {
		return fmt.Errorf("failed to open frontier store: %w", err)
	}
	defer store.Close()

	sum, err := store.Summarize(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to summarize crawl: %w", err)
	}

	output := cmd.OutOrStdout()
	if outputPath != "" {
		dir := filepath.Dir(outputPath)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}
		f, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	return report.NewMarkdownWriter(output).Write(sum)
}
