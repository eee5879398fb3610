package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Inspect and rebuild the search indexes",
}

var indexRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Drop and reconstruct both indexes from stored fields",
	Args:  cobra.NoArgs,
	RunE:  runIndexRebuild,
}

var indexStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index sizes",
	Args:  cobra.NoArgs,
	RunE:  runIndexStats,
}

func init() {
	indexCmd.AddCommand(indexRebuildCmd, indexStatsCmd)
	rootCmd.AddCommand(indexCmd)
}

func runIndexRebuild(cmd *cobra.Command, _ []string) error {
	if ingestService == nil {
		return errNotConfigured
	}
	count, err := ingestService.Rebuild(context.Background())
	if err != nil {
		return fmt.Errorf("rebuild failed: %w", err)
	}
	cmd.Printf("Rebuilt indexes from %d field(s).\n", count)
	return nil
}

func runIndexStats(cmd *cobra.Command, _ []string) error {
	if ingestService == nil {
		return errNotConfigured
	}
	report, err := ingestService.Stats(context.Background())
	if err != nil {
		return fmt.Errorf("reading index stats: %w", err)
	}
	cmd.Printf("Exact index:     %d field(s), %d term(s)\n", report.ExactFields, report.ExactTerms)
	cmd.Printf("Segmented index: %d field(s), %d term(s)\n", report.SegmentedFields, report.SegmentedTerms)
	return nil
}
