package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var topicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "Search topic segments",
}

var (
	topicsSearchLimit  int
	topicsSearchOffset int
	topicsSearchJSON   bool
)

var topicsSearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Find topics by title or summary",
	Args:  cobra.ExactArgs(1),
	RunE:  runTopicsSearch,
}

func init() {
	topicsSearchCmd.Flags().IntVarP(&topicsSearchLimit, "limit", "n", 20, "maximum number of topics")
	topicsSearchCmd.Flags().IntVar(&topicsSearchOffset, "offset", 0, "number of topics to skip")
	topicsSearchCmd.Flags().BoolVar(&topicsSearchJSON, "json", false, "output as JSON")

	topicsCmd.AddCommand(topicsSearchCmd)
	rootCmd.AddCommand(topicsCmd)
}

func runTopicsSearch(cmd *cobra.Command, args []string) error {
	if searchService == nil {
		return errNotConfigured
	}
	results, err := searchService.SearchTopics(context.Background(), args[0], topicsSearchLimit, topicsSearchOffset)
	if err != nil {
		return fmt.Errorf("searching topics: %w", err)
	}
	if topicsSearchJSON {
		return outputJSON(cmd, results)
	}
	if len(results) == 0 {
		cmd.Println("No topics found.")
		return nil
	}
	for i, r := range results {
		cmd.Printf("  [%d] %s\n", i+1, r.Topic.Title)
		cmd.Printf("      Document: %s (%d)  %s - %s\n", r.DocumentTitle, r.DocumentID,
			formatTimestamp(r.StartSeconds), formatTimestamp(r.EndSeconds))
		if r.Summary != "" {
			cmd.Printf("      %s\n", r.Summary)
		}
	}
	return nil
}
