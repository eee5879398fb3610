package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/trovekeep/trove-cli/internal/core/domain"
)

var (
	searchLimit        int
	searchOffset       int
	searchTags         []string
	searchField        string
	searchSort         string
	searchMinRelevance float64
	searchNoFuzzy      bool
	searchMatchAll     bool
	searchPerField     bool
	searchJSON         bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed content",
	Long: `Searches every indexed field of the archive. Multi-word queries
combine per-keyword results with coverage weighting; single keywords
fall back to wildcard variants when fuzzy matching is enabled.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 20, "maximum number of results")
	searchCmd.Flags().IntVar(&searchOffset, "offset", 0, "number of results to skip")
	searchCmd.Flags().StringSliceVarP(&searchTags, "tag", "t", nil, "restrict to documents carrying every given tag")
	searchCmd.Flags().StringVarP(&searchField, "field", "f", "", "restrict to one field kind (report, transcript, ocr, topic)")
	searchCmd.Flags().StringVar(&searchSort, "sort", "relevance", "sort order (relevance, date, duration, title)")
	searchCmd.Flags().Float64Var(&searchMinRelevance, "min-relevance", 0, "drop results scoring below this threshold")
	searchCmd.Flags().BoolVar(&searchNoFuzzy, "no-fuzzy", false, "disable wildcard variant fallback")
	searchCmd.Flags().BoolVar(&searchMatchAll, "match-all", false, "require every keyword of a multi-word query to match")
	searchCmd.Flags().BoolVar(&searchPerField, "per-field", false, "report each matched field instead of one row per document")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if searchService == nil {
		return errNotConfigured
	}

	field := domain.FieldKind(searchField)
	if field != domain.FieldAny && !field.Valid() {
		return fmt.Errorf("unknown field kind %q", searchField)
	}
	sortBy := domain.SortMode(searchSort)
	if !sortBy.Valid() {
		return fmt.Errorf("unknown sort order %q", searchSort)
	}

	opts := domain.SearchOptions{
		Tags:         searchTags,
		Field:        field,
		Limit:        searchLimit,
		Offset:       searchOffset,
		SortBy:       sortBy,
		MinRelevance: searchMinRelevance,
		Aggregate:    !searchPerField,
		MatchAll:     searchMatchAll,
		Fuzzy:        !searchNoFuzzy,
	}

	results, err := searchService.Search(context.Background(), args[0], opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputJSON(cmd, results)
	}
	return outputSearchTable(cmd, results)
}

func outputJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, results []domain.SearchResult) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		if searchService.NeedsRebuild() {
			cmd.Println("The index reported a structural error; run 'trove index rebuild'.")
		}
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i := range results {
		r := &results[i]
		cmd.Printf("  [%d] %s (%.3f)\n", i+1, r.Title, r.Relevance)
		cmd.Printf("      Field: %s  Source: %s  Document: %d\n", r.Field, r.Source, r.DocumentID)
		if len(r.Tags) > 0 {
			cmd.Printf("      Tags: %s\n", strings.Join(r.Tags, ", "))
		}
		if r.TimestampSeconds != nil {
			cmd.Printf("      At: %s\n", formatTimestamp(*r.TimestampSeconds))
		}
		if r.Snippet != "" {
			cmd.Printf("      %s\n", r.Snippet)
		}
		cmd.Println()
	}
	return nil
}

// formatTimestamp renders seconds as m:ss or h:mm:ss.
func formatTimestamp(seconds float64) string {
	total := int(seconds)
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
