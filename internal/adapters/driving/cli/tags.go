package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/trovekeep/trove-cli/internal/core/domain"
)

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "Browse and manage document tags",
}

var (
	tagsPopularLimit int
	tagsPopularJSON  bool
)

var tagsPopularCmd = &cobra.Command{
	Use:   "popular",
	Short: "List the most used tags",
	Args:  cobra.NoArgs,
	RunE:  runTagsPopular,
}

var tagsSuggestLimit int

var tagsSuggestCmd = &cobra.Command{
	Use:   "suggest [prefix]",
	Short: "Complete a tag name prefix",
	Args:  cobra.ExactArgs(1),
	RunE:  runTagsSuggest,
}

var (
	tagsFindAny    bool
	tagsFindLimit  int
	tagsFindOffset int
	tagsFindJSON   bool
)

var tagsFindCmd = &cobra.Command{
	Use:   "find [tag]...",
	Short: "Find documents by tags",
	Long: `Finds documents carrying the given tags. By default a document
must carry every tag; with --any one match is enough and documents
matching more tags rank first.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTagsFind,
}

var (
	tagsAddManual     bool
	tagsAddConfidence float64
)

var tagsAddCmd = &cobra.Command{
	Use:   "add [doc-id] [tag]...",
	Short: "Attach tags to a document",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runTagsAdd,
}

func init() {
	tagsPopularCmd.Flags().IntVarP(&tagsPopularLimit, "limit", "n", 20, "maximum number of tags")
	tagsPopularCmd.Flags().BoolVar(&tagsPopularJSON, "json", false, "output as JSON")
	tagsSuggestCmd.Flags().IntVarP(&tagsSuggestLimit, "limit", "n", 10, "maximum number of suggestions")
	tagsFindCmd.Flags().BoolVar(&tagsFindAny, "any", false, "match documents carrying any of the tags")
	tagsFindCmd.Flags().IntVarP(&tagsFindLimit, "limit", "n", 20, "maximum number of documents")
	tagsFindCmd.Flags().IntVar(&tagsFindOffset, "offset", 0, "number of documents to skip")
	tagsFindCmd.Flags().BoolVar(&tagsFindJSON, "json", false, "output as JSON")
	tagsAddCmd.Flags().BoolVar(&tagsAddManual, "manual", false, "record the tags as manually curated")
	tagsAddCmd.Flags().Float64Var(&tagsAddConfidence, "confidence", 1.0, "tagging confidence")

	tagsCmd.AddCommand(tagsPopularCmd, tagsSuggestCmd, tagsFindCmd, tagsAddCmd)
	rootCmd.AddCommand(tagsCmd)
}

func runTagsPopular(cmd *cobra.Command, _ []string) error {
	if searchService == nil {
		return errNotConfigured
	}
	usages, err := searchService.PopularTags(context.Background(), tagsPopularLimit)
	if err != nil {
		return fmt.Errorf("listing popular tags: %w", err)
	}
	if tagsPopularJSON {
		return outputJSON(cmd, usages)
	}
	if len(usages) == 0 {
		cmd.Println("No tags recorded.")
		return nil
	}
	for _, u := range usages {
		cmd.Printf("  %-30s %d document(s), used %d time(s)\n", u.Name, u.DocumentCount, u.UsageCount)
	}
	return nil
}

func runTagsSuggest(cmd *cobra.Command, args []string) error {
	if searchService == nil {
		return errNotConfigured
	}
	names, err := searchService.SuggestTags(context.Background(), args[0], tagsSuggestLimit)
	if err != nil {
		return fmt.Errorf("suggesting tags: %w", err)
	}
	for _, n := range names {
		cmd.Println(n)
	}
	return nil
}

func runTagsFind(cmd *cobra.Command, args []string) error {
	if searchService == nil {
		return errNotConfigured
	}
	docs, err := searchService.SearchByTags(context.Background(), args, !tagsFindAny, tagsFindLimit, tagsFindOffset)
	if err != nil {
		return fmt.Errorf("finding documents by tags: %w", err)
	}
	if tagsFindJSON {
		return outputJSON(cmd, docs)
	}
	if len(docs) == 0 {
		cmd.Println("No documents found.")
		return nil
	}
	for i, d := range docs {
		cmd.Printf("  [%d] %s (document %d)\n", i+1, d.Title, d.ID)
		if len(d.Tags) > 0 {
			cmd.Printf("      Tags: %s\n", strings.Join(d.Tags, ", "))
		}
	}
	return nil
}

func runTagsAdd(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errNotConfigured
	}
	docID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid document id %q", args[0])
	}
	provenance := domain.ProvenanceAuto
	if tagsAddManual {
		provenance = domain.ProvenanceManual
	}
	if err := ingestService.AddTags(context.Background(), docID, args[1:], provenance, tagsAddConfidence); err != nil {
		return fmt.Errorf("adding tags: %w", err)
	}
	cmd.Printf("Tagged document %d with %d tag(s).\n", docID, len(args)-1)
	return nil
}
