package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/trovekeep/trove-cli/internal/core/domain"
)

var documentCmd = &cobra.Command{
	Use:   "document",
	Short: "Ingest and remove archive documents",
	Long: `Feeds pipeline output into the search core. Documents and their
fields, topics and timeline entries are produced by the archive
pipeline; these commands register them for search.`,
}

var (
	docAddID       int64
	docAddTitle    string
	docAddSource   string
	docAddDuration float64
	docAddFileRef  string
)

var documentAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register or update a document",
	Args:  cobra.NoArgs,
	RunE:  runDocumentAdd,
}

var fieldFile string

var documentAddFieldCmd = &cobra.Command{
	Use:   "add-field [doc-id] [kind] [text]",
	Short: "Index a text field of a document",
	Long: `Indexes one field (report, transcript, ocr or topic) in both
backends. The text comes from the argument or from --file.`,
	Args: cobra.RangeArgs(2, 3),
	RunE: runDocumentAddField,
}

var topicsFile string

var documentAddTopicsCmd = &cobra.Command{
	Use:   "add-topics [doc-id]",
	Short: "Attach topic segments from a JSON file",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentAddTopics,
}

var timelineFile string

var documentAddTimelineCmd = &cobra.Command{
	Use:   "add-timeline [doc-id]",
	Short: "Attach timeline entries from a JSON file",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentAddTimeline,
}

var documentDeleteCmd = &cobra.Command{
	Use:   "delete [doc-id]",
	Short: "Remove a document and all its indexed data",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentDelete,
}

func init() {
	documentAddCmd.Flags().Int64Var(&docAddID, "id", 0, "pipeline-assigned document id")
	documentAddCmd.Flags().StringVar(&docAddTitle, "title", "", "document title")
	documentAddCmd.Flags().StringVar(&docAddSource, "source", "", "source category")
	documentAddCmd.Flags().Float64Var(&docAddDuration, "duration", 0, "media duration in seconds")
	documentAddCmd.Flags().StringVar(&docAddFileRef, "file-ref", "", "stored content location")
	_ = documentAddCmd.MarkFlagRequired("id")
	_ = documentAddCmd.MarkFlagRequired("title")

	documentAddFieldCmd.Flags().StringVar(&fieldFile, "file", "", "read field text from file")
	documentAddTopicsCmd.Flags().StringVar(&topicsFile, "file", "", "JSON file with topic segments")
	_ = documentAddTopicsCmd.MarkFlagRequired("file")
	documentAddTimelineCmd.Flags().StringVar(&timelineFile, "file", "", "JSON file with timeline entries")
	_ = documentAddTimelineCmd.MarkFlagRequired("file")

	documentCmd.AddCommand(documentAddCmd, documentAddFieldCmd, documentAddTopicsCmd,
		documentAddTimelineCmd, documentDeleteCmd)
	rootCmd.AddCommand(documentCmd)
}

func runDocumentAdd(cmd *cobra.Command, _ []string) error {
	if ingestService == nil {
		return errNotConfigured
	}
	doc := &domain.Document{
		ID:              docAddID,
		Title:           docAddTitle,
		Source:          domain.SourceCategory(docAddSource),
		DurationSeconds: docAddDuration,
		FileRef:         docAddFileRef,
	}
	if err := ingestService.UpsertDocument(context.Background(), doc); err != nil {
		return fmt.Errorf("adding document: %w", err)
	}
	cmd.Printf("Document %d registered.\n", doc.ID)
	return nil
}

func runDocumentAddField(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errNotConfigured
	}
	docID, err := parseDocID(args[0])
	if err != nil {
		return err
	}
	kind := domain.FieldKind(args[1])

	var text string
	switch {
	case fieldFile != "":
		data, err := os.ReadFile(fieldFile)
		if err != nil {
			return fmt.Errorf("reading field text: %w", err)
		}
		text = string(data)
	case len(args) == 3:
		text = args[2]
	default:
		return fmt.Errorf("field text required (argument or --file)")
	}

	field, err := ingestService.AddIndexedField(context.Background(), docID, kind, text)
	if err != nil {
		return fmt.Errorf("indexing field: %w", err)
	}
	cmd.Printf("Indexed %s field %d for document %d.\n", kind, field.ID, docID)
	return nil
}

func runDocumentAddTopics(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errNotConfigured
	}
	docID, err := parseDocID(args[0])
	if err != nil {
		return err
	}
	var topics []domain.Topic
	if err := readJSONFile(topicsFile, &topics); err != nil {
		return err
	}
	if err := ingestService.AddTopics(context.Background(), docID, topics); err != nil {
		return fmt.Errorf("adding topics: %w", err)
	}
	cmd.Printf("Added %d topic(s) to document %d.\n", len(topics), docID)
	return nil
}

func runDocumentAddTimeline(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errNotConfigured
	}
	docID, err := parseDocID(args[0])
	if err != nil {
		return err
	}
	var entries []domain.TimelineEntry
	if err := readJSONFile(timelineFile, &entries); err != nil {
		return err
	}
	if err := ingestService.AddTimeline(context.Background(), docID, entries); err != nil {
		return fmt.Errorf("adding timeline entries: %w", err)
	}
	cmd.Printf("Added %d timeline entr(ies) to document %d.\n", len(entries), docID)
	return nil
}

func runDocumentDelete(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errNotConfigured
	}
	docID, err := parseDocID(args[0])
	if err != nil {
		return err
	}
	if err := ingestService.DeleteDocument(context.Background(), docID); err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	cmd.Printf("Document %d deleted.\n", docID)
	return nil
}

func parseDocID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid document id %q", arg)
	}
	return id, nil
}

func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}
