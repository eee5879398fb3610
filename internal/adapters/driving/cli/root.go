// Package cli implements the command-line driving adapter. Commands
// are thin: they parse flags, call the driving ports and format
// output. All search and ingest semantics live in the service layer.
package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/trovekeep/trove-cli/internal/core/ports/driving"
	"github.com/trovekeep/trove-cli/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Services injected by the composition root before Execute.
var (
	searchService driving.SearchService
	ingestService driving.IngestService
)

// errNotConfigured is returned when a command runs without wiring.
var errNotConfigured = errors.New("services not configured")

var verboseFlag bool

var rootCmd = &cobra.Command{
	Use:   "trove",
	Short: "Search across archived reports, transcripts, OCR text and topics",
	Long: `trove is the query surface of a local content archive.
It searches AI reports, speech transcripts, on-screen OCR text and
topic segments through two complementary full-text indexes, with
tag and topic filtering on top.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verboseFlag)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false,
		"print pipeline debug output to stderr")
}

// SetServices wires the driving ports consumed by the commands.
func SetServices(search driving.SearchService, ingest driving.IngestService) {
	searchService = search
	ingestService = ingest
}

// SetVersion overrides the reported version string.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
