// Command trove is the CLI entry point. It wires the SQLite metadata
// store, both index backends and the services, then hands control to
// the command tree.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/trovekeep/trove-cli/internal/adapters/driven/config/file"
	"github.com/trovekeep/trove-cli/internal/adapters/driven/index/exact"
	"github.com/trovekeep/trove-cli/internal/adapters/driven/index/segmented"
	"github.com/trovekeep/trove-cli/internal/adapters/driven/storage/sqlite"
	"github.com/trovekeep/trove-cli/internal/adapters/driving/cli"
	"github.com/trovekeep/trove-cli/internal/core/services"
)

// version is injected at build time via -ldflags.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "trove: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := file.NewConfigStore(os.Getenv("TROVE_CONFIG_DIR"))
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	dataDir := cfg.GetString("storage.data_dir")
	store, err := sqlite.NewStore(dataDir)
	if err != nil {
		return fmt.Errorf("opening metadata store: %w", err)
	}
	defer store.Close()

	exactIdx := exact.NewIndex(store.DB())

	segDir := cfg.GetString("storage.segment_dir")
	if segDir == "" {
		segDir = filepath.Join(filepath.Dir(store.Path()), "segments")
	}
	segIdx, err := segmented.NewIndex(segDir, nil)
	if err != nil {
		return fmt.Errorf("opening segmented index: %w", err)
	}
	defer segIdx.Close()

	docs := store.DocumentStore()
	tags := store.TagStore()
	topics := store.TopicStore()
	timeline := store.TimelineStore()

	search := services.NewSearchService(docs, tags, topics, timeline, exactIdx, segIdx)
	defer search.Close()
	if divisor := cfg.GetFloat("search.rank_divisor"); divisor > 0 {
		search.SetNormalizer(services.NewNormalizer(divisor))
	}

	ingest := services.NewIngestService(docs, tags, topics, timeline, exactIdx, segIdx)

	cli.SetVersion(version)
	cli.SetServices(search, ingest)
	return cli.Execute()
}
