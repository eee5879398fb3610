package driving

import (
	"context"

	"github.com/trovekeep/trove-cli/internal/core/domain"
)

// SearchService exposes the query boundary to presentation layers.
//
// Unrecoverable backend conditions are absorbed: queries return an
// empty result list (and the affected index is flagged for rebuild)
// rather than an error, so callers can render "no results" uniformly.
type SearchService interface {
	// Search runs a free-text query through the hybrid ranking core.
	Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error)

	// SearchByTags returns documents by tag filter alone, bypassing
	// the text-ranking path.
	SearchByTags(ctx context.Context, tags []string, matchAll bool, limit, offset int) ([]domain.TaggedDocument, error)

	// SearchTopics finds topics by substring containment on title and
	// summary.
	SearchTopics(ctx context.Context, query string, limit, offset int) ([]domain.TopicResult, error)

	// PopularTags lists the most used tags.
	PopularTags(ctx context.Context, limit int) ([]domain.TagUsage, error)

	// SuggestTags completes a tag name prefix.
	SuggestTags(ctx context.Context, prefix string, limit int) ([]string, error)

	// NeedsRebuild reports whether a structural index failure was
	// observed and a rebuild is advised.
	NeedsRebuild() bool
}
