package pipeline

import (
	"context"

	"updater/internal/core"
	"updater/internal/references"
	"updater/internal/rewrite"
)

// ArticleStore reads and writes the backing article store
type ArticleStore interface {
	// ListAll returns every article, newest first
	ListAll(ctx context.Context) ([]core.ArticleRecord, error)

	// Latest returns the newest article
	Latest(ctx context.Context) (core.ArticleRecord, error)

	// Get fetches one article by id
	Get(ctx context.Context, id int64) (core.ArticleRecord, error)

	Create(ctx context.Context, rec core.ArticleRecord) (core.ArticleRecord, error)
	Update(ctx context.Context, id int64, rec core.ArticleRecord) (core.ArticleRecord, error)
	Delete(ctx context.Context, id int64) error
}

// ReferenceFinder discovers candidate articles and extracts the corroborating ones
type ReferenceFinder interface {
	// Discover runs the full provider cascade with host de-duplication
	Discover(ctx context.Context, topic string) (references.Candidates, error)

	// DiscoverPrimary is the relaxed single-provider search used by the fallback
	DiscoverPrimary(ctx context.Context, topic string) (references.Candidates, error)

	// Select extracts candidates and returns the qualifying references
	Select(ctx context.Context, candidates references.Candidates) (references.Selection, error)
}

// Rewriter produces the new article body, citations included
type Rewriter interface {
	Rewrite(ctx context.Context, article core.ArticleRecord, refs []core.Reference) (rewrite.Result, error)
}
