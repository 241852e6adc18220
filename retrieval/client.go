package retrieval

import "context"

// SearchResult is one hit from a collection search.
type SearchResult struct {
	// DocID is the originating document identifier.
	DocID string
	// Content is the chunk text.
	Content string
	// Score is the similarity score in [0,1], higher is more relevant.
	Score float64
}

// Client searches a logically separated collection of the vector index.
type Client interface {
	// Search returns up to topK results for the query text, ordered by
	// descending score. Results are unfiltered; callers apply their own
	// relevance thresholds.
	Search(ctx context.Context, collection, queryText string, topK int) ([]SearchResult, error)
}

// Embedder converts text into a vector.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float64, error)
}
