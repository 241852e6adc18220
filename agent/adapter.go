// Package agent implements the source-specific retrieval adapters.
// Each adapter owns one collection of the vector index (flight status
// snapshots, policy documents, scraped web notices), applies its own
// relevance threshold, and caps the number of chunks it contributes.
package agent

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/aerodesk-ai/aerodesk/config"
	"github.com/aerodesk-ai/aerodesk/retrieval"
	"github.com/aerodesk-ai/aerodesk/types"
)

// Adapter retrieves relevant chunks for a query from one data source.
type Adapter interface {
	// Source identifies the data source this adapter serves.
	Source() types.SourceType

	// Retrieve returns chunks with score at or above the adapter's
	// threshold, ordered by descending score, at most top-K of them.
	Retrieve(ctx context.Context, queryText string) ([]types.RetrievedChunk, error)
}

// SourceAgent is the standard Adapter implementation backed by a
// retrieval.Client. The threshold is applied locally even when the
// client already filters, so the guarantee does not depend on the
// index configuration.
type SourceAgent struct {
	source types.SourceType
	cfg    config.AgentConfig
	client retrieval.Client
	logger *zap.Logger
}

// NewSourceAgent creates an adapter for one source.
func NewSourceAgent(source types.SourceType, cfg config.AgentConfig, client retrieval.Client, logger *zap.Logger) *SourceAgent {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SourceAgent{
		source: source,
		cfg:    cfg,
		client: client,
		logger: logger.With(
			zap.String("component", "agent"),
			zap.String("source", string(source))),
	}
}

// Source returns the adapter's data source.
func (a *SourceAgent) Source() types.SourceType {
	return a.source
}

// Retrieve searches the adapter's collection and filters by threshold.
func (a *SourceAgent) Retrieve(ctx context.Context, queryText string) ([]types.RetrievedChunk, error) {
	results, err := a.client.Search(ctx, a.cfg.Collection, queryText, a.cfg.TopK)
	if err != nil {
		a.logger.Warn("retrieval failed", zap.Error(err))
		if e, ok := err.(*types.Error); ok {
			return nil, e.WithSource(a.source)
		}
		return nil, types.NewError(types.ErrRetrieval, "search failed").
			WithCause(err).
			WithSource(a.source)
	}

	chunks := make([]types.RetrievedChunk, 0, len(results))
	for _, r := range results {
		if r.Score < a.cfg.ScoreThreshold {
			continue
		}
		chunks = append(chunks, types.RetrievedChunk{
			Source:  a.source,
			DocID:   r.DocID,
			Content: r.Content,
			Score:   r.Score,
		})
	}

	sort.SliceStable(chunks, func(i, j int) bool {
		return chunks[i].Score > chunks[j].Score
	})
	if len(chunks) > a.cfg.TopK {
		chunks = chunks[:a.cfg.TopK]
	}

	a.logger.Debug("retrieved chunks",
		zap.Int("raw", len(results)),
		zap.Int("kept", len(chunks)),
		zap.Float64("threshold", a.cfg.ScoreThreshold))
	return chunks, nil
}
