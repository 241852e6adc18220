// Package answer merges per-source retrieval results into one grounded
// context and synthesizes the final response through the external
// completion service.
package answer

import (
	"sort"

	"go.uber.org/zap"

	"github.com/aerodesk-ai/aerodesk/types"
)

// sourceOrder is the fixed concatenation priority. Flight status leads,
// then policy documents, then web notices, so prompts are deterministic
// regardless of adapter completion order.
var sourceOrder = []types.SourceType{
	types.SourceFlight,
	types.SourcePolicy,
	types.SourceWeb,
}

// Merger combines per-source chunks into a single bounded context.
type Merger struct {
	maxTokens int
	counter   *TokenCounter
	logger    *zap.Logger
}

// NewMerger creates a Merger with the given token budget.
func NewMerger(maxTokens int, counter *TokenCounter, logger *zap.Logger) *Merger {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	if counter == nil {
		counter = NewTokenCounter("", logger)
	}
	return &Merger{
		maxTokens: maxTokens,
		counter:   counter,
		logger:    logger.With(zap.String("component", "merger")),
	}
}

// Merge deduplicates chunks by document ID keeping the highest-scoring
// instance, groups them in the fixed source order (descending score
// within each source), and drops trailing chunks once the token budget
// is exhausted.
func (m *Merger) Merge(bySource map[types.SourceType][]types.RetrievedChunk) types.MergedContext {
	// Dedup across sources: the best-scoring instance of a document wins.
	best := make(map[string]types.RetrievedChunk)
	for _, chunks := range bySource {
		for _, c := range chunks {
			if prev, ok := best[c.DocID]; !ok || c.Score > prev.Score {
				best[c.DocID] = c
			}
		}
	}

	merged := types.MergedContext{}
	used := 0
	for _, src := range sourceOrder {
		var group []types.RetrievedChunk
		for _, c := range best {
			if c.Source == src {
				group = append(group, c)
			}
		}
		if len(group) == 0 {
			continue
		}
		sort.SliceStable(group, func(i, j int) bool {
			if group[i].Score != group[j].Score {
				return group[i].Score > group[j].Score
			}
			return group[i].DocID < group[j].DocID
		})

		added := false
		for _, c := range group {
			cost := m.counter.Count(c.Content)
			if used+cost > m.maxTokens {
				merged.Truncated = true
				continue
			}
			merged.Chunks = append(merged.Chunks, c)
			used += cost
			added = true
		}
		if added {
			merged.Sources = append(merged.Sources, src)
		}
	}

	merged.TokenCount = used
	m.logger.Debug("merged context",
		zap.Int("chunks", len(merged.Chunks)),
		zap.Int("tokens", used),
		zap.Bool("truncated", merged.Truncated))
	return merged
}
