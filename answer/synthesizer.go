package answer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/aerodesk-ai/aerodesk/llm"
	"github.com/aerodesk-ai/aerodesk/types"
)

// systemPrompt frames the completion service as a grounded assistant.
const systemPrompt = `You are AeroDesk, an assistant for Pakistan Airports Authority travellers and staff.
Answer the user's question using ONLY the context sections below. Cite facts from the
context; if the context does not cover the question, say so instead of guessing.
Keep answers concise and factual.`

// noContextText is returned when no chunk survived retrieval. The
// completion service is not called in that case.
const noContextText = "Based on general aviation information only: I could not find any " +
	"relevant records in the Pakistan Airports Authority sources for this question. " +
	"Please try rephrasing, or ask about flight status, policies, or official notices."

// sourceHeadings labels each context section in the prompt.
var sourceHeadings = map[types.SourceType]string{
	types.SourceFlight: "Flight status records",
	types.SourcePolicy: "Policy documents",
	types.SourceWeb:    "Web notices",
}

// Synthesizer produces the final answer from a merged context. External
// completion failures get at most one bounded retry when retryable.
type Synthesizer struct {
	provider   llm.Provider
	maxRetries int
	logger     *zap.Logger
}

// NewSynthesizer creates a Synthesizer over the given provider.
func NewSynthesizer(provider llm.Provider, maxRetries int, logger *zap.Logger) *Synthesizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	if maxRetries > 1 {
		maxRetries = 1
	}
	return &Synthesizer{
		provider:   provider,
		maxRetries: maxRetries,
		logger:     logger.With(zap.String("component", "synthesizer")),
	}
}

// Synthesize generates the answer for a query given its merged context,
// recent conversation history, and routing intent. An empty context
// short-circuits to a canned "no relevant information" answer without
// calling the completion service.
func (s *Synthesizer) Synthesize(ctx context.Context, query types.Query, history []types.Message, merged types.MergedContext, intent types.IntentLabel) (types.Answer, error) {
	now := time.Now()

	if merged.Empty() {
		s.logger.Info("no context survived retrieval, returning canned answer",
			zap.String("query_id", query.ID))
		return types.Answer{
			Text:      noContextText,
			Intent:    intent,
			Grounded:  false,
			CreatedAt: now,
		}, nil
	}

	messages := make([]types.Message, 0, len(history)+2)
	messages = append(messages, types.Message{
		Role:    types.RoleSystem,
		Content: systemPrompt + "\n\n" + buildContextSections(merged),
	})
	messages = append(messages, history...)
	messages = append(messages, types.Message{Role: types.RoleUser, Content: query.Text})

	text, err := s.completeWithRetry(ctx, messages)
	if err != nil {
		return types.Answer{}, err
	}

	return types.Answer{
		Text:       text,
		Intent:     intent,
		Citations:  citations(merged),
		Confidence: confidence(merged),
		Grounded:   true,
		CreatedAt:  now,
	}, nil
}

// completeWithRetry calls the provider, retrying once on a retryable
// failure.
func (s *Synthesizer) completeWithRetry(ctx context.Context, messages []types.Message) (string, error) {
	text, err := s.provider.Complete(ctx, messages)
	if err == nil {
		return text, nil
	}

	for attempt := 0; attempt < s.maxRetries && types.IsRetryable(err) && ctx.Err() == nil; attempt++ {
		s.logger.Warn("completion failed, retrying once", zap.Error(err))
		text, err = s.provider.Complete(ctx, messages)
		if err == nil {
			return text, nil
		}
	}

	if e, ok := err.(*types.Error); ok {
		return "", e
	}
	return "", types.NewError(types.ErrSynthesis, "completion failed").WithCause(err)
}

// buildContextSections renders the merged chunks as per-source prompt
// sections in merge order.
func buildContextSections(merged types.MergedContext) string {
	var b strings.Builder
	for _, src := range merged.Sources {
		heading, ok := sourceHeadings[src]
		if !ok {
			heading = string(src)
		}
		fmt.Fprintf(&b, "## %s\n", heading)
		for _, c := range merged.BySource(src) {
			fmt.Fprintf(&b, "[%s] %s\n", c.DocID, c.Content)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// citations lists the contributing documents in merge order.
func citations(merged types.MergedContext) []types.Citation {
	seen := make(map[types.Citation]struct{}, len(merged.Chunks))
	out := make([]types.Citation, 0, len(merged.Chunks))
	for _, c := range merged.Chunks {
		cit := types.Citation{Source: c.Source, DocID: c.DocID}
		if _, ok := seen[cit]; ok {
			continue
		}
		seen[cit] = struct{}{}
		out = append(out, cit)
	}
	return out
}

// confidence is the max surviving chunk score per contributing source.
func confidence(merged types.MergedContext) map[types.SourceType]float64 {
	out := make(map[types.SourceType]float64)
	for _, c := range merged.Chunks {
		if c.Score > out[c.Source] {
			out[c.Source] = c.Score
		}
	}
	return out
}
