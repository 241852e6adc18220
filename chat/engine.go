// Package chat wires the full query pipeline: normalize, route, fan out
// retrieval, merge, and synthesize. One Engine serves all requests;
// every request's state is per-call and discarded after the response.
package chat

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aerodesk-ai/aerodesk/answer"
	"github.com/aerodesk-ai/aerodesk/internal/history"
	"github.com/aerodesk-ai/aerodesk/internal/metrics"
	"github.com/aerodesk-ai/aerodesk/normalize"
	"github.com/aerodesk-ai/aerodesk/router"
	"github.com/aerodesk-ai/aerodesk/types"
)

// Engine runs a query through the retrieval-augmented answer pipeline.
type Engine struct {
	normalizer   *normalize.Normalizer
	supervisor   *router.Supervisor
	merger       *answer.Merger
	synthesizer  *answer.Synthesizer
	history      history.Store
	historyLimit int
	metrics      *metrics.Collector
	logger       *zap.Logger
}

// Options configures optional Engine collaborators.
type Options struct {
	// History stores conversation memory. Nil disables memory.
	History history.Store
	// HistoryLimit caps the messages passed to the synthesizer.
	HistoryLimit int
	// Metrics records pipeline metrics. Nil disables recording.
	Metrics *metrics.Collector
}

// NewEngine creates the pipeline engine.
func NewEngine(normalizer *normalize.Normalizer, supervisor *router.Supervisor, merger *answer.Merger, synthesizer *answer.Synthesizer, opts Options, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := opts.HistoryLimit
	if limit <= 0 {
		limit = 10
	}
	return &Engine{
		normalizer:   normalizer,
		supervisor:   supervisor,
		merger:       merger,
		synthesizer:  synthesizer,
		history:      opts.History,
		historyLimit: limit,
		metrics:      opts.Metrics,
		logger:       logger.With(zap.String("component", "chat_engine")),
	}
}

// Ask answers one query. The returned trace records the routing
// decision and each adapter's outcome for diagnostics.
func (e *Engine) Ask(ctx context.Context, query types.Query) (types.Answer, types.RouteTrace, error) {
	if query.ID == "" {
		query.ID = uuid.NewString()
	}
	if query.CreatedAt.IsZero() {
		query.CreatedAt = time.Now()
	}

	normalized := e.normalizer.Normalize(query.Text)
	intent, sources, trace := e.supervisor.Route(normalized)
	if e.metrics != nil {
		e.metrics.RecordRoutedQuery(string(intent))
	}

	chunksBySource, agentTraces, err := e.supervisor.Dispatch(ctx, sources, normalized)
	trace.Agents = agentTraces
	e.recordRetrievals(agentTraces)
	if err != nil {
		if types.GetErrorCode(err) == types.ErrAllSourcesFailed {
			// Degrade to the ungrounded fallback answer instead of failing.
			ans, synthErr := e.synthesizer.Synthesize(ctx, query, nil, types.MergedContext{}, intent)
			if synthErr != nil {
				return types.Answer{}, trace, synthErr
			}
			e.appendHistory(ctx, query, ans)
			return ans, trace, nil
		}
		return types.Answer{}, trace, err
	}

	merged := e.merger.Merge(chunksBySource)

	var past []types.Message
	if e.history != nil && query.SessionID != "" {
		past, err = e.history.Recent(ctx, query.SessionID, e.historyLimit)
		if err != nil {
			// Memory is best-effort; answer without it.
			e.logger.Warn("failed to load session history",
				zap.String("session", query.SessionID), zap.Error(err))
			past = nil
		}
	}

	start := time.Now()
	ans, err := e.synthesizer.Synthesize(ctx, query, past, merged, intent)
	if e.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		e.metrics.RecordSynthesis(status, err == nil && ans.Grounded, time.Since(start))
	}
	if err != nil {
		return types.Answer{}, trace, err
	}

	e.appendHistory(ctx, query, ans)

	e.logger.Info("query answered",
		zap.String("query_id", query.ID),
		zap.String("intent", string(intent)),
		zap.Int("chunks", len(merged.Chunks)),
		zap.Bool("grounded", ans.Grounded))
	return ans, trace, nil
}

// appendHistory stores the turn, best effort.
func (e *Engine) appendHistory(ctx context.Context, query types.Query, ans types.Answer) {
	if e.history == nil || query.SessionID == "" {
		return
	}
	err := e.history.Append(ctx, query.SessionID,
		types.Message{Role: types.RoleUser, Content: query.Text, CreatedAt: query.CreatedAt},
		types.Message{Role: types.RoleAssistant, Content: ans.Text, CreatedAt: ans.CreatedAt},
	)
	if err != nil {
		e.logger.Warn("failed to store session history",
			zap.String("session", query.SessionID), zap.Error(err))
	}
}

// recordRetrievals feeds adapter traces into the metrics collector.
func (e *Engine) recordRetrievals(traces []types.AgentTrace) {
	if e.metrics == nil {
		return
	}
	for _, tr := range traces {
		status := "ok"
		if tr.Error != "" {
			status = "error"
		}
		e.metrics.RecordRetrieval(string(tr.Source), status, tr.Duration, tr.Chunks)
	}
}
