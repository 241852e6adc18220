package router

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aerodesk-ai/aerodesk/agent"
	"github.com/aerodesk-ai/aerodesk/types"
)

// Supervisor routes normalized queries to source adapters and fans out
// retrieval. A single adapter failure drops that source's contribution;
// the request only fails when every selected adapter fails.
type Supervisor struct {
	families     []*RuleFamily
	adapters     map[types.SourceType]agent.Adapter
	fallback     types.SourceType
	agentTimeout time.Duration
	logger       *zap.Logger
}

// NewSupervisor creates a Supervisor over the given rule families and
// adapters. The fallback source is consulted when no family matches.
func NewSupervisor(families []*RuleFamily, adapters []agent.Adapter, fallback types.SourceType, agentTimeout time.Duration, logger *zap.Logger) *Supervisor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if agentTimeout <= 0 {
		agentTimeout = 10 * time.Second
	}

	bySource := make(map[types.SourceType]agent.Adapter, len(adapters))
	for _, a := range adapters {
		bySource[a.Source()] = a
	}

	return &Supervisor{
		families:     families,
		adapters:     bySource,
		fallback:     fallback,
		agentTimeout: agentTimeout,
		logger:       logger.With(zap.String("component", "supervisor")),
	}
}

// Route classifies the normalized query and selects the sources to
// consult. Family order is fixed, so the result is deterministic. When
// several families match, the intent is MULTI_SOURCE and every matching
// source is selected; the first matching family is recorded in the
// trace for diagnostics. When none match, the fallback source is
// selected under the UNKNOWN intent.
func (s *Supervisor) Route(queryText string) (types.IntentLabel, []types.SourceType, types.RouteTrace) {
	var matched []*RuleFamily
	for _, f := range s.families {
		if f.Matches(queryText) {
			matched = append(matched, f)
		}
	}

	trace := types.RouteTrace{}
	for _, f := range matched {
		trace.Families = append(trace.Families, string(f.Intent))
	}

	var intent types.IntentLabel
	var sources []types.SourceType
	switch len(matched) {
	case 0:
		intent = types.IntentUnknown
		sources = []types.SourceType{s.fallback}
		trace.Fallback = true
	case 1:
		intent = matched[0].Intent
		sources = []types.SourceType{matched[0].Source}
	default:
		intent = types.IntentMultiSource
		sources = make([]types.SourceType, 0, len(matched))
		for _, f := range matched {
			sources = append(sources, f.Source)
		}
	}

	trace.Intent = intent
	s.logger.Debug("routed query",
		zap.String("intent", string(intent)),
		zap.Int("sources", len(sources)),
		zap.Bool("fallback", trace.Fallback))
	return intent, sources, trace
}

// Dispatch fans out retrieval to the adapters for the selected sources
// and joins all of them. Each adapter gets its own timeout. Failed
// adapters are dropped from the result; their failures are recorded in
// the returned traces. An error is returned only when the parent
// context is cancelled or every adapter fails.
func (s *Supervisor) Dispatch(ctx context.Context, sources []types.SourceType, queryText string) (map[types.SourceType][]types.RetrievedChunk, []types.AgentTrace, error) {
	traces := make([]types.AgentTrace, len(sources))
	chunksBySource := make(map[types.SourceType][]types.RetrievedChunk, len(sources))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		adapter, ok := s.adapters[src]
		if !ok {
			traces[i] = types.AgentTrace{
				Source: src,
				Error:  types.NewError(types.ErrRetrieval, "no adapter registered").WithSource(src).Error(),
			}
			continue
		}

		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(gctx, s.agentTimeout)
			defer cancel()

			start := time.Now()
			chunks, err := adapter.Retrieve(callCtx, queryText)
			elapsed := time.Since(start)

			mu.Lock()
			defer mu.Unlock()
			traces[i] = types.AgentTrace{
				Source:   src,
				Chunks:   len(chunks),
				Duration: elapsed,
			}
			if err != nil {
				traces[i].Error = err.Error()
				s.logger.Warn("adapter failed, dropping source",
					zap.String("source", string(src)),
					zap.Duration("elapsed", elapsed),
					zap.Error(err))
				// Adapter failures never abort the group.
				return nil
			}
			chunksBySource[src] = chunks
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, traces, err
	}
	if err := ctx.Err(); err != nil {
		// No partial answer after cancellation.
		return nil, traces, types.NewError(types.ErrTimeout, "request cancelled during retrieval").WithCause(err)
	}

	failed := 0
	for _, tr := range traces {
		if tr.Error != "" {
			failed++
		}
	}
	if len(sources) > 0 && failed == len(sources) {
		return nil, traces, types.NewError(types.ErrAllSourcesFailed, "all selected sources failed").
			WithRetryable(true)
	}

	return chunksBySource, traces, nil
}
