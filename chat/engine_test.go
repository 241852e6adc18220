package chat

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aerodesk-ai/aerodesk/agent"
	"github.com/aerodesk-ai/aerodesk/answer"
	"github.com/aerodesk-ai/aerodesk/config"
	"github.com/aerodesk-ai/aerodesk/internal/history"
	"github.com/aerodesk-ai/aerodesk/normalize"
	"github.com/aerodesk-ai/aerodesk/retrieval"
	"github.com/aerodesk-ai/aerodesk/router"
	"github.com/aerodesk-ai/aerodesk/types"
)

// fixtureClient serves canned per-collection results.
type fixtureClient struct {
	byCollection map[string][]retrieval.SearchResult
	errs         map[string]error
	queries      []string
}

func (f *fixtureClient) Search(ctx context.Context, collection, queryText string, topK int) ([]retrieval.SearchResult, error) {
	f.queries = append(f.queries, queryText)
	if err := f.errs[collection]; err != nil {
		return nil, err
	}
	return f.byCollection[collection], nil
}

type scriptedProvider struct {
	reply string
	err   error
	calls int
	last  []types.Message
}

func (p *scriptedProvider) Complete(ctx context.Context, messages []types.Message) (string, error) {
	p.calls++
	p.last = messages
	if p.err != nil {
		return "", p.err
	}
	return p.reply, nil
}

func newTestEngine(t *testing.T, client retrieval.Client, provider *scriptedProvider, store history.Store) *Engine {
	t.Helper()

	n, err := normalize.New(normalize.DefaultRules(), nil)
	require.NoError(t, err)

	agents := []agent.Adapter{
		agent.NewSourceAgent(types.SourceFlight, config.AgentConfig{
			Collection: "FlightStatus", ScoreThreshold: 0.6, TopK: 5,
		}, client, nil),
		agent.NewSourceAgent(types.SourcePolicy, config.AgentConfig{
			Collection: "PolicyDocument", ScoreThreshold: 0.6, TopK: 5,
		}, client, nil),
		agent.NewSourceAgent(types.SourceWeb, config.AgentConfig{
			Collection: "WebNotice", ScoreThreshold: 0.7, TopK: 5,
		}, client, nil),
	}

	sup := router.NewSupervisor(router.DefaultFamilies(), agents, types.SourcePolicy, time.Second, nil)
	merger := answer.NewMerger(4096, nil, nil)
	synth := answer.NewSynthesizer(provider, 1, nil)

	return NewEngine(n, sup, merger, synth, Options{
		History:      store,
		HistoryLimit: 5,
	}, nil)
}

func TestAsk_PolicyQuery(t *testing.T) {
	client := &fixtureClient{byCollection: map[string][]retrieval.SearchResult{
		"PolicyDocument": {
			{DocID: "p1", Content: "Checked baggage limit is 30kg.", Score: 0.88},
		},
	}}
	provider := &scriptedProvider{reply: "The checked baggage limit is 30kg."}
	e := newTestEngine(t, client, provider, nil)

	ans, trace, err := e.Ask(context.Background(), types.Query{Text: "What is the baggage weight limit?"})
	require.NoError(t, err)

	assert.Equal(t, types.IntentPolicy, ans.Intent)
	assert.True(t, ans.Grounded)
	assert.Equal(t, []types.Citation{{Source: types.SourcePolicy, DocID: "p1"}}, ans.Citations)

	require.Len(t, trace.Agents, 1)
	assert.Equal(t, types.SourcePolicy, trace.Agents[0].Source)
	assert.Equal(t, 1, trace.Agents[0].Chunks)
}

func TestAsk_NormalizesBeforeRouting(t *testing.T) {
	client := &fixtureClient{byCollection: map[string][]retrieval.SearchResult{
		"PolicyDocument": {
			{DocID: "p1", Content: "PAA handles airport policy.", Score: 0.8},
		},
	}}
	provider := &scriptedProvider{reply: "ok"}
	e := newTestEngine(t, client, provider, nil)

	_, _, err := e.Ask(context.Background(), types.Query{Text: "What is PAA's baggage policy?"})
	require.NoError(t, err)

	// The adapter sees the canonical entity, not the alias.
	require.NotEmpty(t, client.queries)
	assert.Contains(t, client.queries[0], "Pakistan Airports Authority")
	assert.NotContains(t, client.queries[0], "PAA")
}

func TestAsk_MultiSource(t *testing.T) {
	client := &fixtureClient{byCollection: map[string][]retrieval.SearchResult{
		"PolicyDocument": {
			{DocID: "p1", Content: "Baggage policy text.", Score: 0.85},
		},
		"WebNotice": {
			{DocID: "w1", Content: "Today's notice.", Score: 0.8},
		},
	}}
	provider := &scriptedProvider{reply: "combined answer"}
	e := newTestEngine(t, client, provider, nil)

	ans, trace, err := e.Ask(context.Background(), types.Query{
		Text: "Pakistan Airports Authority baggage policy and today's notices",
	})
	require.NoError(t, err)

	assert.Equal(t, types.IntentMultiSource, ans.Intent)
	require.Len(t, trace.Agents, 2)

	// Policy chunks precede web chunks in the prompt sections.
	require.NotEmpty(t, provider.last)
	sys := provider.last[0].Content
	policyIdx := strings.Index(sys, "Policy documents")
	webIdx := strings.Index(sys, "Web notices")
	assert.Greater(t, webIdx, policyIdx)
	assert.GreaterOrEqual(t, policyIdx, 0)
}

func TestAsk_NoRelevantChunks(t *testing.T) {
	client := &fixtureClient{byCollection: map[string][]retrieval.SearchResult{
		"PolicyDocument": {
			{DocID: "p1", Content: "barely related", Score: 0.3},
		},
	}}
	provider := &scriptedProvider{reply: "should not be called"}
	e := newTestEngine(t, client, provider, nil)

	ans, _, err := e.Ask(context.Background(), types.Query{Text: "What is the baggage weight limit?"})
	require.NoError(t, err)

	assert.False(t, ans.Grounded)
	assert.Empty(t, ans.Citations)
	assert.Zero(t, provider.calls)
}

func TestAsk_AllSourcesFailedFallsBack(t *testing.T) {
	client := &fixtureClient{errs: map[string]error{
		"PolicyDocument": types.NewError(types.ErrRetrieval, "index down"),
	}}
	provider := &scriptedProvider{reply: "should not be called"}
	e := newTestEngine(t, client, provider, nil)

	ans, trace, err := e.Ask(context.Background(), types.Query{Text: "What is the baggage weight limit?"})
	require.NoError(t, err)

	assert.False(t, ans.Grounded)
	assert.NotEmpty(t, ans.Text)
	require.Len(t, trace.Agents, 1)
	assert.NotEmpty(t, trace.Agents[0].Error)
	assert.Zero(t, provider.calls)
}

func TestAsk_SessionHistoryFlows(t *testing.T) {
	client := &fixtureClient{byCollection: map[string][]retrieval.SearchResult{
		"PolicyDocument": {
			{DocID: "p1", Content: "Baggage limit 30kg.", Score: 0.9},
		},
	}}
	provider := &scriptedProvider{reply: "30kg."}
	store := history.NewMemoryStore(10)
	e := newTestEngine(t, client, provider, store)

	_, _, err := e.Ask(context.Background(), types.Query{
		SessionID: "s1", Text: "What is the baggage policy?",
	})
	require.NoError(t, err)

	_, _, err = e.Ask(context.Background(), types.Query{
		SessionID: "s1", Text: "And for carry-on baggage rules?",
	})
	require.NoError(t, err)

	// The second call carries the first turn as history.
	require.Greater(t, len(provider.last), 2)
	assert.Equal(t, types.RoleUser, provider.last[1].Role)
	assert.Equal(t, "What is the baggage policy?", provider.last[1].Content)

	stored, err := store.Recent(context.Background(), "s1", 10)
	require.NoError(t, err)
	assert.Len(t, stored, 4)
}

func TestAsk_SynthesisErrorSurfaces(t *testing.T) {
	client := &fixtureClient{byCollection: map[string][]retrieval.SearchResult{
		"PolicyDocument": {
			{DocID: "p1", Content: "Baggage text.", Score: 0.9},
		},
	}}
	provider := &scriptedProvider{err: types.NewError(types.ErrUnauthorized, "bad key")}
	e := newTestEngine(t, client, provider, nil)

	_, _, err := e.Ask(context.Background(), types.Query{Text: "baggage policy"})
	require.Error(t, err)
	assert.Equal(t, types.ErrUnauthorized, types.GetErrorCode(err))
}
