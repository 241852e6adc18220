package router

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aerodesk-ai/aerodesk/agent"
	"github.com/aerodesk-ai/aerodesk/types"
)

type stubAdapter struct {
	source types.SourceType
	chunks []types.RetrievedChunk
	err    error
	delay  time.Duration
}

func (s *stubAdapter) Source() types.SourceType { return s.source }

func (s *stubAdapter) Retrieve(ctx context.Context, queryText string) ([]types.RetrievedChunk, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, types.NewError(types.ErrTimeout, "retrieve cancelled").WithCause(ctx.Err())
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.chunks, nil
}

func chunk(src types.SourceType, docID string, score float64) types.RetrievedChunk {
	return types.RetrievedChunk{Source: src, DocID: docID, Content: "text " + docID, Score: score}
}

func newSupervisor(adapters ...agent.Adapter) *Supervisor {
	return NewSupervisor(DefaultFamilies(), adapters, types.SourcePolicy, time.Second, nil)
}

func TestRoute_SingleFamily(t *testing.T) {
	s := newSupervisor()

	intent, sources, trace := s.Route("What is the baggage weight limit?")
	assert.Equal(t, types.IntentPolicy, intent)
	assert.Equal(t, []types.SourceType{types.SourcePolicy}, sources)
	assert.False(t, trace.Fallback)
	assert.Equal(t, []string{string(types.IntentPolicy)}, trace.Families)
}

func TestRoute_FlightNumber(t *testing.T) {
	s := newSupervisor()

	intent, sources, _ := s.Route("Is Pakistan Airports Authority flight PK-305 delayed?")
	assert.Equal(t, types.IntentFlightStatus, intent)
	assert.Equal(t, []types.SourceType{types.SourceFlight}, sources)
}

func TestRoute_MultiSource(t *testing.T) {
	s := newSupervisor()

	intent, sources, trace := s.Route("Pakistan Airports Authority baggage policy and today's notices")
	assert.Equal(t, types.IntentMultiSource, intent)
	assert.Equal(t, []types.SourceType{types.SourcePolicy, types.SourceWeb}, sources)
	// First matching family leads the trace.
	require.NotEmpty(t, trace.Families)
	assert.Equal(t, string(types.IntentPolicy), trace.Families[0])
}

func TestRoute_UnknownFallsBack(t *testing.T) {
	s := newSupervisor()

	intent, sources, trace := s.Route("where can I park my car")
	assert.Equal(t, types.IntentUnknown, intent)
	assert.Equal(t, []types.SourceType{types.SourcePolicy}, sources)
	assert.True(t, trace.Fallback)
}

func TestRoute_Deterministic(t *testing.T) {
	s := newSupervisor()
	q := "baggage policy and flight PK-305 notices"

	firstIntent, firstSources, _ := s.Route(q)
	for i := 0; i < 10; i++ {
		intent, sources, _ := s.Route(q)
		assert.Equal(t, firstIntent, intent)
		assert.Equal(t, firstSources, sources)
	}
}

func TestDispatch_FanOut(t *testing.T) {
	policy := &stubAdapter{
		source: types.SourcePolicy,
		chunks: []types.RetrievedChunk{chunk(types.SourcePolicy, "p1", 0.8)},
	}
	web := &stubAdapter{
		source: types.SourceWeb,
		chunks: []types.RetrievedChunk{chunk(types.SourceWeb, "w1", 0.75)},
	}
	s := newSupervisor(policy, web)

	bySource, traces, err := s.Dispatch(context.Background(),
		[]types.SourceType{types.SourcePolicy, types.SourceWeb}, "q")
	require.NoError(t, err)

	assert.Len(t, bySource[types.SourcePolicy], 1)
	assert.Len(t, bySource[types.SourceWeb], 1)

	require.Len(t, traces, 2)
	assert.Equal(t, types.SourcePolicy, traces[0].Source)
	assert.Equal(t, 1, traces[0].Chunks)
	assert.Empty(t, traces[0].Error)
}

func TestDispatch_PartialFailureDropsSource(t *testing.T) {
	policy := &stubAdapter{
		source: types.SourcePolicy,
		chunks: []types.RetrievedChunk{chunk(types.SourcePolicy, "p1", 0.8)},
	}
	web := &stubAdapter{
		source: types.SourceWeb,
		err:    types.NewError(types.ErrRetrieval, "index down"),
	}
	s := newSupervisor(policy, web)

	bySource, traces, err := s.Dispatch(context.Background(),
		[]types.SourceType{types.SourcePolicy, types.SourceWeb}, "q")
	require.NoError(t, err)

	assert.Len(t, bySource[types.SourcePolicy], 1)
	_, ok := bySource[types.SourceWeb]
	assert.False(t, ok)

	assert.Empty(t, traces[0].Error)
	assert.NotEmpty(t, traces[1].Error)
}

func TestDispatch_AllFail(t *testing.T) {
	policy := &stubAdapter{source: types.SourcePolicy, err: types.NewError(types.ErrRetrieval, "down")}
	web := &stubAdapter{source: types.SourceWeb, err: types.NewError(types.ErrRetrieval, "down")}
	s := newSupervisor(policy, web)

	_, traces, err := s.Dispatch(context.Background(),
		[]types.SourceType{types.SourcePolicy, types.SourceWeb}, "q")
	require.Error(t, err)
	assert.Equal(t, types.ErrAllSourcesFailed, types.GetErrorCode(err))
	require.Len(t, traces, 2)
}

func TestDispatch_MissingAdapter(t *testing.T) {
	policy := &stubAdapter{
		source: types.SourcePolicy,
		chunks: []types.RetrievedChunk{chunk(types.SourcePolicy, "p1", 0.8)},
	}
	s := newSupervisor(policy)

	bySource, traces, err := s.Dispatch(context.Background(),
		[]types.SourceType{types.SourcePolicy, types.SourceFlight}, "q")
	require.NoError(t, err)
	assert.Len(t, bySource[types.SourcePolicy], 1)
	assert.NotEmpty(t, traces[1].Error)
}

func TestDispatch_Cancellation(t *testing.T) {
	slow := &stubAdapter{
		source: types.SourcePolicy,
		chunks: []types.RetrievedChunk{chunk(types.SourcePolicy, "p1", 0.8)},
		delay:  500 * time.Millisecond,
	}
	s := newSupervisor(slow)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, _, err := s.Dispatch(ctx, []types.SourceType{types.SourcePolicy}, "q")
	require.Error(t, err)
}

func TestDispatch_AdapterTimeout(t *testing.T) {
	slow := &stubAdapter{
		source: types.SourcePolicy,
		chunks: []types.RetrievedChunk{chunk(types.SourcePolicy, "p1", 0.8)},
		delay:  time.Second,
	}
	fast := &stubAdapter{
		source: types.SourceWeb,
		chunks: []types.RetrievedChunk{chunk(types.SourceWeb, "w1", 0.75)},
	}
	s := NewSupervisor(DefaultFamilies(), []agent.Adapter{slow, fast},
		types.SourcePolicy, 50*time.Millisecond, nil)

	bySource, traces, err := s.Dispatch(context.Background(),
		[]types.SourceType{types.SourcePolicy, types.SourceWeb}, "q")
	require.NoError(t, err)

	// The slow source times out and is dropped; the fast one survives.
	_, ok := bySource[types.SourcePolicy]
	assert.False(t, ok)
	assert.Len(t, bySource[types.SourceWeb], 1)
	assert.NotEmpty(t, traces[0].Error)
}
