package answer

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aerodesk-ai/aerodesk/types"
)

type fakeProvider struct {
	replies []string
	errs    []error
	calls   int

	gotMessages [][]types.Message
}

func (f *fakeProvider) Complete(ctx context.Context, messages []types.Message) (string, error) {
	f.gotMessages = append(f.gotMessages, messages)
	i := f.calls
	f.calls++
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	if err != nil {
		return "", err
	}
	if i < len(f.replies) {
		return f.replies[i], nil
	}
	return "answer", nil
}

func mergedFixture() types.MergedContext {
	return types.MergedContext{
		Chunks: []types.RetrievedChunk{
			chunk(types.SourcePolicy, "p1", 0.9, "Checked baggage limit is 30kg."),
			chunk(types.SourceWeb, "w1", 0.75, "Notice: new baggage screening."),
		},
		Sources:    []types.SourceType{types.SourcePolicy, types.SourceWeb},
		TokenCount: 20,
	}
}

func queryFixture() types.Query {
	return types.Query{ID: "q1", SessionID: "s1", Text: "What is the baggage limit?"}
}

func TestSynthesize(t *testing.T) {
	p := &fakeProvider{replies: []string{"The checked baggage limit is 30kg."}}
	s := NewSynthesizer(p, 1, nil)

	ans, err := s.Synthesize(context.Background(), queryFixture(), nil, mergedFixture(), types.IntentMultiSource)
	require.NoError(t, err)

	assert.Equal(t, "The checked baggage limit is 30kg.", ans.Text)
	assert.Equal(t, types.IntentMultiSource, ans.Intent)
	assert.True(t, ans.Grounded)
	assert.Equal(t, []types.Citation{
		{Source: types.SourcePolicy, DocID: "p1"},
		{Source: types.SourceWeb, DocID: "w1"},
	}, ans.Citations)
	assert.Equal(t, 0.9, ans.Confidence[types.SourcePolicy])
	assert.Equal(t, 0.75, ans.Confidence[types.SourceWeb])

	// Prompt carries the per-source sections and the user query last.
	require.Len(t, p.gotMessages, 1)
	msgs := p.gotMessages[0]
	assert.Equal(t, types.RoleSystem, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "## Policy documents")
	assert.Contains(t, msgs[0].Content, "## Web notices")
	assert.Contains(t, msgs[0].Content, "[p1]")
	assert.Equal(t, types.RoleUser, msgs[len(msgs)-1].Role)
}

func TestSynthesize_HistoryIncluded(t *testing.T) {
	p := &fakeProvider{}
	s := NewSynthesizer(p, 1, nil)

	history := []types.Message{
		{Role: types.RoleUser, Content: "Is PK-305 delayed?"},
		{Role: types.RoleAssistant, Content: "PK-305 is on time."},
	}
	_, err := s.Synthesize(context.Background(), queryFixture(), history, mergedFixture(), types.IntentPolicy)
	require.NoError(t, err)

	msgs := p.gotMessages[0]
	require.Len(t, msgs, 4)
	assert.Equal(t, "Is PK-305 delayed?", msgs[1].Content)
	assert.Equal(t, types.RoleAssistant, msgs[2].Role)
}

func TestSynthesize_EmptyContext(t *testing.T) {
	p := &fakeProvider{}
	s := NewSynthesizer(p, 1, nil)

	ans, err := s.Synthesize(context.Background(), queryFixture(), nil, types.MergedContext{}, types.IntentUnknown)
	require.NoError(t, err)

	assert.False(t, ans.Grounded)
	assert.Empty(t, ans.Citations)
	assert.True(t, strings.Contains(ans.Text, "could not find any relevant records"))
	// No completion call for an empty context.
	assert.Zero(t, p.calls)
}

func TestSynthesize_RetriesOnce(t *testing.T) {
	p := &fakeProvider{
		errs:    []error{types.NewError(types.ErrRateLimited, "slow down").WithRetryable(true)},
		replies: []string{"", "recovered answer"},
	}
	s := NewSynthesizer(p, 1, nil)

	ans, err := s.Synthesize(context.Background(), queryFixture(), nil, mergedFixture(), types.IntentPolicy)
	require.NoError(t, err)
	assert.Equal(t, "recovered answer", ans.Text)
	assert.Equal(t, 2, p.calls)
}

func TestSynthesize_NoRetryOnPermanentError(t *testing.T) {
	p := &fakeProvider{
		errs: []error{types.NewError(types.ErrUnauthorized, "bad key")},
	}
	s := NewSynthesizer(p, 1, nil)

	_, err := s.Synthesize(context.Background(), queryFixture(), nil, mergedFixture(), types.IntentPolicy)
	require.Error(t, err)
	assert.Equal(t, 1, p.calls)
}

func TestSynthesize_RetryBounded(t *testing.T) {
	retryable := types.NewError(types.ErrSynthesis, "flaky").WithRetryable(true)
	p := &fakeProvider{errs: []error{retryable, retryable, retryable}}
	s := NewSynthesizer(p, 1, nil)

	_, err := s.Synthesize(context.Background(), queryFixture(), nil, mergedFixture(), types.IntentPolicy)
	require.Error(t, err)
	// One initial attempt plus exactly one retry.
	assert.Equal(t, 2, p.calls)
}
