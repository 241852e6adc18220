package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Error(t *testing.T) {
	e := NewError(ErrRetrieval, "search failed")
	assert.Equal(t, "[RETRIEVAL_FAILED] search failed", e.Error())

	cause := errors.New("connection refused")
	e = e.WithCause(cause)
	assert.Contains(t, e.Error(), "connection refused")
	assert.Equal(t, cause, e.Unwrap())
}

func TestError_Builders(t *testing.T) {
	e := NewError(ErrRateLimited, "too many requests").
		WithHTTPStatus(429).
		WithRetryable(true).
		WithSource(SourceWeb)

	assert.Equal(t, 429, e.HTTPStatus)
	assert.True(t, e.Retryable)
	assert.Equal(t, SourceWeb, e.Source)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(NewError(ErrTimeout, "deadline").WithRetryable(true)))
	assert.False(t, IsRetryable(NewError(ErrInvalidRequest, "bad query")))
	assert.False(t, IsRetryable(errors.New("plain error")))
}

func TestGetErrorCode(t *testing.T) {
	assert.Equal(t, ErrSynthesis, GetErrorCode(NewError(ErrSynthesis, "llm failed")))
	assert.Equal(t, ErrorCode(""), GetErrorCode(errors.New("plain")))
}

func TestErrorsIs(t *testing.T) {
	cause := errors.New("root")
	e := NewError(ErrInternalError, "wrapped").WithCause(cause)
	assert.True(t, errors.Is(e, cause))
}
