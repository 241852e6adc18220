package answer

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"
)

// TokenCounter counts tokens for context budgeting. It wraps tiktoken
// with lazy initialization; when the encoding cannot be loaded it falls
// back to a character-based estimate so merging never fails on a
// tokenizer problem.
type TokenCounter struct {
	encoding string
	logger   *zap.Logger

	once    sync.Once
	enc     *tiktoken.Tiktoken
	initErr error
}

// NewTokenCounter creates a counter using the given tiktoken encoding.
// An empty encoding defaults to cl100k_base.
func NewTokenCounter(encoding string, logger *zap.Logger) *TokenCounter {
	if encoding == "" {
		encoding = "cl100k_base"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenCounter{
		encoding: encoding,
		logger:   logger.With(zap.String("component", "token_counter")),
	}
}

// init lazily loads the encoding; encoding data may be fetched on first use.
func (c *TokenCounter) init() error {
	c.once.Do(func() {
		enc, err := tiktoken.GetEncoding(c.encoding)
		if err != nil {
			c.initErr = err
			return
		}
		c.enc = enc
	})
	return c.initErr
}

// Count returns the token count of text. Falls back to len(text)/4 when
// the encoding is unavailable.
func (c *TokenCounter) Count(text string) int {
	if err := c.init(); err != nil {
		c.logger.Warn("tiktoken unavailable, using character estimate", zap.Error(err))
		return len(text) / 4
	}
	return len(c.enc.Encode(text, nil, nil))
}
